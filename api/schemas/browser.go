// api/schemas/browser.go
package schemas

import "time"

// PageCapture is a snapshot of a page's URL and markup at a point in the flow.
type PageCapture struct {
	URL        string    `json:"url"`
	HTML       string    `json:"html"`
	CapturedAt time.Time `json:"captured_at"`
}

// KeyEnter is the key sequence chromedp interprets as the Enter key.
const KeyEnter = "\r"
