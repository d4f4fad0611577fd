// api/schemas/interfaces.go
package schemas

import (
	"context"
	"time"
)

// -- LLM Client Schemas & Interface --

// GenerationOptions provides parameters to control the text generation
// process of the LLM.
type GenerationOptions struct {
	Temperature float64 `json:"temperature"` // Controls randomness. Lower is more deterministic.
	MaxTokens   int     `json:"max_tokens"`  // Token budget for the completion. Zero uses the client default.
}

// GenerationRequest encapsulates a complete request to the completion service.
// Providers without a separate system channel prepend SystemPrompt to UserPrompt.
type GenerationRequest struct {
	SystemPrompt string            `json:"system_prompt"`
	UserPrompt   string            `json:"user_prompt"`
	Options      GenerationOptions `json:"options"`
}

// LLMClient is the text-in/text-out boundary to a completion service.
type LLMClient interface {
	// Generate returns the text of the first completion choice.
	Generate(ctx context.Context, req GenerationRequest) (string, error)
	// Close releases any resources held by the client.
	Close() error
}

// -- Browser Driver Interface --

// BrowserDriver is the narrow set of browser operations the demo flow needs.
// Every locator is an XPath expression.
type BrowserDriver interface {
	Navigate(ctx context.Context, url string) error
	CurrentURL(ctx context.Context) (string, error)
	// PageSource returns the serialized markup of the current document.
	PageSource(ctx context.Context) (string, error)
	ElementExists(ctx context.Context, locator string) (bool, error)
	SendKeys(ctx context.Context, locator, text string) error
	Click(ctx context.Context, locator string) error
	// WaitPresent blocks until the locator matches a node or the timeout elapses.
	WaitPresent(ctx context.Context, locator string, timeout time.Duration) error
	ScrollTo(ctx context.Context, y int) error
	// Screenshot writes a PNG of the current viewport to path.
	Screenshot(ctx context.Context, path string) error
	Close(ctx context.Context) error
}

// -- Persisted Output --

// CaptureSink records captured pages.
type CaptureSink interface {
	Record(capture PageCapture) error
	Close() error
}
