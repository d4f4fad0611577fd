// internal/browser/context_utils.go
package browser

import (
	"context"
)

// CombineContext creates a context derived from ctx1 (the browser lifetime
// context) that is also canceled when ctx2 (the operation context) is done.
// Values come from ctx1 only, which is where chromedp keeps the target handle,
// so actions run against the combined context still reach the browser.
func CombineContext(ctx1, ctx2 context.Context) (context.Context, context.CancelFunc) {
	combinedCtx, cancel := context.WithCancel(ctx1)

	go func() {
		select {
		case <-ctx2.Done():
			cancel()
		case <-combinedCtx.Done():
			// Canceled through ctx1 or by the caller.
		}
	}()

	return combinedCtx, cancel
}
