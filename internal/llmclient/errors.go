// internal/llmclient/errors.go
package llmclient

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/xkilldash9x/xpathfinder/internal/llmutil"
)

// ErrNoChoices is returned when a successful response carries no completion text.
var ErrNoChoices = errors.New("completion response contained no choices")

// APIError is a non-success HTTP status returned by a completion provider.
type APIError struct {
	Provider   string
	StatusCode int
	Body       string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("%s API error: status %d, body: %s", e.Provider, e.StatusCode, llmutil.Truncate(e.Body, 512))
}

// Transient reports whether the status is worth retrying.
func (e *APIError) Transient() bool {
	switch e.StatusCode {
	case http.StatusTooManyRequests,
		http.StatusInternalServerError,
		http.StatusBadGateway,
		http.StatusServiceUnavailable,
		http.StatusGatewayTimeout:
		return true
	default:
		return false
	}
}
