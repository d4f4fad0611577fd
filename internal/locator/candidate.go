package locator

import (
	"strings"

	"github.com/xkilldash9x/xpathfinder/internal/llmutil"
)

// absolutePrefix opens every locator the resolver is willing to hand to a browser.
const absolutePrefix = "//"

// NormalizeCandidate trims a raw completion and unwraps any code fence around it.
func NormalizeCandidate(raw string) string {
	return strings.TrimSpace(llmutil.CleanCodeOutput(raw))
}

// IsAcceptable reports whether a normalized candidate has the shape of a
// document-wide XPath. Nothing beyond the prefix is checked here.
func IsAcceptable(candidate string) bool {
	return strings.HasPrefix(candidate, absolutePrefix)
}
