package locator

import (
	"fmt"
	"strings"

	"github.com/xkilldash9x/xpathfinder/api/schemas"
	"github.com/xkilldash9x/xpathfinder/internal/segment"
)

// noneSentinel is what the model is told to answer when the fragment does not
// contain the element. It fails the prefix check like any other rejection.
const noneSentinel = "NONE"

const systemPrompt = `You locate elements inside fragments of an HTML document.
Answer with exactly one absolute XPath expression that begins with // and selects the requested element.
Do not add explanations, quotes, or markdown.
If the fragment does not contain the element, answer ` + noneSentinel + `.`

// buildRequest embeds one segment and the target description into a generation
// request. The token budget is left at zero so the client applies llm.max_tokens.
func buildRequest(seg segment.Segment, total int, target Target) schemas.GenerationRequest {
	var b strings.Builder
	fmt.Fprintf(&b, "Element to find: %s\n", strings.TrimSpace(target.Description))
	fmt.Fprintf(&b, "HTML fragment %d of %d (lines %d-%d):\n", seg.Index+1, total, seg.StartLine+1, seg.EndLine+1)
	b.WriteString(seg.Text)
	b.WriteString("\n\nXPath:")

	return schemas.GenerationRequest{
		SystemPrompt: systemPrompt,
		UserPrompt:   b.String(),
	}
}
