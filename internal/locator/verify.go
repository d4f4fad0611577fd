package locator

import (
	"errors"
	"fmt"
	"strings"

	"github.com/antchfx/htmlquery"
	"golang.org/x/net/html"
)

// ErrNoMatch marks a well-formed candidate that selects nothing in the document.
var ErrNoMatch = errors.New("locator matches no element in the document")

// verifier evaluates candidates against the full document the segments came from.
// The document is parsed on first use and reused for the rest of the resolution.
type verifier struct {
	source string
	doc    *html.Node
}

func newVerifier(source string) *verifier {
	return &verifier{source: source}
}

// check returns the canonical path of the first node the candidate selects.
func (v *verifier) check(candidate string) (string, error) {
	if v.doc == nil {
		doc, err := htmlquery.Parse(strings.NewReader(v.source))
		if err != nil {
			return "", fmt.Errorf("failed to parse document for verification: %w", err)
		}
		v.doc = doc
	}

	nodes, err := htmlquery.QueryAll(v.doc, candidate)
	if err != nil {
		return "", fmt.Errorf("invalid XPath expression %q: %w", candidate, err)
	}
	if len(nodes) == 0 {
		return "", ErrNoMatch
	}
	return CanonicalPath(nodes[0]), nil
}

// CanonicalPath builds a unique, absolute XPath for node.
// The nearest ancestor carrying an id anchors the path; otherwise it is spelled
// out from the root with 1-based positions among same-tag siblings. Non-element
// nodes (text, attributes) resolve to their owning element.
func CanonicalPath(node *html.Node) string {
	for node != nil && node.Type != html.ElementNode && node.Type != html.DocumentNode {
		node = node.Parent
	}
	if node == nil || node.Type == html.DocumentNode {
		return "/"
	}

	var steps []string
	anchored := false
	for n := node; n != nil && n.Type != html.DocumentNode; n = n.Parent {
		if n.Type != html.ElementNode || n.Data == "" {
			continue
		}
		if id := htmlquery.SelectAttr(n, "id"); id != "" {
			steps = append(steps, fmt.Sprintf("//*[@id=%s]", xpathLiteral(id)))
			anchored = true
			break
		}
		tag := strings.ToLower(n.Data)
		steps = append(steps, fmt.Sprintf("%s[%d]", tag, siblingPosition(n, tag)))
	}

	// Steps were collected leaf first.
	for i, j := 0, len(steps)-1; i < j; i, j = i+1, j-1 {
		steps[i], steps[j] = steps[j], steps[i]
	}
	path := strings.Join(steps, "/")
	if !anchored {
		path = "/" + path
	}
	return path
}

func siblingPosition(n *html.Node, tag string) int {
	pos := 1
	for prev := n.PrevSibling; prev != nil; prev = prev.PrevSibling {
		if prev.Type == html.ElementNode && strings.ToLower(prev.Data) == tag {
			pos++
		}
	}
	return pos
}

// xpathLiteral quotes s for use inside an XPath 1.0 expression, which has no
// escape sequences. Values holding both quote kinds are split with concat().
func xpathLiteral(s string) string {
	if !strings.Contains(s, "'") {
		return "'" + s + "'"
	}
	if !strings.Contains(s, `"`) {
		return `"` + s + `"`
	}
	parts := strings.Split(s, "'")
	quoted := make([]string, 0, len(parts)*2)
	for i, p := range parts {
		if i > 0 {
			quoted = append(quoted, `"'"`)
		}
		if p != "" {
			quoted = append(quoted, "'"+p+"'")
		}
	}
	return "concat(" + strings.Join(quoted, ", ") + ")"
}
