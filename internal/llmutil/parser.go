// internal/llmutil/parser.go
package llmutil

import (
	"regexp"
	"strings"
)

var (
	// Regex definitions use \x60 (hex representation) for backticks because Go raw strings cannot contain backticks.

	// codeBlockRegex extracts content wrapped in markdown, supporting optional language tags (xpath, xml, text, etc.).
	codeBlockRegex = regexp.MustCompile("(?s)\x60\x60\x60[a-zA-Z0-9_-]*[ \t]*\\n?(.*?)\\s*\x60\x60\x60")

	// danglingFenceRegex matches a fence (and its language tag) that was never closed, e.g. a truncated completion.
	danglingFenceRegex = regexp.MustCompile("\x60\x60\x60[a-zA-Z0-9_-]*")
)

// CleanCodeOutput removes markdown artifacts from a model response.
// A fenced block anywhere in the text wins over the surrounding prose. Unbalanced
// fences and inline backticks around the whole answer are stripped as well.
func CleanCodeOutput(content string) string {
	content = strings.TrimSpace(content)
	if content == "" {
		return ""
	}

	if strings.Contains(content, "```") {
		if matches := codeBlockRegex.FindStringSubmatch(content); len(matches) > 1 {
			content = matches[1]
		} else {
			content = danglingFenceRegex.ReplaceAllString(content, "")
		}
		content = strings.TrimSpace(content)
	}

	// Single inline code span: `//div[@id='x']`
	if len(content) >= 2 && strings.HasPrefix(content, "`") && strings.HasSuffix(content, "`") {
		content = strings.TrimSpace(strings.Trim(content, "`"))
	}
	return content
}

// Truncate shortens s to at most maxLen bytes for logging, marking the cut with "...".
func Truncate(s string, maxLen int) string {
	if maxLen <= 0 {
		return ""
	}
	if len(s) <= maxLen {
		return s
	}
	// Simple truncation; does not account for rune boundaries but sufficient for logging.
	return s[:maxLen] + "..."
}
