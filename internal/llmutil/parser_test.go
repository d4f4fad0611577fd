// internal/llmutil/parser_test.go
package llmutil

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCleanCodeOutput(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected string
	}{
		{"Plain", "//input[@id='q']", "//input[@id='q']"},
		{"Surrounding whitespace", "  \n//input[@id='q']\n\t", "//input[@id='q']"},
		{"Bare fence", "```\n//input[@name='search']\n```", "//input[@name='search']"},
		{"Fence with language tag", "```xpath\n//button[text()='Go']\n```", "//button[text()='Go']"},
		{"Fence on one line", "```//a[1]```", "//a[1]"},
		{"Fence inside prose", "Here you go:\n```xml\n//div[@class='r']/a\n```\nHope it helps.", "//div[@class='r']/a"},
		{"Unclosed fence", "```xpath\n//span[2]", "//span[2]"},
		{"Inline code span", "`//form//input`", "//form//input"},
		{"Not a locator", "```\nNOT_FOUND\n```", "NOT_FOUND"},
		{"Empty", "   ", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, CleanCodeOutput(tt.input))
		})
	}
}

func TestTruncate(t *testing.T) {
	assert.Equal(t, "abc", Truncate("abc", 10))
	assert.Equal(t, "ab...", Truncate("abcdef", 2))
	assert.Equal(t, "", Truncate("abcdef", 0))
	assert.Equal(t, "", Truncate("abcdef", -3))
}
