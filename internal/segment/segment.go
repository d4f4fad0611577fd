// internal/segment/segment.go
package segment

import (
	"errors"
	"strings"
)

// ErrInvalidSize is returned when the segment budget is not a positive number of characters.
var ErrInvalidSize = errors.New("segment: max size must be at least 1 character")

// Segment is a contiguous run of whole document lines.
type Segment struct {
	// Index is the zero-based position of the segment in the split output.
	Index int
	// StartLine and EndLine are zero-based, inclusive line numbers in the source document.
	StartLine int
	EndLine   int
	// Text holds the lines joined with "\n". It carries no trailing separator.
	Text string
}

// Len returns the character count of the segment text.
func (s Segment) Len() int {
	return len(s.Text)
}

// Lines returns the original lines contained in the segment.
func (s Segment) Lines() []string {
	return strings.Split(s.Text, "\n")
}

// Split partitions doc into segments of at most maxChars characters, keeping lines whole.
//
// Lines are appended to the current segment until the next line (plus its "\n"
// separator) would push it past maxChars. At that point the segment is closed and a
// new one is started with that line. A line that is longer than maxChars on its own
// is never broken up; it becomes a single oversized segment. Joining the Text of every
// returned segment with "\n" reproduces doc exactly.
func Split(doc string, maxChars int) ([]Segment, error) {
	if maxChars < 1 {
		return nil, ErrInvalidSize
	}
	if doc == "" {
		return nil, nil
	}

	lines := strings.Split(doc, "\n")
	segments := make([]Segment, 0, len(doc)/maxChars+1)

	var current strings.Builder
	start := 0
	open := false

	flush := func(end int) {
		segments = append(segments, Segment{
			Index:     len(segments),
			StartLine: start,
			EndLine:   end,
			Text:      current.String(),
		})
		current.Reset()
		open = false
	}

	for i, line := range lines {
		if !open {
			current.WriteString(line)
			start = i
			open = true
			continue
		}

		// +1 accounts for the separator that joins this line to the previous one.
		if current.Len()+1+len(line) > maxChars {
			flush(i - 1)
			current.WriteString(line)
			start = i
			open = true
			continue
		}

		current.WriteByte('\n')
		current.WriteString(line)
	}

	if open {
		flush(len(lines) - 1)
	}
	return segments, nil
}

// Join reassembles the document text from its segments.
func Join(segments []Segment) string {
	texts := make([]string, len(segments))
	for i, s := range segments {
		texts[i] = s.Text
	}
	return strings.Join(texts, "\n")
}
