package locator

import (
	"errors"
	"strings"
)

// ErrEmptyTarget is returned when a resolution is requested without a description.
var ErrEmptyTarget = errors.New("target description must not be empty")

// Target names the element to locate. Description is the natural-language
// phrase sent to the completion service; Value is what the caller intends to
// type into the element once found and is never sent to the service.
type Target struct {
	Description string `json:"description" yaml:"description"`
	Value       string `json:"value,omitempty" yaml:"value,omitempty"`
}

// Validate checks that the target can be described to the completion service.
func (t Target) Validate() error {
	if strings.TrimSpace(t.Description) == "" {
		return ErrEmptyTarget
	}
	return nil
}
