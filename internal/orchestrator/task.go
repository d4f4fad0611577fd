// File: internal/orchestrator/task.go
// Description: The declarative description of a demo flow, loaded from YAML.

package orchestrator

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"net/url"
	"os"
	"strings"

	"github.com/mitchellh/go-homedir"
	"gopkg.in/yaml.v3"

	"github.com/xkilldash9x/xpathfinder/internal/locator"
)

// ScreenshotStep describes the final screenshot of a run.
type ScreenshotStep struct {
	// Path is resolved against output.screenshot_dir when relative.
	Path    string `yaml:"path"`
	ScrollY int    `yaml:"scroll_y"`
}

// Task is one parameterized run: open a page, fill the described input, then
// follow a list of described click targets.
type Task struct {
	URL        string          `yaml:"url"`
	Input      locator.Target  `yaml:"input"`
	Submit     bool            `yaml:"submit"`
	Clicks     []string        `yaml:"clicks"`
	Screenshot *ScreenshotStep `yaml:"screenshot"`
}

// LoadTask reads a task file. Unknown keys are rejected. The task is not
// validated here so callers can apply overrides first; Run validates it.
func LoadTask(path string) (*Task, error) {
	expanded, err := homedir.Expand(path)
	if err != nil {
		return nil, fmt.Errorf("failed to expand task path %q: %w", path, err)
	}
	data, err := os.ReadFile(expanded)
	if err != nil {
		return nil, fmt.Errorf("failed to read task file: %w", err)
	}

	task, err := ParseTask(data)
	if err != nil {
		return nil, fmt.Errorf("invalid task file %s: %w", expanded, err)
	}
	return task, nil
}

// ParseTask decodes a YAML task document.
func ParseTask(data []byte) (*Task, error) {
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)

	var task Task
	if err := dec.Decode(&task); err != nil {
		if errors.Is(err, io.EOF) {
			return nil, errors.New("task document is empty")
		}
		return nil, fmt.Errorf("failed to decode task: %w", err)
	}
	return &task, nil
}

// Validate checks the task before any browser work starts.
func (t *Task) Validate() error {
	if strings.TrimSpace(t.URL) == "" {
		return errors.New("task url is required")
	}
	u, err := url.Parse(t.URL)
	if err != nil {
		return fmt.Errorf("task url %q is invalid: %w", t.URL, err)
	}
	switch u.Scheme {
	case "http", "https", "file":
	default:
		return fmt.Errorf("task url %q must use http, https or file", t.URL)
	}

	if err := t.Input.Validate(); err != nil {
		return fmt.Errorf("task input: %w", err)
	}
	for i, click := range t.Clicks {
		if strings.TrimSpace(click) == "" {
			return fmt.Errorf("task click %d has an empty description", i+1)
		}
	}
	if t.Screenshot != nil && strings.TrimSpace(t.Screenshot.Path) == "" {
		return errors.New("task screenshot path is required when screenshot is set")
	}
	return nil
}
