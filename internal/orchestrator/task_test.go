package orchestrator

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/xkilldash9x/xpathfinder/internal/locator"
)

const taskYAML = `
url: https://search.example.org
input:
  description: "the main search text box"
  value: "quantum computing"
submit: true
clicks:
  - "the first search result link"
  - "the PDF download link"
screenshot:
  path: shots/final.png
  scroll_y: 600
`

func TestLoadTask(t *testing.T) {
	path := filepath.Join(t.TempDir(), "task.yaml")
	require.NoError(t, os.WriteFile(path, []byte(taskYAML), 0o644))

	task, err := LoadTask(path)
	require.NoError(t, err)
	require.NoError(t, task.Validate())

	want := &Task{
		URL:    "https://search.example.org",
		Input:  locator.Target{Description: "the main search text box", Value: "quantum computing"},
		Submit: true,
		Clicks: []string{"the first search result link", "the PDF download link"},
		Screenshot: &ScreenshotStep{
			Path:    "shots/final.png",
			ScrollY: 600,
		},
	}
	if diff := cmp.Diff(want, task); diff != "" {
		t.Errorf("LoadTask mismatch (-want +got):\n%s", diff)
	}
}

func TestLoadTask_MissingFile(t *testing.T) {
	_, err := LoadTask(filepath.Join(t.TempDir(), "absent.yaml"))
	assert.ErrorContains(t, err, "failed to read task file")
}

func TestParseAndValidateTask_Errors(t *testing.T) {
	tests := []struct {
		name    string
		doc     string
		wantErr string
	}{
		{"Empty document", "", "task document is empty"},
		{"Unknown field", "url: https://a.example\ninput: {description: box}\nwait: 5\n", "field wait not found"},
		{"Missing URL", "input: {description: box}\n", "url is required"},
		{"Unsupported scheme", "url: ftp://a.example\ninput: {description: box}\n", "must use http, https or file"},
		{"Missing input description", "url: https://a.example\ninput: {value: x}\n", "target description must not be empty"},
		{"Blank click", "url: https://a.example\ninput: {description: box}\nclicks: ['  ']\n", "click 1 has an empty description"},
		{"Screenshot without path", "url: https://a.example\ninput: {description: box}\nscreenshot: {scroll_y: 10}\n", "screenshot path is required"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			task, err := ParseTask([]byte(tt.doc))
			if err == nil {
				err = task.Validate()
			}
			assert.ErrorContains(t, err, tt.wantErr)
		})
	}
}

func TestParseTask_Minimal(t *testing.T) {
	task, err := ParseTask([]byte("url: file:///tmp/page.html\ninput:\n  description: the name field\n"))
	require.NoError(t, err)
	require.NoError(t, task.Validate())
	assert.False(t, task.Submit)
	assert.Empty(t, task.Clicks)
	assert.Nil(t, task.Screenshot)
	assert.Empty(t, task.Input.Value)
}
