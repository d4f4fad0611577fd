package cmd

import (
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync/atomic"
	"testing"

	json "github.com/json-iterator/go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/xkilldash9x/xpathfinder/internal/locator"
)

const loginPage = `<html>
<body>
<form id="login">
<input name="user" type="text">
<input name="pass" type="password">
</form>
</body>
</html>`

// setupCompletionServer fakes the completions endpoint and points the CLI at it.
// answer receives the prompt and returns the text of the single choice.
func setupCompletionServer(t *testing.T, answer func(prompt string) string) *int32 {
	t.Helper()
	var calls int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		var req struct {
			Prompt string `json:"prompt"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			w.WriteHeader(http.StatusBadRequest)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]interface{}{
			"choices": []map[string]interface{}{{"text": answer(req.Prompt), "index": 0}},
		})
	}))
	t.Cleanup(server.Close)

	t.Setenv("XPATHFINDER_LLM_API_KEY", "test-key")
	t.Setenv("XPATHFINDER_LLM_ENDPOINT", server.URL)
	t.Setenv("XPATHFINDER_LLM_MAX_RETRIES", "0")
	t.Setenv("XPATHFINDER_LLM_REQUESTS_PER_SECOND", "0")
	t.Setenv("XPATHFINDER_LOGGER_LEVEL", "error")
	return &calls
}

func writeHTML(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "page.html")
	require.NoError(t, os.WriteFile(path, []byte(loginPage), 0o644))
	return path
}

func TestLocateCmd_Found(t *testing.T) {
	setupCompletionServer(t, func(prompt string) string {
		if strings.Contains(prompt, `type="password"`) {
			return "```xpath\n//input[@type='password']\n```"
		}
		return "NONE"
	})
	htmlPath := writeHTML(t)

	out, err := executeCommand(t, "locate", "--html", htmlPath, "--target", "the password field",
		"--max-segment-chars", "40", "--verify")
	require.NoError(t, err)

	lines := strings.Split(strings.TrimSpace(out), "\n")
	require.Len(t, lines, 3)
	assert.Equal(t, "//input[@type='password']", lines[0])
	assert.Equal(t, "segment: 2", lines[1])
	assert.Equal(t, "canonical: //*[@id='login']/input[2]", lines[2])
}

func TestLocateCmd_JSON(t *testing.T) {
	setupCompletionServer(t, func(string) string { return "//input[@name='user']" })

	out, err := executeCommand(t, "locate", "--html", writeHTML(t), "--target", "the user name field", "--json")
	require.NoError(t, err)

	var result locator.Result
	require.NoError(t, json.Unmarshal([]byte(out), &result))
	assert.True(t, result.Found)
	assert.Equal(t, "//input[@name='user']", result.Locator)
	assert.Equal(t, 0, result.SegmentIndex)
	require.Len(t, result.Attempts, 1)
	assert.Equal(t, locator.OutcomeAccepted, result.Attempts[0].Outcome)
}

func TestLocateCmd_NotFound(t *testing.T) {
	calls := setupCompletionServer(t, func(string) string { return "I could not find it." })

	out, err := executeCommand(t, "locate", "--html", writeHTML(t), "--target", "the captcha", "--max-segment-chars", "40")
	assert.ErrorIs(t, err, locator.ErrNotFound)
	assert.Contains(t, out, "not found after")
	assert.Contains(t, out, "0 service failure(s)")
	assert.Greater(t, atomic.LoadInt32(calls), int32(1), "every segment is tried")
}

func TestLocateCmd_FlagValidation(t *testing.T) {
	setupCompletionServer(t, func(string) string { return "//x" })

	_, err := executeCommand(t, "locate", "--target", "box")
	assert.ErrorContains(t, err, "exactly one of --html or --url is required")

	_, err = executeCommand(t, "locate", "--html", "a.html", "--url", "https://example.org", "--target", "box")
	assert.ErrorContains(t, err, "exactly one of --html or --url is required")

	_, err = executeCommand(t, "locate", "--html", "a.html")
	assert.ErrorContains(t, err, `required flag(s) "target" not set`)
}

func TestLocateCmd_MissingAPIKey(t *testing.T) {
	t.Setenv("XPATHFINDER_LLM_API_KEY", "")
	t.Setenv("OPENAI_API_KEY", "")

	_, err := executeCommand(t, "locate", "--html", writeHTML(t), "--target", "box")
	assert.ErrorContains(t, err, "no API key")
}

func TestRunCmd_RequiresTaskOrURL(t *testing.T) {
	_, err := executeCommand(t, "run")
	assert.ErrorContains(t, err, "either --task or --url is required")
}

func TestRunCmd_InvalidTaskFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "task.yaml")
	require.NoError(t, os.WriteFile(path, []byte("url: https://example.org\ninput:\n  value: x\n"), 0o644))

	_, err := executeCommand(t, "run", "--task", path)
	assert.ErrorContains(t, err, "target description must not be empty")
}

func TestRunOptions_Overrides(t *testing.T) {
	path := filepath.Join(t.TempDir(), "task.yaml")
	require.NoError(t, os.WriteFile(path, []byte("url: https://a.example\ninput:\n  description: box\n  value: one\nclicks: [first]\n"), 0o644))

	opts := &runOptions{taskPath: path, url: "https://b.example", value: "two", submit: true}
	task, err := opts.task()
	require.NoError(t, err)
	assert.Equal(t, "https://b.example", task.URL)
	assert.Equal(t, "box", task.Input.Description)
	assert.Equal(t, "two", task.Input.Value)
	assert.True(t, task.Submit)
	assert.Equal(t, []string{"first"}, task.Clicks)

	opts = &runOptions{url: "https://c.example", target: "search box", clicks: []string{"result"}}
	task, err = opts.task()
	require.NoError(t, err)
	assert.Equal(t, "search box", task.Input.Description)
	assert.Equal(t, []string{"result"}, task.Clicks)
}
