// File: cmd/root_test.go
package cmd

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/xkilldash9x/xpathfinder/internal/observability"
)

// executeCommand runs a fresh command tree in a scratch directory and returns its stdout.
func executeCommand(t *testing.T, args ...string) (string, error) {
	t.Helper()
	t.Chdir(t.TempDir())
	observability.ResetForTest()
	t.Cleanup(observability.ResetForTest)

	rootCmd := NewRootCommand()
	var out, errOut bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetErr(&errOut)
	rootCmd.SetArgs(args)

	err := rootCmd.ExecuteContext(context.Background())
	return out.String(), err
}

func TestRootCmd_VersionFlag(t *testing.T) {
	out, err := executeCommand(t, "--version")
	require.NoError(t, err)
	assert.Equal(t, "xpathfinder version "+Version+"\n", out)
}

func TestVersionCmd(t *testing.T) {
	out, err := executeCommand(t, "version")
	require.NoError(t, err)
	assert.Equal(t, "xpathfinder version "+Version+"\n", out)
}

func TestRootCmd_NoArgs(t *testing.T) {
	out, err := executeCommand(t)
	require.NoError(t, err)
	assert.Contains(t, out, "asks a completion model for XPath locators")
	assert.Contains(t, out, "locate")
	assert.Contains(t, out, "capture")
	assert.Contains(t, out, "run")
}

func TestRootCmd_InvalidConfigFile(t *testing.T) {
	dir := t.TempDir()
	cfgPath := filepath.Join(dir, "config.yaml")
	require.NoError(t, os.WriteFile(cfgPath, []byte("locator:\n  max_segment_chars: 0\n"), 0o644))
	htmlPath := filepath.Join(dir, "page.html")
	require.NoError(t, os.WriteFile(htmlPath, []byte("<html></html>"), 0o644))

	_, err := executeCommand(t, "--config", cfgPath, "locate", "--html", htmlPath, "--target", "box")
	assert.ErrorContains(t, err, "max_segment_chars must be a positive integer")
}

func TestRootCmd_UnreadableConfigFile(t *testing.T) {
	_, err := executeCommand(t, "-c", filepath.Join(t.TempDir(), "missing.yaml"), "locate", "--html", "x", "--target", "y")
	assert.ErrorContains(t, err, "failed to initialize configuration")
}

func TestLoadDotEnv(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, ".env")
	require.NoError(t, os.WriteFile(path, []byte("XPATHFINDER_TEST_DOTENV=from-file\n"), 0o644))
	t.Setenv("XPATHFINDER_TEST_DOTENV", "")
	require.NoError(t, os.Unsetenv("XPATHFINDER_TEST_DOTENV"))

	require.NoError(t, loadDotEnv(path))
	assert.Equal(t, "from-file", os.Getenv("XPATHFINDER_TEST_DOTENV"))

	assert.NoError(t, loadDotEnv(filepath.Join(dir, "absent.env")), "a missing .env file is not an error")
}
