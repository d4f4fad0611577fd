// internal/browser/driver_test.go
package browser

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"os/exec"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/xkilldash9x/xpathfinder/api/schemas"
	"github.com/xkilldash9x/xpathfinder/internal/config"
)

const formPage = `<!DOCTYPE html>
<html>
<body style="height: 3000px">
  <form id="search" onsubmit="event.preventDefault(); document.getElementById('out').textContent = document.getElementById('q').value;">
    <input id="q" name="q" type="text">
  </form>
  <button id="reveal" onclick="var p = document.createElement('p'); p.id = 'late'; document.body.appendChild(p);">Reveal</button>
  <div id="out"></div>
</body>
</html>`

// findChrome returns a Chromium binary or skips the test.
func findChrome(t *testing.T) string {
	t.Helper()
	if testing.Short() {
		t.Skip("skipping browser integration test in short mode")
	}
	if path := os.Getenv("XPATHFINDER_BROWSER_EXEC_PATH"); path != "" {
		return path
	}
	for _, name := range []string{"google-chrome", "google-chrome-stable", "chromium", "chromium-browser", "headless-shell"} {
		if path, err := exec.LookPath(name); err == nil {
			return path
		}
	}
	t.Skip("no Chrome or Chromium binary found")
	return ""
}

func newTestDriver(t *testing.T) *Driver {
	t.Helper()
	cfg := config.BrowserConfig{
		Headless:          true,
		ExecPath:          findChrome(t),
		NavigationTimeout: 30 * time.Second,
		WaitTimeout:       5 * time.Second,
	}
	driver, err := NewDriver(context.Background(), cfg, zaptest.NewLogger(t))
	require.NoError(t, err)
	t.Cleanup(func() { _ = driver.Close(context.Background()) })
	return driver
}

func TestDriver_Integration(t *testing.T) {
	driver := newTestDriver(t)
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		fmt.Fprint(w, formPage)
	}))
	defer server.Close()

	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()

	require.NoError(t, driver.Navigate(ctx, server.URL))

	url, err := driver.CurrentURL(ctx)
	require.NoError(t, err)
	assert.Equal(t, server.URL+"/", url)

	source, err := driver.PageSource(ctx)
	require.NoError(t, err)
	assert.Contains(t, source, `id="search"`)

	exists, err := driver.ElementExists(ctx, "//input[@name='q']")
	require.NoError(t, err)
	assert.True(t, exists)

	exists, err = driver.ElementExists(ctx, "//textarea")
	require.NoError(t, err)
	assert.False(t, exists)

	require.NoError(t, driver.WaitPresent(ctx, "//input[@name='q']", 0))
	require.NoError(t, driver.SendKeys(ctx, "//input[@name='q']", "quantum"+schemas.KeyEnter))
	require.NoError(t, driver.WaitPresent(ctx, "//div[@id='out' and text()='quantum']", 0))

	err = driver.WaitPresent(ctx, "//p[@id='late']", 200*time.Millisecond)
	assert.ErrorContains(t, err, "not present after")

	require.NoError(t, driver.Click(ctx, "//button[@id='reveal']"))
	require.NoError(t, driver.WaitPresent(ctx, "//p[@id='late']", 0))

	require.NoError(t, driver.ScrollTo(ctx, 600))

	shot := filepath.Join(t.TempDir(), "shots", "page.png")
	require.NoError(t, driver.Screenshot(ctx, shot))
	info, err := os.Stat(shot)
	require.NoError(t, err)
	assert.Positive(t, info.Size())

	require.NoError(t, driver.Close(ctx))
	assert.NoError(t, driver.Close(ctx), "closing twice is a no-op")
}
