// internal/browser/options.go
package browser

import (
	"fmt"
	"strings"

	"github.com/chromedp/chromedp"

	"github.com/xkilldash9x/xpathfinder/internal/config"
)

const (
	defaultWindowWidth  = 1280
	defaultWindowHeight = 900
)

// DefaultAllocatorOptions builds the exec allocator options for a browser
// configured by cfg. chromedp's defaults are applied first and overridden by
// the flags derived from the configuration.
func DefaultAllocatorOptions(cfg config.BrowserConfig) []chromedp.ExecAllocatorOption {
	opts := append([]chromedp.ExecAllocatorOption{}, chromedp.DefaultExecAllocatorOptions[:]...)

	for name, value := range allocatorFlags(cfg) {
		opts = append(opts, chromedp.Flag(name, value))
	}
	if cfg.ExecPath != "" {
		opts = append(opts, chromedp.ExecPath(cfg.ExecPath))
	}
	return opts
}

// allocatorFlags maps the browser configuration onto Chrome command line flags.
func allocatorFlags(cfg config.BrowserConfig) map[string]interface{} {
	width, height := defaultWindowWidth, defaultWindowHeight
	if w := cfg.Viewport["width"]; w > 0 {
		width = w
	}
	if h := cfg.Viewport["height"]; h > 0 {
		height = h
	}

	flags := map[string]interface{}{
		"headless":               cfg.Headless,
		"disable-gpu":            true,
		"no-sandbox":             true,
		"disable-dev-shm-usage":  true,
		"disable-blink-features": "AutomationControlled",
		"window-size":            fmt.Sprintf("%d,%d", width, height),
	}

	if cfg.DisableCache {
		flags["disk-cache-size"] = "1"
		flags["media-cache-size"] = "1"
		flags["disable-cache"] = true
	}
	if cfg.IgnoreTLSErrors {
		flags["ignore-certificate-errors"] = true
		flags["allow-insecure-localhost"] = true
	}
	if cfg.UserAgent != "" {
		flags["user-agent"] = cfg.UserAgent
	}

	// Extra args arrive as "--name" or "--name=value".
	for _, arg := range cfg.Args {
		name, value, found := strings.Cut(strings.TrimLeft(arg, "-"), "=")
		if name == "" {
			continue
		}
		if found {
			flags[name] = value
		} else {
			flags[name] = true
		}
	}
	return flags
}
