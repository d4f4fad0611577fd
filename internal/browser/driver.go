// internal/browser/driver.go
package browser

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/chromedp/cdproto/cdp"
	"github.com/chromedp/chromedp"
	"go.uber.org/zap"

	"github.com/xkilldash9x/xpathfinder/api/schemas"
	"github.com/xkilldash9x/xpathfinder/internal/config"
)

const (
	defaultNavigationTimeout = 60 * time.Second
	defaultWaitTimeout       = 10 * time.Second
	closeTimeout             = 5 * time.Second
)

// Driver runs a single Chromium tab through chromedp. Every locator it
// accepts is an XPath expression, evaluated with chromedp.BySearch.
type Driver struct {
	cfg    config.BrowserConfig
	logger *zap.Logger

	allocCancel context.CancelFunc
	ctx         context.Context
	cancel      context.CancelFunc
	closeOnce   sync.Once
}

var _ schemas.BrowserDriver = (*Driver)(nil)

// NewDriver launches a browser whose lifetime is bound to ctx.
func NewDriver(ctx context.Context, cfg config.BrowserConfig, logger *zap.Logger) (*Driver, error) {
	log := logger.Named("browser")

	allocCtx, allocCancel := chromedp.NewExecAllocator(ctx, DefaultAllocatorOptions(cfg)...)
	sugar := log.Sugar()
	browserCtx, cancel := chromedp.NewContext(allocCtx,
		chromedp.WithLogf(sugar.Debugf),
		chromedp.WithErrorf(sugar.Debugf),
	)

	// Force the browser to start so launch failures surface here.
	if err := chromedp.Run(browserCtx); err != nil {
		cancel()
		allocCancel()
		return nil, fmt.Errorf("failed to start browser: %w", err)
	}

	log.Info("Browser started", zap.Bool("headless", cfg.Headless))
	return &Driver{
		cfg:         cfg,
		logger:      log,
		allocCancel: allocCancel,
		ctx:         browserCtx,
		cancel:      cancel,
	}, nil
}

// runActions executes chromedp actions bounded by the browser lifetime, the
// caller's ctx, and timeout when it is positive.
func (d *Driver) runActions(ctx context.Context, timeout time.Duration, actions ...chromedp.Action) error {
	runCtx, cancel := CombineContext(d.ctx, ctx)
	defer cancel()

	if timeout > 0 {
		var timeoutCancel context.CancelFunc
		runCtx, timeoutCancel = context.WithTimeout(runCtx, timeout)
		defer timeoutCancel()
	}
	return chromedp.Run(runCtx, actions...)
}

func (d *Driver) waitTimeout() time.Duration {
	if d.cfg.WaitTimeout > 0 {
		return d.cfg.WaitTimeout
	}
	return defaultWaitTimeout
}

// Navigate loads url and waits for the document body to be ready.
func (d *Driver) Navigate(ctx context.Context, url string) error {
	timeout := d.cfg.NavigationTimeout
	if timeout <= 0 {
		timeout = defaultNavigationTimeout
	}
	d.logger.Debug("Navigating", zap.String("url", url))

	err := d.runActions(ctx, timeout,
		chromedp.Navigate(url),
		chromedp.WaitReady("body", chromedp.ByQuery),
	)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) && ctx.Err() == nil {
			return fmt.Errorf("navigation to %s timed out after %s: %w", url, timeout, err)
		}
		return fmt.Errorf("navigation to %s failed: %w", url, err)
	}
	return nil
}

// CurrentURL returns the location of the current document.
func (d *Driver) CurrentURL(ctx context.Context) (string, error) {
	var url string
	if err := d.runActions(ctx, 0, chromedp.Location(&url)); err != nil {
		return "", fmt.Errorf("failed to read current URL: %w", err)
	}
	return url, nil
}

// PageSource returns the outer HTML of the current document.
func (d *Driver) PageSource(ctx context.Context) (string, error) {
	var source string
	if err := d.runActions(ctx, 0, chromedp.OuterHTML("html", &source, chromedp.ByQuery)); err != nil {
		return "", fmt.Errorf("failed to read page source: %w", err)
	}
	return source, nil
}

// ElementExists reports whether locator currently matches any node. It does not wait.
func (d *Driver) ElementExists(ctx context.Context, locator string) (bool, error) {
	var nodes []*cdp.Node
	err := d.runActions(ctx, d.waitTimeout(),
		chromedp.Nodes(locator, &nodes, chromedp.BySearch, chromedp.AtLeast(0)),
	)
	if err != nil {
		return false, fmt.Errorf("failed to query %q: %w", locator, err)
	}
	return len(nodes) > 0, nil
}

// SendKeys types text into the first element matching locator.
func (d *Driver) SendKeys(ctx context.Context, locator, text string) error {
	d.logger.Debug("Typing into element", zap.String("locator", locator), zap.Int("text_length", len(text)))
	if err := d.runActions(ctx, d.waitTimeout(), chromedp.SendKeys(locator, text, chromedp.BySearch)); err != nil {
		return fmt.Errorf("type action failed for %q: %w", locator, err)
	}
	return nil
}

// Click clicks the first visible element matching locator.
func (d *Driver) Click(ctx context.Context, locator string) error {
	d.logger.Debug("Clicking element", zap.String("locator", locator))
	err := d.runActions(ctx, d.waitTimeout(),
		chromedp.ScrollIntoView(locator, chromedp.BySearch),
		chromedp.Click(locator, chromedp.BySearch, chromedp.NodeVisible),
	)
	if err != nil {
		return fmt.Errorf("click action failed for %q: %w", locator, err)
	}
	return nil
}

// WaitPresent blocks until locator matches a node in the DOM. A non-positive
// timeout falls back to browser.wait_timeout.
func (d *Driver) WaitPresent(ctx context.Context, locator string, timeout time.Duration) error {
	if timeout <= 0 {
		timeout = d.waitTimeout()
	}
	if err := d.runActions(ctx, timeout, chromedp.WaitReady(locator, chromedp.BySearch)); err != nil {
		if errors.Is(err, context.DeadlineExceeded) && ctx.Err() == nil {
			return fmt.Errorf("element %q not present after %s: %w", locator, timeout, err)
		}
		return fmt.Errorf("waiting for %q failed: %w", locator, err)
	}
	return nil
}

// ScrollTo scrolls the window to the vertical offset y.
func (d *Driver) ScrollTo(ctx context.Context, y int) error {
	script := fmt.Sprintf("window.scrollTo(0, %d)", y)
	if err := d.runActions(ctx, 0, chromedp.Evaluate(script, nil)); err != nil {
		return fmt.Errorf("scroll to %d failed: %w", y, err)
	}
	return nil
}

// Screenshot writes a PNG of the visible viewport to path, creating parent directories.
func (d *Driver) Screenshot(ctx context.Context, path string) error {
	var buf []byte
	if err := d.runActions(ctx, 0, chromedp.CaptureScreenshot(&buf)); err != nil {
		return fmt.Errorf("screenshot failed: %w", err)
	}
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("failed to create screenshot directory: %w", err)
		}
	}
	if err := os.WriteFile(path, buf, 0o644); err != nil {
		return fmt.Errorf("failed to write screenshot: %w", err)
	}
	d.logger.Info("Screenshot saved", zap.String("path", path), zap.Int("bytes", len(buf)))
	return nil
}

// Close shuts the browser down. It is safe to call more than once.
func (d *Driver) Close(ctx context.Context) error {
	var err error
	d.closeOnce.Do(func() {
		closeCtx, cancel := context.WithTimeout(ctx, closeTimeout)
		defer cancel()

		done := make(chan error, 1)
		go func() { done <- chromedp.Cancel(d.ctx) }()
		select {
		case err = <-done:
		case <-closeCtx.Done():
			err = closeCtx.Err()
		}

		d.cancel()
		d.allocCancel()
		if err != nil && !errors.Is(err, context.Canceled) {
			d.logger.Warn("Browser did not shut down cleanly", zap.Error(err))
		} else {
			err = nil
		}
	})
	return err
}
