// File: internal/orchestrator/orchestrator.go
// Description: Drives one task through the browser. Every element the flow touches
// is located by asking the locator resolver about the page source at that moment.

package orchestrator

import (
	"context"
	"fmt"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/xkilldash9x/xpathfinder/api/schemas"
	"github.com/xkilldash9x/xpathfinder/internal/config"
	"github.com/xkilldash9x/xpathfinder/internal/locator"
)

// Resolver finds a locator for a target in a captured document.
type Resolver interface {
	ResolveDocument(ctx context.Context, doc string, target locator.Target) (*locator.Result, error)
}

// StepReport records the resolution behind one browser interaction.
type StepReport struct {
	Name   string          `json:"name"`
	Target string          `json:"target"`
	Result *locator.Result `json:"result,omitempty"`
}

// RunReport summarizes a run. It is returned even when the run fails.
type RunReport struct {
	RunID      string       `json:"run_id"`
	URL        string       `json:"url"`
	Steps      []StepReport `json:"steps"`
	Captures   int          `json:"captures"`
	Screenshot string       `json:"screenshot,omitempty"`
	StartedAt  time.Time    `json:"started_at"`
	FinishedAt time.Time    `json:"finished_at"`
}

// Orchestrator runs tasks against a browser.
type Orchestrator struct {
	cfg      *config.Config
	logger   *zap.Logger
	driver   schemas.BrowserDriver
	resolver Resolver
	sink     schemas.CaptureSink
}

// New creates an Orchestrator. sink may be nil, in which case pages are not recorded.
func New(
	cfg *config.Config,
	logger *zap.Logger,
	driver schemas.BrowserDriver,
	resolver Resolver,
	sink schemas.CaptureSink,
) (*Orchestrator, error) {
	if cfg == nil ||
		logger == nil ||
		driver == nil ||
		resolver == nil {
		return nil, fmt.Errorf("cannot initialize orchestrator with nil dependencies")
	}
	return &Orchestrator{
		cfg:      cfg,
		logger:   logger.Named("orchestrator"),
		driver:   driver,
		resolver: resolver,
		sink:     sink,
	}, nil
}

// run carries the per-run state through the steps.
type run struct {
	*Orchestrator
	logger *zap.Logger
	report *RunReport
}

// Run executes task. A target that cannot be located aborts the run with an
// error wrapping locator.ErrNotFound; the report keeps every resolution made.
func (o *Orchestrator) Run(ctx context.Context, task *Task) (*RunReport, error) {
	if err := task.Validate(); err != nil {
		return nil, err
	}

	report := &RunReport{
		RunID:     uuid.NewString(),
		URL:       task.URL,
		StartedAt: time.Now(),
	}
	r := &run{
		Orchestrator: o,
		logger:       o.logger.With(zap.String("run_id", report.RunID)),
		report:       report,
	}
	defer func() { report.FinishedAt = time.Now() }()

	r.logger.Info("Run starting", zap.String("url", task.URL), zap.Int("clicks", len(task.Clicks)))

	// 1. Open the page and record it.
	if err := o.driver.Navigate(ctx, task.URL); err != nil {
		return report, err
	}
	source, err := r.capture(ctx)
	if err != nil {
		return report, err
	}

	// 2. Fill the input.
	input, err := r.locate(ctx, "input", source, task.Input)
	if err != nil {
		return report, err
	}
	text := task.Input.Value
	if task.Submit {
		text += schemas.KeyEnter
	}
	if err := o.driver.SendKeys(ctx, input, text); err != nil {
		return report, err
	}

	// 3. Follow the click targets in order, each against a fresh capture.
	for i, description := range task.Clicks {
		source, err := r.capture(ctx)
		if err != nil {
			return report, err
		}
		name := fmt.Sprintf("click-%d", i+1)
		target, err := r.locate(ctx, name, source, locator.Target{Description: description})
		if err != nil {
			return report, err
		}
		if err := o.driver.Click(ctx, target); err != nil {
			return report, err
		}
	}

	// 4. Record where the flow ended up and take the screenshot.
	if _, err := r.capture(ctx); err != nil {
		return report, err
	}
	if task.Screenshot != nil {
		if err := r.screenshot(ctx, task.Screenshot); err != nil {
			return report, err
		}
	}

	r.logger.Info("Run finished", zap.Int("steps", len(report.Steps)), zap.Int("captures", report.Captures))
	return report, nil
}

// capture reads the current page and hands it to the sink.
func (r *run) capture(ctx context.Context) (string, error) {
	source, err := r.driver.PageSource(ctx)
	if err != nil {
		return "", err
	}
	url, err := r.driver.CurrentURL(ctx)
	if err != nil {
		return "", err
	}

	if r.sink != nil {
		capture := schemas.PageCapture{URL: url, HTML: source, CapturedAt: time.Now()}
		if err := r.sink.Record(capture); err != nil {
			return "", fmt.Errorf("failed to record capture of %s: %w", url, err)
		}
	}
	r.report.Captures++
	return source, nil
}

// locate resolves target in source and waits for the element to be present.
func (r *run) locate(ctx context.Context, name, source string, target locator.Target) (string, error) {
	result, err := r.resolver.ResolveDocument(ctx, source, target)
	r.report.Steps = append(r.report.Steps, StepReport{Name: name, Target: target.Description, Result: result})
	if err != nil {
		return "", fmt.Errorf("step %s (%q): %w", name, target.Description, err)
	}

	r.logger.Info("Target located",
		zap.String("step", name),
		zap.String("locator", result.Locator),
		zap.Int("segment", result.SegmentIndex))

	if err := r.driver.WaitPresent(ctx, result.Locator, r.cfg.Browser.WaitTimeout); err != nil {
		return "", fmt.Errorf("step %s: %w", name, err)
	}
	return result.Locator, nil
}

func (r *run) screenshot(ctx context.Context, step *ScreenshotStep) error {
	path := step.Path
	if !filepath.IsAbs(path) && r.cfg.Output.ScreenshotDir != "" {
		path = filepath.Join(r.cfg.Output.ScreenshotDir, path)
	}
	if step.ScrollY != 0 {
		if err := r.driver.ScrollTo(ctx, step.ScrollY); err != nil {
			return err
		}
	}
	if err := r.driver.Screenshot(ctx, path); err != nil {
		return err
	}
	r.report.Screenshot = path
	return nil
}
