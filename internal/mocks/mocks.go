// File: internal/mocks/mocks.go
package mocks

import (
	"context"
	"sync"
	"time"

	"github.com/stretchr/testify/mock"

	"github.com/xkilldash9x/xpathfinder/api/schemas"
)

// -- LLM Client Mock --

// MockLLMClient mocks the schemas.LLMClient interface.
type MockLLMClient struct {
	mock.Mock
}

// Generate provides a mock function for LLM calls.
// A canceled context short-circuits before the expectation is consulted.
func (m *MockLLMClient) Generate(ctx context.Context, req schemas.GenerationRequest) (string, error) {
	select {
	case <-ctx.Done():
		return "", ctx.Err()
	default:
	}
	args := m.Called(ctx, req)
	return args.String(0), args.Error(1)
}

func (m *MockLLMClient) Close() error {
	return m.Called().Error(0)
}

// -- Browser Driver Mock --

// MockBrowserDriver mocks the schemas.BrowserDriver interface.
type MockBrowserDriver struct {
	mock.Mock
}

func (m *MockBrowserDriver) Navigate(ctx context.Context, url string) error {
	return m.Called(ctx, url).Error(0)
}
func (m *MockBrowserDriver) CurrentURL(ctx context.Context) (string, error) {
	args := m.Called(ctx)
	return args.String(0), args.Error(1)
}
func (m *MockBrowserDriver) PageSource(ctx context.Context) (string, error) {
	args := m.Called(ctx)
	return args.String(0), args.Error(1)
}
func (m *MockBrowserDriver) ElementExists(ctx context.Context, locator string) (bool, error) {
	args := m.Called(ctx, locator)
	return args.Bool(0), args.Error(1)
}
func (m *MockBrowserDriver) SendKeys(ctx context.Context, locator, text string) error {
	return m.Called(ctx, locator, text).Error(0)
}
func (m *MockBrowserDriver) Click(ctx context.Context, locator string) error {
	return m.Called(ctx, locator).Error(0)
}
func (m *MockBrowserDriver) WaitPresent(ctx context.Context, locator string, timeout time.Duration) error {
	return m.Called(ctx, locator, timeout).Error(0)
}
func (m *MockBrowserDriver) ScrollTo(ctx context.Context, y int) error {
	return m.Called(ctx, y).Error(0)
}
func (m *MockBrowserDriver) Screenshot(ctx context.Context, path string) error {
	return m.Called(ctx, path).Error(0)
}
func (m *MockBrowserDriver) Close(ctx context.Context) error {
	return m.Called(ctx).Error(0)
}

// -- Capture Sink Fake --

// CaptureRecorder is an in-memory schemas.CaptureSink.
type CaptureRecorder struct {
	mu       sync.Mutex
	Captures []schemas.PageCapture
	Closed   bool
	// RecordErr, when set, is returned from every Record call.
	RecordErr error
}

func (r *CaptureRecorder) Record(capture schemas.PageCapture) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.RecordErr != nil {
		return r.RecordErr
	}
	r.Captures = append(r.Captures, capture)
	return nil
}

func (r *CaptureRecorder) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.Closed = true
	return nil
}

// Snapshot returns a copy of the recorded captures.
func (r *CaptureRecorder) Snapshot() []schemas.PageCapture {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]schemas.PageCapture(nil), r.Captures...)
}

var (
	_ schemas.LLMClient     = (*MockLLMClient)(nil)
	_ schemas.BrowserDriver = (*MockBrowserDriver)(nil)
	_ schemas.CaptureSink   = (*CaptureRecorder)(nil)
)
