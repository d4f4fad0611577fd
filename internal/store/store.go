package store

import (
	"encoding/csv"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/mitchellh/go-homedir"
	"go.uber.org/zap"

	"github.com/xkilldash9x/xpathfinder/api/schemas"
)

// ErrClosed is returned when recording into a store that was already closed.
var ErrClosed = errors.New("store: capture store is closed")

// header is the first row of every capture file.
var header = []string{"url", "html"}

// CaptureStore writes page captures as (url, html) rows to a CSV file.
// Opening a store truncates any previous file at the same path.
type CaptureStore struct {
	mu     sync.Mutex
	path   string
	file   *os.File
	writer *csv.Writer
	rows   int
	log    *zap.Logger
}

var _ schemas.CaptureSink = (*CaptureStore)(nil)

// New creates (or truncates) the CSV file at path and writes the header row.
// A leading ~ is expanded and missing parent directories are created.
func New(path string, logger *zap.Logger) (*CaptureStore, error) {
	expanded, err := homedir.Expand(path)
	if err != nil {
		return nil, fmt.Errorf("failed to expand capture path %q: %w", path, err)
	}
	if dir := filepath.Dir(expanded); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("failed to create capture directory: %w", err)
		}
	}

	file, err := os.Create(expanded)
	if err != nil {
		return nil, fmt.Errorf("failed to open capture file: %w", err)
	}

	s := &CaptureStore{
		path:   expanded,
		file:   file,
		writer: csv.NewWriter(file),
		log:    logger.Named("store"),
	}
	if err := s.writeRow(header); err != nil {
		_ = file.Close()
		return nil, err
	}
	return s, nil
}

// Path returns the resolved location of the capture file.
func (s *CaptureStore) Path() string {
	return s.path
}

// Rows returns how many captures have been recorded so far.
func (s *CaptureStore) Rows() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.rows
}

// Record appends a capture and flushes it to disk.
func (s *CaptureStore) Record(capture schemas.PageCapture) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.file == nil {
		return ErrClosed
	}
	if err := s.writeRow([]string{capture.URL, capture.HTML}); err != nil {
		return err
	}
	s.rows++
	s.log.Debug("Page captured",
		zap.String("url", capture.URL),
		zap.Int("html_bytes", len(capture.HTML)),
		zap.Int("rows", s.rows))
	return nil
}

// Close flushes pending rows and closes the file. Later calls are no-ops.
func (s *CaptureStore) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.file == nil {
		return nil
	}
	s.writer.Flush()
	flushErr := s.writer.Error()
	closeErr := s.file.Close()
	s.file = nil

	s.log.Info("Capture file written", zap.String("path", s.path), zap.Int("rows", s.rows))
	if flushErr != nil {
		return fmt.Errorf("failed to flush capture file: %w", flushErr)
	}
	if closeErr != nil {
		return fmt.Errorf("failed to close capture file: %w", closeErr)
	}
	return nil
}

func (s *CaptureStore) writeRow(row []string) error {
	if err := s.writer.Write(row); err != nil {
		return fmt.Errorf("failed to write capture row: %w", err)
	}
	s.writer.Flush()
	if err := s.writer.Error(); err != nil {
		return fmt.Errorf("failed to flush capture row: %w", err)
	}
	return nil
}
