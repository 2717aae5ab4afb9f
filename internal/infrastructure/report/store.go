// Package report stores generated review artifacts such as the action
// matrix workbook on the local filesystem.
package report

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"go.uber.org/zap"

	"github.com/garyjia/forcing-workflow/internal/application/port"
)

var _ port.ReportStore = (*Store)(nil)

// Store writes reports under a base directory
type Store struct {
	baseDir string
	logger  *zap.Logger
}

// NewStore creates a store rooted at baseDir
func NewStore(baseDir string, logger *zap.Logger) *Store {
	return &Store{
		baseDir: baseDir,
		logger:  logger,
	}
}

// Save writes content to name atomically and returns the full path.
// A reader never observes a partially written report.
func (s *Store) Save(ctx context.Context, name string, content []byte) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}

	fullPath := s.Path(name)
	if err := s.validatePath(fullPath); err != nil {
		return "", err
	}

	dir := filepath.Dir(fullPath)
	if err := os.MkdirAll(dir, 0755); err != nil {
		s.logger.Error("Failed to create report directory",
			zap.String("path", dir),
			zap.Error(err))
		return "", fmt.Errorf("failed to create directories: %w", err)
	}

	tmp, err := os.CreateTemp(dir, "."+filepath.Base(fullPath)+".*")
	if err != nil {
		return "", fmt.Errorf("failed to create temp file: %w", err)
	}
	tmpName := tmp.Name()

	if _, err := tmp.Write(content); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmpName)
		return "", fmt.Errorf("failed to write report: %w", err)
	}
	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmpName)
		return "", fmt.Errorf("failed to close report: %w", err)
	}
	if err := os.Rename(tmpName, fullPath); err != nil {
		_ = os.Remove(tmpName)
		s.logger.Error("Failed to move report into place",
			zap.String("path", fullPath),
			zap.Error(err))
		return "", fmt.Errorf("failed to save report: %w", err)
	}

	s.logger.Debug("Report saved",
		zap.String("path", fullPath),
		zap.Int("size", len(content)))

	return fullPath, nil
}

// Read returns a previously saved report
func (s *Store) Read(ctx context.Context, name string) ([]byte, error) {
	fullPath := s.Path(name)
	if err := s.validatePath(fullPath); err != nil {
		return nil, err
	}

	content, err := os.ReadFile(fullPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read report: %w", err)
	}
	return content, nil
}

// Path converts a report name to its full path
func (s *Store) Path(name string) string {
	return filepath.Join(s.baseDir, name)
}

// validatePath checks that the path stays within baseDir
func (s *Store) validatePath(fullPath string) error {
	absPath, err := filepath.Abs(fullPath)
	if err != nil {
		return fmt.Errorf("failed to resolve path: %w", err)
	}

	absBase, err := filepath.Abs(s.baseDir)
	if err != nil {
		return fmt.Errorf("failed to resolve base path: %w", err)
	}

	if !strings.HasPrefix(absPath, absBase+string(filepath.Separator)) {
		return fmt.Errorf("path escapes base directory: %s", fullPath)
	}

	return nil
}
