package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/therealutkarshpriyadarshi/multiuploader/internal/logging"
)

// LocalStore keeps files in a directory on local disk
type LocalStore struct {
	dir    string
	logger *logging.Logger
}

// NewLocalStore creates the directory if needed
func NewLocalStore(dir string, logger *logging.Logger) (*LocalStore, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create storage directory: %w", err)
	}
	return &LocalStore{dir: dir, logger: logging.OrNop(logger)}, nil
}

// path resolves a reference inside the store directory
func (s *LocalStore) path(ref string) (string, error) {
	name := filepath.Base(ref)
	if name == "." || name == string(filepath.Separator) || name != ref {
		return "", fmt.Errorf("invalid file reference %q", ref)
	}
	return filepath.Join(s.dir, name), nil
}

// Write stores the content under name
func (s *LocalStore) Write(ctx context.Context, name string, reader io.Reader, size int64) (string, error) {
	start := time.Now()

	path, err := s.path(name)
	if err != nil {
		return "", err
	}

	file, err := os.OpenFile(path, os.O_CREATE|os.O_EXCL|os.O_WRONLY, 0644)
	if err != nil {
		return "", fmt.Errorf("failed to create file: %w", err)
	}

	written, err := io.Copy(file, reader)
	if closeErr := file.Close(); err == nil {
		err = closeErr
	}
	s.logger.LogStorageOperation("write", s.dir, name, written, time.Since(start), err)
	if err != nil {
		os.Remove(path)
		return "", fmt.Errorf("failed to write file: %w", err)
	}

	return name, nil
}

// Open returns the stored file
func (s *LocalStore) Open(ctx context.Context, ref string) (io.ReadCloser, int64, error) {
	path, err := s.path(ref)
	if err != nil {
		return nil, 0, err
	}

	file, err := os.Open(path)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to open file: %w", err)
	}

	info, err := file.Stat()
	if err != nil {
		file.Close()
		return nil, 0, fmt.Errorf("failed to stat file: %w", err)
	}

	return file, info.Size(), nil
}

// Exists reports whether the file is present
func (s *LocalStore) Exists(ctx context.Context, ref string) (bool, error) {
	path, err := s.path(ref)
	if err != nil {
		return false, err
	}

	_, err = os.Stat(path)
	if err == nil {
		return true, nil
	}
	if errors.Is(err, os.ErrNotExist) {
		return false, nil
	}
	return false, fmt.Errorf("failed to stat file: %w", err)
}

// Delete removes the file
func (s *LocalStore) Delete(ctx context.Context, ref string) error {
	start := time.Now()

	path, err := s.path(ref)
	if err != nil {
		return err
	}

	err = os.Remove(path)
	s.logger.LogStorageOperation("delete", s.dir, ref, 0, time.Since(start), err)
	if err != nil {
		return fmt.Errorf("failed to delete file: %w", err)
	}
	return nil
}
