// Package storage holds raw uploaded video files until every platform has
// received them. Files are addressed by an opaque reference returned from
// Write.
package storage

import (
	"context"
	"fmt"
	"io"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
	"github.com/therealutkarshpriyadarshi/multiuploader/internal/config"
	"github.com/therealutkarshpriyadarshi/multiuploader/internal/logging"
)

// FileStore holds raw uploaded video files addressed by reference
type FileStore interface {
	// Write stores the content under name and returns its reference
	Write(ctx context.Context, name string, reader io.Reader, size int64) (string, error)
	// Open returns the content and its size
	Open(ctx context.Context, ref string) (io.ReadCloser, int64, error)
	Exists(ctx context.Context, ref string) (bool, error)
	Delete(ctx context.Context, ref string) error
}

var (
	_ FileStore = (*ObjectStore)(nil)
	_ FileStore = (*LocalStore)(nil)
)

// NewFileStore builds the store selected by cfg.Driver: "minio" (default) or "local"
func NewFileStore(cfg config.StorageConfig, logger *logging.Logger) (FileStore, error) {
	switch cfg.Driver {
	case "local":
		return NewLocalStore(cfg.LocalDir, logger)
	case "minio", "":
		return NewObjectStore(cfg, logger)
	default:
		return nil, fmt.Errorf("unknown storage driver %q", cfg.Driver)
	}
}

// GenerateName returns a collision-free object name keeping the original extension
func GenerateName(originalName string) string {
	return uuid.NewString() + strings.ToLower(filepath.Ext(originalName))
}

var videoContentTypes = map[string]string{
	".mp4":  "video/mp4",
	".mov":  "video/quicktime",
	".avi":  "video/x-msvideo",
	".webm": "video/webm",
}

// contentType maps a file name to the MIME type stored with the object
func contentType(name string) string {
	if ct, ok := videoContentTypes[strings.ToLower(filepath.Ext(name))]; ok {
		return ct
	}
	return "application/octet-stream"
}
