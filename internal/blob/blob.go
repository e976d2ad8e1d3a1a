// Package blob stores export artifacts. Implementations write to the
// local filesystem or to Google Cloud Storage.
package blob

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
)

// Store writes one named artifact and returns its URI.
type Store interface {
	Put(ctx context.Context, name, contentType string, data []byte) (uri string, err error)
}

// Local writes artifacts under a directory on disk.
type Local struct {
	Dir string
}

// NewLocal builds a Local rooted at dir.
func NewLocal(dir string) (*Local, error) {
	if dir == "" {
		return nil, fmt.Errorf("export directory is required")
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create export directory: %w", err)
	}
	return &Local{Dir: dir}, nil
}

// Put implements Store. The returned URI is the absolute file path.
func (l *Local) Put(_ context.Context, name, _ string, data []byte) (string, error) {
	path := filepath.Join(l.Dir, filepath.Base(name))
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return "", fmt.Errorf("write artifact: %w", err)
	}
	abs, err := filepath.Abs(path)
	if err != nil {
		return path, nil
	}
	return abs, nil
}
