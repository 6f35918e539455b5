// Package local saves exported archives to a directory on disk.
package local

import (
	"context"
	"fmt"
	"io"
	"path/filepath"

	"github.com/spf13/afero"
)

// Storage writes files below a base directory of an afero filesystem.
type Storage struct {
	fs      afero.Fs
	baseDir string
}

// NewStorage creates a Storage rooted at baseDir on the OS filesystem.
func NewStorage(baseDir string) *Storage {
	return NewStorageFs(afero.NewOsFs(), baseDir)
}

// NewStorageFs creates a Storage rooted at baseDir on fs.
func NewStorageFs(fs afero.Fs, baseDir string) *Storage {
	return &Storage{fs: fs, baseDir: baseDir}
}

// Save writes src to baseDir/subdir/filename and returns the written path.
func (s *Storage) Save(ctx context.Context, subdir, filename string, src io.Reader) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}

	dir := filepath.Join(s.baseDir, subdir)
	if err := s.fs.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("failed to create directory: %w", err)
	}

	dst := filepath.Join(dir, filepath.Base(filename))
	if err := afero.WriteReader(s.fs, dst, src); err != nil {
		return "", fmt.Errorf("failed to save file: %w", err)
	}

	return dst, nil
}
