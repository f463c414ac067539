package storage

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/google/uuid"
)

// LocalStorage persists raw content under a single root directory, one file
// per artifact, named by a generated unique identifier. Derived thumbnails
// live alongside the source with a _<width> suffix.
type LocalStorage struct {
	basePath string
}

func NewLocalStorage(basePath string) (*LocalStorage, error) {
	if err := os.MkdirAll(basePath, os.ModePerm); err != nil {
		return nil, err
	}
	return &LocalStorage{basePath: basePath}, nil
}

func (ls *LocalStorage) BasePath() string {
	return ls.basePath
}

// Save writes data to a fresh path and returns it. Paths are never reused,
// so existing content is never overwritten.
func (ls *LocalStorage) Save(data []byte) (string, error) {
	path := filepath.Join(ls.basePath, uuid.New().String())

	if err := os.WriteFile(path, data, 0o644); err != nil {
		return "", fmt.Errorf("failed to write content: %w", err)
	}

	return path, nil
}

// Read returns the bytes stored at path. A missing artifact is reported via
// os.IsNotExist-compatible error.
func (ls *LocalStorage) Read(path string) ([]byte, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("content at %s not found: %w", path, err)
		}
		return nil, err
	}
	return data, nil
}

// Remove deletes the artifact at path. Removing an absent artifact is a
// no-op.
func (ls *LocalStorage) Remove(path string) error {
	if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("failed to remove content: %w", err)
	}
	return nil
}

// ThumbnailPath is the on-disk location of the derived image of the given
// width for the artifact at path.
func ThumbnailPath(path string, width int) string {
	return fmt.Sprintf("%s_%d", path, width)
}
