package storage

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
)

// FileStorage reads objects from the local filesystem.
type FileStorage struct {
	maxBytes int64
}

// NewFileStorage creates a file storage. maxBytes of zero means unlimited.
func NewFileStorage(maxBytes int64) *FileStorage {
	return &FileStorage{maxBytes: maxBytes}
}

// Fetch implements ObjectStorage.
func (s *FileStorage) Fetch(ctx context.Context, location string) (*Object, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	file, err := os.Open(location)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("%w: %s", ErrObjectNotFound, location)
		}
		return nil, fmt.Errorf("failed to open %s: %w", location, err)
	}
	defer file.Close()

	data, err := readLimited(file, s.maxBytes)
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", location, err)
	}

	return &Object{Name: filepath.Base(location), Data: data}, nil
}
