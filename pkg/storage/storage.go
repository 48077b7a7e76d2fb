// Package storage reads container files from the local disk or from S3.
package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"path"
	"strings"
)

var (
	ErrObjectNotFound = errors.New("object not found")
	ErrObjectTooLarge = errors.New("object too large")
	ErrInvalidURL     = errors.New("invalid object url")
	ErrNoS3           = errors.New("s3 storage not configured")
)

// s3Scheme prefixes locations served by the S3 backend.
const s3Scheme = "s3://"

// Object is a fetched file.
type Object struct {
	// Name is the base name, used for the extension check.
	Name string
	Data []byte
}

// ObjectStorage fetches one object by location.
type ObjectStorage interface {
	Fetch(ctx context.Context, location string) (*Object, error)
}

// ObjectStorageFunc adapts a function to ObjectStorage.
type ObjectStorageFunc func(ctx context.Context, location string) (*Object, error)

// Fetch implements ObjectStorage.
func (f ObjectStorageFunc) Fetch(ctx context.Context, location string) (*Object, error) {
	return f(ctx, location)
}

// DefaultStorage dispatches s3:// locations to the S3 backend and everything
// else to the local filesystem.
type DefaultStorage struct {
	files ObjectStorage
	s3    ObjectStorage
}

// NewDefaultStorage creates a storage. s3 may be nil, in which case s3://
// locations fail with ErrNoS3. maxBytes of zero means unlimited.
func NewDefaultStorage(s3 ObjectStorage, maxBytes int64) *DefaultStorage {
	return &DefaultStorage{
		files: NewFileStorage(maxBytes),
		s3:    s3,
	}
}

// Fetch implements ObjectStorage.
func (s *DefaultStorage) Fetch(ctx context.Context, location string) (*Object, error) {
	if IsS3URL(location) {
		if s.s3 == nil {
			return nil, ErrNoS3
		}
		return s.s3.Fetch(ctx, location)
	}
	return s.files.Fetch(ctx, location)
}

// IsS3URL reports whether location names an S3 object.
func IsS3URL(location string) bool {
	return strings.HasPrefix(location, s3Scheme)
}

// ParseS3URL splits s3://bucket/key into bucket and key.
func ParseS3URL(location string) (bucket, key string, err error) {
	if !IsS3URL(location) {
		return "", "", fmt.Errorf("%w: %q", ErrInvalidURL, location)
	}
	bucket, key, ok := strings.Cut(strings.TrimPrefix(location, s3Scheme), "/")
	if !ok || bucket == "" || key == "" {
		return "", "", fmt.Errorf("%w: %q", ErrInvalidURL, location)
	}
	return bucket, key, nil
}

// readLimited reads r fully, failing once more than maxBytes are seen.
func readLimited(r io.Reader, maxBytes int64) ([]byte, error) {
	if maxBytes <= 0 {
		return io.ReadAll(r)
	}
	data, err := io.ReadAll(io.LimitReader(r, maxBytes+1))
	if err != nil {
		return nil, err
	}
	if int64(len(data)) > maxBytes {
		return nil, fmt.Errorf("%w: more than %d bytes", ErrObjectTooLarge, maxBytes)
	}
	return data, nil
}

func baseName(key string) string {
	return path.Base(key)
}
