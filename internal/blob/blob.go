// Package blob stores evidence files by key.
package blob

import (
	"context"
	"errors"
	"io"
	"path"
	"strings"
)

// ErrNotFound is returned when no blob exists under a key.
var ErrNotFound = errors.New("blob not found")

// ErrInvalidKey is returned for empty keys or keys escaping the namespace.
var ErrInvalidKey = errors.New("invalid blob key")

// Info describes a stored blob.
type Info struct {
	Key         string
	Size        int64
	ContentType string
}

// Store is the object store backing evidence files.
type Store interface {
	Put(ctx context.Context, key string, r io.Reader, contentType string) (Info, error)
	Open(ctx context.Context, key string) (io.ReadCloser, Info, error)
	Delete(ctx context.Context, key string) error
}

// CleanKey validates a slash-separated key and returns its canonical form.
func CleanKey(key string) (string, error) {
	key = strings.TrimSpace(key)
	if key == "" || strings.Contains(key, "\\") {
		return "", ErrInvalidKey
	}
	cleaned := path.Clean("/" + key)[1:]
	if cleaned == "" || cleaned != strings.TrimPrefix(key, "/") {
		return "", ErrInvalidKey
	}
	return cleaned, nil
}
