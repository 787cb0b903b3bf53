// Package blob defines the write-once object stores that archived shopping lists are kept in, and the local
// filesystem and in-memory implementations. The S3 implementation lives in the s3 subpackage.
package blob

import (
	"context"
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"strings"
	"time"
)

// Driver identifies a concrete blob storage backend implementation.
type Driver string

const (
	DriverFilesystem Driver = "fs"     // local filesystem (default)
	DriverS3         Driver = "s3"     // S3 / MinIO compatible
	DriverMemory     Driver = "memory" // in-memory (tests)
)

var (
	// ErrExists is returned by Put when the key is taken. Blobs are never overwritten.
	ErrExists = errors.New("blob already exists")

	// ErrNotFound is returned by Get for unknown keys.
	ErrNotFound = errors.New("blob not found")
)

// Info describes a stored blob.
type Info struct {
	Key          string    `json:"key"`
	Size         int64     `json:"size_bytes"`
	ContentType  string    `json:"content_type,omitempty"`
	LastModified time.Time `json:"last_modified"`
}

// Store is a flat, create-only key space.
type Store interface {
	Put(ctx context.Context, key string, r io.Reader, contentType string) (Info, error)
	Get(ctx context.Context, key string) (io.ReadCloser, error)
	// List returns the blobs whose key starts with prefix, sorted by key.
	List(ctx context.Context, prefix string) ([]Info, error)
	Driver() Driver
}

// sanitizeKey ensures key doesn't escape the store root: no traversal and no absolute paths.
func sanitizeKey(key string) (string, error) {
	if strings.TrimSpace(key) == "" {
		return "", fmt.Errorf("empty key")
	}
	if strings.Contains(key, "..") {
		return "", fmt.Errorf("invalid key %q: contains '..'", key)
	}
	if strings.HasPrefix(key, "/") {
		return "", fmt.Errorf("invalid key %q: absolute", key)
	}
	return filepath.ToSlash(filepath.Clean(key)), nil
}

// contentTypeOf guesses the content type from the key extension, for stores that keep no metadata.
func contentTypeOf(key string) string {
	switch strings.ToLower(filepath.Ext(key)) {
	case ".json":
		return "application/json"
	case ".md":
		return "text/markdown"
	case ".pdf":
		return "application/pdf"
	default:
		return "application/octet-stream"
	}
}
