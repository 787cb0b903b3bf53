package shopping

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"os"
	"path/filepath"
)

// FileBackend keeps the list in one JSON file, an array of item records. The revision of the file is the
// SHA-256 of its contents, so an edit by any other program (or a hand edit) is noticed.
type FileBackend struct {
	path string
}

func NewFileBackend(path string) *FileBackend {
	return &FileBackend{path: path}
}

// Path returns the pathname of the list file.
func (b *FileBackend) Path() string {
	return b.path
}

// Load implements Backend.
func (b *FileBackend) Load(ctx context.Context) ([]*Item, Revision, error) {
	data, rev, err := b.read()
	if err != nil {
		return nil, "", err
	}
	if rev == "" {
		return nil, "", nil
	}
	return loadOrEmpty(data, b.path), rev, nil
}

// Save implements Backend. The check and the rename are not atomic with respect to other processes; the window
// is the time it takes to write a few kilobytes.
func (b *FileBackend) Save(ctx context.Context, items []*Item, expected Revision) (Revision, error) {
	_, current, err := b.read()
	if err != nil {
		return "", err
	}
	if current != expected {
		return "", fmt.Errorf("save %s: %w", b.path, ErrConflict)
	}
	return b.Overwrite(ctx, items)
}

// Overwrite writes the list without checking the revision (last writer wins).
func (b *FileBackend) Overwrite(ctx context.Context, items []*Item) (Revision, error) {
	data, err := encodeItems(items)
	if err != nil {
		return "", fmt.Errorf("save %s: %w", b.path, err)
	}
	if dir := filepath.Dir(b.path); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return "", fmt.Errorf("save %s: %w", b.path, err)
		}
	}
	tmp := b.path + ".tmp"
	if err := os.WriteFile(tmp, data, 0644); err != nil {
		return "", fmt.Errorf("save %s: %w", b.path, err)
	}
	if err := os.Rename(tmp, b.path); err != nil {
		return "", fmt.Errorf("save %s: %w", b.path, err)
	}
	return checksum(data), nil
}

// read returns the file contents and their revision. An absent file has the empty revision.
func (b *FileBackend) read() ([]byte, Revision, error) {
	data, err := os.ReadFile(b.path)
	if errors.Is(err, os.ErrNotExist) {
		return nil, "", nil
	}
	if err != nil {
		return nil, "", fmt.Errorf("load %s: %w", b.path, err)
	}
	return data, checksum(data), nil
}

func checksum(data []byte) Revision {
	sum := sha256.Sum256(data)
	return Revision(hex.EncodeToString(sum[:]))
}
