package blob

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
)

// FS implements Store on the local filesystem. Keys map to relative file paths under the root.
type FS struct {
	root string
}

// NewFS returns a filesystem-backed store rooted at root, creating it if needed.
func NewFS(root string) (*FS, error) {
	if root == "" {
		root = "archiv"
	}
	if err := os.MkdirAll(root, 0755); err != nil {
		return nil, err
	}
	return &FS{root: root}, nil
}

func (s *FS) Driver() Driver { return DriverFilesystem }

// Root returns the directory blobs are stored under.
func (s *FS) Root() string { return s.root }

func (s *FS) pathFor(key string) (string, error) {
	k, err := sanitizeKey(key)
	if err != nil {
		return "", err
	}
	return filepath.Join(s.root, filepath.FromSlash(k)), nil
}

// Put implements Store. The file is created exclusively, so an existing blob is never replaced.
func (s *FS) Put(ctx context.Context, key string, r io.Reader, contentType string) (Info, error) {
	path, err := s.pathFor(key)
	if err != nil {
		return Info{}, err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return Info{}, err
	}
	f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0644)
	if errors.Is(err, os.ErrExist) {
		return Info{}, fmt.Errorf("put %s: %w", key, ErrExists)
	}
	if err != nil {
		return Info{}, err
	}
	n, err := io.Copy(f, r)
	if cerr := f.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		_ = os.Remove(path)
		return Info{}, fmt.Errorf("put %s: %w", key, err)
	}
	fi, err := os.Stat(path)
	if err != nil {
		return Info{}, err
	}
	if contentType == "" {
		contentType = contentTypeOf(key)
	}
	return Info{Key: key, Size: n, ContentType: contentType, LastModified: fi.ModTime().UTC()}, nil
}

// Get implements Store.
func (s *FS) Get(ctx context.Context, key string) (io.ReadCloser, error) {
	path, err := s.pathFor(key)
	if err != nil {
		return nil, err
	}
	f, err := os.Open(path)
	if errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("get %s: %w", key, ErrNotFound)
	}
	return f, err
}

// List implements Store.
func (s *FS) List(ctx context.Context, prefix string) ([]Info, error) {
	var infos []Info
	err := filepath.WalkDir(s.root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return nil
		}
		rel, err := filepath.Rel(s.root, path)
		if err != nil {
			return err
		}
		key := filepath.ToSlash(rel)
		if !strings.HasPrefix(key, prefix) {
			return nil
		}
		fi, err := d.Info()
		if err != nil {
			return err
		}
		infos = append(infos, Info{
			Key:          key,
			Size:         fi.Size(),
			ContentType:  contentTypeOf(key),
			LastModified: fi.ModTime().UTC(),
		})
		return nil
	})
	if err != nil {
		return nil, err
	}
	sort.Slice(infos, func(i, j int) bool { return infos[i].Key < infos[j].Key })
	return infos, nil
}
