package blob

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"sort"
	"strings"
	"sync"
	"time"
)

type memObj struct {
	data        []byte
	contentType string
	modified    time.Time
}

// Memory implements Store in memory, for tests.
type Memory struct {
	mu   sync.Mutex
	objs map[string]memObj
}

func NewMemory() *Memory {
	return &Memory{objs: make(map[string]memObj)}
}

func (m *Memory) Driver() Driver { return DriverMemory }

// Put implements Store.
func (m *Memory) Put(ctx context.Context, key string, r io.Reader, contentType string) (Info, error) {
	k, err := sanitizeKey(key)
	if err != nil {
		return Info{}, err
	}
	data, err := io.ReadAll(r)
	if err != nil {
		return Info{}, err
	}
	if contentType == "" {
		contentType = contentTypeOf(k)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.objs[k]; ok {
		return Info{}, fmt.Errorf("put %s: %w", key, ErrExists)
	}
	obj := memObj{data: data, contentType: contentType, modified: time.Now().UTC()}
	m.objs[k] = obj
	return Info{Key: k, Size: int64(len(data)), ContentType: contentType, LastModified: obj.modified}, nil
}

// Get implements Store.
func (m *Memory) Get(ctx context.Context, key string) (io.ReadCloser, error) {
	k, err := sanitizeKey(key)
	if err != nil {
		return nil, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	obj, ok := m.objs[k]
	if !ok {
		return nil, fmt.Errorf("get %s: %w", key, ErrNotFound)
	}
	return io.NopCloser(bytes.NewReader(obj.data)), nil
}

// List implements Store.
func (m *Memory) List(ctx context.Context, prefix string) ([]Info, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var infos []Info
	for k, obj := range m.objs {
		if strings.HasPrefix(k, prefix) {
			infos = append(infos, Info{Key: k, Size: int64(len(obj.data)), ContentType: obj.contentType, LastModified: obj.modified})
		}
	}
	sort.Slice(infos, func(i, j int) bool { return infos[i].Key < infos[j].Key })
	return infos, nil
}
