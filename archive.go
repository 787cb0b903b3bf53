package shopping

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"path"
	"sort"
	"strings"
	"time"

	"github.com/nicolagi/shopping/blob"
	log "github.com/sirupsen/logrus"
)

const (
	archiveBaseName   = "einkaufsliste_"
	archiveTimeLayout = "2006-01-02_15-04-05"
	maxArchiveClashes = 100
)

// ArchiveInfo describes an archived list.
type ArchiveInfo struct {
	Key     string    `json:"key"`
	Created time.Time `json:"created"`
	Size    int64     `json:"size_bytes"`
}

// Name returns the last element of the key, which is what the user interfaces display.
func (a ArchiveInfo) Name() string {
	return path.Base(a.Key)
}

// Archiver writes snapshots of the list into a blob store. Snapshots are never overwritten: taking two in the
// same second yields a "-2" suffix on the second.
type Archiver struct {
	store  blob.Store
	prefix string
}

// NewArchiver returns an archiver writing under prefix (e.g., "archiv"), which may be empty.
func NewArchiver(store blob.Store, prefix string) *Archiver {
	return &Archiver{store: store, prefix: strings.Trim(prefix, "/")}
}

func (a *Archiver) key(t time.Time, attempt int) string {
	name := archiveBaseName + t.Format(archiveTimeLayout)
	if attempt > 1 {
		name = fmt.Sprintf("%s-%d", name, attempt)
	}
	name += ".json"
	if a.prefix == "" {
		return name
	}
	return a.prefix + "/" + name
}

// Write stores a snapshot of items taken at time t.
func (a *Archiver) Write(ctx context.Context, items []*Item, t time.Time) (ArchiveInfo, error) {
	data, err := encodeItems(items)
	if err != nil {
		return ArchiveInfo{}, fmt.Errorf("archive: %w", err)
	}
	for attempt := 1; attempt <= maxArchiveClashes; attempt++ {
		key := a.key(t, attempt)
		info, err := a.store.Put(ctx, key, bytes.NewReader(data), "application/json")
		if errors.Is(err, blob.ErrExists) {
			continue
		}
		if err != nil {
			return ArchiveInfo{}, fmt.Errorf("archive %s: %w", key, err)
		}
		log.WithFields(log.Fields{
			"key":    key,
			"items":  len(items),
			"driver": a.store.Driver(),
		}).Info("Archived list")
		return ArchiveInfo{Key: info.Key, Created: t, Size: info.Size}, nil
	}
	return ArchiveInfo{}, fmt.Errorf("archive: too many snapshots at %s: %w", t.Format(archiveTimeLayout), blob.ErrExists)
}

// List returns the archived lists, oldest first.
func (a *Archiver) List(ctx context.Context) ([]ArchiveInfo, error) {
	prefix := archiveBaseName
	if a.prefix != "" {
		prefix = a.prefix + "/" + archiveBaseName
	}
	infos, err := a.store.List(ctx, prefix)
	if err != nil {
		return nil, fmt.Errorf("list archives: %w", err)
	}
	archives := make([]ArchiveInfo, 0, len(infos))
	for _, info := range infos {
		archives = append(archives, ArchiveInfo{
			Key:     info.Key,
			Created: parseArchiveTime(info.Key, info.LastModified),
			Size:    info.Size,
		})
	}
	// Keys sort "-2.json" before ".json"; order by time, then by suffix length.
	sort.SliceStable(archives, func(i, j int) bool {
		a, b := archives[i], archives[j]
		if !a.Created.Equal(b.Created) {
			return a.Created.Before(b.Created)
		}
		if len(a.Key) != len(b.Key) {
			return len(a.Key) < len(b.Key)
		}
		return a.Key < b.Key
	})
	return archives, nil
}

// Read returns the items of an archived list. Keys may be given without the prefix.
func (a *Archiver) Read(ctx context.Context, key string) ([]*Item, error) {
	if a.prefix != "" && !strings.HasPrefix(key, a.prefix+"/") {
		key = a.prefix + "/" + key
	}
	rc, err := a.store.Get(ctx, key)
	if err != nil {
		return nil, err
	}
	defer func() {
		if err := rc.Close(); err != nil {
			log.WithFields(log.Fields{
				"op":    "read archive",
				"cause": err,
			}).Warning("Could not close archive")
		}
	}()
	data, err := io.ReadAll(rc)
	if err != nil {
		return nil, fmt.Errorf("read archive %s: %w", key, err)
	}
	items, err := decodeItems(data)
	if err != nil {
		return nil, fmt.Errorf("read archive %s: %w", key, err)
	}
	return items, nil
}

// parseArchiveTime recovers the snapshot time from the key, falling back to the blob's modification time.
func parseArchiveTime(key string, fallback time.Time) time.Time {
	name := strings.TrimSuffix(path.Base(key), ".json")
	name = strings.TrimPrefix(name, archiveBaseName)
	if len(name) >= len(archiveTimeLayout) {
		if t, err := time.ParseInLocation(archiveTimeLayout, name[:len(archiveTimeLayout)], time.Local); err == nil {
			return t
		}
	}
	return fallback
}
