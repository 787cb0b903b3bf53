package shopping

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	log "github.com/sirupsen/logrus"
)

// ErrNoArchiver is returned by the archive methods of a service built without WithArchiver.
var ErrNoArchiver = errors.New("archiving is not configured")

// maxAttempts bounds how many times a mutation is re-applied after losing a revision race.
const maxAttempts = 3

// ServiceOption configures a Service.
type ServiceOption func(*Service) error

// WithCategorizer sets the categorizer used for new items and for back-filling loaded ones.
func WithCategorizer(c *Categorizer) ServiceOption {
	return func(s *Service) error {
		s.categorizer = c
		return nil
	}
}

// WithArchiver enables Archive, Archives and ArchiveItems.
func WithArchiver(a *Archiver) ServiceOption {
	return func(s *Service) error {
		s.archiver = a
		return nil
	}
}

// WithLastWriterWins skips the revision check on save, which is how the very first versions of the list
// behaved. Only backends that can overwrite blindly support it.
func WithLastWriterWins() ServiceOption {
	return func(s *Service) error {
		if _, ok := s.backend.(overwriter); !ok {
			return fmt.Errorf("backend %T can not overwrite without a revision check", s.backend)
		}
		s.overwrite = true
		return nil
	}
}

// Service implements the list operations on top of a Backend. Every operation loads the list, so several
// services (or processes) may share a backend; the revision check on save keeps them from undoing each other's
// changes. Within one service, operations are serialised.
type Service struct {
	backend     Backend
	categorizer *Categorizer
	archiver    *Archiver
	overwrite   bool

	// Guards the load-mutate-save cycle.
	mu sync.Mutex
}

func NewService(backend Backend, opts ...ServiceOption) (*Service, error) {
	s := &Service{
		backend:     backend,
		categorizer: NewCategorizer(),
	}
	for _, opt := range opts {
		if err := opt(s); err != nil {
			return nil, err
		}
	}
	return s, nil
}

// Categorizer returns the categorizer in use.
func (s *Service) Categorizer() *Categorizer {
	return s.categorizer
}

// load returns the persisted list with missing attributes back-filled. It reports whether any record had to be
// given an identifier or was dropped, in which case the list should be written back so that identifiers stay
// stable across loads.
func (s *Service) load(ctx context.Context) (*List, Revision, bool, error) {
	items, rev, err := s.backend.Load(ctx)
	if err != nil {
		return nil, "", false, err
	}
	repaired := false
	kept := items[:0]
	for i, item := range items {
		if item.ID == "" {
			repaired = true
		}
		if !backfill(item, s.categorizer) {
			log.WithField("index", i).Warning("Dropping record without product name")
			repaired = true
			continue
		}
		kept = append(kept, item)
	}
	return NewList(kept), rev, repaired, nil
}

func (s *Service) save(ctx context.Context, l *List, rev Revision) error {
	var err error
	if s.overwrite {
		_, err = s.backend.(overwriter).Overwrite(ctx, l.items)
	} else {
		_, err = s.backend.Save(ctx, l.items, rev)
	}
	return err
}

// mutate runs the load-mutate-save cycle. If the save loses a race against another writer, the mutation is
// re-applied to the newer list. Mutations must therefore address items by identifier, never by position.
func (s *Service) mutate(ctx context.Context, op string, fn func(*List) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.mutateLocked(ctx, op, fn)
}

func (s *Service) mutateLocked(ctx context.Context, op string, fn func(*List) error) error {
	var err error
	for attempt := 1; attempt <= maxAttempts; attempt++ {
		var l *List
		var rev Revision
		l, rev, _, err = s.load(ctx)
		if err != nil {
			return fmt.Errorf("%s: %w", op, err)
		}
		if err = fn(l); err != nil {
			return fmt.Errorf("%s: %w", op, err)
		}
		err = s.save(ctx, l, rev)
		if err == nil {
			return nil
		}
		if !errors.Is(err, ErrConflict) {
			return fmt.Errorf("%s: %w", op, err)
		}
		log.WithFields(log.Fields{
			"op":      op,
			"attempt": attempt,
		}).Warning("List changed while saving, retrying")
	}
	return fmt.Errorf("%s: %w", op, err)
}

// List returns the persisted list.
func (s *Service) List(ctx context.Context) (*List, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	l, rev, repaired, err := s.load(ctx)
	if err != nil {
		return nil, fmt.Errorf("list: %w", err)
	}
	if repaired {
		if err := s.save(ctx, l, rev); err != nil {
			log.WithField("cause", err).Warning("Could not write back repaired list")
		}
	}
	return l, nil
}

// Items returns copies of the persisted items, in list order.
func (s *Service) Items(ctx context.Context) ([]*Item, error) {
	l, err := s.List(ctx)
	if err != nil {
		return nil, err
	}
	return l.Items(), nil
}

// Resolve maps an identifier prefix, as shown by the user interfaces, to a full identifier.
func (s *Service) Resolve(ctx context.Context, prefix string) (string, error) {
	items, err := s.Items(ctx)
	if err != nil {
		return "", err
	}
	id, err := ResolveID(items, prefix)
	if err != nil {
		return "", fmt.Errorf("resolve %q: %w", prefix, err)
	}
	return id, nil
}

// Add appends a new item built from the draft and returns it.
func (s *Service) Add(ctx context.Context, d Draft) (*Item, error) {
	name := strings.TrimSpace(d.Name)
	if name == "" {
		return nil, fmt.Errorf("add: %w", ErrEmptyName)
	}
	item := &Item{
		ID:        newID(),
		Name:      name,
		Quantity:  strings.TrimSpace(d.Quantity),
		Category:  strings.TrimSpace(d.Category),
		Store:     strings.TrimSpace(d.Store),
		OrderedBy: strings.TrimSpace(d.OrderedBy),
		Symbol:    strings.TrimSpace(d.Symbol),
		Added:     nowFunc().UTC().Truncate(time.Second),
	}
	backfill(item, s.categorizer)
	err := s.mutate(ctx, "add", func(l *List) error {
		l.add(item.clone())
		return nil
	})
	if err != nil {
		return nil, err
	}
	log.WithFields(log.Fields{
		"id":       item.ID,
		"name":     item.Name,
		"category": item.Category,
	}).Debug("Added item")
	return item, nil
}

// Toggle flips the completion flag of an item and returns the updated item.
func (s *Service) Toggle(ctx context.Context, id string) (*Item, error) {
	var updated *Item
	err := s.mutate(ctx, "toggle", func(l *List) error {
		item, ok := l.ItemByID(id)
		if !ok {
			return fmt.Errorf("%s: %w", id, ErrNotFound)
		}
		item.Done = !item.Done
		updated = item.clone()
		return nil
	})
	return updated, err
}

// Update applies a patch and returns the updated item. Renaming an item re-categorizes it unless the patch also
// sets a category.
func (s *Service) Update(ctx context.Context, patch *ItemPatch) (*Item, error) {
	var updated *Item
	err := s.mutate(ctx, "update", func(l *List) error {
		item, ok := l.ItemByID(patch.id)
		if !ok {
			return fmt.Errorf("%s: %w", patch.id, ErrNotFound)
		}
		patch.apply(item, s.categorizer)
		updated = item.clone()
		return nil
	})
	return updated, err
}

// Delete removes the item with the given identifier. Other items are untouched.
func (s *Service) Delete(ctx context.Context, id string) error {
	return s.mutate(ctx, "delete", func(l *List) error {
		if !l.remove(id) {
			return fmt.Errorf("%s: %w", id, ErrNotFound)
		}
		return nil
	})
}

// ClearDone removes all completed items and returns how many were removed.
func (s *Service) ClearDone(ctx context.Context) (int, error) {
	var n int
	err := s.mutate(ctx, "clear done", func(l *List) error {
		n = l.removeDone()
		return nil
	})
	return n, err
}

// Archive writes a snapshot of the current list and, if clear is set, removes the archived items from the list
// afterwards. If another writer gets in between, clearing is retried like any other mutation: items added or
// changed since the snapshot stay on the list, everything else that was archived goes. The snapshot is written
// once.
func (s *Service) Archive(ctx context.Context, clear bool) (ArchiveInfo, error) {
	if s.archiver == nil {
		return ArchiveInfo{}, fmt.Errorf("archive: %w", ErrNoArchiver)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	l, rev, repaired, err := s.load(ctx)
	if err != nil {
		return ArchiveInfo{}, fmt.Errorf("archive: %w", err)
	}
	// Identifiers handed out by the load must be persisted, or the clear below would not recognise the items.
	if repaired {
		if err := s.save(ctx, l, rev); err != nil {
			return ArchiveInfo{}, fmt.Errorf("archive: %w", err)
		}
	}
	info, err := s.archiver.Write(ctx, l.items, nowFunc())
	if err != nil {
		return ArchiveInfo{}, err
	}
	if !clear {
		return info, nil
	}
	archived := make(map[string]*Item, len(l.items))
	for _, item := range l.items {
		archived[item.ID] = item
	}
	err = s.mutateLocked(ctx, "archive: clear list", func(l *List) error {
		l.removeIf(func(item *Item) bool {
			old, ok := archived[item.ID]
			return ok && sameItem(old, item)
		})
		return nil
	})
	if err != nil {
		return info, fmt.Errorf("%w (the snapshot %s was kept)", err, info.Name())
	}
	return info, nil
}

// Archives lists the archived lists, oldest first.
func (s *Service) Archives(ctx context.Context) ([]ArchiveInfo, error) {
	if s.archiver == nil {
		return nil, fmt.Errorf("archives: %w", ErrNoArchiver)
	}
	return s.archiver.List(ctx)
}

// ArchiveItems returns the items of an archived list.
func (s *Service) ArchiveItems(ctx context.Context, key string) ([]*Item, error) {
	if s.archiver == nil {
		return nil, fmt.Errorf("archive items: %w", ErrNoArchiver)
	}
	return s.archiver.Read(ctx, key)
}
