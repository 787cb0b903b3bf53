package shopping_test

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/nicolagi/shopping"
	"github.com/nicolagi/shopping/blob"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestService(t *testing.T, opts ...func(*shopping.FileBackend) shopping.Backend) (*shopping.Service, *shopping.FileBackend) {
	t.Helper()
	fb := shopping.NewFileBackend(filepath.Join(t.TempDir(), "einkaufsliste.json"))
	var b shopping.Backend = fb
	for _, opt := range opts {
		b = opt(fb)
	}
	s, err := shopping.NewService(b, shopping.WithArchiver(shopping.NewArchiver(blob.NewMemory(), "archiv")))
	require.Nil(t, err)
	return s, fb
}

func TestServiceAdd(t *testing.T) {
	ctx := context.Background()
	s, _ := newTestService(t)
	testCases := []struct {
		draft    shopping.Draft
		category string
		quantity string
		store    string
	}{
		{draft: shopping.Draft{Name: "Apfel"}, category: "Obst", quantity: "1", store: "Sonstiges"},
		{draft: shopping.Draft{Name: "Quantenkartoffel", Quantity: "3 kg", Store: "Rewe"}, category: "other", quantity: "3 kg", store: "Rewe"},
		{draft: shopping.Draft{Name: "Apfel", Category: "Saisonal"}, category: "Saisonal", quantity: "1", store: "Sonstiges"},
	}
	for _, tc := range testCases {
		t.Run(tc.draft.Name, func(t *testing.T) {
			item, err := s.Add(ctx, tc.draft)
			require.Nil(t, err)
			assert.NotEmpty(t, item.ID)
			assert.Equal(t, tc.category, item.Category)
			assert.Equal(t, tc.quantity, item.Quantity)
			assert.Equal(t, tc.store, item.Store)
			assert.False(t, item.Done)
			assert.False(t, item.Added.IsZero())
		})
	}
	items, err := s.Items(ctx)
	require.Nil(t, err)
	assert.Equal(t, []string{"Apfel", "Quantenkartoffel", "Apfel"}, names(items))
}

func TestServiceAddEmptyName(t *testing.T) {
	s, fb := newTestService(t)
	_, err := s.Add(context.Background(), shopping.Draft{Name: "   ", Quantity: "2"})
	assert.True(t, errors.Is(err, shopping.ErrEmptyName))
	_, err = os.Stat(fb.Path())
	assert.True(t, os.IsNotExist(err), "nothing should have been written")
}

func TestServiceToggleIsPersisted(t *testing.T) {
	ctx := context.Background()
	s, fb := newTestService(t)
	item, err := s.Add(ctx, shopping.Draft{Name: "Brot"})
	require.Nil(t, err)

	toggled, err := s.Toggle(ctx, item.ID)
	require.Nil(t, err)
	assert.True(t, toggled.Done)

	// A fresh service, as after a restart.
	other, err := shopping.NewService(fb)
	require.Nil(t, err)
	items, err := other.Items(ctx)
	require.Nil(t, err)
	require.Len(t, items, 1)
	assert.True(t, items[0].Done)

	toggled, err = other.Toggle(ctx, item.ID)
	require.Nil(t, err)
	assert.False(t, toggled.Done)

	_, err = s.Toggle(ctx, "nope")
	assert.True(t, errors.Is(err, shopping.ErrNotFound))
}

func TestServiceDeleteRemovesExactlyOne(t *testing.T) {
	ctx := context.Background()
	s, _ := newTestService(t)
	var ids []string
	for _, name := range []string{"Milch", "Milch", "Brot"} {
		item, err := s.Add(ctx, shopping.Draft{Name: name})
		require.Nil(t, err)
		ids = append(ids, item.ID)
	}
	require.Nil(t, s.Delete(ctx, ids[0]))
	items, err := s.Items(ctx)
	require.Nil(t, err)
	require.Len(t, items, 2)
	assert.Equal(t, ids[1], items[0].ID)
	assert.Equal(t, ids[2], items[1].ID)

	err = s.Delete(ctx, ids[0])
	assert.True(t, errors.Is(err, shopping.ErrNotFound))
}

func TestServiceUpdate(t *testing.T) {
	ctx := context.Background()
	s, _ := newTestService(t)
	item, err := s.Add(ctx, shopping.Draft{Name: "Apfel", Store: "Rewe"})
	require.Nil(t, err)

	updated, err := s.Update(ctx, shopping.NewItemPatch(item.ID).WithName("Zahnpasta"))
	require.Nil(t, err)
	assert.Equal(t, "Drogerie", updated.Category)
	assert.Equal(t, "Rewe", updated.Store)

	updated, err = s.Update(ctx, shopping.NewItemPatch(item.ID).WithName("Brot").WithCategory("Frühstück"))
	require.Nil(t, err)
	assert.Equal(t, "Frühstück", updated.Category)

	updated, err = s.Update(ctx, shopping.NewItemPatch(item.ID).WithName("").WithStore("").WithQuantity("2"))
	require.Nil(t, err)
	assert.Equal(t, "Brot", updated.Name)
	assert.Equal(t, shopping.DefaultStore, updated.Store)
	assert.Equal(t, "2", updated.Quantity)

	_, err = s.Update(ctx, shopping.NewItemPatch("nope").WithDone(true))
	assert.True(t, errors.Is(err, shopping.ErrNotFound))
}

func TestServiceClearDone(t *testing.T) {
	ctx := context.Background()
	s, _ := newTestService(t)
	for _, name := range []string{"Milch", "Brot", "Eier"} {
		item, err := s.Add(ctx, shopping.Draft{Name: name})
		require.Nil(t, err)
		if name != "Brot" {
			_, err = s.Toggle(ctx, item.ID)
			require.Nil(t, err)
		}
	}
	n, err := s.ClearDone(ctx)
	require.Nil(t, err)
	assert.Equal(t, 2, n)
	items, err := s.Items(ctx)
	require.Nil(t, err)
	assert.Equal(t, []string{"Brot"}, names(items))
}

func TestServiceResolve(t *testing.T) {
	ctx := context.Background()
	s, _ := newTestService(t)
	item, err := s.Add(ctx, shopping.Draft{Name: "Brot"})
	require.Nil(t, err)
	id, err := s.Resolve(ctx, shopping.ShortID(item.ID))
	require.Nil(t, err)
	assert.Equal(t, item.ID, id)
	_, err = s.Resolve(ctx, "zzzz")
	assert.True(t, errors.Is(err, shopping.ErrNotFound))
}

func TestServiceLegacyFileGetsStableIDs(t *testing.T) {
	ctx := context.Background()
	s, fb := newTestService(t)
	legacy := `[{"Produkt": "Äpfel", "Menge": "1 kg", "Einkaufsstätte": "Rewe", "Erledigt": false},
		{"Produkt": "", "Menge": "2"},
		{"Produkt": "Zahnpasta", "Kategorie": "Bad", "Erledigt": true}]`
	require.Nil(t, os.WriteFile(fb.Path(), []byte(legacy), 0644))

	first, err := s.Items(ctx)
	require.Nil(t, err)
	require.Len(t, first, 2)
	assert.Equal(t, "Obst", first[0].Category)
	assert.Equal(t, "Bad", first[1].Category)
	assert.Equal(t, shopping.DefaultStore, first[1].Store)
	assert.True(t, first[1].Done)

	second, err := s.Items(ctx)
	require.Nil(t, err)
	assert.Equal(t, first, second)

	data, err := os.ReadFile(fb.Path())
	require.Nil(t, err)
	assert.Contains(t, string(data), first[0].ID)
	assert.NotContains(t, string(data), "Produkt")

	// Identifiers of legacy items work like any other.
	_, err = s.Toggle(ctx, first[0].ID)
	require.Nil(t, err)
}

func TestServiceArchive(t *testing.T) {
	ctx := context.Background()
	s, _ := newTestService(t)
	restore := shopping.SetNowFunc(func() time.Time { return time.Date(2024, 5, 1, 10, 0, 0, 0, time.Local) })
	defer restore()

	for _, name := range []string{"Milch", "Brot"} {
		_, err := s.Add(ctx, shopping.Draft{Name: name})
		require.Nil(t, err)
	}
	before, err := s.Items(ctx)
	require.Nil(t, err)

	info, err := s.Archive(ctx, true)
	require.Nil(t, err)
	assert.Equal(t, "archiv/einkaufsliste_2024-05-01_10-00-00.json", info.Key)
	assert.Equal(t, "einkaufsliste_2024-05-01_10-00-00.json", info.Name())

	archived, err := s.ArchiveItems(ctx, info.Name())
	require.Nil(t, err)
	if diff := cmp.Diff(before, archived); diff != "" {
		t.Errorf("archived list differs (-want +got):\n%s", diff)
	}
	after, err := s.Items(ctx)
	require.Nil(t, err)
	assert.Empty(t, after)

	// Archiving without clearing keeps the list, and the same second gets a suffix.
	_, err = s.Add(ctx, shopping.Draft{Name: "Eier"})
	require.Nil(t, err)
	info, err = s.Archive(ctx, false)
	require.Nil(t, err)
	assert.True(t, strings.HasSuffix(info.Key, "_10-00-00-2.json"), info.Key)
	items, err := s.Items(ctx)
	require.Nil(t, err)
	assert.Len(t, items, 1)

	archives, err := s.Archives(ctx)
	require.Nil(t, err)
	require.Len(t, archives, 2)
	assert.Equal(t, "einkaufsliste_2024-05-01_10-00-00.json", archives[0].Name())
	assert.Equal(t, "einkaufsliste_2024-05-01_10-00-00-2.json", archives[1].Name())
}

func TestServiceWithoutArchiver(t *testing.T) {
	s, err := shopping.NewService(shopping.NewFileBackend(filepath.Join(t.TempDir(), "l.json")))
	require.Nil(t, err)
	_, err = s.Archive(context.Background(), true)
	assert.True(t, errors.Is(err, shopping.ErrNoArchiver))
	_, err = s.Archives(context.Background())
	assert.True(t, errors.Is(err, shopping.ErrNoArchiver))
}

// racingBackend lets another writer save between the service's load and its first save.
type racingBackend struct {
	*shopping.FileBackend
	other *shopping.Item
	raced bool
}

func (b *racingBackend) Save(ctx context.Context, items []*shopping.Item, expected shopping.Revision) (shopping.Revision, error) {
	if !b.raced {
		b.raced = true
		current, _, err := b.FileBackend.Load(ctx)
		if err != nil {
			return "", err
		}
		if _, err := b.FileBackend.Overwrite(ctx, append(current, b.other)); err != nil {
			return "", err
		}
	}
	return b.FileBackend.Save(ctx, items, expected)
}

func TestServiceConflictRetryKeepsBothEdits(t *testing.T) {
	ctx := context.Background()
	rb := &racingBackend{other: &shopping.Item{ID: "other", Name: "Kaffee", Quantity: "1", Store: "Rewe", Category: "Getränke"}}
	s, _ := newTestService(t, func(fb *shopping.FileBackend) shopping.Backend {
		rb.FileBackend = fb
		return rb
	})
	_, err := s.Add(ctx, shopping.Draft{Name: "Brot"})
	require.Nil(t, err)
	items, err := s.Items(ctx)
	require.Nil(t, err)
	assert.ElementsMatch(t, []string{"Kaffee", "Brot"}, names(items))
}

// hookBackend lets another writer change the list right before the service's next save.
type hookBackend struct {
	*shopping.FileBackend
	before func([]*shopping.Item) []*shopping.Item
}

func (b *hookBackend) Save(ctx context.Context, items []*shopping.Item, expected shopping.Revision) (shopping.Revision, error) {
	if hook := b.before; hook != nil {
		b.before = nil
		current, _, err := b.FileBackend.Load(ctx)
		if err != nil {
			return "", err
		}
		if _, err := b.FileBackend.Overwrite(ctx, hook(current)); err != nil {
			return "", err
		}
	}
	return b.FileBackend.Save(ctx, items, expected)
}

func TestServiceArchiveClearRetriesAfterConflict(t *testing.T) {
	ctx := context.Background()
	hb := &hookBackend{}
	s, _ := newTestService(t, func(fb *shopping.FileBackend) shopping.Backend {
		hb.FileBackend = fb
		return hb
	})
	for _, name := range []string{"Milch", "Brot"} {
		_, err := s.Add(ctx, shopping.Draft{Name: name})
		require.Nil(t, err)
	}

	// Somebody ticks off the bread and adds coffee while the list is being archived.
	hb.before = func(items []*shopping.Item) []*shopping.Item {
		for _, item := range items {
			if item.Name == "Brot" {
				item.Done = true
			}
		}
		return append(items, &shopping.Item{ID: "other", Name: "Kaffee", Quantity: "1", Store: "Rewe", Category: "Getränke"})
	}
	info, err := s.Archive(ctx, true)
	require.Nil(t, err)
	assert.Nil(t, hb.before)

	archived, err := s.ArchiveItems(ctx, info.Name())
	require.Nil(t, err)
	assert.Equal(t, []string{"Milch", "Brot"}, names(archived))
	assert.False(t, archived[1].Done)

	items, err := s.Items(ctx)
	require.Nil(t, err)
	assert.Equal(t, []string{"Brot", "Kaffee"}, names(items))
	assert.True(t, items[0].Done)

	archives, err := s.Archives(ctx)
	require.Nil(t, err)
	assert.Len(t, archives, 1)
}

func TestServiceLastWriterWins(t *testing.T) {
	_, err := shopping.NewService(loadOnlyBackend{}, shopping.WithLastWriterWins())
	assert.NotNil(t, err)

	ctx := context.Background()
	fb := shopping.NewFileBackend(filepath.Join(t.TempDir(), "einkaufsliste.json"))
	s, err := shopping.NewService(fb, shopping.WithLastWriterWins())
	require.Nil(t, err)
	_, err = s.Add(ctx, shopping.Draft{Name: "Brot"})
	require.Nil(t, err)
	items, err := s.Items(ctx)
	require.Nil(t, err)
	assert.Equal(t, []string{"Brot"}, names(items))
}

type loadOnlyBackend struct{}

func (loadOnlyBackend) Load(context.Context) ([]*shopping.Item, shopping.Revision, error) {
	return nil, "", nil
}

func (loadOnlyBackend) Save(context.Context, []*shopping.Item, shopping.Revision) (shopping.Revision, error) {
	return "", shopping.ErrConflict
}
