package shopping_test

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/nicolagi/shopping"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFileBackendAbsent(t *testing.T) {
	b := shopping.NewFileBackend(filepath.Join(t.TempDir(), "missing", "einkaufsliste.json"))
	items, rev, err := b.Load(context.Background())
	require.Nil(t, err)
	assert.Empty(t, items)
	assert.Equal(t, shopping.Revision(""), rev)
}

func TestFileBackendCorrupt(t *testing.T) {
	for _, content := range []string{"", "{", `{"name": "not an array"}`, "\x00\x01"} {
		t.Run("", func(t *testing.T) {
			path := filepath.Join(t.TempDir(), "einkaufsliste.json")
			require.Nil(t, os.WriteFile(path, []byte(content), 0644))
			b := shopping.NewFileBackend(path)
			items, rev, err := b.Load(context.Background())
			require.Nil(t, err)
			assert.Empty(t, items)
			assert.NotEmpty(t, rev)

			// The corrupt file can be replaced by saving at its revision.
			_, err = b.Save(context.Background(), []*shopping.Item{{ID: "1", Name: "Brot"}}, rev)
			require.Nil(t, err)
			items, _, err = b.Load(context.Background())
			require.Nil(t, err)
			require.Len(t, items, 1)
			assert.Equal(t, "Brot", items[0].Name)
		})
	}
}

func TestFileBackendSkipsBadRecords(t *testing.T) {
	path := filepath.Join(t.TempDir(), "einkaufsliste.json")
	require.Nil(t, os.WriteFile(path, []byte(`[{"name": "Brot"}, 42, {"Produkt": "Milch"}]`), 0644))
	items, _, err := shopping.NewFileBackend(path).Load(context.Background())
	require.Nil(t, err)
	assert.Equal(t, []string{"Brot", "Milch"}, names(items))
}

func TestFileBackendRoundTrip(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "einkaufsliste.json")
	b := shopping.NewFileBackend(path)
	assert.Equal(t, path, b.Path())

	rev, err := b.Save(ctx, sampleItems(), "")
	require.Nil(t, err)
	items, loadedRev, err := b.Load(ctx)
	require.Nil(t, err)
	assert.Equal(t, rev, loadedRev)
	assert.Equal(t, sampleItems(), items)

	data, err := os.ReadFile(path)
	require.Nil(t, err)
	assert.Contains(t, string(data), `"name": "Äpfel"`)
	_, err = os.Stat(path + ".tmp")
	assert.True(t, os.IsNotExist(err))
}

func TestFileBackendConflict(t *testing.T) {
	ctx := context.Background()
	b := shopping.NewFileBackend(filepath.Join(t.TempDir(), "einkaufsliste.json"))
	rev, err := b.Save(ctx, sampleItems(), "")
	require.Nil(t, err)

	// Another writer gets in first.
	_, err = b.Save(ctx, sampleItems()[:1], rev)
	require.Nil(t, err)

	_, err = b.Save(ctx, sampleItems()[:2], rev)
	assert.True(t, errors.Is(err, shopping.ErrConflict))
	_, err = b.Save(ctx, nil, "")
	assert.True(t, errors.Is(err, shopping.ErrConflict))

	items, _, err := b.Load(ctx)
	require.Nil(t, err)
	assert.Equal(t, []string{"Äpfel"}, names(items))

	_, err = b.Overwrite(ctx, nil)
	require.Nil(t, err)
	items, _, err = b.Load(ctx)
	require.Nil(t, err)
	assert.Empty(t, items)
}
