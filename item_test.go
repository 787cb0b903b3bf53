package shopping_test

import (
	"encoding/json"
	"testing"

	"github.com/nicolagi/shopping"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestItemUnmarshalLegacyKeys(t *testing.T) {
	in := `{"Produkt": "Milch", "Menge": "2 l", "Symbol": "🥛", "Einkaufsstätte": "Aldi", "Erledigt": true,
		"Bestellt von": "Oma"}`
	var item shopping.Item
	require.Nil(t, json.Unmarshal([]byte(in), &item))
	assert.Equal(t, "Milch", item.Name)
	assert.Equal(t, "2 l", item.Quantity)
	assert.Equal(t, "🥛", item.Symbol)
	assert.Equal(t, "Aldi", item.Store)
	assert.Equal(t, "Oma", item.OrderedBy)
	assert.True(t, item.Done)
	assert.Equal(t, "", item.ID)
}

func TestItemUnmarshalCurrentKeysWin(t *testing.T) {
	in := `{"id": "x", "name": "Brot", "Produkt": "Milch", "store": "Rewe", "Einkaufsstätte": "Aldi"}`
	var item shopping.Item
	require.Nil(t, json.Unmarshal([]byte(in), &item))
	assert.Equal(t, "x", item.ID)
	assert.Equal(t, "Brot", item.Name)
	assert.Equal(t, "Rewe", item.Store)
}

func TestItemMarshal(t *testing.T) {
	item := shopping.Item{ID: "1", Name: "Äpfel", Quantity: "1 kg", Category: "Obst", Store: "Rewe"}
	b, err := json.Marshal(&item)
	require.Nil(t, err)
	var back shopping.Item
	require.Nil(t, json.Unmarshal(b, &back))
	assert.Equal(t, item, back)
	assert.NotContains(t, string(b), "ordered_by")
}

func TestItemPatchEmpty(t *testing.T) {
	assert.True(t, shopping.NewItemPatch("1").Empty())
	assert.False(t, shopping.NewItemPatch("1").WithDone(false).Empty())
	assert.Equal(t, "1", shopping.NewItemPatch("1").ID())
}
