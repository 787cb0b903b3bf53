package shopping

import (
	"encoding/json"
	"strings"
	"time"
)

// Defaults applied to new items and back-filled into records loaded from disk.
const (
	DefaultQuantity = "1"
	DefaultStore    = "Sonstiges"
)

var nowFunc = time.Now

// Item is one entry of the shopping list. Items returned by Service are copies; to change an item, use an
// ItemPatch with Service.Update, or one of the dedicated methods (Toggle, Delete).
type Item struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	Quantity  string    `json:"quantity"` // Free text, e.g., "500 g" or "2 Packungen".
	Category  string    `json:"category"`
	Store     string    `json:"store"`
	Done      bool      `json:"done"`
	OrderedBy string    `json:"ordered_by,omitempty"`
	Symbol    string    `json:"symbol,omitempty"`
	Added     time.Time `json:"added"`
}

// legacyItem holds the keys written by the first versions of the list, which stored German field names.
type legacyItem struct {
	Name      string `json:"Produkt"`
	Quantity  string `json:"Menge"`
	Category  string `json:"Kategorie"`
	Store     string `json:"Einkaufsstätte"`
	Done      *bool  `json:"Erledigt"`
	OrderedBy string `json:"Bestellt von"`
}

// UnmarshalJSON implements json.Unmarshaler. Both the current keys and the legacy German keys are accepted; when
// a record has both, the current keys win.
func (item *Item) UnmarshalJSON(b []byte) error {
	type plain Item
	var current plain
	if err := json.Unmarshal(b, &current); err != nil {
		return err
	}
	var legacy legacyItem
	if err := json.Unmarshal(b, &legacy); err != nil {
		return err
	}
	*item = Item(current)
	if item.Name == "" {
		item.Name = legacy.Name
	}
	if item.Quantity == "" {
		item.Quantity = legacy.Quantity
	}
	if item.Category == "" {
		item.Category = legacy.Category
	}
	if item.Store == "" {
		item.Store = legacy.Store
	}
	if !item.Done && legacy.Done != nil {
		item.Done = *legacy.Done
	}
	if item.OrderedBy == "" {
		item.OrderedBy = legacy.OrderedBy
	}
	return nil
}

func (item *Item) clone() *Item {
	c := *item
	return &c
}

func sameItem(a, b *Item) bool {
	return a.ID == b.ID && a.Name == b.Name && a.Quantity == b.Quantity && a.Category == b.Category &&
		a.Store == b.Store && a.Done == b.Done && a.OrderedBy == b.OrderedBy && a.Symbol == b.Symbol &&
		a.Added.Equal(b.Added)
}

// Draft holds the form fields for a new item. Only Name is required.
type Draft struct {
	Name      string
	Quantity  string
	Category  string // Left empty, the categorizer picks one.
	Store     string
	OrderedBy string
	Symbol    string
}

// ItemPatch describes an update to an existing item. Only the attributes set through the With* methods are
// changed.
type ItemPatch struct {
	id        string
	name      *string
	quantity  *string
	category  *string
	store     *string
	orderedBy *string
	symbol    *string
	done      *bool
}

func NewItemPatch(id string) *ItemPatch {
	return &ItemPatch{id: id}
}

// ID returns the identifier of the item the patch applies to.
func (patch *ItemPatch) ID() string {
	return patch.id
}

func (patch *ItemPatch) WithName(value string) *ItemPatch {
	value = strings.TrimSpace(value)
	patch.name = &value
	return patch
}

func (patch *ItemPatch) WithQuantity(value string) *ItemPatch {
	value = strings.TrimSpace(value)
	patch.quantity = &value
	return patch
}

func (patch *ItemPatch) WithCategory(value string) *ItemPatch {
	value = strings.TrimSpace(value)
	patch.category = &value
	return patch
}

func (patch *ItemPatch) WithStore(value string) *ItemPatch {
	value = strings.TrimSpace(value)
	patch.store = &value
	return patch
}

func (patch *ItemPatch) WithOrderedBy(value string) *ItemPatch {
	value = strings.TrimSpace(value)
	patch.orderedBy = &value
	return patch
}

func (patch *ItemPatch) WithSymbol(value string) *ItemPatch {
	value = strings.TrimSpace(value)
	patch.symbol = &value
	return patch
}

func (patch *ItemPatch) WithDone(value bool) *ItemPatch {
	patch.done = &value
	return patch
}

// Empty reports whether the patch would change nothing.
func (patch *ItemPatch) Empty() bool {
	return patch.name == nil && patch.quantity == nil && patch.category == nil && patch.store == nil &&
		patch.orderedBy == nil && patch.symbol == nil && patch.done == nil
}

// apply copies the patched attributes into item. Empty names are ignored (hard to imagine one intends to blank
// out a product), as are empty quantities and stores, which fall back to the defaults instead.
func (patch *ItemPatch) apply(item *Item, c *Categorizer) {
	renamed := false
	if patch.name != nil && *patch.name != "" && *patch.name != item.Name {
		item.Name = *patch.name
		renamed = true
	}
	if patch.quantity != nil {
		item.Quantity = *patch.quantity
		if item.Quantity == "" {
			item.Quantity = DefaultQuantity
		}
	}
	if patch.store != nil {
		item.Store = *patch.store
		if item.Store == "" {
			item.Store = DefaultStore
		}
	}
	if patch.orderedBy != nil {
		item.OrderedBy = *patch.orderedBy
	}
	if patch.symbol != nil {
		item.Symbol = *patch.symbol
	}
	if patch.done != nil {
		item.Done = *patch.done
	}
	switch {
	case patch.category != nil && *patch.category != "":
		item.Category = *patch.category
	case renamed || (patch.category != nil && *patch.category == ""):
		item.Category = c.Categorize(item.Name)
	}
}

// backfill fills in the attributes that older files may lack. It reports false for records that can not be
// repaired (no product name).
func backfill(item *Item, c *Categorizer) bool {
	item.Name = strings.TrimSpace(item.Name)
	if item.Name == "" {
		return false
	}
	if item.ID == "" {
		item.ID = newID()
	}
	if strings.TrimSpace(item.Quantity) == "" {
		item.Quantity = DefaultQuantity
	}
	if strings.TrimSpace(item.Store) == "" {
		item.Store = DefaultStore
	}
	if strings.TrimSpace(item.Category) == "" {
		item.Category = c.Categorize(item.Name)
	}
	return true
}
