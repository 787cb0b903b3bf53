package shopping

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	log "github.com/sirupsen/logrus"
)

var (
	// ErrNotFound is returned when an identifier matches no item.
	ErrNotFound = errors.New("item not found")

	// ErrAmbiguous is returned by ResolveID when a prefix matches more than one item.
	ErrAmbiguous = errors.New("ambiguous item id")

	// ErrEmptyName is returned when adding an item without a product name.
	ErrEmptyName = errors.New("product name is empty")

	// ErrConflict is returned by Backend.Save if the persisted list changed since it was loaded.
	ErrConflict = errors.New("list was modified concurrently")

	// ErrCorrupted wraps decoding failures of persisted data. Loaders don't return it: they log it and carry on
	// with an empty list.
	ErrCorrupted = errors.New("stored list is corrupted")
)

// Revision identifies a persisted version of the list. The empty revision stands for "nothing persisted yet".
type Revision string

// Backend persists the whole list at once.
type Backend interface {
	// Load returns the persisted items and their revision. An absent or undecodable list is returned as an
	// empty list, not as an error.
	Load(ctx context.Context) ([]*Item, Revision, error)

	// Save replaces the persisted list, provided its revision is still expected. Otherwise it returns
	// ErrConflict and leaves the persisted list alone.
	Save(ctx context.Context, items []*Item, expected Revision) (Revision, error)
}

// overwriter is implemented by backends that can skip the revision check.
type overwriter interface {
	Overwrite(ctx context.Context, items []*Item) (Revision, error)
}

func encodeItems(items []*Item) ([]byte, error) {
	if items == nil {
		items = []*Item{}
	}
	b, err := json.MarshalIndent(items, "", "  ")
	if err != nil {
		return nil, err
	}
	return append(b, '\n'), nil
}

// decodeItems parses a JSON array of items. Records are decoded one by one, so that one bad record doesn't
// cost the whole list.
func decodeItems(b []byte) ([]*Item, error) {
	var raws []json.RawMessage
	if err := json.Unmarshal(b, &raws); err != nil {
		return nil, fmt.Errorf("%v: %w", err, ErrCorrupted)
	}
	items := make([]*Item, 0, len(raws))
	for i, raw := range raws {
		var item Item
		if err := json.Unmarshal(raw, &item); err != nil {
			log.WithFields(log.Fields{
				"index": i,
				"cause": err,
			}).Warning("Skipping undecodable record")
			continue
		}
		items = append(items, &item)
	}
	return items, nil
}

// loadOrEmpty turns a corrupted payload into an empty list, as promised by Backend.Load.
func loadOrEmpty(b []byte, source string) []*Item {
	items, err := decodeItems(b)
	if err != nil {
		log.WithFields(log.Fields{
			"source": source,
			"cause":  err,
		}).Warning("Could not decode list, starting from an empty one")
		return nil
	}
	return items
}
