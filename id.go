package shopping

import (
	"strings"

	uuid "github.com/nu7hatch/gouuid"
)

// newID returns a fresh item identifier. Identifiers are random (v4) UUIDs, so they never depend on the position
// of an item in the list.
func newID() string {
	u, err := uuid.NewV4()
	if err != nil {
		// Only happens if the system's random source fails; fall back to something unique enough for a list
		// of groceries.
		return strings.Repeat("0", 8) + "-" + nowFunc().Format("20060102150405.000000000")
	}
	return u.String()
}

// ShortID returns the first eight characters of an identifier, which is how identifiers are shown in the user
// interfaces. ResolveID maps them back.
func ShortID(id string) string {
	if len(id) <= 8 {
		return id
	}
	return id[:8]
}

// ResolveID returns the identifier of the unique item whose identifier starts with prefix. It returns
// ErrNotFound if no item matches and ErrAmbiguous if more than one does.
func ResolveID(items []*Item, prefix string) (string, error) {
	prefix = strings.ToLower(strings.TrimSpace(prefix))
	if prefix == "" {
		return "", ErrNotFound
	}
	var found string
	for _, item := range items {
		if item.ID == prefix {
			return item.ID, nil
		}
		if strings.HasPrefix(item.ID, prefix) {
			if found != "" {
				return "", ErrAmbiguous
			}
			found = item.ID
		}
	}
	if found == "" {
		return "", ErrNotFound
	}
	return found, nil
}
