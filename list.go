package shopping

import (
	"sort"
	"strings"
)

// List is the ordered sequence of items as persisted. The order of the slice is the display order.
type List struct {
	items []*Item
}

// NewList wraps items, which are not copied.
func NewList(items []*Item) *List {
	return &List{items: items}
}

// Items returns copies of the items in list order.
func (l *List) Items() []*Item {
	out := make([]*Item, len(l.items))
	for i, item := range l.items {
		out[i] = item.clone()
	}
	return out
}

func (l *List) Len() int {
	return len(l.items)
}

// ItemByID looks up an item by identifier. The result aliases the list's own record.
func (l *List) ItemByID(id string) (*Item, bool) {
	for _, item := range l.items {
		if item.ID == id {
			return item, true
		}
	}
	return nil, false
}

func (l *List) add(item *Item) {
	l.items = append(l.items, item)
}

// remove deletes the one item with the given identifier and reports whether there was one.
func (l *List) remove(id string) bool {
	for i, item := range l.items {
		if item.ID == id {
			l.items = append(l.items[:i], l.items[i+1:]...)
			return true
		}
	}
	return false
}

// removeDone deletes all completed items and returns how many there were.
func (l *List) removeDone() int {
	return l.removeIf(func(item *Item) bool { return item.Done })
}

// removeIf deletes the items for which match holds and returns how many there were.
func (l *List) removeIf(match func(*Item) bool) int {
	kept := l.items[:0]
	for _, item := range l.items {
		if !match(item) {
			kept = append(kept, item)
		}
	}
	n := len(l.items) - len(kept)
	for i := len(kept); i < len(l.items); i++ {
		l.items[i] = nil
	}
	l.items = kept
	return n
}


// GroupKey selects the attribute items are grouped by.
type GroupKey int

const (
	ByStore GroupKey = iota
	ByCategory
)

// ParseGroupKey accepts "store" and "category".
func ParseGroupKey(s string) (GroupKey, bool) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "store":
		return ByStore, true
	case "category":
		return ByCategory, true
	default:
		return 0, false
	}
}

func (k GroupKey) String() string {
	if k == ByCategory {
		return "category"
	}
	return "store"
}

// Group is a run of items that share a store or a category.
type Group struct {
	Label string
	Items []*Item
}

// GroupItems partitions items by key. Groups come in order of first appearance; items keep their relative
// order inside a group.
func GroupItems(items []*Item, key GroupKey) []Group {
	var groups []Group
	index := make(map[string]int)
	for _, item := range items {
		label := item.Store
		if key == ByCategory {
			label = item.Category
		}
		i, ok := index[label]
		if !ok {
			i = len(groups)
			index[label] = i
			groups = append(groups, Group{Label: label})
		}
		groups[i].Items = append(groups[i].Items, item)
	}
	return groups
}

// SortGroups orders groups by label, case-insensitively. Labels listed in first come before all others, in the
// given order; this is how the configured store order or the taxonomy order is honoured.
func SortGroups(groups []Group, first ...string) {
	rank := make(map[string]int, len(first))
	for i, label := range first {
		rank[label] = i
	}
	sort.SliceStable(groups, func(i, j int) bool {
		ri, iok := rank[groups[i].Label]
		rj, jok := rank[groups[j].Label]
		switch {
		case iok && jok:
			return ri < rj
		case iok != jok:
			return iok
		default:
			return strings.ToLower(groups[i].Label) < strings.ToLower(groups[j].Label)
		}
	})
}

// ItemsByStoreAndCategory sorts items by store, then category, then name. It is for views that want a single
// sorted checklist instead of groups.
type ItemsByStoreAndCategory []*Item

func (items ItemsByStoreAndCategory) Len() int {
	return len(items)
}

func (items ItemsByStoreAndCategory) Swap(i, j int) {
	items[i], items[j] = items[j], items[i]
}

func (items ItemsByStoreAndCategory) Less(i, j int) bool {
	a, b := items[i], items[j]
	if a.Store != b.Store {
		return strings.ToLower(a.Store) < strings.ToLower(b.Store)
	}
	if a.Category != b.Category {
		return strings.ToLower(a.Category) < strings.ToLower(b.Category)
	}
	return strings.ToLower(a.Name) < strings.ToLower(b.Name)
}
