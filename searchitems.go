package shopping

import "strings"

type itemPredicate func(*Item) bool

func negate(p itemPredicate) itemPredicate {
	return func(item *Item) bool {
		return !p(item)
	}
}

type ItemScan struct {
	list       *List
	predicates []itemPredicate
}

// Not negates the last predicate added.  It will panic if no predicates were added.
func (s *ItemScan) Not() *ItemScan {
	i := len(s.predicates) - 1
	s.predicates[i] = negate(s.predicates[i])
	return s
}

func (s *ItemScan) WithDone(value bool) *ItemScan {
	s.predicates = append(s.predicates, func(item *Item) bool {
		return item.Done == value
	})
	return s
}

// WithStore looks for items in any of the given stores, case-insensitive. Arguments are ORed together.
func (s *ItemScan) WithStore(value ...string) *ItemScan {
	s.predicates = append(s.predicates, func(item *Item) bool {
		for _, store := range value {
			if strings.EqualFold(item.Store, store) {
				return true
			}
		}
		return false
	})
	return s
}

// WithCategory is analogous to WithStore.
func (s *ItemScan) WithCategory(value ...string) *ItemScan {
	s.predicates = append(s.predicates, func(item *Item) bool {
		for _, category := range value {
			if strings.EqualFold(item.Category, category) {
				return true
			}
		}
		return false
	})
	return s
}

// WithName looks for items whose name contains the given substring, case-insensitive.
func (s *ItemScan) WithName(needle string) *ItemScan {
	needle = strings.ToLower(needle)
	s.predicates = append(s.predicates, func(item *Item) bool {
		return strings.Contains(strings.ToLower(item.Name), needle)
	})
	return s
}

func (s *ItemScan) WithOrderedBy(who string) *ItemScan {
	s.predicates = append(s.predicates, func(item *Item) bool {
		return strings.EqualFold(item.OrderedBy, who)
	})
	return s
}

// Results returns copies of the matching items, in list order.
func (s *ItemScan) Results() []*Item {
	var results []*Item
	for _, item := range s.list.items {
		if s.match(item) {
			results = append(results, item.clone())
		}
	}
	return results
}

func (s *ItemScan) match(item *Item) bool {
	for _, match := range s.predicates {
		if !match(item) {
			return false
		}
	}
	return true
}

func (l *List) SearchItems() *ItemScan {
	return &ItemScan{
		list: l,
	}
}
