package main

import (
	"fmt"
	"io"
	"strings"

	"github.com/nicolagi/shopping"
)

func checkbox(done bool) string {
	if done {
		return "[x]"
	}
	return "[ ]"
}

// printList writes one line per item, under a header line per group. Lines start with the short item id, which
// is what Look and the ID arguments of the commands expect.
func printList(w io.Writer, items []*shopping.Item, key shopping.GroupKey, order []string) {
	if len(items) == 0 {
		_, _ = fmt.Fprintln(w, "Die Liste ist leer.")
		return
	}
	groups := shopping.GroupItems(items, key)
	shopping.SortGroups(groups, order...)
	for i, g := range groups {
		if i > 0 {
			_, _ = fmt.Fprintln(w)
		}
		_, _ = fmt.Fprintln(w, g.Label)
		sortByName(g.Items)
		for _, item := range g.Items {
			printItemLine(w, item, key)
		}
	}
}

func printItemLine(w io.Writer, item *shopping.Item, key shopping.GroupKey) {
	detail := item.Category
	if key == shopping.ByCategory {
		detail = item.Store
	}
	if item.OrderedBy != "" {
		detail += " (für " + item.OrderedBy + ")"
	}
	name := item.Name
	if item.Symbol != "" {
		name = item.Symbol + " " + name
	}
	_, _ = fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\n", shopping.ShortID(item.ID), checkbox(item.Done), name, item.Quantity, detail)
}

func yesNo(b bool) string {
	if b {
		return "yes"
	}
	return "no"
}

func printItem(w io.Writer, item *shopping.Item, categories, stores []string) {
	added := ""
	if !item.Added.IsZero() {
		added = item.Added.Local().Format("2006-01-02 15:04")
	}
	_, _ = fmt.Fprintf(w, "Name: %s\n", item.Name)
	_, _ = fmt.Fprintf(w, "Quantity: %s\n", item.Quantity)
	_, _ = fmt.Fprintf(w, "Category: %s\n", item.Category)
	_, _ = fmt.Fprintf(w, "Store: %s\n", item.Store)
	_, _ = fmt.Fprintf(w, "Ordered by: %s\n", item.OrderedBy)
	_, _ = fmt.Fprintf(w, "Symbol: %s\n", item.Symbol)
	_, _ = fmt.Fprintf(w, "Done: %s\n", yesNo(item.Done))
	_, _ = fmt.Fprintf(w, "Added: %s\n", added)
	printChoices(w, categories, stores)
}

func printNewItem(w io.Writer, categories, stores []string) {
	_, _ = fmt.Fprintf(w, `Name: 
Quantity: %s
Category: 
Store: 
Ordered by: 
Symbol: 
`, shopping.DefaultQuantity)
	printChoices(w, categories, stores)
}

func printChoices(w io.Writer, categories, stores []string) {
	_, _ = fmt.Fprintf(w, "\nAvailable categories: %s\n", strings.Join(categories, ", "))
	_, _ = fmt.Fprintf(w, "Available stores: %s\n", strings.Join(stores, ", "))
}

func printArchives(w io.Writer, archives []shopping.ArchiveInfo) {
	if len(archives) == 0 {
		_, _ = fmt.Fprintln(w, "Noch keine Archive.")
		return
	}
	for _, a := range archives {
		_, _ = fmt.Fprintf(w, "%s\t%s\t%d B\n", a.Name(), a.Created.Format("2006-01-02 15:04:05"), a.Size)
	}
}

// itemForm holds the attributes read back from an item window. Nil means the line was absent.
type itemForm struct {
	name, quantity, category, store, orderedBy, symbol *string
	done                                               *bool
}

func parseItemForm(body string) itemForm {
	var f itemForm
	value := func(line, prefix string) *string {
		v := strings.TrimSpace(line[len(prefix):])
		return &v
	}
	for _, line := range strings.Split(body, "\n") {
		switch {
		case strings.HasPrefix(line, "Name:"):
			f.name = value(line, "Name:")
		case strings.HasPrefix(line, "Quantity:"):
			f.quantity = value(line, "Quantity:")
		case strings.HasPrefix(line, "Category:"):
			f.category = value(line, "Category:")
		case strings.HasPrefix(line, "Store:"):
			f.store = value(line, "Store:")
		case strings.HasPrefix(line, "Ordered by:"):
			f.orderedBy = value(line, "Ordered by:")
		case strings.HasPrefix(line, "Symbol:"):
			f.symbol = value(line, "Symbol:")
		case strings.HasPrefix(line, "Done:"):
			v := strings.ToLower(*value(line, "Done:"))
			done := v == "yes" || v == "ja" || v == "x" || v == "true"
			f.done = &done
		}
	}
	return f
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

func (f itemForm) draft() shopping.Draft {
	return shopping.Draft{
		Name:      deref(f.name),
		Quantity:  deref(f.quantity),
		Category:  deref(f.category),
		Store:     deref(f.store),
		OrderedBy: deref(f.orderedBy),
		Symbol:    deref(f.symbol),
	}
}

// patch returns the changes of the form with respect to item. Only changed lines are patched, so that renaming
// an item still re-categorizes it when the category line was left alone.
func (f itemForm) patch(item *shopping.Item) *shopping.ItemPatch {
	p := shopping.NewItemPatch(item.ID)
	if f.name != nil && *f.name != item.Name {
		p.WithName(*f.name)
	}
	if f.quantity != nil && *f.quantity != item.Quantity {
		p.WithQuantity(*f.quantity)
	}
	if f.category != nil && *f.category != item.Category {
		p.WithCategory(*f.category)
	}
	if f.store != nil && *f.store != item.Store {
		p.WithStore(*f.store)
	}
	if f.orderedBy != nil && *f.orderedBy != item.OrderedBy {
		p.WithOrderedBy(*f.orderedBy)
	}
	if f.symbol != nil && *f.symbol != item.Symbol {
		p.WithSymbol(*f.symbol)
	}
	if f.done != nil && *f.done != item.Done {
		p.WithDone(*f.done)
	}
	return p
}

// addSearchTerm narrows s by one term of a search expression and reports whether it added a condition. A leading
// minus negates the term; @ matches the store, # the category, ~ who ordered the item, and ! completed items.
// Anything else is a substring of the product name.
func addSearchTerm(s *shopping.ItemScan, term string) bool {
	if term == "" {
		return false
	}
	switch term[0] {
	case '-':
		if !addSearchTerm(s, term[1:]) {
			return false
		}
		s.Not()
	case '@':
		s.WithStore(term[1:])
	case '#':
		s.WithCategory(term[1:])
	case '~':
		s.WithOrderedBy(term[1:])
	case '!':
		s.WithDone(true)
	default:
		s.WithName(term)
	}
	return true
}

func search(l *shopping.List, expr string) []*shopping.Item {
	s := l.SearchItems()
	for _, term := range strings.Split(expr, ":") {
		addSearchTerm(s, strings.TrimSpace(term))
	}
	return s.Results()
}
