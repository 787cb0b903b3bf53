package main

import (
	"sort"

	"github.com/nicolagi/shopping"
	"golang.org/x/text/collate"
	"golang.org/x/text/language"
)

// sortByName orders items the way a German reader expects, with Äpfel next to Apfelsaft rather than after
// Zwiebeln. Collators are not safe for concurrent use, and acme windows load concurrently, hence one per call.
func sortByName(items []*shopping.Item) {
	c := collate.New(language.German, collate.IgnoreCase)
	sort.SliceStable(items, func(i, j int) bool {
		return c.CompareString(items[i].Name, items[j].Name) < 0
	})
}
