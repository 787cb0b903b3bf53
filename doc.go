// The shopping package contains the household shopping list shared by the members of a family: the item
// records, the categorizer that files a product under a store section, the persistence backends and the
// archiver that snapshots completed lists.
//
// The list is small (a few dozen items at most), so all lookup and search operations scan the slice of items in
// order. Items keep their insertion order, which is also the display order unless a caller groups or sorts them.
//
// All mutating methods of Service follow the same cycle: reload the persisted list, apply the change in memory,
// write the list back. Writes carry the revision observed at load time, so that an edit made meanwhile by another
// process (another family member running the web UI, say) is detected and the change is re-applied on top of it
// instead of silently overwriting it.
package shopping // import "github.com/nicolagi/shopping"
