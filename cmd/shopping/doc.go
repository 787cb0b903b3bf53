// The shopping program manages the family shopping list from the command line, from acme, and through a small
// password-protected web interface that everybody in the family can reach from their phone.
//
// Configuration is read from lib/shopping/config.yaml within the user's home directory, if present; see package
// config for the keys and the SHOPPING_* environment overrides. Without it, the list is kept in
// lib/shopping/einkaufsliste.json and archives are written next to it.
//
// Items are referred to by their id, which may be abbreviated to any unique prefix, as printed by list:
//
//	shopping add Vollmilch --qty "2 l" --store Aldi --by Anna
//	shopping list --group category --pending
//	shopping done 3f2a
//	shopping archive --clear
//	shopping export --format pdf --out einkauf.pdf
//
// The acme subcommand opens a window showing the list. Button-3 on an item id opens the item, where the lines can
// be edited and saved with Put. Done toggles an item; Zap deletes it, but only when clicked twice in a row. Sort
// switches between grouping by store and by category. Windows reload when another process (the web interface,
// say) changes the list, unless they hold unsaved edits.
//
// Example arguments to Search: all items for Rewe: @Rewe. Items for Rewe that are not bought yet: @Rewe:-!. All
// drinks Anna asked for: #Getränke:~Anna. Anything containing "milch": milch.
//
// So, in summary, prepending minus negates a condition; the colon combines conditions (i.e., represents the
// boolean AND); @ introduces a condition on the store, # on the category, ~ on who ordered the item, and ! selects
// completed items, while the default condition looks for a substring in the product name.
package main // import "github.com/nicolagi/shopping/cmd/shopping"
