package main

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"strings"
	"sync"
	"time"

	"9fans.net/go/acme"
	"github.com/nicolagi/shopping"
	"github.com/nicolagi/shopping/export"
	log "github.com/sirupsen/logrus"
)

type windowMode int

const (
	modeList     windowMode = iota // /shop/list
	modeItem                       // /shop/items/$id
	modeNewItem                    // /shop/items/new
	modeSearch                     // /shop/search/$expr
	modeArchives                   // /shop/archives
	modeArchive                    // /shop/archives/$name
	modeExport                     // /shop/export
)

func (mode windowMode) String() string {
	switch mode {
	case modeList:
		return "list"
	case modeItem:
		return "item"
	case modeNewItem:
		return "newItem"
	case modeSearch:
		return "search"
	case modeArchives:
		return "archives"
	case modeArchive:
		return "archive"
	case modeExport:
		return "export"
	default:
		log.WithField("mode", int(mode)).Error("Missing mode string, returning as number")
		return fmt.Sprintf("%d", int(mode))
	}
}

// acmeCtx bounds the list operations started from acme events.
var acmeCtx = context.Background()

var all struct {
	sync.Mutex
	m map[*acme.Win]*window
}

type window struct {
	*acme.Win

	mode windowMode

	itemID  string // For modeItem
	expr    string // For modeSearch
	archive string // For modeArchive

	// Grouping for the list, search, archive and export modes. Sort toggles it.
	group shopping.GroupKey

	// Item id for which Zap has been clicked once. The next Zap for the same item deletes it; any other
	// command disarms.
	zapArmed string
}

func (w *window) resetTag() {
	var tag string
	switch w.mode {
	case modeList:
		tag = " New Get Done Zap Sort Search ClearDone Archive Archives Export "
	case modeItem:
		tag = " List New Get Put PutDel Done Zap "
	case modeNewItem:
		tag = " List Put PutDel "
	case modeSearch:
		tag = " List New Get Done Zap Sort Search "
	case modeArchives:
		tag = " List Get Archive "
	case modeArchive:
		tag = " List Archives Get Sort "
	case modeExport:
		tag = " List Get Sort "
	}
	_ = w.Ctl("cleartag")
	_ = w.Fprintf("tag", "%s", tag)
}

// exit is called after the window's event loop is over, i.e., the window has been closed in acme. Closing the
// last window releases the list storage and terminates the process.
func (w *window) exit() {
	all.Lock()
	defer all.Unlock()
	if all.m[w.Win] == w {
		delete(all.m, w.Win)
	}
	if len(all.m) == 0 {
		_ = teardown()
		os.Exit(0)
	}
}

// newWindow creates a window in acme without a specific purpose, and registers it in the global map of windows.
func newWindow(pathname string) *window {
	all.Lock()
	defer all.Unlock()
	if all.m == nil {
		all.m = make(map[*acme.Win]*window)
	}

	logEntry := log.WithField("path", pathname)
	aw, err := acme.New()
	if err != nil {
		logEntry.WithField("cause", err).Warning("Could not create acme window")
		time.Sleep(10 * time.Millisecond)
		aw, err = acme.New()
		if err != nil {
			logEntry.WithField("cause", err).Fatal("Could not create acme window again")
		}
	}
	aw.SetErrorPrefix(pathname)
	_ = aw.Name("%s", pathname)

	w := &window{Win: aw}
	all.m[w.Win] = w
	return w
}

func (w *window) start() {
	w.resetTag()
	go w.load()
	go w.loop()
}

func newListWindow() {
	title := "/shop/list"
	if acme.Show(title) != nil {
		return
	}
	w := newWindow(title)
	w.mode = modeList
	w.start()
}

func newSearchWindow(expr string) {
	title := "/shop/search/" + expr
	if acme.Show(title) != nil {
		return
	}
	w := newWindow(title)
	w.mode = modeSearch
	w.expr = expr
	w.start()
}

func newItemWindow(id string) {
	title := "/shop/items/new"
	if id != "" {
		title = "/shop/items/" + shopping.ShortID(id)
	}
	if acme.Show(title) != nil {
		return
	}
	w := newWindow(title)
	if id != "" {
		w.mode = modeItem
		w.itemID = id
	} else {
		w.mode = modeNewItem
	}
	w.start()
}

func newArchivesWindow() {
	title := "/shop/archives"
	if acme.Show(title) != nil {
		return
	}
	w := newWindow(title)
	w.mode = modeArchives
	w.start()
}

func newArchiveWindow(name string) {
	title := "/shop/archives/" + name
	if acme.Show(title) != nil {
		return
	}
	w := newWindow(title)
	w.mode = modeArchive
	w.archive = name
	w.start()
}

func newExportWindow() {
	title := "/shop/export"
	if acme.Show(title) != nil {
		return
	}
	w := newWindow(title)
	w.mode = modeExport
	w.start()
}

// Look is invoked via button-3 click in acme. Item ids (or unique prefixes) open item windows, archive names open
// the archived list, and store or category names in an item window open a search. Returns false to defer to
// other handlers.
func (w *window) Look(text string) bool {
	text = strings.TrimSpace(text)
	switch w.mode {
	case modeList, modeSearch:
		if id, err := service.Resolve(acmeCtx, text); err == nil {
			newItemWindow(id)
			return true
		}
	case modeArchives:
		archives, err := service.Archives(acmeCtx)
		if err != nil {
			w.Errf("Could not list archives: %v", err)
			return false
		}
		for _, a := range archives {
			if a.Name() == text || a.Key == text {
				newArchiveWindow(a.Name())
				return true
			}
		}
	case modeItem:
		for _, store := range settings.Stores {
			if strings.EqualFold(store, text) {
				newSearchWindow("@" + store)
				return true
			}
		}
		for _, category := range service.Categorizer().Categories() {
			if strings.EqualFold(category, text) {
				newSearchWindow("#" + category)
				return true
			}
		}
	}
	return false
}

func (w *window) load() {
	var buf bytes.Buffer
	err := w.print(&buf)
	w.Clear()
	tabbed := w.mode == modeList || w.mode == modeSearch || w.mode == modeArchives || w.mode == modeArchive
	if err != nil {
		_, _ = w.Write("body", []byte(err.Error()))
	} else if tabbed {
		w.PrintTabbed(buf.String())
		_ = w.Ctl("clean")
	} else {
		_, _ = w.Write("body", buf.Bytes())
		_ = w.Ctl("clean")
	}

	if err == nil && (w.mode == modeItem || w.mode == modeNewItem) {
		_ = w.Addr("#6") // Past "Name: "
	} else {
		_ = w.Addr("0")
	}
	_ = w.Ctl("dot=addr")
	_ = w.Ctl("show")
}

func (w *window) print(buf *bytes.Buffer) error {
	stores := settings.Stores
	categories := service.Categorizer().Categories()
	switch w.mode {
	case modeNewItem:
		printNewItem(buf, categories, stores)
	case modeItem:
		l, err := service.List(acmeCtx)
		if err != nil {
			return err
		}
		item, ok := l.ItemByID(w.itemID)
		if !ok {
			return fmt.Errorf("%s: %w", w.itemID, shopping.ErrNotFound)
		}
		printItem(buf, item, categories, stores)
	case modeList, modeSearch:
		l, err := service.List(acmeCtx)
		if err != nil {
			return err
		}
		items := l.Items()
		if w.mode == modeSearch {
			items = search(l, w.expr)
		}
		printList(buf, items, w.group, groupOrder(w.group))
	case modeArchives:
		archives, err := service.Archives(acmeCtx)
		if err != nil {
			return err
		}
		printArchives(buf, archives)
	case modeArchive:
		items, err := service.ArchiveItems(acmeCtx, w.archive)
		if err != nil {
			return err
		}
		printList(buf, items, w.group, groupOrder(w.group))
	case modeExport:
		items, err := service.Items(acmeCtx)
		if err != nil {
			return err
		}
		r, err := export.NewRenderer("md")
		if err != nil {
			return err
		}
		data, err := r.Render(items, export.Options{Group: w.group, Order: groupOrder(w.group), Created: time.Now()})
		if err != nil {
			return err
		}
		buf.Write(data)
	}
	return nil
}

// isDirty reports whether the body has unsaved edits, in which case reloads triggered by others must not clobber
// it.
func (w *window) isDirty() bool {
	ctl, err := w.ReadAll("ctl")
	if err != nil {
		return false
	}
	fields := strings.Fields(string(ctl))
	return len(fields) > 4 && fields[4] == "1"
}

// target returns the item a Done or Zap refers to: the item of an item window, or an id prefix argument.
func (w *window) target(arg string) (string, error) {
	if arg == "" {
		if w.mode == modeItem {
			return w.itemID, nil
		}
		return "", fmt.Errorf("which item? Try %q", "Zap 1a2b")
	}
	return service.Resolve(acmeCtx, arg)
}

func splitCommand(cmd string) (string, string) {
	name, arg, _ := strings.Cut(strings.TrimSpace(cmd), " ")
	return name, strings.TrimSpace(arg)
}

// Execute is triggered by button-2 click in acme.
func (w *window) Execute(cmd string) bool {
	name, arg := splitCommand(cmd)
	armed := w.zapArmed
	w.zapArmed = ""
	switch name {
	case "Search":
		if arg == "" {
			w.Err("Search needs an expression, e.g., Search @Rewe:-!")
			return true
		}
		newSearchWindow(arg)
		return true
	case "Zap":
		id, err := w.target(arg)
		if err != nil {
			w.Errf("Zap: %v", err)
			return true
		}
		if armed != id {
			w.zapArmed = id
			w.Errf("Zap again to delete %s", w.describe(id))
			return true
		}
		if err := service.Delete(acmeCtx, id); err != nil {
			w.Errf("Could not delete %s: %v", shopping.ShortID(id), err)
		} else {
			onItemZapped(id)
		}
		return true
	case "Done":
		id, err := w.target(arg)
		if err != nil {
			w.Errf("Done: %v", err)
			return true
		}
		if _, err := service.Toggle(acmeCtx, id); err != nil {
			w.Errf("Could not toggle %s: %v", shopping.ShortID(id), err)
		} else {
			onItemPut(id)
		}
		return true
	case "List":
		newListWindow()
		return true
	case "Archives":
		newArchivesWindow()
		return true
	case "Export":
		newExportWindow()
		return true
	case "Archive":
		clear := arg == "clear"
		info, err := service.Archive(acmeCtx, clear)
		if err != nil {
			w.Errf("Could not archive: %v", err)
		} else {
			log.WithField("archive", info.Name()).Info("Archived list")
			onListChanged()
		}
		return true
	case "ClearDone":
		if _, err := service.ClearDone(acmeCtx); err != nil {
			w.Errf("Could not clear completed items: %v", err)
		} else {
			onListChanged()
		}
		return true
	case "Get":
		w.load()
		return true
	case "Put", "PutDel":
		w.put(name == "PutDel")
		return true
	case "Del":
		_ = w.Del(false)
		return true
	case "New":
		newItemWindow("")
		return true
	case "Sort":
		switch w.mode {
		case modeList, modeSearch, modeArchive, modeExport:
			if w.group == shopping.ByStore {
				w.group = shopping.ByCategory
			} else {
				w.group = shopping.ByStore
			}
			w.load()
		default:
			w.Errf("Window mode does not allow sorting: %v", w.mode)
		}
		return true
	default:
		return false
	}
}

func (w *window) describe(id string) string {
	l, err := service.List(acmeCtx)
	if err == nil {
		if item, ok := l.ItemByID(id); ok {
			return fmt.Sprintf("%s (%s)", shopping.ShortID(id), item.Name)
		}
	}
	return shopping.ShortID(id)
}

func (w *window) put(del bool) {
	body, err := w.ReadAll("body")
	if err != nil {
		w.Errf("Could not read window: %v", err)
		return
	}
	form := parseItemForm(string(body))
	switch w.mode {
	case modeNewItem:
		item, err := service.Add(acmeCtx, form.draft())
		if err != nil {
			w.Errf("Failed adding item: %v", err)
			return
		}
		_ = w.Name("/shop/items/%s", shopping.ShortID(item.ID))
		w.mode = modeItem
		w.itemID = item.ID
		w.resetTag()
		_ = w.Ctl("clean")
		if del {
			_ = w.Del(true)
		}
		onItemPut(item.ID)
	case modeItem:
		l, err := service.List(acmeCtx)
		if err != nil {
			w.Errf("Could not load list: %v", err)
			return
		}
		current, ok := l.ItemByID(w.itemID)
		if !ok {
			w.Errf("Item not found: %s", shopping.ShortID(w.itemID))
			return
		}
		if patch := form.patch(current); !patch.Empty() {
			if _, err := service.Update(acmeCtx, patch); err != nil {
				w.Errf("Could not update item: %v", err)
				return
			}
		}
		_ = w.Ctl("clean")
		if del {
			_ = w.Del(true)
		}
		onItemPut(w.itemID)
	default:
		w.Errf("Put forbidden for this window mode: %v", w.mode)
	}
}

func (w *window) loop() {
	defer w.exit()
	w.EventLoop(w)
}

func onItemPut(id string) {
	all.Lock()
	defer all.Unlock()
	for _, w := range all.m {
		switch w.mode {
		case modeList, modeSearch, modeExport:
			w.load()
		case modeItem:
			if w.itemID == id {
				_ = w.Ctl("clean")
				w.load()
			}
		}
	}
}

func onItemZapped(id string) {
	all.Lock()
	defer all.Unlock()
	for _, w := range all.m {
		switch w.mode {
		case modeList, modeSearch, modeExport:
			w.load()
		case modeItem:
			if w.itemID == id {
				_ = w.Del(true)
			}
		}
	}
}

// onListChanged reloads every window that is not being edited. It runs after bulk operations and when another
// process saved the list.
func onListChanged() {
	all.Lock()
	defer all.Unlock()
	for _, w := range all.m {
		if w.mode == modeNewItem || w.isDirty() {
			continue
		}
		w.load()
	}
}

// watchedPath is the file other processes write when they change the list.
func watchedPath() string {
	if settings.Store.Backend == "sqlite" {
		return settings.Store.SQLitePath
	}
	return settings.DataFile
}

func runAcme(ctx context.Context) {
	acmeCtx = ctx
	go func() {
		if err := shopping.Watch(ctx, watchedPath(), shopping.DefaultDebounce, onListChanged); err != nil {
			log.WithField("cause", err).Warning("Not watching for changes by others")
		}
	}()

	// Create initial window showing the list.
	newListWindow()

	// The program will be terminated when the last acme window owned by this process is deleted.
	<-ctx.Done()
}
