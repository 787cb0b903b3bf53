// Package export renders the shopping list as a document: Markdown for reading and pasting into chats, JSON for
// other programs, and PDF for printing.
package export

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/glamour"
	"github.com/nicolagi/shopping"
)

// DefaultTitle heads every exported document unless Options.Title says otherwise.
const DefaultTitle = "Familien Einkaufsliste"

// ErrUnavailable is returned by NewRenderer for formats left out of the build (see the nopdf build tag).
var ErrUnavailable = errors.New("export format not available in this build")

// Options control what goes into a document.
type Options struct {
	Title   string
	Group   shopping.GroupKey
	Order   []string  // Group labels that come first, in this order; the rest follow alphabetically.
	Pending bool      // Leave out completed items.
	Created time.Time // Printed in the document; zero means now.
}

// Renderer formats a list of items into bytes for output.
type Renderer interface {
	Render(items []*shopping.Item, opts Options) ([]byte, error)
	// ContentType is the MIME type of the rendered bytes.
	ContentType() string
	// Extension is the file name extension, with the dot.
	Extension() string
}

// NewRenderer returns a Renderer for the given format string.
// Supported formats: "md" (default), "json", "pdf".
func NewRenderer(format string) (Renderer, error) {
	switch strings.ToLower(format) {
	case "", "md", "markdown":
		return &markdownRenderer{}, nil
	case "json":
		return &jsonRenderer{}, nil
	case "pdf":
		return newPDFRenderer()
	default:
		return nil, fmt.Errorf("unknown format %q: supported formats are md, json, pdf", format)
	}
}

// Pretty renders Markdown for display on a terminal.
func Pretty(md []byte, width int) (string, error) {
	if width <= 0 {
		width = 80
	}
	r, err := glamour.NewTermRenderer(
		glamour.WithAutoStyle(),
		glamour.WithWordWrap(width),
	)
	if err != nil {
		return "", err
	}
	return r.Render(string(md))
}

type document struct {
	Title   string
	Created time.Time
	Groups  []section
}

type section struct {
	Label string
	Items []entry
}

type entry struct {
	*shopping.Item
	Detail string // Store or category, whichever the document is not grouped by, plus the orderer.
}

// Marker is the checkbox of a Markdown task list.
func (e entry) Marker() string {
	if e.Done {
		return "[x]"
	}
	return "[ ]"
}

func newDocument(items []*shopping.Item, opts Options) document {
	doc := document{Title: opts.Title, Created: opts.Created}
	if doc.Title == "" {
		doc.Title = DefaultTitle
	}
	if doc.Created.IsZero() {
		doc.Created = time.Now()
	}
	if opts.Pending {
		var pending []*shopping.Item
		for _, item := range items {
			if !item.Done {
				pending = append(pending, item)
			}
		}
		items = pending
	}
	groups := shopping.GroupItems(items, opts.Group)
	shopping.SortGroups(groups, opts.Order...)
	for _, g := range groups {
		s := section{Label: g.Label}
		for _, item := range g.Items {
			s.Items = append(s.Items, entry{Item: item, Detail: detail(item, opts.Group)})
		}
		doc.Groups = append(doc.Groups, s)
	}
	return doc
}

func detail(item *shopping.Item, key shopping.GroupKey) string {
	d := item.Store
	if key == shopping.ByStore {
		d = item.Category
	}
	if item.OrderedBy != "" {
		d += ", für " + item.OrderedBy
	}
	return d
}
