package export

import (
	"encoding/json"
	"time"

	"github.com/nicolagi/shopping"
)

type jsonRenderer struct{}

type jsonGroup struct {
	Label string           `json:"label"`
	Items []*shopping.Item `json:"items"`
}

type jsonDocument struct {
	Title   string      `json:"title"`
	Created time.Time   `json:"created"`
	Groups  []jsonGroup `json:"groups"`
}

func (r *jsonRenderer) Render(items []*shopping.Item, opts Options) ([]byte, error) {
	doc := newDocument(items, opts)
	out := jsonDocument{Title: doc.Title, Created: doc.Created, Groups: []jsonGroup{}}
	for _, s := range doc.Groups {
		g := jsonGroup{Label: s.Label}
		for _, e := range s.Items {
			g.Items = append(g.Items, e.Item)
		}
		out.Groups = append(out.Groups, g)
	}
	return json.MarshalIndent(out, "", "  ")
}

func (r *jsonRenderer) ContentType() string {
	return "application/json"
}

func (r *jsonRenderer) Extension() string {
	return ".json"
}
