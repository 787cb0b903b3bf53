package export

import (
	"bytes"
	"fmt"
	"text/template"

	"github.com/nicolagi/shopping"
)

type markdownRenderer struct{}

var mdTemplate = template.Must(template.New("list").Parse(`# {{ .Title }}

*Stand: {{ .Created.Format "02.01.2006 15:04" }}*
{{ range .Groups }}
## {{ .Label }}
{{ range .Items }}
- {{ .Marker }} {{ with .Symbol }}{{ . }} {{ end }}**{{ .Name }}** ({{ .Quantity }}){{ with .Detail }} · {{ . }}{{ end }}{{ end }}
{{ else }}
Die Liste ist leer.
{{ end }}`))

func (r *markdownRenderer) Render(items []*shopping.Item, opts Options) ([]byte, error) {
	var buf bytes.Buffer
	if err := mdTemplate.Execute(&buf, newDocument(items, opts)); err != nil {
		return nil, fmt.Errorf("rendering markdown: %w", err)
	}
	return buf.Bytes(), nil
}

func (r *markdownRenderer) ContentType() string {
	return "text/markdown; charset=utf-8"
}

func (r *markdownRenderer) Extension() string {
	return ".md"
}
