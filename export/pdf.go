//go:build !nopdf

package export

import (
	"bytes"
	"fmt"

	"github.com/go-pdf/fpdf"
	"github.com/nicolagi/shopping"
)

const (
	pdfMargin  = 15.0
	pdfLine    = 7.0
	pdfBoxSize = 4.0
)

type pdfRenderer struct{}

func newPDFRenderer() (Renderer, error) {
	return &pdfRenderer{}, nil
}

// Render lays the list out on A4 pages with a box to tick per item. The core fonts only cover cp1252, which is
// enough for German; symbols (emoji) are left out.
func (r *pdfRenderer) Render(items []*shopping.Item, opts Options) ([]byte, error) {
	doc := newDocument(items, opts)
	pdf := fpdf.New("P", "mm", "A4", "")
	pdf.SetMargins(pdfMargin, pdfMargin, pdfMargin)
	pdf.SetAutoPageBreak(true, pdfMargin)
	// Stable output for a given list and time.
	pdf.SetCatalogSort(true)
	pdf.SetCreationDate(doc.Created)
	pdf.SetModificationDate(doc.Created)
	tr := pdf.UnicodeTranslatorFromDescriptor("")
	pdf.SetTitle(tr(doc.Title), false)
	pdf.AddPage()

	pdf.SetFont("Helvetica", "B", 18)
	pdf.CellFormat(0, 10, tr(doc.Title), "", 1, "L", false, 0, "")
	pdf.SetFont("Helvetica", "I", 9)
	pdf.CellFormat(0, 6, tr("Stand: "+doc.Created.Format("02.01.2006 15:04")), "", 1, "L", false, 0, "")
	if len(doc.Groups) == 0 {
		pdf.Ln(4)
		pdf.SetFont("Helvetica", "", 11)
		pdf.CellFormat(0, pdfLine, tr("Die Liste ist leer."), "", 1, "L", false, 0, "")
	}
	for _, s := range doc.Groups {
		pdf.Ln(3)
		pdf.SetFont("Helvetica", "B", 13)
		pdf.CellFormat(0, 8, tr(s.Label), "B", 1, "L", false, 0, "")
		pdf.SetFont("Helvetica", "", 11)
		for _, e := range s.Items {
			x, y := pdf.GetX(), pdf.GetY()
			top := y + (pdfLine-pdfBoxSize)/2
			pdf.Rect(x, top, pdfBoxSize, pdfBoxSize, "D")
			if e.Done {
				pdf.Line(x, top, x+pdfBoxSize, top+pdfBoxSize)
				pdf.Line(x, top+pdfBoxSize, x+pdfBoxSize, top)
			}
			pdf.SetX(x + pdfBoxSize + 2)
			text := fmt.Sprintf("%s (%s)", e.Name, e.Quantity)
			if e.Detail != "" {
				text += " - " + e.Detail
			}
			pdf.CellFormat(0, pdfLine, tr(text), "", 1, "L", false, 0, "")
		}
	}

	var buf bytes.Buffer
	if err := pdf.Output(&buf); err != nil {
		return nil, fmt.Errorf("rendering pdf: %w", err)
	}
	return buf.Bytes(), nil
}

func (r *pdfRenderer) ContentType() string {
	return "application/pdf"
}

func (r *pdfRenderer) Extension() string {
	return ".pdf"
}
