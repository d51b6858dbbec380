package report

import (
	"io"

	"github.com/jung-kurt/gofpdf"
)

const (
	pageWidth   = 277.0 // A4 landscape minus margins, mm
	lineHeight  = 7.0
	headerShade = 220
)

type pdfRenderer struct{}

func (pdfRenderer) Extension() string   { return "pdf" }
func (pdfRenderer) ContentType() string { return "application/pdf" }

func (pdfRenderer) Render(w io.Writer, t *Table) error {
	pdf := gofpdf.New("L", "mm", "A4", "")
	tr := pdf.UnicodeTranslatorFromDescriptor("")
	pdf.SetTitle(t.Title, true)
	pdf.AddPage()

	pdf.SetFont("Helvetica", "B", 16)
	pdf.CellFormat(0, 10, tr(t.Title), "", 1, "L", false, 0, "")
	if t.Period != "" {
		pdf.SetFont("Helvetica", "", 10)
		pdf.CellFormat(0, 6, tr(t.Period), "", 1, "L", false, 0, "")
	}
	pdf.Ln(4)

	colWidth := pageWidth
	if len(t.Columns) > 0 {
		colWidth = pageWidth / float64(len(t.Columns))
	}
	pdf.SetFont("Helvetica", "B", 9)
	pdf.SetFillColor(headerShade, headerShade, headerShade)
	for _, col := range t.Columns {
		pdf.CellFormat(colWidth, lineHeight, tr(col), "1", 0, "C", true, 0, "")
	}
	pdf.Ln(-1)

	pdf.SetFont("Helvetica", "", 9)
	for _, row := range t.Rows {
		for i := range t.Columns {
			var cell string
			if i < len(row) {
				cell = row[i]
			}
			pdf.CellFormat(colWidth, lineHeight, tr(cell), "1", 0, "L", false, 0, "")
		}
		pdf.Ln(-1)
	}

	if len(t.Totals) > 0 {
		pdf.Ln(4)
		pdf.SetFont("Helvetica", "B", 10)
		for _, kv := range t.Totals {
			pdf.CellFormat(60, lineHeight, tr(kv[0]), "", 0, "L", false, 0, "")
			pdf.CellFormat(0, lineHeight, tr(kv[1]), "", 1, "L", false, 0, "")
		}
	}
	return pdf.Output(w)
}
