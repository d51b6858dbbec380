// Package report renders tabular reports to the supported file formats.
package report

import (
	"fmt"
	"io"
)

// Table is the format independent content of a report.
type Table struct {
	Title   string
	Period  string
	Columns []string
	Rows    [][]string
	// Totals are label/value pairs printed after the rows.
	Totals [][2]string
}

// Renderer writes a Table in one format.
type Renderer interface {
	Render(w io.Writer, t *Table) error
	Extension() string
	ContentType() string
}

// For returns the renderer of format. Excel output is CSV, which
// spreadsheet tools open directly.
func For(format string) (Renderer, error) {
	switch format {
	case "pdf":
		return pdfRenderer{}, nil
	case "csv", "excel":
		return csvRenderer{}, nil
	case "json":
		return jsonRenderer{}, nil
	case "html":
		return htmlRenderer{}, nil
	default:
		return nil, fmt.Errorf("unsupported report format %q", format)
	}
}
