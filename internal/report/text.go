package report

import (
	"encoding/csv"
	"encoding/json"
	"html/template"
	"io"
)

type csvRenderer struct{}

func (csvRenderer) Extension() string   { return "csv" }
func (csvRenderer) ContentType() string { return "text/csv" }

func (csvRenderer) Render(w io.Writer, t *Table) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(t.Columns); err != nil {
		return err
	}
	if err := cw.WriteAll(t.Rows); err != nil {
		return err
	}
	for _, kv := range t.Totals {
		if err := cw.Write([]string{kv[0], kv[1]}); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

type jsonRenderer struct{}

func (jsonRenderer) Extension() string   { return "json" }
func (jsonRenderer) ContentType() string { return "application/json" }

func (jsonRenderer) Render(w io.Writer, t *Table) error {
	rows := make([]map[string]string, 0, len(t.Rows))
	for _, row := range t.Rows {
		m := make(map[string]string, len(t.Columns))
		for i, col := range t.Columns {
			if i < len(row) {
				m[col] = row[i]
			}
		}
		rows = append(rows, m)
	}
	totals := make(map[string]string, len(t.Totals))
	for _, kv := range t.Totals {
		totals[kv[0]] = kv[1]
	}
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(map[string]any{
		"title":  t.Title,
		"period": t.Period,
		"rows":   rows,
		"totals": totals,
	})
}

var htmlTemplate = template.Must(template.New("report").Parse(`<!DOCTYPE html>
<html><head><meta charset="utf-8"><title>{{.Title}}</title></head>
<body>
<h1>{{.Title}}</h1>
{{with .Period}}<p>{{.}}</p>{{end}}
<table border="1">
<thead><tr>{{range .Columns}}<th>{{.}}</th>{{end}}</tr></thead>
<tbody>{{range .Rows}}<tr>{{range .}}<td>{{.}}</td>{{end}}</tr>{{end}}</tbody>
</table>
{{with .Totals}}<dl>{{range .}}<dt>{{index . 0}}</dt><dd>{{index . 1}}</dd>{{end}}</dl>{{end}}
</body></html>
`))

type htmlRenderer struct{}

func (htmlRenderer) Extension() string   { return "html" }
func (htmlRenderer) ContentType() string { return "text/html; charset=utf-8" }

func (htmlRenderer) Render(w io.Writer, t *Table) error {
	return htmlTemplate.Execute(w, t)
}
