package table

import (
	"bytes"
	"embed"
	"html/template"
	"io"
)

//go:embed templates/*.html
var templatesFS embed.FS

var templates = template.Must(template.ParseFS(templatesFS, "templates/*.html"))

// Header is a column header and select option.
type Header struct {
	Key    string
	Label  string
	Active bool
}

// Cell is one rendered table cell. Custom cells carry trusted HTML from a
// column's Render function; others carry plain text.
type Cell struct {
	Text   string
	HTML   template.HTML
	Custom bool
}

// Row is one rendered body row.
type Row struct {
	Cells []Cell
}

// View is the render-ready form of a table in its current state.
// Fragment, when set by the caller, is the URL serving the table fragment
// alone so the page can update it in place.
type View struct {
	Headers      []Header
	Rows         []Row
	Column       string
	Text         string
	Placeholder  string
	Span         int
	Total        int
	Visible      int
	EmptyMessage string
	Fragment     string
}

// Empty reports whether the view shows the placeholder row.
func (v View) Empty() bool {
	return len(v.Rows) == 0
}

// View computes the visible rows and their cells.
// A panic raised by a column's Render function is not recovered.
func (t *Table[T]) View() View {
	visible := t.Visible()
	v := View{
		Headers:      make([]Header, 0, len(t.columns)),
		Rows:         make([]Row, 0, len(visible)),
		Column:       t.state.Column,
		Text:         t.state.Text,
		Placeholder:  "Filter by " + t.state.Column + "...",
		Span:         len(t.columns),
		Total:        len(t.rows),
		Visible:      len(visible),
		EmptyMessage: EmptyMessage,
	}
	for _, c := range t.columns {
		v.Headers = append(v.Headers, Header{Key: c.Key, Label: c.Label, Active: c.Key == t.state.Column})
	}
	for _, row := range visible {
		cells := make([]Cell, 0, len(t.columns))
		for _, c := range t.columns {
			if c.Render != nil {
				cells = append(cells, Cell{HTML: c.Render(row), Custom: true})
				continue
			}
			text, _ := row.Value(c.Key)
			cells = append(cells, Cell{Text: text})
		}
		v.Rows = append(v.Rows, Row{Cells: cells})
	}
	return v
}

// Render writes the table fragment for v.
func Render(w io.Writer, v View) error {
	return templates.ExecuteTemplate(w, "datatable", v)
}

// HTML renders v into a value that can be embedded in another template.
func HTML(v View) (template.HTML, error) {
	var buf bytes.Buffer
	if err := Render(&buf, v); err != nil {
		return "", err
	}
	return template.HTML(buf.String()), nil
}
