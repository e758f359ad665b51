// Package aral declares how Resources are shown on the Aral page.
package aral

import (
	"html/template"
	"net/url"

	"github.com/openverse/openverse/internal/model"
	"github.com/openverse/openverse/internal/table"
)

// Columns returns the column schema of the Aral table. The source name links
// to the resource when it has a usable link.
func Columns() []table.Column[model.Resource] {
	return []table.Column[model.Resource]{
		{
			Key:   model.KeySourceName,
			Label: "Source Name",
			Render: func(r model.Resource) template.HTML {
				return ExternalLink(r.Link.OrEmpty(), r.SourceName)
			},
		},
		{Key: model.KeyCategory, Label: "Category"},
		{Key: model.KeyField, Label: "Field"},
	}
}

// NewTable builds the Aral table over rows.
func NewTable(rows []model.Resource) *table.Table[model.Resource] {
	// Columns is static and valid.
	t, _ := table.New(Columns(), rows)
	return t
}

// ExternalLink renders text as a link opening in a new browsing context
// without opener access. Anything other than an absolute http(s) URL is
// rendered as plain text.
func ExternalLink(href, text string) template.HTML {
	escaped := template.HTMLEscapeString(text)
	u, err := url.Parse(href)
	if href == "" || err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return template.HTML(escaped)
	}
	return template.HTML(`<a href="` + template.HTMLEscapeString(u.String()) +
		`" target="_blank" rel="noopener noreferrer">` + escaped + `</a>`)
}
