// Package opml handles importing and exporting the resource list as OPML.
//
// Resources are laid out as a two level outline tree: category, then field,
// with one leaf outline per resource carrying its link in htmlUrl.
package opml

import (
	"encoding/xml"
	"fmt"
	"io"
	"sort"
	"strings"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/samber/lo"

	"github.com/openverse/openverse/internal/model"
)

// OPML represents the root of an OPML document.
type OPML struct {
	XMLName xml.Name `xml:"opml"`
	Version string   `xml:"version,attr"`
	Head    Head     `xml:"head"`
	Body    Body     `xml:"body"`
}

// Head contains OPML metadata.
type Head struct {
	Title       string `xml:"title,omitempty"`
	DateCreated string `xml:"dateCreated,omitempty"`
}

// Body contains the outlines.
type Body struct {
	Outlines []Outline `xml:"outline"`
}

// Outline represents a single outline element (group or resource).
type Outline struct {
	Text     string    `xml:"text,attr"`
	Title    string    `xml:"title,attr,omitempty"`
	Type     string    `xml:"type,attr,omitempty"`
	HTMLURL  string    `xml:"htmlUrl,attr,omitempty"`
	Outlines []Outline `xml:"outline,omitempty"`
}

// Parse reads an OPML document and returns the resources it describes.
// Leaf outlines need at least a category and a field ancestor; others are skipped.
// Returned resources have no ID.
func Parse(r io.Reader) ([]model.Resource, error) {
	var doc OPML
	if err := xml.NewDecoder(r).Decode(&doc); err != nil {
		return nil, fmt.Errorf("decode opml: %w", err)
	}
	var resources []model.Resource
	var walk func(outlines []Outline, path []string)
	walk = func(outlines []Outline, path []string) {
		for _, o := range outlines {
			name := strings.TrimSpace(o.Text)
			if name == "" {
				name = strings.TrimSpace(o.Title)
			}
			if len(o.Outlines) > 0 {
				walk(o.Outlines, append(append([]string{}, path...), name))
				continue
			}
			if len(path) < 2 {
				log.Warn().Str("outline", name).Msg("Skipping outline without category and field")
				continue
			}
			resources = append(resources, model.Resource{
				SourceName: name,
				Category:   path[0],
				Field:      path[len(path)-1],
				Link:       model.NewLink(o.HTMLURL),
			})
		}
	}
	walk(doc.Body.Outlines, nil)
	return resources, nil
}

// Export generates an OPML document grouping resources by category and field.
// Groups and leaves are sorted by name.
func Export(title string, resources []model.Resource) ([]byte, error) {
	doc := OPML{
		Version: "2.0",
		Head: Head{
			Title:       title,
			DateCreated: time.Now().Format(time.RFC1123Z),
		},
	}

	byCategory := lo.GroupBy(resources, func(r model.Resource) string { return r.Category })
	for _, category := range sortedKeys(byCategory) {
		group := Outline{Text: category, Title: category}
		byField := lo.GroupBy(byCategory[category], func(r model.Resource) string { return r.Field })
		for _, field := range sortedKeys(byField) {
			sub := Outline{Text: field, Title: field}
			leaves := byField[field]
			sort.SliceStable(leaves, func(i, j int) bool { return leaves[i].SourceName < leaves[j].SourceName })
			for _, r := range leaves {
				sub.Outlines = append(sub.Outlines, Outline{
					Text:    r.SourceName,
					Title:   r.SourceName,
					Type:    "link",
					HTMLURL: r.Link.OrEmpty(),
				})
			}
			group.Outlines = append(group.Outlines, sub)
		}
		doc.Body.Outlines = append(doc.Body.Outlines, group)
	}

	output, err := xml.MarshalIndent(doc, "", "  ")
	if err != nil {
		return nil, err
	}
	return append([]byte(xml.Header), output...), nil
}

func sortedKeys(m map[string][]model.Resource) []string {
	keys := lo.Keys(m)
	sort.Strings(keys)
	return keys
}
