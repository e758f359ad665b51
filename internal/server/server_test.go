package server

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"net/url"
	"path/filepath"
	"testing"

	"github.com/PuerkitoBio/goquery"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/openverse/openverse/internal/database"
	"github.com/openverse/openverse/internal/model"
	"github.com/openverse/openverse/internal/opml"
)

var seed = []model.Resource{
	{SourceName: "Test Source 1", Category: "Category A", Field: "Field 1", Link: model.NewLink("https://one.example")},
	{SourceName: "Test Source 2", Category: "Category B", Field: "Field 2"},
	{SourceName: "Another Source", Category: "Category A", Field: "Field 3"},
	{SourceName: "Different Source", Category: "Category C", Field: "Field 1"},
	{SourceName: "Final Source", Category: "Category B", Field: "Field 4"},
}

func newTestServer(t *testing.T, resources []model.Resource, opts ...Option) *Server {
	t.Helper()
	db, err := database.New(filepath.Join(t.TempDir(), "server.db"))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	for _, r := range resources {
		_, err := db.UpsertResource(context.Background(), &r)
		require.NoError(t, err)
	}
	s, err := New(db, opts...)
	require.NoError(t, err)
	return s
}

func get(t *testing.T, s *Server, target string) *httptest.ResponseRecorder {
	t.Helper()
	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, target, nil))
	return rec
}

func getDoc(t *testing.T, s *Server, target string) *goquery.Document {
	t.Helper()
	rec := get(t, s, target)
	require.Equal(t, http.StatusOK, rec.Code)
	doc, err := goquery.NewDocumentFromReader(rec.Body)
	require.NoError(t, err)
	return doc
}

func sourceNames(doc *goquery.Document) []string {
	var out []string
	doc.Find("tbody tr:not(.datatable-empty)").Each(func(_ int, s *goquery.Selection) {
		out = append(out, s.Find("td").First().Text())
	})
	return out
}

type failingProvider struct{}

func (failingProvider) ListResources(context.Context) ([]model.Resource, error) {
	return nil, errors.New("connection reset")
}

func TestHome(t *testing.T) {
	doc := getDoc(t, newTestServer(t, nil), "/")
	assert.Contains(t, doc.Find("h1").Text(), "OpenVerse:")
	assert.Contains(t, doc.Find("h1").Text(), "Open like Space")
	assert.Equal(t, "Open-Source Version of Paraverse", doc.Find("h2").Text())
	assert.Equal(t, 1, doc.Find(`main a[href="/aral"]`).Length())
}

func TestAralListsResources(t *testing.T) {
	doc := getDoc(t, newTestServer(t, seed), "/aral")

	assert.Equal(t, []string{"Another Source", "Different Source", "Final Source", "Test Source 1", "Test Source 2"}, sourceNames(doc))
	link := doc.Find(`tbody a[href="https://one.example"]`)
	require.Equal(t, 1, link.Length())
	assert.Equal(t, "_blank", link.AttrOr("target", ""))
	assert.Equal(t, "noopener noreferrer", link.AttrOr("rel", ""))
	assert.Equal(t, "Filter by source_name...", doc.Find("input[name=q]").AttrOr("placeholder", ""))
	assert.Equal(t, 1, doc.Find(`script[src="/static/aral.js"]`).Length())
}

func TestAralFilters(t *testing.T) {
	s := newTestServer(t, seed)

	tests := []struct {
		name  string
		query url.Values
		want  []string
		text  string
	}{
		{"source name", url.Values{"q": {"Test"}}, []string{"Test Source 1", "Test Source 2"}, "Test"},
		{"case insensitive", url.Values{"q": {"test"}}, []string{"Test Source 1", "Test Source 2"}, "test"},
		{"category", url.Values{"col": {"category"}, "q": {"Category A"}}, []string{"Another Source", "Test Source 1"}, "Category A"},
		{"column switch resets text", url.Values{"prev": {"source_name"}, "col": {"category"}, "q": {"Test"}},
			[]string{"Another Source", "Different Source", "Final Source", "Test Source 1", "Test Source 2"}, ""},
		{"same column keeps text", url.Values{"prev": {"category"}, "col": {"category"}, "q": {"b"}}, []string{"Final Source", "Test Source 2"}, "b"},
		{"unknown column falls back", url.Values{"col": {"link"}, "q": {"Final"}}, []string{"Final Source"}, "Final"},
		{"cleared text", url.Values{"q": {""}}, []string{"Another Source", "Different Source", "Final Source", "Test Source 1", "Test Source 2"}, ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			doc := getDoc(t, s, "/aral?"+tt.query.Encode())
			assert.Equal(t, tt.want, sourceNames(doc))
			assert.Equal(t, tt.text, doc.Find("input[name=q]").AttrOr("value", ""))
		})
	}
}

func TestAralEmptyState(t *testing.T) {
	t.Run("empty store", func(t *testing.T) {
		doc := getDoc(t, newTestServer(t, nil), "/aral")
		rows := doc.Find("tbody tr")
		require.Equal(t, 1, rows.Length())
		assert.Equal(t, "No results.", rows.Find("td").Text())
		assert.Equal(t, "3", rows.Find("td").AttrOr("colspan", ""))
	})

	t.Run("no matches", func(t *testing.T) {
		doc := getDoc(t, newTestServer(t, seed), "/aral?q=nothing")
		assert.Equal(t, "No results.", doc.Find("tbody td").Text())
	})

	t.Run("upstream failure renders empty table", func(t *testing.T) {
		doc := getDoc(t, newTestServer(t, seed, WithProvider(failingProvider{})), "/aral")
		assert.Equal(t, "No results.", doc.Find("tbody td").Text())
	})
}

func TestAralTableFragment(t *testing.T) {
	rec := get(t, newTestServer(t, seed), "/aral/table?q=Source-With")
	require.Equal(t, http.StatusOK, rec.Code)
	body := rec.Body.String()
	assert.NotContains(t, body, "<html")
	assert.Contains(t, body, `id="datatable"`)
	assert.Contains(t, body, `data-fragment="/aral/table"`)
	assert.Contains(t, body, "No results.")
}

func TestResourcesAPI(t *testing.T) {
	s := newTestServer(t, seed)
	rec := get(t, s, "/api/resources?col=category&q=category+b")
	require.Equal(t, http.StatusOK, rec.Code)

	var body struct {
		Column    string           `json:"column"`
		Filter    string           `json:"filter"`
		Total     int              `json:"total"`
		Resources []model.Resource `json:"resources"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "category", body.Column)
	assert.Equal(t, 5, body.Total)
	require.Len(t, body.Resources, 2)
	assert.Equal(t, "Final Source", body.Resources[0].SourceName)
	assert.Equal(t, "Test Source 2", body.Resources[1].SourceName)
}

func TestResourcesAPICORS(t *testing.T) {
	s := newTestServer(t, nil)
	req := httptest.NewRequest(http.MethodGet, "/api/resources", nil)
	req.Header.Set("Origin", "https://elsewhere.example")
	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, req)
	assert.Equal(t, "*", rec.Header().Get("Access-Control-Allow-Origin"))
}

func TestExportOPML(t *testing.T) {
	rec := get(t, newTestServer(t, seed), "/api/export-opml")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "application/xml", rec.Header().Get("Content-Type"))

	parsed, err := opml.Parse(rec.Body)
	require.NoError(t, err)
	assert.Len(t, parsed, len(seed))
}

func TestExportOPMLFailure(t *testing.T) {
	rec := get(t, newTestServer(t, nil, WithProvider(failingProvider{})), "/api/export-opml")
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
}

func TestHealth(t *testing.T) {
	rec := get(t, newTestServer(t, nil), "/health")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"status":"healthy"`)
	assert.Contains(t, rec.Body.String(), `"database":"SQLite"`)
}

func TestMetrics(t *testing.T) {
	s := newTestServer(t, seed, WithProvider(failingProvider{}))
	get(t, s, "/aral")
	get(t, s, "/")

	rec := get(t, s, "/metrics")
	require.Equal(t, http.StatusOK, rec.Code)
	body := rec.Body.String()
	assert.Contains(t, body, `openverse_page_views_total{page="aral"} 1`)
	assert.Contains(t, body, `openverse_page_views_total{page="home"} 1`)
	assert.Contains(t, body, "openverse_resource_fetch_failures_total 1")
}

func TestStatic(t *testing.T) {
	s := newTestServer(t, nil)
	for _, path := range []string{"/static/style.css", "/static/aral.js"} {
		assert.Equal(t, http.StatusOK, get(t, s, path).Code, path)
	}
}
