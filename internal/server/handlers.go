package server

import (
	"context"
	"encoding/json"
	"net/http"
	"net/url"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/openverse/openverse/internal/aral"
	"github.com/openverse/openverse/internal/model"
	"github.com/openverse/openverse/internal/opml"
	"github.com/openverse/openverse/internal/table"
)

// --- Page Handlers ---

func (s *Server) handleHome(w http.ResponseWriter, r *http.Request) {
	s.metrics.pageViews.WithLabelValues("home").Inc()
	s.render(w, "home.html", map[string]interface{}{
		"Title": "OpenVerse: Open like Space",
	})
}

func (s *Server) handleAral(w http.ResponseWriter, r *http.Request) {
	s.metrics.pageViews.WithLabelValues("aral").Inc()
	view := s.aralView(r)
	tableHTML, err := table.HTML(view)
	if err != nil {
		log.Error().Err(err).Msg("Table render error")
		http.Error(w, "Render error", http.StatusInternalServerError)
		return
	}
	s.render(w, "aral.html", map[string]interface{}{
		"Title": "Aral",
		"Table": tableHTML,
		"View":  view,
	})
}

func (s *Server) handleAralTable(w http.ResponseWriter, r *http.Request) {
	s.metrics.pageViews.WithLabelValues("aral_table").Inc()
	view := s.aralView(r)
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := table.Render(w, view); err != nil {
		log.Error().Err(err).Msg("Table render error")
	}
}

// --- API Handlers ---

func (s *Server) handleResources(w http.ResponseWriter, r *http.Request) {
	t := aral.NewTable(s.loadResources(r.Context()))
	applyQuery(t, r.URL.Query())
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"column":    t.State().Column,
		"filter":    t.State().Text,
		"total":     len(t.Rows()),
		"resources": t.Visible(),
	})
}

func (s *Server) handleExportOPML(w http.ResponseWriter, r *http.Request) {
	resources, err := s.resources.ListResources(r.Context())
	if err != nil {
		log.Error().Err(err).Msg("Error fetching resources for export")
		http.Error(w, "Failed to get resources", http.StatusInternalServerError)
		return
	}
	data, err := opml.Export("OpenVerse Aral", resources)
	if err != nil {
		http.Error(w, "Failed to export", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/xml")
	w.Header().Set("Content-Disposition", "attachment; filename=aral.opml")
	w.Write(data)
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	response := map[string]interface{}{
		"status":    "healthy",
		"timestamp": time.Now().UTC(),
		"database":  s.db.DatabaseType(),
	}
	if err := s.db.Ping(ctx); err != nil {
		response["status"] = "unhealthy"
		response["error"] = err.Error()
		writeJSON(w, http.StatusServiceUnavailable, response)
		return
	}
	writeJSON(w, http.StatusOK, response)
}

// --- Helpers ---

// loadResources never fails: read errors are logged and yield an empty list.
func (s *Server) loadResources(ctx context.Context) []model.Resource {
	resources, err := s.resources.ListResources(ctx)
	if err != nil {
		log.Error().Err(err).Msg("Error fetching resources")
		s.metrics.fetchFailures.Inc()
		return []model.Resource{}
	}
	return resources
}

func (s *Server) aralView(r *http.Request) table.View {
	t := aral.NewTable(s.loadResources(r.Context()))
	applyQuery(t, r.URL.Query())
	view := t.View()
	view.Fragment = "/aral/table"
	s.metrics.visibleRows.Observe(float64(view.Visible))
	return view
}

// applyQuery replays the filter transitions encoded in a request: the text
// in q was typed against prev, then col was selected. Selecting a different
// column therefore clears the text.
func applyQuery[T table.Record](t *table.Table[T], q url.Values) {
	col := q.Get("col")
	prev := q.Get("prev")
	if prev == "" {
		prev = col
	}
	t.SelectColumn(prev)
	t.SetFilter(q.Get("q"))
	t.SelectColumn(col)
}

func (s *Server) render(w http.ResponseWriter, name string, data interface{}) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := s.templates.ExecuteTemplate(w, name, data); err != nil {
		log.Error().Err(err).Str("template", name).Msg("Template error")
		http.Error(w, "Render error", http.StatusInternalServerError)
	}
}

func writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		log.Error().Err(err).Msg("JSON encode error")
	}
}
