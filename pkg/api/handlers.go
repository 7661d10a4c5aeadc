// Package api exposes the dashboard recomputation over JSON so scripts and
// mobile clients get the exact same view the page renders. Handlers stay
// small: they translate query parameters into controller state and report
// the controller's typed errors with honest status codes.
package api

import (
	"encoding/json"
	"errors"
	"net/http"

	"rail-defect-map/pkg/dashboard"
	"rail-defect-map/pkg/dataset"
	"rail-defect-map/pkg/datastore"
	"rail-defect-map/pkg/maprender"
)

// Handler wires the controller to HTTP routes.
type Handler struct {
	Ctrl *dashboard.Controller
	Logf func(string, ...any)
}

// NewHandler constructs a Handler. Logf is optional; pass nil if logging
// is not required.
func NewHandler(ctrl *dashboard.Controller, logf func(string, ...any)) *Handler {
	return &Handler{Ctrl: ctrl, Logf: logf}
}

// Register attaches API routes to the provided mux. Kept tiny and
// declarative: URLs to helpers, nothing clever.
func (h *Handler) Register(mux *http.ServeMux) {
	mux.HandleFunc("/api", h.handleOverview)
	mux.HandleFunc("/api/dashboard", h.handleDashboard)
}

// handleOverview publishes machine-readable docs so callers can discover
// the query surface without reading source.
func (h *Handler) handleOverview(w http.ResponseWriter, r *http.Request) {
	overview := struct {
		Endpoints map[string]any `json:"endpoints"`
		Basemaps  []string       `json:"basemaps"`
	}{
		Basemaps: maprender.PresetNames(),
		Endpoints: map[string]any{
			"dashboard": map[string]any{
				"method": "GET",
				"path":   "/api/dashboard",
				"query": []string{
					"subdivision", "mode (markers|heatmap)", "basemap",
					"tile_url + tile_attribution (custom basemap)",
					"dtn_<column>", "tec_<column>",
				},
				"description": "Runs one filter/prioritize/aggregate/render pass and returns the map artifact, both tables and the selector options.",
			},
		},
	}
	h.respondJSON(w, overview)
}

// handleDashboard runs one recomputation pass for the query parameters.
func (h *Handler) handleDashboard(w http.ResponseWriter, r *http.Request) {
	view, err := h.Ctrl.View(r.Context(), StateFromQuery(r))
	if err != nil {
		status := http.StatusInternalServerError
		var loadErr *datastore.LoadError
		var schemaErr *dashboard.SchemaError
		switch {
		case errors.As(err, &loadErr):
			status = http.StatusServiceUnavailable
		case errors.As(err, &schemaErr):
			status = http.StatusUnprocessableEntity
		}
		if h.Logf != nil {
			h.Logf("dashboard pass: %v", err)
		}
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		_ = json.NewEncoder(w).Encode(map[string]string{"error": err.Error()})
		return
	}
	h.respondJSON(w, view)
}

// StateFromQuery decodes one interaction's state from URL query
// parameters. Filter selections use dtn_/tec_ prefixes per configured
// column ("dtn_Status=Open"); absent parameters fall back to the
// controller's defaults. Main reuses this for the HTML page so both
// surfaces stay in lockstep.
func StateFromQuery(r *http.Request) dashboard.State {
	q := r.URL.Query()

	st := dashboard.State{
		Subdivision: q.Get("subdivision"),
		Mode:        maprender.ModeMarkers,
	}
	if q.Get("mode") == string(maprender.ModeHeatmap) {
		st.Mode = maprender.ModeHeatmap
	}

	if tileURL := q.Get("tile_url"); tileURL != "" {
		st.Basemap = maprender.CustomTile(tileURL, q.Get("tile_attribution"))
	} else {
		st.Basemap = maprender.Preset(q.Get("basemap"))
	}

	st.DTNFilters = filtersFromQuery(q, "dtn_", dashboard.FilterColumns(dataset.DTN))
	st.TECFilters = filtersFromQuery(q, "tec_", dashboard.FilterColumns(dataset.TEC))
	return st
}

func filtersFromQuery(q map[string][]string, prefix string, columns []string) dataset.FilterSpec {
	spec := make(dataset.FilterSpec)
	for _, column := range columns {
		if vs, ok := q[prefix+column]; ok && len(vs) > 0 && vs[0] != "" {
			spec[column] = vs[0]
		}
	}
	return spec
}

func (h *Handler) respondJSON(w http.ResponseWriter, payload any) {
	w.Header().Set("Content-Type", "application/json")
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	_ = enc.Encode(payload)
}
