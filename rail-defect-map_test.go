package main

import (
	"bytes"
	"strings"
	"testing"

	"rail-defect-map/pkg/dashboard"
	"rail-defect-map/pkg/dataset"
	"rail-defect-map/pkg/maprender"
)

func renderPage(t *testing.T, data pageData) string {
	t.Helper()
	var buf bytes.Buffer
	if err := pageTemplate.Execute(&buf, data); err != nil {
		t.Fatalf("execute page template: %v", err)
	}
	return buf.String()
}

func testView(t *testing.T, basemap maprender.BasemapSpec) dashboard.View {
	t.Helper()
	d := dataset.Dataset{
		Type:    dataset.DTN,
		Columns: []string{"Subdivision", "Latitude", "Longitude"},
		Rows:    [][]string{{"WILKIE", "52.1", "-108.2"}},
	}
	return dashboard.View{
		Subdivision:  "WILKIE",
		Subdivisions: dashboard.DefaultSubdivisions,
		DTN:          dashboard.Table{Type: dataset.DTN, Data: d, RowCount: 1},
		TEC:          dashboard.Table{Type: dataset.TEC},
		Map:          maprender.Render(d, dataset.Dataset{Type: dataset.TEC}, maprender.ModeMarkers, basemap),
	}
}

// TestPageTemplateError: a failed pass shows the message and suppresses
// the rest of the page — no form, no map script.
func TestPageTemplateError(t *testing.T) {
	t.Parallel()

	out := renderPage(t, pageData{
		Err:      "load csv:dtn.csv: no such file",
		Version:  "test",
		Basemaps: maprender.PresetNames(),
	})
	if !strings.Contains(out, "load csv:dtn.csv: no such file") {
		t.Error("error message missing from page")
	}
	if strings.Contains(out, "<form") || strings.Contains(out, "const artifact") {
		t.Error("error page should not render the dashboard")
	}
}

// TestPageTemplateArtifact: the map artifact lands in the script as a JSON
// object literal, not an escaped string.
func TestPageTemplateArtifact(t *testing.T) {
	t.Parallel()

	view := testView(t, maprender.Preset("OpenTopoMap"))
	out := renderPage(t, pageData{View: &view, Version: "test", Basemaps: maprender.PresetNames()})

	if !strings.Contains(out, `const artifact = {"center"`) {
		t.Error("artifact not embedded as an object literal")
	}
	if strings.Contains(out, ">Custom</option>") {
		t.Error("preset basemap should not show a Custom option")
	}
}

// TestPageTemplateCustomBasemap: a custom tile layer resolves to a name
// outside the preset list, and the selector shows it as a disabled entry
// instead of showing nothing selected.
func TestPageTemplateCustomBasemap(t *testing.T) {
	t.Parallel()

	view := testView(t, maprender.CustomTile("https://tiles.example/{z}/{x}/{y}.png", "© Example"))
	out := renderPage(t, pageData{View: &view, Version: "test", Basemaps: maprender.PresetNames()})

	if !strings.Contains(out, "<option selected disabled>Custom</option>") {
		t.Error("custom basemap should surface as a disabled selected option")
	}
}
