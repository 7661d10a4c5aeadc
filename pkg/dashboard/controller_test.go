package dashboard

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"reflect"
	"sync"
	"testing"

	"rail-defect-map/pkg/dataset"
	"rail-defect-map/pkg/datastore"
	"rail-defect-map/pkg/geo"
	"rail-defect-map/pkg/maprender"
)

func writeCSV(t *testing.T, name, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

const dtnCSV = "Subdivision,Status,Asset,MP,Latitude,Longitude\n" +
	"WILKIE,Open,Rail,12.4,52.10,-108.20\n" +
	"WILKIE,Closed,Tie,13.1,52.20,-108.30\n" +
	"WILKIE,Open,Switch,14.9,,\n" +
	"WYNYARD,Open,Rail,88.0,51.80,-104.20\n"

const tecCSV = "Subdivision,Status,Sys,Severity,MP,Latitude,Longitude\n" +
	"WILKIE,Confirmed,GEO,Urgent,12.0,52.11,-108.21\n" +
	"WILKIE,Confirmed,GEO,Minor,12.5,52.12,-108.22\n" +
	"WILKIE,Unconfirmed,GEO,Urgent,13.0,52.13,-108.23\n"

func newTestController(t *testing.T, dtnBody, tecBody string) *Controller {
	t.Helper()
	dtn := datastore.Source{Kind: datastore.SourceCSV, Type: dataset.DTN, Path: writeCSV(t, "dtn.csv", dtnBody)}
	tec := datastore.Source{Kind: datastore.SourceCSV, Type: dataset.TEC, Path: writeCSV(t, "tec.csv", tecBody)}
	return NewController(datastore.NewStore(), dtn, tec, nil)
}

// TestViewEndToEnd runs the WILKIE / DTN {Status: Open} scenario: the DTN
// table holds exactly the rows matching both constraints and the reported
// row count equals the table length.
func TestViewEndToEnd(t *testing.T) {
	t.Parallel()

	ctrl := newTestController(t, dtnCSV, tecCSV)
	view, err := ctrl.View(context.Background(), State{
		Subdivision: "WILKIE",
		DTNFilters:  dataset.FilterSpec{"Status": "Open"},
	})
	if err != nil {
		t.Fatalf("View: %v", err)
	}

	if view.DTN.RowCount != len(view.DTN.Data.Rows) {
		t.Errorf("displayed count %d != table length %d", view.DTN.RowCount, len(view.DTN.Data.Rows))
	}
	if view.DTN.RowCount != 2 {
		t.Errorf("DTN rows = %d, want 2", view.DTN.RowCount)
	}
	for i := 0; i < view.DTN.Data.Len(); i++ {
		if view.DTN.Data.Cell(i, "Subdivision") != "WILKIE" || view.DTN.Data.Cell(i, "Status") != "Open" {
			t.Errorf("row %d escaped the filters: %v", i, view.DTN.Data.Rows[i])
		}
	}

	// Priority columns lead the schema; the rest keep source order.
	cols := view.DTN.Data.Columns
	if cols[0] != "MP" || cols[1] != "Asset" {
		t.Errorf("DTN priority columns not applied: %v", cols)
	}
}

// TestViewDefaultFallback: the TEC defaults include Sys=TGMS, which this
// data never contains, so that one constraint silently becomes All while
// Status=Confirmed and Severity=Urgent still apply.
func TestViewDefaultFallback(t *testing.T) {
	t.Parallel()

	ctrl := newTestController(t, dtnCSV, tecCSV)
	view, err := ctrl.View(context.Background(), State{Subdivision: "WILKIE"})
	if err != nil {
		t.Fatalf("View: %v", err)
	}

	if view.TEC.RowCount != 1 {
		t.Fatalf("TEC rows = %d, want 1 (Confirmed + Urgent, Sys unconstrained)", view.TEC.RowCount)
	}
	if got := view.TEC.Data.Cell(0, "Sys"); got != "GEO" {
		t.Errorf("surviving row Sys = %q, want GEO", got)
	}

	for _, opt := range view.TECFilters {
		switch opt.Column {
		case "Sys":
			if opt.Selected != dataset.All {
				t.Errorf("Sys selector = %q, want fallback to All", opt.Selected)
			}
		case "Status":
			if opt.Selected != "Confirmed" {
				t.Errorf("Status selector = %q, want default Confirmed", opt.Selected)
			}
		case "Severity":
			if opt.Selected != "Urgent" {
				t.Errorf("Severity selector = %q, want default Urgent", opt.Selected)
			}
		}
	}
}

// TestViewSchemaError: a feed without the Subdivision column halts the
// pass with a SchemaError naming the dataset.
func TestViewSchemaError(t *testing.T) {
	t.Parallel()

	ctrl := newTestController(t, "Status,Asset\nOpen,Rail\n", tecCSV)
	_, err := ctrl.View(context.Background(), State{Subdivision: "WILKIE"})

	var schemaErr *SchemaError
	if !errors.As(err, &schemaErr) {
		t.Fatalf("View error = %v, want *SchemaError", err)
	}
	if schemaErr.Dataset != dataset.DTN || schemaErr.Column != SubdivisionColumn {
		t.Errorf("SchemaError = %+v", schemaErr)
	}
}

// TestViewLoadError: a missing source halts the pass with the datastore's
// LoadError; nothing panics and no partial view leaks out.
func TestViewLoadError(t *testing.T) {
	t.Parallel()

	dtn := datastore.Source{Kind: datastore.SourceCSV, Type: dataset.DTN, Path: "/no/such/dtn.csv"}
	tec := datastore.Source{Kind: datastore.SourceCSV, Type: dataset.TEC, Path: "/no/such/tec.csv"}
	ctrl := NewController(datastore.NewStore(), dtn, tec, nil)

	_, err := ctrl.View(context.Background(), State{})
	var loadErr *datastore.LoadError
	if !errors.As(err, &loadErr) {
		t.Fatalf("View error = %v, want *LoadError", err)
	}
}

// TestViewEmptyResults: a filter combination matching nothing still
// renders — empty tables, empty layers, fallback map center.
func TestViewEmptyResults(t *testing.T) {
	t.Parallel()

	ctrl := newTestController(t, dtnCSV, tecCSV)
	view, err := ctrl.View(context.Background(), State{
		Subdivision: "WILKIE",
		DTNFilters:  dataset.FilterSpec{"Status": "NoSuchStatus"},
		TECFilters:  dataset.FilterSpec{"Status": "NoSuchStatus"},
	})
	if err != nil {
		t.Fatalf("View: %v", err)
	}
	if view.DTN.RowCount != 0 || view.TEC.RowCount != 0 {
		t.Errorf("counts = %d/%d, want 0/0", view.DTN.RowCount, view.TEC.RowCount)
	}
	if view.Map.Center != geo.Fallback {
		t.Errorf("map center = %+v, want fallback", view.Map.Center)
	}
}

// TestViewMode: the render mode toggles through untouched and defaults to
// markers.
func TestViewMode(t *testing.T) {
	t.Parallel()

	ctrl := newTestController(t, dtnCSV, tecCSV)

	heat, err := ctrl.View(context.Background(), State{Subdivision: "WILKIE", Mode: maprender.ModeHeatmap})
	if err != nil {
		t.Fatal(err)
	}
	if heat.Map.Mode != maprender.ModeHeatmap || len(heat.Map.Clusters) != 0 {
		t.Errorf("heatmap view mode = %s clusters = %d", heat.Map.Mode, len(heat.Map.Clusters))
	}

	def, err := ctrl.View(context.Background(), State{Subdivision: "WILKIE"})
	if err != nil {
		t.Fatal(err)
	}
	if def.Map.Mode != maprender.ModeMarkers {
		t.Errorf("default mode = %s, want markers", def.Map.Mode)
	}
}

// TestViewSubdivisionDefaultAndOptions: an empty selection falls back to
// the first configured subdivision, and selector options are All plus the
// values observed within the scoped data.
func TestViewSubdivisionDefaultAndOptions(t *testing.T) {
	t.Parallel()

	ctrl := newTestController(t, dtnCSV, tecCSV)
	view, err := ctrl.View(context.Background(), State{})
	if err != nil {
		t.Fatal(err)
	}
	if view.Subdivision != DefaultSubdivisions[0] {
		t.Errorf("default subdivision = %q, want %q", view.Subdivision, DefaultSubdivisions[0])
	}

	wilkie, err := ctrl.View(context.Background(), State{Subdivision: "WILKIE"})
	if err != nil {
		t.Fatal(err)
	}
	for _, opt := range wilkie.DTNFilters {
		if opt.Column == "Status" {
			want := []string{dataset.All, "Open", "Closed"}
			if !reflect.DeepEqual(opt.Values, want) {
				t.Errorf("Status options = %v, want %v", opt.Values, want)
			}
		}
	}
}

// TestTrackingFlag: start/stop toggle the placeholder flag and the view
// reports it; nothing else changes.
func TestTrackingFlag(t *testing.T) {
	ctrl := newTestController(t, dtnCSV, tecCSV)
	if ctrl.TrackingActive() {
		t.Fatal("tracking should start inactive")
	}
	ctrl.StartTracking()
	view, err := ctrl.View(context.Background(), State{Subdivision: "WILKIE"})
	if err != nil {
		t.Fatal(err)
	}
	if !view.LiveTracking {
		t.Error("view should report the raised flag")
	}
	ctrl.StopTracking()
	if ctrl.TrackingActive() {
		t.Error("StopTracking should lower the flag")
	}
}

// TestTrackingFlagConcurrent toggles the flag from parallel goroutines the
// way concurrent page requests would; the race detector verifies the
// accesses are safe and the flag ends in the last stored state.
func TestTrackingFlagConcurrent(t *testing.T) {
	t.Parallel()

	ctrl := newTestController(t, dtnCSV, tecCSV)

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func(start bool) {
			defer wg.Done()
			if start {
				ctrl.StartTracking()
			} else {
				ctrl.StopTracking()
			}
			_ = ctrl.TrackingActive()
		}(i%2 == 0)
	}
	wg.Wait()

	ctrl.StartTracking()
	if !ctrl.TrackingActive() {
		t.Error("flag should hold the last stored state")
	}
}
