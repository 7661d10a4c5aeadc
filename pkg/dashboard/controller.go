// Package dashboard wires subdivision selection, per-dataset filters and
// the map renderer into one synchronous recomputation pass per user
// interaction. The controller is glue: every state change runs the full
// restrict → filter → prioritize → render pipeline and returns a complete
// view, so there is never stale partial output to reason about.
package dashboard

import (
	"context"
	"fmt"
	"math/rand"
	"sync/atomic"

	"rail-defect-map/pkg/dataset"
	"rail-defect-map/pkg/datastore"
	"rail-defect-map/pkg/geo"
	"rail-defect-map/pkg/logger"
	"rail-defect-map/pkg/maprender"
)

// SubdivisionColumn partitions both feeds. A feed without it cannot be
// scoped to a rail line at all, which is why its absence is a hard error
// while every other missing column just degrades.
const SubdivisionColumn = "Subdivision"

// DefaultSubdivisions is the enumerated set offered when the operator does
// not configure their own.
var DefaultSubdivisions = []string{"HARDISTY", "SUTHERLAND", "WILKIE", "WYNYARD"}

// Per-feed filter columns, default selections and display priority. These
// mirror what the maintenance planners actually work with; everything not
// listed in a priority slice keeps its source order after it.
var (
	dtnFilterColumns = []string{"Status", "Asset"}
	tecFilterColumns = []string{"Status", "Sys", "Severity"}

	dtnDefaultFilters = dataset.FilterSpec{"Status": "Open"}
	tecDefaultFilters = dataset.FilterSpec{"Status": "Confirmed", "Sys": "TGMS", "Severity": "Urgent"}

	dtnPriorityColumns = []string{
		"MP", "Asset Type", "Asset", "Defect Date", "Comment",
		"Reg Rule", "Reg Rule Description", "Status", "Action",
	}
	tecPriorityColumns = []string{
		"MP", "Linecode", "Date Time", "Sys", "Severity",
		"Type", "Value", "Length", "Status",
	}
)

// FilterColumns returns the configured filter columns for a feed.
func FilterColumns(t dataset.Type) []string {
	if t == dataset.TEC {
		return tecFilterColumns
	}
	return dtnFilterColumns
}

// DefaultFilters returns a copy of the default FilterSpec for a feed.
func DefaultFilters(t dataset.Type) dataset.FilterSpec {
	if t == dataset.TEC {
		return tecDefaultFilters.Clone()
	}
	return dtnDefaultFilters.Clone()
}

// SchemaError reports a feed missing a required column. Like LoadError it
// halts the current pass with a visible message.
type SchemaError struct {
	Dataset dataset.Type
	Column  string
}

func (e *SchemaError) Error() string {
	return fmt.Sprintf("%s dataset: required column %q not found", e.Dataset, e.Column)
}

// State is everything one interaction pins down. Filter maps hold explicit
// operator selections; columns absent from the map take their defaults.
type State struct {
	Subdivision string
	DTNFilters  dataset.FilterSpec
	TECFilters  dataset.FilterSpec
	Mode        maprender.Mode
	Basemap     maprender.BasemapSpec
}

// FilterOption describes one sidebar selector: the column, the currently
// effective value and the choices (All plus every observed value).
type FilterOption struct {
	Column   string   `json:"column"`
	Selected string   `json:"selected"`
	Values   []string `json:"values"`
}

// Table is one feed's filtered, reordered output plus its exact row count.
type Table struct {
	Type     dataset.Type    `json:"type"`
	Data     dataset.Dataset `json:"data"`
	RowCount int             `json:"rowCount"`
}

// View is the complete result of one recomputation pass.
type View struct {
	Subdivision  string             `json:"subdivision"`
	Subdivisions []string           `json:"subdivisions"`
	DTN          Table              `json:"dtn"`
	TEC          Table              `json:"tec"`
	DTNFilters   []FilterOption     `json:"dtnFilters"`
	TECFilters   []FilterOption     `json:"tecFilters"`
	Map          maprender.Artifact `json:"map"`
	LiveTracking bool               `json:"liveTracking"`
}

// Controller owns the feed sources, the subdivision set and the
// live-tracking flag. Its View method is pure apart from cache-backed
// loading and logging.
type Controller struct {
	Store        *datastore.Store
	DTNSource    datastore.Source
	TECSource    datastore.Source
	Subdivisions []string

	// liveTracking is an explicit placeholder: the start/stop controls
	// toggle it and the view reports it, but nothing is attached to it.
	// HTTP serves a goroutine per request, so the flag is atomic.
	liveTracking atomic.Bool
}

// NewController builds a controller over the two feed sources.
func NewController(store *datastore.Store, dtn, tec datastore.Source, subdivisions []string) *Controller {
	if len(subdivisions) == 0 {
		subdivisions = DefaultSubdivisions
	}
	return &Controller{Store: store, DTNSource: dtn, TECSource: tec, Subdivisions: subdivisions}
}

// StartTracking raises the live-tracking flag. No behavior is wired to it.
func (c *Controller) StartTracking() { c.liveTracking.Store(true) }

// StopTracking lowers the live-tracking flag.
func (c *Controller) StopTracking() { c.liveTracking.Store(false) }

// TrackingActive reports the flag for display.
func (c *Controller) TrackingActive() bool { return c.liveTracking.Load() }

// View runs one full recomputation pass. Errors are *datastore.LoadError
// or *SchemaError; both mean "show the message, suppress the rest of the
// view" and nothing else ever fails — degenerate states (no coordinates,
// zero rows) come back as a renderable view with empty layers and tables.
func (c *Controller) View(ctx context.Context, st State) (View, error) {
	passID := newPassID()
	logger.Begin(passID)

	view, err := c.pass(ctx, passID, st)
	if err != nil {
		logger.FlushError(passID, err)
		return View{}, err
	}
	logger.Success(passID, fmt.Sprintf("%s: DTN %d rows, ATGMS %d rows, mode %s",
		view.Subdivision, view.DTN.RowCount, view.TEC.RowCount, view.Map.Mode))
	return view, nil
}

func (c *Controller) pass(ctx context.Context, passID string, st State) (View, error) {
	dtn, err := c.Store.Load(ctx, c.DTNSource)
	if err != nil {
		return View{}, err
	}
	tec, err := c.Store.Load(ctx, c.TECSource)
	if err != nil {
		return View{}, err
	}
	logger.Append(passID, fmt.Sprintf("[%-6s][Load] DTN %d rows, TEC %d rows", passID, dtn.Len(), tec.Len()))

	if !dtn.HasColumn(SubdivisionColumn) {
		return View{}, &SchemaError{Dataset: dataset.DTN, Column: SubdivisionColumn}
	}
	if !tec.HasColumn(SubdivisionColumn) {
		return View{}, &SchemaError{Dataset: dataset.TEC, Column: SubdivisionColumn}
	}

	subdivision := st.Subdivision
	if subdivision == "" {
		subdivision = c.Subdivisions[0]
	}

	scope := dataset.FilterSpec{SubdivisionColumn: subdivision}
	dtnScoped := dataset.Apply(dtn, scope)
	tecScoped := dataset.Apply(tec, scope)
	logger.Append(passID, fmt.Sprintf("[%-6s][Scope] %s: DTN %d rows, TEC %d rows",
		passID, subdivision, dtnScoped.Len(), tecScoped.Len()))

	dtnSpec, dtnOptions := effectiveFilters(dtnScoped, dtnFilterColumns, dtnDefaultFilters, st.DTNFilters)
	tecSpec, tecOptions := effectiveFilters(tecScoped, tecFilterColumns, tecDefaultFilters, st.TECFilters)

	dtnFiltered := dataset.Apply(dtnScoped, dtnSpec)
	tecFiltered := dataset.Apply(tecScoped, tecSpec)

	dtnOut := dataset.Reorder(dtnFiltered, dtnPriorityColumns)
	tecOut := dataset.Reorder(tecFiltered, tecPriorityColumns)

	artifact := maprender.Render(dtnOut, tecOut, st.Mode, st.Basemap)
	if artifact.Center == geo.Fallback {
		logger.Append(passID, fmt.Sprintf("[%-6s][Map] no valid coordinates, fallback center", passID))
	}

	return View{
		Subdivision:  subdivision,
		Subdivisions: c.Subdivisions,
		DTN:          Table{Type: dataset.DTN, Data: dtnOut, RowCount: dtnOut.Len()},
		TEC:          Table{Type: dataset.TEC, Data: tecOut, RowCount: tecOut.Len()},
		DTNFilters:   dtnOptions,
		TECFilters:   tecOptions,
		Map:          artifact,
		LiveTracking: c.liveTracking.Load(),
	}, nil
}

// effectiveFilters resolves the FilterSpec one pass actually applies, plus
// the selector options backing the sidebar. Operator selections overlay
// the defaults via Merge — a later selection on a column replaces the
// earlier one, never intersects with it. A default value absent from the
// scoped data silently falls back to All: a configured default must never
// hide an entire feed just because this subdivision happens not to use
// the value. Explicit selections are applied verbatim.
func effectiveFilters(scoped dataset.Dataset, columns []string, defaults, overrides dataset.FilterSpec) (dataset.FilterSpec, []FilterOption) {
	merged := defaults.Merge(overrides)

	spec := make(dataset.FilterSpec, len(columns))
	options := make([]FilterOption, 0, len(columns))

	for _, column := range columns {
		if !scoped.HasColumn(column) {
			continue // same as the filter engine: unknown columns are no constraint
		}
		observed := scoped.DistinctValues(column)

		selected := merged[column]
		if selected == "" {
			selected = dataset.All
		}
		if _, explicit := overrides[column]; !explicit && selected != dataset.All && !contains(observed, selected) {
			selected = dataset.All
		}
		spec[column] = selected
		options = append(options, FilterOption{
			Column:   column,
			Selected: selected,
			Values:   append([]string{dataset.All}, observed...),
		})
	}
	return spec, options
}

func contains(values []string, v string) bool {
	for _, x := range values {
		if x == v {
			return true
		}
	}
	return false
}

const passIDAlphabet = "abcdefghijklmnopqrstuvwxyz0123456789"

// newPassID tags one recomputation pass in the logs.
func newPassID() string {
	b := make([]byte, 6)
	for i := range b {
		b[i] = passIDAlphabet[rand.Intn(len(passIDAlphabet))]
	}
	return string(b)
}
