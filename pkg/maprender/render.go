// Package maprender turns two filtered defect tables into the artifact the
// Leaflet frontend draws: a centered view with either per-dataset marker
// clusters or one combined density heatmap, plus the locate control.
//
// Render is a pure function of its inputs. It does no I/O and keeps no
// state, so the dashboard can recompute it on every interaction without
// any locking.
package maprender

import (
	"rail-defect-map/pkg/dataset"
	"rail-defect-map/pkg/geo"
)

// Mode selects how points are drawn. The two modes are mutually exclusive
// per render: a markers artifact carries no heat layer and vice versa.
type Mode string

const (
	ModeMarkers Mode = "markers"
	ModeHeatmap Mode = "heatmap"
)

// DefaultZoom is the initial viewport zoom. Level 7 frames a whole
// subdivision with room to spare.
const DefaultZoom = 7

// DisableClusteringAtZoom is the viewport zoom at which clusters expand
// into individual markers. Below it nearby points aggregate into one
// cluster marker whose count reflects its member rows.
const DisableClusteringAtZoom = 13

// Point is one valid-coordinate row placed on the map. Fields carries the
// full row as ordered label/value pairs for the info panel.
type Point struct {
	Lat    float64         `json:"lat"`
	Lon    float64         `json:"lon"`
	Fields []dataset.Field `json:"fields"`
}

// ClusterLayer groups one dataset's points under a shared style.
type ClusterLayer struct {
	Name                    string  `json:"name"`
	Color                   string  `json:"color"`
	Icon                    string  `json:"icon"`
	DisableClusteringAtZoom int     `json:"disableClusteringAtZoom"`
	Points                  []Point `json:"points"`
}

// HeatPoint is one weighted sample of the density layer.
type HeatPoint struct {
	Lat    float64 `json:"lat"`
	Lon    float64 `json:"lon"`
	Weight float64 `json:"weight"`
}

// HeatLayer is the combined density layer. Dataset identity is deliberately
// not distinguishable here.
type HeatLayer struct {
	Points []HeatPoint `json:"points"`
}

// LocateControl configures the best-effort "locate me" affordance. It never
// forces a view change and its absence of a GPS fix never blocks rendering;
// the values mirror what field crews settled on.
type LocateControl struct {
	AutoStart          bool `json:"autoStart"`
	FlyTo              bool `json:"flyTo"`
	KeepCurrentZoom    bool `json:"keepCurrentZoom"`
	DrawCircle         bool `json:"drawCircle"`
	SetView            bool `json:"setView"`
	Watch              bool `json:"watch"`
	EnableHighAccuracy bool `json:"enableHighAccuracy"`
	MaxZoom            int  `json:"maxZoom"`
	MaximumAgeMillis   int  `json:"maximumAge"`
}

// Artifact is the complete renderable map description, serialized as-is
// into the page and the JSON API.
type Artifact struct {
	Center   geo.Coordinate `json:"center"`
	Zoom     int            `json:"zoom"`
	Mode     Mode           `json:"mode"`
	Basemap  Basemap        `json:"basemap"`
	Clusters []ClusterLayer `json:"clusters,omitempty"`
	Heat     *HeatLayer     `json:"heat,omitempty"`
	Locate   LocateControl  `json:"locate"`
}

// Per-dataset marker styling, matching what operators already know from
// the old dashboard: DTN red, ATGMS blue, both with the info-sign glyph.
var layerStyles = map[dataset.Type]struct {
	name  string
	color string
}{
	dataset.DTN: {name: "DTN Defects", color: "red"},
	dataset.TEC: {name: "ATGMS Defects", color: "blue"},
}

// Render builds the artifact for the two datasets. The center is the mean
// of every valid coordinate across both feeds; with no valid coordinates
// anywhere it falls back to a fixed center so the map still renders with
// empty layers.
func Render(dtn, tec dataset.Dataset, mode Mode, basemap BasemapSpec) Artifact {
	dtnCoords := geo.Extract(dtn)
	tecCoords := geo.Extract(tec)

	combined := make([]geo.Coordinate, 0, len(dtnCoords)+len(tecCoords))
	combined = append(combined, dtnCoords...)
	combined = append(combined, tecCoords...)

	a := Artifact{
		Center:  geo.Centroid(combined),
		Zoom:    DefaultZoom,
		Mode:    mode,
		Basemap: ResolveBasemap(basemap),
		Locate: LocateControl{
			AutoStart:          false,
			FlyTo:              false,
			KeepCurrentZoom:    true,
			DrawCircle:         true,
			SetView:            false,
			Watch:              true,
			EnableHighAccuracy: true,
			MaxZoom:            16,
			MaximumAgeMillis:   60000,
		},
	}

	switch mode {
	case ModeHeatmap:
		heat := &HeatLayer{Points: make([]HeatPoint, 0, len(combined))}
		for _, c := range combined {
			heat.Points = append(heat.Points, HeatPoint{Lat: c.Lat, Lon: c.Lon, Weight: 1})
		}
		a.Heat = heat
	default:
		a.Mode = ModeMarkers
		a.Clusters = []ClusterLayer{
			clusterLayer(dtn),
			clusterLayer(tec),
		}
	}
	return a
}

// clusterLayer builds one dataset's cluster layer. Every row with a full
// coordinate pair becomes a point carrying the whole row for the info
// panel; rows without one are simply not on the map.
func clusterLayer(d dataset.Dataset) ClusterLayer {
	style := layerStyles[d.Type]
	if style.name == "" {
		style.name = string(d.Type) + " Defects"
		style.color = "gray"
	}
	layer := ClusterLayer{
		Name:                    style.name,
		Color:                   style.color,
		Icon:                    "info-sign",
		DisableClusteringAtZoom: DisableClusteringAtZoom,
	}

	latIdx := d.ColumnIndex(geo.LatitudeColumn)
	lonIdx := d.ColumnIndex(geo.LongitudeColumn)
	if latIdx < 0 || lonIdx < 0 {
		return layer
	}
	for i, row := range d.Rows {
		if latIdx >= len(row) || lonIdx >= len(row) {
			continue
		}
		c, ok := geo.Parse(row[latIdx], row[lonIdx])
		if !ok {
			continue
		}
		layer.Points = append(layer.Points, Point{
			Lat:    c.Lat,
			Lon:    c.Lon,
			Fields: d.Fields(i),
		})
	}
	return layer
}
