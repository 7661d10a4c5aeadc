// Package geo extracts usable coordinate pairs from defect tables and
// computes the centroid the map view is centered on.
package geo

import (
	"strconv"
	"strings"

	"rail-defect-map/pkg/dataset"
)

// Column names the feeds use for positions. Both are optional: a feed
// without them still renders as tables, just with an empty map.
const (
	LatitudeColumn  = "Latitude"
	LongitudeColumn = "Longitude"
)

// Fallback is where the map centers when no row in any dataset carries a
// complete coordinate pair. Keeping a fixed center means the map always
// renders instead of failing on sparse data.
var Fallback = Coordinate{Lat: 52.9399, Lon: -108.4976}

// Coordinate is a WGS84 latitude/longitude pair.
type Coordinate struct {
	Lat float64 `json:"lat"`
	Lon float64 `json:"lon"`
}

// Extract returns the coordinates of every row carrying both a parseable
// Latitude and Longitude, in row order. Rows missing either component are
// excluded here but stay in tabular output untouched.
func Extract(d dataset.Dataset) []Coordinate {
	latIdx := d.ColumnIndex(LatitudeColumn)
	lonIdx := d.ColumnIndex(LongitudeColumn)
	if latIdx < 0 || lonIdx < 0 {
		return nil
	}
	coords := make([]Coordinate, 0, len(d.Rows))
	for _, row := range d.Rows {
		if latIdx >= len(row) || lonIdx >= len(row) {
			continue
		}
		if c, ok := Parse(row[latIdx], row[lonIdx]); ok {
			coords = append(coords, c)
		}
	}
	return coords
}

// Parse builds a Coordinate from two cells; ok is false when either
// component is missing or malformed.
func Parse(latCell, lonCell string) (Coordinate, bool) {
	lat, okLat := parseCoord(latCell)
	lon, okLon := parseCoord(lonCell)
	if !okLat || !okLon {
		return Coordinate{}, false
	}
	return Coordinate{Lat: lat, Lon: lon}, true
}

// Centroid returns the arithmetic mean of the given coordinates, or
// Fallback when the set is empty.
func Centroid(coords []Coordinate) Coordinate {
	if len(coords) == 0 {
		return Fallback
	}
	var sumLat, sumLon float64
	for _, c := range coords {
		sumLat += c.Lat
		sumLon += c.Lon
	}
	n := float64(len(coords))
	return Coordinate{Lat: sumLat / n, Lon: sumLon / n}
}

// parseCoord accepts a decimal-degree cell; empty or malformed cells count
// as a missing component.
func parseCoord(cell string) (float64, bool) {
	s := strings.TrimSpace(cell)
	if s == "" {
		return 0, false
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, false
	}
	return v, true
}
