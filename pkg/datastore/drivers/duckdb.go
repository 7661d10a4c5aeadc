//go:build cgo && duckdb && (linux || darwin || windows) && (amd64 || arm64)

// DuckDB stays behind an explicit build tag so default builds remain
// CGO-free and cross compilation stays predictable. The engine is handy
// when a railroad publishes defect extracts as a DuckDB file.
//
// Build example:
//
//	CGO_ENABLED=1 go build -tags duckdb
package drivers

import (
	_ "github.com/marcboeker/go-duckdb"
)
