// Package datastore loads the two defect feeds from their external tabular
// sources — CSV files or SQL tables — and caches them, immutable, for the
// process lifetime. The cache is keyed by source identity and invalidated
// only by restart; no core operation ever writes back.
package datastore

import (
	"context"
	"fmt"

	"rail-defect-map/pkg/dataset"
)

// LoadError reports a source that is missing or unreadable. It halts the
// current render pass with a visible message; it never crashes the process.
type LoadError struct {
	Source string
	Err    error
}

func (e *LoadError) Error() string {
	return fmt.Sprintf("load %s: %v", e.Source, e.Err)
}

func (e *LoadError) Unwrap() error { return e.Err }

// Source describes one external tabular source. Kind selects the loader;
// the remaining fields feed it.
type Source struct {
	Kind  SourceKind
	Type  dataset.Type
	Path  string // CSV file path, or DSN/path for embedded SQL drivers
	Table string // SQL table name (SQL sources only)
	SQL   SQLConfig
}

// SourceKind selects how a Source is read.
type SourceKind string

const (
	SourceCSV SourceKind = "csv"
	SourceSQL SourceKind = "sql"
)

// Identity keys the process-wide cache; two Sources with equal identity
// serve the same cached dataset.
func (s Source) Identity() string {
	switch s.Kind {
	case SourceSQL:
		return fmt.Sprintf("sql:%s:%s:%s", s.SQL.Driver, s.SQL.dsn(s.Path), s.Table)
	default:
		return "csv:" + s.Path
	}
}

// Store owns the loaded datasets. Requests for a dataset funnel through a
// single goroutine so there is exactly one load per source identity and no
// mutexes — the same discipline the rest of the codebase uses.
type Store struct {
	requests chan request
}

type request struct {
	src   Source
	reply chan result
}

type result struct {
	ds  dataset.Dataset
	err error
}

// NewStore starts the cache goroutine.
func NewStore() *Store {
	s := &Store{requests: make(chan request)}
	go s.run()
	return s
}

func (s *Store) run() {
	cache := make(map[string]result)
	for req := range s.requests {
		key := req.src.Identity()
		res, ok := cache[key]
		if !ok {
			res = load(req.src)
			if res.err == nil {
				// Only successful loads are cached: a feed that was
				// absent at startup may appear before the next pass.
				cache[key] = res
			}
		}
		req.reply <- res
	}
}

// Load returns the dataset for src, reading the source on first use and
// serving the cached copy afterwards. The error, if any, is a *LoadError.
func (s *Store) Load(ctx context.Context, src Source) (dataset.Dataset, error) {
	reply := make(chan result, 1)
	select {
	case s.requests <- request{src: src, reply: reply}:
	case <-ctx.Done():
		return dataset.Dataset{}, &LoadError{Source: src.Identity(), Err: ctx.Err()}
	}
	select {
	case res := <-reply:
		return res.ds, res.err
	case <-ctx.Done():
		return dataset.Dataset{}, &LoadError{Source: src.Identity(), Err: ctx.Err()}
	}
}

func load(src Source) result {
	var (
		ds  dataset.Dataset
		err error
	)
	switch src.Kind {
	case SourceSQL:
		ds, err = loadSQL(src)
	default:
		ds, err = loadCSV(src)
	}
	if err != nil {
		return result{err: &LoadError{Source: src.Identity(), Err: err}}
	}
	ds.Type = src.Type
	return result{ds: ds}
}
