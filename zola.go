// Copyright the Zola authors.
// Use of this source code is governed by an Apache-2.0
// license that can be found in the LICENSE file.

// Package zola is the embedded API for the append-only columnar
// time-series store described by SPEC_FULL.md: open a root directory,
// write batches keyed by (symbol, timestamp), and resolve batched as-of
// joins against them.
package zola

import (
	"github.com/leifmetcalf/zola-db/internal/asof"
	"github.com/leifmetcalf/zola-db/internal/catalog"
	"github.com/leifmetcalf/zola-db/internal/ingest"
	"github.com/leifmetcalf/zola-db/internal/schema"
	"github.com/leifmetcalf/zola-db/internal/zlog"
	"github.com/leifmetcalf/zola-db/internal/zmetrics"
)

// Re-exported so callers never need to import internal packages directly.
type (
	Schema    = schema.Schema
	Column    = schema.Column
	Type      = schema.Type
	Direction = asof.Direction
	Result    = asof.Result
	ColumnResult = asof.ColumnResult
	ColumnInput  = ingest.ColumnInput
)

const (
	I64 = schema.I64
	F64 = schema.F64

	Backward = asof.Backward
	Forward  = asof.Forward
)

// Options configures Open.
type Options struct {
	Log     *zlog.Logger
	Metrics *zmetrics.Metrics
}

// Database is a single open store rooted at one directory. It is not safe
// for concurrent use from multiple goroutines: Write must not run
// concurrently with another Write or Asof. Callers needing concurrent
// access (e.g. a network server) must provide their own synchronization,
// exactly as SPEC_FULL.md §5 specifies.
type Database struct {
	cat *catalog.Catalog
}

// Open opens (or creates) a store at root, sweeping any crash residue left
// by an interrupted write before loading every table's partitions.
func Open(root string, opts Options) (*Database, error) {
	cat, err := catalog.Open(root, opts.Log, opts.Metrics)
	if err != nil {
		return nil, err
	}
	return &Database{cat: cat}, nil
}

// Close unmaps every open partition. The Database must not be used after
// Close returns.
func (db *Database) Close() error {
	return db.cat.Close()
}

// Write ingests timestamps/symbols/columns into table name, creating the
// table (and persisting sch) on first write. columns must have one entry
// per column in sch, in the same order, with matching type and length.
func (db *Database) Write(name string, sch *Schema, timestamps, symbols []int64, columns []ColumnInput) error {
	return db.cat.Write(name, sch, timestamps, symbols, columns)
}

// Asof resolves a batched as-of join against table name: for each
// (symbols[i], timestamps[i]) probe, the nearest prior (Backward) or
// nearest subsequent (Forward) observation for that symbol.
func (db *Database) Asof(name string, symbols, timestamps []int64, dir Direction) (*Result, error) {
	return db.cat.Asof(name, symbols, timestamps, dir)
}

// TableSchema returns the persisted schema of an already-open table.
func (db *Database) TableSchema(name string) (*Schema, bool) {
	return db.cat.TableSchema(name)
}

// SymbolID interns a human-readable symbol name (a ticker or instrument
// code) to the int64 id the storage core keys rows by, assigning the next
// free id on first use. The table must already have been created by a
// prior Write or WriteNamed call; the name<->id mapping has no bearing on the core's own
// semantics, which never sees names.
func (db *Database) SymbolID(table, name string) (int64, error) {
	return db.cat.SymbolID(table, name)
}

// SymbolName reverses SymbolID.
func (db *Database) SymbolName(table string, id int64) (string, bool, error) {
	return db.cat.SymbolName(table, id)
}

// WriteNamed is Write with symbol names instead of raw ids: each element of
// symbolNames is interned via SymbolID before delegating to Write. The
// table is created (if new) before interning, so a symbol name can be
// assigned an id even on a table's very first write.
func (db *Database) WriteNamed(name string, sch *Schema, timestamps []int64, symbolNames []string, columns []ColumnInput) error {
	if err := db.cat.EnsureTable(name, sch); err != nil {
		return err
	}
	symbols := make([]int64, len(symbolNames))
	for i, n := range symbolNames {
		id, err := db.SymbolID(name, n)
		if err != nil {
			return err
		}
		symbols[i] = id
	}
	return db.Write(name, sch, timestamps, symbols, columns)
}

// AsofNamed is Asof with symbol names instead of raw ids. A name that was
// never interned for this table resolves to a symbol id that cannot match
// any stored row, so its probe simply comes back null, in keeping with the
// store's "unknown symbol in scope, just no observation" semantics rather
// than an error.
func (db *Database) AsofNamed(name string, symbolNames []string, timestamps []int64, dir Direction) (*Result, error) {
	symbols := make([]int64, len(symbolNames))
	for i, n := range symbolNames {
		id, err := db.SymbolID(name, n)
		if err != nil {
			return nil, err
		}
		symbols[i] = id
	}
	return db.Asof(name, symbols, timestamps, dir)
}
