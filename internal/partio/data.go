// Copyright the Zola authors.
// Use of this source code is governed by an Apache-2.0
// license that can be found in the LICENSE file.

// Package partio performs the per-partition write path: rendering a sorted
// date-group of rows into column files, a parted index, and first/last-value
// sidecars, then publishing the result atomically (SPEC_FULL.md §4.4–4.5).
package partio

import "github.com/leifmetcalf/zola-db/internal/schema"

// Column holds one value column's data for a single partition, already
// permuted into sorted (symbol, timestamp) order.
type Column struct {
	Type schema.Type
	I64  []int64
	F64  []float64
}

// PartedEntry is one (symbol_id, row_range) record of the parted index.
type PartedEntry struct {
	SymbolID   int64
	Start, End uint64
}

// SidecarEntry is one first/last-value sidecar row: the timestamp and value
// words captured from a specific source row, packed ready for disk.
type SidecarEntry struct {
	Timestamp int64
	Values    []byte // len == len(schema.Columns) * 8, one 8-byte word per column
}

// Data is everything needed to render one partition directory. Every slice
// is already in final, sorted-by-(symbol,timestamp) storage order; Rows is
// their common length.
type Data struct {
	Rows         uint64
	Timestamps   []int64
	Symbols      []int64
	Columns      []Column // aligned with the table schema's Columns, in order
	Parted       []PartedEntry
	FirstValues  map[int64]SidecarEntry
	LastValues   map[int64]SidecarEntry
}
