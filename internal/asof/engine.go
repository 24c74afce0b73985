// Copyright the Zola authors.
// Use of this source code is governed by an Apache-2.0
// license that can be found in the LICENSE file.

// Package asof implements the batched as-of join (SPEC_FULL.md §4.3): for
// every (symbol, timestamp) probe, resolve the nearest prior (Backward) or
// nearest subsequent (Forward) observation for that symbol, with at most
// one cross-partition sidecar hop.
package asof

import (
	"math"
	"sort"
	"time"

	"github.com/leifmetcalf/zola-db/internal/binfmt"
	"github.com/leifmetcalf/zola-db/internal/caldate"
	"github.com/leifmetcalf/zola-db/internal/partview"
	"github.com/leifmetcalf/zola-db/internal/schema"
	"github.com/leifmetcalf/zola-db/internal/zerrors"
	"github.com/leifmetcalf/zola-db/internal/zmetrics"
)

// Direction selects which side of a probe timestamp to resolve against.
type Direction int

const (
	Backward Direction = iota
	Forward
)

// PartitionMap is the table's open partitions, keyed by epoch day
// (caldate.Day's first return value). The engine only ever looks up a
// probe's own day and its immediate calendar neighbor — never further.
type PartitionMap map[int64]*partview.View

// ColumnResult is one value column's aligned result vector.
type ColumnResult struct {
	Type schema.Type
	I64  []int64
	F64  []float64
}

// Result is the dense, probe-aligned output of a batched as-of join.
type Result struct {
	Timestamps []int64
	Columns    []ColumnResult // aligned with the table schema's Columns
}

func newNullResult(sch *schema.Schema, n int) *Result {
	ts := make([]int64, n)
	for i := range ts {
		ts[i] = math.MinInt64
	}
	cols := make([]ColumnResult, len(sch.Columns))
	for ci, c := range sch.Columns {
		cr := ColumnResult{Type: c.Type}
		switch c.Type {
		case schema.I64:
			v := make([]int64, n)
			for i := range v {
				v[i] = math.MinInt64
			}
			cr.I64 = v
		case schema.F64:
			v := make([]float64, n)
			for i := range v {
				v[i] = math.NaN()
			}
			cr.F64 = v
		}
		cols[ci] = cr
	}
	return &Result{Timestamps: ts, Columns: cols}
}

// Run resolves every probe independently against partitions and writes the
// dense, probe-aligned Result. symbols and timestamps must have equal
// length; a length mismatch is a SchemaMismatch, not a panic. metrics may be
// nil, in which case no instrumentation is recorded.
func Run(sch *schema.Schema, partitions PartitionMap, symbols, timestamps []int64, dir Direction, metrics *zmetrics.Metrics) (*Result, error) {
	n := len(symbols)
	if len(timestamps) != n {
		return nil, zerrors.Newf(zerrors.SchemaMismatch, "", "symbols length %d does not match timestamps length %d", n, len(timestamps))
	}
	started := time.Now()
	result := newNullResult(sch, n)
	for i := 0; i < n; i++ {
		resolveProbe(sch, partitions, symbols[i], timestamps[i], dir, result, i, metrics)
		if metrics != nil && result.Timestamps[i] == math.MinInt64 {
			metrics.AsofNullResults.Inc()
		}
	}
	if metrics != nil {
		metrics.AsofProbeSeconds.Observe(time.Since(started).Seconds())
	}
	return result, nil
}

func resolveProbe(sch *schema.Schema, partitions PartitionMap, sym, ts int64, dir Direction, result *Result, i int, metrics *zmetrics.Metrics) {
	day, _, err := caldate.Day(ts)
	if err != nil {
		// No calendar day can be computed, so no partition can possibly
		// cover it; leave the pre-initialized null entry in place.
		return
	}
	view, ok := partitions[day]
	if !ok {
		return
	}
	start, end, ok := view.SymbolRange(sym)
	if !ok {
		sidecarFallback(sch, partitions, day, sym, dir, result, i, metrics)
		return
	}
	t := view.Timestamps()[start:end]
	switch dir {
	case Backward:
		pos := sort.Search(len(t), func(j int) bool { return t[j] > ts })
		if pos == 0 {
			sidecarFallback(sch, partitions, day, sym, dir, result, i, metrics)
			return
		}
		emitFromView(sch, view, start+uint64(pos-1), result, i)
	case Forward:
		pos := sort.Search(len(t), func(j int) bool { return t[j] >= ts })
		if pos == len(t) {
			sidecarFallback(sch, partitions, day, sym, dir, result, i, metrics)
			return
		}
		emitFromView(sch, view, start+uint64(pos), result, i)
	}
}

// sidecarFallback implements the one-hop rule: only the immediately
// adjacent calendar day is consulted, and it is never chained further even
// if that neighbor also lacks the symbol.
func sidecarFallback(sch *schema.Schema, partitions PartitionMap, day, sym int64, dir Direction, result *Result, i int, metrics *zmetrics.Metrics) {
	if metrics != nil {
		metrics.AsofSidecarFallbacks.Inc()
	}
	var neighborDay int64
	if dir == Backward {
		neighborDay = day - 1
	} else {
		neighborDay = day + 1
	}
	neighbor, ok := partitions[neighborDay]
	if !ok {
		return
	}
	var entry []byte
	if dir == Backward {
		entry, ok = neighbor.LastValuesEntry(sym)
	} else {
		entry, ok = neighbor.FirstValuesEntry(sym)
	}
	if !ok {
		return
	}
	emitFromSidecar(sch, entry, result, i)
}

func emitFromView(sch *schema.Schema, view *partview.View, row uint64, result *Result, i int) {
	result.Timestamps[i] = view.Timestamps()[row]
	for ci, c := range sch.Columns {
		switch c.Type {
		case schema.I64:
			vals, _ := view.ColumnI64(c.Name)
			result.Columns[ci].I64[i] = vals[row]
		case schema.F64:
			vals, _ := view.ColumnF64(c.Name)
			result.Columns[ci].F64[i] = vals[row]
		}
	}
}

// emitFromSidecar unpacks a sidecar's value-bytes: the timestamp word
// followed by one 8-byte word per schema column, in schema order.
func emitFromSidecar(sch *schema.Schema, entry []byte, result *Result, i int) {
	result.Timestamps[i] = binfmt.GetI64(entry, 0)
	for ci, c := range sch.Columns {
		off := (1 + ci) * binfmt.WordSize
		switch c.Type {
		case schema.I64:
			result.Columns[ci].I64[i] = binfmt.GetI64(entry, off)
		case schema.F64:
			result.Columns[ci].F64[i] = binfmt.GetF64(entry, off)
		}
	}
}
