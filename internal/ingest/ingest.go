// Copyright the Zola authors.
// Use of this source code is governed by an Apache-2.0
// license that can be found in the LICENSE file.

// Package ingest implements the write-path transform from an arbitrary
// input batch to one set of per-date partition artifacts
// (SPEC_FULL.md §4.4): sort by (date, symbol, timestamp), group by date,
// and for each date build the sorted columns, the parted index, and the
// first/last-value sidecars.
package ingest

import (
	"sort"

	"github.com/leifmetcalf/zola-db/internal/binfmt"
	"github.com/leifmetcalf/zola-db/internal/caldate"
	"github.com/leifmetcalf/zola-db/internal/partio"
	"github.com/leifmetcalf/zola-db/internal/schema"
	"github.com/leifmetcalf/zola-db/internal/zerrors"
)

// ColumnInput holds one value column's input data. Exactly one of I64/F64
// is non-nil, matching the column's declared schema type; in an empty batch
// both may be nil.
type ColumnInput struct {
	I64 []int64
	F64 []float64
}

func (c ColumnInput) length() int {
	if c.I64 != nil {
		return len(c.I64)
	}
	return len(c.F64)
}

// Build validates and transforms one write-batch into a set of per-date
// partition artifacts, keyed by the "YYYY.MM.DD" directory name. An empty
// batch (n == 0) returns an empty, non-nil map.
func Build(sch *schema.Schema, timestamps, symbols []int64, columns []ColumnInput) (map[string]*partio.Data, error) {
	n := len(timestamps)
	if len(symbols) != n {
		return nil, zerrors.Newf(zerrors.SchemaMismatch, "", "symbols length %d does not match timestamps length %d", len(symbols), n)
	}
	if len(columns) != len(sch.Columns) {
		return nil, zerrors.Newf(zerrors.SchemaMismatch, "", "got %d columns, schema declares %d", len(columns), len(sch.Columns))
	}
	for i, c := range sch.Columns {
		in := columns[i]
		switch c.Type {
		case schema.I64:
			if in.F64 != nil || (in.I64 == nil && n > 0) {
				return nil, zerrors.Newf(zerrors.SchemaMismatch, "", "column %q expects i64 input", c.Name)
			}
		case schema.F64:
			if in.I64 != nil || (in.F64 == nil && n > 0) {
				return nil, zerrors.Newf(zerrors.SchemaMismatch, "", "column %q expects f64 input", c.Name)
			}
		}
		if in.length() != n {
			return nil, zerrors.Newf(zerrors.SchemaMismatch, "", "column %q length %d does not match timestamps length %d", c.Name, in.length(), n)
		}
	}
	if n == 0 {
		return map[string]*partio.Data{}, nil
	}

	days := make([]int64, n)
	dayNames := make([]string, n)
	for i, ts := range timestamps {
		d, name, err := caldate.Day(ts)
		if err != nil {
			return nil, err
		}
		days[i] = d
		dayNames[i] = name
	}

	perm := make([]int, n)
	for i := range perm {
		perm[i] = i
	}
	sort.Slice(perm, func(a, b int) bool {
		ia, ib := perm[a], perm[b]
		if days[ia] != days[ib] {
			return days[ia] < days[ib]
		}
		if symbols[ia] != symbols[ib] {
			return symbols[ia] < symbols[ib]
		}
		return timestamps[ia] < timestamps[ib]
	})

	out := map[string]*partio.Data{}

	start := 0
	for start < n {
		end := start + 1
		for end < n && days[perm[end]] == days[perm[start]] {
			end++
		}
		group := perm[start:end]
		data := buildPartition(sch, timestamps, symbols, columns, group)
		out[dayNames[group[0]]] = data
		start = end
	}

	return out, nil
}

func buildPartition(sch *schema.Schema, timestamps, symbols []int64, columns []ColumnInput, group []int) *partio.Data {
	m := len(group)
	sortedTS := make([]int64, m)
	sortedSym := make([]int64, m)
	for i, gi := range group {
		sortedTS[i] = timestamps[gi]
		sortedSym[i] = symbols[gi]
	}

	sortedCols := make([]partio.Column, len(sch.Columns))
	for ci, c := range sch.Columns {
		switch c.Type {
		case schema.I64:
			vals := make([]int64, m)
			for i, gi := range group {
				vals[i] = columns[ci].I64[gi]
			}
			sortedCols[ci] = partio.Column{Type: schema.I64, I64: vals}
		case schema.F64:
			vals := make([]float64, m)
			for i, gi := range group {
				vals[i] = columns[ci].F64[gi]
			}
			sortedCols[ci] = partio.Column{Type: schema.F64, F64: vals}
		}
	}

	var parted []partio.PartedEntry
	first := map[int64]partio.SidecarEntry{}
	last := map[int64]partio.SidecarEntry{}

	rs := 0
	for rs < m {
		re := rs + 1
		for re < m && sortedSym[re] == sortedSym[rs] {
			re++
		}
		sym := sortedSym[rs]
		parted = append(parted, partio.PartedEntry{SymbolID: sym, Start: uint64(rs), End: uint64(re)})
		first[sym] = packRow(sortedCols, rs, sortedTS)
		last[sym] = packRow(sortedCols, re-1, sortedTS)
		rs = re
	}

	return &partio.Data{
		Rows:        uint64(m),
		Timestamps:  sortedTS,
		Symbols:     sortedSym,
		Columns:     sortedCols,
		Parted:      parted,
		FirstValues: first,
		LastValues:  last,
	}
}

func packRow(cols []partio.Column, row int, timestamps []int64) partio.SidecarEntry {
	buf := make([]byte, len(cols)*binfmt.WordSize)
	for i, c := range cols {
		switch c.Type {
		case schema.I64:
			binfmt.PutI64(buf, i*binfmt.WordSize, c.I64[row])
		case schema.F64:
			binfmt.PutF64(buf, i*binfmt.WordSize, c.F64[row])
		}
	}
	return partio.SidecarEntry{Timestamp: timestamps[row], Values: buf}
}
