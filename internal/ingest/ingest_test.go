// Copyright the Zola authors.
// Use of this source code is governed by an Apache-2.0
// license that can be found in the LICENSE file.

package ingest

import (
	"testing"
	"time"

	"github.com/leifmetcalf/zola-db/internal/binfmt"
	"github.com/leifmetcalf/zola-db/internal/schema"
	"github.com/leifmetcalf/zola-db/internal/zerrors"
)

func micros(y, m, d, hh int) int64 {
	return time.Date(y, time.Month(m), d, hh, 0, 0, 0, time.UTC).UnixMicro()
}

func testSchema() *schema.Schema {
	return &schema.Schema{Columns: []schema.Column{
		{Name: "price", Type: schema.F64},
	}}
}

func TestBuildGroupsByDate(t *testing.T) {
	sch := testSchema()
	timestamps := []int64{micros(2024, 3, 16, 1), micros(2024, 3, 15, 1), micros(2024, 3, 15, 23)}
	symbols := []int64{1, 1, 1}
	columns := []ColumnInput{{F64: []float64{3, 1, 2}}}

	groups, err := Build(sch, timestamps, symbols, columns)
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	if len(groups) != 2 {
		t.Fatalf("got %d groups, want 2", len(groups))
	}
	g15, ok := groups["2024.03.15"]
	if !ok {
		t.Fatal("missing 2024.03.15 group")
	}
	if g15.Rows != 2 {
		t.Fatalf("2024.03.15 rows = %d, want 2", g15.Rows)
	}
	// within the date, rows must be sorted by (symbol, timestamp)
	if g15.Timestamps[0] != micros(2024, 3, 15, 1) || g15.Timestamps[1] != micros(2024, 3, 15, 23) {
		t.Fatalf("2024.03.15 timestamps not sorted: %v", g15.Timestamps)
	}

	g16, ok := groups["2024.03.16"]
	if !ok || g16.Rows != 1 {
		t.Fatalf("2024.03.16 group = %+v, ok=%v", g16, ok)
	}
}

func TestBuildSortsBySymbolThenTimestamp(t *testing.T) {
	sch := testSchema()
	timestamps := []int64{micros(2024, 1, 1, 5), micros(2024, 1, 1, 1), micros(2024, 1, 1, 3)}
	symbols := []int64{2, 1, 1}
	columns := []ColumnInput{{F64: []float64{100, 200, 300}}}

	groups, err := Build(sch, timestamps, symbols, columns)
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	g := groups["2024.01.01"]
	wantSymbols := []int64{1, 1, 2}
	for i, s := range wantSymbols {
		if g.Symbols[i] != s {
			t.Fatalf("symbols = %v, want ordering %v", g.Symbols, wantSymbols)
		}
	}
	// symbol 1's two rows (timestamps 1 and 3) must be timestamp-ordered
	if g.Timestamps[0] != micros(2024, 1, 1, 1) || g.Timestamps[1] != micros(2024, 1, 1, 3) {
		t.Fatalf("symbol 1 rows not timestamp-sorted: %v", g.Timestamps)
	}
}

func TestBuildPartedIndexAndSidecars(t *testing.T) {
	sch := testSchema()
	timestamps := []int64{micros(2024, 1, 1, 1), micros(2024, 1, 1, 5), micros(2024, 1, 1, 10)}
	symbols := []int64{1, 1, 2}
	columns := []ColumnInput{{F64: []float64{10, 20, 30}}}

	groups, err := Build(sch, timestamps, symbols, columns)
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	g := groups["2024.01.01"]
	if len(g.Parted) != 2 {
		t.Fatalf("parted entries = %d, want 2", len(g.Parted))
	}
	for _, pe := range g.Parted {
		if pe.SymbolID == 1 {
			if pe.Start != 0 || pe.End != 2 {
				t.Fatalf("symbol 1 range = [%d,%d), want [0,2)", pe.Start, pe.End)
			}
		}
		if pe.SymbolID == 2 {
			if pe.Start != 2 || pe.End != 3 {
				t.Fatalf("symbol 2 range = [%d,%d), want [2,3)", pe.Start, pe.End)
			}
		}
	}

	first1 := g.FirstValues[1]
	last1 := g.LastValues[1]
	if binfmt.GetF64(first1.Values, 0) != 10 {
		t.Fatalf("first value for symbol 1 = %v, want 10", binfmt.GetF64(first1.Values, 0))
	}
	if binfmt.GetF64(last1.Values, 0) != 20 {
		t.Fatalf("last value for symbol 1 = %v, want 20", binfmt.GetF64(last1.Values, 0))
	}

	first2 := g.FirstValues[2]
	if binfmt.GetF64(first2.Values, 0) != 30 {
		t.Fatalf("first value for symbol 2 = %v, want 30", binfmt.GetF64(first2.Values, 0))
	}
}

func TestBuildEmptyBatch(t *testing.T) {
	groups, err := Build(testSchema(), nil, nil, []ColumnInput{{F64: nil}})
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	if groups == nil || len(groups) != 0 {
		t.Fatalf("groups = %v, want empty non-nil map", groups)
	}
}

func TestBuildRejectsLengthMismatch(t *testing.T) {
	sch := testSchema()
	_, err := Build(sch, []int64{1, 2}, []int64{1}, []ColumnInput{{F64: []float64{1, 2}}})
	if !zerrors.Is(err, zerrors.SchemaMismatch) {
		t.Fatalf("err = %v, want SchemaMismatch", err)
	}
}

func TestBuildRejectsColumnCountMismatch(t *testing.T) {
	sch := testSchema()
	_, err := Build(sch, []int64{1}, []int64{1}, nil)
	if !zerrors.Is(err, zerrors.SchemaMismatch) {
		t.Fatalf("err = %v, want SchemaMismatch", err)
	}
}

func TestBuildRejectsWrongColumnVariant(t *testing.T) {
	sch := testSchema()
	_, err := Build(sch, []int64{1}, []int64{1}, []ColumnInput{{I64: []int64{1}}})
	if !zerrors.Is(err, zerrors.SchemaMismatch) {
		t.Fatalf("err = %v, want SchemaMismatch", err)
	}
}

func TestBuildRejectsColumnLengthMismatch(t *testing.T) {
	sch := testSchema()
	_, err := Build(sch, []int64{1, 2}, []int64{1, 1}, []ColumnInput{{F64: []float64{1}}})
	if !zerrors.Is(err, zerrors.SchemaMismatch) {
		t.Fatalf("err = %v, want SchemaMismatch", err)
	}
}
