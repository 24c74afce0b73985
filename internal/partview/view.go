// Copyright the Zola authors.
// Use of this source code is governed by an Apache-2.0
// license that can be found in the LICENSE file.

// Package partview provides a zero-copy, typed view of one partition
// directory: memory-mapped column slices, a symbol→row-range index loaded
// eagerly into memory, and both sidecar dictionaries (SPEC_FULL.md §4.2).
package partview

import (
	"os"
	"path/filepath"
	"sort"
	"strings"
	"unsafe"

	mmap "github.com/edsrzf/mmap-go"
	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/leifmetcalf/zola-db/internal/binfmt"
	"github.com/leifmetcalf/zola-db/internal/schema"
	"github.com/leifmetcalf/zola-db/internal/zerrors"
)

// rangeCacheSize bounds the per-partition memoization cache of symbol_id ->
// row range binary-search results. A probe batch that repeatedly resolves
// the same hot symbols (the common case for market-data replay) pays the
// O(log S) search once per partition per symbol instead of once per probe.
const rangeCacheSize = 4096

type symRange struct {
	start, end uint64
}

type mappedColumn struct {
	typ schema.Type
	mm  mmap.MMap
	i64 []int64
	f64 []float64
}

// View is a memory-mapped, typed view of a single "YYYY.MM.DD" partition
// directory. It is immutable once opened; a write that touches this date
// produces a new directory and a new View, never an in-place mutation.
type View struct {
	dir      string
	rowCount uint64

	timestamps []int64
	symbols    []int64
	columns    map[string]*mappedColumn

	parted []binfmt.PartedEntryView

	firstValues map[int64][]byte
	lastValues  map[int64][]byte

	rangeCache *lru.Cache[int64, symRange]

	maps []mmap.MMap
}

// asI64 reinterprets a native-endian byte slice as an []int64 without
// copying. The byte slice must come from a page-aligned mmap region at an
// 8-byte-aligned offset, which every column file satisfies: the 24-byte
// header is itself a multiple of 8.
func asI64(b []byte) []int64 {
	if len(b) == 0 {
		return nil
	}
	return unsafe.Slice((*int64)(unsafe.Pointer(&b[0])), len(b)/binfmt.WordSize)
}

func asF64(b []byte) []float64 {
	if len(b) == 0 {
		return nil
	}
	return unsafe.Slice((*float64)(unsafe.Pointer(&b[0])), len(b)/binfmt.WordSize)
}

func mapColumnFile(path string, want schema.Type, rowCount *uint64, haveRowCount bool) (*mappedColumn, mmap.MMap, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, nil, zerrors.Wrap(zerrors.IO, path, err)
	}
	defer f.Close()

	m, err := mmap.Map(f, mmap.RDONLY, 0)
	if err != nil {
		return nil, nil, zerrors.Wrap(zerrors.IO, path, err)
	}

	if len(m) < binfmt.ColumnHeaderSize {
		m.Unmap()
		return nil, nil, zerrors.Newf(zerrors.InvalidFile, path, "file too short for a column header")
	}
	hdr, err := binfmt.DecodeColumnHeader(m[:binfmt.ColumnHeaderSize], path)
	if err != nil {
		m.Unmap()
		return nil, nil, err
	}
	wantType := binfmt.ColTypeI64
	if want == schema.F64 {
		wantType = binfmt.ColTypeF64
	}
	if hdr.ColType != wantType {
		m.Unmap()
		return nil, nil, zerrors.Newf(zerrors.InvalidFile, path, "column type mismatch: declared %d, schema wants %d", hdr.ColType, wantType)
	}
	data := m[binfmt.ColumnHeaderSize:]
	if len(data)%binfmt.WordSize != 0 {
		m.Unmap()
		return nil, nil, zerrors.Newf(zerrors.InvalidFile, path, "column data misaligned for 8-byte words")
	}
	gotRows := uint64(len(data) / binfmt.WordSize)
	if gotRows != hdr.RowCount {
		m.Unmap()
		return nil, nil, zerrors.Newf(zerrors.InvalidFile, path, "row count %d does not match file size (implies %d)", hdr.RowCount, gotRows)
	}
	if haveRowCount && gotRows != *rowCount {
		m.Unmap()
		return nil, nil, zerrors.Newf(zerrors.InvalidFile, path, "row count %d disagrees with partition row count %d", gotRows, *rowCount)
	}
	*rowCount = gotRows

	col := &mappedColumn{typ: want}
	if want == schema.F64 {
		col.f64 = asF64(data)
	} else {
		col.i64 = asI64(data)
	}
	return col, m, nil
}

func loadPartedIndex(path string) ([]binfmt.PartedEntryView, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, zerrors.Wrap(zerrors.IO, path, err)
	}
	if len(data)%binfmt.PartedRecordSize != 0 {
		return nil, zerrors.Newf(zerrors.InvalidFile, path, "parted index size %d not a multiple of %d", len(data), binfmt.PartedRecordSize)
	}
	n := len(data) / binfmt.PartedRecordSize
	out := make([]binfmt.PartedEntryView, n)
	for i := 0; i < n; i++ {
		rec := data[i*binfmt.PartedRecordSize : (i+1)*binfmt.PartedRecordSize]
		sym, start, end := binfmt.DecodePartedRecord(rec)
		out[i] = binfmt.PartedEntryView{SymbolID: sym, Start: start, End: end}
	}
	for i := 1; i < n; i++ {
		if out[i].SymbolID <= out[i-1].SymbolID {
			return nil, zerrors.Newf(zerrors.InvalidFile, path, "parted index not strictly ascending at record %d", i)
		}
	}
	return out, nil
}

func loadSidecar(path string, numValueCols int) (map[int64][]byte, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return map[int64][]byte{}, nil
		}
		return nil, zerrors.Wrap(zerrors.IO, path, err)
	}
	if len(data) < binfmt.SidecarHeaderSize {
		return nil, zerrors.Newf(zerrors.InvalidFile, path, "sidecar file too short")
	}
	hdr, err := binfmt.DecodeSidecarHeader(data[:binfmt.SidecarHeaderSize], path)
	if err != nil {
		return nil, err
	}
	if int(hdr.NumValueCols) != numValueCols {
		return nil, zerrors.Newf(zerrors.InvalidFile, path, "sidecar declares %d value columns, schema has %d", hdr.NumValueCols, numValueCols)
	}
	recSize := binfmt.SidecarRecordSize(numValueCols)
	body := data[binfmt.SidecarHeaderSize:]
	if len(body) != int(hdr.NumSymbols)*recSize {
		return nil, zerrors.Newf(zerrors.InvalidFile, path, "sidecar body size does not match num_symbols*record_size")
	}
	out := make(map[int64][]byte, hdr.NumSymbols)
	for i := 0; i < int(hdr.NumSymbols); i++ {
		rec := body[i*recSize : (i+1)*recSize]
		symbolID := binfmt.GetI64(rec, 0)
		out[symbolID] = rec[8:] // timestamp + value words, exactly what §4.1 calls "value-bytes"
	}
	return out, nil
}

// Open memory-maps every declared column file and loads the parted index
// and sidecars for the partition directory at dir.
func Open(dir string, sch *schema.Schema) (*View, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, zerrors.Wrap(zerrors.IO, dir, err)
	}
	present := map[string]bool{}
	for _, e := range entries {
		if !e.IsDir() && strings.HasSuffix(e.Name(), ".col") {
			present[strings.TrimSuffix(e.Name(), ".col")] = true
		}
	}

	v := &View{dir: dir, columns: map[string]*mappedColumn{}}
	var haveRowCount bool

	tsCol, tsMap, err := mapColumnFile(filepath.Join(dir, "timestamp.col"), schema.I64, &v.rowCount, haveRowCount)
	if err != nil {
		return nil, err
	}
	v.maps = append(v.maps, tsMap)
	v.timestamps = tsCol.i64
	haveRowCount = true

	symCol, symMap, err := mapColumnFile(filepath.Join(dir, "symbol.col"), schema.I64, &v.rowCount, haveRowCount)
	if err != nil {
		v.Close()
		return nil, err
	}
	v.maps = append(v.maps, symMap)
	v.symbols = symCol.i64

	for _, c := range sch.Columns {
		if !present[c.Name] {
			v.Close()
			return nil, zerrors.Newf(zerrors.InvalidFile, dir, "missing column file %q.col", c.Name)
		}
		col, m, err := mapColumnFile(filepath.Join(dir, c.Name+".col"), c.Type, &v.rowCount, haveRowCount)
		if err != nil {
			v.Close()
			return nil, err
		}
		v.maps = append(v.maps, m)
		v.columns[c.Name] = col
	}

	parted, err := loadPartedIndex(filepath.Join(dir, ".parted"))
	if err != nil {
		v.Close()
		return nil, err
	}
	v.parted = parted

	first, err := loadSidecar(filepath.Join(dir, ".first_values"), len(sch.Columns))
	if err != nil {
		v.Close()
		return nil, err
	}
	v.firstValues = first

	last, err := loadSidecar(filepath.Join(dir, ".last_values"), len(sch.Columns))
	if err != nil {
		v.Close()
		return nil, err
	}
	v.lastValues = last

	cache, _ := lru.New[int64, symRange](rangeCacheSize)
	v.rangeCache = cache

	return v, nil
}

// Close unmaps every memory-mapped column file. Readers currently executing
// against this View must not call Close concurrently with a read.
func (v *View) Close() error {
	var firstErr error
	for _, m := range v.maps {
		if m == nil {
			continue
		}
		if err := m.Unmap(); err != nil && firstErr == nil {
			firstErr = zerrors.Wrap(zerrors.IO, v.dir, err)
		}
	}
	return firstErr
}

// RowCount returns the partition's total row count.
func (v *View) RowCount() uint64 { return v.rowCount }

// Timestamps returns the partition-wide timestamp column.
func (v *View) Timestamps() []int64 { return v.timestamps }

// Symbols returns the partition-wide symbol column.
func (v *View) Symbols() []int64 { return v.symbols }

// ColumnI64 returns a declared I64 value column, if present.
func (v *View) ColumnI64(name string) ([]int64, bool) {
	c, ok := v.columns[name]
	if !ok || c.typ != schema.I64 {
		return nil, false
	}
	return c.i64, true
}

// ColumnF64 returns a declared F64 value column, if present.
func (v *View) ColumnF64(name string) ([]float64, bool) {
	c, ok := v.columns[name]
	if !ok || c.typ != schema.F64 {
		return nil, false
	}
	return c.f64, true
}

// SymbolRange returns the half-open row range [start, end) for sym via
// binary search over the parted index, memoizing hits in the View's LRU
// cache of rangeCacheSize entries; an evicted symbol is searched again.
func (v *View) SymbolRange(sym int64) (start, end uint64, ok bool) {
	if r, hit := v.rangeCache.Get(sym); hit {
		return r.start, r.end, true
	}
	i := sort.Search(len(v.parted), func(i int) bool { return v.parted[i].SymbolID >= sym })
	if i < len(v.parted) && v.parted[i].SymbolID == sym {
		e := v.parted[i]
		v.rangeCache.Add(sym, symRange{e.Start, e.End})
		return e.Start, e.End, true
	}
	return 0, 0, false
}

// FirstValuesEntry returns the first-value sidecar bytes for sym: the
// timestamp word followed by one word per value column.
func (v *View) FirstValuesEntry(sym int64) ([]byte, bool) {
	b, ok := v.firstValues[sym]
	return b, ok
}

// LastValuesEntry returns the last-value sidecar bytes for sym.
func (v *View) LastValuesEntry(sym int64) ([]byte, bool) {
	b, ok := v.lastValues[sym]
	return b, ok
}
