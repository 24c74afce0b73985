// Copyright the Zola authors.
// Use of this source code is governed by an Apache-2.0
// license that can be found in the LICENSE file.

package partio

import (
	"os"
	"path/filepath"
	"sort"

	"github.com/leifmetcalf/zola-db/internal/binfmt"
	"github.com/leifmetcalf/zola-db/internal/schema"
	"github.com/leifmetcalf/zola-db/internal/zerrors"
)

// writeFile creates name inside dir, writes contents, fsyncs, and closes.
// Every column/index/sidecar file is written this way so a crash never
// leaves a file that looks complete but has unflushed tail bytes.
func writeFile(dir, name string, contents []byte) error {
	path := filepath.Join(dir, name)
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o644)
	if err != nil {
		return zerrors.Wrap(zerrors.IO, path, err)
	}
	if _, err := f.Write(contents); err != nil {
		f.Close()
		return zerrors.Wrap(zerrors.IO, path, err)
	}
	if err := f.Sync(); err != nil {
		f.Close()
		return zerrors.Wrap(zerrors.IO, path, err)
	}
	if err := f.Close(); err != nil {
		return zerrors.Wrap(zerrors.IO, path, err)
	}
	return nil
}

func encodeColumnFile(colType uint32, rowCount uint64, words []byte) []byte {
	header := binfmt.EncodeColumnHeader(binfmt.ColumnHeader{ColType: colType, RowCount: rowCount})
	out := make([]byte, 0, len(header)+len(words))
	out = append(out, header...)
	out = append(out, words...)
	return out
}

func i64Words(vals []int64) []byte {
	buf := make([]byte, len(vals)*binfmt.WordSize)
	for i, v := range vals {
		binfmt.PutI64(buf, i*binfmt.WordSize, v)
	}
	return buf
}

func f64Words(vals []float64) []byte {
	buf := make([]byte, len(vals)*binfmt.WordSize)
	for i, v := range vals {
		binfmt.PutF64(buf, i*binfmt.WordSize, v)
	}
	return buf
}

func encodePartedIndex(entries []PartedEntry) []byte {
	buf := make([]byte, 0, len(entries)*binfmt.PartedRecordSize)
	for _, e := range entries {
		buf = append(buf, binfmt.EncodePartedRecord(e.SymbolID, e.Start, e.End)...)
	}
	return buf
}

func encodeSidecar(entries map[int64]SidecarEntry, numValueCols int) []byte {
	ids := make([]int64, 0, len(entries))
	for id := range entries {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })

	header := binfmt.EncodeSidecarHeader(binfmt.SidecarHeader{
		NumSymbols:   uint32(len(ids)),
		NumValueCols: uint32(numValueCols),
	})
	recSize := binfmt.SidecarRecordSize(numValueCols)
	buf := make([]byte, 0, len(header)+len(ids)*recSize)
	buf = append(buf, header...)
	for _, id := range ids {
		e := entries[id]
		rec := make([]byte, recSize)
		binfmt.PutI64(rec, 0, id)
		binfmt.PutI64(rec, 8, e.Timestamp)
		copy(rec[16:], e.Values)
		buf = append(buf, rec...)
	}
	return buf
}

// writeInto renders every column file, the parted index, and both sidecars
// into dir, which the caller has already created as the ".tmp" staging
// directory.
func writeInto(dir string, sch *schema.Schema, d *Data) error {
	if err := writeFile(dir, "timestamp.col", encodeColumnFile(binfmt.ColTypeI64, d.Rows, i64Words(d.Timestamps))); err != nil {
		return err
	}
	if err := writeFile(dir, "symbol.col", encodeColumnFile(binfmt.ColTypeI64, d.Rows, i64Words(d.Symbols))); err != nil {
		return err
	}
	for i, col := range sch.Columns {
		c := d.Columns[i]
		var colType uint32
		var words []byte
		switch col.Type {
		case schema.I64:
			colType = binfmt.ColTypeI64
			words = i64Words(c.I64)
		case schema.F64:
			colType = binfmt.ColTypeF64
			words = f64Words(c.F64)
		default:
			return zerrors.Newf(zerrors.SchemaMismatch, "", "unsupported column type for %q", col.Name)
		}
		if err := writeFile(dir, col.Name+".col", encodeColumnFile(colType, d.Rows, words)); err != nil {
			return err
		}
	}
	if err := writeFile(dir, ".parted", encodePartedIndex(d.Parted)); err != nil {
		return err
	}
	numValueCols := len(sch.Columns)
	if err := writeFile(dir, ".first_values", encodeSidecar(d.FirstValues, numValueCols)); err != nil {
		return err
	}
	if err := writeFile(dir, ".last_values", encodeSidecar(d.LastValues, numValueCols)); err != nil {
		return err
	}
	return nil
}
