// Copyright the Zola authors.
// Use of this source code is governed by an Apache-2.0
// license that can be found in the LICENSE file.

// Package binfmt implements the fixed-layout on-disk record kinds from
// SPEC_FULL.md §4.1: the column-file header, the parted-index record, and
// the sidecar header/record. Every multi-byte integer uses the host's
// native byte order (encoding/binary.NativeEndian) because the format is
// explicitly single-host; there is no cross-endian portability goal.
package binfmt

import (
	"encoding/binary"
	"math"

	"github.com/leifmetcalf/zola-db/internal/zerrors"
)

// Magic values, read as the big-endian interpretation of their ASCII name.
const (
	ColumnMagic  uint32 = 0x5A4F4C41 // "ZOLA"
	SidecarMagic uint32 = 0x5A534944 // "ZSID"
	FormatVersion uint32 = 1
)

// Column value types, matching schema.Type numerically.
const (
	ColTypeI64 uint32 = 1
	ColTypeF64 uint32 = 2
)

// Fixed sizes, in bytes.
const (
	ColumnHeaderSize  = 24
	PartedRecordSize  = 24
	SidecarHeaderSize = 16
	WordSize          = 8
)

var nend = binary.NativeEndian

// ColumnHeader is the 24-byte header at the front of every "<name>.col" file.
type ColumnHeader struct {
	ColType  uint32
	RowCount uint64
}

// EncodeColumnHeader renders h into a freshly allocated 24-byte buffer.
func EncodeColumnHeader(h ColumnHeader) []byte {
	buf := make([]byte, ColumnHeaderSize)
	nend.PutUint32(buf[0:4], ColumnMagic)
	nend.PutUint32(buf[4:8], FormatVersion)
	nend.PutUint32(buf[8:12], h.ColType)
	// buf[12:16] is padding, left zero.
	nend.PutUint64(buf[16:24], h.RowCount)
	return buf
}

// DecodeColumnHeader validates and parses a 24-byte column header.
func DecodeColumnHeader(buf []byte, path string) (ColumnHeader, error) {
	if len(buf) != ColumnHeaderSize {
		return ColumnHeader{}, zerrors.Newf(zerrors.InvalidFile, path, "short column header (%d bytes)", len(buf))
	}
	magic := nend.Uint32(buf[0:4])
	if magic != ColumnMagic {
		return ColumnHeader{}, zerrors.Newf(zerrors.InvalidFile, path, "bad column magic %#x", magic)
	}
	version := nend.Uint32(buf[4:8])
	if version != FormatVersion {
		return ColumnHeader{}, zerrors.Newf(zerrors.InvalidFile, path, "unsupported column version %d", version)
	}
	colType := nend.Uint32(buf[8:12])
	if colType != ColTypeI64 && colType != ColTypeF64 {
		return ColumnHeader{}, zerrors.Newf(zerrors.InvalidFile, path, "bad column type %d", colType)
	}
	rowCount := nend.Uint64(buf[16:24])
	return ColumnHeader{ColType: colType, RowCount: rowCount}, nil
}

// PartedEntryView is one decoded (symbol_id, row_range) record, as loaded
// into memory by a partition view.
type PartedEntryView struct {
	SymbolID   int64
	Start, End uint64
}

// EncodePartedRecord renders one (symbol_id, start, end) tuple.
func EncodePartedRecord(symbolID int64, start, end uint64) []byte {
	buf := make([]byte, PartedRecordSize)
	nend.PutUint64(buf[0:8], uint64(symbolID))
	nend.PutUint64(buf[8:16], start)
	nend.PutUint64(buf[16:24], end)
	return buf
}

// DecodePartedRecord parses one 24-byte parted-index record.
func DecodePartedRecord(buf []byte) (symbolID int64, start, end uint64) {
	symbolID = int64(nend.Uint64(buf[0:8]))
	start = nend.Uint64(buf[8:16])
	end = nend.Uint64(buf[16:24])
	return
}

// SidecarHeader is the 16-byte header at the front of a sidecar file.
type SidecarHeader struct {
	NumSymbols   uint32
	NumValueCols uint32
}

func EncodeSidecarHeader(h SidecarHeader) []byte {
	buf := make([]byte, SidecarHeaderSize)
	nend.PutUint32(buf[0:4], SidecarMagic)
	nend.PutUint32(buf[4:8], h.NumSymbols)
	nend.PutUint32(buf[8:12], h.NumValueCols)
	return buf
}

func DecodeSidecarHeader(buf []byte, path string) (SidecarHeader, error) {
	if len(buf) != SidecarHeaderSize {
		return SidecarHeader{}, zerrors.Newf(zerrors.InvalidFile, path, "short sidecar header (%d bytes)", len(buf))
	}
	magic := nend.Uint32(buf[0:4])
	if magic != SidecarMagic {
		return SidecarHeader{}, zerrors.Newf(zerrors.InvalidFile, path, "bad sidecar magic %#x", magic)
	}
	return SidecarHeader{
		NumSymbols:   nend.Uint32(buf[4:8]),
		NumValueCols: nend.Uint32(buf[8:12]),
	}, nil
}

// SidecarRecordSize returns the size in bytes of one sidecar record given
// the number of declared value columns: symbol_id + timestamp + values.
func SidecarRecordSize(numValueCols int) int {
	return (2 + numValueCols) * WordSize
}

// GetI64 reads a native-endian int64 word at byte offset idx.
func GetI64(buf []byte, idx int) int64 {
	return int64(nend.Uint64(buf[idx : idx+8]))
}

// PutI64 writes a native-endian int64 word at byte offset idx.
func PutI64(buf []byte, idx int, v int64) {
	nend.PutUint64(buf[idx:idx+8], uint64(v))
}

// GetF64 reads a native-endian float64 word at byte offset idx.
func GetF64(buf []byte, idx int) float64 {
	return math.Float64frombits(nend.Uint64(buf[idx : idx+8]))
}

// PutF64 writes a native-endian float64 word at byte offset idx.
func PutF64(buf []byte, idx int, v float64) {
	nend.PutUint64(buf[idx:idx+8], math.Float64bits(v))
}
