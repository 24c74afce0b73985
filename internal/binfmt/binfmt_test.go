// Copyright the Zola authors.
// Use of this source code is governed by an Apache-2.0
// license that can be found in the LICENSE file.

package binfmt

import (
	"testing"

	"github.com/leifmetcalf/zola-db/internal/zerrors"
)

func TestColumnHeaderRoundTrip(t *testing.T) {
	h := ColumnHeader{ColType: ColTypeF64, RowCount: 12345}
	buf := EncodeColumnHeader(h)
	if len(buf) != ColumnHeaderSize {
		t.Fatalf("encoded header len = %d, want %d", len(buf), ColumnHeaderSize)
	}
	got, err := DecodeColumnHeader(buf, "test")
	if err != nil {
		t.Fatalf("DecodeColumnHeader: %v", err)
	}
	if got != h {
		t.Fatalf("got %+v, want %+v", got, h)
	}
}

func TestDecodeColumnHeaderShort(t *testing.T) {
	_, err := DecodeColumnHeader(make([]byte, 10), "test")
	if !zerrors.Is(err, zerrors.InvalidFile) {
		t.Fatalf("err = %v, want InvalidFile", err)
	}
}

func TestDecodeColumnHeaderBadMagic(t *testing.T) {
	buf := EncodeColumnHeader(ColumnHeader{ColType: ColTypeI64})
	buf[0] ^= 0xff
	_, err := DecodeColumnHeader(buf, "test")
	if !zerrors.Is(err, zerrors.InvalidFile) {
		t.Fatalf("err = %v, want InvalidFile", err)
	}
}

func TestDecodeColumnHeaderBadVersion(t *testing.T) {
	buf := EncodeColumnHeader(ColumnHeader{ColType: ColTypeI64})
	nend.PutUint32(buf[4:8], 99)
	_, err := DecodeColumnHeader(buf, "test")
	if !zerrors.Is(err, zerrors.InvalidFile) {
		t.Fatalf("err = %v, want InvalidFile", err)
	}
}

func TestDecodeColumnHeaderBadColType(t *testing.T) {
	buf := EncodeColumnHeader(ColumnHeader{ColType: ColTypeI64})
	nend.PutUint32(buf[8:12], 7)
	_, err := DecodeColumnHeader(buf, "test")
	if !zerrors.Is(err, zerrors.InvalidFile) {
		t.Fatalf("err = %v, want InvalidFile", err)
	}
}

func TestPartedRecordRoundTrip(t *testing.T) {
	buf := EncodePartedRecord(-7, 10, 20)
	if len(buf) != PartedRecordSize {
		t.Fatalf("len = %d, want %d", len(buf), PartedRecordSize)
	}
	sym, start, end := DecodePartedRecord(buf)
	if sym != -7 || start != 10 || end != 20 {
		t.Fatalf("got (%d, %d, %d), want (-7, 10, 20)", sym, start, end)
	}
}

func TestSidecarHeaderRoundTrip(t *testing.T) {
	h := SidecarHeader{NumSymbols: 3, NumValueCols: 2}
	buf := EncodeSidecarHeader(h)
	got, err := DecodeSidecarHeader(buf, "test")
	if err != nil {
		t.Fatalf("DecodeSidecarHeader: %v", err)
	}
	if got != h {
		t.Fatalf("got %+v, want %+v", got, h)
	}
}

func TestDecodeSidecarHeaderBadMagic(t *testing.T) {
	buf := EncodeSidecarHeader(SidecarHeader{NumSymbols: 1})
	buf[0] ^= 0xff
	if _, err := DecodeSidecarHeader(buf, "test"); !zerrors.Is(err, zerrors.InvalidFile) {
		t.Fatalf("err = %v, want InvalidFile", err)
	}
}

func TestSidecarRecordSize(t *testing.T) {
	if got := SidecarRecordSize(2); got != 32 {
		t.Fatalf("SidecarRecordSize(2) = %d, want 32", got)
	}
	if got := SidecarRecordSize(0); got != 16 {
		t.Fatalf("SidecarRecordSize(0) = %d, want 16", got)
	}
}

func TestI64Word(t *testing.T) {
	buf := make([]byte, 16)
	PutI64(buf, 8, -42)
	if got := GetI64(buf, 8); got != -42 {
		t.Fatalf("GetI64 = %d, want -42", got)
	}
}

func TestF64Word(t *testing.T) {
	buf := make([]byte, 16)
	PutF64(buf, 0, 3.14159)
	if got := GetF64(buf, 0); got != 3.14159 {
		t.Fatalf("GetF64 = %v, want 3.14159", got)
	}
}
