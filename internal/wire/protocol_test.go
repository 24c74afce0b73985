// Copyright the Zola authors.
// Use of this source code is governed by an Apache-2.0
// license that can be found in the LICENSE file.

package wire

import (
	"bufio"
	"bytes"
	"testing"

	"github.com/leifmetcalf/zola-db/internal/zerrors"
)

func TestHeaderRoundTrip(t *testing.T) {
	var buf bytes.Buffer
	h := Header{MsgType: MsgWrite, BodyLen: 42}
	if err := WriteHeader(&buf, h); err != nil {
		t.Fatalf("WriteHeader: %v", err)
	}
	if buf.Len() != HeaderSize {
		t.Fatalf("encoded header len = %d, want %d", buf.Len(), HeaderSize)
	}
	got, err := ReadHeader(&buf)
	if err != nil {
		t.Fatalf("ReadHeader: %v", err)
	}
	if got != h {
		t.Fatalf("got %+v, want %+v", got, h)
	}
}

func TestReadHeaderRejectsBadMagic(t *testing.T) {
	var buf bytes.Buffer
	WriteHeader(&buf, Header{MsgType: MsgOK})
	b := buf.Bytes()
	b[0] ^= 0xff
	if _, err := ReadHeader(bytes.NewReader(b)); !zerrors.Is(err, zerrors.Wire) {
		t.Fatalf("err = %v, want Wire", err)
	}
}

func TestReadHeaderRejectsBadVersion(t *testing.T) {
	var buf bytes.Buffer
	WriteHeader(&buf, Header{MsgType: MsgOK})
	b := buf.Bytes()
	nend.PutUint32(b[4:8], 99)
	if _, err := ReadHeader(bytes.NewReader(b)); !zerrors.Is(err, zerrors.Wire) {
		t.Fatalf("err = %v, want Wire", err)
	}
}

func TestReadHeaderRejectsUnknownMsgType(t *testing.T) {
	var buf bytes.Buffer
	WriteHeader(&buf, Header{MsgType: MsgOK})
	b := buf.Bytes()
	nend.PutUint32(b[8:12], 99)
	if _, err := ReadHeader(bytes.NewReader(b)); !zerrors.Is(err, zerrors.Wire) {
		t.Fatalf("err = %v, want Wire", err)
	}
}

func TestReadHeaderRejectsOversizeBody(t *testing.T) {
	var buf bytes.Buffer
	WriteHeader(&buf, Header{MsgType: MsgWrite, BodyLen: MaxBodyLen + 1})
	if _, err := ReadHeader(&buf); !zerrors.Is(err, zerrors.Wire) {
		t.Fatalf("err = %v, want Wire", err)
	}
}

func TestSectionRoundTripPadded(t *testing.T) {
	var buf bytes.Buffer
	w := bufio.NewWriter(&buf)
	payload := []byte("abc") // 3 bytes, needs 5 bytes of padding to reach 8
	if err := writeSection(w, payload); err != nil {
		t.Fatalf("writeSection: %v", err)
	}
	w.Flush()
	if buf.Len() != 8+8 {
		t.Fatalf("encoded section len = %d, want 16 (8-byte length prefix + 8-byte padded payload)", buf.Len())
	}
	got, err := readSection(&buf)
	if err != nil {
		t.Fatalf("readSection: %v", err)
	}
	if !bytes.Equal(got, payload) {
		t.Fatalf("got %q, want %q", got, payload)
	}
}

func TestSectionRoundTripAlreadyAligned(t *testing.T) {
	var buf bytes.Buffer
	w := bufio.NewWriter(&buf)
	payload := []byte("12345678") // exactly 8 bytes, no padding needed
	writeSection(w, payload)
	w.Flush()
	if buf.Len() != 8+8 {
		t.Fatalf("encoded section len = %d, want 16", buf.Len())
	}
	got, _ := readSection(&buf)
	if !bytes.Equal(got, payload) {
		t.Fatalf("got %q, want %q", got, payload)
	}
}

func TestI64SliceRoundTrip(t *testing.T) {
	var buf bytes.Buffer
	w := bufio.NewWriter(&buf)
	vals := []int64{-5, 0, 1 << 40}
	writeI64Slice(w, vals)
	w.Flush()
	got, err := readI64Slice(&buf, len(vals))
	if err != nil {
		t.Fatalf("readI64Slice: %v", err)
	}
	for i, v := range vals {
		if got[i] != v {
			t.Fatalf("got %v, want %v", got, vals)
		}
	}
}

func TestU32SliceRoundTripPadded(t *testing.T) {
	var buf bytes.Buffer
	w := bufio.NewWriter(&buf)
	vals := []uint32{1, 2, 3} // 12 bytes, needs 4 bytes padding to reach 16
	writeU32Slice(w, vals)
	w.Flush()
	if buf.Len() != 16 {
		t.Fatalf("encoded len = %d, want 16", buf.Len())
	}
	got, err := readU32Slice(&buf, len(vals))
	if err != nil {
		t.Fatalf("readU32Slice: %v", err)
	}
	for i, v := range vals {
		if got[i] != v {
			t.Fatalf("got %v, want %v", got, vals)
		}
	}
}

func TestPad8(t *testing.T) {
	cases := map[int]int{0: 0, 1: 7, 7: 1, 8: 0, 9: 7, 16: 0}
	for n, want := range cases {
		if got := pad8(n); got != want {
			t.Errorf("pad8(%d) = %d, want %d", n, got, want)
		}
	}
}
