// Copyright the Zola authors.
// Use of this source code is governed by an Apache-2.0
// license that can be found in the LICENSE file.

// Package wire implements the framed TCP protocol described by
// SPEC_FULL.md §6: a 24-byte header, 8-byte-aligned length-prefixed
// sections, and five message types (WRITE, ASOF, OK, RESULT, ERROR).
package wire

import (
	"bufio"
	"encoding/binary"
	"io"

	"github.com/leifmetcalf/zola-db/internal/zerrors"
)

// Magic identifies a zola wire frame: the ASCII bytes "ZNET".
const Magic uint32 = 0x5A4E4554

// Version is the only wire format version this build speaks.
const Version uint32 = 1

// MaxBodyLen bounds a single frame's body, per §6.
const MaxBodyLen = 4 << 30 // 4 GiB

// MsgType enumerates the five frame kinds.
type MsgType uint32

const (
	MsgWrite  MsgType = 1
	MsgAsof   MsgType = 2
	MsgOK     MsgType = 3
	MsgResult MsgType = 4
	MsgError  MsgType = 5
)

var nend = binary.NativeEndian

// HeaderSize is the fixed frame header: magic, version, msg_type, pad, body_len.
const HeaderSize = 24

// Header is one frame's fixed preamble.
type Header struct {
	MsgType MsgType
	BodyLen uint64
}

// WriteHeader writes a 24-byte frame header to w.
func WriteHeader(w io.Writer, h Header) error {
	var buf [HeaderSize]byte
	nend.PutUint32(buf[0:4], Magic)
	nend.PutUint32(buf[4:8], Version)
	nend.PutUint32(buf[8:12], uint32(h.MsgType))
	// buf[12:16] is padding, left zero.
	nend.PutUint64(buf[16:24], h.BodyLen)
	_, err := w.Write(buf[:])
	return err
}

// ReadHeader reads and validates a 24-byte frame header from r.
func ReadHeader(r io.Reader) (Header, error) {
	var buf [HeaderSize]byte
	if _, err := io.ReadFull(r, buf[:]); err != nil {
		return Header{}, err
	}
	magic := nend.Uint32(buf[0:4])
	if magic != Magic {
		return Header{}, zerrors.Newf(zerrors.Wire, "", "bad frame magic 0x%08x", magic)
	}
	version := nend.Uint32(buf[4:8])
	if version != Version {
		return Header{}, zerrors.Newf(zerrors.Wire, "", "unsupported wire version %d", version)
	}
	msgType := MsgType(nend.Uint32(buf[8:12]))
	switch msgType {
	case MsgWrite, MsgAsof, MsgOK, MsgResult, MsgError:
	default:
		return Header{}, zerrors.Newf(zerrors.Wire, "", "unknown message type %d", msgType)
	}
	bodyLen := nend.Uint64(buf[16:24])
	if bodyLen > MaxBodyLen {
		return Header{}, zerrors.Newf(zerrors.Wire, "", "oversize body %d exceeds %d", bodyLen, MaxBodyLen)
	}
	return Header{MsgType: msgType, BodyLen: bodyLen}, nil
}

func pad8(n int) int {
	if r := n % 8; r != 0 {
		return 8 - r
	}
	return 0
}

// writeSection writes a length-prefixed, 8-byte-aligned byte section.
func writeSection(w *bufio.Writer, b []byte) error {
	var lenBuf [8]byte
	nend.PutUint64(lenBuf[:], uint64(len(b)))
	if _, err := w.Write(lenBuf[:]); err != nil {
		return err
	}
	if _, err := w.Write(b); err != nil {
		return err
	}
	if p := pad8(len(b)); p > 0 {
		var zeros [8]byte
		if _, err := w.Write(zeros[:p]); err != nil {
			return err
		}
	}
	return nil
}

// readSection reads one length-prefixed, 8-byte-aligned byte section.
func readSection(r io.Reader) ([]byte, error) {
	var lenBuf [8]byte
	if _, err := io.ReadFull(r, lenBuf[:]); err != nil {
		return nil, err
	}
	n := nend.Uint64(lenBuf[:])
	if n > MaxBodyLen {
		return nil, zerrors.Newf(zerrors.Wire, "", "oversize section %d", n)
	}
	b := make([]byte, n)
	if _, err := io.ReadFull(r, b); err != nil {
		return nil, err
	}
	if p := pad8(int(n)); p > 0 {
		var skip [8]byte
		if _, err := io.ReadFull(r, skip[:p]); err != nil {
			return nil, err
		}
	}
	return b, nil
}

func writeI64Slice(w *bufio.Writer, v []int64) error {
	buf := make([]byte, 8*len(v))
	for i, x := range v {
		nend.PutUint64(buf[i*8:], uint64(x))
	}
	_, err := w.Write(buf)
	return err
}

func readI64Slice(r io.Reader, n int) ([]int64, error) {
	buf := make([]byte, 8*n)
	if _, err := io.ReadFull(r, buf); err != nil {
		return nil, err
	}
	out := make([]int64, n)
	for i := range out {
		out[i] = int64(nend.Uint64(buf[i*8:]))
	}
	return out, nil
}

func writeU32Slice(w *bufio.Writer, v []uint32) error {
	n := len(v)
	padded := n*4 + pad8(n*4)
	buf := make([]byte, padded)
	for i, x := range v {
		nend.PutUint32(buf[i*4:], x)
	}
	_, err := w.Write(buf)
	return err
}

func readU32Slice(r io.Reader, n int) ([]uint32, error) {
	padded := n*4 + pad8(n*4)
	buf := make([]byte, padded)
	if _, err := io.ReadFull(r, buf); err != nil {
		return nil, err
	}
	out := make([]uint32, n)
	for i := range out {
		out[i] = nend.Uint32(buf[i*4:])
	}
	return out, nil
}
