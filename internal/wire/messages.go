// Copyright the Zola authors.
// Use of this source code is governed by an Apache-2.0
// license that can be found in the LICENSE file.

package wire

import (
	"bufio"
	"bytes"
	"io"
	"math"

	"github.com/leifmetcalf/zola-db/internal/asof"
	"github.com/leifmetcalf/zola-db/internal/ingest"
	"github.com/leifmetcalf/zola-db/internal/schema"
	"github.com/leifmetcalf/zola-db/internal/zerrors"
)

// WriteRequest is the decoded body of a MsgWrite frame.
type WriteRequest struct {
	Table   string
	Schema  *schema.Schema
	Rows    int
	Timestamps []int64
	Symbols    []int64
	Columns    []ingest.ColumnInput
}

// EncodeWriteRequest renders req per §6's WRITE body layout.
func EncodeWriteRequest(req *WriteRequest) ([]byte, error) {
	var buf bytes.Buffer
	w := bufio.NewWriter(&buf)

	if err := writeSection(w, []byte(req.Table)); err != nil {
		return nil, err
	}
	if err := writeSection(w, req.Schema.Render()); err != nil {
		return nil, err
	}

	colCount := len(req.Schema.Columns)
	var head [16]byte
	nend.PutUint64(head[0:8], uint64(req.Rows))
	nend.PutUint64(head[8:16], uint64(colCount))
	if _, err := w.Write(head[:]); err != nil {
		return nil, err
	}

	if err := writeI64Slice(w, req.Timestamps); err != nil {
		return nil, err
	}
	if err := writeI64Slice(w, req.Symbols); err != nil {
		return nil, err
	}

	colTypes := make([]uint32, colCount)
	for i, c := range req.Schema.Columns {
		colTypes[i] = uint32(c.Type)
	}
	if err := writeU32Slice(w, colTypes); err != nil {
		return nil, err
	}

	for i, c := range req.Schema.Columns {
		switch c.Type {
		case schema.I64:
			if err := writeI64Slice(w, req.Columns[i].I64); err != nil {
				return nil, err
			}
		case schema.F64:
			buf8 := make([]byte, 8*len(req.Columns[i].F64))
			for j, x := range req.Columns[i].F64 {
				nend.PutUint64(buf8[j*8:], math.Float64bits(x))
			}
			if _, err := w.Write(buf8); err != nil {
				return nil, err
			}
		}
	}

	if err := w.Flush(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// DecodeWriteRequest parses a WRITE frame body.
func DecodeWriteRequest(body []byte) (*WriteRequest, error) {
	r := bytes.NewReader(body)

	tableBytes, err := readSection(r)
	if err != nil {
		return nil, err
	}
	schemaBytes, err := readSection(r)
	if err != nil {
		return nil, err
	}
	sch, err := schema.Parse(schemaBytes)
	if err != nil {
		return nil, err
	}

	var head [16]byte
	if _, err := io.ReadFull(r, head[:]); err != nil {
		return nil, zerrors.Wrap(zerrors.Wire, "", err)
	}
	rowCount := int(nend.Uint64(head[0:8]))
	colCount := int(nend.Uint64(head[8:16]))
	if colCount != len(sch.Columns) {
		return nil, zerrors.Newf(zerrors.SchemaMismatch, "", "wire col_count %d does not match schema column count %d", colCount, len(sch.Columns))
	}

	timestamps, err := readI64Slice(r, rowCount)
	if err != nil {
		return nil, zerrors.Wrap(zerrors.Wire, "", err)
	}
	symbols, err := readI64Slice(r, rowCount)
	if err != nil {
		return nil, zerrors.Wrap(zerrors.Wire, "", err)
	}
	colTypes, err := readU32Slice(r, colCount)
	if err != nil {
		return nil, zerrors.Wrap(zerrors.Wire, "", err)
	}

	columns := make([]ingest.ColumnInput, colCount)
	for i, c := range sch.Columns {
		if colTypes[i] != uint32(c.Type) {
			return nil, zerrors.Newf(zerrors.SchemaMismatch, "", "wire column %d type %d does not match schema type %d", i, colTypes[i], c.Type)
		}
		switch c.Type {
		case schema.I64:
			v, err := readI64Slice(r, rowCount)
			if err != nil {
				return nil, zerrors.Wrap(zerrors.Wire, "", err)
			}
			columns[i] = ingest.ColumnInput{I64: v}
		case schema.F64:
			raw := make([]byte, 8*rowCount)
			if _, err := io.ReadFull(r, raw); err != nil {
				return nil, zerrors.Wrap(zerrors.Wire, "", err)
			}
			v := make([]float64, rowCount)
			for j := range v {
				v[j] = math.Float64frombits(nend.Uint64(raw[j*8:]))
			}
			columns[i] = ingest.ColumnInput{F64: v}
		}
	}

	return &WriteRequest{
		Table:      string(tableBytes),
		Schema:     sch,
		Rows:       rowCount,
		Timestamps: timestamps,
		Symbols:    symbols,
		Columns:    columns,
	}, nil
}

// AsofRequest is the decoded body of a MsgAsof frame.
type AsofRequest struct {
	Table      string
	Direction  asof.Direction
	Symbols    []int64
	Timestamps []int64
}

// EncodeAsofRequest renders req per §6's ASOF body layout.
func EncodeAsofRequest(req *AsofRequest) ([]byte, error) {
	var buf bytes.Buffer
	w := bufio.NewWriter(&buf)

	if err := writeSection(w, []byte(req.Table)); err != nil {
		return nil, err
	}

	var dirBuf [8]byte
	nend.PutUint32(dirBuf[0:4], uint32(req.Direction))
	if _, err := w.Write(dirBuf[:]); err != nil {
		return nil, err
	}

	var countBuf [8]byte
	nend.PutUint64(countBuf[:], uint64(len(req.Symbols)))
	if _, err := w.Write(countBuf[:]); err != nil {
		return nil, err
	}

	if err := writeI64Slice(w, req.Symbols); err != nil {
		return nil, err
	}
	if err := writeI64Slice(w, req.Timestamps); err != nil {
		return nil, err
	}

	if err := w.Flush(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// DecodeAsofRequest parses an ASOF frame body.
func DecodeAsofRequest(body []byte) (*AsofRequest, error) {
	r := bytes.NewReader(body)

	table, err := readSection(r)
	if err != nil {
		return nil, err
	}

	var dirBuf [8]byte
	if _, err := io.ReadFull(r, dirBuf[:]); err != nil {
		return nil, zerrors.Wrap(zerrors.Wire, "", err)
	}
	dir := asof.Direction(nend.Uint32(dirBuf[0:4]))

	var countBuf [8]byte
	if _, err := io.ReadFull(r, countBuf[:]); err != nil {
		return nil, zerrors.Wrap(zerrors.Wire, "", err)
	}
	n := int(nend.Uint64(countBuf[:]))

	symbols, err := readI64Slice(r, n)
	if err != nil {
		return nil, zerrors.Wrap(zerrors.Wire, "", err)
	}
	timestamps, err := readI64Slice(r, n)
	if err != nil {
		return nil, zerrors.Wrap(zerrors.Wire, "", err)
	}

	return &AsofRequest{Table: string(table), Direction: dir, Symbols: symbols, Timestamps: timestamps}, nil
}

// EncodeResult renders an asof.Result per §6's RESULT body layout.
func EncodeResult(res *asof.Result) ([]byte, error) {
	var buf bytes.Buffer
	w := bufio.NewWriter(&buf)

	probeCount := len(res.Timestamps)
	colCount := len(res.Columns)
	var head [16]byte
	nend.PutUint64(head[0:8], uint64(probeCount))
	nend.PutUint64(head[8:16], uint64(colCount))
	if _, err := w.Write(head[:]); err != nil {
		return nil, err
	}

	if err := writeI64Slice(w, res.Timestamps); err != nil {
		return nil, err
	}

	colTypes := make([]uint32, colCount)
	for i, c := range res.Columns {
		colTypes[i] = uint32(c.Type)
	}
	if err := writeU32Slice(w, colTypes); err != nil {
		return nil, err
	}

	for _, c := range res.Columns {
		switch c.Type {
		case schema.I64:
			if err := writeI64Slice(w, c.I64); err != nil {
				return nil, err
			}
		case schema.F64:
			raw := make([]byte, 8*len(c.F64))
			for j, x := range c.F64 {
				nend.PutUint64(raw[j*8:], math.Float64bits(x))
			}
			if _, err := w.Write(raw); err != nil {
				return nil, err
			}
		}
	}

	if err := w.Flush(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// DecodeResult parses a RESULT frame body. The frame is self-describing:
// each column's type is taken from the body's col_types.
func DecodeResult(body []byte) (*asof.Result, error) {
	r := bytes.NewReader(body)

	var head [16]byte
	if _, err := io.ReadFull(r, head[:]); err != nil {
		return nil, zerrors.Wrap(zerrors.Wire, "", err)
	}
	probeCount := int(nend.Uint64(head[0:8]))
	colCount := int(nend.Uint64(head[8:16]))

	timestamps, err := readI64Slice(r, probeCount)
	if err != nil {
		return nil, zerrors.Wrap(zerrors.Wire, "", err)
	}
	colTypes, err := readU32Slice(r, colCount)
	if err != nil {
		return nil, zerrors.Wrap(zerrors.Wire, "", err)
	}

	cols := make([]asof.ColumnResult, colCount)
	for i, t := range colTypes {
		switch schema.Type(t) {
		case schema.I64:
			v, err := readI64Slice(r, probeCount)
			if err != nil {
				return nil, zerrors.Wrap(zerrors.Wire, "", err)
			}
			cols[i] = asof.ColumnResult{Type: schema.I64, I64: v}
		case schema.F64:
			raw := make([]byte, 8*probeCount)
			if _, err := io.ReadFull(r, raw); err != nil {
				return nil, zerrors.Wrap(zerrors.Wire, "", err)
			}
			v := make([]float64, probeCount)
			for j := range v {
				v[j] = math.Float64frombits(nend.Uint64(raw[j*8:]))
			}
			cols[i] = asof.ColumnResult{Type: schema.F64, F64: v}
		default:
			return nil, zerrors.Newf(zerrors.Wire, "", "unknown wire column type %d", t)
		}
	}

	return &asof.Result{Timestamps: timestamps, Columns: cols}, nil
}
