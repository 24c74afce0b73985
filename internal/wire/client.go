// Copyright the Zola authors.
// Use of this source code is governed by an Apache-2.0
// license that can be found in the LICENSE file.

package wire

import (
	"bufio"
	"io"
	"net"

	"github.com/leifmetcalf/zola-db/internal/asof"
	"github.com/leifmetcalf/zola-db/internal/ingest"
	"github.com/leifmetcalf/zola-db/internal/schema"
	"github.com/leifmetcalf/zola-db/internal/zerrors"
)

// Client is a single long-lived connection to a zolad wire server.
// Requests are pipelined over one connection but Client itself does not
// pipeline concurrent calls; a Client must not be used from multiple
// goroutines without external synchronization.
type Client struct {
	conn net.Conn
	r    *bufio.Reader
}

// Dial opens a new wire connection to addr.
func Dial(addr string) (*Client, error) {
	conn, err := net.Dial("tcp", addr)
	if err != nil {
		return nil, zerrors.Wrap(zerrors.IO, addr, err)
	}
	return &Client{conn: conn, r: bufio.NewReader(conn)}, nil
}

// Close closes the underlying connection.
func (c *Client) Close() error {
	return c.conn.Close()
}

func (c *Client) roundTrip(msgType MsgType, body []byte) (Header, []byte, error) {
	if err := WriteHeader(c.conn, Header{MsgType: msgType, BodyLen: uint64(len(body))}); err != nil {
		return Header{}, nil, zerrors.Wrap(zerrors.IO, "", err)
	}
	if _, err := c.conn.Write(body); err != nil {
		return Header{}, nil, zerrors.Wrap(zerrors.IO, "", err)
	}

	hdr, err := ReadHeader(c.r)
	if err != nil {
		return Header{}, nil, err
	}
	respBody := make([]byte, hdr.BodyLen)
	if _, err := io.ReadFull(c.r, respBody); err != nil {
		return Header{}, nil, zerrors.Wrap(zerrors.IO, "", err)
	}
	if hdr.MsgType == MsgError {
		return hdr, nil, zerrors.Newf(zerrors.Wire, "", "server error: %s", string(respBody))
	}
	return hdr, respBody, nil
}

// Write sends a WRITE request and waits for OK or an error.
func (c *Client) Write(table string, sch *schema.Schema, timestamps, symbols []int64, columns []ingest.ColumnInput) error {
	body, err := EncodeWriteRequest(&WriteRequest{
		Table:      table,
		Schema:     sch,
		Rows:       len(timestamps),
		Timestamps: timestamps,
		Symbols:    symbols,
		Columns:    columns,
	})
	if err != nil {
		return err
	}
	hdr, _, err := c.roundTrip(MsgWrite, body)
	if err != nil {
		return err
	}
	if hdr.MsgType != MsgOK {
		return zerrors.Newf(zerrors.Wire, "", "unexpected response type %d to WRITE", hdr.MsgType)
	}
	return nil
}

// Asof sends an ASOF request and decodes the RESULT response.
func (c *Client) Asof(table string, symbols, timestamps []int64, dir asof.Direction) (*asof.Result, error) {
	body, err := EncodeAsofRequest(&AsofRequest{Table: table, Direction: dir, Symbols: symbols, Timestamps: timestamps})
	if err != nil {
		return nil, err
	}
	hdr, respBody, err := c.roundTrip(MsgAsof, body)
	if err != nil {
		return nil, err
	}
	if hdr.MsgType != MsgResult {
		return nil, zerrors.Newf(zerrors.Wire, "", "unexpected response type %d to ASOF", hdr.MsgType)
	}
	return DecodeResult(respBody)
}
