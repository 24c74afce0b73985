// Copyright the Zola authors.
// Use of this source code is governed by an Apache-2.0
// license that can be found in the LICENSE file.

package wire

import (
	"bufio"
	"context"
	"io"
	"net"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"golang.org/x/time/rate"

	"github.com/leifmetcalf/zola-db/internal/catalog"
	"github.com/leifmetcalf/zola-db/internal/zerrors"
	"github.com/leifmetcalf/zola-db/internal/zlog"
)

// IdleTimeout is the server's default idle-read timeout per §6.
const IdleTimeout = 30 * time.Second

// Server serves the framed TCP protocol over a catalog. The catalog itself
// does no locking, so Server wraps every operation in a RWMutex: Write takes
// the write lock, Asof takes the read lock, matching the single-writer model
// described by SPEC_FULL.md §5. Instrumentation is owned by the catalog
// (the *zmetrics.Metrics passed to catalog.Open records every write/publish/
// asof call); Server holds no metrics of its own.
type Server struct {
	cat     *catalog.Catalog
	log     *zlog.Logger
	limiter *rate.Limiter

	mu sync.RWMutex

	listener net.Listener
}

// NewServer builds a Server over an already-open catalog. rateLimit is the
// sustained accept rate in connections/sec and burst its token-bucket
// burst size; rateLimit <= 0 disables limiting.
func NewServer(cat *catalog.Catalog, log *zlog.Logger, rateLimit float64, burst int) *Server {
	if log == nil {
		log = zlog.NoOp()
	}
	var limiter *rate.Limiter
	if rateLimit > 0 {
		limiter = rate.NewLimiter(rate.Limit(rateLimit), burst)
	}
	return &Server{cat: cat, log: log, limiter: limiter}
}

// Serve binds addr and accepts connections until ctx is canceled.
func (s *Server) Serve(ctx context.Context, addr string) error {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return zerrors.Wrap(zerrors.IO, addr, err)
	}
	s.listener = ln

	go func() {
		<-ctx.Done()
		ln.Close()
	}()

	s.log.WithField("addr", addr).Info("wire server listening")

	for {
		conn, err := ln.Accept()
		if err != nil {
			select {
			case <-ctx.Done():
				return nil
			default:
				return zerrors.Wrap(zerrors.IO, addr, err)
			}
		}
		if s.limiter != nil {
			if err := s.limiter.Wait(ctx); err != nil {
				conn.Close()
				continue
			}
		}
		go s.handleConn(conn)
	}
}

func (s *Server) handleConn(conn net.Conn) {
	connID := uuid.New().String()
	log := s.log.WithField("conn", connID).WithField("remote", conn.RemoteAddr().String())
	log.Info("connection opened")
	defer func() {
		conn.Close()
		log.Info("connection closed")
	}()

	r := bufio.NewReader(conn)
	for {
		conn.SetReadDeadline(time.Now().Add(IdleTimeout))

		hdr, err := ReadHeader(r)
		if err != nil {
			if werr, ok := err.(*zerrors.Error); ok {
				s.writeError(conn, werr.Error())
			}
			return
		}

		body := make([]byte, hdr.BodyLen)
		if _, err := io.ReadFull(r, body); err != nil {
			return
		}

		switch hdr.MsgType {
		case MsgWrite:
			s.handleWrite(conn, body, log)
		case MsgAsof:
			s.handleAsof(conn, body, log)
		default:
			s.writeError(conn, "unexpected client message type")
			return
		}
	}
}

func (s *Server) handleWrite(conn net.Conn, body []byte, log *logrus.Entry) {
	req, err := DecodeWriteRequest(body)
	if err != nil {
		s.writeError(conn, err.Error())
		return
	}

	s.mu.Lock()
	err = s.cat.Write(req.Table, req.Schema, req.Timestamps, req.Symbols, req.Columns)
	s.mu.Unlock()

	if err != nil {
		log.WithField("table", req.Table).WithField("err", err).Warn("write failed")
		s.writeError(conn, err.Error())
		return
	}
	s.writeOK(conn)
}

func (s *Server) handleAsof(conn net.Conn, body []byte, log *logrus.Entry) {
	req, err := DecodeAsofRequest(body)
	if err != nil {
		s.writeError(conn, err.Error())
		return
	}

	s.mu.RLock()
	res, err := s.cat.Asof(req.Table, req.Symbols, req.Timestamps, req.Direction)
	s.mu.RUnlock()

	if err != nil {
		log.WithField("table", req.Table).WithField("err", err).Warn("asof failed")
		s.writeError(conn, err.Error())
		return
	}

	body, err = EncodeResult(res)
	if err != nil {
		s.writeError(conn, err.Error())
		return
	}
	WriteHeader(conn, Header{MsgType: MsgResult, BodyLen: uint64(len(body))})
	conn.Write(body)
}

func (s *Server) writeOK(conn net.Conn) {
	WriteHeader(conn, Header{MsgType: MsgOK, BodyLen: 0})
}

func (s *Server) writeError(conn net.Conn, msg string) {
	WriteHeader(conn, Header{MsgType: MsgError, BodyLen: uint64(len(msg))})
	conn.Write([]byte(msg))
}
