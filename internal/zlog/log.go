// Copyright the Zola authors.
// Use of this source code is governed by an Apache-2.0
// license that can be found in the LICENSE file.

// Package zlog wraps logrus with the store's two output formats: a
// human-readable text formatter for interactive use and JSON for
// production log pipelines, mirroring the split this corpus's
// internal/logging package makes for its own CLI.
package zlog

import (
	"fmt"
	"io"
	"os"

	"github.com/sirupsen/logrus"
)

// Logger is the structured logger threaded through the catalog and the
// wire server.
type Logger struct {
	*logrus.Logger
}

// Options configures a new Logger.
type Options struct {
	Level  string // "debug", "info", "warn", "error"
	Format string // "text" or "json"
	Output io.Writer
}

// New builds a Logger from Options, defaulting to info/text/stderr.
func New(opts Options) *Logger {
	l := logrus.New()

	out := opts.Output
	if out == nil {
		out = os.Stderr
	}
	l.SetOutput(out)

	switch opts.Format {
	case "json":
		l.SetFormatter(&logrus.JSONFormatter{})
	default:
		l.SetFormatter(&prettyFormatter{})
	}

	switch opts.Level {
	case "debug":
		l.SetLevel(logrus.DebugLevel)
	case "warn":
		l.SetLevel(logrus.WarnLevel)
	case "error":
		l.SetLevel(logrus.ErrorLevel)
	default:
		l.SetLevel(logrus.InfoLevel)
	}

	return &Logger{Logger: l}
}

// NoOp returns a Logger that discards everything, for tests and embedded
// use when the caller does not want storage-engine logs.
func NoOp() *Logger {
	l := logrus.New()
	l.SetOutput(io.Discard)
	return &Logger{Logger: l}
}

// prettyFormatter is a compact single-line formatter for interactive use,
// simpler than logrus's stock TextFormatter but in the same spirit as
// this corpus's own hand-rolled formatter.
type prettyFormatter struct{}

func (p *prettyFormatter) Format(e *logrus.Entry) ([]byte, error) {
	b := make([]byte, 0, 128)
	b = append(b, '[')
	b = append(b, []byte(e.Level.String())...)
	b = append(b, ']', ' ')
	b = append(b, []byte(e.Message)...)
	for k, v := range e.Data {
		b = append(b, ' ')
		b = append(b, []byte(k)...)
		b = append(b, '=')
		b = append(b, []byte(toString(v))...)
	}
	b = append(b, '\n')
	return b, nil
}

func toString(v interface{}) string {
	switch x := v.(type) {
	case string:
		return x
	case error:
		return x.Error()
	default:
		return fmt.Sprintf("%v", x)
	}
}
