// Copyright the Zola authors.
// Use of this source code is governed by an Apache-2.0
// license that can be found in the LICENSE file.

// Package zerrors defines the typed error taxonomy shared by every layer of
// the storage engine. Callers should use errors.As to recover a *Error and
// inspect its Kind rather than matching on message text.
package zerrors

import "fmt"

// Kind classifies an Error by the policy that applies to it, not by its
// specific cause. See SPEC_FULL.md §7 for the authoritative table.
type Kind int

const (
	// IO covers filesystem syscall failures: open, read, write, mmap, fsync,
	// rename, mkdir, remove.
	IO Kind = iota
	// InvalidFile covers corruption detected at open time: bad magic, wrong
	// size, misaligned data, malformed or truncated headers.
	InvalidFile
	// SchemaMismatch covers argument-shape problems caught synchronously at
	// write start: length mismatches, column-type mismatches, timestamps
	// outside the supported calendar range.
	SchemaMismatch
	// TableNotFound covers an asof or symbol-id lookup against a table the
	// catalog has never opened.
	TableNotFound
	// Wire covers the framed TCP protocol: bad magic, oversize body, unknown
	// message type, unexpected response shape.
	Wire
)

func (k Kind) String() string {
	switch k {
	case IO:
		return "io"
	case InvalidFile:
		return "invalid_file"
	case SchemaMismatch:
		return "schema_mismatch"
	case TableNotFound:
		return "table_not_found"
	case Wire:
		return "wire"
	default:
		return "unknown"
	}
}

// Error is the typed error returned by the storage-engine packages.
// internal/zconfig returns plain fmt errors, and the wire frame readers pass
// raw I/O errors through untagged.
type Error struct {
	Kind    Kind
	Path    string // filesystem path or table name, when applicable
	Message string
	Cause   error
}

func (e *Error) Error() string {
	if e.Path != "" {
		return fmt.Sprintf("zola: %s: %s: %s", e.Kind, e.Path, e.Message)
	}
	return fmt.Sprintf("zola: %s: %s", e.Kind, e.Message)
}

func (e *Error) Unwrap() error {
	return e.Cause
}

// Is reports whether err is a *Error of the given Kind.
func Is(err error, k Kind) bool {
	e, ok := err.(*Error)
	if !ok {
		return false
	}
	return e.Kind == k
}

// Newf constructs an Error with a formatted message.
func Newf(k Kind, path, format string, args ...interface{}) *Error {
	return &Error{Kind: k, Path: path, Message: fmt.Sprintf(format, args...)}
}

// Wrap tags a foreign error (os.*PathError, mmap errors, etc.) with a Kind
// unless it is already one of ours, in which case it is passed through
// untouched. This mirrors storage/disk's wrapError: we never swallow a
// cause, and we never double-wrap.
func Wrap(k Kind, path string, err error) error {
	if err == nil {
		return nil
	}
	if e, ok := err.(*Error); ok {
		return e
	}
	return &Error{Kind: k, Path: path, Message: err.Error(), Cause: err}
}
