// Copyright the Zola authors.
// Use of this source code is governed by an Apache-2.0
// license that can be found in the LICENSE file.

// Package schema parses and renders the ".schema" text file that fixes a
// table's value columns at creation time. The two implicit columns,
// timestamp (I64) and symbol (I64), are never listed here.
package schema

import (
	"bufio"
	"fmt"
	"os"
	"strings"

	"github.com/leifmetcalf/zola-db/internal/zerrors"
)

// Type is the closed set of value-column types this store supports.
type Type uint32

const (
	I64 Type = 1
	F64 Type = 2
)

func (t Type) String() string {
	switch t {
	case I64:
		return "i64"
	case F64:
		return "f64"
	default:
		return "unknown"
	}
}

func parseType(s string) (Type, bool) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "i64":
		return I64, true
	case "f64":
		return F64, true
	default:
		return 0, false
	}
}

// Column is one declared value column.
type Column struct {
	Name string
	Type Type
}

// Schema is the ordered list of value columns declared for a table.
type Schema struct {
	Columns []Column
}

// Equal reports whether two schemas declare the same columns, in the same
// order, with the same types. Writes must match the persisted schema
// exactly; this is the comparison §4.4 uses to detect SchemaMismatch.
func (s *Schema) Equal(other *Schema) bool {
	if s == nil || other == nil {
		return s == other
	}
	if len(s.Columns) != len(other.Columns) {
		return false
	}
	for i, c := range s.Columns {
		if c.Name != other.Columns[i].Name || c.Type != other.Columns[i].Type {
			return false
		}
	}
	return true
}

// IndexOf returns the position of a named column, or -1.
func (s *Schema) IndexOf(name string) int {
	for i, c := range s.Columns {
		if c.Name == name {
			return i
		}
	}
	return -1
}

// Parse decodes the text content of a .schema file.
func Parse(data []byte) (*Schema, error) {
	sc := bufio.NewScanner(strings.NewReader(string(data)))
	var s Schema
	seen := map[string]bool{}
	for sc.Scan() {
		line := strings.TrimSpace(sc.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		parts := strings.SplitN(line, ":", 2)
		if len(parts) != 2 {
			return nil, zerrors.Newf(zerrors.InvalidFile, "", "malformed schema line %q", line)
		}
		name := strings.TrimSpace(parts[0])
		if name == "" || name == "timestamp" || name == "symbol" {
			return nil, zerrors.Newf(zerrors.InvalidFile, "", "invalid column name %q", name)
		}
		if seen[name] {
			return nil, zerrors.Newf(zerrors.InvalidFile, "", "duplicate column name %q", name)
		}
		typ, ok := parseType(parts[1])
		if !ok {
			return nil, zerrors.Newf(zerrors.InvalidFile, "", "unknown column type %q for %q", parts[1], name)
		}
		seen[name] = true
		s.Columns = append(s.Columns, Column{Name: name, Type: typ})
	}
	if err := sc.Err(); err != nil {
		return nil, zerrors.Wrap(zerrors.IO, "", err)
	}
	return &s, nil
}

// Render encodes a Schema back to .schema text form.
func (s *Schema) Render() []byte {
	var b strings.Builder
	for _, c := range s.Columns {
		fmt.Fprintf(&b, "%s:%s\n", c.Name, c.Type)
	}
	return []byte(b.String())
}

// Load reads and parses the .schema file at path.
func Load(path string) (*Schema, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, zerrors.Wrap(zerrors.IO, path, err)
	}
	return Parse(data)
}

// Save writes the schema to path if it does not already exist. Schema is
// fixed at table creation (§3); callers never overwrite an existing file
// through this function.
func Save(path string, s *Schema) error {
	if _, err := os.Stat(path); err == nil {
		return nil
	} else if !os.IsNotExist(err) {
		return zerrors.Wrap(zerrors.IO, path, err)
	}
	if err := os.WriteFile(path, s.Render(), 0o644); err != nil {
		return zerrors.Wrap(zerrors.IO, path, err)
	}
	return nil
}
