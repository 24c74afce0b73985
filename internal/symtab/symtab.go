// Copyright the Zola authors.
// Use of this source code is governed by an Apache-2.0
// license that can be found in the LICENSE file.

// Package symtab interns human-readable symbol names (tickers, instrument
// codes) to the int64 symbol ids the storage core actually keys rows by.
// It persists as a newline-delimited ".symbols" file alongside a table's
// schema: line N holds the name assigned id N. This is purely a
// convenience layer above the core — the core never sees names, only ids.
package symtab

import (
	"bufio"
	"os"
	"strings"
	"sync"

	"github.com/leifmetcalf/zola-db/internal/zerrors"
)

// Table maps symbol names to dense int64 ids, in assignment order.
type Table struct {
	mu    sync.RWMutex
	names []string
	ids   map[string]int64
}

// New returns an empty symbol table.
func New() *Table {
	return &Table{ids: map[string]int64{}}
}

// Load reads a ".symbols" file, one name per line, in id order. A missing
// file is not an error: it means no symbol has been named yet.
func Load(path string) (*Table, error) {
	f, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return New(), nil
		}
		return nil, zerrors.Wrap(zerrors.IO, path, err)
	}
	defer f.Close()

	t := New()
	sc := bufio.NewScanner(f)
	var id int64
	for sc.Scan() {
		name := sc.Text()
		if name == "" {
			continue
		}
		t.names = append(t.names, name)
		t.ids[name] = id
		id++
	}
	if err := sc.Err(); err != nil {
		return nil, zerrors.Wrap(zerrors.IO, path, err)
	}
	return t, nil
}

// Save writes the table's names, one per line, in id order.
func (t *Table) Save(path string) error {
	t.mu.RLock()
	defer t.mu.RUnlock()

	var b strings.Builder
	for _, n := range t.names {
		b.WriteString(n)
		b.WriteByte('\n')
	}
	if err := os.WriteFile(path, []byte(b.String()), 0o644); err != nil {
		return zerrors.Wrap(zerrors.IO, path, err)
	}
	return nil
}

// GetOrInsert returns name's id, assigning the next free id if name is new.
func (t *Table) GetOrInsert(name string) int64 {
	t.mu.Lock()
	defer t.mu.Unlock()
	if id, ok := t.ids[name]; ok {
		return id
	}
	id := int64(len(t.names))
	t.names = append(t.names, name)
	t.ids[name] = id
	return id
}

// ID returns name's id, if it has been assigned one.
func (t *Table) ID(name string) (int64, bool) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	id, ok := t.ids[name]
	return id, ok
}

// Name returns the name assigned to id, if any.
func (t *Table) Name(id int64) (string, bool) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	if id < 0 || int(id) >= len(t.names) {
		return "", false
	}
	return t.names[id], true
}
