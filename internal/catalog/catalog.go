// Copyright the Zola authors.
// Use of this source code is governed by an Apache-2.0
// license that can be found in the LICENSE file.

// Package catalog is the storage engine's top-level orchestrator: it owns
// every open table, runs crash recovery at startup, and reloads a table
// after each write (SPEC_FULL.md §4.6).
// Catalog itself performs no locking; the caller (the embedded Database or
// the wire server) is responsible for serializing Write calls against
// concurrent Asof calls, exactly as the spec's single-writer model demands.
package catalog

import (
	"os"
	"path/filepath"
	"sort"
	"time"

	"github.com/leifmetcalf/zola-db/internal/asof"
	"github.com/leifmetcalf/zola-db/internal/ingest"
	"github.com/leifmetcalf/zola-db/internal/partio"
	"github.com/leifmetcalf/zola-db/internal/partview"
	"github.com/leifmetcalf/zola-db/internal/schema"
	"github.com/leifmetcalf/zola-db/internal/symtab"
	"github.com/leifmetcalf/zola-db/internal/zerrors"
	"github.com/leifmetcalf/zola-db/internal/zlog"
	"github.com/leifmetcalf/zola-db/internal/zmetrics"
)

// Catalog is the root of one store on disk: a directory containing one
// subdirectory per table.
type Catalog struct {
	root    string
	log     *zlog.Logger
	metrics *zmetrics.Metrics

	tables map[string]*table
}

// Open opens (or creates) a store rooted at root. If root already contains
// table directories, it first sweeps away any stale .tmp/.old residue from
// an interrupted Publish, then loads every table's schema and partitions.
func Open(root string, log *zlog.Logger, metrics *zmetrics.Metrics) (*Catalog, error) {
	if log == nil {
		log = zlog.NoOp()
	}
	if metrics == nil {
		metrics = zmetrics.New()
	}

	if _, err := os.Stat(root); os.IsNotExist(err) {
		if err := os.MkdirAll(root, 0o755); err != nil {
			return nil, zerrors.Wrap(zerrors.IO, root, err)
		}
	} else if err != nil {
		return nil, zerrors.Wrap(zerrors.IO, root, err)
	} else {
		if err := partio.Sweep(root); err != nil {
			return nil, err
		}
	}

	c := &Catalog{root: root, log: log, metrics: metrics, tables: map[string]*table{}}

	entries, err := os.ReadDir(root)
	if err != nil {
		return nil, zerrors.Wrap(zerrors.IO, root, err)
	}
	for _, e := range entries {
		if !e.IsDir() {
			continue
		}
		if err := c.loadTable(e.Name()); err != nil {
			return nil, err
		}
	}

	log.WithField("root", root).WithField("tables", len(c.tables)).Info("catalog opened")
	return c, nil
}

func (c *Catalog) loadTable(name string) error {
	dir := filepath.Join(c.root, name)
	schemaPath := filepath.Join(dir, ".schema")
	if _, err := os.Stat(schemaPath); os.IsNotExist(err) {
		// Not a table directory; a bare directory with no schema is
		// simply not part of this catalog.
		return nil
	}
	sch, err := schema.Load(schemaPath)
	if err != nil {
		return err
	}
	symbols, err := symtab.Load(filepath.Join(dir, ".symbols"))
	if err != nil {
		return err
	}

	t := newTable(name, dir, sch, symbols)

	entries, err := os.ReadDir(dir)
	if err != nil {
		return zerrors.Wrap(zerrors.IO, dir, err)
	}
	for _, e := range entries {
		if !e.IsDir() || !dateDirPattern.MatchString(e.Name()) {
			continue
		}
		v, err := partview.Open(filepath.Join(dir, e.Name()), sch)
		if err != nil {
			t.closeViews()
			return err
		}
		if err := t.addView(e.Name(), v); err != nil {
			t.closeViews()
			return err
		}
	}

	c.metrics.OpenPartitions.Add(float64(len(t.views)))
	c.tables[name] = t
	return nil
}

// Close unmaps every open partition view across every table.
func (c *Catalog) Close() error {
	for _, t := range c.tables {
		t.closeViews()
	}
	return nil
}

// Write ingests one batch into table name, creating the table (and
// persisting its schema) on first write. Every row in the batch must match
// the table's column types; a schema mismatch against an already-existing
// table leaves the table untouched. A date already present in the table is
// replaced wholesale by the incoming group for that date, not merged with
// it: callers must supply the full union of rows they want that date to
// contain (SPEC_FULL.md §4.4).
func (c *Catalog) Write(name string, sch *schema.Schema, timestamps, symbols []int64, columns []ingest.ColumnInput) error {
	dir := filepath.Join(c.root, name)
	t, exists := c.tables[name]

	if exists {
		if !t.schema.Equal(sch) {
			return zerrors.Newf(zerrors.SchemaMismatch, dir, "write schema does not match table %q's persisted schema", name)
		}
	} else {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return zerrors.Wrap(zerrors.IO, dir, err)
		}
		if err := schema.Save(filepath.Join(dir, ".schema"), sch); err != nil {
			return err
		}
	}

	c.metrics.IngestRows.Observe(float64(len(timestamps)))

	groups, err := ingest.Build(sch, timestamps, symbols, columns)
	if err != nil {
		return err
	}

	dateNames := make([]string, 0, len(groups))
	for dn := range groups {
		dateNames = append(dateNames, dn)
	}
	sort.Strings(dateNames)

	for _, dn := range dateNames {
		partitionDir := filepath.Join(dir, dn)
		started := time.Now()
		if err := partio.Publish(partitionDir, sch, groups[dn]); err != nil {
			return err
		}
		c.metrics.PublishSeconds.Observe(time.Since(started).Seconds())
	}

	// All groups succeeded; reload the table wholesale so its in-memory
	// views reflect exactly what is now durable on disk.
	if exists {
		t.closeViews()
		delete(c.tables, name)
		c.metrics.OpenPartitions.Sub(float64(len(t.views)))
	}
	if err := c.loadTable(name); err != nil {
		return err
	}

	c.log.WithField("table", name).WithField("dates", len(dateNames)).WithField("rows", len(timestamps)).Info("write published")
	return nil
}

// EnsureTable creates table name's directory and persists sch if the table
// does not already exist, without publishing any partition. It exists so
// callers that need to intern a symbol name (SymbolID) before their first
// Write can still address a table that has never been written to.
func (c *Catalog) EnsureTable(name string, sch *schema.Schema) error {
	if _, ok := c.tables[name]; ok {
		return nil
	}
	dir := filepath.Join(c.root, name)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return zerrors.Wrap(zerrors.IO, dir, err)
	}
	if err := schema.Save(filepath.Join(dir, ".schema"), sch); err != nil {
		return err
	}
	return c.loadTable(name)
}

// Asof runs a batched as-of join against table name.
func (c *Catalog) Asof(name string, symbols, timestamps []int64, dir asof.Direction) (*asof.Result, error) {
	t, ok := c.tables[name]
	if !ok {
		return nil, zerrors.Newf(zerrors.TableNotFound, name, "table %q does not exist", name)
	}
	return asof.Run(t.schema, t.byDay, symbols, timestamps, dir, c.metrics)
}

// TableSchema returns the persisted schema for an open table.
func (c *Catalog) TableSchema(name string) (*schema.Schema, bool) {
	t, ok := c.tables[name]
	if !ok {
		return nil, false
	}
	return t.schema, true
}

// SymbolID returns the interned id for name in table name, assigning the
// next free id if it is new. The table must already exist.
func (c *Catalog) SymbolID(table, name string) (int64, error) {
	t, ok := c.tables[table]
	if !ok {
		return 0, zerrors.Newf(zerrors.TableNotFound, table, "table %q does not exist", table)
	}
	id := t.symbols.GetOrInsert(name)
	if err := t.symbols.Save(filepath.Join(t.dir, ".symbols")); err != nil {
		return 0, err
	}
	return id, nil
}

// SymbolName reverses SymbolID: the name assigned to id in table name.
func (c *Catalog) SymbolName(table string, id int64) (string, bool, error) {
	t, ok := c.tables[table]
	if !ok {
		return "", false, zerrors.Newf(zerrors.TableNotFound, table, "table %q does not exist", table)
	}
	name, ok := t.symbols.Name(id)
	return name, ok, nil
}
