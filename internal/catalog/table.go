// Copyright the Zola authors.
// Use of this source code is governed by an Apache-2.0
// license that can be found in the LICENSE file.

package catalog

import (
	"regexp"
	"sort"
	"strconv"
	"strings"

	"github.com/leifmetcalf/zola-db/internal/asof"
	"github.com/leifmetcalf/zola-db/internal/caldate"
	"github.com/leifmetcalf/zola-db/internal/partview"
	"github.com/leifmetcalf/zola-db/internal/schema"
	"github.com/leifmetcalf/zola-db/internal/symtab"
	"github.com/leifmetcalf/zola-db/internal/zerrors"
)

var dateDirPattern = regexp.MustCompile(`^\d{4}\.\d{2}\.\d{2}$`)

// table is the catalog's in-memory entry for one open table: its schema
// and its ordered map of date-string -> partition view (SPEC_FULL.md §4.6).
type table struct {
	name    string
	dir     string
	schema  *schema.Schema
	symbols *symtab.Table

	dates []string // ascending, for deterministic iteration/publication order
	views map[string]*partview.View
	byDay asof.PartitionMap
}

func newTable(name, dir string, sch *schema.Schema, symbols *symtab.Table) *table {
	return &table{
		name:    name,
		dir:     dir,
		schema:  sch,
		symbols: symbols,
		views:   map[string]*partview.View{},
		byDay:   asof.PartitionMap{},
	}
}

// closeViews unmaps every currently-open partition view. Call only once
// the table entry is being discarded or replaced wholesale.
func (t *table) closeViews() {
	for _, v := range t.views {
		v.Close()
	}
}

// addView inserts or replaces a partition view, keeping dates sorted.
func (t *table) addView(dateName string, v *partview.View) error {
	day, err := dayFromDateName(dateName)
	if err != nil {
		return err
	}
	if old, ok := t.views[dateName]; ok {
		old.Close()
	} else {
		t.dates = append(t.dates, dateName)
		sort.Strings(t.dates)
	}
	t.views[dateName] = v
	t.byDay[day] = v
	return nil
}

// parseDateName validates a "YYYY.MM.DD" partition directory name and
// returns its numeric components.
func parseDateName(dateName string) (year, month, day int, err error) {
	if !dateDirPattern.MatchString(dateName) {
		return 0, 0, 0, zerrors.Newf(zerrors.InvalidFile, dateName, "not a YYYY.MM.DD partition name")
	}
	parts := strings.Split(dateName, ".")
	year, _ = strconv.Atoi(parts[0])
	month, _ = strconv.Atoi(parts[1])
	day, _ = strconv.Atoi(parts[2])
	return year, month, day, nil
}

func dayFromDateName(dateName string) (int64, error) {
	y, m, d, err := parseDateName(dateName)
	if err != nil {
		return 0, err
	}
	return caldate.DayFromYMD(y, m, d), nil
}
