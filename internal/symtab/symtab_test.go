// Copyright the Zola authors.
// Use of this source code is governed by an Apache-2.0
// license that can be found in the LICENSE file.

package symtab

import (
	"path/filepath"
	"testing"
)

func TestGetOrInsertAssignsDenseIDs(t *testing.T) {
	tb := New()
	a := tb.GetOrInsert("BTCUSDT")
	b := tb.GetOrInsert("ETHUSDT")
	again := tb.GetOrInsert("BTCUSDT")

	if a != 0 || b != 1 {
		t.Fatalf("got ids (%d, %d), want (0, 1)", a, b)
	}
	if again != a {
		t.Fatalf("re-inserting an existing name returned %d, want %d", again, a)
	}
}

func TestIDAndName(t *testing.T) {
	tb := New()
	id := tb.GetOrInsert("BTCUSDT")

	got, ok := tb.ID("BTCUSDT")
	if !ok || got != id {
		t.Fatalf("ID = (%d, %v), want (%d, true)", got, ok, id)
	}
	if _, ok := tb.ID("missing"); ok {
		t.Fatal("ID(missing) should report false")
	}

	name, ok := tb.Name(id)
	if !ok || name != "BTCUSDT" {
		t.Fatalf("Name = (%q, %v), want (BTCUSDT, true)", name, ok)
	}
	if _, ok := tb.Name(99); ok {
		t.Fatal("Name(99) should report false for an unassigned id")
	}
	if _, ok := tb.Name(-1); ok {
		t.Fatal("Name(-1) should report false")
	}
}

func TestSaveLoadRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), ".symbols")
	tb := New()
	tb.GetOrInsert("BTCUSDT")
	tb.GetOrInsert("ETHUSDT")
	if err := tb.Save(path); err != nil {
		t.Fatalf("Save: %v", err)
	}

	loaded, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	for _, n := range []string{"BTCUSDT", "ETHUSDT"} {
		want, _ := tb.ID(n)
		got, ok := loaded.ID(n)
		if !ok || got != want {
			t.Errorf("loaded id for %q = (%d, %v), want (%d, true)", n, got, ok, want)
		}
	}
}

func TestLoadMissingFileIsEmptyNotError(t *testing.T) {
	tb, err := Load(filepath.Join(t.TempDir(), "nonexistent"))
	if err != nil {
		t.Fatalf("Load of missing file should not error, got %v", err)
	}
	if _, ok := tb.ID("anything"); ok {
		t.Fatal("freshly-loaded missing table should be empty")
	}
}

func TestGetOrInsertAfterLoadContinuesNumbering(t *testing.T) {
	path := filepath.Join(t.TempDir(), ".symbols")
	tb := New()
	tb.GetOrInsert("A")
	tb.GetOrInsert("B")
	if err := tb.Save(path); err != nil {
		t.Fatalf("Save: %v", err)
	}

	loaded, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	id := loaded.GetOrInsert("C")
	if id != 2 {
		t.Fatalf("new id after load = %d, want 2", id)
	}
}
