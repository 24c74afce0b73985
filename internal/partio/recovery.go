// Copyright the Zola authors.
// Use of this source code is governed by an Apache-2.0
// license that can be found in the LICENSE file.

package partio

import (
	"os"
	"path/filepath"
	"strings"

	"github.com/leifmetcalf/zola-db/internal/zerrors"
)

// Sweep removes residue from a previous failed Publish: any table
// subdirectory entry ending in ".tmp" or ".old" is removed recursively.
// This is best-effort and must run before any partition under root is
// opened (SPEC_FULL.md §4.5's crash-recovery rule).
func Sweep(root string) error {
	tables, err := os.ReadDir(root)
	if err != nil {
		return zerrors.Wrap(zerrors.IO, root, err)
	}
	for _, t := range tables {
		if !t.IsDir() {
			continue
		}
		tableDir := filepath.Join(root, t.Name())
		entries, err := os.ReadDir(tableDir)
		if err != nil {
			return zerrors.Wrap(zerrors.IO, tableDir, err)
		}
		for _, e := range entries {
			name := e.Name()
			if strings.HasSuffix(name, ".tmp") || strings.HasSuffix(name, ".old") {
				if err := os.RemoveAll(filepath.Join(tableDir, name)); err != nil {
					return zerrors.Wrap(zerrors.IO, filepath.Join(tableDir, name), err)
				}
			}
		}
	}
	return nil
}
