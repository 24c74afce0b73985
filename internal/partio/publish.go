// Copyright the Zola authors.
// Use of this source code is governed by an Apache-2.0
// license that can be found in the LICENSE file.

package partio

import (
	"os"
	"path/filepath"

	"github.com/leifmetcalf/zola-db/internal/schema"
	"github.com/leifmetcalf/zola-db/internal/zerrors"
)

func fsyncDir(dir string) error {
	f, err := os.Open(dir)
	if err != nil {
		return zerrors.Wrap(zerrors.IO, dir, err)
	}
	defer f.Close()
	if err := f.Sync(); err != nil {
		return zerrors.Wrap(zerrors.IO, dir, err)
	}
	return nil
}

// Publish renders d into partitionDir, replacing any prior contents,
// following the tmp/rename/old/rename/remove/fsync protocol of
// SPEC_FULL.md §4.5. partitionDir's parent must already exist.
func Publish(partitionDir string, sch *schema.Schema, d *Data) error {
	tmpDir := partitionDir + ".tmp"
	oldDir := partitionDir + ".old"
	parent := filepath.Dir(partitionDir)

	// Step 1: clear any leftover .tmp from a previous failed attempt.
	if _, err := os.Stat(tmpDir); err == nil {
		if err := os.RemoveAll(tmpDir); err != nil {
			return zerrors.Wrap(zerrors.IO, tmpDir, err)
		}
	} else if !os.IsNotExist(err) {
		return zerrors.Wrap(zerrors.IO, tmpDir, err)
	}

	// Step 2: create the staging directory.
	if err := os.Mkdir(tmpDir, 0o755); err != nil {
		return zerrors.Wrap(zerrors.IO, tmpDir, err)
	}

	// Step 3: write every artifact into it, each fsynced on close.
	if err := writeInto(tmpDir, sch, d); err != nil {
		return err
	}

	// Step 4: fsync the staging directory itself.
	if err := fsyncDir(tmpDir); err != nil {
		return err
	}

	// Step 5: move the live directory aside, if present.
	if _, err := os.Stat(partitionDir); err == nil {
		if err := os.Rename(partitionDir, oldDir); err != nil {
			return zerrors.Wrap(zerrors.IO, partitionDir, err)
		}
	} else if !os.IsNotExist(err) {
		return zerrors.Wrap(zerrors.IO, partitionDir, err)
	}

	// Step 6: publish the new contents under the live name.
	if err := os.Rename(tmpDir, partitionDir); err != nil {
		return zerrors.Wrap(zerrors.IO, tmpDir, err)
	}

	// Step 7: drop the previous generation.
	if _, err := os.Stat(oldDir); err == nil {
		if err := os.RemoveAll(oldDir); err != nil {
			return zerrors.Wrap(zerrors.IO, oldDir, err)
		}
	}

	// Step 8: fsync the parent so the rename is durable.
	if err := fsyncDir(parent); err != nil {
		return err
	}

	return nil
}
