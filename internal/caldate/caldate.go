// Copyright the Zola authors.
// Use of this source code is governed by an Apache-2.0
// license that can be found in the LICENSE file.

// Package caldate converts microsecond timestamps to UTC calendar days,
// the unit partitions are keyed by throughout the store.
package caldate

import (
	"time"

	"github.com/leifmetcalf/zola-db/internal/zerrors"
)

// Layout is the partition directory name format: "YYYY.MM.DD".
const Layout = "2006.01.02"

var (
	minSupportedTime  = time.Date(1, 1, 1, 0, 0, 0, 0, time.UTC)
	maxSupportedTime  = time.Date(9999, 12, 31, 23, 59, 59, 999999000, time.UTC)
	minSupportedMicro = minSupportedTime.UnixMicro()
	maxSupportedMicro = maxSupportedTime.UnixMicro()
)

// DayFromYMD returns the epoch day number for a UTC calendar date, the same
// numbering Day derives from a timestamp. Used to key a partition directory
// name ("YYYY.MM.DD") into the same space as probe timestamps.
func DayFromYMD(year, month, day int) int64 {
	midnight := time.Date(year, time.Month(month), day, 0, 0, 0, 0, time.UTC)
	return midnight.Unix() / 86400
}

// Day returns the epoch day number (days since 1970-01-01 UTC) and the
// canonical partition directory name for a microsecond timestamp.
func Day(tsMicro int64) (day int64, name string, err error) {
	if tsMicro < minSupportedMicro || tsMicro > maxSupportedMicro {
		return 0, "", zerrors.Newf(zerrors.SchemaMismatch, "", "timestamp %d outside supported calendar range", tsMicro)
	}
	t := time.UnixMicro(tsMicro).UTC()
	midnight := time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
	return midnight.Unix() / 86400, midnight.Format(Layout), nil
}
