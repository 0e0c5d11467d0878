//go:build purego

package store

import (
	"database/sql/driver"
	"errors"

	"modernc.org/sqlite"
)

const (
	driverName = "sqlite"
	driverType = "purego"
)

// engineCodes extracts the primary and extended result codes from a driver
// error. modernc reports the extended code; the primary code is its low byte.
func engineCodes(err error) (primary, extended int, ok bool) {
	var se *sqlite.Error
	if errors.As(err, &se) {
		code := se.Code()
		return code & 0xff, code, true
	}
	return 0, 0, false
}

// plainRows reports whether a result set reads back its stored values.
// The driver parses text in DATE, DATETIME and TIMESTAMP columns into
// time.Time and offers no switch for it.
func plainRows(rows driver.Rows) bool {
	ct, ok := rows.(driver.RowsColumnTypeDatabaseTypeName)
	if !ok {
		return true
	}
	for i := range rows.Columns() {
		switch ct.ColumnTypeDatabaseTypeName(i) {
		case "DATE", "DATETIME", "TIMESTAMP":
			return false
		}
	}
	return true
}
