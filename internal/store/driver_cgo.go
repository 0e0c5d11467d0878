//go:build !purego

package store

import (
	"database/sql/driver"
	"errors"

	sqlite3 "github.com/mattn/go-sqlite3"
)

const (
	driverName = "sqlite3"
	driverType = "cgo"
)

// engineCodes extracts the primary and extended result codes from a driver
// error.
func engineCodes(err error) (primary, extended int, ok bool) {
	var se sqlite3.Error
	if errors.As(err, &se) {
		return int(se.Code), int(se.ExtendedCode), true
	}
	return 0, 0, false
}

// plainRows turns off the declared-type conversion of a result set, so
// timestamp, date and boolean columns read back as their stored values.
// DeclTypes hands out the slice the driver consults on every Next.
func plainRows(rows driver.Rows) bool {
	dt, ok := rows.(interface{ DeclTypes() []string })
	if !ok {
		return false
	}
	types := dt.DeclTypes()
	for i := range types {
		types[i] = ""
	}
	return true
}
