package rqlite

import (
	"errors"
	"strings"
)

// ErrNoDatabase is returned by store constructors given a nil *sql.DB.
var ErrNoDatabase = errors.New("rqlite: nil database handle")

// isUniqueViolation matches SQLite constraint errors as reported by go-sqlite3 and by
// rqlite's HTTP API, which only exposes the message text.
func isUniqueViolation(err error) bool {
	if err == nil {
		return false
	}
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "unique constraint failed") ||
		strings.Contains(msg, "constraint failed: unique")
}
