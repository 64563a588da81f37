package store

import (
	"database/sql"
	"errors"
	"time"

	"modernc.org/sqlite"
	sqlite3 "modernc.org/sqlite/lib"
)

// ErrDuplicate is returned when an insert or update violates a unique constraint.
var ErrDuplicate = errors.New("duplicate record")

// mapErr translates driver constraint errors into store sentinels.
func mapErr(err error) error {
	var se *sqlite.Error
	if errors.As(err, &se) {
		switch se.Code() {
		case sqlite3.SQLITE_CONSTRAINT_UNIQUE, sqlite3.SQLITE_CONSTRAINT_PRIMARYKEY:
			return ErrDuplicate
		}
	}
	return err
}

// boolInt converts a bool to SQLite's integer representation.
func boolInt(b bool) int {
	if b {
		return 1
	}
	return 0
}

// sqliteTime renders t the way CURRENT_TIMESTAMP stores it, for comparison
// through datetime().
func sqliteTime(t time.Time) string {
	return t.UTC().Format(time.DateTime)
}

type execer interface {
	Exec(query string, args ...any) (sql.Result, error)
}
