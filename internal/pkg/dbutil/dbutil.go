package dbutil

import (
	"strings"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
)

// Rebind converts ?-style placeholders to the $N form postgres expects.
func Rebind(query string) string {
	return sqlx.Rebind(sqlx.DOLLAR, query)
}

// IsConflict reports whether err is a unique-constraint violation from
// either the postgres or the sqlite driver.
func IsConflict(err error) bool {
	if err == nil {
		return false
	}
	if pgErr, ok := err.(*pq.Error); ok {
		return pgErr.Code == "23505"
	}
	return strings.Contains(err.Error(), "UNIQUE constraint failed")
}
