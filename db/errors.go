package db

import (
	"strings"

	"github.com/Somnusochi/auto-novel/errors"
)

// ErrDatabaseClosed is returned when an operation runs after shutdown closed the database.
var ErrDatabaseClosed = errors.New("database is closed")

// IsDatabaseClosed reports whether err means the connection pool is gone.
// The driver returns its own error values, so raw messages are matched too.
func IsDatabaseClosed(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, ErrDatabaseClosed) {
		return true
	}
	return strings.Contains(err.Error(), "database is closed")
}
