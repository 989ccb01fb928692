package commands

import (
	"database/sql"

	"github.com/Somnusochi/auto-novel/am"
	"github.com/Somnusochi/auto-novel/db"
	"github.com/Somnusochi/auto-novel/errors"
	"github.com/Somnusochi/auto-novel/logger"
)

// openDatabase opens and migrates the database at dbPath, or at the
// configured path when dbPath is empty. It returns the path it used.
func openDatabase(dbPath string) (*sql.DB, string, error) {
	if dbPath == "" {
		path, err := am.GetDatabasePath()
		if err != nil {
			return nil, "", errors.Wrap(err, "failed to get database path")
		}
		dbPath = path
	}

	database, err := db.OpenWithMigrations(dbPath, logger.ComponentLogger("db"))
	if err != nil {
		return nil, "", errors.Wrapf(err, "failed to open database at %s", dbPath)
	}
	return database, dbPath, nil
}
