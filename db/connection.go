package db

import (
	"database/sql"
	"fmt"
	"strings"

	_ "github.com/mattn/go-sqlite3"
	"go.uber.org/zap"

	"github.com/Somnusochi/auto-novel/errors"
	"github.com/Somnusochi/auto-novel/sym"
)

// SQLiteBusyTimeoutMS is how long a connection waits on a locked database
// before failing. Claims from concurrent dispatchers queue behind each other
// on the write lock, so this must comfortably exceed one claim statement.
const SQLiteBusyTimeoutMS = 5000

// Open opens a SQLite database at path with WAL, foreign keys and a busy timeout.
// The pragmas travel in the DSN so every pooled connection gets them.
// If logger is nil, Open operates silently.
func Open(path string, logger *zap.SugaredLogger) (*sql.DB, error) {
	if logger != nil {
		logger.Debugw("Opening database", "path", path, "symbol", sym.DB)
	}

	db, err := sql.Open("sqlite3", dsn(path))
	if err != nil {
		return nil, errors.Wrap(err, "failed to open database")
	}

	// sql.Open is lazy; surface bad paths and permissions here
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, errors.Wrapf(err, "failed to connect to database %s", path)
	}

	if logger != nil {
		logger.Infow("Database opened",
			"path", path,
			"symbol", sym.DB,
			"wal_mode", true,
			"foreign_keys", true,
		)
	}
	return db, nil
}

// OpenWithMigrations opens the database and applies pending migrations.
func OpenWithMigrations(path string, logger *zap.SugaredLogger) (*sql.DB, error) {
	db, err := Open(path, logger)
	if err != nil {
		return nil, errors.Wrap(err, "failed to open database")
	}

	if err := Migrate(db, logger); err != nil {
		db.Close()
		return nil, errors.Wrap(err, "failed to migrate database")
	}
	return db, nil
}

func dsn(path string) string {
	sep := "?"
	if strings.Contains(path, "?") {
		sep = "&"
	}
	return fmt.Sprintf("%s%s_journal_mode=WAL&_foreign_keys=on&_busy_timeout=%d", path, sep, SQLiteBusyTimeoutMS)
}
