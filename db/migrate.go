package db

import (
	"database/sql"
	"embed"
	"path"
	"sort"
	"strings"

	"go.uber.org/zap"

	"github.com/Somnusochi/auto-novel/errors"
	"github.com/Somnusochi/auto-novel/sym"
)

//go:embed sqlite/migrations/*.sql
var migrations embed.FS

const migrationsDir = "sqlite/migrations"

// Migrate applies every embedded migration not yet recorded in schema_migrations.
// Files are applied in name order; the version is the prefix before the first "_".
// 000 creates schema_migrations itself. Each migration runs in its own transaction.
func Migrate(db *sql.DB, logger *zap.SugaredLogger) error {
	files, err := migrationFiles()
	if err != nil {
		return err
	}

	applied := 0
	for _, filename := range files {
		version := strings.SplitN(filename, "_", 2)[0]

		var exists bool
		err := db.QueryRow("SELECT EXISTS(SELECT 1 FROM schema_migrations WHERE version = ?)", version).Scan(&exists)
		if err != nil {
			// Only the bootstrap migration may run before the table exists
			if version != "000" {
				return errors.Wrapf(err, "schema_migrations missing before %s", filename)
			}
		} else if exists {
			if logger != nil {
				logger.Debugw("Skipping migration (already applied)", "migration", filename, "version", version)
			}
			continue
		}

		body, err := migrations.ReadFile(path.Join(migrationsDir, filename))
		if err != nil {
			return errors.Wrapf(err, "read %s", filename)
		}

		if logger != nil {
			logger.Infow("Applying migration", "migration", filename, "version", version)
		}

		if err := applyMigration(db, version, string(body)); err != nil {
			return errors.Wrapf(err, "apply %s", filename)
		}
		applied++
	}

	if logger != nil {
		logger.Infow("Migrations complete",
			"symbol", sym.DB,
			"total_migrations", len(files),
			"applied", applied,
		)
	}
	return nil
}

func applyMigration(db *sql.DB, version, body string) error {
	tx, err := db.Begin()
	if err != nil {
		return errors.Wrap(err, "begin tx")
	}

	if _, err := tx.Exec(body); err != nil {
		tx.Rollback()
		return errors.Wrap(err, "execute")
	}
	if _, err := tx.Exec("INSERT INTO schema_migrations (version) VALUES (?)", version); err != nil {
		tx.Rollback()
		return errors.Wrap(err, "record version")
	}
	return errors.Wrap(tx.Commit(), "commit")
}

func migrationFiles() ([]string, error) {
	entries, err := migrations.ReadDir(migrationsDir)
	if err != nil {
		return nil, errors.Wrap(err, "read migrations")
	}

	var files []string
	for _, entry := range entries {
		if !entry.IsDir() && strings.HasSuffix(entry.Name(), ".sql") {
			files = append(files, entry.Name())
		}
	}
	sort.Strings(files)
	return files, nil
}
