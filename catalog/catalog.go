// Package catalog is the local index of translatable works that job tasks
// point at. It answers the scheduler's lookups (sakura.WorkResolver) and is
// filled by upserts or by importing a TOML seed file.
package catalog

import (
	"context"
	"database/sql"

	"github.com/Somnusochi/auto-novel/errors"
	"github.com/Somnusochi/auto-novel/sakura"
)

// WebNovel is a novel hosted by a web provider (kakuyomu, syosetu, ...)
type WebNovel struct {
	ProviderID string `toml:"provider" json:"provider_id"`
	NovelID    string `toml:"novel" json:"novel_id"`
	TitleJP    string `toml:"title_jp" json:"title_jp"`
	TitleZH    string `toml:"title_zh,omitempty" json:"title_zh,omitempty"`
}

// WenkuNovel is a published novel with uploaded volume files
type WenkuNovel struct {
	NovelID string   `toml:"novel" json:"novel_id"`
	Title   string   `toml:"title" json:"title"`
	TitleZH string   `toml:"title_zh,omitempty" json:"title_zh,omitempty"`
	Volumes []string `toml:"volumes,omitempty" json:"volumes,omitempty"`
}

// Store reads and writes the catalog tables
type Store struct {
	db *sql.DB
}

var _ sakura.WorkResolver = (*Store)(nil)

// NewStore creates a catalog store over an already migrated database
func NewStore(db *sql.DB) *Store {
	return &Store{db: db}
}

// WebNovelTitle implements sakura.WorkResolver
func (s *Store) WebNovelTitle(ctx context.Context, providerID, novelID string) (string, error) {
	var title string
	err := s.db.QueryRowContext(ctx,
		`SELECT title_jp FROM web_novels WHERE provider_id = ? AND novel_id = ?`,
		providerID, novelID).Scan(&title)
	if errors.Is(err, sql.ErrNoRows) {
		return "", errors.Wrapf(errors.ErrNotFound, "web novel %s/%s", providerID, novelID)
	}
	if err != nil {
		return "", errors.Wrapf(err, "failed to get web novel %s/%s", providerID, novelID)
	}
	return title, nil
}

// WenkuNovelTitle implements sakura.WorkResolver
func (s *Store) WenkuNovelTitle(ctx context.Context, novelID string) (string, error) {
	var title string
	err := s.db.QueryRowContext(ctx, `SELECT title FROM wenku_novels WHERE novel_id = ?`, novelID).Scan(&title)
	if errors.Is(err, sql.ErrNoRows) {
		return "", errors.Wrapf(errors.ErrNotFound, "wenku novel %s", novelID)
	}
	if err != nil {
		return "", errors.Wrapf(err, "failed to get wenku novel %s", novelID)
	}
	return title, nil
}

// WenkuVolumeExists implements sakura.WorkResolver
func (s *Store) WenkuVolumeExists(ctx context.Context, novelID, volumeID string) (bool, error) {
	var exists bool
	err := s.db.QueryRowContext(ctx,
		`SELECT EXISTS(SELECT 1 FROM wenku_volumes WHERE novel_id = ? AND volume_id = ?)`,
		novelID, volumeID).Scan(&exists)
	if err != nil {
		return false, errors.Wrapf(err, "failed to check volume %s of wenku novel %s", volumeID, novelID)
	}
	return exists, nil
}

// execer is satisfied by *sql.DB and *sql.Tx so upserts can run in Import's transaction
type execer interface {
	ExecContext(ctx context.Context, query string, args ...interface{}) (sql.Result, error)
}

// UpsertWebNovel inserts the novel or refreshes its titles
func (s *Store) UpsertWebNovel(ctx context.Context, novel WebNovel) error {
	return upsertWebNovel(ctx, s.db, novel)
}

func upsertWebNovel(ctx context.Context, ex execer, novel WebNovel) error {
	if novel.ProviderID == "" || novel.NovelID == "" || novel.TitleJP == "" {
		return errors.NewInvalidRequestError("web novel needs provider, novel and title_jp")
	}

	query := `
		INSERT INTO web_novels (provider_id, novel_id, title_jp, title_zh, updated_at)
		VALUES (?, ?, ?, ?, CURRENT_TIMESTAMP)
		ON CONFLICT(provider_id, novel_id) DO UPDATE SET
			title_jp = excluded.title_jp,
			title_zh = excluded.title_zh,
			updated_at = CURRENT_TIMESTAMP
	`
	if _, err := ex.ExecContext(ctx, query, novel.ProviderID, novel.NovelID, novel.TitleJP, nullable(novel.TitleZH)); err != nil {
		return errors.Wrapf(err, "failed to upsert web novel %s/%s", novel.ProviderID, novel.NovelID)
	}
	return nil
}

// UpsertWenkuNovel inserts the novel or refreshes its titles, then adds any
// listed volumes. Existing volumes are kept.
func (s *Store) UpsertWenkuNovel(ctx context.Context, novel WenkuNovel) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return errors.Wrap(err, "failed to begin transaction")
	}
	defer tx.Rollback()

	if err := upsertWenkuNovel(ctx, tx, novel); err != nil {
		return err
	}
	return errors.Wrap(tx.Commit(), "failed to commit wenku novel")
}

func upsertWenkuNovel(ctx context.Context, ex execer, novel WenkuNovel) error {
	if novel.NovelID == "" || novel.Title == "" {
		return errors.NewInvalidRequestError("wenku novel needs novel and title")
	}

	query := `
		INSERT INTO wenku_novels (novel_id, title, title_zh, updated_at)
		VALUES (?, ?, ?, CURRENT_TIMESTAMP)
		ON CONFLICT(novel_id) DO UPDATE SET
			title = excluded.title,
			title_zh = excluded.title_zh,
			updated_at = CURRENT_TIMESTAMP
	`
	if _, err := ex.ExecContext(ctx, query, novel.NovelID, novel.Title, nullable(novel.TitleZH)); err != nil {
		return errors.Wrapf(err, "failed to upsert wenku novel %s", novel.NovelID)
	}

	for _, volumeID := range novel.Volumes {
		if err := addWenkuVolume(ctx, ex, novel.NovelID, volumeID); err != nil {
			return err
		}
	}
	return nil
}

// AddWenkuVolume records an uploaded volume. The novel must exist.
func (s *Store) AddWenkuVolume(ctx context.Context, novelID, volumeID string) error {
	return addWenkuVolume(ctx, s.db, novelID, volumeID)
}

func addWenkuVolume(ctx context.Context, ex execer, novelID, volumeID string) error {
	if volumeID == "" {
		return errors.NewInvalidRequestError("volume id is required for wenku novel %s", novelID)
	}
	_, err := ex.ExecContext(ctx,
		`INSERT INTO wenku_volumes (novel_id, volume_id) VALUES (?, ?) ON CONFLICT DO NOTHING`,
		novelID, volumeID)
	if err != nil {
		return errors.Wrapf(err, "failed to add volume %s to wenku novel %s", volumeID, novelID)
	}
	return nil
}

func nullable(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}
