package catalog

import (
	"context"

	"github.com/BurntSushi/toml"

	"github.com/Somnusochi/auto-novel/errors"
)

// Seed is the TOML layout read by `sakura catalog import`:
//
//	[[web]]
//	provider = "kakuyomu"
//	novel = "1177354054881165840"
//	title_jp = "..."
//
//	[[wenku]]
//	novel = "42"
//	title = "..."
//	volumes = ["vol1.epub", "vol2.epub"]
type Seed struct {
	Web   []WebNovel   `toml:"web"`
	Wenku []WenkuNovel `toml:"wenku"`
}

// ImportResult counts what a seed import wrote
type ImportResult struct {
	WebNovels   int
	WenkuNovels int
	Volumes     int
}

// LoadSeed decodes a seed file. Unknown keys are rejected so typos surface.
func LoadSeed(path string) (*Seed, error) {
	var seed Seed
	meta, err := toml.DecodeFile(path, &seed)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to parse seed file %s", path)
	}
	if undecoded := meta.Undecoded(); len(undecoded) > 0 {
		return nil, errors.WithHintf(
			errors.NewInvalidRequestError("seed file %s has unknown keys: %v", path, undecoded),
			"valid tables are [[web]] and [[wenku]]")
	}
	return &seed, nil
}

// Import upserts every entry of seed in one transaction
func (s *Store) Import(ctx context.Context, seed *Seed) (ImportResult, error) {
	var result ImportResult

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return result, errors.Wrap(err, "failed to begin transaction")
	}
	defer tx.Rollback()

	for _, novel := range seed.Web {
		if err := upsertWebNovel(ctx, tx, novel); err != nil {
			return ImportResult{}, err
		}
		result.WebNovels++
	}
	for _, novel := range seed.Wenku {
		if err := upsertWenkuNovel(ctx, tx, novel); err != nil {
			return ImportResult{}, err
		}
		result.WenkuNovels++
		result.Volumes += len(novel.Volumes)
	}

	if err := tx.Commit(); err != nil {
		return ImportResult{}, errors.Wrap(err, "failed to commit seed import")
	}
	return result, nil
}
