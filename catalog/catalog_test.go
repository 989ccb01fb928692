package catalog

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Somnusochi/auto-novel/errors"
	sakuratest "github.com/Somnusochi/auto-novel/internal/testing"
	"github.com/Somnusochi/auto-novel/sakura"
)

func TestWebNovelLookup(t *testing.T) {
	ctx := context.Background()
	store := NewStore(sakuratest.CreateTestDB(t))

	_, err := store.WebNovelTitle(ctx, "kakuyomu", "1")
	assert.True(t, errors.Is(err, errors.ErrNotFound))

	require.NoError(t, store.UpsertWebNovel(ctx, WebNovel{ProviderID: "kakuyomu", NovelID: "1", TitleJP: "旧題"}))
	require.NoError(t, store.UpsertWebNovel(ctx, WebNovel{ProviderID: "kakuyomu", NovelID: "1", TitleJP: "新題", TitleZH: "新题"}))

	title, err := store.WebNovelTitle(ctx, "kakuyomu", "1")
	require.NoError(t, err)
	assert.Equal(t, "新題", title, "upsert refreshes the title")

	_, err = store.WebNovelTitle(ctx, "syosetu", "1")
	assert.True(t, errors.IsNotFoundError(err), "provider is part of the key")
}

func TestWenkuNovelAndVolumes(t *testing.T) {
	ctx := context.Background()
	store := NewStore(sakuratest.CreateTestDB(t))

	require.NoError(t, store.UpsertWenkuNovel(ctx, WenkuNovel{NovelID: "42", Title: "桜の森", Volumes: []string{"vol1.epub"}}))
	require.NoError(t, store.AddWenkuVolume(ctx, "42", "vol2.epub"))
	require.NoError(t, store.AddWenkuVolume(ctx, "42", "vol2.epub"), "adding a volume twice is harmless")

	title, err := store.WenkuNovelTitle(ctx, "42")
	require.NoError(t, err)
	assert.Equal(t, "桜の森", title)

	for volume, want := range map[string]bool{"vol1.epub": true, "vol2.epub": true, "vol3.epub": false} {
		exists, err := store.WenkuVolumeExists(ctx, "42", volume)
		require.NoError(t, err)
		assert.Equal(t, want, exists, volume)
	}

	_, err = store.WenkuNovelTitle(ctx, "404")
	assert.True(t, errors.Is(err, errors.ErrNotFound))

	assert.Error(t, store.AddWenkuVolume(ctx, "404", "vol1.epub"), "volumes need their novel")
}

func TestUpsertValidation(t *testing.T) {
	ctx := context.Background()
	store := NewStore(sakuratest.CreateTestDB(t))

	assert.True(t, errors.IsInvalidRequestError(store.UpsertWebNovel(ctx, WebNovel{ProviderID: "kakuyomu", NovelID: "1"})))
	assert.True(t, errors.IsInvalidRequestError(store.UpsertWenkuNovel(ctx, WenkuNovel{NovelID: "42"})))
	assert.True(t, errors.IsInvalidRequestError(store.AddWenkuVolume(ctx, "42", "")))
}

func TestImportSeedFile(t *testing.T) {
	ctx := context.Background()
	store := NewStore(sakuratest.CreateTestDB(t))

	path := filepath.Join(t.TempDir(), "seed.toml")
	require.NoError(t, os.WriteFile(path, []byte(`
[[web]]
provider = "kakuyomu"
novel = "1177354054881165840"
title_jp = "転生したら桜だった件"

[[web]]
provider = "syosetu"
novel = "n9669bk"
title_jp = "無職転生"
title_zh = "无职转生"

[[wenku]]
novel = "42"
title = "桜の森の満開の下"
volumes = ["vol1.epub", "vol2.epub"]
`), 0644))

	seed, err := LoadSeed(path)
	require.NoError(t, err)
	require.Len(t, seed.Web, 2)
	assert.Equal(t, "无职转生", seed.Web[1].TitleZH)

	result, err := store.Import(ctx, seed)
	require.NoError(t, err)
	assert.Equal(t, ImportResult{WebNovels: 2, WenkuNovels: 1, Volumes: 2}, result)

	title, err := store.WebNovelTitle(ctx, "syosetu", "n9669bk")
	require.NoError(t, err)
	assert.Equal(t, "無職転生", title)

	exists, err := store.WenkuVolumeExists(ctx, "42", "vol2.epub")
	require.NoError(t, err)
	assert.True(t, exists)
}

func TestImportIsAllOrNothing(t *testing.T) {
	ctx := context.Background()
	store := NewStore(sakuratest.CreateTestDB(t))

	_, err := store.Import(ctx, &Seed{Web: []WebNovel{
		{ProviderID: "kakuyomu", NovelID: "1", TitleJP: "ok"},
		{ProviderID: "kakuyomu", NovelID: "2"},
	}})
	require.Error(t, err)

	_, err = store.WebNovelTitle(ctx, "kakuyomu", "1")
	assert.True(t, errors.IsNotFoundError(err), "the first row is rolled back with the rest")
}

func TestLoadSeedRejectsUnknownKeys(t *testing.T) {
	path := filepath.Join(t.TempDir(), "seed.toml")
	require.NoError(t, os.WriteFile(path, []byte("[[web]]\nprovider = \"a\"\nnovel = \"b\"\ntitlejp = \"typo\"\n"), 0644))

	_, err := LoadSeed(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "titlejp")
}

func TestStoreResolvesSubmittedTasks(t *testing.T) {
	ctx := context.Background()
	store := NewStore(sakuratest.CreateTestDB(t))
	require.NoError(t, store.UpsertWenkuNovel(ctx, WenkuNovel{NovelID: "42", Title: "桜の森", Volumes: []string{"vol1.epub"}}))

	locator, err := sakura.ParseLocator("wenku/42/vol1.epub")
	require.NoError(t, err)
	title, err := locator.Describe(ctx, store)
	require.NoError(t, err)
	assert.Equal(t, "桜の森", title)

	locator, err = sakura.ParseLocator("wenku/42/vol9.epub")
	require.NoError(t, err)
	_, err = locator.Describe(ctx, store)
	assert.True(t, errors.Is(err, sakura.ErrVolumeNotFound))
}
