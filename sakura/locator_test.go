package sakura

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Somnusochi/auto-novel/errors"
)

func TestParseLocator(t *testing.T) {
	tests := []struct {
		task string
		want Locator
	}{
		{"web/kakuyomu/1177354054881165840", WebLocator{ProviderID: "kakuyomu", NovelID: "1177354054881165840"}},
		{"/web/syosetu/n9669bk", WebLocator{ProviderID: "syosetu", NovelID: "n9669bk"}},
		{"web/syosetu/n9669bk?level=expire&forceMetadataUpdate=false&startIndex=0&endIndex=65536", WebLocator{ProviderID: "syosetu", NovelID: "n9669bk"}},
		{"wenku/42/vol1.epub", WenkuLocator{NovelID: "42", VolumeID: "vol1.epub"}},
		{"  wenku/42/vol1.epub?level=all  ", WenkuLocator{NovelID: "42", VolumeID: "vol1.epub"}},
	}

	for _, tt := range tests {
		t.Run(tt.task, func(t *testing.T) {
			got, err := ParseLocator(tt.task)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestParseLocatorRejectsMalformedTasks(t *testing.T) {
	for _, task := range []string{
		"",
		"web",
		"web/kakuyomu",
		"web/kakuyomu/1/extra",
		"web//1",
		"wenku/42/",
		"novel/a/b",
		"https://books.example.com/web/kakuyomu/1",
		"%zz",
	} {
		t.Run(task, func(t *testing.T) {
			_, err := ParseLocator(task)
			require.Error(t, err)
			assert.True(t, errors.Is(err, ErrTaskMalformed))
			assert.True(t, errors.IsInvalidRequestError(err))
		})
	}
}

func TestLocatorDescribe(t *testing.T) {
	ctx := context.Background()
	resolver := newFakeResolver()

	title, err := WebLocator{ProviderID: "providerX", NovelID: "novelY"}.Describe(ctx, resolver)
	require.NoError(t, err)
	assert.Equal(t, "転生したら桜だった件", title)

	title, err = WenkuLocator{NovelID: "42", VolumeID: "vol1.epub"}.Describe(ctx, resolver)
	require.NoError(t, err)
	assert.Equal(t, "桜の森の満開の下", title)

	_, err = WebLocator{ProviderID: "providerX", NovelID: "absent"}.Describe(ctx, resolver)
	assert.True(t, errors.Is(err, ErrNovelNotFound))

	_, err = WenkuLocator{NovelID: "absent", VolumeID: "vol1.epub"}.Describe(ctx, resolver)
	assert.True(t, errors.Is(err, ErrNovelNotFound))

	_, err = WenkuLocator{NovelID: "42", VolumeID: "vol9.epub"}.Describe(ctx, resolver)
	assert.True(t, errors.Is(err, ErrVolumeNotFound))
	assert.False(t, errors.Is(err, ErrNovelNotFound))
}

func TestLocatorDescribeStorageFault(t *testing.T) {
	resolver := newFakeResolver()
	resolver.err = errors.New("database is locked")

	_, err := WebLocator{ProviderID: "providerX", NovelID: "novelY"}.Describe(context.Background(), resolver)
	require.Error(t, err)
	assert.False(t, errors.IsNotFoundError(err), "a storage fault is not a missing novel")
}
