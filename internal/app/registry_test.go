package app

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/levtools/mediagrab/internal/domain"
	"github.com/levtools/mediagrab/internal/infrastructure"
)

func TestAdapterRegistry_Resolve(t *testing.T) {
	video := domain.AdapterFunc(func(ctx context.Context, url string) (*domain.DownloadResult, error) {
		return &domain.DownloadResult{Title: "video"}, nil
	})
	slide := domain.AdapterFunc(func(ctx context.Context, url string) (*domain.DownloadResult, error) {
		return &domain.DownloadResult{Title: "slide"}, nil
	})
	r := NewAdapterRegistry(map[domain.AdapterKey]domain.ProviderAdapter{
		{Platform: "tiktok", ContentType: "video"}: video,
		{Platform: "tiktok", ContentType: "slide"}: slide,
	})

	adapter, err := r.Resolve("tiktok", "slide")
	require.NoError(t, err)
	result, err := adapter.Execute(context.Background(), "")
	require.NoError(t, err)
	assert.Equal(t, "slide", result.Title)

	_, err = r.Resolve("tiktok", "story")
	require.Error(t, err)
	assert.True(t, domain.IsNotSupported(err))

	_, err = r.Resolve("TikTok", "video")
	assert.True(t, domain.IsNotSupported(err))
}

func TestAdapterRegistry_KeysSorted(t *testing.T) {
	noop := domain.AdapterFunc(func(ctx context.Context, url string) (*domain.DownloadResult, error) { return nil, nil })
	r := NewAdapterRegistry(map[domain.AdapterKey]domain.ProviderAdapter{
		{Platform: "youtube", ContentType: "mp4"}: noop,
		{Platform: "tiktok", ContentType: "video"}: noop,
		{Platform: "tiktok", ContentType: "slide"}: noop,
		{Platform: "broken", ContentType: "nil"}:   nil,
	})

	assert.Equal(t, []domain.AdapterKey{
		{Platform: "tiktok", ContentType: "slide"},
		{Platform: "tiktok", ContentType: "video"},
		{Platform: "youtube", ContentType: "mp4"},
	}, r.Keys())
}

func TestAdapterRegistry_ProductionTable(t *testing.T) {
	cfg := domain.DefaultConfig().Providers
	client := infrastructure.NewProviderClient(cfg, 0, nil)
	defer client.Close()

	r := NewAdapterRegistry(infrastructure.NewProviderAdapters(cfg, client))
	assert.Len(t, r.Keys(), 17)

	for _, key := range []domain.AdapterKey{
		{Platform: "tiktok", ContentType: "video"},
		{Platform: "youtube", ContentType: "mp3-backup"},
		{Platform: "pinterest", ContentType: "pin"},
	} {
		_, err := r.Resolve(key.Platform, key.ContentType)
		assert.NoError(t, err, key.String())
	}
}
