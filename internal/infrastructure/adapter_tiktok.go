package infrastructure

import (
	"context"
	"fmt"
	"strings"

	"github.com/levtools/mediagrab/internal/domain"
)

// TikTokAdapter resolves TikTok videos and photo slides through tikwm
type TikTokAdapter struct {
	client *ProviderClient
	host   string
	slide  bool
}

// NewTikTokAdapter creates a TikTok adapter. host is the tikwm base URL; the
// provider returns links relative to it.
func NewTikTokAdapter(client *ProviderClient, host string, slide bool) *TikTokAdapter {
	if !strings.HasSuffix(host, "/") {
		host += "/"
	}
	return &TikTokAdapter{client: client, host: host, slide: slide}
}

// Provider returns the provider name
func (a *TikTokAdapter) Provider() string {
	return "tikwm"
}

// Execute resolves url in one request to the tikwm api
func (a *TikTokAdapter) Execute(ctx context.Context, url string) (*domain.DownloadResult, error) {
	body, err := a.client.PostFormJSON(ctx, a.host+"api/", map[string]string{
		"url":    url,
		"count":  "12",
		"cursor": "0",
		"web":    "1",
		"hd":     "1",
	})
	if err != nil {
		return nil, err
	}

	if code, ok := getFloat(body, "code"); ok && code != 0 {
		return nil, providerError(getString(body, "msg"))
	}
	data := getMap(body, "data")
	if data == nil {
		return nil, missingField("data")
	}

	if a.slide {
		return a.slideResult(data)
	}
	return a.videoResult(data)
}

func (a *TikTokAdapter) videoResult(data map[string]any) (*domain.DownloadResult, error) {
	play := a.absolute(getString(data, "play"))
	if play == "" {
		return nil, missingField("video link")
	}

	id := getString(data, "id")
	base := "tiktok"
	if id != "" {
		base = "tiktok_" + id
	}

	clean := domain.NewMediaItem(domain.KindVideo, play, base+".mp4")
	clean.Variant = domain.VariantClean
	items := []domain.MediaItem{clean}

	if wm := a.absolute(getString(data, "wmplay")); wm != "" {
		item := domain.NewMediaItem(domain.KindVideo, wm, base+"_wm.mp4")
		item.Variant = domain.VariantWatermarked
		items = append(items, item)
	}
	if music := a.absolute(getString(data, "music")); music != "" {
		items = append(items, domain.NewMediaItem(domain.KindAudio, music, base+".mp3"))
	}

	result := &domain.DownloadResult{
		Kind:         domain.KindVideo,
		Title:        getString(data, "title"),
		Author:       getString(data, "author", "nickname"),
		ThumbnailURL: a.absolute(firstString(data, "cover", "origin_cover")),
		Items:        items,
	}
	if size, ok := getFloat(data, "size"); ok && size > 0 {
		result.SizeHintBytes = int64(size)
	}
	if getBool(data, "hd") {
		result.QualityHint = "HD"
	}
	return result, nil
}

func (a *TikTokAdapter) slideResult(data map[string]any) (*domain.DownloadResult, error) {
	images := getSlice(data, "images")
	if len(images) == 0 {
		return nil, missingField("slide images")
	}

	result := &domain.DownloadResult{
		Kind:         domain.KindImageSet,
		Title:        getString(data, "title"),
		Author:       getString(data, "author", "nickname"),
		ThumbnailURL: a.absolute(firstString(data, "cover", "origin_cover")),
		QualityHint:  "HD",
	}
	for i, raw := range images {
		link := a.absolute(linkOf(raw, "url"))
		if link == "" {
			result.Warnings = append(result.Warnings, fmt.Sprintf("image %d could not be resolved", i+1))
			continue
		}
		result.Items = append(result.Items, domain.NewMediaItem(domain.KindImage, link, fmt.Sprintf("slide_%02d.jpg", i+1)))
	}
	if len(result.Items) == 0 {
		return nil, missingField("slide images")
	}

	if music := a.absolute(getString(data, "music")); music != "" {
		result.Items = append(result.Items, domain.NewMediaItem(domain.KindAudio, music, "slide_audio.mp3"))
	}
	return result, nil
}

// absolute resolves a provider link against the tikwm host
func (a *TikTokAdapter) absolute(link string) string {
	if link == "" || strings.HasPrefix(link, "http://") || strings.HasPrefix(link, "https://") {
		return link
	}
	return a.host + strings.TrimPrefix(link, "/")
}
