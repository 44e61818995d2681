package infrastructure

import (
	"fmt"
	"strings"

	"github.com/levtools/mediagrab/internal/domain"
)

// parseInstagram handles the feed returned by igdowloader: a list of
// entries whose media kind is only visible in the file extension.
func parseInstagram(body map[string]any) (*domain.DownloadResult, error) {
	entries := getSlice(body, "message")
	if entries == nil {
		entries = getSlice(body, "result")
	}
	if len(entries) == 0 {
		return nil, missingField("media list")
	}

	result := &domain.DownloadResult{}
	for i, entry := range entries {
		link := linkOf(entry, "_url", "url")
		if link == "" {
			result.Warnings = append(result.Warnings, fmt.Sprintf("item %d has no download link", i+1))
			continue
		}
		filename := getString(entry, "filename")
		kind := domain.InferKind(filename, domain.InferKind(link, domain.KindImage))
		if filename == "" {
			filename = fmt.Sprintf("instagram_%02d.%s", i+1, domain.DefaultExtension(kind))
		}
		item := domain.NewMediaItem(kind, link, filename)
		if m := domain.MimeHint(filename, ""); m != "application/octet-stream" {
			item.MimeHint = m
		}
		result.Items = append(result.Items, item)
		if result.ThumbnailURL == "" {
			result.ThumbnailURL = getString(entry, "thumbnail")
		}
	}
	return result, nil
}

// youtubeParser picks the mp4 or mp3 link from a youtube result
func youtubeParser(kind domain.MediaKind) responseParser {
	key, ext := "mp4", "mp4"
	if kind == domain.KindAudio {
		key, ext = "mp3", "mp3"
	}

	return func(body map[string]any) (*domain.DownloadResult, error) {
		result := resultOf(body)
		link := getString(result, key)
		if link == "" {
			return nil, missingField(key + " link")
		}
		title := getString(result, "title")
		return &domain.DownloadResult{
			Kind:         kind,
			Title:        title,
			Author:       firstString(result, "channel", "author"),
			ThumbnailURL: firstString(result, "thumb", "thumbnail"),
			Items: []domain.MediaItem{
				domain.NewMediaItem(kind, link, safeFilename(title, "youtube", ext)),
			},
		}, nil
	}
}

// parseTwitter handles typed media lists from twitter2
func parseTwitter(body map[string]any) (*domain.DownloadResult, error) {
	result := resultOf(body)
	media := getSlice(result, "media_extended")
	if len(media) == 0 {
		return nil, missingField("media list")
	}

	out := &domain.DownloadResult{
		Title:  getString(result, "text"),
		Author: twitterAuthor(result),
	}
	for i, entry := range media {
		link := getString(entry, "url")
		if link == "" {
			out.Warnings = append(out.Warnings, fmt.Sprintf("media %d has no download link", i+1))
			continue
		}
		var kind domain.MediaKind
		switch getString(entry, "type") {
		case "video", "gif", "animated_gif":
			kind = domain.KindVideo
		case "image", "photo":
			kind = domain.KindImage
		default:
			kind = domain.InferKind(link, domain.KindImage)
		}
		out.Items = append(out.Items, domain.NewMediaItem(kind, link,
			fmt.Sprintf("twitter_%02d.%s", i+1, domain.DefaultExtension(kind))))
		if out.ThumbnailURL == "" {
			out.ThumbnailURL = getString(entry, "thumbnail_url")
		}
	}
	return out, nil
}

func twitterAuthor(result any) string {
	name := getString(result, "user_name")
	screen := getString(result, "user_screen_name")
	switch {
	case name != "" && screen != "":
		return fmt.Sprintf("%s (@%s)", name, screen)
	case screen != "":
		return "@" + screen
	}
	return name
}

// parseFacebook picks the HD rendition when the provider lists one
func parseFacebook(body map[string]any) (*domain.DownloadResult, error) {
	renditions := getSlice(body, "result")
	if len(renditions) == 0 {
		return nil, missingField("video renditions")
	}

	var chosen any
	quality := "SD"
	for _, r := range renditions {
		if getString(r, "_url") == "" {
			continue
		}
		if strings.Contains(strings.ToUpper(getString(r, "resolution")), "HD") {
			chosen = r
			quality = "HD"
			break
		}
		if chosen == nil {
			chosen = r
		}
	}
	if chosen == nil {
		return nil, missingField("video link")
	}

	filename := getString(chosen, "filename")
	if filename == "" {
		filename = "facebook_video.mp4"
	}
	return &domain.DownloadResult{
		Kind:         domain.KindVideo,
		ThumbnailURL: getString(chosen, "thumbnail"),
		Items: []domain.MediaItem{
			domain.NewMediaItem(domain.KindVideo, getString(chosen, "_url"), filename),
		},
		QualityHint: quality,
	}, nil
}

// parseThreads merges the image and video lists of a threads post
func parseThreads(body map[string]any) (*domain.DownloadResult, error) {
	result := resultOf(body)
	out := &domain.DownloadResult{}

	add := func(list []any, kind domain.MediaKind, label string) {
		for i, entry := range list {
			link := linkOf(entry, "download_url", "url")
			if link == "" {
				out.Warnings = append(out.Warnings, fmt.Sprintf("%s %d has no download link", label, i+1))
				continue
			}
			out.Items = append(out.Items, domain.NewMediaItem(kind, link,
				fmt.Sprintf("threads_%s_%02d.%s", label, i+1, domain.DefaultExtension(kind))))
		}
	}
	add(getSlice(result, "video_urls"), domain.KindVideo, "video")
	add(getSlice(result, "image_urls"), domain.KindImage, "image")

	if len(out.Items) == 0 && len(out.Warnings) == 0 {
		return nil, missingField("media lists")
	}
	return out, nil
}

var pinterestRenditions = []string{"V_720P", "V_HLSV4", "V_480P", "V_EXP7"}

// parsePinterest returns the image of a pin, or its best video rendition
func parsePinterest(body map[string]any) (*domain.DownloadResult, error) {
	data := resultOf(body)
	title := getString(data, "title")

	if videos := getMap(data, "videos", "video_list"); videos != nil {
		for _, r := range pinterestRenditions {
			if link := getString(videos, r, "url"); link != "" {
				return &domain.DownloadResult{
					Kind:         domain.KindVideo,
					Title:        title,
					ThumbnailURL: getString(data, "image"),
					Items: []domain.MediaItem{
						domain.NewMediaItem(domain.KindVideo, link, safeFilename(title, "pinterest", "mp4")),
					},
				}, nil
			}
		}
	}

	image := getString(data, "image")
	if image == "" {
		return nil, missingField("pin media")
	}
	var warnings []string
	if getString(data, "media_type") == "video" {
		warnings = append(warnings, "video rendition unavailable, returning cover image")
	}
	return &domain.DownloadResult{
		Kind:  domain.KindImage,
		Title: title,
		Items: []domain.MediaItem{
			domain.NewMediaItem(domain.KindImage, image, safeFilename(title, "pinterest", "jpg")),
		},
		Warnings: warnings,
	}, nil
}

// parseSpotify returns a single audio track
func parseSpotify(body map[string]any) (*domain.DownloadResult, error) {
	data := resultOf(body)
	link := getString(data, "url")
	if link == "" {
		return nil, missingField("track link")
	}
	title := getString(data, "title")
	return &domain.DownloadResult{
		Kind:         domain.KindAudio,
		Title:        title,
		Author:       getString(data, "artist", "name"),
		ThumbnailURL: getString(data, "thumbnail"),
		Items: []domain.MediaItem{
			domain.NewMediaItem(domain.KindAudio, link, safeFilename(title, "spotify", "mp3")),
		},
	}, nil
}
