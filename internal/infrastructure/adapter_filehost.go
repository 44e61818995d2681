package infrastructure

import (
	"fmt"
	"path"

	"github.com/levtools/mediagrab/internal/domain"
)

// fileItem builds a single-file item, taking the mime hint from the filename
func fileItem(link, filename string) domain.MediaItem {
	if filename == "" {
		filename = path.Base(link)
	}
	item := domain.NewMediaItem(domain.KindFile, link, filename)
	if m := domain.MimeHint(filename, domain.KindFile); m != item.MimeHint {
		item.MimeHint = m
	}
	return item
}

// firstEntry returns v itself, or its first element when v is a list
func firstEntry(v any) any {
	if list, ok := v.([]any); ok {
		if len(list) == 0 {
			return nil
		}
		return list[0]
	}
	return v
}

// parseMediafire returns the direct link plus the provider's size label
func parseMediafire(body map[string]any) (*domain.DownloadResult, error) {
	result := firstEntry(resultOf(body))
	link := firstString(result, "url", "link")
	if link == "" {
		return nil, missingField("file link")
	}

	filename := getString(result, "filename")
	item := fileItem(link, filename)
	item.SizeLabel = firstString(result, "filesizeH", "filesize")

	out := &domain.DownloadResult{
		Kind:  domain.KindFile,
		Title: filename,
		Items: []domain.MediaItem{item},
	}
	if n, ok := parseSizeLabel(item.SizeLabel); ok {
		out.SizeHintBytes = n
	}
	return out, nil
}

// parseSfilemobi accepts the handful of field names sfile mirrors use for the link
func parseSfilemobi(body map[string]any) (*domain.DownloadResult, error) {
	result := firstEntry(resultOf(body))
	link := firstString(result, "url", "download", "link", "download_url")
	if link == "" {
		return nil, missingField("file link")
	}

	filename := firstString(result, "filename", "name", "title")
	item := fileItem(link, filename)
	item.SizeLabel = firstString(result, "filesize", "size")

	out := &domain.DownloadResult{
		Kind:   domain.KindFile,
		Title:  filename,
		Author: getString(result, "uploader"),
		Items:  []domain.MediaItem{item},
	}
	if n, ok := parseSizeLabel(item.SizeLabel); ok {
		out.SizeHintBytes = n
	}
	return out, nil
}

// parseTerabox flattens the shared folders of a terabox link into one file list
func parseTerabox(body map[string]any) (*domain.DownloadResult, error) {
	folders := getSlice(body, "result")
	if len(folders) == 0 {
		return nil, missingField("file list")
	}

	out := &domain.DownloadResult{Kind: domain.KindFile}
	var total float64
	n := 0
	for _, folder := range folders {
		if out.Title == "" {
			out.Title = getString(folder, "name")
		}
		for _, f := range getSlice(folder, "files") {
			n++
			link := getString(f, "url")
			filename := getString(f, "filename")
			if link == "" {
				out.Warnings = append(out.Warnings, fmt.Sprintf("file %d (%s) has no download link", n, filename))
				continue
			}
			item := fileItem(link, filename)
			if size, ok := getFloat(f, "size"); ok && size > 0 {
				item.SizeLabel = formatSizeMB(size)
				total += size
			}
			out.Items = append(out.Items, item)
		}
	}
	out.SizeHintBytes = int64(total)
	return out, nil
}
