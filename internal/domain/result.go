package domain

import (
	"path"
	"strings"
)

// MediaKind tags a canonical result or one of its items
type MediaKind string

const (
	KindVideo    MediaKind = "video"
	KindAudio    MediaKind = "audio"
	KindImage    MediaKind = "image"
	KindImageSet MediaKind = "imageSet"
	KindFile     MediaKind = "file"
)

// Variant distinguishes the renditions short-video providers return
type Variant string

const (
	VariantClean       Variant = "clean"
	VariantWatermarked Variant = "watermarked"
)

// MediaItem is one downloadable link in a canonical result
type MediaItem struct {
	Kind      MediaKind `json:"kind"`
	URL       string    `json:"url"`
	Filename  string    `json:"filename"`
	MimeHint  string    `json:"mimeHint"`
	Variant   Variant   `json:"variant,omitempty"`
	SizeLabel string    `json:"sizeLabel,omitempty"`
}

// DownloadResult is the platform-agnostic result every adapter converges to
type DownloadResult struct {
	Kind         MediaKind   `json:"kind"`
	Title        string      `json:"title,omitempty"`
	Author       string      `json:"author,omitempty"`
	ThumbnailURL string      `json:"thumbnailUrl,omitempty"`
	Items        []MediaItem `json:"items"`
	Warnings     []string    `json:"warnings,omitempty"`

	// Provider-supplied hints used for the outcome estimates
	SizeHintBytes int64  `json:"-"`
	QualityHint   string `json:"-"`
}

// CountKind returns how many items have the given kind
func (r *DownloadResult) CountKind(kind MediaKind) int {
	n := 0
	for _, it := range r.Items {
		if it.Kind == kind {
			n++
		}
	}
	return n
}

// DownloadOutcome is emitted once per submitted request and never mutated.
// EstimatedSizeBytes and Quality are heuristic estimates, not measured values.
type DownloadOutcome struct {
	DownloadID         string          `json:"downloadId"`
	Success            bool            `json:"success"`
	CanonicalResult    *DownloadResult `json:"canonicalResult"`
	ErrorMessage       *string         `json:"errorMessage"`
	EstimatedSizeBytes *int64          `json:"estimatedSizeBytes"`
	Quality            *string         `json:"quality"`
	Retryable          bool            `json:"retryable,omitempty"`
}

// FailedOutcome builds an unsuccessful outcome
func FailedOutcome(id, message string, retryable bool) DownloadOutcome {
	return DownloadOutcome{
		DownloadID:   id,
		Success:      false,
		ErrorMessage: &message,
		Retryable:    retryable,
	}
}

var extensionKinds = map[string]MediaKind{
	".mp4":  KindVideo,
	".mov":  KindVideo,
	".webm": KindVideo,
	".m4v":  KindVideo,
	".mkv":  KindVideo,
	".jpg":  KindImage,
	".jpeg": KindImage,
	".png":  KindImage,
	".webp": KindImage,
	".gif":  KindImage,
	".heic": KindImage,
	".mp3":  KindAudio,
	".m4a":  KindAudio,
	".aac":  KindAudio,
	".ogg":  KindAudio,
	".wav":  KindAudio,
}

var kindMimes = map[MediaKind]string{
	KindVideo: "video/mp4",
	KindImage: "image/jpeg",
	KindAudio: "audio/mpeg",
	KindFile:  "application/octet-stream",
}

var extensionMimes = map[string]string{
	".mp4":  "video/mp4",
	".mov":  "video/quicktime",
	".webm": "video/webm",
	".m4v":  "video/x-m4v",
	".mkv":  "video/x-matroska",
	".jpg":  "image/jpeg",
	".jpeg": "image/jpeg",
	".png":  "image/png",
	".webp": "image/webp",
	".gif":  "image/gif",
	".heic": "image/heic",
	".mp3":  "audio/mpeg",
	".m4a":  "audio/mp4",
	".aac":  "audio/aac",
	".ogg":  "audio/ogg",
	".wav":  "audio/wav",
	".zip":  "application/zip",
	".apk":  "application/vnd.android.package-archive",
	".pdf":  "application/pdf",
}

// urlExt returns the lower-cased extension of the URL path, ignoring query strings
func urlExt(raw string) string {
	p := raw
	if i := strings.IndexAny(p, "?#"); i >= 0 {
		p = p[:i]
	}
	return strings.ToLower(path.Ext(p))
}

// InferKind guesses the media kind of a link from its file extension.
// Links without a recognizable extension fall back to the given default.
func InferKind(rawURL string, fallback MediaKind) MediaKind {
	if k, ok := extensionKinds[urlExt(rawURL)]; ok {
		return k
	}
	// some CDNs put the extension in a query parameter
	lower := strings.ToLower(rawURL)
	switch {
	case strings.Contains(lower, ".mp4"):
		return KindVideo
	case strings.Contains(lower, ".mp3"):
		return KindAudio
	}
	return fallback
}

// MimeHint guesses a MIME type from the link, falling back to the kind default
func MimeHint(rawURL string, kind MediaKind) string {
	if m, ok := extensionMimes[urlExt(rawURL)]; ok {
		return m
	}
	if m, ok := kindMimes[kind]; ok {
		return m
	}
	return kindMimes[KindFile]
}

// DefaultExtension returns the file extension used when a filename must be made up
func DefaultExtension(kind MediaKind) string {
	switch kind {
	case KindVideo:
		return "mp4"
	case KindAudio:
		return "mp3"
	case KindImage, KindImageSet:
		return "jpg"
	}
	return "bin"
}

// NewMediaItem builds an item, deriving the mime hint from the URL
func NewMediaItem(kind MediaKind, rawURL, filename string) MediaItem {
	return MediaItem{
		Kind:     kind,
		URL:      rawURL,
		Filename: filename,
		MimeHint: MimeHint(rawURL, kind),
	}
}

// InferResultKind derives the top-level kind from the items of a result
func InferResultKind(items []MediaItem) MediaKind {
	var videos, images, audios int
	for _, it := range items {
		switch it.Kind {
		case KindVideo:
			videos++
		case KindImage:
			images++
		case KindAudio:
			audios++
		}
	}
	switch {
	case videos > 0:
		return KindVideo
	case images > 1:
		return KindImageSet
	case images == 1:
		return KindImage
	case audios > 0:
		return KindAudio
	}
	return KindFile
}
