package app

import (
	"strings"

	"github.com/levtools/mediagrab/internal/domain"
)

// Placeholder estimates per platform. None of these are measured.
const (
	defaultEstimateBytes      = 1_000_000
	youtubeVideoEstimateBytes = 10_000_000
	youtubeAudioEstimateBytes = 3_000_000
	instagramEstimateBytes    = 2_000_000
	tiktokVideoEstimateBytes  = 5_000_000
	tiktokSlideImageBytes     = 500_000
)

// estimateOutcome returns the size and quality reported with a successful
// outcome. Provider hints win over the platform defaults.
func estimateOutcome(platform, contentType string, result *domain.DownloadResult) (int64, string) {
	size, quality := int64(defaultEstimateBytes), "SD"

	switch platform {
	case "youtube":
		quality = "HD"
		if strings.Contains(contentType, "mp4") {
			size = youtubeVideoEstimateBytes
		} else {
			size = youtubeAudioEstimateBytes
		}
	case "instagram":
		size, quality = instagramEstimateBytes, "HD"
	case "tiktok":
		if contentType == "slide" {
			size = int64(result.CountKind(domain.KindImage)) * tiktokSlideImageBytes
			quality = "HD"
		} else {
			size = tiktokVideoEstimateBytes
		}
	}

	if result.SizeHintBytes > 0 {
		size = result.SizeHintBytes
	}
	if result.QualityHint != "" {
		quality = result.QualityHint
	}
	return size, quality
}
