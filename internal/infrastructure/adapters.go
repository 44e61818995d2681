package infrastructure

import (
	"github.com/levtools/mediagrab/internal/domain"
)

// NewProviderAdapters builds the adapter table keyed by (platform, contentType).
// Supporting a new platform means adding an entry here.
func NewProviderAdapters(cfg domain.ProvidersConfig, client *ProviderClient) map[domain.AdapterKey]domain.ProviderAdapter {
	betabotz := func(path string, parse responseParser) domain.ProviderAdapter {
		return NewBetabotzAdapter(client, cfg.BetabotzBaseURL, cfg.BetabotzAPIKey, path, parse)
	}
	key := func(platform, contentType string) domain.AdapterKey {
		return domain.AdapterKey{Platform: platform, ContentType: contentType}
	}

	instagram := betabotz("igdowloader", parseInstagram)

	return map[domain.AdapterKey]domain.ProviderAdapter{
		key("tiktok", "video"): NewTikTokAdapter(client, cfg.TikwmHost, false),
		key("tiktok", "slide"): NewTikTokAdapter(client, cfg.TikwmHost, true),

		key("instagram", "post"):  instagram,
		key("instagram", "story"): instagram,
		key("instagram", "reels"): instagram,

		key("youtube", "mp4"):        betabotz("ytmp4", youtubeParser(domain.KindVideo)),
		key("youtube", "mp3"):        betabotz("ytmp3", youtubeParser(domain.KindAudio)),
		key("youtube", "mp4-backup"): betabotz("yt", youtubeParser(domain.KindVideo)),
		key("youtube", "mp3-backup"): betabotz("yt", youtubeParser(domain.KindAudio)),

		key("mediafire", "file"): betabotz("mediafire", parseMediafire),
		key("sfilemobi", "file"): betabotz("sfilemobi", parseSfilemobi),
		key("terabox", "file"):   betabotz("terabox", parseTerabox),

		key("twitter", "media"):   betabotz("twitter2", parseTwitter),
		key("facebook", "video"): betabotz("fbdown", parseFacebook),
		key("threads", "post"):    betabotz("threads", parseThreads),
		key("pinterest", "pin"):   betabotz("pinterest", parsePinterest),
		key("spotify", "track"):   betabotz("spotify", parseSpotify),
	}
}
