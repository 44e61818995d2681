package domain

import (
	"fmt"
	"net/url"
	"strings"
)

// DownloadRequest is an immutable request to resolve one content URL
type DownloadRequest struct {
	URL         string   `json:"url"`
	Platform    string   `json:"platform"`
	ContentType string   `json:"contentType"`
	Priority    Priority `json:"priority,omitempty"`
}

// platformDomains lists the hosts accepted for platforms that have a fixed set
var platformDomains = map[string][]string{
	"tiktok":    {"tiktok.com", "vm.tiktok.com"},
	"instagram": {"instagram.com", "instagr.am"},
	"youtube":   {"youtube.com", "youtu.be", "m.youtube.com"},
	"twitter":   {"twitter.com", "x.com", "t.co"},
	"facebook":  {"facebook.com", "fb.watch", "m.facebook.com"},
	"spotify":   {"spotify.com", "open.spotify.com"},
	"pinterest": {"pinterest.com", "pin.it"},
	"mediafire": {"mediafire.com"},
	"terabox":   {"terabox.com", "1024terabox.com"},
	"sfilemobi": {"sfilemobi.com"},
	"threads":   {"threads.net", "threads.com"},
}

// ValidateURL checks that raw is a well-formed absolute http(s) URL
func ValidateURL(raw string) error {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		return NewValidationError("url must not be empty")
	}
	u, err := url.Parse(trimmed)
	if err != nil {
		return NewValidationError("malformed url")
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return NewValidationError("url must start with http:// or https://")
	}
	if u.Host == "" || u.Hostname() == "" {
		return NewValidationError("url must be absolute")
	}
	return nil
}

// ValidatePlatformURL checks the URL and, for platforms with a known domain
// list, that the host belongs to the platform
func ValidatePlatformURL(raw, platform string) error {
	if err := ValidateURL(raw); err != nil {
		return err
	}
	domains, ok := platformDomains[platform]
	if !ok {
		return nil
	}
	u, _ := url.Parse(strings.TrimSpace(raw))
	host := strings.ToLower(u.Hostname())
	for _, d := range domains {
		if host == d || strings.HasSuffix(host, "."+d) {
			return nil
		}
	}
	return NewValidationError(fmt.Sprintf("url must be from domain: %s", strings.Join(domains, ", ")))
}

// Normalize trims the request and fills the default priority
func (r DownloadRequest) Normalize() (DownloadRequest, error) {
	r.URL = strings.TrimSpace(r.URL)
	r.Platform = strings.TrimSpace(r.Platform)
	r.ContentType = strings.TrimSpace(r.ContentType)
	if r.Platform == "" || r.ContentType == "" {
		return r, NewValidationError("url, platform, and contentType are required")
	}
	p, err := ParsePriority(string(r.Priority))
	if err != nil {
		return r, err
	}
	r.Priority = p
	if err := ValidatePlatformURL(r.URL, r.Platform); err != nil {
		return r, err
	}
	return r, nil
}

// ValidateBatchURLs splits a batch into usable URLs and per-line errors.
// Blank entries are skipped.
func ValidateBatchURLs(urls []string) (valid []string, problems []string) {
	for i, raw := range urls {
		trimmed := strings.TrimSpace(raw)
		if trimmed == "" {
			continue
		}
		if err := ValidateURL(trimmed); err != nil {
			msg := err.Error()
			if e, ok := err.(*Error); ok {
				msg = e.Message
			}
			problems = append(problems, fmt.Sprintf("URL %d: %s", i+1, msg))
			continue
		}
		valid = append(valid, trimmed)
	}
	return valid, problems
}
