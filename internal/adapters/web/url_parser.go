package web

import (
	"regexp"

	"tweetlens/internal/domain"
)

// statusURLRegex matches Twitter/X status URLs and extracts username and
// status ID. Accepts twitter.com, x.com, and mobile.twitter.com; query
// parameters after the ID are ignored.
var statusURLRegex = regexp.MustCompile(
	`^https?://(twitter\.com|x\.com|mobile\.twitter\.com)/(\w+)/status/(\d+)`,
)

// timelineURLRegex accepts any page on the host worth scanning: home,
// profiles, searches, and status pages.
var timelineURLRegex = regexp.MustCompile(
	`^https?://(twitter\.com|x\.com|mobile\.twitter\.com)(/|$)`,
)

// ParseStatusURL extracts the username and status ID from a status URL.
// Returns domain.ErrInvalidURL for anything else.
func ParseStatusURL(url string) (username string, statusID string, err error) {
	matches := statusURLRegex.FindStringSubmatch(url)
	if matches == nil || len(matches) < 4 {
		return "", "", domain.ErrInvalidURL
	}
	return matches[2], matches[3], nil
}

// ValidScanURL reports whether the URL points at the host at all.
func ValidScanURL(url string) bool {
	return timelineURLRegex.MatchString(url)
}
