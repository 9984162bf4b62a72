// Package text extracts catalog links from free text such as pasted chat
// messages or command arguments.
package text

import (
	"net/url"
	"regexp"
	"strings"

	"golang.org/x/text/unicode/norm"
)

var (
	linkRegex       = regexp.MustCompile(`https?://\S+|spotify:(?:track|album|playlist):[A-Za-z0-9]+`)
	whitespaceRegex = regexp.MustCompile(`\s+`)

	// trackingParams are dropped from links so equal tracks share cache keys.
	trackingParams = []string{"utm_source", "utm_medium", "utm_campaign", "utm_term", "utm_content", "si", "context"}
)

// Normalize applies NFKC and collapses runs of whitespace.
func Normalize(text string) string {
	text = norm.NFKC.String(strings.TrimSpace(text))
	return whitespaceRegex.ReplaceAllString(text, " ")
}

// ExtractLinks returns the cleaned links found in text, in order of
// appearance and without duplicates.
func ExtractLinks(text string) []string {
	var links []string
	seen := make(map[string]bool)

	for _, match := range linkRegex.FindAllString(Normalize(text), -1) {
		link := CleanURL(match)
		if link == "" || seen[link] {
			continue
		}
		seen[link] = true
		links = append(links, link)
	}

	return links
}

// CleanURL strips trailing punctuation and tracking parameters. It returns ""
// for strings that are neither http(s) URLs with a host nor Spotify URIs.
func CleanURL(rawURL string) string {
	rawURL = strings.TrimRight(strings.TrimSpace(rawURL), ".,!?;)")

	if strings.HasPrefix(rawURL, "spotify:") {
		return rawURL
	}
	if !strings.HasPrefix(rawURL, "http://") && !strings.HasPrefix(rawURL, "https://") {
		return ""
	}

	u, err := url.Parse(rawURL)
	if err != nil || u.Host == "" {
		return ""
	}

	q := u.Query()
	for _, param := range trackingParams {
		q.Del(param)
	}
	u.RawQuery = q.Encode()

	return u.String()
}
