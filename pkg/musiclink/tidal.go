package musiclink

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
)

const (
	// TidalSource is the source name of Tidal tracks.
	TidalSource = "tidal"
)

// TidalResolver resolves Tidal links to track information via HTML scraping.
type TidalResolver struct {
	client *http.Client
}

// NewTidalResolver creates a new Tidal link resolver.
func NewTidalResolver() *TidalResolver {
	return &TidalResolver{client: newHTTPClient()}
}

// CanResolve checks if the URL is a Tidal link.
func (r *TidalResolver) CanResolve(rawURL string) bool {
	u, err := url.Parse(rawURL)
	if err != nil {
		return false
	}

	hostname := strings.ToLower(u.Hostname())
	return hostname == "tidal.com" || hostname == "www.tidal.com" || hostname == "listen.tidal.com"
}

// Resolve extracts track information from a Tidal URL by scraping the HTML.
func (r *TidalResolver) Resolve(ctx context.Context, rawURL string) (*TrackInfo, error) {
	if !r.CanResolve(rawURL) {
		return nil, errors.New("not a Tidal URL")
	}

	// Check if this is a track URL.
	if !strings.Contains(rawURL, "/track/") {
		return nil, errors.New("not a Tidal track URL (only /track/ URLs are supported)")
	}

	page, err := fetchHTMLFromURL(ctx, r.client, rawURL, "Tidal", defaultMaxReadSize)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch Tidal page: %w", err)
	}

	// Extract track title and artists from HTML.
	title, artist, err := r.extractTrackInfo(page)
	if err != nil {
		return nil, fmt.Errorf("failed to extract track info from HTML: %w", err)
	}

	return &TrackInfo{
		Title:      title,
		Artist:     artist,
		Source:     TidalSource,
		URL:        rawURL,
		ArtworkURL: metaProperty(page, "og:image"),
	}, nil
}

// extractTrackInfo extracts track title and artist from Tidal HTML.
func (r *TidalResolver) extractTrackInfo(page string) (title, artist string, err error) {
	// Try to extract from OpenGraph meta tags first (most reliable).
	title, artist = r.extractFromMetaTags(page)
	if title != "" {
		return title, artist, nil
	}

	// Fallback: try to extract from <title> tag.
	title, artist = r.extractFromTitleTag(page)
	if title != "" {
		return title, artist, nil
	}

	return "", "", errors.New("could not extract track information from Tidal page")
}

// extractFromMetaTags extracts track info from OpenGraph meta tags. The
// description usually reads "by Artist Name".
func (r *TidalResolver) extractFromMetaTags(page string) (title, artist string) {
	return metaProperty(page, "og:title"), artistAfterBy(metaProperty(page, "og:description"), "")
}

// extractFromTitleTag extracts track info from the HTML <title> tag.
func (r *TidalResolver) extractFromTitleTag(page string) (title, artist string) {
	// Tidal title format is often: "Track Title – Artist Name | TIDAL" or similar.
	titleText := strings.TrimSpace(strings.TrimSuffix(titleTagText(page), " | TIDAL"))
	if titleText == "" {
		return "", ""
	}

	// Split by " – " (en dash) or " - " (hyphen).
	var parts []string
	if strings.Contains(titleText, " – ") {
		parts = strings.SplitN(titleText, " – ", expectedSplitParts)
	} else if strings.Contains(titleText, " - ") {
		parts = strings.SplitN(titleText, " - ", expectedSplitParts)
	}

	if len(parts) == expectedSplitParts {
		return strings.TrimSpace(parts[0]), strings.TrimSpace(parts[1])
	}

	// If no separator, treat the whole thing as the title.
	return titleText, ""
}
