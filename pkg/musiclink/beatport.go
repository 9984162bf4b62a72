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
	// BeatportSource is the source name of Beatport tracks.
	BeatportSource = "beatport"
	// beatportTitleSuffix trails the <title> of every Beatport track page.
	beatportTitleSuffix = " | Music & Downloads on Beatport"
)

// BeatportResolver resolves Beatport links to track information via HTML scraping.
type BeatportResolver struct {
	client *http.Client
}

// NewBeatportResolver creates a new Beatport link resolver.
func NewBeatportResolver() *BeatportResolver {
	return &BeatportResolver{client: newHTTPClient()}
}

// CanResolve checks if the URL is a Beatport link.
func (r *BeatportResolver) CanResolve(rawURL string) bool {
	u, err := url.Parse(rawURL)
	if err != nil {
		return false
	}

	hostname := strings.ToLower(u.Hostname())
	return hostname == "beatport.com" || hostname == "www.beatport.com"
}

// Resolve extracts track information from a Beatport URL by scraping the HTML.
func (r *BeatportResolver) Resolve(ctx context.Context, rawURL string) (*TrackInfo, error) {
	if !r.CanResolve(rawURL) {
		return nil, errors.New("not a Beatport URL")
	}

	// Check if this is a track URL.
	if !strings.Contains(rawURL, "/track/") {
		return nil, errors.New("not a Beatport track URL (only /track/ URLs are supported)")
	}

	page, err := fetchHTMLFromURL(ctx, r.client, rawURL, "Beatport", defaultMaxReadSize)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch Beatport page: %w", err)
	}

	// Extract track title and artists from HTML.
	title, artist, err := r.extractTrackInfo(page)
	if err != nil {
		return nil, fmt.Errorf("failed to extract track info from HTML: %w", err)
	}

	return &TrackInfo{
		Title:      title,
		Artist:     artist,
		Source:     BeatportSource,
		URL:        rawURL,
		ArtworkURL: metaProperty(page, "og:image"),
	}, nil
}

// extractTrackInfo extracts track title and artist from Beatport HTML.
func (r *BeatportResolver) extractTrackInfo(page string) (title, artist string, err error) {
	// The <title> tag is the most reliable source on Beatport.
	title, artist = r.extractFromTitleTag(page)
	if title != "" {
		return title, artist, nil
	}

	// Fallback: OpenGraph title without artist.
	if title = metaProperty(page, "og:title"); title != "" {
		return title, artistAfterBy(metaProperty(page, "og:description"), ""), nil
	}

	return "", "", errors.New("could not extract track information from Beatport page")
}

// extractFromTitleTag parses "Artist1, Artist2 - Track Title (Mix) [Label] | Music & Downloads on Beatport".
func (r *BeatportResolver) extractFromTitleTag(page string) (title, artist string) {
	titleText := strings.TrimSpace(strings.TrimSuffix(titleTagText(page), beatportTitleSuffix))

	artist, title, ok := strings.Cut(titleText, " - ")
	if !ok {
		return "", ""
	}
	return strings.TrimSpace(title), strings.TrimSpace(artist)
}
