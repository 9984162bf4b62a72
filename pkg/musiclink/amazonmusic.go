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
	// AmazonMusicSource is the source name of Amazon Music tracks.
	AmazonMusicSource = "amazonmusic"
	// amazonMusicSuffix trails titles and descriptions of Amazon Music pages.
	amazonMusicSuffix = " on Amazon Music"
)

// AmazonMusicResolver resolves Amazon Music links to track information via HTML scraping.
type AmazonMusicResolver struct {
	client *http.Client
}

// NewAmazonMusicResolver creates a new Amazon Music link resolver.
func NewAmazonMusicResolver() *AmazonMusicResolver {
	return &AmazonMusicResolver{client: newHTTPClient()}
}

// CanResolve checks if the URL is an Amazon Music link.
func (r *AmazonMusicResolver) CanResolve(rawURL string) bool {
	u, err := url.Parse(rawURL)
	if err != nil {
		return false
	}

	hostname := strings.ToLower(u.Hostname())
	// Support various Amazon Music domains (music.amazon.com, music.amazon.co.uk, etc.).
	return strings.HasPrefix(hostname, "music.amazon.")
}

// Resolve extracts track information from an Amazon Music URL by scraping the HTML.
func (r *AmazonMusicResolver) Resolve(ctx context.Context, rawURL string) (*TrackInfo, error) {
	if !r.CanResolve(rawURL) {
		return nil, errors.New("not an Amazon Music URL")
	}

	page, err := fetchHTMLFromURL(ctx, r.client, rawURL, "Amazon Music", defaultMaxReadSize)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch Amazon Music page: %w", err)
	}

	// Extract track title and artist from HTML.
	title, artist, err := r.extractTrackInfo(page)
	if err != nil {
		return nil, fmt.Errorf("failed to extract track info from HTML: %w", err)
	}

	return &TrackInfo{
		Title:      title,
		Artist:     artist,
		Source:     AmazonMusicSource,
		URL:        rawURL,
		ArtworkURL: metaProperty(page, "og:image"),
	}, nil
}

// extractTrackInfo extracts track title and artist from Amazon Music HTML.
func (r *AmazonMusicResolver) extractTrackInfo(page string) (title, artist string, err error) {
	// Try to extract from OpenGraph meta tags first.
	title, artist = r.extractFromMetaTags(page)
	if title != "" {
		return title, artist, nil
	}

	// Fallback: try to extract from <title> tag.
	title, artist = r.extractFromTitleTag(page)
	if title != "" {
		return title, artist, nil
	}

	return "", "", errors.New("could not extract track information from Amazon Music page")
}

// extractFromMetaTags extracts track info from OpenGraph meta tags.
func (r *AmazonMusicResolver) extractFromMetaTags(page string) (title, artist string) {
	return metaProperty(page, "og:title"), r.extractArtistFromDescription(metaProperty(page, "og:description"))
}

// extractArtistFromDescription parses descriptions like "Song by Artist on Amazon Music".
func (r *AmazonMusicResolver) extractArtistFromDescription(desc string) string {
	return artistAfterBy(desc, amazonMusicSuffix)
}

// extractFromTitleTag extracts track info from the HTML <title> tag.
func (r *AmazonMusicResolver) extractFromTitleTag(page string) (title, artist string) {
	// Amazon Music title format might be: "Song Title by Artist Name on Amazon Music" or similar.
	return extractTitleAndArtistFromTitleTag(page, amazonMusicSuffix, " by ")
}
