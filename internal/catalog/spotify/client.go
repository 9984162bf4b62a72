// Package spotify fetches Spotify track metadata for mirroring.
package spotify

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"regexp"
	"strings"
	"time"

	"github.com/zmb3/spotify/v2"
	spotifyauth "github.com/zmb3/spotify/v2/auth"
	"go.uber.org/zap"
	"golang.org/x/oauth2/clientcredentials"

	"lavasrc/internal/core"
)

const (
	// SourceName is the source name of Spotify tracks.
	SourceName = "spotify"
	// PreviewLength is the length of a Spotify preview clip.
	PreviewLength = 30 * time.Second
	// MaxSearchResults limits search results.
	MaxSearchResults = 10
	// playlistPageSize is the page size used when walking playlists.
	playlistPageSize = 100
	// maxPlaylistPages bounds how many pages of a playlist are fetched.
	maxPlaylistPages = 6

	appLinkDomain     = "spotify.app.link"
	shortLinkDomain   = "spotify.link"
	urlResolveTimeout = 10 * time.Second
	maxRedirects      = 10
	readBufferSize    = 64 * 1024
	userAgent         = "Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36"
)

var (
	spotifyTrackRegex    = regexp.MustCompile(`(?:https?://)?(?:www\.)?(?:open\.)?spotify\.com/(?:intl-[a-zA-Z-]+/)?track/([a-zA-Z0-9]+)`)
	spotifyURIRegex      = regexp.MustCompile(`spotify:track:([a-zA-Z0-9]+)`)
	spotifyPlaylistRegex = regexp.MustCompile(`(?:https?://)?(?:www\.)?(?:open\.)?spotify\.com/(?:intl-[a-zA-Z-]+/)?playlist/([a-zA-Z0-9]+)|spotify:playlist:([a-zA-Z0-9]+)`)
	spotifyPageURLRegex  = regexp.MustCompile(`https://open\.spotify\.com/track/[a-zA-Z0-9]+`)

	// ErrNotSpotifyURL is returned for links that do not point to a Spotify track.
	ErrNotSpotifyURL = errors.New("no track ID found in URL")
)

// Client reads the Spotify Web API with client credentials.
type Client struct {
	config core.SpotifyConfig
	logger *zap.Logger
	client *spotify.Client
	http   *http.Client
}

// NewClient creates a client that authenticates with the client credentials
// flow. Tokens are refreshed automatically.
func NewClient(ctx context.Context, config core.SpotifyConfig, logger *zap.Logger) *Client {
	credentials := &clientcredentials.Config{
		ClientID:     config.ClientID,
		ClientSecret: config.ClientSecret,
		TokenURL:     spotifyauth.TokenURL,
	}

	return newClient(spotify.New(credentials.Client(ctx), spotify.WithRetry(true)), config, logger)
}

func newClient(api *spotify.Client, config core.SpotifyConfig, logger *zap.Logger) *Client {
	return &Client{
		config: config,
		logger: logger.Named("spotify"),
		client: api,
		http: &http.Client{
			Timeout: urlResolveTimeout,
			CheckRedirect: func(_ *http.Request, via []*http.Request) error {
				if len(via) >= maxRedirects {
					return http.ErrUseLastResponse
				}
				return nil
			},
		},
	}
}

// Track fetches a track. With preview set the track plays its 30 second
// preview clip instead of being mirrored.
func (c *Client) Track(ctx context.Context, trackID string, preview bool) (core.SourceTrack, error) {
	track, err := c.client.GetTrack(ctx, spotify.ID(trackID), c.marketOpts()...)
	if err != nil {
		return core.SourceTrack{}, fmt.Errorf("failed to get track: %w", err)
	}

	return convertSpotifyTrack(track, preview), nil
}

// Search returns up to MaxSearchResults tracks matching query.
func (c *Client) Search(ctx context.Context, query string) ([]core.SourceTrack, error) {
	opts := append(c.marketOpts(), spotify.Limit(MaxSearchResults))
	results, err := c.client.Search(ctx, query, spotify.SearchTypeTrack, opts...)
	if err != nil {
		return nil, fmt.Errorf("search failed: %w", err)
	}

	if results.Tracks == nil || len(results.Tracks.Tracks) == 0 {
		return nil, nil
	}

	tracks := make([]core.SourceTrack, 0, len(results.Tracks.Tracks))
	for i := range results.Tracks.Tracks {
		tracks = append(tracks, convertSpotifyTrack(&results.Tracks.Tracks[i], false))
	}
	return tracks, nil
}

// PlaylistTracks returns the tracks of a playlist, skipping local files and
// episodes. With preview set every track plays its preview clip.
func (c *Client) PlaylistTracks(ctx context.Context, playlistID string, preview bool) ([]core.SourceTrack, error) {
	var tracks []core.SourceTrack
	offset := 0

	for page := 0; page < maxPlaylistPages; page++ {
		opts := append(c.marketOpts(), spotify.Limit(playlistPageSize), spotify.Offset(offset))
		items, err := c.client.GetPlaylistItems(ctx, spotify.ID(playlistID), opts...)
		if err != nil {
			return nil, fmt.Errorf("failed to get playlist items: %w", err)
		}

		for i := range items.Items {
			item := &items.Items[i]
			if item.IsLocal || item.Track.Track == nil {
				continue
			}
			tracks = append(tracks, convertSpotifyTrack(item.Track.Track, preview))
		}

		if len(items.Items) < playlistPageSize {
			break
		}
		offset += playlistPageSize
	}

	c.logger.Debug("Retrieved playlist tracks",
		zap.String("playlistID", playlistID),
		zap.Int("count", len(tracks)))

	return tracks, nil
}

func (c *Client) marketOpts() []spotify.RequestOption {
	if c.config.Market == "" {
		return nil
	}
	return []spotify.RequestOption{spotify.Market(c.config.Market)}
}

// ExtractTrackID returns the track ID of a Spotify link or URI. Short links
// are resolved over HTTP.
func (c *Client) ExtractTrackID(ctx context.Context, rawURL string) (string, error) {
	rawURL = strings.TrimSpace(rawURL)

	if matches := spotifyURIRegex.FindStringSubmatch(rawURL); len(matches) > 1 {
		return matches[1], nil
	}

	if matches := spotifyTrackRegex.FindStringSubmatch(rawURL); len(matches) > 1 {
		return matches[1], nil
	}

	u, err := url.Parse(rawURL)
	if err != nil {
		return "", fmt.Errorf("invalid URL: %w", err)
	}

	hostname := strings.ToLower(u.Hostname())
	if hostname == shortLinkDomain || hostname == appLinkDomain {
		resolvedURL, err := c.resolveShortURL(ctx, rawURL)
		if err != nil {
			return "", fmt.Errorf("failed to resolve shortened URL: %w", err)
		}
		return c.ExtractTrackID(ctx, resolvedURL)
	}

	return "", ErrNotSpotifyURL
}

// CanResolve reports whether rawURL is a Spotify link the client handles.
func (c *Client) CanResolve(rawURL string) bool {
	return IsSpotifyURL(rawURL)
}

// Resolve fetches the track a Spotify link or URI points at.
func (c *Client) Resolve(ctx context.Context, rawURL string) (core.SourceTrack, error) {
	return c.resolve(ctx, rawURL, false)
}

// ResolvePreview is Resolve for the track's preview clip.
func (c *Client) ResolvePreview(ctx context.Context, rawURL string) (core.SourceTrack, error) {
	return c.resolve(ctx, rawURL, true)
}

func (c *Client) resolve(ctx context.Context, rawURL string, preview bool) (core.SourceTrack, error) {
	trackID, err := c.ExtractTrackID(ctx, rawURL)
	if err != nil {
		return core.SourceTrack{}, err
	}
	return c.Track(ctx, trackID, preview)
}

// ExtractPlaylistID returns the playlist ID of a Spotify playlist link or URI.
func ExtractPlaylistID(rawURL string) (string, bool) {
	matches := spotifyPlaylistRegex.FindStringSubmatch(strings.TrimSpace(rawURL))
	if matches == nil {
		return "", false
	}
	if matches[1] != "" {
		return matches[1], true
	}
	return matches[2], true
}

// IsSpotifyURL reports whether rawURL points at Spotify.
func IsSpotifyURL(rawURL string) bool {
	if strings.HasPrefix(rawURL, "spotify:") {
		return true
	}
	u, err := url.Parse(rawURL)
	if err != nil {
		return false
	}
	switch strings.TrimPrefix(strings.ToLower(u.Hostname()), "www.") {
	case "open.spotify.com", "spotify.com", shortLinkDomain, appLinkDomain:
		return true
	}
	return false
}

// resolveShortURL follows a shortened Spotify link to the track URL.
func (c *Client) resolveShortURL(ctx context.Context, shortURL string) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, urlResolveTimeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, shortURL, http.NoBody)
	if err != nil {
		return "", err
	}
	req.Header.Set("User-Agent", userAgent)
	req.Header.Set("Accept", "text/html,application/xhtml+xml,application/xml;q=0.9,*/*;q=0.8")

	resp, err := c.http.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	finalURL := resp.Request.URL
	if strings.EqualFold(finalURL.Hostname(), "open.spotify.com") && strings.Contains(finalURL.Path, "/track/") {
		return finalURL.String(), nil
	}

	// App links answer with an HTML page that embeds the target URL.
	content, err := io.ReadAll(io.LimitReader(resp.Body, readBufferSize))
	if err != nil {
		return "", err
	}
	if match := spotifyPageURLRegex.FindString(string(content)); match != "" {
		return match, nil
	}

	return "", fmt.Errorf("could not find Spotify track URL in page content")
}

func convertSpotifyTrack(track *spotify.FullTrack, preview bool) core.SourceTrack {
	artists := make([]string, 0, len(track.Artists))
	for _, artist := range track.Artists {
		if artist.Name != "" {
			artists = append(artists, artist.Name)
		}
	}
	author := strings.Join(artists, ", ")
	if author == "" {
		author = core.UnknownAuthor
	}

	var artworkURL string
	if len(track.Album.Images) > 0 {
		artworkURL = track.Album.Images[0].URL
	}

	duration := time.Duration(track.Duration) * time.Millisecond
	if preview {
		duration = PreviewLength
	}

	identifier := string(track.ID)
	if identifier == "" {
		identifier = "local"
	}

	return core.SourceTrack{
		Title:      track.Name,
		Author:     author,
		Duration:   duration,
		ISRC:       track.ExternalIDs["isrc"],
		SourceName: SourceName,
		URI:        track.ExternalURLs["spotify"],
		Identifier: identifier,
		AlbumName:  track.Album.Name,
		ArtworkURL: artworkURL,
		PreviewURL: track.PreviewURL,
		IsPreview:  preview,
	}
}
