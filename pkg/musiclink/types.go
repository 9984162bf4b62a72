// Package musiclink resolves links of catalogs without streamable audio to track metadata.
package musiclink

import (
	"context"
	"time"
)

// TrackInfo holds extracted track information from various music providers.
type TrackInfo struct {
	Title      string        // Track title.
	Artist     string        // Artist name(s).
	ISRC       string        // International Standard Recording Code (if available).
	Duration   time.Duration // Zero when the provider does not expose it.
	Source     string        // Provider name, e.g. "applemusic".
	URL        string        // Canonical link of the track.
	AlbumName  string
	ArtworkURL string
}

// Resolver defines the interface for resolving music links from various providers to track information.
type Resolver interface {
	// Resolve extracts track information from a music provider URL.
	Resolve(ctx context.Context, url string) (*TrackInfo, error)

	// CanResolve checks if this resolver can handle the given URL.
	CanResolve(url string) bool
}
