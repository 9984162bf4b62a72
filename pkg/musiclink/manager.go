package musiclink

import (
	"context"
	"errors"
)

// ErrNoResolver is returned when no resolver handles a URL.
var ErrNoResolver = errors.New("no resolver found for URL")

// Manager coordinates multiple music link resolvers to handle various provider URLs.
type Manager struct {
	resolvers []Resolver
}

// NewManager creates a new music link manager with all supported resolvers.
// Providers that are themselves mirror targets (YouTube, SoundCloud) are
// played directly by Lavalink and are not listed here.
func NewManager() *Manager {
	return NewManagerWith(
		NewAppleMusicResolver(),
		NewTidalResolver(),
		NewBeatportResolver(),
		NewAmazonMusicResolver(),
	)
}

// NewManagerWith creates a manager over the given resolvers, tried in order.
func NewManagerWith(resolvers ...Resolver) *Manager {
	return &Manager{resolvers: resolvers}
}

// Resolve attempts to resolve a music link using the appropriate resolver.
func (m *Manager) Resolve(ctx context.Context, url string) (*TrackInfo, error) {
	for _, resolver := range m.resolvers {
		if resolver.CanResolve(url) {
			return resolver.Resolve(ctx, url)
		}
	}

	return nil, ErrNoResolver
}

// CanResolve checks if any resolver can handle the given URL.
func (m *Manager) CanResolve(url string) bool {
	for _, resolver := range m.resolvers {
		if resolver.CanResolve(url) {
			return true
		}
	}
	return false
}
