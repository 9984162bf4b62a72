package musiclink

import (
	"context"

	"lavasrc/internal/core"
)

// ManagerAdapter adapts the Manager to produce core source tracks.
type ManagerAdapter struct {
	manager *Manager
}

// NewManagerAdapter creates a new adapter for the music link manager.
func NewManagerAdapter(manager *Manager) *ManagerAdapter {
	if manager == nil {
		manager = NewManager()
	}
	return &ManagerAdapter{manager: manager}
}

// Resolve resolves a music link to a source track descriptor.
func (a *ManagerAdapter) Resolve(ctx context.Context, url string) (core.SourceTrack, error) {
	info, err := a.manager.Resolve(ctx, url)
	if err != nil {
		return core.SourceTrack{}, err
	}
	return ToSourceTrack(info), nil
}

// CanResolve checks if the manager can resolve the given URL.
func (a *ManagerAdapter) CanResolve(url string) bool {
	return a.manager.CanResolve(url)
}

// ToSourceTrack converts scraped metadata into the descriptor used for mirroring.
func ToSourceTrack(info *TrackInfo) core.SourceTrack {
	author := info.Artist
	if author == "" {
		author = core.UnknownAuthor
	}
	return core.SourceTrack{
		Title:      info.Title,
		Author:     author,
		Duration:   info.Duration,
		ISRC:       info.ISRC,
		SourceName: info.Source,
		URI:        info.URL,
		AlbumName:  info.AlbumName,
		ArtworkURL: info.ArtworkURL,
	}
}
