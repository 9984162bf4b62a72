package mirror

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/disgoorg/disgolink/v3/lavalink"

	"lavasrc/internal/core"
)

// Player is the downstream pipeline that streams a resolved track.
type Player interface {
	Play(ctx context.Context, track lavalink.Track) error
}

// TrackResolver resolves source tracks and loads direct queries.
type TrackResolver interface {
	Resolve(ctx context.Context, track core.SourceTrack) (lavalink.Track, error)
	Load(ctx context.Context, query string) (lavalink.Track, error)
}

// MirroredTrack is a catalog track that is resolved to a streamable mirror
// when playback starts.
type MirroredTrack struct {
	Info core.SourceTrack

	resolver TrackResolver

	mu       sync.Mutex
	resolved *lavalink.Track
}

// NewMirroredTrack wraps info. Nothing is resolved until Process is called.
func NewMirroredTrack(info core.SourceTrack, resolver TrackResolver) *MirroredTrack {
	return &MirroredTrack{Info: info, resolver: resolver}
}

// Process resolves the track and hands the mirror to player. Preview tracks
// load their preview URL instead. A failed resolution returns
// ErrTrackNotFound.
func (t *MirroredTrack) Process(ctx context.Context, player Player) error {
	delegate, err := t.delegate(ctx)
	if err != nil {
		return err
	}

	t.mu.Lock()
	t.resolved = &delegate
	t.mu.Unlock()

	if err := player.Play(ctx, delegate); err != nil {
		return fmt.Errorf("play %q: %w", delegate.Info.Title, err)
	}
	return nil
}

func (t *MirroredTrack) delegate(ctx context.Context) (lavalink.Track, error) {
	if t.Info.IsPreview {
		if t.Info.PreviewURL == "" {
			return lavalink.Track{}, ErrNoPreviewURL
		}
		return t.resolver.Load(ctx, t.Info.PreviewURL)
	}

	delegate, err := t.resolver.Resolve(ctx, t.Info)
	if errors.Is(err, ErrTrackNotFound) {
		return lavalink.Track{}, ErrTrackNotFound
	}
	return delegate, err
}

// Resolved returns the track the last Process call delegated to.
func (t *MirroredTrack) Resolved() (lavalink.Track, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.resolved == nil {
		return lavalink.Track{}, false
	}
	return *t.resolved, true
}
