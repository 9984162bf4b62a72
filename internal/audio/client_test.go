package audio

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/disgoorg/disgolink/v3/lavalink"
	"github.com/disgoorg/snowflake/v2"
	"go.uber.org/zap"
)

type recordingHandler struct {
	calls  []string
	tracks []lavalink.Track
	err    error
}

func (h *recordingHandler) TrackLoaded(track lavalink.Track) {
	h.calls = append(h.calls, "track")
	h.tracks = []lavalink.Track{track}
}

func (h *recordingHandler) PlaylistLoaded(playlist lavalink.Playlist) {
	h.calls = append(h.calls, "playlist")
	h.tracks = playlist.Tracks
}

func (h *recordingHandler) SearchResultLoaded(tracks []lavalink.Track) {
	h.calls = append(h.calls, "search")
	h.tracks = tracks
}

func (h *recordingHandler) NoMatches() {
	h.calls = append(h.calls, "empty")
}

func (h *recordingHandler) LoadFailed(err error) {
	h.calls = append(h.calls, "failed")
	h.err = err
}

func TestDispatch(t *testing.T) {
	track := lavalink.Track{Encoded: "QAAA", Info: lavalink.TrackInfo{Title: "Song A"}}

	tests := []struct {
		name   string
		result *lavalink.LoadResult
		want   string
		tracks int
	}{
		{"track", &lavalink.LoadResult{Data: track}, "track", 1},
		{"playlist", &lavalink.LoadResult{Data: lavalink.Playlist{Tracks: []lavalink.Track{track, track}}}, "playlist", 2},
		{"search", &lavalink.LoadResult{Data: lavalink.Search{track, track, track}}, "search", 3},
		{"empty", &lavalink.LoadResult{Data: lavalink.Empty{}}, "empty", 0},
		{"exception", &lavalink.LoadResult{Data: lavalink.Exception{Message: "This video is unavailable"}}, "failed", 0},
		{"nil", nil, "empty", 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := &recordingHandler{}
			Dispatch(tt.result, h)

			if len(h.calls) != 1 || h.calls[0] != tt.want {
				t.Fatalf("Expected exactly one %q call, got %v", tt.want, h.calls)
			}
			if len(h.tracks) != tt.tracks {
				t.Errorf("Expected %d tracks, got %d", tt.tracks, len(h.tracks))
			}
		})
	}
}

func TestDispatch_ExceptionMessage(t *testing.T) {
	h := &recordingHandler{}
	Dispatch(&lavalink.LoadResult{Data: lavalink.Exception{Message: "This video is unavailable"}}, h)

	if h.err == nil || !strings.Contains(h.err.Error(), "This video is unavailable") {
		t.Errorf("Expected the exception message in the error, got %v", h.err)
	}
}

func TestGuildPlayer_Wait(t *testing.T) {
	client := &Client{
		logger:  zap.NewNop(),
		waiters: make(map[snowflake.ID][]chan lavalink.TrackEndReason),
	}
	guildID := snowflake.ID(42)

	tests := []struct {
		name   string
		reason lavalink.TrackEndReason
		want   error
	}{
		{name: "finished", reason: lavalink.TrackEndReasonFinished},
		{name: "stopped", reason: lavalink.TrackEndReasonStopped},
		{name: "load failed", reason: lavalink.TrackEndReasonLoadFailed, want: ErrTrackLoadFailed},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			player := client.Player(guildID)
			player.ended = client.waitEnd(guildID)

			client.notifyEnd(snowflake.ID(7), lavalink.TrackEndReasonFinished) // other guild
			client.notifyEnd(guildID, tt.reason)

			if err := player.Wait(context.Background()); !errors.Is(err, tt.want) {
				t.Errorf("Wait() error = %v, want %v", err, tt.want)
			}
		})
	}
}

func TestGuildPlayer_WaitCanceled(t *testing.T) {
	client := &Client{
		logger:  zap.NewNop(),
		waiters: make(map[snowflake.ID][]chan lavalink.TrackEndReason),
	}
	player := client.Player(snowflake.ID(1))
	player.ended = client.waitEnd(snowflake.ID(1))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if err := player.Wait(ctx); !errors.Is(err, context.Canceled) {
		t.Errorf("Wait() error = %v, want context.Canceled", err)
	}

	// Without a Play there is nothing to wait for.
	if err := client.Player(snowflake.ID(2)).Wait(context.Background()); err != nil {
		t.Errorf("Wait() without Play error = %v", err)
	}
}

func TestGuildPlayer_WaitBoundedByTrackLength(t *testing.T) {
	client := &Client{
		logger:  zap.NewNop(),
		waiters: make(map[snowflake.ID][]chan lavalink.TrackEndReason),
	}
	player := client.Player(snowflake.ID(3))
	player.ended = client.waitEnd(snowflake.ID(3))
	player.limit = 20 * time.Millisecond

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()

	start := time.Now()
	if err := player.Wait(ctx); err != nil {
		t.Fatalf("Wait() error = %v, want nil after the length limit", err)
	}
	if elapsed := time.Since(start); elapsed >= time.Second {
		t.Errorf("Wait() returned after %s, want it bounded by the limit", elapsed)
	}

	// A late end event must not block the client.
	client.notifyEnd(snowflake.ID(3), lavalink.TrackEndReasonFinished)
}
