package playback

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/disgoorg/disgolink/v3/disgolink"
	"github.com/disgoorg/disgolink/v3/lavalink"
	"go.uber.org/zap"

	"lavasrc/internal/core"
	"lavasrc/internal/mirror"
)

type recordingPlayer struct {
	mu      sync.Mutex
	played  []string
	failOn  string
	waitErr error
	waits   int
}

func (p *recordingPlayer) Play(_ context.Context, track lavalink.Track) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if track.Info.Title == p.failOn {
		return errors.New("player rejected track")
	}
	p.played = append(p.played, track.Info.Title)
	return nil
}

type waitingPlayer struct {
	recordingPlayer
}

func (p *waitingPlayer) Wait(_ context.Context) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.waits++
	return p.waitErr
}

// newResolver answers search queries for titles in found, fails queries
// containing "Broken" and never answers queries containing "Silent".
func newResolver(found ...string) *mirror.Resolver {
	loader := mirror.LoaderFunc(func(_ context.Context, query string, handler disgolink.AudioLoadResultHandler) {
		switch {
		case strings.Contains(query, "Broken"):
			handler.LoadFailed(errors.New("provider unavailable"))
			return
		case strings.Contains(query, "Silent"):
			return
		}
		for _, title := range found {
			if strings.Contains(query, title) {
				handler.SearchResultLoaded([]lavalink.Track{{
					Encoded: "encoded:" + title,
					Info:    lavalink.TrackInfo{Title: title, Author: "Artist X", SourceName: "youtube"},
				}})
				return
			}
		}
		handler.NoMatches()
	})

	templates := mirror.NewTemplateSet([]string{"ytsearch:%QUERY%", "scsearch:%QUERY%"})
	bridge := mirror.NewBridge(loader, 20*time.Millisecond, zap.NewNop())
	return mirror.NewResolver(templates, bridge, zap.NewNop())
}

func track(resolver *mirror.Resolver, title string) *mirror.MirroredTrack {
	return mirror.NewMirroredTrack(core.SourceTrack{
		Title:    title,
		Author:   "Artist X",
		Duration: 200 * time.Second,
	}, resolver)
}

func TestQueue_Run(t *testing.T) {
	resolver := newResolver("Song A", "Song B")
	player := &recordingPlayer{}

	var callbacks []Result
	queue := NewQueue(player, zap.NewNop(), WithResultCallback(func(r Result) {
		callbacks = append(callbacks, r)
	}))
	queue.Enqueue(track(resolver, "Song A"), track(resolver, "Song B"))

	if queue.Len() != 2 {
		t.Fatalf("Len() = %d, want 2", queue.Len())
	}

	results, err := queue.Run(context.Background())
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}

	if len(results) != 2 || len(callbacks) != 2 {
		t.Fatalf("got %d results and %d callbacks, want 2 each", len(results), len(callbacks))
	}
	for i, want := range []string{"Song A", "Song B"} {
		if results[i].Failed() || results[i].Track.Info.Title != want || results[i].Index != i {
			t.Errorf("results[%d] = %+v, want %s played", i, results[i], want)
		}
	}
	if strings.Join(player.played, ",") != "Song A,Song B" {
		t.Errorf("played = %v", player.played)
	}
	if queue.Len() != 0 {
		t.Errorf("Len() after Run = %d, want 0", queue.Len())
	}
}

func TestQueue_FailedItemDoesNotAbortSiblings(t *testing.T) {
	resolver := newResolver("Song A", "Song C")
	player := &recordingPlayer{}
	queue := NewQueue(player, zap.NewNop())

	queue.Enqueue(
		track(resolver, "Song A"),
		track(resolver, "Broken Song"), // every provider fails
		track(resolver, "Silent Song"), // every provider times out
		track(resolver, "Song C"),
	)

	results, err := queue.Run(context.Background())
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if len(results) != 4 {
		t.Fatalf("got %d results, want 4", len(results))
	}

	for _, i := range []int{1, 2} {
		if !errors.Is(results[i].Err, mirror.ErrTrackNotFound) {
			t.Errorf("results[%d].Err = %v, want ErrTrackNotFound", i, results[i].Err)
		}
		if results[i].Err.Error() != "no mirror found for track" {
			t.Errorf("results[%d] message = %q", i, results[i].Err.Error())
		}
	}
	for _, i := range []int{0, 3} {
		if results[i].Failed() {
			t.Errorf("results[%d] failed: %v", i, results[i].Err)
		}
	}
	if strings.Join(player.played, ",") != "Song A,Song C" {
		t.Errorf("played = %v, want Song A,Song C", player.played)
	}
}

func TestQueue_PlayerError(t *testing.T) {
	resolver := newResolver("Song A", "Song B")
	player := &recordingPlayer{failOn: "Song A"}
	queue := NewQueue(player, zap.NewNop())
	queue.Enqueue(track(resolver, "Song A"), track(resolver, "Song B"))

	results, err := queue.Run(context.Background())
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if !results[0].Failed() || results[1].Failed() {
		t.Errorf("unexpected results: %+v", results)
	}
}

func TestQueue_WaitsForTrackEnd(t *testing.T) {
	resolver := newResolver("Song A", "Song B")
	player := &waitingPlayer{}
	queue := NewQueue(player, zap.NewNop())
	queue.Enqueue(track(resolver, "Song A"), track(resolver, "Broken"), track(resolver, "Song B"))

	if _, err := queue.Run(context.Background()); err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if player.waits != 2 {
		t.Errorf("waits = %d, want 2 (failed items are not awaited)", player.waits)
	}
}

func TestQueue_ContextCanceled(t *testing.T) {
	resolver := newResolver("Song A")
	queue := NewQueue(&recordingPlayer{}, zap.NewNop())
	queue.Enqueue(track(resolver, "Song A"))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	results, err := queue.Run(ctx)
	if !errors.Is(err, context.Canceled) {
		t.Errorf("Run() error = %v, want context.Canceled", err)
	}
	if len(results) != 0 {
		t.Errorf("got %d results, want none", len(results))
	}
	if queue.Len() != 1 {
		t.Errorf("Len() = %d, want the item to stay queued", queue.Len())
	}
}
