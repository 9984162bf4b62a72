package mirror

import (
	"context"
	"sync"
	"time"

	"github.com/disgoorg/disgolink/v3/disgolink"
	"github.com/disgoorg/disgolink/v3/lavalink"
	"go.uber.org/zap"

	"lavasrc/internal/core"
)

type response func(h disgolink.AudioLoadResultHandler)

// scriptedLoader answers queries from a fixed script and records every
// submitted query. Unknown queries report no matches.
type scriptedLoader struct {
	mu        sync.Mutex
	queries   []string
	responses map[string]response
}

func newScriptedLoader(responses map[string]response) *scriptedLoader {
	return &scriptedLoader{responses: responses}
}

func (l *scriptedLoader) LoadItem(_ context.Context, query string, h disgolink.AudioLoadResultHandler) {
	l.mu.Lock()
	l.queries = append(l.queries, query)
	respond := l.responses[query]
	l.mu.Unlock()

	if respond == nil {
		h.NoMatches()
		return
	}
	respond(h)
}

func (l *scriptedLoader) Queries() []string {
	l.mu.Lock()
	defer l.mu.Unlock()
	return append([]string(nil), l.queries...)
}

func searchResult(tracks ...lavalink.Track) response {
	return func(h disgolink.AudioLoadResultHandler) {
		h.SearchResultLoaded(tracks)
	}
}

func trackLoaded(track lavalink.Track) response {
	return func(h disgolink.AudioLoadResultHandler) {
		h.TrackLoaded(track)
	}
}

func loadFailed(err error) response {
	return func(h disgolink.AudioLoadResultHandler) {
		h.LoadFailed(err)
	}
}

func noMatches() response {
	return func(h disgolink.AudioLoadResultHandler) {
		h.NoMatches()
	}
}

// hang never completes the load.
func hang() response {
	return func(disgolink.AudioLoadResultHandler) {}
}

func newTrack(title, author string, millis int64) lavalink.Track {
	return lavalink.Track{
		Encoded: "encoded:" + title,
		Info: lavalink.TrackInfo{
			Identifier: title,
			Title:      title,
			Author:     author,
			Length:     lavalink.Duration(millis),
			SourceName: "youtube",
		},
	}
}

func songA() core.SourceTrack {
	return core.SourceTrack{
		Title:      "Song A",
		Author:     "Artist X",
		Duration:   200 * time.Second,
		SourceName: "spotify",
		URI:        "https://open.spotify.com/track/songa",
	}
}

func newTestResolver(loader Loader, providers []string, opts ...Option) *Resolver {
	logger := zap.NewNop()
	bridge := NewBridge(loader, core.DefaultLoadTimeout, logger)
	return NewResolver(NewTemplateSet(providers), bridge, logger, opts...)
}
