package mirror

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/disgoorg/disgolink/v3/disgolink"
	"github.com/disgoorg/disgolink/v3/lavalink"
	"go.uber.org/zap"
)

// Loader submits a query to the load subsystem. It completes by calling
// exactly one of the handler methods, either before returning or later from
// another goroutine.
type Loader interface {
	LoadItem(ctx context.Context, query string, handler disgolink.AudioLoadResultHandler)
}

// LoaderFunc adapts a function to the Loader interface.
type LoaderFunc func(ctx context.Context, query string, handler disgolink.AudioLoadResultHandler)

// LoadItem calls f.
func (f LoaderFunc) LoadItem(ctx context.Context, query string, handler disgolink.AudioLoadResultHandler) {
	f(ctx, query, handler)
}

// Bridge turns the callback based load protocol into a synchronous call.
type Bridge struct {
	loader  Loader
	timeout time.Duration
	logger  *zap.Logger
}

// NewBridge creates a bridge. A zero timeout waits until ctx is done.
func NewBridge(loader Loader, timeout time.Duration, logger *zap.Logger) *Bridge {
	return &Bridge{
		loader:  loader,
		timeout: timeout,
		logger:  logger.Named("bridge"),
	}
}

type loadOutcome struct {
	item Item
	err  error
}

// outcomeHandler keeps the first outcome and drops everything after it.
type outcomeHandler struct {
	query  string
	once   sync.Once
	result chan loadOutcome
	logger *zap.Logger
}

func newOutcomeHandler(query string, logger *zap.Logger) *outcomeHandler {
	return &outcomeHandler{
		query:  query,
		result: make(chan loadOutcome, 1),
		logger: logger,
	}
}

func (h *outcomeHandler) complete(item Item, err error) {
	fired := false
	h.once.Do(func() {
		fired = true
		h.result <- loadOutcome{item: item, err: err}
	})
	if !fired {
		h.logger.Debug("Ignoring extra load outcome", zap.String("query", h.query))
	}
}

func (h *outcomeHandler) TrackLoaded(track lavalink.Track) {
	h.logger.Debug("Track loaded", zap.String("identifier", track.Info.Identifier))
	h.complete(&TrackItem{Track: track}, nil)
}

func (h *outcomeHandler) PlaylistLoaded(playlist lavalink.Playlist) {
	h.logger.Debug("Playlist loaded", zap.String("name", playlist.Info.Name))
	h.complete(newPlaylistItem(playlist), nil)
}

func (h *outcomeHandler) SearchResultLoaded(tracks []lavalink.Track) {
	h.logger.Debug("Search result loaded", zap.String("query", h.query), zap.Int("tracks", len(tracks)))
	h.complete(newSearchItem(h.query, tracks), nil)
}

func (h *outcomeHandler) NoMatches() {
	h.logger.Debug("No matches found", zap.String("query", h.query))
	h.complete(NoMatch, nil)
}

func (h *outcomeHandler) LoadFailed(err error) {
	if err == nil {
		err = errors.New("unknown load failure")
	}
	h.logger.Debug("Failed to load", zap.String("query", h.query), zap.Error(err))
	h.complete(nil, err)
}

// Load submits query and blocks until the load subsystem reports an outcome,
// the timeout elapses or ctx is done.
func (b *Bridge) Load(ctx context.Context, query string) (Item, error) {
	loadCtx := ctx
	if b.timeout > 0 {
		var cancel context.CancelFunc
		loadCtx, cancel = context.WithTimeout(ctx, b.timeout)
		defer cancel()
	}

	handler := newOutcomeHandler(query, b.logger)
	go b.loader.LoadItem(loadCtx, query, handler)

	select {
	case out := <-handler.result:
		if out.err != nil {
			return nil, fmt.Errorf("load %q: %w", query, out.err)
		}
		return out.item, nil
	case <-loadCtx.Done():
		// Prefer an outcome that raced with the deadline.
		select {
		case out := <-handler.result:
			if out.err != nil {
				return nil, fmt.Errorf("load %q: %w", query, out.err)
			}
			return out.item, nil
		default:
		}
		if ctx.Err() != nil {
			return nil, fmt.Errorf("load %q: %w", query, ctx.Err())
		}
		return nil, fmt.Errorf("load %q after %s: %w", query, b.timeout, ErrLoadTimeout)
	}
}

var _ disgolink.AudioLoadResultHandler = (*outcomeHandler)(nil)
