// Package playback plays mirrored tracks one after another.
package playback

import (
	"context"
	"errors"
	"sync"

	"github.com/disgoorg/disgolink/v3/lavalink"
	"go.uber.org/zap"

	"lavasrc/internal/mirror"
)

// Waiter is implemented by players that can block until the current track ends.
type Waiter interface {
	Wait(ctx context.Context) error
}

// Result is the outcome of one queue item.
type Result struct {
	Index int
	Title string
	Track lavalink.Track
	Err   error
}

// Failed reports whether the item could not be played.
func (r Result) Failed() bool {
	return r.Err != nil
}

// Queue holds mirrored tracks and plays them in order. A failing item is
// reported and skipped; it never stops the items after it.
type Queue struct {
	player   mirror.Player
	logger   *zap.Logger
	onResult func(Result)

	mu    sync.Mutex
	items []*mirror.MirroredTrack
	next  int
}

// Option configures a Queue.
type Option func(*Queue)

// WithResultCallback calls fn after every processed item.
func WithResultCallback(fn func(Result)) Option {
	return func(q *Queue) {
		q.onResult = fn
	}
}

func NewQueue(player mirror.Player, logger *zap.Logger, opts ...Option) *Queue {
	q := &Queue{
		player: player,
		logger: logger.Named("playback"),
	}
	for _, opt := range opts {
		opt(q)
	}
	return q
}

// Enqueue appends tracks. Tracks enqueued while Run is active are played in
// the same run.
func (q *Queue) Enqueue(tracks ...*mirror.MirroredTrack) {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.items = append(q.items, tracks...)
}

// Len returns the number of tracks not yet processed.
func (q *Queue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.items) - q.next
}

// Run processes queued tracks until the queue is drained or ctx is done. It
// returns the results of every processed item; the error is only set when
// ctx ended the run.
func (q *Queue) Run(ctx context.Context) ([]Result, error) {
	var results []Result

	for {
		if err := ctx.Err(); err != nil {
			return results, err
		}

		index, track, ok := q.pop()
		if !ok {
			return results, nil
		}

		result := q.process(ctx, index, track)
		if result.Failed() && ctx.Err() != nil && errors.Is(result.Err, ctx.Err()) {
			return results, ctx.Err()
		}

		results = append(results, result)
		if q.onResult != nil {
			q.onResult(result)
		}
	}
}

func (q *Queue) pop() (int, *mirror.MirroredTrack, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.next >= len(q.items) {
		return 0, nil, false
	}
	index := q.next
	q.next++
	return index, q.items[index], true
}

func (q *Queue) process(ctx context.Context, index int, track *mirror.MirroredTrack) Result {
	result := Result{Index: index, Title: track.Info.Title}

	if err := track.Process(ctx, q.player); err != nil {
		q.logger.Warn("Failed to play queue item",
			zap.Int("index", index),
			zap.String("title", track.Info.Title),
			zap.Error(err))
		result.Err = err
		return result
	}

	result.Track, _ = track.Resolved()
	q.logger.Info("Playing queue item",
		zap.Int("index", index),
		zap.String("title", track.Info.Title),
		zap.String("mirror", result.Track.Info.Title),
		zap.String("source", result.Track.Info.SourceName))

	if waiter, ok := q.player.(Waiter); ok {
		if err := waiter.Wait(ctx); err != nil {
			q.logger.Warn("Queue item ended with error", zap.Int("index", index), zap.Error(err))
			result.Err = err
		}
	}
	return result
}
