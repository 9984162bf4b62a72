package mirror

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/disgoorg/disgolink/v3/lavalink"
	"go.uber.org/zap"

	"lavasrc/internal/core"
)

// AttemptOutcome describes what happened to one provider template.
type AttemptOutcome string

const (
	OutcomeSkippedMirroring AttemptOutcome = "skipped_mirroring"
	OutcomeSkippedISRC      AttemptOutcome = "skipped_isrc"
	OutcomeFailed           AttemptOutcome = "failed"
	OutcomeEmpty            AttemptOutcome = "empty"
	OutcomeRejected         AttemptOutcome = "rejected"
	OutcomeMatched          AttemptOutcome = "matched"
)

// Attempt is one entry of the resolution audit log.
type Attempt struct {
	Template Template       `json:"template"`
	Query    string         `json:"query,omitempty"`
	Outcome  AttemptOutcome `json:"outcome"`
	Error    string         `json:"error,omitempty"`
}

// Submitted reports whether the query was sent to the load subsystem.
func (a Attempt) Submitted() bool {
	return a.Query != ""
}

// Resolution is the winning track together with the attempts that led to it.
type Resolution struct {
	Track    lavalink.Track `json:"track"`
	Provider string         `json:"provider"`
	Attempts []Attempt      `json:"attempts"`
	Cached   bool           `json:"cached"`
}

// CachedResolution is what a Cache remembers about a source track. Found is
// false for tracks known to have no mirror.
type CachedResolution struct {
	Track    lavalink.Track
	Provider string
	Found    bool
}

// Cache remembers resolution outcomes per source track.
type Cache interface {
	Get(track core.SourceTrack) (CachedResolution, bool)
	Put(track core.SourceTrack, res CachedResolution)
}

// Recorder observes resolution attempts and outcomes.
type Recorder interface {
	RecordAttempt(source string, outcome AttemptOutcome)
	RecordResolution(found, cached bool, elapsed time.Duration)
}

// Option configures a Resolver.
type Option func(*Resolver)

// WithScorer re-ranks search results of eligible providers.
func WithScorer(scorer *Scorer) Option {
	return func(r *Resolver) {
		r.scorer = scorer
	}
}

// WithCache enables caching of resolution outcomes.
func WithCache(cache Cache) Option {
	return func(r *Resolver) {
		r.cache = cache
	}
}

// WithRecorder reports attempts and outcomes to recorder.
func WithRecorder(recorder Recorder) Option {
	return func(r *Resolver) {
		r.recorder = recorder
	}
}

// Resolver tries provider templates in order until one yields a usable track.
type Resolver struct {
	templates TemplateSet
	bridge    *Bridge
	scorer    *Scorer
	cache     Cache
	recorder  Recorder
	logger    *zap.Logger
}

// NewResolver creates a resolver. The template set and options are fixed for
// the lifetime of the resolver.
func NewResolver(templates TemplateSet, bridge *Bridge, logger *zap.Logger, opts ...Option) *Resolver {
	r := &Resolver{
		templates: templates,
		bridge:    bridge,
		logger:    logger.Named("mirror"),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Resolve returns the mirror of track or ErrTrackNotFound.
func (r *Resolver) Resolve(ctx context.Context, track core.SourceTrack) (lavalink.Track, error) {
	res, err := r.ResolveDetailed(ctx, track)
	if err != nil {
		return lavalink.Track{}, err
	}
	return res.Track, nil
}

// Find returns the mirror of track and whether one was found. Errors other
// than exhaustion are logged and reported as not found.
func (r *Resolver) Find(ctx context.Context, track core.SourceTrack) (lavalink.Track, bool) {
	res, err := r.ResolveDetailed(ctx, track)
	if err != nil {
		if !errors.Is(err, ErrTrackNotFound) {
			r.logger.Warn("Resolution aborted", zap.String("title", track.Title), zap.Error(err))
		}
		return lavalink.Track{}, false
	}
	return res.Track, true
}

// ResolveDetailed is Resolve with the ordered attempt log. On exhaustion the
// returned Resolution still carries the attempts.
func (r *Resolver) ResolveDetailed(ctx context.Context, track core.SourceTrack) (Resolution, error) {
	start := time.Now()

	if r.cache != nil {
		if cached, ok := r.cache.Get(track); ok {
			r.record(cached.Found, true, start)
			if !cached.Found {
				return Resolution{Cached: true}, ErrTrackNotFound
			}
			r.logger.Debug("Mirror cache hit", zap.String("title", track.Title), zap.String("provider", cached.Provider))
			return Resolution{Track: cached.Track, Provider: cached.Provider, Cached: true}, nil
		}
	}

	res := Resolution{Attempts: make([]Attempt, 0, r.templates.Len())}

	for _, template := range r.templates.Templates() {
		if err := ctx.Err(); err != nil {
			return res, fmt.Errorf("resolve %q: %w", track.Title, err)
		}

		attempt, winner, ok := r.try(ctx, template, track)
		res.Attempts = append(res.Attempts, attempt)
		if r.recorder != nil {
			r.recorder.RecordAttempt(template.Source(), attempt.Outcome)
		}
		if !ok {
			continue
		}

		res.Track = winner
		res.Provider = attempt.Query
		r.logger.Debug("Loaded track mirror",
			zap.String("title", track.Title),
			zap.String("provider", attempt.Query),
			zap.String("source", winner.Info.SourceName),
			zap.String("mirror", winner.Info.Title))
		r.remember(track, CachedResolution{Track: winner, Provider: attempt.Query, Found: true})
		r.record(true, false, start)
		return res, nil
	}

	// A load cut short by the caller is not evidence that no mirror exists.
	if err := ctx.Err(); err != nil {
		return res, fmt.Errorf("resolve %q: %w", track.Title, err)
	}

	r.logger.Debug("No mirror found", zap.String("title", track.Title), zap.Int("attempts", len(res.Attempts)))
	if !allFailed(res.Attempts) {
		r.remember(track, CachedResolution{})
	}
	r.record(false, false, start)
	return res, ErrTrackNotFound
}

// allFailed reports whether every submitted attempt failed to load. Such a
// run reflects provider outages and is not cached as a miss.
func allFailed(attempts []Attempt) bool {
	submitted := 0
	for _, a := range attempts {
		if !a.Submitted() {
			continue
		}
		submitted++
		if a.Outcome != OutcomeFailed {
			return false
		}
	}
	return submitted > 0
}

// try runs a single template and reports whether it produced a winner.
func (r *Resolver) try(ctx context.Context, template Template, track core.SourceTrack) (Attempt, lavalink.Track, bool) {
	attempt := Attempt{Template: template}

	if r.templates.IsMirroring(template) {
		r.logger.Warn("Can not use a mirroring source as search provider", zap.String("template", string(template)))
		attempt.Outcome = OutcomeSkippedMirroring
		return attempt, lavalink.Track{}, false
	}

	query, err := template.Expand(track)
	if err != nil {
		r.logger.Debug("Ignoring template because the track does not have an ISRC", zap.String("template", string(template)))
		attempt.Outcome = OutcomeSkippedISRC
		return attempt, lavalink.Track{}, false
	}
	attempt.Query = query

	item, err := r.bridge.Load(ctx, query)
	if err != nil {
		r.logger.Error("Failed to load track from provider", zap.String("provider", query), zap.Error(err))
		attempt.Outcome = OutcomeFailed
		attempt.Error = err.Error()
		return attempt, lavalink.Track{}, false
	}

	winner, outcome := r.pick(item, track, query)
	attempt.Outcome = outcome
	return attempt, winner, outcome == OutcomeMatched
}

// pick selects the winning track of a load outcome, consulting the scorer for
// search results of eligible providers.
func (r *Resolver) pick(item Item, track core.SourceTrack, query string) (lavalink.Track, AttemptOutcome) {
	switch it := item.(type) {
	case *TrackItem:
		return it.Track, OutcomeMatched
	case *PlaylistItem:
		if !it.SearchResult {
			r.logger.Debug("Ignoring non-search playlist", zap.String("provider", query), zap.String("name", it.Name))
			return lavalink.Track{}, OutcomeEmpty
		}
		if r.scorer != nil && r.scorer.Applies(query) && len(it.Tracks) > 0 {
			ranked, err := r.scorer.Score(it.Tracks, track, query)
			if err != nil || len(ranked) == 0 {
				return lavalink.Track{}, OutcomeRejected
			}
			return ranked[0], OutcomeMatched
		}
		winner, ok := it.Pick()
		if !ok {
			r.logger.Debug("Empty search result", zap.String("provider", query))
			return lavalink.Track{}, OutcomeEmpty
		}
		return winner, OutcomeMatched
	default:
		r.logger.Debug("No matches", zap.String("provider", query))
		return lavalink.Track{}, OutcomeEmpty
	}
}

// Load loads query directly, used for preview URLs that need no mirroring.
func (r *Resolver) Load(ctx context.Context, query string) (lavalink.Track, error) {
	item, err := r.bridge.Load(ctx, query)
	if err != nil {
		return lavalink.Track{}, err
	}
	switch it := item.(type) {
	case *TrackItem:
		return it.Track, nil
	case *PlaylistItem:
		if it.Selected != nil {
			return *it.Selected, nil
		}
		if len(it.Tracks) > 0 {
			return it.Tracks[0], nil
		}
	}
	return lavalink.Track{}, fmt.Errorf("load %q: %w", query, ErrTrackNotFound)
}

func (r *Resolver) remember(track core.SourceTrack, res CachedResolution) {
	if r.cache != nil {
		r.cache.Put(track, res)
	}
}

func (r *Resolver) record(found, cached bool, start time.Time) {
	if r.recorder != nil {
		r.recorder.RecordResolution(found, cached, time.Since(start))
	}
}
