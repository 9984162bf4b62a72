package mirror

import (
	"math"
	"regexp"
	"slices"
	"strings"

	"github.com/disgoorg/disgolink/v3/lavalink"
	fuzzywuzzy "github.com/paul-mannino/go-fuzzywuzzy"
	"github.com/samber/lo"
	"github.com/samber/mo"
	"go.uber.org/zap"

	"lavasrc/internal/core"
	"lavasrc/pkg/fuzzy"
)

const (
	// soundCloudSource is the source name of SoundCloud tracks.
	soundCloudSource = "soundcloud"
	// restrictedMarker marks SoundCloud Go tracks that only stream a preview.
	restrictedMarker = "/preview/"

	tierOneRatio = 80
	tierTwoRatio = 65
	// bandWidth is how far above the total threshold a score still needs a good author.
	bandWidth = 40
)

var authorSeparator = regexp.MustCompile(`,\s*`)

// Score is the breakdown of a candidate's match score.
type Score struct {
	Total           int     `json:"total"`
	Title           int     `json:"title"`
	TitleMatchRatio int     `json:"title_match_ratio"`
	Author          int     `json:"author"`
	Duration        int     `json:"duration"`
	Penalty         float64 `json:"penalty"`
}

// Rejected reports whether the candidate failed the title threshold.
func (s Score) Rejected() bool {
	return s.Total == 0
}

// ScoredTrack pairs a candidate with its score.
type ScoredTrack struct {
	Track lavalink.Track
	Score Score
}

// Scorer re-ranks a provider's search results by fuzzy title, author and
// duration similarity.
type Scorer struct {
	sources         map[string]struct{}
	titleThreshold  float64
	authorThreshold float64
	totalThreshold  float64
	skipRestricted  bool
	penalties       [3]mo.Option[float64]
	logger          *zap.Logger
}

// NewScorer creates a scorer from the advanced mirroring configuration.
func NewScorer(cfg core.AdvancedMirrorConfig, logger *zap.Logger) *Scorer {
	sources := make(map[string]struct{}, len(cfg.Sources))
	for _, source := range cfg.Sources {
		source = strings.TrimSuffix(strings.TrimSpace(source), ":")
		if source != "" {
			sources[source] = struct{}{}
		}
	}

	return &Scorer{
		sources:         sources,
		titleThreshold:  cfg.TitleThreshold,
		authorThreshold: cfg.AuthorThreshold,
		totalThreshold:  cfg.TotalMatchThreshold,
		skipRestricted:  cfg.SkipRestricted,
		penalties:       [3]mo.Option[float64]{cfg.LevelOnePenalty, cfg.LevelTwoPenalty, cfg.LevelThreePenalty},
		logger:          logger.Named("scorer"),
	}
}

// Applies reports whether results of provider should be scored. provider may
// be a bare source name, a template or an expanded query.
func (s *Scorer) Applies(provider string) bool {
	source, _, _ := strings.Cut(provider, ":")
	_, ok := s.sources[source]
	return ok
}

// MatchScore scores a single candidate against the source track.
func (s *Scorer) MatchScore(source core.SourceTrack, candidate lavalink.TrackInfo) Score {
	sourceTitle := fuzzy.Simplify(source.Title)
	candidateTitle := fuzzy.Simplify(candidate.Title)

	score := Score{
		Title:           fuzzywuzzy.TokenSortRatio(sourceTitle, candidateTitle),
		TitleMatchRatio: fuzzywuzzy.PartialRatio(sourceTitle, candidateTitle),
		Author:          matchAuthors(fuzzy.Simplify(source.Author), fuzzy.Simplify(candidate.Author)),
		Duration:        durationScore(source.Duration.Milliseconds(), int64(candidate.Length)),
	}

	if float64(score.Title) < s.titleThreshold {
		return score
	}

	score.Penalty = s.penalty(score.TitleMatchRatio)
	total := max(0, int(float64(score.Title+score.Author+score.Duration)-score.Penalty))
	score.Total = s.adjust(total, score.Author)

	return score
}

// Score drops restricted variants, scores every remaining candidate and
// returns them best first without hard rejects. It returns ErrNoCandidate
// when the best score is below the total match threshold. Candidates from
// providers the scorer does not apply to are returned unchanged.
func (s *Scorer) Score(candidates []lavalink.Track, source core.SourceTrack, provider string) ([]lavalink.Track, error) {
	if !s.Applies(provider) {
		return candidates, nil
	}

	scored := s.Rank(candidates, source)
	if len(scored) == 0 || scored[0].Score.Total < int(s.totalThreshold) {
		s.logger.Debug("No candidate reached the total match threshold",
			zap.String("provider", provider),
			zap.Int("candidates", len(candidates)))
		return nil, ErrNoCandidate
	}

	s.logger.Debug("Applied advanced mirroring",
		zap.String("provider", provider),
		zap.String("winner", scored[0].Track.Info.Title),
		zap.Int("score", scored[0].Score.Total))

	return lo.FilterMap(scored, func(st ScoredTrack, _ int) (lavalink.Track, bool) {
		return st.Track, !st.Score.Rejected()
	}), nil
}

// Rank scores all candidates that are not restricted variants and sorts them
// by descending total, keeping the provider's order for ties.
func (s *Scorer) Rank(candidates []lavalink.Track, source core.SourceTrack) []ScoredTrack {
	eligible := candidates
	if s.skipRestricted {
		eligible = lo.Reject(candidates, func(t lavalink.Track, _ int) bool {
			return isRestricted(t.Info)
		})
		if skipped := len(candidates) - len(eligible); skipped > 0 {
			s.logger.Debug("Skipped restricted tracks", zap.Int("count", skipped))
		}
	}

	scored := lo.Map(eligible, func(t lavalink.Track, _ int) ScoredTrack {
		score := s.MatchScore(source, t.Info)
		s.logger.Debug("Track scored",
			zap.String("title", t.Info.Title),
			zap.String("author", t.Info.Author),
			zap.Int("score", score.Total),
			zap.Int("title_score", score.Title),
			zap.Int("title_match_ratio", score.TitleMatchRatio),
			zap.Int("author_score", score.Author),
			zap.Int("duration_score", score.Duration),
			zap.Float64("penalty", score.Penalty))
		return ScoredTrack{Track: t, Score: score}
	})

	slices.SortStableFunc(scored, func(a, b ScoredTrack) int {
		return b.Score.Total - a.Score.Total
	})

	return scored
}

func (s *Scorer) penalty(titleMatchRatio int) float64 {
	var coefficient mo.Option[float64]
	switch {
	case titleMatchRatio >= tierOneRatio:
		coefficient = s.penalties[0]
	case titleMatchRatio >= tierTwoRatio:
		coefficient = s.penalties[1]
	default:
		coefficient = s.penalties[2]
	}

	c, ok := coefficient.Get()
	if !ok {
		return 0
	}
	return c * float64(100-titleMatchRatio)
}

// adjust demotes scores close to the threshold when the author does not match.
func (s *Scorer) adjust(total, author int) int {
	threshold := int(s.totalThreshold)
	if total < threshold-1 || total > threshold+bandWidth {
		return total
	}
	if float64(author) >= s.authorThreshold {
		return total
	}
	return threshold - 2
}

func matchAuthors(source, candidate string) int {
	best := 0
	for _, a := range authorSeparator.Split(source, -1) {
		for _, b := range authorSeparator.Split(candidate, -1) {
			best = max(best, fuzzywuzzy.TokenSortRatio(strings.TrimSpace(a), strings.TrimSpace(b)))
		}
	}
	return best
}

// durationScore compares whole seconds and is not clamped at zero.
func durationScore(sourceMillis, candidateMillis int64) int {
	delta := sourceMillis/1000 - candidateMillis/1000
	return 100 - int(math.Abs(float64(delta)))
}

func isRestricted(info lavalink.TrackInfo) bool {
	return info.SourceName == soundCloudSource && strings.Contains(info.Identifier, restrictedMarker)
}
