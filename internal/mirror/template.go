// Package mirror resolves catalog tracks without streamable audio to equivalent
// tracks from freely searchable providers.
package mirror

import (
	"strings"

	"lavasrc/internal/core"
)

const (
	// ISRCPattern is replaced with the track's ISRC.
	ISRCPattern = "%ISRC%"
	// QueryPattern is replaced with the track's title and author.
	QueryPattern = "%QUERY%"

	// SpotifySearchPrefix is the search prefix of the Spotify mirroring source.
	SpotifySearchPrefix = "spsearch:"
	// AppleMusicSearchPrefix is the search prefix of the Apple Music mirroring source.
	AppleMusicSearchPrefix = "amsearch:"
	// TidalSearchPrefix is the search prefix of the Tidal mirroring source.
	TidalSearchPrefix = "tdsearch:"
)

// DefaultProviders are used when no provider templates are configured.
var DefaultProviders = []string{
	`ytsearch:"` + ISRCPattern + `"`,
	"ytsearch:" + QueryPattern,
}

// Template is a provider query with placeholder tokens, e.g. "ytsearch:%QUERY%".
type Template string

// Prefix returns the scheme prefix including the trailing colon, or "" if the
// template has none.
func (t Template) Prefix() string {
	idx := strings.Index(string(t), ":")
	if idx < 0 {
		return ""
	}
	return string(t)[:idx+1]
}

// Source returns the scheme prefix without the colon, e.g. "ytsearch".
func (t Template) Source() string {
	return strings.TrimSuffix(t.Prefix(), ":")
}

// NeedsISRC reports whether the template contains the ISRC placeholder.
func (t Template) NeedsISRC() bool {
	return strings.Contains(string(t), ISRCPattern)
}

// Expand substitutes the placeholders with the track's metadata. It returns
// ErrMissingISRC instead of substituting an empty ISRC.
func (t Template) Expand(track core.SourceTrack) (string, error) {
	query := string(t)
	if t.NeedsISRC() {
		if !track.HasISRC() {
			return "", ErrMissingISRC
		}
		query = strings.ReplaceAll(query, ISRCPattern, track.ISRC)
	}
	return strings.ReplaceAll(query, QueryPattern, track.Query()), nil
}

// TemplateSet is the ordered, immutable list of provider templates together
// with the search prefixes of mirroring sources that must never be used.
type TemplateSet struct {
	templates []Template
	mirroring map[string]struct{}
}

// NewTemplateSet builds a template set. An empty providers list falls back to
// DefaultProviders. The Spotify, Apple Music and Tidal search prefixes are
// always treated as mirroring prefixes.
func NewTemplateSet(providers []string, mirroringPrefixes ...string) TemplateSet {
	if len(providers) == 0 {
		providers = DefaultProviders
	}

	templates := make([]Template, 0, len(providers))
	for _, p := range providers {
		p = strings.TrimSpace(p)
		if p != "" {
			templates = append(templates, Template(p))
		}
	}

	mirroring := map[string]struct{}{
		SpotifySearchPrefix:    {},
		AppleMusicSearchPrefix: {},
		TidalSearchPrefix:      {},
	}
	for _, prefix := range mirroringPrefixes {
		prefix = strings.TrimSpace(prefix)
		if prefix == "" {
			continue
		}
		if !strings.HasSuffix(prefix, ":") {
			prefix += ":"
		}
		mirroring[prefix] = struct{}{}
	}

	return TemplateSet{templates: templates, mirroring: mirroring}
}

// Templates returns a copy of the templates in order.
func (s TemplateSet) Templates() []Template {
	out := make([]Template, len(s.templates))
	copy(out, s.templates)
	return out
}

// Len returns the number of templates.
func (s TemplateSet) Len() int {
	return len(s.templates)
}

// IsMirroring reports whether t searches another mirroring source, which
// would make resolution recurse between mirroring adapters.
func (s TemplateSet) IsMirroring(t Template) bool {
	_, ok := s.mirroring[t.Prefix()]
	return ok
}
