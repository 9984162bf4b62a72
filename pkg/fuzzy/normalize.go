// Package fuzzy provides text normalisation for track matching and cache keys.
package fuzzy

import (
	"regexp"
	"strings"
	"unicode"

	"golang.org/x/text/unicode/norm"
)

var (
	featRegex       = regexp.MustCompile(`\s*\b(?:feat|ft|featuring)\b.*$`)
	remixRegex      = regexp.MustCompile(`\s*\bremix\b.*$`)
	versionRegex    = regexp.MustCompile(`\s*\b(?:remaster|remastered|deluxe|extended|radio edit|clean|explicit)\b.*$`)
	punctRegex      = regexp.MustCompile(`[^\p{L}\p{N}\s]+`)
	whitespaceRegex = regexp.MustCompile(`\s+`)
)

// Normalizer folds titles and artist names into a canonical, accent-free form.
type Normalizer struct{}

func NewNormalizer() *Normalizer {
	return &Normalizer{}
}

func (n *Normalizer) NormalizeArtist(artist string) string {
	artist = n.basicNormalize(artist)

	artist = strings.ReplaceAll(artist, " and ", " & ")
	artist = strings.ReplaceAll(artist, " vs ", " vs. ")
	artist = strings.ReplaceAll(artist, " feat ", " feat. ")
	artist = strings.ReplaceAll(artist, " ft ", " ft. ")

	return artist
}

// NormalizeTitle strips featured artists, remix and version suffixes.
func (n *Normalizer) NormalizeTitle(title string) string {
	title = n.basicNormalize(title)

	title = featRegex.ReplaceAllString(title, "")
	title = remixRegex.ReplaceAllString(title, "")
	title = versionRegex.ReplaceAllString(title, "")

	return strings.TrimSpace(title)
}

func (n *Normalizer) basicNormalize(text string) string {
	text = norm.NFKD.String(text)

	var result strings.Builder
	for _, r := range text {
		if !unicode.IsMark(r) {
			result.WriteRune(r)
		}
	}
	text = result.String()

	text = punctRegex.ReplaceAllString(text, " ")
	text = whitespaceRegex.ReplaceAllString(text, " ")

	text = strings.ToLower(text)
	text = strings.TrimSpace(text)

	return text
}

// Simplify lowercases and trims s without any further folding.
func Simplify(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}
