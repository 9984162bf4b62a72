package text

import (
	"reflect"
	"testing"
)

func TestExtractLinks(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  []string
	}{
		{
			"spotify link in a sentence",
			"Check this out: https://open.spotify.com/track/4uLU6hMCjMI75M1A2tKUQC!",
			[]string{"https://open.spotify.com/track/4uLU6hMCjMI75M1A2tKUQC"},
		},
		{
			"spotify uri",
			"play spotify:track:4uLU6hMCjMI75M1A2tKUQC please",
			[]string{"spotify:track:4uLU6hMCjMI75M1A2tKUQC"},
		},
		{
			"tracking parameters removed",
			"https://open.spotify.com/track/abc?si=123&utm_source=copy-link",
			[]string{"https://open.spotify.com/track/abc"},
		},
		{
			"multiple links deduplicated",
			"https://music.apple.com/us/song/x/1 and https://tidal.com/browse/track/2 https://music.apple.com/us/song/x/1",
			[]string{"https://music.apple.com/us/song/x/1", "https://tidal.com/browse/track/2"},
		},
		{"no links", "just some text", nil},
		{"fullwidth characters normalized", "ｈｔｔｐｓ://tidal.com/track/2", []string{"https://tidal.com/track/2"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := ExtractLinks(tt.input); !reflect.DeepEqual(got, tt.want) {
				t.Errorf("ExtractLinks() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestCleanURL(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  string
	}{
		{"trailing punctuation", "https://tidal.com/track/1.", "https://tidal.com/track/1"},
		{"keeps other params", "https://music.apple.com/us/album/x/1?i=2&si=abc", "https://music.apple.com/us/album/x/1?i=2"},
		{"not a url", "tidal.com/track/1", ""},
		{"missing host", "https:///track/1", ""},
		{"spotify uri untouched", "spotify:track:abc", "spotify:track:abc"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := CleanURL(tt.input); got != tt.want {
				t.Errorf("CleanURL(%q) = %q, want %q", tt.input, got, tt.want)
			}
		})
	}
}

func TestNormalize(t *testing.T) {
	if got := Normalize("  a \n\t b  "); got != "a b" {
		t.Errorf("Normalize() = %q, want %q", got, "a b")
	}
}
