package fuzzy

import (
	"testing"
)

// runStringTransformationTest is a helper to run tests for string transformation functions.
func runStringTransformationTest(t *testing.T, testName string,
	transformFunc func(string) string, testCases []struct {
		name     string
		input    string
		expected string
	}) {
	t.Helper()
	for _, tt := range testCases {
		t.Run(tt.name, func(t *testing.T) {
			result := transformFunc(tt.input)
			if result != tt.expected {
				t.Errorf("%s() = %q, want %q", testName, result, tt.expected)
			}
		})
	}
}

func TestNormalizer_NormalizeArtist(t *testing.T) {
	normalizer := NewNormalizer()

	tests := []struct {
		name     string
		input    string
		expected string
	}{
		{
			name:     "Simple artist name",
			input:    "The Beatles",
			expected: "the beatles",
		},
		{
			name:     "Artist with feat",
			input:    "Artist feat. Someone",
			expected: "artist feat. someone",
		},
		{
			name:     "Artist with and",
			input:    "Artist and Someone",
			expected: "artist & someone",
		},
		{
			name:     "Artist with vs",
			input:    "Artist vs Someone",
			expected: "artist vs. someone",
		},
		{
			name:     "Artist with punctuation",
			input:    "P!nk",
			expected: "p nk",
		},
		{
			name:     "Artist with accents",
			input:    "Björk",
			expected: "bjork",
		},
	}

	runStringTransformationTest(t, "NormalizeArtist", normalizer.NormalizeArtist, tests)
}

func TestNormalizer_NormalizeTitle(t *testing.T) {
	normalizer := NewNormalizer()

	tests := []struct {
		name     string
		input    string
		expected string
	}{
		{
			name:     "Simple title",
			input:    "Hey Jude",
			expected: "hey jude",
		},
		{
			name:     "Title with featuring",
			input:    "Song Title (feat. Artist)",
			expected: "song title",
		},
		{
			name:     "Title with remix",
			input:    "Song Title (Remix)",
			expected: "song title",
		},
		{
			name:     "Title with remaster",
			input:    "Song Title (Remastered)",
			expected: "song title",
		},
		{
			name:     "Title with version info",
			input:    "Song Title - Radio Edit",
			expected: "song title",
		},
		{
			name:     "Title with punctuation",
			input:    "Don't Stop Me Now!",
			expected: "don t stop me now",
		},
		{
			name:     "Title with multiple spaces",
			input:    "Song    Title",
			expected: "song title",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := normalizer.NormalizeTitle(tt.input)
			if result != tt.expected {
				t.Errorf("NormalizeTitle() = %q, want %q", result, tt.expected)
			}
		})
	}
}

func TestNormalizer_basicNormalize(t *testing.T) {
	normalizer := NewNormalizer()

	tests := []struct {
		name     string
		input    string
		expected string
	}{
		{
			name:     "Simple text",
			input:    "Hello World",
			expected: "hello world",
		},
		{
			name:     "Text with punctuation",
			input:    "Hello, World!",
			expected: "hello world",
		},
		{
			name:     "Text with accents",
			input:    "Café",
			expected: "cafe",
		},
		{
			name:     "Text with multiple spaces",
			input:    "Hello    World",
			expected: "hello world",
		},
		{
			name:     "Text with leading/trailing spaces",
			input:    "  Hello World  ",
			expected: "hello world",
		},
		{
			name:     "Mixed punctuation and spaces",
			input:    "Hello,  World!!!",
			expected: "hello world",
		},
	}

	runStringTransformationTest(t, "basicNormalize", normalizer.basicNormalize, tests)
}

func BenchmarkNormalizer_NormalizeArtist(b *testing.B) {
	normalizer := NewNormalizer()
	artist := "The Beatles feat. John Lennon & Paul McCartney"

	b.ResetTimer()
	for range b.N {
		normalizer.NormalizeArtist(artist)
	}
}

func BenchmarkNormalizer_NormalizeTitle(b *testing.B) {
	normalizer := NewNormalizer()
	title := "Hey Jude (Remastered 2009) [feat. Orchestra] - Radio Edit"

	b.ResetTimer()
	for range b.N {
		normalizer.NormalizeTitle(title)
	}
}

func TestSimplify(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected string
	}{
		{
			name:     "Lowercases",
			input:    "Song A",
			expected: "song a",
		},
		{
			name:     "Trims",
			input:    "  Song A  ",
			expected: "song a",
		},
		{
			name:     "Keeps punctuation and accents",
			input:    "Café (Live)",
			expected: "café (live)",
		},
	}

	runStringTransformationTest(t, "Simplify", Simplify, tests)
}
