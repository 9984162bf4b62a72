package musiclink

import (
	"context"
	"net/http"
	"strings"
	"testing"
)

func TestBeatportResolver_CanResolve(t *testing.T) {
	t.Helper()

	resolver := NewBeatportResolver()

	tests := []struct {
		name     string
		url      string
		expected bool
	}{
		{name: "www host", url: "https://www.beatport.com/track/love-songs-feat-kosmo-kint/21977538", expected: true},
		{name: "bare host", url: "https://beatport.com/track/some-track/12345", expected: true},
		{name: "mixed case host", url: "https://WWW.Beatport.com/track/x/1", expected: true},
		{name: "other store", url: "https://www.traxsource.com/track/1", expected: false},
		{name: "malformed URL", url: "://beatport.com", expected: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := resolver.CanResolve(tt.url); got != tt.expected {
				t.Errorf("CanResolve(%q) = %v, want %v", tt.url, got, tt.expected)
			}
		})
	}
}

func TestBeatportResolver_extractTrackInfo(t *testing.T) {
	t.Helper()

	resolver := NewBeatportResolver()

	tests := []struct {
		name       string
		page       string
		wantTitle  string
		wantArtist string
		wantErr    bool
	}{
		{
			name: "title tag lists artists before the track",
			page: `<title data-next-head="">Prospa, Kosmo Kint - Love Songs (feat. Kosmo Kint) ` +
				`(Extended Mix) [CircoLoco Records] | Music &amp; Downloads on Beatport</title>`,
			wantTitle:  "Love Songs (feat. Kosmo Kint) (Extended Mix) [CircoLoco Records]",
			wantArtist: "Prospa, Kosmo Kint",
		},
		{
			name:       "only the first separator splits",
			page:       `<title>DJ Name - Song - Dub | Music &amp; Downloads on Beatport</title>`,
			wantTitle:  "Song - Dub",
			wantArtist: "DJ Name",
		},
		{
			name: "og tags when the title tag has no separator",
			page: `<title>Beatport</title>` +
				`<meta property="og:title" content="Cola (Original Mix)">` +
				`<meta property="og:description" content="Cola by CamelPhat">`,
			wantTitle:  "Cola (Original Mix)",
			wantArtist: "CamelPhat",
		},
		{
			name:    "nothing to extract",
			page:    `<html><body>Just a random page</body></html>`,
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			title, artist, err := resolver.extractTrackInfo(tt.page)
			if (err != nil) != tt.wantErr {
				t.Fatalf("extractTrackInfo() error = %v, wantErr %v", err, tt.wantErr)
			}
			if title != tt.wantTitle || artist != tt.wantArtist {
				t.Errorf("extractTrackInfo() = (%q, %q), want (%q, %q)", title, artist, tt.wantTitle, tt.wantArtist)
			}
		})
	}
}

func TestBeatportResolver_Resolve(t *testing.T) {
	t.Helper()

	resolver := NewBeatportResolver()
	resolver.client = pageClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Accept") != commonAcceptHeader {
			w.WriteHeader(http.StatusNotAcceptable)
			return
		}
		_, _ = w.Write([]byte(`<html><head>` +
			`<title>Prospa, Kosmo Kint - Love Songs (feat. Kosmo Kint) (Extended Mix) ` +
			`| Music &amp; Downloads on Beatport</title>` +
			`<meta property="og:image" content="https://geo-media.beatport.com/image_size/500x500/cover.jpg">` +
			`</head></html>`))
	})

	const link = "https://www.beatport.com/track/love-songs-feat-kosmo-kint/21977538"
	info, err := resolver.Resolve(context.Background(), link)
	if err != nil {
		t.Fatalf("Resolve() error = %v", err)
	}

	want := TrackInfo{
		Title:      "Love Songs (feat. Kosmo Kint) (Extended Mix)",
		Artist:     "Prospa, Kosmo Kint",
		Source:     BeatportSource,
		URL:        link,
		ArtworkURL: "https://geo-media.beatport.com/image_size/500x500/cover.jpg",
	}
	if *info != want {
		t.Errorf("Resolve() = %+v, want %+v", *info, want)
	}
}

func TestBeatportResolver_Resolve_Errors(t *testing.T) {
	t.Helper()

	tests := []struct {
		name    string
		url     string
		status  int
		wantErr string
	}{
		{name: "release link", url: "https://www.beatport.com/release/x/1", status: http.StatusOK, wantErr: "only /track/"},
		{name: "other host", url: "https://example.com/track/x/1", status: http.StatusOK, wantErr: "not a Beatport URL"},
		{
			name:    "upstream status",
			url:     "https://www.beatport.com/track/x/1",
			status:  http.StatusForbidden,
			wantErr: "Beatport returned status 403",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resolver := NewBeatportResolver()
			resolver.client = pageClient(t, func(w http.ResponseWriter, _ *http.Request) {
				w.WriteHeader(tt.status)
			})

			_, err := resolver.Resolve(context.Background(), tt.url)
			if err == nil || !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("Resolve() error = %v, want containing %q", err, tt.wantErr)
			}
		})
	}
}
