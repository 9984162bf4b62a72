package mirror

import (
	"github.com/disgoorg/disgolink/v3/lavalink"
)

// Item is the outcome of a successful load: a *TrackItem, a *PlaylistItem or
// NoMatch. Failed loads are reported as errors instead.
type Item interface {
	item()
}

// TrackItem is a single loaded track.
type TrackItem struct {
	Track lavalink.Track
}

// PlaylistItem is a loaded playlist. SearchResult marks ranked search output
// as opposed to an album or curated playlist.
type PlaylistItem struct {
	Name         string
	Tracks       []lavalink.Track
	Selected     *lavalink.Track
	SearchResult bool
}

// NoMatch is returned when the provider found nothing.
var NoMatch Item = noMatch{}

type noMatch struct{}

func (*TrackItem) item()    {}
func (*PlaylistItem) item() {}
func (noMatch) item()       {}

// Pick returns the track a usable search result resolves to: the selected
// track if any, otherwise the first one.
func (p *PlaylistItem) Pick() (lavalink.Track, bool) {
	if !p.SearchResult {
		return lavalink.Track{}, false
	}
	if p.Selected != nil {
		return *p.Selected, true
	}
	if len(p.Tracks) == 0 {
		return lavalink.Track{}, false
	}
	return p.Tracks[0], true
}

func newPlaylistItem(playlist lavalink.Playlist) *PlaylistItem {
	item := &PlaylistItem{
		Name:   playlist.Info.Name,
		Tracks: playlist.Tracks,
	}
	if idx := playlist.Info.SelectedTrack; idx >= 0 && idx < len(playlist.Tracks) {
		selected := playlist.Tracks[idx]
		item.Selected = &selected
	}
	return item
}

func newSearchItem(query string, tracks []lavalink.Track) *PlaylistItem {
	return &PlaylistItem{
		Name:         "Search results for: " + query,
		Tracks:       tracks,
		SearchResult: true,
	}
}
