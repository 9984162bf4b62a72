package core

import (
	"time"
)

// UnknownAuthor is the author value catalog adapters use when no artist is known.
// It is never added to search queries.
const UnknownAuthor = "unknown"

// SourceTrack describes a catalog track that has no streamable audio of its own.
type SourceTrack struct {
	Title      string
	Author     string
	Duration   time.Duration
	ISRC       string
	SourceName string
	URI        string

	Identifier string
	AlbumName  string
	ArtworkURL string
	PreviewURL string
	IsPreview  bool
}

// HasISRC reports whether the track carries a usable ISRC.
func (t SourceTrack) HasISRC() bool {
	return t.ISRC != ""
}

// HasAuthor reports whether the author should be part of search queries.
func (t SourceTrack) HasAuthor() bool {
	return t.Author != "" && t.Author != UnknownAuthor
}

// Query is the free-text search query for this track: the title, followed by
// the author when one is known.
func (t SourceTrack) Query() string {
	if t.HasAuthor() {
		return t.Title + " " + t.Author
	}
	return t.Title
}
