package mirror

import (
	"errors"
)

var (
	// ErrTrackNotFound is returned when every provider was tried without finding a mirror.
	ErrTrackNotFound = errors.New("no mirror found for track")
	// ErrNoCandidate is returned by the scorer when no candidate is good enough.
	ErrNoCandidate = errors.New("no candidate reached the match threshold")
	// ErrMissingISRC is returned when an ISRC template is expanded for a track without ISRC.
	ErrMissingISRC = errors.New("track has no ISRC")
	// ErrLoadTimeout is returned when the load subsystem did not answer in time.
	ErrLoadTimeout = errors.New("load timed out")
	// ErrNoPreviewURL is returned when a preview track has no preview URL.
	ErrNoPreviewURL = errors.New("no preview url found")
)
