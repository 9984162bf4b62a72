// Package flood limits how many mirror resolutions a single client may request.
package flood

import (
	"sync"
	"time"
)

const (
	// windowDuration is the fixed time window for flood detection (always 1 minute)
	windowDuration = 60 * time.Second
	// cleanupInterval is how often we clean up expired entries
	cleanupInterval = 10 * time.Minute
	// idleTimeout is how long before we remove idle client entries
	idleTimeout = 10 * time.Minute
)

// Floodgate provides per-client flood prevention with sliding window rate limiting
type Floodgate struct {
	limitPerMinute int                     // Maximum requests per client per minute
	entries        map[string]*clientEntry // Key: client address or API key
	mutex          sync.RWMutex
	stopCleanup    chan struct{}
	now            func() time.Time
}

// clientEntry tracks request timestamps for a single client
type clientEntry struct {
	timestamps []time.Time // Sliding window of request timestamps, oldest first
	lastSeen   time.Time
}

// New creates a new Floodgate with the specified rate limiting configuration
// The time window is fixed at 60 seconds (1 minute)
func New(limitPerMinute int) *Floodgate {
	fg := &Floodgate{
		limitPerMinute: limitPerMinute,
		entries:        make(map[string]*clientEntry),
		stopCleanup:    make(chan struct{}),
		now:            time.Now,
	}

	// Start background cleanup goroutine
	go fg.cleanup()

	return fg
}

// Stop stops the background cleanup goroutine
func (fg *Floodgate) Stop() {
	close(fg.stopCleanup)
}

// Allow reports whether a request from client should be served. When it is
// not, retryAfter is the time until the oldest request leaves the window.
func (fg *Floodgate) Allow(client string) (allowed bool, retryAfter time.Duration) {
	fg.mutex.Lock()
	defer fg.mutex.Unlock()

	now := fg.now()

	entry, exists := fg.entries[client]
	if !exists {
		entry = &clientEntry{
			timestamps: make([]time.Time, 0, max(fg.limitPerMinute, 0)+1),
		}
		fg.entries[client] = entry
	}
	entry.lastSeen = now

	// Remove timestamps outside the window
	windowStart := now.Add(-windowDuration)
	validTimestamps := entry.timestamps[:0] // Reuse slice capacity
	for _, ts := range entry.timestamps {
		if ts.After(windowStart) {
			validTimestamps = append(validTimestamps, ts)
		}
	}
	entry.timestamps = validTimestamps

	if len(entry.timestamps) >= fg.limitPerMinute {
		if len(entry.timestamps) == 0 {
			return false, windowDuration
		}
		return false, entry.timestamps[0].Add(windowDuration).Sub(now)
	}

	entry.timestamps = append(entry.timestamps, now)
	return true, 0
}

// cleanup removes idle client entries to prevent memory leaks
func (fg *Floodgate) cleanup() {
	fg.performCleanup()

	ticker := time.NewTicker(cleanupInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			fg.performCleanup()
		case <-fg.stopCleanup:
			return
		}
	}
}

func (fg *Floodgate) performCleanup() {
	fg.mutex.Lock()
	defer fg.mutex.Unlock()

	cutoff := fg.now().Add(-idleTimeout)
	for key, entry := range fg.entries {
		if entry.lastSeen.Before(cutoff) {
			delete(fg.entries, key)
		}
	}
}

// GetStats returns statistics about the floodgate for monitoring/debugging
func (fg *Floodgate) GetStats() Stats {
	fg.mutex.RLock()
	defer fg.mutex.RUnlock()

	return Stats{
		ActiveClients:  len(fg.entries),
		LimitPerMinute: fg.limitPerMinute,
		WindowSeconds:  int(windowDuration.Seconds()),
	}
}

// Stats contains floodgate statistics
type Stats struct {
	ActiveClients  int `json:"active_clients"`
	LimitPerMinute int `json:"limit_per_minute"`
	WindowSeconds  int `json:"window_seconds"`
}
