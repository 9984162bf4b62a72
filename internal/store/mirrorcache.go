// Package store keeps resolved mirrors in memory using an expiring LRU cache
// and a Bloom filter in front of it.
package store

import (
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/bits-and-blooms/bloom/v3"
	"github.com/hashicorp/golang-lru/v2/expirable"
	"go.uber.org/zap"

	"lavasrc/internal/core"
	"lavasrc/internal/mirror"
	"lavasrc/pkg/fuzzy"
)

// bloomRebuildFactor controls how many inserts the filter absorbs, relative to
// the cache size, before it is rebuilt from the live keys.
const bloomRebuildFactor = 4

var _ mirror.Cache = (*MirrorCache)(nil)

// MirrorCache remembers resolution outcomes keyed by source track identity.
// Negative entries (no mirror found) are cached as well and expire with the
// same TTL. It is safe for concurrent use.
type MirrorCache struct {
	entries                *expirable.LRU[string, mirror.CachedResolution]
	bloom                  *bloom.BloomFilter
	normalizer             *fuzzy.Normalizer
	logger                 *zap.Logger
	mutex                  sync.RWMutex
	size                   int
	bloomFalsePositiveRate float64
	inserts                int
	hits                   uint64
	misses                 uint64
}

// NewMirrorCache creates a cache holding up to cfg.Size entries for cfg.TTL.
func NewMirrorCache(cfg core.CacheConfig, logger *zap.Logger) *MirrorCache {
	if cfg.Size <= 0 || cfg.Size > int(^uint(0)>>1) {
		panic("cache size out of range for uint conversion")
	}

	return &MirrorCache{
		entries:                expirable.NewLRU[string, mirror.CachedResolution](cfg.Size, nil, cfg.TTL),
		bloom:                  bloom.NewWithEstimates(uint(cfg.Size), cfg.BloomFalsePositiveRate),
		normalizer:             fuzzy.NewNormalizer(),
		logger:                 logger.Named("cache"),
		size:                   cfg.Size,
		bloomFalsePositiveRate: cfg.BloomFalsePositiveRate,
	}
}

// Get returns the cached outcome for track, if any and not yet expired.
func (c *MirrorCache) Get(track core.SourceTrack) (mirror.CachedResolution, bool) {
	key := c.Key(track)

	c.mutex.Lock()
	defer c.mutex.Unlock()

	// Never-seen keys skip the LRU entirely.
	if !c.bloom.TestString(key) {
		c.misses++
		return mirror.CachedResolution{}, false
	}

	res, ok := c.entries.Get(key)
	if !ok {
		c.misses++
		return mirror.CachedResolution{}, false
	}

	c.hits++
	c.logger.Debug("Cache hit", zap.String("key", key), zap.Bool("found", res.Found))
	return res, true
}

// Put stores the outcome for track.
func (c *MirrorCache) Put(track core.SourceTrack, res mirror.CachedResolution) {
	key := c.Key(track)

	c.mutex.Lock()
	defer c.mutex.Unlock()

	c.entries.Add(key, res)
	c.bloom.AddString(key)
	c.inserts++

	if c.inserts > c.size*bloomRebuildFactor {
		c.rebuildBloom()
	}
}

// Len returns the number of live entries.
func (c *MirrorCache) Len() int {
	c.mutex.RLock()
	defer c.mutex.RUnlock()
	return c.entries.Len()
}

// Stats returns the hit and miss counters.
func (c *MirrorCache) Stats() (hits, misses uint64) {
	c.mutex.RLock()
	defer c.mutex.RUnlock()
	return c.hits, c.misses
}

// Key derives the cache key of a source track: its ISRC, else its source and
// URI, else its normalised title, author and duration in seconds.
func (c *MirrorCache) Key(track core.SourceTrack) string {
	switch {
	case track.HasISRC():
		return "isrc:" + strings.ToUpper(strings.TrimSpace(track.ISRC))
	case track.URI != "":
		return "uri:" + track.SourceName + ":" + track.URI
	default:
		author := ""
		if track.HasAuthor() {
			author = c.normalizer.NormalizeArtist(track.Author)
		}
		seconds := int64(track.Duration / time.Second)
		return "meta:" + c.normalizer.NormalizeTitle(track.Title) + "|" + author + "|" + strconv.FormatInt(seconds, 10)
	}
}

func (c *MirrorCache) rebuildBloom() {
	c.bloom = bloom.NewWithEstimates(uint(c.size), c.bloomFalsePositiveRate)
	for _, key := range c.entries.Keys() {
		c.bloom.AddString(key)
	}
	c.inserts = c.entries.Len()
	c.logger.Debug("Rebuilt cache bloom filter", zap.Int("keys", c.inserts))
}
