package ndpi

import (
	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/pspoerri/wsitile/geom"
	"github.com/pspoerri/wsitile/internal/metrics"
)

// DefaultCacheCapacity is the default number of frames held per image's
// FrameCache (§3 "Frame cache", default capacity 128).
const DefaultCacheCapacity = 128

// FrameCache is a bounded LRU mapping frame_position -> frame bytes,
// scoped to one NdpiTiledImage. It wraps hashicorp/golang-lru/v2 behind
// the same Get/Put shape as the teacher's own mutex-guarded cog.TileCache
// so the caching discipline is recognizable even though the eviction
// bookkeeping now comes from a real third-party LRU implementation.
type FrameCache struct {
	cache   *lru.Cache[geom.Point, []byte]
	metrics *metrics.Registry
}

// NewFrameCache builds a cache with the given capacity (DefaultCacheCapacity
// if capacity <= 0). reg may be nil.
func NewFrameCache(capacity int, reg *metrics.Registry) *FrameCache {
	if capacity <= 0 {
		capacity = DefaultCacheCapacity
	}
	c, err := lru.New[geom.Point, []byte](capacity)
	if err != nil {
		// Only possible if capacity <= 0, which we've already excluded.
		panic(err)
	}
	return &FrameCache{cache: c, metrics: reg}
}

// Get returns the cached frame for framePosition, if present. The
// returned slice is shared and must not be mutated by the caller (§5:
// "cache hits return a reference to an immutable buffer").
func (c *FrameCache) Get(framePosition geom.Point) ([]byte, bool) {
	buf, ok := c.cache.Get(framePosition)
	if ok {
		c.metrics.ObserveCacheHit()
	} else {
		c.metrics.ObserveCacheMiss()
	}
	return buf, ok
}

// Put inserts frame under framePosition, evicting the least-recently-used
// entry if the cache is at capacity.
func (c *FrameCache) Put(framePosition geom.Point, frame []byte) {
	c.cache.Add(framePosition, frame)
}

// Len reports the current number of cached frames (≤ capacity, per
// testable property §8.6).
func (c *FrameCache) Len() int {
	return c.cache.Len()
}
