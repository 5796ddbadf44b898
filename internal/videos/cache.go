package videos

import (
	"context"
	"sync"
	"time"

	"github.com/vidcast/vidcast/internal/models"
)

// Lookup resolves a video id to its persisted record.
type Lookup interface {
	FindByID(ctx context.Context, assetID string) (models.VideoRecord, error)
}

// LookupFunc adapts a function into a Lookup.
type LookupFunc func(ctx context.Context, assetID string) (models.VideoRecord, error)

// FindByID implements Lookup.
func (f LookupFunc) FindByID(ctx context.Context, assetID string) (models.VideoRecord, error) {
	return f(ctx, assetID)
}

type cacheEntry struct {
	record  models.VideoRecord
	expires time.Time
}

// CachingLookup wraps another Lookup with a TTL-based in-memory cache. Records
// still pending verification are not cached so their status change is seen
// immediately.
type CachingLookup struct {
	base Lookup
	ttl  time.Duration
	now  func() time.Time

	mu    sync.RWMutex
	items map[string]cacheEntry
}

// NewCachingLookup returns a Lookup that caches records for the provided TTL.
func NewCachingLookup(base Lookup, ttl time.Duration) *CachingLookup {
	if ttl <= 0 {
		ttl = time.Minute
	}
	return &CachingLookup{
		base:  base,
		ttl:   ttl,
		now:   time.Now,
		items: make(map[string]cacheEntry),
	}
}

// FindByID returns a cached record when available, otherwise it delegates to
// the underlying lookup and stores the result.
func (c *CachingLookup) FindByID(ctx context.Context, assetID string) (models.VideoRecord, error) {
	if c == nil || c.base == nil {
		return models.VideoRecord{}, ErrLookupUnavailable
	}

	now := c.now()

	c.mu.RLock()
	entry, ok := c.items[assetID]
	c.mu.RUnlock()
	if ok && now.Before(entry.expires) {
		return entry.record, nil
	}

	record, err := c.base.FindByID(ctx, assetID)
	if err != nil {
		return models.VideoRecord{}, err
	}

	if record.AssetStatus != models.AssetStatusPending {
		c.mu.Lock()
		c.items[assetID] = cacheEntry{record: record, expires: now.Add(c.ttl)}
		c.mu.Unlock()
	}

	return record, nil
}
