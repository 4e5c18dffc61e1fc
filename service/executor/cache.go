package executor

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"time"

	"github.com/juicer-platform/cortex/internal/clock"
	"github.com/juicer-platform/cortex/service/dao"
	"github.com/juicer-platform/cortex/service/dao/store"
)

// DefaultCacheTTL keeps cached responses for a day.
const DefaultCacheTTL = 24 * time.Hour

// CacheEntry is a cached backend response keyed by endpoint and body.
type CacheEntry struct {
	Key       string    `json:"key"`
	Text      string    `json:"text"`
	ExpiresAt time.Time `json:"expiresAt"`
}

// Cache keeps responses of deterministic calls.
type Cache struct {
	ttl     time.Duration
	entries dao.Service[string, CacheEntry]
}

// NewCache creates a memory backed cache.
func NewCache(ttl time.Duration) *Cache {
	return NewCacheWith(ttl, store.NewMemoryStore[string, CacheEntry](func(e *CacheEntry) string { return e.Key }))
}

// NewCacheWith creates a cache over entries; ttl <= 0 uses DefaultCacheTTL.
func NewCacheWith(ttl time.Duration, entries dao.Service[string, CacheEntry]) *Cache {
	if ttl <= 0 {
		ttl = DefaultCacheTTL
	}
	return &Cache{ttl: ttl, entries: entries}
}

func (c *Cache) get(ctx context.Context, key string) (string, bool) {
	entry, err := c.entries.Load(ctx, key)
	if err != nil || entry == nil {
		return "", false
	}
	if !clock.Now().Before(entry.ExpiresAt) {
		_ = c.entries.Delete(ctx, key)
		return "", false
	}
	return entry.Text, true
}

func (c *Cache) put(ctx context.Context, key, text string) {
	_ = c.entries.Save(ctx, &CacheEntry{Key: key, Text: text, ExpiresAt: clock.Now().Add(c.ttl)})
}

func cacheKey(url string, body []byte) string {
	hash := sha256.New()
	hash.Write([]byte(url))
	hash.Write([]byte{0})
	hash.Write(body)
	return hex.EncodeToString(hash.Sum(nil))
}
