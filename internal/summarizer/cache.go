package summarizer

import (
	"container/list"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"sync"
	"time"
)

// DefaultCacheTTL bounds how long a cached summary stays reusable when the
// caller does not pick a TTL.
const DefaultCacheTTL = time.Hour

// CachingSummarizer fronts another Summarizer with a bounded LRU cache.
// Generation is deterministic for a fixed model and options (beam search,
// not sampling), so identical requests can be answered from the cache.
type CachingSummarizer struct {
	inner     Summarizer
	modelName string
	cache     *summaryCache
	ttl       time.Duration
	now       func() time.Time
}

// NewCachingSummarizer wraps inner with a cache of at most maxEntries
// summaries, each kept for ttl. The model name is part of every key so a
// cache never leaks summaries across models.
func NewCachingSummarizer(
	inner Summarizer,
	modelName string,
	maxEntries int,
	ttl time.Duration,
) *CachingSummarizer {
	if ttl <= 0 {
		ttl = DefaultCacheTTL
	}

	return &CachingSummarizer{
		inner:     inner,
		modelName: modelName,
		cache:     newSummaryCache(maxEntries),
		ttl:       ttl,
		now:       time.Now,
	}
}

func (c *CachingSummarizer) Summarize(ctx context.Context, input Input) (string, error) {
	input = input.withDefaults()
	key := cacheKey(c.modelName, input)
	now := c.now()

	if summary, ok := c.cache.get(key, now); ok {
		return summary, nil
	}

	summary, err := c.inner.Summarize(ctx, input)
	if err != nil {
		return "", err
	}

	c.cache.set(key, summary, now.Add(c.ttl), now)

	return summary, nil
}

func cacheKey(modelName string, input Input) string {
	h := sha256.New()
	// Every negative budget means the same zero cap, so they share a key.
	fmt.Fprintf(h, "%s\x00%s\x00%d\x00", modelName, input.Method, clampTokenBudget(input.MaxNewTokens))
	h.Write([]byte(input.Dialogue))

	return hex.EncodeToString(h.Sum(nil))
}

// summaryCache is a bounded LRU with per-entry expiry. A nil cache is valid
// and never hits.
type summaryCache struct {
	mu         sync.Mutex
	entries    map[string]*list.Element
	order      *list.List
	maxEntries int
}

type summaryCacheEntry struct {
	key       string
	summary   string
	expiresAt time.Time
}

func newSummaryCache(maxEntries int) *summaryCache {
	if maxEntries <= 0 {
		return nil
	}

	return &summaryCache{
		entries:    make(map[string]*list.Element, maxEntries),
		order:      list.New(),
		maxEntries: maxEntries,
	}
}

func (c *summaryCache) get(key string, now time.Time) (string, bool) {
	if c == nil || key == "" {
		return "", false
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	elem, ok := c.entries[key]
	if !ok {
		return "", false
	}

	entry := elem.Value.(*summaryCacheEntry)
	if now.After(entry.expiresAt) {
		c.removeElement(elem)

		return "", false
	}

	c.order.MoveToFront(elem)

	return entry.summary, true
}

func (c *summaryCache) set(key string, summary string, expiresAt time.Time, now time.Time) {
	if c == nil || key == "" || !expiresAt.After(now) {
		return
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if elem, ok := c.entries[key]; ok {
		entry := elem.Value.(*summaryCacheEntry)
		entry.summary = summary
		entry.expiresAt = expiresAt
		c.order.MoveToFront(elem)

		return
	}

	elem := c.order.PushFront(&summaryCacheEntry{
		key:       key,
		summary:   summary,
		expiresAt: expiresAt,
	})
	c.entries[key] = elem

	for len(c.entries) > c.maxEntries {
		oldest := c.order.Back()
		if oldest == nil {
			return
		}
		c.removeElement(oldest)
	}
}

func (c *summaryCache) removeElement(elem *list.Element) {
	entry := elem.Value.(*summaryCacheEntry)
	delete(c.entries, entry.key)
	c.order.Remove(elem)
}
