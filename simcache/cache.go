// Package simcache 缓存商品对的相似度得分。
// 相似度是对称的，键按无序对归一化，(a,b) 和 (b,a) 命中同一条目。
package simcache

import (
	"context"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"
)

// ComputeFunc 在缓存未命中时计算一对商品的相似度。
type ComputeFunc func(ctx context.Context, productA, productB string) (float64, error)

// Cache 是带 TTL 和容量上限的相似度缓存，采用 LRU 淘汰。
// 并发未命中同一商品对时由 singleflight 合并，只计算一次。
type Cache struct {
	mu         sync.RWMutex
	entries    map[string]*cacheEntry
	maxSize    int
	defaultTTL time.Duration
	flight     singleflight.Group
}

type cacheEntry struct {
	score      float64
	expireTime time.Time
	accessTime time.Time
}

// New 创建相似度缓存。maxSize <= 0 取 10000，ttl <= 0 取 10 分钟。
func New(maxSize int, ttl time.Duration) *Cache {
	if maxSize <= 0 {
		maxSize = 10000
	}
	if ttl <= 0 {
		ttl = 10 * time.Minute
	}
	return &Cache{
		entries:    make(map[string]*cacheEntry),
		maxSize:    maxSize,
		defaultTTL: ttl,
	}
}

// PairKey 返回商品对的归一化缓存键，与参数顺序无关。
func PairKey(productA, productB string) string {
	if productA > productB {
		productA, productB = productB, productA
	}
	return productA + "|" + productB
}

// Get 返回缓存的相似度。过期视为未命中。
func (c *Cache) Get(productA, productB string) (float64, bool) {
	key := PairKey(productA, productB)

	c.mu.RLock()
	entry, ok := c.entries[key]
	c.mu.RUnlock()
	if !ok || time.Now().After(entry.expireTime) {
		return 0, false
	}

	c.mu.Lock()
	entry.accessTime = time.Now()
	c.mu.Unlock()
	return entry.score, true
}

// Set 写入一对商品的相似度，超出容量时先淘汰最久未访问的条目。
func (c *Cache) Set(productA, productB string, score float64) {
	key := PairKey(productA, productB)

	c.mu.Lock()
	defer c.mu.Unlock()

	if len(c.entries) >= c.maxSize {
		c.evictLRU()
	}
	c.entries[key] = &cacheEntry{
		score:      score,
		expireTime: time.Now().Add(c.defaultTTL),
		accessTime: time.Now(),
	}
}

// GetOrCompute 命中则直接返回，未命中时调用 compute 并回填。
// 同一商品对的并发未命中只触发一次计算。
func (c *Cache) GetOrCompute(ctx context.Context, productA, productB string, compute ComputeFunc) (float64, error) {
	if score, ok := c.Get(productA, productB); ok {
		return score, nil
	}

	key := PairKey(productA, productB)
	v, err, _ := c.flight.Do(key, func() (any, error) {
		if score, ok := c.Get(productA, productB); ok {
			return score, nil
		}
		score, err := compute(ctx, productA, productB)
		if err != nil {
			return 0.0, err
		}
		c.Set(productA, productB, score)
		return score, nil
	})
	if err != nil {
		return 0, err
	}
	return v.(float64), nil
}

// Len 返回当前条目数（含未清理的过期条目）。
func (c *Cache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.entries)
}

// Clear 清空全部条目。
func (c *Cache) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries = make(map[string]*cacheEntry)
}

// evictLRU 淘汰最久未访问的一条。调用方持有写锁。
func (c *Cache) evictLRU() {
	var oldestKey string
	var oldestTime time.Time
	first := true

	for key, entry := range c.entries {
		if first || entry.accessTime.Before(oldestTime) {
			oldestKey = key
			oldestTime = entry.accessTime
			first = false
		}
	}
	if !first {
		delete(c.entries, oldestKey)
	}
}
