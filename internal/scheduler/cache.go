package scheduler

import (
	"sync"
	"time"
)

// cacheEntry 单个探针的最近一次采集结果
type cacheEntry struct {
	value       any
	collectedAt time.Time
}

// TieredCache 探针结果缓存。条目只覆盖不删除：
// 过期条目继续可读（宁旧勿缺），由 IsDue 判断是否需要重新采集。
type TieredCache struct {
	mu      sync.RWMutex
	entries map[string]cacheEntry
}

func NewTieredCache() *TieredCache {
	return &TieredCache{
		entries: make(map[string]cacheEntry),
	}
}

// Get 读取缓存值，不存在时返回 false
func (c *TieredCache) Get(key string) (any, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	entry, ok := c.entries[key]
	if !ok {
		return nil, false
	}
	return entry.value, true
}

// GetOr 读取缓存值，不存在时返回默认值
func (c *TieredCache) GetOr(key string, def any) any {
	if value, ok := c.Get(key); ok {
		return value
	}
	return def
}

// CollectedAt 返回条目的采集时间
func (c *TieredCache) CollectedAt(key string) (time.Time, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	entry, ok := c.entries[key]
	if !ok {
		return time.Time{}, false
	}
	return entry.collectedAt, true
}

// Put 原子覆盖条目并刷新采集时间
func (c *TieredCache) Put(key string, value any) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries[key] = cacheEntry{value: value, collectedAt: time.Now()}
}

// PutAt 以指定时间写入条目，富化回填时保留原采集时间
func (c *TieredCache) PutAt(key string, value any, collectedAt time.Time) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries[key] = cacheEntry{value: value, collectedAt: collectedAt}
}

// IsDue 判断条目是否到期需要重新采集，缺失即到期
func (c *TieredCache) IsDue(key string, ttl time.Duration, now time.Time) bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	entry, ok := c.entries[key]
	if !ok {
		return true
	}
	return now.Sub(entry.collectedAt) >= ttl
}

// Keys 返回当前所有条目键（测试与诊断用）
func (c *TieredCache) Keys() []string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	keys := make([]string, 0, len(c.entries))
	for key := range c.entries {
		keys = append(keys, key)
	}
	return keys
}
