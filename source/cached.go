package source

import (
	"context"
	"sync"
	"time"

	"github.com/rushteam/churnkit/core"
)

// CachedProvider 给画像提供方加一层内存 TTL 缓存。
// 同一客户在冷却期内被多个批次反复评估时，避免重复打到远程画像服务。
type CachedProvider struct {
	provider core.FieldProvider

	mu      sync.RWMutex
	entries map[string]*cacheEntry

	maxSize int
	ttl     time.Duration

	cleanupTicker *time.Ticker
	stopCleanup   chan struct{}
	closeOnce     sync.Once
}

type cacheEntry struct {
	fields     map[string]any
	expireTime time.Time
	accessTime time.Time
}

// NewCachedProvider 创建带缓存的画像提供方。
// maxSize 是缓存条目上限（超出按最久未访问淘汰），ttl 是条目生存时间。
func NewCachedProvider(provider core.FieldProvider, maxSize int, ttl time.Duration) *CachedProvider {
	c := &CachedProvider{
		provider:    provider,
		entries:     make(map[string]*cacheEntry),
		maxSize:     maxSize,
		ttl:         ttl,
		stopCleanup: make(chan struct{}),
	}

	c.cleanupTicker = time.NewTicker(1 * time.Minute)
	go c.cleanup()

	return c
}

var _ core.FieldProvider = (*CachedProvider)(nil)

func (c *CachedProvider) Name() string {
	return "cached." + c.provider.Name()
}

func (c *CachedProvider) cleanup() {
	for {
		select {
		case <-c.cleanupTicker.C:
			c.cleanExpired()
		case <-c.stopCleanup:
			c.cleanupTicker.Stop()
			return
		}
	}
}

func (c *CachedProvider) cleanExpired() {
	now := time.Now()
	c.mu.Lock()
	defer c.mu.Unlock()

	for id, entry := range c.entries {
		if now.After(entry.expireTime) {
			delete(c.entries, id)
		}
	}
	for len(c.entries) > c.maxSize {
		c.evictOldest()
	}
}

// evictOldest 淘汰最久未访问的条目，调用方需持有写锁。
func (c *CachedProvider) evictOldest() {
	var oldestID string
	var oldestTime time.Time
	first := true

	for id, entry := range c.entries {
		if first || entry.accessTime.Before(oldestTime) {
			oldestID = id
			oldestTime = entry.accessTime
			first = false
		}
	}
	if !first {
		delete(c.entries, oldestID)
	}
}

func (c *CachedProvider) get(id string) (map[string]any, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	entry, ok := c.entries[id]
	if !ok {
		return nil, false
	}
	if time.Now().After(entry.expireTime) {
		return nil, false
	}
	entry.accessTime = time.Now()
	return entry.fields, true
}

func (c *CachedProvider) set(id string, fields map[string]any) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if len(c.entries) >= c.maxSize {
		c.evictOldest()
	}
	c.entries[id] = &cacheEntry{
		fields:     fields,
		expireTime: time.Now().Add(c.ttl),
		accessTime: time.Now(),
	}
}

// GetCustomerFields 先查缓存，未命中时穿透到底层提供方并回填。
func (c *CachedProvider) GetCustomerFields(ctx context.Context, customerID string) (map[string]any, error) {
	if fields, ok := c.get(customerID); ok {
		return fields, nil
	}
	fields, err := c.provider.GetCustomerFields(ctx, customerID)
	if err != nil {
		return nil, err
	}
	c.set(customerID, fields)
	return fields, nil
}

// BatchGetCustomerFields 批量版：只为未命中的 ID 穿透底层。
func (c *CachedProvider) BatchGetCustomerFields(ctx context.Context, customerIDs []string) (map[string]map[string]any, error) {
	result := make(map[string]map[string]any, len(customerIDs))
	miss := make([]string, 0, len(customerIDs))

	for _, id := range customerIDs {
		if fields, ok := c.get(id); ok {
			result[id] = fields
		} else {
			miss = append(miss, id)
		}
	}
	if len(miss) == 0 {
		return result, nil
	}

	fetched, err := c.provider.BatchGetCustomerFields(ctx, miss)
	if err != nil {
		// 底层失败时至少返回缓存命中的部分
		return result, nil
	}
	for id, fields := range fetched {
		c.set(id, fields)
		result[id] = fields
	}
	return result, nil
}

// Close 停止清理协程并关闭底层提供方。
func (c *CachedProvider) Close(ctx context.Context) error {
	c.closeOnce.Do(func() {
		close(c.stopCleanup)
	})
	return c.provider.Close(ctx)
}
