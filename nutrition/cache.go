package nutrition

import (
	"context"
	"crypto/md5"
	"encoding/hex"
	"strings"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
)

// DefaultCacheTTL bounds how long a resolved analysis is reused before the
// oracle is consulted again.
const DefaultCacheTTL = 24 * time.Hour

const cacheKeyPrefix = "food_analysis:"

// Cache is the content-addressed analysis store. Get returns (nil, nil) on a
// miss. Entries are immutable once written and keyed by input fingerprint,
// so concurrent get/put needs no coordination beyond last-write-wins.
type Cache interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Put(ctx context.Context, key string, value []byte, ttl time.Duration) error
}

// TextFingerprint is the stable cache key for a text request: an md5 over the
// normalized description plus the portion hint.
func TextFingerprint(description, portionHint string) string {
	normalized := strings.ToLower(strings.TrimSpace(description))
	sum := md5.Sum([]byte(normalized + "_" + portionHint))
	return "text_" + hex.EncodeToString(sum[:])
}

// PhotoFingerprint is the stable cache key for a photo request: the image
// content hash, extended with a short caption hash when a caption is present.
func PhotoFingerprint(image []byte, caption string) string {
	sum := md5.Sum(image)
	key := "photo_" + hex.EncodeToString(sum[:])
	if caption = strings.TrimSpace(caption); caption != "" {
		capSum := md5.Sum([]byte(caption))
		key += "_" + hex.EncodeToString(capSum[:])[:8]
	}
	return key
}

// RedisCache stores analyses in Redis with a TTL, shared across all sessions.
type RedisCache struct {
	client *redis.Client
}

func NewRedisCache(client *redis.Client) *RedisCache {
	return &RedisCache{client: client}
}

func (c *RedisCache) Get(ctx context.Context, key string) ([]byte, error) {
	value, err := c.client.Get(ctx, cacheKeyPrefix+key).Bytes()
	if err == redis.Nil {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return value, nil
}

func (c *RedisCache) Put(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	return c.client.Set(ctx, cacheKeyPrefix+key, value, ttl).Err()
}

// MemoryCache is the in-process fallback used when Redis is unreachable and
// by tests. Expiry is checked lazily on Get.
type MemoryCache struct {
	mu      sync.RWMutex
	entries map[string]memoryEntry
	now     func() time.Time
}

type memoryEntry struct {
	value     []byte
	expiresAt time.Time
}

func NewMemoryCache() *MemoryCache {
	return &MemoryCache{
		entries: make(map[string]memoryEntry),
		now:     time.Now,
	}
}

func (c *MemoryCache) Get(_ context.Context, key string) ([]byte, error) {
	c.mu.RLock()
	entry, ok := c.entries[key]
	c.mu.RUnlock()

	if !ok {
		return nil, nil
	}
	if c.now().After(entry.expiresAt) {
		c.mu.Lock()
		delete(c.entries, key)
		c.mu.Unlock()
		return nil, nil
	}
	return entry.value, nil
}

func (c *MemoryCache) Put(_ context.Context, key string, value []byte, ttl time.Duration) error {
	c.mu.Lock()
	c.entries[key] = memoryEntry{value: value, expiresAt: c.now().Add(ttl)}
	c.mu.Unlock()
	return nil
}
