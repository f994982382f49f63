package permission

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
)

// Cache holds resolved permission sets keyed by group. Implementations
// are injected explicitly; there is no ambient global cache.
type Cache interface {
	Get(ctx context.Context, key string) ([]string, bool, error)
	Set(ctx context.Context, key string, perms []string) error
}

// DisabledCache never hits. Test and verification builds use it so no
// cache state leaks between runs.
type DisabledCache struct{}

func (DisabledCache) Get(context.Context, string) ([]string, bool, error) { return nil, false, nil }
func (DisabledCache) Set(context.Context, string, []string) error         { return nil }

type memoryEntry struct {
	perms     []string
	expiresAt time.Time
}

// MemoryCache is a process-local TTL cache.
type MemoryCache struct {
	mu      sync.RWMutex
	ttl     time.Duration
	entries map[string]memoryEntry
}

func NewMemoryCache(ttl time.Duration) *MemoryCache {
	return &MemoryCache{ttl: ttl, entries: make(map[string]memoryEntry)}
}

func (c *MemoryCache) Get(_ context.Context, key string) ([]string, bool, error) {
	c.mu.RLock()
	entry, ok := c.entries[key]
	c.mu.RUnlock()
	if !ok || time.Now().After(entry.expiresAt) {
		return nil, false, nil
	}
	out := make([]string, len(entry.perms))
	copy(out, entry.perms)
	return out, true, nil
}

func (c *MemoryCache) Set(_ context.Context, key string, perms []string) error {
	cp := make([]string, len(perms))
	copy(cp, perms)
	c.mu.Lock()
	c.entries[key] = memoryEntry{perms: cp, expiresAt: time.Now().Add(c.ttl)}
	c.mu.Unlock()
	return nil
}

// RedisCache shares permission sets across instances.
type RedisCache struct {
	client *redis.Client
	ttl    time.Duration
}

func NewRedisCache(client *redis.Client, ttl time.Duration) *RedisCache {
	return &RedisCache{client: client, ttl: ttl}
}

func (c *RedisCache) key(key string) string { return "permission:" + key }

func (c *RedisCache) Get(ctx context.Context, key string) ([]string, bool, error) {
	raw, err := c.client.Get(ctx, c.key(key)).Result()
	if err == redis.Nil {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	if raw == "" {
		return nil, true, nil
	}
	return strings.Split(raw, ","), true, nil
}

func (c *RedisCache) Set(ctx context.Context, key string, perms []string) error {
	return c.client.Set(ctx, c.key(key), strings.Join(perms, ","), c.ttl).Err()
}
