// internal/common/cache/cache.go
package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"jelita/internal/common/config"
	"jelita/internal/common/metrics"

	"github.com/hashicorp/golang-lru/v2/expirable"
	"github.com/redis/go-redis/v9"
)

// Cache holds short-lived JSON snapshots of read queries. It is never the
// source of truth: a miss or an error always falls back to the store.
type Cache interface {
	// Get decodes the cached value into dst and reports whether it was present.
	Get(ctx context.Context, key string, dst interface{}) (bool, error)
	Set(ctx context.Context, key string, value interface{}) error
	// Purge drops every entry in the cache's namespace.
	Purge(ctx context.Context) error
}

// Key joins parts into a cache key.
func Key(parts ...interface{}) string {
	s := make([]string, len(parts))
	for i, p := range parts {
		s[i] = fmt.Sprint(p)
	}
	return strings.Join(s, ":")
}

// New picks a backend from configuration. rdb may be nil unless the redis backend is selected.
func New(cfg config.CacheConfig, name string, rdb redis.Cmdable) Cache {
	if !cfg.Enabled {
		return Noop{}
	}
	ttl := config.GetDuration(cfg.TTL)
	if cfg.Backend == "redis" && rdb != nil {
		return NewRedis(rdb, name, ttl)
	}
	return NewMemory(name, cfg.Size, ttl)
}

func record(name, result string) {
	metrics.CacheLookups.WithLabelValues(name, result).Inc()
}

type Memory struct {
	name string
	lru  *expirable.LRU[string, []byte]
}

func NewMemory(name string, size int, ttl time.Duration) *Memory {
	if size <= 0 {
		size = 256
	}
	return &Memory{name: name, lru: expirable.NewLRU[string, []byte](size, nil, ttl)}
}

func (m *Memory) Get(_ context.Context, key string, dst interface{}) (bool, error) {
	raw, ok := m.lru.Get(key)
	if !ok {
		record(m.name, "miss")
		return false, nil
	}
	if err := json.Unmarshal(raw, dst); err != nil {
		record(m.name, "error")
		m.lru.Remove(key)
		return false, fmt.Errorf("decode cached %s: %w", key, err)
	}
	record(m.name, "hit")
	return true, nil
}

func (m *Memory) Set(_ context.Context, key string, value interface{}) error {
	raw, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("encode cache entry %s: %w", key, err)
	}
	m.lru.Add(key, raw)
	return nil
}

func (m *Memory) Purge(context.Context) error {
	m.lru.Purge()
	return nil
}

func (m *Memory) Len() int {
	return m.lru.Len()
}

type Redis struct {
	name   string
	client redis.Cmdable
	ttl    time.Duration
}

func NewRedis(client redis.Cmdable, name string, ttl time.Duration) *Redis {
	return &Redis{name: name, client: client, ttl: ttl}
}

func (r *Redis) key(k string) string {
	return "jelita:" + r.name + ":" + k
}

func (r *Redis) Get(ctx context.Context, key string, dst interface{}) (bool, error) {
	raw, err := r.client.Get(ctx, r.key(key)).Bytes()
	if errors.Is(err, redis.Nil) {
		record(r.name, "miss")
		return false, nil
	}
	if err != nil {
		record(r.name, "error")
		return false, fmt.Errorf("redis get %s: %w", key, err)
	}
	if err := json.Unmarshal(raw, dst); err != nil {
		record(r.name, "error")
		return false, fmt.Errorf("decode cached %s: %w", key, err)
	}
	record(r.name, "hit")
	return true, nil
}

func (r *Redis) Set(ctx context.Context, key string, value interface{}) error {
	raw, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("encode cache entry %s: %w", key, err)
	}
	if err := r.client.Set(ctx, r.key(key), raw, r.ttl).Err(); err != nil {
		return fmt.Errorf("redis set %s: %w", key, err)
	}
	return nil
}

func (r *Redis) Purge(ctx context.Context) error {
	var cursor uint64
	pattern := r.key("*")
	for {
		keys, next, err := r.client.Scan(ctx, cursor, pattern, 100).Result()
		if err != nil {
			return fmt.Errorf("redis scan %s: %w", pattern, err)
		}
		if len(keys) > 0 {
			if err := r.client.Del(ctx, keys...).Err(); err != nil {
				return fmt.Errorf("redis del: %w", err)
			}
		}
		if next == 0 {
			return nil
		}
		cursor = next
	}
}

// Noop is used when caching is disabled.
type Noop struct{}

func (Noop) Get(context.Context, string, interface{}) (bool, error) { return false, nil }
func (Noop) Set(context.Context, string, interface{}) error { return nil }
func (Noop) Purge(context.Context) error { return nil }
