// internal/services/users/revocation.go
package users

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"
	"github.com/redis/go-redis/v9"
)

// Revocations remembers signed-out tokens until they would have expired anyway.
type Revocations interface {
	Revoke(ctx context.Context, token string, ttl time.Duration) error
	Revoked(ctx context.Context, token string) (bool, error)
}

// tokenKey never stores the raw token.
func tokenKey(token string) string {
	sum := sha256.Sum256([]byte(token))
	return "token:revoked:" + hex.EncodeToString(sum[:])
}

type RedisRevocations struct {
	client redis.Cmdable
}

func NewRedisRevocations(client redis.Cmdable) *RedisRevocations {
	return &RedisRevocations{client: client}
}

func (r *RedisRevocations) Revoke(ctx context.Context, token string, ttl time.Duration) error {
	if err := r.client.Set(ctx, tokenKey(token), "1", ttl).Err(); err != nil {
		return fmt.Errorf("failed to revoke token: %w", err)
	}
	return nil
}

func (r *RedisRevocations) Revoked(ctx context.Context, token string) (bool, error) {
	err := r.client.Get(ctx, tokenKey(token)).Err()
	if errors.Is(err, redis.Nil) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("failed to check token: %w", err)
	}
	return true, nil
}

// MemoryRevocations is the single-process fallback; every entry lives for the token TTL.
type MemoryRevocations struct {
	lru *expirable.LRU[string, struct{}]
}

func NewMemoryRevocations(size int, ttl time.Duration) *MemoryRevocations {
	if size <= 0 {
		size = 10000
	}
	return &MemoryRevocations{lru: expirable.NewLRU[string, struct{}](size, nil, ttl)}
}

func (m *MemoryRevocations) Revoke(_ context.Context, token string, _ time.Duration) error {
	m.lru.Add(tokenKey(token), struct{}{})
	return nil
}

func (m *MemoryRevocations) Revoked(_ context.Context, token string) (bool, error) {
	return m.lru.Contains(tokenKey(token)), nil
}
