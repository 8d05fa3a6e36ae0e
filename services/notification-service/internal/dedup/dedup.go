// Package dedup remembers which notification envelopes were already delivered
// so redelivered outbox rows are acknowledged without notifying twice.
package dedup

import (
	"context"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
)

func key(id string) string { return "notify:seen:" + id }

// Redis claims ids with SETNX so every worker replica shares one record.
type Redis struct {
	rdb *redis.Client
	ttl time.Duration
}

func NewRedis(rdb *redis.Client, ttl time.Duration) *Redis {
	return &Redis{rdb: rdb, ttl: ttl}
}

// Claim reports whether id was unclaimed and is now held by the caller.
func (r *Redis) Claim(ctx context.Context, id string) (bool, error) {
	return r.rdb.SetNX(ctx, key(id), time.Now().UTC().Format(time.RFC3339), r.ttl).Result()
}

// Release drops a claim whose delivery failed.
func (r *Redis) Release(ctx context.Context, id string) error {
	return r.rdb.Del(ctx, key(id)).Err()
}

// Memory is the single-process fallback when no redis is configured.
type Memory struct {
	mu   sync.Mutex
	ttl  time.Duration
	now  func() time.Time
	seen map[string]time.Time // id -> expiry
}

func NewMemory(ttl time.Duration) *Memory {
	return &Memory{ttl: ttl, now: time.Now, seen: map[string]time.Time{}}
}

func (m *Memory) Claim(_ context.Context, id string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	now := m.now()
	for k, exp := range m.seen {
		if !now.Before(exp) {
			delete(m.seen, k)
		}
	}
	if _, ok := m.seen[id]; ok {
		return false, nil
	}
	m.seen[id] = now.Add(m.ttl)
	return true, nil
}

func (m *Memory) Release(_ context.Context, id string) error {
	m.mu.Lock()
	delete(m.seen, id)
	m.mu.Unlock()
	return nil
}
