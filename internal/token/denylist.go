package token

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
)

// Denylist remembers revoked token ids until the tokens would have expired
// on their own.
type Denylist interface {
	Revoke(ctx context.Context, id string, until time.Time) error
	Revoked(ctx context.Context, id string) (bool, error)
}

type MemoryDenylist struct {
	mu      sync.Mutex
	revoked map[string]time.Time
	now     func() time.Time
}

// NewMemoryDenylist keeps revocations in process. now may be nil.
func NewMemoryDenylist(now func() time.Time) *MemoryDenylist {
	if now == nil {
		now = time.Now
	}
	return &MemoryDenylist{revoked: make(map[string]time.Time), now: now}
}

func (d *MemoryDenylist) Revoke(ctx context.Context, id string, until time.Time) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	now := d.now()
	for key, exp := range d.revoked {
		if !now.Before(exp) {
			delete(d.revoked, key)
		}
	}
	if until.After(now) {
		d.revoked[id] = until
	}
	return nil
}

func (d *MemoryDenylist) Revoked(ctx context.Context, id string) (bool, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	exp, ok := d.revoked[id]
	return ok && d.now().Before(exp), nil
}

// RedisDenylist shares revocations between API replicas. Keys expire with
// the token, so the set never outgrows the live tokens.
type RedisDenylist struct {
	rdb    *redis.Client
	prefix string
}

func NewRedisDenylist(rdb *redis.Client) *RedisDenylist {
	return &RedisDenylist{rdb: rdb, prefix: "cafepanel:revoked:"}
}

func (d *RedisDenylist) Revoke(ctx context.Context, id string, until time.Time) error {
	ttl := time.Until(until)
	if ttl <= 0 {
		return nil
	}
	if err := d.rdb.Set(ctx, d.prefix+id, 1, ttl).Err(); err != nil {
		return fmt.Errorf("revoke token: %w", err)
	}
	return nil
}

func (d *RedisDenylist) Revoked(ctx context.Context, id string) (bool, error) {
	n, err := d.rdb.Exists(ctx, d.prefix+id).Result()
	if err != nil {
		return false, fmt.Errorf("check revocation: %w", err)
	}
	return n > 0, nil
}
