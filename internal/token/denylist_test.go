package token

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryDenylist(t *testing.T) {
	now := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)
	d := NewMemoryDenylist(func() time.Time { return now })
	ctx := context.Background()

	require.NoError(t, d.Revoke(ctx, "a", now.Add(time.Minute)))
	require.NoError(t, d.Revoke(ctx, "stale", now.Add(-time.Minute)))

	revoked, err := d.Revoked(ctx, "a")
	require.NoError(t, err)
	assert.True(t, revoked)

	revoked, _ = d.Revoked(ctx, "stale")
	assert.False(t, revoked)

	now = now.Add(2 * time.Minute)
	revoked, _ = d.Revoked(ctx, "a")
	assert.False(t, revoked)
}

func TestRedisDenylist(t *testing.T) {
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })

	d := NewRedisDenylist(rdb)
	ctx := context.Background()

	require.NoError(t, d.Revoke(ctx, "jti-1", time.Now().Add(time.Hour)))
	revoked, err := d.Revoked(ctx, "jti-1")
	require.NoError(t, err)
	assert.True(t, revoked)

	mr.FastForward(2 * time.Hour)
	revoked, err = d.Revoked(ctx, "jti-1")
	require.NoError(t, err)
	assert.False(t, revoked)

	revoked, err = d.Revoked(ctx, "other")
	require.NoError(t, err)
	assert.False(t, revoked)
}
