package idempotency

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newStore(t *testing.T, ttl time.Duration) (*Store, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })
	return NewStore(rdb, ttl), mr
}

func TestSeen(t *testing.T) {
	s, _ := newStore(t, time.Minute)
	ctx := context.Background()
	key := s.Key("stripe", "evt_1")
	assert.Equal(t, "idem:stripe:evt_1", key)

	seen, err := s.Seen(ctx, key)
	require.NoError(t, err)
	assert.False(t, seen)

	seen, err = s.Seen(ctx, key)
	require.NoError(t, err)
	assert.True(t, seen)
}

func TestSeenExpires(t *testing.T) {
	s, mr := newStore(t, time.Minute)
	ctx := context.Background()
	key := s.Key("order.events", "42")

	_, err := s.Seen(ctx, key)
	require.NoError(t, err)
	mr.FastForward(2 * time.Minute)

	seen, err := s.Seen(ctx, key)
	require.NoError(t, err)
	assert.False(t, seen)
}

func TestRelease(t *testing.T) {
	s, _ := newStore(t, time.Minute)
	ctx := context.Background()
	key := s.Key("stripe", "evt_2")

	_, err := s.Seen(ctx, key)
	require.NoError(t, err)
	require.NoError(t, s.Release(ctx, key))

	seen, err := s.Seen(ctx, key)
	require.NoError(t, err)
	assert.False(t, seen)
}

func TestSeenSurfacesRedisErrors(t *testing.T) {
	s, mr := newStore(t, time.Minute)
	mr.Close()
	_, err := s.Seen(context.Background(), "k")
	assert.Error(t, err)
}

func TestDoneOnlyAfterMark(t *testing.T) {
	s, mr := newStore(t, time.Minute)
	ctx := context.Background()
	key := s.Key("order.events", "7")

	done, err := s.Done(ctx, key)
	require.NoError(t, err)
	assert.False(t, done)
	done, err = s.Done(ctx, key)
	require.NoError(t, err)
	assert.False(t, done)

	require.NoError(t, s.Mark(ctx, key))
	done, err = s.Done(ctx, key)
	require.NoError(t, err)
	assert.True(t, done)

	mr.FastForward(2 * time.Minute)
	done, err = s.Done(ctx, key)
	require.NoError(t, err)
	assert.False(t, done)
}
