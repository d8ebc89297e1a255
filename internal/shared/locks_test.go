package shared

import (
	"context"
	"testing"
	"time"

	miniredis "github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"
)

func newTestRedis(t *testing.T) *redis.Client {
	t.Helper()
	mr := miniredis.RunT(t)
	return redis.NewClient(&redis.Options{Addr: mr.Addr()})
}

func TestLockAcquireRelease(t *testing.T) {
	client := newTestRedis(t)
	ctx := context.Background()

	lock := NewLock(client, VerifyLockKey(1), time.Minute)
	require.NoError(t, lock.Acquire(ctx))

	second := NewLock(client, VerifyLockKey(1), time.Minute)
	require.ErrorIs(t, second.Acquire(ctx), ErrLockHeld)

	require.NoError(t, lock.Release(ctx))
	require.NoError(t, second.Acquire(ctx))
}

func TestLockKeysAreScopedPerCompany(t *testing.T) {
	client := newTestRedis(t)
	ctx := context.Background()

	require.NoError(t, NewLock(client, BackfillLockKey(1), time.Minute).Acquire(ctx))
	require.NoError(t, NewLock(client, BackfillLockKey(2), time.Minute).Acquire(ctx))
	require.NotEqual(t, BackfillLockKey(1), VerifyLockKey(1))
}
