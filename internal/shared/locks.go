package shared

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// ErrLockHeld indicates another process holds the lock.
var ErrLockHeld = errors.New("lock already held")

// BackfillLockKey builds the redis key serialising stock backfill runs.
func BackfillLockKey(companyID int64) string {
	return fmt.Sprintf("inventory:backfill:%d:lock", companyID)
}

// VerifyLockKey builds the redis key serialising integrity scans.
func VerifyLockKey(companyID int64) string {
	return fmt.Sprintf("verify:company:%d:lock", companyID)
}

// Lock is a best-effort redis mutex for long-running batch work.
type Lock struct {
	client *redis.Client
	key    string
	ttl    time.Duration
}

// NewLock constructs a lock with the given key and TTL.
func NewLock(client *redis.Client, key string, ttl time.Duration) *Lock {
	return &Lock{client: client, key: key, ttl: ttl}
}

// Acquire takes the lock or returns ErrLockHeld.
func (l *Lock) Acquire(ctx context.Context) error {
	if l == nil || l.client == nil {
		return errors.New("lock not configured")
	}
	ok, err := l.client.SetNX(ctx, l.key, "1", l.ttl).Result()
	if err != nil {
		return err
	}
	if !ok {
		return ErrLockHeld
	}
	return nil
}

// Release frees the lock.
func (l *Lock) Release(ctx context.Context) error {
	if l == nil || l.client == nil {
		return nil
	}
	return l.client.Del(ctx, l.key).Err()
}
