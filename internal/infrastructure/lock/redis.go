// Package lock provides shared.Locker implementations: a Redis lock for
// multi-instance deployments and an in-process lock for single instances and tests.
package lock

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/bsm/redislock"
	"github.com/prepacking/backend/internal/domain/shared"
	"github.com/redis/go-redis/v9"
)

// Options tune how long a lock is held and how long Acquire waits for it
type Options struct {
	TTL           time.Duration
	RetryInterval time.Duration
	WaitTimeout   time.Duration
	KeyPrefix     string
}

func (o Options) withDefaults() Options {
	if o.TTL <= 0 {
		o.TTL = 30 * time.Second
	}
	if o.RetryInterval <= 0 {
		o.RetryInterval = 100 * time.Millisecond
	}
	if o.WaitTimeout <= 0 {
		o.WaitTimeout = 10 * time.Second
	}
	if o.KeyPrefix == "" {
		o.KeyPrefix = "prepacking:lock:"
	}
	return o
}

// RedisLocker implements shared.Locker with bsm/redislock
type RedisLocker struct {
	client *redislock.Client
	opts   Options
}

// NewRedisLocker creates a RedisLocker over an existing go-redis client
func NewRedisLocker(client *redis.Client, opts Options) *RedisLocker {
	return &RedisLocker{
		client: redislock.New(client),
		opts:   opts.withDefaults(),
	}
}

// Acquire obtains the lock, retrying every RetryInterval until WaitTimeout elapses
func (l *RedisLocker) Acquire(ctx context.Context, key string) (shared.Lock, error) {
	ctx, cancel := context.WithTimeout(ctx, l.opts.WaitTimeout)
	defer cancel()

	lock, err := l.client.Obtain(ctx, l.opts.KeyPrefix+key, l.opts.TTL, &redislock.Options{
		RetryStrategy: redislock.LinearBackoff(l.opts.RetryInterval),
	})
	if errors.Is(err, redislock.ErrNotObtained) || errors.Is(err, context.DeadlineExceeded) {
		return nil, fmt.Errorf("%w: %s", shared.ErrLockNotObtained, key)
	}
	if err != nil {
		return nil, fmt.Errorf("obtain lock %s: %w", key, err)
	}
	return &redisLock{lock: lock}, nil
}

type redisLock struct {
	lock *redislock.Lock
}

// Release frees the lock; releasing an expired lock is not an error
func (l *redisLock) Release(ctx context.Context) error {
	err := l.lock.Release(ctx)
	if errors.Is(err, redislock.ErrLockNotHeld) {
		return nil
	}
	return err
}
