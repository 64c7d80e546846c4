package lock

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/prepacking/backend/internal/domain/shared"
)

// MemoryLocker implements shared.Locker within one process.
// It does not serialize across instances.
type MemoryLocker struct {
	mu   sync.Mutex
	held map[string]chan struct{}
	opts Options
}

// NewMemoryLocker creates an in-process locker
func NewMemoryLocker(opts Options) *MemoryLocker {
	return &MemoryLocker{
		held: make(map[string]chan struct{}),
		opts: opts.withDefaults(),
	}
}

// Acquire blocks until the key is free, the context ends or WaitTimeout elapses
func (l *MemoryLocker) Acquire(ctx context.Context, key string) (shared.Lock, error) {
	timer := time.NewTimer(l.opts.WaitTimeout)
	defer timer.Stop()

	for {
		l.mu.Lock()
		released, busy := l.held[key]
		if !busy {
			done := make(chan struct{})
			l.held[key] = done
			l.mu.Unlock()
			return &memoryLock{owner: l, key: key, done: done}, nil
		}
		l.mu.Unlock()

		select {
		case <-released:
		case <-ctx.Done():
			return nil, fmt.Errorf("%w: %s: %v", shared.ErrLockNotObtained, key, ctx.Err())
		case <-timer.C:
			return nil, fmt.Errorf("%w: %s", shared.ErrLockNotObtained, key)
		}
	}
}

// Held reports whether a key is currently locked
func (l *MemoryLocker) Held(key string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	_, ok := l.held[key]
	return ok
}

type memoryLock struct {
	owner *MemoryLocker
	key   string
	done  chan struct{}
	once  sync.Once
}

// Release frees the lock; releasing twice is a no-op
func (l *memoryLock) Release(context.Context) error {
	l.once.Do(func() {
		l.owner.mu.Lock()
		if l.owner.held[l.key] == l.done {
			delete(l.owner.held, l.key)
		}
		l.owner.mu.Unlock()
		close(l.done)
	})
	return nil
}
