package shared

import "context"

// Locker serializes work on a named resource, across process instances when
// backed by a shared store. Acquire waits up to the implementation's wait
// timeout and then fails with ErrLockNotObtained.
type Locker interface {
	Acquire(ctx context.Context, key string) (Lock, error)
}

// Lock is a held lock
type Lock interface {
	Release(ctx context.Context) error
}
