package lock

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/prepacking/backend/internal/infrastructure/config"
)

// unreachableRedis points at a port nothing listens on
var unreachableRedis = config.RedisConfig{Host: "127.0.0.1", Port: 1}

func TestFactory_MemoryBackend(t *testing.T) {
	f := NewFactory(config.LockConfig{Backend: "memory"}, unreachableRedis)

	locker, closeFn, err := f.CreateLocker(context.Background())
	require.NoError(t, err)
	assert.IsType(t, &MemoryLocker{}, locker)
	assert.NoError(t, closeFn())
}

func TestFactory_FallsBackWhenRedisUnavailable(t *testing.T) {
	f := NewFactory(config.LockConfig{Backend: "redis", WaitTimeout: time.Second}, unreachableRedis,
		WithInMemoryFallback(true))

	locker, closeFn, err := f.CreateLocker(context.Background())
	require.NoError(t, err)
	assert.IsType(t, &MemoryLocker{}, locker)
	assert.NoError(t, closeFn())
}

func TestFactory_FailsWithoutFallback(t *testing.T) {
	f := NewFactory(config.LockConfig{Backend: "redis"}, unreachableRedis, WithInMemoryFallback(false))

	_, _, err := f.CreateLocker(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "redis required")
}
