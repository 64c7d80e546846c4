package lock

import (
	"context"
	"fmt"
	"time"

	"github.com/prepacking/backend/internal/domain/shared"
	"github.com/prepacking/backend/internal/infrastructure/config"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// Factory creates the locker selected by configuration
type Factory struct {
	lockConfig            config.LockConfig
	redisConfig           config.RedisConfig
	logger                *zap.Logger
	allowInMemoryFallback bool
}

// FactoryOption is a functional option for configuring the factory
type FactoryOption func(*Factory)

// WithLogger sets the logger for the factory
func WithLogger(logger *zap.Logger) FactoryOption {
	return func(f *Factory) {
		f.logger = logger
	}
}

// WithInMemoryFallback controls whether to fall back to the in-process locker when Redis is unavailable
func WithInMemoryFallback(allow bool) FactoryOption {
	return func(f *Factory) {
		f.allowInMemoryFallback = allow
	}
}

// NewFactory creates a new locker factory
func NewFactory(lockCfg config.LockConfig, redisCfg config.RedisConfig, opts ...FactoryOption) *Factory {
	f := &Factory{
		lockConfig:  lockCfg,
		redisConfig: redisCfg,
		logger:      zap.NewNop(),
	}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

func (f *Factory) options() Options {
	return Options{
		TTL:           f.lockConfig.TTL,
		RetryInterval: f.lockConfig.RetryInterval,
		WaitTimeout:   f.lockConfig.WaitTimeout,
	}
}

// CreateLocker returns the configured locker. With the redis backend it pings
// the server first and, when allowed, falls back to the in-process locker.
// The returned close function releases the Redis connection, if any.
func (f *Factory) CreateLocker(ctx context.Context) (shared.Locker, func() error, error) {
	if f.lockConfig.Backend == "memory" {
		f.logger.Info("using in-process prepack lock")
		return NewMemoryLocker(f.options()), func() error { return nil }, nil
	}

	client := redis.NewClient(&redis.Options{
		Addr:     f.redisConfig.Addr(),
		Password: f.redisConfig.Password,
		DB:       f.redisConfig.DB,
	})

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		_ = client.Close()
		if !f.allowInMemoryFallback {
			return nil, nil, fmt.Errorf("redis required for prepack lock but unavailable: %w", err)
		}
		f.logger.Warn("Redis unavailable, falling back to in-process prepack lock. "+
			"Concurrent authorizations on other instances are not serialized.",
			zap.Error(err),
		)
		return NewMemoryLocker(f.options()), func() error { return nil }, nil
	}

	f.logger.Info("using Redis prepack lock", zap.String("addr", f.redisConfig.Addr()))
	return NewRedisLocker(client, f.options()), client.Close, nil
}
