package cache

import (
	"fmt"

	"github.com/javila-dev/rojoz/internal/domain/shared"
	"github.com/javila-dev/rojoz/internal/infrastructure/config"
	"go.uber.org/zap"
)

// SettlementCacheFactory creates the Redis-backed settlement components
// (sale locker, idempotency store) and falls back to in-memory
// implementations when Redis is unavailable and fallback is allowed.
type SettlementCacheFactory struct {
	redisConfig           config.RedisConfig
	lockConfig            config.SaleLockConfig
	logger                *zap.Logger
	allowInMemoryFallback bool
}

// SettlementCacheFactoryOption is a functional option for configuring the factory
type SettlementCacheFactoryOption func(*SettlementCacheFactory)

// WithLogger sets the logger for the factory
func WithLogger(logger *zap.Logger) SettlementCacheFactoryOption {
	return func(f *SettlementCacheFactory) {
		f.logger = logger
	}
}

// WithInMemoryFallback controls whether to fall back to in-memory
// implementations when Redis is unavailable. Default is true.
func WithInMemoryFallback(allow bool) SettlementCacheFactoryOption {
	return func(f *SettlementCacheFactory) {
		f.allowInMemoryFallback = allow
	}
}

// NewSettlementCacheFactory creates a new factory
func NewSettlementCacheFactory(redisCfg config.RedisConfig, lockCfg config.SaleLockConfig, opts ...SettlementCacheFactoryOption) *SettlementCacheFactory {
	f := &SettlementCacheFactory{
		redisConfig:           redisCfg,
		lockConfig:            lockCfg,
		logger:                zap.NewNop(),
		allowInMemoryFallback: true,
	}

	for _, opt := range opts {
		opt(f)
	}

	return f
}

func (f *SettlementCacheFactory) redisConnConfig() RedisConfig {
	return RedisConfig{
		Host:     f.redisConfig.Host,
		Port:     f.redisConfig.Port,
		Password: f.redisConfig.Password,
		DB:       f.redisConfig.DB,
	}
}

// CreateSaleLocker creates a sale locker, Redis first. In-memory fallback
// cannot serialize settlement operations across instances, so multi-instance
// deployments must disable the fallback.
func (f *SettlementCacheFactory) CreateSaleLocker() (shared.SaleLocker, error) {
	locker, err := NewRedisSaleLocker(f.redisConnConfig(), f.lockConfig, f.logger)
	if err == nil {
		f.logger.Info("using Redis sale locker")
		return locker, nil
	}

	if !f.allowInMemoryFallback {
		return nil, fmt.Errorf("Redis required for sale locking but unavailable: %w", err)
	}

	f.logger.Warn("Redis unavailable, falling back to in-memory sale locker. "+
		"Settlement operations will not be serialized across instances.",
		zap.Error(err),
	)
	return NewInMemorySaleLocker(f.lockConfig), nil
}

// CreateIdempotencyStore creates an idempotency store, Redis first
func (f *SettlementCacheFactory) CreateIdempotencyStore() (shared.IdempotencyStore, error) {
	store, err := NewRedisIdempotencyStore(f.redisConnConfig())
	if err == nil {
		f.logger.Info("using Redis idempotency store")
		return store, nil
	}

	if !f.allowInMemoryFallback {
		return nil, fmt.Errorf("Redis required for idempotency but unavailable: %w", err)
	}

	f.logger.Warn("Redis unavailable, falling back to in-memory idempotency store. "+
		"This may cause duplicate event processing in distributed deployments.",
		zap.Error(err),
	)
	return NewInMemoryIdempotencyStore(), nil
}
