package cache

import (
	"fmt"

	"github.com/erp/marketsync/internal/domain/pricing"
	"github.com/erp/marketsync/internal/infrastructure/config"
	"github.com/erp/marketsync/internal/infrastructure/persistence"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// StoreFactory creates the key-value store selected by configuration
type StoreFactory struct {
	cacheConfig           config.CacheConfig
	redisConfig           config.RedisConfig
	db                    *gorm.DB
	logger                *zap.Logger
	allowInMemoryFallback bool
}

// StoreFactoryOption is a functional option for configuring the factory
type StoreFactoryOption func(*StoreFactory)

// WithLogger sets the logger for the factory
func WithLogger(logger *zap.Logger) StoreFactoryOption {
	return func(f *StoreFactory) {
		f.logger = logger
	}
}

// WithInMemoryFallback controls whether an unreachable backend degrades to memory
func WithInMemoryFallback(allow bool) StoreFactoryOption {
	return func(f *StoreFactory) {
		f.allowInMemoryFallback = allow
	}
}

// WithDatabase provides the connection used by the database backend
func WithDatabase(db *gorm.DB) StoreFactoryOption {
	return func(f *StoreFactory) {
		f.db = db
	}
}

// NewStoreFactory creates a new factory
func NewStoreFactory(cacheCfg config.CacheConfig, redisCfg config.RedisConfig, opts ...StoreFactoryOption) *StoreFactory {
	f := &StoreFactory{
		cacheConfig:           cacheCfg,
		redisConfig:           redisCfg,
		logger:                zap.NewNop(),
		allowInMemoryFallback: cacheCfg.AllowInMemoryFallback,
	}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

// CreateStore creates the configured store, falling back to memory when the
// backend is unreachable and fallback is allowed
func (f *StoreFactory) CreateStore() (pricing.KeyValueStore, error) {
	var (
		store pricing.KeyValueStore
		err   error
	)

	switch f.cacheConfig.Backend {
	case config.CacheBackendMemory:
		f.logger.Info("using in-memory key-value store")
		return NewMemoryStore(), nil
	case config.CacheBackendDatabase:
		store, err = f.createDatabaseStore()
	case config.CacheBackendRedis, "":
		store, err = NewRedisStore(RedisConfig{
			Addr:     f.redisConfig.Addr(),
			Password: f.redisConfig.Password,
			DB:       f.redisConfig.DB,
		}, f.cacheConfig.KeyPrefix)
	default:
		return nil, fmt.Errorf("unknown cache backend %q", f.cacheConfig.Backend)
	}

	if err == nil {
		f.logger.Info("using key-value store", zap.String("backend", f.cacheConfig.Backend))
		return store, nil
	}

	if !f.allowInMemoryFallback {
		return nil, fmt.Errorf("%s key-value store unavailable: %w", f.cacheConfig.Backend, err)
	}

	f.logger.Warn("key-value backend unavailable, falling back to in-memory store. "+
		"Cached commissions will not be shared between instances.",
		zap.String("backend", f.cacheConfig.Backend),
		zap.Error(err),
	)
	return NewMemoryStore(), nil
}

func (f *StoreFactory) createDatabaseStore() (pricing.KeyValueStore, error) {
	if f.db == nil {
		return nil, fmt.Errorf("database backend selected but no database connection configured")
	}
	store := persistence.NewKVStore(f.db)
	if err := store.Migrate(); err != nil {
		return nil, err
	}
	return store, nil
}
