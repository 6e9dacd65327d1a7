package cache

import (
	"testing"

	"github.com/erp/marketsync/internal/infrastructure/config"
	"github.com/erp/marketsync/internal/infrastructure/persistence"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

var unreachableRedis = config.RedisConfig{Host: "127.0.0.1", Port: 1}

func TestStoreFactory_Memory(t *testing.T) {
	f := NewStoreFactory(config.CacheConfig{Backend: config.CacheBackendMemory}, unreachableRedis)

	store, err := f.CreateStore()
	require.NoError(t, err)
	assert.IsType(t, &MemoryStore{}, store)
}

func TestStoreFactory_RedisFallback(t *testing.T) {
	core, recorded := observer.New(zapcore.WarnLevel)

	f := NewStoreFactory(
		config.CacheConfig{Backend: config.CacheBackendRedis},
		unreachableRedis,
		WithLogger(zap.New(core)),
		WithInMemoryFallback(true),
	)

	store, err := f.CreateStore()
	require.NoError(t, err)
	assert.IsType(t, &MemoryStore{}, store)
	assert.Equal(t, 1, recorded.Len())
}

func TestStoreFactory_RedisNoFallback(t *testing.T) {
	f := NewStoreFactory(
		config.CacheConfig{Backend: config.CacheBackendRedis},
		unreachableRedis,
		WithInMemoryFallback(false),
	)

	_, err := f.CreateStore()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "redis key-value store unavailable")
}

func TestStoreFactory_Database(t *testing.T) {
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	require.NoError(t, err)

	f := NewStoreFactory(
		config.CacheConfig{Backend: config.CacheBackendDatabase},
		unreachableRedis,
		WithDatabase(db),
	)

	store, err := f.CreateStore()
	require.NoError(t, err)
	assert.IsType(t, &persistence.KVStore{}, store)
}

func TestStoreFactory_DatabaseWithoutConnection(t *testing.T) {
	f := NewStoreFactory(
		config.CacheConfig{Backend: config.CacheBackendDatabase},
		unreachableRedis,
		WithInMemoryFallback(false),
	)

	_, err := f.CreateStore()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no database connection")
}

func TestStoreFactory_UnknownBackend(t *testing.T) {
	f := NewStoreFactory(config.CacheConfig{Backend: "memcached"}, unreachableRedis)

	_, err := f.CreateStore()
	require.Error(t, err)
}
