package persistence

import (
	"context"
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// CacheEntry is one row of the key-value table backing the database cache backend
type CacheEntry struct {
	Key       string `gorm:"primaryKey;size:255"`
	Value     string `gorm:"type:text;not null"`
	UpdatedAt time.Time
}

// TableName returns the table name for GORM
func (CacheEntry) TableName() string {
	return "cache_entries"
}

// KVStore implements pricing.KeyValueStore on a relational table
type KVStore struct {
	db *gorm.DB
}

// NewKVStore creates a new key-value store over db
func NewKVStore(db *gorm.DB) *KVStore {
	return &KVStore{db: db}
}

// Migrate creates the backing table when it does not exist
func (s *KVStore) Migrate() error {
	if err := s.db.AutoMigrate(&CacheEntry{}); err != nil {
		return fmt.Errorf("failed to migrate cache_entries: %w", err)
	}
	return nil
}

// Get returns the value under key; found is false on a miss
func (s *KVStore) Get(ctx context.Context, key string) (string, bool, error) {
	var entry CacheEntry
	err := s.db.WithContext(ctx).Where("key = ?", key).First(&entry).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("failed to read %q: %w", key, err)
	}
	return entry.Value, true, nil
}

// Set upserts value under key
func (s *KVStore) Set(ctx context.Context, key, value string) error {
	entry := CacheEntry{Key: key, Value: value, UpdatedAt: time.Now()}
	err := s.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "key"}},
		DoUpdates: clause.AssignmentColumns([]string{"value", "updated_at"}),
	}).Create(&entry).Error
	if err != nil {
		return fmt.Errorf("failed to write %q: %w", key, err)
	}
	return nil
}
