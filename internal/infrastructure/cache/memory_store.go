package cache

import (
	"context"

	gocache "github.com/patrickmn/go-cache"
)

// MemoryStore implements pricing.KeyValueStore in process memory.
// Its contents are lost on restart and are not shared between instances.
type MemoryStore struct {
	items *gocache.Cache
}

// NewMemoryStore creates an empty in-memory store whose entries never expire
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		items: gocache.New(gocache.NoExpiration, 0),
	}
}

// Get returns the value under key; found is false on a miss
func (s *MemoryStore) Get(_ context.Context, key string) (string, bool, error) {
	v, ok := s.items.Get(key)
	if !ok {
		return "", false, nil
	}
	str, ok := v.(string)
	return str, ok, nil
}

// Set stores value under key
func (s *MemoryStore) Set(_ context.Context, key, value string) error {
	s.items.Set(key, value, gocache.NoExpiration)
	return nil
}

// Len returns the number of stored entries
func (s *MemoryStore) Len() int {
	return s.items.ItemCount()
}
