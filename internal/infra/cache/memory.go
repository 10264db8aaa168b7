package cache

import (
	"context"
	"time"

	memoryStorage "github.com/gofiber/storage/memory/v2"
)

// MemoryStore keeps PDFs in process memory. Entries are dropped on restart.
type MemoryStore struct {
	storage *memoryStorage.Storage
}

// NewMemoryStore creates a MemoryStore that sweeps expired entries every gcInterval.
func NewMemoryStore(gcInterval time.Duration) *MemoryStore {
	if gcInterval <= 0 {
		gcInterval = 10 * time.Second
	}
	return &MemoryStore{storage: memoryStorage.New(memoryStorage.Config{GCInterval: gcInterval})}
}

// Get returns the cached bytes for key.
func (s *MemoryStore) Get(_ context.Context, key string) ([]byte, error) {
	return s.storage.Get(key)
}

// Set stores val under key for ttl.
func (s *MemoryStore) Set(_ context.Context, key string, val []byte, ttl time.Duration) error {
	return s.storage.Set(key, val, effectiveTTL(ttl))
}

// Close stops the sweeper.
func (s *MemoryStore) Close() error {
	return s.storage.Close()
}
