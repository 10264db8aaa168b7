package cache

import (
	"context"
	"time"
)

// Store keeps rendered PDFs by key. A missing key yields (nil, nil).
type Store interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, val []byte, ttl time.Duration) error
	Close() error
}

// defaultTTL applies when the configured TTL is not positive.
const defaultTTL = time.Minute

func effectiveTTL(ttl time.Duration) time.Duration {
	if ttl <= 0 {
		return defaultTTL
	}
	return ttl
}
