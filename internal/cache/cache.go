package cache

import (
	"crypto/sha256"
	"encoding/hex"
	"time"

	"github.com/oplego/lexharvest/internal/model"
)

// Cache defines the interface for caching fetched pages
type Cache interface {
	Get(key string) ([]byte, bool)
	Set(key string, value []byte, ttl time.Duration) error
	Delete(key string) error
	Clear() error
}

// CacheKey generates a cache key from a URL
func CacheKey(url string) string {
	hash := sha256.Sum256([]byte(url))
	return "lexharvest:v1:" + hex.EncodeToString(hash[:])
}

// New builds the page cache described by cfg. A configured directory adds a
// disk layer behind the in-memory one. Returns nil when caching is disabled.
func New(cfg model.CacheConfig) Cache {
	if !cfg.Enabled || cfg.TTL <= 0 {
		return nil
	}
	if cfg.Dir == "" {
		return NewMemoryCache(cfg.TTL, 10*time.Minute)
	}
	return NewLayeredCache(cfg.TTL, cfg.Dir, cfg.TTL)
}
