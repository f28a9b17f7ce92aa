package cache

import (
	"context"
	"time"
)

// CacheManager defines the interface for caching operations
type CacheManager interface {
	// Get decodes the value stored under key into dest and reports whether
	// the key was present.
	Get(ctx context.Context, key string, dest interface{}) (bool, error)
	Set(ctx context.Context, key string, value interface{}, ttl time.Duration, tags ...string) error
	Delete(ctx context.Context, key string) error

	// Tag operations for invalidation of related keys
	InvalidateByTag(ctx context.Context, tag string) error

	// Statistics and health
	GetCacheStats(ctx context.Context) CacheStats
	HealthCheck(ctx context.Context) error
}

// CacheStats provides cache performance metrics
type CacheStats struct {
	HitRate       float64 `json:"hitRate"`
	MissRate      float64 `json:"missRate"`
	KeyCount      int     `json:"keyCount"`
	EvictionCount int     `json:"evictionCount"`
	TotalHits     int64   `json:"totalHits"`
	TotalMisses   int64   `json:"totalMisses"`
}
