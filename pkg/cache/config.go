package cache

import (
	"fmt"
	"time"
)

// Tags shared by the services that read and invalidate cached data.
const (
	TagAlerts = "alerts"
)

// CacheConfig holds configuration for cache TTL values and key layout
type CacheConfig struct {
	SourceTTL time.Duration `json:"sourceTTL"` // alert source lookups
	StatsTTL  time.Duration `json:"statsTTL"`  // alert statistics
	KeyPrefix string        `json:"keyPrefix"` // prefix for all cache keys
	TagPrefix string        `json:"tagPrefix"` // prefix for tag keys
}

// DefaultCacheConfig returns default cache configuration
func DefaultCacheConfig() CacheConfig {
	return CacheConfig{
		SourceTTL: 5 * time.Minute,
		StatsTTL:  30 * time.Second,
		KeyPrefix: "fleet:",
		TagPrefix: "tag:",
	}
}

// GetTTLForDataType returns appropriate TTL based on data type
func (c CacheConfig) GetTTLForDataType(dataType string) time.Duration {
	switch dataType {
	case "source":
		return c.SourceTTL
	case "alert_stats":
		return c.StatsTTL
	default:
		return c.StatsTTL
	}
}

// SourceKey is the cache key holding the lookup result for one source entity.
func SourceKey(collection, id string) string {
	return fmt.Sprintf("source:%s:%s", collection, id)
}

// SourceTag groups every cached value derived from one source entity.
func SourceTag(collection, id string) string {
	return fmt.Sprintf("%s:%s", collection, id)
}
