package cache

import (
	"fleet-equipment-api/pkg/redis"
)

// NewCacheManager creates a new cache manager with the specified Redis client and configuration
func NewCacheManager(client redis.Provider, config CacheConfig) CacheManager {
	return NewRedisCacheManager(client, config)
}
