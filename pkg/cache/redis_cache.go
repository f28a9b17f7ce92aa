package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"fleet-equipment-api/pkg/logger"
	"fleet-equipment-api/pkg/redis"

	goredis "github.com/redis/go-redis/v9"
)

// RedisCacheManager implements CacheManager using Redis
type RedisCacheManager struct {
	client redis.Provider
	config CacheConfig
	stats  *cacheStats
}

// cacheStats tracks cache performance metrics
type cacheStats struct {
	mu            sync.RWMutex
	totalHits     int64
	totalMisses   int64
	evictionCount int64
}

// NewRedisCacheManager creates a new Redis-backed cache manager
func NewRedisCacheManager(client redis.Provider, config CacheConfig) *RedisCacheManager {
	return &RedisCacheManager{
		client: client,
		config: config,
		stats:  &cacheStats{},
	}
}

// Get retrieves a JSON value from cache. A miss is not an error.
func (r *RedisCacheManager) Get(ctx context.Context, key string, dest interface{}) (bool, error) {
	data, err := r.client.GetClient().Get(ctx, r.buildKey(key)).Bytes()
	if err != nil {
		if errors.Is(err, goredis.Nil) {
			r.recordMiss()
			return false, nil
		}
		return false, fmt.Errorf("failed to get %s from cache: %w", key, err)
	}

	if err := json.Unmarshal(data, dest); err != nil {
		return false, fmt.Errorf("failed to unmarshal cached %s: %w", key, err)
	}

	r.recordHit()
	return true, nil
}

// Set stores a JSON value in cache and associates it with tags
func (r *RedisCacheManager) Set(ctx context.Context, key string, value interface{}, ttl time.Duration, tags ...string) error {
	data, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("failed to marshal %s: %w", key, err)
	}

	cacheKey := r.buildKey(key)
	if err := r.client.GetClient().Set(ctx, cacheKey, data, ttl).Err(); err != nil {
		return fmt.Errorf("failed to set %s in cache: %w", key, err)
	}

	if len(tags) > 0 {
		if err := r.tagKey(ctx, cacheKey, ttl, tags...); err != nil {
			logger.WithComponent("cache").WithError(err).WithField("key", key).Warn("failed to tag cache key")
		}
	}

	return nil
}

// Delete removes a key from cache
func (r *RedisCacheManager) Delete(ctx context.Context, key string) error {
	cacheKey := r.buildKey(key)
	if err := r.removeKeyTags(ctx, cacheKey); err != nil {
		logger.WithComponent("cache").WithError(err).WithField("key", key).Warn("failed to remove tags for key")
	}

	return r.client.GetClient().Del(ctx, cacheKey).Err()
}

// tagKey associates tags with a cache key for invalidation
func (r *RedisCacheManager) tagKey(ctx context.Context, cacheKey string, ttl time.Duration, tags ...string) error {
	pipe := r.client.GetClient().Pipeline()

	// Tags live longer than data
	tagTTL := ttl * 2

	keyTagsKey := r.buildTagKey("key_tags", cacheKey)
	pipe.SAdd(ctx, keyTagsKey, tags)
	pipe.Expire(ctx, keyTagsKey, tagTTL)

	for _, tag := range tags {
		tagKeysKey := r.buildTagKey("tag_keys", tag)
		pipe.SAdd(ctx, tagKeysKey, cacheKey)
		pipe.Expire(ctx, tagKeysKey, tagTTL)
	}

	_, err := pipe.Exec(ctx)
	return err
}

// InvalidateByTag removes all keys associated with a tag
func (r *RedisCacheManager) InvalidateByTag(ctx context.Context, tag string) error {
	tagKeysKey := r.buildTagKey("tag_keys", tag)

	keys, err := r.client.GetClient().SMembers(ctx, tagKeysKey).Result()
	if err != nil {
		return fmt.Errorf("failed to get keys for tag %s: %w", tag, err)
	}

	if len(keys) == 0 {
		return nil
	}

	pipe := r.client.GetClient().Pipeline()
	for _, key := range keys {
		pipe.Del(ctx, key)
		pipe.Del(ctx, r.buildTagKey("key_tags", key))
	}
	pipe.Del(ctx, tagKeysKey)

	if _, err = pipe.Exec(ctx); err != nil {
		return fmt.Errorf("failed to invalidate keys for tag %s: %w", tag, err)
	}

	r.stats.mu.Lock()
	r.stats.evictionCount += int64(len(keys))
	r.stats.mu.Unlock()

	return nil
}

// GetCacheStats returns cache performance statistics
func (r *RedisCacheManager) GetCacheStats(ctx context.Context) CacheStats {
	r.stats.mu.RLock()
	totalHits := r.stats.totalHits
	totalMisses := r.stats.totalMisses
	evictionCount := r.stats.evictionCount
	r.stats.mu.RUnlock()

	total := totalHits + totalMisses
	var hitRate, missRate float64
	if total > 0 {
		hitRate = float64(totalHits) / float64(total)
		missRate = float64(totalMisses) / float64(total)
	}

	keyCount := 0
	iter := r.client.GetClient().Scan(ctx, 0, r.config.KeyPrefix+"*", 100).Iterator()
	for iter.Next(ctx) {
		keyCount++
	}

	return CacheStats{
		HitRate:       hitRate,
		MissRate:      missRate,
		KeyCount:      keyCount,
		EvictionCount: int(evictionCount),
		TotalHits:     totalHits,
		TotalMisses:   totalMisses,
	}
}

// HealthCheck verifies cache connectivity
func (r *RedisCacheManager) HealthCheck(ctx context.Context) error {
	return r.client.GetClient().Ping(ctx).Err()
}

func (r *RedisCacheManager) buildKey(key string) string {
	return r.config.KeyPrefix + key
}

func (r *RedisCacheManager) buildTagKey(keyType, identifier string) string {
	return fmt.Sprintf("%s%s:%s", r.config.TagPrefix, keyType, identifier)
}

func (r *RedisCacheManager) recordHit() {
	r.stats.mu.Lock()
	r.stats.totalHits++
	r.stats.mu.Unlock()
}

func (r *RedisCacheManager) recordMiss() {
	r.stats.mu.Lock()
	r.stats.totalMisses++
	r.stats.mu.Unlock()
}

func (r *RedisCacheManager) removeKeyTags(ctx context.Context, cacheKey string) error {
	keyTagsKey := r.buildTagKey("key_tags", cacheKey)

	tags, err := r.client.GetClient().SMembers(ctx, keyTagsKey).Result()
	if err != nil {
		return err
	}

	pipe := r.client.GetClient().Pipeline()
	for _, tag := range tags {
		pipe.SRem(ctx, r.buildTagKey("tag_keys", tag), cacheKey)
	}
	pipe.Del(ctx, keyTagsKey)

	_, err = pipe.Exec(ctx)
	return err
}
