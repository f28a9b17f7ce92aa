package repository

import (
	"context"
	"fmt"
	"time"

	"fleet-equipment-api/internal/models"
	"fleet-equipment-api/pkg/cache"
	"fleet-equipment-api/pkg/logger"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

type sourceEntry struct {
	Exists bool `json:"exists"`
}

// SourceLookup answers whether the entity behind a source reference exists.
// Answers are cached when a cache is configured.
type SourceLookup struct {
	db    *mongo.Database
	cache cache.CacheManager
	ttl   time.Duration
}

// NewSourceLookup builds a lookup; cacheManager may be nil.
func NewSourceLookup(db *mongo.Database, cacheManager cache.CacheManager, ttl time.Duration) *SourceLookup {
	return &SourceLookup{db: db, cache: cacheManager, ttl: ttl}
}

// Exists reports whether the referenced entity is stored. Manual sources
// always exist.
func (l *SourceLookup) Exists(ctx context.Context, source models.SourceRef) (bool, error) {
	collection := source.Type().Collection()
	if collection == "" {
		return true, nil
	}
	id := source.EntityID().Hex()
	key := cache.SourceKey(collection, id)

	if l.cache != nil {
		var entry sourceEntry
		found, err := l.cache.Get(ctx, key, &entry)
		if err != nil {
			logger.WithComponent("source-lookup").WithError(err).Warn("cache read failed")
		} else if found {
			return entry.Exists, nil
		}
	}

	lookupCtx, cancel := context.WithTimeout(ctx, opTimeout)
	defer cancel()

	count, err := l.db.Collection(collection).CountDocuments(lookupCtx, bson.M{"_id": source.EntityID()}, options.Count().SetLimit(1))
	if err != nil {
		return false, fmt.Errorf("lookup %s %s: %w", source.Type(), id, err)
	}
	exists := count > 0

	if l.cache != nil {
		if err := l.cache.Set(ctx, key, sourceEntry{Exists: exists}, l.ttl, cache.SourceTag(collection, id)); err != nil {
			logger.WithComponent("source-lookup").WithError(err).Warn("cache write failed")
		}
	}

	return exists, nil
}

// Invalidate drops the cached answer for one entity of collection.
func (l *SourceLookup) Invalidate(ctx context.Context, collection, id string) error {
	if l.cache == nil {
		return nil
	}
	return l.cache.InvalidateByTag(ctx, cache.SourceTag(collection, id))
}
