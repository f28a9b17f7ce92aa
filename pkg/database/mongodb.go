package database

import (
	"context"
	"fmt"
	"time"

	"fleet-equipment-api/pkg/logger"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/x/mongo/driver/connstring"
)

// DefaultDatabase is used when the connection string names no database.
const DefaultDatabase = "fleet_management"

// Connect establishes a connection to MongoDB
func Connect(ctx context.Context, mongoURI string) (*mongo.Database, error) {
	log := logger.WithComponent("mongodb")

	// Parse the URI to extract database name
	cs, err := connstring.ParseAndValidate(mongoURI)
	if err != nil {
		return nil, fmt.Errorf("invalid MongoDB URI: %w", err)
	}

	clientOptions := options.Client().ApplyURI(mongoURI)

	ctx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	client, err := mongo.Connect(ctx, clientOptions)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to MongoDB: %w", err)
	}

	if err := client.Ping(ctx, nil); err != nil {
		return nil, fmt.Errorf("failed to ping MongoDB: %w", err)
	}

	dbName := DatabaseName(cs)
	log.WithField("database", dbName).Info("connected to MongoDB")

	db := client.Database(dbName)

	if err := createIndexes(ctx, db); err != nil {
		log.WithError(err).Warn("failed to create indexes")
	}

	return db, nil
}

// DatabaseName returns the database named in the connection string, or the
// default one.
func DatabaseName(cs *connstring.ConnString) string {
	if cs == nil || cs.Database == "" {
		return DefaultDatabase
	}
	return cs.Database
}

// AlertIndexes are the secondary indexes of the alerts collection.
func AlertIndexes() []mongo.IndexModel {
	return []mongo.IndexModel{
		{Keys: bson.D{{Key: "status", Value: 1}}},
		{Keys: bson.D{{Key: "type", Value: 1}}},
		{Keys: bson.D{{Key: "priority", Value: 1}}},
		{Keys: bson.D{{Key: "dueDate", Value: 1}}},
		{Keys: bson.D{{Key: "createdBy", Value: 1}}},
		{Keys: bson.D{{Key: "sourceType", Value: 1}, {Key: "sourceId", Value: 1}}},
		{Keys: bson.D{{Key: "createdAt", Value: -1}}},
	}
}

// CollectionIndexes lists the indexes created at startup per collection.
func CollectionIndexes() map[string][]mongo.IndexModel {
	return map[string][]mongo.IndexModel{
		"users": {
			{Keys: bson.D{{Key: "username", Value: 1}}, Options: options.Index().SetUnique(true)},
			{Keys: bson.D{{Key: "email", Value: 1}}, Options: options.Index().SetUnique(true)},
			{Keys: bson.D{{Key: "role", Value: 1}}},
		},
		"vehicles": {
			{Keys: bson.D{{Key: "plateNumber", Value: 1}}, Options: options.Index().SetUnique(true)},
			{Keys: bson.D{{Key: "status", Value: 1}}},
			{Keys: bson.D{{Key: "createdAt", Value: -1}}},
		},
		"machinery": {
			{Keys: bson.D{{Key: "status", Value: 1}}},
			{Keys: bson.D{{Key: "createdAt", Value: -1}}},
		},
		"tools": {
			{Keys: bson.D{{Key: "code", Value: 1}}, Options: options.Index().SetUnique(true)},
			{Keys: bson.D{{Key: "status", Value: 1}}},
		},
		"parts": {
			{Keys: bson.D{{Key: "partNumber", Value: 1}}, Options: options.Index().SetUnique(true)},
		},
		"rentals": {
			{Keys: bson.D{{Key: "paymentStatus", Value: 1}, {Key: "paymentDueDate", Value: 1}}},
		},
		"alerts": AlertIndexes(),
	}
}

// createIndexes creates necessary indexes for all collections
func createIndexes(ctx context.Context, db *mongo.Database) error {
	log := logger.WithComponent("mongodb")
	failed := 0

	for collection, indexes := range CollectionIndexes() {
		if _, err := db.Collection(collection).Indexes().CreateMany(ctx, indexes); err != nil {
			log.WithError(err).WithField("collection", collection).Error("failed to create indexes")
			failed++
		}
	}

	if failed > 0 {
		return fmt.Errorf("index creation failed for %d collections", failed)
	}

	log.Info("database indexes created successfully")
	return nil
}

// Disconnect closes the MongoDB connection
func Disconnect(client *mongo.Client) error {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := client.Disconnect(ctx); err != nil {
		return fmt.Errorf("failed to disconnect from MongoDB: %w", err)
	}

	logger.WithComponent("mongodb").Info("disconnected from MongoDB")
	return nil
}

// Health checks the database connection health
func Health(ctx context.Context, db *mongo.Database) error {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	return db.Client().Ping(ctx, nil)
}
