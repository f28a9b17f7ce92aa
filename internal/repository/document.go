package repository

import (
	"context"
	"time"

	"fleet-equipment-api/internal/models"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// Entity constrains P to be a pointer to the document struct T.
type Entity[T any] interface {
	*T
	models.Document
}

// DocumentRepository stores one resource collection.
type DocumentRepository[T any, P Entity[T]] struct {
	collection *mongo.Collection
	now        func() time.Time
}

func NewDocumentRepository[T any, P Entity[T]](db *mongo.Database, collection string) *DocumentRepository[T, P] {
	return &DocumentRepository[T, P]{
		collection: db.Collection(collection),
		now:        time.Now,
	}
}

// Name returns the collection name.
func (r *DocumentRepository[T, P]) Name() string {
	return r.collection.Name()
}

func (r *DocumentRepository[T, P]) Create(ctx context.Context, doc P) error {
	ctx, cancel := context.WithTimeout(ctx, opTimeout)
	defer cancel()

	doc.SetID(primitive.NewObjectID())
	doc.Touch(r.now().UTC())

	if _, err := r.collection.InsertOne(ctx, doc); err != nil {
		return translateError(err)
	}
	return nil
}

func (r *DocumentRepository[T, P]) FindByID(ctx context.Context, id primitive.ObjectID) (P, error) {
	ctx, cancel := context.WithTimeout(ctx, opTimeout)
	defer cancel()

	var doc T
	if err := r.collection.FindOne(ctx, bson.M{"_id": id}).Decode(&doc); err != nil {
		return nil, translateError(err)
	}
	return P(&doc), nil
}

// Exists reports whether a document with id is stored.
func (r *DocumentRepository[T, P]) Exists(ctx context.Context, id primitive.ObjectID) (bool, error) {
	ctx, cancel := context.WithTimeout(ctx, opTimeout)
	defer cancel()

	count, err := r.collection.CountDocuments(ctx, bson.M{"_id": id}, options.Count().SetLimit(1))
	if err != nil {
		return false, err
	}
	return count > 0, nil
}

// List returns one page of documents, newest first, and the total count.
func (r *DocumentRepository[T, P]) List(ctx context.Context, page, limit int) ([]P, int64, error) {
	ctx, cancel := context.WithTimeout(ctx, opTimeout)
	defer cancel()

	total, err := r.collection.CountDocuments(ctx, bson.M{})
	if err != nil {
		return nil, 0, err
	}

	opts := options.Find().SetSort(bson.D{{Key: "createdAt", Value: -1}})
	if limit > 0 {
		if page < 1 {
			page = 1
		}
		opts.SetSkip(int64((page - 1) * limit)).SetLimit(int64(limit))
	}

	docs, err := r.find(ctx, bson.M{}, opts)
	if err != nil {
		return nil, 0, err
	}
	return docs, total, nil
}

// FindAll returns every document matching filter.
func (r *DocumentRepository[T, P]) FindAll(ctx context.Context, filter bson.M) ([]P, error) {
	ctx, cancel := context.WithTimeout(ctx, opTimeout)
	defer cancel()

	return r.find(ctx, filter, options.Find())
}

// Replace overwrites the editable fields of the document with id, keeping
// its creation time.
func (r *DocumentRepository[T, P]) Replace(ctx context.Context, id primitive.ObjectID, doc P) error {
	existing, err := r.FindByID(ctx, id)
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(ctx, opTimeout)
	defer cancel()

	doc.SetID(id)
	doc.SetCreatedAt(existing.GetCreatedAt())
	doc.Touch(r.now().UTC())

	result, err := r.collection.ReplaceOne(ctx, bson.M{"_id": id}, doc)
	if err != nil {
		return translateError(err)
	}
	if result.MatchedCount == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *DocumentRepository[T, P]) Delete(ctx context.Context, id primitive.ObjectID) error {
	ctx, cancel := context.WithTimeout(ctx, opTimeout)
	defer cancel()

	result, err := r.collection.DeleteOne(ctx, bson.M{"_id": id})
	if err != nil {
		return err
	}
	if result.DeletedCount == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *DocumentRepository[T, P]) find(ctx context.Context, filter bson.M, opts *options.FindOptions) ([]P, error) {
	cursor, err := r.collection.Find(ctx, filter, opts)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	docs := make([]P, 0)
	for cursor.Next(ctx) {
		var doc T
		if err := cursor.Decode(&doc); err != nil {
			return nil, err
		}
		docs = append(docs, P(&doc))
	}
	return docs, cursor.Err()
}
