package services

import (
	"context"

	"fleet-equipment-api/internal/models"
	"fleet-equipment-api/internal/repository"
	"fleet-equipment-api/pkg/logger"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// ResourceStore persists one resource collection.
type ResourceStore[T any, P repository.Entity[T]] interface {
	Name() string
	Create(ctx context.Context, doc P) error
	FindByID(ctx context.Context, id primitive.ObjectID) (P, error)
	List(ctx context.Context, page, limit int) ([]P, int64, error)
	Replace(ctx context.Context, id primitive.ObjectID, doc P) error
	Delete(ctx context.Context, id primitive.ObjectID) error
}

// SourceInvalidator drops cached knowledge about one source entity.
type SourceInvalidator interface {
	Invalidate(ctx context.Context, collection, id string) error
}

// ResourceService is the CRUD service shared by the resource collections.
type ResourceService[T any, P repository.Entity[T]] struct {
	store       ResourceStore[T, P]
	invalidator SourceInvalidator
	isSource    bool
}

func NewResourceService[T any, P repository.Entity[T]](store ResourceStore[T, P], invalidator SourceInvalidator) *ResourceService[T, P] {
	return &ResourceService[T, P]{
		store:       store,
		invalidator: invalidator,
		isSource:    isSourceCollection(store.Name()),
	}
}

func isSourceCollection(name string) bool {
	for _, st := range models.SourceTypes {
		if st.Collection() != "" && st.Collection() == name {
			return true
		}
	}
	return false
}

func (s *ResourceService[T, P]) List(ctx context.Context, page, limit int) ([]P, int64, error) {
	return s.store.List(ctx, page, limit)
}

func (s *ResourceService[T, P]) Get(ctx context.Context, id string) (P, error) {
	oid, err := repository.ParseID(id)
	if err != nil {
		return nil, err
	}
	return s.store.FindByID(ctx, oid)
}

func (s *ResourceService[T, P]) Create(ctx context.Context, doc P) error {
	if err := s.store.Create(ctx, doc); err != nil {
		return err
	}
	s.invalidate(ctx, doc.GetID())
	return nil
}

func (s *ResourceService[T, P]) Update(ctx context.Context, id string, doc P) error {
	oid, err := repository.ParseID(id)
	if err != nil {
		return err
	}
	if err := s.store.Replace(ctx, oid, doc); err != nil {
		return err
	}
	s.invalidate(ctx, oid)
	return nil
}

func (s *ResourceService[T, P]) Delete(ctx context.Context, id string) error {
	oid, err := repository.ParseID(id)
	if err != nil {
		return err
	}
	if err := s.store.Delete(ctx, oid); err != nil {
		return err
	}
	s.invalidate(ctx, oid)
	return nil
}

func (s *ResourceService[T, P]) invalidate(ctx context.Context, id primitive.ObjectID) {
	if !s.isSource || s.invalidator == nil {
		return
	}
	if err := s.invalidator.Invalidate(ctx, s.store.Name(), id.Hex()); err != nil {
		logger.WithComponent("resources").WithError(err).WithField("collection", s.store.Name()).Warn("failed to invalidate source cache")
	}
}
