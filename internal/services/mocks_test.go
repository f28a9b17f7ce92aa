package services

import (
	"context"
	"time"

	"fleet-equipment-api/internal/models"
	"fleet-equipment-api/internal/repository"

	"github.com/stretchr/testify/mock"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

type MockAlertStore struct {
	mock.Mock
}

func (m *MockAlertStore) Create(ctx context.Context, alert *models.Alert) error {
	args := m.Called(ctx, alert)
	if alert.ID.IsZero() {
		alert.ID = primitive.NewObjectID()
	}
	return args.Error(0)
}

func (m *MockAlertStore) FindByID(ctx context.Context, id primitive.ObjectID) (*models.Alert, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Alert), args.Error(1)
}

func (m *MockAlertStore) List(ctx context.Context, filter repository.AlertFilter) ([]*models.Alert, int64, error) {
	args := m.Called(ctx, filter)
	return args.Get(0).([]*models.Alert), args.Get(1).(int64), args.Error(2)
}

func (m *MockAlertStore) FindBySource(ctx context.Context, source models.SourceRef) ([]*models.Alert, error) {
	args := m.Called(ctx, source)
	return args.Get(0).([]*models.Alert), args.Error(1)
}

func (m *MockAlertStore) ExistsActive(ctx context.Context, alertType models.AlertType, source models.SourceRef) (bool, error) {
	args := m.Called(ctx, alertType, source)
	return args.Bool(0), args.Error(1)
}

func (m *MockAlertStore) Update(ctx context.Context, alert *models.Alert) error {
	args := m.Called(ctx, alert)
	return args.Error(0)
}

func (m *MockAlertStore) Statistics(ctx context.Context, now time.Time) (*models.AlertStatistics, error) {
	args := m.Called(ctx, now)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.AlertStatistics), args.Error(1)
}

type MockSourceChecker struct {
	mock.Mock
}

func (m *MockSourceChecker) Exists(ctx context.Context, source models.SourceRef) (bool, error) {
	args := m.Called(ctx, source)
	return args.Bool(0), args.Error(1)
}

type MockEventSink struct {
	mock.Mock
}

func (m *MockEventSink) PublishAlertEvent(ctx context.Context, event models.AlertEvent) error {
	args := m.Called(ctx, event)
	return args.Error(0)
}

type MockUserStore struct {
	mock.Mock
}

func (m *MockUserStore) Create(ctx context.Context, user *models.User) error {
	args := m.Called(ctx, user)
	return args.Error(0)
}

func (m *MockUserStore) FindByID(ctx context.Context, id primitive.ObjectID) (*models.User, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.User), args.Error(1)
}

func (m *MockUserStore) FindByEmail(ctx context.Context, email string) (*models.User, error) {
	args := m.Called(ctx, email)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.User), args.Error(1)
}

func (m *MockUserStore) FindByUsername(ctx context.Context, username string) (*models.User, error) {
	args := m.Called(ctx, username)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.User), args.Error(1)
}

func (m *MockUserStore) UpdateLastLogin(ctx context.Context, id primitive.ObjectID, at time.Time) error {
	args := m.Called(ctx, id, at)
	return args.Error(0)
}

func fixedClock(t time.Time) Clock {
	return func() time.Time { return t }
}
