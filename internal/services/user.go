package services

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"strings"
	"time"

	"fleet-equipment-api/internal/models"
	"fleet-equipment-api/internal/repository"
	"fleet-equipment-api/pkg/logger"

	"go.mongodb.org/mongo-driver/bson/primitive"
	"golang.org/x/crypto/bcrypt"
)

var (
	ErrUsernameTaken = errors.New("username already exists")
	ErrEmailTaken    = errors.New("email already exists")
)

// UserStore persists user accounts.
type UserStore interface {
	Create(ctx context.Context, user *models.User) error
	FindByID(ctx context.Context, id primitive.ObjectID) (*models.User, error)
	FindByEmail(ctx context.Context, email string) (*models.User, error)
	FindByUsername(ctx context.Context, username string) (*models.User, error)
	UpdateLastLogin(ctx context.Context, id primitive.ObjectID, at time.Time) error
}

type UserService struct {
	userRepo UserStore
	clock    Clock
}

func NewUserService(userRepo UserStore, clock Clock) *UserService {
	if clock == nil {
		clock = time.Now
	}
	return &UserService{
		userRepo: userRepo,
		clock:    clock,
	}
}

type CreateUserRequest struct {
	Username  string `json:"username" validate:"required,min=3,max=50"`
	Email     string `json:"email" validate:"required,email"`
	FirstName string `json:"firstName" validate:"required,min=1,max=50"`
	LastName  string `json:"lastName" validate:"required,min=1,max=50"`
	Password  string `json:"password" validate:"required,min=6"`
	Role      string `json:"role" validate:"omitempty,oneof=admin manager operator viewer"`
}

func (s *UserService) CreateUser(ctx context.Context, req *CreateUserRequest) (*models.User, error) {
	email := strings.ToLower(strings.TrimSpace(req.Email))

	if _, err := s.userRepo.FindByUsername(ctx, req.Username); err == nil {
		return nil, ErrUsernameTaken
	} else if !errors.Is(err, repository.ErrNotFound) {
		return nil, err
	}

	if _, err := s.userRepo.FindByEmail(ctx, email); err == nil {
		return nil, ErrEmailTaken
	} else if !errors.Is(err, repository.ErrNotFound) {
		return nil, err
	}

	hashedPassword, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, errors.New("failed to hash password")
	}

	role := req.Role
	if role == "" {
		role = models.RoleOperator
	}

	now := s.clock().UTC()
	user := &models.User{
		ID:        primitive.NewObjectID(),
		Username:  strings.TrimSpace(req.Username),
		Email:     email,
		FirstName: strings.TrimSpace(req.FirstName),
		LastName:  strings.TrimSpace(req.LastName),
		Password:  string(hashedPassword),
		Role:      role,
		Status:    models.UserActive,
		CreatedAt: now,
		UpdatedAt: now,
	}

	if err := s.userRepo.Create(ctx, user); err != nil {
		if errors.Is(err, repository.ErrDuplicate) {
			return nil, ErrEmailTaken
		}
		return nil, err
	}

	return user, nil
}

// EnsureSystemUser returns the id of the account that owns automatically
// raised alerts, creating it on first start. The account cannot log in.
func (s *UserService) EnsureSystemUser(ctx context.Context) (primitive.ObjectID, error) {
	existing, err := s.userRepo.FindByEmail(ctx, models.SystemUserEmail)
	if err == nil {
		return existing.ID, nil
	}
	if !errors.Is(err, repository.ErrNotFound) {
		return primitive.NilObjectID, err
	}

	secret := make([]byte, 32)
	if _, err := rand.Read(secret); err != nil {
		return primitive.NilObjectID, fmt.Errorf("generate system password: %w", err)
	}
	hashedPassword, err := bcrypt.GenerateFromPassword([]byte(hex.EncodeToString(secret)), bcrypt.DefaultCost)
	if err != nil {
		return primitive.NilObjectID, errors.New("failed to hash password")
	}

	now := s.clock().UTC()
	user := &models.User{
		ID:        primitive.NewObjectID(),
		Username:  "system",
		Email:     models.SystemUserEmail,
		FirstName: "System",
		LastName:  "Scanner",
		Password:  string(hashedPassword),
		Role:      models.RoleAdmin,
		Status:    models.UserInactive,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := s.userRepo.Create(ctx, user); err != nil {
		return primitive.NilObjectID, fmt.Errorf("create system user: %w", err)
	}

	logger.WithComponent("users").WithField("userId", user.ID.Hex()).Info("created system user")
	return user.ID, nil
}
