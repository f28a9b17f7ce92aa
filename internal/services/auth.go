package services

import (
	"context"
	"errors"
	"time"

	"fleet-equipment-api/internal/models"
	"fleet-equipment-api/internal/repository"
	"fleet-equipment-api/pkg/jwt"
	"fleet-equipment-api/pkg/logger"

	"golang.org/x/crypto/bcrypt"
)

var (
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrAccountInactive    = errors.New("account is not active")
)

type AuthService struct {
	users   *UserService
	jwtUtil *jwt.JWTUtil
}

func NewAuthService(users *UserService, jwtUtil *jwt.JWTUtil) *AuthService {
	return &AuthService{
		users:   users,
		jwtUtil: jwtUtil,
	}
}

type LoginRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

type LoginResponse struct {
	User  *models.AuthUser `json:"user"`
	Token string           `json:"token"`
}

// TokenTTL is how long issued tokens stay valid.
func (s *AuthService) TokenTTL() time.Duration {
	return s.jwtUtil.Expiry()
}

func (s *AuthService) Register(ctx context.Context, req *CreateUserRequest) (*LoginResponse, error) {
	user, err := s.users.CreateUser(ctx, req)
	if err != nil {
		return nil, err
	}
	return s.issue(user)
}

func (s *AuthService) Login(ctx context.Context, req *LoginRequest) (*LoginResponse, error) {
	user, err := s.users.userRepo.FindByEmail(ctx, req.Email)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrInvalidCredentials
		}
		return nil, err
	}

	if user.Status != models.UserActive {
		return nil, ErrAccountInactive
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.Password), []byte(req.Password)); err != nil {
		return nil, ErrInvalidCredentials
	}

	if err := s.users.userRepo.UpdateLastLogin(ctx, user.ID, s.users.clock().UTC()); err != nil {
		logger.WithComponent("auth").WithError(err).WithField("userId", user.ID.Hex()).Warn("failed to record last login")
	}

	return s.issue(user)
}

// RefreshToken reissues a token that is close to expiry.
func (s *AuthService) RefreshToken(tokenString string) (string, error) {
	newToken, err := s.jwtUtil.RefreshToken(tokenString)
	if err != nil {
		return "", errors.New("failed to refresh token")
	}
	return newToken, nil
}

func (s *AuthService) GetUserProfile(ctx context.Context, userID string) (*models.AuthUser, error) {
	oid, err := repository.ParseID(userID)
	if err != nil {
		return nil, err
	}

	user, err := s.users.userRepo.FindByID(ctx, oid)
	if err != nil {
		return nil, err
	}

	if user.Status != models.UserActive {
		return nil, ErrAccountInactive
	}

	return user.ToAuthUser(), nil
}

func (s *AuthService) issue(user *models.User) (*LoginResponse, error) {
	token, err := s.jwtUtil.GenerateToken(user.ID.Hex(), user.Email, user.Role)
	if err != nil {
		return nil, errors.New("failed to generate token")
	}

	return &LoginResponse{
		User:  user.ToAuthUser(),
		Token: token,
	}, nil
}
