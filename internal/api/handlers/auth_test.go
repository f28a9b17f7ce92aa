package handlers

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"fleet-equipment-api/internal/api/middleware"
	"fleet-equipment-api/internal/models"
	"fleet-equipment-api/internal/services"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type MockAuthService struct {
	mock.Mock
}

func (m *MockAuthService) TokenTTL() time.Duration {
	return time.Hour
}

func (m *MockAuthService) Register(ctx context.Context, req *services.CreateUserRequest) (*services.LoginResponse, error) {
	args := m.Called(ctx, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*services.LoginResponse), args.Error(1)
}

func (m *MockAuthService) Login(ctx context.Context, req *services.LoginRequest) (*services.LoginResponse, error) {
	args := m.Called(ctx, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*services.LoginResponse), args.Error(1)
}

func (m *MockAuthService) RefreshToken(tokenString string) (string, error) {
	args := m.Called(tokenString)
	return args.String(0), args.Error(1)
}

func (m *MockAuthService) GetUserProfile(ctx context.Context, userID string) (*models.AuthUser, error) {
	args := m.Called(ctx, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.AuthUser), args.Error(1)
}

func newAuthRouter(svc AuthService, userID string) *gin.Engine {
	gin.SetMode(gin.TestMode)
	router := gin.New()
	router.Use(middleware.ErrorHandler(false))

	h := NewAuthHandler(svc, true)
	auth := router.Group("/api/auth")
	auth.POST("/register", h.Register)
	auth.POST("/login", h.Login)
	auth.POST("/logout", h.Logout)
	auth.POST("/refresh", h.RefreshToken)
	auth.GET("/me", func(c *gin.Context) {
		if userID != "" {
			c.Set(middleware.ContextUserID, userID)
		}
		c.Next()
	}, h.GetProfile)
	return router
}

func tokenCookie(w *httptest.ResponseRecorder) *http.Cookie {
	for _, c := range w.Result().Cookies() {
		if c.Name == middleware.TokenCookie {
			return c
		}
	}
	return nil
}

func TestLogin_SetsSessionCookie(t *testing.T) {
	svc := new(MockAuthService)
	svc.On("Login", mock.Anything, &services.LoginRequest{Email: "ana@example.com", Password: "secret1"}).
		Return(&services.LoginResponse{User: &models.AuthUser{ID: "u1", Email: "ana@example.com"}, Token: "signed-token"}, nil)

	w := perform(newAuthRouter(svc, ""), http.MethodPost, "/api/auth/login",
		map[string]string{"email": "ana@example.com", "password": "secret1"})

	require.Equal(t, http.StatusOK, w.Code)
	cookie := tokenCookie(w)
	require.NotNil(t, cookie)
	assert.Equal(t, "signed-token", cookie.Value)
	assert.True(t, cookie.HttpOnly)
	assert.True(t, cookie.Secure)
	assert.Equal(t, http.SameSiteStrictMode, cookie.SameSite)
	assert.Equal(t, 3600, cookie.MaxAge)

	data := decodeBody(t, w)["data"].(map[string]interface{})
	assert.Equal(t, "signed-token", data["token"])
}

func TestLogin_InvalidCredentials(t *testing.T) {
	svc := new(MockAuthService)
	svc.On("Login", mock.Anything, mock.Anything).Return(nil, services.ErrInvalidCredentials)

	w := perform(newAuthRouter(svc, ""), http.MethodPost, "/api/auth/login",
		map[string]string{"email": "ana@example.com", "password": "wrong"})

	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Equal(t, "Invalid credentials", decodeBody(t, w)["message"])
	assert.Nil(t, tokenCookie(w))
}

func TestLogin_ValidationFailure(t *testing.T) {
	svc := new(MockAuthService)

	w := perform(newAuthRouter(svc, ""), http.MethodPost, "/api/auth/login", map[string]string{"email": "not-an-email"})

	assert.Equal(t, http.StatusBadRequest, w.Code)
	body := decodeBody(t, w)
	assert.Equal(t, "Validation failed", body["message"])
	assert.ElementsMatch(t, []interface{}{
		"email must be a valid email address",
		"password is required",
	}, body["error"])
	svc.AssertNotCalled(t, "Login", mock.Anything, mock.Anything)
}

func TestRegister(t *testing.T) {
	svc := new(MockAuthService)
	svc.On("Register", mock.Anything, mock.MatchedBy(func(req *services.CreateUserRequest) bool {
		return req.Username == "ana" && req.Email == "ana@example.com"
	})).Return(&services.LoginResponse{User: &models.AuthUser{ID: "u1"}, Token: "new-token"}, nil)

	w := perform(newAuthRouter(svc, ""), http.MethodPost, "/api/auth/register", map[string]string{
		"username":  "ana",
		"email":     "ana@example.com",
		"firstName": "Ana",
		"lastName":  "Pérez",
		"password":  "secret1",
	})

	assert.Equal(t, http.StatusCreated, w.Code)
	require.NotNil(t, tokenCookie(w))
	assert.Equal(t, "new-token", tokenCookie(w).Value)
}

func TestRegister_EmailTaken(t *testing.T) {
	svc := new(MockAuthService)
	svc.On("Register", mock.Anything, mock.Anything).Return(nil, services.ErrEmailTaken)

	w := perform(newAuthRouter(svc, ""), http.MethodPost, "/api/auth/register", map[string]string{
		"username":  "ana",
		"email":     "ana@example.com",
		"firstName": "Ana",
		"lastName":  "Pérez",
		"password":  "secret1",
	})

	assert.Equal(t, http.StatusConflict, w.Code)
	assert.Equal(t, services.ErrEmailTaken.Error(), decodeBody(t, w)["message"])
}

func TestLogout_ClearsCookie(t *testing.T) {
	w := perform(newAuthRouter(new(MockAuthService), ""), http.MethodPost, "/api/auth/logout", nil)

	require.Equal(t, http.StatusOK, w.Code)
	cookie := tokenCookie(w)
	require.NotNil(t, cookie)
	assert.Empty(t, cookie.Value)
	assert.True(t, cookie.MaxAge < 0)
}

func TestRefreshToken_FromBodyOrCookie(t *testing.T) {
	t.Run("body", func(t *testing.T) {
		svc := new(MockAuthService)
		svc.On("RefreshToken", "old-token").Return("fresh-token", nil)

		w := perform(newAuthRouter(svc, ""), http.MethodPost, "/api/auth/refresh", map[string]string{"token": "old-token"})

		require.Equal(t, http.StatusOK, w.Code)
		assert.Equal(t, "fresh-token", decodeBody(t, w)["data"].(map[string]interface{})["token"])
	})

	t.Run("cookie", func(t *testing.T) {
		svc := new(MockAuthService)
		svc.On("RefreshToken", "cookie-token").Return("fresh-token", nil)

		req := httptest.NewRequest(http.MethodPost, "/api/auth/refresh", nil)
		req.AddCookie(&http.Cookie{Name: middleware.TokenCookie, Value: "cookie-token"})
		w := httptest.NewRecorder()
		newAuthRouter(svc, "").ServeHTTP(w, req)

		assert.Equal(t, http.StatusOK, w.Code)
		assert.Equal(t, "fresh-token", tokenCookie(w).Value)
	})

	t.Run("missing", func(t *testing.T) {
		w := perform(newAuthRouter(new(MockAuthService), ""), http.MethodPost, "/api/auth/refresh", nil)
		assert.Equal(t, http.StatusUnauthorized, w.Code)
	})

	t.Run("rejected", func(t *testing.T) {
		svc := new(MockAuthService)
		svc.On("RefreshToken", "expired").Return("", errors.New("token is expired"))

		req := httptest.NewRequest(http.MethodPost, "/api/auth/refresh", strings.NewReader(""))
		req.Header.Set("Authorization", "Bearer expired")
		w := httptest.NewRecorder()
		newAuthRouter(svc, "").ServeHTTP(w, req)

		assert.Equal(t, http.StatusUnauthorized, w.Code)
		assert.Equal(t, "Token refresh failed", decodeBody(t, w)["message"])
	})
}

func TestGetProfile(t *testing.T) {
	svc := new(MockAuthService)
	svc.On("GetUserProfile", mock.Anything, "u1").Return(&models.AuthUser{ID: "u1", Username: "ana"}, nil)

	w := perform(newAuthRouter(svc, "u1"), http.MethodGet, "/api/auth/me", nil)

	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "ana", decodeBody(t, w)["data"].(map[string]interface{})["username"])

	w = perform(newAuthRouter(svc, ""), http.MethodGet, "/api/auth/me", nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}
