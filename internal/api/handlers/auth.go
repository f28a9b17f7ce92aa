package handlers

import (
	"context"
	"net/http"
	"time"

	"fleet-equipment-api/internal/api/middleware"
	"fleet-equipment-api/internal/models"
	"fleet-equipment-api/internal/services"
	"fleet-equipment-api/pkg/utils"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
)

// AuthService is the account behaviour behind the auth routes.
type AuthService interface {
	TokenTTL() time.Duration
	Register(ctx context.Context, req *services.CreateUserRequest) (*services.LoginResponse, error)
	Login(ctx context.Context, req *services.LoginRequest) (*services.LoginResponse, error)
	RefreshToken(tokenString string) (string, error)
	GetUserProfile(ctx context.Context, userID string) (*models.AuthUser, error)
}

type AuthHandler struct {
	authService  AuthService
	validator    *validator.Validate
	secureCookie bool
}

// NewAuthHandler builds the handler. secureCookie marks the session cookie
// Secure, which browsers only send over HTTPS.
func NewAuthHandler(authService AuthService, secureCookie bool) *AuthHandler {
	return &AuthHandler{
		authService:  authService,
		validator:    utils.NewValidator(),
		secureCookie: secureCookie,
	}
}

func (h *AuthHandler) Register(c *gin.Context) {
	var req services.CreateUserRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.Error(err).SetType(gin.ErrorTypeBind)
		return
	}

	if err := h.validator.Struct(&req); err != nil {
		c.Error(err)
		return
	}

	response, err := h.authService.Register(c.Request.Context(), &req)
	if err != nil {
		c.Error(err)
		return
	}

	h.setTokenCookie(c, response.Token, h.authService.TokenTTL())
	utils.SuccessResponse(c, http.StatusCreated, "User registered successfully", response)
}

// Login handles user authentication
func (h *AuthHandler) Login(c *gin.Context) {
	var req services.LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.Error(err).SetType(gin.ErrorTypeBind)
		return
	}

	if err := h.validator.Struct(&req); err != nil {
		c.Error(err)
		return
	}

	response, err := h.authService.Login(c.Request.Context(), &req)
	if err != nil {
		c.Error(err)
		return
	}

	h.setTokenCookie(c, response.Token, h.authService.TokenTTL())
	utils.SuccessResponse(c, http.StatusOK, "Login successful", response)
}

// Logout clears the session cookie.
func (h *AuthHandler) Logout(c *gin.Context) {
	h.setTokenCookie(c, "", -1)
	utils.SuccessResponse(c, http.StatusOK, "Logout successful", nil)
}

// RefreshToken exchanges a valid token, from the request or the body, for a
// fresh one.
func (h *AuthHandler) RefreshToken(c *gin.Context) {
	var req struct {
		Token string `json:"token"`
	}
	if c.Request.ContentLength != 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			c.Error(err).SetType(gin.ErrorTypeBind)
			return
		}
	}

	token := req.Token
	if token == "" {
		token = middleware.TokenFromRequest(c)
	}
	if token == "" {
		utils.ErrorResponse(c, http.StatusUnauthorized, "Not authorized, no token", nil)
		return
	}

	newToken, err := h.authService.RefreshToken(token)
	if err != nil {
		utils.ErrorResponse(c, http.StatusUnauthorized, "Token refresh failed", err)
		return
	}

	h.setTokenCookie(c, newToken, h.authService.TokenTTL())
	utils.SuccessResponse(c, http.StatusOK, "Token refreshed successfully", gin.H{"token": newToken})
}

// GetProfile returns the current user's profile
func (h *AuthHandler) GetProfile(c *gin.Context) {
	userID := c.GetString(middleware.ContextUserID)
	if userID == "" {
		utils.ErrorResponse(c, http.StatusUnauthorized, "User not authenticated", nil)
		return
	}

	user, err := h.authService.GetUserProfile(c.Request.Context(), userID)
	if err != nil {
		c.Error(err)
		return
	}

	utils.SuccessResponse(c, http.StatusOK, "Profile retrieved successfully", user)
}

func (h *AuthHandler) setTokenCookie(c *gin.Context, token string, ttl time.Duration) {
	maxAge := int(ttl.Seconds())
	if ttl < 0 {
		maxAge = -1
	}
	c.SetSameSite(http.SameSiteStrictMode)
	c.SetCookie(middleware.TokenCookie, token, maxAge, "/", "", h.secureCookie, true)
}
