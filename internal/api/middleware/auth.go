package middleware

import (
	"net/http"
	"strings"

	"fleet-equipment-api/pkg/jwt"
	"fleet-equipment-api/pkg/logger"
	"fleet-equipment-api/pkg/utils"

	"github.com/gin-gonic/gin"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

const (
	// TokenCookie is the HttpOnly cookie that carries the session token.
	TokenCookie = "token"

	ContextUserID = "user_id"
	ContextEmail  = "email"
	ContextRole   = "role"
)

// TokenFromRequest returns the bearer token from the Authorization header,
// falling back to the token cookie.
func TokenFromRequest(c *gin.Context) string {
	if header := c.GetHeader("Authorization"); strings.HasPrefix(header, "Bearer ") {
		return strings.TrimSpace(strings.TrimPrefix(header, "Bearer "))
	}
	if cookie, err := c.Cookie(TokenCookie); err == nil {
		return cookie
	}
	return ""
}

func AuthMiddleware(jwtUtil *jwt.JWTUtil) gin.HandlerFunc {
	return func(c *gin.Context) {
		tokenString := TokenFromRequest(c)
		if tokenString == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, utils.APIResponse{
				Success: false,
				Message: "Not authorized, no token",
			})
			return
		}

		claims, err := jwtUtil.ValidateToken(tokenString)
		if err != nil {
			logger.WithComponent("auth").WithError(err).Debug("rejected token")
			c.AbortWithStatusJSON(http.StatusUnauthorized, utils.APIResponse{
				Success: false,
				Message: "Not authorized, token failed",
			})
			return
		}

		c.Set(ContextUserID, claims.UserID)
		c.Set(ContextEmail, claims.Email)
		c.Set(ContextRole, claims.Role)
		c.Next()
	}
}

// CurrentUserID returns the authenticated user's id set by AuthMiddleware.
func CurrentUserID(c *gin.Context) (primitive.ObjectID, bool) {
	id, err := primitive.ObjectIDFromHex(c.GetString(ContextUserID))
	if err != nil {
		return primitive.NilObjectID, false
	}
	return id, true
}
