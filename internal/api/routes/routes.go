package routes

import (
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"fleet-equipment-api/internal/api/handlers"
	"fleet-equipment-api/internal/api/middleware"
	"fleet-equipment-api/internal/config"
	"fleet-equipment-api/pkg/jwt"
	"fleet-equipment-api/pkg/logger"
	"fleet-equipment-api/pkg/ratelimit"
	"fleet-equipment-api/pkg/utils"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
)

// Registrar mounts a set of routes on a group.
type Registrar interface {
	Register(group *gin.RouterGroup)
}

// Dependencies is everything the router wires into handlers. Limiter may be
// nil, which disables rate limiting.
type Dependencies struct {
	Config    *config.Config
	JWT       *jwt.JWTUtil
	Limiter   ratelimit.RateLimiter
	Auth      handlers.AuthService
	Alerts    handlers.AlertService
	Stream    handlers.StreamManager
	Health    *handlers.HealthHandler
	Resources map[string]Registrar
}

func SetupRouter(deps Dependencies) *gin.Engine {
	cfg := deps.Config
	dev := cfg.IsDevelopment()

	router := gin.New()
	// with no trusted proxies ClientIP is the socket address, so
	// X-Forwarded-For cannot move a client into a fresh rate limit bucket
	if err := router.SetTrustedProxies(cfg.TrustedProxies); err != nil {
		logger.WithComponent("router").WithError(err).Warn("invalid TRUSTED_PROXIES, trusting none")
		_ = router.SetTrustedProxies(nil)
	}
	router.Use(
		middleware.RequestLogger(),
		middleware.Recovery(dev),
		middleware.ErrorHandler(dev),
		middleware.SecureHeaders(dev),
		cors.New(corsConfig(cfg.FrontendURL)),
	)
	if deps.Limiter != nil && cfg.RateLimit.Enabled {
		router.Use(middleware.RateLimitMiddleware(deps.Limiter, ratelimit.CategoryDefault))
	}
	router.Use(middleware.BodyLimit(cfg.MaxBodyBytes))

	authMiddleware := middleware.AuthMiddleware(deps.JWT)
	api := router.Group("/api")

	api.GET("/health", deps.Health.HealthCheck)
	api.GET("/health/ready", deps.Health.Readiness)

	authHandler := handlers.NewAuthHandler(deps.Auth, !dev)
	auth := api.Group("/auth")
	if deps.Limiter != nil && cfg.RateLimit.Enabled {
		auth.Use(middleware.RateLimitMiddleware(deps.Limiter, ratelimit.CategoryAuth))
	}
	{
		auth.POST("/register", authHandler.Register)
		auth.POST("/login", authHandler.Login)
		auth.POST("/logout", authHandler.Logout)
		auth.POST("/refresh", authHandler.RefreshToken)
		auth.GET("/me", authMiddleware, authHandler.GetProfile)
	}

	// the stream authenticates from the query string itself
	if deps.Stream != nil {
		api.GET("/alerts/stream", handlers.NewWebSocketHandler(deps.Stream, deps.JWT).HandleAlertStream)
	}

	protected := api.Group("", authMiddleware)
	protected.GET("/health/stats", deps.Health.Stats)

	alertHandler := handlers.NewAlertHandler(deps.Alerts)
	alerts := protected.Group("/alerts")
	{
		alerts.GET("", alertHandler.GetAlerts)
		alerts.GET("/stats", alertHandler.GetStatistics)
		alerts.GET("/source/:sourceType/:sourceId", alertHandler.GetAlertsBySource)
		alerts.GET("/:id", alertHandler.GetAlert)
		alerts.POST("", alertHandler.CreateAlert)
		alerts.PUT("/:id", alertHandler.UpdateAlert)
		alerts.PUT("/:id/resolve", alertHandler.ResolveAlert)
		alerts.PUT("/:id/dismiss", alertHandler.DismissAlert)
	}

	for path, resource := range deps.Resources {
		resource.Register(protected.Group("/" + path))
	}

	if cfg.UploadsDir != "" {
		router.Static("/uploads", cfg.UploadsDir)
	}
	router.NoRoute(spaFallback(cfg.FrontendDistDir))

	return router
}

func corsConfig(origin string) cors.Config {
	return cors.Config{
		AllowOrigins:     []string{origin},
		AllowMethods:     []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodDelete, http.MethodOptions},
		AllowHeaders:     []string{"Content-Type", "Authorization"},
		ExposeHeaders:    []string{"Retry-After", "X-RateLimit-Limit", "X-RateLimit-Remaining", "X-RateLimit-Reset"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}
}

// spaFallback answers unmatched /api paths with a JSON 404 and serves the
// frontend bundle for everything else, falling back to index.html so client
// side routes resolve.
func spaFallback(distDir string) gin.HandlerFunc {
	return func(c *gin.Context) {
		path := c.Request.URL.Path
		if path == "/api" || strings.HasPrefix(path, "/api/") {
			utils.ErrorResponse(c, http.StatusNotFound, "API route not found", nil)
			return
		}
		if c.Request.Method != http.MethodGet && c.Request.Method != http.MethodHead {
			utils.ErrorResponse(c, http.StatusNotFound, "Route not found", nil)
			return
		}

		if distDir != "" {
			file := filepath.Join(distDir, filepath.Clean("/"+path))
			if info, err := os.Stat(file); err == nil && !info.IsDir() {
				c.File(file)
				return
			}
			index := filepath.Join(distDir, "index.html")
			if _, err := os.Stat(index); err == nil {
				c.File(index)
				return
			}
		}
		utils.ErrorResponse(c, http.StatusNotFound, "Route not found", nil)
	}
}
