package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"fleet-equipment-api/internal/api/handlers"
	"fleet-equipment-api/internal/api/routes"
	"fleet-equipment-api/internal/config"
	"fleet-equipment-api/internal/jobs"
	"fleet-equipment-api/internal/models"
	"fleet-equipment-api/internal/repository"
	"fleet-equipment-api/internal/services"
	"fleet-equipment-api/internal/websocket"
	"fleet-equipment-api/pkg/cache"
	"fleet-equipment-api/pkg/database"
	"fleet-equipment-api/pkg/jwt"
	"fleet-equipment-api/pkg/logger"
	"fleet-equipment-api/pkg/mqtt"
	"fleet-equipment-api/pkg/ratelimit"
	"fleet-equipment-api/pkg/redis"

	"github.com/gin-gonic/gin"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		logger.Log.WithError(err).Fatal("failed to load configuration")
	}

	logger.Init(cfg.Environment, cfg.LogLevel)
	log := logger.WithComponent("server")
	if !cfg.IsDevelopment() {
		gin.SetMode(gin.ReleaseMode)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	db, err := database.Connect(ctx, cfg.MongoURI)
	if err != nil {
		log.WithError(err).Fatal("failed to connect to database")
	}
	defer database.Disconnect(db.Client())

	redisClient := redis.NewClient(cfg.Redis)
	defer redisClient.Close()

	limiter := newRateLimiter(cfg, redisClient)
	if memory, ok := limiter.(*ratelimit.MemoryRateLimiter); ok {
		defer memory.Stop()
	}
	cacheConfig := cache.DefaultCacheConfig()
	cacheManager := cache.NewCacheManager(redisClient, cacheConfig)

	// real-time fan-out
	streams := websocket.NewManager(cfg.FrontendURL)
	if err := streams.Start(); err != nil {
		log.WithError(err).Fatal("failed to start websocket manager")
	}
	defer streams.Stop()

	events := services.NewEventFanout(streams)
	if cfg.MQTT.BrokerURL != "" {
		publisher, err := mqtt.NewPublisher(cfg.MQTT)
		if err != nil {
			log.WithError(err).Warn("MQTT publisher unavailable, continuing without it")
		} else {
			events.Add(publisher)
			defer publisher.Close()
		}
	}

	// repositories and services
	jwtUtil := jwt.NewJWTUtil(cfg.JWTSecret, cfg.JWTExpiry)
	userService := services.NewUserService(repository.NewUserRepository(db), nil)
	authService := services.NewAuthService(userService, jwtUtil)

	sources := repository.NewSourceLookup(db, cacheManager, cacheConfig.GetTTLForDataType("source"))
	alertService := services.NewAlertService(repository.NewAlertRepository(db), sources, events, nil).
		WithStatsCache(cacheManager, cacheConfig.GetTTLForDataType("alert_stats"))

	vehicles := repository.NewDocumentRepository[models.Vehicle](db, "vehicles")
	machinery := repository.NewDocumentRepository[models.Machinery](db, "machinery")
	tools := repository.NewDocumentRepository[models.Tool](db, "tools")
	parts := repository.NewDocumentRepository[models.Part](db, "parts")
	rentals := repository.NewDocumentRepository[models.Rental](db, "rentals")
	warehouses := repository.NewDocumentRepository[models.Warehouse](db, "warehouses")
	fuel := repository.NewDocumentRepository[models.FuelRecord](db, "fuel")
	finance := repository.NewDocumentRepository[models.FinanceRecord](db, "finance")

	resources := map[string]routes.Registrar{
		"vehicles":   handlers.NewResourceHandler[models.Vehicle]("Vehicles", services.NewResourceService[models.Vehicle](vehicles, sources)),
		"machinery":  handlers.NewResourceHandler[models.Machinery]("Machinery", services.NewResourceService[models.Machinery](machinery, sources)),
		"tools":      handlers.NewResourceHandler[models.Tool]("Tools", services.NewResourceService[models.Tool](tools, sources)),
		"parts":      handlers.NewResourceHandler[models.Part]("Parts", services.NewResourceService[models.Part](parts, sources)),
		"rentals":    handlers.NewResourceHandler[models.Rental]("Rentals", services.NewResourceService[models.Rental](rentals, sources)),
		"warehouses": handlers.NewResourceHandler[models.Warehouse]("Warehouses", services.NewResourceService[models.Warehouse](warehouses, sources)),
		"fuel":       handlers.NewResourceHandler[models.FuelRecord]("Fuel records", services.NewResourceService[models.FuelRecord](fuel, sources)),
		"finance":    handlers.NewResourceHandler[models.FinanceRecord]("Finance records", services.NewResourceService[models.FinanceRecord](finance, sources)),
	}

	// automated alerts
	systemUser, err := userService.EnsureSystemUser(ctx)
	if err != nil {
		log.WithError(err).Fatal("failed to ensure system user")
	}
	scanner := jobs.NewAlertScanner(jobs.Sources{
		Parts:     parts,
		Vehicles:  vehicles,
		Machinery: machinery,
		Tools:     tools,
		Rentals:   rentals,
	}, alertService, systemUser, nil)
	scheduler, err := jobs.StartAlertScanSchedule(cfg.AlertScanCron, scanner)
	if err != nil {
		log.WithError(err).Fatal("failed to schedule alert scanner")
	}

	health := handlers.NewHealthHandler(map[string]handlers.Checker{
		"mongodb": func(ctx context.Context) error { return database.Health(ctx, db) },
		"redis":   redisClient.Ping,
		"cache":   cacheManager.HealthCheck,
	}).
		WithReporter("cache", func(ctx context.Context) interface{} { return cacheManager.GetCacheStats(ctx) }).
		WithReporter("rateLimiter", func(context.Context) interface{} { return limiter.GetStats() }).
		WithReporter("alertStream", func(context.Context) interface{} { return streams.GetClientStats() }).
		WithReporter("redis", func(context.Context) interface{} { return redisClient.GetConnectionStats() })

	router := routes.SetupRouter(routes.Dependencies{
		Config:    cfg,
		JWT:       jwtUtil,
		Limiter:   limiter,
		Auth:      authService,
		Alerts:    alertService,
		Stream:    streams,
		Health:    health,
		Resources: resources,
	})

	server := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		log.WithField("port", cfg.Port).WithField("environment", cfg.Environment).Info("server starting")
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.WithError(err).Fatal("server failed")
		}
	}()

	<-ctx.Done()
	log.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.WithError(err).Error("graceful shutdown failed")
	}
	scheduler.Stop(shutdownCtx)
}

// newRateLimiter uses Redis when it answered at startup and keeps counters
// in memory otherwise.
func newRateLimiter(cfg *config.Config, redisClient *redis.Client) ratelimit.RateLimiter {
	limits := ratelimit.NewConfig(cfg.RateLimit.Window, cfg.RateLimit.MaxRequests, cfg.RateLimit.AuthMax)
	limits.Enabled = cfg.RateLimit.Enabled

	log := logger.WithComponent("ratelimit")
	if redisClient.IsConnected() {
		log.Info("using Redis rate limiter")
		return ratelimit.NewRedisRateLimiter(redisClient, limits, nil)
	}

	log.Warn("Redis unavailable, using in-memory rate limiter")
	return ratelimit.NewMemoryRateLimiter(limits, nil)
}
