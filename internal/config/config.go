package config

import (
	"errors"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// devJWTSecret signs tokens only when running in development without JWT_SECRET.
const devJWTSecret = "dev-only-jwt-secret"

type Config struct {
	Port            string
	MongoURI        string
	FrontendURL     string
	TrustedProxies  []string
	Environment     string
	LogLevel        string
	JWTSecret       string
	JWTExpiry       time.Duration
	UploadsDir      string
	FrontendDistDir string
	MaxBodyBytes    int64
	AlertScanCron   string
	Redis           RedisConfig
	RateLimit       RateLimitConfig
	MQTT            MQTTConfig
}

// RedisConfig holds connection and pool settings for the Redis client.
type RedisConfig struct {
	URL          string
	Host         string
	Port         string
	Password     string
	DB           int
	PoolSize     int
	MinIdleConns int
	MaxRetries   int
	RetryDelay   time.Duration
	DialTimeout  time.Duration
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
	PoolTimeout  time.Duration
}

// RateLimitConfig holds the fixed-window request budgets per client IP.
type RateLimitConfig struct {
	Enabled     bool
	Window      time.Duration
	MaxRequests int
	AuthMax     int
}

// MQTTConfig configures the optional alert event publisher. An empty
// BrokerURL disables it.
type MQTTConfig struct {
	BrokerURL   string
	ClientID    string
	Username    string
	Password    string
	TopicPrefix string
}

// Load reads configuration from the environment, loading a .env file first
// when one is present.
func Load() (*Config, error) {
	// a missing .env is fine, the process environment still applies
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, err
	}

	mongoURI := os.Getenv("MONGO_URI")
	if mongoURI == "" {
		return nil, errors.New("MONGO_URI environment variable is not set")
	}

	jwtExpiry, err := time.ParseDuration(getEnv("JWT_EXPIRY", "24h"))
	if err != nil {
		return nil, errors.New("JWT_EXPIRY must be a duration such as 24h")
	}

	window, err := time.ParseDuration(getEnv("RATE_LIMIT_WINDOW", "15m"))
	if err != nil {
		return nil, errors.New("RATE_LIMIT_WINDOW must be a duration such as 15m")
	}

	env := os.Getenv("APP_ENV")
	if env == "" {
		env = getEnv("NODE_ENV", "production")
	}

	jwtSecret := os.Getenv("JWT_SECRET")
	if jwtSecret == "" {
		if env != "development" {
			return nil, errors.New("JWT_SECRET environment variable is not set")
		}
		jwtSecret = devJWTSecret
	}

	return &Config{
		Port:            getEnv("PORT", "5000"),
		MongoURI:        mongoURI,
		FrontendURL:     strings.TrimSpace(getEnv("FRONTEND_URL", "http://localhost:5173")),
		TrustedProxies:  splitList(os.Getenv("TRUSTED_PROXIES")),
		Environment:     env,
		LogLevel:        getEnv("LOG_LEVEL", "info"),
		JWTSecret:       jwtSecret,
		JWTExpiry:       jwtExpiry,
		UploadsDir:      getEnv("UPLOADS_DIR", "./uploads"),
		FrontendDistDir: getEnv("FRONTEND_DIST_DIR", "../dist"),
		MaxBodyBytes:    10 << 20,
		AlertScanCron:   lookupEnv("ALERT_SCAN_SCHEDULE", "@hourly"),
		Redis:           loadRedisConfig(),
		RateLimit: RateLimitConfig{
			Enabled:     getEnvBool("RATE_LIMIT_ENABLED", true),
			Window:      window,
			MaxRequests: getEnvInt("RATE_LIMIT_MAX", 100),
			AuthMax:     getEnvInt("AUTH_RATE_LIMIT_MAX", 5),
		},
		MQTT: MQTTConfig{
			BrokerURL:   os.Getenv("MQTT_BROKER_URL"),
			ClientID:    getEnv("MQTT_CLIENT_ID", "fleet-api"),
			Username:    os.Getenv("MQTT_USERNAME"),
			Password:    os.Getenv("MQTT_PASSWORD"),
			TopicPrefix: getEnv("MQTT_TOPIC_PREFIX", "fleet"),
		},
	}, nil
}

// IsDevelopment reports whether internal error details may be echoed to clients.
func (c *Config) IsDevelopment() bool {
	return c.Environment == "development"
}

func loadRedisConfig() RedisConfig {
	return RedisConfig{
		URL:          os.Getenv("REDIS_URL"),
		Host:         getEnv("REDIS_HOST", "localhost"),
		Port:         getEnv("REDIS_PORT", "6379"),
		Password:     os.Getenv("REDIS_PASSWORD"),
		DB:           getEnvInt("REDIS_DB", 0),
		PoolSize:     getEnvInt("REDIS_POOL_SIZE", 10),
		MinIdleConns: getEnvInt("REDIS_MIN_IDLE_CONNS", 2),
		MaxRetries:   getEnvInt("REDIS_MAX_RETRIES", 3),
		RetryDelay:   time.Second,
		DialTimeout:  5 * time.Second,
		ReadTimeout:  3 * time.Second,
		WriteTimeout: 3 * time.Second,
		PoolTimeout:  4 * time.Second,
	}
}

// splitList parses a comma separated value, dropping blank entries.
func splitList(v string) []string {
	var out []string
	for _, item := range strings.Split(v, ",") {
		if item = strings.TrimSpace(item); item != "" {
			out = append(out, item)
		}
	}
	return out
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

// lookupEnv differs from getEnv in that an explicitly empty value is kept.
func lookupEnv(key, fallback string) string {
	if v, ok := os.LookupEnv(key); ok {
		return v
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	v, err := strconv.Atoi(os.Getenv(key))
	if err != nil {
		return fallback
	}
	return v
}

func getEnvBool(key string, fallback bool) bool {
	v, err := strconv.ParseBool(os.Getenv(key))
	if err != nil {
		return fallback
	}
	return v
}
