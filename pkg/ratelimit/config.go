package ratelimit

import (
	"time"
)

const (
	CategoryDefault = "default"
	CategoryAuth    = "auth"

	DefaultMessage = "Too many requests from this IP, please try again later."
	AuthMessage    = "Too many authentication attempts, please try again later."
)

// Config holds the configuration for rate limiting
type Config struct {
	// Limits per category; requests in a category missing here use "default"
	Limits map[string]RateLimit `json:"limits"`

	// Redis key prefix for rate limiting data
	RedisKeyPrefix string `json:"redisKeyPrefix"`

	// Cleanup interval for expired in-memory windows
	CleanupInterval time.Duration `json:"cleanupInterval"`

	// Enable/disable rate limiting
	Enabled bool `json:"enabled"`
}

// DefaultConfig returns the standard budgets: general traffic and the
// stricter authentication budget share one window length.
func DefaultConfig() *Config {
	return NewConfig(15*time.Minute, 100, 5)
}

// NewConfig builds a configuration from the general and auth budgets.
func NewConfig(window time.Duration, max, authMax int) *Config {
	return &Config{
		Limits: map[string]RateLimit{
			CategoryDefault: {Max: max, Window: window, Message: DefaultMessage},
			CategoryAuth:    {Max: authMax, Window: window, Message: AuthMessage},
		},
		RedisKeyPrefix:  "ratelimit:",
		CleanupInterval: 5 * time.Minute,
		Enabled:         true,
	}
}

// LimitFor resolves the budget for a category, falling back to default.
func (c *Config) LimitFor(category string) RateLimit {
	if limit, ok := c.Limits[category]; ok {
		return limit
	}
	if limit, ok := c.Limits[CategoryDefault]; ok {
		return limit
	}
	return RateLimit{Max: 100, Window: 15 * time.Minute, Message: DefaultMessage}
}
