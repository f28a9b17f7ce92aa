package ratelimit

import (
	"context"
	"time"
)

// RateLimiter counts requests per client in fixed windows, one counter per
// limit category.
type RateLimiter interface {
	Allow(ctx context.Context, clientID string, category string) (Result, error)
	Limit(category string) RateLimit
	GetStats() RateLimiterStats
}

// RateLimit is the budget for one category: Max requests per Window.
type RateLimit struct {
	Max     int           `json:"max"`
	Window  time.Duration `json:"window"`
	Message string        `json:"message"`
}

// Result describes the outcome of a single Allow call.
type Result struct {
	Allowed   bool
	Limit     int
	Remaining int
	// ResetAfter is the time left until the client's current window ends.
	ResetAfter time.Duration
}

// RateLimiterStats provides statistics about rate limiting
type RateLimiterStats struct {
	TotalRequests   int64 `json:"totalRequests"`
	BlockedRequests int64 `json:"blockedRequests"`
	ActiveClients   int   `json:"activeClients"`
}

// Clock returns the current time. Tests substitute a controllable one.
type Clock func() time.Time
