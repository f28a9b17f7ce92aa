package ratelimit

import (
	"context"
	"sync"
	"sync/atomic"
	"time"
)

type window struct {
	start time.Time
	count int
	ttl   time.Duration
}

// MemoryRateLimiter implements RateLimiter using in-process counters. It is
// used when Redis is unavailable and counts per process only.
type MemoryRateLimiter struct {
	config  *Config
	clock   Clock
	stats   RateLimiterStats
	windows map[string]*window
	mu      sync.Mutex
	done    chan struct{}
	once    sync.Once
}

// NewMemoryRateLimiter creates a new in-memory rate limiter
func NewMemoryRateLimiter(config *Config, clock Clock) *MemoryRateLimiter {
	if config == nil {
		config = DefaultConfig()
	}
	if clock == nil {
		clock = time.Now
	}

	limiter := &MemoryRateLimiter{
		config:  config,
		clock:   clock,
		windows: make(map[string]*window),
		done:    make(chan struct{}),
	}

	if config.CleanupInterval > 0 {
		go limiter.cleanupLoop()
	}

	return limiter
}

// Allow counts the request against the client's window for category.
func (m *MemoryRateLimiter) Allow(_ context.Context, clientID string, category string) (Result, error) {
	limit := m.config.LimitFor(category)
	if !m.config.Enabled {
		return Result{Allowed: true, Limit: limit.Max, Remaining: limit.Max}, nil
	}

	atomic.AddInt64(&m.stats.TotalRequests, 1)

	key := category + ":" + clientID
	now := m.clock()

	m.mu.Lock()
	defer m.mu.Unlock()

	w, ok := m.windows[key]
	if !ok || now.Sub(w.start) >= limit.Window {
		w = &window{start: now, ttl: limit.Window}
		m.windows[key] = w
	}

	result := Result{
		Limit:      limit.Max,
		ResetAfter: w.start.Add(limit.Window).Sub(now),
	}

	if w.count >= limit.Max {
		atomic.AddInt64(&m.stats.BlockedRequests, 1)
		return result, nil
	}

	w.count++
	result.Allowed = true
	result.Remaining = limit.Max - w.count
	return result, nil
}

func (m *MemoryRateLimiter) Limit(category string) RateLimit {
	return m.config.LimitFor(category)
}

// GetStats returns current rate limiter statistics
func (m *MemoryRateLimiter) GetStats() RateLimiterStats {
	m.mu.Lock()
	active := len(m.windows)
	m.mu.Unlock()

	return RateLimiterStats{
		TotalRequests:   atomic.LoadInt64(&m.stats.TotalRequests),
		BlockedRequests: atomic.LoadInt64(&m.stats.BlockedRequests),
		ActiveClients:   active,
	}
}

// Stop ends the cleanup goroutine.
func (m *MemoryRateLimiter) Stop() {
	m.once.Do(func() { close(m.done) })
}

func (m *MemoryRateLimiter) cleanupLoop() {
	ticker := time.NewTicker(m.config.CleanupInterval)
	defer ticker.Stop()

	for {
		select {
		case <-m.done:
			return
		case <-ticker.C:
			m.cleanup()
		}
	}
}

// cleanup drops windows that have already ended.
func (m *MemoryRateLimiter) cleanup() {
	now := m.clock()

	m.mu.Lock()
	defer m.mu.Unlock()

	for key, w := range m.windows {
		if now.Sub(w.start) >= w.ttl {
			delete(m.windows, key)
		}
	}
}
