package redis

import (
	"context"
	"fmt"
	"sync"
	"time"

	"fleet-equipment-api/internal/config"
	"fleet-equipment-api/pkg/logger"

	"github.com/redis/go-redis/v9"
)

// Provider hands out the current go-redis client. The reconnecting Client
// swaps its underlying client, so consumers fetch it per operation.
type Provider interface {
	GetClient() *redis.Client
}

type staticProvider struct{ client *redis.Client }

func (s staticProvider) GetClient() *redis.Client { return s.client }

// Static wraps an existing go-redis client, mainly for tests.
func Static(client *redis.Client) Provider {
	return staticProvider{client: client}
}

type Client struct {
	client        *redis.Client
	config        config.RedisConfig
	mu            sync.RWMutex
	isConnected   bool
	reconnectChan chan struct{}
	ctx           context.Context
	cancel        context.CancelFunc
}

type HealthStatus struct {
	IsConnected    bool          `json:"isConnected"`
	LastPing       time.Time     `json:"lastPing"`
	ResponseTime   time.Duration `json:"responseTime"`
	ConnectionInfo string        `json:"connectionInfo"`
	Error          string        `json:"error,omitempty"`
}

var log = logger.WithComponent("redis")

// NewClient creates a Redis client and starts the background health check
// and reconnect loops.
func NewClient(cfg config.RedisConfig) *Client {
	ctx, cancel := context.WithCancel(context.Background())

	client := &Client{
		config:        cfg,
		reconnectChan: make(chan struct{}, 1),
		ctx:           ctx,
		cancel:        cancel,
	}

	client.connect()
	go client.healthCheckLoop()
	go client.reconnectLoop()

	return client
}

func (c *Client) options() *redis.Options {
	if c.config.URL != "" {
		opt, err := redis.ParseURL(c.config.URL)
		if err == nil {
			c.applyPoolSettings(opt)
			return opt
		}
		log.WithError(err).Warn("failed to parse REDIS_URL, falling back to host and port")
	}

	opt := &redis.Options{
		Addr:     c.address(),
		Password: c.config.Password,
		DB:       c.config.DB,
	}
	c.applyPoolSettings(opt)
	return opt
}

func (c *Client) applyPoolSettings(opt *redis.Options) {
	opt.PoolSize = c.config.PoolSize
	opt.MinIdleConns = c.config.MinIdleConns
	opt.MaxRetries = c.config.MaxRetries
	opt.MinRetryBackoff = c.config.RetryDelay
	opt.DialTimeout = c.config.DialTimeout
	opt.ReadTimeout = c.config.ReadTimeout
	opt.WriteTimeout = c.config.WriteTimeout
	opt.PoolTimeout = c.config.PoolTimeout
}

func (c *Client) address() string {
	return fmt.Sprintf("%s:%s", c.config.Host, c.config.Port)
}

// connect (re)creates the underlying client and records whether it answers.
func (c *Client) connect() {
	client := redis.NewClient(c.options())

	c.mu.Lock()
	c.client = client
	c.mu.Unlock()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	err := client.Ping(ctx).Err()
	c.mu.Lock()
	c.isConnected = err == nil
	c.mu.Unlock()

	if err != nil {
		log.WithError(err).Warn("redis connection test failed")
	} else {
		log.WithField("addr", client.Options().Addr).Info("redis connected")
	}
}

// GetClient returns the Redis client instance (thread-safe)
func (c *Client) GetClient() *redis.Client {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.client
}

// IsConnected returns the current connection status
func (c *Client) IsConnected() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.isConnected
}

// HealthCheck pings the server and triggers a reconnect when it fails.
func (c *Client) HealthCheck() HealthStatus {
	client := c.GetClient()

	status := HealthStatus{
		ConnectionInfo: c.address(),
	}

	if client == nil {
		status.Error = "Redis client not initialized"
		return status
	}
	status.ConnectionInfo = client.Options().Addr

	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()

	start := time.Now()
	err := client.Ping(ctx).Err()
	status.ResponseTime = time.Since(start)
	status.LastPing = time.Now()

	c.mu.Lock()
	c.isConnected = err == nil
	c.mu.Unlock()

	if err != nil {
		status.Error = err.Error()
		c.triggerReconnect()
		return status
	}

	status.IsConnected = true
	return status
}

// Ping satisfies the health handler's checker signature.
func (c *Client) Ping(ctx context.Context) error {
	client := c.GetClient()
	if client == nil {
		return fmt.Errorf("redis client not initialized")
	}
	return client.Ping(ctx).Err()
}

func (c *Client) triggerReconnect() {
	select {
	case c.reconnectChan <- struct{}{}:
	default:
	}
}

func (c *Client) healthCheckLoop() {
	ticker := time.NewTicker(30 * time.Second)
	defer ticker.Stop()

	for {
		select {
		case <-c.ctx.Done():
			return
		case <-ticker.C:
			status := c.HealthCheck()
			if !status.IsConnected {
				log.WithField("error", status.Error).Warn("redis health check failed")
			}
		}
	}
}

// reconnectLoop handles automatic reconnection with exponential backoff
func (c *Client) reconnectLoop() {
	backoff := 1 * time.Second
	maxBackoff := 30 * time.Second

	for {
		select {
		case <-c.ctx.Done():
			return
		case <-c.reconnectChan:
			if c.IsConnected() {
				continue
			}

			log.Info("attempting to reconnect to redis")

			c.mu.Lock()
			if c.client != nil {
				c.client.Close()
			}
			c.mu.Unlock()

			c.connect()

			if !c.IsConnected() {
				log.WithField("backoff", backoff.String()).Warn("redis reconnection failed")
				select {
				case <-c.ctx.Done():
					return
				case <-time.After(backoff):
				}

				backoff *= 2
				if backoff > maxBackoff {
					backoff = maxBackoff
				}

				c.triggerReconnect()
			} else {
				backoff = 1 * time.Second
			}
		}
	}
}

// Close gracefully shuts down the Redis client
func (c *Client) Close() error {
	c.cancel()

	c.mu.Lock()
	defer c.mu.Unlock()

	if c.client != nil {
		return c.client.Close()
	}
	return nil
}

// GetConnectionStats returns connection pool statistics
func (c *Client) GetConnectionStats() map[string]interface{} {
	client := c.GetClient()
	if client == nil {
		return map[string]interface{}{
			"error": "Redis client not initialized",
		}
	}

	stats := client.PoolStats()
	return map[string]interface{}{
		"hits":        stats.Hits,
		"misses":      stats.Misses,
		"timeouts":    stats.Timeouts,
		"totalConns":  stats.TotalConns,
		"idleConns":   stats.IdleConns,
		"staleConns":  stats.StaleConns,
		"isConnected": c.IsConnected(),
	}
}
