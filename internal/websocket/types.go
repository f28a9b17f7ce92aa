package websocket

import (
	"slices"
	"sync"
	"time"

	"fleet-equipment-api/internal/models"

	"github.com/gorilla/websocket"
)

// AlertFilters narrows the alert events a client receives. Empty lists
// match everything.
type AlertFilters struct {
	Types       []string `json:"types,omitempty"`
	Priorities  []string `json:"priorities,omitempty"`
	SourceTypes []string `json:"sourceTypes,omitempty"`
}

// Matches reports whether an event passes every non-empty filter.
func (f AlertFilters) Matches(event models.AlertEvent) bool {
	return matchesAny(f.Types, string(event.Alert.Type)) &&
		matchesAny(f.Priorities, string(event.Alert.Priority)) &&
		matchesAny(f.SourceTypes, string(event.Alert.SourceType))
}

func matchesAny(allowed []string, value string) bool {
	return len(allowed) == 0 || slices.Contains(allowed, value)
}

// Client is one connected stream subscriber.
type Client struct {
	ID   string
	Conn *websocket.Conn
	Send chan models.AlertEvent

	mu       sync.Mutex
	filters  AlertFilters
	lastPing time.Time
	active   bool
}

func (c *Client) Filters() AlertFilters {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.filters
}

func (c *Client) setFilters(f AlertFilters) {
	c.mu.Lock()
	c.filters = f
	c.mu.Unlock()
}

func (c *Client) touch(now time.Time) {
	c.mu.Lock()
	c.lastPing = now
	c.active = true
	c.mu.Unlock()
}

func (c *Client) markInactive() {
	c.mu.Lock()
	c.active = false
	c.mu.Unlock()
}

func (c *Client) state() (time.Time, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.lastPing, c.active
}

// ClientStats provides statistics about connected clients
type ClientStats struct {
	TotalClients    int `json:"totalClients"`
	ActiveClients   int `json:"activeClients"`
	InactiveClients int `json:"inactiveClients"`
}

// Message types for WebSocket communication
const (
	MessageTypeAlertEvent    = "alert_event"
	MessageTypeUpdateFilters = "update_filters"
	MessageTypeError         = "error"
)

const (
	pongWait      = 60 * time.Second
	pingPeriod    = 54 * time.Second
	writeWait     = 10 * time.Second
	clientTimeout = 90 * time.Second
	sendBuffer    = 256
)
