package websocket

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"sync"
	"time"

	"fleet-equipment-api/internal/models"
	"fleet-equipment-api/pkg/logger"

	"github.com/gorilla/websocket"
	"github.com/sirupsen/logrus"
)

// ErrBroadcastFull is returned when the broadcast queue cannot take another event.
var ErrBroadcastFull = errors.New("broadcast channel full")

// Manager keeps the set of connected alert stream clients and fans alert
// events out to the ones whose filters match.
type Manager struct {
	clients    map[string]*Client
	register   chan *Client
	unregister chan *Client
	broadcast  chan models.AlertEvent
	mutex      sync.RWMutex
	upgrader   websocket.Upgrader
	done       chan struct{}
	stopOnce   sync.Once
	log        *logrus.Entry
}

// NewManager creates a manager. A non-empty allowedOrigin restricts which
// browser origins may open a stream.
func NewManager(allowedOrigin string) *Manager {
	return &Manager{
		clients:    make(map[string]*Client),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		broadcast:  make(chan models.AlertEvent, 1000),
		upgrader: websocket.Upgrader{
			CheckOrigin:     checkOrigin(allowedOrigin),
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
		},
		done: make(chan struct{}),
		log:  logger.WithComponent("websocket"),
	}
}

func checkOrigin(allowed string) func(r *http.Request) bool {
	return func(r *http.Request) bool {
		origin := r.Header.Get("Origin")
		return allowed == "" || origin == "" || origin == allowed
	}
}

// Start begins the manager's main loop
func (m *Manager) Start() error {
	go m.run()
	m.log.Info("WebSocket manager started")
	return nil
}

// Stop closes every client connection and ends the main loop. It is safe to
// call more than once.
func (m *Manager) Stop() error {
	m.stopOnce.Do(func() {
		close(m.done)

		m.mutex.Lock()
		for id, client := range m.clients {
			delete(m.clients, id)
			close(client.Send)
			if client.Conn != nil {
				client.Conn.Close()
			}
		}
		m.mutex.Unlock()

		m.log.Info("WebSocket manager stopped")
	})
	return nil
}

func (m *Manager) run() {
	ticker := time.NewTicker(30 * time.Second)
	defer ticker.Stop()

	for {
		select {
		case client := <-m.register:
			m.mutex.Lock()
			m.clients[client.ID] = client
			m.mutex.Unlock()
			m.log.WithField("clientId", client.ID).Debug("client registered")
			go m.handleClient(client)

		case client := <-m.unregister:
			m.remove(client)

		case event := <-m.broadcast:
			m.broadcastToClients(event)

		case <-ticker.C:
			m.healthCheck(time.Now())

		case <-m.done:
			return
		}
	}
}

// RegisterClient attaches an upgraded connection to the stream.
func (m *Manager) RegisterClient(clientID string, conn *websocket.Conn, filters AlertFilters) error {
	client := &Client{
		ID:       clientID,
		Conn:     conn,
		Send:     make(chan models.AlertEvent, sendBuffer),
		filters:  filters,
		lastPing: time.Now(),
		active:   true,
	}

	select {
	case m.register <- client:
		return nil
	case <-m.done:
		return errors.New("websocket manager stopped")
	}
}

// UnregisterClient removes a WebSocket client
func (m *Manager) UnregisterClient(clientID string) error {
	m.mutex.RLock()
	client, exists := m.clients[clientID]
	m.mutex.RUnlock()

	if exists {
		select {
		case m.unregister <- client:
		case <-m.done:
		}
	}
	return nil
}

// PublishAlertEvent queues an event for delivery without blocking the caller.
func (m *Manager) PublishAlertEvent(_ context.Context, event models.AlertEvent) error {
	select {
	case m.broadcast <- event:
		return nil
	default:
		return ErrBroadcastFull
	}
}

// GetConnectedClients returns the number of connected clients
func (m *Manager) GetConnectedClients() int {
	m.mutex.RLock()
	defer m.mutex.RUnlock()
	return len(m.clients)
}

// GetClientStats returns detailed client statistics
func (m *Manager) GetClientStats() ClientStats {
	m.mutex.RLock()
	defer m.mutex.RUnlock()

	stats := ClientStats{
		TotalClients: len(m.clients),
	}

	for _, client := range m.clients {
		if _, active := client.state(); active {
			stats.ActiveClients++
		} else {
			stats.InactiveClients++
		}
	}

	return stats
}

// Upgrader returns the WebSocket upgrader used by the stream handler.
func (m *Manager) Upgrader() *websocket.Upgrader {
	return &m.upgrader
}

func (m *Manager) remove(client *Client) {
	m.mutex.Lock()
	defer m.mutex.Unlock()

	if current, ok := m.clients[client.ID]; ok && current == client {
		delete(m.clients, client.ID)
		close(client.Send)
		if client.Conn != nil {
			client.Conn.Close()
		}
		m.log.WithField("clientId", client.ID).Debug("client unregistered")
	}
}

func (m *Manager) broadcastToClients(event models.AlertEvent) {
	m.mutex.RLock()
	defer m.mutex.RUnlock()

	for _, client := range m.clients {
		if !client.Filters().Matches(event) {
			continue
		}
		select {
		case client.Send <- event:
		default:
			client.markInactive()
			m.log.WithField("clientId", client.ID).Warn("client send buffer full, marking inactive")
		}
	}
}

func (m *Manager) handleClient(client *Client) {
	defer func() {
		select {
		case m.unregister <- client:
		case <-m.done:
		}
	}()

	client.Conn.SetReadDeadline(time.Now().Add(pongWait))
	client.Conn.SetPongHandler(func(string) error {
		client.touch(time.Now())
		client.Conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	go m.writeMessages(client)

	for {
		var message struct {
			Type    string          `json:"type"`
			Filters json.RawMessage `json:"filters"`
		}
		if err := client.Conn.ReadJSON(&message); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				m.log.WithError(err).WithField("clientId", client.ID).Warn("websocket read failed")
			}
			return
		}

		if message.Type != MessageTypeUpdateFilters || len(message.Filters) == 0 {
			continue
		}
		var filters AlertFilters
		if err := json.Unmarshal(message.Filters, &filters); err != nil {
			m.log.WithError(err).WithField("clientId", client.ID).Debug("ignoring malformed filter update")
			continue
		}
		client.setFilters(filters)
	}
}

func (m *Manager) writeMessages(client *Client) {
	ticker := time.NewTicker(pingPeriod)
	defer ticker.Stop()

	for {
		select {
		case event, ok := <-client.Send:
			client.Conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				client.Conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}

			if err := client.Conn.WriteJSON(map[string]interface{}{
				"type": MessageTypeAlertEvent,
				"data": event,
			}); err != nil {
				m.log.WithError(err).WithField("clientId", client.ID).Warn("failed to write alert event")
				return
			}

		case <-ticker.C:
			client.Conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := client.Conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

// healthCheck drops clients that stopped answering pings.
func (m *Manager) healthCheck(now time.Time) {
	m.mutex.Lock()
	defer m.mutex.Unlock()

	for clientID, client := range m.clients {
		lastPing, _ := client.state()
		if now.Sub(lastPing) > clientTimeout {
			m.log.WithField("clientId", clientID).Info("client timed out, removing")
			delete(m.clients, clientID)
			close(client.Send)
			if client.Conn != nil {
				client.Conn.Close()
			}
		}
	}
}
