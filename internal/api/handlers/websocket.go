package handlers

import (
	"net/http"
	"strings"

	"fleet-equipment-api/internal/api/middleware"
	"fleet-equipment-api/internal/websocket"
	"fleet-equipment-api/pkg/jwt"
	"fleet-equipment-api/pkg/logger"
	"fleet-equipment-api/pkg/utils"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	gorilla "github.com/gorilla/websocket"
)

// StreamManager accepts upgraded alert stream connections.
type StreamManager interface {
	Upgrader() *gorilla.Upgrader
	RegisterClient(clientID string, conn *gorilla.Conn, filters websocket.AlertFilters) error
}

// WebSocketHandler upgrades requests to the live alert stream.
type WebSocketHandler struct {
	manager StreamManager
	jwtUtil *jwt.JWTUtil
}

func NewWebSocketHandler(manager StreamManager, jwtUtil *jwt.JWTUtil) *WebSocketHandler {
	return &WebSocketHandler{
		manager: manager,
		jwtUtil: jwtUtil,
	}
}

// HandleAlertStream authenticates the caller, reads the initial filters from
// the query string and hands the connection to the manager. Browsers cannot
// set headers on WebSocket requests, so the token may also come as ?token=.
func (h *WebSocketHandler) HandleAlertStream(c *gin.Context) {
	token := c.Query("token")
	if token == "" {
		token = middleware.TokenFromRequest(c)
	}
	if token == "" {
		utils.ErrorResponse(c, http.StatusUnauthorized, "Authentication token required", nil)
		return
	}

	claims, err := h.jwtUtil.ValidateToken(token)
	if err != nil {
		utils.ErrorResponse(c, http.StatusUnauthorized, "Invalid authentication token", nil)
		return
	}

	filters := websocket.AlertFilters{
		Types:       queryList(c, "types"),
		Priorities:  queryList(c, "priorities"),
		SourceTypes: queryList(c, "sourceTypes"),
	}

	conn, err := h.manager.Upgrader().Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		// the upgrader has already written an error response
		logger.WithComponent("websocket").WithError(err).Warn("failed to upgrade connection")
		return
	}

	clientID := uuid.NewString()
	if err := h.manager.RegisterClient(clientID, conn, filters); err != nil {
		logger.WithComponent("websocket").WithError(err).Warn("failed to register client")
		conn.Close()
		return
	}

	logger.WithComponent("websocket").WithField("clientId", clientID).WithField("userId", claims.UserID).Info("alert stream client connected")
}

// queryList accepts both repeated parameters and comma separated values.
func queryList(c *gin.Context, key string) []string {
	var out []string
	for _, raw := range c.QueryArray(key) {
		for _, v := range strings.Split(raw, ",") {
			if v = strings.TrimSpace(v); v != "" {
				out = append(out, v)
			}
		}
	}
	return out
}
