package handlers

import (
	"context"
	"net/http"
	"time"

	"fleet-equipment-api/pkg/utils"

	"github.com/gin-gonic/gin"
)

// Checker is a dependency probed by the detailed health endpoint.
type Checker func(ctx context.Context) error

// Reporter returns a runtime statistics snapshot for the stats endpoint.
type Reporter func(ctx context.Context) interface{}

type HealthHandler struct {
	checks    map[string]Checker
	reporters map[string]Reporter
	now       func() time.Time
}

type HealthResponse struct {
	Status    string            `json:"status"`
	Message   string            `json:"message"`
	Timestamp time.Time         `json:"timestamp"`
	Services  map[string]string `json:"services,omitempty"`
}

func NewHealthHandler(checks map[string]Checker) *HealthHandler {
	return &HealthHandler{
		checks:    checks,
		reporters: make(map[string]Reporter),
		now:       time.Now,
	}
}

// WithReporter adds a named statistics source.
func (h *HealthHandler) WithReporter(name string, r Reporter) *HealthHandler {
	h.reporters[name] = r
	return h
}

// HealthCheck reports that the process is serving requests.
func (h *HealthHandler) HealthCheck(c *gin.Context) {
	c.JSON(http.StatusOK, HealthResponse{
		Status:    "OK",
		Message:   "Server is running",
		Timestamp: h.now().UTC(),
	})
}

// Readiness probes every registered dependency and answers 503 when one
// of them fails.
func (h *HealthHandler) Readiness(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), 5*time.Second)
	defer cancel()

	response := HealthResponse{
		Status:    "OK",
		Message:   "All services are available",
		Timestamp: h.now().UTC(),
		Services:  make(map[string]string, len(h.checks)),
	}

	for name, check := range h.checks {
		if err := check(ctx); err != nil {
			response.Services[name] = err.Error()
			response.Status = "DEGRADED"
			response.Message = "Some services are unavailable"
			continue
		}
		response.Services[name] = "OK"
	}

	status := http.StatusOK
	if response.Status != "OK" {
		status = http.StatusServiceUnavailable
	}
	c.JSON(status, response)
}

// Stats reports cache, limiter, stream and connection pool counters.
func (h *HealthHandler) Stats(c *gin.Context) {
	stats := make(map[string]interface{}, len(h.reporters))
	for name, report := range h.reporters {
		stats[name] = report(c.Request.Context())
	}
	utils.SuccessResponse(c, http.StatusOK, "Runtime statistics retrieved successfully", stats)
}
