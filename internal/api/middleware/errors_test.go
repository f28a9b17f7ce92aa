package middleware

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"fleet-equipment-api/internal/models"
	"fleet-equipment-api/internal/repository"
	"fleet-equipment-api/internal/services"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func decodeJSON(t *testing.T, w *httptest.ResponseRecorder) map[string]interface{} {
	t.Helper()
	var body map[string]interface{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	return body
}

func serveError(showDetails bool, err error, bind bool) *httptest.ResponseRecorder {
	gin.SetMode(gin.TestMode)
	router := gin.New()
	router.Use(ErrorHandler(showDetails))
	router.GET("/", func(c *gin.Context) {
		e := c.Error(err)
		if bind {
			e.SetType(gin.ErrorTypeBind)
		}
	})

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/", nil))
	return w
}

func TestErrorHandler_StatusMapping(t *testing.T) {
	tests := []struct {
		name       string
		err        error
		bind       bool
		wantStatus int
		wantMsg    string
	}{
		{"validation", models.NewValidationError("title", "title is required"), false, http.StatusBadRequest, "Validation failed"},
		{"bind", errors.New("unexpected EOF"), true, http.StatusBadRequest, "Invalid request format"},
		{"invalid id", fmt.Errorf("alert: %w", repository.ErrInvalidID), false, http.StatusBadRequest, "Invalid id"},
		{"not found", fmt.Errorf("alert: %w", repository.ErrNotFound), false, http.StatusNotFound, "Resource not found"},
		{"transition", services.ErrInvalidTransition, false, http.StatusConflict, "Only active alerts can be resolved or dismissed"},
		{"email taken", services.ErrEmailTaken, false, http.StatusConflict, services.ErrEmailTaken.Error()},
		{"duplicate", repository.ErrDuplicate, false, http.StatusConflict, "Duplicate value for a unique field"},
		{"credentials", services.ErrInvalidCredentials, false, http.StatusUnauthorized, "Invalid credentials"},
		{"inactive", services.ErrAccountInactive, false, http.StatusUnauthorized, "Account is not active"},
		{"too large", &http.MaxBytesError{Limit: 10}, true, http.StatusRequestEntityTooLarge, "Request entity too large"},
		{"unexpected", errors.New("socket closed"), false, http.StatusInternalServerError, "Something went wrong!"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := serveError(false, tt.err, tt.bind)

			assert.Equal(t, tt.wantStatus, w.Code)
			body := decodeJSON(t, w)
			assert.Equal(t, false, body["success"])
			assert.Equal(t, tt.wantMsg, body["message"])
		})
	}
}

func TestErrorHandler_DetailsOnlyInDevelopment(t *testing.T) {
	hidden := decodeJSON(t, serveError(false, errors.New("socket closed"), false))
	assert.NotContains(t, hidden, "error")

	shown := decodeJSON(t, serveError(true, errors.New("socket closed"), false))
	assert.Equal(t, "socket closed", shown["error"])
}

func TestErrorHandler_LeavesWrittenResponses(t *testing.T) {
	gin.SetMode(gin.TestMode)
	router := gin.New()
	router.Use(ErrorHandler(false))
	router.GET("/", func(c *gin.Context) {
		c.Error(errors.New("logged only"))
		c.JSON(http.StatusAccepted, gin.H{"queued": true})
	})

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/", nil))

	assert.Equal(t, http.StatusAccepted, w.Code)
	assert.Equal(t, true, decodeJSON(t, w)["queued"])
}

func TestRecovery(t *testing.T) {
	gin.SetMode(gin.TestMode)
	router := gin.New()
	router.Use(Recovery(false))
	router.GET("/", func(c *gin.Context) { panic("boom") })

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/", nil))

	assert.Equal(t, http.StatusInternalServerError, w.Code)
	body := decodeJSON(t, w)
	assert.Equal(t, "Something went wrong!", body["message"])
	assert.NotContains(t, body, "error")
}

func TestBodyLimit(t *testing.T) {
	gin.SetMode(gin.TestMode)
	router := gin.New()
	router.Use(ErrorHandler(false), BodyLimit(16))
	router.POST("/", func(c *gin.Context) {
		var payload map[string]string
		if err := c.ShouldBindJSON(&payload); err != nil {
			c.Error(err).SetType(gin.ErrorTypeBind)
			return
		}
		c.JSON(http.StatusOK, payload)
	})

	post := func(body string) *httptest.ResponseRecorder {
		req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
		w := httptest.NewRecorder()
		router.ServeHTTP(w, req)
		return w
	}

	assert.Equal(t, http.StatusOK, post(`{"a":"b"}`).Code)

	w := post(`{"title":"` + strings.Repeat("x", 64) + `"}`)
	assert.Equal(t, http.StatusRequestEntityTooLarge, w.Code)
}

func TestBodyLimit_Disabled(t *testing.T) {
	gin.SetMode(gin.TestMode)
	router := gin.New()
	router.Use(BodyLimit(0))
	router.POST("/", func(c *gin.Context) {
		raw, err := io.ReadAll(c.Request.Body)
		require.NoError(t, err)
		c.String(http.StatusOK, "%d", len(raw))
	})

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/", strings.NewReader(strings.Repeat("x", 1024))))

	assert.Equal(t, "1024", w.Body.String())
}

func TestRequestLogger_SetsRequestID(t *testing.T) {
	gin.SetMode(gin.TestMode)
	router := gin.New()
	router.Use(RequestLogger())
	router.GET("/", func(c *gin.Context) { c.Status(http.StatusNoContent) })

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/", nil))
	assert.NotEmpty(t, w.Header().Get(RequestIDHeader))

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set(RequestIDHeader, "req-42")
	w = httptest.NewRecorder()
	router.ServeHTTP(w, req)
	assert.Equal(t, "req-42", w.Header().Get(RequestIDHeader))
}
