package utils

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fieldErrs []string

func (f fieldErrs) Error() string           { return "invalid" }
func (f fieldErrs) FieldMessages() []string { return f }

func decode(t *testing.T, w *httptest.ResponseRecorder) map[string]interface{} {
	var body map[string]interface{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	return body
}

func TestValidationErrorResponse_ValidatorErrors(t *testing.T) {
	gin.SetMode(gin.TestMode)
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)

	req := struct {
		Title    string `json:"title" validate:"required,max=5"`
		Priority string `json:"priority" validate:"omitempty,oneof=low high"`
	}{Title: "too long title", Priority: "urgent"}

	err := NewValidator().Struct(req)
	require.Error(t, err)
	ValidationErrorResponse(c, err)

	assert.Equal(t, http.StatusBadRequest, w.Code)
	body := decode(t, w)
	assert.Equal(t, false, body["success"])
	assert.Equal(t, "Validation failed", body["message"])
	assert.ElementsMatch(t, []interface{}{
		"title cannot be more than 5 characters",
		"priority must be one of: low high",
	}, body["error"])
}

func TestValidationErrorResponse_DomainErrors(t *testing.T) {
	gin.SetMode(gin.TestMode)
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)

	ValidationErrorResponse(c, fmtWrap(fieldErrs{"type is not a valid alert type"}))

	body := decode(t, w)
	assert.Equal(t, []interface{}{"type is not a valid alert type"}, body["error"])
}

func TestErrorResponse_OmitsNilError(t *testing.T) {
	gin.SetMode(gin.TestMode)
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)

	ErrorResponse(c, http.StatusNotFound, "Alert not found", nil)

	body := decode(t, w)
	assert.Equal(t, "Alert not found", body["message"])
	_, hasError := body["error"]
	assert.False(t, hasError)
}

func TestParsePagination(t *testing.T) {
	gin.SetMode(gin.TestMode)

	tests := []struct {
		query       string
		page, limit int
	}{
		{"", 1, DefaultPageSize},
		{"?page=3&limit=10", 3, 10},
		{"?page=-1&limit=0", 1, DefaultPageSize},
		{"?page=abc&limit=1000", 1, MaxPageSize},
	}

	for _, tt := range tests {
		w := httptest.NewRecorder()
		c, _ := gin.CreateTestContext(w)
		c.Request = httptest.NewRequest(http.MethodGet, "/api/alerts"+tt.query, nil)

		page, limit := ParsePagination(c)
		assert.Equal(t, tt.page, page, tt.query)
		assert.Equal(t, tt.limit, limit, tt.query)
	}
}

func TestNewPagination(t *testing.T) {
	p := NewPagination(2, 20, 41)
	assert.Equal(t, 3, p.TotalPages)

	p = NewPagination(1, 20, 0)
	assert.Equal(t, 0, p.TotalPages)
}

func fmtWrap(err error) error {
	return fmt.Errorf("create alert: %w", err)
}
