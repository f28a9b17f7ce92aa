package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"fleet-equipment-api/internal/api/middleware"
	"fleet-equipment-api/internal/models"
	"fleet-equipment-api/internal/repository"
	"fleet-equipment-api/internal/services"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

var handlerNow = time.Date(2025, 3, 10, 9, 0, 0, 0, time.UTC)

type MockAlertService struct {
	mock.Mock
}

func (m *MockAlertService) Now() time.Time {
	return handlerNow
}

func (m *MockAlertService) CreateAlert(ctx context.Context, req *services.CreateAlertRequest, createdBy primitive.ObjectID) (*models.Alert, error) {
	args := m.Called(ctx, req, createdBy)
	return alertOrNil(args.Get(0)), args.Error(1)
}

func (m *MockAlertService) GetAlert(ctx context.Context, id string) (*models.Alert, error) {
	args := m.Called(ctx, id)
	return alertOrNil(args.Get(0)), args.Error(1)
}

func (m *MockAlertService) ListAlerts(ctx context.Context, filter repository.AlertFilter) ([]*models.Alert, int64, error) {
	args := m.Called(ctx, filter)
	return args.Get(0).([]*models.Alert), args.Get(1).(int64), args.Error(2)
}

func (m *MockAlertService) ListAlertsBySource(ctx context.Context, sourceType, sourceID string) ([]*models.Alert, error) {
	args := m.Called(ctx, sourceType, sourceID)
	return args.Get(0).([]*models.Alert), args.Error(1)
}

func (m *MockAlertService) UpdateAlert(ctx context.Context, id string, req *services.UpdateAlertRequest) (*models.Alert, error) {
	args := m.Called(ctx, id, req)
	return alertOrNil(args.Get(0)), args.Error(1)
}

func (m *MockAlertService) ResolveAlert(ctx context.Context, id string, resolvedBy primitive.ObjectID, req *services.ResolveAlertRequest) (*models.Alert, error) {
	args := m.Called(ctx, id, resolvedBy, req)
	return alertOrNil(args.Get(0)), args.Error(1)
}

func (m *MockAlertService) DismissAlert(ctx context.Context, id string, dismissedBy primitive.ObjectID) (*models.Alert, error) {
	args := m.Called(ctx, id, dismissedBy)
	return alertOrNil(args.Get(0)), args.Error(1)
}

func (m *MockAlertService) GetStatistics(ctx context.Context) (*models.AlertStatistics, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.AlertStatistics), args.Error(1)
}

func alertOrNil(v interface{}) *models.Alert {
	if v == nil {
		return nil
	}
	return v.(*models.Alert)
}

// withUser mimics AuthMiddleware for handler tests.
func withUser(userID primitive.ObjectID) gin.HandlerFunc {
	return func(c *gin.Context) {
		if !userID.IsZero() {
			c.Set(middleware.ContextUserID, userID.Hex())
		}
		c.Next()
	}
}

func newAlertRouter(svc AlertService, userID primitive.ObjectID) *gin.Engine {
	gin.SetMode(gin.TestMode)
	router := gin.New()
	router.Use(middleware.ErrorHandler(false), withUser(userID))

	h := NewAlertHandler(svc)
	alerts := router.Group("/api/alerts")
	alerts.GET("", h.GetAlerts)
	alerts.GET("/stats", h.GetStatistics)
	alerts.GET("/source/:sourceType/:sourceId", h.GetAlertsBySource)
	alerts.GET("/:id", h.GetAlert)
	alerts.POST("", h.CreateAlert)
	alerts.PUT("/:id", h.UpdateAlert)
	alerts.PUT("/:id/resolve", h.ResolveAlert)
	alerts.PUT("/:id/dismiss", h.DismissAlert)
	return router
}

func sampleAlert() *models.Alert {
	due := handlerNow.Add(-48 * time.Hour)
	return &models.Alert{
		ID:          primitive.NewObjectID(),
		Title:       "Mantenimiento programado",
		Description: "Cambio de aceite",
		Type:        models.AlertTypeMaintenance,
		Priority:    models.PriorityHigh,
		Status:      models.StatusActive,
		Source:      models.VehicleSource{ID: models.VehicleID(primitive.NewObjectID())},
		SourceName:  "Camión 12",
		DueDate:     &due,
		CreatedBy:   primitive.NewObjectID(),
		CreatedAt:   handlerNow.Add(-72 * time.Hour),
		UpdatedAt:   handlerNow.Add(-72 * time.Hour),
	}
}

func perform(router http.Handler, method, path string, body interface{}) *httptest.ResponseRecorder {
	var reader *bytes.Reader
	switch b := body.(type) {
	case nil:
		reader = bytes.NewReader(nil)
	case string:
		reader = bytes.NewReader([]byte(b))
	default:
		raw, _ := json.Marshal(b)
		reader = bytes.NewReader(raw)
	}

	req := httptest.NewRequest(method, path, reader)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func decodeBody(t *testing.T, w *httptest.ResponseRecorder) map[string]interface{} {
	t.Helper()
	var body map[string]interface{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	return body
}

func TestGetAlerts_AppliesFiltersAndPagination(t *testing.T) {
	svc := new(MockAlertService)
	alert := sampleAlert()
	svc.On("ListAlerts", mock.Anything, mock.MatchedBy(func(f repository.AlertFilter) bool {
		return f.Status == models.StatusActive &&
			f.Priority == models.PriorityHigh &&
			f.SourceType == models.SourceVehicle &&
			f.Sort == repository.SortDueDate &&
			f.Page == 2 && f.Limit == 5 &&
			f.Now.Equal(handlerNow)
	})).Return([]*models.Alert{alert}, int64(11), nil)

	w := perform(newAlertRouter(svc, primitive.NilObjectID), http.MethodGet,
		"/api/alerts?status=Activa&priority=Alta&sourceType=Vehicle&sort=dueDate&page=2&limit=5", nil)

	require.Equal(t, http.StatusOK, w.Code)
	body := decodeBody(t, w)
	assert.Equal(t, true, body["success"])

	pagination := body["pagination"].(map[string]interface{})
	assert.Equal(t, float64(11), pagination["total"])
	assert.Equal(t, float64(3), pagination["totalPages"])

	data := body["data"].([]interface{})
	require.Len(t, data, 1)
	first := data[0].(map[string]interface{})
	assert.Equal(t, alert.ID.Hex(), first["id"])
	assert.Equal(t, "Vehicle", first["sourceType"])
	assert.Equal(t, true, first["isOverdue"])
	assert.Equal(t, float64(-2), first["daysUntilDue"])
	svc.AssertExpectations(t)
}

func TestGetAlerts_RejectsInvalidFilters(t *testing.T) {
	svc := new(MockAlertService)

	w := perform(newAlertRouter(svc, primitive.NilObjectID), http.MethodGet,
		"/api/alerts?status=open&priority=urgent&sort=oldest", nil)

	assert.Equal(t, http.StatusBadRequest, w.Code)
	body := decodeBody(t, w)
	assert.Equal(t, "Validation failed", body["message"])
	assert.ElementsMatch(t, []interface{}{
		"status must be one of: Activa, Resuelta, Descartada",
		"priority must be one of: Baja, Media, Alta, Crítica",
		"sort must be one of: newest dueDate",
	}, body["error"])
	svc.AssertNotCalled(t, "ListAlerts", mock.Anything, mock.Anything)
}

func TestGetAlerts_OverdueOnlyForActive(t *testing.T) {
	svc := new(MockAlertService)
	router := newAlertRouter(svc, primitive.NilObjectID)

	for _, query := range []string{"status=Resuelta&overdue=true", "status=Descartada&dueSoon=true"} {
		w := perform(router, http.MethodGet, "/api/alerts?"+query, nil)
		assert.Equal(t, http.StatusBadRequest, w.Code, query)
		assert.Equal(t, "Validation failed", decodeBody(t, w)["message"], query)
	}
	svc.AssertNotCalled(t, "ListAlerts", mock.Anything, mock.Anything)

	svc.On("ListAlerts", mock.Anything, mock.MatchedBy(func(f repository.AlertFilter) bool {
		return f.Overdue && f.Status == models.StatusActive
	})).Return([]*models.Alert{}, int64(0), nil)

	w := perform(router, http.MethodGet, "/api/alerts?status=Activa&overdue=true", nil)
	assert.Equal(t, http.StatusOK, w.Code)
	svc.AssertExpectations(t)
}

func TestGetAlerts_DueSoonAndMine(t *testing.T) {
	svc := new(MockAlertService)
	userID := primitive.NewObjectID()
	svc.On("ListAlerts", mock.Anything, mock.MatchedBy(func(f repository.AlertFilter) bool {
		return f.Status == models.StatusActive &&
			f.DueBefore != nil && f.DueBefore.Equal(handlerNow.Add(repository.DueSoonWindow)) &&
			f.CreatedBy != nil && *f.CreatedBy == userID
	})).Return([]*models.Alert{}, int64(0), nil)

	w := perform(newAlertRouter(svc, userID), http.MethodGet, "/api/alerts?dueSoon=true&mine=true", nil)

	assert.Equal(t, http.StatusOK, w.Code)
	svc.AssertExpectations(t)
}

func TestGetAlerts_SpecificSource(t *testing.T) {
	svc := new(MockAlertService)
	toolID := primitive.NewObjectID()
	svc.On("ListAlerts", mock.Anything, mock.MatchedBy(func(f repository.AlertFilter) bool {
		return f.Source == models.ToolSource{ID: models.ToolID(toolID)} && f.AutoGenerated != nil && *f.AutoGenerated
	})).Return([]*models.Alert{}, int64(0), nil)

	w := perform(newAlertRouter(svc, primitive.NilObjectID), http.MethodGet,
		"/api/alerts?sourceType=tool&sourceId="+toolID.Hex()+"&autoGenerated=true", nil)

	assert.Equal(t, http.StatusOK, w.Code)
	svc.AssertExpectations(t)
}

func TestGetAlert_ErrorMapping(t *testing.T) {
	tests := []struct {
		name       string
		err        error
		wantStatus int
		wantMsg    string
	}{
		{"not found", repository.ErrNotFound, http.StatusNotFound, "Resource not found"},
		{"malformed id", repository.ErrInvalidID, http.StatusBadRequest, "Invalid id"},
		{"unexpected", errors.New("connection reset"), http.StatusInternalServerError, "Something went wrong!"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := new(MockAlertService)
			svc.On("GetAlert", mock.Anything, "abc").Return(nil, tt.err)

			w := perform(newAlertRouter(svc, primitive.NilObjectID), http.MethodGet, "/api/alerts/abc", nil)

			assert.Equal(t, tt.wantStatus, w.Code)
			body := decodeBody(t, w)
			assert.Equal(t, tt.wantMsg, body["message"])
			assert.NotContains(t, body, "error", "internal details stay hidden outside development")
		})
	}
}

func TestCreateAlert_Success(t *testing.T) {
	svc := new(MockAlertService)
	userID := primitive.NewObjectID()
	alert := sampleAlert()
	alert.CreatedBy = userID

	svc.On("CreateAlert", mock.Anything, mock.MatchedBy(func(req *services.CreateAlertRequest) bool {
		return req.Title == alert.Title && req.Type == models.AlertTypeMaintenance && req.SourceType == "Vehicle" &&
			req.DueDate != nil && req.DueDate.Equal(time.Date(2025, 3, 20, 0, 0, 0, 0, time.UTC))
	}), userID).Return(alert, nil)

	w := perform(newAlertRouter(svc, userID), http.MethodPost, "/api/alerts", map[string]interface{}{
		"title":      alert.Title,
		"type":       "Mantenimiento",
		"sourceType": "Vehicle",
		"sourceId":   alert.Source.EntityID().Hex(),
		"sourceName": alert.SourceName,
		"dueDate":    "2025-03-20",
	})

	require.Equal(t, http.StatusCreated, w.Code)
	body := decodeBody(t, w)
	assert.Equal(t, "Alert created successfully", body["message"])
	data := body["data"].(map[string]interface{})
	assert.Equal(t, userID.Hex(), data["createdBy"])
	svc.AssertExpectations(t)
}

func TestCreateAlert_MalformedBody(t *testing.T) {
	svc := new(MockAlertService)

	w := perform(newAlertRouter(svc, primitive.NewObjectID()), http.MethodPost, "/api/alerts", `{"title":`)

	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "Invalid request format", decodeBody(t, w)["message"])
	svc.AssertNotCalled(t, "CreateAlert", mock.Anything, mock.Anything, mock.Anything)
}

func TestCreateAlert_ValidationFailure(t *testing.T) {
	svc := new(MockAlertService)
	userID := primitive.NewObjectID()
	verr := models.NewValidationError("title", "title is required")
	verr.Add("sourceId", "sourceId is required for vehicle sources")
	svc.On("CreateAlert", mock.Anything, mock.Anything, userID).Return(nil, verr)

	w := perform(newAlertRouter(svc, userID), http.MethodPost, "/api/alerts", map[string]interface{}{"sourceType": "Vehicle"})

	assert.Equal(t, http.StatusBadRequest, w.Code)
	body := decodeBody(t, w)
	assert.Equal(t, "Validation failed", body["message"])
	assert.Len(t, body["error"], 2)
}

func TestCreateAlert_RequiresUser(t *testing.T) {
	svc := new(MockAlertService)

	w := perform(newAlertRouter(svc, primitive.NilObjectID), http.MethodPost, "/api/alerts", map[string]interface{}{"title": "x"})

	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestUpdateAlert_PassesPartialFields(t *testing.T) {
	svc := new(MockAlertService)
	alert := sampleAlert()
	alert.Priority = models.PriorityCritical

	svc.On("UpdateAlert", mock.Anything, alert.ID.Hex(), mock.MatchedBy(func(req *services.UpdateAlertRequest) bool {
		return req.Priority != nil && *req.Priority == models.PriorityCritical && req.Title == nil
	})).Return(alert, nil)

	w := perform(newAlertRouter(svc, primitive.NewObjectID()), http.MethodPut, "/api/alerts/"+alert.ID.Hex(),
		map[string]interface{}{"priority": "Crítica"})

	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "Crítica", decodeBody(t, w)["data"].(map[string]interface{})["priority"])
	svc.AssertExpectations(t)
}

func TestUpdateAlert_NullDueDateClears(t *testing.T) {
	svc := new(MockAlertService)
	alert := sampleAlert()
	alert.DueDate = nil

	svc.On("UpdateAlert", mock.Anything, alert.ID.Hex(), mock.MatchedBy(func(req *services.UpdateAlertRequest) bool {
		return req.DueDate.Set && req.DueDate.Value == nil
	})).Return(alert, nil)

	w := perform(newAlertRouter(svc, primitive.NewObjectID()), http.MethodPut, "/api/alerts/"+alert.ID.Hex(), `{"dueDate":null}`)

	require.Equal(t, http.StatusOK, w.Code)
	data := decodeBody(t, w)["data"].(map[string]interface{})
	assert.Nil(t, data["dueDate"])
	assert.Nil(t, data["daysUntilDue"])
	svc.AssertExpectations(t)
}

func TestResolveAlert_WithoutBody(t *testing.T) {
	svc := new(MockAlertService)
	userID := primitive.NewObjectID()
	alert := sampleAlert()
	resolvedAt := handlerNow
	alert.Status = models.StatusResolved
	alert.ResolvedBy = &userID
	alert.ResolvedDate = &resolvedAt

	svc.On("ResolveAlert", mock.Anything, alert.ID.Hex(), userID, &services.ResolveAlertRequest{}).Return(alert, nil)

	w := perform(newAlertRouter(svc, userID), http.MethodPut, "/api/alerts/"+alert.ID.Hex()+"/resolve", nil)

	require.Equal(t, http.StatusOK, w.Code)
	data := decodeBody(t, w)["data"].(map[string]interface{})
	assert.Equal(t, "Resuelta", data["status"])
	assert.Equal(t, userID.Hex(), data["resolvedBy"])
	assert.Equal(t, false, data["isOverdue"])
	assert.Nil(t, data["daysUntilDue"])
	svc.AssertExpectations(t)
}

func TestResolveAlert_WithNotes(t *testing.T) {
	svc := new(MockAlertService)
	userID := primitive.NewObjectID()
	alert := sampleAlert()

	svc.On("ResolveAlert", mock.Anything, alert.ID.Hex(), userID, mock.MatchedBy(func(req *services.ResolveAlertRequest) bool {
		return req.ResolvedNotes == "Repuesto instalado"
	})).Return(alert, nil)

	w := perform(newAlertRouter(svc, userID), http.MethodPut, "/api/alerts/"+alert.ID.Hex()+"/resolve",
		map[string]interface{}{"resolvedNotes": "Repuesto instalado"})

	assert.Equal(t, http.StatusOK, w.Code)
	svc.AssertExpectations(t)
}

func TestResolveAlert_NotActive(t *testing.T) {
	svc := new(MockAlertService)
	userID := primitive.NewObjectID()
	svc.On("ResolveAlert", mock.Anything, "a1", userID, mock.Anything).Return(nil, services.ErrInvalidTransition)

	w := perform(newAlertRouter(svc, userID), http.MethodPut, "/api/alerts/a1/resolve", nil)

	assert.Equal(t, http.StatusConflict, w.Code)
}

func TestDismissAlert(t *testing.T) {
	svc := new(MockAlertService)
	userID := primitive.NewObjectID()
	alert := sampleAlert()
	alert.Status = models.StatusDismissed
	svc.On("DismissAlert", mock.Anything, alert.ID.Hex(), userID).Return(alert, nil)

	w := perform(newAlertRouter(svc, userID), http.MethodPut, "/api/alerts/"+alert.ID.Hex()+"/dismiss", nil)

	require.Equal(t, http.StatusOK, w.Code)
	body := decodeBody(t, w)
	assert.Equal(t, "Alert dismissed successfully", body["message"])
	assert.Equal(t, "Descartada", body["data"].(map[string]interface{})["status"])
}

func TestGetStatistics(t *testing.T) {
	svc := new(MockAlertService)
	svc.On("GetStatistics", mock.Anything).Return(&models.AlertStatistics{
		Total:      4,
		ByStatus:   map[models.AlertStatus]int64{models.StatusActive: 3, models.StatusResolved: 1},
		ByPriority: map[models.Priority]int64{models.PriorityHigh: 4},
		ByType:     map[models.AlertType]int64{models.AlertTypeLowStock: 4},
		Overdue:    1,
		DueSoon:    2,
	}, nil)

	w := perform(newAlertRouter(svc, primitive.NilObjectID), http.MethodGet, "/api/alerts/stats", nil)

	require.Equal(t, http.StatusOK, w.Code)
	data := decodeBody(t, w)["data"].(map[string]interface{})
	assert.Equal(t, float64(4), data["total"])
	assert.Equal(t, float64(3), data["byStatus"].(map[string]interface{})["Activa"])
	assert.Equal(t, float64(2), data["dueSoon"])
}

func TestGetAlertsBySource(t *testing.T) {
	svc := new(MockAlertService)
	partID := primitive.NewObjectID().Hex()
	svc.On("ListAlertsBySource", mock.Anything, "Part", partID).Return([]*models.Alert{sampleAlert(), sampleAlert()}, nil)

	w := perform(newAlertRouter(svc, primitive.NilObjectID), http.MethodGet, "/api/alerts/source/part/"+partID, nil)

	require.Equal(t, http.StatusOK, w.Code)
	assert.Len(t, decodeBody(t, w)["data"], 2)
	svc.AssertExpectations(t)
}
