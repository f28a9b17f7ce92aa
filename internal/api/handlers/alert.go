package handlers

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"fleet-equipment-api/internal/api/middleware"
	"fleet-equipment-api/internal/models"
	"fleet-equipment-api/internal/repository"
	"fleet-equipment-api/internal/services"
	"fleet-equipment-api/pkg/utils"

	"github.com/gin-gonic/gin"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// AlertService is the alert behaviour the HTTP layer depends on.
type AlertService interface {
	Now() time.Time
	CreateAlert(ctx context.Context, req *services.CreateAlertRequest, createdBy primitive.ObjectID) (*models.Alert, error)
	GetAlert(ctx context.Context, id string) (*models.Alert, error)
	ListAlerts(ctx context.Context, filter repository.AlertFilter) ([]*models.Alert, int64, error)
	ListAlertsBySource(ctx context.Context, sourceType, sourceID string) ([]*models.Alert, error)
	UpdateAlert(ctx context.Context, id string, req *services.UpdateAlertRequest) (*models.Alert, error)
	ResolveAlert(ctx context.Context, id string, resolvedBy primitive.ObjectID, req *services.ResolveAlertRequest) (*models.Alert, error)
	DismissAlert(ctx context.Context, id string, dismissedBy primitive.ObjectID) (*models.Alert, error)
	GetStatistics(ctx context.Context) (*models.AlertStatistics, error)
}

type AlertHandler struct {
	alertService AlertService
}

func NewAlertHandler(alertService AlertService) *AlertHandler {
	return &AlertHandler{
		alertService: alertService,
	}
}

// GetAlerts lists alerts matching the query filters, newest first unless
// sort=dueDate is given.
func (h *AlertHandler) GetAlerts(c *gin.Context) {
	filter, err := parseAlertFilter(c, h.alertService.Now())
	if err != nil {
		c.Error(err)
		return
	}

	alerts, total, err := h.alertService.ListAlerts(c.Request.Context(), filter)
	if err != nil {
		c.Error(err)
		return
	}

	utils.PaginatedResponse(c, http.StatusOK, "Alerts retrieved successfully",
		models.ToAlertResponses(alerts, filter.Now), utils.NewPagination(filter.Page, filter.Limit, total))
}

func (h *AlertHandler) GetStatistics(c *gin.Context) {
	stats, err := h.alertService.GetStatistics(c.Request.Context())
	if err != nil {
		c.Error(err)
		return
	}

	utils.SuccessResponse(c, http.StatusOK, "Alert statistics retrieved successfully", stats)
}

func (h *AlertHandler) GetAlertsBySource(c *gin.Context) {
	alerts, err := h.alertService.ListAlertsBySource(c.Request.Context(), c.Param("sourceType"), c.Param("sourceId"))
	if err != nil {
		c.Error(err)
		return
	}

	utils.SuccessResponse(c, http.StatusOK, "Alerts retrieved successfully", models.ToAlertResponses(alerts, h.alertService.Now()))
}

func (h *AlertHandler) GetAlert(c *gin.Context) {
	alert, err := h.alertService.GetAlert(c.Request.Context(), c.Param("id"))
	if err != nil {
		c.Error(err)
		return
	}

	utils.SuccessResponse(c, http.StatusOK, "Alert retrieved successfully", alert.ToResponse(h.alertService.Now()))
}

func (h *AlertHandler) CreateAlert(c *gin.Context) {
	userID, ok := middleware.CurrentUserID(c)
	if !ok {
		utils.ErrorResponse(c, http.StatusUnauthorized, "User not authenticated", nil)
		return
	}

	var req services.CreateAlertRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.Error(err).SetType(gin.ErrorTypeBind)
		return
	}

	alert, err := h.alertService.CreateAlert(c.Request.Context(), &req, userID)
	if err != nil {
		c.Error(err)
		return
	}

	utils.SuccessResponse(c, http.StatusCreated, "Alert created successfully", alert.ToResponse(h.alertService.Now()))
}

func (h *AlertHandler) UpdateAlert(c *gin.Context) {
	var req services.UpdateAlertRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.Error(err).SetType(gin.ErrorTypeBind)
		return
	}

	alert, err := h.alertService.UpdateAlert(c.Request.Context(), c.Param("id"), &req)
	if err != nil {
		c.Error(err)
		return
	}

	utils.SuccessResponse(c, http.StatusOK, "Alert updated successfully", alert.ToResponse(h.alertService.Now()))
}

// ResolveAlert marks an alert resolved. The resolver is always the
// authenticated user; the body may carry notes and a resolution date.
func (h *AlertHandler) ResolveAlert(c *gin.Context) {
	userID, ok := middleware.CurrentUserID(c)
	if !ok {
		utils.ErrorResponse(c, http.StatusUnauthorized, "User not authenticated", nil)
		return
	}

	var req services.ResolveAlertRequest
	if c.Request.ContentLength != 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			c.Error(err).SetType(gin.ErrorTypeBind)
			return
		}
	}

	alert, err := h.alertService.ResolveAlert(c.Request.Context(), c.Param("id"), userID, &req)
	if err != nil {
		c.Error(err)
		return
	}

	utils.SuccessResponse(c, http.StatusOK, "Alert resolved successfully", alert.ToResponse(h.alertService.Now()))
}

func (h *AlertHandler) DismissAlert(c *gin.Context) {
	userID, ok := middleware.CurrentUserID(c)
	if !ok {
		utils.ErrorResponse(c, http.StatusUnauthorized, "User not authenticated", nil)
		return
	}

	alert, err := h.alertService.DismissAlert(c.Request.Context(), c.Param("id"), userID)
	if err != nil {
		c.Error(err)
		return
	}

	utils.SuccessResponse(c, http.StatusOK, "Alert dismissed successfully", alert.ToResponse(h.alertService.Now()))
}

func parseAlertFilter(c *gin.Context, now time.Time) (repository.AlertFilter, error) {
	page, limit := utils.ParsePagination(c)
	filter := repository.AlertFilter{
		Status:   models.AlertStatus(c.Query("status")),
		Type:     models.AlertType(c.Query("type")),
		Priority: models.Priority(c.Query("priority")),
		Now:      now,
		Sort:     c.Query("sort"),
		Page:     page,
		Limit:    limit,
	}

	v := &models.ValidationError{}
	if filter.Status != "" && !filter.Status.Valid() {
		v.Add("status", models.OneOfMessage("status", models.AlertStatuses))
	}
	if filter.Type != "" && !filter.Type.Valid() {
		v.Add("type", "type is not a valid alert type")
	}
	if filter.Priority != "" && !filter.Priority.Valid() {
		v.Add("priority", models.OneOfMessage("priority", models.Priorities))
	}
	if filter.Sort != "" && filter.Sort != repository.SortNewest && filter.Sort != repository.SortDueDate {
		v.Add("sort", "sort must be one of: newest dueDate")
	}

	if sourceType := c.Query("sourceType"); sourceType != "" {
		if sourceID := c.Query("sourceId"); sourceID != "" {
			source, err := models.ParseSourceRef(sourceType, sourceID)
			if err != nil {
				return filter, err
			}
			filter.Source = source
		} else if st := models.SourceType(sourceType); st.Valid() {
			filter.SourceType = st
		} else {
			v.Add("sourceType", models.OneOfMessage("sourceType", models.SourceTypes))
		}
	}

	if raw := c.Query("autoGenerated"); raw != "" {
		auto, err := strconv.ParseBool(raw)
		if err != nil {
			v.Add("autoGenerated", "autoGenerated must be true or false")
		} else {
			filter.AutoGenerated = &auto
		}
	}
	// overdue and dueSoon only ever match active alerts
	activeOnly := !filter.Status.Valid() || filter.Status == models.StatusActive
	if c.Query("overdue") == "true" {
		if !activeOnly {
			v.Add("overdue", "overdue cannot be combined with status "+string(filter.Status))
		}
		filter.Overdue = true
	}
	if c.Query("dueSoon") == "true" {
		if !activeOnly {
			v.Add("dueSoon", "dueSoon cannot be combined with status "+string(filter.Status))
		}
		dueBefore := now.Add(repository.DueSoonWindow)
		filter.DueBefore = &dueBefore
		filter.Status = models.StatusActive
	}
	if c.Query("mine") == "true" {
		if userID, ok := middleware.CurrentUserID(c); ok {
			filter.CreatedBy = &userID
		}
	}

	return filter, v.OrNil()
}
