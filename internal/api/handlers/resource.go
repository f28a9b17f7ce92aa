package handlers

import (
	"context"
	"net/http"
	"time"

	"fleet-equipment-api/internal/repository"
	"fleet-equipment-api/pkg/utils"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// ResourceService is the CRUD behaviour shared by the resource collections.
type ResourceService[T any, P repository.Entity[T]] interface {
	List(ctx context.Context, page, limit int) ([]P, int64, error)
	Get(ctx context.Context, id string) (P, error)
	Create(ctx context.Context, doc P) error
	Update(ctx context.Context, id string, doc P) error
	Delete(ctx context.Context, id string) error
}

// ResourceHandler serves list, get, create, replace and delete for one
// resource collection.
type ResourceHandler[T any, P repository.Entity[T]] struct {
	label     string
	service   ResourceService[T, P]
	validator *validator.Validate
}

// NewResourceHandler builds a handler; label is the plural display name
// used in response messages, e.g. "Vehicles".
func NewResourceHandler[T any, P repository.Entity[T]](label string, service ResourceService[T, P]) *ResourceHandler[T, P] {
	return &ResourceHandler[T, P]{
		label:     label,
		service:   service,
		validator: utils.NewValidator(),
	}
}

// Register mounts the CRUD routes on group.
func (h *ResourceHandler[T, P]) Register(group *gin.RouterGroup) {
	group.GET("", h.List)
	group.POST("", h.Create)
	group.GET("/:id", h.Get)
	group.PUT("/:id", h.Update)
	group.DELETE("/:id", h.Delete)
}

func (h *ResourceHandler[T, P]) List(c *gin.Context) {
	page, limit := utils.ParsePagination(c)

	docs, total, err := h.service.List(c.Request.Context(), page, limit)
	if err != nil {
		c.Error(err)
		return
	}

	utils.PaginatedResponse(c, http.StatusOK, h.label+" retrieved successfully", docs, utils.NewPagination(page, limit, total))
}

func (h *ResourceHandler[T, P]) Get(c *gin.Context) {
	doc, err := h.service.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		c.Error(err)
		return
	}

	utils.SuccessResponse(c, http.StatusOK, h.label+" retrieved successfully", doc)
}

func (h *ResourceHandler[T, P]) Create(c *gin.Context) {
	doc, ok := h.bind(c)
	if !ok {
		return
	}

	if err := h.service.Create(c.Request.Context(), doc); err != nil {
		c.Error(err)
		return
	}

	utils.SuccessResponse(c, http.StatusCreated, h.label+" created successfully", doc)
}

// Update replaces the editable fields of the document.
func (h *ResourceHandler[T, P]) Update(c *gin.Context) {
	doc, ok := h.bind(c)
	if !ok {
		return
	}

	if err := h.service.Update(c.Request.Context(), c.Param("id"), doc); err != nil {
		c.Error(err)
		return
	}

	utils.SuccessResponse(c, http.StatusOK, h.label+" updated successfully", doc)
}

func (h *ResourceHandler[T, P]) Delete(c *gin.Context) {
	if err := h.service.Delete(c.Request.Context(), c.Param("id")); err != nil {
		c.Error(err)
		return
	}

	utils.SuccessResponse(c, http.StatusOK, h.label+" deleted successfully", nil)
}

// bind decodes and validates the request body. Identity and audit fields
// are owned by the server and cleared here.
func (h *ResourceHandler[T, P]) bind(c *gin.Context) (P, bool) {
	doc := P(new(T))
	if err := c.ShouldBindJSON(doc); err != nil {
		c.Error(err).SetType(gin.ErrorTypeBind)
		return nil, false
	}
	if err := h.validator.Struct(doc); err != nil {
		c.Error(err)
		return nil, false
	}

	doc.SetID(primitive.NilObjectID)
	doc.SetCreatedAt(time.Time{})
	return doc, true
}
