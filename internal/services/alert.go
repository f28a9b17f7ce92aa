package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"fleet-equipment-api/internal/models"
	"fleet-equipment-api/internal/repository"
	"fleet-equipment-api/pkg/cache"
	"fleet-equipment-api/pkg/logger"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// ErrInvalidTransition is returned when resolving or dismissing an alert
// that is no longer active.
var ErrInvalidTransition = errors.New("alert is not active")

const statsCacheKey = "alerts:stats"

// Clock supplies the current time. Derived alert fields and audit
// timestamps are computed from it.
type Clock func() time.Time

// AlertStore persists alerts.
type AlertStore interface {
	Create(ctx context.Context, alert *models.Alert) error
	FindByID(ctx context.Context, id primitive.ObjectID) (*models.Alert, error)
	List(ctx context.Context, filter repository.AlertFilter) ([]*models.Alert, int64, error)
	FindBySource(ctx context.Context, source models.SourceRef) ([]*models.Alert, error)
	ExistsActive(ctx context.Context, alertType models.AlertType, source models.SourceRef) (bool, error)
	Update(ctx context.Context, alert *models.Alert) error
	Statistics(ctx context.Context, now time.Time) (*models.AlertStatistics, error)
}

// SourceChecker reports whether the entity behind a source reference exists.
type SourceChecker interface {
	Exists(ctx context.Context, source models.SourceRef) (bool, error)
}

// EventSink receives alert change notifications.
type EventSink interface {
	PublishAlertEvent(ctx context.Context, event models.AlertEvent) error
}

type CreateAlertRequest struct {
	Title       string                `json:"title"`
	Description string                `json:"description"`
	Type        models.AlertType      `json:"type"`
	Priority    models.Priority       `json:"priority"`
	SourceType  string                `json:"sourceType"`
	SourceID    string                `json:"sourceId"`
	SourceName  string                `json:"sourceName"`
	DueDate     *models.Date          `json:"dueDate"`
	Metadata    *models.MetadataInput `json:"metadata"`
}

// UpdateAlertRequest carries the descriptive fields that may be edited.
// Absent fields are left unchanged; a null dueDate clears it.
type UpdateAlertRequest struct {
	Title       *string               `json:"title"`
	Description *string               `json:"description"`
	Priority    *models.Priority      `json:"priority"`
	SourceName  *string               `json:"sourceName"`
	DueDate     models.OptionalDate   `json:"dueDate"`
	Metadata    *models.MetadataInput `json:"metadata"`
	Status      *string               `json:"status"`
}

type ResolveAlertRequest struct {
	ResolvedNotes string       `json:"resolvedNotes"`
	ResolvedDate  *models.Date `json:"resolvedDate"`
}

type AlertService struct {
	store    AlertStore
	sources  SourceChecker
	events   EventSink
	cache    cache.CacheManager
	statsTTL time.Duration
	clock    Clock
}

func NewAlertService(store AlertStore, sources SourceChecker, events EventSink, clock Clock) *AlertService {
	if clock == nil {
		clock = time.Now
	}
	return &AlertService{
		store:   store,
		sources: sources,
		events:  events,
		clock:   clock,
	}
}

// WithStatsCache caches statistics for ttl. Every alert write drops the
// cached value.
func (s *AlertService) WithStatsCache(c cache.CacheManager, ttl time.Duration) *AlertService {
	s.cache = c
	s.statsTTL = ttl
	return s
}

// Now is the clock reading used for responses.
func (s *AlertService) Now() time.Time {
	return s.clock().UTC()
}

func (s *AlertService) CreateAlert(ctx context.Context, req *CreateAlertRequest, createdBy primitive.ObjectID) (*models.Alert, error) {
	now := s.Now()

	alert := &models.Alert{
		Title:       req.Title,
		Description: req.Description,
		Type:        models.AlertType(strings.TrimSpace(string(req.Type))),
		Priority:    req.Priority,
		SourceName:  req.SourceName,
		DueDate:     req.DueDate.Ptr(),
		CreatedBy:   createdBy,
		CreatedAt:   now,
		UpdatedAt:   now,
	}

	v := &models.ValidationError{}
	var sourceErr error
	if strings.TrimSpace(req.SourceType) != "" {
		alert.Source, sourceErr = models.ParseSourceRef(strings.TrimSpace(req.SourceType), strings.TrimSpace(req.SourceID))
		appendValidation(v, sourceErr)
	}
	if alert.Type.Valid() {
		metadata, err := models.BuildMetadata(alert.Type, req.Metadata)
		appendValidation(v, err)
		alert.Metadata = metadata
	}

	alert.Normalize()
	alert.ApplyDefaults()
	if err := alert.Validate(); err != nil {
		appendValidation(v, err, skipSourceFields(sourceErr))
	}
	if err := v.OrNil(); err != nil {
		return nil, err
	}

	if err := s.checkSource(ctx, alert.Source); err != nil {
		return nil, err
	}

	if err := s.store.Create(ctx, alert); err != nil {
		return nil, fmt.Errorf("create alert: %w", err)
	}

	s.afterWrite(ctx, models.AlertCreated, alert, now)
	return alert, nil
}

func (s *AlertService) GetAlert(ctx context.Context, id string) (*models.Alert, error) {
	oid, err := repository.ParseID(id)
	if err != nil {
		return nil, err
	}
	return s.store.FindByID(ctx, oid)
}

// ListAlerts returns one page of alerts and the total match count.
func (s *AlertService) ListAlerts(ctx context.Context, filter repository.AlertFilter) ([]*models.Alert, int64, error) {
	if filter.Now.IsZero() {
		filter.Now = s.Now()
	}
	return s.store.List(ctx, filter)
}

func (s *AlertService) ListAlertsBySource(ctx context.Context, sourceType, sourceID string) ([]*models.Alert, error) {
	source, err := models.ParseSourceRef(sourceType, sourceID)
	if err != nil {
		return nil, err
	}
	return s.store.FindBySource(ctx, source)
}

// UpdateAlert edits the descriptive fields of an alert. Status changes go
// through ResolveAlert and DismissAlert.
func (s *AlertService) UpdateAlert(ctx context.Context, id string, req *UpdateAlertRequest) (*models.Alert, error) {
	if req.Status != nil {
		return nil, models.NewValidationError("status", "status cannot be changed here, use resolve or dismiss")
	}

	alert, err := s.GetAlert(ctx, id)
	if err != nil {
		return nil, err
	}

	if req.Title != nil {
		alert.Title = *req.Title
	}
	if req.Description != nil {
		alert.Description = *req.Description
	}
	if req.Priority != nil {
		alert.Priority = *req.Priority
	}
	if req.SourceName != nil {
		alert.SourceName = *req.SourceName
	}
	if req.DueDate.Set {
		alert.DueDate = req.DueDate.Value
	}
	if req.Metadata != nil {
		metadata, err := models.BuildMetadata(alert.Type, req.Metadata)
		if err != nil {
			return nil, err
		}
		alert.Metadata = metadata
	}

	alert.Normalize()
	if err := alert.Validate(); err != nil {
		return nil, err
	}

	now := s.Now()
	alert.UpdatedAt = now
	if err := s.store.Update(ctx, alert); err != nil {
		return nil, fmt.Errorf("update alert: %w", err)
	}

	s.afterWrite(ctx, models.AlertUpdated, alert, now)
	return alert, nil
}

// ResolveAlert marks an active alert resolved by the given user.
func (s *AlertService) ResolveAlert(ctx context.Context, id string, resolvedBy primitive.ObjectID, req *ResolveAlertRequest) (*models.Alert, error) {
	alert, err := s.GetAlert(ctx, id)
	if err != nil {
		return nil, err
	}
	if alert.Status != models.StatusActive {
		return nil, ErrInvalidTransition
	}

	now := s.Now()
	resolvedAt := now
	if req != nil && req.ResolvedDate != nil {
		resolvedAt = *req.ResolvedDate.Ptr()
	}
	notes := ""
	if req != nil {
		notes = req.ResolvedNotes
	}

	alert.Resolve(resolvedBy, resolvedAt, notes)
	alert.UpdatedAt = now
	if err := alert.Validate(); err != nil {
		return nil, err
	}

	if err := s.store.Update(ctx, alert); err != nil {
		return nil, fmt.Errorf("resolve alert: %w", err)
	}

	s.afterWrite(ctx, models.AlertResolved, alert, now)
	return alert, nil
}

// DismissAlert marks an active alert dismissed.
func (s *AlertService) DismissAlert(ctx context.Context, id string, dismissedBy primitive.ObjectID) (*models.Alert, error) {
	alert, err := s.GetAlert(ctx, id)
	if err != nil {
		return nil, err
	}
	if alert.Status != models.StatusActive {
		return nil, ErrInvalidTransition
	}

	now := s.Now()
	alert.Dismiss(now)
	if err := s.store.Update(ctx, alert); err != nil {
		return nil, fmt.Errorf("dismiss alert: %w", err)
	}

	logger.WithComponent("alerts").WithFields(map[string]interface{}{
		"alertId": alert.ID.Hex(),
		"userId":  dismissedBy.Hex(),
	}).Info("alert dismissed")

	s.afterWrite(ctx, models.AlertDismissed, alert, now)
	return alert, nil
}

func (s *AlertService) GetStatistics(ctx context.Context) (*models.AlertStatistics, error) {
	if s.cache != nil {
		var cached models.AlertStatistics
		found, err := s.cache.Get(ctx, statsCacheKey, &cached)
		if err == nil && found {
			return &cached, nil
		}
	}

	stats, err := s.store.Statistics(ctx, s.Now())
	if err != nil {
		return nil, fmt.Errorf("alert statistics: %w", err)
	}

	if s.cache != nil {
		if err := s.cache.Set(ctx, statsCacheKey, stats, s.statsTTL, cache.TagAlerts); err != nil {
			logger.WithComponent("alerts").WithError(err).Warn("failed to cache alert statistics")
		}
	}
	return stats, nil
}

// RaiseAutomatedAlert stores a system generated alert unless an active one
// of the same type is already open for the source. It reports whether a new
// alert was created.
func (s *AlertService) RaiseAutomatedAlert(ctx context.Context, draft *models.Alert) (*models.Alert, bool, error) {
	exists, err := s.store.ExistsActive(ctx, draft.Type, draft.Source)
	if err != nil {
		return nil, false, fmt.Errorf("check open alerts: %w", err)
	}
	if exists {
		return nil, false, nil
	}

	now := s.Now()
	draft.AutoGenerated = true
	draft.Status = models.StatusActive
	draft.CreatedAt = now
	draft.UpdatedAt = now
	draft.Normalize()
	draft.ApplyDefaults()
	if err := draft.Validate(); err != nil {
		return nil, false, err
	}

	if err := s.store.Create(ctx, draft); err != nil {
		return nil, false, fmt.Errorf("create automated alert: %w", err)
	}

	s.afterWrite(ctx, models.AlertCreated, draft, now)
	return draft, true, nil
}

func (s *AlertService) checkSource(ctx context.Context, source models.SourceRef) error {
	if s.sources == nil || source.Type() == models.SourceManual {
		return nil
	}
	exists, err := s.sources.Exists(ctx, source)
	if err != nil {
		return err
	}
	if !exists {
		return models.NewValidationError("sourceId", "sourceId does not reference an existing "+string(source.Type()))
	}
	return nil
}

// afterWrite drops cached statistics and notifies subscribers. Failures
// here never fail the write.
func (s *AlertService) afterWrite(ctx context.Context, kind models.AlertEventKind, alert *models.Alert, now time.Time) {
	log := logger.WithComponent("alerts").WithField("alertId", alert.ID.Hex())

	if s.cache != nil {
		if err := s.cache.InvalidateByTag(ctx, cache.TagAlerts); err != nil {
			log.WithError(err).Warn("failed to invalidate alert cache")
		}
	}

	if s.events == nil {
		return
	}
	event := models.AlertEvent{
		Event:     kind,
		Alert:     alert.ToResponse(now),
		Timestamp: now,
	}
	if err := s.events.PublishAlertEvent(ctx, event); err != nil {
		log.WithError(err).WithField("event", kind).Warn("failed to publish alert event")
	}
}

// appendValidation copies field errors from err into v, skipping fields
// rejected by skip.
func appendValidation(v *models.ValidationError, err error, skip ...func(string) bool) {
	if err == nil {
		return
	}
	var ve *models.ValidationError
	if !errors.As(err, &ve) {
		v.Add("", err.Error())
		return
	}
	for _, f := range ve.Fields {
		skipped := false
		for _, fn := range skip {
			if fn(f.Field) {
				skipped = true
			}
		}
		if !skipped {
			v.Add(f.Field, f.Message)
		}
	}
}

// skipSourceFields drops the generic source messages when the source
// reference itself was already rejected.
func skipSourceFields(sourceErr error) func(string) bool {
	return func(field string) bool {
		return sourceErr != nil && (field == "sourceType" || field == "sourceId")
	}
}
