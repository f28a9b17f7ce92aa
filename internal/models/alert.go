package models

import (
	"math"
	"strings"
	"time"
	"unicode/utf8"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

const (
	MaxTitleLength       = 100
	MaxDescriptionLength = 500
	MaxResolvedNotes     = 500
)

// Enum values are the strings stored in the alerts collection and sent on
// the wire. They are kept as the existing data holds them.
type AlertType string

const (
	AlertTypeMaintenance         AlertType = "Mantenimiento"
	AlertTypeInsuranceExpired    AlertType = "SOAT Vencido"
	AlertTypeTechnicalInspection AlertType = "Revisión Técnica"
	AlertTypeLowStock            AlertType = "Stock Bajo"
	AlertTypeOutOfStock          AlertType = "Sin Stock"
	AlertTypeDamagedTool         AlertType = "Herramienta Dañada"
	AlertTypeVehicleOutOfService AlertType = "Vehículo Fuera de Servicio"
	AlertTypePendingPayment      AlertType = "Pago Pendiente"
	AlertTypeDocumentExpired     AlertType = "Documento Vencido"
	AlertTypeManual              AlertType = "Manual"
	AlertTypeOther               AlertType = "Otro"
)

// AlertTypes lists every accepted alert type in display order.
var AlertTypes = []AlertType{
	AlertTypeMaintenance,
	AlertTypeInsuranceExpired,
	AlertTypeTechnicalInspection,
	AlertTypeLowStock,
	AlertTypeOutOfStock,
	AlertTypeDamagedTool,
	AlertTypeVehicleOutOfService,
	AlertTypePendingPayment,
	AlertTypeDocumentExpired,
	AlertTypeManual,
	AlertTypeOther,
}

func (t AlertType) Valid() bool {
	for _, v := range AlertTypes {
		if v == t {
			return true
		}
	}
	return false
}

type Priority string

const (
	PriorityLow      Priority = "Baja"
	PriorityMedium   Priority = "Media"
	PriorityHigh     Priority = "Alta"
	PriorityCritical Priority = "Crítica"
)

var Priorities = []Priority{PriorityLow, PriorityMedium, PriorityHigh, PriorityCritical}

func (p Priority) Valid() bool {
	switch p {
	case PriorityLow, PriorityMedium, PriorityHigh, PriorityCritical:
		return true
	}
	return false
}

type AlertStatus string

const (
	StatusActive    AlertStatus = "Activa"
	StatusResolved  AlertStatus = "Resuelta"
	StatusDismissed AlertStatus = "Descartada"
)

var AlertStatuses = []AlertStatus{StatusActive, StatusResolved, StatusDismissed}

func (s AlertStatus) Valid() bool {
	switch s {
	case StatusActive, StatusResolved, StatusDismissed:
		return true
	}
	return false
}

// OneOfMessage renders a validation message listing the accepted values.
func OneOfMessage[T ~string](field string, values []T) string {
	names := make([]string, len(values))
	for i, v := range values {
		names[i] = string(v)
	}
	return field + " must be one of: " + strings.Join(names, ", ")
}

// Terminal reports whether no further transition is allowed from s.
func (s AlertStatus) Terminal() bool {
	return s == StatusResolved || s == StatusDismissed
}

// Alert is a condition requiring attention, tied to the entity that raised it.
type Alert struct {
	ID            primitive.ObjectID
	Title         string
	Description   string
	Type          AlertType
	Priority      Priority
	Status        AlertStatus
	Source        SourceRef
	SourceName    string
	DueDate       *time.Time
	ResolvedDate  *time.Time
	ResolvedBy    *primitive.ObjectID
	ResolvedNotes string
	AutoGenerated bool
	Metadata      AlertMetadata
	CreatedBy     primitive.ObjectID
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

// ApplyDefaults fills in priority and status when they were left empty.
func (a *Alert) ApplyDefaults() {
	if a.Priority == "" {
		a.Priority = PriorityMedium
	}
	if a.Status == "" {
		a.Status = StatusActive
	}
}

// Normalize trims surrounding whitespace from the free-text fields.
func (a *Alert) Normalize() {
	a.Title = strings.TrimSpace(a.Title)
	a.Description = strings.TrimSpace(a.Description)
	a.SourceName = strings.TrimSpace(a.SourceName)
	a.ResolvedNotes = strings.TrimSpace(a.ResolvedNotes)
}

// Validate checks required fields, enumerations, lengths and that the
// metadata variant matches the alert type.
func (a *Alert) Validate() error {
	v := &ValidationError{}

	if a.Title == "" {
		v.Add("title", "title is required")
	} else if utf8.RuneCountInString(a.Title) > MaxTitleLength {
		v.Add("title", "title cannot be more than 100 characters")
	}
	if a.Description == "" {
		v.Add("description", "description is required")
	} else if utf8.RuneCountInString(a.Description) > MaxDescriptionLength {
		v.Add("description", "description cannot be more than 500 characters")
	}
	if utf8.RuneCountInString(a.ResolvedNotes) > MaxResolvedNotes {
		v.Add("resolvedNotes", "resolved notes cannot be more than 500 characters")
	}

	if a.Type == "" {
		v.Add("type", "type is required")
	} else if !a.Type.Valid() {
		v.Add("type", "type is not a valid alert type")
	}
	if !a.Priority.Valid() {
		v.Add("priority", OneOfMessage("priority", Priorities))
	}
	if !a.Status.Valid() {
		v.Add("status", OneOfMessage("status", AlertStatuses))
	}

	if a.Source == nil {
		v.Add("sourceType", "sourceType is required")
	} else if a.Source.Type() != SourceManual && a.Source.EntityID().IsZero() {
		v.Add("sourceId", "sourceId is required for "+string(a.Source.Type())+" sources")
	}
	if a.SourceName == "" {
		v.Add("sourceName", "sourceName is required")
	}
	if a.CreatedBy.IsZero() {
		v.Add("createdBy", "createdBy is required")
	}

	if a.Metadata != nil && a.Type.Valid() && a.Metadata.Kind() != MetadataKindFor(a.Type) {
		v.Add("metadata", "metadata does not apply to alert type "+string(a.Type))
	}

	return v.OrNil()
}

// IsOverdue reports whether an active alert's due date has passed at now.
func (a *Alert) IsOverdue(now time.Time) bool {
	if a.Status != StatusActive || a.DueDate == nil {
		return false
	}
	return now.After(*a.DueDate)
}

// DaysUntilDue returns the whole days remaining until the due date, rounded
// up, or nil when the alert is not active or has no due date. The value is
// zero or negative once the alert is overdue.
func (a *Alert) DaysUntilDue(now time.Time) *int {
	if a.Status != StatusActive || a.DueDate == nil {
		return nil
	}
	days := int(math.Ceil(a.DueDate.Sub(now).Hours() / 24))
	return &days
}

// Resolve moves an active alert to resolved. Callers check the transition first.
func (a *Alert) Resolve(by primitive.ObjectID, at time.Time, notes string) {
	a.Status = StatusResolved
	a.ResolvedBy = &by
	a.ResolvedDate = &at
	a.ResolvedNotes = strings.TrimSpace(notes)
	a.UpdatedAt = at
}

// Dismiss moves an active alert to dismissed.
func (a *Alert) Dismiss(at time.Time) {
	a.Status = StatusDismissed
	a.UpdatedAt = at
}
