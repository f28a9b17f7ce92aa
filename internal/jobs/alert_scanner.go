package jobs

import (
	"context"
	"errors"
	"fmt"
	"time"

	"fleet-equipment-api/internal/models"
	"fleet-equipment-api/pkg/logger"

	"github.com/sirupsen/logrus"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

const (
	// MaintenanceWindow is how far ahead a scheduled maintenance raises an alert.
	MaintenanceWindow = 7 * 24 * time.Hour
	// InspectionWindow is how far ahead a technical inspection expiry raises an alert.
	InspectionWindow = 15 * 24 * time.Hour
)

// Finder loads the documents of one collection matching a filter.
type Finder[P any] interface {
	FindAll(ctx context.Context, filter bson.M) ([]P, error)
}

// AlertRaiser stores automated alerts, skipping ones already open.
type AlertRaiser interface {
	RaiseAutomatedAlert(ctx context.Context, draft *models.Alert) (*models.Alert, bool, error)
}

// Sources groups the collections the scanner reads.
type Sources struct {
	Parts     Finder[*models.Part]
	Vehicles  Finder[*models.Vehicle]
	Machinery Finder[*models.Machinery]
	Tools     Finder[*models.Tool]
	Rentals   Finder[*models.Rental]
}

// ScanResult summarizes one scanner run.
type ScanResult struct {
	Candidates int `json:"candidates"`
	Raised     int `json:"raised"`
	Skipped    int `json:"skipped"`
	Failed     int `json:"failed"`
}

// AlertScanner inspects resource collections and raises alerts for the
// conditions that need attention.
type AlertScanner struct {
	sources    Sources
	alerts     AlertRaiser
	systemUser primitive.ObjectID
	now        func() time.Time
	log        *logrus.Entry
}

func NewAlertScanner(sources Sources, alerts AlertRaiser, systemUser primitive.ObjectID, now func() time.Time) *AlertScanner {
	if now == nil {
		now = time.Now
	}
	return &AlertScanner{
		sources:    sources,
		alerts:     alerts,
		systemUser: systemUser,
		now:        now,
		log:        logger.WithComponent("alert-scanner"),
	}
}

// Scan runs every rule once. A failing collection does not stop the others;
// their errors are joined in the result.
func (s *AlertScanner) Scan(ctx context.Context) (ScanResult, error) {
	now := s.now().UTC()
	var result ScanResult
	var errs []error

	collect := func(name string, drafts []*models.Alert, err error) {
		if err != nil {
			errs = append(errs, fmt.Errorf("scan %s: %w", name, err))
			return
		}
		s.raise(ctx, drafts, &result)
	}

	if s.sources.Parts != nil {
		drafts, err := scanEach(ctx, s.sources.Parts, lowStockFilter(), PartAlerts)
		collect("parts", drafts, err)
	}
	if s.sources.Vehicles != nil {
		drafts, err := scanEach(ctx, s.sources.Vehicles, bson.M{}, func(v *models.Vehicle) []*models.Alert {
			return VehicleAlerts(v, now)
		})
		collect("vehicles", drafts, err)
	}
	if s.sources.Machinery != nil {
		filter := bson.M{"nextMaintenanceDate": bson.M{"$lte": now.Add(MaintenanceWindow)}}
		drafts, err := scanEach(ctx, s.sources.Machinery, filter, func(m *models.Machinery) []*models.Alert {
			return MachineryAlerts(m, now)
		})
		collect("machinery", drafts, err)
	}
	if s.sources.Tools != nil {
		drafts, err := scanEach(ctx, s.sources.Tools, bson.M{"status": models.ToolDamaged}, ToolAlerts)
		collect("tools", drafts, err)
	}
	if s.sources.Rentals != nil {
		filter := bson.M{
			"paymentStatus":  bson.M{"$ne": models.PaymentPaid},
			"paymentDueDate": bson.M{"$lt": now},
		}
		drafts, err := scanEach(ctx, s.sources.Rentals, filter, func(r *models.Rental) []*models.Alert {
			return RentalAlerts(r, now)
		})
		collect("rentals", drafts, err)
	}

	s.log.WithFields(logrus.Fields{
		"candidates": result.Candidates,
		"raised":     result.Raised,
		"skipped":    result.Skipped,
		"failed":     result.Failed,
	}).Info("alert scan finished")

	return result, errors.Join(errs...)
}

func (s *AlertScanner) raise(ctx context.Context, drafts []*models.Alert, result *ScanResult) {
	for _, draft := range drafts {
		result.Candidates++
		draft.CreatedBy = s.systemUser

		_, created, err := s.alerts.RaiseAutomatedAlert(ctx, draft)
		switch {
		case err != nil:
			result.Failed++
			s.log.WithError(err).WithFields(logrus.Fields{
				"type":       draft.Type,
				"sourceType": draft.Source.Type(),
				"sourceId":   draft.Source.EntityID().Hex(),
			}).Warn("failed to raise automated alert")
		case created:
			result.Raised++
		default:
			result.Skipped++
		}
	}
}

func scanEach[P any](ctx context.Context, finder Finder[P], filter bson.M, rule func(P) []*models.Alert) ([]*models.Alert, error) {
	docs, err := finder.FindAll(ctx, filter)
	if err != nil {
		return nil, err
	}
	var drafts []*models.Alert
	for _, doc := range docs {
		drafts = append(drafts, rule(doc)...)
	}
	return drafts, nil
}

// title keeps generated titles within the stored length limit.
func title(prefix, name string) string {
	t := []rune(prefix + ": " + name)
	if len(t) > models.MaxTitleLength {
		t = t[:models.MaxTitleLength]
	}
	return string(t)
}

func lowStockFilter() bson.M {
	return bson.M{"$expr": bson.M{"$lte": bson.A{"$currentStock", "$minimumStock"}}}
}

// PartAlerts raises an out-of-stock alert for an empty part and a low-stock
// one when the stock has reached the minimum.
func PartAlerts(p *models.Part) []*models.Alert {
	meta := models.StockMetadata{
		CurrentStock: p.CurrentStock,
		MinimumStock: p.MinimumStock,
		PartNumber:   p.PartNumber,
	}
	source := models.PartSource{ID: models.PartID(p.ID)}

	switch {
	case p.CurrentStock <= 0:
		return []*models.Alert{{
			Title:       title("Sin stock", p.Name),
			Description: fmt.Sprintf("El repuesto %s (%s) no tiene unidades disponibles", p.Name, p.PartNumber),
			Type:        models.AlertTypeOutOfStock,
			Priority:    models.PriorityCritical,
			Source:      source,
			SourceName:  p.Name,
			Metadata:    meta,
		}}
	case p.CurrentStock <= p.MinimumStock:
		return []*models.Alert{{
			Title:       title("Stock bajo", p.Name),
			Description: fmt.Sprintf("Quedan %d unidades de %s, mínimo %d", p.CurrentStock, p.Name, p.MinimumStock),
			Type:        models.AlertTypeLowStock,
			Priority:    models.PriorityHigh,
			Source:      source,
			SourceName:  p.Name,
			Metadata:    meta,
		}}
	}
	return nil
}

// VehicleAlerts checks insurance, technical inspection, upcoming
// maintenance and service status.
func VehicleAlerts(v *models.Vehicle, now time.Time) []*models.Alert {
	source := models.VehicleSource{ID: models.VehicleID(v.ID)}
	name := v.Label()
	var out []*models.Alert

	if v.InsuranceExpiry != nil && !v.InsuranceExpiry.After(now) {
		out = append(out, &models.Alert{
			Title:       title("SOAT vencido", v.PlateNumber),
			Description: fmt.Sprintf("El seguro del vehículo %s venció el %s", name, v.InsuranceExpiry.Format(time.DateOnly)),
			Type:        models.AlertTypeInsuranceExpired,
			Priority:    models.PriorityCritical,
			Source:      source,
			SourceName:  name,
			DueDate:     v.InsuranceExpiry,
			Metadata:    models.ExpirationMetadata{ExpirationDate: v.InsuranceExpiry, VehiclePlate: v.PlateNumber},
		})
	}

	if exp := v.TechnicalInspectionExpiry; exp != nil && !exp.After(now.Add(InspectionWindow)) {
		priority := models.PriorityHigh
		description := fmt.Sprintf("La revisión técnica de %s vence el %s", name, exp.Format(time.DateOnly))
		if !exp.After(now) {
			priority = models.PriorityCritical
			description = fmt.Sprintf("La revisión técnica de %s venció el %s", name, exp.Format(time.DateOnly))
		}
		out = append(out, &models.Alert{
			Title:       title("Revisión técnica", v.PlateNumber),
			Description: description,
			Type:        models.AlertTypeTechnicalInspection,
			Priority:    priority,
			Source:      source,
			SourceName:  name,
			DueDate:     exp,
			Metadata:    models.ExpirationMetadata{ExpirationDate: exp, VehiclePlate: v.PlateNumber},
		})
	}

	if due := v.NextMaintenanceDate; due != nil && !due.After(now.Add(MaintenanceWindow)) {
		out = append(out, &models.Alert{
			Title:       title("Mantenimiento programado", v.PlateNumber),
			Description: fmt.Sprintf("El vehículo %s tiene mantenimiento el %s", name, due.Format(time.DateOnly)),
			Type:        models.AlertTypeMaintenance,
			Priority:    models.PriorityMedium,
			Source:      source,
			SourceName:  name,
			DueDate:     due,
			Metadata:    models.VehicleMetadata{VehiclePlate: v.PlateNumber},
		})
	}

	if v.Status == models.VehicleOutOfService {
		out = append(out, &models.Alert{
			Title:       title("Vehículo fuera de servicio", v.PlateNumber),
			Description: fmt.Sprintf("El vehículo %s está fuera de servicio", name),
			Type:        models.AlertTypeVehicleOutOfService,
			Priority:    models.PriorityHigh,
			Source:      source,
			SourceName:  name,
			Metadata:    models.VehicleMetadata{VehiclePlate: v.PlateNumber},
		})
	}

	return out
}

// MachineryAlerts raises maintenance when the next service is within the window.
func MachineryAlerts(m *models.Machinery, now time.Time) []*models.Alert {
	due := m.NextMaintenanceDate
	if due == nil || due.After(now.Add(MaintenanceWindow)) {
		return nil
	}
	return []*models.Alert{{
		Title:       title("Mantenimiento programado", m.Name),
		Description: fmt.Sprintf("La maquinaria %s tiene mantenimiento el %s", m.Name, due.Format(time.DateOnly)),
		Type:        models.AlertTypeMaintenance,
		Priority:    models.PriorityMedium,
		Source:      models.MachinerySource{ID: models.MachineryID(m.ID)},
		SourceName:  m.Name,
		DueDate:     due,
	}}
}

// ToolAlerts raises an alert for tools reported damaged.
func ToolAlerts(t *models.Tool) []*models.Alert {
	if t.Status != models.ToolDamaged {
		return nil
	}
	return []*models.Alert{{
		Title:       title("Herramienta dañada", t.Name),
		Description: fmt.Sprintf("La herramienta %s (%s) está reportada como dañada", t.Name, t.Code),
		Type:        models.AlertTypeDamagedTool,
		Priority:    models.PriorityMedium,
		Source:      models.ToolSource{ID: models.ToolID(t.ID)},
		SourceName:  t.Name,
		Metadata:    models.ToolMetadata{ToolCode: t.Code},
	}}
}

// RentalAlerts raises a pending-payment alert once an unpaid rental is past its
// payment due date.
func RentalAlerts(r *models.Rental, now time.Time) []*models.Alert {
	if r.PaymentStatus == models.PaymentPaid || r.PaymentDueDate == nil || !r.PaymentDueDate.Before(now) {
		return nil
	}
	return []*models.Alert{{
		Title:       title("Pago pendiente", r.CustomerName),
		Description: fmt.Sprintf("El alquiler de %s tiene un pago de %.2f vencido desde el %s", r.CustomerName, r.Amount, r.PaymentDueDate.Format(time.DateOnly)),
		Type:        models.AlertTypePendingPayment,
		Priority:    models.PriorityHigh,
		Source:      models.RentalSource{ID: models.RentalID(r.ID)},
		SourceName:  r.CustomerName,
		DueDate:     r.PaymentDueDate,
		Metadata:    models.PaymentMetadata{Amount: r.Amount},
	}}
}
