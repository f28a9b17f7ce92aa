package jobs

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"fleet-equipment-api/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

var scanNow = time.Date(2025, 5, 1, 9, 0, 0, 0, time.UTC)

func at(d time.Duration) *time.Time {
	t := scanNow.Add(d)
	return &t
}

const day = 24 * time.Hour

type fakeFinder[P any] struct {
	docs    []P
	err     error
	filters []bson.M
}

func (f *fakeFinder[P]) FindAll(_ context.Context, filter bson.M) ([]P, error) {
	f.filters = append(f.filters, filter)
	return f.docs, f.err
}

type MockRaiser struct {
	mock.Mock
}

func (m *MockRaiser) RaiseAutomatedAlert(ctx context.Context, draft *models.Alert) (*models.Alert, bool, error) {
	args := m.Called(ctx, draft)
	return draft, args.Bool(0), args.Error(1)
}

func TestPartAlerts(t *testing.T) {
	empty := &models.Part{Base: models.Base{ID: primitive.NewObjectID()}, Name: "Filtro", PartNumber: "F-1", CurrentStock: 0, MinimumStock: 3}
	low := &models.Part{Name: "Bujía", PartNumber: "B-2", CurrentStock: 3, MinimumStock: 3}
	ok := &models.Part{Name: "Correa", CurrentStock: 10, MinimumStock: 2}

	alerts := PartAlerts(empty)
	require.Len(t, alerts, 1)
	assert.Equal(t, models.AlertTypeOutOfStock, alerts[0].Type)
	assert.Equal(t, models.PriorityCritical, alerts[0].Priority)
	assert.Equal(t, models.PartSource{ID: models.PartID(empty.ID)}, alerts[0].Source)
	assert.Equal(t, models.StockMetadata{CurrentStock: 0, MinimumStock: 3, PartNumber: "F-1"}, alerts[0].Metadata)

	alerts = PartAlerts(low)
	require.Len(t, alerts, 1)
	assert.Equal(t, models.AlertTypeLowStock, alerts[0].Type)
	assert.Equal(t, models.PriorityHigh, alerts[0].Priority)

	assert.Empty(t, PartAlerts(ok))
}

func TestVehicleAlerts(t *testing.T) {
	tests := []struct {
		name     string
		vehicle  models.Vehicle
		expected []models.AlertType
	}{
		{
			name:    "nothing due",
			vehicle: models.Vehicle{Status: models.VehicleActive, InsuranceExpiry: at(30 * day), TechnicalInspectionExpiry: at(60 * day), NextMaintenanceDate: at(20 * day)},
		},
		{
			name:     "insurance expired",
			vehicle:  models.Vehicle{Status: models.VehicleActive, InsuranceExpiry: at(-day)},
			expected: []models.AlertType{models.AlertTypeInsuranceExpired},
		},
		{
			name:     "inspection within window",
			vehicle:  models.Vehicle{Status: models.VehicleActive, TechnicalInspectionExpiry: at(10 * day)},
			expected: []models.AlertType{models.AlertTypeTechnicalInspection},
		},
		{
			name:     "maintenance and out of service",
			vehicle:  models.Vehicle{Status: models.VehicleOutOfService, NextMaintenanceDate: at(7 * day)},
			expected: []models.AlertType{models.AlertTypeMaintenance, models.AlertTypeVehicleOutOfService},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tt.vehicle.Name = "Camión"
			tt.vehicle.PlateNumber = "ABC-123"

			var types []models.AlertType
			for _, a := range VehicleAlerts(&tt.vehicle, scanNow) {
				types = append(types, a.Type)
				assert.Equal(t, "Camión (ABC-123)", a.SourceName)
				assert.Equal(t, models.MetadataKindFor(a.Type), a.Metadata.Kind())
			}
			assert.Equal(t, tt.expected, types)
		})
	}
}

func TestVehicleAlerts_InspectionPriority(t *testing.T) {
	soon := VehicleAlerts(&models.Vehicle{TechnicalInspectionExpiry: at(5 * day)}, scanNow)
	expired := VehicleAlerts(&models.Vehicle{TechnicalInspectionExpiry: at(-5 * day)}, scanNow)

	require.Len(t, soon, 1)
	require.Len(t, expired, 1)
	assert.Equal(t, models.PriorityHigh, soon[0].Priority)
	assert.Equal(t, models.PriorityCritical, expired[0].Priority)
	assert.Contains(t, expired[0].Description, "venció")
}

func TestMachineryToolRentalAlerts(t *testing.T) {
	assert.Len(t, MachineryAlerts(&models.Machinery{Name: "Excavadora", NextMaintenanceDate: at(3 * day)}, scanNow), 1)
	assert.Empty(t, MachineryAlerts(&models.Machinery{Name: "Excavadora", NextMaintenanceDate: at(8 * day)}, scanNow))
	assert.Empty(t, MachineryAlerts(&models.Machinery{Name: "Grúa"}, scanNow))

	tool := ToolAlerts(&models.Tool{Name: "Taladro", Code: "T-9", Status: models.ToolDamaged})
	require.Len(t, tool, 1)
	assert.Equal(t, models.ToolMetadata{ToolCode: "T-9"}, tool[0].Metadata)
	assert.Empty(t, ToolAlerts(&models.Tool{Status: "available"}))

	rental := RentalAlerts(&models.Rental{CustomerName: "Constructora Sur", Amount: 1500, PaymentStatus: models.PaymentPending, PaymentDueDate: at(-day)}, scanNow)
	require.Len(t, rental, 1)
	assert.Equal(t, models.PaymentMetadata{Amount: 1500}, rental[0].Metadata)
	assert.Empty(t, RentalAlerts(&models.Rental{PaymentStatus: models.PaymentPaid, PaymentDueDate: at(-day)}, scanNow))
	assert.Empty(t, RentalAlerts(&models.Rental{PaymentStatus: models.PaymentPending, PaymentDueDate: at(day)}, scanNow))
}

func TestTitleIsClipped(t *testing.T) {
	long := strings.Repeat("ñ", 150)
	alerts := ToolAlerts(&models.Tool{Name: long, Status: models.ToolDamaged})
	require.Len(t, alerts, 1)
	assert.Equal(t, models.MaxTitleLength, len([]rune(alerts[0].Title)))
}

func TestAlertScanner_Scan(t *testing.T) {
	systemUser := primitive.NewObjectID()
	parts := &fakeFinder[*models.Part]{docs: []*models.Part{
		{Name: "Filtro", CurrentStock: 0, MinimumStock: 2},
		{Name: "Bujía", CurrentStock: 1, MinimumStock: 2},
	}}
	tools := &fakeFinder[*models.Tool]{docs: []*models.Tool{{Name: "Taladro", Status: models.ToolDamaged}}}
	rentals := &fakeFinder[*models.Rental]{err: errors.New("cursor closed")}

	raiser := new(MockRaiser)
	raiser.On("RaiseAutomatedAlert", mock.Anything, mock.MatchedBy(func(a *models.Alert) bool {
		return a.Type == models.AlertTypeOutOfStock
	})).Return(true, nil)
	raiser.On("RaiseAutomatedAlert", mock.Anything, mock.MatchedBy(func(a *models.Alert) bool {
		return a.Type == models.AlertTypeLowStock
	})).Return(false, nil)
	raiser.On("RaiseAutomatedAlert", mock.Anything, mock.MatchedBy(func(a *models.Alert) bool {
		return a.Type == models.AlertTypeDamagedTool
	})).Return(false, errors.New("validation failed"))

	scanner := NewAlertScanner(Sources{Parts: parts, Tools: tools, Rentals: rentals}, raiser, systemUser, func() time.Time { return scanNow })
	result, err := scanner.Scan(context.Background())

	assert.ErrorContains(t, err, "scan rentals")
	assert.Equal(t, ScanResult{Candidates: 3, Raised: 1, Skipped: 1, Failed: 1}, result)

	for _, call := range raiser.Calls {
		assert.Equal(t, systemUser, call.Arguments.Get(1).(*models.Alert).CreatedBy)
	}

	require.Len(t, rentals.filters, 1)
	assert.Equal(t, bson.M{"$ne": models.PaymentPaid}, rentals.filters[0]["paymentStatus"])
	assert.Equal(t, bson.M{"status": models.ToolDamaged}, tools.filters[0])
}

type countingScanner struct {
	calls chan struct{}
}

func (c *countingScanner) Scan(context.Context) (ScanResult, error) {
	select {
	case c.calls <- struct{}{}:
	default:
	}
	return ScanResult{}, nil
}

func TestStartAlertScanSchedule(t *testing.T) {
	s, err := StartAlertScanSchedule("", &countingScanner{})
	require.NoError(t, err)
	assert.Nil(t, s)
	s.Stop(context.Background())

	_, err = StartAlertScanSchedule("not a schedule", &countingScanner{})
	assert.Error(t, err)

	scanner := &countingScanner{calls: make(chan struct{}, 1)}
	s, err = StartAlertScanSchedule("@every 1s", scanner)
	require.NoError(t, err)
	defer s.Stop(context.Background())

	select {
	case <-scanner.calls:
	case <-time.After(3 * time.Second):
		t.Fatal("scanner was not run")
	}
}
