package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Document is implemented by every resource stored through the generic
// document repository.
type Document interface {
	GetID() primitive.ObjectID
	SetID(id primitive.ObjectID)
	GetCreatedAt() time.Time
	SetCreatedAt(t time.Time)
	Touch(now time.Time)
}

// Base carries the identity and audit timestamps shared by resource documents.
type Base struct {
	ID        primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	CreatedAt time.Time          `bson:"createdAt" json:"createdAt"`
	UpdatedAt time.Time          `bson:"updatedAt" json:"updatedAt"`
}

func (b *Base) GetID() primitive.ObjectID   { return b.ID }
func (b *Base) SetID(id primitive.ObjectID) { b.ID = id }
func (b *Base) GetCreatedAt() time.Time     { return b.CreatedAt }
func (b *Base) SetCreatedAt(t time.Time)    { b.CreatedAt = t }

// Touch stamps the update time, and the creation time on first write.
func (b *Base) Touch(now time.Time) {
	if b.CreatedAt.IsZero() {
		b.CreatedAt = now
	}
	b.UpdatedAt = now
}

const (
	VehicleActive       = "active"
	VehicleMaintenance  = "maintenance"
	VehicleOutOfService = "out_of_service"
	VehicleInactive     = "inactive"
)

type Vehicle struct {
	Base                      `bson:",inline"`
	Name                      string     `bson:"name" json:"name" validate:"required,max=100"`
	PlateNumber               string     `bson:"plateNumber" json:"plateNumber" validate:"required,max=20"`
	Brand                     string     `bson:"brand" json:"brand"`
	Model                     string     `bson:"model" json:"model"`
	Year                      int        `bson:"year" json:"year" validate:"omitempty,min=1950,max=2100"`
	Status                    string     `bson:"status" json:"status" validate:"required,oneof=active maintenance out_of_service inactive"`
	Mileage                   int        `bson:"mileage" json:"mileage" validate:"min=0"`
	InsuranceExpiry           *time.Time `bson:"insuranceExpiry,omitempty" json:"insuranceExpiry,omitempty"`
	TechnicalInspectionExpiry *time.Time `bson:"technicalInspectionExpiry,omitempty" json:"technicalInspectionExpiry,omitempty"`
	NextMaintenanceDate       *time.Time `bson:"nextMaintenanceDate,omitempty" json:"nextMaintenanceDate,omitempty"`
}

// Label is the display name stored on alerts raised for this vehicle.
func (v *Vehicle) Label() string {
	if v.PlateNumber == "" {
		return v.Name
	}
	return v.Name + " (" + v.PlateNumber + ")"
}
