package models

import "time"

const (
	ToolDamaged    = "damaged"
	PaymentPaid    = "paid"
	PaymentPending = "pending"
)

type Machinery struct {
	Base                `bson:",inline"`
	Name                string     `bson:"name" json:"name" validate:"required,max=100"`
	SerialNumber        string     `bson:"serialNumber" json:"serialNumber"`
	Brand               string     `bson:"brand" json:"brand"`
	Model               string     `bson:"model" json:"model"`
	Status              string     `bson:"status" json:"status" validate:"required,oneof=available in_use maintenance out_of_service"`
	HoursUsed           float64    `bson:"hoursUsed" json:"hoursUsed" validate:"min=0"`
	NextMaintenanceDate *time.Time `bson:"nextMaintenanceDate,omitempty" json:"nextMaintenanceDate,omitempty"`
	WarehouseID         string     `bson:"warehouseId,omitempty" json:"warehouseId,omitempty"`
}

type Tool struct {
	Base        `bson:",inline"`
	Name        string `bson:"name" json:"name" validate:"required,max=100"`
	Code        string `bson:"code" json:"code" validate:"required,max=50"`
	Category    string `bson:"category" json:"category"`
	Status      string `bson:"status" json:"status" validate:"required,oneof=available in_use damaged lost"`
	WarehouseID string `bson:"warehouseId,omitempty" json:"warehouseId,omitempty"`
}

type Part struct {
	Base         `bson:",inline"`
	Name         string  `bson:"name" json:"name" validate:"required,max=100"`
	PartNumber   string  `bson:"partNumber" json:"partNumber" validate:"required,max=50"`
	CurrentStock int     `bson:"currentStock" json:"currentStock" validate:"min=0"`
	MinimumStock int     `bson:"minimumStock" json:"minimumStock" validate:"min=0"`
	UnitCost     float64 `bson:"unitCost" json:"unitCost" validate:"min=0"`
	WarehouseID  string  `bson:"warehouseId,omitempty" json:"warehouseId,omitempty"`
}

type Rental struct {
	Base           `bson:",inline"`
	CustomerName   string     `bson:"customerName" json:"customerName" validate:"required,max=100"`
	ItemType       string     `bson:"itemType" json:"itemType" validate:"required,oneof=vehicle machinery tool"`
	ItemID         string     `bson:"itemId" json:"itemId" validate:"required"`
	StartDate      time.Time  `bson:"startDate" json:"startDate" validate:"required"`
	EndDate        *time.Time `bson:"endDate,omitempty" json:"endDate,omitempty"`
	Amount         float64    `bson:"amount" json:"amount" validate:"min=0"`
	PaymentStatus  string     `bson:"paymentStatus" json:"paymentStatus" validate:"required,oneof=pending paid overdue"`
	PaymentDueDate *time.Time `bson:"paymentDueDate,omitempty" json:"paymentDueDate,omitempty"`
}

type Warehouse struct {
	Base     `bson:",inline"`
	Name     string `bson:"name" json:"name" validate:"required,max=100"`
	Location string `bson:"location" json:"location"`
	Capacity int    `bson:"capacity" json:"capacity" validate:"min=0"`
	Manager  string `bson:"manager" json:"manager"`
}

type FuelRecord struct {
	Base      `bson:",inline"`
	VehicleID string    `bson:"vehicleId" json:"vehicleId" validate:"required"`
	Liters    float64   `bson:"liters" json:"liters" validate:"gt=0"`
	Cost      float64   `bson:"cost" json:"cost" validate:"min=0"`
	Mileage   int       `bson:"mileage" json:"mileage" validate:"min=0"`
	Station   string    `bson:"station" json:"station"`
	Date      time.Time `bson:"date" json:"date" validate:"required"`
}

type FinanceRecord struct {
	Base        `bson:",inline"`
	Kind        string    `bson:"kind" json:"kind" validate:"required,oneof=income expense"`
	Category    string    `bson:"category" json:"category" validate:"required"`
	Amount      float64   `bson:"amount" json:"amount" validate:"gt=0"`
	Description string    `bson:"description" json:"description" validate:"max=500"`
	Date        time.Time `bson:"date" json:"date" validate:"required"`
	ReferenceID string    `bson:"referenceId,omitempty" json:"referenceId,omitempty"`
}
