package models

import "time"

// MetadataKind names the variant of AlertMetadata an alert type carries.
type MetadataKind string

const (
	MetadataNone       MetadataKind = ""
	MetadataStock      MetadataKind = "stock"
	MetadataExpiration MetadataKind = "expiration"
	MetadataPayment    MetadataKind = "payment"
	MetadataTool       MetadataKind = "tool"
	MetadataVehicle    MetadataKind = "vehicle"
)

// MetadataKindFor returns the only metadata variant accepted for t.
func MetadataKindFor(t AlertType) MetadataKind {
	switch t {
	case AlertTypeLowStock, AlertTypeOutOfStock:
		return MetadataStock
	case AlertTypeInsuranceExpired, AlertTypeTechnicalInspection, AlertTypeDocumentExpired:
		return MetadataExpiration
	case AlertTypePendingPayment:
		return MetadataPayment
	case AlertTypeDamagedTool:
		return MetadataTool
	case AlertTypeMaintenance, AlertTypeVehicleOutOfService:
		return MetadataVehicle
	}
	return MetadataNone
}

// AlertMetadata holds the type-specific details of an alert. A nil value
// means the alert carries no metadata.
type AlertMetadata interface {
	Kind() MetadataKind
	isAlertMetadata()
}

type StockMetadata struct {
	CurrentStock int    `json:"currentStock"`
	MinimumStock int    `json:"minimumStock"`
	PartNumber   string `json:"partNumber,omitempty"`
}

type ExpirationMetadata struct {
	ExpirationDate *time.Time `json:"expirationDate,omitempty"`
	VehiclePlate   string     `json:"vehiclePlate,omitempty"`
}

type PaymentMetadata struct {
	Amount float64 `json:"amount"`
}

type ToolMetadata struct {
	ToolCode string `json:"toolCode"`
}

type VehicleMetadata struct {
	VehiclePlate string `json:"vehiclePlate"`
}

func (StockMetadata) Kind() MetadataKind      { return MetadataStock }
func (ExpirationMetadata) Kind() MetadataKind { return MetadataExpiration }
func (PaymentMetadata) Kind() MetadataKind    { return MetadataPayment }
func (ToolMetadata) Kind() MetadataKind       { return MetadataTool }
func (VehicleMetadata) Kind() MetadataKind    { return MetadataVehicle }

func (StockMetadata) isAlertMetadata()      {}
func (ExpirationMetadata) isAlertMetadata() {}
func (PaymentMetadata) isAlertMetadata()    {}
func (ToolMetadata) isAlertMetadata()       {}
func (VehicleMetadata) isAlertMetadata()    {}

// MetadataInput is the flat wire form of alert metadata. Only the fields of
// the variant matching the alert type may be set.
type MetadataInput struct {
	ExpirationDate *time.Time `json:"expirationDate,omitempty" bson:"expirationDate,omitempty"`
	CurrentStock   *int       `json:"currentStock,omitempty" bson:"currentStock,omitempty"`
	MinimumStock   *int       `json:"minimumStock,omitempty" bson:"minimumStock,omitempty"`
	Amount         *float64   `json:"amount,omitempty" bson:"amount,omitempty"`
	VehiclePlate   string     `json:"vehiclePlate,omitempty" bson:"vehiclePlate,omitempty"`
	PartNumber     string     `json:"partNumber,omitempty" bson:"partNumber,omitempty"`
	ToolCode       string     `json:"toolCode,omitempty" bson:"toolCode,omitempty"`
}

func (in *MetadataInput) empty() bool {
	return in == nil || (in.ExpirationDate == nil && in.CurrentStock == nil && in.MinimumStock == nil &&
		in.Amount == nil && in.VehiclePlate == "" && in.PartNumber == "" && in.ToolCode == "")
}

// BuildMetadata converts the flat form into the variant for alertType,
// rejecting fields that belong to another variant.
func BuildMetadata(alertType AlertType, in *MetadataInput) (AlertMetadata, error) {
	if in.empty() {
		return nil, nil
	}

	kind := MetadataKindFor(alertType)
	var stray []string
	if kind != MetadataStock {
		if in.CurrentStock != nil {
			stray = append(stray, "currentStock")
		}
		if in.MinimumStock != nil {
			stray = append(stray, "minimumStock")
		}
		if in.PartNumber != "" {
			stray = append(stray, "partNumber")
		}
	}
	if kind != MetadataExpiration && in.ExpirationDate != nil {
		stray = append(stray, "expirationDate")
	}
	if kind != MetadataExpiration && kind != MetadataVehicle && in.VehiclePlate != "" {
		stray = append(stray, "vehiclePlate")
	}
	if kind != MetadataPayment && in.Amount != nil {
		stray = append(stray, "amount")
	}
	if kind != MetadataTool && in.ToolCode != "" {
		stray = append(stray, "toolCode")
	}
	if len(stray) > 0 {
		v := &ValidationError{}
		for _, f := range stray {
			v.Add("metadata."+f, f+" does not apply to alert type "+string(alertType))
		}
		return nil, v
	}

	switch kind {
	case MetadataStock:
		m := StockMetadata{PartNumber: in.PartNumber}
		if in.CurrentStock != nil {
			m.CurrentStock = *in.CurrentStock
		}
		if in.MinimumStock != nil {
			m.MinimumStock = *in.MinimumStock
		}
		return m, nil
	case MetadataExpiration:
		return ExpirationMetadata{ExpirationDate: in.ExpirationDate, VehiclePlate: in.VehiclePlate}, nil
	case MetadataPayment:
		return PaymentMetadata{Amount: *in.Amount}, nil
	case MetadataTool:
		return ToolMetadata{ToolCode: in.ToolCode}, nil
	case MetadataVehicle:
		return VehicleMetadata{VehiclePlate: in.VehiclePlate}, nil
	}
	return nil, nil
}

// FlattenMetadata is the inverse of BuildMetadata.
func FlattenMetadata(m AlertMetadata) *MetadataInput {
	switch v := m.(type) {
	case StockMetadata:
		current, minimum := v.CurrentStock, v.MinimumStock
		return &MetadataInput{CurrentStock: &current, MinimumStock: &minimum, PartNumber: v.PartNumber}
	case ExpirationMetadata:
		return &MetadataInput{ExpirationDate: v.ExpirationDate, VehiclePlate: v.VehiclePlate}
	case PaymentMetadata:
		amount := v.Amount
		return &MetadataInput{Amount: &amount}
	case ToolMetadata:
		return &MetadataInput{ToolCode: v.ToolCode}
	case VehicleMetadata:
		return &MetadataInput{VehiclePlate: v.VehiclePlate}
	}
	return nil
}
