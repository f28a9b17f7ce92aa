package models

import (
	"fmt"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

type SourceType string

const (
	SourceVehicle   SourceType = "Vehicle"
	SourceMachinery SourceType = "Machinery"
	SourceTool      SourceType = "Tool"
	SourcePart      SourceType = "Part"
	SourceRental    SourceType = "Rental"
	SourceManual    SourceType = "Manual"
)

var SourceTypes = []SourceType{SourceVehicle, SourceMachinery, SourceTool, SourcePart, SourceRental, SourceManual}

func (s SourceType) Valid() bool {
	for _, v := range SourceTypes {
		if v == s {
			return true
		}
	}
	return false
}

// Collection returns the collection holding entities of this source type,
// empty for manual sources.
func (s SourceType) Collection() string {
	switch s {
	case SourceVehicle:
		return "vehicles"
	case SourceMachinery:
		return "machinery"
	case SourceTool:
		return "tools"
	case SourcePart:
		return "parts"
	case SourceRental:
		return "rentals"
	}
	return ""
}

// SourceRef identifies the entity that raised an alert. The set of
// implementations is closed to this package.
type SourceRef interface {
	Type() SourceType
	EntityID() primitive.ObjectID
	isSourceRef()
}

type (
	VehicleID   primitive.ObjectID
	MachineryID primitive.ObjectID
	ToolID      primitive.ObjectID
	PartID      primitive.ObjectID
	RentalID    primitive.ObjectID
)

type VehicleSource struct{ ID VehicleID }
type MachinerySource struct{ ID MachineryID }
type ToolSource struct{ ID ToolID }
type PartSource struct{ ID PartID }
type RentalSource struct{ ID RentalID }

// ManualSource is a user-created alert with no linked entity.
type ManualSource struct{}

func (VehicleSource) Type() SourceType   { return SourceVehicle }
func (MachinerySource) Type() SourceType { return SourceMachinery }
func (ToolSource) Type() SourceType      { return SourceTool }
func (PartSource) Type() SourceType      { return SourcePart }
func (RentalSource) Type() SourceType    { return SourceRental }
func (ManualSource) Type() SourceType    { return SourceManual }

func (s VehicleSource) EntityID() primitive.ObjectID   { return primitive.ObjectID(s.ID) }
func (s MachinerySource) EntityID() primitive.ObjectID { return primitive.ObjectID(s.ID) }
func (s ToolSource) EntityID() primitive.ObjectID      { return primitive.ObjectID(s.ID) }
func (s PartSource) EntityID() primitive.ObjectID      { return primitive.ObjectID(s.ID) }
func (s RentalSource) EntityID() primitive.ObjectID    { return primitive.ObjectID(s.ID) }
func (ManualSource) EntityID() primitive.ObjectID      { return primitive.NilObjectID }

func (VehicleSource) isSourceRef()   {}
func (MachinerySource) isSourceRef() {}
func (ToolSource) isSourceRef()      {}
func (PartSource) isSourceRef()      {}
func (RentalSource) isSourceRef()    {}
func (ManualSource) isSourceRef()    {}

// NewSourceRef builds the variant for sourceType. The id is ignored for
// manual sources.
func NewSourceRef(sourceType SourceType, id primitive.ObjectID) (SourceRef, error) {
	switch sourceType {
	case SourceVehicle:
		return VehicleSource{ID: VehicleID(id)}, nil
	case SourceMachinery:
		return MachinerySource{ID: MachineryID(id)}, nil
	case SourceTool:
		return ToolSource{ID: ToolID(id)}, nil
	case SourcePart:
		return PartSource{ID: PartID(id)}, nil
	case SourceRental:
		return RentalSource{ID: RentalID(id)}, nil
	case SourceManual:
		return ManualSource{}, nil
	}
	return nil, fmt.Errorf("unknown source type %q", sourceType)
}

// ParseSourceRef builds a source reference from its wire form.
func ParseSourceRef(sourceType, sourceID string) (SourceRef, error) {
	st := SourceType(sourceType)
	if !st.Valid() {
		return nil, NewValidationError("sourceType", OneOfMessage("sourceType", SourceTypes))
	}
	if st == SourceManual {
		return ManualSource{}, nil
	}
	if sourceID == "" {
		return nil, NewValidationError("sourceId", "sourceId is required for "+sourceType+" sources")
	}
	id, err := primitive.ObjectIDFromHex(sourceID)
	if err != nil {
		return nil, NewValidationError("sourceId", "sourceId is not a valid id")
	}
	return NewSourceRef(st, id)
}

// sourceIDHex renders the entity id for responses, empty for manual sources.
func sourceIDHex(ref SourceRef) string {
	if ref == nil || ref.Type() == SourceManual {
		return ""
	}
	return ref.EntityID().Hex()
}
