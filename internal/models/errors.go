package models

import "strings"

// FieldError is a single rejected field with a readable message.
type FieldError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

// ValidationError collects every field rejected while validating a record.
type ValidationError struct {
	Fields []FieldError
}

func NewValidationError(field, message string) *ValidationError {
	return &ValidationError{Fields: []FieldError{{Field: field, Message: message}}}
}

func (v *ValidationError) Add(field, message string) {
	v.Fields = append(v.Fields, FieldError{Field: field, Message: message})
}

func (v *ValidationError) Error() string {
	return strings.Join(v.FieldMessages(), "; ")
}

// FieldMessages returns the messages in the order they were added.
func (v *ValidationError) FieldMessages() []string {
	msgs := make([]string, 0, len(v.Fields))
	for _, f := range v.Fields {
		msgs = append(msgs, f.Message)
	}
	return msgs
}

// OrNil returns nil when nothing was rejected so callers can return it directly.
func (v *ValidationError) OrNil() error {
	if len(v.Fields) == 0 {
		return nil
	}
	return v
}
