package models

import (
	"encoding/json"
	"fmt"
	"time"
)

// Date is a timestamp that also accepts a bare calendar date such as
// "2025-03-20" in JSON, read as midnight UTC. Browser date inputs send that
// form.
type Date struct {
	time.Time
}

func (d *Date) UnmarshalJSON(b []byte) error {
	if string(b) == "null" {
		return nil
	}
	t, err := parseDate(b)
	if err != nil {
		return err
	}
	d.Time = t
	return nil
}

// Ptr returns the timestamp in UTC, nil when d is nil.
func (d *Date) Ptr() *time.Time {
	if d == nil {
		return nil
	}
	t := d.Time.UTC()
	return &t
}

// OptionalDate records whether a date field was sent at all, so an explicit
// null can clear a stored date while an absent field leaves it alone.
type OptionalDate struct {
	Set   bool
	Value *time.Time
}

// NewOptionalDate returns an OptionalDate that sets t, or clears when t is nil.
func NewOptionalDate(t *time.Time) OptionalDate {
	return OptionalDate{Set: true, Value: t}
}

func (o *OptionalDate) UnmarshalJSON(b []byte) error {
	o.Set = true
	if string(b) == "null" {
		o.Value = nil
		return nil
	}
	t, err := parseDate(b)
	if err != nil {
		return err
	}
	t = t.UTC()
	o.Value = &t
	return nil
}

func parseDate(b []byte) (time.Time, error) {
	var s string
	if err := json.Unmarshal(b, &s); err != nil {
		return time.Time{}, fmt.Errorf("date must be a string: %w", err)
	}
	if t, err := time.Parse(time.RFC3339Nano, s); err == nil {
		return t, nil
	}
	t, err := time.Parse(time.DateOnly, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid date %q, expected YYYY-MM-DD or RFC 3339", s)
	}
	return t, nil
}
