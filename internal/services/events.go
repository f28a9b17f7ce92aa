package services

import (
	"context"
	"errors"

	"fleet-equipment-api/internal/models"
)

// EventFanout delivers each alert event to every registered sink.
type EventFanout struct {
	sinks []EventSink
}

func NewEventFanout(sinks ...EventSink) *EventFanout {
	f := &EventFanout{}
	for _, s := range sinks {
		f.Add(s)
	}
	return f
}

// Add registers a sink. Nil sinks are ignored.
func (f *EventFanout) Add(sink EventSink) {
	if sink != nil {
		f.sinks = append(f.sinks, sink)
	}
}

// PublishAlertEvent delivers to all sinks and joins their errors. One
// failing sink does not stop delivery to the rest.
func (f *EventFanout) PublishAlertEvent(ctx context.Context, event models.AlertEvent) error {
	var errs []error
	for _, sink := range f.sinks {
		if err := sink.PublishAlertEvent(ctx, event); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
