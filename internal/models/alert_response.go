package models

import "time"

// AlertResponse is the serialized form of an alert, including the fields
// derived from the clock reading taken for the request.
type AlertResponse struct {
	ID            string         `json:"id"`
	Title         string         `json:"title"`
	Description   string         `json:"description"`
	Type          AlertType      `json:"type"`
	Priority      Priority       `json:"priority"`
	Status        AlertStatus    `json:"status"`
	SourceType    SourceType     `json:"sourceType"`
	SourceID      string         `json:"sourceId,omitempty"`
	SourceName    string         `json:"sourceName"`
	DueDate       *time.Time     `json:"dueDate,omitempty"`
	ResolvedDate  *time.Time     `json:"resolvedDate,omitempty"`
	ResolvedBy    string         `json:"resolvedBy,omitempty"`
	ResolvedNotes string         `json:"resolvedNotes,omitempty"`
	AutoGenerated bool           `json:"autoGenerated"`
	Metadata      *MetadataInput `json:"metadata,omitempty"`
	CreatedBy     string         `json:"createdBy"`
	CreatedAt     time.Time      `json:"createdAt"`
	UpdatedAt     time.Time      `json:"updatedAt"`
	IsOverdue     bool           `json:"isOverdue"`
	DaysUntilDue  *int           `json:"daysUntilDue"`
}

func (a *Alert) ToResponse(now time.Time) AlertResponse {
	resp := AlertResponse{
		ID:            a.ID.Hex(),
		Title:         a.Title,
		Description:   a.Description,
		Type:          a.Type,
		Priority:      a.Priority,
		Status:        a.Status,
		SourceID:      sourceIDHex(a.Source),
		SourceName:    a.SourceName,
		DueDate:       a.DueDate,
		ResolvedDate:  a.ResolvedDate,
		ResolvedNotes: a.ResolvedNotes,
		AutoGenerated: a.AutoGenerated,
		Metadata:      FlattenMetadata(a.Metadata),
		CreatedBy:     a.CreatedBy.Hex(),
		CreatedAt:     a.CreatedAt,
		UpdatedAt:     a.UpdatedAt,
		IsOverdue:     a.IsOverdue(now),
		DaysUntilDue:  a.DaysUntilDue(now),
	}
	if a.Source != nil {
		resp.SourceType = a.Source.Type()
	}
	if a.ResolvedBy != nil {
		resp.ResolvedBy = a.ResolvedBy.Hex()
	}
	return resp
}

// ToAlertResponses serializes a list against a single clock reading.
func ToAlertResponses(alerts []*Alert, now time.Time) []AlertResponse {
	out := make([]AlertResponse, 0, len(alerts))
	for _, a := range alerts {
		out = append(out, a.ToResponse(now))
	}
	return out
}

type AlertEventKind string

const (
	AlertCreated   AlertEventKind = "alert.created"
	AlertUpdated   AlertEventKind = "alert.updated"
	AlertResolved  AlertEventKind = "alert.resolved"
	AlertDismissed AlertEventKind = "alert.dismissed"
)

// AlertEvent is published to live subscribers whenever an alert changes.
type AlertEvent struct {
	Event     AlertEventKind `json:"event"`
	Alert     AlertResponse  `json:"alert"`
	Timestamp time.Time      `json:"timestamp"`
}

// AlertStatistics summarizes the alert collection at one clock reading.
type AlertStatistics struct {
	Total      int64                 `json:"total"`
	ByStatus   map[AlertStatus]int64 `json:"byStatus"`
	ByPriority map[Priority]int64    `json:"byPriority"`
	ByType     map[AlertType]int64   `json:"byType"`
	Overdue    int64                 `json:"overdue"`
	DueSoon    int64                 `json:"dueSoon"`
}
