package notify

import (
	"time"

	"github.com/google/uuid"

	"github.com/meridianhq/meridian/pkg/quota"
)

// EventType identifies the kind of quota notification.
type EventType string

const (
	EventQuotaWarning  EventType = "quota.warning"
	EventGraceReminder EventType = "quota.grace_reminder"
)

// Event is one quota notification.
type Event struct {
	ID            string             `json:"id"`
	Type          EventType          `json:"type"`
	Timestamp     time.Time          `json:"timestamp"`
	TenantID      int64              `json:"tenant_id"`
	TenantName    string             `json:"tenant_name"`
	Metric        string             `json:"metric"`
	Percentage    float64            `json:"percentage,omitempty"`
	Level         quota.WarningLevel `json:"level,omitempty"`
	DaysRemaining int                `json:"days_remaining,omitempty"`
	Urgent        bool               `json:"urgent"`
}

func newEvent(eventType EventType) *Event {
	return &Event{
		ID:        uuid.NewString(),
		Type:      eventType,
		Timestamp: time.Now().UTC(),
	}
}
