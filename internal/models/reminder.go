// internal/models/reminder.go
package models

import (
	"fmt"
	"time"
)

// Delivery channels
const (
	ChannelEmail    = "email"
	ChannelSMS      = "sms"
	ChannelWhatsApp = "whatsapp"
	ChannelPush     = "push"
)

// Reminder statuses
const (
	StatusPending   = "pending"
	StatusSent      = "sent"
	StatusFailed    = "failed"
	StatusCancelled = "cancelled"
	StatusSkipped   = "skipped"
)

// Reminder categories (each maps to a preference toggle)
const (
	CategoryAppointment = "appointment"
	CategoryVaccination = "vaccination"
	CategoryPromotional = "promotional"
	CategoryOrder       = "order"
)

// Trigger types pushed by domain collaborators
const (
	TriggerAppointmentUpcoming = "appointment_upcoming"
	TriggerVaccinationDue      = "vaccination_due"
	TriggerVaccinationOverdue  = "vaccination_overdue"
	TriggerPaymentDue          = "payment_due"
	TriggerOrderReady          = "order_ready"
)

// IsTerminal reports whether a status permits no further transitions.
func IsTerminal(status string) bool {
	switch status {
	case StatusSent, StatusFailed, StatusCancelled, StatusSkipped:
		return true
	}
	return false
}

// ValidChannel reports whether ch is a known delivery channel.
func ValidChannel(ch string) bool {
	switch ch {
	case ChannelEmail, ChannelSMS, ChannelWhatsApp, ChannelPush:
		return true
	}
	return false
}

// ScheduledReminder is one unit of deliverable work. Created by the rule
// engine, claimed by the scheduler, transitioned by the delivery executor.
// (trigger_type, source_entity_id, channel, scheduled_for) is the natural
// dedup key: at most one pending row may exist per key, so an escalation
// series can coexist but re-ingesting a trigger never duplicates a step.
type ScheduledReminder struct {
	ID             string     `json:"id"`
	TriggerType    string     `json:"triggerType"`
	SourceEntityID string     `json:"sourceEntityId"`
	UserID         string     `json:"userId"`
	Channel        string     `json:"channel"`
	Category       string     `json:"category"`
	Recipient      string     `json:"recipient"` // email address, phone, endpoint ARN...
	Subject        string     `json:"subject"`   // pre-rendered by the templating collaborator
	Body           string     `json:"body"`
	ScheduledFor   time.Time  `json:"scheduledFor"`
	Status         string     `json:"status"`
	AttemptCount   int        `json:"attemptCount"`
	MaxAttempts    int        `json:"maxAttempts"`
	NextRetry      *time.Time `json:"nextRetry,omitempty"`
	ClaimedBy      string     `json:"claimedBy,omitempty"`
	ClaimToken     string     `json:"claimToken,omitempty"`
	ClaimedAt      *time.Time `json:"claimedAt,omitempty"`
	LastError      string     `json:"lastError,omitempty"`
	CreatedAt      time.Time  `json:"createdAt"`
	UpdatedAt      time.Time  `json:"updatedAt"`
}

// DedupKey renders the natural key, mostly for log fields.
func (r *ScheduledReminder) DedupKey() string {
	return fmt.Sprintf("%s/%s/%s@%s", r.TriggerType, r.SourceEntityID, r.Channel,
		r.ScheduledFor.UTC().Format(time.RFC3339))
}

// TriggerEvent is the payload domain collaborators hand to the rule engine
// whenever a relevant date is set or the source entity is cancelled.
type TriggerEvent struct {
	TriggerType    string                 `json:"triggerType"`
	SourceEntityID string                 `json:"sourceEntityId"`
	UserID         string                 `json:"userId"`
	AnchorTime     time.Time              `json:"anchorTime"` // zero value means "no due date yet"
	Cancelled      bool                   `json:"cancelled"`
	Metadata       map[string]interface{} `json:"metadata,omitempty"`
}
