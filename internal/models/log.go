// internal/models/log.go
package models

import "time"

// NotificationLog is the append-only record of a terminal send attempt.
// Exactly one row is written when a reminder reaches "sent"; the table is
// both the audit trail and the source of truth for the daily send cap.
type NotificationLog struct {
	ID                string    `json:"id"`
	ReminderID        string    `json:"reminderId"`
	UserID            string    `json:"userId"`
	TriggerType       string    `json:"triggerType"`
	Channel           string    `json:"channel"`
	Recipient         string    `json:"recipient"`
	Status            string    `json:"status"`
	ProviderMessageID string    `json:"providerMessageId,omitempty"`
	ErrorMessage      string    `json:"errorMessage,omitempty"`
	SentAt            time.Time `json:"sentAt"`
}

// Notification is the in-app feed entry created alongside a successful send
// so staff and pet owners can see reminder history inside the product.
type Notification struct {
	ID              string     `json:"id"`
	UserID          string     `json:"userId"`
	Category        string     `json:"category"`
	Title           string     `json:"title"`
	Message         string     `json:"message"`
	RelatedEntityID string     `json:"relatedEntityId,omitempty"`
	IsRead          bool       `json:"isRead"`
	ReadAt          *time.Time `json:"readAt,omitempty"`
	CreatedAt       time.Time  `json:"createdAt"`
}
