// internal/models/rule.go
package models

import "time"

// EscalationOffset is one step of a rule's escalation schedule, expressed
// as time before the trigger's anchor (7 days, 3 days, 1 day, 2 hours...).
type EscalationOffset struct {
	Days  int `json:"days"`
	Hours int `json:"hours"`
}

// Duration converts the offset to a time.Duration.
func (o EscalationOffset) Duration() time.Duration {
	return time.Duration(o.Days)*24*time.Hour + time.Duration(o.Hours)*time.Hour
}

// ReminderRule maps a trigger type to an escalation schedule on one channel.
// Rules are configuration: loaded from the JSON registry at startup and
// read-only at runtime.
type ReminderRule struct {
	TriggerType string             `json:"triggerType"`
	Channel     string             `json:"channel"`
	Category    string             `json:"category"`
	Offsets     []EscalationOffset `json:"offsets"`
	MaxAttempts int                `json:"maxAttempts,omitempty"` // 0 means engine default
}
