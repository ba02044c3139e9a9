// internal/models/preference.go
package models

import "time"

// NotificationPreference is one user's delivery settings. Owned and mutated
// by the user-facing settings service; strictly read-only inside the engine.
// Quiet hours are local times of day ("HH:MM") in Timezone and the window
// may wrap midnight (22:00-08:00 means after 22:00 OR before 08:00).
type NotificationPreference struct {
	UserID           string    `json:"userId"`
	EmailEnabled     bool      `json:"emailEnabled"`
	SMSEnabled       bool      `json:"smsEnabled"`
	WhatsAppEnabled  bool      `json:"whatsappEnabled"`
	PushEnabled      bool      `json:"pushEnabled"`
	PreferredChannel string    `json:"preferredChannel"`
	QuietHoursStart  string    `json:"quietHoursStart,omitempty"` // "22:00", empty disables
	QuietHoursEnd    string    `json:"quietHoursEnd,omitempty"`
	Timezone         string    `json:"timezone"` // IANA name, defaults to UTC
	MaxPerDay        int       `json:"maxPerDay"`
	Appointments     bool      `json:"appointments"`
	Vaccinations     bool      `json:"vaccinations"`
	Promotions       bool      `json:"promotions"`
	Orders           bool      `json:"orders"`
	UpdatedAt        time.Time `json:"updatedAt"`
}

// DefaultPreference mirrors the settings service defaults: every channel on,
// promotional traffic off, no quiet hours. Used when a user has never saved
// preferences (absence of a row is not an error).
func DefaultPreference(userID string) *NotificationPreference {
	return &NotificationPreference{
		UserID:           userID,
		EmailEnabled:     true,
		SMSEnabled:       true,
		WhatsAppEnabled:  true,
		PushEnabled:      true,
		PreferredChannel: ChannelEmail,
		Timezone:         "UTC",
		MaxPerDay:        10,
		Appointments:     true,
		Vaccinations:     true,
		Promotions:       false,
		Orders:           true,
	}
}

// ChannelEnabled reports whether the user accepts sends on the channel.
func (p *NotificationPreference) ChannelEnabled(channel string) bool {
	switch channel {
	case ChannelEmail:
		return p.EmailEnabled
	case ChannelSMS:
		return p.SMSEnabled
	case ChannelWhatsApp:
		return p.WhatsAppEnabled
	case ChannelPush:
		return p.PushEnabled
	}
	return false
}

// CategoryEnabled reports whether the user accepts the reminder category.
// Unknown categories default to allowed so new trigger types are not
// silently dropped.
func (p *NotificationPreference) CategoryEnabled(category string) bool {
	switch category {
	case CategoryAppointment:
		return p.Appointments
	case CategoryVaccination:
		return p.Vaccinations
	case CategoryPromotional:
		return p.Promotions
	case CategoryOrder:
		return p.Orders
	}
	return true
}

// Location resolves the user's timezone, falling back to UTC.
func (p *NotificationPreference) Location() *time.Location {
	if p.Timezone == "" {
		return time.UTC
	}
	loc, err := time.LoadLocation(p.Timezone)
	if err != nil {
		return time.UTC
	}
	return loc
}
