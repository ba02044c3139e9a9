// Package prefs reads NotificationPreference rows. The settings service
// owns writes; the engine only ever reads, optionally through a Redis
// cache.
package prefs

import (
	"context"
	"database/sql"
	"errors"

	engineerrors "reminder-engine/internal/common/errors"
	"reminder-engine/internal/models"
)

// Reader is what the delivery executor depends on.
type Reader interface {
	GetPreference(ctx context.Context, userID string) (*models.NotificationPreference, error)
}

type Store struct {
	db *sql.DB
}

func NewStore(db *sql.DB) *Store {
	return &Store{db: db}
}

// GetPreference loads the user's preferences. A user without a saved row
// gets the defaults: absence is not an error.
func (s *Store) GetPreference(ctx context.Context, userID string) (*models.NotificationPreference, error) {
	var p models.NotificationPreference
	var quietStart, quietEnd, timezone, preferred sql.NullString

	err := s.db.QueryRowContext(ctx, `
		SELECT user_id, email_enabled, sms_enabled, whatsapp_enabled, push_enabled,
		       preferred_channel, quiet_hours_start, quiet_hours_end, timezone, max_per_day,
		       appointments, vaccinations, promotions, orders, updated_at
		FROM notification_preferences WHERE user_id = $1`,
		userID,
	).Scan(
		&p.UserID, &p.EmailEnabled, &p.SMSEnabled, &p.WhatsAppEnabled, &p.PushEnabled,
		&preferred, &quietStart, &quietEnd, &timezone, &p.MaxPerDay,
		&p.Appointments, &p.Vaccinations, &p.Promotions, &p.Orders, &p.UpdatedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return models.DefaultPreference(userID), nil
	}
	if err != nil {
		return nil, engineerrors.NewPreferenceLookupError(err.Error())
	}

	p.PreferredChannel = preferred.String
	p.QuietHoursStart = quietStart.String
	p.QuietHoursEnd = quietEnd.String
	p.Timezone = timezone.String
	if p.Timezone == "" {
		p.Timezone = "UTC"
	}

	return &p, nil
}
