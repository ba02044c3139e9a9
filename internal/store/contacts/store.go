// Package contacts resolves a user's delivery address per channel at
// reminder-creation time: email address, phone number, or push endpoint.
package contacts

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	engineerrors "reminder-engine/internal/common/errors"
	"reminder-engine/internal/models"
)

type Store struct {
	db *sql.DB
}

func NewStore(db *sql.DB) *Store {
	return &Store{db: db}
}

// Contact returns the channel-specific address for a user. A user without
// an address for the channel yields a ContactNotFound error; the rule
// engine skips that channel instead of creating an undeliverable reminder.
func (s *Store) Contact(ctx context.Context, userID, channel string) (string, error) {
	var query string
	switch channel {
	case models.ChannelEmail:
		query = `SELECT email FROM users WHERE id = $1 AND email <> ''`
	case models.ChannelSMS, models.ChannelWhatsApp:
		query = `SELECT phone FROM users WHERE id = $1 AND phone <> ''`
	case models.ChannelPush:
		query = `SELECT endpoint_arn FROM user_devices
			WHERE user_id = $1 AND active
			ORDER BY last_seen_at DESC LIMIT 1`
	default:
		return "", fmt.Errorf("unknown channel: %s", channel)
	}

	var address string
	err := s.db.QueryRowContext(ctx, query, userID).Scan(&address)
	if errors.Is(err, sql.ErrNoRows) {
		return "", engineerrors.NewContactNotFoundError(userID, channel)
	}
	if err != nil {
		return "", fmt.Errorf("select contact: %w", err)
	}
	return address, nil
}
