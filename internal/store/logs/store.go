// Package logs is the append-only NotificationLog store: audit trail and
// the source of truth for the per-user daily send cap.
package logs

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"reminder-engine/internal/models"
)

type Store struct {
	db *sql.DB
}

func NewStore(db *sql.DB) *Store {
	return &Store{db: db}
}

// Insert appends one log row. Rows are immutable after this.
func (s *Store) Insert(ctx context.Context, entry *models.NotificationLog) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO notification_logs
			(id, reminder_id, user_id, trigger_type, channel, recipient, status,
			 provider_message_id, error_message, sent_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`,
		entry.ID, entry.ReminderID, entry.UserID, entry.TriggerType, entry.Channel,
		entry.Recipient, entry.Status, entry.ProviderMessageID, entry.ErrorMessage,
		entry.SentAt.UTC(),
	)
	if err != nil {
		return fmt.Errorf("insert notification log: %w", err)
	}
	return nil
}

// CountSentBetween counts sent rows for the user in [from, to). The
// executor passes the user's local day boundaries to enforce max_per_day.
func (s *Store) CountSentBetween(ctx context.Context, userID string, from, to time.Time) (int, error) {
	var count int
	err := s.db.QueryRowContext(ctx, `
		SELECT COUNT(*) FROM notification_logs
		WHERE user_id = $1 AND status = 'sent' AND sent_at >= $2 AND sent_at < $3`,
		userID, from.UTC(), to.UTC(),
	).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("count sent logs: %w", err)
	}
	return count, nil
}

// PurgeOlderThan deletes log rows past the retention window.
func (s *Store) PurgeOlderThan(ctx context.Context, before time.Time) (int64, error) {
	res, err := s.db.ExecContext(ctx, `
		DELETE FROM notification_logs WHERE sent_at < $1`,
		before.UTC(),
	)
	if err != nil {
		return 0, fmt.Errorf("purge notification logs: %w", err)
	}
	return res.RowsAffected()
}
