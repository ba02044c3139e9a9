// Package inbox holds the in-app notification feed. A feed entry is
// written alongside every successful send so users see their reminder
// history inside the product.
package inbox

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

func (s *Store) Insert(ctx context.Context, n *models.Notification) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO notifications
			(id, user_id, category, title, message, related_entity_id, is_read, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, false, $7)`,
		n.ID, n.UserID, n.Category, n.Title, n.Message, n.RelatedEntityID, n.CreatedAt.UTC(),
	)
	if err != nil {
		return fmt.Errorf("insert notification: %w", err)
	}
	return nil
}

// MarkRead flags one notification as read. Already-read rows stay as-is.
func (s *Store) MarkRead(ctx context.Context, id, userID string, at time.Time) error {
	_, err := s.db.ExecContext(ctx, `
		UPDATE notifications SET is_read = true, read_at = $3
		WHERE id = $1 AND user_id = $2 AND NOT is_read`,
		id, userID, at.UTC(),
	)
	if err != nil {
		return fmt.Errorf("mark notification read: %w", err)
	}
	return nil
}

// MarkAllRead flags every unread notification for the user, returning the
// number updated.
func (s *Store) MarkAllRead(ctx context.Context, userID string, at time.Time) (int64, error) {
	res, err := s.db.ExecContext(ctx, `
		UPDATE notifications SET is_read = true, read_at = $2
		WHERE user_id = $1 AND NOT is_read`,
		userID, at.UTC(),
	)
	if err != nil {
		return 0, fmt.Errorf("mark all notifications read: %w", err)
	}
	return res.RowsAffected()
}

func (s *Store) UnreadCount(ctx context.Context, userID string) (int, error) {
	var count int
	err := s.db.QueryRowContext(ctx, `
		SELECT COUNT(*) FROM notifications WHERE user_id = $1 AND NOT is_read`,
		userID,
	).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("count unread notifications: %w", err)
	}
	return count, nil
}
