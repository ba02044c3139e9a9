// Package reminders persists ScheduledReminder rows. Every mutation that
// matters for correctness is a single conditional UPDATE so that multiple
// dispatcher instances can share the table: claiming is a compare-and-set
// on (status=pending, claimed_at IS NULL), and all later transitions are
// guarded by the claim token handed out at claim time.
package reminders

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"reminder-engine/internal/common/clock"
	engineerrors "reminder-engine/internal/common/errors"
	"reminder-engine/internal/common/logger"
	"reminder-engine/internal/models"
)

type Store struct {
	db     *sql.DB
	clock  clock.Clock
	logger logger.Logger
}

func NewStore(db *sql.DB, clk clock.Clock, log logger.Logger) *Store {
	return &Store{
		db:     db,
		clock:  clk,
		logger: log.WithFields(map[string]interface{}{"component": "reminder-store"}),
	}
}

const reminderColumns = `id, trigger_type, source_entity_id, user_id, channel, category, recipient,
	subject, body, scheduled_for, status, attempt_count, max_attempts, next_retry,
	claimed_by, claim_token, claimed_at, last_error, created_at, updated_at`

// CreatePending inserts a reminder unless a pending row already exists for
// the same (trigger_type, source_entity_id, channel, scheduled_for) key, so
// re-delivering a trigger event never duplicates an escalation step.
// Returns false when the insert was suppressed by dedup.
func (s *Store) CreatePending(ctx context.Context, r *models.ScheduledReminder) (bool, error) {
	now := s.clock.Now().UTC()

	res, err := s.db.ExecContext(ctx, `
		INSERT INTO scheduled_reminders
			(id, trigger_type, source_entity_id, user_id, channel, category, recipient,
			 subject, body, scheduled_for, status, attempt_count, max_attempts, created_at, updated_at)
		SELECT $1, $2, $3, $4, $5, $6, $7, $8, $9, $10, 'pending', 0, $11, $12, $12
		WHERE NOT EXISTS (
			SELECT 1 FROM scheduled_reminders
			WHERE trigger_type = $2 AND source_entity_id = $3 AND channel = $5
			  AND scheduled_for = $10 AND status = 'pending'
		)`,
		r.ID, r.TriggerType, r.SourceEntityID, r.UserID, r.Channel, r.Category, r.Recipient,
		r.Subject, r.Body, r.ScheduledFor.UTC(), r.MaxAttempts, now,
	)
	if err != nil {
		return false, fmt.Errorf("insert reminder: %w", err)
	}

	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("insert reminder rows affected: %w", err)
	}
	return n == 1, nil
}

// CancelPending flips every pending, unclaimed reminder for the trigger to
// cancelled, across all channels. Idempotent: zero affected rows is fine.
// Rows already claimed by a worker are left alone; that reminder may still
// send once (accepted race, the executor re-checks the source entity).
func (s *Store) CancelPending(ctx context.Context, triggerType, sourceEntityID string) (int64, error) {
	res, err := s.db.ExecContext(ctx, `
		UPDATE scheduled_reminders
		SET status = 'cancelled', updated_at = $3
		WHERE trigger_type = $1 AND source_entity_id = $2
		  AND status = 'pending' AND claimed_at IS NULL`,
		triggerType, sourceEntityID, s.clock.Now().UTC(),
	)
	if err != nil {
		return 0, fmt.Errorf("cancel pending reminders: %w", err)
	}
	return res.RowsAffected()
}

// TriggerCancelled reports whether the source entity behind a reminder has
// been cancelled. Cancellation flips unclaimed siblings directly, so a
// cancelled sibling row is the marker the executor re-checks before a send.
func (s *Store) TriggerCancelled(ctx context.Context, triggerType, sourceEntityID string) (bool, error) {
	var exists bool
	err := s.db.QueryRowContext(ctx, `
		SELECT EXISTS (
			SELECT 1 FROM scheduled_reminders
			WHERE trigger_type = $1 AND source_entity_id = $2
			  AND status = 'cancelled'
		)`,
		triggerType, sourceEntityID,
	).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("check trigger cancellation: %w", err)
	}
	return exists, nil
}

// DueBatch returns up to limit pending, unclaimed reminders that are due at
// now, earliest first with id as the deterministic tie-break. next_retry
// acts as an additional due-time floor for reminders awaiting a retry.
func (s *Store) DueBatch(ctx context.Context, now time.Time, limit int) ([]*models.ScheduledReminder, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT `+reminderColumns+`
		FROM scheduled_reminders
		WHERE status = 'pending' AND claimed_at IS NULL
		  AND scheduled_for <= $1
		  AND (next_retry IS NULL OR next_retry <= $1)
		ORDER BY scheduled_for ASC, id ASC
		LIMIT $2`,
		now.UTC(), limit,
	)
	if err != nil {
		return nil, fmt.Errorf("select due reminders: %w", err)
	}
	defer rows.Close()

	var out []*models.ScheduledReminder
	for rows.Next() {
		r, err := scanReminder(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

// Claim atomically takes exclusive ownership of a pending, unclaimed
// reminder. Returns false when another dispatcher won the race.
func (s *Store) Claim(ctx context.Context, id, owner, token string, at time.Time) (bool, error) {
	res, err := s.db.ExecContext(ctx, `
		UPDATE scheduled_reminders
		SET claimed_by = $2, claim_token = $3, claimed_at = $4, updated_at = $4
		WHERE id = $1 AND status = 'pending' AND claimed_at IS NULL`,
		id, owner, token, at.UTC(),
	)
	if err != nil {
		return false, fmt.Errorf("claim reminder: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("claim reminder rows affected: %w", err)
	}
	return n == 1, nil
}

// ResetStaleClaims releases claims older than before on non-terminal rows.
// A claim that old means the owning worker died mid-flight; the reminder
// becomes visible to the next tick again.
func (s *Store) ResetStaleClaims(ctx context.Context, before time.Time) (int64, error) {
	res, err := s.db.ExecContext(ctx, `
		UPDATE scheduled_reminders
		SET claimed_by = '', claim_token = '', claimed_at = NULL, updated_at = $2
		WHERE status = 'pending' AND claimed_at IS NOT NULL AND claimed_at < $1`,
		before.UTC(), s.clock.Now().UTC(),
	)
	if err != nil {
		return 0, fmt.Errorf("reset stale claims: %w", err)
	}
	return res.RowsAffected()
}

// MarkSent finishes a claimed reminder as sent.
func (s *Store) MarkSent(ctx context.Context, id, token string) error {
	return s.transition(ctx, id, token, `
		UPDATE scheduled_reminders
		SET status = 'sent', claimed_by = '', claim_token = '', claimed_at = NULL, updated_at = $3
		WHERE id = $1 AND claim_token = $2 AND status = 'pending'`)
}

// MarkFailed finishes a claimed reminder as failed, preserving the last
// error for support investigation.
func (s *Store) MarkFailed(ctx context.Context, id, token string, attempts int, lastError string) error {
	return s.transitionArgs(ctx, id, token, `
		UPDATE scheduled_reminders
		SET status = 'failed', attempt_count = $3, last_error = $4,
		    claimed_by = '', claim_token = '', claimed_at = NULL, updated_at = $5
		WHERE id = $1 AND claim_token = $2 AND status = 'pending'`,
		attempts, lastError)
}

// MarkSkipped finishes a claimed reminder as skipped (preferences or daily
// cap said no). No retry follows.
func (s *Store) MarkSkipped(ctx context.Context, id, token, reason string) error {
	return s.transitionArgs(ctx, id, token, `
		UPDATE scheduled_reminders
		SET status = 'skipped', last_error = $3,
		    claimed_by = '', claim_token = '', claimed_at = NULL, updated_at = $4
		WHERE id = $1 AND claim_token = $2 AND status = 'pending'`,
		reason)
}

// MarkCancelled finishes a claimed reminder as cancelled. Used by the
// executor's pre-send re-check of the source entity.
func (s *Store) MarkCancelled(ctx context.Context, id, token string) error {
	return s.transition(ctx, id, token, `
		UPDATE scheduled_reminders
		SET status = 'cancelled', claimed_by = '', claim_token = '', claimed_at = NULL, updated_at = $3
		WHERE id = $1 AND claim_token = $2 AND status = 'pending'`)
}

// ScheduleRetry returns a claimed reminder to pending with an incremented
// attempt count and a retry floor. The reminder is not eligible again
// before nextRetry.
func (s *Store) ScheduleRetry(ctx context.Context, id, token string, attempts int, nextRetry time.Time, lastError string) error {
	return s.transitionArgs(ctx, id, token, `
		UPDATE scheduled_reminders
		SET status = 'pending', attempt_count = $3, next_retry = $4, last_error = $5,
		    claimed_by = '', claim_token = '', claimed_at = NULL, updated_at = $6
		WHERE id = $1 AND claim_token = $2 AND status = 'pending'`,
		attempts, nextRetry.UTC(), lastError)
}

// Reschedule moves a claimed reminder's due time and releases the claim
// without touching attempt_count. Used for quiet-hours deferral.
func (s *Store) Reschedule(ctx context.Context, id, token string, at time.Time) error {
	return s.transitionArgs(ctx, id, token, `
		UPDATE scheduled_reminders
		SET scheduled_for = $3,
		    claimed_by = '', claim_token = '', claimed_at = NULL, updated_at = $4
		WHERE id = $1 AND claim_token = $2 AND status = 'pending'`,
		at.UTC())
}

// ClearElapsedRetries drops the retry floor on pending reminders whose
// next_retry has passed, making them plain due rows again. Returns the
// number of requeued reminders.
func (s *Store) ClearElapsedRetries(ctx context.Context, now time.Time) (int64, error) {
	res, err := s.db.ExecContext(ctx, `
		UPDATE scheduled_reminders
		SET next_retry = NULL, updated_at = $2
		WHERE status = 'pending' AND next_retry IS NOT NULL AND next_retry <= $1`,
		now.UTC(), s.clock.Now().UTC(),
	)
	if err != nil {
		return 0, fmt.Errorf("clear elapsed retries: %w", err)
	}
	return res.RowsAffected()
}

// PurgeTerminal deletes terminal reminders older than before. Pending rows
// are never touched regardless of age.
func (s *Store) PurgeTerminal(ctx context.Context, before time.Time) (int64, error) {
	res, err := s.db.ExecContext(ctx, `
		DELETE FROM scheduled_reminders
		WHERE status IN ('sent', 'failed', 'cancelled', 'skipped') AND updated_at < $1`,
		before.UTC(),
	)
	if err != nil {
		return 0, fmt.Errorf("purge terminal reminders: %w", err)
	}
	return res.RowsAffected()
}

// GetByID fetches one reminder, mostly for support tooling and tests.
func (s *Store) GetByID(ctx context.Context, id string) (*models.ScheduledReminder, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT `+reminderColumns+`
		FROM scheduled_reminders WHERE id = $1`, id)
	return scanReminder(row)
}

func (s *Store) transition(ctx context.Context, id, token, query string) error {
	return s.execGuarded(ctx, id, query, id, token, s.clock.Now().UTC())
}

func (s *Store) transitionArgs(ctx context.Context, id, token, query string, extra ...interface{}) error {
	args := append([]interface{}{id, token}, extra...)
	args = append(args, s.clock.Now().UTC())
	return s.execGuarded(ctx, id, query, args...)
}

func (s *Store) execGuarded(ctx context.Context, id, query string, args ...interface{}) error {
	res, err := s.db.ExecContext(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("reminder transition: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("reminder transition rows affected: %w", err)
	}
	if n == 0 {
		// Claim token mismatch: the row was reset by stale-claim recovery
		// or already moved on. The caller logs and walks away.
		return engineerrors.NewClaimLostError(id)
	}
	return nil
}

type scanner interface {
	Scan(dest ...interface{}) error
}

func scanReminder(row scanner) (*models.ScheduledReminder, error) {
	var r models.ScheduledReminder
	var nextRetry, claimedAt sql.NullTime
	var claimedBy, claimToken, lastError sql.NullString

	err := row.Scan(
		&r.ID, &r.TriggerType, &r.SourceEntityID, &r.UserID, &r.Channel, &r.Category, &r.Recipient,
		&r.Subject, &r.Body, &r.ScheduledFor, &r.Status, &r.AttemptCount, &r.MaxAttempts, &nextRetry,
		&claimedBy, &claimToken, &claimedAt, &lastError, &r.CreatedAt, &r.UpdatedAt,
	)
	if err != nil {
		return nil, fmt.Errorf("scan reminder: %w", err)
	}

	if nextRetry.Valid {
		t := nextRetry.Time
		r.NextRetry = &t
	}
	if claimedAt.Valid {
		t := claimedAt.Time
		r.ClaimedAt = &t
	}
	r.ClaimedBy = claimedBy.String
	r.ClaimToken = claimToken.String
	r.LastError = lastError.String

	return &r, nil
}
