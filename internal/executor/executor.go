// Package executor delivers one claimed reminder: preference and category
// filtering, the quiet-hours window, the daily send cap, a last-moment
// cancellation re-check against the source entity, then the actual channel
// send under a hard timeout. It owns every transition out of the claimed
// state; all of them release the claim.
package executor

import (
	"context"
	"errors"
	"time"

	"reminder-engine/internal/channels"
	"reminder-engine/internal/common/clock"
	engineerrors "reminder-engine/internal/common/errors"
	"reminder-engine/internal/common/logger"
	"reminder-engine/internal/common/metrics"
	"reminder-engine/internal/models"
	"reminder-engine/internal/store/prefs"

	"github.com/google/uuid"
)

// ReminderStore is the slice of the store the executor needs. Every method
// is guarded by the claim token.
type ReminderStore interface {
	MarkSent(ctx context.Context, id, token string) error
	MarkFailed(ctx context.Context, id, token string, attempts int, lastError string) error
	MarkSkipped(ctx context.Context, id, token, reason string) error
	MarkCancelled(ctx context.Context, id, token string) error
	ScheduleRetry(ctx context.Context, id, token string, attempts int, nextRetry time.Time, lastError string) error
	Reschedule(ctx context.Context, id, token string, at time.Time) error
}

// SendLog records terminal sends and answers the daily-cap query.
type SendLog interface {
	Insert(ctx context.Context, entry *models.NotificationLog) error
	CountSentBetween(ctx context.Context, userID string, from, to time.Time) (int, error)
}

// AuditIndexer mirrors log rows into the search backend. Best-effort.
type AuditIndexer interface {
	Index(ctx context.Context, entry *models.NotificationLog) error
}

// InboxWriter appends the in-app feed entry for a successful send.
type InboxWriter interface {
	Insert(ctx context.Context, n *models.Notification) error
}

// TriggerState answers whether the source entity was cancelled after the
// reminder was claimed. Cancellation only touches unclaimed rows, so this
// re-check closes most of the remaining race; what slips through is the
// documented accepted race.
type TriggerState interface {
	TriggerCancelled(ctx context.Context, triggerType, sourceEntityID string) (bool, error)
}

type Config struct {
	SendTimeout time.Duration
	Backoff     BackoffPolicy
}

type Executor struct {
	cfg      Config
	store    ReminderStore
	prefs    prefs.Reader
	sendLog  SendLog
	indexer  AuditIndexer
	inbox    InboxWriter
	triggers TriggerState
	senders  *channels.Registry
	clock    clock.Clock
	logger   logger.Logger
}

func New(
	cfg Config,
	store ReminderStore,
	prefReader prefs.Reader,
	sendLog SendLog,
	indexer AuditIndexer,
	inbox InboxWriter,
	triggers TriggerState,
	senders *channels.Registry,
	clk clock.Clock,
	log logger.Logger,
) *Executor {
	return &Executor{
		cfg:      cfg,
		store:    store,
		prefs:    prefReader,
		sendLog:  sendLog,
		indexer:  indexer,
		inbox:    inbox,
		triggers: triggers,
		senders:  senders,
		clock:    clk,
		logger:   log.WithFields(map[string]interface{}{"component": "executor"}),
	}
}

// Execute drives one claimed reminder to its next state. It mutates
// r.Status in memory to mirror the store transition it performed.
func (x *Executor) Execute(ctx context.Context, r *models.ScheduledReminder) {
	log := x.logger.WithFields(map[string]interface{}{
		"reminderId": r.ID,
		"userId":     r.UserID,
		"channel":    r.Channel,
	})

	pref, err := x.prefs.GetPreference(ctx, r.UserID)
	if err != nil {
		// Infrastructure hiccup, not a send failure: push the reminder
		// back without consuming an attempt.
		log.Error("preference lookup failed, deferring", map[string]interface{}{"error": err.Error()})
		x.pushBack(ctx, r, x.clock.Now().Add(x.cfg.Backoff.Delay), log)
		return
	}

	if !pref.ChannelEnabled(r.Channel) {
		x.skip(ctx, r, "channel disabled by preference", log)
		return
	}
	if !pref.CategoryEnabled(r.Category) {
		x.skip(ctx, r, "category disabled by preference", log)
		return
	}

	localNow := x.clock.Now().In(pref.Location())
	window, active, err := parseQuietWindow(pref.QuietHoursStart, pref.QuietHoursEnd)
	if err != nil {
		log.Warn("invalid quiet hours, ignoring window", map[string]interface{}{"error": err.Error()})
	} else if active && window.contains(localNow) {
		resume := window.endAfter(localNow)
		x.pushBack(ctx, r, resume, log.WithFields(map[string]interface{}{"resumeAt": resume}))
		return
	}

	if pref.MaxPerDay > 0 {
		dayStart := time.Date(localNow.Year(), localNow.Month(), localNow.Day(), 0, 0, 0, 0, pref.Location())
		count, err := x.sendLog.CountSentBetween(ctx, r.UserID, dayStart, dayStart.AddDate(0, 0, 1))
		if err != nil {
			log.Error("daily cap lookup failed, deferring", map[string]interface{}{"error": err.Error()})
			x.pushBack(ctx, r, x.clock.Now().Add(x.cfg.Backoff.Delay), log)
			return
		}
		if count >= pref.MaxPerDay {
			x.skip(ctx, r, "daily send cap reached", log)
			return
		}
	}

	if x.triggers != nil {
		cancelled, err := x.triggers.TriggerCancelled(ctx, r.TriggerType, r.SourceEntityID)
		if err != nil {
			log.Warn("cancellation re-check failed, proceeding with send", map[string]interface{}{"error": err.Error()})
		} else if cancelled {
			if err := x.store.MarkCancelled(ctx, r.ID, r.ClaimToken); err != nil {
				x.logTransitionErr(log, "cancelled", err)
				return
			}
			r.Status = models.StatusCancelled
			metrics.ReminderTransitions.WithLabelValues(models.StatusCancelled).Inc()
			log.Info("source entity cancelled before send", nil)
			return
		}
	}

	sender, ok := x.senders.Sender(r.Channel)
	if !ok {
		x.fail(ctx, r, r.AttemptCount, "no sender configured for channel", log)
		return
	}

	sendCtx, cancel := context.WithTimeout(ctx, x.cfg.SendTimeout)
	start := x.clock.Now()
	providerID, sendErr := sender.Send(sendCtx, r.Recipient, r.Subject, r.Body)
	cancel()
	metrics.SendDuration.WithLabelValues(r.Channel).Observe(time.Since(start).Seconds())

	if sendErr != nil {
		x.handleSendFailure(ctx, r, sendErr, log)
		return
	}

	x.succeed(ctx, r, providerID, log)
}

func (x *Executor) handleSendFailure(ctx context.Context, r *models.ScheduledReminder, sendErr error, log logger.Logger) {
	if errors.Is(sendErr, context.DeadlineExceeded) {
		sendErr = engineerrors.NewSendTimeoutError(sendErr.Error())
	}
	stdErr := engineerrors.AsStandard(sendErr)
	metrics.SendFailures.WithLabelValues(r.Channel, string(stdErr.Code)).Inc()
	log = log.WithFields(map[string]interface{}{
		"errorCategory": engineerrors.GetErrorCategory(stdErr.Code),
	})

	if engineerrors.IsPermanent(stdErr) {
		// Provider says this will never work; don't burn retries on it.
		x.fail(ctx, r, r.AttemptCount, stdErr.Error(), log)
		return
	}

	attempts := r.AttemptCount + 1
	if attempts >= r.MaxAttempts {
		x.fail(ctx, r, attempts, stdErr.Error(), log)
		return
	}

	nextRetry := x.clock.Now().Add(x.cfg.Backoff.Next(attempts))
	if err := x.store.ScheduleRetry(ctx, r.ID, r.ClaimToken, attempts, nextRetry, stdErr.Error()); err != nil {
		x.logTransitionErr(log, "retry", err)
		return
	}
	r.Status = models.StatusPending
	r.AttemptCount = attempts
	log.Warn("send failed, retry scheduled", map[string]interface{}{
		"attempt":   attempts,
		"nextRetry": nextRetry,
		"error":     stdErr.Error(),
	})
}

func (x *Executor) succeed(ctx context.Context, r *models.ScheduledReminder, providerID string, log logger.Logger) {
	if err := x.store.MarkSent(ctx, r.ID, r.ClaimToken); err != nil {
		// The claim was lost between send and transition. The message went
		// out; losing the row transition is logged, not retried, to keep
		// exactly-once on the send itself.
		x.logTransitionErr(log, "sent", err)
		return
	}
	r.Status = models.StatusSent
	metrics.ReminderTransitions.WithLabelValues(models.StatusSent).Inc()

	now := x.clock.Now()
	entry := &models.NotificationLog{
		ID:                uuid.New().String(),
		ReminderID:        r.ID,
		UserID:            r.UserID,
		TriggerType:       r.TriggerType,
		Channel:           r.Channel,
		Recipient:         r.Recipient,
		Status:            models.StatusSent,
		ProviderMessageID: providerID,
		SentAt:            now,
	}
	if err := x.sendLog.Insert(ctx, entry); err != nil {
		log.Error("notification log insert failed", map[string]interface{}{"error": err.Error()})
	}

	if x.indexer != nil {
		if err := x.indexer.Index(ctx, entry); err != nil {
			log.Warn("audit index failed", map[string]interface{}{"error": err.Error()})
		}
	}

	if x.inbox != nil {
		feed := &models.Notification{
			ID:              uuid.New().String(),
			UserID:          r.UserID,
			Category:        r.Category,
			Title:           r.Subject,
			Message:         r.Body,
			RelatedEntityID: r.SourceEntityID,
			CreatedAt:       now,
		}
		if err := x.inbox.Insert(ctx, feed); err != nil {
			log.Warn("inbox insert failed", map[string]interface{}{"error": err.Error()})
		}
	}

	log.Info("reminder sent", map[string]interface{}{
		"providerMessageId": providerID,
		"attemptCount":      r.AttemptCount,
	})
}

func (x *Executor) skip(ctx context.Context, r *models.ScheduledReminder, reason string, log logger.Logger) {
	if err := x.store.MarkSkipped(ctx, r.ID, r.ClaimToken, reason); err != nil {
		x.logTransitionErr(log, "skipped", err)
		return
	}
	r.Status = models.StatusSkipped
	metrics.ReminderTransitions.WithLabelValues(models.StatusSkipped).Inc()
	log.Info("reminder skipped", map[string]interface{}{"reason": reason})
}

func (x *Executor) fail(ctx context.Context, r *models.ScheduledReminder, attempts int, lastError string, log logger.Logger) {
	if err := x.store.MarkFailed(ctx, r.ID, r.ClaimToken, attempts, lastError); err != nil {
		x.logTransitionErr(log, "failed", err)
		return
	}
	r.Status = models.StatusFailed
	r.AttemptCount = attempts
	metrics.ReminderTransitions.WithLabelValues(models.StatusFailed).Inc()
	log.Error("reminder failed", map[string]interface{}{
		"attempts":  attempts,
		"lastError": lastError,
	})
}

// pushBack moves the reminder's due time forward and releases the claim
// without consuming an attempt (quiet hours, infrastructure hiccups).
func (x *Executor) pushBack(ctx context.Context, r *models.ScheduledReminder, until time.Time, log logger.Logger) {
	if err := x.store.Reschedule(ctx, r.ID, r.ClaimToken, until); err != nil {
		x.logTransitionErr(log, "rescheduled", err)
		return
	}
	r.Status = models.StatusPending
	log.Info("reminder deferred", map[string]interface{}{"until": until})
}

func (x *Executor) logTransitionErr(log logger.Logger, transition string, err error) {
	log.Warn("transition lost", map[string]interface{}{
		"transition": transition,
		"error":      err.Error(),
	})
}
