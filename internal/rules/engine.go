// Package rules turns domain trigger events into ScheduledReminder rows.
// Each configured rule expands an event's anchor time into one reminder per
// escalation offset, skipping offsets already in the past and deduplicating
// against pending rows. The cancellation path flips every pending reminder
// for the trigger, on any channel, and is idempotent.
package rules

import (
	"context"
	"time"

	"reminder-engine/internal/common/clock"
	engineerrors "reminder-engine/internal/common/errors"
	"reminder-engine/internal/common/logger"
	"reminder-engine/internal/models"

	"github.com/google/uuid"
)

// ReminderStore is the slice of the store the rule engine needs.
type ReminderStore interface {
	CreatePending(ctx context.Context, r *models.ScheduledReminder) (bool, error)
	CancelPending(ctx context.Context, triggerType, sourceEntityID string) (int64, error)
}

// ContactDirectory resolves a user's address for a channel.
type ContactDirectory interface {
	Contact(ctx context.Context, userID, channel string) (string, error)
}

// Renderer is the external templating collaborator. It hands back the
// final subject and body; the engine never interpolates anything itself.
type Renderer interface {
	Render(ev models.TriggerEvent, rule models.ReminderRule, offset models.EscalationOffset) (subject, body string, err error)
}

type Engine struct {
	registry    *Registry
	store       ReminderStore
	contacts    ContactDirectory
	renderer    Renderer
	clock       clock.Clock
	logger      logger.Logger
	maxAttempts int
}

func NewEngine(
	registry *Registry,
	store ReminderStore,
	contacts ContactDirectory,
	renderer Renderer,
	clk clock.Clock,
	log logger.Logger,
	maxAttempts int,
) *Engine {
	return &Engine{
		registry:    registry,
		store:       store,
		contacts:    contacts,
		renderer:    renderer,
		clock:       clk,
		logger:      log.WithFields(map[string]interface{}{"component": "rule-engine"}),
		maxAttempts: maxAttempts,
	}
}

// OnTriggerEvent is the single entry point for domain collaborators. Set
// events create reminders; cancelled events revoke them. Configuration
// problems (no rule, no anchor) ignore the trigger and are never an error.
func (e *Engine) OnTriggerEvent(ctx context.Context, ev models.TriggerEvent) error {
	log := e.logger.WithFields(map[string]interface{}{
		"triggerType":    ev.TriggerType,
		"sourceEntityId": ev.SourceEntityID,
	})

	if ev.Cancelled {
		n, err := e.store.CancelPending(ctx, ev.TriggerType, ev.SourceEntityID)
		if err != nil {
			return err
		}
		log.Info("trigger cancelled", map[string]interface{}{"remindersCancelled": n})
		return nil
	}

	rulesForTrigger := e.registry.RulesFor(ev.TriggerType)
	if len(rulesForTrigger) == 0 {
		log.Warn("no rule for trigger type, ignoring", map[string]interface{}{
			"code": string(engineerrors.ErrCodeUnknownTrigger),
		})
		return nil
	}

	if ev.AnchorTime.IsZero() {
		// Many triggers legitimately have no due date yet.
		log.Info("trigger has no anchor time, ignoring", map[string]interface{}{
			"code": string(engineerrors.ErrCodeAnchorMissing),
		})
		return nil
	}

	created := 0
	for _, rule := range rulesForTrigger {
		reminders, err := e.GenerateReminders(ctx, ev, rule)
		if err != nil {
			return err
		}
		for _, r := range reminders {
			ok, err := e.store.CreatePending(ctx, r)
			if err != nil {
				return err
			}
			if !ok {
				log.Debug("pending reminder already exists, deduplicated", map[string]interface{}{
					"dedupKey": r.DedupKey(),
				})
				continue
			}
			created++
		}
	}

	log.Info("trigger processed", map[string]interface{}{"remindersCreated": created})
	return nil
}

// GenerateReminders expands one rule into reminder rows, one per
// escalation offset. Offsets whose computed time is already past are
// skipped, not created.
func (e *Engine) GenerateReminders(ctx context.Context, ev models.TriggerEvent, rule models.ReminderRule) ([]*models.ScheduledReminder, error) {
	now := e.clock.Now()

	recipient, err := e.contacts.Contact(ctx, ev.UserID, rule.Channel)
	if err != nil {
		// No address for this channel is a per-channel skip, not a failure
		// of the whole trigger.
		e.logger.Warn("no contact for channel, skipping rule", map[string]interface{}{
			"userId":  ev.UserID,
			"channel": rule.Channel,
			"error":   err.Error(),
		})
		return nil, nil
	}

	maxAttempts := rule.MaxAttempts
	if maxAttempts == 0 {
		maxAttempts = e.maxAttempts
	}

	var out []*models.ScheduledReminder
	for _, offset := range rule.Offsets {
		at := ev.AnchorTime.Add(-offset.Duration())
		if !at.After(now) {
			continue
		}

		subject, body, err := e.renderer.Render(ev, rule, offset)
		if err != nil {
			return nil, err
		}

		out = append(out, &models.ScheduledReminder{
			ID:             uuid.New().String(),
			TriggerType:    ev.TriggerType,
			SourceEntityID: ev.SourceEntityID,
			UserID:         ev.UserID,
			Channel:        rule.Channel,
			Category:       rule.Category,
			Recipient:      recipient,
			Subject:        subject,
			Body:           body,
			ScheduledFor:   at,
			Status:         models.StatusPending,
			MaxAttempts:    maxAttempts,
		})
	}
	return out, nil
}

// NextDue is a convenience for operational tooling: the soonest offset of
// a rule relative to an anchor, or zero time when everything has passed.
func (e *Engine) NextDue(anchor time.Time, rule models.ReminderRule) time.Time {
	now := e.clock.Now()
	var best time.Time
	for _, offset := range rule.Offsets {
		at := anchor.Add(-offset.Duration())
		if at.After(now) && (best.IsZero() || at.Before(best)) {
			best = at
		}
	}
	return best
}
