// Package sweeper runs the two background maintenance loops: a periodic
// retry sweep that returns reminders with an elapsed backoff window to the
// dispatchable pool, and a cron-scheduled retention purge that deletes
// terminal reminders and delivery logs past the retention horizon.
package sweeper

import (
	"context"
	"sync"
	"time"

	"reminder-engine/internal/common/clock"
	"reminder-engine/internal/common/logger"
	"reminder-engine/internal/common/metrics"

	"github.com/robfig/cron/v3"
)

// ReminderMaintenance is the slice of the reminder store the sweeper needs.
type ReminderMaintenance interface {
	ClearElapsedRetries(ctx context.Context, now time.Time) (int64, error)
	PurgeTerminal(ctx context.Context, before time.Time) (int64, error)
}

// LogMaintenance purges delivery log rows past the retention horizon.
type LogMaintenance interface {
	PurgeOlderThan(ctx context.Context, before time.Time) (int64, error)
}

type Config struct {
	SweepInterval     time.Duration
	RetentionDays     int
	RetentionSchedule string // cron expression
}

type Sweeper struct {
	cfg       Config
	reminders ReminderMaintenance
	logs      LogMaintenance
	clock     clock.Clock
	logger    logger.Logger

	cron   *cron.Cron
	wg     sync.WaitGroup
	stopCh chan struct{}
	once   sync.Once
}

func New(cfg Config, reminders ReminderMaintenance, logs LogMaintenance, clk clock.Clock, log logger.Logger) *Sweeper {
	return &Sweeper{
		cfg:       cfg,
		reminders: reminders,
		logs:      logs,
		clock:     clk,
		logger:    log.WithFields(map[string]interface{}{"component": "sweeper"}),
		stopCh:    make(chan struct{}),
	}
}

// Start launches the retry sweep ticker and schedules the retention purge.
func (s *Sweeper) Start(ctx context.Context) error {
	s.cron = cron.New()
	if _, err := s.cron.AddFunc(s.cfg.RetentionSchedule, func() { s.Purge(ctx) }); err != nil {
		return err
	}
	s.cron.Start()

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		ticker := time.NewTicker(s.cfg.SweepInterval)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				return
			case <-s.stopCh:
				return
			case <-ticker.C:
				s.Sweep(ctx)
			}
		}
	}()

	s.logger.Info("sweeper started", map[string]interface{}{
		"sweepInterval":     s.cfg.SweepInterval.String(),
		"retentionDays":     s.cfg.RetentionDays,
		"retentionSchedule": s.cfg.RetentionSchedule,
	})
	return nil
}

// Stop halts both loops and waits for in-flight runs.
func (s *Sweeper) Stop() {
	s.once.Do(func() { close(s.stopCh) })
	if s.cron != nil {
		<-s.cron.Stop().Done()
	}
	s.wg.Wait()
	s.logger.Info("sweeper stopped", nil)
}

// Sweep clears elapsed retry windows. The due-batch query already treats
// next_retry as a due-time floor; the sweep keeps the column tidy and
// feeds the requeue counter.
func (s *Sweeper) Sweep(ctx context.Context) {
	n, err := s.reminders.ClearElapsedRetries(ctx, s.clock.Now())
	if err != nil {
		s.logger.Error("retry sweep failed", map[string]interface{}{"error": err.Error()})
		return
	}
	if n > 0 {
		metrics.RetriesRequeued.Add(float64(n))
		s.logger.Info("retries requeued", map[string]interface{}{"count": n})
	}
}

// Purge deletes terminal reminders and delivery logs older than the
// retention horizon. Pending reminders are never touched regardless of age.
func (s *Sweeper) Purge(ctx context.Context) {
	before := s.clock.Now().AddDate(0, 0, -s.cfg.RetentionDays)

	reminders, err := s.reminders.PurgeTerminal(ctx, before)
	if err != nil {
		s.logger.Error("reminder purge failed", map[string]interface{}{"error": err.Error()})
	} else if reminders > 0 {
		metrics.RemindersPurged.Add(float64(reminders))
	}

	logs, err := s.logs.PurgeOlderThan(ctx, before)
	if err != nil {
		s.logger.Error("log purge failed", map[string]interface{}{"error": err.Error()})
	} else if logs > 0 {
		metrics.LogsPurged.Add(float64(logs))
	}

	s.logger.Info("retention purge complete", map[string]interface{}{
		"before":           before,
		"remindersDeleted": reminders,
		"logsDeleted":      logs,
	})
}
