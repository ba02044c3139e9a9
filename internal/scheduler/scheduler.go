// Package scheduler runs the periodic dispatch loop. Each tick recovers
// stale claims, selects a batch of due reminders, claims each one with the
// store's compare-and-set, and hands winners to the delivery executor on a
// bounded worker pool. Several scheduler instances may run against the
// same store; the claim CAS is the only coordination.
package scheduler

import (
	"context"
	"sync"
	"time"

	"reminder-engine/internal/common/clock"
	engineerrors "reminder-engine/internal/common/errors"
	"reminder-engine/internal/common/logger"
	"reminder-engine/internal/common/metrics"
	"reminder-engine/internal/common/observability"
	"reminder-engine/internal/models"

	"github.com/google/uuid"
)

// ReminderStore is the slice of the store the scheduler needs.
type ReminderStore interface {
	DueBatch(ctx context.Context, now time.Time, limit int) ([]*models.ScheduledReminder, error)
	Claim(ctx context.Context, id, owner, token string, at time.Time) (bool, error)
	ResetStaleClaims(ctx context.Context, before time.Time) (int64, error)
}

// Executor consumes one claimed reminder. It owns all further transitions.
type Executor interface {
	Execute(ctx context.Context, r *models.ScheduledReminder)
}

type Config struct {
	InstanceID   string
	TickInterval time.Duration
	BatchSize    int
	PoolSize     int
	ClaimTTL     time.Duration
}

type Scheduler struct {
	cfg      Config
	store    ReminderStore
	executor Executor
	clock    clock.Clock
	logger   logger.Logger
	obs      *observability.Observability

	pool   chan struct{} // worker pool permits
	wg     sync.WaitGroup
	stopCh chan struct{}
	once   sync.Once
}

func New(cfg Config, store ReminderStore, exec Executor, clk clock.Clock, log logger.Logger, obs *observability.Observability) *Scheduler {
	return &Scheduler{
		cfg:      cfg,
		store:    store,
		executor: exec,
		clock:    clk,
		logger:   log.WithFields(map[string]interface{}{"component": "scheduler", "instance": cfg.InstanceID}),
		obs:      obs,
		pool:     make(chan struct{}, cfg.PoolSize),
		stopCh:   make(chan struct{}),
	}
}

// Start launches the tick loop. Returns immediately; Stop waits for
// in-flight work.
func (s *Scheduler) Start(ctx context.Context) {
	s.logger.Info("scheduler started", map[string]interface{}{
		"tickInterval": s.cfg.TickInterval.String(),
		"batchSize":    s.cfg.BatchSize,
		"poolSize":     s.cfg.PoolSize,
	})

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		ticker := time.NewTicker(s.cfg.TickInterval)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				return
			case <-s.stopCh:
				return
			case <-ticker.C:
				s.Tick(ctx)
			}
		}
	}()
}

// Stop halts the loop and waits for in-flight executions to finish.
func (s *Scheduler) Stop() {
	s.once.Do(func() { close(s.stopCh) })
	s.wg.Wait()
	s.logger.Info("scheduler stopped", nil)
}

// Tick runs one dispatch round. Exported so tests can drive the scheduler
// without a ticker.
func (s *Scheduler) Tick(ctx context.Context) {
	metrics.SchedulerTicks.Inc()
	now := s.clock.Now()

	s.recoverStaleClaims(ctx, now)

	batch, err := s.store.DueBatch(ctx, now, s.cfg.BatchSize)
	if err != nil {
		s.logger.Error("due batch query failed", map[string]interface{}{"error": err.Error()})
		return
	}
	if len(batch) == 0 {
		return
	}

	claimed := 0
	for _, r := range batch {
		token := uuid.New().String()
		ok, err := s.store.Claim(ctx, r.ID, s.cfg.InstanceID, token, now)
		if err != nil {
			s.logger.Error("claim failed", map[string]interface{}{
				"reminderId": r.ID,
				"error":      err.Error(),
			})
			continue
		}
		if !ok {
			// Another dispatcher got there first. Not an error.
			metrics.ClaimConflicts.Inc()
			s.logger.Debug("claim lost to concurrent dispatcher", map[string]interface{}{
				"reminderId": r.ID,
				"code":       string(engineerrors.ErrCodeClaimConflict),
			})
			continue
		}

		metrics.RemindersClaimed.Inc()
		claimed++

		claimedAt := now
		r.ClaimedBy = s.cfg.InstanceID
		r.ClaimToken = token
		r.ClaimedAt = &claimedAt

		s.dispatch(ctx, r)
	}

	s.logger.Debug("tick complete", map[string]interface{}{
		"due":     len(batch),
		"claimed": claimed,
	})
}

// dispatch blocks for a pool permit, keeping concurrency bounded while the
// claim loop itself stays sequential.
func (s *Scheduler) dispatch(ctx context.Context, r *models.ScheduledReminder) {
	select {
	case s.pool <- struct{}{}:
	case <-ctx.Done():
		return
	}

	s.wg.Add(1)
	go func() {
		defer func() {
			<-s.pool
			s.wg.Done()
		}()

		start := s.clock.Now()
		s.executor.Execute(ctx, r)
		if s.obs != nil {
			s.obs.RecordDispatchDuration(ctx, s.clock.Now().Sub(start), r.Status)
			s.obs.RecordDispatch(ctx, r.Status)
		}
	}()
}

func (s *Scheduler) recoverStaleClaims(ctx context.Context, now time.Time) {
	before := now.Add(-s.cfg.ClaimTTL)
	n, err := s.store.ResetStaleClaims(ctx, before)
	if err != nil {
		s.logger.Error("stale claim reset failed", map[string]interface{}{"error": err.Error()})
		return
	}
	if n > 0 {
		// Likely a crashed worker; the reminders are dispatchable again.
		metrics.StaleClaimsRecovered.Add(float64(n))
		s.logger.Warn("recovered stale claims", map[string]interface{}{"count": n})
	}
}
