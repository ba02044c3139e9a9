// internal/scheduler/scheduler_test.go
package scheduler

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"reminder-engine/internal/common/clock"
	"reminder-engine/internal/common/logger"
	"reminder-engine/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// ==========================
// In-Memory Fake Store
// ==========================

// fakeStore implements the claim CAS in memory, mutex-guarded, so several
// scheduler instances can race against it the way they race against the
// real row-level UPDATE.
type fakeStore struct {
	mu        sync.Mutex
	reminders map[string]*models.ScheduledReminder
}

func newFakeStore(rs ...*models.ScheduledReminder) *fakeStore {
	s := &fakeStore{reminders: make(map[string]*models.ScheduledReminder)}
	for _, r := range rs {
		s.reminders[r.ID] = r
	}
	return s
}

func (s *fakeStore) DueBatch(ctx context.Context, now time.Time, limit int) ([]*models.ScheduledReminder, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var out []*models.ScheduledReminder
	for _, r := range s.reminders {
		if r.Status == models.StatusPending && r.ClaimedAt == nil && !r.ScheduledFor.After(now) {
			cp := *r
			out = append(out, &cp)
		}
		if len(out) == limit {
			break
		}
	}
	return out, nil
}

func (s *fakeStore) Claim(ctx context.Context, id, owner, token string, at time.Time) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	r, ok := s.reminders[id]
	if !ok || r.Status != models.StatusPending || r.ClaimedAt != nil {
		return false, nil
	}
	claimedAt := at
	r.ClaimedBy = owner
	r.ClaimToken = token
	r.ClaimedAt = &claimedAt
	return true, nil
}

func (s *fakeStore) ResetStaleClaims(ctx context.Context, before time.Time) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var n int64
	for _, r := range s.reminders {
		if r.Status == models.StatusPending && r.ClaimedAt != nil && r.ClaimedAt.Before(before) {
			r.ClaimedAt = nil
			r.ClaimedBy = ""
			r.ClaimToken = ""
			n++
		}
	}
	return n, nil
}

// countingExecutor records every execution it receives.
type countingExecutor struct {
	mu       sync.Mutex
	executed []*models.ScheduledReminder
}

func (e *countingExecutor) Execute(ctx context.Context, r *models.ScheduledReminder) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.executed = append(e.executed, r)
}

func (e *countingExecutor) count() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return len(e.executed)
}

// ==========================
// Test Helpers
// ==========================

func dueReminder(id string, at time.Time) *models.ScheduledReminder {
	return &models.ScheduledReminder{
		ID:           id,
		TriggerType:  models.TriggerAppointmentUpcoming,
		UserID:       "user-1",
		Channel:      models.ChannelEmail,
		ScheduledFor: at,
		Status:       models.StatusPending,
		MaxAttempts:  3,
	}
}

func newTestScheduler(t *testing.T, instanceID string, store ReminderStore, exec Executor, now time.Time) *Scheduler {
	return New(
		Config{
			InstanceID:   instanceID,
			TickInterval: time.Minute,
			BatchSize:    100,
			PoolSize:     4,
			ClaimTTL:     5 * time.Minute,
		},
		store, exec, clock.NewFake(now), logger.NewTestLogger(t), nil,
	)
}

// ==========================
// Core Functionality Tests
// ==========================

func TestScheduler_TickClaimsAndDispatchesDueReminders(t *testing.T) {
	now := time.Date(2024, 3, 9, 14, 0, 0, 0, time.UTC)
	store := newFakeStore(
		dueReminder("rem-1", now.Add(-time.Minute)),
		dueReminder("rem-2", now.Add(-time.Hour)),
		dueReminder("rem-3", now.Add(time.Hour)), // not due yet
	)
	exec := &countingExecutor{}
	s := newTestScheduler(t, "instance-1", store, exec, now)

	s.Tick(context.Background())
	s.Stop()

	assert.Equal(t, 2, exec.count())
	for _, r := range exec.executed {
		assert.Equal(t, "instance-1", r.ClaimedBy)
		assert.NotEmpty(t, r.ClaimToken)
		require.NotNil(t, r.ClaimedAt)
	}
}

func TestScheduler_SecondTickDoesNotRedispatchClaimed(t *testing.T) {
	now := time.Date(2024, 3, 9, 14, 0, 0, 0, time.UTC)
	store := newFakeStore(dueReminder("rem-1", now.Add(-time.Minute)))
	exec := &countingExecutor{}
	s := newTestScheduler(t, "instance-1", store, exec, now)

	s.Tick(context.Background())
	s.Tick(context.Background())
	s.Stop()

	assert.Equal(t, 1, exec.count())
}

func TestScheduler_ConcurrentInstancesClaimExactlyOnce(t *testing.T) {
	now := time.Date(2024, 3, 9, 14, 0, 0, 0, time.UTC)

	var reminders []*models.ScheduledReminder
	for i := 0; i < 50; i++ {
		reminders = append(reminders, dueReminder(fmt.Sprintf("rem-%02d", i), now.Add(-time.Minute)))
	}
	store := newFakeStore(reminders...)
	exec := &countingExecutor{}

	s1 := newTestScheduler(t, "instance-1", store, exec, now)
	s2 := newTestScheduler(t, "instance-2", store, exec, now)

	var wg sync.WaitGroup
	wg.Add(2)
	go func() { defer wg.Done(); s1.Tick(context.Background()) }()
	go func() { defer wg.Done(); s2.Tick(context.Background()) }()
	wg.Wait()
	s1.Stop()
	s2.Stop()

	// Both instances saw the same due batch; the CAS let each reminder
	// through exactly once.
	assert.Equal(t, 50, exec.count())

	seen := make(map[string]int)
	for _, r := range exec.executed {
		seen[r.ID]++
	}
	for id, n := range seen {
		assert.Equal(t, 1, n, "reminder %s dispatched more than once", id)
	}
}

func TestScheduler_RecoversStaleClaims(t *testing.T) {
	now := time.Date(2024, 3, 9, 14, 0, 0, 0, time.UTC)

	stale := dueReminder("rem-stale", now.Add(-time.Hour))
	staleClaim := now.Add(-10 * time.Minute)
	stale.ClaimedBy = "crashed-instance"
	stale.ClaimToken = "dead-token"
	stale.ClaimedAt = &staleClaim

	fresh := dueReminder("rem-fresh", now.Add(-time.Hour))
	freshClaim := now.Add(-time.Minute)
	fresh.ClaimedBy = "busy-instance"
	fresh.ClaimToken = "live-token"
	fresh.ClaimedAt = &freshClaim

	store := newFakeStore(stale, fresh)
	exec := &countingExecutor{}
	s := newTestScheduler(t, "instance-1", store, exec, now)

	s.Tick(context.Background())
	s.Stop()

	// The stale claim was reset and re-dispatched; the fresh claim was not.
	require.Equal(t, 1, exec.count())
	assert.Equal(t, "rem-stale", exec.executed[0].ID)
	assert.Equal(t, "instance-1", exec.executed[0].ClaimedBy)
}
