// internal/sweeper/sweeper_test.go
package sweeper

import (
	"context"
	"errors"
	"testing"
	"time"

	"reminder-engine/internal/common/clock"
	"reminder-engine/internal/common/logger"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// ==========================
// Mock Implementations
// ==========================

type MockReminderMaintenance struct {
	ClearElapsedRetriesFunc func(ctx context.Context, now time.Time) (int64, error)
	PurgeTerminalFunc       func(ctx context.Context, before time.Time) (int64, error)
}

func (m *MockReminderMaintenance) ClearElapsedRetries(ctx context.Context, now time.Time) (int64, error) {
	return m.ClearElapsedRetriesFunc(ctx, now)
}

func (m *MockReminderMaintenance) PurgeTerminal(ctx context.Context, before time.Time) (int64, error) {
	return m.PurgeTerminalFunc(ctx, before)
}

type MockLogMaintenance struct {
	PurgeOlderThanFunc func(ctx context.Context, before time.Time) (int64, error)
}

func (m *MockLogMaintenance) PurgeOlderThan(ctx context.Context, before time.Time) (int64, error) {
	return m.PurgeOlderThanFunc(ctx, before)
}

// ==========================
// Tests
// ==========================

func TestSweeper_Sweep(t *testing.T) {
	now := time.Date(2024, 3, 10, 12, 0, 0, 0, time.UTC)

	var gotNow time.Time
	reminders := &MockReminderMaintenance{
		ClearElapsedRetriesFunc: func(ctx context.Context, at time.Time) (int64, error) {
			gotNow = at
			return 3, nil
		},
	}

	s := New(Config{SweepInterval: time.Minute, RetentionDays: 90, RetentionSchedule: "0 3 * * *"},
		reminders, &MockLogMaintenance{}, clock.NewFake(now), logger.NewTestLogger(t))

	s.Sweep(context.Background())
	assert.Equal(t, now, gotNow)
}

func TestSweeper_SweepErrorIsSwallowed(t *testing.T) {
	reminders := &MockReminderMaintenance{
		ClearElapsedRetriesFunc: func(ctx context.Context, at time.Time) (int64, error) {
			return 0, errors.New("connection refused")
		},
	}

	s := New(Config{SweepInterval: time.Minute, RetentionDays: 90, RetentionSchedule: "0 3 * * *"},
		reminders, &MockLogMaintenance{}, clock.NewFake(time.Now()), logger.NewTestLogger(t))

	// Must not panic; errors are logged and the loop keeps running.
	s.Sweep(context.Background())
}

func TestSweeper_PurgeUsesRetentionHorizon(t *testing.T) {
	now := time.Date(2024, 6, 1, 3, 0, 0, 0, time.UTC)
	wantBefore := now.AddDate(0, 0, -90)

	var reminderBefore, logBefore time.Time
	reminders := &MockReminderMaintenance{
		PurgeTerminalFunc: func(ctx context.Context, before time.Time) (int64, error) {
			reminderBefore = before
			return 12, nil
		},
	}
	logs := &MockLogMaintenance{
		PurgeOlderThanFunc: func(ctx context.Context, before time.Time) (int64, error) {
			logBefore = before
			return 40, nil
		},
	}

	s := New(Config{SweepInterval: time.Minute, RetentionDays: 90, RetentionSchedule: "0 3 * * *"},
		reminders, logs, clock.NewFake(now), logger.NewTestLogger(t))

	s.Purge(context.Background())
	assert.Equal(t, wantBefore, reminderBefore)
	assert.Equal(t, wantBefore, logBefore)
}

func TestSweeper_PurgeContinuesAfterReminderFailure(t *testing.T) {
	reminders := &MockReminderMaintenance{
		PurgeTerminalFunc: func(ctx context.Context, before time.Time) (int64, error) {
			return 0, errors.New("deadlock detected")
		},
	}

	logPurged := false
	logs := &MockLogMaintenance{
		PurgeOlderThanFunc: func(ctx context.Context, before time.Time) (int64, error) {
			logPurged = true
			return 5, nil
		},
	}

	s := New(Config{SweepInterval: time.Minute, RetentionDays: 30, RetentionSchedule: "0 3 * * *"},
		reminders, logs, clock.NewFake(time.Now()), logger.NewTestLogger(t))

	s.Purge(context.Background())
	assert.True(t, logPurged)
}

func TestSweeper_StartRejectsBadSchedule(t *testing.T) {
	s := New(Config{SweepInterval: time.Minute, RetentionDays: 90, RetentionSchedule: "not a cron expr"},
		&MockReminderMaintenance{}, &MockLogMaintenance{}, clock.NewFake(time.Now()), logger.NewTestLogger(t))

	err := s.Start(context.Background())
	require.Error(t, err)
}

func TestSweeper_StartAndStop(t *testing.T) {
	swept := make(chan struct{}, 1)
	reminders := &MockReminderMaintenance{
		ClearElapsedRetriesFunc: func(ctx context.Context, at time.Time) (int64, error) {
			select {
			case swept <- struct{}{}:
			default:
			}
			return 0, nil
		},
	}

	s := New(Config{SweepInterval: 10 * time.Millisecond, RetentionDays: 90, RetentionSchedule: "0 3 * * *"},
		reminders, &MockLogMaintenance{}, clock.NewFake(time.Now()), logger.NewTestLogger(t))

	require.NoError(t, s.Start(context.Background()))

	select {
	case <-swept:
	case <-time.After(2 * time.Second):
		t.Fatal("sweep never ran")
	}

	s.Stop()
}
