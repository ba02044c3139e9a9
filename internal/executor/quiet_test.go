// internal/executor/quiet_test.go
package executor

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseQuietWindow(t *testing.T) {
	tests := []struct {
		name   string
		start  string
		end    string
		active bool
		hasErr bool
	}{
		{name: "normal window", start: "13:00", end: "15:30", active: true},
		{name: "wraps midnight", start: "22:00", end: "08:00", active: true},
		{name: "empty start disables", start: "", end: "08:00", active: false},
		{name: "empty end disables", start: "22:00", end: "", active: false},
		{name: "equal start and end disables", start: "09:00", end: "09:00", active: false},
		{name: "bad hour", start: "25:00", end: "08:00", hasErr: true},
		{name: "bad minute", start: "22:61", end: "08:00", hasErr: true},
		{name: "not a clock time", start: "late", end: "08:00", hasErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, active, err := parseQuietWindow(tt.start, tt.end)
			if tt.hasErr {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.active, active)
		})
	}
}

func TestQuietWindow_Contains(t *testing.T) {
	at := func(h, m int) time.Time {
		return time.Date(2024, 3, 10, h, m, 0, 0, time.UTC)
	}

	t.Run("normal window", func(t *testing.T) {
		w, active, err := parseQuietWindow("13:00", "15:30")
		require.NoError(t, err)
		require.True(t, active)

		assert.False(t, w.contains(at(12, 59)))
		assert.True(t, w.contains(at(13, 0)))
		assert.True(t, w.contains(at(15, 29)))
		assert.False(t, w.contains(at(15, 30)))
		assert.False(t, w.contains(at(23, 0)))
	})

	t.Run("wraps midnight", func(t *testing.T) {
		w, active, err := parseQuietWindow("22:00", "08:00")
		require.NoError(t, err)
		require.True(t, active)

		assert.True(t, w.contains(at(23, 0)))
		assert.True(t, w.contains(at(2, 0)))
		assert.True(t, w.contains(at(7, 59)))
		assert.False(t, w.contains(at(8, 0)))
		assert.False(t, w.contains(at(12, 0)))
		assert.False(t, w.contains(at(21, 59)))
	})
}

func TestQuietWindow_EndAfter(t *testing.T) {
	w, _, err := parseQuietWindow("22:00", "08:00")
	require.NoError(t, err)

	// Inside the window before midnight: the close is tomorrow morning.
	at := time.Date(2024, 3, 10, 23, 15, 0, 0, time.UTC)
	assert.Equal(t, time.Date(2024, 3, 11, 8, 0, 0, 0, time.UTC), w.endAfter(at))

	// Inside the window after midnight: the close is the same morning.
	at = time.Date(2024, 3, 11, 3, 0, 0, 0, time.UTC)
	assert.Equal(t, time.Date(2024, 3, 11, 8, 0, 0, 0, time.UTC), w.endAfter(at))
}
