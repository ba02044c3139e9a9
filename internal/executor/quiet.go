// internal/executor/quiet.go
package executor

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// quietWindow is a recurring daily window in the user's local time. The
// window is circular: start 22:00 / end 08:00 means "after 22:00 OR before
// 08:00", not two independent comparisons.
type quietWindow struct {
	startMin int // minutes since local midnight
	endMin   int
}

// parseQuietWindow builds a window from "HH:MM" strings. Empty strings or
// start == end disable the window.
func parseQuietWindow(start, end string) (quietWindow, bool, error) {
	if start == "" || end == "" {
		return quietWindow{}, false, nil
	}

	startMin, err := parseClockMinutes(start)
	if err != nil {
		return quietWindow{}, false, err
	}
	endMin, err := parseClockMinutes(end)
	if err != nil {
		return quietWindow{}, false, err
	}
	if startMin == endMin {
		return quietWindow{}, false, nil
	}

	return quietWindow{startMin: startMin, endMin: endMin}, true, nil
}

func parseClockMinutes(s string) (int, error) {
	parts := strings.SplitN(s, ":", 2)
	if len(parts) != 2 {
		return 0, fmt.Errorf("invalid time of day: %q", s)
	}
	h, err := strconv.Atoi(parts[0])
	if err != nil || h < 0 || h > 23 {
		return 0, fmt.Errorf("invalid hour in %q", s)
	}
	m, err := strconv.Atoi(parts[1])
	if err != nil || m < 0 || m > 59 {
		return 0, fmt.Errorf("invalid minute in %q", s)
	}
	return h*60 + m, nil
}

// contains reports whether t (already in the user's location) falls inside
// the window.
func (w quietWindow) contains(t time.Time) bool {
	min := t.Hour()*60 + t.Minute()
	if w.startMin < w.endMin {
		return min >= w.startMin && min < w.endMin
	}
	// Wraps midnight.
	return min >= w.startMin || min < w.endMin
}

// endAfter returns the next moment the window closes at or after t.
func (w quietWindow) endAfter(t time.Time) time.Time {
	end := time.Date(t.Year(), t.Month(), t.Day(), w.endMin/60, w.endMin%60, 0, 0, t.Location())
	if !end.After(t) {
		end = end.AddDate(0, 0, 1)
	}
	return end
}
