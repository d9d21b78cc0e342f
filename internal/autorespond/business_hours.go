package autorespond

import (
	"fmt"
	"time"
)

// HoursWindow is a parsed BusinessHours.
type HoursWindow struct {
	StartMinutes int
	EndMinutes   int
	location     *time.Location
}

// ParseBusinessHours turns HH:MM strings and an IANA zone into a window.
func ParseBusinessHours(h BusinessHours) (HoursWindow, error) {
	loc := time.UTC
	if h.Timezone != "" {
		var err error
		loc, err = time.LoadLocation(h.Timezone)
		if err != nil {
			return HoursWindow{}, fmt.Errorf("autorespond: load business hours tz: %w", err)
		}
	}
	startMin, err := parseClock(h.Start)
	if err != nil {
		return HoursWindow{}, fmt.Errorf("autorespond: parse business hours start: %w", err)
	}
	endMin, err := parseClock(h.End)
	if err != nil {
		return HoursWindow{}, fmt.Errorf("autorespond: parse business hours end: %w", err)
	}
	return HoursWindow{StartMinutes: startMin, EndMinutes: endMin, location: loc}, nil
}

func parseClock(v string) (int, error) {
	if v == "" {
		return 0, fmt.Errorf("empty clock")
	}
	t, err := time.Parse("15:04", v)
	if err != nil {
		return 0, err
	}
	return t.Hour()*60 + t.Minute(), nil
}

// Contains reports whether now, in the window's zone, falls in [start, end).
// Equal start and end means open around the clock.
func (w HoursWindow) Contains(now time.Time) bool {
	loc := w.location
	if loc == nil {
		loc = time.UTC
	}
	local := now.In(loc)
	minutes := local.Hour()*60 + local.Minute()
	if w.StartMinutes == w.EndMinutes {
		return true
	}
	if w.StartMinutes < w.EndMinutes {
		return minutes >= w.StartMinutes && minutes < w.EndMinutes
	}
	// Window crosses midnight.
	return minutes >= w.StartMinutes || minutes < w.EndMinutes
}
