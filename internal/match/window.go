// Package match selects the journeys whose arrival falls inside a
// time-of-day window.
package match

import (
	"fmt"
	"time"

	"github.com/danpilch/trainwatch/internal/api/booking"
)

// Clock is a time of day in minutes since midnight.
type Clock int

func ParseClock(s string) (Clock, error) {
	t, err := time.Parse("15:04", s)
	if err != nil {
		return 0, fmt.Errorf("invalid time of day %q: %w", s, err)
	}
	return ClockOf(t), nil
}

// ClockOf projects the wall clock of t, in t's own location.
func ClockOf(t time.Time) Clock {
	return Clock(t.Hour()*60 + t.Minute())
}

func (c Clock) String() string {
	return fmt.Sprintf("%02d:%02d", int(c)/60, int(c)%60)
}

// Window is a time-of-day range. Each bound is exclusive unless its Include
// flag is set. When After is later than Before the window wraps midnight.
type Window struct {
	After         Clock
	Before        Clock
	IncludeAfter  bool
	IncludeBefore bool
}

func NewWindow(after, before string, includeAfter, includeBefore bool) (Window, error) {
	a, err := ParseClock(after)
	if err != nil {
		return Window{}, err
	}
	b, err := ParseClock(before)
	if err != nil {
		return Window{}, err
	}
	return Window{After: a, Before: b, IncludeAfter: includeAfter, IncludeBefore: includeBefore}, nil
}

func (w Window) Contains(c Clock) bool {
	lowerOK := c > w.After || (w.IncludeAfter && c == w.After)
	upperOK := c < w.Before || (w.IncludeBefore && c == w.Before)
	if w.After <= w.Before {
		return lowerOK && upperOK
	}
	return lowerOK || upperOK
}

func (w Window) String() string {
	open, closing := "(", ")"
	if w.IncludeAfter {
		open = "["
	}
	if w.IncludeBefore {
		closing = "]"
	}
	return open + w.After.String() + ", " + w.Before.String() + closing
}

// Match keeps the journeys arriving inside the window, in input order.
// Journeys without a readable arrival are dropped. Duplicates are kept.
func (w Window) Match(journeys []booking.Journey) []booking.Journey {
	matched := make([]booking.Journey, 0, len(journeys))
	for _, j := range journeys {
		arrival, ok := ArrivalOf(j)
		if !ok {
			continue
		}
		if w.Contains(ClockOf(arrival)) {
			matched = append(matched, j)
		}
	}
	return matched
}
