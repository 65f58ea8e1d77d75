package match

import (
	"time"

	"github.com/danpilch/trainwatch/internal/api/booking"
)

type timestampAccessor struct {
	name string
	get  func(booking.Journey) string
}

// Tried in order; the first one yielding a parseable timestamp wins.
var arrivalAccessors = []timestampAccessor{
	{name: "journey", get: func(j booking.Journey) string { return j.Arrival }},
	{name: "last leg", get: func(j booking.Journey) string {
		if len(j.Legs) == 0 {
			return ""
		}
		return j.Legs[len(j.Legs)-1].Arrival
	}},
}

var departureAccessors = []timestampAccessor{
	{name: "journey", get: func(j booking.Journey) string { return j.Departure }},
	{name: "first leg", get: func(j booking.Journey) string {
		if len(j.Legs) == 0 {
			return ""
		}
		return j.Legs[0].Departure
	}},
}

var timestampLayouts = []string{
	time.RFC3339,
	"2006-01-02T15:04:05",
	"2006-01-02T15:04",
	"2006-01-02 15:04:05",
	"2006-01-02 15:04",
}

// ArrivalOf returns the journey's arrival time as written by the backend. The
// wall clock is kept as-is; no zone conversion happens.
func ArrivalOf(j booking.Journey) (time.Time, bool) {
	return firstTimestamp(j, arrivalAccessors)
}

// DepartureOf is ArrivalOf for the departure, falling back to the first leg.
func DepartureOf(j booking.Journey) (time.Time, bool) {
	return firstTimestamp(j, departureAccessors)
}

func firstTimestamp(j booking.Journey, accessors []timestampAccessor) (time.Time, bool) {
	for _, acc := range accessors {
		raw := acc.get(j)
		if raw == "" {
			continue
		}
		if t, ok := parseTimestamp(raw); ok {
			return t, true
		}
	}
	return time.Time{}, false
}

func parseTimestamp(s string) (time.Time, bool) {
	for _, layout := range timestampLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}
