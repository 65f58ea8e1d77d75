package booking

import (
	"encoding/json"
	"strconv"
	"strings"
)

// Field candidates, tried in order. The backend has renamed most of these at
// least once.
var (
	sessionIDKeys = []string{"departureSearchId", "searchId", "id"}
	journeyIDKeys = []string{"departureId", "journeyId", "id"}
	arrivalKeys   = []string{"arrivalDateTime", "arrivalTime", "arrival"}
	departureKeys = []string{"departureDateTime", "departureTime", "departure"}
	legListKeys   = []string{"legs", "segments"}
	reasonKeys    = []string{"unavailableReasons", "unavailabilityReasons"}
	reasonCodeKey = []string{"code", "reason", "type"}
	availableKeys = []string{"available", "isBookable", "bookable"}
	placeListKeys = []string{"places", "items", "results"}
	placeNameKeys = []string{"name", "displayName", "label"}
)

// lookupList resolves a dotted path like "travels.departures" to a flat list.
// Arrays met along the way are flattened. The second result reports whether the
// path exists at all, so an empty list is distinguishable from a missing key.
func lookupList(root any, path string) ([]any, bool) {
	segs := strings.Split(path, ".")
	nodes := []any{root}

	for i, seg := range segs {
		last := i == len(segs)-1
		var next []any
		found := false

		for _, n := range nodes {
			obj, ok := n.(map[string]any)
			if !ok {
				continue
			}
			v, ok := obj[seg]
			if !ok {
				continue
			}
			switch val := v.(type) {
			case []any:
				found = true
				next = append(next, val...)
			case map[string]any:
				if last {
					continue
				}
				found = true
				next = append(next, val)
			}
		}

		if !found {
			return nil, false
		}
		if len(next) == 0 {
			return []any{}, true
		}
		nodes = next
	}

	return nodes, true
}

func firstString(obj map[string]any, keys []string) (string, bool) {
	for _, k := range keys {
		switch v := obj[k].(type) {
		case string:
			if v != "" {
				return v, true
			}
		case json.Number:
			return v.String(), true
		}
	}
	return "", false
}

func firstBool(obj map[string]any, keys []string) (value bool, ok bool) {
	for _, k := range keys {
		if v, isBool := obj[k].(bool); isBool {
			return v, true
		}
	}
	return false, false
}

func firstList(obj map[string]any, keys []string) []any {
	for _, k := range keys {
		if v, ok := obj[k].([]any); ok {
			return v
		}
	}
	return nil
}

func toFloat(v any) (float64, bool) {
	switch n := v.(type) {
	case json.Number:
		f, err := n.Float64()
		return f, err == nil
	case float64:
		return n, true
	case string:
		f, err := strconv.ParseFloat(strings.TrimSpace(n), 64)
		return f, err == nil
	}
	return 0, false
}

// decodeJourney maps one raw journey object. It returns false when the entry is
// not an object at all.
func decodeJourney(raw any) (Journey, bool) {
	obj, ok := raw.(map[string]any)
	if !ok {
		return Journey{}, false
	}

	var j Journey
	j.ID, _ = firstString(obj, journeyIDKeys)
	j.Arrival, _ = firstString(obj, arrivalKeys)
	j.Departure, _ = firstString(obj, departureKeys)

	for _, rawLeg := range firstList(obj, legListKeys) {
		legObj, ok := rawLeg.(map[string]any)
		if !ok {
			continue
		}
		var leg Leg
		leg.Arrival, _ = firstString(legObj, arrivalKeys)
		leg.Departure, _ = firstString(legObj, departureKeys)
		j.Legs = append(j.Legs, leg)
	}

	for _, r := range firstList(obj, reasonKeys) {
		switch reason := r.(type) {
		case string:
			j.UnavailableReasons = append(j.UnavailableReasons, reason)
		case map[string]any:
			if code, ok := firstString(reason, reasonCodeKey); ok {
				j.UnavailableReasons = append(j.UnavailableReasons, code)
			}
		}
	}

	return j, true
}
