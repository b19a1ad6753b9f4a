package openaq

import "time"

// Active reports whether a sensor may have data inside the window. A
// sensor is excluded only when it can be proven inactive: both its
// first and last timestamps are present, both parse, and the two closed
// intervals do not overlap. A boundary touch counts as overlap. Any
// missing or malformed signal keeps the sensor in, trading extra API
// calls for not silently dropping data.
func Active(s SensorInfo, w Window) bool {
	first, ok := parseUTC(s.DatetimeFirst)
	if !ok {
		return true
	}
	last, ok := parseUTC(s.DatetimeLast)
	if !ok {
		return true
	}
	if last.Before(w.From) || first.After(w.To) {
		return false
	}
	return true
}

func parseUTC(dt *DateTime) (time.Time, bool) {
	if dt == nil || dt.UTC == "" {
		return time.Time{}, false
	}
	t, err := time.Parse(time.RFC3339, dt.UTC)
	if err != nil {
		return time.Time{}, false
	}
	return t, true
}
