package openaq

import (
	"encoding/json"
	"strconv"
	"strings"
	"time"
)

// Zone is a named rectangular region scoping one ingestion pass. Zones
// come from a static config file and are never mutated during a run.
type Zone struct {
	Name string `json:"name"`
	Bbox Bbox   `json:"bbox"`
}

// Bbox is west, south, east, north in degrees.
type Bbox [4]float64

// String renders the box the way the API's bbox query parameter wants
// it: "west,south,east,north".
func (b Bbox) String() string {
	parts := make([]string, len(b))
	for i, f := range b {
		parts[i] = strconv.FormatFloat(f, 'f', -1, 64)
	}
	return strings.Join(parts, ",")
}

// Location is one upstream location record. Raw holds the exact
// API-supplied object so index files keep fields we never decode.
type Location struct {
	ID       int64           `json:"id"`
	Name     string          `json:"name"`
	City     string          `json:"city"`
	Provider json.RawMessage `json:"provider"`

	Raw json.RawMessage `json:"-"`
}

// DateTime is the API's timestamp object.
type DateTime struct {
	UTC string `json:"utc"`
}

// Sensor is one upstream sensor record, always owned by exactly one
// location. DatetimeFirst/DatetimeLast are nil when the API omits them.
type Sensor struct {
	ID        int64 `json:"id"`
	Parameter struct {
		Name  string `json:"name"`
		Units string `json:"units"`
	} `json:"parameter"`
	DatetimeFirst *DateTime `json:"datetimeFirst"`
	DatetimeLast  *DateTime `json:"datetimeLast"`

	Raw json.RawMessage `json:"-"`
}

// SensorInfo is the projection the measurement stage and the activity
// filter consume: sensor fields plus the owning location's context.
// This is also the record shape of the consolidated sensors index.
type SensorInfo struct {
	LocationID    int64           `json:"locationId"`
	LocationName  string          `json:"locationName"`
	City          string          `json:"city"`
	Provider      json.RawMessage `json:"provider"`
	SensorID      int64           `json:"sensorId"`
	Parameter     string          `json:"parameter"`
	Units         string          `json:"units"`
	DatetimeFirst *DateTime       `json:"datetimeFirst"`
	DatetimeLast  *DateTime       `json:"datetimeLast"`
}

// NewSensorInfo builds the projection for one sensor, defaulting absent
// location context to "Unknown" rather than empty strings.
func NewSensorInfo(loc Location, s Sensor) SensorInfo {
	info := SensorInfo{
		LocationID:    loc.ID,
		LocationName:  orUnknown(loc.Name),
		City:          orUnknown(loc.City),
		Provider:      loc.Provider,
		SensorID:      s.ID,
		Parameter:     orUnknown(s.Parameter.Name),
		Units:         orUnknown(s.Parameter.Units),
		DatetimeFirst: s.DatetimeFirst,
		DatetimeLast:  s.DatetimeLast,
	}
	if len(info.Provider) == 0 {
		info.Provider = json.RawMessage(`"Unknown"`)
	}
	return info
}

func orUnknown(s string) string {
	if s == "" {
		return "Unknown"
	}
	return s
}

// MeasurementPage is one verbatim API response page for a sensor.
// Results is the length of the page's results array, kept so callers
// can count measurements without re-decoding the body.
type MeasurementPage struct {
	Body    json.RawMessage
	Results int
}

// Window is the requested measurement time range, closed on both ends.
type Window struct {
	From time.Time
	To   time.Time
}

// ZoneStats counts what one zone's pipeline produced.
type ZoneStats struct {
	Locations    int
	Sensors      int
	Measurements int
	Errors       int
}

// RunStats is the additive fold of every processed zone's ZoneStats.
type RunStats struct {
	Zones int
	ZoneStats
}

// Add folds one zone's counters into the run total.
func (r *RunStats) Add(z ZoneStats) {
	r.Locations += z.Locations
	r.Sensors += z.Sensors
	r.Measurements += z.Measurements
	r.Errors += z.Errors
}

// IngestDate formats the UTC calendar date used as the run's shared
// partition key.
func IngestDate(t time.Time) string {
	return t.UTC().Format("2006-01-02")
}
