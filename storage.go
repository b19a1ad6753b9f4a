package openaq

import (
	"bytes"
	"encoding/json"
	"fmt"
	"path"

	"github.com/pkg/errors"
)

// Store is the capability set the pipeline needs from a bronze-layer
// backend. The created return on the index methods reports whether a
// new artifact was written; a backend with write-if-absent semantics
// (the filesystem store) returns false when the file already existed
// and leaves it untouched. Measurement pages always overwrite: they are
// the primary payload and may legitimately differ between runs on the
// same day.
type Store interface {
	SaveJSON(key string, v interface{}) error
	SaveLocationsIndex(zone string, locations []Location, ingestDate string) (created bool, err error)
	SaveSensorsForLocation(zone string, locationID int64, sensors []Sensor, ingestDate string) (created bool, err error)
	SaveSensorsIndex(zone string, sensors []SensorInfo, ingestDate string) (created bool, err error)
	SaveMeasurementsRaw(zone string, sensorID int64, pages []MeasurementPage, ingestDate string) error
}

// Every backend reproduces the same partition key scheme. Keys are
// slash-joined; the filesystem store maps them onto path separators and
// the object store uses them as flat keys directly.

// MetadataKey is zone={zone}/metadata/ingest_date={date}/{name}.
func MetadataKey(zone, ingestDate, name string) string {
	return path.Join("zone="+zone, "metadata", "ingest_date="+ingestDate, name)
}

// LocationsIndexKey locates the zone's locations index.
func LocationsIndexKey(zone, ingestDate string) string {
	return MetadataKey(zone, ingestDate, "locations_index.json")
}

// SensorsForLocationKey locates one location's sensor file.
func SensorsForLocationKey(zone string, locationID int64, ingestDate string) string {
	return MetadataKey(zone, ingestDate, fmt.Sprintf("sensors_loc-%d.json", locationID))
}

// SensorsIndexKey locates the zone's consolidated sensors index.
func SensorsIndexKey(zone, ingestDate string) string {
	return MetadataKey(zone, ingestDate, "sensors_index.json")
}

// MeasurementPageKey locates one raw measurement page. Pages are
// numbered from 1 with no gaps.
func MeasurementPageKey(zone string, sensorID int64, ingestDate string, page int) string {
	return path.Join(
		"zone="+zone,
		"measurements", "pages",
		"ingest_date="+ingestDate,
		fmt.Sprintf("sensor_id=%d", sensorID),
		fmt.Sprintf("page-%d.json", page),
	)
}

// IndexDoc wraps raw records in the {"results": ...} envelope used by
// the locations index and the per-location sensor files. A nil slice
// still encodes as an empty array.
func IndexDoc(records []json.RawMessage) interface{} {
	if records == nil {
		records = []json.RawMessage{}
	}
	return resultsEnvelope{Results: records}
}

// RawLocations extracts the verbatim record bytes for index files.
func RawLocations(locations []Location) []json.RawMessage {
	raws := make([]json.RawMessage, len(locations))
	for i, loc := range locations {
		raws[i] = loc.Raw
	}
	return raws
}

// RawSensors extracts the verbatim record bytes for index files.
func RawSensors(sensors []Sensor) []json.RawMessage {
	raws := make([]json.RawMessage, len(sensors))
	for i, s := range sensors {
		raws[i] = s.Raw
	}
	return raws
}

// EncodeJSON marshals v as UTF-8 JSON without HTML escaping, so
// non-ASCII text (units like µg/m³) survives byte-for-byte.
func EncodeJSON(v interface{}) ([]byte, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(v); err != nil {
		return nil, errors.Wrap(err, "encoding json")
	}
	return bytes.TrimRight(buf.Bytes(), "\n"), nil
}
