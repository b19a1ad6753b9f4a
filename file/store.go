// Package file is the filesystem bronze-layer backend. It writes the
// shared partition key scheme under a base directory and guards
// metadata index files against rewrites within the same ingest date.
package file

import (
	"io/ioutil"
	"os"
	"path/filepath"

	"github.com/pkg/errors"

	openaq "github.com/aqkit/openaq-ingest"
)

// Store writes bronze-layer artifacts under Base. Metadata index
// writes are idempotent per (zone, ingest date): an existing file is
// left untouched. Measurement pages always overwrite.
type Store struct {
	Base string
}

// NewStore returns a Store rooted at base. The directory tree is
// created lazily as artifacts are written.
func NewStore(base string) *Store {
	return &Store{Base: base}
}

// SaveJSON writes v as a JSON document at key, creating parent
// directories as needed.
func (s *Store) SaveJSON(key string, v interface{}) error {
	b, err := openaq.EncodeJSON(v)
	if err != nil {
		return err
	}
	p := filepath.Join(s.Base, filepath.FromSlash(key))
	if err := os.MkdirAll(filepath.Dir(p), 0755); err != nil {
		return errors.Wrap(err, "creating directory")
	}
	return errors.Wrapf(ioutil.WriteFile(p, b, 0644), "writing %s", p)
}

// saveJSONOnce writes v at key unless the file already exists, in
// which case it reports created=false and changes nothing.
func (s *Store) saveJSONOnce(key string, v interface{}) (bool, error) {
	p := filepath.Join(s.Base, filepath.FromSlash(key))
	if _, err := os.Stat(p); err == nil {
		return false, nil
	} else if !os.IsNotExist(err) {
		return false, errors.Wrapf(err, "checking %s", p)
	}
	if err := s.SaveJSON(key, v); err != nil {
		return false, err
	}
	return true, nil
}

// SaveLocationsIndex persists the zone's locations index once per
// ingest date.
func (s *Store) SaveLocationsIndex(zone string, locations []openaq.Location, ingestDate string) (bool, error) {
	key := openaq.LocationsIndexKey(zone, ingestDate)
	return s.saveJSONOnce(key, openaq.IndexDoc(openaq.RawLocations(locations)))
}

// SaveSensorsForLocation persists one location's sensors once per
// ingest date.
func (s *Store) SaveSensorsForLocation(zone string, locationID int64, sensors []openaq.Sensor, ingestDate string) (bool, error) {
	key := openaq.SensorsForLocationKey(zone, locationID, ingestDate)
	return s.saveJSONOnce(key, openaq.IndexDoc(openaq.RawSensors(sensors)))
}

// SaveSensorsIndex persists the zone's consolidated sensor list once
// per ingest date. The index is the bare array, not a results
// envelope.
func (s *Store) SaveSensorsIndex(zone string, sensors []openaq.SensorInfo, ingestDate string) (bool, error) {
	if sensors == nil {
		sensors = []openaq.SensorInfo{}
	}
	return s.saveJSONOnce(openaq.SensorsIndexKey(zone, ingestDate), sensors)
}

// SaveMeasurementsRaw writes each page verbatim as page-{n}.json under
// the sensor's partition, overwriting whatever a previous run left.
func (s *Store) SaveMeasurementsRaw(zone string, sensorID int64, pages []openaq.MeasurementPage, ingestDate string) error {
	for i, page := range pages {
		key := openaq.MeasurementPageKey(zone, sensorID, ingestDate, i+1)
		if err := s.SaveJSON(key, page.Body); err != nil {
			return err
		}
	}
	return nil
}
