// Package s3 is the object-store bronze-layer backend. Keys follow the
// same partition scheme as the filesystem store, prefixed with the
// bronze-layer prefix. Uploads always overwrite; rerun guards are the
// filesystem store's concern.
package s3

import (
	"bytes"
	"path"

	"github.com/aws/aws-sdk-go/aws"
	"github.com/aws/aws-sdk-go/aws/session"
	"github.com/aws/aws-sdk-go/service/s3"
	"github.com/pkg/errors"

	openaq "github.com/aqkit/openaq-ingest"
)

// DefaultPrefix is the key prefix for the bronze layer.
const DefaultPrefix = "bronze"

const contentType = "application/json"

// putter is the single S3 call the store needs.
type putter interface {
	PutObject(*s3.PutObjectInput) (*s3.PutObjectOutput, error)
}

// StoreOption is a functional option type for Store.
type StoreOption func(s *Store)

// OptStoreRegion sets the AWS region for the session.
func OptStoreRegion(region string) StoreOption {
	return func(s *Store) {
		s.region = region
	}
}

// OptStorePrefix overrides the bronze-layer key prefix.
func OptStorePrefix(prefix string) StoreOption {
	return func(s *Store) {
		s.prefix = prefix
	}
}

// OptStoreClient injects the S3 client, skipping session setup. Tests
// pass a fake here.
func OptStoreClient(c putter) StoreOption {
	return func(s *Store) {
		s.s3 = c
	}
}

// Store uploads bronze-layer artifacts to an S3 bucket.
type Store struct {
	bucket string
	prefix string
	region string

	s3   putter
	sess *session.Session
}

// NewStore returns a Store for the bucket with the options applied,
// creating an AWS session unless a client was injected.
func NewStore(bucket string, opts ...StoreOption) (*Store, error) {
	st := &Store{
		bucket: bucket,
		prefix: DefaultPrefix,
	}
	for _, opt := range opts {
		opt(st)
	}
	if st.s3 == nil {
		cfg := &aws.Config{}
		if st.region != "" {
			cfg.Region = aws.String(st.region)
		}
		var err error
		st.sess, err = session.NewSession(cfg)
		if err != nil {
			return nil, errors.Wrap(err, "creating aws session")
		}
		st.s3 = s3.New(st.sess)
	}
	return st, nil
}

// SaveJSON uploads v as a JSON object at the prefixed key.
func (s *Store) SaveJSON(key string, v interface{}) error {
	b, err := openaq.EncodeJSON(v)
	if err != nil {
		return err
	}
	k := path.Join(s.prefix, key)
	_, err = s.s3.PutObject(&s3.PutObjectInput{
		Bucket:      aws.String(s.bucket),
		Key:         aws.String(k),
		Body:        bytes.NewReader(b),
		ContentType: aws.String(contentType),
	})
	return errors.Wrapf(err, "uploading %s", k)
}

// SaveLocationsIndex uploads the zone's locations index. The object
// store applies no existence guard, so created is always true.
func (s *Store) SaveLocationsIndex(zone string, locations []openaq.Location, ingestDate string) (bool, error) {
	key := openaq.LocationsIndexKey(zone, ingestDate)
	return true, s.SaveJSON(key, openaq.IndexDoc(openaq.RawLocations(locations)))
}

// SaveSensorsForLocation uploads one location's sensors.
func (s *Store) SaveSensorsForLocation(zone string, locationID int64, sensors []openaq.Sensor, ingestDate string) (bool, error) {
	key := openaq.SensorsForLocationKey(zone, locationID, ingestDate)
	return true, s.SaveJSON(key, openaq.IndexDoc(openaq.RawSensors(sensors)))
}

// SaveSensorsIndex uploads the zone's consolidated sensor list as a
// bare array.
func (s *Store) SaveSensorsIndex(zone string, sensors []openaq.SensorInfo, ingestDate string) (bool, error) {
	if sensors == nil {
		sensors = []openaq.SensorInfo{}
	}
	return true, s.SaveJSON(openaq.SensorsIndexKey(zone, ingestDate), sensors)
}

// SaveMeasurementsRaw uploads each page verbatim as page-{n}.json
// under the sensor's partition.
func (s *Store) SaveMeasurementsRaw(zone string, sensorID int64, pages []openaq.MeasurementPage, ingestDate string) error {
	for i, page := range pages {
		key := openaq.MeasurementPageKey(zone, sensorID, ingestDate, i+1)
		if err := s.SaveJSON(key, page.Body); err != nil {
			return err
		}
	}
	return nil
}
