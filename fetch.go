package openaq

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"strconv"
	"time"

	"github.com/pkg/errors"
)

// resultsEnvelope is the {"results": [...]} wrapper common to every
// paginated response.
type resultsEnvelope struct {
	Results []json.RawMessage `json:"results"`
}

// All three fetchers follow the same pagination rule: request page 1,
// 2, ... with a fixed limit and stop as soon as a page comes back with
// fewer results than the limit. They only do network I/O; persistence
// belongs to the caller.

// Locations pages through the locations inside the bounding box,
// returned in API order.
func (c *Client) Locations(ctx context.Context, bbox Bbox) ([]Location, error) {
	var out []Location
	for page := 1; ; page++ {
		q := url.Values{}
		q.Set("bbox", bbox.String())
		q.Set("limit", strconv.Itoa(c.pageLimit))
		q.Set("page", strconv.Itoa(page))

		env, err := c.getPage(ctx, "/locations", q)
		if err != nil {
			return nil, err
		}
		for _, raw := range env.Results {
			var loc Location
			if err := json.Unmarshal(raw, &loc); err != nil {
				return nil, errors.Wrap(err, "decoding location record")
			}
			loc.Raw = raw
			out = append(out, loc)
		}
		if len(env.Results) < c.pageLimit {
			return out, nil
		}
	}
}

// SensorsForLocation pages through a location's sensors.
func (c *Client) SensorsForLocation(ctx context.Context, locationID int64) ([]Sensor, error) {
	var out []Sensor
	for page := 1; ; page++ {
		q := url.Values{}
		q.Set("limit", strconv.Itoa(c.pageLimit))
		q.Set("page", strconv.Itoa(page))

		env, err := c.getPage(ctx, fmt.Sprintf("/locations/%d/sensors", locationID), q)
		if err != nil {
			return nil, err
		}
		for _, raw := range env.Results {
			var s Sensor
			if err := json.Unmarshal(raw, &s); err != nil {
				return nil, errors.Wrap(err, "decoding sensor record")
			}
			s.Raw = raw
			out = append(out, s)
		}
		if len(env.Results) < c.pageLimit {
			return out, nil
		}
	}
}

// MeasurementPages pages through a sensor's measurements for the
// window, keeping each response page verbatim so the bronze layer can
// persist the exact API envelope. At least one page is returned even
// when the window holds no data.
func (c *Client) MeasurementPages(ctx context.Context, sensorID int64, w Window) ([]MeasurementPage, error) {
	var pages []MeasurementPage
	for page := 1; ; page++ {
		q := url.Values{}
		q.Set("datetime_from", w.From.UTC().Format(time.RFC3339))
		q.Set("datetime_to", w.To.UTC().Format(time.RFC3339))
		q.Set("limit", strconv.Itoa(c.pageLimit))
		q.Set("page", strconv.Itoa(page))

		body, err := c.Get(ctx, fmt.Sprintf("/sensors/%d/measurements", sensorID), q)
		if err != nil {
			return nil, err
		}
		var env resultsEnvelope
		if err := json.Unmarshal(body, &env); err != nil {
			return nil, errors.Wrap(err, "decoding measurements page")
		}
		pages = append(pages, MeasurementPage{Body: json.RawMessage(body), Results: len(env.Results)})
		if len(env.Results) < c.pageLimit {
			return pages, nil
		}
	}
}

func (c *Client) getPage(ctx context.Context, path string, q url.Values) (resultsEnvelope, error) {
	var env resultsEnvelope
	body, err := c.Get(ctx, path, q)
	if err != nil {
		return env, err
	}
	if err := json.Unmarshal(body, &env); err != nil {
		return env, errors.Wrapf(err, "decoding %s page", path)
	}
	return env, nil
}
