package openaq

import (
	"context"
	"log"
)

// Processor drives the three-stage pipeline for a single zone: fetch
// locations, fetch and index sensors, then fetch and persist raw
// measurement pages for the sensors active inside the window. Stages
// run strictly sequentially; the only waits are the client's
// rate-limit sleeps.
type Processor struct {
	Client *Client
	Store  Store
	Logger *log.Logger
}

// locationSensors is the per-location outcome of the sensors stage:
// either the location's sensors or the reason it was skipped.
type locationSensors struct {
	location Location
	sensors  []Sensor
	err      error
}

// sensorMeasurements is the per-sensor outcome of the measurements
// stage.
type sensorMeasurements struct {
	info  SensorInfo
	count int
	err   error
}

// Process runs the full pipeline for one zone and returns its stats.
// Per-location and per-sensor failures are logged, counted, and
// skipped; anything outside those guards aborts the zone, counts one
// error, and leaves the remaining stages unrun. Other zones are
// unaffected either way. Context cancellation aborts the current stage
// without its stage-end writes, so an interrupted run never pins a
// truncated sensors index for the ingest date.
func (p *Processor) Process(ctx context.Context, zone Zone, w Window, ingestDate string) ZoneStats {
	var stats ZoneStats
	p.logf("zone %s: processing bbox %s", zone.Name, zone.Bbox)

	locations, err := p.locationsStage(ctx, zone, ingestDate)
	if err != nil {
		p.logf("zone %s: %v", zone.Name, err)
		stats.Errors++
		return stats
	}
	stats.Locations = len(locations)
	if len(locations) == 0 {
		p.logf("zone %s: no locations found, skipping", zone.Name)
		return stats
	}

	results, err := p.collectSensors(ctx, zone.Name, locations, ingestDate)
	if err != nil {
		// Interrupted mid-stage. Writing the consolidated index now
		// would pin a partial sensor list for the rest of the ingest
		// date, so abort before it.
		p.logf("zone %s: sensors stage interrupted: %v", zone.Name, err)
		stats.Errors++
		return stats
	}
	var infos []SensorInfo
	for _, res := range results {
		if res.err != nil {
			p.logf("zone %s location %d: loading sensors: %v", zone.Name, res.location.ID, res.err)
			stats.Errors++
			continue
		}
		for _, s := range res.sensors {
			infos = append(infos, NewSensorInfo(res.location, s))
		}
	}
	if _, err := p.Store.SaveSensorsIndex(zone.Name, infos, ingestDate); err != nil {
		p.logf("zone %s: saving sensors index: %v", zone.Name, err)
		stats.Errors++
		return stats
	}
	stats.Sensors = len(infos)

	active := infos[:0:0]
	for _, info := range infos {
		if !Active(info, w) {
			p.logf("zone %s sensor %d: inactive for requested window, skipping", zone.Name, info.SensorID)
			continue
		}
		active = append(active, info)
	}

	measured, err := p.collectMeasurements(ctx, zone.Name, active, w, ingestDate)
	for _, res := range measured {
		if res.err != nil {
			p.logf("zone %s sensor %d: loading measurements: %v", zone.Name, res.info.SensorID, res.err)
			stats.Errors++
			continue
		}
		stats.Measurements += res.count
	}
	if err != nil {
		p.logf("zone %s: measurements stage interrupted: %v", zone.Name, err)
		stats.Errors++
		return stats
	}

	p.logf("zone %s: done (%d locations, %d sensors, %d measurements, %d errors)",
		zone.Name, stats.Locations, stats.Sensors, stats.Measurements, stats.Errors)
	return stats
}

// locationsStage fetches every location in the zone's bbox and persists
// the locations index, even when the zone is empty.
func (p *Processor) locationsStage(ctx context.Context, zone Zone, ingestDate string) ([]Location, error) {
	locations, err := p.Client.Locations(ctx, zone.Bbox)
	if err != nil {
		return nil, err
	}
	created, err := p.Store.SaveLocationsIndex(zone.Name, locations, ingestDate)
	if err != nil {
		return nil, err
	}
	if !created {
		p.logf("zone %s: locations index already present for %s", zone.Name, ingestDate)
	}
	return locations, nil
}

// collectSensors fetches and persists each location's sensors in order,
// recording a per-location outcome instead of aborting on failure.
// A canceled context is returned as the stage error so the caller can
// abort instead of treating the truncated results as complete.
func (p *Processor) collectSensors(ctx context.Context, zone string, locations []Location, ingestDate string) ([]locationSensors, error) {
	out := make([]locationSensors, 0, len(locations))
	for _, loc := range locations {
		if ctx.Err() != nil {
			break
		}
		sensors, err := p.Client.SensorsForLocation(ctx, loc.ID)
		if err == nil {
			_, err = p.Store.SaveSensorsForLocation(zone, loc.ID, sensors, ingestDate)
		}
		out = append(out, locationSensors{location: loc, sensors: sensors, err: err})
	}
	return out, ctx.Err()
}

// collectMeasurements fetches and persists each sensor's raw pages in
// order, recording a per-sensor outcome. A canceled context is
// returned as the stage error alongside the outcomes gathered so far.
func (p *Processor) collectMeasurements(ctx context.Context, zone string, sensors []SensorInfo, w Window, ingestDate string) ([]sensorMeasurements, error) {
	out := make([]sensorMeasurements, 0, len(sensors))
	for _, info := range sensors {
		if ctx.Err() != nil {
			break
		}
		res := sensorMeasurements{info: info}
		pages, err := p.Client.MeasurementPages(ctx, info.SensorID, w)
		if err == nil {
			err = p.Store.SaveMeasurementsRaw(zone, info.SensorID, pages, ingestDate)
		}
		if err != nil {
			res.err = err
		} else {
			for _, page := range pages {
				res.count += page.Results
			}
		}
		out = append(out, res)
	}
	return out, ctx.Err()
}

func (p *Processor) logf(format string, args ...interface{}) {
	if p.Logger != nil {
		p.Logger.Printf(format, args...)
		return
	}
	log.Printf(format, args...)
}
