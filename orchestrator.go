package openaq

import (
	"context"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/pkg/errors"
)

// ZoneRunner runs the pipeline for one zone.
type ZoneRunner interface {
	Process(ctx context.Context, zone Zone, w Window, ingestDate string) ZoneStats
}

// PartialFailureError reports a run that completed every zone but
// accumulated per-item errors along the way.
type PartialFailureError struct {
	Errors int
}

func (e *PartialFailureError) Error() string {
	return fmt.Sprintf("completed with %d errors", e.Errors)
}

// Orchestrator runs the zone pipeline over every configured zone,
// strictly sequentially, folding each zone's stats into a run total.
type Orchestrator struct {
	Zones []Zone

	// TargetZone, when non-empty, restricts the run to the one zone
	// with that name. An unknown name fails the whole run.
	TargetZone string

	Runner ZoneRunner

	// Out receives the end-of-run summary. Nil discards it.
	Out io.Writer
}

// Run executes the pipeline for each zone and returns the aggregated
// stats. The ingest date is computed once, in UTC, and shared by every
// write of the run. Context cancellation (the interrupt path) aborts
// between zones without completing the rest. A finished run with
// errors > 0 returns the stats alongside a PartialFailureError.
func (o *Orchestrator) Run(ctx context.Context, w Window) (RunStats, error) {
	zones := o.Zones
	if o.TargetZone != "" {
		zones = filterZones(zones, o.TargetZone)
		if len(zones) == 0 {
			return RunStats{}, errors.Errorf("zone %q not found (available: %s)",
				o.TargetZone, strings.Join(ZoneNames(o.Zones), ", "))
		}
	}

	ingestDate := IngestDate(time.Now())
	stats := RunStats{Zones: len(zones)}
	for _, z := range zones {
		if err := ctx.Err(); err != nil {
			return stats, errors.Wrap(err, "run interrupted")
		}
		stats.Add(o.Runner.Process(ctx, z, w, ingestDate))
	}
	if err := ctx.Err(); err != nil {
		return stats, errors.Wrap(err, "run interrupted")
	}

	o.summarize(stats, ingestDate)
	if stats.Errors > 0 {
		return stats, &PartialFailureError{Errors: stats.Errors}
	}
	return stats, nil
}

func (o *Orchestrator) summarize(stats RunStats, ingestDate string) {
	if o.Out == nil {
		return
	}
	fmt.Fprintf(o.Out, "zones processed:    %d\n", stats.Zones)
	fmt.Fprintf(o.Out, "total locations:    %d\n", stats.Locations)
	fmt.Fprintf(o.Out, "total sensors:      %d\n", stats.Sensors)
	fmt.Fprintf(o.Out, "total measurements: %d\n", stats.Measurements)
	if stats.Errors > 0 {
		fmt.Fprintf(o.Out, "errors:             %d\n", stats.Errors)
	}
	fmt.Fprintf(o.Out, "ingest date:        %s\n", ingestDate)
}

func filterZones(zones []Zone, name string) []Zone {
	var out []Zone
	for _, z := range zones {
		if z.Name == name {
			out = append(out, z)
		}
	}
	return out
}
