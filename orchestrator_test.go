package openaq

import (
	"bytes"
	"context"
	"io/ioutil"
	"path/filepath"
	"strings"
	"testing"
)

// stubRunner returns canned stats per zone name and records the order
// zones were processed in.
type stubRunner struct {
	stats     map[string]ZoneStats
	processed []string
	dates     []string
}

func (s *stubRunner) Process(ctx context.Context, zone Zone, w Window, ingestDate string) ZoneStats {
	s.processed = append(s.processed, zone.Name)
	s.dates = append(s.dates, ingestDate)
	return s.stats[zone.Name]
}

func twoZones() []Zone {
	return []Zone{
		{Name: "North", Bbox: Bbox{-100, 25, -99, 26}},
		{Name: "South", Bbox: Bbox{-100, 19, -99, 20}},
	}
}

func TestRunAggregatesStats(t *testing.T) {
	runner := &stubRunner{stats: map[string]ZoneStats{
		"North": {Locations: 2, Sensors: 5, Measurements: 100},
		"South": {Locations: 1, Sensors: 2, Measurements: 30},
	}}
	var out bytes.Buffer
	o := &Orchestrator{Zones: twoZones(), Runner: runner, Out: &out}

	stats, err := o.Run(context.Background(), Window{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	want := RunStats{Zones: 2, ZoneStats: ZoneStats{Locations: 3, Sensors: 7, Measurements: 130}}
	if stats != want {
		t.Fatalf("wrong run stats: %+v, want %+v", stats, want)
	}
	if len(runner.processed) != 2 || runner.processed[0] != "North" || runner.processed[1] != "South" {
		t.Fatalf("zones processed out of order: %v", runner.processed)
	}
	if runner.dates[0] != runner.dates[1] {
		t.Fatalf("ingest date must be shared across zones: %v", runner.dates)
	}
	if !strings.Contains(out.String(), "total measurements: 130") {
		t.Fatalf("summary missing totals:\n%s", out.String())
	}
}

func TestRunPartialFailure(t *testing.T) {
	runner := &stubRunner{stats: map[string]ZoneStats{
		"North": {Locations: 1, Errors: 2},
		"South": {Locations: 1},
	}}
	o := &Orchestrator{Zones: twoZones(), Runner: runner}

	stats, err := o.Run(context.Background(), Window{})
	if err == nil {
		t.Fatal("expected partial failure error")
	}
	if _, ok := err.(*PartialFailureError); !ok {
		t.Fatalf("expected PartialFailureError, got %T: %v", err, err)
	}
	if len(runner.processed) != 2 {
		t.Fatalf("errors in one zone must not stop the others: %v", runner.processed)
	}
	if stats.Errors != 2 {
		t.Fatalf("wrong error count: %d", stats.Errors)
	}
}

func TestRunTargetZone(t *testing.T) {
	runner := &stubRunner{stats: map[string]ZoneStats{"South": {Locations: 4}}}
	o := &Orchestrator{Zones: twoZones(), TargetZone: "South", Runner: runner}

	stats, err := o.Run(context.Background(), Window{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if stats.Zones != 1 || stats.Locations != 4 {
		t.Fatalf("wrong stats for single-zone run: %+v", stats)
	}
	if len(runner.processed) != 1 || runner.processed[0] != "South" {
		t.Fatalf("wrong zones processed: %v", runner.processed)
	}
}

func TestRunTargetZoneNotFound(t *testing.T) {
	runner := &stubRunner{}
	o := &Orchestrator{Zones: twoZones(), TargetZone: "Atlantis", Runner: runner}

	_, err := o.Run(context.Background(), Window{})
	if err == nil {
		t.Fatal("expected error for unknown zone")
	}
	if !strings.Contains(err.Error(), "Atlantis") || !strings.Contains(err.Error(), "North") {
		t.Fatalf("error should name the zone and list the available ones: %v", err)
	}
	if len(runner.processed) != 0 {
		t.Fatalf("no zones should run: %v", runner.processed)
	}
}

func TestRunCanceledContext(t *testing.T) {
	runner := &stubRunner{}
	o := &Orchestrator{Zones: twoZones(), Runner: runner}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if _, err := o.Run(ctx, Window{}); err == nil {
		t.Fatal("expected error from canceled context")
	}
	if len(runner.processed) != 0 {
		t.Fatalf("canceled run should not process zones: %v", runner.processed)
	}
}

func TestLoadZones(t *testing.T) {
	dir := t.TempDir()
	p := filepath.Join(dir, "zones.json")
	content := `{"zones":[{"name":"Monterrey_ZMM","bbox":[-100.51,25.52,-99.99,25.87]}]}`
	if err := ioutil.WriteFile(p, []byte(content), 0644); err != nil {
		t.Fatalf("writing config: %v", err)
	}

	zones, err := LoadZones(p)
	if err != nil {
		t.Fatalf("loading zones: %v", err)
	}
	if len(zones) != 1 || zones[0].Name != "Monterrey_ZMM" {
		t.Fatalf("unexpected zones: %+v", zones)
	}
	if zones[0].Bbox != (Bbox{-100.51, 25.52, -99.99, 25.87}) {
		t.Fatalf("unexpected bbox: %v", zones[0].Bbox)
	}
}

func TestLoadZonesMissingFile(t *testing.T) {
	if _, err := LoadZones(filepath.Join(t.TempDir(), "nope.json")); err == nil {
		t.Fatal("expected error for missing config")
	}
}

func TestLoadZonesMalformed(t *testing.T) {
	p := filepath.Join(t.TempDir(), "zones.json")
	if err := ioutil.WriteFile(p, []byte(`{"zones": [`), 0644); err != nil {
		t.Fatalf("writing config: %v", err)
	}
	if _, err := LoadZones(p); err == nil {
		t.Fatal("expected error for malformed config")
	}
}

func TestBboxString(t *testing.T) {
	b := Bbox{-100.51, 25.52, -99.99, 25.87}
	if got := b.String(); got != "-100.51,25.52,-99.99,25.87" {
		t.Fatalf("wrong bbox string: %s", got)
	}
}
