package ingest

import (
	"fmt"
	"io"
	"os"

	openaq "github.com/aqkit/openaq-ingest"
)

// ZonesMain contains the configuration for the zones listing command.
type ZonesMain struct {
	Zones string `help:"Path to the zones configuration file."`

	out io.Writer
}

// NewZonesMain gets a new ZonesMain with the default configuration.
func NewZonesMain() *ZonesMain {
	return &ZonesMain{Zones: "zones.json"}
}

// SetOutput directs the listing somewhere other than stdout.
func (m *ZonesMain) SetOutput(w io.Writer) {
	m.out = w
}

// Run prints each configured zone's name and bounding box.
func (m *ZonesMain) Run() error {
	zones, err := openaq.LoadZones(m.Zones)
	if err != nil {
		return err
	}
	out := m.out
	if out == nil {
		out = os.Stdout
	}
	for _, z := range zones {
		fmt.Fprintf(out, "%s: %s\n", z.Name, z.Bbox)
	}
	return nil
}
