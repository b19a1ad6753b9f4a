package openaq

import (
	"encoding/json"
	"os"

	"github.com/pkg/errors"
)

// zonesFile is the on-disk shape of the zones configuration.
type zonesFile struct {
	Zones []Zone `json:"zones"`
}

// LoadZones reads zone definitions from a JSON config file of the form
// {"zones": [{"name": ..., "bbox": [west, south, east, north]}, ...]}.
func LoadZones(path string) ([]Zone, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, errors.Wrap(err, "opening zones config")
	}
	defer f.Close()

	var zf zonesFile
	if err := json.NewDecoder(f).Decode(&zf); err != nil {
		return nil, errors.Wrapf(err, "parsing zones config %s", path)
	}
	return zf.Zones, nil
}

// ZoneNames lists the configured zone names in config order.
func ZoneNames(zones []Zone) []string {
	names := make([]string, len(zones))
	for i, z := range zones {
		names[i] = z.Name
	}
	return names
}
