package model

import (
	"encoding/json"
	"fmt"
	"os"
)

// LoadCityGroups reads the city-code -> airport-codes mapping from a JSON
// file (§3, §9: process-wide reference data, loaded once at startup). An
// empty path returns an empty CityGroup rather than an error, since city
// expansion is optional — every waypoint is then treated as an airport
// code.
func LoadCityGroups(path string) (CityGroup, error) {
	if path == "" {
		return CityGroup{}, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read city groups file: %w", err)
	}

	var groups CityGroup
	if err := json.Unmarshal(data, &groups); err != nil {
		return nil, fmt.Errorf("parse city groups file: %w", err)
	}
	return groups, nil
}
