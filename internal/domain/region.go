package domain

import (
	"strings"

	"github.com/google/uuid"
)

// Zone groups regions into geopolitical zones
type Zone string

const (
	ZoneNorthCentral Zone = "North Central"
	ZoneNorthEast    Zone = "North East"
	ZoneNorthWest    Zone = "North West"
	ZoneSouthEast    Zone = "South East"
	ZoneSouthSouth   Zone = "South South"
	ZoneSouthWest    Zone = "South West"
)

// Zones lists every zone in display order
var Zones = []Zone{
	ZoneNorthCentral,
	ZoneNorthEast,
	ZoneNorthWest,
	ZoneSouthEast,
	ZoneSouthSouth,
	ZoneSouthWest,
}

// CapitalTerritoryCode is the short code of the capital territory region.
const CapitalTerritoryCode = "FC"

// Valid reports whether z is one of the known zones
func (z Zone) Valid() bool {
	for _, known := range Zones {
		if z == known {
			return true
		}
	}
	return false
}

// Region is a top-level administrative unit receiving allocations
type Region struct {
	ID      uuid.UUID `json:"id"`
	Name    string    `json:"name"`
	Code    string    `json:"code"`
	Zone    Zone      `json:"zone"`
	Aliases []string  `json:"aliases,omitempty"`
}

// NewRegion creates a region with a fresh identifier
func NewRegion(name, code string, zone Zone, aliases ...string) Region {
	return Region{
		ID:      uuid.New(),
		Name:    strings.TrimSpace(name),
		Code:    strings.ToUpper(strings.TrimSpace(code)),
		Zone:    zone,
		Aliases: aliases,
	}
}

// IsCapitalTerritory reports whether the region is the capital territory
func (r Region) IsCapitalTerritory() bool {
	return strings.EqualFold(r.Code, CapitalTerritoryCode)
}

// SubRegion is a second-level unit nested under a Region
type SubRegion struct {
	ID       uuid.UUID `json:"id"`
	RegionID uuid.UUID `json:"region_id"`
	Name     string    `json:"name"`
}

// NewSubRegion creates a sub-region owned by regionID
func NewSubRegion(regionID uuid.UUID, name string) SubRegion {
	return SubRegion{
		ID:       uuid.New(),
		RegionID: regionID,
		Name:     strings.TrimSpace(name),
	}
}
