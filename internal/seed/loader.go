// Package seed loads the reference regions and sub-regions.
package seed

import (
	"context"
	_ "embed"
	"fmt"
	"strings"

	"github.com/rpattn/faactracker/internal/domain"
	"github.com/rpattn/faactracker/internal/repository"

	"github.com/rs/zerolog"
	"gopkg.in/yaml.v3"
)

//go:embed regions.yaml
var defaultFixture []byte

// RegionFixture is one region entry of the fixture file
type RegionFixture struct {
	Name       string   `yaml:"name"`
	Code       string   `yaml:"code"`
	Zone       string   `yaml:"zone"`
	Aliases    []string `yaml:"aliases"`
	SubRegions []string `yaml:"sub_regions"`
}

// Fixture is the parsed fixture file
type Fixture struct {
	Regions []RegionFixture `yaml:"regions"`
}

// Result counts what a load wrote
type Result struct {
	Regions    int
	SubRegions int
}

// Parse decodes and checks a fixture document.
func Parse(data []byte) (Fixture, error) {
	var fixture Fixture
	if err := yaml.Unmarshal(data, &fixture); err != nil {
		return Fixture{}, fmt.Errorf("decode fixture: %w", err)
	}

	codes := make(map[string]string, len(fixture.Regions))
	for i, r := range fixture.Regions {
		if strings.TrimSpace(r.Name) == "" || strings.TrimSpace(r.Code) == "" {
			return Fixture{}, fmt.Errorf("region %d: name and code are required", i+1)
		}
		if !domain.Zone(r.Zone).Valid() {
			return Fixture{}, fmt.Errorf("region %s: unknown zone %q", r.Name, r.Zone)
		}
		code := strings.ToUpper(r.Code)
		if other, dup := codes[code]; dup {
			return Fixture{}, fmt.Errorf("region %s: code %s already used by %s", r.Name, code, other)
		}
		codes[code] = r.Name
	}
	return fixture, nil
}

// Default returns the embedded fixture
func Default() (Fixture, error) {
	return Parse(defaultFixture)
}

// Loader upserts fixture data; running it twice leaves the store unchanged.
type Loader struct {
	regions    repository.RegionRepository
	subRegions repository.SubRegionRepository
	log        zerolog.Logger
}

func NewLoader(regions repository.RegionRepository, subRegions repository.SubRegionRepository, log zerolog.Logger) *Loader {
	return &Loader{regions: regions, subRegions: subRegions, log: log}
}

// Load upserts every region by code and every sub-region by (region, name).
func (l *Loader) Load(ctx context.Context, fixture Fixture) (Result, error) {
	var result Result
	for _, rf := range fixture.Regions {
		region, err := l.regions.Upsert(ctx, domain.NewRegion(rf.Name, rf.Code, domain.Zone(rf.Zone), rf.Aliases...))
		if err != nil {
			return result, fmt.Errorf("upsert region %s: %w", rf.Name, err)
		}
		result.Regions++

		for _, name := range rf.SubRegions {
			if _, err := l.subRegions.Upsert(ctx, domain.NewSubRegion(region.ID, name)); err != nil {
				return result, fmt.Errorf("upsert sub-region %s/%s: %w", rf.Name, name, err)
			}
			result.SubRegions++
		}
		l.log.Debug().Str("region", region.Name).Int("sub_regions", len(rf.SubRegions)).Msg("region seeded")
	}

	l.log.Info().Int("regions", result.Regions).Int("sub_regions", result.SubRegions).Msg("reference data loaded")
	return result, nil
}
