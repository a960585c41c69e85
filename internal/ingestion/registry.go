package ingestion

import (
	"strings"
	"unicode"

	"github.com/rpattn/faactracker/internal/domain"
)

// capitalAliases are the spellings used upstream for the capital territory.
var capitalAliases = []string{
	"fct",
	"fct abuja",
	"fct, abuja",
	"fctabuja",
	"federal capital territory",
	"abuja",
}

// Registry maps normalised region spellings to canonical regions.
// It is built once per run and only read afterwards.
type Registry struct {
	byKey   map[string]domain.Region
	regions int
}

// BuildRegistry indexes every region by name and aliases
func BuildRegistry(regions []domain.Region) *Registry {
	r := &Registry{byKey: make(map[string]domain.Region, len(regions)*4), regions: len(regions)}
	for _, region := range regions {
		r.add(region.Name, region)
		for _, alias := range region.Aliases {
			r.add(alias, region)
		}
		if region.IsCapitalTerritory() {
			for _, alias := range capitalAliases {
				r.add(alias, region)
			}
		}
	}
	return r
}

func (r *Registry) add(spelling string, region domain.Region) {
	key := NormalizeText(spelling)
	if key == "" {
		return
	}
	if _, taken := r.byKey[key]; !taken {
		r.byKey[key] = region
	}
	compact := stripSpaces(key)
	if _, taken := r.byKey[compact]; !taken {
		r.byKey[compact] = region
	}
}

// Len returns the number of canonical regions indexed
func (r *Registry) Len() int {
	return r.regions
}

// Resolve finds the region for a free-text label. Lookup order: the
// normalised text, then the text with digits and punctuation removed,
// then that cleaned form without spaces.
func (r *Registry) Resolve(label string) (domain.Region, bool) {
	key := NormalizeText(label)
	if key == "" {
		return domain.Region{}, false
	}
	if region, ok := r.byKey[key]; ok {
		return region, true
	}

	cleaned := cleanLabel(key)
	if cleaned == "" {
		return domain.Region{}, false
	}
	if region, ok := r.byKey[cleaned]; ok {
		return region, true
	}
	region, ok := r.byKey[stripSpaces(cleaned)]
	return region, ok
}

func cleanLabel(s string) string {
	mapped := strings.Map(func(r rune) rune {
		switch {
		case unicode.IsDigit(r):
			return -1
		case unicode.IsPunct(r), unicode.IsSymbol(r):
			return ' '
		default:
			return r
		}
	}, s)
	return strings.Join(strings.Fields(mapped), " ")
}

func stripSpaces(s string) string {
	return strings.Join(strings.Fields(s), "")
}
