package api

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"slices"
	"strconv"
	"strings"

	"github.com/rpattn/faactracker/internal/domain"
	"github.com/rpattn/faactracker/internal/middleware"
	"github.com/rpattn/faactracker/internal/regionloader"
	"github.com/rpattn/faactracker/internal/repository"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
)

const (
	summaryTopN     = 5
	searchLimit     = 5
	searchMinLength = 2
	maxCompared     = 3
)

type publicHandler struct {
	regions     repository.RegionRepository
	subRegions  repository.SubRegionRepository
	allocations repository.AllocationRepository
	revenues    repository.RevenueRepository
	log         zerolog.Logger
}

func newPublicHandler(
	regions repository.RegionRepository,
	subRegions repository.SubRegionRepository,
	allocations repository.AllocationRepository,
	revenues repository.RevenueRepository,
	log zerolog.Logger,
) *publicHandler {
	return &publicHandler{
		regions:     regions,
		subRegions:  subRegions,
		allocations: allocations,
		revenues:    revenues,
		log:         log.With().Str("handler", "public").Logger(),
	}
}

type periodView struct {
	Month int    `json:"month"`
	Year  int    `json:"year"`
	Label string `json:"label"`
}

func newPeriodView(p domain.Period) *periodView {
	return &periodView{Month: p.Month, Year: p.Year, Label: p.Label()}
}

type rankedAllocation struct {
	Region     domain.Region     `json:"region"`
	Allocation domain.Allocation `json:"allocation"`
}

type zoneGroup struct {
	Zone    domain.Zone     `json:"zone"`
	Regions []domain.Region `json:"regions"`
}

// Summary returns the latest region-level period, its top regions by net and regions grouped by zone.
func (h *publicHandler) Summary(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	regions, err := h.regions.List(ctx)
	if err != nil {
		h.internalError(w, err, "failed to list regions")
		return
	}

	response := map[string]any{
		"latest": nil,
		"top":    []rankedAllocation{},
		"zones":  groupByZone(regions),
	}

	latest, err := h.allocations.LatestRegionLevelPeriod(ctx)
	switch {
	case errors.Is(err, repository.ErrNotFound):
		writeJSON(w, http.StatusOK, response)
		return
	case err != nil:
		h.internalError(w, err, "failed to find latest period")
		return
	}

	top, err := h.allocations.TopByNet(ctx, latest, summaryTopN)
	if err != nil {
		h.internalError(w, err, "failed to rank allocations")
		return
	}
	owners, err := h.loadRegions(ctx, top)
	if err != nil {
		h.internalError(w, err, "failed to load regions")
		return
	}

	ranked := make([]rankedAllocation, len(top))
	for i, a := range top {
		ranked[i] = rankedAllocation{Region: owners[i], Allocation: a}
	}
	response["latest"] = newPeriodView(latest)
	response["top"] = ranked

	writeJSON(w, http.StatusOK, response)
}

type searchResult struct {
	Type string `json:"type"`
	Name string `json:"name"`
	Path string `json:"path"`
}

// Search matches regions and sub-regions by name substring.
func (h *publicHandler) Search(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	q := strings.TrimSpace(r.URL.Query().Get("q"))
	results := []searchResult{}
	if len([]rune(q)) < searchMinLength {
		writeJSON(w, http.StatusOK, results)
		return
	}

	regions, err := h.regions.Search(ctx, q, searchLimit)
	if err != nil {
		h.internalError(w, err, "failed to search regions")
		return
	}
	for _, region := range regions {
		results = append(results, searchResult{
			Type: "region",
			Name: region.Name,
			Path: "/api/regions/" + url.PathEscape(region.Name),
		})
	}

	subs, err := h.subRegions.Search(ctx, q, searchLimit)
	if err != nil {
		h.internalError(w, err, "failed to search sub-regions")
		return
	}
	loader := middleware.RegionLoaderFromContext(ctx)
	for _, sub := range subs {
		parent, err := h.region(ctx, loader, sub.RegionID)
		if err != nil {
			h.internalError(w, err, "failed to load parent region")
			return
		}
		results = append(results, searchResult{
			Type: "sub_region",
			Name: fmt.Sprintf("%s (%s)", sub.Name, parent.Name),
			Path: "/api/regions/" + url.PathEscape(parent.Name) + "/subregions/" + url.PathEscape(sub.Name),
		})
	}

	writeJSON(w, http.StatusOK, results)
}

// Regions lists every region ordered by name
func (h *publicHandler) Regions(w http.ResponseWriter, r *http.Request) {
	regions, err := h.regions.List(r.Context())
	if err != nil {
		h.internalError(w, err, "failed to list regions")
		return
	}
	writeJSON(w, http.StatusOK, regions)
}

type chartSeries struct {
	Labels    []string          `json:"labels"`
	Statutory []decimal.Decimal `json:"statutory,omitempty"`
	VAT       []decimal.Decimal `json:"vat,omitempty"`
	Net       []decimal.Decimal `json:"net"`
}

type subRegionAllocation struct {
	SubRegion  string            `json:"sub_region"`
	Allocation domain.Allocation `json:"allocation"`
}

// RegionDetail returns the allocation history, chart series, latest sub-region split and revenue of a region.
func (h *publicHandler) RegionDetail(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	filter, err := parseFilter(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	region, ok := h.lookupRegion(w, r)
	if !ok {
		return
	}

	allocations, err := h.allocations.ListByRegion(ctx, region.ID, filter)
	if err != nil {
		h.internalError(w, err, "failed to list allocations")
		return
	}

	revenues, err := h.revenues.ListByRegion(ctx, region.ID)
	if err != nil {
		h.internalError(w, err, "failed to list revenues")
		return
	}

	years, err := h.allocations.AvailableYears(ctx, region.ID)
	if err != nil {
		h.internalError(w, err, "failed to list years")
		return
	}

	var subPeriod *periodView
	subAllocations := []subRegionAllocation{}
	latest, err := h.allocations.LatestSubRegionPeriod(ctx, region.ID)
	switch {
	case errors.Is(err, repository.ErrNotFound):
	case err != nil:
		h.internalError(w, err, "failed to find latest sub-region period")
		return
	default:
		subPeriod = newPeriodView(latest)
		subAllocations, err = h.subRegionAllocations(ctx, region.ID, latest)
		if err != nil {
			h.internalError(w, err, "failed to list sub-region allocations")
			return
		}
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"region":                 region,
		"allocations":            allocations,
		"chart":                  chartOf(allocations, true),
		"sub_region_period":      subPeriod,
		"sub_region_allocations": subAllocations,
		"revenues":               revenues,
		"available_years":        years,
		"filter":                 map[string]*int{"year": filter.Year, "month": filter.Month},
	})
}

// SubRegions lists the sub-regions of a region, addressed by id or name.
func (h *publicHandler) SubRegions(w http.ResponseWriter, r *http.Request) {
	region, ok := h.lookupRegion(w, r)
	if !ok {
		return
	}
	subs, err := h.subRegions.ListByRegion(r.Context(), region.ID)
	if err != nil {
		h.internalError(w, err, "failed to list sub-regions")
		return
	}

	type item struct {
		ID   uuid.UUID `json:"id"`
		Name string    `json:"name"`
	}
	items := make([]item, len(subs))
	for i, s := range subs {
		items[i] = item{ID: s.ID, Name: s.Name}
	}
	writeJSON(w, http.StatusOK, items)
}

// SubRegionDetail returns the allocation history of one sub-region
func (h *publicHandler) SubRegionDetail(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	region, ok := h.lookupRegion(w, r)
	if !ok {
		return
	}

	sub, err := h.subRegions.GetByName(ctx, region.ID, chi.URLParam(r, "sub"))
	switch {
	case errors.Is(err, repository.ErrNotFound):
		writeError(w, http.StatusNotFound, "sub-region not found")
		return
	case err != nil:
		h.internalError(w, err, "failed to find sub-region")
		return
	}

	allocations, err := h.allocations.ListBySubRegion(ctx, sub.ID)
	if err != nil {
		h.internalError(w, err, "failed to list allocations")
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"region":      region,
		"sub_region":  sub,
		"allocations": allocations,
		"chart":       chartOf(allocations, false),
	})
}

type comparison struct {
	Region       domain.Region       `json:"region"`
	Allocations  []domain.Allocation `json:"allocations"`
	RevenueTotal decimal.Decimal     `json:"revenue_total"`
	Labels       []string            `json:"labels"`
	NetValues    []decimal.Decimal   `json:"net_values"`
}

// Compare returns side-by-side histories for up to three regions. Unknown names are skipped.
func (h *publicHandler) Compare(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	names := r.URL.Query()["regions"]
	if len(names) > maxCompared {
		names = names[:maxCompared]
	}

	compared := []comparison{}
	for _, name := range names {
		region, err := h.regions.GetByName(ctx, strings.TrimSpace(name))
		if errors.Is(err, repository.ErrNotFound) {
			continue
		}
		if err != nil {
			h.internalError(w, err, "failed to find region")
			return
		}

		allocations, err := h.allocations.ListByRegion(ctx, region.ID, domain.AllocationFilter{})
		if err != nil {
			h.internalError(w, err, "failed to list allocations")
			return
		}
		slices.Reverse(allocations)

		revenues, err := h.revenues.ListByRegion(ctx, region.ID)
		if err != nil {
			h.internalError(w, err, "failed to list revenues")
			return
		}
		total := decimal.Zero
		for _, rev := range revenues {
			total = total.Add(rev.Amount)
		}

		entry := comparison{
			Region:       region,
			Allocations:  allocations,
			RevenueTotal: total,
			Labels:       make([]string, len(allocations)),
			NetValues:    make([]decimal.Decimal, len(allocations)),
		}
		for i, a := range allocations {
			entry.Labels[i] = a.Period().Label()
			entry.NetValues[i] = a.Net
		}
		compared = append(compared, entry)
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"selected": names,
		"compared": compared,
	})
}

// lookupRegion resolves the {region} URL parameter as an id or a case-insensitive name.
// It writes the error response itself and reports whether the caller should continue.
func (h *publicHandler) lookupRegion(w http.ResponseWriter, r *http.Request) (domain.Region, bool) {
	key := strings.TrimSpace(chi.URLParam(r, "region"))

	var (
		region domain.Region
		err    error
	)
	if id, parseErr := uuid.Parse(key); parseErr == nil {
		region, err = h.regions.GetByID(r.Context(), id)
	} else {
		region, err = h.regions.GetByName(r.Context(), key)
	}

	switch {
	case errors.Is(err, repository.ErrNotFound):
		writeError(w, http.StatusNotFound, "region not found")
		return domain.Region{}, false
	case err != nil:
		h.internalError(w, err, "failed to find region")
		return domain.Region{}, false
	}
	return region, true
}

func (h *publicHandler) subRegionAllocations(ctx context.Context, regionID uuid.UUID, period domain.Period) ([]subRegionAllocation, error) {
	rows, err := h.allocations.ListSubRegionLevel(ctx, regionID, period)
	if err != nil {
		return nil, err
	}
	subs, err := h.subRegions.ListByRegion(ctx, regionID)
	if err != nil {
		return nil, err
	}
	names := make(map[uuid.UUID]string, len(subs))
	for _, s := range subs {
		names[s.ID] = s.Name
	}

	out := make([]subRegionAllocation, 0, len(rows))
	for _, a := range rows {
		out = append(out, subRegionAllocation{SubRegion: names[*a.SubRegionID], Allocation: a})
	}
	return out, nil
}

// loadRegions resolves the owning region of each allocation in order.
func (h *publicHandler) loadRegions(ctx context.Context, allocations []domain.Allocation) ([]domain.Region, error) {
	ids := make([]uuid.UUID, len(allocations))
	for i, a := range allocations {
		ids[i] = a.RegionID
	}
	if loader := middleware.RegionLoaderFromContext(ctx); loader != nil {
		return loader.LoadMany(ctx, ids)
	}

	regions, err := h.regions.GetByIDs(ctx, ids)
	if err != nil {
		return nil, err
	}
	byID := make(map[uuid.UUID]domain.Region, len(regions))
	for _, r := range regions {
		byID[r.ID] = r
	}
	out := make([]domain.Region, len(ids))
	for i, id := range ids {
		out[i] = byID[id]
	}
	return out, nil
}

func (h *publicHandler) region(ctx context.Context, loader *regionloader.RegionLoader, id uuid.UUID) (domain.Region, error) {
	if loader != nil {
		return loader.Load(ctx, id)
	}
	return h.regions.GetByID(ctx, id)
}

func (h *publicHandler) internalError(w http.ResponseWriter, err error, message string) {
	h.log.Error().Err(err).Msg(message)
	writeError(w, http.StatusInternalServerError, message)
}

// chartOf builds oldest-first series from newest-first allocations.
func chartOf(allocations []domain.Allocation, withComponents bool) chartSeries {
	n := len(allocations)
	chart := chartSeries{Labels: make([]string, n), Net: make([]decimal.Decimal, n)}
	if withComponents {
		chart.Statutory = make([]decimal.Decimal, n)
		chart.VAT = make([]decimal.Decimal, n)
	}
	for i, a := range allocations {
		j := n - 1 - i
		chart.Labels[j] = a.Period().Label()
		chart.Net[j] = a.Net
		if withComponents {
			chart.Statutory[j] = a.Statutory
			chart.VAT[j] = a.VAT
		}
	}
	return chart
}

func groupByZone(regions []domain.Region) []zoneGroup {
	groups := make([]zoneGroup, 0, len(domain.Zones))
	index := make(map[domain.Zone]int, len(domain.Zones))
	for _, zone := range domain.Zones {
		index[zone] = len(groups)
		groups = append(groups, zoneGroup{Zone: zone, Regions: []domain.Region{}})
	}
	for _, region := range regions {
		i, ok := index[region.Zone]
		if !ok {
			index[region.Zone] = len(groups)
			i = len(groups)
			groups = append(groups, zoneGroup{Zone: region.Zone, Regions: []domain.Region{}})
		}
		groups[i].Regions = append(groups[i].Regions, region)
	}
	return groups
}

func parseFilter(r *http.Request) (domain.AllocationFilter, error) {
	var filter domain.AllocationFilter
	for field, target := range map[string]**int{"year": &filter.Year, "month": &filter.Month} {
		raw := strings.TrimSpace(r.URL.Query().Get(field))
		if raw == "" {
			continue
		}
		n, err := strconv.Atoi(raw)
		if err != nil {
			return filter, fmt.Errorf("%s must be a whole number", field)
		}
		*target = &n
	}
	if filter.Month != nil && (*filter.Month < 1 || *filter.Month > 12) {
		return filter, fmt.Errorf("month must be between 1 and 12")
	}
	return filter, nil
}
