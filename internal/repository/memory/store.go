// Package memory provides map-backed repositories for tests and database-less runs.
package memory

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/rpattn/faactracker/internal/domain"
	"github.com/rpattn/faactracker/internal/repository"

	"github.com/google/uuid"
)

// Store holds every table in memory behind a single lock.
type Store struct {
	mu          sync.RWMutex
	regions     map[uuid.UUID]domain.Region
	subRegions  map[uuid.UUID]domain.SubRegion
	allocations []domain.Allocation
	revenues    []domain.RevenueRecord
	logs        []domain.IngestionLogEntry
}

// NewStore creates an empty store
func NewStore() *Store {
	return &Store{
		regions:    make(map[uuid.UUID]domain.Region),
		subRegions: make(map[uuid.UUID]domain.SubRegion),
	}
}

// Regions returns the region repository view
func (s *Store) Regions() repository.RegionRepository { return regionStore{s} }

// SubRegions returns the sub-region repository view
func (s *Store) SubRegions() repository.SubRegionRepository { return subRegionStore{s} }

// Allocations returns the allocation repository view
func (s *Store) Allocations() repository.AllocationRepository { return allocationStore{s} }

// Revenues returns the revenue repository view
func (s *Store) Revenues() repository.RevenueRepository { return revenueStore{s} }

// IngestionLogs returns the ingestion log repository view
func (s *Store) IngestionLogs() repository.IngestionLogRepository { return logStore{s} }

// AddRevenue stores a revenue record, replacing any record for the same region and quarter.
func (s *Store) AddRevenue(record domain.RevenueRecord) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if record.ID == uuid.Nil {
		record.ID = uuid.New()
	}
	for i, existing := range s.revenues {
		if existing.RegionID == record.RegionID && existing.Year == record.Year && existing.Quarter == record.Quarter {
			record.ID = existing.ID
			s.revenues[i] = record
			return
		}
	}
	s.revenues = append(s.revenues, record)
}

type regionStore struct{ s *Store }

func (r regionStore) List(_ context.Context) ([]domain.Region, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	out := make([]domain.Region, 0, len(r.s.regions))
	for _, region := range r.s.regions {
		out = append(out, region)
	}
	sortRegions(out)
	return out, nil
}

func (r regionStore) GetByID(_ context.Context, id uuid.UUID) (domain.Region, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	region, ok := r.s.regions[id]
	if !ok {
		return domain.Region{}, fmt.Errorf("region %s: %w", id, repository.ErrNotFound)
	}
	return region, nil
}

func (r regionStore) GetByIDs(_ context.Context, ids []uuid.UUID) ([]domain.Region, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	out := []domain.Region{}
	for _, id := range ids {
		if region, ok := r.s.regions[id]; ok {
			out = append(out, region)
		}
	}
	sortRegions(out)
	return out, nil
}

func (r regionStore) GetByName(_ context.Context, name string) (domain.Region, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	for _, region := range r.s.regions {
		if strings.EqualFold(region.Name, strings.TrimSpace(name)) {
			return region, nil
		}
	}
	return domain.Region{}, fmt.Errorf("region %q: %w", name, repository.ErrNotFound)
}

func (r regionStore) Search(_ context.Context, query string, limit int) ([]domain.Region, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	if limit <= 0 {
		limit = 5
	}
	needle := strings.ToLower(query)
	out := []domain.Region{}
	for _, region := range r.s.regions {
		if strings.Contains(strings.ToLower(region.Name), needle) {
			out = append(out, region)
		}
	}
	sortRegions(out)
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (r regionStore) Upsert(_ context.Context, region domain.Region) (domain.Region, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	for id, existing := range r.s.regions {
		if strings.EqualFold(existing.Code, region.Code) {
			region.ID = id
			break
		}
	}
	if region.ID == uuid.Nil {
		region.ID = uuid.New()
	}
	for id, existing := range r.s.regions {
		if id != region.ID && strings.EqualFold(existing.Name, region.Name) {
			return domain.Region{}, fmt.Errorf("region name %q already taken by %s", region.Name, existing.Code)
		}
	}
	r.s.regions[region.ID] = region
	return region, nil
}

func sortRegions(regions []domain.Region) {
	sort.Slice(regions, func(i, j int) bool { return regions[i].Name < regions[j].Name })
}

type subRegionStore struct{ s *Store }

func (r subRegionStore) ListByRegion(_ context.Context, regionID uuid.UUID) ([]domain.SubRegion, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	out := []domain.SubRegion{}
	for _, sub := range r.s.subRegions {
		if sub.RegionID == regionID {
			out = append(out, sub)
		}
	}
	sortSubRegions(out)
	return out, nil
}

func (r subRegionStore) GetByName(_ context.Context, regionID uuid.UUID, name string) (domain.SubRegion, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	for _, sub := range r.s.subRegions {
		if sub.RegionID == regionID && strings.EqualFold(sub.Name, strings.TrimSpace(name)) {
			return sub, nil
		}
	}
	return domain.SubRegion{}, fmt.Errorf("sub-region %q: %w", name, repository.ErrNotFound)
}

func (r subRegionStore) Search(_ context.Context, query string, limit int) ([]domain.SubRegion, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	if limit <= 0 {
		limit = 5
	}
	needle := strings.ToLower(query)
	out := []domain.SubRegion{}
	for _, sub := range r.s.subRegions {
		if strings.Contains(strings.ToLower(sub.Name), needle) {
			out = append(out, sub)
		}
	}
	sortSubRegions(out)
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (r subRegionStore) Upsert(_ context.Context, sub domain.SubRegion) (domain.SubRegion, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	if _, ok := r.s.regions[sub.RegionID]; !ok {
		return domain.SubRegion{}, fmt.Errorf("region %s: %w", sub.RegionID, repository.ErrNotFound)
	}
	for id, existing := range r.s.subRegions {
		if existing.RegionID == sub.RegionID && existing.Name == sub.Name {
			sub.ID = id
			break
		}
	}
	if sub.ID == uuid.Nil {
		sub.ID = uuid.New()
	}
	r.s.subRegions[sub.ID] = sub
	return sub, nil
}

func sortSubRegions(subs []domain.SubRegion) {
	sort.Slice(subs, func(i, j int) bool { return subs[i].Name < subs[j].Name })
}

type allocationStore struct{ s *Store }

func (r allocationStore) ExistsRegionLevel(_ context.Context, period domain.Period) (bool, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	for _, a := range r.s.allocations {
		if a.IsRegionLevel() && a.Period() == period {
			return true, nil
		}
	}
	return false, nil
}

func (r allocationStore) FindRegionLevel(_ context.Context, regionID uuid.UUID, period domain.Period) (domain.Allocation, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	if i := r.s.indexOf(regionID, nil, period); i >= 0 {
		return r.s.allocations[i], nil
	}
	return domain.Allocation{}, fmt.Errorf("allocation for %s: %w", period, repository.ErrNotFound)
}

func (r allocationStore) InsertBatch(_ context.Context, allocations []domain.Allocation) (int, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	type key struct {
		owner  uuid.UUID
		region bool
		period domain.Period
	}
	seen := make(map[key]struct{}, len(allocations))
	for i, a := range allocations {
		if _, ok := r.s.regions[a.RegionID]; !ok {
			return 0, fmt.Errorf("row %d: region %s: %w", i+1, a.RegionID, repository.ErrNotFound)
		}
		k := key{owner: a.RegionID, region: true, period: a.Period()}
		if !a.IsRegionLevel() {
			k = key{owner: *a.SubRegionID, period: a.Period()}
		}
		if _, dup := seen[k]; dup || r.s.indexOf(a.RegionID, a.SubRegionID, a.Period()) >= 0 {
			return 0, fmt.Errorf("row %d: duplicate allocation for %s", i+1, a.Period())
		}
		seen[k] = struct{}{}
	}

	r.s.allocations = append(r.s.allocations, allocations...)
	return len(allocations), nil
}

func (r allocationStore) Upsert(_ context.Context, a domain.Allocation) (domain.Allocation, bool, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	if !a.IsRegionLevel() {
		return domain.Allocation{}, false, fmt.Errorf("upsert supports region-level allocations only")
	}
	if _, ok := r.s.regions[a.RegionID]; !ok {
		return domain.Allocation{}, false, fmt.Errorf("region %s: %w", a.RegionID, repository.ErrNotFound)
	}

	if i := r.s.indexOf(a.RegionID, nil, a.Period()); i >= 0 {
		updated := r.s.allocations[i].WithFigures(a)
		r.s.allocations[i] = updated
		return updated, false, nil
	}
	r.s.allocations = append(r.s.allocations, a)
	return a, true, nil
}

func (r allocationStore) ListByRegion(_ context.Context, regionID uuid.UUID, filter domain.AllocationFilter) ([]domain.Allocation, error) {
	return r.filter(func(a domain.Allocation) bool {
		if a.RegionID != regionID || !a.IsRegionLevel() {
			return false
		}
		if filter.Year != nil && a.Year != *filter.Year {
			return false
		}
		if filter.Month != nil && a.Month != *filter.Month {
			return false
		}
		return true
	}, newestFirst), nil
}

func (r allocationStore) ListBySubRegion(_ context.Context, subRegionID uuid.UUID) ([]domain.Allocation, error) {
	return r.filter(func(a domain.Allocation) bool {
		return a.SubRegionID != nil && *a.SubRegionID == subRegionID
	}, newestFirst), nil
}

func (r allocationStore) LatestRegionLevelPeriod(_ context.Context) (domain.Period, error) {
	rows := r.filter(domain.Allocation.IsRegionLevel, newestFirst)
	if len(rows) == 0 {
		return domain.Period{}, repository.ErrNotFound
	}
	return rows[0].Period(), nil
}

func (r allocationStore) TopByNet(_ context.Context, period domain.Period, limit int) ([]domain.Allocation, error) {
	if limit <= 0 {
		limit = 5
	}
	rows := r.filter(func(a domain.Allocation) bool {
		return a.IsRegionLevel() && a.Period() == period
	}, netDescending)
	if len(rows) > limit {
		rows = rows[:limit]
	}
	return rows, nil
}

func (r allocationStore) LatestSubRegionPeriod(_ context.Context, regionID uuid.UUID) (domain.Period, error) {
	rows := r.filter(func(a domain.Allocation) bool {
		return a.RegionID == regionID && !a.IsRegionLevel()
	}, newestFirst)
	if len(rows) == 0 {
		return domain.Period{}, repository.ErrNotFound
	}
	return rows[0].Period(), nil
}

func (r allocationStore) ListSubRegionLevel(_ context.Context, regionID uuid.UUID, period domain.Period) ([]domain.Allocation, error) {
	return r.filter(func(a domain.Allocation) bool {
		return a.RegionID == regionID && !a.IsRegionLevel() && a.Period() == period
	}, netDescending), nil
}

func (r allocationStore) AvailableYears(_ context.Context, regionID uuid.UUID) ([]int, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	seen := map[int]struct{}{}
	years := []int{}
	for _, a := range r.s.allocations {
		if a.RegionID != regionID || !a.IsRegionLevel() {
			continue
		}
		if _, ok := seen[a.Year]; !ok {
			seen[a.Year] = struct{}{}
			years = append(years, a.Year)
		}
	}
	sort.Sort(sort.Reverse(sort.IntSlice(years)))
	return years, nil
}

func (r allocationStore) filter(keep func(domain.Allocation) bool, less func(a, b domain.Allocation) bool) []domain.Allocation {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	out := []domain.Allocation{}
	for _, a := range r.s.allocations {
		if keep(a) {
			out = append(out, a)
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return less(out[i], out[j]) })
	return out
}

// indexOf finds the row for an owner and period; callers hold the lock.
func (s *Store) indexOf(regionID uuid.UUID, subRegionID *uuid.UUID, period domain.Period) int {
	for i, a := range s.allocations {
		if a.Period() != period {
			continue
		}
		switch {
		case subRegionID == nil && a.IsRegionLevel() && a.RegionID == regionID:
			return i
		case subRegionID != nil && a.SubRegionID != nil && *a.SubRegionID == *subRegionID:
			return i
		}
	}
	return -1
}

func newestFirst(a, b domain.Allocation) bool {
	return b.Period().Before(a.Period())
}

func netDescending(a, b domain.Allocation) bool {
	return a.Net.GreaterThan(b.Net)
}

type revenueStore struct{ s *Store }

func (r revenueStore) ListByRegion(_ context.Context, regionID uuid.UUID) ([]domain.RevenueRecord, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	out := []domain.RevenueRecord{}
	for _, record := range r.s.revenues {
		if record.RegionID == regionID {
			out = append(out, record)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Year != out[j].Year {
			return out[i].Year < out[j].Year
		}
		return out[i].Quarter < out[j].Quarter
	})
	return out, nil
}

type logStore struct{ s *Store }

func (r logStore) Record(_ context.Context, entry domain.IngestionLogEntry) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	if entry.ID == uuid.Nil {
		entry.ID = uuid.New()
	}
	if entry.RunAt.IsZero() {
		entry.RunAt = time.Now().UTC()
	}
	r.s.logs = append(r.s.logs, entry)
	return nil
}

func (r logStore) List(_ context.Context, limit int, offset int) ([]domain.IngestionLogEntry, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	if limit <= 0 {
		limit = 50
	}
	if offset < 0 {
		offset = 0
	}

	// Reverse insertion order first so later entries win ties on RunAt.
	ordered := make([]domain.IngestionLogEntry, 0, len(r.s.logs))
	for i := len(r.s.logs) - 1; i >= 0; i-- {
		ordered = append(ordered, r.s.logs[i])
	}
	sort.SliceStable(ordered, func(i, j int) bool { return ordered[i].RunAt.After(ordered[j].RunAt) })

	if offset >= len(ordered) {
		return []domain.IngestionLogEntry{}, nil
	}
	end := offset + limit
	if end > len(ordered) {
		end = len(ordered)
	}
	return ordered[offset:end], nil
}
