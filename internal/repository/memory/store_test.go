package memory

import (
	"context"
	"testing"
	"time"

	"github.com/rpattn/faactracker/internal/domain"
	"github.com/rpattn/faactracker/internal/repository"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func seedRegions(t *testing.T, s *Store, names ...string) []domain.Region {
	t.Helper()
	out := make([]domain.Region, 0, len(names))
	for i, name := range names {
		region, err := s.Regions().Upsert(context.Background(),
			domain.NewRegion(name, string(rune('A'+i))+"X", domain.ZoneSouthWest))
		require.NoError(t, err)
		out = append(out, region)
	}
	return out
}

func allocation(regionID uuid.UUID, month, year int, net int64) domain.Allocation {
	return domain.NewIngestedAllocation(regionID, domain.Period{Month: month, Year: year},
		decimal.NewFromInt(net), decimal.Zero, decimal.Zero, decimal.NewFromInt(net))
}

func TestRegionUpsertIsKeyedByCode(t *testing.T) {
	ctx := context.Background()
	s := NewStore()

	first, err := s.Regions().Upsert(ctx, domain.NewRegion("Lagos", "LA", domain.ZoneSouthWest))
	require.NoError(t, err)
	second, err := s.Regions().Upsert(ctx, domain.NewRegion("Lagos", "la", domain.ZoneSouthWest, "eko"))
	require.NoError(t, err)

	assert.Equal(t, first.ID, second.ID)
	regions, err := s.Regions().List(ctx)
	require.NoError(t, err)
	require.Len(t, regions, 1)
	assert.Equal(t, []string{"eko"}, regions[0].Aliases)

	got, err := s.Regions().GetByName(ctx, "LAGOS")
	require.NoError(t, err)
	assert.Equal(t, first.ID, got.ID)

	_, err = s.Regions().GetByName(ctx, "Atlantis")
	assert.ErrorIs(t, err, repository.ErrNotFound)
}

func TestInsertBatchIsAllOrNothing(t *testing.T) {
	ctx := context.Background()
	s := NewStore()
	regions := seedRegions(t, s, "Abia", "Adamawa")

	batch := []domain.Allocation{
		allocation(regions[0].ID, 3, 2025, 10),
		allocation(regions[1].ID, 3, 2025, 20),
		allocation(regions[0].ID, 3, 2025, 30),
	}
	_, err := s.Allocations().InsertBatch(ctx, batch)
	require.Error(t, err)

	exists, err := s.Allocations().ExistsRegionLevel(ctx, domain.Period{Month: 3, Year: 2025})
	require.NoError(t, err)
	assert.False(t, exists, "a failed batch must leave nothing behind")

	n, err := s.Allocations().InsertBatch(ctx, batch[:2])
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	_, err = s.Allocations().InsertBatch(ctx, batch[2:])
	assert.Error(t, err, "period already populated for the region")
}

func TestUpsertReportsCreation(t *testing.T) {
	ctx := context.Background()
	s := NewStore()
	region := seedRegions(t, s, "Kano")[0]

	_, created, err := s.Allocations().Upsert(ctx, allocation(region.ID, 1, 2025, 100))
	require.NoError(t, err)
	assert.True(t, created)

	saved, created, err := s.Allocations().Upsert(ctx, allocation(region.ID, 1, 2025, 250))
	require.NoError(t, err)
	assert.False(t, created)
	assert.True(t, saved.Net.Equal(decimal.NewFromInt(250)))

	rows, err := s.Allocations().ListByRegion(ctx, region.ID, domain.AllocationFilter{})
	require.NoError(t, err)
	assert.Len(t, rows, 1)
}

func TestHistoryQueries(t *testing.T) {
	ctx := context.Background()
	s := NewStore()
	regions := seedRegions(t, s, "Kano", "Lagos")
	kano, lagos := regions[0], regions[1]

	_, err := s.Allocations().InsertBatch(ctx, []domain.Allocation{
		allocation(kano.ID, 12, 2024, 5),
		allocation(kano.ID, 2, 2025, 7),
		allocation(kano.ID, 1, 2025, 6),
		allocation(lagos.ID, 2, 2025, 9),
	})
	require.NoError(t, err)

	rows, err := s.Allocations().ListByRegion(ctx, kano.ID, domain.AllocationFilter{})
	require.NoError(t, err)
	require.Len(t, rows, 3)
	assert.Equal(t, domain.Period{Month: 2, Year: 2025}, rows[0].Period())
	assert.Equal(t, domain.Period{Month: 12, Year: 2024}, rows[2].Period())

	year := 2025
	rows, err = s.Allocations().ListByRegion(ctx, kano.ID, domain.AllocationFilter{Year: &year})
	require.NoError(t, err)
	assert.Len(t, rows, 2)

	latest, err := s.Allocations().LatestRegionLevelPeriod(ctx)
	require.NoError(t, err)
	assert.Equal(t, domain.Period{Month: 2, Year: 2025}, latest)

	top, err := s.Allocations().TopByNet(ctx, latest, 5)
	require.NoError(t, err)
	require.Len(t, top, 2)
	assert.Equal(t, lagos.ID, top[0].RegionID)

	years, err := s.Allocations().AvailableYears(ctx, kano.ID)
	require.NoError(t, err)
	assert.Equal(t, []int{2025, 2024}, years)

	_, err = s.Allocations().LatestSubRegionPeriod(ctx, kano.ID)
	assert.ErrorIs(t, err, repository.ErrNotFound)
}

func TestSubRegionAllocations(t *testing.T) {
	ctx := context.Background()
	s := NewStore()
	kano := seedRegions(t, s, "Kano")[0]

	dala, err := s.SubRegions().Upsert(ctx, domain.NewSubRegion(kano.ID, "Dala"))
	require.NoError(t, err)
	gwale, err := s.SubRegions().Upsert(ctx, domain.NewSubRegion(kano.ID, "Gwale"))
	require.NoError(t, err)

	period := domain.Period{Month: 4, Year: 2025}
	rowFor := func(subID uuid.UUID, net int64) domain.Allocation {
		a := allocation(kano.ID, period.Month, period.Year, net)
		id := subID
		a.SubRegionID = &id
		return a
	}
	_, err = s.Allocations().InsertBatch(ctx, []domain.Allocation{rowFor(dala.ID, 3), rowFor(gwale.ID, 8)})
	require.NoError(t, err)

	latest, err := s.Allocations().LatestSubRegionPeriod(ctx, kano.ID)
	require.NoError(t, err)
	assert.Equal(t, period, latest)

	rows, err := s.Allocations().ListSubRegionLevel(ctx, kano.ID, period)
	require.NoError(t, err)
	require.Len(t, rows, 2)
	assert.Equal(t, gwale.ID, *rows[0].SubRegionID)

	exists, err := s.Allocations().ExistsRegionLevel(ctx, period)
	require.NoError(t, err)
	assert.False(t, exists, "sub-region rows do not populate a period")

	found, err := s.SubRegions().Search(ctx, "gw", 5)
	require.NoError(t, err)
	require.Len(t, found, 1)
	assert.Equal(t, "Gwale", found[0].Name)
}

func TestIngestionLogsMostRecentFirst(t *testing.T) {
	ctx := context.Background()
	s := NewStore()
	base := time.Date(2025, 4, 5, 6, 0, 0, 0, time.UTC)

	for i, outcome := range []domain.IngestionOutcome{domain.OutcomeFailed, domain.OutcomeNoData, domain.OutcomeSuccess} {
		entry := domain.NewIngestionLogEntry(domain.Period{Month: 3, Year: 2025}, base.Add(time.Duration(i)*time.Hour))
		entry.Outcome = outcome
		require.NoError(t, s.IngestionLogs().Record(ctx, entry))
	}

	logs, err := s.IngestionLogs().List(ctx, 2, 0)
	require.NoError(t, err)
	require.Len(t, logs, 2)
	assert.Equal(t, domain.OutcomeSuccess, logs[0].Outcome)
	assert.Equal(t, domain.OutcomeNoData, logs[1].Outcome)

	logs, err = s.IngestionLogs().List(ctx, 10, 5)
	require.NoError(t, err)
	assert.Empty(t, logs)
}

func TestRevenueOrdering(t *testing.T) {
	ctx := context.Background()
	s := NewStore()
	kano := seedRegions(t, s, "Kano")[0]

	s.AddRevenue(domain.RevenueRecord{RegionID: kano.ID, Year: 2024, Quarter: 2, Amount: decimal.NewFromInt(2)})
	s.AddRevenue(domain.RevenueRecord{RegionID: kano.ID, Year: 2024, Quarter: 1, Amount: decimal.NewFromInt(1)})
	s.AddRevenue(domain.RevenueRecord{RegionID: kano.ID, Year: 2024, Quarter: 1, Amount: decimal.NewFromInt(3)})

	records, err := s.Revenues().ListByRegion(ctx, kano.ID)
	require.NoError(t, err)
	require.Len(t, records, 2)
	assert.Equal(t, 1, records[0].Quarter)
	assert.True(t, records[0].Amount.Equal(decimal.NewFromInt(3)))
}
