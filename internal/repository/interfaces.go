package repository

import (
	"context"
	"errors"

	"github.com/rpattn/faactracker/internal/domain"

	"github.com/google/uuid"
)

// ErrNotFound is returned when a lookup matches no row
var ErrNotFound = errors.New("not found")

// RegionRepository defines the interface for region reference data
type RegionRepository interface {
	List(ctx context.Context) ([]domain.Region, error)
	GetByID(ctx context.Context, id uuid.UUID) (domain.Region, error)
	GetByIDs(ctx context.Context, ids []uuid.UUID) ([]domain.Region, error)
	// GetByName matches the canonical name case-insensitively.
	GetByName(ctx context.Context, name string) (domain.Region, error)
	Search(ctx context.Context, query string, limit int) ([]domain.Region, error)
	// Upsert inserts or updates a region keyed by code.
	Upsert(ctx context.Context, region domain.Region) (domain.Region, error)
}

// SubRegionRepository defines the interface for sub-region reference data
type SubRegionRepository interface {
	ListByRegion(ctx context.Context, regionID uuid.UUID) ([]domain.SubRegion, error)
	GetByName(ctx context.Context, regionID uuid.UUID, name string) (domain.SubRegion, error)
	Search(ctx context.Context, query string, limit int) ([]domain.SubRegion, error)
	// Upsert inserts or updates a sub-region keyed by (region, name).
	Upsert(ctx context.Context, subRegion domain.SubRegion) (domain.SubRegion, error)
}

// AllocationRepository defines the interface for allocation records
type AllocationRepository interface {
	// ExistsRegionLevel reports whether any region-level row exists for the period.
	ExistsRegionLevel(ctx context.Context, period domain.Period) (bool, error)
	FindRegionLevel(ctx context.Context, regionID uuid.UUID, period domain.Period) (domain.Allocation, error)
	// InsertBatch writes every allocation or none of them.
	InsertBatch(ctx context.Context, allocations []domain.Allocation) (int, error)
	// Upsert writes a region-level allocation, reporting whether it was created.
	Upsert(ctx context.Context, allocation domain.Allocation) (domain.Allocation, bool, error)

	// History queries, newest first
	ListByRegion(ctx context.Context, regionID uuid.UUID, filter domain.AllocationFilter) ([]domain.Allocation, error)
	ListBySubRegion(ctx context.Context, subRegionID uuid.UUID) ([]domain.Allocation, error)

	LatestRegionLevelPeriod(ctx context.Context) (domain.Period, error)
	TopByNet(ctx context.Context, period domain.Period, limit int) ([]domain.Allocation, error)
	LatestSubRegionPeriod(ctx context.Context, regionID uuid.UUID) (domain.Period, error)
	// ListSubRegionLevel returns the sub-region rows of a region for one period ordered by net descending.
	ListSubRegionLevel(ctx context.Context, regionID uuid.UUID, period domain.Period) ([]domain.Allocation, error)
	AvailableYears(ctx context.Context, regionID uuid.UUID) ([]int, error)
}

// RevenueRepository defines the interface for internally generated revenue
type RevenueRepository interface {
	// ListByRegion returns records oldest first.
	ListByRegion(ctx context.Context, regionID uuid.UUID) ([]domain.RevenueRecord, error)
}

// IngestionLogRepository persists ingestion audit entries.
type IngestionLogRepository interface {
	Record(ctx context.Context, entry domain.IngestionLogEntry) error
	// List returns entries most recent first.
	List(ctx context.Context, limit int, offset int) ([]domain.IngestionLogEntry, error)
}
