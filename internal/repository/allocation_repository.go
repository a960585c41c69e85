package repository

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/rpattn/faactracker/internal/domain"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/jackc/pgx/v5/pgxpool"
)

const allocationColumns = `id, region_id, sub_region_id, month, year,
	statutory_allocation, vat_allocation, total_gross, deductions, net_allocation,
	created_at, updated_at`

const insertAllocationSQL = `INSERT INTO allocations (
	id, region_id, sub_region_id, month, year,
	statutory_allocation, vat_allocation, total_gross, deductions, net_allocation,
	created_at, updated_at
) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)`

type allocationRepository struct {
	pool *pgxpool.Pool
}

// NewAllocationRepository creates a new allocation repository
func NewAllocationRepository(pool *pgxpool.Pool) AllocationRepository {
	return &allocationRepository{pool: pool}
}

func (r *allocationRepository) ExistsRegionLevel(ctx context.Context, period domain.Period) (bool, error) {
	var exists bool
	err := r.pool.QueryRow(ctx,
		`SELECT EXISTS (
			SELECT 1 FROM allocations
			WHERE sub_region_id IS NULL AND month = $1 AND year = $2
		)`,
		period.Month, period.Year,
	).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("failed to check allocations for %s: %w", period, err)
	}
	return exists, nil
}

func (r *allocationRepository) FindRegionLevel(ctx context.Context, regionID uuid.UUID, period domain.Period) (domain.Allocation, error) {
	row := r.pool.QueryRow(ctx,
		`SELECT `+allocationColumns+` FROM allocations
		 WHERE region_id = $1 AND sub_region_id IS NULL AND month = $2 AND year = $3`,
		regionID, period.Month, period.Year,
	)
	allocation, err := scanAllocation(row)
	if err != nil {
		return domain.Allocation{}, fmt.Errorf("failed to find allocation for %s: %w", period, err)
	}
	return allocation, nil
}

func (r *allocationRepository) InsertBatch(ctx context.Context, allocations []domain.Allocation) (int, error) {
	if len(allocations) == 0 {
		return 0, nil
	}

	err := pgx.BeginFunc(ctx, r.pool, func(tx pgx.Tx) error {
		batch := &pgx.Batch{}
		for _, a := range allocations {
			batch.Queue(insertAllocationSQL, allocationArgs(a)...)
		}

		results := tx.SendBatch(ctx, batch)
		for i := range allocations {
			if _, err := results.Exec(); err != nil {
				results.Close()
				return fmt.Errorf("row %d (region %s): %w", i+1, allocations[i].RegionID, err)
			}
		}
		return results.Close()
	})
	if err != nil {
		return 0, fmt.Errorf("failed to insert allocation batch: %w", err)
	}

	return len(allocations), nil
}

func (r *allocationRepository) Upsert(ctx context.Context, a domain.Allocation) (domain.Allocation, bool, error) {
	if !a.IsRegionLevel() {
		return domain.Allocation{}, false, fmt.Errorf("upsert supports region-level allocations only")
	}

	row := r.pool.QueryRow(ctx,
		insertAllocationSQL+`
		 ON CONFLICT (region_id, year, month) WHERE sub_region_id IS NULL DO UPDATE SET
			statutory_allocation = EXCLUDED.statutory_allocation,
			vat_allocation = EXCLUDED.vat_allocation,
			total_gross = EXCLUDED.total_gross,
			deductions = EXCLUDED.deductions,
			net_allocation = EXCLUDED.net_allocation,
			updated_at = NOW()
		 RETURNING `+allocationColumns+`, (xmax = 0) AS inserted`,
		allocationArgs(a)...,
	)

	var (
		saved    domain.Allocation
		subID    pgtype.UUID
		inserted bool
	)
	err := row.Scan(
		&saved.ID, &saved.RegionID, &subID, &saved.Month, &saved.Year,
		&saved.Statutory, &saved.VAT, &saved.Gross, &saved.Deductions, &saved.Net,
		&saved.CreatedAt, &saved.UpdatedAt, &inserted,
	)
	if err != nil {
		return domain.Allocation{}, false, fmt.Errorf("failed to upsert allocation: %w", err)
	}
	return saved, inserted, nil
}

func (r *allocationRepository) ListByRegion(ctx context.Context, regionID uuid.UUID, filter domain.AllocationFilter) ([]domain.Allocation, error) {
	conditions := []string{"region_id = $1", "sub_region_id IS NULL"}
	args := []any{regionID}
	if filter.Year != nil {
		args = append(args, *filter.Year)
		conditions = append(conditions, fmt.Sprintf("year = $%d", len(args)))
	}
	if filter.Month != nil {
		args = append(args, *filter.Month)
		conditions = append(conditions, fmt.Sprintf("month = $%d", len(args)))
	}

	rows, err := r.pool.Query(ctx,
		`SELECT `+allocationColumns+` FROM allocations
		 WHERE `+strings.Join(conditions, " AND ")+`
		 ORDER BY year DESC, month DESC`,
		args...,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list region allocations: %w", err)
	}
	return collectAllocations(rows)
}

func (r *allocationRepository) ListBySubRegion(ctx context.Context, subRegionID uuid.UUID) ([]domain.Allocation, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT `+allocationColumns+` FROM allocations
		 WHERE sub_region_id = $1
		 ORDER BY year DESC, month DESC`,
		subRegionID,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list sub-region allocations: %w", err)
	}
	return collectAllocations(rows)
}

func (r *allocationRepository) LatestRegionLevelPeriod(ctx context.Context) (domain.Period, error) {
	return r.latestPeriod(ctx,
		`SELECT month, year FROM allocations WHERE sub_region_id IS NULL
		 ORDER BY year DESC, month DESC LIMIT 1`,
	)
}

func (r *allocationRepository) LatestSubRegionPeriod(ctx context.Context, regionID uuid.UUID) (domain.Period, error) {
	return r.latestPeriod(ctx,
		`SELECT month, year FROM allocations WHERE region_id = $1 AND sub_region_id IS NOT NULL
		 ORDER BY year DESC, month DESC LIMIT 1`,
		regionID,
	)
}

func (r *allocationRepository) latestPeriod(ctx context.Context, query string, args ...any) (domain.Period, error) {
	var period domain.Period
	if err := r.pool.QueryRow(ctx, query, args...).Scan(&period.Month, &period.Year); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.Period{}, ErrNotFound
		}
		return domain.Period{}, fmt.Errorf("failed to get latest period: %w", err)
	}
	return period, nil
}

func (r *allocationRepository) TopByNet(ctx context.Context, period domain.Period, limit int) ([]domain.Allocation, error) {
	if limit <= 0 {
		limit = 5
	}
	rows, err := r.pool.Query(ctx,
		`SELECT `+allocationColumns+` FROM allocations
		 WHERE sub_region_id IS NULL AND month = $1 AND year = $2
		 ORDER BY net_allocation DESC
		 LIMIT $3`,
		period.Month, period.Year, limit,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list top allocations: %w", err)
	}
	return collectAllocations(rows)
}

func (r *allocationRepository) ListSubRegionLevel(ctx context.Context, regionID uuid.UUID, period domain.Period) ([]domain.Allocation, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT `+allocationColumns+` FROM allocations
		 WHERE region_id = $1 AND sub_region_id IS NOT NULL AND month = $2 AND year = $3
		 ORDER BY net_allocation DESC`,
		regionID, period.Month, period.Year,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list sub-region allocations: %w", err)
	}
	return collectAllocations(rows)
}

func (r *allocationRepository) AvailableYears(ctx context.Context, regionID uuid.UUID) ([]int, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT DISTINCT year FROM allocations WHERE region_id = $1 AND sub_region_id IS NULL ORDER BY year DESC`,
		regionID,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list allocation years: %w", err)
	}

	years, err := pgx.CollectRows(rows, pgx.RowTo[int])
	if err != nil {
		return nil, fmt.Errorf("failed to scan allocation years: %w", err)
	}
	return years, nil
}

func allocationArgs(a domain.Allocation) []any {
	return []any{
		a.ID, a.RegionID, a.SubRegionID, a.Month, a.Year,
		a.Statutory, a.VAT, a.Gross, a.Deductions, a.Net,
		a.CreatedAt, a.UpdatedAt,
	}
}

func scanAllocation(row pgx.Row) (domain.Allocation, error) {
	var (
		a     domain.Allocation
		subID pgtype.UUID
	)
	err := row.Scan(
		&a.ID, &a.RegionID, &subID, &a.Month, &a.Year,
		&a.Statutory, &a.VAT, &a.Gross, &a.Deductions, &a.Net,
		&a.CreatedAt, &a.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.Allocation{}, ErrNotFound
		}
		return domain.Allocation{}, err
	}
	if subID.Valid {
		id := uuid.UUID(subID.Bytes)
		a.SubRegionID = &id
	}
	return a, nil
}

func collectAllocations(rows pgx.Rows) ([]domain.Allocation, error) {
	defer rows.Close()

	allocations := []domain.Allocation{}
	for rows.Next() {
		a, err := scanAllocation(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan allocation: %w", err)
		}
		allocations = append(allocations, a)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate allocations: %w", err)
	}
	return allocations, nil
}
