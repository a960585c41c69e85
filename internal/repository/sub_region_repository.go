package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/rpattn/faactracker/internal/domain"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

type subRegionRepository struct {
	pool *pgxpool.Pool
}

// NewSubRegionRepository creates a new sub-region repository
func NewSubRegionRepository(pool *pgxpool.Pool) SubRegionRepository {
	return &subRegionRepository{pool: pool}
}

func (r *subRegionRepository) ListByRegion(ctx context.Context, regionID uuid.UUID) ([]domain.SubRegion, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT id, region_id, name FROM sub_regions WHERE region_id = $1 ORDER BY name`,
		regionID,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list sub-regions: %w", err)
	}
	return collectSubRegions(rows)
}

func (r *subRegionRepository) GetByName(ctx context.Context, regionID uuid.UUID, name string) (domain.SubRegion, error) {
	row := r.pool.QueryRow(ctx,
		`SELECT id, region_id, name FROM sub_regions WHERE region_id = $1 AND LOWER(name) = LOWER($2)`,
		regionID, name,
	)
	sub, err := scanSubRegion(row)
	if err != nil {
		return domain.SubRegion{}, fmt.Errorf("failed to get sub-region %q: %w", name, err)
	}
	return sub, nil
}

func (r *subRegionRepository) Search(ctx context.Context, query string, limit int) ([]domain.SubRegion, error) {
	if limit <= 0 {
		limit = 5
	}
	rows, err := r.pool.Query(ctx,
		`SELECT id, region_id, name FROM sub_regions WHERE name ILIKE '%' || $1 || '%' ORDER BY name LIMIT $2`,
		query, limit,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to search sub-regions: %w", err)
	}
	return collectSubRegions(rows)
}

func (r *subRegionRepository) Upsert(ctx context.Context, sub domain.SubRegion) (domain.SubRegion, error) {
	row := r.pool.QueryRow(ctx,
		`INSERT INTO sub_regions (id, region_id, name)
		 VALUES ($1, $2, $3)
		 ON CONFLICT (region_id, name) DO UPDATE SET name = EXCLUDED.name
		 RETURNING id, region_id, name`,
		sub.ID, sub.RegionID, sub.Name,
	)
	saved, err := scanSubRegion(row)
	if err != nil {
		return domain.SubRegion{}, fmt.Errorf("failed to upsert sub-region %q: %w", sub.Name, err)
	}
	return saved, nil
}

func scanSubRegion(row pgx.Row) (domain.SubRegion, error) {
	var sub domain.SubRegion
	if err := row.Scan(&sub.ID, &sub.RegionID, &sub.Name); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.SubRegion{}, ErrNotFound
		}
		return domain.SubRegion{}, err
	}
	return sub, nil
}

func collectSubRegions(rows pgx.Rows) ([]domain.SubRegion, error) {
	defer rows.Close()

	subs := []domain.SubRegion{}
	for rows.Next() {
		sub, err := scanSubRegion(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan sub-region: %w", err)
		}
		subs = append(subs, sub)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate sub-regions: %w", err)
	}
	return subs, nil
}
