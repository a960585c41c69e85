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

const regionColumns = `id, name, code, geo_zone, aliases`

type regionRepository struct {
	pool *pgxpool.Pool
}

// NewRegionRepository creates a new region repository
func NewRegionRepository(pool *pgxpool.Pool) RegionRepository {
	return &regionRepository{pool: pool}
}

func (r *regionRepository) List(ctx context.Context) ([]domain.Region, error) {
	rows, err := r.pool.Query(ctx, `SELECT `+regionColumns+` FROM regions ORDER BY name`)
	if err != nil {
		return nil, fmt.Errorf("failed to list regions: %w", err)
	}
	return collectRegions(rows)
}

func (r *regionRepository) GetByID(ctx context.Context, id uuid.UUID) (domain.Region, error) {
	row := r.pool.QueryRow(ctx, `SELECT `+regionColumns+` FROM regions WHERE id = $1`, id)
	region, err := scanRegion(row)
	if err != nil {
		return domain.Region{}, fmt.Errorf("failed to get region %s: %w", id, err)
	}
	return region, nil
}

func (r *regionRepository) GetByIDs(ctx context.Context, ids []uuid.UUID) ([]domain.Region, error) {
	if len(ids) == 0 {
		return []domain.Region{}, nil
	}
	rows, err := r.pool.Query(ctx, `SELECT `+regionColumns+` FROM regions WHERE id = ANY($1) ORDER BY name`, ids)
	if err != nil {
		return nil, fmt.Errorf("failed to get regions by ids: %w", err)
	}
	return collectRegions(rows)
}

func (r *regionRepository) GetByName(ctx context.Context, name string) (domain.Region, error) {
	row := r.pool.QueryRow(ctx, `SELECT `+regionColumns+` FROM regions WHERE LOWER(name) = LOWER($1)`, name)
	region, err := scanRegion(row)
	if err != nil {
		return domain.Region{}, fmt.Errorf("failed to get region %q: %w", name, err)
	}
	return region, nil
}

func (r *regionRepository) Search(ctx context.Context, query string, limit int) ([]domain.Region, error) {
	if limit <= 0 {
		limit = 5
	}
	rows, err := r.pool.Query(ctx,
		`SELECT `+regionColumns+` FROM regions WHERE name ILIKE '%' || $1 || '%' ORDER BY name LIMIT $2`,
		query, limit,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to search regions: %w", err)
	}
	return collectRegions(rows)
}

func (r *regionRepository) Upsert(ctx context.Context, region domain.Region) (domain.Region, error) {
	aliases := region.Aliases
	if aliases == nil {
		aliases = []string{}
	}
	row := r.pool.QueryRow(ctx,
		`INSERT INTO regions (id, name, code, geo_zone, aliases)
		 VALUES ($1, $2, $3, $4, $5)
		 ON CONFLICT (code) DO UPDATE
		 SET name = EXCLUDED.name, geo_zone = EXCLUDED.geo_zone, aliases = EXCLUDED.aliases
		 RETURNING `+regionColumns,
		region.ID, region.Name, region.Code, string(region.Zone), aliases,
	)
	saved, err := scanRegion(row)
	if err != nil {
		return domain.Region{}, fmt.Errorf("failed to upsert region %s: %w", region.Code, err)
	}
	return saved, nil
}

func scanRegion(row pgx.Row) (domain.Region, error) {
	var (
		region domain.Region
		zone   string
	)
	if err := row.Scan(&region.ID, &region.Name, &region.Code, &zone, &region.Aliases); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.Region{}, ErrNotFound
		}
		return domain.Region{}, err
	}
	region.Zone = domain.Zone(zone)
	return region, nil
}

func collectRegions(rows pgx.Rows) ([]domain.Region, error) {
	defer rows.Close()

	regions := []domain.Region{}
	for rows.Next() {
		region, err := scanRegion(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan region: %w", err)
		}
		regions = append(regions, region)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate regions: %w", err)
	}
	return regions, nil
}
