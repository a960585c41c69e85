package repository

import (
	"context"
	"fmt"

	"github.com/rpattn/faactracker/internal/domain"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
)

type revenueRepository struct {
	pool *pgxpool.Pool
}

// NewRevenueRepository creates a new revenue repository
func NewRevenueRepository(pool *pgxpool.Pool) RevenueRepository {
	return &revenueRepository{pool: pool}
}

func (r *revenueRepository) ListByRegion(ctx context.Context, regionID uuid.UUID) ([]domain.RevenueRecord, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT id, region_id, year, quarter, amount
		 FROM revenues
		 WHERE region_id = $1
		 ORDER BY year, quarter`,
		regionID,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list revenue: %w", err)
	}
	defer rows.Close()

	records := []domain.RevenueRecord{}
	for rows.Next() {
		var record domain.RevenueRecord
		if err := rows.Scan(&record.ID, &record.RegionID, &record.Year, &record.Quarter, &record.Amount); err != nil {
			return nil, fmt.Errorf("failed to scan revenue: %w", err)
		}
		records = append(records, record)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate revenue: %w", err)
	}
	return records, nil
}
