package repository

import (
	"context"
	"fmt"

	"github.com/rpattn/faactracker/internal/domain"

	"github.com/jackc/pgx/v5/pgtype"
	"github.com/jackc/pgx/v5/pgxpool"
)

type ingestionLogRepository struct {
	pool *pgxpool.Pool
}

// NewIngestionLogRepository wires a repository backed by pgxpool.
func NewIngestionLogRepository(pool *pgxpool.Pool) IngestionLogRepository {
	return &ingestionLogRepository{pool: pool}
}

func (r *ingestionLogRepository) Record(ctx context.Context, entry domain.IngestionLogEntry) error {
	if r.pool == nil {
		return fmt.Errorf("ingestion log repository not initialized")
	}

	_, err := r.pool.Exec(
		ctx,
		`INSERT INTO ingestion_logs (id, run_at, month, year, outcome, source_url, records_written, message)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
		entry.ID,
		entry.RunAt,
		entry.Month,
		entry.Year,
		string(entry.Outcome),
		entry.SourceURL,
		entry.RecordsWritten,
		entry.Message,
	)
	if err != nil {
		return fmt.Errorf("failed to record ingestion log: %w", err)
	}

	return nil
}

func (r *ingestionLogRepository) List(ctx context.Context, limit int, offset int) ([]domain.IngestionLogEntry, error) {
	if r.pool == nil {
		return nil, fmt.Errorf("ingestion log repository not initialized")
	}

	if limit <= 0 {
		limit = 50
	}
	if offset < 0 {
		offset = 0
	}

	rows, err := r.pool.Query(
		ctx,
		`SELECT id, run_at, month, year, outcome, source_url, records_written, message
		 FROM ingestion_logs
		 ORDER BY run_at DESC
		 LIMIT $1 OFFSET $2`,
		limit,
		offset,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list ingestion logs: %w", err)
	}
	defer rows.Close()

	logs := []domain.IngestionLogEntry{}
	for rows.Next() {
		var (
			entry     domain.IngestionLogEntry
			outcome   string
			sourceURL pgtype.Text
			runAt     pgtype.Timestamptz
		)
		if scanErr := rows.Scan(
			&entry.ID,
			&runAt,
			&entry.Month,
			&entry.Year,
			&outcome,
			&sourceURL,
			&entry.RecordsWritten,
			&entry.Message,
		); scanErr != nil {
			return nil, fmt.Errorf("failed to scan ingestion log: %w", scanErr)
		}

		entry.Outcome = domain.IngestionOutcome(outcome)
		if sourceURL.Valid {
			value := sourceURL.String
			entry.SourceURL = &value
		}
		if runAt.Valid {
			entry.RunAt = runAt.Time
		}

		logs = append(logs, entry)
	}

	if rowsErr := rows.Err(); rowsErr != nil {
		return nil, fmt.Errorf("failed to iterate ingestion logs: %w", rowsErr)
	}

	return logs, nil
}
