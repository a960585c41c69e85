package scheduler

import (
	"context"
	"fmt"
	"time"

	"github.com/rpattn/faactracker/internal/domain"
	"github.com/rpattn/faactracker/internal/ingestion"

	"github.com/rs/zerolog"
)

// Ingester is the part of the ingestion service the scheduler drives
type Ingester interface {
	Run(ctx context.Context, period *domain.Period) ingestion.RunResult
	Populated(ctx context.Context, period domain.Period) (bool, error)
}

// IngestionJob runs the monthly ingestion for the previous calendar month.
type IngestionJob struct {
	service Ingester
}

// NewIngestionJob creates the monthly ingestion job
func NewIngestionJob(service Ingester) *IngestionJob {
	return &IngestionJob{service: service}
}

// Name returns the job name
func (j *IngestionJob) Name() string {
	return "monthly_ingestion"
}

// Run executes one ingestion run; a failed outcome is reported as an error.
func (j *IngestionJob) Run(ctx context.Context) error {
	result := j.service.Run(ctx, nil)
	if result.Outcome() == domain.OutcomeFailed {
		return fmt.Errorf("ingestion for %s failed: %s", result.Entry.Period(), result.Entry.Message)
	}
	return nil
}

// CatchUp runs the ingestion once when the last scheduled fire fell inside the
// grace window and its period is still unpopulated. It reports whether a run happened.
func CatchUp(ctx context.Context, service Ingester, spec string, loc *time.Location, now time.Time, grace time.Duration, log zerolog.Logger) (bool, error) {
	fired, missed, err := MissedFire(spec, loc, now, grace)
	if err != nil {
		return false, fmt.Errorf("invalid schedule %q: %w", spec, err)
	}
	if !missed {
		return false, nil
	}

	period := domain.PreviousPeriod(fired)
	populated, err := service.Populated(ctx, period)
	if err != nil {
		return false, fmt.Errorf("failed to check %s: %w", period, err)
	}
	if populated {
		return false, nil
	}

	log.Info().
		Time("missed_fire", fired).
		Str("period", period.String()).
		Msg("Running missed ingestion")

	result := service.Run(ctx, &period)
	log.Info().
		Str("outcome", string(result.Outcome())).
		Str("message", result.Entry.Message).
		Msg("Catch-up ingestion finished")
	return true, nil
}
