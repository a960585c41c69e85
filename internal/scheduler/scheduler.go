package scheduler

import (
	"context"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog"
)

// Job represents a scheduled job
type Job interface {
	Run(ctx context.Context) error
	Name() string
}

// Scheduler manages background jobs
type Scheduler struct {
	cron *cron.Cron
	ctx  context.Context
	loc  *time.Location
	log  zerolog.Logger
}

// New creates a scheduler evaluating five-field cron specs in loc.
// Jobs receive ctx, so cancelling it aborts in-flight work.
func New(ctx context.Context, loc *time.Location, log zerolog.Logger) *Scheduler {
	if loc == nil {
		loc = time.UTC
	}
	return &Scheduler{
		cron: cron.New(cron.WithLocation(loc)),
		ctx:  ctx,
		loc:  loc,
		log:  log.With().Str("component", "scheduler").Logger(),
	}
}

// Location returns the time zone schedules are evaluated in
func (s *Scheduler) Location() *time.Location {
	return s.loc
}

// Start starts the scheduler
func (s *Scheduler) Start() {
	s.cron.Start()
	s.log.Info().Msg("Scheduler started")
}

// Stop stops the scheduler and waits for running jobs
func (s *Scheduler) Stop() {
	ctx := s.cron.Stop()
	<-ctx.Done()
	s.log.Info().Msg("Scheduler stopped")
}

// AddJob registers a job under a standard cron schedule, e.g. "0 6 5 * *".
func (s *Scheduler) AddJob(schedule string, job Job) error {
	_, err := s.cron.AddFunc(schedule, func() { s.run(job) })
	if err != nil {
		return err
	}

	s.log.Info().
		Str("schedule", schedule).
		Str("job", job.Name()).
		Msg("Job registered")

	return nil
}

// RunNow executes a job immediately (outside schedule)
func (s *Scheduler) RunNow(job Job) error {
	s.log.Info().Str("job", job.Name()).Msg("Running job immediately")
	return job.Run(s.ctx)
}

func (s *Scheduler) run(job Job) {
	s.log.Debug().Str("job", job.Name()).Msg("Running job")

	if err := job.Run(s.ctx); err != nil {
		s.log.Error().
			Err(err).
			Str("job", job.Name()).
			Msg("Job failed")
		return
	}
	s.log.Debug().Str("job", job.Name()).Msg("Job completed")
}

// MissedFire returns the latest time spec should have fired in (now-grace, now].
func MissedFire(spec string, loc *time.Location, now time.Time, grace time.Duration) (time.Time, bool, error) {
	schedule, err := cron.ParseStandard(spec)
	if err != nil {
		return time.Time{}, false, err
	}
	if loc == nil {
		loc = time.UTC
	}

	var (
		last  time.Time
		found bool
	)
	now = now.In(loc)
	for t := schedule.Next(now.Add(-grace)); !t.IsZero() && !t.After(now); t = schedule.Next(t) {
		last, found = t, true
	}
	return last, found, nil
}
