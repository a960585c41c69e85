package ingestion

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/rpattn/faactracker/internal/domain"
	"github.com/rpattn/faactracker/internal/repository"

	"github.com/rs/zerolog"
)

const maxPreviewsInMessage = 5

// SourceLocator finds the upstream workbook for a period
type SourceLocator interface {
	Locate(ctx context.Context, period domain.Period) Located
	Templates() int
}

// Service runs the monthly ingestion pipeline: locate, extract, gate, persist, record.
type Service struct {
	regions     repository.RegionRepository
	allocations repository.AllocationRepository
	logs        repository.IngestionLogRepository
	locator     SourceLocator
	extractor   *Extractor
	clock       func() time.Time
	minRegions  int
	logger      zerolog.Logger

	mu sync.Mutex
}

// Option configures a Service
type Option func(*Service)

// WithClock overrides the time source used to pick the default period.
func WithClock(clock func() time.Time) Option {
	return func(s *Service) { s.clock = clock }
}

// WithMinRegions sets how many regions must resolve before anything is written.
// Zero keeps the default of two fewer than the registry size.
func WithMinRegions(n int) Option {
	return func(s *Service) { s.minRegions = n }
}

// WithExtractor replaces the default extractor
func WithExtractor(e *Extractor) Option {
	return func(s *Service) { s.extractor = e }
}

// WithLogger sets the service logger
func WithLogger(l zerolog.Logger) Option {
	return func(s *Service) { s.logger = l }
}

// NewService creates a new ingestion service.
func NewService(
	regions repository.RegionRepository,
	allocations repository.AllocationRepository,
	logs repository.IngestionLogRepository,
	locator SourceLocator,
	opts ...Option,
) *Service {
	s := &Service{
		regions:     regions,
		allocations: allocations,
		logs:        logs,
		locator:     locator,
		extractor:   NewExtractor(defaultHeaderScanRows),
		clock:       time.Now,
		logger:      zerolog.Nop(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// RunResult is the recorded outcome of one run plus its diagnostics.
type RunResult struct {
	Entry    domain.IngestionLogEntry `json:"entry"`
	Attempts []Attempt                `json:"attempts,omitempty"`
	Resolved int                      `json:"resolved"`
	Dropped  []string                 `json:"dropped,omitempty"`
}

// Outcome returns the recorded outcome
func (r RunResult) Outcome() domain.IngestionOutcome {
	return r.Entry.Outcome
}

// Populated reports whether region-level allocations exist for period.
func (s *Service) Populated(ctx context.Context, period domain.Period) (bool, error) {
	return s.allocations.ExistsRegionLevel(ctx, period)
}

// DefaultPeriod returns the period a run without an explicit target would use.
func (s *Service) DefaultPeriod() domain.Period {
	return domain.PreviousPeriod(s.clock())
}

// Run ingests one period, or the previous calendar month when period is nil.
// It always records exactly one log entry and never panics; failures are
// reported through the returned outcome.
func (s *Service) Run(ctx context.Context, period *domain.Period) RunResult {
	s.mu.Lock()
	defer s.mu.Unlock()

	started := time.Now()
	target := s.DefaultPeriod()
	if period != nil {
		target = *period
	}

	result := RunResult{Entry: domain.NewIngestionLogEntry(target, s.clock().UTC())}
	logger := s.logger.With().Str("period", target.String()).Logger()

	func() {
		defer func() {
			if p := recover(); p != nil {
				logger.Error().Interface("panic", p).Msg("ingestion run panicked")
				result.fail(fmt.Sprintf("unexpected error: %v", p))
			}
		}()
		s.run(ctx, target, &result, logger)
	}()

	s.record(ctx, result.Entry, logger)

	runsTotal.WithLabelValues(string(result.Entry.Outcome)).Inc()
	recordsWritten.Add(float64(result.Entry.RecordsWritten))
	runDuration.Observe(time.Since(started).Seconds())

	logger.Info().
		Str("outcome", string(result.Entry.Outcome)).
		Int("records", result.Entry.RecordsWritten).
		Str("message", result.Entry.Message).
		Msg("ingestion run finished")

	return result
}

func (s *Service) run(ctx context.Context, target domain.Period, result *RunResult, logger zerolog.Logger) {
	if err := target.Validate(); err != nil {
		result.fail(fmt.Sprintf("invalid period: %v", err))
		return
	}
	label := target.Label()

	exists, err := s.allocations.ExistsRegionLevel(ctx, target)
	if err != nil {
		result.fail(fmt.Sprintf("failed to check existing allocations: %v", err))
		return
	}
	if exists {
		result.noData(fmt.Sprintf("allocations for %s already populated", label))
		return
	}

	located := s.locator.Locate(ctx, target)
	result.Attempts = located.Attempts
	if !located.Found {
		result.noData(fmt.Sprintf("no workbook published for %s: tried %d URL templates", label, s.locator.Templates()))
		return
	}
	source := located.URL
	result.Entry.SourceURL = &source
	logger.Info().Str("url", source).Int("bytes", len(located.Payload)).Msg("source workbook downloaded")

	rows, err := ReadFirstSheet(located.Payload)
	if err != nil {
		result.fail(fmt.Sprintf("failed to decode workbook: %v", err))
		return
	}

	regions, err := s.regions.List(ctx)
	if err != nil {
		result.fail(fmt.Sprintf("failed to load regions: %v", err))
		return
	}
	registry := BuildRegistry(regions)

	extraction := s.extractor.Extract(rows, registry)
	result.Resolved = len(extraction.Rows)
	result.Dropped = extraction.Unresolved
	rowsDropped.WithLabelValues("unresolved").Add(float64(len(extraction.Unresolved)))
	rowsDropped.WithLabelValues("empty").Add(float64(extraction.Empty))
	rowsDropped.WithLabelValues("duplicate").Add(float64(extraction.Duplicates))

	if !extraction.HeaderFound {
		result.fail(fmt.Sprintf("%v in the first %d rows", ErrNoHeader, s.extractor.headerScanRows))
		return
	}

	required := s.requiredRegions(registry)
	if len(extraction.Rows) < required {
		result.fail(fmt.Sprintf("only %d of %d regions parsed (minimum %d)%s",
			len(extraction.Rows), registry.Len(), required, droppedSuffix(extraction.Unresolved)))
		return
	}

	allocations := make([]domain.Allocation, 0, len(extraction.Rows))
	for _, fig := range extraction.Rows {
		allocations = append(allocations, domain.NewIngestedAllocation(
			fig.Region.ID, target, fig.Statutory, fig.VAT, fig.Deductions, fig.Net,
		))
	}

	written, err := s.allocations.InsertBatch(ctx, allocations)
	if err != nil {
		result.fail(fmt.Sprintf("failed to insert allocations, batch rolled back: %v", err))
		return
	}

	result.Entry.Outcome = domain.OutcomeSuccess
	result.Entry.RecordsWritten = written
	result.Entry.Message = fmt.Sprintf("inserted %d allocations for %s%s", written, label, droppedSuffix(extraction.Unresolved))
}

func (s *Service) requiredRegions(registry *Registry) int {
	if s.minRegions > 0 {
		return s.minRegions
	}
	if n := registry.Len() - 2; n > 0 {
		return n
	}
	return 1
}

func (s *Service) record(ctx context.Context, entry domain.IngestionLogEntry, logger zerolog.Logger) {
	// a cancelled caller must not lose the audit entry
	ctx = context.WithoutCancel(ctx)
	if err := s.logs.Record(ctx, entry); err != nil {
		logger.Error().Err(err).Msg("failed to record ingestion log")
	}
}

func (r *RunResult) fail(message string) {
	r.Entry.Outcome = domain.OutcomeFailed
	r.Entry.RecordsWritten = 0
	r.Entry.Message = message
}

func (r *RunResult) noData(message string) {
	r.Entry.Outcome = domain.OutcomeNoData
	r.Entry.RecordsWritten = 0
	r.Entry.Message = message
}

func droppedSuffix(dropped []string) string {
	if len(dropped) == 0 {
		return ""
	}
	shown := dropped
	if len(shown) > maxPreviewsInMessage {
		shown = shown[:maxPreviewsInMessage]
	}
	quoted := make([]string, len(shown))
	for i, p := range shown {
		quoted[i] = fmt.Sprintf("%q", p)
	}
	return fmt.Sprintf("; %d unresolved rows dropped: %s", len(dropped), strings.Join(quoted, ", "))
}
