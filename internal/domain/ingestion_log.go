package domain

import (
	"time"

	"github.com/google/uuid"
)

// IngestionOutcome classifies how an ingestion run ended
type IngestionOutcome string

const (
	OutcomeSuccess IngestionOutcome = "success"
	OutcomeFailed  IngestionOutcome = "failed"
	OutcomeNoData  IngestionOutcome = "no-data"
)

// IngestionLogEntry is the audit record written once per ingestion run.
type IngestionLogEntry struct {
	ID             uuid.UUID        `json:"id"`
	RunAt          time.Time        `json:"run_at"`
	Month          int              `json:"month"`
	Year           int              `json:"year"`
	Outcome        IngestionOutcome `json:"outcome"`
	SourceURL      *string          `json:"source_url,omitempty"`
	RecordsWritten int              `json:"records_written"`
	Message        string           `json:"message"`
}

// NewIngestionLogEntry starts an entry for period at runAt
func NewIngestionLogEntry(period Period, runAt time.Time) IngestionLogEntry {
	return IngestionLogEntry{
		ID:    uuid.New(),
		RunAt: runAt,
		Month: period.Month,
		Year:  period.Year,
	}
}

// Period returns the targeted period
func (e IngestionLogEntry) Period() Period {
	return Period{Month: e.Month, Year: e.Year}
}
