package ingestion

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/rpattn/faactracker/internal/domain"

	"github.com/rs/zerolog"
)

const (
	defaultMinBytes  = 10000
	defaultTimeout   = 30 * time.Second
	maxWorkbookBytes = 50 << 20
)

// Attempt records what happened to one candidate URL
type Attempt struct {
	URL      string `json:"url"`
	Status   int    `json:"status,omitempty"`
	Bytes    int    `json:"bytes,omitempty"`
	Accepted bool   `json:"accepted"`
	Reason   string `json:"reason,omitempty"`
}

// Located is the outcome of a source search. Found is false when every template was rejected.
type Located struct {
	Found    bool
	URL      string
	Payload  []byte
	Attempts []Attempt
}

// Locator finds the published workbook for a period by trying URL templates in order.
type Locator struct {
	client    *http.Client
	templates []string
	minBytes  int64
	maxBytes  int64
	timeout   time.Duration
	logger    zerolog.Logger
}

// NewLocator builds a locator. Zero minBytes or timeout select the defaults.
func NewLocator(client *http.Client, templates []string, minBytes int64, timeout time.Duration, logger zerolog.Logger) *Locator {
	if client == nil {
		client = http.DefaultClient
	}
	if minBytes <= 0 {
		minBytes = defaultMinBytes
	}
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	return &Locator{
		client:    client,
		templates: append([]string(nil), templates...),
		minBytes:  minBytes,
		maxBytes:  maxWorkbookBytes,
		timeout:   timeout,
		logger:    logger,
	}
}

// Templates returns the number of configured templates
func (l *Locator) Templates() int {
	return len(l.templates)
}

// Locate tries each template for period and returns the first acceptable workbook.
// It never returns an error; failures are kept as attempt diagnostics.
func (l *Locator) Locate(ctx context.Context, period domain.Period) Located {
	result := Located{Attempts: make([]Attempt, 0, len(l.templates))}

	for _, tmpl := range l.templates {
		url := ExpandTemplate(tmpl, period)
		attempt, payload := l.fetch(ctx, url)
		result.Attempts = append(result.Attempts, attempt)
		sourceAttempts.WithLabelValues(attemptResult(attempt)).Inc()

		if !attempt.Accepted {
			l.logger.Debug().
				Str("url", url).
				Int("status", attempt.Status).
				Str("reason", attempt.Reason).
				Msg("source candidate rejected")
			continue
		}

		result.Found = true
		result.URL = url
		result.Payload = payload
		return result
	}

	return result
}

func (l *Locator) fetch(ctx context.Context, url string) (Attempt, []byte) {
	attempt := Attempt{URL: url}

	ctx, cancel := context.WithTimeout(ctx, l.timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		attempt.Reason = fmt.Sprintf("invalid request: %v", err)
		return attempt, nil
	}

	resp, err := l.client.Do(req)
	if err != nil {
		attempt.Reason = err.Error()
		return attempt, nil
	}
	defer resp.Body.Close()

	attempt.Status = resp.StatusCode
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		attempt.Reason = fmt.Sprintf("unexpected status %d", resp.StatusCode)
		return attempt, nil
	}

	payload, err := io.ReadAll(io.LimitReader(resp.Body, l.maxBytes+1))
	if err != nil {
		attempt.Reason = fmt.Sprintf("failed to read body: %v", err)
		return attempt, nil
	}
	attempt.Bytes = len(payload)
	if int64(len(payload)) > l.maxBytes {
		attempt.Reason = fmt.Sprintf("body too large (over %d bytes)", l.maxBytes)
		return attempt, nil
	}
	if int64(len(payload)) <= l.minBytes {
		attempt.Reason = fmt.Sprintf("body too small (%d bytes)", len(payload))
		return attempt, nil
	}

	attempt.Accepted = true
	return attempt, payload
}

func attemptResult(a Attempt) string {
	switch {
	case a.Accepted:
		return "accepted"
	case a.Status == 0:
		return "error"
	default:
		return "rejected"
	}
}

// ExpandTemplate fills the period placeholders of a URL template:
// {Month} March, {MONTH} MARCH, {month} march, {Mon} Mar, {MM} 03, {Year} 2025.
func ExpandTemplate(tmpl string, period domain.Period) string {
	name := period.MonthName()
	return strings.NewReplacer(
		"{Month}", name,
		"{MONTH}", strings.ToUpper(name),
		"{month}", strings.ToLower(name),
		"{Mon}", name[:3],
		"{MM}", fmt.Sprintf("%02d", period.Month),
		"{Year}", fmt.Sprintf("%d", period.Year),
	).Replace(tmpl)
}
