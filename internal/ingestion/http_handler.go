package ingestion

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"sync"

	"github.com/rpattn/faactracker/internal/domain"
	"github.com/rpattn/faactracker/internal/repository"

	"github.com/rs/zerolog"
)

const maxLogLimit = 200

// Handler exposes the manual trigger and the audit log over HTTP.
type Handler struct {
	service *Service
	logs    repository.IngestionLogRepository
	logger  zerolog.Logger
	running sync.WaitGroup
}

// NewHTTPHandler wraps the service for the admin surface.
func NewHTTPHandler(service *Service, logs repository.IngestionLogRepository, logger zerolog.Logger) *Handler {
	return &Handler{service: service, logs: logs, logger: logger}
}

type triggerRequest struct {
	Month *int `json:"month"`
	Year  *int `json:"year"`
}

// Trigger starts a run in the background and answers 202 straight away.
// The run outlives the request so a client disconnect cannot cancel it.
func (h *Handler) Trigger(w http.ResponseWriter, r *http.Request) {
	req, err := decodeTrigger(r)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
		return
	}

	var period *domain.Period
	if req.Month != nil || req.Year != nil {
		if req.Month == nil || req.Year == nil {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "month and year must be given together"})
			return
		}
		p, err := domain.NewPeriod(*req.Month, *req.Year)
		if err != nil {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
			return
		}
		period = &p
	}

	ctx := context.WithoutCancel(r.Context())
	h.running.Add(1)
	go func() {
		defer h.running.Done()
		h.service.Run(ctx, period)
	}()

	writeJSON(w, http.StatusAccepted, map[string]string{
		"status":  "accepted",
		"message": "ingestion started; check the ingestion log for the outcome",
	})
}

// Wait blocks until background runs started by Trigger have finished.
func (h *Handler) Wait() {
	h.running.Wait()
}

// Logs lists audit entries most recent first.
func (h *Handler) Logs(w http.ResponseWriter, r *http.Request) {
	limit := 50
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 1 {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "limit must be a positive integer"})
			return
		}
		limit = min(n, maxLogLimit)
	}

	entries, err := h.logs.List(r.Context(), limit, 0)
	if err != nil {
		h.logger.Error().Err(err).Msg("failed to list ingestion logs")
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "failed to list ingestion logs"})
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{"logs": entries})
}

func decodeTrigger(r *http.Request) (triggerRequest, error) {
	var req triggerRequest
	if strings.HasPrefix(r.Header.Get("Content-Type"), "application/json") {
		if r.ContentLength == 0 {
			return req, nil
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil && !errors.Is(err, io.EOF) {
			return req, fmt.Errorf("invalid JSON body: %w", err)
		}
		return req, nil
	}

	if err := r.ParseForm(); err != nil {
		return req, fmt.Errorf("invalid form data: %w", err)
	}
	for field, target := range map[string]**int{"month": &req.Month, "year": &req.Year} {
		raw := strings.TrimSpace(r.FormValue(field))
		if raw == "" {
			continue
		}
		n, err := strconv.Atoi(raw)
		if err != nil {
			return req, fmt.Errorf("%s must be a number", field)
		}
		*target = &n
	}
	return req, nil
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	_ = enc.Encode(payload)
}
