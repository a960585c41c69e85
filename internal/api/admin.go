package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/rpattn/faactracker/internal/auth"
	"github.com/rpattn/faactracker/internal/domain"
	"github.com/rpattn/faactracker/internal/repository"
	"github.com/rpattn/faactracker/pkg/validator"

	"github.com/rs/zerolog"
)

const adminSubject = "admin"

type adminHandler struct {
	regions     repository.RegionRepository
	allocations repository.AllocationRepository
	password    string
	sessions    *auth.SessionSigner
	validator   *validator.AllocationValidator
	clock       func() time.Time
	log         zerolog.Logger
}

func newAdminHandler(
	regions repository.RegionRepository,
	allocations repository.AllocationRepository,
	password string,
	sessions *auth.SessionSigner,
	clock func() time.Time,
	log zerolog.Logger,
) *adminHandler {
	return &adminHandler{
		regions:     regions,
		allocations: allocations,
		password:    password,
		sessions:    sessions,
		validator:   validator.NewAllocationValidator(),
		clock:       clock,
		log:         log.With().Str("handler", "admin").Logger(),
	}
}

// Login checks the submitted password and issues a session cookie.
func (h *adminHandler) Login(w http.ResponseWriter, r *http.Request) {
	if h.password == "" {
		writeError(w, http.StatusServiceUnavailable, "admin access is not configured")
		return
	}

	var password string
	if err := decodeBody(r, func(field func(string) string) {
		password = field("password")
	}); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	if !auth.CheckPassword(h.password, password) {
		h.log.Warn().Str("remote", r.RemoteAddr).Msg("admin login rejected")
		writeError(w, http.StatusUnauthorized, "incorrect password")
		return
	}

	now := h.clock()
	http.SetCookie(w, &http.Cookie{
		Name:     auth.SessionCookieName,
		Value:    h.sessions.Sign(adminSubject, now),
		Path:     "/",
		Expires:  now.Add(h.sessions.TTL()),
		HttpOnly: true,
		Secure:   r.TLS != nil,
		SameSite: http.SameSiteLaxMode,
	})
	writeJSON(w, http.StatusOK, map[string]string{"status": "logged in"})
}

// Logout clears the session cookie
func (h *adminHandler) Logout(w http.ResponseWriter, r *http.Request) {
	http.SetCookie(w, &http.Cookie{
		Name:     auth.SessionCookieName,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})
	writeJSON(w, http.StatusOK, map[string]string{"status": "logged out"})
}

// SaveAllocation creates or updates the region-level allocation for a month.
// Net is derived as statutory + VAT - deductions.
func (h *adminHandler) SaveAllocation(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var in validator.AllocationInput
	if err := decodeBody(r, func(field func(string) string) {
		in = validator.AllocationInput{
			RegionID:   field("region_id"),
			Month:      field("month"),
			Year:       field("year"),
			Statutory:  field("statutory_allocation"),
			VAT:        field("vat_allocation"),
			Deductions: field("deductions"),
		}
	}); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	parsed, result := h.validator.Validate(in)
	if !result.IsValid {
		writeJSON(w, http.StatusUnprocessableEntity, result)
		return
	}

	region, err := h.regions.GetByID(ctx, parsed.RegionID)
	switch {
	case errors.Is(err, repository.ErrNotFound):
		writeJSON(w, http.StatusUnprocessableEntity, validator.ValidationResult{
			Errors: []validator.ValidationError{{Field: "region_id", Message: "region does not exist", Value: in.RegionID}},
		})
		return
	case err != nil:
		h.log.Error().Err(err).Msg("failed to find region")
		writeError(w, http.StatusInternalServerError, "failed to find region")
		return
	}

	period, err := domain.NewPeriod(parsed.Month, parsed.Year)
	if err != nil {
		writeError(w, http.StatusUnprocessableEntity, err.Error())
		return
	}

	allocation := domain.NewManualAllocation(region.ID, period, parsed.Statutory, parsed.VAT, parsed.Deductions)
	saved, created, err := h.allocations.Upsert(ctx, allocation)
	if err != nil {
		h.log.Error().Err(err).Str("region", region.Name).Str("period", period.String()).Msg("failed to save allocation")
		writeError(w, http.StatusInternalServerError, "failed to save allocation")
		return
	}

	status, verb := http.StatusOK, "updated"
	if created {
		status, verb = http.StatusCreated, "added"
	}
	subject, _ := auth.AdminFromContext(ctx)
	h.log.Info().
		Str("admin", subject).
		Str("region", region.Name).
		Str("period", period.String()).
		Bool("created", created).
		Msg("manual allocation saved")

	writeJSON(w, status, map[string]any{
		"message":    fmt.Sprintf("Allocation %s for %s, %s", verb, region.Name, period.Label()),
		"created":    created,
		"allocation": saved,
	})
}

// decodeBody reads a JSON object or a form body and hands fill an accessor
// returning each field as trimmed text. Missing fields read as "".
func decodeBody(r *http.Request, fill func(field func(string) string)) error {
	if strings.HasPrefix(r.Header.Get("Content-Type"), "application/json") {
		values := map[string]any{}
		dec := json.NewDecoder(r.Body)
		dec.UseNumber()
		if err := dec.Decode(&values); err != nil {
			return fmt.Errorf("invalid JSON body: %w", err)
		}
		fill(func(key string) string {
			switch v := values[key].(type) {
			case nil:
				return ""
			case string:
				return strings.TrimSpace(v)
			default:
				return fmt.Sprint(v)
			}
		})
		return nil
	}
	if err := r.ParseForm(); err != nil {
		return fmt.Errorf("invalid form data: %w", err)
	}
	fill(func(key string) string { return strings.TrimSpace(r.PostFormValue(key)) })
	return nil
}
