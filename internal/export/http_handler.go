package export

import (
	"errors"
	"fmt"
	"net/http"
	"strconv"

	"github.com/rpattn/faactracker/internal/repository"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"
)

type Handler struct {
	service *Service
	logger  zerolog.Logger
}

func NewHTTPHandler(service *Service, logger zerolog.Logger) *Handler {
	return &Handler{service: service, logger: logger}
}

// RegionHistory serves GET /api/regions/{name}/export?format=csv|xlsx
func (h *Handler) RegionHistory(w http.ResponseWriter, r *http.Request) {
	format, err := ParseFormat(r.URL.Query().Get("format"))
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	download, err := h.service.RegionHistory(r.Context(), chi.URLParam(r, "name"), format)
	switch {
	case errors.Is(err, repository.ErrNotFound):
		http.Error(w, "region not found", http.StatusNotFound)
		return
	case err != nil:
		h.logger.Error().Err(err).Msg("failed to render export")
		http.Error(w, "failed to render export", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", download.ContentType)
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=\"%s\"", download.Filename))
	w.Header().Set("Content-Length", strconv.Itoa(len(download.Body)))
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(download.Body)
}
