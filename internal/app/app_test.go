package app

import (
	"testing"
	"time"

	"github.com/rpattn/faactracker/internal/config"
	"github.com/rpattn/faactracker/internal/domain"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOpenMemoryBackendIsSeeded(t *testing.T) {
	repos, err := OpenRepositories(t.Context(), config.Config{Backend: "memory"}, zerolog.Nop())
	require.NoError(t, err)
	defer repos.Close()

	regions, err := repos.Regions.List(t.Context())
	require.NoError(t, err)
	assert.Len(t, regions, 37)
}

func TestOpenUnknownBackend(t *testing.T) {
	_, err := OpenRepositories(t.Context(), config.Config{Backend: "sqlite"}, zerolog.Nop())
	assert.Error(t, err)
}

func TestIngestionServiceUsesConfiguredTemplates(t *testing.T) {
	repos, err := OpenRepositories(t.Context(), config.Config{Backend: "memory"}, zerolog.Nop())
	require.NoError(t, err)

	svc := NewIngestionService(config.IngestionConfig{
		Templates:      []string{"http://127.0.0.1:1/{Year}.xlsx"},
		Timeout:        time.Second,
		MinRegions:     35,
		HeaderScanRows: 15,
	}, repos, zerolog.Nop())

	populated, err := svc.Populated(t.Context(), domain.Period{Month: 1, Year: 2025})
	require.NoError(t, err)
	assert.False(t, populated)

	result := svc.Run(t.Context(), &domain.Period{Month: 1, Year: 2025})
	assert.Equal(t, domain.OutcomeNoData, result.Outcome())
	require.Len(t, result.Attempts, 1)
	assert.Equal(t, "http://127.0.0.1:1/2025.xlsx", result.Attempts[0].URL)
}
