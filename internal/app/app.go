// Package app wires configuration into repositories and services for the commands.
package app

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/rpattn/faactracker/internal/config"
	"github.com/rpattn/faactracker/internal/db"
	"github.com/rpattn/faactracker/internal/ingestion"
	"github.com/rpattn/faactracker/internal/repository"
	"github.com/rpattn/faactracker/internal/repository/memory"
	"github.com/rpattn/faactracker/internal/seed"
	"github.com/rpattn/faactracker/pkg/logger"

	"github.com/rs/zerolog"
)

// Repositories bundles the storage backend
type Repositories struct {
	Regions       repository.RegionRepository
	SubRegions    repository.SubRegionRepository
	Allocations   repository.AllocationRepository
	Revenues      repository.RevenueRepository
	IngestionLogs repository.IngestionLogRepository

	close func()
}

// Close releases the backend
func (r *Repositories) Close() {
	if r.close != nil {
		r.close()
	}
}

// OpenRepositories connects the configured backend. The postgres backend is
// migrated first; the memory backend starts with the embedded reference data.
func OpenRepositories(ctx context.Context, cfg config.Config, log zerolog.Logger) (*Repositories, error) {
	switch cfg.Backend {
	case "memory":
		store := memory.NewStore()
		repos := &Repositories{
			Regions:       store.Regions(),
			SubRegions:    store.SubRegions(),
			Allocations:   store.Allocations(),
			Revenues:      store.Revenues(),
			IngestionLogs: store.IngestionLogs(),
		}
		fixture, err := seed.Default()
		if err != nil {
			return nil, err
		}
		if _, err := seed.NewLoader(repos.Regions, repos.SubRegions, log).Load(ctx, fixture); err != nil {
			return nil, fmt.Errorf("seed memory backend: %w", err)
		}
		log.Warn().Msg("Using the in-memory backend; data is lost on exit")
		return repos, nil

	case "postgres":
		if err := db.RunMigrations(cfg.Database); err != nil {
			return nil, fmt.Errorf("failed to run migrations: %w", err)
		}
		conn, err := db.NewConnection(ctx, cfg.Database)
		if err != nil {
			return nil, fmt.Errorf("failed to connect to database: %w", err)
		}
		log.Info().Int32("max_conns", conn.Pool.Config().MaxConns).Msg("Connected to database")
		return &Repositories{
			Regions:       repository.NewRegionRepository(conn.Pool),
			SubRegions:    repository.NewSubRegionRepository(conn.Pool),
			Allocations:   repository.NewAllocationRepository(conn.Pool),
			Revenues:      repository.NewRevenueRepository(conn.Pool),
			IngestionLogs: repository.NewIngestionLogRepository(conn.Pool),
			close:         conn.Close,
		}, nil

	default:
		return nil, fmt.Errorf("unknown backend %q", cfg.Backend)
	}
}

// NewIngestionService builds the pipeline from the ingestion settings.
func NewIngestionService(cfg config.IngestionConfig, repos *Repositories, log zerolog.Logger) *ingestion.Service {
	client := &http.Client{
		Timeout: cfg.Timeout + 5*time.Second,
		Transport: &http.Transport{
			Proxy:                 http.ProxyFromEnvironment,
			MaxIdleConns:          10,
			IdleConnTimeout:       90 * time.Second,
			TLSHandshakeTimeout:   10 * time.Second,
			ResponseHeaderTimeout: cfg.Timeout,
		},
	}
	locator := ingestion.NewLocator(client, cfg.Templates, cfg.MinBytes, cfg.Timeout,
		logger.Component(log, "locator"))

	return ingestion.NewService(
		repos.Regions,
		repos.Allocations,
		repos.IngestionLogs,
		locator,
		ingestion.WithMinRegions(cfg.MinRegions),
		ingestion.WithExtractor(ingestion.NewExtractor(cfg.HeaderScanRows)),
		ingestion.WithLogger(logger.Component(log, "ingestion")),
	)
}
