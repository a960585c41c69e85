package main

import (
	"context"
	"errors"
	"flag"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rpattn/faactracker/internal/api"
	"github.com/rpattn/faactracker/internal/app"
	"github.com/rpattn/faactracker/internal/auth"
	"github.com/rpattn/faactracker/internal/config"
	"github.com/rpattn/faactracker/internal/export"
	"github.com/rpattn/faactracker/internal/ingestion"
	"github.com/rpattn/faactracker/internal/scheduler"
	"github.com/rpattn/faactracker/pkg/logger"

	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"
)

func main() {
	configPath := flag.String("config", ".", "directory containing config.yaml")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to load configuration")
	}

	l := logger.New(logger.Config{Level: cfg.Log.Level, Pretty: cfg.Log.Pretty})
	logger.SetGlobalLogger(l)

	if err := cfg.Validate(); err != nil {
		l.Fatal().Err(err).Msg("Configuration validation failed")
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	repos, err := app.OpenRepositories(ctx, cfg, l)
	if err != nil {
		l.Fatal().Err(err).Msg("Failed to open storage")
	}
	defer repos.Close()

	service := app.NewIngestionService(cfg.Ingestion, repos, l)
	ingestHandler := ingestion.NewHTTPHandler(service, repos.IngestionLogs, logger.Component(l, "ingestion_http"))

	if cfg.Admin.Password == "" {
		l.Warn().Msg("ADMIN_PASSWORD is not set; admin routes are disabled")
	}

	server := api.New(api.Config{
		Addr:           cfg.Server.Addr,
		AllowedOrigins: cfg.Server.AllowedOrigins,
		Log:            l,
		Regions:        repos.Regions,
		SubRegions:     repos.SubRegions,
		Allocations:    repos.Allocations,
		Revenues:       repos.Revenues,
		Ingestion:      ingestHandler,
		Export:         export.NewHTTPHandler(export.NewService(repos.Regions, repos.Allocations), logger.Component(l, "export")),
		AdminPassword:  cfg.Admin.Password,
		Sessions:       auth.NewSessionSigner(cfg.Admin.SessionSecret, cfg.Admin.SessionTTL),
	})

	var sched *scheduler.Scheduler
	if !cfg.Ingestion.ScheduleOff {
		loc, err := time.LoadLocation(cfg.Ingestion.Timezone)
		if err != nil {
			l.Fatal().Err(err).Str("timezone", cfg.Ingestion.Timezone).Msg("Invalid timezone")
		}
		sched = scheduler.New(ctx, loc, l)
		if err := sched.AddJob(cfg.Ingestion.Schedule, scheduler.NewIngestionJob(service)); err != nil {
			l.Fatal().Err(err).Msg("Failed to schedule ingestion")
		}
		sched.Start()
	}

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		if err := server.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})

	if sched != nil {
		g.Go(func() error {
			ran, err := scheduler.CatchUp(gctx, service, cfg.Ingestion.Schedule, sched.Location(), time.Now(), cfg.Ingestion.Grace, l)
			if err != nil {
				l.Error().Err(err).Msg("Catch-up check failed")
			} else if !ran {
				l.Debug().Msg("No missed ingestion to catch up")
			}
			return nil
		})
	}

	g.Go(func() error {
		<-gctx.Done()
		l.Info().Msg("Shutting down")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()

		err := server.Shutdown(shutdownCtx)
		if sched != nil {
			sched.Stop()
		}
		ingestHandler.Wait()
		return err
	})

	if err := g.Wait(); err != nil {
		l.Error().Err(err).Msg("Server exited with error")
		os.Exit(1)
	}
	l.Info().Msg("Server exited")
}
