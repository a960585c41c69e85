package main

import (
	"context"
	"encoding/json"
	"flag"
	"os"
	"os/signal"
	"syscall"

	"github.com/rpattn/faactracker/internal/app"
	"github.com/rpattn/faactracker/internal/config"
	"github.com/rpattn/faactracker/internal/domain"
	"github.com/rpattn/faactracker/pkg/logger"

	"github.com/rs/zerolog/log"
)

func main() {
	configPath := flag.String("config", ".", "directory containing config.yaml")
	month := flag.Int("month", 0, "month to ingest (1-12); defaults to the previous month")
	year := flag.Int("year", 0, "year to ingest; required with -month")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to load configuration")
	}
	l := logger.New(logger.Config{Level: cfg.Log.Level, Pretty: cfg.Log.Pretty})
	if err := cfg.Validate(); err != nil {
		l.Fatal().Err(err).Msg("Configuration validation failed")
	}

	var period *domain.Period
	if *month != 0 || *year != 0 {
		p, err := domain.NewPeriod(*month, *year)
		if err != nil {
			l.Fatal().Err(err).Msg("Invalid period")
		}
		period = &p
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	repos, err := app.OpenRepositories(ctx, cfg, l)
	if err != nil {
		l.Fatal().Err(err).Msg("Failed to open storage")
	}
	defer repos.Close()

	result := app.NewIngestionService(cfg.Ingestion, repos, l).Run(ctx, period)

	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	_ = enc.Encode(result)

	if result.Outcome() == domain.OutcomeFailed {
		repos.Close()
		os.Exit(1)
	}
}
