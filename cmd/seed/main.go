package main

import (
	"context"
	"flag"
	"os"

	"github.com/rpattn/faactracker/internal/app"
	"github.com/rpattn/faactracker/internal/config"
	"github.com/rpattn/faactracker/internal/seed"
	"github.com/rpattn/faactracker/pkg/logger"

	"github.com/rs/zerolog/log"
)

func main() {
	configPath := flag.String("config", ".", "directory containing config.yaml")
	fixturePath := flag.String("fixture", "", "YAML fixture to load instead of the embedded one")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to load configuration")
	}
	l := logger.New(logger.Config{Level: cfg.Log.Level, Pretty: cfg.Log.Pretty})
	if err := cfg.Validate(); err != nil {
		l.Fatal().Err(err).Msg("Configuration validation failed")
	}

	fixture, err := loadFixture(*fixturePath)
	if err != nil {
		l.Fatal().Err(err).Msg("Failed to read fixture")
	}

	ctx := context.Background()
	repos, err := app.OpenRepositories(ctx, cfg, l)
	if err != nil {
		l.Fatal().Err(err).Msg("Failed to open storage")
	}
	defer repos.Close()

	result, err := seed.NewLoader(repos.Regions, repos.SubRegions, l).Load(ctx, fixture)
	if err != nil {
		l.Error().Err(err).Msg("Seeding failed")
		repos.Close()
		os.Exit(1)
	}
	l.Info().Int("regions", result.Regions).Int("sub_regions", result.SubRegions).Msg("Seeding complete")
}

func loadFixture(path string) (seed.Fixture, error) {
	if path == "" {
		return seed.Default()
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return seed.Fixture{}, err
	}
	return seed.Parse(data)
}
