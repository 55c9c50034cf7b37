// cmd/update runs one bulk refresh pass and exits, for use from an
// external scheduler such as cron, independent of the HTTP process.
package main

import (
	"context"
	"log"
	"os"

	"github.com/rs/zerolog"

	"github.com/jlhuang/astrod/internal/astro"
	"github.com/jlhuang/astrod/internal/cache"
	"github.com/jlhuang/astrod/internal/config"
	"github.com/jlhuang/astrod/internal/horoscope"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config error: %v", err)
	}

	logger := zerolog.New(os.Stdout).With().Timestamp().Logger()

	store := cache.NewStore(cfg.CacheFile, logger)
	store.Load()

	client := astro.New(
		astro.WithBaseURL(cfg.BaseURL),
		astro.WithTimeout(cfg.HTTPTimeout),
	)

	svc := horoscope.NewService(store, client, logger)

	// Per-sign failures are logged inside RefreshAll and do not fail the
	// run; only a batch-level failure produces a non-zero exit.
	updated, err := svc.RefreshAll(context.Background())
	if err != nil {
		logger.Error().Err(err).Msg("update process failed")
		os.Exit(1)
	}
	logger.Info().Int("updated", updated).Msg("update process completed")
}
