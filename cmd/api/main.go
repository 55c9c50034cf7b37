// cmd/api/main.go
package main

import (
	"context"
	"log"
	"net/http"
	"os"

	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog"

	"github.com/jlhuang/astrod/internal/astro"
	"github.com/jlhuang/astrod/internal/cache"
	"github.com/jlhuang/astrod/internal/config"
	"github.com/jlhuang/astrod/internal/convert"
	"github.com/jlhuang/astrod/internal/horoscope"
	"github.com/jlhuang/astrod/internal/http/routes"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config error: %v", err)
	}

	// Logger
	logger := zerolog.New(os.Stdout).With().Timestamp().Logger()
	log.Printf("starting astrod on :%s", cfg.Port)

	// Cache store
	store := cache.NewStore(cfg.CacheFile, logger)
	store.Load()

	// Upstream client
	client := astro.New(
		astro.WithBaseURL(cfg.BaseURL),
		astro.WithTimeout(cfg.HTTPTimeout),
	)

	// Optional script converter
	converter := convert.New(logger)

	svc := horoscope.NewService(store, client, logger)

	// Scheduled refresh at 08:00 and 20:00 local time, plus one run at
	// startup. A slot missed while the process was down is simply skipped.
	sched := cron.New()
	refresh := func() {
		if _, err := svc.RefreshAll(context.Background()); err != nil {
			logger.Error().Err(err).Msg("scheduled refresh failed")
		}
	}
	if _, err := sched.AddFunc("0 8 * * *", refresh); err != nil {
		log.Fatalf("schedule error: %v", err)
	}
	if _, err := sched.AddFunc("0 20 * * *", refresh); err != nil {
		log.Fatalf("schedule error: %v", err)
	}
	sched.Start()
	go refresh()

	// Router / server
	s := routes.New(routes.ServerOptions{
		Svc:       svc,
		Converter: converter,
		Logger:    logger,
	})

	srv := &http.Server{Addr: ":" + cfg.Port, Handler: s.Router}
	log.Fatal(srv.ListenAndServe())
}
