package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/accesshub/accesshub-server/internal/config"
	"github.com/accesshub/accesshub-server/internal/storage"
)

// token-sweeper deletes expired refresh token records on an interval.
// Expired tokens are already unusable; this is housekeeping only.
func main() {
	var configFile string
	var once bool
	flag.StringVar(&configFile, "config", "config/accesshub-server.yml", "Configuration file path")
	flag.BoolVar(&once, "once", false, "Run a single sweep and exit")
	flag.Parse()

	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})
	zerolog.SetGlobalLevel(zerolog.InfoLevel)

	cfg, err := config.Load(configFile)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to load configuration")
	}

	level, err := zerolog.ParseLevel(cfg.Log.Level)
	if err != nil {
		level = zerolog.InfoLevel
	}
	zerolog.SetGlobalLevel(level)

	store, err := storage.NewPostgresStore(cfg.Database.DSN)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to connect to database")
	}
	defer store.Close()

	log.Info().Msg("Connected to database")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	go func() {
		sigChan := make(chan os.Signal, 1)
		signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
		sig := <-sigChan
		log.Info().Str("signal", sig.String()).Msg("Received signal, shutting down")
		cancel()
	}()

	sweep := func() {
		deleted, err := store.DeleteExpiredTokens(ctx, time.Now())
		if err != nil {
			log.Error().Err(err).Msg("Sweep failed")
			return
		}
		log.Info().Int64("deleted", deleted).Msg("Swept expired refresh tokens")
	}

	sweep()
	if once {
		return
	}

	interval := cfg.Sweeper.Interval
	if interval <= 0 {
		interval = time.Hour
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			log.Info().Msg("Token sweeper stopped")
			return
		case <-ticker.C:
			sweep()
		}
	}
}
