package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"pharmastock/m/internal/account"
	"pharmastock/m/internal/analytics"
	"pharmastock/m/internal/api"
	"pharmastock/m/internal/config"
	"pharmastock/m/internal/database"
	"pharmastock/m/internal/filestore"
	"pharmastock/m/internal/inventory"
	"pharmastock/m/internal/migrations"
	"pharmastock/m/internal/seed"
	"pharmastock/m/internal/session"
	"pharmastock/m/internal/store"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load config")
	}
	setupLogging(cfg)

	db := database.Connect(cfg.DatabaseDSN)
	defer db.Close()

	if err := migrations.Run(db); err != nil {
		log.Fatal().Err(err).Msg("failed to run migrations")
	}
	st := store.New(db)

	ctx := context.Background()

	var sessions session.Store = session.NewMemoryStore()
	if cfg.RedisURL != "" {
		rdb, err := session.NewRedisClient(ctx, cfg.RedisURL)
		if err != nil {
			log.Fatal().Err(err).Msg("failed to connect to redis")
		}
		defer rdb.Close()
		sessions = session.NewRedisStore(rdb)
		log.Info().Msg("sessions stored in redis")
	}

	catalog := inventory.NewService(st)
	images, err := filestore.New(cfg.ImageStoragePath, cfg.PublicBaseURL, st)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to prepare image storage")
	}

	if _, err := seed.LoadCatalog(ctx, catalog, st, cfg.SeedCatalogPath); err != nil {
		log.Error().Err(err).Msg("seeding catalog failed")
	}

	handler := api.New(api.Deps{
		Catalog:        catalog,
		Ledger:         st,
		Analytics:      analytics.NewService(st, cfg.LedgerFetchCap, cfg.Location()),
		Accounts:       account.NewService(st),
		Sessions:       session.NewManager(sessions, cfg.Secret, cfg.SessionTTL()),
		Images:         images,
		Health:         st,
		AllowedOrigins: cfg.AllowedOrigins(),
		Location:       cfg.Location(),
	})

	srv := &http.Server{
		Addr:         ":" + cfg.HTTPPort,
		Handler:      handler.Router(),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		log.Info().Str("port", cfg.HTTPPort).Str("env", cfg.Env).Msg("pharmacy stock server starting")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("server error")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msg("shutting down server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("forced shutdown")
	}
	log.Info().Msg("server exited")
}

// setupLogging picks pretty console output outside production and JSON in it.
func setupLogging(cfg config.Config) {
	level, err := zerolog.ParseLevel(cfg.LogLevel)
	if err != nil || level == zerolog.NoLevel {
		level = zerolog.InfoLevel
	}
	zerolog.SetGlobalLevel(level)
	if !cfg.Production() {
		log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339})
	}
}
