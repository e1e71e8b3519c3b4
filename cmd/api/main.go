package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"transport-vendor-api/internal"
	"transport-vendor-api/internal/config"
	"transport-vendor-api/internal/logging"
	"transport-vendor-api/internal/store"
)

func main() {
	cfg, err := config.LoadAndValidate()
	if err != nil {
		bootLog := logging.New("info", "console")
		bootLog.Fatal().Err(err).Msg("Configuration error")
	}
	log := logging.New(cfg.LogLevel, cfg.LogFormat)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	st, err := store.Open(ctx, cfg.DSN(), store.Options{
		MaxConns:       cfg.DBMaxConns,
		ConnectTimeout: cfg.DBConnectTimeout,
		Logger:         log,
	})
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to create database pool")
	}
	defer st.Close()

	// the API keeps serving without a database; /health reports it
	if err := st.Ping(ctx); err != nil {
		log.Error().Err(err).Str("hint", store.HintFor(err)).Msg("Database not reachable at startup")
	} else if err := st.Migrate(ctx); err != nil {
		log.Error().Err(err).Msg("Schema migration incomplete")
	}

	srv := internal.NewServer(cfg, st, log)
	httpServer := &http.Server{
		Addr:              cfg.Addr(),
		Handler:           srv.Router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		log.Info().
			Str("addr", httpServer.Addr).
			Strs("allowed_origins", cfg.Origins()).
			Bool("metrics", cfg.EnableMetrics).
			Bool("swagger", cfg.EnableSwagger).
			Msg("Starting Transport Vendor API server")
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal().Err(err).Msg("HTTP server failed")
		}
	}()

	<-ctx.Done()
	log.Info().Msg("Shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("Graceful shutdown failed")
	}
}
