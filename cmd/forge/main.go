package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/darkmc/plugin-forge/internal/config"
	"github.com/darkmc/plugin-forge/internal/jobs"
	"github.com/darkmc/plugin-forge/internal/llm"
	"github.com/darkmc/plugin-forge/internal/metrics"
	"github.com/darkmc/plugin-forge/internal/server"
	"github.com/darkmc/plugin-forge/internal/store"
)

func main() {
	// Local .env is optional; real deployments set the environment directly.
	_ = godotenv.Load()

	// Setup structured logging
	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix
	logger := zerolog.New(os.Stdout).With().Timestamp().Caller().Logger()

	if os.Getenv("ENVIRONMENT") == "development" {
		logger = logger.Output(zerolog.ConsoleWriter{Out: os.Stderr})
	}

	log.Logger = logger

	cfg, err := config.Load()
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to load config")
	}

	if level, err := zerolog.ParseLevel(cfg.LogLevel); err == nil {
		zerolog.SetGlobalLevel(level)
	}

	logger.Info().
		Str("environment", cfg.Environment).
		Str("listen_addr", cfg.ListenAddr).
		Str("database", cfg.DatabasePath).
		Bool("sessions", cfg.SessionsEnabled()).
		Msg("starting plugin forge")

	st, err := store.New(cfg.DatabasePath, logger)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to open store")
	}
	defer st.Close()

	// Jobs left mid-flight by a previous process would poll forever as
	// "processing"; fail them up front so clients see a terminal status.
	if n, err := st.FailStuckJobs(); err != nil {
		logger.Error().Err(err).Msg("failed to fail stuck jobs")
	} else if n > 0 {
		logger.Warn().Int64("count", n).Msg("failed stuck jobs from previous run")
	}

	catalog := llm.DefaultCatalog()
	if cfg.ModelCatalogPath != "" {
		catalog, err = llm.LoadCatalog(cfg.ModelCatalogPath)
		if err != nil {
			logger.Fatal().Err(err).Msg("failed to load model catalog")
		}
	}

	client := llm.NewGatewayClient(cfg.GatewayAPIKey,
		llm.WithBaseURL(cfg.GatewayBaseURL),
		llm.WithModel(cfg.DefaultModel),
		llm.WithLogger(logger),
	)

	m := metrics.New()
	runner := jobs.NewRunner(st, client, logger, m)
	engine := jobs.NewEngine(jobs.EngineConfig{Workers: cfg.JobWorkers}, runner, logger)
	engine.Start(context.Background())
	defer engine.Stop()

	srv := server.New(cfg, st, client, engine, catalog, m, logger)

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.Start()
	}()

	select {
	case sig := <-sigCh:
		logger.Info().Str("signal", sig.String()).Msg("shutting down gracefully")
	case err := <-errCh:
		if err != nil {
			logger.Fatal().Err(err).Msg("api server error")
		}
		return
	}

	if err := srv.Shutdown(); err != nil {
		logger.Error().Err(err).Msg("api server shutdown error")
	}

	logger.Info().Msg("plugin forge stopped")
}
