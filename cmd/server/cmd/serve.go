package cmd

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/lannaguide/server/internal/api"
	"github.com/lannaguide/server/internal/config"
	"github.com/lannaguide/server/internal/enrich"
	"github.com/lannaguide/server/internal/jobs"
	"github.com/lannaguide/server/internal/scraper"
	"github.com/lannaguide/server/internal/storage/postgres"
)

var (
	serverHost string
	serverPort int
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the Lanna Guide HTTP server",
	Long: `Start the HTTP server, the scrape scheduler, and the background job
workers.

The server will:
- Load configuration from environment variables (a .env file is honored)
- Connect to PostgreSQL and start River job workers
- Run the scrape scheduler at midnight and noon Bangkok time
- Handle graceful shutdown on SIGINT/SIGTERM

Examples:
  # Start with default configuration (from env vars)
  server serve

  # Start on a specific host and port
  server serve --host 127.0.0.1 --port 9090

  # Start with debug logging
  server serve --log-level debug`,
	RunE: func(cmd *cobra.Command, args []string) error {
		return runServer()
	},
}

func init() {
	serveCmd.Flags().StringVar(&serverHost, "host", "", "server host address (default: 0.0.0.0)")
	serveCmd.Flags().IntVar(&serverPort, "port", 0, "server port (default: 8080)")
}

func runServer() error {
	cfg, err := loadConfig()
	if err != nil {
		return fmt.Errorf("config error: %w", err)
	}
	if serverHost != "" {
		cfg.Server.Host = serverHost
	}
	if serverPort != 0 {
		cfg.Server.Port = serverPort
	}

	logger := config.NewLogger(cfg.Logging)
	logger.Info().Str("version", Version).Msg("starting lanna guide server")

	poolCtx, poolCancel := context.WithTimeout(context.Background(), 10*time.Second)
	pool, err := postgres.NewPool(poolCtx, cfg.Database.URL, cfg.Database.MaxConnections)
	poolCancel()
	if err != nil {
		return fmt.Errorf("database connection failed: %w", err)
	}
	defer pool.Close()

	sourceCfg, err := loadSourceConfig(cfg)
	if err != nil {
		return err
	}

	eventsRepo := postgres.NewEventRepository(pool, logger)
	runsRepo := postgres.NewRunRepository(pool)

	fetcher := scraper.NewFetcher(sourceCfg, logger)
	extractor := scraper.NewExtractor(sourceCfg, logger)
	orchestrator := scraper.NewOrchestrator(sourceCfg, fetcher, extractor, eventsRepo, runsRepo, logger)

	var summarizer enrich.Summarizer
	if s := enrich.NewHTTPSummarizer(cfg.Summarizer.Endpoint, cfg.Summarizer.APIKey); s != nil {
		summarizer = s
	}
	enricher := enrich.NewEnricher(fetcher, summarizer, logger)

	workers := jobs.NewWorkers(eventsRepo, enricher)
	riverClient, err := jobs.NewClient(pool, workers, config.NewJobLogger(cfg.Logging), jobs.NewPeriodicJobs())
	if err != nil {
		return fmt.Errorf("river client init failed: %w", err)
	}

	riverCtx, riverCancel := context.WithCancel(context.Background())
	defer riverCancel()
	if err := riverClient.Start(riverCtx); err != nil {
		return fmt.Errorf("river workers failed to start: %w", err)
	}
	logger.Info().Msg("river background job workers started")
	defer func() {
		stopCtx, stopCancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer stopCancel()
		if err := riverClient.Stop(stopCtx); err != nil {
			logger.Error().Err(err).Msg("river workers shutdown error")
		}
	}()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if cfg.Scraper.Scheduler {
		go orchestrator.RunScheduler(ctx)
		logger.Info().Msg("scrape scheduler started")
	} else {
		logger.Warn().Msg("scrape scheduler disabled")
	}

	server := &http.Server{
		Addr: fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port),
		Handler: api.NewRouter(api.Deps{
			Pool:         pool,
			Events:       eventsRepo,
			Orchestrator: orchestrator,
			Logger:       logger,
		}),
		ReadTimeout:       10 * time.Second,
		WriteTimeout:      30 * time.Second,
		ReadHeaderTimeout: 5 * time.Second,
		MaxHeaderBytes:    1 << 20,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info().Str("addr", server.Addr).Msg("http server listening")
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		return fmt.Errorf("http server error: %w", err)
	case <-ctx.Done():
	}

	logger.Info().Msg("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("http shutdown: %w", err)
	}
	return nil
}

func loadConfig() (config.Config, error) {
	cfg, err := config.Load()
	if err != nil {
		return config.Config{}, err
	}
	if logLevel != "" {
		cfg.Logging.Level = logLevel
	}
	if logFormat != "" {
		cfg.Logging.Format = logFormat
	}
	return cfg, nil
}

func loadSourceConfig(cfg config.Config) (scraper.SourceConfig, error) {
	sourceCfg := scraper.DefaultSourceConfig()
	if cfg.Scraper.SourcePath != "" {
		loaded, err := scraper.LoadSourceConfig(cfg.Scraper.SourcePath)
		if err != nil {
			return scraper.SourceConfig{}, fmt.Errorf("load source config: %w", err)
		}
		sourceCfg = loaded
	}
	if cfg.Scraper.BaseURL != "" {
		sourceCfg.BaseURL = cfg.Scraper.BaseURL
	}
	if err := scraper.ValidateConfig(sourceCfg); err != nil {
		return scraper.SourceConfig{}, err
	}
	return sourceCfg, nil
}
