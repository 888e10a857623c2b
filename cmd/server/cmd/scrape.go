package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/lannaguide/server/internal/config"
	"github.com/lannaguide/server/internal/scraper"
	"github.com/lannaguide/server/internal/storage/postgres"
)

var scrapeStatusLimit int

var scrapeCmd = &cobra.Command{
	Use:   "scrape",
	Short: "Scrape the source site",
	Long: `Scrape control without the HTTP server.

Examples:
  server scrape run
  server scrape status
  server scrape status --limit 5`,
	// Bare "server scrape" runs one pass.
	RunE: func(cmd *cobra.Command, args []string) error {
		return runScrapeOnce()
	},
}

var scrapeRunCmd = &cobra.Command{
	Use:   "run",
	Short: "Run one scrape pass and exit",
	Long: `Run a single scrape pass against the configured source site, store the
results, and exit. Useful for cron-driven deployments and for testing a
source configuration.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		return runScrapeOnce()
	},
}

var scrapeStatusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show recent scrape passes",
	RunE: func(cmd *cobra.Command, args []string) error {
		return printScrapeStatus(cmd.Context())
	},
}

func init() {
	scrapeStatusCmd.Flags().IntVar(&scrapeStatusLimit, "limit", 10, "number of runs to show")
	scrapeCmd.AddCommand(scrapeRunCmd)
	scrapeCmd.AddCommand(scrapeStatusCmd)
}

func runScrapeOnce() error {
	cfg, err := loadConfig()
	if err != nil {
		return fmt.Errorf("config error: %w", err)
	}

	logger := config.NewLogger(cfg.Logging)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	poolCtx, poolCancel := context.WithTimeout(ctx, 10*time.Second)
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

	if _, err := orchestrator.Trigger(ctx, "cli"); err != nil {
		return fmt.Errorf("start scrape: %w", err)
	}

	// Trigger runs the pass in the background; poll until it finishes.
	ticker := time.NewTicker(time.Second)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			status := orchestrator.Status(ctx)
			if !status.Running {
				fmt.Printf("scraped %d listings (total stored: %d)\n", status.LastScraped, status.TotalStored)
				return nil
			}
		}
	}
}

func printScrapeStatus(ctx context.Context) error {
	cfg, err := loadConfig()
	if err != nil {
		return fmt.Errorf("config error: %w", err)
	}

	poolCtx, poolCancel := context.WithTimeout(ctx, 10*time.Second)
	pool, err := postgres.NewPool(poolCtx, cfg.Database.URL, cfg.Database.MaxConnections)
	poolCancel()
	if err != nil {
		return fmt.Errorf("database connection failed: %w", err)
	}
	defer pool.Close()

	runs, err := postgres.NewRunRepository(pool).Recent(ctx, scrapeStatusLimit)
	if err != nil {
		return err
	}
	if len(runs) == 0 {
		fmt.Println("no scrape runs recorded")
		return nil
	}

	for _, run := range runs {
		state := "running"
		switch {
		case run.ErrorMessage != "":
			state = "failed: " + run.ErrorMessage
		case run.FinishedAt != nil:
			state = fmt.Sprintf("completed in %s", run.FinishedAt.Sub(run.StartedAt).Round(time.Second))
		}
		fmt.Printf("%s  %-8s  found=%-4d stored=%-4d  %s\n",
			run.StartedAt.Format(time.RFC3339), run.Trigger,
			run.RecordsFound, run.RecordsStored, state)
	}
	return nil
}
