package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/concertradar-data/internal/common/config"
	"github.com/concertradar-data/internal/common/db"
	"github.com/concertradar-data/internal/common/discord"
	"github.com/concertradar-data/internal/common/logger"
	"github.com/concertradar-data/internal/scraper"
	"github.com/concertradar-data/internal/scraper/adapters"
	"github.com/concertradar-data/internal/server"
	"github.com/concertradar-data/pkg/concert"
)

func main() {
	root := &cobra.Command{
		Use:   "concertradar",
		Short: "Concert listing ingestion service",
	}
	root.AddCommand(serveCmd(), scrapeCmd())

	if err := root.Execute(); err != nil {
		os.Exit(1)
	}
}

// app bundles everything the commands need after bootstrap.
type app struct {
	cfg          *config.Config
	log          logger.Logger
	database     *db.DB
	store        *db.ConcertStore
	orchestrator *scraper.Orchestrator
}

func bootstrap() (*app, error) {
	// Load .env file if it exists, env vars win either way.
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("loading configuration: %w", err)
	}
	if err := cfg.Database.Validate(); err != nil {
		return nil, fmt.Errorf("invalid database configuration: %w", err)
	}
	if err := cfg.Scraper.Validate(); err != nil {
		return nil, fmt.Errorf("invalid scraper configuration: %w", err)
	}

	log := logger.New(
		logger.ParseLevel(cfg.Logging.Level),
		logger.ConsoleWriter(),
		logger.FileWriter(cfg.Logging.FilePath),
	)

	database, err := db.New(cfg.Database.ConnectionString(), log)
	if err != nil {
		return nil, fmt.Errorf("connecting to database: %w", err)
	}

	store := db.NewConcertStore(database)
	fetcher := scraper.NewHTTPFetcher(cfg.Scraper.FetchTimeout, cfg.Scraper.UserAgent, log)
	registry := adapters.DefaultRegistry(fetcher, log)
	progress := scraper.NewProgressTracker()
	pipeline := scraper.NewPipeline(store, progress, log, cfg.Scraper.DetailWorkers)
	orchestrator := scraper.NewOrchestrator(scraper.Config{
		MaxConcerts:  cfg.Scraper.MaxConcerts,
		VenueWorkers: cfg.Scraper.VenueWorkers,
	}, store, store, registry, pipeline, progress, log)

	if cfg.Logging.WebhookURL != "" {
		orchestrator.SetNotifier(discord.NewClient(cfg.Logging.WebhookURL))
	}

	return &app{
		cfg:          cfg,
		log:          log,
		database:     database,
		store:        store,
		orchestrator: orchestrator,
	}, nil
}

func serveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API server",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := bootstrap()
			if err != nil {
				return err
			}
			defer a.database.Close()

			a.log.Info("Concertradar data service starting",
				"addr", a.cfg.Server.Addr,
				"max_concerts", a.cfg.Scraper.MaxConcerts,
				"venue_workers", a.cfg.Scraper.VenueWorkers)

			srv := server.New(a.cfg.Server.Addr, a.orchestrator, a.store, a.log)

			errCh := make(chan error, 1)
			go func() {
				errCh <- srv.ListenAndServe()
			}()

			sigChan := make(chan os.Signal, 1)
			signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

			select {
			case err := <-errCh:
				return err
			case <-sigChan:
				a.log.Info("Shutdown signal received")
				ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
				defer cancel()
				if err := srv.Shutdown(ctx); err != nil {
					a.log.Error("Server shutdown error", "error", err)
				}
				a.log.Info("Concertradar data service stopped")
				return nil
			}
		},
	}
}

func scrapeCmd() *cobra.Command {
	var all bool

	cmd := &cobra.Command{
		Use:   "scrape [venue-id]",
		Short: "Run a one-shot scrape for one venue or all venues",
		RunE: func(cmd *cobra.Command, args []string) error {
			if !all && len(args) != 1 {
				return fmt.Errorf("pass a venue id or --all")
			}

			a, err := bootstrap()
			if err != nil {
				return err
			}
			defer a.database.Close()

			ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
			defer cancel()

			if all {
				result, err := a.orchestrator.ScrapeAll(ctx)
				if err != nil {
					return err
				}
				printAggregate(result)
				return nil
			}

			venueID, err := strconv.ParseInt(args[0], 10, 64)
			if err != nil {
				return fmt.Errorf("invalid venue id %q", args[0])
			}
			result, err := a.orchestrator.ScrapeVenue(ctx, venueID)
			if err != nil {
				return err
			}
			fmt.Printf("[%s] %s\n", result.Status, result.Message)
			return nil
		},
	}
	cmd.Flags().BoolVar(&all, "all", false, "scrape every configured venue")
	return cmd
}

func printAggregate(result *concert.AggregateResult) {
	fmt.Printf("[%s] %s\n", result.Status, result.Message)
	for _, run := range result.Runs {
		fmt.Printf("  venue %d (%s): %s saved=%d skipped=%d failed=%d\n",
			run.VenueID, run.VenueName, run.Status, run.Saved, run.Skipped, run.Failed)
	}
}
