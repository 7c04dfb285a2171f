package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"tradecycle/internal/archive"
	"tradecycle/internal/config"
	"tradecycle/internal/observability"
	"tradecycle/internal/series"
	chstore "tradecycle/internal/storage/clickhouse"
	"tradecycle/internal/storage/migrations"
	pgstore "tradecycle/internal/storage/postgres"
)

func main() {
	// Parse flags
	configPath := flag.String("config", "config.yaml", "Path to YAML configuration file")
	pairsFlag := flag.String("pairs", "", "Comma-separated pairs to archive (default: every pair with stored trades)")
	once := flag.Bool("once", false, "Run a single archive pass and exit")
	flag.Parse()

	// Setup logger
	logger := log.New(os.Stdout, "[archive] ", log.LstdFlags|log.Lshortfile)

	cfg, err := config.Load(*configPath)
	if err != nil {
		logger.Fatalf("Load config: %v", err)
	}

	// Start metrics server if enabled
	if cfg.MetricsAddr != "" {
		go func() {
			mux := http.NewServeMux()
			mux.Handle("/metrics", observability.Handler())
			mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(http.StatusOK)
				w.Write([]byte("ok"))
			})
			logger.Printf("Starting metrics server on %s", cfg.MetricsAddr)
			if err := http.ListenAndServe(cfg.MetricsAddr, mux); err != nil && err != http.ErrServerClosed {
				logger.Printf("Metrics server error: %v", err)
			}
		}()
	}

	var pairs []string
	for _, p := range strings.Split(*pairsFlag, ",") {
		if p = strings.TrimSpace(p); p != "" {
			pairs = append(pairs, p)
		}
	}

	// Create context with cancellation
	ctx, cancel := context.WithCancel(context.Background())

	// Handle shutdown signals with graceful timeout
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	done := make(chan error, 1)

	go func() {
		sig := <-sigCh
		logger.Printf("Received signal %v, initiating graceful shutdown...", sig)
		cancel()

		select {
		case sig := <-sigCh:
			logger.Printf("Received second signal %v, forcing immediate shutdown", sig)
			os.Exit(1)
		case <-time.After(30 * time.Second):
			logger.Println("Graceful shutdown timed out after 30s, forcing exit")
			os.Exit(1)
		case <-done:
			// Normal shutdown completed
		}
	}()

	err = run(ctx, logger, cfg, pairs, *once)

	done <- err
	cancel()

	if err != nil && err != context.Canceled {
		logger.Fatalf("Error: %v", err)
	}

	logger.Println("Shutdown complete")
}

// run wires the trade store, aggregator, and bucket archive together.
func run(ctx context.Context, logger *log.Logger, cfg *config.Config, pairs []string, once bool) error {
	if cfg.Storage.PostgresDSN == "" {
		return fmt.Errorf("storage.postgres_dsn is required")
	}
	if cfg.Storage.ClickhouseDSN == "" {
		return fmt.Errorf("storage.clickhouse_dsn is required")
	}

	pool, err := pgstore.NewPool(ctx, cfg.Storage.PostgresDSN)
	if err != nil {
		return fmt.Errorf("connect to postgres: %w", err)
	}
	defer pool.Close()

	conn, err := chstore.NewConn(ctx, cfg.Storage.ClickhouseDSN)
	if err != nil {
		return fmt.Errorf("connect to clickhouse: %w", err)
	}
	defer conn.Close()

	if err := migrations.RunClickhouseMigrations(ctx, conn); err != nil {
		return fmt.Errorf("run migrations: %w", err)
	}

	aggregator := series.NewAggregator(pgstore.NewTradeStore(pool), cfg.Archive.BucketWidth)

	runner := archive.NewRunner(archive.RunnerOptions{
		Aggregator: aggregator,
		Buckets:    chstore.NewPriceBucketStore(conn),
		Pairs:      pairs,
		Interval:   cfg.Archive.Interval,
		Logger:     logger,
	})

	if once {
		return runner.Archive(ctx)
	}
	return runner.Run(ctx)
}
