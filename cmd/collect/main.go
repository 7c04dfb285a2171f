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
	"sync"
	"syscall"
	"time"

	"tradecycle/internal/collector"
	"tradecycle/internal/config"
	"tradecycle/internal/exchange"
	"tradecycle/internal/observability"
	"tradecycle/internal/storage"
	"tradecycle/internal/storage/memory"
	"tradecycle/internal/storage/migrations"
	pgstore "tradecycle/internal/storage/postgres"
)

func main() {
	// Parse flags
	configPath := flag.String("config", "config.yaml", "Path to YAML configuration file")
	exchanges := flag.String("exchanges", "", "Comma-separated exchange names to collect from (default: all configured)")
	useMemory := flag.Bool("use-memory", false, "Use in-memory storage instead of PostgreSQL")
	useFeed := flag.Bool("use-feed", true, "Consume the websocket trade feed where an exchange has one configured")
	flag.Parse()

	// Setup logger
	logger := log.New(os.Stdout, "[collect] ", log.LstdFlags|log.Lshortfile)

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

	selected, err := selectExchanges(cfg, *exchanges)
	if err != nil {
		logger.Fatalf("Error: %v", err)
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

	err = run(ctx, logger, cfg, selected, *useMemory, *useFeed)

	done <- err
	cancel()

	if err != nil && err != context.Canceled {
		logger.Fatalf("Error: %v", err)
	}

	logger.Println("Shutdown complete")
}

// selectExchanges resolves the exchange configurations to collect from.
func selectExchanges(cfg *config.Config, names string) ([]config.ExchangeConfig, error) {
	if names == "" {
		return cfg.Exchanges, nil
	}

	var selected []config.ExchangeConfig
	for _, name := range strings.Split(names, ",") {
		name = strings.TrimSpace(name)
		if name == "" {
			continue
		}
		ex, ok := cfg.Exchange(name)
		if !ok {
			return nil, fmt.Errorf("exchange %q is not configured", name)
		}
		selected = append(selected, ex)
	}
	if len(selected) == 0 {
		return nil, fmt.Errorf("no exchanges selected")
	}
	return selected, nil
}

// run collects trades from every selected exchange until cancelled.
func run(ctx context.Context, logger *log.Logger, cfg *config.Config, selected []config.ExchangeConfig, useMemory, useFeed bool) error {
	if !useMemory && cfg.Storage.PostgresDSN == "" {
		return fmt.Errorf("storage.postgres_dsn is required (use --use-memory for in-memory storage)")
	}

	var store storage.TradeStore = memory.NewTradeStore()
	if !useMemory {
		pool, err := pgstore.NewPool(ctx, cfg.Storage.PostgresDSN)
		if err != nil {
			return fmt.Errorf("connect to postgres: %w", err)
		}
		defer pool.Close()

		if err := migrations.RunPostgresMigrations(ctx, pool); err != nil {
			return fmt.Errorf("run migrations: %w", err)
		}

		store = pgstore.NewTradeStore(pool)
	}

	var wg sync.WaitGroup
	errCh := make(chan error, len(selected))

	for _, exCfg := range selected {
		wg.Add(1)
		go func(exCfg config.ExchangeConfig) {
			defer wg.Done()

			ex := exchange.NewRESTExchange(exCfg.Name, exCfg.BaseURL)

			var feed *exchange.TradeFeed
			if useFeed && exCfg.FeedURL != "" {
				var err error
				feed, err = exchange.NewTradeFeed(ctx, exCfg.FeedURL, exCfg.Pairs, nil, logger)
				if err != nil {
					logger.Printf("Trade feed for %s unavailable, polling only: %v", exCfg.Name, err)
				} else {
					defer feed.Close()
				}
			}

			runner := collector.NewRunner(collector.RunnerOptions{
				Exchange:      ex,
				Store:         store,
				Pairs:         exCfg.Pairs,
				PollInterval:  cfg.Collect.PollInterval,
				FlushInterval: cfg.Collect.FlushInterval,
				Feed:          feed,
				Logger:        logger,
			})

			if err := runner.Run(ctx); err != nil && err != context.Canceled {
				errCh <- fmt.Errorf("collect from %s: %w", exCfg.Name, err)
			}
		}(exCfg)
	}

	wg.Wait()
	close(errCh)

	for err := range errCh {
		return err
	}
	return ctx.Err()
}
