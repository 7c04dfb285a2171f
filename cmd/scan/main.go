package main

import (
	"context"
	"errors"
	"flag"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"tradecycle/internal/arbitrage"
	"tradecycle/internal/config"
	"tradecycle/internal/exchange"
	"tradecycle/internal/observability"
)

func main() {
	// Parse flags
	configPath := flag.String("config", "config.yaml", "Path to YAML configuration file")
	once := flag.Bool("once", false, "Enumerate cycles, print them, and exit without evaluating")
	seed := flag.Int64("seed", 0, "Random seed for cycle selection (0 seeds from the clock)")
	flag.Parse()

	// Setup logger
	logger := log.New(os.Stdout, "[scan] ", log.LstdFlags|log.Lshortfile)

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

	exchanges := make([]exchange.Exchange, 0, len(cfg.Exchanges))
	for _, exCfg := range cfg.Exchanges {
		exchanges = append(exchanges, exchange.NewRESTExchange(exCfg.Name, exCfg.BaseURL))
	}

	scanner := arbitrage.NewScanner(arbitrage.ScannerOptions{
		Exchanges:      exchanges,
		MaxCycleLength: cfg.Scan.MaxCycleLength,
		MinProfit:      cfg.Scan.MinProfit,
		Forbidden:      cfg.Scan.Forbidden,
		Required:       cfg.Scan.Required,
		Logger:         logger,
		Seed:           *seed,
	})

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

	if *once {
		err = runOnce(ctx, logger, scanner)
	} else {
		err = runScan(ctx, logger, scanner)
	}

	done <- err
	cancel()

	if err != nil && err != context.Canceled {
		logger.Fatalf("Error: %v", err)
	}

	logger.Println("Shutdown complete")
}

// runOnce prints every enumerated cycle without evaluating order books.
func runOnce(ctx context.Context, logger *log.Logger, scanner *arbitrage.Scanner) error {
	cyclesByExchange := scanner.FindCycles(ctx)

	total := 0
	for name, cycles := range cyclesByExchange {
		logger.Printf("%s: %d cycles", name, len(cycles))
		for _, cycle := range cycles {
			logger.Printf("  %v", cycle)
		}
		total += len(cycles)
	}
	if total == 0 {
		return arbitrage.ErrNoCycles
	}
	return nil
}

// runScan evaluates cycles continuously and reports findings.
func runScan(ctx context.Context, logger *log.Logger, scanner *arbitrage.Scanner) error {
	go func() {
		for finding := range scanner.Findings() {
			logger.Printf("Opportunity on %s: %v (flow %.4f)", finding.Exchange, finding.Cycle, finding.Flow)
		}
	}()

	err := scanner.Run(ctx)
	if errors.Is(err, arbitrage.ErrNoCycles) {
		logger.Println("No arbitrage cycles found on any exchange")
	}
	return err
}
