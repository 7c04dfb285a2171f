package archive

import (
	"context"
	"io"
	"log"
	"testing"

	"tradecycle/internal/domain"
	"tradecycle/internal/series"
	"tradecycle/internal/storage/memory"
)

func TestRunner_ArchiveWritesBuckets(t *testing.T) {
	trades := memory.NewTradeStore()
	buckets := memory.NewPriceBucketStore()
	ctx := context.Background()

	if _, err := trades.Insert(ctx, "BTCUSD", []domain.Trade{
		{Price: 8, Amount: 1, Time: 100},
		{Price: 12, Amount: 1, Time: 200},
		{Price: 13, Amount: 1, Time: 700},
	}); err != nil {
		t.Fatalf("Insert failed: %v", err)
	}

	runner := NewRunner(RunnerOptions{
		Aggregator: series.NewAggregator(trades, 600),
		Buckets:    buckets,
		Logger:     log.New(io.Discard, "", 0),
	})

	if err := runner.Archive(ctx); err != nil {
		t.Fatalf("Archive failed: %v", err)
	}

	got, err := buckets.GetByPair(ctx, "BTCUSD")
	if err != nil {
		t.Fatalf("GetByPair failed: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("Expected 2 archived buckets, got %d", len(got))
	}
	if got[0].TimeClass != 0 || got[1].TimeClass != 1 {
		t.Errorf("Unexpected time classes: %d, %d", got[0].TimeClass, got[1].TimeClass)
	}
	if got[0].Price != 10 {
		t.Errorf("Expected volume-weighted price 10, got %f", got[0].Price)
	}
}

func TestRunner_ArchiveEmptyStore(t *testing.T) {
	runner := NewRunner(RunnerOptions{
		Aggregator: series.NewAggregator(memory.NewTradeStore(), 600),
		Buckets:    memory.NewPriceBucketStore(),
		Logger:     log.New(io.Discard, "", 0),
	})

	if err := runner.Archive(context.Background()); err != nil {
		t.Errorf("Archiving an empty store should succeed: %v", err)
	}
}

func TestRunner_ArchiveSelectedPairs(t *testing.T) {
	trades := memory.NewTradeStore()
	buckets := memory.NewPriceBucketStore()
	ctx := context.Background()

	trades.Insert(ctx, "BTCUSD", []domain.Trade{{Price: 100, Amount: 1, Time: 100}})
	trades.Insert(ctx, "ETHBTC", []domain.Trade{{Price: 0.05, Amount: 1, Time: 100}})

	runner := NewRunner(RunnerOptions{
		Aggregator: series.NewAggregator(trades, 600),
		Buckets:    buckets,
		Pairs:      []string{"BTCUSD"},
		Logger:     log.New(io.Discard, "", 0),
	})

	if err := runner.Archive(ctx); err != nil {
		t.Fatalf("Archive failed: %v", err)
	}

	other, _ := buckets.GetByPair(ctx, "ETHBTC")
	if len(other) != 0 {
		t.Errorf("Expected only the selected pair to be archived, got %d rows for ETHBTC", len(other))
	}
}
