package arbitrage

import (
	"context"
	"errors"
	"fmt"
	"math"
	"testing"

	"tradecycle/internal/domain"
)

// stubExchange serves canned order books keyed by "base/to/side".
type stubExchange struct {
	name  string
	pairs []domain.TradedPair
	books map[string][]domain.OrderBookEntry
	err   error
}

func (s *stubExchange) Name() string { return s.name }

func (s *stubExchange) TradedPairs(_ context.Context) ([]domain.TradedPair, error) {
	if s.err != nil {
		return nil, s.err
	}
	return s.pairs, nil
}

func (s *stubExchange) OrderBook(_ context.Context, base, to string, side domain.Side) ([]domain.OrderBookEntry, error) {
	if s.err != nil {
		return nil, s.err
	}
	return s.books[fmt.Sprintf("%s/%s/%s", base, to, side)], nil
}

func (s *stubExchange) RecentTrades(_ context.Context, _ string, _ float64) ([]domain.Trade, error) {
	return nil, s.err
}

func triangleBase() map[string]map[string]bool {
	return domain.PairsByBase([]domain.TradedPair{
		{Base: "BTC", To: "USD"},
		{Base: "ETH", To: "USD"},
		{Base: "ETH", To: "BTC"},
	})
}

func TestEvaluator_DirectHopsUseAsks(t *testing.T) {
	// BTC -> USD -> ... every hop quoted directly: flow divides by the
	// lowest ask at each hop.
	ex := &stubExchange{
		name: "test",
		books: map[string][]domain.OrderBookEntry{
			"BTC/USD/ask": {
				{Price: 4, Volume: 1, Side: domain.SideAsk},
				{Price: 2, Volume: 1, Side: domain.SideAsk},
			},
		},
	}

	flow, err := NewEvaluator(ex).Evaluate(context.Background(),
		map[string]map[string]bool{"BTC": {"USD": true}},
		[]string{"BTC", "USD"})
	if err != nil {
		t.Fatalf("Evaluate failed: %v", err)
	}
	if math.Abs(flow-0.5) > 1e-12 {
		t.Errorf("Expected flow 0.5 from best ask 2, got %f", flow)
	}
}

func TestEvaluator_InvertedHopsUseBids(t *testing.T) {
	// USD -> BTC is not a quoted market; the BTC/USD book's best bid
	// prices the hop and flow multiplies.
	ex := &stubExchange{
		name: "test",
		books: map[string][]domain.OrderBookEntry{
			"BTC/USD/bid": {
				{Price: 3, Volume: 1, Side: domain.SideBid},
				{Price: 5, Volume: 1, Side: domain.SideBid},
			},
		},
	}

	flow, err := NewEvaluator(ex).Evaluate(context.Background(),
		map[string]map[string]bool{"BTC": {"USD": true}},
		[]string{"USD", "BTC"})
	if err != nil {
		t.Fatalf("Evaluate failed: %v", err)
	}
	if math.Abs(flow-5) > 1e-12 {
		t.Errorf("Expected flow 5 from best bid, got %f", flow)
	}
}

func TestEvaluator_FullCycle(t *testing.T) {
	// BTC -> ETH inverts to the ETH/BTC bids, ETH -> USD is quoted
	// directly so its asks apply, and USD -> BTC inverts to the BTC/USD
	// bids.
	ex := &stubExchange{
		name: "test",
		books: map[string][]domain.OrderBookEntry{
			"ETH/BTC/bid": {{Price: 0.1, Volume: 1, Side: domain.SideBid}},
			"ETH/USD/ask": {{Price: 200, Volume: 1, Side: domain.SideAsk}},
			"BTC/USD/bid": {{Price: 1900, Volume: 1, Side: domain.SideBid}},
		},
	}

	flow, err := NewEvaluator(ex).Evaluate(context.Background(), triangleBase(),
		[]string{"BTC", "ETH", "USD", "BTC"})
	if err != nil {
		t.Fatalf("Evaluate failed: %v", err)
	}

	// flow = 1 * 0.1 / 200 * 1900
	want := 0.1 / 200 * 1900
	if math.Abs(flow-want) > 1e-12 {
		t.Errorf("Expected flow %f, got %f", want, flow)
	}
}

func TestEvaluator_EmptyBook(t *testing.T) {
	ex := &stubExchange{
		name:  "test",
		books: map[string][]domain.OrderBookEntry{},
	}

	_, err := NewEvaluator(ex).Evaluate(context.Background(), triangleBase(),
		[]string{"BTC", "ETH", "USD", "BTC"})
	if !errors.Is(err, ErrNoOrders) {
		t.Errorf("Expected ErrNoOrders for empty book, got %v", err)
	}
}

func TestEvaluator_WrongSideOnlyBook(t *testing.T) {
	// Entries exist but none on the requested side.
	ex := &stubExchange{
		name: "test",
		books: map[string][]domain.OrderBookEntry{
			"BTC/USD/ask": {{Price: 100, Volume: 1, Side: domain.SideBid}},
		},
	}

	_, err := NewEvaluator(ex).Evaluate(context.Background(),
		map[string]map[string]bool{"BTC": {"USD": true}},
		[]string{"BTC", "USD"})
	if !errors.Is(err, ErrNoOrders) {
		t.Errorf("Expected ErrNoOrders for one-sided book, got %v", err)
	}
}

func TestEvaluator_FetchError(t *testing.T) {
	ex := &stubExchange{name: "test", err: errors.New("boom")}

	_, err := NewEvaluator(ex).Evaluate(context.Background(), triangleBase(),
		[]string{"BTC", "ETH", "USD", "BTC"})
	if err == nil {
		t.Fatal("Expected error to propagate")
	}
	if errors.Is(err, ErrNoOrders) {
		t.Errorf("Fetch failure should not be ErrNoOrders: %v", err)
	}
}
