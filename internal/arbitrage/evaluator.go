// Package arbitrage prices candidate currency cycles against live order
// books and runs the long-lived search loop over them.
package arbitrage

import (
	"context"
	"errors"
	"fmt"
	"math"

	"tradecycle/internal/domain"
	"tradecycle/internal/exchange"
)

// ErrNoOrders signals that a hop's order book side had no entries, so
// the cycle cannot be priced at this instant. Callers skip the cycle;
// it is not zero profit.
var ErrNoOrders = errors.New("order book side is empty")

// Evaluator prices cycles on one exchange by walking each hop against
// the current order book. No book data is cached between evaluations:
// arbitrage windows are transient, so every call re-fetches.
type Evaluator struct {
	exchange exchange.Exchange
}

// NewEvaluator creates an Evaluator for one exchange.
func NewEvaluator(ex exchange.Exchange) *Evaluator {
	return &Evaluator{exchange: ex}
}

// Evaluate computes the multiplicative return of executing the cycle as
// a sequence of market orders, starting from one unit of the cycle's
// origin currency. pairsByBase decides hop direction: when the hop's
// target is reachable as a "to" currency from its source, the market is
// quoted directly and the best ask is taken; otherwise the inverted
// market's best bid is taken.
func (e *Evaluator) Evaluate(ctx context.Context, pairsByBase map[string]map[string]bool, cycle []string) (float64, error) {
	flow := 1.0

	for i := 0; i < len(cycle)-1; i++ {
		base, to := cycle[i], cycle[i+1]
		side := domain.SideAsk
		if !pairsByBase[base][to] {
			// Quoted the other way round: sell base into the (to, base)
			// market instead of buying to with base.
			base, to = to, base
			side = domain.SideBid
		}

		orders, err := e.exchange.OrderBook(ctx, base, to, side)
		if err != nil {
			return 0, fmt.Errorf("order book %s/%s: %w", base, to, err)
		}
		if len(orders) == 0 {
			return 0, ErrNoOrders
		}

		price := bestPrice(orders, side)
		if math.IsInf(price, 0) {
			// Entries came back, but none on the requested side.
			return 0, ErrNoOrders
		}
		if side == domain.SideAsk {
			flow /= price
		} else {
			flow *= price
		}
	}

	return flow, nil
}

// bestPrice returns the minimum ask or maximum bid across the entries
// of the requested side.
func bestPrice(orders []domain.OrderBookEntry, side domain.Side) float64 {
	best := math.Inf(1)
	if side == domain.SideBid {
		best = math.Inf(-1)
	}
	for _, o := range orders {
		if o.Side != side {
			continue
		}
		if side == domain.SideAsk {
			best = math.Min(best, o.Price)
		} else {
			best = math.Max(best, o.Price)
		}
	}
	return best
}
