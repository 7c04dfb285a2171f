package arbitrage

import (
	"context"
	"errors"
	"log"
	"math/rand"
	"sync"
	"time"

	"tradecycle/internal/domain"
	"tradecycle/internal/exchange"
	"tradecycle/internal/graph"
	"tradecycle/internal/observability"
)

// Default search parameters.
const (
	DefaultMaxCycleLength = 4
	DefaultMinProfit      = 0.05
	errorBackoff          = 1 * time.Second
)

// ErrNoCycles is returned when no exchange yielded any candidate cycle.
var ErrNoCycles = errors.New("no cycles found on any exchange")

// Finding is a cycle whose realized order-book prices yield a net
// profit at evaluation time.
type Finding struct {
	Exchange string
	Cycle    []string
	Flow     float64
}

// Scanner enumerates candidate cycles per exchange and then evaluates
// random candidates indefinitely, emitting profitable ones. The loop
// runs until its context is cancelled; per-iteration failures are
// logged and skipped, never fatal.
type Scanner struct {
	exchanges      []exchange.Exchange
	evaluators     map[string]*Evaluator
	pairsCache     *exchange.PairsCache
	maxCycleLength int
	minProfit      float64
	forbidden      map[string]bool
	required       map[string]bool
	logger         *log.Logger
	rng            *rand.Rand

	findings chan Finding
}

// ScannerOptions contains configuration for creating a Scanner.
type ScannerOptions struct {
	Exchanges      []exchange.Exchange
	PairsCache     *exchange.PairsCache // optional; created with default TTL when nil
	MaxCycleLength int                  // default 4 nodes inclusive of the closing node
	MinProfit      float64              // default 0.05 (5%)
	Forbidden      []string             // cycles touching any of these are skipped
	Required       []string             // when set, cycles touching none of these are skipped
	Logger         *log.Logger
	Seed           int64 // optional; 0 seeds from the clock
}

// NewScanner creates a Scanner.
func NewScanner(opts ScannerOptions) *Scanner {
	maxLen := opts.MaxCycleLength
	if maxLen == 0 {
		maxLen = DefaultMaxCycleLength
	}

	minProfit := opts.MinProfit
	if minProfit == 0 {
		minProfit = DefaultMinProfit
	}

	cache := opts.PairsCache
	if cache == nil {
		cache = exchange.NewPairsCache(0)
	}

	logger := opts.Logger
	if logger == nil {
		logger = log.Default()
	}

	seed := opts.Seed
	if seed == 0 {
		seed = time.Now().UnixNano()
	}

	evaluators := make(map[string]*Evaluator, len(opts.Exchanges))
	for _, ex := range opts.Exchanges {
		evaluators[ex.Name()] = NewEvaluator(ex)
	}

	return &Scanner{
		exchanges:      opts.Exchanges,
		evaluators:     evaluators,
		pairsCache:     cache,
		maxCycleLength: maxLen,
		minProfit:      minProfit,
		forbidden:      toSet(opts.Forbidden),
		required:       toSet(opts.Required),
		logger:         logger,
		rng:            rand.New(rand.NewSource(seed)),
		findings:       make(chan Finding, 16),
	}
}

// Findings returns the channel of profitable cycles. It is closed when
// Run returns.
func (s *Scanner) Findings() <-chan Finding {
	return s.findings
}

// FindCycles enumerates candidate cycles for every exchange. Each
// exchange is processed in its own worker; a failure on one exchange is
// logged and leaves the others' results intact.
func (s *Scanner) FindCycles(ctx context.Context) map[string][][]string {
	type enumeration struct {
		name   string
		cycles [][]string
		err    error
	}

	results := make([]enumeration, len(s.exchanges))
	var wg sync.WaitGroup
	for i, ex := range s.exchanges {
		wg.Add(1)
		go func(i int, ex exchange.Exchange) {
			defer wg.Done()
			pairs, err := s.pairsCache.Get(ctx, ex)
			if err != nil {
				results[i] = enumeration{name: ex.Name(), err: err}
				return
			}
			cycles := graph.FindCyclesForPairs(pairs, s.maxCycleLength)
			results[i] = enumeration{name: ex.Name(), cycles: cycles}
		}(i, ex)
	}
	wg.Wait()

	found := make(map[string][][]string)
	for _, r := range results {
		if r.err != nil {
			s.logger.Printf("error finding cycles on %s: %v", r.name, r.err)
			continue
		}
		s.logger.Printf("found %d cycles on %s", len(r.cycles), r.name)
		found[r.name] = r.cycles
	}

	return found
}

// Run enumerates cycles and then evaluates random candidates until the
// context is cancelled. Profitable cycles are emitted on Findings.
func (s *Scanner) Run(ctx context.Context) error {
	defer close(s.findings)

	cyclesByExchange := s.FindCycles(ctx)

	var names []string
	for name, cycles := range cyclesByExchange {
		if len(cycles) > 0 {
			names = append(names, name)
		}
	}
	if len(names) == 0 {
		return ErrNoCycles
	}

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		name := names[s.rng.Intn(len(names))]
		cycles := cyclesByExchange[name]
		cycle := cycles[s.rng.Intn(len(cycles))]

		if s.skipCycle(cycle) {
			continue
		}

		if err := s.evaluate(ctx, name, cycle); err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			s.logger.Printf("error evaluating cycle on %s: %v", name, err)
			observability.RecordEvaluationError(name)
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(errorBackoff):
			}
		}
	}
}

// evaluate prices one cycle and emits a finding when it clears the
// profit threshold.
func (s *Scanner) evaluate(ctx context.Context, name string, cycle []string) error {
	ex := s.exchangeByName(name)
	pairs, err := s.pairsCache.Get(ctx, ex)
	if err != nil {
		return err
	}

	start := time.Now()
	flow, err := s.evaluators[name].Evaluate(ctx, domain.PairsByBase(pairs), cycle)
	observability.RecordCycleEvaluated(name, time.Since(start).Seconds())
	if err != nil {
		if errors.Is(err, ErrNoOrders) {
			// Thin book at some hop; nothing to act on right now.
			return nil
		}
		return err
	}

	if flow >= 1+s.minProfit {
		s.logger.Printf("FOUND cycle on %s: %v: %f", name, cycle, flow)
		observability.RecordCycleFound(name)
		select {
		case s.findings <- Finding{Exchange: name, Cycle: cycle, Flow: flow}:
		case <-ctx.Done():
			return ctx.Err()
		}
	}

	return nil
}

// skipCycle applies the forbidden/required currency filters.
func (s *Scanner) skipCycle(cycle []string) bool {
	if len(s.forbidden) > 0 && touchesAny(cycle, s.forbidden) {
		return true
	}
	if len(s.required) > 0 && !touchesAny(cycle, s.required) {
		return true
	}
	return false
}

func (s *Scanner) exchangeByName(name string) exchange.Exchange {
	for _, ex := range s.exchanges {
		if ex.Name() == name {
			return ex
		}
	}
	return nil
}

func touchesAny(cycle []string, set map[string]bool) bool {
	for _, c := range cycle {
		if set[c] {
			return true
		}
	}
	return false
}

func toSet(values []string) map[string]bool {
	if len(values) == 0 {
		return nil
	}
	set := make(map[string]bool, len(values))
	for _, v := range values {
		set[v] = true
	}
	return set
}
