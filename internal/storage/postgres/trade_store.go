package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"tradecycle/internal/domain"
	"tradecycle/internal/observability"
	"tradecycle/internal/storage"
)

// TradeStore implements storage.TradeStore using PostgreSQL.
// The trades table carries a composite primary key on
// (pair, price, amount, time), so exact re-observations of a trade are
// rejected by the engine and skipped here.
type TradeStore struct {
	pool *Pool
}

// NewTradeStore creates a new TradeStore.
func NewTradeStore(pool *Pool) *TradeStore {
	return &TradeStore{pool: pool}
}

// Compile-time interface check.
var _ storage.TradeStore = (*TradeStore)(nil)

const insertTradeQuery = `
	INSERT INTO trades (pair, price, amount, time)
	VALUES ($1, $2, $3, $4)
`

// Insert stores trades for a pair. The input is sorted by time and rows
// sharing (price, time) are merged by summing amount before storage.
// A bulk insert is attempted first; on a uniqueness violation the whole
// transaction is rolled back and rows are retried one at a time,
// skipping keys that already exist. Returns the number of skipped
// duplicates. Only storage failures surface as errors.
func (s *TradeStore) Insert(ctx context.Context, pair string, trades []domain.Trade) (duplicates int, err error) {
	merged := domain.MergeTrades(trades)
	if len(merged) == 0 {
		return 0, nil
	}

	start := time.Now()
	defer func() {
		observability.RecordDBQuery("postgres", "insert_trades", time.Since(start).Seconds(), err)
	}()

	err = s.insertBulk(ctx, pair, merged)
	if err == nil {
		return 0, nil
	}
	if !isDuplicateKeyError(err) {
		return 0, err
	}
	err = nil

	// At least one row already exists. Retry row-by-row so the
	// non-duplicate remainder still lands.
	for _, t := range merged {
		if _, rowErr := s.pool.Exec(ctx, insertTradeQuery, pair, t.Price, t.Amount, t.Time); rowErr != nil {
			if isDuplicateKeyError(rowErr) {
				duplicates++
				continue
			}
			return duplicates, fmt.Errorf("insert trade: %w", rowErr)
		}
	}

	return duplicates, nil
}

// insertBulk inserts all rows in a single transaction. Fails the entire
// batch on any duplicate.
func (s *TradeStore) insertBulk(ctx context.Context, pair string, trades []domain.Trade) error {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback(ctx)

	for _, t := range trades {
		if _, err := tx.Exec(ctx, insertTradeQuery, pair, t.Price, t.Amount, t.Time); err != nil {
			if isDuplicateKeyError(err) {
				return err
			}
			return fmt.Errorf("insert trade in bulk: %w", err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit tx: %w", err)
	}

	return nil
}

// Trades retrieves all trades for a pair, ordered ascending by time.
func (s *TradeStore) Trades(ctx context.Context, pair string) ([]domain.Trade, error) {
	query := `
		SELECT price, amount, time
		FROM trades
		WHERE pair = $1
		ORDER BY time ASC
	`

	rows, err := s.pool.Query(ctx, query, pair)
	if err != nil {
		return nil, fmt.Errorf("query trades: %w", err)
	}
	defer rows.Close()

	return scanTrades(rows)
}

// TradesSince retrieves trades for a pair with time >= since, ordered
// ascending by time.
func (s *TradeStore) TradesSince(ctx context.Context, pair string, since float64) ([]domain.Trade, error) {
	query := `
		SELECT price, amount, time
		FROM trades
		WHERE pair = $1 AND time >= $2
		ORDER BY time ASC
	`

	rows, err := s.pool.Query(ctx, query, pair, since)
	if err != nil {
		return nil, fmt.Errorf("query trades since: %w", err)
	}
	defer rows.Close()

	return scanTrades(rows)
}

// DistinctPairs returns every pair with at least one stored trade.
func (s *TradeStore) DistinctPairs(ctx context.Context) ([]string, error) {
	rows, err := s.pool.Query(ctx, `SELECT DISTINCT pair FROM trades ORDER BY pair`)
	if err != nil {
		return nil, fmt.Errorf("query distinct pairs: %w", err)
	}
	defer rows.Close()

	var pairs []string
	for rows.Next() {
		var pair string
		if err := rows.Scan(&pair); err != nil {
			return nil, fmt.Errorf("scan pair row: %w", err)
		}
		pairs = append(pairs, pair)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate pair rows: %w", err)
	}

	return pairs, nil
}

// scanTrades scans rows into a slice of Trade.
func scanTrades(rows pgx.Rows) ([]domain.Trade, error) {
	var trades []domain.Trade
	for rows.Next() {
		var t domain.Trade
		if err := rows.Scan(&t.Price, &t.Amount, &t.Time); err != nil {
			return nil, fmt.Errorf("scan trade row: %w", err)
		}
		trades = append(trades, t)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate trade rows: %w", err)
	}
	return trades, nil
}
