package exchange

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"golang.org/x/time/rate"

	"tradecycle/internal/domain"
)

// Default configuration values.
const (
	DefaultTimeout     = 30 * time.Second
	DefaultMaxRetries  = 3
	DefaultRetryDelay  = 1 * time.Second
	DefaultMaxDelay    = 10 * time.Second
	DefaultBackoffMult = 2.0
	DefaultRateLimit   = 5 // requests per second
)

// RESTExchange implements Exchange over a JSON REST API.
type RESTExchange struct {
	name        string
	baseURL     string
	client      *http.Client
	limiter     *rate.Limiter
	maxRetries  int
	retryDelay  time.Duration
	maxDelay    time.Duration
	backoffMult float64
}

// ClientOption configures RESTExchange.
type ClientOption func(*RESTExchange)

// WithTimeout sets HTTP client timeout.
func WithTimeout(d time.Duration) ClientOption {
	return func(c *RESTExchange) {
		c.client.Timeout = d
	}
}

// WithMaxRetries sets maximum retry attempts.
func WithMaxRetries(n int) ClientOption {
	return func(c *RESTExchange) {
		c.maxRetries = n
	}
}

// WithRetryDelay sets initial retry delay.
func WithRetryDelay(d time.Duration) ClientOption {
	return func(c *RESTExchange) {
		c.retryDelay = d
	}
}

// WithRateLimit sets the request rate limit in requests per second.
func WithRateLimit(rps float64) ClientOption {
	return func(c *RESTExchange) {
		c.limiter = rate.NewLimiter(rate.Limit(rps), 1)
	}
}

// WithHTTPClient sets a custom http.Client.
func WithHTTPClient(client *http.Client) ClientOption {
	return func(c *RESTExchange) {
		c.client = client
	}
}

// NewRESTExchange creates an exchange client for a venue's REST API.
func NewRESTExchange(name, baseURL string, opts ...ClientOption) *RESTExchange {
	c := &RESTExchange{
		name:        name,
		baseURL:     baseURL,
		client:      &http.Client{Timeout: DefaultTimeout},
		limiter:     rate.NewLimiter(rate.Limit(DefaultRateLimit), 1),
		maxRetries:  DefaultMaxRetries,
		retryDelay:  DefaultRetryDelay,
		maxDelay:    DefaultMaxDelay,
		backoffMult: DefaultBackoffMult,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Compile-time interface check.
var _ Exchange = (*RESTExchange)(nil)

// Name returns the venue name.
func (c *RESTExchange) Name() string {
	return c.name
}

// pairPayload is the wire shape of a traded pair listing entry.
type pairPayload struct {
	Name         string `json:"name"`
	Base         string `json:"base"`
	BaseFullName string `json:"base_full_name"`
	To           string `json:"to"`
	ToFullName   string `json:"to_full_name"`
}

// TradedPairs lists every market currently traded on the venue.
func (c *RESTExchange) TradedPairs(ctx context.Context) ([]domain.TradedPair, error) {
	var payload []pairPayload
	if err := c.get(ctx, "/pairs", nil, &payload); err != nil {
		return nil, fmt.Errorf("fetch traded pairs: %w", err)
	}

	pairs := make([]domain.TradedPair, 0, len(payload))
	for _, p := range payload {
		pairs = append(pairs, domain.TradedPair{
			Name:         p.Name,
			Exchange:     c.name,
			Base:         p.Base,
			BaseFullName: p.BaseFullName,
			To:           p.To,
			ToFullName:   p.ToFullName,
		})
	}
	return pairs, nil
}

// orderPayload is the wire shape of an order book level.
type orderPayload struct {
	Price  float64 `json:"price"`
	Volume float64 `json:"volume"`
	Side   string  `json:"side"`
}

// OrderBook fetches one side of the live order book for (base, to).
func (c *RESTExchange) OrderBook(ctx context.Context, base, to string, side domain.Side) ([]domain.OrderBookEntry, error) {
	query := url.Values{}
	query.Set("base", base)
	query.Set("to", to)
	query.Set("side", string(side))

	var payload []orderPayload
	if err := c.get(ctx, "/orderbook", query, &payload); err != nil {
		return nil, fmt.Errorf("fetch order book %s/%s: %w", base, to, err)
	}

	entries := make([]domain.OrderBookEntry, 0, len(payload))
	for _, o := range payload {
		entries = append(entries, domain.OrderBookEntry{
			Price:  o.Price,
			Volume: o.Volume,
			Side:   domain.Side(o.Side),
		})
	}
	return entries, nil
}

// tradePayload is the wire shape of an executed trade.
type tradePayload struct {
	Price  float64 `json:"price"`
	Amount float64 `json:"amount"`
	Time   float64 `json:"time"`
}

// RecentTrades fetches trades for a pair with time >= since.
func (c *RESTExchange) RecentTrades(ctx context.Context, pair string, since float64) ([]domain.Trade, error) {
	query := url.Values{}
	query.Set("pair", pair)
	query.Set("since", strconv.FormatFloat(since, 'f', -1, 64))

	var payload []tradePayload
	if err := c.get(ctx, "/trades", query, &payload); err != nil {
		return nil, fmt.Errorf("fetch trades for %s: %w", pair, err)
	}

	trades := make([]domain.Trade, 0, len(payload))
	for _, t := range payload {
		trades = append(trades, domain.Trade{Price: t.Price, Amount: t.Amount, Time: t.Time})
	}
	return trades, nil
}

// get performs a GET with rate limiting, retries and exponential
// backoff, decoding the JSON response body into result.
func (c *RESTExchange) get(ctx context.Context, path string, query url.Values, result any) error {
	endpoint := c.baseURL + path
	if len(query) > 0 {
		endpoint += "?" + query.Encode()
	}

	var lastErr error
	delay := c.retryDelay

	for attempt := 0; attempt <= c.maxRetries; attempt++ {
		if attempt > 0 {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(delay):
			}
			delay = time.Duration(float64(delay) * c.backoffMult)
			if delay > c.maxDelay {
				delay = c.maxDelay
			}
		}

		if err := c.limiter.Wait(ctx); err != nil {
			return err
		}

		lastErr = c.doGet(ctx, endpoint, result)
		if lastErr == nil {
			return nil
		}
	}

	return fmt.Errorf("after %d attempts: %w", c.maxRetries+1, lastErr)
}

func (c *RESTExchange) doGet(ctx context.Context, endpoint string, result any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return fmt.Errorf("do request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("read response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("unexpected status %d: %s", resp.StatusCode, body)
	}

	if err := json.Unmarshal(body, result); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}

	return nil
}
