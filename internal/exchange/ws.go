package exchange

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"tradecycle/internal/domain"
)

// FeedConfig configures TradeFeed behavior.
type FeedConfig struct {
	// ReconnectDelay is the initial delay before a reconnect attempt.
	ReconnectDelay time.Duration
	// MaxReconnectDelay is the maximum delay between reconnect attempts.
	MaxReconnectDelay time.Duration
	// PingInterval is the interval for sending ping frames.
	PingInterval time.Duration
	// ReadTimeout is the timeout for reading messages.
	ReadTimeout time.Duration
	// WriteTimeout is the timeout for writing messages.
	WriteTimeout time.Duration
}

// DefaultFeedConfig returns default trade feed configuration.
func DefaultFeedConfig() FeedConfig {
	return FeedConfig{
		ReconnectDelay:    1 * time.Second,
		MaxReconnectDelay: 30 * time.Second,
		PingInterval:      30 * time.Second,
		ReadTimeout:       60 * time.Second,
		WriteTimeout:      10 * time.Second,
	}
}

// FeedTrade is one trade delivered by the streaming feed, tagged with
// the pair it executed on.
type FeedTrade struct {
	Pair  string
	Trade domain.Trade
}

// TradeFeed subscribes to a venue's websocket trade stream and delivers
// executed trades over a channel. The connection is re-established with
// exponential backoff after any read failure, and subscriptions are
// replayed on reconnect.
type TradeFeed struct {
	endpoint string
	pairs    []string
	config   FeedConfig
	logger   *log.Logger

	conn   *websocket.Conn
	connMu sync.Mutex

	out  chan FeedTrade
	done chan struct{}
	wg   sync.WaitGroup
}

// NewTradeFeed creates a trade feed for the given pairs and connects to
// the endpoint. Trades arrive on Trades() until Close is called.
func NewTradeFeed(ctx context.Context, endpoint string, pairs []string, config *FeedConfig, logger *log.Logger) (*TradeFeed, error) {
	cfg := DefaultFeedConfig()
	if config != nil {
		cfg = *config
	}
	if logger == nil {
		logger = log.Default()
	}

	f := &TradeFeed{
		endpoint: endpoint,
		pairs:    pairs,
		config:   cfg,
		logger:   logger,
		out:      make(chan FeedTrade, 256),
		done:     make(chan struct{}),
	}

	if err := f.connect(ctx); err != nil {
		return nil, err
	}

	f.wg.Add(2)
	go f.readLoop()
	go f.pingLoop()

	return f, nil
}

// Trades returns the channel of streamed trades. The channel is closed
// when the feed shuts down.
func (f *TradeFeed) Trades() <-chan FeedTrade {
	return f.out
}

// Close shuts the feed down and waits for its goroutines to exit.
func (f *TradeFeed) Close() error {
	close(f.done)
	f.connMu.Lock()
	if f.conn != nil {
		f.conn.Close()
	}
	f.connMu.Unlock()
	f.wg.Wait()
	close(f.out)
	return nil
}

// subscribeMessage is the wire shape of a trade stream subscription.
type subscribeMessage struct {
	Op    string   `json:"op"`
	Pairs []string `json:"pairs"`
}

// feedMessage is the wire shape of a streamed trade.
type feedMessage struct {
	Pair   string  `json:"pair"`
	Price  float64 `json:"price"`
	Amount float64 `json:"amount"`
	Time   float64 `json:"time"`
}

// connect dials the endpoint and subscribes to the configured pairs.
func (f *TradeFeed) connect(ctx context.Context) error {
	conn, _, err := websocket.DefaultDialer.DialContext(ctx, f.endpoint, nil)
	if err != nil {
		return fmt.Errorf("dial trade feed: %w", err)
	}

	sub := subscribeMessage{Op: "subscribe", Pairs: f.pairs}
	conn.SetWriteDeadline(time.Now().Add(f.config.WriteTimeout))
	if err := conn.WriteJSON(sub); err != nil {
		conn.Close()
		return fmt.Errorf("subscribe to trades: %w", err)
	}

	f.connMu.Lock()
	f.conn = conn
	f.connMu.Unlock()

	return nil
}

// readLoop reads trade messages until shutdown, reconnecting with
// exponential backoff on read failure.
func (f *TradeFeed) readLoop() {
	defer f.wg.Done()

	delay := f.config.ReconnectDelay
	for {
		select {
		case <-f.done:
			return
		default:
		}

		f.connMu.Lock()
		conn := f.conn
		f.connMu.Unlock()

		conn.SetReadDeadline(time.Now().Add(f.config.ReadTimeout))
		_, data, err := conn.ReadMessage()
		if err != nil {
			select {
			case <-f.done:
				return
			case <-time.After(delay):
			}
			delay *= 2
			if delay > f.config.MaxReconnectDelay {
				delay = f.config.MaxReconnectDelay
			}
			if err := f.connect(context.Background()); err != nil {
				f.logger.Printf("trade feed reconnect failed: %v", err)
			}
			continue
		}
		delay = f.config.ReconnectDelay

		var msg feedMessage
		if err := json.Unmarshal(data, &msg); err != nil {
			f.logger.Printf("trade feed: malformed message: %v", err)
			continue
		}
		if msg.Pair == "" {
			// Subscription acks and heartbeats carry no pair.
			continue
		}

		select {
		case f.out <- FeedTrade{
			Pair:  msg.Pair,
			Trade: domain.Trade{Price: msg.Price, Amount: msg.Amount, Time: msg.Time},
		}:
		case <-f.done:
			return
		}
	}
}

// pingLoop keeps the connection alive.
func (f *TradeFeed) pingLoop() {
	defer f.wg.Done()

	ticker := time.NewTicker(f.config.PingInterval)
	defer ticker.Stop()

	for {
		select {
		case <-f.done:
			return
		case <-ticker.C:
			f.connMu.Lock()
			conn := f.conn
			f.connMu.Unlock()
			deadline := time.Now().Add(f.config.WriteTimeout)
			if err := conn.WriteControl(websocket.PingMessage, nil, deadline); err != nil {
				f.logger.Printf("trade feed ping failed: %v", err)
			}
		}
	}
}
