package domain

// Side identifies an order book side.
type Side string

// Order book sides.
const (
	SideBid Side = "bid"
	SideAsk Side = "ask"
)

// OrderBookEntry is one level of an order book for a single pair on a
// single exchange. Entries are ephemeral: books are fetched fresh per
// evaluation and never cached.
type OrderBookEntry struct {
	Price  float64
	Volume float64
	Side   Side
}
