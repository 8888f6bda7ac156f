package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// Ticker is the current market summary for a pair.
type Ticker struct {
	Pair    Pair
	BestBid decimal.Decimal
	BestAsk decimal.Decimal
	Last    decimal.Decimal
	Volume  decimal.Decimal
	History []TickerPoint
}

// TickerPoint is one sample of the pair's price history.
type TickerPoint struct {
	Time  time.Time
	Price decimal.Decimal
}

// DepthLevel aggregates quantity available at one price level.
type DepthLevel struct {
	Price    decimal.Decimal
	Quantity decimal.Decimal
}

// Depth holds bid/ask levels sorted by price priority: bids descending,
// asks ascending.
type Depth struct {
	Pair Pair
	Bids []DepthLevel
	Asks []DepthLevel
}
