package domain

import "github.com/shopspring/decimal"

// Side of an order in the book.
type Side int

const (
	// SideBid buys the base asset, escrowing quote-asset funds.
	SideBid Side = iota
	// SideAsk sells the base asset, escrowing base-asset funds.
	SideAsk
)

// String returns the side name.
func (s Side) String() string {
	if s == SideBid {
		return "bid"
	}
	return "ask"
}

// Order is a read-only snapshot of an open order owned by the exchange
// backend. The state layer only inspects it to compute locked funds.
type Order struct {
	ID       string
	Pair     Pair
	Side     Side
	Quantity decimal.Decimal
	Price    decimal.Decimal
}
