package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// Transaction is a wallet transaction pushed by the wallet backend.
type Transaction struct {
	ID            string
	Address       string
	Amount        decimal.Decimal
	Confirmations int
	Time          time.Time
}
