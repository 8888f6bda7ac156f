package domain

import (
	"context"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// WalletController is the per-asset wallet backend collaborator. A nil
// controller models an asset whose backend connection has not initialized
// yet: balance queries are skipped and the last known values are kept.
type WalletController interface {
	Balance(ctx context.Context) (decimal.Decimal, error)
	PendingBalance(ctx context.Context) (decimal.Decimal, error)
	NewAddress(ctx context.Context) (string, error)
	IsAddressValid(address string) bool
	Send(ctx context.Context, address string, amount decimal.Decimal) error
}

// Asset is a tradable currency tracked by the wallet. Assets are created at
// registration time, mutated by backend push events, and live for the whole
// session. All mutation goes through the Registry.
type Asset struct {
	// ID is the ticker identifier, e.g. "BTC".
	ID string
	// Name is the human-readable name, e.g. "Bitcoin".
	Name string
	// Symbol is the display glyph for amounts.
	Symbol string
	// Fee is the minimum-order/dust threshold for this asset.
	Fee decimal.Decimal
	// Pairs lists asset ids this asset can be traded against, in display
	// order; the first entry is the default counterpart.
	Pairs []string

	// Index is the registration ordinal; it drives canonical pair ordering
	// (the higher-index asset is listed first).
	Index int

	Balance decimal.Decimal
	Pending decimal.Decimal
	Address string

	Connected  bool
	Synced     bool
	Peers      int
	MaxPeers   int
	SyncBlocks int

	Transactions []Transaction

	wallet    WalletController
	refreshed time.Time
}

// Wallet returns the attached wallet backend, or nil when it has not
// initialized yet.
func (a *Asset) Wallet() WalletController {
	return a.wallet
}

// TradesWith reports whether id is a tradable counterpart of the asset.
func (a *Asset) TradesWith(id string) bool {
	for _, p := range a.Pairs {
		if strings.EqualFold(p, id) {
			return true
		}
	}
	return false
}

// IsAddressValid delegates to the wallet backend; without one, no address
// can be validated.
func (a *Asset) IsAddressValid(address string) bool {
	if a.wallet == nil {
		return false
	}
	return a.wallet.IsAddressValid(address)
}
