package clients

import (
	"context"
	"strings"

	"github.com/hirokisan/bybit/v2"
	"github.com/pkg/errors"
	"github.com/shopspring/decimal"

	"github.com/mercuryex/walletcore/internal/domain"
)

// ErrCustodialOnly reports an operation the custodial backend does not
// expose through its API.
var ErrCustodialOnly = errors.New("operation requires an on-chain wallet backend")

// BybitWallet implements domain.WalletController on top of a Bybit unified
// account. Funds are custodial: balances come from the account endpoint and
// nothing ever sits in a pending state, since deposits are credited by the
// venue before they appear.
type BybitWallet struct {
	client *bybit.Client
	coin   string
}

// NewBybitWallet creates a wallet controller for one coin of the account.
func NewBybitWallet(client *bybit.Client, coin string) *BybitWallet {
	return &BybitWallet{client: client, coin: strings.ToUpper(coin)}
}

// Balance returns the coin's wallet balance from the unified account.
func (w *BybitWallet) Balance(ctx context.Context) (decimal.Decimal, error) {
	res, err := w.client.V5().Account().GetWalletBalance(bybit.AccountTypeV5("UNIFIED"), nil)
	if err != nil {
		return decimal.Zero, errors.Wrapf(err, "get wallet balance for %s", w.coin)
	}
	if len(res.Result.List) == 0 {
		return decimal.Zero, nil
	}

	for _, coin := range res.Result.List[0].Coin {
		if !strings.EqualFold(string(coin.Coin), w.coin) {
			continue
		}
		balance, err := decimal.NewFromString(coin.WalletBalance)
		if err != nil {
			return decimal.Zero, errors.Wrapf(err, "parse %s balance %q", w.coin, coin.WalletBalance)
		}
		return balance, nil
	}
	return decimal.Zero, nil
}

// PendingBalance is always zero for a custodial account.
func (w *BybitWallet) PendingBalance(ctx context.Context) (decimal.Decimal, error) {
	return decimal.Zero, nil
}

// NewAddress is not available through the account API.
func (w *BybitWallet) NewAddress(ctx context.Context) (string, error) {
	return "", errors.Wrapf(ErrCustodialOnly, "new address for %s", w.coin)
}

// IsAddressValid does a shape check only; the venue validates on withdrawal.
func (w *BybitWallet) IsAddressValid(address string) bool {
	address = strings.TrimSpace(address)
	if len(address) < 16 {
		return false
	}
	return !strings.ContainsAny(address, " \t\n")
}

// Send is not available through the account API.
func (w *BybitWallet) Send(ctx context.Context, address string, amount decimal.Decimal) error {
	return errors.Wrapf(ErrCustodialOnly, "send %s %s", amount.String(), w.coin)
}

var _ domain.WalletController = (*BybitWallet)(nil)
