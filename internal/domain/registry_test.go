package domain

import (
	"context"
	"testing"

	"github.com/pkg/errors"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/mercuryex/walletcore/internal/observer"
)

type fakeWallet struct {
	balance    decimal.Decimal
	pending    decimal.Decimal
	address    string
	failures   int
	sent       []string
	validAddrs map[string]bool
}

func (w *fakeWallet) Balance(context.Context) (decimal.Decimal, error) {
	if w.failures > 0 {
		w.failures--
		return decimal.Zero, errors.New("backend unavailable")
	}
	return w.balance, nil
}

func (w *fakeWallet) PendingBalance(context.Context) (decimal.Decimal, error) {
	return w.pending, nil
}

func (w *fakeWallet) NewAddress(context.Context) (string, error) { return w.address, nil }

func (w *fakeWallet) IsAddressValid(address string) bool { return w.validAddrs[address] }

func (w *fakeWallet) Send(_ context.Context, address string, amount decimal.Decimal) error {
	w.sent = append(w.sent, address+":"+amount.String())
	return nil
}

func newTestRegistry() (*Registry, *observer.Graph) {
	g := observer.New()
	return NewRegistry(g, zap.NewNop()), g
}

func TestRegisterAssignsInsertionOrderIndexes(t *testing.T) {
	r, _ := newTestRegistry()

	btc := r.Register(&Asset{ID: "BTC", Pairs: []string{"LTC", "DOGE"}})
	ltc := r.Register(&Asset{ID: "LTC", Pairs: []string{"BTC"}})
	doge := r.Register(&Asset{ID: "DOGE", Pairs: []string{"BTC", "LTC"}})

	require.Equal(t, 0, btc.Index)
	require.Equal(t, 1, ltc.Index)
	require.Equal(t, 2, doge.Index)

	all := r.All()
	require.Equal(t, []string{"BTC", "LTC", "DOGE"}, []string{all[0].ID, all[1].ID, all[2].ID})
}

func TestRegisterIsIdempotentPerID(t *testing.T) {
	r, _ := newTestRegistry()

	first := r.Register(&Asset{ID: "BTC"})
	second := r.Register(&Asset{ID: "btc"})
	require.Same(t, first, second)
	require.Len(t, r.All(), 1)
}

func TestGetIsCaseInsensitive(t *testing.T) {
	r, _ := newTestRegistry()
	r.Register(&Asset{ID: "BTC"})

	a, ok := r.Get("btc")
	require.True(t, ok)
	require.Equal(t, "BTC", a.ID)
}

func TestCanonicalPairOrdersByDescendingIndex(t *testing.T) {
	r, _ := newTestRegistry()
	r.Register(&Asset{ID: "BTC"})
	r.Register(&Asset{ID: "LTC"})

	base, quote, err := r.CanonicalPair("BTC", "LTC")
	require.NoError(t, err)
	require.Equal(t, "LTC", base.ID, "higher-index asset is listed first")
	require.Equal(t, "BTC", quote.ID)

	// same result regardless of argument order
	base, quote, err = r.CanonicalPair("LTC", "BTC")
	require.NoError(t, err)
	require.Equal(t, "LTC", base.ID)
	require.Equal(t, "BTC", quote.ID)
}

func TestRefreshBalanceEmitsOnChange(t *testing.T) {
	r, g := newTestRegistry()
	r.Register(&Asset{ID: "BTC"})

	events := 0
	g.On("btc", EventBalance, func(any) { events++ })

	w := &fakeWallet{balance: decimal.RequireFromString("1.5")}
	require.NoError(t, r.AttachWallet(context.Background(), "BTC", w))
	require.Equal(t, 1, events)

	a, _ := r.Get("BTC")
	require.True(t, a.Balance.Equal(decimal.RequireFromString("1.5")))

	// unchanged balance does not re-notify
	r.RefreshBalance(context.Background(), "BTC")
	require.Equal(t, 1, events)
}

func TestRefreshBalanceKeepsLastKnownOnBackendFailure(t *testing.T) {
	r, _ := newTestRegistry()
	r.Register(&Asset{ID: "BTC"})

	w := &fakeWallet{balance: decimal.RequireFromString("2")}
	require.NoError(t, r.AttachWallet(context.Background(), "BTC", w))

	a, _ := r.Get("BTC")
	require.True(t, a.Balance.Equal(decimal.RequireFromString("2")))

	w.failures = 1
	w.balance = decimal.RequireFromString("9")
	r.RefreshBalance(context.Background(), "BTC")
	require.True(t, a.Balance.Equal(decimal.RequireFromString("2")), "last known value kept")
}

func TestRefreshBalanceWithoutWalletIsSkipped(t *testing.T) {
	r, g := newTestRegistry()
	r.Register(&Asset{ID: "BTC", Balance: decimal.RequireFromString("0.5")})

	events := 0
	g.On("btc", EventBalance, func(any) { events++ })

	r.RefreshBalance(context.Background(), "BTC")
	require.Equal(t, 0, events)

	a, _ := r.Get("BTC")
	require.True(t, a.Balance.Equal(decimal.RequireFromString("0.5")))
}

func TestApplyTransactionMergesByID(t *testing.T) {
	r, g := newTestRegistry()
	r.Register(&Asset{ID: "BTC"})

	var notified []Transaction
	g.On("btc", EventTransaction, func(p any) { notified = append(notified, p.(Transaction)) })

	tx := Transaction{ID: "tx1", Amount: decimal.RequireFromString("0.1"), Confirmations: 0}
	require.NoError(t, r.ApplyTransaction(context.Background(), "BTC", tx))

	tx.Confirmations = 3
	require.NoError(t, r.ApplyTransaction(context.Background(), "BTC", tx))

	a, _ := r.Get("BTC")
	require.Len(t, a.Transactions, 1)
	require.Equal(t, 3, a.Transactions[0].Confirmations)
	require.Len(t, notified, 2)
}

func TestSetPeersConnectsOnceAndStaysConnected(t *testing.T) {
	r, _ := newTestRegistry()
	r.Register(&Asset{ID: "BTC"})

	require.NoError(t, r.SetPeers("BTC", 2, 8))
	a, _ := r.Get("BTC")
	require.False(t, a.Connected)

	require.NoError(t, r.SetPeers("BTC", 8, 8))
	require.True(t, a.Connected)

	require.NoError(t, r.SetPeers("BTC", 3, 8))
	require.True(t, a.Connected, "connected flag is sticky")
}

func TestSendValidatesAddressThroughBackend(t *testing.T) {
	r, _ := newTestRegistry()
	r.Register(&Asset{ID: "BTC"})

	w := &fakeWallet{validAddrs: map[string]bool{"good": true}}
	require.NoError(t, r.AttachWallet(context.Background(), "BTC", w))

	err := r.Send(context.Background(), "BTC", "bad", decimal.RequireFromString("1"))
	require.Error(t, err)
	require.Empty(t, w.sent)

	require.NoError(t, r.Send(context.Background(), "BTC", "good", decimal.RequireFromString("1")))
	require.Equal(t, []string{"good:1"}, w.sent)
}

func TestNewAddressStoresAndReturnsAddress(t *testing.T) {
	r, g := newTestRegistry()
	r.Register(&Asset{ID: "BTC"})

	var announced string
	g.On("btc", EventAddress, func(p any) { announced = p.(string) })

	w := &fakeWallet{address: "addr-1"}
	require.NoError(t, r.AttachWallet(context.Background(), "BTC", w))

	addr, err := r.NewAddress(context.Background(), "BTC")
	require.NoError(t, err)
	require.Equal(t, "addr-1", addr)
	require.Equal(t, "addr-1", announced)

	a, _ := r.Get("BTC")
	require.Equal(t, "addr-1", a.Address)
}
