package clients

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"github.com/mercuryex/walletcore/internal/domain"
)

func TestDiffOrderAssetsReportsEscrowSides(t *testing.T) {
	ltcbtc := domain.Pair{Base: "LTC", Quote: "BTC"}
	before := []domain.Order{
		{ID: "1", Pair: ltcbtc, Side: domain.SideAsk, Quantity: decimal.NewFromInt(5)},
	}
	after := []domain.Order{
		{ID: "2", Pair: ltcbtc, Side: domain.SideBid, Quantity: decimal.NewFromInt(2)},
	}

	affected := diffOrderAssets(before, after)
	// the removed ask frees LTC, the new bid locks BTC
	require.ElementsMatch(t, []string{"LTC", "BTC"}, affected)
}

func TestDiffOrderAssetsIgnoresUnchangedSnapshots(t *testing.T) {
	orders := []domain.Order{
		{ID: "1", Pair: domain.Pair{Base: "LTC", Quote: "BTC"}, Side: domain.SideAsk, Quantity: decimal.NewFromInt(5)},
	}
	require.Nil(t, diffOrderAssets(orders, orders))
}

func TestDiffOrderAssetsSeesPartialFill(t *testing.T) {
	ltcbtc := domain.Pair{Base: "LTC", Quote: "BTC"}
	before := []domain.Order{
		{ID: "1", Pair: ltcbtc, Side: domain.SideAsk, Quantity: decimal.NewFromInt(5)},
	}
	after := []domain.Order{
		{ID: "1", Pair: ltcbtc, Side: domain.SideAsk, Quantity: decimal.NewFromInt(3)},
	}

	affected := diffOrderAssets(before, after)
	require.ElementsMatch(t, []string{"LTC"}, affected)
}

func TestBybitWalletAddressShapeCheck(t *testing.T) {
	w := NewBybitWallet(nil, "btc")

	require.True(t, w.IsAddressValid("bc1qxy2kgdygjrsqtzq2n0yrf2493p83kkfjhx0wlh"))
	require.False(t, w.IsAddressValid(""))
	require.False(t, w.IsAddressValid("short"))
	require.False(t, w.IsAddressValid("bc1qxy2kgdygjrsqtzq2 n0yrf2493p83kkfjhx0wlh"))
}
