package balance

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/mercuryex/walletcore/internal/domain"
	"github.com/mercuryex/walletcore/internal/observer"
)

type fakeFeed struct {
	orders  []domain.Order
	tickers map[string]domain.Ticker
}

func (f *fakeFeed) Orders() []domain.Order { return f.orders }

func (f *fakeFeed) Ticker(pair domain.Pair) (domain.Ticker, bool) {
	t, ok := f.tickers[pair.ID()]
	return t, ok
}

func d(s string) decimal.Decimal { return decimal.RequireFromString(s) }

func setup(t *testing.T) (*domain.Registry, *observer.Graph, *fakeFeed, *Aggregator) {
	t.Helper()
	g := observer.New()
	r := domain.NewRegistry(g, zap.NewNop())
	r.Register(&domain.Asset{ID: "BTC", Fee: d("0.0001"), Pairs: []string{"LTC", "DOGE"}})
	r.Register(&domain.Asset{ID: "LTC", Fee: d("0.001"), Pairs: []string{"BTC"}})
	r.Register(&domain.Asset{ID: "DOGE", Fee: d("1"), Pairs: []string{"BTC"}})

	feed := &fakeFeed{tickers: make(map[string]domain.Ticker)}
	agg := New(r, feed, g, "BTC", zap.NewNop())
	return r, g, feed, agg
}

func TestLockedBalancePerOrderSide(t *testing.T) {
	_, _, feed, agg := setup(t)

	// an ask on LTC/BTC escrows LTC quantity; a bid escrows BTC quantity*price
	feed.orders = []domain.Order{
		{Pair: domain.Pair{Base: "LTC", Quote: "BTC"}, Side: domain.SideAsk, Quantity: d("5")},
		{Pair: domain.Pair{Base: "LTC", Quote: "BTC"}, Side: domain.SideBid, Quantity: d("2"), Price: d("0.015")},
	}

	require.True(t, agg.LockedBalance("LTC").Equal(d("5")))
	require.True(t, agg.LockedBalance("BTC").Equal(d("0.03")))
	require.True(t, agg.LockedBalance("DOGE").IsZero())
}

func TestLockedBalanceSumsAcrossOrders(t *testing.T) {
	_, _, feed, agg := setup(t)

	feed.orders = []domain.Order{
		{Pair: domain.Pair{Base: "LTC", Quote: "BTC"}, Side: domain.SideAsk, Quantity: d("1.5")},
		{Pair: domain.Pair{Base: "LTC", Quote: "BTC"}, Side: domain.SideAsk, Quantity: d("0.25")},
		{Pair: domain.Pair{Base: "DOGE", Quote: "BTC"}, Side: domain.SideBid, Quantity: d("1000"), Price: d("0.0000005")},
		{Pair: domain.Pair{Base: "LTC", Quote: "BTC"}, Side: domain.SideBid, Quantity: d("2"), Price: d("0.015")},
	}

	require.True(t, agg.LockedBalance("LTC").Equal(d("1.75")))
	require.True(t, agg.LockedBalance("BTC").Equal(d("0.0305")), "got %s", agg.LockedBalance("BTC"))
}

func TestAvailableIsWalletMinusLocked(t *testing.T) {
	r, _, feed, agg := setup(t)
	require.NoError(t, r.SetBalance("LTC", d("10"), decimal.Zero))

	feed.orders = []domain.Order{
		{Pair: domain.Pair{Base: "LTC", Quote: "BTC"}, Side: domain.SideAsk, Quantity: d("4")},
	}

	require.True(t, agg.Available("LTC").Equal(d("6")))
}

func TestPortfolioValuationInBaseAsset(t *testing.T) {
	r, _, feed, agg := setup(t)

	require.NoError(t, r.SetBalance("BTC", d("1"), d("0.5")))
	require.NoError(t, r.SetBalance("LTC", d("100"), decimal.Zero))
	require.NoError(t, r.SetBalance("DOGE", d("1000"), decimal.Zero))

	feed.tickers[domain.Pair{Base: "LTC", Quote: "BTC"}.ID()] = domain.Ticker{BestBid: d("0.015")}
	// no DOGE/BTC ticker: DOGE contributes zero instead of failing

	agg.Bind()
	defer agg.Close()

	// 1.5 BTC + 100 LTC * 0.015 = 3.0
	require.True(t, agg.PortfolioValue().Equal(d("3")), "got %s", agg.PortfolioValue())
	require.True(t, agg.Contribution("DOGE").IsZero())
}

func TestBalancePushRecomputesOnlyAffectedContribution(t *testing.T) {
	r, g, feed, agg := setup(t)

	require.NoError(t, r.SetBalance("BTC", d("1"), decimal.Zero))
	require.NoError(t, r.SetBalance("LTC", d("100"), decimal.Zero))
	feed.tickers[domain.Pair{Base: "LTC", Quote: "BTC"}.ID()] = domain.Ticker{BestBid: d("0.01")}

	agg.Bind()
	defer agg.Close()
	require.True(t, agg.PortfolioValue().Equal(d("2")))

	var totals []string
	g.On(domain.TopicPortfolio, domain.EventPortfolioChange, func(p any) {
		totals = append(totals, p.(decimal.Decimal).String())
	})

	require.NoError(t, r.SetBalance("LTC", d("200"), decimal.Zero))
	require.True(t, agg.PortfolioValue().Equal(d("3")), "got %s", agg.PortfolioValue())
	require.Len(t, totals, 1, "one change event per push")
}

func TestTickerMoveRevaluesAsset(t *testing.T) {
	r, g, feed, agg := setup(t)

	require.NoError(t, r.SetBalance("LTC", d("100"), decimal.Zero))
	pair := domain.Pair{Base: "LTC", Quote: "BTC"}
	feed.tickers[pair.ID()] = domain.Ticker{BestBid: d("0.01")}

	agg.Bind()
	defer agg.Close()
	require.True(t, agg.PortfolioValue().Equal(d("1")))

	feed.tickers[pair.ID()] = domain.Ticker{BestBid: d("0.02")}
	g.Emit(domain.TopicMarket, domain.TickerEvent(pair), nil)

	require.True(t, agg.PortfolioValue().Equal(d("2")), "got %s", agg.PortfolioValue())
}

func TestOrdersChangePublishesAvailableForAffectedAssets(t *testing.T) {
	r, g, feed, agg := setup(t)
	require.NoError(t, r.SetBalance("LTC", d("10"), decimal.Zero))

	agg.Bind()
	defer agg.Close()

	var got decimal.Decimal
	notified := 0
	g.On("ltc", domain.EventAvailable, func(p any) {
		got = p.(decimal.Decimal)
		notified++
	})

	feed.orders = []domain.Order{
		{Pair: domain.Pair{Base: "LTC", Quote: "BTC"}, Side: domain.SideAsk, Quantity: d("4")},
	}
	g.Emit(domain.TopicMarket, domain.EventOrdersChange, []string{"LTC"})

	require.Equal(t, 1, notified)
	require.True(t, got.Equal(d("6")))
}
