// Package balance derives available, locked and portfolio-wide balances
// from raw wallet balances and open-order snapshots.
package balance

import (
	"strings"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/mercuryex/walletcore/internal/domain"
	"github.com/mercuryex/walletcore/internal/numeric"
	"github.com/mercuryex/walletcore/internal/observer"
)

// marketFeed is the slice of the exchange collaborator the aggregator needs:
// an open-order snapshot and best-bid tickers. Order quantities in the
// snapshot are the remaining open amounts; partial fills reduce them at the
// source, so locked balance follows automatically.
type marketFeed interface {
	Orders() []domain.Order
	Ticker(pair domain.Pair) (domain.Ticker, bool)
}

// Aggregator computes per-asset available balances and the portfolio value
// in the base asset. It subscribes to balance, order and ticker events and
// recomputes only the contribution of the asset a change touches.
type Aggregator struct {
	registry *domain.Registry
	feed     marketFeed
	graph    *observer.Graph
	base     string
	l        *zap.Logger

	contributions map[string]decimal.Decimal
	total         decimal.Decimal
	subs          []observer.Subscription
}

// New creates an aggregator valuing the portfolio in baseAssetID.
func New(registry *domain.Registry, feed marketFeed, graph *observer.Graph,
	baseAssetID string, logger *zap.Logger) *Aggregator {
	return &Aggregator{
		registry:      registry,
		feed:          feed,
		graph:         graph,
		base:          strings.ToLower(baseAssetID),
		l:             logger,
		contributions: make(map[string]decimal.Decimal),
	}
}

// Bind subscribes the aggregator to the events that invalidate balances:
// wallet balance pushes, open-order-set changes and best-bid ticker moves.
// It also performs the initial full valuation.
func (a *Aggregator) Bind() {
	for _, asset := range a.registry.All() {
		id := strings.ToLower(asset.ID)
		a.subs = append(a.subs, a.graph.On(id, domain.EventBalance, func(any) {
			a.recompute(id)
		}))

		if id != a.base {
			pair := domain.Pair{Base: asset.ID, Quote: a.baseAssetID()}
			a.subs = append(a.subs, a.graph.On(domain.TopicMarket, domain.TickerEvent(pair), func(any) {
				a.recompute(id)
			}))
		}

		a.recompute(id)
	}

	a.subs = append(a.subs, a.graph.On(domain.TopicMarket, domain.EventOrdersChange, func(payload any) {
		affected, _ := payload.([]string)
		for _, id := range affected {
			a.notifyAvailable(id)
		}
	}))
}

// Close revokes every subscription taken by Bind.
func (a *Aggregator) Close() {
	for _, s := range a.subs {
		a.graph.Off(s)
	}
	a.subs = nil
}

// LockedBalance sums funds the asset has committed to open orders: an ask
// escrows the base asset's quantity, a bid escrows quantity*price of the
// quote asset.
func (a *Aggregator) LockedBalance(assetID string) decimal.Decimal {
	locked := decimal.Zero
	for _, o := range a.feed.Orders() {
		switch {
		case o.Side == domain.SideAsk && strings.EqualFold(o.Pair.Base, assetID):
			locked = numeric.Add(locked, o.Quantity)
		case o.Side == domain.SideBid && strings.EqualFold(o.Pair.Quote, assetID):
			locked = numeric.Add(locked, numeric.Mul(o.Quantity, o.Price))
		}
	}
	return locked
}

// Available returns the wallet balance minus funds locked in open orders.
func (a *Aggregator) Available(assetID string) decimal.Decimal {
	asset, ok := a.registry.Get(assetID)
	if !ok {
		return decimal.Zero
	}
	return numeric.Sub(asset.Balance, a.LockedBalance(assetID))
}

// PortfolioValue returns the whole portfolio valued in the base asset.
func (a *Aggregator) PortfolioValue() decimal.Decimal {
	return a.total
}

// Contribution returns one asset's share of the portfolio value.
func (a *Aggregator) Contribution(assetID string) decimal.Decimal {
	return a.contributions[strings.ToLower(assetID)]
}

func (a *Aggregator) baseAssetID() string {
	if asset, ok := a.registry.Get(a.base); ok {
		return asset.ID
	}
	return strings.ToUpper(a.base)
}

// recompute revalues a single asset's contribution and folds the delta into
// the running total, so update cost stays proportional to the change.
func (a *Aggregator) recompute(id string) {
	asset, ok := a.registry.Get(id)
	if !ok {
		return
	}

	held := numeric.Add(asset.Balance, asset.Pending)

	var value decimal.Decimal
	if strings.ToLower(asset.ID) == a.base {
		value = held
	} else {
		pair := domain.Pair{Base: asset.ID, Quote: a.baseAssetID()}
		ticker, ok := a.feed.Ticker(pair)
		if !ok {
			// no market for this pair yet: contributes nothing rather
			// than failing the whole valuation
			value = decimal.Zero
		} else {
			value = numeric.Mul(held, ticker.BestBid)
		}
	}

	old, seen := a.contributions[id]
	if seen && value.Equal(old) {
		return
	}
	a.contributions[id] = value
	a.total = numeric.Add(numeric.Sub(a.total, old), value)

	a.l.Debug("portfolio contribution updated",
		zap.String("asset", asset.ID),
		zap.String("value", numeric.Format(value)),
		zap.String("total", numeric.Format(a.total)))

	a.graph.Emit(domain.TopicPortfolio, domain.EventPortfolioChange, a.total)
}

// notifyAvailable publishes the post-change available balance for an asset
// whose locked amount moved with the order set.
func (a *Aggregator) notifyAvailable(id string) {
	if _, ok := a.registry.Get(id); !ok {
		return
	}
	a.graph.Emit(strings.ToLower(id), domain.EventAvailable, a.Available(id))
}
