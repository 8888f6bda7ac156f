package clients

import (
	"context"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/adshao/go-binance/v2"
	"github.com/pkg/errors"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/mercuryex/walletcore/internal/domain"
	"github.com/mercuryex/walletcore/internal/services/trade"
	"github.com/mercuryex/walletcore/pkg/retrier"
)

const (
	defaultPollInterval  = 3 * time.Second
	tickerHistoryMaxSize = 500
)

// Sink receives market updates from the feed. Implementations must hand
// the update over to the core's dispatch thread; the feed calls from its
// own polling goroutine.
type Sink interface {
	TickerUpdated(t domain.Ticker)
	OrdersChanged(affectedAssets []string)
}

// BinanceFeed implements the exchange collaborator over the Binance REST
// API: cached tickers and open-order snapshots refreshed by a polling
// loop, plus order submission and cancellation.
type BinanceFeed struct {
	client       *binance.Client
	pairs        []domain.Pair
	pollInterval time.Duration
	retry        *retrier.Retrier
	l            *zap.Logger

	mu      sync.RWMutex
	tickers map[string]domain.Ticker
	orders  []domain.Order
}

// NewBinanceFeed creates a feed polling the given pairs.
func NewBinanceFeed(client *binance.Client, pairs []domain.Pair, logger *zap.Logger) *BinanceFeed {
	return &BinanceFeed{
		client:       client,
		pairs:        pairs,
		pollInterval: defaultPollInterval,
		retry:        retrier.New(retrier.WithMaxRetries(3), retrier.WithInitialInterval(time.Second)),
		l:            logger,
		tickers:      make(map[string]domain.Ticker),
	}
}

// Run polls tickers and open orders until ctx is cancelled, pushing
// changes into sink.
func (f *BinanceFeed) Run(ctx context.Context, sink Sink) error {
	ticker := time.NewTicker(f.pollInterval)
	defer ticker.Stop()

	for {
		if err := f.retry.Do(ctx, func(ctx context.Context) error {
			return f.poll(ctx, sink)
		}); err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			// keep serving last known data; the next tick retries
			f.l.Warn("market poll failed, keeping last snapshot", zap.Error(err))
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}
	}
}

// Ticker returns the last known ticker for the pair.
func (f *BinanceFeed) Ticker(pair domain.Pair) (domain.Ticker, bool) {
	f.mu.RLock()
	defer f.mu.RUnlock()
	t, ok := f.tickers[pair.ID()]
	return t, ok
}

// Orders returns the last open-order snapshot. Quantities are remaining
// amounts: partial fills are already subtracted.
func (f *BinanceFeed) Orders() []domain.Order {
	f.mu.RLock()
	defer f.mu.RUnlock()
	out := make([]domain.Order, len(f.orders))
	copy(out, f.orders)
	return out
}

// Depth fetches the current order book for the pair.
func (f *BinanceFeed) Depth(ctx context.Context, pair domain.Pair, levels int) (domain.Depth, error) {
	res, err := f.client.NewDepthService().Symbol(pair.Symbol()).Limit(levels).Do(ctx)
	if err != nil {
		return domain.Depth{}, errors.Wrapf(err, "depth %s", pair.String())
	}

	depth := domain.Depth{Pair: pair}
	for _, b := range res.Bids {
		level, err := parseLevel(b.Price, b.Quantity)
		if err != nil {
			return domain.Depth{}, err
		}
		depth.Bids = append(depth.Bids, level)
	}
	for _, a := range res.Asks {
		level, err := parseLevel(a.Price, a.Quantity)
		if err != nil {
			return domain.Depth{}, err
		}
		depth.Asks = append(depth.Asks, level)
	}
	return depth, nil
}

// Submit places a limit order and reports the outcome through done.
func (f *BinanceFeed) Submit(ctx context.Context, req trade.SubmitRequest, done func(error)) {
	side := binance.SideTypeSell
	if req.Side == domain.SideBid {
		side = binance.SideTypeBuy
	}

	go func() {
		_, err := f.client.NewCreateOrderService().
			Symbol(req.Pair.Symbol()).
			Side(side).
			Type(binance.OrderTypeLimit).
			TimeInForce(binance.TimeInForceTypeGTC).
			Quantity(req.Quantity.String()).
			Price(req.Price.String()).
			NewClientOrderID(req.ClientID).
			Do(ctx)
		if err != nil {
			err = errors.Wrapf(err, "submit %s %s", req.Side, req.Pair.String())
		}
		done(err)
	}()
}

// Cancel cancels an open order by id.
func (f *BinanceFeed) Cancel(ctx context.Context, orderID string) error {
	f.mu.RLock()
	var pair domain.Pair
	found := false
	for _, o := range f.orders {
		if o.ID == orderID {
			pair = o.Pair
			found = true
			break
		}
	}
	f.mu.RUnlock()
	if !found {
		return errors.Errorf("unknown order %s", orderID)
	}

	id, err := strconv.ParseInt(orderID, 10, 64)
	if err != nil {
		return errors.Wrapf(err, "parse order id %s", orderID)
	}
	_, err = f.client.NewCancelOrderService().Symbol(pair.Symbol()).OrderID(id).Do(ctx)
	return errors.Wrapf(err, "cancel order %s", orderID)
}

func (f *BinanceFeed) poll(ctx context.Context, sink Sink) error {
	for _, pair := range f.pairs {
		if err := f.pollTicker(ctx, pair, sink); err != nil {
			return err
		}
	}
	return f.pollOrders(ctx, sink)
}

func (f *BinanceFeed) pollTicker(ctx context.Context, pair domain.Pair, sink Sink) error {
	books, err := f.client.NewListBookTickersService().Symbol(pair.Symbol()).Do(ctx)
	if err != nil {
		return errors.Wrapf(err, "book ticker %s", pair.String())
	}
	if len(books) == 0 {
		return nil
	}

	bid, err := decimal.NewFromString(books[0].BidPrice)
	if err != nil {
		return retrier.Permanent(errors.Wrap(err, "parse bid price"))
	}
	ask, err := decimal.NewFromString(books[0].AskPrice)
	if err != nil {
		return retrier.Permanent(errors.Wrap(err, "parse ask price"))
	}

	prices, err := f.client.NewListPricesService().Symbol(pair.Symbol()).Do(ctx)
	if err != nil {
		return errors.Wrapf(err, "last price %s", pair.String())
	}
	last := decimal.Zero
	if len(prices) > 0 {
		last, err = decimal.NewFromString(prices[0].Price)
		if err != nil {
			return retrier.Permanent(errors.Wrap(err, "parse last price"))
		}
	}

	f.mu.Lock()
	prev, existed := f.tickers[pair.ID()]
	next := domain.Ticker{
		Pair:    pair,
		BestBid: bid,
		BestAsk: ask,
		Last:    last,
		History: prev.History,
	}
	next.History = append(next.History, domain.TickerPoint{Time: time.Now(), Price: last})
	if len(next.History) > tickerHistoryMaxSize {
		next.History = next.History[len(next.History)-tickerHistoryMaxSize:]
	}
	changed := !existed || !prev.BestBid.Equal(bid) || !prev.BestAsk.Equal(ask) || !prev.Last.Equal(last)
	f.tickers[pair.ID()] = next
	f.mu.Unlock()

	if changed {
		sink.TickerUpdated(next)
	}
	return nil
}

func (f *BinanceFeed) pollOrders(ctx context.Context, sink Sink) error {
	var fresh []domain.Order
	for _, pair := range f.pairs {
		raw, err := f.client.NewListOpenOrdersService().Symbol(pair.Symbol()).Do(ctx)
		if err != nil {
			return errors.Wrapf(err, "open orders %s", pair.String())
		}
		for _, o := range raw {
			order, err := f.mapOrder(pair, o)
			if err != nil {
				return retrier.Permanent(err)
			}
			fresh = append(fresh, order)
		}
	}

	f.mu.Lock()
	affected := diffOrderAssets(f.orders, fresh)
	f.orders = fresh
	f.mu.Unlock()

	if len(affected) > 0 {
		sink.OrdersChanged(affected)
	}
	return nil
}

// mapOrder converts an exchange order into a snapshot order with the
// remaining (unfilled) quantity, so locked-balance math follows fills.
func (f *BinanceFeed) mapOrder(pair domain.Pair, o *binance.Order) (domain.Order, error) {
	orig, err := decimal.NewFromString(o.OrigQuantity)
	if err != nil {
		return domain.Order{}, errors.Wrap(err, "parse order quantity")
	}
	executed, err := decimal.NewFromString(o.ExecutedQuantity)
	if err != nil {
		return domain.Order{}, errors.Wrap(err, "parse executed quantity")
	}
	price, err := decimal.NewFromString(o.Price)
	if err != nil {
		return domain.Order{}, errors.Wrap(err, "parse order price")
	}

	side := domain.SideAsk
	if o.Side == binance.SideTypeBuy {
		side = domain.SideBid
	}

	return domain.Order{
		ID:       strconv.FormatInt(o.OrderID, 10),
		Pair:     pair,
		Side:     side,
		Quantity: orig.Sub(executed),
		Price:    price,
	}, nil
}

func parseLevel(price, quantity string) (domain.DepthLevel, error) {
	p, err := decimal.NewFromString(price)
	if err != nil {
		return domain.DepthLevel{}, errors.Wrap(err, "parse depth price")
	}
	q, err := decimal.NewFromString(quantity)
	if err != nil {
		return domain.DepthLevel{}, errors.Wrap(err, "parse depth quantity")
	}
	return domain.DepthLevel{Price: p, Quantity: q}, nil
}

// diffOrderAssets lists assets whose locked funds may have moved between
// two order snapshots.
func diffOrderAssets(before, after []domain.Order) []string {
	seen := make(map[string]struct{})
	collect := func(orders []domain.Order) {
		for _, o := range orders {
			if o.Side == domain.SideAsk {
				seen[strings.ToUpper(o.Pair.Base)] = struct{}{}
			} else {
				seen[strings.ToUpper(o.Pair.Quote)] = struct{}{}
			}
		}
	}

	if ordersEqual(before, after) {
		return nil
	}
	collect(before)
	collect(after)

	out := make([]string, 0, len(seen))
	for id := range seen {
		out = append(out, id)
	}
	return out
}

func ordersEqual(a, b []domain.Order) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i].ID != b[i].ID || !a[i].Quantity.Equal(b[i].Quantity) {
			return false
		}
	}
	return true
}
