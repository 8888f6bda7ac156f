package internal

import (
	"context"
	"strings"
	"time"

	"github.com/pkg/errors"
	"go.uber.org/zap"

	"github.com/mercuryex/walletcore/internal/clients"
	"github.com/mercuryex/walletcore/internal/domain"
	"github.com/mercuryex/walletcore/internal/events"
	"github.com/mercuryex/walletcore/internal/navigation"
	"github.com/mercuryex/walletcore/internal/numeric"
	"github.com/mercuryex/walletcore/internal/observer"
	"github.com/mercuryex/walletcore/internal/services/balance"
	"github.com/mercuryex/walletcore/internal/services/trade"
	"github.com/mercuryex/walletcore/pkg/indicators"
)

const (
	dispatchQueueSize      = 256
	defaultBalanceInterval = 30 * time.Second
	trendPeriod            = 14
)

// SnapshotStore persists portfolio snapshots; nil means the session runs
// without a journal.
type SnapshotStore interface {
	Save(snapshot events.PortfolioSnapshot) error
}

// Session is the state layer of one wallet run. All asset and draft state is
// owned by a single dispatch goroutine: backend callbacks and external
// callers post closures to it, listeners on the observer graph run on it,
// and nothing else touches the state.
type Session struct {
	graph       *observer.Graph
	registry    *domain.Registry
	aggregator  *balance.Aggregator
	history     *navigation.History
	feed        *clients.BinanceFeed
	broadcaster *events.PortfolioBroadcaster
	store       SnapshotStore
	l           *zap.Logger

	base            string
	balanceInterval time.Duration
	inbox           chan func()
}

// SessionParams bundles the collaborators a session dispatches over.
type SessionParams struct {
	Graph       *observer.Graph
	Registry    *domain.Registry
	Aggregator  *balance.Aggregator
	History     *navigation.History
	Feed        *clients.BinanceFeed
	Broadcaster *events.PortfolioBroadcaster
	Store       SnapshotStore
	Logger      *zap.Logger

	// BaseAssetID is the asset the portfolio is valued in.
	BaseAssetID string
	// BalanceInterval is how often wallet balances are re-pulled.
	BalanceInterval time.Duration
}

// NewSession assembles a session from its collaborators.
func NewSession(p SessionParams) (*Session, error) {
	if p.Graph == nil || p.Registry == nil || p.Aggregator == nil {
		return nil, errors.New("session requires graph, registry and aggregator")
	}
	if p.BaseAssetID == "" {
		return nil, errors.New("session requires a base asset")
	}
	if p.BalanceInterval <= 0 {
		p.BalanceInterval = defaultBalanceInterval
	}

	s := &Session{
		graph:           p.Graph,
		registry:        p.Registry,
		aggregator:      p.Aggregator,
		history:         p.History,
		feed:            p.Feed,
		broadcaster:     p.Broadcaster,
		l:               p.Logger,
		base:            strings.ToLower(p.BaseAssetID),
		balanceInterval: p.BalanceInterval,
		store:           p.Store,
		inbox:           make(chan func(), dispatchQueueSize),
	}
	return s, nil
}

// Run binds the aggregator, starts the market feed and processes dispatched
// work until ctx is cancelled.
func (s *Session) Run(ctx context.Context) error {
	s.aggregator.Bind()
	defer s.aggregator.Close()

	sub := s.graph.On(domain.TopicPortfolio, domain.EventPortfolioChange, func(any) {
		s.publishSnapshot()
	})
	defer s.graph.Off(sub)

	if s.feed != nil {
		go func() {
			if err := s.feed.Run(ctx, s); err != nil && !errors.Is(err, context.Canceled) {
				s.l.Error("market feed stopped", zap.Error(err))
			}
		}()
	}

	balances := time.NewTicker(s.balanceInterval)
	defer balances.Stop()

	s.refreshBalances(ctx)

	for {
		select {
		case <-ctx.Done():
			if s.history != nil {
				s.history.Close()
			}
			return ctx.Err()
		case <-balances.C:
			s.refreshBalances(ctx)
		case fn := <-s.inbox:
			fn()
		}
	}
}

// Dispatch schedules fn on the session's state goroutine.
func (s *Session) Dispatch(fn func()) {
	s.inbox <- fn
}

// call runs fn on the state goroutine and waits for it to finish.
func (s *Session) call(fn func()) {
	done := make(chan struct{})
	s.inbox <- func() {
		defer close(done)
		fn()
	}
	<-done
}

// TickerUpdated implements the feed sink: ticker changes become market
// events on the state goroutine.
func (s *Session) TickerUpdated(t domain.Ticker) {
	s.Dispatch(func() {
		s.graph.Emit(domain.TopicMarket, domain.TickerEvent(t.Pair), t)
	})
}

// OrdersChanged implements the feed sink for open-order-set changes.
func (s *Session) OrdersChanged(affectedAssets []string) {
	s.Dispatch(func() {
		s.graph.Emit(domain.TopicMarket, domain.EventOrdersChange, affectedAssets)
	})
}

// NewDraft creates an order-entry draft for the asset on the state
// goroutine, so its reconciliation listeners never race other mutations.
// A feed is required: without one there is no exchange to submit to.
func (s *Session) NewDraft(assetID string) (*trade.Draft, error) {
	if s.feed == nil {
		return nil, errors.New("no market feed attached")
	}

	var (
		draft *trade.Draft
		err   error
	)
	s.call(func() {
		draft, err = trade.NewDraft(s.registry, s.graph, s.aggregator, s.feed, s.l, assetID)
	})
	return draft, err
}

// Positions reports every asset's balances and portfolio contribution.
// Safe to call from any goroutine.
func (s *Session) Positions() []events.AssetPosition {
	var out []events.AssetPosition
	s.call(func() {
		for _, a := range s.registry.All() {
			out = append(out, events.AssetPosition{
				ID:        a.ID,
				Balance:   numeric.Format(a.Balance),
				Pending:   numeric.Format(a.Pending),
				Available: numeric.Format(s.aggregator.Available(a.ID)),
				Locked:    numeric.Format(s.aggregator.LockedBalance(a.ID)),
				Value:     numeric.Format(s.aggregator.Contribution(a.ID)),
			})
		}
	})
	return out
}

// Depth fetches the current order book for the pair and announces it on
// the market topic for any listening views.
func (s *Session) Depth(ctx context.Context, pair domain.Pair, levels int) (domain.Depth, error) {
	if s.feed == nil {
		return domain.Depth{}, errors.New("no market feed attached")
	}
	depth, err := s.feed.Depth(ctx, pair, levels)
	if err != nil {
		return domain.Depth{}, err
	}
	s.Dispatch(func() {
		s.graph.Emit(domain.TopicMarket, domain.EventDepth, depth)
	})
	return depth, nil
}

// Trends reports the latest indicator readings for every tracked pair.
// Pairs whose history has not warmed up yet are skipped.
func (s *Session) Trends() []events.TrendReading {
	if s.feed == nil {
		return nil
	}

	var out []events.TrendReading
	s.call(func() {
		for _, a := range s.registry.All() {
			if strings.ToLower(a.ID) == s.base {
				continue
			}
			pair := domain.Pair{Base: a.ID, Quote: strings.ToUpper(s.base)}
			ticker, ok := s.feed.Ticker(pair)
			if !ok {
				continue
			}
			reading, err := indicators.Latest(ticker.History, trendPeriod)
			if err != nil {
				continue
			}
			out = append(out, events.TrendReading{
				Pair: pair.ID(),
				EMA:  numeric.Format(reading.EMA),
				RSI:  numeric.Format(reading.RSI),
			})
		}
	})
	return out
}

// History returns the navigation history owned by the session, or nil when
// none was configured.
func (s *Session) History() *navigation.History {
	return s.history
}

// AttachWallet connects a wallet backend to an asset on the state goroutine.
func (s *Session) AttachWallet(ctx context.Context, assetID string, w domain.WalletController) error {
	var err error
	s.call(func() {
		err = s.registry.AttachWallet(ctx, assetID, w)
	})
	return err
}

// refreshBalances re-pulls every wallet balance. Runs on the state
// goroutine (called only from Run's loop).
func (s *Session) refreshBalances(ctx context.Context) {
	for _, a := range s.registry.All() {
		s.registry.RefreshBalance(ctx, a.ID)
	}
}

// publishSnapshot values the portfolio and hands the snapshot to the
// broadcaster and the journal. Runs on the state goroutine.
func (s *Session) publishSnapshot() {
	snapshot := events.PortfolioSnapshot{
		Timestamp: time.Now(),
		Base:      strings.ToUpper(s.base),
		Total:     numeric.Format(s.aggregator.PortfolioValue()),
	}
	for _, a := range s.registry.All() {
		snapshot.Assets = append(snapshot.Assets, events.AssetPosition{
			ID:        a.ID,
			Balance:   numeric.Format(a.Balance),
			Pending:   numeric.Format(a.Pending),
			Available: numeric.Format(s.aggregator.Available(a.ID)),
			Locked:    numeric.Format(s.aggregator.LockedBalance(a.ID)),
			Value:     numeric.Format(s.aggregator.Contribution(a.ID)),
		})
	}

	if s.broadcaster != nil {
		s.broadcaster.Publish(snapshot)
	}
	if s.store != nil {
		if err := s.store.Save(snapshot); err != nil {
			s.l.Warn("portfolio snapshot not persisted", zap.Error(err))
		}
	}
}
