package domain

import (
	"context"
	"sort"
	"strings"

	"github.com/pkg/errors"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/mercuryex/walletcore/internal/observer"
)

// ErrUnknownAsset is returned when an asset id is not registered.
var ErrUnknownAsset = errors.New("unknown asset")

// Registry owns every Asset of a session. It is the only component allowed
// to mutate asset state; each mutation is fully applied before listeners on
// the observer graph are notified.
type Registry struct {
	graph  *observer.Graph
	assets map[string]*Asset
	order  []*Asset
	l      *zap.Logger
}

// NewRegistry creates an empty registry publishing to graph.
func NewRegistry(graph *observer.Graph, logger *zap.Logger) *Registry {
	return &Registry{
		graph:  graph,
		assets: make(map[string]*Asset),
		l:      logger,
	}
}

// Register adds an asset and assigns its registration index. Registering an
// already known id returns the existing asset unchanged.
func (r *Registry) Register(a *Asset) *Asset {
	key := strings.ToLower(a.ID)
	if existing, ok := r.assets[key]; ok {
		return existing
	}
	a.Index = len(r.order)
	r.assets[key] = a
	r.order = append(r.order, a)
	r.l.Info("asset registered", zap.String("asset", a.ID), zap.Int("index", a.Index))
	return a
}

// Get looks an asset up by id, case-insensitively.
func (r *Registry) Get(id string) (*Asset, bool) {
	a, ok := r.assets[strings.ToLower(id)]
	return a, ok
}

// All returns assets in registration order.
func (r *Registry) All() []*Asset {
	out := make([]*Asset, len(r.order))
	copy(out, r.order)
	sort.SliceStable(out, func(i, j int) bool { return out[i].Index < out[j].Index })
	return out
}

// CanonicalPair orders two assets for trading: the higher-index asset comes
// first (base), the lower-index one second (quote).
func (r *Registry) CanonicalPair(aID, bID string) (base, quote *Asset, err error) {
	a, ok := r.Get(aID)
	if !ok {
		return nil, nil, errors.Wrap(ErrUnknownAsset, aID)
	}
	b, ok := r.Get(bID)
	if !ok {
		return nil, nil, errors.Wrap(ErrUnknownAsset, bID)
	}
	if a.Index < b.Index {
		a, b = b, a
	}
	return a, b, nil
}

// AttachWallet connects the wallet backend to an asset and pulls the first
// balance through it.
func (r *Registry) AttachWallet(ctx context.Context, id string, w WalletController) error {
	a, ok := r.Get(id)
	if !ok {
		return errors.Wrap(ErrUnknownAsset, id)
	}
	a.wallet = w
	r.RefreshBalance(ctx, id)
	return nil
}

// RefreshBalance pulls wallet and pending balances from the backend. When
// the backend is unavailable the asset keeps its last known values.
func (r *Registry) RefreshBalance(ctx context.Context, id string) {
	a, ok := r.Get(id)
	if !ok || a.wallet == nil {
		return
	}

	balance, err := a.wallet.Balance(ctx)
	if err != nil {
		r.l.Warn("balance query failed, keeping last known value",
			zap.String("asset", a.ID), zap.Error(err))
		return
	}
	pending, err := a.wallet.PendingBalance(ctx)
	if err != nil {
		r.l.Warn("pending balance query failed, keeping last known value",
			zap.String("asset", a.ID), zap.Error(err))
		return
	}

	if balance.Equal(a.Balance) && pending.Equal(a.Pending) {
		return
	}
	a.Balance = balance
	a.Pending = pending
	r.graph.Emit(strings.ToLower(a.ID), EventBalance, a)
}

// SetBalance applies a pushed balance update directly, bypassing the wallet
// query. Used when the backend streams balances instead of serving pulls.
func (r *Registry) SetBalance(id string, balance, pending decimal.Decimal) error {
	a, ok := r.Get(id)
	if !ok {
		return errors.Wrap(ErrUnknownAsset, id)
	}
	if balance.Equal(a.Balance) && pending.Equal(a.Pending) {
		return nil
	}
	a.Balance = balance
	a.Pending = pending
	r.graph.Emit(strings.ToLower(a.ID), EventBalance, a)
	return nil
}

// ApplyTransaction merges a pushed transaction by id and refreshes the
// asset's balance.
func (r *Registry) ApplyTransaction(ctx context.Context, id string, tx Transaction) error {
	a, ok := r.Get(id)
	if !ok {
		return errors.Wrap(ErrUnknownAsset, id)
	}

	merged := false
	for i := range a.Transactions {
		if a.Transactions[i].ID == tx.ID {
			a.Transactions[i] = tx
			merged = true
			break
		}
	}
	if !merged {
		a.Transactions = append(a.Transactions, tx)
	}

	r.RefreshBalance(ctx, id)
	r.graph.Emit(strings.ToLower(a.ID), EventTransaction, tx)
	return nil
}

// SetPeers records connectivity progress. The asset flips to connected once
// the peer count reaches the expected maximum and stays connected after.
func (r *Registry) SetPeers(id string, peers, maxPeers int) error {
	a, ok := r.Get(id)
	if !ok {
		return errors.Wrap(ErrUnknownAsset, id)
	}
	a.Peers = peers
	a.MaxPeers = maxPeers
	wasConnected := a.Connected
	a.Connected = a.Connected || peers >= maxPeers
	r.graph.Emit(strings.ToLower(a.ID), EventPeers, a)
	if a.Connected && !wasConnected {
		r.graph.Emit(strings.ToLower(a.ID), EventConnect, a)
	}
	return nil
}

// SyncStarted records the number of blocks the wallet backend will scan.
func (r *Registry) SyncStarted(id string, blocks int) error {
	a, ok := r.Get(id)
	if !ok {
		return errors.Wrap(ErrUnknownAsset, id)
	}
	a.SyncBlocks = blocks
	r.graph.Emit(strings.ToLower(a.ID), EventSyncStart, a)
	return nil
}

// SyncDone marks the wallet backend as fully synced and refreshes balances.
func (r *Registry) SyncDone(ctx context.Context, id string) error {
	a, ok := r.Get(id)
	if !ok {
		return errors.Wrap(ErrUnknownAsset, id)
	}
	a.Synced = true
	r.RefreshBalance(ctx, id)
	r.graph.Emit(strings.ToLower(a.ID), EventSyncDone, a)
	return nil
}

// NewAddress asks the wallet backend for a fresh receive address.
func (r *Registry) NewAddress(ctx context.Context, id string) (string, error) {
	a, ok := r.Get(id)
	if !ok {
		return "", errors.Wrap(ErrUnknownAsset, id)
	}
	if a.wallet == nil {
		return "", errors.Errorf("wallet backend for %s not initialized", a.ID)
	}
	address, err := a.wallet.NewAddress(ctx)
	if err != nil {
		return "", errors.Wrapf(err, "new address for %s", a.ID)
	}
	a.Address = address
	r.graph.Emit(strings.ToLower(a.ID), EventAddress, address)
	return address, nil
}

// Send spends amount to address through the wallet backend after validating
// both against the backend's own rules.
func (r *Registry) Send(ctx context.Context, id, address string, amount decimal.Decimal) error {
	a, ok := r.Get(id)
	if !ok {
		return errors.Wrap(ErrUnknownAsset, id)
	}
	if a.wallet == nil {
		return errors.Errorf("wallet backend for %s not initialized", a.ID)
	}
	if !a.wallet.IsAddressValid(address) {
		return errors.Errorf("invalid %s address", a.ID)
	}
	if err := a.wallet.Send(ctx, address, amount); err != nil {
		return errors.Wrapf(err, "send %s %s", amount, a.ID)
	}
	r.RefreshBalance(ctx, id)
	return nil
}
