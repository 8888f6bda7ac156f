// Package trade keeps an in-progress order entry consistent: price,
// quantity and total are mutually dependent, and every direct edit derives
// the one field the user did not touch.
package trade

import (
	"context"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/mercuryex/walletcore/internal/domain"
	"github.com/mercuryex/walletcore/internal/numeric"
	"github.com/mercuryex/walletcore/internal/observer"
)

// Field names the draft field a user edited last.
type Field int

const (
	FieldNone Field = iota
	FieldPrice
	FieldQuantity
	FieldTotal
)

// Draft change events, emitted on the draft's own topic.
const (
	EventChangePrice    = "change:price"
	EventChangeQuantity = "change:quantity"
	EventChangeTotal    = "change:total"
	EventChangePair     = "change:pair"
	EventChangeSide     = "change:side"
)

// SubmitRequest is the order handed to the exchange backend.
type SubmitRequest struct {
	ClientID string
	Side     domain.Side
	Pair     domain.Pair
	Price    decimal.Decimal
	Quantity decimal.Decimal
	Total    decimal.Decimal
}

// exchange is the slice of the exchange collaborator the draft needs.
// Submission is asynchronous; the outcome arrives through done, never as a
// throw into the dispatch path.
type exchange interface {
	Submit(ctx context.Context, req SubmitRequest, done func(error))
}

// availabler reports spendable balances (wallet minus locked).
type availabler interface {
	Available(assetID string) decimal.Decimal
}

// Draft is the mutable state of one order entry session. Outside of an
// in-flight edit it maintains total == price * quantity exactly.
type Draft struct {
	topic    string
	registry *domain.Registry
	graph    *observer.Graph
	balances availabler
	exchange exchange
	l        *zap.Logger

	base  *domain.Asset
	quote *domain.Asset
	buy   bool

	price    decimal.Decimal
	quantity decimal.Decimal
	total    decimal.Decimal

	lastEdited Field

	subPrice    observer.Subscription
	subQuantity observer.Subscription
	subTotal    observer.Subscription
	closed      bool
}

// NewDraft opens a draft for assetID against its first listed trading
// partner, buying by default.
func NewDraft(registry *domain.Registry, graph *observer.Graph, balances availabler,
	ex exchange, logger *zap.Logger, assetID string) (*Draft, error) {

	d := &Draft{
		topic:    "draft/" + uuid.NewString(),
		registry: registry,
		graph:    graph,
		balances: balances,
		exchange: ex,
		l:        logger,
		buy:      true,
	}

	asset, ok := registry.Get(assetID)
	if !ok {
		return nil, errors.Wrap(domain.ErrUnknownAsset, assetID)
	}
	if len(asset.Pairs) == 0 {
		return nil, errors.Errorf("asset %s has no trading pairs", asset.ID)
	}
	if err := d.SelectPair(asset.ID, asset.Pairs[0]); err != nil {
		return nil, err
	}

	// The draft reconciles itself through the same graph its views listen
	// on. Each derived update is emitted past the listener that would run
	// the reverse derivation, so one edit settles in one pass.
	d.subPrice = graph.On(d.topic, EventChangePrice, func(any) { d.deriveTotal() })
	d.subQuantity = graph.On(d.topic, EventChangeQuantity, func(any) { d.deriveTotal() })
	d.subTotal = graph.On(d.topic, EventChangeTotal, func(any) { d.deriveQuantity() })

	return d, nil
}

// Topic returns the draft's observer topic, for views to subscribe on.
func (d *Draft) Topic() string { return d.topic }

// Pair returns the canonical base and quote assets.
func (d *Draft) Pair() (base, quote *domain.Asset) { return d.base, d.quote }

// Buy reports whether the draft is a buy of the base asset.
func (d *Draft) Buy() bool { return d.buy }

// Price returns the current price field.
func (d *Draft) Price() decimal.Decimal { return d.price }

// Quantity returns the current quantity field.
func (d *Draft) Quantity() decimal.Decimal { return d.quantity }

// Total returns the current total field.
func (d *Draft) Total() decimal.Decimal { return d.total }

// SetBuy flips the draft between buying and selling the base asset.
func (d *Draft) SetBuy(buy bool) {
	if d.buy == buy {
		return
	}
	d.buy = buy
	d.graph.Emit(d.topic, EventChangeSide, buy)
}

// SelectPair points the draft at a new pair. The selected asset keeps its
// place; if it cannot trade against counterID the draft falls back to the
// selected asset's first listed partner. Storage order is canonical:
// higher registration index first.
func (d *Draft) SelectPair(selectedID, counterID string) error {
	selected, ok := d.registry.Get(selectedID)
	if !ok {
		return errors.Wrap(domain.ErrUnknownAsset, selectedID)
	}
	if !selected.TradesWith(counterID) {
		if len(selected.Pairs) == 0 {
			return errors.Errorf("asset %s has no trading pairs", selected.ID)
		}
		counterID = selected.Pairs[0]
	}

	base, quote, err := d.registry.CanonicalPair(selected.ID, counterID)
	if err != nil {
		return err
	}
	d.base, d.quote = base, quote
	d.graph.Emit(d.topic, EventChangePair, domain.Pair{Base: base.ID, Quote: quote.ID})
	return nil
}

// SetPrice applies a direct price edit and derives the total.
// Malformed input is rejected without touching the draft.
func (d *Draft) SetPrice(input string) error {
	v, err := numeric.Parse(input)
	if err != nil {
		return err
	}
	d.price = v
	d.lastEdited = FieldPrice
	d.graph.Emit(d.topic, EventChangePrice, v)
	return nil
}

// SetQuantity applies a direct quantity edit and derives the total.
func (d *Draft) SetQuantity(input string) error {
	v, err := numeric.Parse(input)
	if err != nil {
		return err
	}
	d.quantity = v
	d.lastEdited = FieldQuantity
	d.graph.Emit(d.topic, EventChangeQuantity, v)
	return nil
}

// SetTotal applies a direct total edit and derives the quantity.
func (d *Draft) SetTotal(input string) error {
	v, err := numeric.Parse(input)
	if err != nil {
		return err
	}
	d.total = v
	d.lastEdited = FieldTotal
	d.graph.Emit(d.topic, EventChangeTotal, v)
	return nil
}

// deriveTotal recomputes total = price * quantity after a price or quantity
// edit. The update is quiet toward the total listener, which would
// otherwise re-derive quantity from the value just computed.
func (d *Draft) deriveTotal() {
	d.total = numeric.Mul(d.price, d.quantity)
	d.graph.EmitExcept(d.topic, EventChangeTotal, d.total, d.subTotal)
}

// deriveQuantity recomputes quantity = total / price after a total edit.
// With no price yet there is nothing to derive; the edit stands alone until
// a price arrives.
func (d *Draft) deriveQuantity() {
	q, err := numeric.Div(d.total, d.price)
	if err != nil {
		return
	}
	d.quantity = q
	d.graph.EmitExcept(d.topic, EventChangeQuantity, d.quantity, d.subQuantity)
}

// Reset clears the value fields, e.g. after a successful submission.
func (d *Draft) Reset() {
	d.price = decimal.Zero
	d.quantity = decimal.Zero
	d.total = decimal.Zero
	d.lastEdited = FieldNone
	d.graph.EmitExcept(d.topic, EventChangePrice, d.price, d.subPrice)
	d.graph.EmitExcept(d.topic, EventChangeQuantity, d.quantity, d.subQuantity)
	d.graph.EmitExcept(d.topic, EventChangeTotal, d.total, d.subTotal)
}

// Close revokes the draft's reconcile listeners; the draft must not be used
// afterwards.
func (d *Draft) Close() {
	if d.closed {
		return
	}
	d.closed = true
	d.graph.Off(d.subPrice)
	d.graph.Off(d.subQuantity)
	d.graph.Off(d.subTotal)
}

// Submit validates the draft and hands it to the exchange backend. The
// asynchronous outcome is delivered through done. On validation failure the
// error is returned immediately and nothing is submitted.
func (d *Draft) Submit(ctx context.Context, done func(error)) error {
	if d.closed {
		return errors.New("draft is closed")
	}
	if d.quantity.IsZero() || d.total.IsZero() {
		return errors.New("draft is empty")
	}
	if verr := d.Validate(); verr != nil {
		return verr
	}

	side := domain.SideAsk
	if d.buy {
		side = domain.SideBid
	}
	req := SubmitRequest{
		ClientID: uuid.NewString(),
		Side:     side,
		Pair:     domain.Pair{Base: d.base.ID, Quote: d.quote.ID},
		Price:    d.price,
		Quantity: d.quantity,
		Total:    d.total,
	}

	d.l.Info("submitting order",
		zap.String("pair", req.Pair.String()),
		zap.String("side", side.String()),
		zap.String("quantity", numeric.Format(req.Quantity)),
		zap.String("total", numeric.Format(req.Total)))

	d.exchange.Submit(ctx, req, done)
	return nil
}

// estimatedFee is the fixed spend-side fee heuristic: twice the base fee of
// the asset being spent.
func estimatedFee(spend *domain.Asset) decimal.Decimal {
	return numeric.Mul(spend.Fee, decimal.NewFromInt(2))
}
