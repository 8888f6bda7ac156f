package trade

import (
	"fmt"

	"github.com/mercuryex/walletcore/internal/numeric"
)

// ValidationKind classifies why a draft was rejected.
type ValidationKind int

const (
	// KindInsufficientBalance means the spend amount plus the estimated
	// fee exceeds the spendable balance.
	KindInsufficientBalance ValidationKind = iota
	// KindBelowMinimum means quantity or total is under the asset's
	// minimum order size.
	KindBelowMinimum
)

// ValidationError carries the single human-readable reason a draft cannot
// be submitted. It is a value inspected by the caller, never thrown into
// the event dispatch path.
type ValidationError struct {
	Kind   ValidationKind
	Reason string
}

func (e *ValidationError) Error() string { return e.Reason }

// Validate checks the draft against balances and minimum order sizes,
// returning at most one reason. The balance check takes priority over the
// minimum-size checks.
func (d *Draft) Validate() *ValidationError {
	// an untouched draft is not an error, just not submittable yet
	if d.quantity.IsZero() && d.total.IsZero() {
		return nil
	}

	spend := d.base
	spendAmount := d.quantity
	if d.buy {
		spend = d.quote
		spendAmount = d.total
	}

	needed := numeric.Add(spendAmount, estimatedFee(spend))
	available := d.balances.Available(spend.ID)
	if numeric.Compare(needed, available) > 0 {
		return &ValidationError{
			Kind: KindInsufficientBalance,
			Reason: fmt.Sprintf("not enough %s: need %s (incl. fee), have %s",
				spend.ID, numeric.Format(needed), numeric.Format(available)),
		}
	}

	if numeric.Compare(d.quantity, d.base.Fee) < 0 {
		return &ValidationError{
			Kind: KindBelowMinimum,
			Reason: fmt.Sprintf("minimum order is %s %s",
				numeric.Format(d.base.Fee), d.base.ID),
		}
	}
	if numeric.Compare(d.total, d.quote.Fee) < 0 {
		return &ValidationError{
			Kind: KindBelowMinimum,
			Reason: fmt.Sprintf("minimum order is %s %s",
				numeric.Format(d.quote.Fee), d.quote.ID),
		}
	}

	return nil
}
