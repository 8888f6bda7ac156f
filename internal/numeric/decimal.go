// Package numeric provides exact decimal arithmetic for wallet amounts.
//
// All amounts in the state layer move through this package as decimal
// strings or decimal.Decimal values; nothing is ever round-tripped through
// a binary float. Division is truncated at a fixed precision so repeated
// derivations (total -> quantity -> total) stay stable.
package numeric

import (
	"fmt"
	"strings"

	"github.com/pkg/errors"
	"github.com/shopspring/decimal"
)

// DivPrecision is the number of fractional digits kept by Div.
// Matches the smallest unit wallets account in (1e-8).
const DivPrecision = 8

// ErrDivisionByZero is returned by Div when the divisor is zero.
var ErrDivisionByZero = errors.New("division by zero")

// ParseError reports a malformed numeric input string.
type ParseError struct {
	Input string
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("malformed decimal %q", e.Input)
}

// Parse converts a decimal string into an exact decimal value.
func Parse(s string) (decimal.Decimal, error) {
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Decimal{}, &ParseError{Input: s}
	}
	return d, nil
}

// Add returns a + b.
func Add(a, b decimal.Decimal) decimal.Decimal {
	return a.Add(b)
}

// Sub returns a - b.
func Sub(a, b decimal.Decimal) decimal.Decimal {
	return a.Sub(b)
}

// Mul returns a * b.
func Mul(a, b decimal.Decimal) decimal.Decimal {
	return a.Mul(b)
}

// Div returns a / b truncated to DivPrecision fractional digits.
// The truncation (not rounding) keeps derived amounts spendable: a value
// shown to the user is never larger than what the wallet holds.
func Div(a, b decimal.Decimal) (decimal.Decimal, error) {
	if b.IsZero() {
		return decimal.Decimal{}, ErrDivisionByZero
	}
	return a.DivRound(b, DivPrecision+1).Truncate(DivPrecision), nil
}

// Compare returns -1, 0 or 1 as a is less than, equal to or greater than b.
func Compare(a, b decimal.Decimal) int {
	return a.Cmp(b)
}

// Truncate drops fractional digits beyond places, flooring toward zero.
func Truncate(a decimal.Decimal, places int32) decimal.Decimal {
	return a.Truncate(places)
}

// Format renders a value for display: fractional part truncated to
// DivPrecision, trailing zeros trimmed.
func Format(a decimal.Decimal) string {
	return canonical(a.Truncate(DivPrecision))
}

// canonical strips trailing fractional zeros so equal values render equally
// regardless of the exponent they were computed at.
func canonical(d decimal.Decimal) string {
	s := d.String()
	if !strings.Contains(s, ".") {
		return s
	}
	s = strings.TrimRight(s, "0")
	return strings.TrimSuffix(s, ".")
}

// AddStrings adds two decimal strings, returning the exact sum as a string.
func AddStrings(a, b string) (string, error) {
	da, err := Parse(a)
	if err != nil {
		return "", err
	}
	db, err := Parse(b)
	if err != nil {
		return "", err
	}
	return canonical(da.Add(db)), nil
}

// MulStrings multiplies two decimal strings, returning the exact product.
func MulStrings(a, b string) (string, error) {
	da, err := Parse(a)
	if err != nil {
		return "", err
	}
	db, err := Parse(b)
	if err != nil {
		return "", err
	}
	return canonical(da.Mul(db)), nil
}

// DivStrings divides two decimal strings at the fixed Div precision.
func DivStrings(a, b string) (string, error) {
	da, err := Parse(a)
	if err != nil {
		return "", err
	}
	db, err := Parse(b)
	if err != nil {
		return "", err
	}
	q, err := Div(da, db)
	if err != nil {
		return "", err
	}
	return canonical(q), nil
}

// CompareStrings compares two decimal strings exactly.
func CompareStrings(a, b string) (int, error) {
	da, err := Parse(a)
	if err != nil {
		return 0, err
	}
	db, err := Parse(b)
	if err != nil {
		return 0, err
	}
	return da.Cmp(db), nil
}
