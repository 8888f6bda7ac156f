// Package domain defines the core data structures of the wallet state layer.
package domain

import (
	"fmt"
	"strings"
)

// Pair is a trading pair: Base is the asset being bought or sold, Quote is
// the asset it is priced in.
type Pair struct {
	Base  string
	Quote string
}

// ID returns the lowercase identifier used for event names and book keys.
func (p Pair) ID() string {
	return strings.ToLower(p.Base) + "/" + strings.ToLower(p.Quote)
}

// String returns the display representation.
func (p Pair) String() string {
	return fmt.Sprintf("%s/%s", p.Base, p.Quote)
}

// Symbol returns the concatenated exchange symbol, e.g. LTCBTC.
func (p Pair) Symbol() string {
	return p.Base + p.Quote
}
