package domain

import "fmt"

// PageKind enumerates the application's navigable pages. Keeping this a
// closed set means page dispatch is exhaustive instead of failing on an
// unmatched string identifier at runtime.
type PageKind int

const (
	PageOverview PageKind = iota
	PageAsset
	PageTrade
	PageSend
	PageReceive
	PageTransactions
)

// Page is a navigation entry: a page kind plus its arguments.
type Page struct {
	Kind    PageKind
	AssetID string
	Pair    Pair
}

// String returns a stable identifier for logging and history entries.
func (p Page) String() string {
	switch p.Kind {
	case PageOverview:
		return "overview"
	case PageAsset:
		return fmt.Sprintf("asset/%s", p.AssetID)
	case PageTrade:
		return fmt.Sprintf("trade/%s", p.Pair.ID())
	case PageSend:
		return fmt.Sprintf("send/%s", p.AssetID)
	case PageReceive:
		return fmt.Sprintf("receive/%s", p.AssetID)
	case PageTransactions:
		return fmt.Sprintf("transactions/%s", p.AssetID)
	}
	return "overview"
}
