package domain

// Event names dispatched through the observer graph. Per-asset events use
// the lowercase asset id as topic; market-wide events use TopicMarket.
const (
	TopicMarket    = "market"
	TopicPortfolio = "portfolio"

	EventBalance      = "balance"
	EventAvailable    = "available"
	EventTransaction  = "transaction"
	EventPeers        = "peers:connected"
	EventSyncStart    = "sync:start"
	EventSyncDone     = "sync:done"
	EventAddress      = "address"
	EventOrdersChange = "orders:change"
	EventDepth        = "depth"
	EventConnect      = "connect"

	EventPortfolioChange = "change"
)

// TickerEvent returns the market event name carrying ticker updates for a
// pair, e.g. "ticker:ltc/btc".
func TickerEvent(p Pair) string {
	return "ticker:" + p.ID()
}
