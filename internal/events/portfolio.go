package events

import (
	"sync"
	"time"
)

// AssetPosition is one asset's row in a portfolio snapshot. String fields
// avoid float precision issues when consumed by web/UI layers.
type AssetPosition struct {
	ID        string `json:"id"`
	Balance   string `json:"balance"`
	Pending   string `json:"pending,omitempty"`
	Available string `json:"available"`
	Locked    string `json:"locked,omitempty"`
	Value     string `json:"value"`
}

// PortfolioSnapshot is a domain event carrying the valued portfolio state.
type PortfolioSnapshot struct {
	Timestamp time.Time       `json:"ts"`
	Base      string          `json:"base"`
	Total     string          `json:"total"`
	Assets    []AssetPosition `json:"assets,omitempty"`
}

// TrendReading is the latest smoothed-price and momentum reading for one
// trading pair, for the asset detail chart.
type TrendReading struct {
	Pair string `json:"pair"`
	EMA  string `json:"ema"`
	RSI  string `json:"rsi"`
}

// PortfolioSnapshotRecord bundles a snapshot with its journal index.
type PortfolioSnapshotRecord struct {
	Index    uint64
	Snapshot PortfolioSnapshot
}

// PortfolioBroadcaster fans out snapshots to subscribers via buffered
// channels, bridging the synchronous observer graph to goroutine consumers
// like the SSE dashboard.
type PortfolioBroadcaster struct {
	mu     sync.RWMutex
	subs   map[chan PortfolioSnapshot]struct{}
	buffer int
}

// NewPortfolioBroadcaster creates a broadcaster with the given
// per-subscriber buffer.
func NewPortfolioBroadcaster(buffer int) *PortfolioBroadcaster {
	if buffer < 1 {
		buffer = 64
	}
	return &PortfolioBroadcaster{
		subs:   make(map[chan PortfolioSnapshot]struct{}),
		buffer: buffer,
	}
}

// Publish sends the snapshot to all subscribers, dropping if a reader is
// slow; the dispatch goroutine must never block on a consumer.
func (b *PortfolioBroadcaster) Publish(s PortfolioSnapshot) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	for ch := range b.subs {
		select {
		case ch <- s:
		default:
		}
	}
}

// Subscribe returns a channel receiving snapshots until Unsubscribe.
func (b *PortfolioBroadcaster) Subscribe() chan PortfolioSnapshot {
	ch := make(chan PortfolioSnapshot, b.buffer)
	b.mu.Lock()
	b.subs[ch] = struct{}{}
	b.mu.Unlock()
	return ch
}

// Unsubscribe removes the channel and closes it.
func (b *PortfolioBroadcaster) Unsubscribe(ch chan PortfolioSnapshot) {
	b.mu.Lock()
	if _, ok := b.subs[ch]; ok {
		delete(b.subs, ch)
		close(ch)
	}
	b.mu.Unlock()
}
