package match

import "sync"

// PublishTrader receives every trade sequence produced by command execution.
// Implementations must be safe for concurrent use: different instruments
// publish from different workers.
type PublishTrader interface {
	PublishTrades(...*Trade)
}

// MemoryPublishTrader stores trades in memory, useful for testing.
type MemoryPublishTrader struct {
	mu     sync.RWMutex
	Trades []*Trade
}

// NewMemoryPublishTrader creates a new MemoryPublishTrader.
func NewMemoryPublishTrader() *MemoryPublishTrader {
	return &MemoryPublishTrader{
		Trades: make([]*Trade, 0),
	}
}

// PublishTrades appends trades to the in-memory slice.
func (m *MemoryPublishTrader) PublishTrades(trades ...*Trade) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Trades = append(m.Trades, trades...)
}

// Count returns the number of trades stored.
func (m *MemoryPublishTrader) Count() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.Trades)
}

// Get returns the trade at the specified index.
func (m *MemoryPublishTrader) Get(index int) *Trade {
	m.mu.RLock()
	defer m.mu.RUnlock()

	return m.Trades[index]
}

// DiscardPublishTrader drops all trades, useful for benchmarking.
type DiscardPublishTrader struct {
}

// NewDiscardPublishTrader creates a new DiscardPublishTrader.
func NewDiscardPublishTrader() *DiscardPublishTrader {
	return &DiscardPublishTrader{}
}

// PublishTrades does nothing.
func (p *DiscardPublishTrader) PublishTrades(trades ...*Trade) {

}
