package match

import (
	"context"
	"runtime"
	"sync"
	"sync/atomic"

	"github.com/shopspring/decimal"
)

// executionUnit is the per-instrument shard: one order book, one private
// FIFO of pending commands, and a busy flag. The dispatcher only submits a
// unit's next command after winning the flag, so the book is never touched
// by two workers at once.
type executionUnit struct {
	symbol string
	book   *OrderBook
	tasks  *TaskQueue[func()]
	busy   atomic.Bool
}

// ManagerOption configures an OrderBookManager.
type ManagerOption func(*OrderBookManager)

// WithWorkerCount sets the shared pool size. Defaults to the available
// hardware parallelism.
func WithWorkerCount(n int) ManagerOption {
	return func(m *OrderBookManager) {
		m.workers = n
	}
}

// WithQueueCapacity sets the per-instrument command queue capacity.
func WithQueueCapacity(n int) ManagerOption {
	return func(m *OrderBookManager) {
		if n > 0 {
			m.queueCapacity = n
		}
	}
}

// WithIDGenerator replaces the id generator used by the modify path.
func WithIDGenerator(g IDGenerator) ManagerOption {
	return func(m *OrderBookManager) {
		if g != nil {
			m.idGen = g
		}
	}
}

// WithPublishTrader installs a downstream sink for produced trades.
func WithPublishTrader(p PublishTrader) ManagerOption {
	return func(m *OrderBookManager) {
		if p != nil {
			m.publishTrader = p
		}
	}
}

// OrderBookManager shards order books across a fixed worker pool. Commands
// for one symbol execute in submission order with at most one active
// executor; commands for different symbols run fully in parallel. Symbols
// are opaque case-sensitive keys and lazily create their book on first use;
// units are never evicted while the manager lives.
type OrderBookManager struct {
	mu    sync.RWMutex
	units map[string]*executionUnit
	scan  []*executionUnit

	pool          *WorkerPool
	idGen         IDGenerator
	publishTrader PublishTrader
	workers       int
	queueCapacity int

	isShutdown     atomic.Bool
	shutdownOnce   sync.Once
	done           chan struct{}
	dispatcherDone chan struct{}
}

// NewOrderBookManager creates a manager. Call Start before submitting
// commands.
func NewOrderBookManager(opts ...ManagerOption) *OrderBookManager {
	m := &OrderBookManager{
		units:          make(map[string]*executionUnit),
		idGen:          NewXIDGenerator(),
		publishTrader:  NewDiscardPublishTrader(),
		queueCapacity:  1024,
		done:           make(chan struct{}),
		dispatcherDone: make(chan struct{}),
	}

	for _, opt := range opts {
		opt(m)
	}

	m.pool = NewWorkerPool(m.workers, 4096)

	return m
}

// Start launches the worker pool and the dispatcher loop.
func (m *OrderBookManager) Start() {
	m.pool.Start()
	go m.dispatchLoop()
}

// AddOrder submits an order for the symbol's book. The returned future
// resolves with the trades produced once the command has executed.
func (m *OrderBookManager) AddOrder(ctx context.Context, symbol string, order *Order) (*Future[[]*Trade], error) {
	if order == nil {
		return nil, ErrInvalidParam
	}

	unit, err := m.route(symbol)
	if err != nil {
		return nil, err
	}

	fut := newFuture[[]*Trade]()
	task := func() {
		defer m.recoverCommand(symbol, func() { fut.resolve(nil, ErrInternal) })

		trades, err := unit.book.AddOrder(order)
		if err == nil && len(trades) > 0 {
			m.publishTrader.PublishTrades(trades...)
		}
		fut.resolve(trades, err)
	}

	if err := unit.tasks.Push(ctx, task); err != nil {
		return nil, err
	}
	return fut, nil
}

// ModifyOrder cancels the resting order and re-adds it as a brand-new order
// with the requested side, price and quantity. Unknown ids resolve as a
// no-op, the same discipline as CancelOrder.
func (m *OrderBookManager) ModifyOrder(ctx context.Context, symbol string, orderID string, side Side, price decimal.Decimal, quantity decimal.Decimal) (*Future[[]*Trade], error) {
	if len(orderID) == 0 {
		return nil, ErrInvalidParam
	}

	unit, err := m.route(symbol)
	if err != nil {
		return nil, err
	}

	fut := newFuture[[]*Trade]()
	task := func() {
		defer m.recoverCommand(symbol, func() { fut.resolve(nil, ErrInternal) })

		trades, err := unit.book.ModifyOrder(orderID, side, price, quantity)
		if err == nil && len(trades) > 0 {
			m.publishTrader.PublishTrades(trades...)
		}
		fut.resolve(trades, err)
	}

	if err := unit.tasks.Push(ctx, task); err != nil {
		return nil, err
	}
	return fut, nil
}

// CancelOrder removes a resting order. Unknown ids are a no-op; the future
// resolves once the command has executed.
func (m *OrderBookManager) CancelOrder(ctx context.Context, symbol string, orderID string) (*Future[struct{}], error) {
	if len(orderID) == 0 {
		return nil, ErrInvalidParam
	}

	unit, err := m.route(symbol)
	if err != nil {
		return nil, err
	}

	fut := newFuture[struct{}]()
	task := func() {
		defer m.recoverCommand(symbol, func() { fut.resolve(struct{}{}, ErrInternal) })

		unit.book.CancelOrder(orderID)
		fut.resolve(struct{}{}, nil)
	}

	if err := unit.tasks.Push(ctx, task); err != nil {
		return nil, err
	}
	return fut, nil
}

// GetOrderBookInfo returns the per-side price-level snapshot. The query is
// routed through the same per-instrument serialization as mutating
// commands, so the snapshot is always consistent with some prefix of the
// submitted command sequence.
func (m *OrderBookManager) GetOrderBookInfo(ctx context.Context, symbol string) (*OrderBookLevelInfo, error) {
	unit, err := m.route(symbol)
	if err != nil {
		return nil, err
	}

	fut := newFuture[*OrderBookLevelInfo]()
	task := func() {
		defer m.recoverCommand(symbol, func() { fut.resolve(nil, ErrInternal) })

		fut.resolve(unit.book.LevelInfo(), nil)
	}

	if err := unit.tasks.Push(ctx, task); err != nil {
		return nil, err
	}
	return fut.Wait(ctx)
}

// GetStats returns depth and order counts for the symbol's book, routed
// through the unit queue like every other command.
func (m *OrderBookManager) GetStats(ctx context.Context, symbol string) (*BookStats, error) {
	unit, err := m.route(symbol)
	if err != nil {
		return nil, err
	}

	fut := newFuture[*BookStats]()
	task := func() {
		defer m.recoverCommand(symbol, func() { fut.resolve(nil, ErrInternal) })

		fut.resolve(unit.book.Stats(), nil)
	}

	if err := unit.tasks.Push(ctx, task); err != nil {
		return nil, err
	}
	return fut.Wait(ctx)
}

// Shutdown stops intake, waits for every queued command to execute, then
// stops the dispatcher and the pool.
func (m *OrderBookManager) Shutdown(ctx context.Context) error {
	m.isShutdown.Store(true)

	for !m.idle() {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
			runtime.Gosched()
		}
	}

	m.shutdownOnce.Do(func() {
		close(m.done)
	})

	select {
	case <-m.dispatcherDone:
	case <-ctx.Done():
		return ctx.Err()
	}

	return m.pool.Shutdown(ctx)
}

// route resolves or lazily creates the execution unit for a symbol. The
// registry lock is only held for the lookup, never during command execution.
func (m *OrderBookManager) route(symbol string) (*executionUnit, error) {
	if m.isShutdown.Load() {
		return nil, ErrShutdown
	}

	if len(symbol) == 0 {
		return nil, ErrInvalidParam
	}

	m.mu.RLock()
	unit, ok := m.units[symbol]
	m.mu.RUnlock()
	if ok {
		return unit, nil
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if unit, ok := m.units[symbol]; ok {
		return unit, nil
	}

	unit = &executionUnit{
		symbol: symbol,
		book:   NewOrderBook(symbol, m.idGen),
		tasks:  NewTaskQueue[func()](m.queueCapacity),
	}
	m.units[symbol] = unit
	m.scan = append(m.scan, unit)

	return unit, nil
}

// dispatchLoop continuously scans all units. For each idle unit with
// pending work it wins the busy flag, hands exactly one command to the
// shared pool and lets the wrapper release the flag on completion. Units
// whose flag is already taken are skipped this pass.
func (m *OrderBookManager) dispatchLoop() {
	defer close(m.dispatcherDone)

	for {
		select {
		case <-m.done:
			return
		default:
		}

		m.mu.RLock()
		units := m.scan
		m.mu.RUnlock()

		for _, unit := range units {
			if !unit.busy.CompareAndSwap(false, true) {
				continue
			}

			task, ok := unit.tasks.TryPop()
			if !ok {
				unit.busy.Store(false)
				continue
			}

			u := unit
			err := m.pool.Submit(func() {
				defer u.busy.Store(false)
				task()
			})
			if err != nil {
				// Pool is shutting down; run inline so the command and its
				// future never vanish.
				task()
				u.busy.Store(false)
			}
		}

		runtime.Gosched()
	}
}

// idle reports whether no unit has queued or in-flight work.
func (m *OrderBookManager) idle() bool {
	m.mu.RLock()
	defer m.mu.RUnlock()

	for _, unit := range m.scan {
		if unit.tasks.Len() > 0 || unit.busy.Load() {
			return false
		}
	}

	return true
}

func (m *OrderBookManager) recoverCommand(symbol string, resolve func()) {
	if r := recover(); r != nil {
		logger.Error("manager: command panicked", "symbol", symbol, "panic", r)
		resolve()
	}
}
