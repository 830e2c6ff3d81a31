package match

import (
	"github.com/shopspring/decimal"
)

// OrderBookLevelInfo is a read-only snapshot of the per-side price-level
// aggregates, best price first.
type OrderBookLevelInfo struct {
	Bids []PriceLevel `json:"bids"`
	Asks []PriceLevel `json:"asks"`
}

// BookStats contains usage statistics about the order book sides.
type BookStats struct {
	AskDepthCount int64
	AskOrderCount int64
	BidDepthCount int64
	BidOrderCount int64
}

// OrderBook is the matching core for a single instrument. It has strict
// single-threaded semantics: callers must never overlap invocations. The
// OrderBookManager provides that serialization; direct use is only safe from
// one goroutine.
//
// Unknown order ids are a silent no-op for both CancelOrder and ModifyOrder.
type OrderBook struct {
	symbol    string
	idGen     IDGenerator
	bidQueue  *bookSide
	askQueue  *bookSide
	bidLevels *levelLadder
	askLevels *levelLadder
}

// NewOrderBook creates an empty book for the given instrument symbol. The id
// generator supplies fresh identities for the modify path.
func NewOrderBook(symbol string, idGen IDGenerator) *OrderBook {
	if idGen == nil {
		idGen = NewXIDGenerator()
	}

	return &OrderBook{
		symbol:    symbol,
		idGen:     idGen,
		bidQueue:  newBidSide(),
		askQueue:  newAskSide(),
		bidLevels: newBidLevels(),
		askLevels: newAskLevels(),
	}
}

// Symbol returns the instrument symbol this book belongs to.
func (b *OrderBook) Symbol() string {
	return b.symbol
}

// AddOrder admits an order and runs the matching loop, returning the trades
// it produced. Normal rejections (duplicate id, market order against an
// empty side, fill-or-kill that cannot be fully satisfied) leave the book
// untouched and return no trades and no error.
func (b *OrderBook) AddOrder(order *Order) ([]*Trade, error) {
	if order == nil {
		return nil, ErrInvalidParam
	}

	// Duplicate submission guard.
	if b.bidQueue.order(order.ID()) != nil || b.askQueue.order(order.ID()) != nil {
		return nil, nil
	}

	if order.Type() == Market {
		opposing, _ := b.opposing(order.Side())

		best, ok := opposing.bestPrice()
		if !ok {
			// Nothing to trade against; a market order never rests unpriced.
			return nil, nil
		}

		if err := order.ResolveMarketPrice(best); err != nil {
			return nil, err
		}
	}

	if order.Type() == FillOrKill && !b.CanFullyFillOrder(order.Side(), order.Price(), order.RemainingQuantity()) {
		return nil, nil
	}

	myQueue, myLevels := b.queues(order.Side())
	myQueue.insertOrder(order)
	myLevels.apply(order.Price(), order.RemainingQuantity(), levelAdd)

	return b.matchOrders()
}

// CancelOrder removes a resting order and its aggregate contribution.
// Unknown ids are a no-op.
func (b *OrderBook) CancelOrder(id string) {
	if order := b.bidQueue.order(id); order != nil {
		b.bidQueue.removeOrder(order.Price(), id)
		b.bidLevels.apply(order.Price(), order.RemainingQuantity(), levelRemove)
		return
	}

	if order := b.askQueue.order(id); order != nil {
		b.askQueue.removeOrder(order.Price(), id)
		b.askLevels.apply(order.Price(), order.RemainingQuantity(), levelRemove)
	}
}

// ModifyOrder replaces a resting order with a brand-new one carrying the
// requested side, price and quantity and the original order's type. The
// replacement gets a fresh id and joins the back of its price unit, so a
// modify always resets queue priority. Unknown ids are a no-op, the same
// discipline as CancelOrder.
func (b *OrderBook) ModifyOrder(id string, side Side, price decimal.Decimal, quantity decimal.Decimal) ([]*Trade, error) {
	existing := b.bidQueue.order(id)
	if existing == nil {
		existing = b.askQueue.order(id)
	}
	if existing == nil {
		return nil, nil
	}

	orderType := existing.Type()

	// Validate before touching the book so a bad request has no effect.
	if quantity.LessThanOrEqual(decimal.Zero) {
		return nil, ErrInvalidParam
	}
	if orderType != Market && price.LessThanOrEqual(decimal.Zero) {
		return nil, ErrInvalidParam
	}

	b.CancelOrder(id)

	var replacement *Order
	var err error
	if orderType == Market {
		replacement, err = NewMarketOrder(b.idGen.NextID(), side, quantity)
	} else {
		replacement, err = NewOrder(b.idGen.NextID(), orderType, side, quantity, price)
	}
	if err != nil {
		return nil, err
	}

	return b.AddOrder(replacement)
}

// CanFullyFillOrder reports whether the opposing side currently holds enough
// eligible quantity to fill the request completely. It only reads the
// aggregate ladder and mutates nothing.
func (b *OrderBook) CanFullyFillOrder(side Side, limitPrice decimal.Decimal, quantity decimal.Decimal) bool {
	_, opposingLevels := b.opposing(side)
	return opposingLevels.canFill(limitPrice, quantity)
}

// LevelInfo returns the per-side aggregate snapshot maintained incrementally
// alongside every order mutation.
func (b *OrderBook) LevelInfo() *OrderBookLevelInfo {
	return &OrderBookLevelInfo{
		Bids: b.bidLevels.snapshot(),
		Asks: b.askLevels.snapshot(),
	}
}

// Stats returns depth and order counts for both sides.
func (b *OrderBook) Stats() *BookStats {
	return &BookStats{
		AskDepthCount: b.askQueue.depthCount(),
		AskOrderCount: b.askQueue.orderCount(),
		BidDepthCount: b.bidQueue.depthCount(),
		BidOrderCount: b.bidQueue.orderCount(),
	}
}

// Size returns the number of resting orders across both sides.
func (b *OrderBook) Size() int {
	return int(b.bidQueue.orderCount() + b.askQueue.orderCount())
}

func (b *OrderBook) queues(side Side) (*bookSide, *levelLadder) {
	if side == Buy {
		return b.bidQueue, b.bidLevels
	}
	return b.askQueue, b.askLevels
}

func (b *OrderBook) opposing(side Side) (*bookSide, *levelLadder) {
	if side == Buy {
		return b.askQueue, b.askLevels
	}
	return b.bidQueue, b.bidLevels
}

// matchOrders runs the continuous double auction: while the best bid price
// crosses the best ask price, the oldest orders at those levels trade
// min(remaining) against each other. Each trade carries both legs at the
// orders' own resting prices.
func (b *OrderBook) matchOrders() ([]*Trade, error) {
	trades := make([]*Trade, 0, 4)

	for {
		bidPrice, ok := b.bidQueue.bestPrice()
		if !ok {
			break
		}

		askPrice, ok := b.askQueue.bestPrice()
		if !ok {
			break
		}

		if bidPrice.LessThan(askPrice) {
			break
		}

		bidOrder := b.bidQueue.peekHeadOrder()
		askOrder := b.askQueue.peekHeadOrder()

		quantity := decimal.Min(bidOrder.RemainingQuantity(), askOrder.RemainingQuantity())

		if err := bidOrder.Fill(quantity); err != nil {
			return trades, err
		}
		if err := askOrder.Fill(quantity); err != nil {
			return trades, err
		}

		trades = append(trades, &Trade{
			Bid: FillRecord{OrderID: bidOrder.ID(), Quantity: quantity, Price: bidOrder.Price()},
			Ask: FillRecord{OrderID: askOrder.ID(), Quantity: quantity, Price: askOrder.Price()},
		})

		b.settleFill(b.bidQueue, b.bidLevels, bidOrder, quantity)
		b.settleFill(b.askQueue, b.askLevels, askOrder, quantity)
	}

	b.purgeFillOrKill()

	return trades, nil
}

// settleFill folds one matched quantity into the indices: a fully filled
// order leaves the book entirely, a partial fill only shrinks its level's
// available quantity.
func (b *OrderBook) settleFill(side *bookSide, levels *levelLadder, order *Order, quantity decimal.Decimal) {
	if order.IsFilled() {
		side.removeOrder(order.Price(), order.ID())
		levels.apply(order.Price(), quantity, levelRemove)
	} else {
		levels.apply(order.Price(), quantity, levelMatch)
	}
}

// purgeFillOrKill cancels a fill-or-kill order left at the front of either
// side after matching. A FOK order must never rest partially filled.
func (b *OrderBook) purgeFillOrKill() {
	if order := b.bidQueue.peekHeadOrder(); order != nil && order.Type() == FillOrKill {
		b.CancelOrder(order.ID())
	}

	if order := b.askQueue.peekHeadOrder(); order != nil && order.Type() == FillOrKill {
		b.CancelOrder(order.ID())
	}
}
