package match

import (
	"github.com/igrmk/treemap/v2"
	"github.com/shopspring/decimal"
)

// PriceLevel is the aggregate for one resident price on one side: how many
// orders rest there and the sum of their remaining quantities.
type PriceLevel struct {
	Price             decimal.Decimal `json:"price"`
	OrderCount        int64           `json:"order_count"`
	AvailableQuantity decimal.Decimal `json:"available_quantity"`
}

type levelAction int8

const (
	levelAdd    levelAction = 1 // new resting order: count +1, quantity +remaining
	levelRemove levelAction = 2 // cancel or full fill: count -1, quantity -remaining
	levelMatch  levelAction = 3 // partial fill: quantity -matched, count unchanged
)

// levelLadder maintains one side's price-level aggregates in an ordered map,
// best price first. It is updated transactionally with every order-index
// mutation and never rebuilt by rescanning orders.
type levelLadder struct {
	side   Side
	levels *treemap.TreeMap[decimal.Decimal, *PriceLevel]
}

// newBidLevels creates the aggregate ladder for the buy side, iterated
// highest price first.
func newBidLevels() *levelLadder {
	return &levelLadder{
		side: Buy,
		levels: treemap.NewWithKeyCompare[decimal.Decimal, *PriceLevel](func(a, b decimal.Decimal) bool {
			return a.GreaterThan(b)
		}),
	}
}

// newAskLevels creates the aggregate ladder for the sell side, iterated
// lowest price first.
func newAskLevels() *levelLadder {
	return &levelLadder{
		side: Sell,
		levels: treemap.NewWithKeyCompare[decimal.Decimal, *PriceLevel](func(a, b decimal.Decimal) bool {
			return a.LessThan(b)
		}),
	}
}

// apply folds one order-index mutation into the aggregates. A level is
// created on the first add at a price and deleted as soon as its order count
// reaches zero.
func (l *levelLadder) apply(price decimal.Decimal, quantity decimal.Decimal, action levelAction) {
	level, ok := l.levels.Get(price)
	if !ok {
		level = &PriceLevel{Price: price}
		l.levels.Set(price, level)
	}

	switch action {
	case levelAdd:
		level.OrderCount++
		level.AvailableQuantity = level.AvailableQuantity.Add(quantity)
	case levelRemove:
		level.OrderCount--
		level.AvailableQuantity = level.AvailableQuantity.Sub(quantity)
	case levelMatch:
		level.AvailableQuantity = level.AvailableQuantity.Sub(quantity)
	}

	if level.OrderCount == 0 {
		l.levels.Del(price)
	}
}

// canFill walks the ladder in priority order and reports whether the
// eligible levels hold at least the requested quantity. Pure aggregate
// query; individual orders are never touched.
func (l *levelLadder) canFill(limitPrice decimal.Decimal, quantity decimal.Decimal) bool {
	if l.levels.Len() == 0 {
		return false
	}

	remaining := quantity
	for it := l.levels.Iterator(); it.Valid(); it.Next() {
		price := it.Key()

		// The ladder holds the opposing side: an ask above a buy limit or a
		// bid below a sell limit is not eligible, and neither is anything
		// behind it.
		if l.side == Sell && price.GreaterThan(limitPrice) {
			break
		}
		if l.side == Buy && price.LessThan(limitPrice) {
			break
		}

		remaining = remaining.Sub(it.Value().AvailableQuantity)
		if remaining.LessThanOrEqual(decimal.Zero) {
			return true
		}
	}

	return false
}

// quantityAt returns the available quantity at a price, zero if the level
// does not exist.
func (l *levelLadder) quantityAt(price decimal.Decimal) decimal.Decimal {
	level, ok := l.levels.Get(price)
	if !ok {
		return decimal.Zero
	}
	return level.AvailableQuantity
}

// snapshot copies the ladder into a slice, best price first.
func (l *levelLadder) snapshot() []PriceLevel {
	result := make([]PriceLevel, 0, l.levels.Len())

	for it := l.levels.Iterator(); it.Valid(); it.Next() {
		result = append(result, *it.Value())
	}

	return result
}

func (l *levelLadder) len() int {
	return l.levels.Len()
}
