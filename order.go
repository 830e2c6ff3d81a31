package match

import (
	"time"

	"github.com/shopspring/decimal"
)

type Side int8

const (
	Buy  Side = 1
	Sell Side = 2
)

// Opposite returns the other side of the book.
func (s Side) Opposite() Side {
	if s == Buy {
		return Sell
	}
	return Buy
}

func (s Side) String() string {
	switch s {
	case Buy:
		return "buy"
	case Sell:
		return "sell"
	}
	return "unknown"
}

type OrderType string

const (
	Market         OrderType = "market"
	Limit          OrderType = "limit"
	FillOrKill     OrderType = "fok" // must be fully filled on arrival or discarded
	Day            OrderType = "day"
	GoodTillCancel OrderType = "gtc"
)

// unsetPrice marks a market order that has not been priced against the book yet.
var unsetPrice = decimal.NewFromInt(-1)

// Order is a single resting or incoming order. Its quantity state is only
// mutated by the matching path via Fill; price is only mutated once, for
// market orders, via ResolveMarketPrice.
type Order struct {
	id                string
	orderType         OrderType
	side              Side
	initialQuantity   decimal.Decimal
	remainingQuantity decimal.Decimal
	price             decimal.Decimal
	timestamp         int64 // Unix nano, creation time

	// Intrusive FIFO links inside a price unit.
	next *Order
	prev *Order
}

// NewMarketOrder creates a market order. The price stays unset until the
// book resolves it against the best opposing level.
func NewMarketOrder(id string, side Side, quantity decimal.Decimal) (*Order, error) {
	if len(id) == 0 || quantity.LessThanOrEqual(decimal.Zero) {
		return nil, ErrInvalidParam
	}

	return &Order{
		id:                id,
		orderType:         Market,
		side:              side,
		initialQuantity:   quantity,
		remainingQuantity: quantity,
		price:             unsetPrice,
		timestamp:         time.Now().UnixNano(),
	}, nil
}

// NewOrder creates a priced order of the given type. Use NewMarketOrder for
// market orders.
func NewOrder(id string, orderType OrderType, side Side, quantity decimal.Decimal, price decimal.Decimal) (*Order, error) {
	if len(id) == 0 || quantity.LessThanOrEqual(decimal.Zero) || price.LessThanOrEqual(decimal.Zero) {
		return nil, ErrInvalidParam
	}

	if orderType == Market {
		return nil, ErrInvalidParam
	}

	return &Order{
		id:                id,
		orderType:         orderType,
		side:              side,
		initialQuantity:   quantity,
		remainingQuantity: quantity,
		price:             price,
		timestamp:         time.Now().UnixNano(),
	}, nil
}

func (o *Order) ID() string {
	return o.id
}

func (o *Order) Type() OrderType {
	return o.orderType
}

func (o *Order) Side() Side {
	return o.side
}

func (o *Order) Price() decimal.Decimal {
	return o.price
}

func (o *Order) InitialQuantity() decimal.Decimal {
	return o.initialQuantity
}

func (o *Order) RemainingQuantity() decimal.Decimal {
	return o.remainingQuantity
}

// Timestamp returns the creation time in Unix nanoseconds.
func (o *Order) Timestamp() int64 {
	return o.timestamp
}

// IsFilled reports whether the order has no remaining quantity.
func (o *Order) IsFilled() bool {
	return o.remainingQuantity.IsZero()
}

// ResolveMarketPrice prices a market order against the book. The book calls
// this at most once per order, before insertion.
func (o *Order) ResolveMarketPrice(price decimal.Decimal) error {
	if o.orderType != Market {
		return ErrInvalidOperation
	}

	o.price = price
	return nil
}

// Fill reduces the remaining quantity by the matched amount.
func (o *Order) Fill(quantity decimal.Decimal) error {
	if quantity.GreaterThan(o.remainingQuantity) {
		return ErrQuantityExceeded
	}

	o.remainingQuantity = o.remainingQuantity.Sub(quantity)
	return nil
}
