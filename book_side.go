package match

import (
	"github.com/huandu/skiplist"
	"github.com/shopspring/decimal"
)

// priceUnit is the FIFO of resting orders sharing one price on one side.
// Orders are chained through their intrusive links; arrival order is
// priority order.
type priceUnit struct {
	price decimal.Decimal
	head  *Order
	tail  *Order
	count int64
}

// bookSide holds one side of the book: a skip list of price units ordered
// best price first, a price index for O(1) unit lookup, and an order index
// for O(1) cancel.
type bookSide struct {
	side        Side
	totalOrders int64
	depths      int64
	ladder      *skiplist.SkipList
	priceList   map[string]*skiplist.Element
	orders      map[string]*Order
}

// newBidSide creates the buy side. Units are sorted by price in descending
// order (highest bid first).
func newBidSide() *bookSide {
	return &bookSide{
		side: Buy,
		ladder: skiplist.New(skiplist.GreaterThanFunc(func(lhs, rhs any) int {
			d1, _ := lhs.(decimal.Decimal)
			d2, _ := rhs.(decimal.Decimal)

			if d1.LessThan(d2) {
				return 1
			} else if d1.GreaterThan(d2) {
				return -1
			}

			return 0
		})),
		priceList: make(map[string]*skiplist.Element),
		orders:    make(map[string]*Order),
	}
}

// newAskSide creates the sell side. Units are sorted by price in ascending
// order (lowest ask first).
func newAskSide() *bookSide {
	return &bookSide{
		side: Sell,
		ladder: skiplist.New(skiplist.GreaterThanFunc(func(lhs, rhs any) int {
			d1, _ := lhs.(decimal.Decimal)
			d2, _ := rhs.(decimal.Decimal)

			if d1.GreaterThan(d2) {
				return 1
			} else if d1.LessThan(d2) {
				return -1
			}

			return 0
		})),
		priceList: make(map[string]*skiplist.Element),
		orders:    make(map[string]*Order),
	}
}

// order finds a resting order by its ID.
func (s *bookSide) order(id string) *Order {
	return s.orders[id]
}

// insertOrder appends an order to the tail of its price unit, creating the
// unit if the price is new.
func (s *bookSide) insertOrder(order *Order) {
	key := order.Price().String()

	el, ok := s.priceList[key]
	if ok {
		unit, _ := el.Value.(*priceUnit)

		order.prev = unit.tail
		order.next = nil
		if unit.tail != nil {
			unit.tail.next = order
		}
		unit.tail = order
		if unit.head == nil {
			unit.head = order
		}

		unit.count++
		s.orders[order.ID()] = order
		s.totalOrders++
	} else {
		unit := &priceUnit{
			price: order.Price(),
			head:  order,
			tail:  order,
			count: 1,
		}
		order.next = nil
		order.prev = nil

		s.orders[order.ID()] = order

		el := s.ladder.Set(order.Price(), unit)
		s.priceList[key] = el

		s.totalOrders++
		s.depths++
	}
}

// removeOrder unlinks an order from its price unit and drops the unit when
// it becomes empty.
func (s *bookSide) removeOrder(price decimal.Decimal, id string) {
	key := price.String()

	skipElement, ok := s.priceList[key]
	if !ok {
		return
	}
	unit, _ := skipElement.Value.(*priceUnit)

	order, ok := s.orders[id]
	if !ok {
		return
	}

	if order.prev != nil {
		order.prev.next = order.next
	} else {
		unit.head = order.next
	}

	if order.next != nil {
		order.next.prev = order.prev
	} else {
		unit.tail = order.prev
	}

	// Clear links so a removed order never keeps the unit alive.
	order.next = nil
	order.prev = nil

	unit.count--
	delete(s.orders, id)
	s.totalOrders--

	if unit.count == 0 {
		s.ladder.RemoveElement(skipElement)
		delete(s.priceList, key)
		s.depths--
	}
}

// peekHeadOrder returns the oldest order at the best price without removing
// it.
func (s *bookSide) peekHeadOrder() *Order {
	el := s.ladder.Front()
	if el == nil {
		return nil
	}

	unit, _ := el.Value.(*priceUnit)
	return unit.head
}

// bestPrice returns the best resting price on this side.
func (s *bookSide) bestPrice() (decimal.Decimal, bool) {
	el := s.ladder.Front()
	if el == nil {
		return decimal.Zero, false
	}

	unit, _ := el.Value.(*priceUnit)
	return unit.price, true
}

// orderCount returns the total number of resting orders on this side.
func (s *bookSide) orderCount() int64 {
	return s.totalOrders
}

// depthCount returns the number of price units on this side.
func (s *bookSide) depthCount() int64 {
	return s.depths
}
