package match

import "github.com/shopspring/decimal"

// FillRecord is one leg of a trade: which order was filled, by how much, and
// at that order's own resting price.
type FillRecord struct {
	OrderID  string          `json:"order_id"`
	Quantity decimal.Decimal `json:"quantity"`
	Price    decimal.Decimal `json:"price"`
}

// Trade is an immutable pair of fill records produced by the matching loop,
// one per side of the cross.
type Trade struct {
	Bid FillRecord `json:"bid"`
	Ask FillRecord `json:"ask"`
}
