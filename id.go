package match

import "github.com/rs/xid"

// IDGenerator supplies fresh order ids. Values must be unique with
// overwhelming probability across all live orders; the modify path relies on
// this when it re-adds an order under a new identity.
type IDGenerator interface {
	NextID() string
}

type xidGenerator struct{}

// NewXIDGenerator returns the default generator backed by globally unique
// xid values.
func NewXIDGenerator() IDGenerator {
	return xidGenerator{}
}

func (xidGenerator) NextID() string {
	return xid.New().String()
}
