package match

import "errors"

var (
	ErrInvalidOperation = errors.New("operation is not valid for this order type")
	ErrQuantityExceeded = errors.New("quantity cannot be greater than the remaining quantity")
	ErrInvalidParam     = errors.New("the param is invalid")
	ErrInternal         = errors.New("internal server error")
	ErrTimeout          = errors.New("timeout")
	ErrShutdown         = errors.New("manager is shutting down")
)
