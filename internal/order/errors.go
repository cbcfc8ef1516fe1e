package order

import (
	"errors"
	"fmt"
)

var (
	ErrEmptyCart          = errors.New("cart is empty")
	ErrAmountMismatch     = errors.New("payment amount mismatch")
	ErrOrderNotFound      = errors.New("order not found")
	ErrDuplicateReference = errors.New("payment reference already used")
	ErrInvalidStatus      = errors.New("invalid order status")

	// ErrTxConflict marks serialization/deadlock aborts that are safe to
	// retry with a fresh transaction.
	ErrTxConflict = errors.New("transaction conflict")
)

// InsufficientStockError names the first product whose requested quantity
// exceeded availability. The whole commit aborts on the first such line.
type InsufficientStockError struct {
	Product string
}

func (e *InsufficientStockError) Error() string {
	return fmt.Sprintf("insufficient quantity for %s", e.Product)
}
