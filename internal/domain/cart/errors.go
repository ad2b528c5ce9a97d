package cart

import (
	"fmt"

	"github.com/go-faster/errors"
)

// Sentinel errors for cart operations.
var (
	ErrEmptyCart         = errors.New("cart has no items")
	ErrCheckoutCompleted = errors.New("checkout already completed")
	ErrInvalidAdjustment = errors.New("adjustment type required")
)

// ProductNotFoundError indicates a requested product does not exist.
type ProductNotFoundError struct {
	ProductID string
}

func (e *ProductNotFoundError) Error() string {
	return fmt.Sprintf("product %s not found", e.ProductID)
}

// InvalidQuantityError indicates a quantity outside the accepted range.
type InvalidQuantityError struct {
	ProductID string
	Quantity  int
}

func (e *InvalidQuantityError) Error() string {
	return fmt.Sprintf("invalid quantity %d for product %s", e.Quantity, e.ProductID)
}

// ItemNotFoundError indicates the order has no item with the given ID.
type ItemNotFoundError struct {
	ItemID string
}

func (e *ItemNotFoundError) Error() string {
	return fmt.Sprintf("item %s not found", e.ItemID)
}

// AdjustmentNotFoundError indicates the order graph has no adjustment with
// the given ID.
type AdjustmentNotFoundError struct {
	AdjustmentID string
}

func (e *AdjustmentNotFoundError) Error() string {
	return fmt.Sprintf("adjustment %s not found", e.AdjustmentID)
}
