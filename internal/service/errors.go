package service

import (
	"errors"
	"fmt"

	"print-checkout-backend/internal/model"
)

var (
	ErrEmptyCart = errors.New("empty cart")

	// ErrInvalidSignature means the webhook body failed authentication.
	// Handlers answer 4xx so the provider does not redeliver.
	ErrInvalidSignature = errors.New("invalid webhook signature")
)

// OutOfStockError is a business rejection, not a failure: at least one cart
// line cannot be fulfilled at its requested quantity.
type OutOfStockError struct {
	Items []model.OutOfStockItem
}

func (e *OutOfStockError) Error() string {
	return fmt.Sprintf("%d cart item(s) out of stock", len(e.Items))
}
