// internal/orders/service.go
package orders

import (
	"context"

	"github.com/google/uuid"
)

// Service is the checkout and order-history API. PlaceOrder either
// commits the whole order, stock decrement included, or leaves every
// book untouched; there is no partial fulfilment.
type Service interface {
	PlaceOrder(ctx context.Context, buyerID uuid.UUID, lines []LineInput) (*Order, error)
	ListOrders(ctx context.Context, buyerID uuid.UUID, params ListOrdersParams) ([]Order, int, error)
	GetOrder(ctx context.Context, buyerID, orderID uuid.UUID) (*Order, error)
}
