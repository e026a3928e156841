// Package orders implements checkout. Placing an order validates and
// decrements book stock atomically, freezes the unit price of every line
// at purchase time, and records the totals alongside the lines.
package orders

import (
	"time"

	"github.com/google/uuid"
)

// LineInput is one requested purchase line as submitted by the buyer.
// The same book may appear on several lines; stock is checked against
// the combined quantity but the lines are stored as submitted.
type LineInput struct {
	BookID   uuid.UUID `json:"bookId"`
	Quantity int       `json:"quantity"`
}

// OrderLine is a settled purchase line. Price is the unit price at the
// moment the order was placed and never changes afterwards.
type OrderLine struct {
	OrderID  uuid.UUID `json:"-" db:"order_id"`
	BookID   uuid.UUID `json:"bookId" db:"book_id"`
	Quantity int       `json:"quantity" db:"quantity"`
	Price    float64   `json:"price" db:"price"`
	Position int       `json:"-" db:"position"`

	// Populated on reads for display, not stored on the line itself.
	Title    *string `json:"title,omitempty" db:"title"`
	ImageURL *string `json:"imageUrl,omitempty" db:"image_url"`
}

type Order struct {
	ID            uuid.UUID   `json:"id" db:"id"`
	BuyerID       uuid.UUID   `json:"buyerId" db:"buyer_id"`
	TotalQuantity int         `json:"totalQuantity" db:"total_quantity"`
	TotalPrice    float64     `json:"totalPrice" db:"total_price"`
	CreatedAt     time.Time   `json:"createdAt" db:"created_at"`
	Lines         []OrderLine `json:"items"`
}

// ListOrdersParams narrows and orders a buyer's order history.
type ListOrdersParams struct {
	Page         int
	Limit        int
	Search       string
	SortByID     string
	SortByAmount string
	SortByPrice  string
}
