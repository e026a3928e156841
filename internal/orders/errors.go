// internal/orders/errors.go
package orders

import "fmt"

// Kind classifies checkout failures so the transport layer can map them
// to statuses without string matching.
type Kind int

const (
	KindInvalidInput Kind = iota
	KindBookNotFound
	KindInsufficientStock
	KindUnauthenticated
	KindTransient
)

// Error is a checkout failure with a user-facing message. The message
// is safe to return to the buyer as-is.
type Error struct {
	Kind    Kind
	Message string
}

func (e *Error) Error() string { return e.Message }

func invalidInput(msg string) *Error {
	return &Error{Kind: KindInvalidInput, Message: msg}
}

func bookNotFound(id fmt.Stringer) *Error {
	return &Error{Kind: KindBookNotFound, Message: fmt.Sprintf("Book with id %s not found", id)}
}

func insufficientStock(title string) *Error {
	return &Error{Kind: KindInsufficientStock, Message: fmt.Sprintf("Insufficient stock for %q", title)}
}

func transient() *Error {
	return &Error{Kind: KindTransient, Message: "Checkout is busy, please retry"}
}
