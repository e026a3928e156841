// internal/orders/engine.go
package orders

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"sort"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"
)

// maxAttempts bounds retries when the database reports a serialization
// failure, deadlock, or lock timeout on commit.
const maxAttempts = 3

type service struct {
	db           *sqlx.DB
	tracer       trace.Tracer
	ordersPlaced metric.Int64Counter
}

func NewService(db *sqlx.DB) (Service, error) {
	meter := otel.Meter("bookhaven/orders")
	placed, err := meter.Int64Counter("orders.placed",
		metric.WithDescription("Orders committed successfully"))
	if err != nil {
		return nil, fmt.Errorf("create orders counter: %w", err)
	}
	return &service{
		db:           db,
		tracer:       otel.Tracer("bookhaven/orders"),
		ordersPlaced: placed,
	}, nil
}

// lockedBook is a book row read under FOR UPDATE inside the checkout
// transaction. Price here is the price frozen onto the order lines.
type lockedBook struct {
	ID    uuid.UUID `db:"id"`
	Title string    `db:"title"`
	Price float64   `db:"price"`
	Stock int       `db:"stock"`
}

func (s *service) PlaceOrder(ctx context.Context, buyerID uuid.UUID, lines []LineInput) (*Order, error) {
	ctx, span := s.tracer.Start(ctx, "orders.PlaceOrder",
		trace.WithAttributes(
			attribute.String("buyer.id", buyerID.String()),
			attribute.Int("order.lines", len(lines)),
		))
	defer span.End()

	if err := validateLines(lines); err != nil {
		return nil, err
	}
	demand := combinedDemand(lines)

	// Lock books in ascending id order on every attempt so two
	// concurrent checkouts sharing books cannot deadlock each other.
	bookIDs := make([]uuid.UUID, 0, len(demand))
	for id := range demand {
		bookIDs = append(bookIDs, id)
	}
	sort.Slice(bookIDs, func(i, j int) bool {
		return bookIDs[i].String() < bookIDs[j].String()
	})

	var order *Order
	var err error
	for attempt := 1; attempt <= maxAttempts; attempt++ {
		order, err = s.placeOnce(ctx, buyerID, lines, demand, bookIDs)
		if err == nil {
			s.ordersPlaced.Add(ctx, 1)
			span.SetAttributes(attribute.Int("order.attempts", attempt))
			return order, nil
		}
		if !isRetryable(err) {
			return nil, err
		}
		slog.Warn("checkout conflict, retrying",
			"buyer_id", buyerID, "attempt", attempt, "error", err)
	}
	span.SetAttributes(attribute.Int("order.attempts", maxAttempts))
	return nil, transient()
}

func (s *service) placeOnce(ctx context.Context, buyerID uuid.UUID, lines []LineInput, demand map[uuid.UUID]int, bookIDs []uuid.UUID) (*Order, error) {
	tx, err := s.db.BeginTxx(ctx, &sql.TxOptions{Isolation: sql.LevelReadCommitted})
	if err != nil {
		return nil, fmt.Errorf("begin checkout: %w", err)
	}
	defer tx.Rollback()

	books := make(map[uuid.UUID]lockedBook, len(bookIDs))
	for _, id := range bookIDs {
		var book lockedBook
		err := tx.GetContext(ctx, &book,
			`SELECT id, title, price, stock FROM books WHERE id = $1 FOR UPDATE`, id)
		if errors.Is(err, sql.ErrNoRows) {
			return nil, bookNotFound(id)
		}
		if err != nil {
			return nil, fmt.Errorf("lock book %s: %w", id, err)
		}
		if book.Stock < demand[id] {
			return nil, insufficientStock(book.Title)
		}
		books[id] = book
	}

	order := &Order{
		ID:      uuid.New(),
		BuyerID: buyerID,
		Lines:   make([]OrderLine, 0, len(lines)),
	}
	for i, line := range lines {
		book := books[line.BookID]
		order.Lines = append(order.Lines, OrderLine{
			OrderID:  order.ID,
			BookID:   line.BookID,
			Quantity: line.Quantity,
			Price:    book.Price,
			Position: i,
		})
		order.TotalQuantity += line.Quantity
		order.TotalPrice += book.Price * float64(line.Quantity)
	}

	err = tx.QueryRowContext(ctx,
		`INSERT INTO orders (id, buyer_id, total_quantity, total_price)
		 VALUES ($1, $2, $3, $4)
		 RETURNING created_at`,
		order.ID, order.BuyerID, order.TotalQuantity, order.TotalPrice,
	).Scan(&order.CreatedAt)
	if err != nil {
		return nil, fmt.Errorf("insert order: %w", err)
	}

	for _, line := range order.Lines {
		_, err = tx.ExecContext(ctx,
			`INSERT INTO order_lines (order_id, book_id, quantity, price, position)
			 VALUES ($1, $2, $3, $4, $5)`,
			line.OrderID, line.BookID, line.Quantity, line.Price, line.Position)
		if err != nil {
			return nil, fmt.Errorf("insert order line: %w", err)
		}
	}

	// The stock guard repeats the check done under the lock. It keeps
	// the table's non-negative invariant even if the locking protocol
	// is ever loosened.
	for _, id := range bookIDs {
		res, err := tx.ExecContext(ctx,
			`UPDATE books SET stock = stock - $1, updated_at = now()
			 WHERE id = $2 AND stock >= $1`,
			demand[id], id)
		if err != nil {
			return nil, fmt.Errorf("decrement stock for %s: %w", id, err)
		}
		affected, err := res.RowsAffected()
		if err != nil {
			return nil, fmt.Errorf("decrement stock for %s: %w", id, err)
		}
		if affected == 0 {
			return nil, insufficientStock(books[id].Title)
		}
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit checkout: %w", err)
	}
	return order, nil
}

func validateLines(lines []LineInput) error {
	if len(lines) == 0 {
		return invalidInput("Order must contain at least one item")
	}
	for _, line := range lines {
		if line.BookID == uuid.Nil {
			return invalidInput("Book id is required")
		}
		if line.Quantity <= 0 {
			return invalidInput("Quantity must be a positive integer")
		}
	}
	return nil
}

// combinedDemand sums quantities per book so a book split across
// several lines is checked against stock once, as a whole.
func combinedDemand(lines []LineInput) map[uuid.UUID]int {
	demand := make(map[uuid.UUID]int, len(lines))
	for _, line := range lines {
		demand[line.BookID] += line.Quantity
	}
	return demand
}

// isRetryable reports whether the error is a serialization failure,
// deadlock, lock timeout, or query cancellation worth retrying in a
// fresh transaction. Cancelled queries retry because lib/pq reports
// 57014 when a statement is cut short by the request deadline; once the
// context itself is done the retries fail fast and the caller gets a
// transient error.
func isRetryable(err error) bool {
	var pqErr *pq.Error
	if !errors.As(err, &pqErr) {
		return false
	}
	switch pqErr.Code {
	case "40001", "40P01", "55P03", "57014":
		return true
	}
	return false
}
