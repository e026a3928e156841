// internal/orders/listing.go
package orders

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/lib/pq"
)

// ErrOrderNotFound covers both a missing order and another buyer's
// order; the two are indistinguishable to the caller on purpose.
var ErrOrderNotFound = errors.New("Transaction not found or unauthorized")

func (s *service) ListOrders(ctx context.Context, buyerID uuid.UUID, params ListOrdersParams) ([]Order, int, error) {
	ctx, span := s.tracer.Start(ctx, "orders.ListOrders")
	defer span.End()

	if params.Page < 1 {
		params.Page = 1
	}
	if params.Limit < 1 {
		params.Limit = 10
	}

	where := []string{"buyer_id = $1"}
	args := []interface{}{buyerID}
	arg := func(v interface{}) string {
		args = append(args, v)
		return fmt.Sprintf("$%d", len(args))
	}
	if params.Search != "" {
		where = append(where, "id::text ILIKE "+arg("%"+params.Search+"%"))
	}
	whereClause := strings.Join(where, " AND ")

	orderBy := "created_at DESC"
	switch {
	case params.SortByID == "asc":
		orderBy = "id ASC"
	case params.SortByID == "desc":
		orderBy = "id DESC"
	case params.SortByAmount == "asc":
		orderBy = "total_quantity ASC"
	case params.SortByAmount == "desc":
		orderBy = "total_quantity DESC"
	case params.SortByPrice == "asc":
		orderBy = "total_price ASC"
	case params.SortByPrice == "desc":
		orderBy = "total_price DESC"
	}

	var total int
	err := s.db.GetContext(ctx, &total,
		"SELECT count(*) FROM orders WHERE "+whereClause, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("count orders: %w", err)
	}

	query := fmt.Sprintf(
		"SELECT id, buyer_id, total_quantity, total_price, created_at FROM orders WHERE %s ORDER BY %s LIMIT %s OFFSET %s",
		whereClause, orderBy, arg(params.Limit), arg((params.Page-1)*params.Limit))

	var orders []Order
	if err := s.db.SelectContext(ctx, &orders, query, args...); err != nil {
		return nil, 0, fmt.Errorf("list orders: %w", err)
	}
	if len(orders) == 0 {
		return []Order{}, total, nil
	}

	if err := s.attachLines(ctx, orders); err != nil {
		return nil, 0, err
	}
	return orders, total, nil
}

func (s *service) GetOrder(ctx context.Context, buyerID, orderID uuid.UUID) (*Order, error) {
	ctx, span := s.tracer.Start(ctx, "orders.GetOrder")
	defer span.End()

	var order Order
	err := s.db.GetContext(ctx, &order,
		`SELECT id, buyer_id, total_quantity, total_price, created_at
		 FROM orders WHERE id = $1 AND buyer_id = $2`, orderID, buyerID)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrOrderNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get order: %w", err)
	}

	orders := []Order{order}
	if err := s.attachLines(ctx, orders); err != nil {
		return nil, err
	}
	return &orders[0], nil
}

// attachLines loads the lines for every order in one query and joins in
// the book's current title and cover for display. Books deleted since
// purchase leave those fields null; the frozen line price remains.
func (s *service) attachLines(ctx context.Context, orders []Order) error {
	ids := make([]uuid.UUID, len(orders))
	index := make(map[uuid.UUID]*Order, len(orders))
	for i := range orders {
		ids[i] = orders[i].ID
		index[orders[i].ID] = &orders[i]
		orders[i].Lines = []OrderLine{}
	}

	var lines []OrderLine
	err := s.db.SelectContext(ctx, &lines,
		`SELECT ol.order_id, ol.book_id, ol.quantity, ol.price, ol.position,
		        b.title, b.image_url
		 FROM order_lines ol
		 LEFT JOIN books b ON b.id = ol.book_id
		 WHERE ol.order_id = ANY($1)
		 ORDER BY ol.order_id, ol.position`,
		pq.Array(ids))
	if err != nil {
		return fmt.Errorf("load order lines: %w", err)
	}

	for _, line := range lines {
		if order, ok := index[line.OrderID]; ok {
			order.Lines = append(order.Lines, line)
		}
	}
	return nil
}
