package orders

import (
	"context"
	"fmt"
	"os"
	"sync"
	"testing"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"bookhaven/internal/postgres"
)

// setupTestDB connects to PostgreSQL for integration tests, applying
// migrations on first use. Tests skip when no database is reachable.
func setupTestDB(t testing.TB) *sqlx.DB {
	t.Helper()

	pgUser := os.Getenv("PGUSER")
	pgPassword := os.Getenv("PGPASSWORD")
	pgHost := os.Getenv("PGHOST")
	pgPort := os.Getenv("PGPORT")
	pgDB := os.Getenv("PGDATABASE")

	if pgUser == "" {
		pgUser = "user"
	}
	if pgPassword == "" {
		pgPassword = "password"
	}
	if pgHost == "" {
		pgHost = "localhost"
	}
	if pgPort == "" {
		pgPort = "5432"
	}
	if pgDB == "" {
		pgDB = "testdb"
	}

	connStr := fmt.Sprintf("postgres://%s:%s@%s:%s/%s?sslmode=disable",
		pgUser, pgPassword, pgHost, pgPort, pgDB)

	db, err := sqlx.Open("postgres", connStr)
	if err != nil {
		t.Fatalf("failed to open database connection: %v", err)
	}

	if err := db.Ping(); err != nil {
		t.Skipf("skipping integration tests: could not connect to postgres: %v", err)
	}

	if err := postgres.Migrate(context.Background(), db.DB); err != nil {
		t.Fatalf("failed to migrate test database: %v", err)
	}

	t.Cleanup(func() { db.Close() })
	return db
}

func createTestBuyer(t testing.TB, db *sqlx.DB) uuid.UUID {
	t.Helper()
	id := uuid.New()
	_, err := db.Exec(
		`INSERT INTO users (id, email, username, password_hash, salt)
		 VALUES ($1, $2, 'buyer', 'x', 'x')`,
		id, fmt.Sprintf("%s@test.local", id))
	require.NoError(t, err)
	t.Cleanup(func() {
		db.Exec(`DELETE FROM orders WHERE buyer_id = $1`, id)
		db.Exec(`DELETE FROM users WHERE id = $1`, id)
	})
	return id
}

func createTestBook(t testing.TB, db *sqlx.DB, price float64, stock int) uuid.UUID {
	t.Helper()
	genreID := uuid.New()
	_, err := db.Exec(
		`INSERT INTO genres (id, name) VALUES ($1, $2)`,
		genreID, fmt.Sprintf("genre-%s", genreID))
	require.NoError(t, err)

	bookID := uuid.New()
	_, err = db.Exec(
		`INSERT INTO books (id, title, writer, publisher, price, stock, genre_id)
		 VALUES ($1, $2, 'Test Writer', 'Test House', $3, $4, $5)`,
		bookID, fmt.Sprintf("book-%s", bookID), price, stock, genreID)
	require.NoError(t, err)

	t.Cleanup(func() {
		db.Exec(`DELETE FROM books WHERE id = $1`, bookID)
		db.Exec(`DELETE FROM genres WHERE id = $1`, genreID)
	})
	return bookID
}

func bookStock(t testing.TB, db *sqlx.DB, id uuid.UUID) int {
	t.Helper()
	var stock int
	require.NoError(t, db.Get(&stock, `SELECT stock FROM books WHERE id = $1`, id))
	return stock
}

func TestPlaceOrder(t *testing.T) {
	db := setupTestDB(t)
	svc, err := NewService(db)
	require.NoError(t, err)
	ctx := context.Background()
	buyer := createTestBuyer(t, db)

	t.Run("decrements stock and freezes prices", func(t *testing.T) {
		book := createTestBook(t, db, 12.50, 10)

		order, err := svc.PlaceOrder(ctx, buyer, []LineInput{{BookID: book, Quantity: 3}})
		require.NoError(t, err)

		assert.Equal(t, 3, order.TotalQuantity)
		assert.InDelta(t, 37.50, order.TotalPrice, 0.001)
		require.Len(t, order.Lines, 1)
		assert.InDelta(t, 12.50, order.Lines[0].Price, 0.001)
		assert.Equal(t, 7, bookStock(t, db, book))

		// A later price change must not touch the settled line.
		_, err = db.Exec(`UPDATE books SET price = 99.99 WHERE id = $1`, book)
		require.NoError(t, err)

		got, err := svc.GetOrder(ctx, buyer, order.ID)
		require.NoError(t, err)
		require.Len(t, got.Lines, 1)
		assert.InDelta(t, 12.50, got.Lines[0].Price, 0.001)
	})

	t.Run("rejects insufficient stock without side effects", func(t *testing.T) {
		cheap := createTestBook(t, db, 5.00, 10)
		scarce := createTestBook(t, db, 8.00, 1)

		_, err := svc.PlaceOrder(ctx, buyer, []LineInput{
			{BookID: cheap, Quantity: 2},
			{BookID: scarce, Quantity: 2},
		})
		var checkout *Error
		require.ErrorAs(t, err, &checkout)
		assert.Equal(t, KindInsufficientStock, checkout.Kind)

		assert.Equal(t, 10, bookStock(t, db, cheap))
		assert.Equal(t, 1, bookStock(t, db, scarce))
	})

	t.Run("combines demand for duplicate book lines", func(t *testing.T) {
		book := createTestBook(t, db, 4.00, 5)

		_, err := svc.PlaceOrder(ctx, buyer, []LineInput{
			{BookID: book, Quantity: 3},
			{BookID: book, Quantity: 3},
		})
		var checkout *Error
		require.ErrorAs(t, err, &checkout)
		assert.Equal(t, KindInsufficientStock, checkout.Kind)
		assert.Equal(t, 5, bookStock(t, db, book))

		order, err := svc.PlaceOrder(ctx, buyer, []LineInput{
			{BookID: book, Quantity: 2},
			{BookID: book, Quantity: 3},
		})
		require.NoError(t, err)
		require.Len(t, order.Lines, 2)
		assert.Equal(t, 5, order.TotalQuantity)
		assert.Equal(t, 0, bookStock(t, db, book))
	})

	t.Run("reports unknown book", func(t *testing.T) {
		_, err := svc.PlaceOrder(ctx, buyer, []LineInput{{BookID: uuid.New(), Quantity: 1}})
		var checkout *Error
		require.ErrorAs(t, err, &checkout)
		assert.Equal(t, KindBookNotFound, checkout.Kind)
	})

	t.Run("unknown book fails the whole order", func(t *testing.T) {
		freshBuyer := createTestBuyer(t, db)
		book := createTestBook(t, db, 7.00, 10)

		_, err := svc.PlaceOrder(ctx, freshBuyer, []LineInput{
			{BookID: book, Quantity: 2},
			{BookID: uuid.New(), Quantity: 1},
		})
		var checkout *Error
		require.ErrorAs(t, err, &checkout)
		assert.Equal(t, KindBookNotFound, checkout.Kind)

		assert.Equal(t, 10, bookStock(t, db, book))
		var count int
		require.NoError(t, db.Get(&count,
			`SELECT COUNT(*) FROM orders WHERE buyer_id = $1`, freshBuyer))
		assert.Zero(t, count)
	})

	t.Run("rejects invalid input", func(t *testing.T) {
		cases := []struct {
			name  string
			lines []LineInput
		}{
			{"empty order", nil},
			{"zero quantity", []LineInput{{BookID: uuid.New(), Quantity: 0}}},
			{"negative quantity", []LineInput{{BookID: uuid.New(), Quantity: -1}}},
			{"missing book id", []LineInput{{Quantity: 1}}},
		}
		for _, tc := range cases {
			t.Run(tc.name, func(t *testing.T) {
				_, err := svc.PlaceOrder(ctx, buyer, tc.lines)
				var checkout *Error
				require.ErrorAs(t, err, &checkout)
				assert.Equal(t, KindInvalidInput, checkout.Kind)
			})
		}
	})
}

func TestIsRetryable(t *testing.T) {
	retryable := []string{"40001", "40P01", "55P03", "57014"}
	for _, code := range retryable {
		err := fmt.Errorf("exec: %w", &pq.Error{Code: pq.ErrorCode(code)})
		assert.True(t, isRetryable(err), "SQLSTATE %s should retry", code)
	}

	assert.False(t, isRetryable(&pq.Error{Code: "23505"}))
	assert.False(t, isRetryable(context.DeadlineExceeded))
	assert.False(t, isRetryable(nil))
}

func TestOrderHistoryIsBuyerScoped(t *testing.T) {
	db := setupTestDB(t)
	svc, err := NewService(db)
	require.NoError(t, err)
	ctx := context.Background()

	alice := createTestBuyer(t, db)
	bob := createTestBuyer(t, db)
	book := createTestBook(t, db, 6.00, 10)

	placed, err := svc.PlaceOrder(ctx, alice, []LineInput{{BookID: book, Quantity: 1}})
	require.NoError(t, err)

	orders, total, err := svc.ListOrders(ctx, bob, ListOrdersParams{})
	require.NoError(t, err)
	assert.Zero(t, total)
	assert.Empty(t, orders)

	_, err = svc.GetOrder(ctx, bob, placed.ID)
	assert.ErrorIs(t, err, ErrOrderNotFound)

	got, err := svc.GetOrder(ctx, alice, placed.ID)
	require.NoError(t, err)
	assert.Equal(t, placed.ID, got.ID)
	require.Len(t, got.Lines, 1)
	assert.NotNil(t, got.Lines[0].Title)
}

// TestPlaceOrderConcurrent hammers one book with competing checkouts
// and asserts that stock never oversells or goes negative.
func TestPlaceOrderConcurrent(t *testing.T) {
	db := setupTestDB(t)
	svc, err := NewService(db)
	require.NoError(t, err)
	ctx := context.Background()
	buyer := createTestBuyer(t, db)

	const stock = 5
	book := createTestBook(t, db, 10.00, stock)

	const workers = 10
	results := make(chan error, workers)
	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := svc.PlaceOrder(ctx, buyer, []LineInput{{BookID: book, Quantity: 2}})
			results <- err
		}()
	}
	wg.Wait()
	close(results)

	succeeded := 0
	for err := range results {
		if err == nil {
			succeeded++
			continue
		}
		var checkout *Error
		require.ErrorAs(t, err, &checkout)
		assert.Contains(t,
			[]Kind{KindInsufficientStock, KindTransient}, checkout.Kind)
	}

	remaining := bookStock(t, db, book)
	assert.GreaterOrEqual(t, remaining, 0)
	assert.Equal(t, stock-succeeded*2, remaining)
	assert.LessOrEqual(t, succeeded, stock/2)
}
