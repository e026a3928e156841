package orders

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"bookhaven/internal/auth"
)

type stubService struct {
	placeOrder func(ctx context.Context, buyerID uuid.UUID, lines []LineInput) (*Order, error)
}

func (s *stubService) PlaceOrder(ctx context.Context, buyerID uuid.UUID, lines []LineInput) (*Order, error) {
	return s.placeOrder(ctx, buyerID, lines)
}

func (s *stubService) ListOrders(ctx context.Context, buyerID uuid.UUID, params ListOrdersParams) ([]Order, int, error) {
	return []Order{}, 0, nil
}

func (s *stubService) GetOrder(ctx context.Context, buyerID, orderID uuid.UUID) (*Order, error) {
	return nil, ErrOrderNotFound
}

func newTestServer(t *testing.T, svc Service) (*httptest.Server, string) {
	t.Helper()
	tokens := auth.NewTokenIssuer("test-secret")
	token, err := tokens.Sign(uuid.New().String())
	require.NoError(t, err)

	router := chi.NewRouter()
	NewHandler(svc).Mount(router, auth.RequireAuth(tokens))
	server := httptest.NewServer(router)
	t.Cleanup(server.Close)
	return server, token
}

func postOrder(t *testing.T, server *httptest.Server, token, body string) *http.Response {
	t.Helper()
	req, err := http.NewRequest(http.MethodPost, server.URL+"/transactions", strings.NewReader(body))
	require.NoError(t, err)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	t.Cleanup(func() { resp.Body.Close() })
	return resp
}

func TestHandlerStatusMapping(t *testing.T) {
	cases := []struct {
		name       string
		err        error
		wantStatus int
	}{
		{"invalid input", invalidInput("Quantity must be a positive integer"), http.StatusBadRequest},
		{"insufficient stock", insufficientStock("Dune"), http.StatusBadRequest},
		{"book not found", bookNotFound(uuid.New()), http.StatusNotFound},
		{"transient failure", transient(), http.StatusServiceUnavailable},
		{"deadline exceeded", context.DeadlineExceeded, http.StatusServiceUnavailable},
		{"request cancelled", context.Canceled, http.StatusServiceUnavailable},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			svc := &stubService{
				placeOrder: func(ctx context.Context, buyerID uuid.UUID, lines []LineInput) (*Order, error) {
					return nil, tc.err
				},
			}
			server, token := newTestServer(t, svc)

			resp := postOrder(t, server, token, `{"items":[{"bookId":"`+uuid.New().String()+`","quantity":1}]}`)
			assert.Equal(t, tc.wantStatus, resp.StatusCode)
		})
	}
}

func TestHandlerRequiresToken(t *testing.T) {
	svc := &stubService{
		placeOrder: func(ctx context.Context, buyerID uuid.UUID, lines []LineInput) (*Order, error) {
			t.Fatal("service must not be reached without a token")
			return nil, nil
		},
	}
	server, _ := newTestServer(t, svc)

	resp := postOrder(t, server, "", `{"items":[]}`)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)

	resp = postOrder(t, server, "not-a-jwt", `{"items":[]}`)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
}

func TestHandlerPassesBuyerAndLines(t *testing.T) {
	book := uuid.New()
	var gotBuyer uuid.UUID
	var gotLines []LineInput
	svc := &stubService{
		placeOrder: func(ctx context.Context, buyerID uuid.UUID, lines []LineInput) (*Order, error) {
			gotBuyer = buyerID
			gotLines = lines
			return &Order{ID: uuid.New(), BuyerID: buyerID, TotalQuantity: 2, TotalPrice: 10, Lines: []OrderLine{}}, nil
		},
	}
	server, token := newTestServer(t, svc)

	resp := postOrder(t, server, token, `{"items":[{"bookId":"`+book.String()+`","quantity":2}]}`)
	assert.Equal(t, http.StatusCreated, resp.StatusCode)
	assert.NotEqual(t, uuid.Nil, gotBuyer)
	require.Len(t, gotLines, 1)
	assert.Equal(t, book, gotLines[0].BookID)
	assert.Equal(t, 2, gotLines[0].Quantity)
}
