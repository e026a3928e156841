// internal/orders/handler.go
package orders

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"bookhaven/internal/auth"
	"bookhaven/internal/httpx"
)

// checkoutTimeout caps a single checkout request, retries included, so
// a lock pile-up in the database cannot hold client connections open.
const checkoutTimeout = 5 * time.Second

type Handler struct {
	service Service
}

func NewHandler(service Service) *Handler {
	return &Handler{service: service}
}

func (h *Handler) Mount(r chi.Router, requireAuth func(http.Handler) http.Handler) {
	r.Group(func(r chi.Router) {
		r.Use(requireAuth)
		r.Post("/transactions", h.handlePlaceOrder)
		r.Get("/transactions", h.handleListOrders)
		r.Get("/transactions/{id}", h.handleGetOrder)
	})
}

func (h *Handler) handlePlaceOrder(w http.ResponseWriter, r *http.Request) {
	buyerID, ok := h.buyer(w, r)
	if !ok {
		return
	}

	var req struct {
		Items []LineInput `json:"items"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httpx.Fail(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), checkoutTimeout)
	defer cancel()

	order, err := h.service.PlaceOrder(ctx, buyerID, req.Items)
	if err != nil {
		h.fail(w, err)
		return
	}
	httpx.OK(w, http.StatusCreated, "Transaction created successfully", order, nil)
}

func (h *Handler) handleListOrders(w http.ResponseWriter, r *http.Request) {
	buyerID, ok := h.buyer(w, r)
	if !ok {
		return
	}

	q := r.URL.Query()
	params := ListOrdersParams{
		Page:         atoiDefault(q.Get("page"), 1),
		Limit:        atoiDefault(q.Get("limit"), 10),
		Search:       q.Get("search"),
		SortByID:     q.Get("sortById"),
		SortByAmount: q.Get("sortByAmount"),
		SortByPrice:  q.Get("sortByPrice"),
	}

	orders, total, err := h.service.ListOrders(r.Context(), buyerID, params)
	if err != nil {
		h.fail(w, err)
		return
	}
	httpx.OK(w, http.StatusOK, "Get all transaction successfully", orders, &httpx.PageMeta{
		Page:       params.Page,
		Limit:      params.Limit,
		TotalItems: total,
		TotalPages: (total + params.Limit - 1) / params.Limit,
	})
}

func (h *Handler) handleGetOrder(w http.ResponseWriter, r *http.Request) {
	buyerID, ok := h.buyer(w, r)
	if !ok {
		return
	}

	orderID, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		httpx.Fail(w, http.StatusBadRequest, "Invalid transaction ID")
		return
	}

	order, err := h.service.GetOrder(r.Context(), buyerID, orderID)
	if err != nil {
		h.fail(w, err)
		return
	}
	httpx.OK(w, http.StatusOK, "Get transaction detail successfully", order, nil)
}

func (h *Handler) buyer(w http.ResponseWriter, r *http.Request) (uuid.UUID, bool) {
	id, err := uuid.Parse(auth.UserID(r.Context()))
	if err != nil {
		httpx.Fail(w, http.StatusUnauthorized, "Unauthorized")
		return uuid.Nil, false
	}
	return id, true
}

func (h *Handler) fail(w http.ResponseWriter, err error) {
	var checkout *Error
	switch {
	case errors.As(err, &checkout):
		httpx.Fail(w, statusForKind(checkout.Kind), checkout.Message)
	case errors.Is(err, ErrOrderNotFound):
		httpx.Fail(w, http.StatusNotFound, err.Error())
	case errors.Is(err, context.DeadlineExceeded), errors.Is(err, context.Canceled):
		httpx.Fail(w, http.StatusServiceUnavailable, "Checkout is busy, please retry")
	default:
		httpx.Fail(w, http.StatusInternalServerError, "Internal server error")
	}
}

func statusForKind(kind Kind) int {
	switch kind {
	case KindInvalidInput, KindInsufficientStock:
		return http.StatusBadRequest
	case KindBookNotFound:
		return http.StatusNotFound
	case KindUnauthenticated:
		return http.StatusUnauthorized
	case KindTransient:
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

func atoiDefault(s string, def int) int {
	n, err := strconv.Atoi(s)
	if err != nil || n < 1 {
		return def
	}
	return n
}
