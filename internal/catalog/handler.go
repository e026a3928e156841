// internal/catalog/handler.go
package catalog

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"bookhaven/internal/httpx"
)

type Handler struct {
	service Service
}

func NewHandler(service Service) *Handler {
	return &Handler{service: service}
}

// Mount registers the catalog routes. Genre reads are public so the
// storefront can populate its dropdowns; everything else requires auth.
func (h *Handler) Mount(r chi.Router, requireAuth func(http.Handler) http.Handler) {
	r.Get("/genre", h.handleListGenres)
	r.Get("/genre/{id}", h.handleGetGenre)

	r.Group(func(r chi.Router) {
		r.Use(requireAuth)
		r.Post("/genre", h.handleCreateGenre)
		r.Patch("/genre/{id}", h.handleUpdateGenre)
		r.Delete("/genre/{id}", h.handleDeleteGenre)

		r.Post("/books", h.handleCreateBook)
		r.Get("/books", h.handleListBooks)
		r.Get("/books/{id}", h.handleGetBook)
		r.Put("/books/{id}", h.handleUpdateBook)
		r.Patch("/books/{id}", h.handleUpdateBook)
		r.Delete("/books/{id}", h.handleDeleteBook)
	})
}

func (h *Handler) handleCreateGenre(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Name string `json:"name"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Name == "" {
		httpx.Fail(w, http.StatusBadRequest, "Name is required")
		return
	}

	genre, err := h.service.CreateGenre(r.Context(), req.Name)
	if err != nil {
		h.fail(w, err)
		return
	}
	httpx.OK(w, http.StatusCreated, "Genre created successfully", genre, nil)
}

func (h *Handler) handleListGenres(w http.ResponseWriter, r *http.Request) {
	genres, err := h.service.ListGenres(r.Context(), r.URL.Query().Get("search"))
	if err != nil {
		h.fail(w, err)
		return
	}
	httpx.OK(w, http.StatusOK, "Get all genre successfully", genres, nil)
}

func (h *Handler) handleGetGenre(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		httpx.Fail(w, http.StatusBadRequest, "Invalid genre ID")
		return
	}
	genre, err := h.service.GetGenre(r.Context(), id)
	if err != nil {
		h.fail(w, err)
		return
	}
	httpx.OK(w, http.StatusOK, "Get genre detail successfully", genre, nil)
}

func (h *Handler) handleUpdateGenre(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		httpx.Fail(w, http.StatusBadRequest, "Invalid genre ID")
		return
	}
	var req struct {
		Name string `json:"name"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Name == "" {
		httpx.Fail(w, http.StatusBadRequest, "Name is required")
		return
	}

	genre, err := h.service.UpdateGenre(r.Context(), id, req.Name)
	if err != nil {
		h.fail(w, err)
		return
	}
	httpx.OK(w, http.StatusOK, "Genre updated successfully", genre, nil)
}

func (h *Handler) handleDeleteGenre(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		httpx.Fail(w, http.StatusBadRequest, "Invalid genre ID")
		return
	}
	if err := h.service.DeleteGenre(r.Context(), id); err != nil {
		h.fail(w, err)
		return
	}
	httpx.OK(w, http.StatusOK, "Genre removed successfully", nil, nil)
}

func (h *Handler) handleCreateBook(w http.ResponseWriter, r *http.Request) {
	var payload BookPayload
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		httpx.Fail(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	book, err := h.service.CreateBook(r.Context(), payload)
	if err != nil {
		h.fail(w, err)
		return
	}
	httpx.OK(w, http.StatusCreated, "Book added successfully", book, nil)
}

func (h *Handler) handleListBooks(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	params := ListBooksParams{
		Page:               atoiDefault(q.Get("page"), 1),
		Limit:              atoiDefault(q.Get("limit"), 10),
		Search:             q.Get("search"),
		FilterCondition:    q.Get("filterCondition"),
		OrderByTitle:       q.Get("orderByTitle"),
		OrderByPublishDate: q.Get("orderByPublishDate"),
	}

	books, total, err := h.service.ListBooks(r.Context(), params)
	if err != nil {
		h.fail(w, err)
		return
	}
	httpx.OK(w, http.StatusOK, "Get all book successfully", books, &httpx.PageMeta{
		Page:       params.Page,
		Limit:      params.Limit,
		TotalItems: total,
		TotalPages: (total + params.Limit - 1) / params.Limit,
	})
}

func (h *Handler) handleGetBook(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		httpx.Fail(w, http.StatusBadRequest, "Invalid book ID")
		return
	}
	book, err := h.service.GetBook(r.Context(), id)
	if err != nil {
		h.fail(w, err)
		return
	}
	httpx.OK(w, http.StatusOK, "Get book detail successfully", book, nil)
}

func (h *Handler) handleUpdateBook(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		httpx.Fail(w, http.StatusBadRequest, "Invalid book ID")
		return
	}
	var payload BookPayload
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		httpx.Fail(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	book, err := h.service.UpdateBook(r.Context(), id, payload)
	if err != nil {
		h.fail(w, err)
		return
	}
	httpx.OK(w, http.StatusOK, "Book updated successfully", book, nil)
}

func (h *Handler) handleDeleteBook(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		httpx.Fail(w, http.StatusBadRequest, "Invalid book ID")
		return
	}
	if err := h.service.DeleteBook(r.Context(), id); err != nil {
		h.fail(w, err)
		return
	}
	httpx.OK(w, http.StatusOK, "Book removed successfully", nil, nil)
}

// fail maps service errors to the HTTP statuses the API contract promises.
func (h *Handler) fail(w http.ResponseWriter, err error) {
	var validation ValidationError
	switch {
	case errors.As(err, &validation):
		httpx.Fail(w, http.StatusBadRequest, validation.Error())
	case errors.Is(err, ErrDuplicateName), errors.Is(err, ErrDuplicateTitle):
		httpx.Fail(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, ErrGenreNotFound), errors.Is(err, ErrBookNotFound):
		httpx.Fail(w, http.StatusNotFound, err.Error())
	default:
		httpx.Fail(w, http.StatusInternalServerError, "Internal server error")
	}
}

func atoiDefault(s string, def int) int {
	n, err := strconv.Atoi(s)
	if err != nil || n < 1 {
		return def
	}
	return n
}
