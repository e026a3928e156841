// internal/auth/handler.go
package auth

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"bookhaven/internal/httpx"
)

type Handler struct {
	service Service
	tokens  *TokenIssuer
}

func NewHandler(service Service, tokens *TokenIssuer) *Handler {
	return &Handler{service: service, tokens: tokens}
}

// Mount registers the auth routes on the given router.
func (h *Handler) Mount(r chi.Router) {
	r.Post("/auth/register", h.handleRegister)
	r.Post("/auth/login", h.handleLogin)
	r.With(RequireAuth(h.tokens)).Get("/auth/me", h.handleMe)
}

func (h *Handler) handleRegister(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Email    string `json:"email"`
		Username string `json:"username"`
		Password string `json:"password"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httpx.Fail(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if req.Email == "" || req.Password == "" {
		httpx.Fail(w, http.StatusBadRequest, "Email and password are required")
		return
	}
	if req.Username == "" {
		httpx.Fail(w, http.StatusBadRequest, "Username is required")
		return
	}

	user, err := h.service.Register(r.Context(), req.Email, req.Username, req.Password)
	if err != nil {
		switch {
		case errors.Is(err, ErrEmailTaken):
			httpx.Fail(w, http.StatusBadRequest, "Email already exists")
		case errors.Is(err, ErrRateLimited):
			httpx.Fail(w, http.StatusTooManyRequests, "Too many requests")
		default:
			httpx.Fail(w, http.StatusInternalServerError, "Internal server error")
		}
		return
	}

	httpx.OK(w, http.StatusCreated, "User registered successfully", map[string]interface{}{
		"id":         user.ID,
		"email":      user.Email,
		"created_at": user.CreatedAt,
	}, nil)
}

func (h *Handler) handleLogin(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Email    string `json:"email"`
		Password string `json:"password"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httpx.Fail(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if req.Email == "" || req.Password == "" {
		httpx.Fail(w, http.StatusBadRequest, "Email and password are required")
		return
	}

	token, err := h.service.Login(r.Context(), req.Email, req.Password)
	if err != nil {
		switch {
		case errors.Is(err, ErrInvalidCredentials):
			httpx.Fail(w, http.StatusUnauthorized, "Invalid credentials")
		case errors.Is(err, ErrRateLimited):
			httpx.Fail(w, http.StatusTooManyRequests, "Too many requests")
		default:
			httpx.Fail(w, http.StatusInternalServerError, "Internal server error")
		}
		return
	}

	httpx.OK(w, http.StatusOK, "Login successfully", map[string]string{
		"access_token": token,
	}, nil)
}

func (h *Handler) handleMe(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(UserID(r.Context()))
	if err != nil {
		httpx.Fail(w, http.StatusUnauthorized, "Unauthorized")
		return
	}

	user, err := h.service.GetUser(r.Context(), id)
	if err != nil {
		if errors.Is(err, ErrUserNotFound) {
			httpx.Fail(w, http.StatusNotFound, "User not found")
			return
		}
		httpx.Fail(w, http.StatusInternalServerError, "Internal server error")
		return
	}

	httpx.OK(w, http.StatusOK, "Get me successfully", map[string]interface{}{
		"id":       user.ID,
		"username": user.Username,
		"email":    user.Email,
	}, nil)
}
