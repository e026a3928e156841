// internal/httpx/server.go
package httpx

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
)

// NewRouter builds the base router with the common middleware stack and the
// health-check endpoint.
func NewRouter(requestTimeout time.Duration) *chi.Mux {
	r := chi.NewRouter()
	r.Use(middleware.RequestID, middleware.RealIP, middleware.Logger, middleware.Recoverer)
	r.Use(middleware.Timeout(requestTimeout))
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{"GET", "POST", "PUT", "DELETE", "OPTIONS", "PATCH"},
		AllowedHeaders: []string{"Content-Type", "Authorization", "X-Requested-With", "Accept"},
	}))

	r.Get("/health-check", func(w http.ResponseWriter, r *http.Request) {
		OK(w, http.StatusOK, "Server is running well!", map[string]string{
			"date": time.Now().UTC().Format(time.RFC3339),
		}, nil)
	})

	return r
}
