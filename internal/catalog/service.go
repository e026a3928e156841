// internal/catalog/service.go
package catalog

import (
	"context"

	"github.com/google/uuid"
)

// ListBooksParams are the supported listing controls for GET /books.
type ListBooksParams struct {
	Page               int
	Limit              int
	Search             string
	FilterCondition    string
	OrderByTitle       string // "asc" | "desc" | ""
	OrderByPublishDate string // "asc" | "desc" | ""
}

// Service defines the interface for the catalog service.
type Service interface {
	CreateGenre(ctx context.Context, name string) (*Genre, error)
	ListGenres(ctx context.Context, search string) ([]Genre, error)
	GetGenre(ctx context.Context, id uuid.UUID) (*Genre, error)
	UpdateGenre(ctx context.Context, id uuid.UUID, name string) (*Genre, error)
	DeleteGenre(ctx context.Context, id uuid.UUID) error

	CreateBook(ctx context.Context, payload BookPayload) (*Book, error)
	ListBooks(ctx context.Context, params ListBooksParams) ([]Book, int, error)
	GetBook(ctx context.Context, id uuid.UUID) (*Book, error)
	UpdateBook(ctx context.Context, id uuid.UUID, payload BookPayload) (*Book, error)
	DeleteBook(ctx context.Context, id uuid.UUID) error
}
