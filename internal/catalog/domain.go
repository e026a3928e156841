// internal/catalog/domain.go
package catalog

import (
	"errors"
	"time"

	"github.com/google/uuid"
)

// Genre is a book category.
type Genre struct {
	ID        uuid.UUID `json:"id" db:"id"`
	Name      string    `json:"name" db:"name"`
	CreatedAt time.Time `json:"created_at" db:"created_at"`
	UpdatedAt time.Time `json:"updated_at" db:"updated_at"`
}

// Book is a catalog entry. Stock is the only field the order engine mutates.
type Book struct {
	ID              uuid.UUID `json:"id" db:"id"`
	Title           string    `json:"title" db:"title"`
	Writer          string    `json:"writer" db:"writer"`
	Publisher       string    `json:"publisher" db:"publisher"`
	Price           float64   `json:"price" db:"price"`
	Stock           int       `json:"stock" db:"stock"`
	GenreID         uuid.UUID `json:"genreId" db:"genre_id"`
	ISBN            *string   `json:"isbn,omitempty" db:"isbn"`
	Description     *string   `json:"description,omitempty" db:"description"`
	PublicationYear *int      `json:"publicationYear,omitempty" db:"publication_year"`
	Condition       *string   `json:"condition,omitempty" db:"condition"`
	ImageURL        *string   `json:"imageUrl,omitempty" db:"image_url"`
	CreatedAt       time.Time `json:"created_at" db:"created_at"`
	UpdatedAt       time.Time `json:"updated_at" db:"updated_at"`

	Genre Genre `json:"genre" db:"genre"`
}

var (
	ErrGenreNotFound  = errors.New("genre not found")
	ErrBookNotFound   = errors.New("book not found")
	ErrDuplicateName  = errors.New("genre name already exists")
	ErrDuplicateTitle = errors.New("book title already exists")
)

// ValidationError reports a rejected input field with a user-facing message.
type ValidationError string

func (e ValidationError) Error() string { return string(e) }
