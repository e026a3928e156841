// internal/catalog/validate.go
package catalog

import (
	"math"

	"github.com/google/uuid"
)

// maxPublicationYear is the newest publication year the catalog accepts.
const maxPublicationYear = 2025

// BookPayload carries client-supplied book fields. Pointers distinguish
// "absent" from zero values so the same payload serves create and partial
// update. Stock and PublicationYear arrive as floats so fractional input can
// be rejected rather than silently truncated.
type BookPayload struct {
	Title           *string    `json:"title"`
	Writer          *string    `json:"writer"`
	Publisher       *string    `json:"publisher"`
	Price           *float64   `json:"price"`
	Stock           *float64   `json:"stock"`
	GenreID         *uuid.UUID `json:"genreId"`
	ISBN            *string    `json:"isbn"`
	Description     *string    `json:"description"`
	PublicationYear *float64   `json:"publicationYear"`
	Condition       *string    `json:"condition"`
	ImageURL        *string    `json:"imageUrl"`
}

func (p BookPayload) validateCreate() error {
	if p.Title == nil || *p.Title == "" ||
		p.Writer == nil || *p.Writer == "" ||
		p.Publisher == nil || *p.Publisher == "" ||
		p.Price == nil || p.Stock == nil || p.GenreID == nil {
		return ValidationError("Title, writer, publisher, price, stock, and genreId are required")
	}
	return p.validateFields()
}

func (p BookPayload) validateUpdate() error {
	if p.Title == nil && p.Writer == nil && p.Publisher == nil &&
		p.Price == nil && p.Stock == nil && p.GenreID == nil &&
		p.ISBN == nil && p.Description == nil && p.PublicationYear == nil &&
		p.Condition == nil && p.ImageURL == nil {
		return ValidationError("No valid fields provided for update")
	}
	return p.validateFields()
}

func (p BookPayload) validateFields() error {
	if p.Price != nil && (math.IsNaN(*p.Price) || *p.Price < 0) {
		return ValidationError("Price cannot be negative")
	}
	if p.Stock != nil {
		if *p.Stock != math.Trunc(*p.Stock) {
			return ValidationError("Stock must be an integer (no float)")
		}
		if *p.Stock < 0 {
			return ValidationError("Stock cannot be negative")
		}
	}
	if p.PublicationYear != nil {
		if *p.PublicationYear != math.Trunc(*p.PublicationYear) || *p.PublicationYear > maxPublicationYear {
			return ValidationError("Publication year must be a valid number and cannot be greater than 2025")
		}
	}
	return nil
}
