// internal/catalog/implementation.go
package catalog

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
)

const bookColumns = `
	b.id, b.title, b.writer, b.publisher, b.price, b.stock, b.genre_id,
	b.isbn, b.description, b.publication_year, b.condition, b.image_url,
	b.created_at, b.updated_at,
	g.id AS "genre.id", g.name AS "genre.name",
	g.created_at AS "genre.created_at", g.updated_at AS "genre.updated_at"
`

// service implements the Service interface.
type service struct {
	db     *sqlx.DB
	search *SearchIndex
}

// NewService creates a new catalog service instance. search may be nil, in
// which case all searches go straight to Postgres.
func NewService(db *sqlx.DB, search *SearchIndex) Service {
	return &service{db: db, search: search}
}

// CreateGenre creates a new genre.
func (s *service) CreateGenre(ctx context.Context, name string) (*Genre, error) {
	genre := &Genre{ID: uuid.New(), Name: name, CreatedAt: time.Now().UTC(), UpdatedAt: time.Now().UTC()}

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO genres (id, name, created_at, updated_at)
		VALUES ($1, $2, $3, $4)
	`, genre.ID, genre.Name, genre.CreatedAt, genre.UpdatedAt)
	if err != nil {
		if isUniqueViolation(err) {
			return nil, ErrDuplicateName
		}
		return nil, fmt.Errorf("failed to insert genre: %w", err)
	}
	return genre, nil
}

// ListGenres returns genres ordered by name, optionally filtered by a
// case-insensitive substring match.
func (s *service) ListGenres(ctx context.Context, search string) ([]Genre, error) {
	query := `SELECT id, name, created_at, updated_at FROM genres`
	args := []interface{}{}
	if search != "" {
		query += ` WHERE name ILIKE $1`
		args = append(args, "%"+search+"%")
	}
	query += ` ORDER BY name ASC`

	genres := []Genre{}
	if err := s.db.SelectContext(ctx, &genres, query, args...); err != nil {
		return nil, fmt.Errorf("failed to list genres: %w", err)
	}
	return genres, nil
}

// GetGenre retrieves a genre by id.
func (s *service) GetGenre(ctx context.Context, id uuid.UUID) (*Genre, error) {
	var genre Genre
	err := s.db.GetContext(ctx, &genre, `SELECT id, name, created_at, updated_at FROM genres WHERE id = $1`, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrGenreNotFound
		}
		return nil, fmt.Errorf("failed to get genre: %w", err)
	}
	return &genre, nil
}

// UpdateGenre renames a genre.
func (s *service) UpdateGenre(ctx context.Context, id uuid.UUID, name string) (*Genre, error) {
	res, err := s.db.ExecContext(ctx, `
		UPDATE genres SET name = $1, updated_at = NOW() WHERE id = $2
	`, name, id)
	if err != nil {
		if isUniqueViolation(err) {
			return nil, ErrDuplicateName
		}
		return nil, fmt.Errorf("failed to update genre: %w", err)
	}
	if affected, _ := res.RowsAffected(); affected == 0 {
		return nil, ErrGenreNotFound
	}
	return s.GetGenre(ctx, id)
}

// DeleteGenre removes a genre. Genres referenced by books cannot be removed.
func (s *service) DeleteGenre(ctx context.Context, id uuid.UUID) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM genres WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to delete genre: %w", err)
	}
	if affected, _ := res.RowsAffected(); affected == 0 {
		return ErrGenreNotFound
	}
	return nil
}

// CreateBook validates the payload and inserts a new book.
func (s *service) CreateBook(ctx context.Context, payload BookPayload) (*Book, error) {
	if err := payload.validateCreate(); err != nil {
		return nil, err
	}

	if _, err := s.GetGenre(ctx, *payload.GenreID); err != nil {
		return nil, err
	}

	id := uuid.New()
	var pubYear *int
	if payload.PublicationYear != nil {
		y := int(*payload.PublicationYear)
		pubYear = &y
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO books (id, title, writer, publisher, price, stock, genre_id,
		                   isbn, description, publication_year, condition, image_url)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
	`, id, *payload.Title, *payload.Writer, *payload.Publisher, *payload.Price, int(*payload.Stock),
		*payload.GenreID, payload.ISBN, payload.Description, pubYear, payload.Condition, payload.ImageURL)
	if err != nil {
		if isUniqueViolation(err) {
			return nil, ErrDuplicateTitle
		}
		// The genre existed when checked above but can be deleted before
		// the insert lands.
		if isForeignKeyViolation(err) {
			return nil, ErrGenreNotFound
		}
		return nil, fmt.Errorf("failed to insert book: %w", err)
	}

	book, err := s.GetBook(ctx, id)
	if err != nil {
		return nil, err
	}
	s.indexBook(ctx, book)
	return book, nil
}

// ListBooks returns a page of books with their genre, plus the unpaged total.
func (s *service) ListBooks(ctx context.Context, params ListBooksParams) ([]Book, int, error) {
	if params.Page < 1 {
		params.Page = 1
	}
	if params.Limit < 1 {
		params.Limit = 10
	}

	var where []string
	var args []interface{}
	arg := func(v interface{}) string {
		args = append(args, v)
		return fmt.Sprintf("$%d", len(args))
	}

	if params.Search != "" {
		if ids, err := s.search.Query(ctx, params.Search, 1000); err == nil {
			where = append(where, fmt.Sprintf("b.id = ANY(%s)", arg(pq.Array(ids))))
		} else {
			// Search backend down or not configured: Postgres fallback.
			p := arg("%" + params.Search + "%")
			where = append(where, fmt.Sprintf("(b.title ILIKE %s OR b.writer ILIKE %s)", p, p))
		}
	}
	if params.FilterCondition != "" {
		where = append(where, fmt.Sprintf("b.condition = %s", arg(params.FilterCondition)))
	}

	whereClause := ""
	if len(where) > 0 {
		whereClause = " WHERE " + strings.Join(where, " AND ")
	}

	orderBy := "b.created_at DESC"
	switch {
	case params.OrderByTitle == "asc" || params.OrderByTitle == "desc":
		orderBy = "b.title " + params.OrderByTitle
	case params.OrderByPublishDate == "asc" || params.OrderByPublishDate == "desc":
		orderBy = "b.publication_year " + params.OrderByPublishDate
	}

	var total int
	countQuery := `SELECT COUNT(*) FROM books b` + whereClause
	if err := s.db.GetContext(ctx, &total, countQuery, args...); err != nil {
		return nil, 0, fmt.Errorf("failed to count books: %w", err)
	}

	query := `SELECT ` + bookColumns + ` FROM books b JOIN genres g ON g.id = b.genre_id` +
		whereClause +
		fmt.Sprintf(" ORDER BY %s LIMIT %s OFFSET %s",
			orderBy, arg(params.Limit), arg((params.Page-1)*params.Limit))

	books := []Book{}
	if err := s.db.SelectContext(ctx, &books, query, args...); err != nil {
		return nil, 0, fmt.Errorf("failed to list books: %w", err)
	}
	return books, total, nil
}

// GetBook retrieves a book with its genre.
func (s *service) GetBook(ctx context.Context, id uuid.UUID) (*Book, error) {
	var book Book
	err := s.db.GetContext(ctx, &book,
		`SELECT `+bookColumns+` FROM books b JOIN genres g ON g.id = b.genre_id WHERE b.id = $1`, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrBookNotFound
		}
		return nil, fmt.Errorf("failed to get book: %w", err)
	}
	return &book, nil
}

// UpdateBook applies a partial update after validating the supplied fields.
func (s *service) UpdateBook(ctx context.Context, id uuid.UUID, payload BookPayload) (*Book, error) {
	if err := payload.validateUpdate(); err != nil {
		return nil, err
	}
	if payload.GenreID != nil {
		if _, err := s.GetGenre(ctx, *payload.GenreID); err != nil {
			return nil, err
		}
	}

	var set []string
	var args []interface{}
	assign := func(column string, v interface{}) {
		args = append(args, v)
		set = append(set, fmt.Sprintf("%s = $%d", column, len(args)))
	}

	if payload.Title != nil {
		assign("title", *payload.Title)
	}
	if payload.Writer != nil {
		assign("writer", *payload.Writer)
	}
	if payload.Publisher != nil {
		assign("publisher", *payload.Publisher)
	}
	if payload.Price != nil {
		assign("price", *payload.Price)
	}
	if payload.Stock != nil {
		assign("stock", int(*payload.Stock))
	}
	if payload.GenreID != nil {
		assign("genre_id", *payload.GenreID)
	}
	if payload.ISBN != nil {
		assign("isbn", *payload.ISBN)
	}
	if payload.Description != nil {
		assign("description", *payload.Description)
	}
	if payload.PublicationYear != nil {
		assign("publication_year", int(*payload.PublicationYear))
	}
	if payload.Condition != nil {
		assign("condition", *payload.Condition)
	}
	if payload.ImageURL != nil {
		assign("image_url", *payload.ImageURL)
	}
	set = append(set, "updated_at = NOW()")

	args = append(args, id)
	query := fmt.Sprintf("UPDATE books SET %s WHERE id = $%d", strings.Join(set, ", "), len(args))

	res, err := s.db.ExecContext(ctx, query, args...)
	if err != nil {
		if isUniqueViolation(err) {
			return nil, ErrDuplicateTitle
		}
		if isForeignKeyViolation(err) {
			return nil, ErrGenreNotFound
		}
		return nil, fmt.Errorf("failed to update book: %w", err)
	}
	if affected, _ := res.RowsAffected(); affected == 0 {
		return nil, ErrBookNotFound
	}

	book, err := s.GetBook(ctx, id)
	if err != nil {
		return nil, err
	}
	s.indexBook(ctx, book)
	return book, nil
}

// DeleteBook hard-deletes a book. Past order lines keep their frozen copy of
// the price and book id.
func (s *service) DeleteBook(ctx context.Context, id uuid.UUID) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM books WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to delete book: %w", err)
	}
	if affected, _ := res.RowsAffected(); affected == 0 {
		return ErrBookNotFound
	}
	if err := s.search.Remove(ctx, id); err != nil {
		slog.Warn("failed to remove book from search index", "book_id", id, "error", err)
	}
	return nil
}

func (s *service) indexBook(ctx context.Context, book *Book) {
	if err := s.search.Index(ctx, book); err != nil {
		slog.Warn("failed to index book for search", "book_id", book.ID, "error", err)
	}
}

func isUniqueViolation(err error) bool {
	var pqErr *pq.Error
	return errors.As(err, &pqErr) && pqErr.Code == "23505"
}

func isForeignKeyViolation(err error) bool {
	var pqErr *pq.Error
	return errors.As(err, &pqErr) && pqErr.Code == "23503"
}
