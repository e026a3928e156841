// internal/catalog/search.go
package catalog

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/meilisearch/meilisearch-go"
	"github.com/sony/gobreaker"
)

const booksIndex = "books"

var errSearchUnavailable = errors.New("search backend not configured")

// bookDocument is the subset of a book pushed to the search index.
type bookDocument struct {
	ID     string `json:"id"`
	Title  string `json:"title"`
	Writer string `json:"writer"`
}

// SearchIndex fronts Meilisearch behind a circuit breaker. When the backend
// misbehaves the breaker opens and callers fall back to Postgres queries.
// A nil *SearchIndex is valid and always reports the backend as unavailable.
type SearchIndex struct {
	client  meilisearch.ServiceManager
	breaker *gobreaker.CircuitBreaker
}

// NewSearchIndex returns nil when host is empty.
func NewSearchIndex(host, apiKey string) *SearchIndex {
	if host == "" {
		return nil
	}
	return &SearchIndex{
		client: meilisearch.New(host, meilisearch.WithAPIKey(apiKey)),
		breaker: gobreaker.NewCircuitBreaker(gobreaker.Settings{
			Name: "meilisearch",
		}),
	}
}

// Query returns the ids of books matching the query, best first.
func (s *SearchIndex) Query(ctx context.Context, query string, limit int) ([]uuid.UUID, error) {
	if s == nil {
		return nil, errSearchUnavailable
	}

	result, err := s.breaker.Execute(func() (interface{}, error) {
		res, err := s.client.Index(booksIndex).SearchWithContext(ctx, query, &meilisearch.SearchRequest{
			Limit: int64(limit),
		})
		if err != nil {
			return nil, fmt.Errorf("search %q: %w", query, err)
		}

		ids := make([]uuid.UUID, 0, len(res.Hits))
		for _, hit := range res.Hits {
			raw, err := json.Marshal(hit)
			if err != nil {
				continue
			}
			var doc bookDocument
			if err := json.Unmarshal(raw, &doc); err != nil {
				continue
			}
			if id, err := uuid.Parse(doc.ID); err == nil {
				ids = append(ids, id)
			}
		}
		return ids, nil
	})
	if err != nil {
		return nil, err
	}
	ids, ok := result.([]uuid.UUID)
	if !ok {
		return nil, fmt.Errorf("unexpected search result type %T", result)
	}
	return ids, nil
}

// Index upserts a book document. Best effort: callers log failures and move
// on, the catalog database stays the source of truth.
func (s *SearchIndex) Index(ctx context.Context, book *Book) error {
	if s == nil {
		return nil
	}
	_, err := s.client.Index(booksIndex).AddDocumentsWithContext(ctx, []bookDocument{{
		ID:     book.ID.String(),
		Title:  book.Title,
		Writer: book.Writer,
	}}, nil)
	return err
}

// Remove deletes a book document.
func (s *SearchIndex) Remove(ctx context.Context, id uuid.UUID) error {
	if s == nil {
		return nil
	}
	_, err := s.client.Index(booksIndex).DeleteDocumentWithContext(ctx, id.String())
	return err
}
