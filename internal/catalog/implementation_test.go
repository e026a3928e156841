package catalog

import (
	"fmt"
	"testing"

	"github.com/lib/pq"
	"github.com/stretchr/testify/assert"
)

// Insert and update paths classify constraint violations by SQLSTATE so a
// genre deleted between the existence check and the write surfaces as
// ErrGenreNotFound rather than an internal error.
func TestConstraintViolationClassification(t *testing.T) {
	unique := &pq.Error{Code: "23505", Constraint: "books_title_key"}
	foreignKey := &pq.Error{Code: "23503", Constraint: "books_genre_id_fkey"}

	assert.True(t, isUniqueViolation(unique))
	assert.True(t, isUniqueViolation(fmt.Errorf("insert: %w", unique)))
	assert.False(t, isUniqueViolation(foreignKey))

	assert.True(t, isForeignKeyViolation(foreignKey))
	assert.True(t, isForeignKeyViolation(fmt.Errorf("insert: %w", foreignKey)))
	assert.False(t, isForeignKeyViolation(unique))

	assert.False(t, isUniqueViolation(nil))
	assert.False(t, isForeignKeyViolation(nil))
}
