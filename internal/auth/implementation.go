// internal/auth/implementation.go
package auth

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
	"golang.org/x/time/rate"
)

// service implements the Service interface.
type service struct {
	db          *sqlx.DB
	tokens      *TokenIssuer
	rateLimiter *rate.Limiter
}

// NewService creates a new auth service instance.
func NewService(db *sqlx.DB, tokens *TokenIssuer) Service {
	return &service{
		db:          db,
		tokens:      tokens,
		rateLimiter: rate.NewLimiter(rate.Every(time.Minute/30), 10),
	}
}

// Register creates a new user with a salted Argon2id credential.
func (s *service) Register(ctx context.Context, email, username, password string) (*User, error) {
	if !s.rateLimiter.Allow() {
		return nil, ErrRateLimited
	}

	passwordHash, salt, err := hashPassword(password)
	if err != nil {
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}

	user := &User{
		ID:           uuid.New(),
		Email:        email,
		Username:     username,
		PasswordHash: passwordHash,
		Salt:         salt,
		CreatedAt:    time.Now().UTC(),
	}

	query := `
		INSERT INTO users (id, email, username, password_hash, salt, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)
	`
	_, err = s.db.ExecContext(ctx, query, user.ID, user.Email, user.Username, user.PasswordHash, user.Salt, user.CreatedAt)
	if err != nil {
		// 23505: unique_violation on users.email
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && pqErr.Code == "23505" {
			return nil, ErrEmailTaken
		}
		return nil, fmt.Errorf("failed to insert user: %w", err)
	}

	return user, nil
}

// Login verifies credentials and returns a signed access token.
func (s *service) Login(ctx context.Context, email, password string) (string, error) {
	if !s.rateLimiter.Allow() {
		return "", ErrRateLimited
	}

	var user User
	err := s.db.GetContext(ctx, &user, `
		SELECT id, email, username, password_hash, salt, created_at, updated_at
		FROM users
		WHERE email = $1
	`, email)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return "", ErrInvalidCredentials
		}
		return "", fmt.Errorf("failed to look up user: %w", err)
	}

	ok, err := verifyPassword(password, user.Salt, user.PasswordHash)
	if err != nil {
		return "", fmt.Errorf("failed to verify password: %w", err)
	}
	if !ok {
		return "", ErrInvalidCredentials
	}

	token, err := s.tokens.Sign(user.ID.String())
	if err != nil {
		return "", fmt.Errorf("failed to sign token: %w", err)
	}
	return token, nil
}

// GetUser retrieves a user by id.
func (s *service) GetUser(ctx context.Context, id uuid.UUID) (*User, error) {
	var user User
	err := s.db.GetContext(ctx, &user, `
		SELECT id, email, username, password_hash, salt, created_at, updated_at
		FROM users
		WHERE id = $1
	`, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrUserNotFound
		}
		return nil, fmt.Errorf("failed to get user: %w", err)
	}
	return &user, nil
}
