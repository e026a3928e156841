// internal/auth/service.go
package auth

import (
	"context"

	"github.com/google/uuid"
)

// Service defines the interface for the auth service.
type Service interface {
	Register(ctx context.Context, email, username, password string) (*User, error)
	Login(ctx context.Context, email, password string) (accessToken string, err error)
	GetUser(ctx context.Context, id uuid.UUID) (*User, error)
}
