package auth

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/gosafar/travel-api/internal/user"
)

// TokenService defines the interface for session token creation and
// validation. Implementations include JWTService (HS256) and PasetoService
// (PASETO v4.local).
type TokenService interface {
	CreateToken(userID uuid.UUID, email string, duration time.Duration) (string, error)
	VerifyToken(tokenStr string) (*TokenClaims, error)
}

// UserRepository is the credential store contract the auth service depends
// on. The bun-backed implementation lives in internal/user.
type UserRepository interface {
	Create(ctx context.Context, email, phone, passwordHash string) (*user.User, error)
	GetByID(ctx context.Context, id uuid.UUID) (*user.User, error)
	GetByEmail(ctx context.Context, email string) (*user.User, error)
	GetByPhone(ctx context.Context, phone string) (*user.User, error)
	UpdateProfile(ctx context.Context, id uuid.UUID, firstName, lastName, phone string) (*user.User, error)
	UpdateImage(ctx context.Context, id uuid.UUID, image *string) (*user.User, error)
}
