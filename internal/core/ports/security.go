package ports

import (
	"context"
	"time"

	"github.com/mycabs/identity/internal/core/domain"
)

// PasswordHasher is a one-way salted hash primitive.
type PasswordHasher interface {
	Hash(ctx context.Context, password string) (string, error)
	// Verify returns (false, nil) on mismatch and an error only when the
	// comparison itself could not run.
	Verify(ctx context.Context, password, hash string) (bool, error)
}

// TokenIssuer signs and validates bearer tokens.
type TokenIssuer interface {
	Issue(account *domain.Account) (token string, expiresAt time.Time, err error)
	Validate(token string) (*domain.Principal, error)
}
