package ports

import (
	"context"

	"github.com/mycabs/identity/internal/core/domain"
)

// AccountRepository is the credential store. Lookups return
// domain.ErrAccountNotFound when nothing matches; Insert and UpdateEmail
// return domain.ErrEmailAlreadyRegistered when the store's case-insensitive
// unique email index rejects the write.
type AccountRepository interface {
	FindByEmailCaseInsensitive(ctx context.Context, email string) (*domain.Account, error)
	FindByEmailExact(ctx context.Context, email string) (*domain.Account, error)
	FindByID(ctx context.Context, id string) (*domain.Account, error)
	// Insert persists a new account and returns it with the store-assigned ID.
	Insert(ctx context.Context, account *domain.Account) (*domain.Account, error)
	UpdatePasswordHash(ctx context.Context, id, hash string) error
	UpdateEmail(ctx context.Context, id, email string) error
}
