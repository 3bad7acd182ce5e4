package ports

import (
	"context"
	"time"

	"github.com/mycabs/identity/internal/core/domain"
)

// LoginResult is returned by a successful login.
type LoginResult struct {
	Token     string
	ExpiresAt time.Time
	Account   domain.PublicAccount
}

type AuthService interface {
	Register(ctx context.Context, email, password, role string) (*domain.PublicAccount, error)
	Login(ctx context.Context, email, password string) (*LoginResult, error)
	ChangePassword(ctx context.Context, accountID, currentPassword, newPassword string) error
	UpdateAccount(ctx context.Context, accountID, email string) error
}
