package service

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"errors"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/mycabs/identity/internal/core/domain"
	"github.com/mycabs/identity/internal/core/ports"
)

var tracer = otel.Tracer("identity/auth")

var _ ports.AuthService = (*AuthService)(nil)

// AuthService implements registration, login, password change and account
// update on top of the credential store. It keeps no per-account state;
// concurrent registrations of one email are arbitrated by the store.
type AuthService struct {
	repo   ports.AccountRepository
	hasher ports.PasswordHasher
	tokens ports.TokenIssuer
	log    zerolog.Logger
	now    func() time.Time

	decoyOnce sync.Once
	decoyHash string
}

func NewAuthService(repo ports.AccountRepository, hasher ports.PasswordHasher, tokens ports.TokenIssuer, log zerolog.Logger) *AuthService {
	return &AuthService{
		repo:   repo,
		hasher: hasher,
		tokens: tokens,
		log:    log,
		now:    time.Now,
	}
}

func (s *AuthService) Register(ctx context.Context, email, password, roleName string) (*domain.PublicAccount, error) {
	ctx, span := tracer.Start(ctx, "auth.Register")
	defer span.End()

	role, err := domain.ParseRole(roleName)
	if err != nil {
		return nil, err
	}
	span.SetAttributes(attribute.String("account.role", role.String()))

	if _, err := s.repo.FindByEmailCaseInsensitive(ctx, email); err == nil {
		return nil, domain.ErrEmailAlreadyRegistered
	} else if !errors.Is(err, domain.ErrAccountNotFound) {
		return nil, s.fail(span, "register: lookup email", err)
	}

	hash, err := s.hasher.Hash(ctx, password)
	if err != nil {
		return nil, s.fail(span, "register: hash password", err)
	}

	created, err := s.repo.Insert(ctx, &domain.Account{
		Email:        email,
		PasswordHash: hash,
		Role:         role,
		IsApproved:   role == domain.RoleUser,
		CreatedAt:    s.now().UTC(),
	})
	if err != nil {
		// Lost a race with a concurrent registration of the same email.
		if errors.Is(err, domain.ErrEmailAlreadyRegistered) {
			return nil, err
		}
		return nil, s.fail(span, "register: insert account", err)
	}

	s.log.Info().
		Str("account_id", created.ID).
		Str("role", created.Role.String()).
		Bool("approved", created.IsApproved).
		Msg("account registered")

	pub := created.Public()
	return &pub, nil
}

// Login verifies credentials and issues a token. An unknown email and a
// wrong password both yield ErrInvalidCredentials after the same amount of
// hashing work.
func (s *AuthService) Login(ctx context.Context, email, password string) (*ports.LoginResult, error) {
	ctx, span := tracer.Start(ctx, "auth.Login")
	defer span.End()

	account, err := s.repo.FindByEmailExact(ctx, email)
	if err != nil {
		if errors.Is(err, domain.ErrAccountNotFound) {
			s.verifyDecoy(ctx, password)
			return nil, domain.ErrInvalidCredentials
		}
		return nil, s.fail(span, "login: lookup email", err)
	}

	ok, err := s.hasher.Verify(ctx, password, account.PasswordHash)
	if err != nil {
		return nil, s.fail(span, "login: verify password", err)
	}
	if !ok {
		return nil, domain.ErrInvalidCredentials
	}

	if account.Role.RequiresApproval() && !account.IsApproved {
		return nil, domain.ErrAccountNotApproved
	}

	token, expiresAt, err := s.tokens.Issue(account)
	if err != nil {
		return nil, s.fail(span, "login: issue token", err)
	}

	span.SetAttributes(attribute.String("account.id", account.ID))
	s.log.Info().Str("account_id", account.ID).Msg("login succeeded")

	return &ports.LoginResult{
		Token:     token,
		ExpiresAt: expiresAt,
		Account:   account.Public(),
	}, nil
}

// ChangePassword replaces the hash of accountID after checking the current
// password. Tokens issued earlier stay valid until they expire.
func (s *AuthService) ChangePassword(ctx context.Context, accountID, currentPassword, newPassword string) error {
	ctx, span := tracer.Start(ctx, "auth.ChangePassword", trace.WithAttributes(attribute.String("account.id", accountID)))
	defer span.End()

	account, err := s.repo.FindByID(ctx, accountID)
	if err != nil {
		if errors.Is(err, domain.ErrAccountNotFound) {
			return err
		}
		return s.fail(span, "change password: lookup account", err)
	}

	ok, err := s.hasher.Verify(ctx, currentPassword, account.PasswordHash)
	if err != nil {
		return s.fail(span, "change password: verify password", err)
	}
	if !ok {
		return domain.ErrIncorrectPassword
	}

	hash, err := s.hasher.Hash(ctx, newPassword)
	if err != nil {
		return s.fail(span, "change password: hash password", err)
	}

	if err := s.repo.UpdatePasswordHash(ctx, account.ID, hash); err != nil {
		if errors.Is(err, domain.ErrAccountNotFound) {
			return err
		}
		return s.fail(span, "change password: update hash", err)
	}

	s.log.Info().Str("account_id", account.ID).Msg("password changed")
	return nil
}

// UpdateAccount sets the email of accountID. No existence or uniqueness
// check happens here; only the store's unique index can reject the write.
func (s *AuthService) UpdateAccount(ctx context.Context, accountID, email string) error {
	ctx, span := tracer.Start(ctx, "auth.UpdateAccount", trace.WithAttributes(attribute.String("account.id", accountID)))
	defer span.End()

	if err := s.repo.UpdateEmail(ctx, accountID, email); err != nil {
		if errors.Is(err, domain.ErrAccountNotFound) || errors.Is(err, domain.ErrEmailAlreadyRegistered) {
			return err
		}
		return s.fail(span, "update account: update email", err)
	}

	s.log.Info().Str("account_id", accountID).Msg("account updated")
	return nil
}

// verifyDecoy spends one verification on a throwaway hash so a missing
// account costs as much as a wrong password.
func (s *AuthService) verifyDecoy(ctx context.Context, password string) {
	s.decoyOnce.Do(func() {
		buf := make([]byte, 18)
		_, _ = rand.Read(buf)
		hash, err := s.hasher.Hash(context.WithoutCancel(ctx), base64.RawStdEncoding.EncodeToString(buf))
		if err != nil {
			s.log.Warn().Err(err).Msg("decoy hash unavailable")
			return
		}
		s.decoyHash = hash
	})
	if s.decoyHash == "" {
		return
	}
	_, _ = s.hasher.Verify(ctx, password, s.decoyHash)
}

func (s *AuthService) fail(span trace.Span, op string, err error) error {
	span.RecordError(err)
	span.SetStatus(codes.Error, op)
	s.log.Error().Err(err).Str("op", op).Msg("auth operation failed")
	return domain.Internal(op, err)
}
