package postgres

import (
	"context"
	"errors"

	"github.com/jackc/pgerrcode"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/samber/oops"

	"github.com/mycabs/identity/internal/core/domain"
	"github.com/mycabs/identity/internal/core/ports"
)

const selectAccount = `SELECT id::text, email, password_hash, role, is_approved, created_at FROM accounts`

// poolIface is the subset of pgxpool.Pool used by the repository.
type poolIface interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// AccountRepository implements ports.AccountRepository on the accounts table.
// Email uniqueness is enforced by a unique index on LOWER(email).
type AccountRepository struct {
	pool poolIface
}

var _ ports.AccountRepository = (*AccountRepository)(nil)

func NewAccountRepository(pool poolIface) *AccountRepository {
	return &AccountRepository{pool: pool}
}

func (r *AccountRepository) FindByEmailCaseInsensitive(ctx context.Context, email string) (*domain.Account, error) {
	return r.findOne(ctx, "find account by email", selectAccount+` WHERE LOWER(email) = LOWER($1)`, email)
}

func (r *AccountRepository) FindByEmailExact(ctx context.Context, email string) (*domain.Account, error) {
	return r.findOne(ctx, "find account by exact email", selectAccount+` WHERE email = $1`, email)
}

func (r *AccountRepository) FindByID(ctx context.Context, id string) (*domain.Account, error) {
	uid, ok := parseID(id)
	if !ok {
		return nil, domain.ErrAccountNotFound
	}
	return r.findOne(ctx, "find account by id", selectAccount+` WHERE id = $1`, uid)
}

func (r *AccountRepository) Insert(ctx context.Context, account *domain.Account) (*domain.Account, error) {
	stored := *account
	err := r.pool.QueryRow(ctx,
		`INSERT INTO accounts (email, password_hash, role, is_approved, created_at)
		 VALUES ($1, $2, $3, $4, $5)
		 RETURNING id::text, created_at`,
		account.Email,
		account.PasswordHash,
		account.Role.String(),
		account.IsApproved,
		account.CreatedAt,
	).Scan(&stored.ID, &stored.CreatedAt)
	if err != nil {
		if isUniqueViolation(err) {
			return nil, domain.ErrEmailAlreadyRegistered
		}
		return nil, oops.Code("ACCOUNT_INSERT_FAILED").With("operation", "insert account").Wrap(err)
	}
	stored.CreatedAt = stored.CreatedAt.UTC()
	return &stored, nil
}

func (r *AccountRepository) UpdatePasswordHash(ctx context.Context, id, hash string) error {
	uid, ok := parseID(id)
	if !ok {
		return domain.ErrAccountNotFound
	}
	tag, err := r.pool.Exec(ctx, `UPDATE accounts SET password_hash = $2 WHERE id = $1`, uid, hash)
	if err != nil {
		return oops.Code("ACCOUNT_UPDATE_FAILED").With("operation", "update password hash").Wrap(err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrAccountNotFound
	}
	return nil
}

func (r *AccountRepository) UpdateEmail(ctx context.Context, id, email string) error {
	uid, ok := parseID(id)
	if !ok {
		return domain.ErrAccountNotFound
	}
	tag, err := r.pool.Exec(ctx, `UPDATE accounts SET email = $2 WHERE id = $1`, uid, email)
	if err != nil {
		if isUniqueViolation(err) {
			return domain.ErrEmailAlreadyRegistered
		}
		return oops.Code("ACCOUNT_UPDATE_FAILED").With("operation", "update email").Wrap(err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrAccountNotFound
	}
	return nil
}

func (r *AccountRepository) findOne(ctx context.Context, op, query string, arg any) (*domain.Account, error) {
	var (
		acc  domain.Account
		role string
	)
	err := r.pool.QueryRow(ctx, query, arg).
		Scan(&acc.ID, &acc.Email, &acc.PasswordHash, &role, &acc.IsApproved, &acc.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, domain.ErrAccountNotFound
	}
	if err != nil {
		return nil, oops.Code("ACCOUNT_QUERY_FAILED").With("operation", op).Wrap(err)
	}

	if acc.Role, err = domain.ParseRole(role); err != nil {
		return nil, oops.Code("ACCOUNT_CORRUPT").With("operation", op).Errorf("stored role %q is not recognised", role)
	}
	acc.CreatedAt = acc.CreatedAt.UTC()
	return &acc, nil
}

// parseID reports false for ids that cannot name a row.
func parseID(id string) (pgtype.UUID, bool) {
	var uid pgtype.UUID
	if err := uid.Scan(id); err != nil || !uid.Valid {
		return pgtype.UUID{}, false
	}
	return uid, true
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == pgerrcode.UniqueViolation
}
