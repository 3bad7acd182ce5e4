package redis

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/oklog/ulid/v2"
	"github.com/redis/go-redis/v9"

	"github.com/mycabs/identity/internal/core/domain"
	"github.com/mycabs/identity/internal/core/ports"
)

const (
	accountKeyPrefix = "account:"
	emailKeyPrefix   = "account:email:"

	maxTxAttempts = 3
)

// Hash fields of an account record.
const (
	fieldEmail        = "email"
	fieldPasswordHash = "password_hash"
	fieldRole         = "role"
	fieldIsApproved   = "is_approved"
	fieldCreatedAt    = "created_at"
)

// AccountRepository keeps each account in a hash under account:<id> and an
// index key account:email:<lower-cased email> pointing at the id. Both are
// written in the same transaction, and the index key is what makes emails
// unique.
type AccountRepository struct {
	client *redis.Client
}

var _ ports.AccountRepository = (*AccountRepository)(nil)

func NewAccountRepository(client *redis.Client) *AccountRepository {
	return &AccountRepository{client: client}
}

func accountKey(id string) string {
	return accountKeyPrefix + id
}

func emailKey(email string) string {
	return emailKeyPrefix + strings.ToLower(email)
}

func (r *AccountRepository) FindByEmailCaseInsensitive(ctx context.Context, email string) (*domain.Account, error) {
	id, err := r.client.Get(ctx, emailKey(email)).Result()
	if errors.Is(err, redis.Nil) {
		return nil, domain.ErrAccountNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("redis get email index: %w", err)
	}
	return r.FindByID(ctx, id)
}

// FindByEmailExact resolves through the case-folded index and then requires
// the stored address to match byte for byte.
func (r *AccountRepository) FindByEmailExact(ctx context.Context, email string) (*domain.Account, error) {
	acc, err := r.FindByEmailCaseInsensitive(ctx, email)
	if err != nil {
		return nil, err
	}
	if acc.Email != email {
		return nil, domain.ErrAccountNotFound
	}
	return acc, nil
}

func (r *AccountRepository) FindByID(ctx context.Context, id string) (*domain.Account, error) {
	fields, err := r.client.HGetAll(ctx, accountKey(id)).Result()
	if err != nil {
		return nil, fmt.Errorf("redis hgetall account: %w", err)
	}
	if len(fields) == 0 {
		return nil, domain.ErrAccountNotFound
	}
	return decodeAccount(id, fields)
}

// Insert writes the index key and the account hash in one MULTI, guarded by
// a WATCH on the index key. An index key whose account hash is missing is
// treated as free.
func (r *AccountRepository) Insert(ctx context.Context, account *domain.Account) (*domain.Account, error) {
	stored := *account
	stored.ID = ulid.Make().String()
	idx := emailKey(account.Email)

	txf := func(tx *redis.Tx) error {
		free, err := indexFree(ctx, tx, idx)
		if err != nil {
			return err
		}
		if !free {
			return domain.ErrEmailAlreadyRegistered
		}
		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.Set(ctx, idx, stored.ID, 0)
			pipe.HSet(ctx, accountKey(stored.ID), encodeAccount(&stored))
			return nil
		})
		return err
	}

	err := r.watch(ctx, txf, idx)
	switch {
	case err == nil:
		return &stored, nil
	case errors.Is(err, domain.ErrEmailAlreadyRegistered):
		return nil, err
	default:
		return nil, fmt.Errorf("redis insert account: %w", err)
	}
}

func (r *AccountRepository) UpdatePasswordHash(ctx context.Context, id, hash string) error {
	key := accountKey(id)
	err := r.client.Watch(ctx, func(tx *redis.Tx) error {
		n, err := tx.Exists(ctx, key).Result()
		if err != nil {
			return err
		}
		if n == 0 {
			return domain.ErrAccountNotFound
		}
		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.HSet(ctx, key, fieldPasswordHash, hash)
			return nil
		})
		return err
	}, key)
	if err != nil && !errors.Is(err, domain.ErrAccountNotFound) {
		return fmt.Errorf("redis update password hash: %w", err)
	}
	return err
}

// UpdateEmail moves the address and its index key in one transaction. A
// case-only change keeps the existing key.
func (r *AccountRepository) UpdateEmail(ctx context.Context, id, email string) error {
	key := accountKey(id)
	newKey := emailKey(email)

	err := r.watch(ctx, func(tx *redis.Tx) error {
		current, err := tx.HGet(ctx, key, fieldEmail).Result()
		if errors.Is(err, redis.Nil) {
			return domain.ErrAccountNotFound
		}
		if err != nil {
			return err
		}

		oldKey := emailKey(current)
		if oldKey != newKey {
			free, err := indexFree(ctx, tx, newKey)
			if err != nil {
				return err
			}
			if !free {
				return domain.ErrEmailAlreadyRegistered
			}
		}

		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.HSet(ctx, key, fieldEmail, email)
			if oldKey != newKey {
				pipe.Set(ctx, newKey, id, 0)
				pipe.Del(ctx, oldKey)
			}
			return nil
		})
		return err
	}, key, newKey)

	switch {
	case err == nil:
		return nil
	case errors.Is(err, domain.ErrAccountNotFound), errors.Is(err, domain.ErrEmailAlreadyRegistered):
		return err
	default:
		return fmt.Errorf("redis update email: %w", err)
	}
}

// watch runs txf under WATCH, retrying when a watched key changes before EXEC.
func (r *AccountRepository) watch(ctx context.Context, txf func(*redis.Tx) error, keys ...string) error {
	var err error
	for attempt := 0; attempt < maxTxAttempts; attempt++ {
		err = r.client.Watch(ctx, txf, keys...)
		if !errors.Is(err, redis.TxFailedErr) {
			return err
		}
	}
	return err
}

// indexFree reports whether the email index key can be claimed: either it is
// unset or the account it names no longer exists.
func indexFree(ctx context.Context, tx *redis.Tx, idx string) (bool, error) {
	id, err := tx.Get(ctx, idx).Result()
	if errors.Is(err, redis.Nil) {
		return true, nil
	}
	if err != nil {
		return false, err
	}
	n, err := tx.Exists(ctx, accountKey(id)).Result()
	if err != nil {
		return false, err
	}
	return n == 0, nil
}

func encodeAccount(acc *domain.Account) map[string]any {
	return map[string]any{
		fieldEmail:        acc.Email,
		fieldPasswordHash: acc.PasswordHash,
		fieldRole:         acc.Role.String(),
		fieldIsApproved:   strconv.FormatBool(acc.IsApproved),
		fieldCreatedAt:    acc.CreatedAt.UTC().Format(time.RFC3339Nano),
	}
}

func decodeAccount(id string, fields map[string]string) (*domain.Account, error) {
	role, err := domain.ParseRole(fields[fieldRole])
	if err != nil {
		return nil, fmt.Errorf("account %s has unrecognised role %q", id, fields[fieldRole])
	}
	approved, err := strconv.ParseBool(fields[fieldIsApproved])
	if err != nil {
		return nil, fmt.Errorf("account %s approval flag: %w", id, err)
	}
	created, err := time.Parse(time.RFC3339Nano, fields[fieldCreatedAt])
	if err != nil {
		return nil, fmt.Errorf("account %s creation time: %w", id, err)
	}

	return &domain.Account{
		ID:           id,
		Email:        fields[fieldEmail],
		PasswordHash: fields[fieldPasswordHash],
		Role:         role,
		IsApproved:   approved,
		CreatedAt:    created,
	}, nil
}
