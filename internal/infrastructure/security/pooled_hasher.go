package security

import (
	"context"
	"time"

	"github.com/mycabs/identity/internal/api/metrics"
	"github.com/mycabs/identity/internal/core/ports"
	"github.com/mycabs/identity/internal/infrastructure/queue"
)

// PooledHasher runs another hasher on the shared CPU worker pool.
type PooledHasher struct {
	inner ports.PasswordHasher
	pool  *queue.Pool
}

func NewPooledHasher(inner ports.PasswordHasher, pool *queue.Pool) *PooledHasher {
	return &PooledHasher{inner: inner, pool: pool}
}

func (h *PooledHasher) Hash(ctx context.Context, password string) (string, error) {
	start := time.Now()
	defer observe("hash", start)

	var hash string
	err := h.pool.Run(ctx, func(ctx context.Context) error {
		var err error
		hash, err = h.inner.Hash(ctx, password)
		return err
	})
	if err != nil {
		return "", err
	}
	return hash, nil
}

func (h *PooledHasher) Verify(ctx context.Context, password, hash string) (bool, error) {
	start := time.Now()
	defer observe("verify", start)

	var ok bool
	err := h.pool.Run(ctx, func(ctx context.Context) error {
		var err error
		ok, err = h.inner.Verify(ctx, password, hash)
		return err
	})
	if err != nil {
		return false, err
	}
	return ok, nil
}

func observe(op string, start time.Time) {
	metrics.PasswordHashDuration.WithLabelValues(op).Observe(time.Since(start).Seconds())
}
