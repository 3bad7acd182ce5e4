// Package db holds helpers shared by the credential store adapters.
package db

import (
	"context"
	"time"

	"github.com/sethvargo/go-retry"
)

const retryBase = 500 * time.Millisecond

// Connect calls fn until it succeeds or attempts are exhausted, backing off
// exponentially between tries. It is meant for process startup only; store
// operations themselves are never retried.
func Connect(ctx context.Context, attempts uint64, fn func(ctx context.Context) error) error {
	if attempts == 0 {
		attempts = 1
	}
	backoff := retry.WithMaxRetries(attempts-1, retry.NewExponential(retryBase))
	return retry.Do(ctx, backoff, func(ctx context.Context) error {
		if err := fn(ctx); err != nil {
			return retry.RetryableError(err)
		}
		return nil
	})
}
