// Package postgres stores accounts in PostgreSQL.
package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/mycabs/identity/internal/infrastructure/db"
)

// Config holds the connection settings for the Postgres store.
type Config struct {
	URL      string
	Attempts uint64
}

// Connect opens a connection pool and pings it, retrying with backoff up to
// cfg.Attempts times.
func Connect(ctx context.Context, cfg Config) (*pgxpool.Pool, error) {
	var pool *pgxpool.Pool
	err := db.Connect(ctx, cfg.Attempts, func(ctx context.Context) error {
		p, err := pgxpool.New(ctx, cfg.URL)
		if err != nil {
			return fmt.Errorf("postgres connect: %w", err)
		}
		if err := p.Ping(ctx); err != nil {
			p.Close()
			return fmt.Errorf("postgres ping: %w", err)
		}
		pool = p
		return nil
	})
	if err != nil {
		return nil, err
	}
	return pool, nil
}
