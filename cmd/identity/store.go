package main

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"

	"github.com/mycabs/identity/internal/api/handler"
	"github.com/mycabs/identity/internal/core/ports"
	"github.com/mycabs/identity/internal/infrastructure/config"
	mongostore "github.com/mycabs/identity/internal/infrastructure/db/mongo"
	pgstore "github.com/mycabs/identity/internal/infrastructure/db/postgres"
	redisstore "github.com/mycabs/identity/internal/infrastructure/db/redis"
)

// store is the opened credential store selected by STORE_DRIVER.
type store struct {
	repo   ports.AccountRepository
	health map[string]handler.Pinger
	close  func(ctx context.Context) error
}

func openStore(ctx context.Context, cfg *config.Config, log zerolog.Logger) (*store, error) {
	switch cfg.StoreDriver {
	case config.DriverMongo:
		client, db, err := mongostore.Connect(ctx, mongostore.Config{
			URI:      cfg.Mongo.URI,
			Database: cfg.Mongo.Database,
			Attempts: cfg.ConnectAttempts,
		})
		if err != nil {
			return nil, err
		}
		repo := mongostore.NewAccountRepository(db)
		if err := repo.EnsureIndexes(ctx); err != nil {
			_ = client.Disconnect(ctx)
			return nil, err
		}
		log.Info().Str("database", cfg.Mongo.Database).Msg("mongo store ready")
		return &store{
			repo: repo,
			health: map[string]handler.Pinger{
				"mongodb": handler.PingFunc(func(ctx context.Context) error { return client.Ping(ctx, nil) }),
			},
			close: client.Disconnect,
		}, nil

	case config.DriverPostgres:
		pool, err := pgstore.Connect(ctx, pgstore.Config{
			URL:      cfg.Postgres.URL,
			Attempts: cfg.ConnectAttempts,
		})
		if err != nil {
			return nil, err
		}
		log.Info().Msg("postgres store ready")
		return &store{
			repo:   pgstore.NewAccountRepository(pool),
			health: map[string]handler.Pinger{"postgres": pool},
			close: func(context.Context) error {
				pool.Close()
				return nil
			},
		}, nil

	case config.DriverRedis:
		client, err := redisstore.Connect(ctx, redisstore.Config{
			Addr:     cfg.Redis.Addr,
			DB:       cfg.Redis.DB,
			Attempts: cfg.ConnectAttempts,
		})
		if err != nil {
			return nil, err
		}
		log.Info().Str("addr", cfg.Redis.Addr).Msg("redis store ready")
		return &store{
			repo: redisstore.NewAccountRepository(client),
			health: map[string]handler.Pinger{
				"redis": handler.PingFunc(func(ctx context.Context) error { return client.Ping(ctx).Err() }),
			},
			close: func(context.Context) error { return client.Close() },
		}, nil
	}

	return nil, fmt.Errorf("unknown store driver %q", cfg.StoreDriver)
}
