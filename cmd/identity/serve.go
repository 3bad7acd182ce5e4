package main

import (
	"context"
	"errors"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/samber/oops"
	"github.com/spf13/cobra"

	"github.com/mycabs/identity/internal/api"
	"github.com/mycabs/identity/internal/core/service"
	"github.com/mycabs/identity/internal/infrastructure/config"
	"github.com/mycabs/identity/internal/infrastructure/queue"
	"github.com/mycabs/identity/internal/infrastructure/security"
	"github.com/mycabs/identity/pkg/logger"
)

const shutdownTimeout = 15 * time.Second

// NewServeCmd creates the serve subcommand.
func NewServeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Start the HTTP API",
		Long: `Connect to the configured credential store and serve the auth API,
health probes, metrics and API docs until interrupted.`,
		Args: cobra.NoArgs,
		RunE: runServe,
	}
}

func runServe(cmd *cobra.Command, _ []string) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, err := config.Load(ctx)
	if err != nil {
		return oops.Code("CONFIG_INVALID").Wrap(err)
	}

	log := logger.Init(logger.Options{
		Level:   cfg.LogLevel,
		Pretty:  !cfg.IsProduction(),
		Service: "identity",
	})

	st, err := openStore(ctx, cfg, logger.Component(log, "store"))
	if err != nil {
		log.Error().Err(err).Str("driver", cfg.StoreDriver).Msg("open credential store")
		return oops.Code("STORE_UNAVAILABLE").With("driver", cfg.StoreDriver).Wrap(err)
	}
	defer func() {
		closeCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := st.close(closeCtx); err != nil {
			log.Warn().Err(err).Msg("close credential store")
		}
	}()

	// Hashing workers outlive request contexts; they stop after the server.
	poolCtx, stopPool := context.WithCancel(context.Background())
	pool := queue.NewPool(cfg.HashWorkers, logger.Component(log, "hash-pool"))
	pool.Start(poolCtx)
	defer func() {
		stopPool()
		pool.Wait()
	}()

	hasher := security.NewPooledHasher(security.NewBcryptHasher(cfg.BcryptCost), pool)
	tokens, err := security.NewJWTIssuer(security.TokenConfig{
		Secret:   cfg.JWT.Secret,
		Issuer:   cfg.JWT.Issuer,
		Audience: cfg.JWT.Audience,
		TTL:      cfg.JWT.TokenTTL(),
	})
	if err != nil {
		return oops.Code("CONFIG_INVALID").Wrap(err)
	}

	authService := service.NewAuthService(st.repo, hasher, tokens, logger.Component(log, "auth"))

	e := api.NewRouter(api.Deps{
		AuthService: authService,
		Tokens:      tokens,
		Health:      st.health,
		Registerer:  prometheus.DefaultRegisterer,
		Gatherer:    prometheus.DefaultGatherer,
		Log:         logger.Component(log, "http"),
	})

	errCh := make(chan error, 1)
	go func() {
		log.Info().
			Str("port", cfg.Port).
			Str("store", cfg.StoreDriver).
			Int("hash_workers", pool.Workers()).
			Dur("token_ttl", cfg.JWT.TokenTTL()).
			Msg("identity service listening")
		if err := e.Start(":" + cfg.Port); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err, ok := <-errCh:
		if ok {
			return oops.Code("SERVER_FAILED").Wrap(err)
		}
		return nil
	case <-ctx.Done():
	}

	log.Info().Msg("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := e.Shutdown(shutdownCtx); err != nil {
		return oops.Code("SHUTDOWN_FAILED").Wrap(err)
	}
	return nil
}
