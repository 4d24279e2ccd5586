// Package db provides the postgres connection, schema migrations and the accepted quote store.
package db

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/jackc/pgx/v5/pgxpool"
)

type ConnectOptions struct {
	Logger *slog.Logger
	// MaxElapsed bounds how long Connect keeps retrying an unreachable database.
	MaxElapsed time.Duration
	// SlowQuery is the duration above which queries are logged at warn level.
	SlowQuery time.Duration
}

func Connect(ctx context.Context, databaseURL string, opts ConnectOptions) (*pgxpool.Pool, error) {
	if ctx == nil {
		return nil, fmt.Errorf("context is required")
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	logger = logger.With("component", "db")

	config, err := pgxpool.ParseConfig(databaseURL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse database URL: %w", err)
	}
	config.ConnConfig.Tracer = newQueryTracer(logger, opts.SlowQuery)

	retryPolicy := backoff.NewExponentialBackOff()
	retryPolicy.MaxElapsedTime = opts.MaxElapsed
	if retryPolicy.MaxElapsedTime == 0 {
		retryPolicy.MaxElapsedTime = time.Minute
	}
	retryPolicy.MaxInterval = 10 * time.Second

	var pool *pgxpool.Pool
	err = backoff.RetryNotify(
		func() error {
			p, err := pgxpool.NewWithConfig(ctx, config)
			if err != nil {
				return backoff.Permanent(fmt.Errorf("failed to create connection pool: %w", err))
			}
			if err := p.Ping(ctx); err != nil {
				p.Close()
				return fmt.Errorf("failed to ping database: %w", err)
			}
			pool = p
			return nil
		},
		backoff.WithContext(retryPolicy, ctx),
		func(err error, next time.Duration) {
			logger.Warn("database not ready, retrying", "error", err, "next_attempt_in", next)
		},
	)
	if err != nil {
		return nil, err
	}

	logger.Info("connected to database")
	return pool, nil
}
