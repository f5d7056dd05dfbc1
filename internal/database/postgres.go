package database

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog"
	"github.com/stemsi/gradcafe-backend/internal/config"
)

const (
	applicationName = "gradcafe"
	maxConnIdle     = 5 * time.Minute
)

// Pinger is the part of the pool the readiness loop needs.
type Pinger interface {
	Ping(ctx context.Context) error
}

// NewPostgresPool opens the pool and waits until Postgres answers a ping,
// trying cfg.DBConnectAttempts times with a growing pause between tries.
func NewPostgresPool(ctx context.Context, cfg *config.Config, log zerolog.Logger) (*pgxpool.Pool, error) {
	poolCfg, err := pgxpool.ParseConfig(cfg.DatabaseURL)
	if err != nil {
		return nil, fmt.Errorf("parse database URL: %w", err)
	}

	poolCfg.MaxConns = cfg.MaxDBConns
	poolCfg.MaxConnIdleTime = maxConnIdle
	if _, ok := poolCfg.ConnConfig.RuntimeParams["application_name"]; !ok {
		poolCfg.ConnConfig.RuntimeParams["application_name"] = applicationName
	}

	pool, err := pgxpool.NewWithConfig(ctx, poolCfg)
	if err != nil {
		return nil, fmt.Errorf("create pool: %w", err)
	}

	dbLog := log.With().
		Str("component", "postgres").
		Str("host", poolCfg.ConnConfig.Host).
		Str("database", poolCfg.ConnConfig.Database).
		Logger()

	if err := WaitReady(ctx, pool, cfg.DBConnectAttempts, cfg.DBConnectBackoff, dbLog); err != nil {
		pool.Close()
		return nil, err
	}

	dbLog.Info().Int32("max_conns", cfg.MaxDBConns).Msg("PostgreSQL connected")
	return pool, nil
}

// WaitReady pings db until it answers, attempts run out or ctx ends. The
// pause before try n is n*backoff.
func WaitReady(ctx context.Context, db Pinger, attempts int, backoff time.Duration, log zerolog.Logger) error {
	attempts = max(attempts, 1)

	var err error
	for i := 1; i <= attempts; i++ {
		if err = db.Ping(ctx); err == nil {
			return nil
		}
		if i == attempts {
			break
		}

		wait := time.Duration(i) * backoff
		log.Warn().Err(err).Int("attempt", i).Dur("retry_in", wait).Msg("database not ready")
		select {
		case <-ctx.Done():
			return fmt.Errorf("ping database: %w", ctx.Err())
		case <-time.After(wait):
		}
	}
	return fmt.Errorf("ping database after %d attempts: %w", attempts, err)
}
