package main

import (
	"context"
	"fmt"

	"rep-protocol/internal/config"
	"rep-protocol/internal/events"
	"rep-protocol/internal/logger"
	"rep-protocol/internal/storage"
	chstore "rep-protocol/internal/storage/clickhouse"
	"rep-protocol/internal/storage/memory"
	"rep-protocol/internal/storage/migrations"
	pgstore "rep-protocol/internal/storage/postgres"
)

// allStores holds the journal and the projection stores.
type allStores struct {
	journal    storage.TxStore
	projection events.ProjectionStores
	cleanup    func()
}

func (s *allStores) Close() {
	if s.cleanup != nil {
		s.cleanup()
	}
}

// openStores connects to PostgreSQL and ClickHouse when configured and
// applies their migrations. Without a PostgreSQL DSN the journal and the
// registry live in memory; without a ClickHouse DSN so does the trade series.
func openStores(ctx context.Context, cfg *config.Config, log *logger.Logger) (*allStores, error) {
	stores := &allStores{}
	var closers []func()
	stores.cleanup = func() {
		for i := len(closers) - 1; i >= 0; i-- {
			closers[i]()
		}
	}

	if cfg.PostgresDSN == "" {
		log.Warn("no postgres DSN configured, journal is kept in memory")
		stores.journal = memory.NewTxStore()
		stores.projection.Reps = memory.NewRepStore()
		stores.projection.Events = memory.NewEventStore()
		stores.projection.Progress = memory.NewProjectionProgressStore()
	} else {
		pool, err := pgstore.NewPool(ctx, cfg.PostgresDSN)
		if err != nil {
			return nil, fmt.Errorf("connect to postgres: %w", err)
		}
		closers = append(closers, pool.Close)

		if err := migrations.RunPostgresMigrations(ctx, pool); err != nil {
			stores.Close()
			return nil, fmt.Errorf("postgres migrations: %w", err)
		}
		log.Info("postgres ready")

		stores.journal = pgstore.NewTxStore(pool)
		stores.projection.Reps = pgstore.NewRepStore(pool)
		stores.projection.Events = pgstore.NewEventStore(pool)
		stores.projection.Progress = pgstore.NewProjectionProgressStore(pool)
	}

	if cfg.ClickhouseDSN == "" {
		stores.projection.Trades = memory.NewTradeStore()
	} else {
		conn, err := migrations.RunClickhouseMigrations(ctx, cfg.ClickhouseDSN)
		if err != nil {
			stores.Close()
			return nil, fmt.Errorf("clickhouse migrations: %w", err)
		}
		closers = append(closers, func() { _ = conn.Close() })
		log.Info("clickhouse ready")

		stores.projection.Trades = chstore.NewTradeStore(conn)
	}

	return stores, nil
}
