package main

import (
	"context"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rotisserie/eris"

	"github.com/stanse/fec-pipeline/internal/fec/aggregate"
	"github.com/stanse/fec-pipeline/internal/fecstore"
)

// pipelinePool creates a pgxpool.Pool from the configured database URL.
func pipelinePool(ctx context.Context) (*pgxpool.Pool, error) {
	if cfg.Database.URL == "" {
		return nil, eris.New("no database url configured (set database.url or FECPIPE_DATABASE_URL)")
	}

	pool, err := pgxpool.New(ctx, cfg.Database.URL)
	if err != nil {
		return nil, eris.Wrap(err, "create connection pool")
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, eris.Wrap(err, "ping database")
	}

	return pool, nil
}

// poolRefresh returns a credential-refresh hook that drops every pooled
// connection, so the next acquire re-authenticates with current settings.
func poolRefresh(pool *pgxpool.Pool) func(context.Context) error {
	return func(ctx context.Context) error {
		pool.Reset()
		return nil
	}
}

// newAggregateRunner wires the aggregation runner onto one store.
func newAggregateRunner(store *fecstore.Store) *aggregate.Runner {
	return aggregate.NewRunner(
		store,
		aggregate.NewLinkageBuilder(store, store),
		aggregate.NewTransferBuilder(store, store, store),
		store,
	)
}
