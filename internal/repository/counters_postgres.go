package repository

import (
	"context"
	"fmt"
	"log/slog"

	"entgo.io/ent/dialect"
	entsql "entgo.io/ent/dialect/sql"
	"github.com/jackc/pgx/v5/pgxpool"
)

const countersTable = "counters"

const postgresSchema = `
CREATE TABLE IF NOT EXISTS counters (
  key        TEXT PRIMARY KEY,
  value      BIGINT NOT NULL CHECK (value >= 0),
  updated_at TIMESTAMPTZ NOT NULL DEFAULT now()
)`

// PostgresCounterStore is a server-arbitrated counter shared by every console instance.
type PostgresCounterStore struct {
	drv    *entsql.Driver
	pool   *pgxpool.Pool
	logger *slog.Logger
}

// NewPostgresCounterStore ensures the counters table exists.
func NewPostgresCounterStore(ctx context.Context, drv *entsql.Driver, pool *pgxpool.Pool, logger *slog.Logger) (*PostgresCounterStore, error) {
	if logger == nil {
		logger = slog.Default()
	}
	if err := drv.Exec(ctx, postgresSchema, []any{}, nil); err != nil {
		return nil, fmt.Errorf("migrate counters: %w", err)
	}
	return &PostgresCounterStore{drv: drv, pool: pool, logger: logger}, nil
}

func (s *PostgresCounterStore) Get(ctx context.Context, key string) (int64, bool, error) {
	query, args := entsql.Dialect(dialect.Postgres).
		Select("value").
		From(entsql.Table(countersTable)).
		Where(entsql.EQ("key", key)).
		Query()
	return s.queryValue(ctx, query, args)
}

// Increment runs INSERT ... ON CONFLICT DO UPDATE SET value = value + 1 RETURNING value.
func (s *PostgresCounterStore) Increment(ctx context.Context, key string, base int64) (int64, error) {
	query, args := entsql.Dialect(dialect.Postgres).
		Insert(countersTable).
		Columns("key", "value").
		Values(key, base+1).
		OnConflict(
			entsql.ConflictColumns("key"),
			entsql.ResolveWith(func(u *entsql.UpdateSet) {
				u.Add("value", 1)
				u.Set("updated_at", entsql.Expr("now()"))
			}),
		).
		Returning("value").
		Query()
	v, found, err := s.queryValue(ctx, query, args)
	if err != nil {
		return 0, err
	}
	if !found {
		return 0, fmt.Errorf("increment %q returned no row", key)
	}
	return v, nil
}

func (s *PostgresCounterStore) Raise(ctx context.Context, key string, value int64) (int64, error) {
	query, args := entsql.Dialect(dialect.Postgres).
		Insert(countersTable).
		Columns("key", "value").
		Values(key, value).
		OnConflict(
			entsql.ConflictColumns("key"),
			entsql.ResolveWith(func(u *entsql.UpdateSet) {
				u.Set("value", entsql.Expr("GREATEST(counters.value, EXCLUDED.value)"))
				u.Set("updated_at", entsql.Expr("now()"))
			}),
		).
		Returning("value").
		Query()
	v, found, err := s.queryValue(ctx, query, args)
	if err != nil {
		return 0, err
	}
	if !found {
		return 0, fmt.Errorf("raise %q returned no row", key)
	}
	return v, nil
}

func (s *PostgresCounterStore) Ping(ctx context.Context) error {
	return HealthCheck(ctx, s.pool, 0, s.logger)
}

func (s *PostgresCounterStore) Close() error {
	s.logger.Info("closing postgres counter store")
	err := s.drv.Close()
	s.pool.Close()
	return err
}

func (s *PostgresCounterStore) queryValue(ctx context.Context, query string, args []any) (int64, bool, error) {
	var rows entsql.Rows
	if err := s.drv.Query(ctx, query, args, &rows); err != nil {
		return 0, false, err
	}
	defer rows.Close()

	if !rows.Next() {
		return 0, false, rows.Err()
	}
	var v int64
	if err := rows.Scan(&v); err != nil {
		return 0, false, err
	}
	return v, true, rows.Err()
}
