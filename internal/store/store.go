// Package store persists vendor records in PostgreSQL and owns the schema of
// the vendors table.
package store

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog"
)

// querier is the subset of pgx shared by the pool and transactions.
type querier interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

type Options struct {
	MaxConns       int32
	ConnectTimeout time.Duration
	Logger         zerolog.Logger
}

// Store is the vendor repository. All methods are safe for concurrent use;
// concurrency is bounded by the pool size and excess callers wait for a
// connection.
type Store struct {
	pool *pgxpool.Pool
	log  zerolog.Logger
	now  func() time.Time
}

// Open creates the connection pool. Connections are established lazily, so
// Open succeeds even while the database is down; use Ping to probe it.
func Open(ctx context.Context, dsn string, opts Options) (*Store, error) {
	cfg, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return nil, fmt.Errorf("parse database config: %w", err)
	}
	if opts.MaxConns > 0 {
		cfg.MaxConns = opts.MaxConns
	}
	if opts.ConnectTimeout > 0 {
		cfg.ConnConfig.ConnectTimeout = opts.ConnectTimeout
	}

	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, classify(fmt.Errorf("create pool: %w", err))
	}
	return New(pool, opts.Logger), nil
}

func New(pool *pgxpool.Pool, log zerolog.Logger) *Store {
	return &Store{
		pool: pool,
		log:  log.With().Str("component", "store").Logger(),
		now:  time.Now,
	}
}

func (s *Store) Close() {
	s.pool.Close()
}

// Ping performs a live round trip to the database.
func (s *Store) Ping(ctx context.Context) error {
	if err := s.pool.Ping(ctx); err != nil {
		return classify(err)
	}
	return nil
}
