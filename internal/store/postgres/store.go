package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/draftcue/draftcue/internal/store"
)

// Store is the PostgreSQL-backed implementation of store.Store.
type Store struct {
	pool *pgxpool.Pool
}

var _ store.Store = (*Store)(nil)

// New creates a new Postgres Store and verifies the connection.
func New(ctx context.Context, dsn string) (*Store, error) {
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, fmt.Errorf("postgres connect: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("postgres ping: %w", err)
	}
	return &Store{pool: pool}, nil
}

// Migrate runs the schema DDL to create tables and indexes.
func (s *Store) Migrate(ctx context.Context) error {
	if _, err := s.pool.Exec(ctx, schemaDDL); err != nil {
		return fmt.Errorf("postgres migrate: %w", err)
	}
	return nil
}

// Schedules returns the schedule store.
func (s *Store) Schedules() store.ScheduleStore { return &scheduleStore{pool: s.pool} }

// History returns the history store.
func (s *Store) History() store.HistoryStore { return &historyStore{pool: s.pool} }

// Templates returns the template store.
func (s *Store) Templates() store.TemplateStore { return &templateStore{pool: s.pool} }

// Ping verifies the backend is reachable.
func (s *Store) Ping(ctx context.Context) error { return s.pool.Ping(ctx) }

// Close closes the connection pool.
func (s *Store) Close() { s.pool.Close() }
