// Package postgres implements the gate store interfaces on pgx. One pool
// backs a small view type per surface; the gates only ever see their own
// interface.
package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/parlorchat/parlor/internal/domain"
)

const uniqueViolation = "23505"

type Store struct {
	pool *pgxpool.Pool
}

// New connects a pool and pings it so a bad DSN fails at startup, not on
// the first query.
func New(ctx context.Context, dsn string) (*Store, error) {
	cfg, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return nil, fmt.Errorf("parse postgres dsn: %w", err)
	}

	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("create postgres pool: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping postgres: %w", err)
	}
	return &Store{pool: pool}, nil
}

// Close closes the underlying pool. Idempotent.
func (s *Store) Close() {
	if s != nil && s.pool != nil {
		s.pool.Close()
	}
}

// Per-surface views over the shared pool.

func (s *Store) Servers() *Servers             { return &Servers{pool: s.pool} }
func (s *Store) Channels() *Channels           { return &Channels{pool: s.pool} }
func (s *Store) Messages() *Messages           { return &Messages{pool: s.pool} }
func (s *Store) DirectThreads() *DirectThreads { return &DirectThreads{pool: s.pool} }
func (s *Store) PrivateGroups() *PrivateGroups { return &PrivateGroups{pool: s.pool} }
func (s *Store) Users() *Users                 { return &Users{pool: s.pool} }
func (s *Store) Invitations() *Invitations     { return &Invitations{pool: s.pool} }

// mapErr normalizes pgx errors to domain sentinels so callers never match
// on driver types.
func mapErr(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.ErrNotFound
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
		return domain.ErrAlreadyExists
	}
	return err
}
