// Package postgres implements the persistence interfaces of the
// domain services on a pgx connection pool.
package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/campusfix/campusfix/internal/accounts"
	"github.com/campusfix/campusfix/internal/issues"
	"github.com/campusfix/campusfix/internal/notifications"
	"github.com/campusfix/campusfix/internal/passreset"
	"github.com/campusfix/campusfix/internal/twofactor"
)

var (
	_ accounts.Storage          = (*Repository)(nil)
	_ twofactor.UserStore       = (*Repository)(nil)
	_ twofactor.BackupCodeStore = (*Repository)(nil)
	_ passreset.Store           = (*Repository)(nil)
	_ passreset.UserStore       = (*Repository)(nil)
	_ issues.Storage            = (*Repository)(nil)
	_ issues.Directory          = (*Repository)(nil)
	_ notifications.Storage     = (*Repository)(nil)
)

// Repository bundles all Postgres-backed storage implementations. One
// instance satisfies the storage interfaces of accounts, twofactor,
// passreset, issues and notifications.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository creates a repository on the given pool.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// withTx runs fn inside a transaction, rolling back on error.
func (r *Repository) withTx(ctx context.Context, fn func(tx pgx.Tx) error) error {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx) //nolint:errcheck // rollback after commit is a no-op

	if err := fn(tx); err != nil {
		return err
	}
	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}
