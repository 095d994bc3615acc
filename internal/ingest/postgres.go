package ingest

import (
	"context"

	"github.com/jackc/pgx/v5"

	"github.com/MikeSquared-Agency/empire/internal/store"
)

// PostgresStore adapts a store.DB to Store.
type PostgresStore struct {
	*store.Repo
	db *store.DB
}

// NewPostgresStore wraps db.
func NewPostgresStore(db *store.DB) *PostgresStore {
	return &PostgresStore{Repo: db.Repo(), db: db}
}

// InTx runs fn with a repository bound to a new transaction.
func (p *PostgresStore) InTx(ctx context.Context, fn func(Repository) error) error {
	return p.db.WithTx(ctx, func(tx pgx.Tx) error {
		return fn(store.NewRepo(tx))
	})
}
