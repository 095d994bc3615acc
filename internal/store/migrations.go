package store

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/jackc/pgx/v5"
)

// Migration is one versioned schema change, applied in its own transaction.
type Migration struct {
	Up          func(ctx context.Context, tx pgx.Tx) error
	Description string
	Version     int
}

func execAll(queries ...string) func(context.Context, pgx.Tx) error {
	return func(ctx context.Context, tx pgx.Tx) error {
		for _, q := range queries {
			if _, err := tx.Exec(ctx, q); err != nil {
				return fmt.Errorf("exec migration statement: %w", err)
			}
		}
		return nil
	}
}

var migrations = []Migration{
	{
		Version:     1,
		Description: "Initial schema",
		Up: execAll(
			`CREATE TABLE IF NOT EXISTS llcs (
				id UUID PRIMARY KEY DEFAULT gen_random_uuid(),
				name TEXT UNIQUE NOT NULL,
				ein TEXT,
				created_at TIMESTAMPTZ NOT NULL DEFAULT now()
			)`,
			`CREATE TABLE IF NOT EXISTS vendors (
				id UUID PRIMARY KEY DEFAULT gen_random_uuid(),
				name TEXT UNIQUE NOT NULL,
				vendor_identifier TEXT,
				created_at TIMESTAMPTZ NOT NULL DEFAULT now()
			)`,
			`CREATE TABLE IF NOT EXISTS media_objects (
				id UUID PRIMARY KEY DEFAULT gen_random_uuid(),
				llc_id UUID REFERENCES llcs(id),
				media_type TEXT NOT NULL DEFAULT 'document',
				mime TEXT NOT NULL,
				filename TEXT NOT NULL,
				storage_path TEXT NOT NULL,
				sha256 TEXT NOT NULL,
				created_at TIMESTAMPTZ NOT NULL DEFAULT now()
			)`,
			`CREATE TABLE IF NOT EXISTS purchase_orders (
				id UUID PRIMARY KEY DEFAULT gen_random_uuid(),
				llc_id UUID NOT NULL REFERENCES llcs(id),
				vendor_id UUID NOT NULL REFERENCES vendors(id),
				media_object_id UUID NOT NULL REFERENCES media_objects(id),
				total_amount DOUBLE PRECISION NOT NULL DEFAULT 0,
				currency TEXT NOT NULL DEFAULT 'USD',
				status TEXT NOT NULL DEFAULT 'pending',
				due_date DATE,
				description TEXT,
				reference TEXT,
				confidence DOUBLE PRECISION NOT NULL DEFAULT 0,
				received_at TIMESTAMPTZ NOT NULL DEFAULT now(),
				created_at TIMESTAMPTZ NOT NULL DEFAULT now()
			)`,
			`CREATE INDEX IF NOT EXISTS idx_purchase_orders_vendor ON purchase_orders(vendor_id)`,
			`CREATE INDEX IF NOT EXISTS idx_purchase_orders_created ON purchase_orders(created_at DESC)`,
			`CREATE TABLE IF NOT EXISTS assets (
				id UUID PRIMARY KEY DEFAULT gen_random_uuid(),
				purchase_order_id UUID NOT NULL REFERENCES purchase_orders(id) ON DELETE CASCADE,
				name TEXT NOT NULL,
				status TEXT NOT NULL DEFAULT 'pending',
				created_at TIMESTAMPTZ NOT NULL DEFAULT now()
			)`,
			`CREATE TABLE IF NOT EXISTS agent_suggestions (
				id UUID PRIMARY KEY,
				purchase_order_id UUID NOT NULL REFERENCES purchase_orders(id) ON DELETE CASCADE,
				agent_name TEXT NOT NULL,
				suggestion_type TEXT NOT NULL,
				message TEXT NOT NULL,
				approved BOOLEAN NOT NULL DEFAULT false,
				created_at TIMESTAMPTZ NOT NULL DEFAULT now(),
				approved_at TIMESTAMPTZ
			)`,
			`CREATE INDEX IF NOT EXISTS idx_agent_suggestions_created ON agent_suggestions(created_at DESC)`,
			`CREATE TABLE IF NOT EXISTS events (
				id UUID PRIMARY KEY,
				event_type TEXT NOT NULL,
				payload JSONB NOT NULL DEFAULT '{}',
				created_at TIMESTAMPTZ NOT NULL DEFAULT now()
			)`,
			`CREATE INDEX IF NOT EXISTS idx_events_created ON events(created_at DESC)`,
		),
	},
	{
		Version:     2,
		Description: "Document vectors",
		Up: execAll(
			`CREATE TABLE IF NOT EXISTS document_vectors (
				id UUID PRIMARY KEY DEFAULT gen_random_uuid(),
				media_object_id UUID NOT NULL REFERENCES media_objects(id) ON DELETE CASCADE,
				vector vector(12) NOT NULL,
				embedding_strategy TEXT NOT NULL DEFAULT 'hash-v1',
				created_at TIMESTAMPTZ NOT NULL DEFAULT now(),
				UNIQUE (media_object_id, embedding_strategy)
			)`,
		),
	},
	{
		Version:     3,
		Description: "Per-order evaluation versioning and suggestion uniqueness",
		Up: execAll(
			`ALTER TABLE purchase_orders ADD COLUMN IF NOT EXISTS evaluation_version BIGINT NOT NULL DEFAULT 0`,
			`CREATE UNIQUE INDEX IF NOT EXISTS idx_agent_suggestions_order_type
				ON agent_suggestions(purchase_order_id, suggestion_type)`,
		),
	},
	{
		Version:     4,
		Description: "Track failed reindex attempts on media objects",
		Up: execAll(
			`ALTER TABLE media_objects ADD COLUMN IF NOT EXISTS reindex_attempted_at TIMESTAMPTZ`,
		),
	},
}

// LatestSchemaVersion is the version Migrate brings the database to.
func LatestSchemaVersion() int {
	return migrations[len(migrations)-1].Version
}

// Migrate applies every migration newer than the recorded schema version.
func (db *DB) Migrate(ctx context.Context) error {
	if _, err := db.Pool.Exec(ctx, `CREATE TABLE IF NOT EXISTS schema_migrations (
		version INT PRIMARY KEY,
		description TEXT NOT NULL,
		applied_at TIMESTAMPTZ NOT NULL DEFAULT now()
	)`); err != nil {
		return fmt.Errorf("creating schema_migrations: %w", err)
	}

	var current int
	if err := db.Pool.QueryRow(ctx, `SELECT COALESCE(MAX(version), 0) FROM schema_migrations`).Scan(&current); err != nil {
		return fmt.Errorf("reading schema version: %w", err)
	}

	for _, m := range migrations {
		if m.Version <= current {
			continue
		}

		err := db.WithTx(ctx, func(tx pgx.Tx) error {
			if err := m.Up(ctx, tx); err != nil {
				return err
			}
			_, err := tx.Exec(ctx, `INSERT INTO schema_migrations (version, description) VALUES ($1, $2)`,
				m.Version, m.Description)
			return err
		})
		if err != nil {
			return fmt.Errorf("migration %d failed: %w", m.Version, err)
		}

		slog.Info("applied migration", "version", m.Version, "description", m.Description)
	}
	return nil
}
