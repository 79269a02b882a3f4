package store

import (
	"context"
	"database/sql"
	"fmt"

	"llm-stock-prediction/internal/common/database"
)

var schemaStatements = []string{
	`CREATE TABLE IF NOT EXISTS users (
		id UUID PRIMARY KEY,
		username VARCHAR(150) NOT NULL UNIQUE,
		password_hash TEXT NOT NULL,
		created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
		last_login TIMESTAMPTZ
	)`,
	`CREATE TABLE IF NOT EXISTS uploads (
		user_id UUID NOT NULL REFERENCES users(id) ON DELETE CASCADE,
		kind VARCHAR(32) NOT NULL,
		filename TEXT NOT NULL,
		content BYTEA NOT NULL,
		size BIGINT NOT NULL,
		updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
		PRIMARY KEY (user_id, kind)
	)`,
}

// Migrate creates the users and uploads tables if they do not exist.
func Migrate(ctx context.Context, pg *database.PostgresClient) error {
	return pg.WithTx(ctx, func(tx *sql.Tx) error {
		for i, stmt := range schemaStatements {
			if _, err := tx.ExecContext(ctx, stmt); err != nil {
				return fmt.Errorf("migration step %d: %w", i+1, err)
			}
		}
		return nil
	})
}
