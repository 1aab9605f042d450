package postgres

import (
	"context"
	"database/sql"
	"fmt"
)

// migrations are applied in order at startup. The unique constraints here
// are load-bearing: provider_id uniqueness turns concurrent duplicate
// registrations into conflicts, and the (organization_id, user_id) and email
// constraints make the provisioner's upserts idempotent.
var migrations = []string{
	`CREATE TABLE IF NOT EXISTS sso_providers (
		id          BIGSERIAL PRIMARY KEY,
		issuer      TEXT NOT NULL,
		provider_id TEXT NOT NULL UNIQUE,
		saml_config JSONB NOT NULL,
		created_at  TIMESTAMPTZ NOT NULL DEFAULT NOW()
	)`,
	`CREATE TABLE IF NOT EXISTS users (
		id             UUID PRIMARY KEY,
		email          TEXT NOT NULL UNIQUE,
		name           TEXT NOT NULL DEFAULT '',
		email_verified BOOLEAN NOT NULL DEFAULT FALSE,
		created_at     TIMESTAMPTZ NOT NULL DEFAULT NOW(),
		updated_at     TIMESTAMPTZ NOT NULL DEFAULT NOW()
	)`,
	`CREATE TABLE IF NOT EXISTS organization_members (
		id              BIGSERIAL PRIMARY KEY,
		organization_id TEXT NOT NULL,
		user_id         UUID NOT NULL REFERENCES users(id) ON DELETE CASCADE,
		role            TEXT NOT NULL DEFAULT 'member',
		joined_at       TIMESTAMPTZ NOT NULL DEFAULT NOW(),
		UNIQUE (organization_id, user_id)
	)`,
	`CREATE TABLE IF NOT EXISTS sessions (
		id          UUID PRIMARY KEY,
		user_id     UUID NOT NULL REFERENCES users(id) ON DELETE CASCADE,
		provider_id TEXT NOT NULL,
		created_at  TIMESTAMPTZ NOT NULL DEFAULT NOW(),
		expires_at  TIMESTAMPTZ NOT NULL
	)`,
	`CREATE INDEX IF NOT EXISTS idx_sessions_expires_at ON sessions (expires_at)`,
}

// Migrate applies the schema migrations.
func Migrate(ctx context.Context, db *sql.DB) error {
	for i, stmt := range migrations {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("migration %d failed: %w", i, err)
		}
	}
	return nil
}
