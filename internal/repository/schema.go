package repository

import (
	"context"
	"database/sql"
	"log/slog"
)

const schema = `
CREATE TABLE IF NOT EXISTS social_accounts (
	id BIGSERIAL PRIMARY KEY,
	user_id BIGINT NOT NULL,
	platform TEXT NOT NULL,
	account_id TEXT NOT NULL,
	account_name TEXT NOT NULL DEFAULT '',
	account_username TEXT NOT NULL DEFAULT '',
	profile_picture_url TEXT,
	access_token TEXT NOT NULL,
	refresh_token TEXT,
	token_secret TEXT,
	token_expires_at TIMESTAMPTZ,
	is_active BOOLEAN NOT NULL DEFAULT TRUE,
	created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
	updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
	UNIQUE (user_id, platform, account_id)
);

CREATE TABLE IF NOT EXISTS posts (
	id BIGSERIAL PRIMARY KEY,
	user_id BIGINT NOT NULL,
	title TEXT NOT NULL DEFAULT '',
	content TEXT NOT NULL DEFAULT '',
	platforms TEXT[] NOT NULL DEFAULT '{}',
	scheduled_for TIMESTAMPTZ NOT NULL,
	status TEXT NOT NULL DEFAULT 'draft',
	time_zone TEXT NOT NULL DEFAULT 'UTC',
	repeat TEXT NOT NULL DEFAULT 'none',
	last_error TEXT,
	published_at TIMESTAMPTZ,
	created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
	updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
);

CREATE INDEX IF NOT EXISTS posts_user_status_scheduled_idx ON posts (user_id, status, scheduled_for);

CREATE TABLE IF NOT EXISTS media_assets (
	id BIGSERIAL PRIMARY KEY,
	user_id BIGINT NOT NULL,
	file_name TEXT NOT NULL,
	file_type TEXT NOT NULL,
	file_size BIGINT NOT NULL DEFAULT 0,
	file_url TEXT NOT NULL,
	created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
);

CREATE TABLE IF NOT EXISTS post_media (
	post_id BIGINT NOT NULL REFERENCES posts(id) ON DELETE CASCADE,
	asset_id BIGINT NOT NULL REFERENCES media_assets(id),
	display_order INT NOT NULL DEFAULT 0,
	created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
	PRIMARY KEY (post_id, asset_id)
);

CREATE TABLE IF NOT EXISTS posting_history (
	id BIGSERIAL PRIMARY KEY,
	user_id BIGINT NOT NULL,
	post_id BIGINT NOT NULL,
	account_id BIGINT,
	platform TEXT NOT NULL,
	success BOOLEAN NOT NULL,
	external_id TEXT,
	error_message TEXT,
	created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
);
`

// Migrate creates the tables the service needs when they are missing.
func Migrate(ctx context.Context, db *sql.DB) error {
	if _, err := db.ExecContext(ctx, schema); err != nil {
		slog.Info(err.Error())
		return err
	}
	return nil
}
