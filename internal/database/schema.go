package database

const schema = `
CREATE TABLE IF NOT EXISTS users (
	id                 UUID PRIMARY KEY,
	email              TEXT NOT NULL UNIQUE,
	password_hash      TEXT NOT NULL DEFAULT '',
	phone              TEXT NOT NULL DEFAULT '',
	tier               TEXT NOT NULL DEFAULT 'basic',
	is_email_verified  BOOLEAN NOT NULL DEFAULT FALSE,
	daily_upload_count INTEGER NOT NULL DEFAULT 0,
	last_reset_date    TIMESTAMPTZ NOT NULL DEFAULT NOW(),
	created_at         TIMESTAMPTZ NOT NULL DEFAULT NOW(),
	updated_at         TIMESTAMPTZ NOT NULL DEFAULT NOW()
);

CREATE TABLE IF NOT EXISTS videos (
	id               UUID PRIMARY KEY,
	user_id          UUID NOT NULL REFERENCES users(id),
	title            TEXT NOT NULL,
	description      TEXT NOT NULL,
	file_ref         TEXT NOT NULL,
	status           TEXT NOT NULL DEFAULT 'pending',
	target_platforms TEXT[] NOT NULL,
	metadata         JSONB NOT NULL DEFAULT '[]',
	upload_results   JSONB NOT NULL DEFAULT '{}',
	enqueued_at      TIMESTAMPTZ,
	created_at       TIMESTAMPTZ NOT NULL DEFAULT NOW(),
	updated_at       TIMESTAMPTZ NOT NULL DEFAULT NOW()
);

ALTER TABLE videos ADD COLUMN IF NOT EXISTS enqueued_at TIMESTAMPTZ;

CREATE INDEX IF NOT EXISTS idx_videos_user_created ON videos (user_id, created_at DESC);
CREATE INDEX IF NOT EXISTS idx_videos_status_created ON videos (status, created_at);

CREATE TABLE IF NOT EXISTS platform_connections (
	id                UUID PRIMARY KEY,
	user_id           UUID NOT NULL REFERENCES users(id),
	platform          TEXT NOT NULL,
	access_token      TEXT NOT NULL,
	refresh_token     TEXT NOT NULL DEFAULT '',
	token_expires_at  TIMESTAMPTZ,
	platform_user_id  TEXT NOT NULL DEFAULT '',
	platform_username TEXT NOT NULL DEFAULT '',
	is_active         BOOLEAN NOT NULL DEFAULT TRUE,
	last_used         TIMESTAMPTZ,
	created_at        TIMESTAMPTZ NOT NULL DEFAULT NOW(),
	updated_at        TIMESTAMPTZ NOT NULL DEFAULT NOW(),
	UNIQUE (user_id, platform)
);

CREATE TABLE IF NOT EXISTS otps (
	id         UUID PRIMARY KEY,
	email      TEXT NOT NULL,
	code       TEXT NOT NULL,
	expires_at TIMESTAMPTZ NOT NULL,
	created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
);

CREATE INDEX IF NOT EXISTS idx_otps_email ON otps (email, created_at DESC);
`
