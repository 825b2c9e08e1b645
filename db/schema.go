// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package db

import (
	"database/sql"
	"fmt"

	_ "github.com/lib/pq"
	_ "modernc.org/sqlite"
)

// Open connects to the configured database and verifies the connection.
// dbType is "sqlite" or "postgres".
func Open(dbType, url string) (*sql.DB, error) {
	driver := "postgres"
	if dbType == "sqlite" {
		driver = "sqlite"
	}

	conn, err := sql.Open(driver, url)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if driver == "sqlite" {
		// One connection serialises writers and keeps PRAGMAs in effect
		conn.SetMaxOpenConns(1)
		if _, err := conn.Exec(`PRAGMA foreign_keys = ON`); err != nil {
			conn.Close()
			return nil, fmt.Errorf("failed to enable foreign keys: %w", err)
		}
	} else {
		conn.SetMaxOpenConns(25)
		conn.SetMaxIdleConns(5)
	}

	if err := conn.Ping(); err != nil {
		conn.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	return conn, nil
}

// CreateSchema creates all tables needed for the application.
// Safe to call multiple times - uses IF NOT EXISTS.
func CreateSchema(db *sql.DB, dbType string) error {
	_, err := db.Exec(schema)
	if err != nil {
		return fmt.Errorf("failed to create schema: %w", err)
	}

	if dbType == "postgres" {
		if _, err := db.Exec(postgresNotify); err != nil {
			return fmt.Errorf("failed to create change trigger: %w", err)
		}
	}

	return nil
}

// ChangeChannel is the Postgres NOTIFY channel fed by the party trigger
const ChangeChannel = "party_changes"

const schema = `
-- Parties
CREATE TABLE IF NOT EXISTS party (
    id TEXT PRIMARY KEY,
    name TEXT NOT NULL,
    symbol_name TEXT NOT NULL DEFAULT '',
    image_url TEXT,
    color TEXT NOT NULL DEFAULT '#64748b',
    vote_count INTEGER NOT NULL DEFAULT 0 CHECK (vote_count >= 0),
    short_code TEXT NOT NULL UNIQUE,
    created_at TIMESTAMP NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_party_created_at ON party(created_at);

-- Votes: one row per voting origin
CREATE TABLE IF NOT EXISTS vote (
    id TEXT PRIMARY KEY,
    party_id TEXT REFERENCES party(id) ON DELETE SET NULL,
    ip_hash TEXT NOT NULL UNIQUE,
    user_agent TEXT,
    created_at TIMESTAMP NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_vote_party_id ON vote(party_id);
`

const postgresNotify = `
CREATE OR REPLACE FUNCTION notify_party_change() RETURNS trigger AS $$
BEGIN
    PERFORM pg_notify('party_changes', json_build_object(
        'kind', lower(TG_OP),
        'party_id', COALESCE(NEW.id, OLD.id),
        'at', now()
    )::text);
    RETURN NULL;
END;
$$ LANGUAGE plpgsql;

DROP TRIGGER IF EXISTS party_change_notify ON party;
CREATE TRIGGER party_change_notify
    AFTER INSERT OR UPDATE OR DELETE ON party
    FOR EACH ROW EXECUTE FUNCTION notify_party_change();
`
