// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

/*
Package db handles database connections, schema creation and seeding.

# Connections

Open picks the driver from the database type:

	conn, err := db.Open("sqlite", "survey.db")
	conn, err := db.Open("postgres", "postgres://...")

SQLite uses a single connection so writers are serialised and the
foreign_keys PRAGMA stays in effect. Queries use $N placeholders, which
both drivers accept.

# Schema Creation

	if err := db.CreateSchema(conn, cfg.DatabaseType); err != nil {
		log.Fatal(err)
	}

Safe to call multiple times - uses IF NOT EXISTS for all tables and indexes.

# Tables

  - party: survey options and their running vote counts
  - vote: the vote ledger, one row per voting origin (ip_hash UNIQUE)

	party 1──* vote (ON DELETE SET NULL, the origin stays recorded)

# Change Notifications

On Postgres a row trigger on party sends pg_notify on ChangeChannel for
every insert, update and delete. The postgres broker in package notify
listens on it.

# Seeding

	parties, err := db.LoadSeed("parties.yaml")
	n, err := db.SeedParties(conn, parties)

Seeding is a no-op once the party table has rows.
*/
package db
