// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

/*
Command survey-server runs the party survey backend.

It stores parties and the vote ledger in SQLite or PostgreSQL and serves
the JSON API plus a Server-Sent Events change stream used by the survey
client.

# Starting the Server

Settings come from flags, the environment, or a .env file in the working
directory:

	DATABASE_URL=survey.db ADMIN_SECRET=... IP_HASH_SALT=... survey-server

Or with flags:

	survey-server -p 3318 -t postgres -d "postgres://..." -broker postgres

# Configuration

Required settings:

  - DATABASE_URL (-d): SQLite path or PostgreSQL connection string
  - ADMIN_SECRET (--admin-secret): access key for /admin routes
  - IP_HASH_SALT (--ip-salt): salt for hashing voter IP addresses

Optional settings:

  - PORT (-p): server port (default: 3318)
  - DATABASE_TYPE (-t): sqlite or postgres (default: sqlite)
  - BROKER (--broker): memory, redis or postgres (default: memory)
  - REDIS_URL (--redis): required with the redis broker
  - SEED_FILE (--seed): YAML parties loaded into an empty table
  - VOTE_RATE_LIMIT (--vote-rate): votes per second per client IP (default: 1)
  - TRUSTED_PROXIES (--trust-proxy): comma-separated proxy IPs or CIDRs whose
    X-Forwarded-For is believed (default: none; the peer address is the client)

# Brokers

The memory broker fans changes out within one process. The redis broker
shares them between instances through Pub/Sub. The postgres broker relays
NOTIFY messages from the party table trigger, so changes made by any
writer, including direct SQL, reach connected clients.
*/
package main
