// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

/*
Package cliparse handles command-line argument parsing and configuration
for both binaries.

# Server Configuration

ParseFlags returns a Config struct with all settings:

	cliparse.LoadDotEnv()
	cfg, err := cliparse.ParseFlags(os.Args[1:])

Config fields:

  - Port: Server listen port (default: 3318)
  - DatabaseURL: sqlite path or PostgreSQL connection string (required)
  - DatabaseType: sqlite or postgres (default: sqlite)
  - AdminSecret: shared secret for admin endpoints (required)
  - IPHashSalt: salt for voting-origin hashes (required)
  - Broker: memory, redis or postgres (default: memory)
  - RedisURL: required for the redis broker
  - SeedFile: optional YAML party list
  - VoteRateLimit: vote requests per second per origin (default: 1)

# CLI Flags

	-p              Server port
	-d              Database URL
	-t              Database type
	-broker         Change broker
	-redis          Redis URL
	-seed           Seed file
	-vote-rate      Vote rate limit
	-admin-secret   Admin secret
	-ip-salt        IP hash salt

# Environment Variables

Flags fall back to environment variables, which may come from a .env file:

	PORT, DATABASE_URL, DATABASE_TYPE, BROKER, REDIS_URL, SEED_FILE,
	VOTE_RATE_LIMIT, ADMIN_SECRET, IP_HASH_SALT

CLI flags take precedence over environment variables.

# Client Configuration

The survey client binds its flags with cobra into a ClientConfig and then
calls ApplyClientEnv, which reads SURVEY_API_URL, ADMIN_SECRET,
SURVEY_STATE_FILE, SURVEY_LOG_FILE and SURVEY_POLL_INTERVAL for anything
left unset. The poll interval must be at least one second.
*/
package cliparse
