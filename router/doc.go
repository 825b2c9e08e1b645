// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

/*
Package router defines HTTP routes for the party survey API.

# Route Registration

NewRouter creates a configured http.ServeMux with all endpoints:

	mux := router.NewRouter(db, cfg, broker)

# Endpoints

Health:

	GET /health

Survey (public):

	GET  /parties            - List parties with vote counts
	GET  /parties/events     - Server-Sent Events change stream
	POST /parties/{id}/votes - Cast the caller's single vote (rate limited)

Party maintenance (admin, requires X-Admin-Key):

	POST   /admin/parties      - Create party
	PUT    /admin/parties/{id} - Update party display fields
	DELETE /admin/parties/{id} - Remove party
	POST   /admin/reset        - Zero counts and clear the vote ledger

Vote requests are limited per client IP to cfg.VoteRateLimit per second.
*/
package router
