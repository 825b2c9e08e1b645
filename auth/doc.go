// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

/*
Package auth provides the survey's small set of credential helpers.

# Admin Secret

Admin endpoints compare the X-Admin-Key header with the configured secret:

	err := auth.ValidateAdminKey(r.Header.Get("X-Admin-Key"), cfg.AdminSecret)

The comparison is constant-time. An empty configured secret rejects every
request.

# Voting Origin

One vote is allowed per network origin. The origin is the client IP run
through HMAC-SHA256 with a server salt:

	origin := auth.HashIP(ipAddress, salt)

Returns the first 8 bytes (16 hex chars). The raw IP is never stored.

# IDs

Party and vote records use random UUIDs:

	id := auth.NewID()
*/
package auth
