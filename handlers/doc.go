// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

/*
Package handlers contains HTTP request handlers for the party survey API.

# Handler Types

  - PartyHandler: party listing, voting and admin maintenance
  - EventsHandler: Server-Sent Events stream of party changes

Handlers are created via constructor functions:

	partyHandler := handlers.NewPartyHandler(db, cfg, broker)
	eventsHandler := handlers.NewEventsHandler(broker, handlers.DefaultKeepAlive)

# Voting

	GET  /parties            → ListParties
	POST /parties/{id}/votes → CastVote

A vote increments the party's count and records the hashed origin in the
vote ledger inside one transaction. The ledger holds one row per origin, so
a repeat vote from the same origin gets 409 and leaves every count as it was.

# Administration

	POST   /admin/parties      → CreateParty
	PUT    /admin/parties/{id} → UpdateParty
	DELETE /admin/parties/{id} → DeleteParty
	POST   /admin/reset        → ResetVotes

Admin operations require the X-Admin-Key header (checked by the router).

# Change Events

Every successful write publishes a models.ChangeEvent to the notify.Broker.
Clients following GET /parties/events receive them as

	event: change
	data: {"kind":"vote","party_id":"...","at":"..."}
*/
package handlers
