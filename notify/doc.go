// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

/*
Package notify carries party change events from writers to the event
stream served at GET /parties/events.

Three brokers implement Broker:

  - MemoryBroker: in-process fan-out, single server instance
  - RedisBroker: Redis Pub/Sub on RedisChannel, many instances
  - PGBroker: LISTEN on the channel fed by the party table trigger

Handlers publish after every successful write:

	broker.Publish(ctx, models.ChangeEvent{Kind: models.ChangeVote, PartyID: id})

Subscribers only learn that something changed. Slow subscribers may miss
events once their buffer is full, which is harmless because any pending
event already triggers a full refetch on the client.
*/
package notify
