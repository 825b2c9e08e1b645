// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

/*
Package partyservice is the survey client's data access layer over the
backend HTTP API.

	client, err := partyservice.New("http://localhost:3318",
		partyservice.WithAdminSecret(secret),
		partyservice.WithLogger(logger),
	)

	parties, err := client.FetchParties(ctx)
	err = client.CastVote(ctx, partyID)

# Errors

Failures come back as typed errors so callers branch with errors.As:

  - *FetchError: the list could not be loaded; retry on the next refresh
  - *AlreadyVotedError: the backend already holds a vote from this origin
  - *SubmissionError: any other vote failure; retryable
  - *APIError: an admin call was rejected

# Change Stream

Subscribe follows GET /parties/events and calls back for every change
event. The stream is reopened after a fixed delay when it drops.

	sub, err := client.Subscribe(ctx, func(ev models.ChangeEvent) { ... })
	defer sub.Close()
*/
package partyservice
