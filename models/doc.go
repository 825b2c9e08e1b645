// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

/*
Package models defines domain, request and response types shared by the
survey server and the survey client.

# Domain Types

  - Party: a votable option with a running vote count
  - Vote: one row of the server-side vote ledger
  - ChangeEvent: payload of the party change stream
  - ViewState: the client screen currently shown

# Request Types

  - PartyRequest: name, symbol_name, image_url, color, short_code

# Response Types

  - ListPartiesResponse: parties
  - CastVoteResponse: vote_id, party_id, message
  - ResetResponse: parties_reset, votes_cleared
  - ErrorResponse: error, message

# Constants

Views:

	ViewVoting         = "voting"
	ViewResults        = "results"
	ViewAdminLogin     = "admin-login"
	ViewAdminDashboard = "admin-dashboard"

Local participation flag:

	HasVotedKey   = "has_voted_survey"
	HasVotedValue = "true"
*/
package models
