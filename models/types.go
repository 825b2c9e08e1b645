// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package models

import "time"

// ViewState is the screen the client is currently showing.
type ViewState string

const (
	ViewVoting         ViewState = "voting"
	ViewResults        ViewState = "results"
	ViewAdminLogin     ViewState = "admin-login"
	ViewAdminDashboard ViewState = "admin-dashboard"
)

// Storage key and value for the local participation flag
const (
	HasVotedKey   = "has_voted_survey"
	HasVotedValue = "true"
)

// Change event kinds published when the party table changes
const (
	ChangeInsert = "insert"
	ChangeUpdate = "update"
	ChangeDelete = "delete"
	ChangeVote   = "vote"
	ChangeReset  = "reset"
)

// Domain types

type Party struct {
	ID         string  `json:"id"`
	Name       string  `json:"name"`
	SymbolName string  `json:"symbol_name"`
	ImageURL   *string `json:"image_url,omitempty"`
	Color      string  `json:"color"`
	VoteCount  int     `json:"vote_count"`
	ShortCode  string  `json:"short_code"`
}

type Vote struct {
	ID        string    `json:"id"`
	PartyID   string    `json:"party_id"`
	IPHash    string    `json:"-"` // Never expose in JSON
	UserAgent *string   `json:"-"` // Never expose in JSON
	CreatedAt time.Time `json:"created_at"`
}

// ChangeEvent is the payload carried on the change-notification stream.
// Consumers only need to know that something changed; the fields are
// informational.
type ChangeEvent struct {
	Kind    string    `json:"kind"`
	PartyID string    `json:"party_id,omitempty"`
	At      time.Time `json:"at"`
}

// Request types

type PartyRequest struct {
	Name       string  `json:"name"`
	SymbolName string  `json:"symbol_name"`
	ImageURL   *string `json:"image_url,omitempty"`
	Color      string  `json:"color"`
	ShortCode  string  `json:"short_code"`
}

// Response types

type ListPartiesResponse struct {
	Parties []Party `json:"parties"`
}

type CastVoteResponse struct {
	VoteID  string `json:"vote_id"`
	PartyID string `json:"party_id"`
	Message string `json:"message"`
}

type ResetResponse struct {
	PartiesReset int64 `json:"parties_reset"`
	VotesCleared int64 `json:"votes_cleared"`
}

// Error response

type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message,omitempty"`
}
