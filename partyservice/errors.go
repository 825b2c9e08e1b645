// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package partyservice

import (
	"fmt"
	"net/http"
)

// FetchError is returned when the party list cannot be loaded. Callers treat
// it as non-fatal and retry on the next refresh.
type FetchError struct {
	StatusCode int // 0 when the request never got a response
	Err        error
}

func (e *FetchError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("fetch parties: status %d: %v", e.StatusCode, e.Err)
	}
	return fmt.Sprintf("fetch parties: %v", e.Err)
}

func (e *FetchError) Unwrap() error { return e.Err }

// AlreadyVotedError means the backend has a vote from this origin already.
// Nothing was changed server-side.
type AlreadyVotedError struct {
	PartyID string
	Message string
}

func (e *AlreadyVotedError) Error() string {
	if e.Message != "" {
		return "already voted: " + e.Message
	}
	return "already voted"
}

// SubmissionError covers every other vote failure. It is retryable.
type SubmissionError struct {
	PartyID    string
	StatusCode int
	Err        error
}

func (e *SubmissionError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("cast vote for %s: status %d: %v", e.PartyID, e.StatusCode, e.Err)
	}
	return fmt.Sprintf("cast vote for %s: %v", e.PartyID, e.Err)
}

func (e *SubmissionError) Unwrap() error { return e.Err }

// APIError is a non-2xx answer to an admin call
type APIError struct {
	StatusCode int
	Message    string
}

func (e *APIError) Error() string {
	msg := e.Message
	if msg == "" {
		msg = http.StatusText(e.StatusCode)
	}
	return fmt.Sprintf("api error %d: %s", e.StatusCode, msg)
}

// Unauthorized reports whether the admin secret was rejected
func (e *APIError) Unauthorized() bool {
	return e.StatusCode == http.StatusUnauthorized
}
