// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package partyservice

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/danielhkuo/party-survey/models"
	"github.com/danielhkuo/party-survey/notify"
	"github.com/danielhkuo/party-survey/router"
	"github.com/danielhkuo/party-survey/testutil"
)

func newTestClient(t *testing.T, h http.Handler, opts ...Option) *Client {
	t.Helper()
	server := httptest.NewServer(h)
	t.Cleanup(server.Close)

	c, err := New(server.URL+"/", opts...)
	require.NoError(t, err)
	return c
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func TestNew_InvalidURL(t *testing.T) {
	_, err := New("ftp://example.com")
	assert.Error(t, err)

	_, err = New("://nope")
	assert.Error(t, err)
}

func TestFetchParties(t *testing.T) {
	img := "https://example.com/a.png"
	want := []models.Party{
		{ID: "1", Name: "A", SymbolName: "Star", ImageURL: &img, Color: "#ff0000", VoteCount: 3, ShortCode: "A"},
		{ID: "2", Name: "B", SymbolName: "Moon", Color: "#00ff00", VoteCount: 0, ShortCode: "B"},
	}

	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "GET", r.Method)
		assert.Equal(t, "/parties", r.URL.Path)
		writeJSON(w, http.StatusOK, models.ListPartiesResponse{Parties: want})
	}))

	got, err := c.FetchParties(context.Background())
	require.NoError(t, err)
	assert.Equal(t, want, got)
}

func TestFetchParties_Errors(t *testing.T) {
	tests := []struct {
		name       string
		handler    http.HandlerFunc
		wantStatus int
	}{
		{
			name: "server error",
			handler: func(w http.ResponseWriter, r *http.Request) {
				writeJSON(w, http.StatusInternalServerError, models.ErrorResponse{Message: "Database error"})
			},
			wantStatus: http.StatusInternalServerError,
		},
		{
			name: "malformed json",
			handler: func(w http.ResponseWriter, r *http.Request) {
				w.Write([]byte("{not json"))
			},
			wantStatus: http.StatusOK,
		},
		{
			name: "missing parties field",
			handler: func(w http.ResponseWriter, r *http.Request) {
				w.Write([]byte(`{}`))
			},
			wantStatus: http.StatusOK,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := newTestClient(t, tt.handler)

			_, err := c.FetchParties(context.Background())
			var fetchErr *FetchError
			require.ErrorAs(t, err, &fetchErr)
			assert.Equal(t, tt.wantStatus, fetchErr.StatusCode)
		})
	}
}

func TestFetchParties_Unreachable(t *testing.T) {
	server := httptest.NewServer(http.NotFoundHandler())
	url := server.URL
	server.Close()

	c, err := New(url)
	require.NoError(t, err)

	_, err = c.FetchParties(context.Background())
	var fetchErr *FetchError
	require.ErrorAs(t, err, &fetchErr)
	assert.Zero(t, fetchErr.StatusCode)
}

func TestCastVote(t *testing.T) {
	tests := []struct {
		name    string
		status  int
		check   func(t *testing.T, err error)
		partyID string
	}{
		{
			name:    "accepted",
			status:  http.StatusCreated,
			partyID: "p1",
			check: func(t *testing.T, err error) {
				assert.NoError(t, err)
			},
		},
		{
			name:    "already voted",
			status:  http.StatusConflict,
			partyID: "p1",
			check: func(t *testing.T, err error) {
				var already *AlreadyVotedError
				require.ErrorAs(t, err, &already)
				assert.Equal(t, "p1", already.PartyID)
				assert.Equal(t, "server says no", already.Message)

				var sub *SubmissionError
				assert.False(t, errors.As(err, &sub))
			},
		},
		{
			name:    "unknown party",
			status:  http.StatusNotFound,
			partyID: "ghost",
			check: func(t *testing.T, err error) {
				var sub *SubmissionError
				require.ErrorAs(t, err, &sub)
				assert.Equal(t, http.StatusNotFound, sub.StatusCode)
			},
		},
		{
			name:    "rate limited",
			status:  http.StatusTooManyRequests,
			partyID: "p1",
			check: func(t *testing.T, err error) {
				var sub *SubmissionError
				require.ErrorAs(t, err, &sub)
				assert.Equal(t, http.StatusTooManyRequests, sub.StatusCode)
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				assert.Equal(t, "POST", r.Method)
				assert.Equal(t, "/parties/"+tt.partyID+"/votes", r.URL.Path)
				writeJSON(w, tt.status, models.ErrorResponse{Message: "server says no"})
			}))
			tt.check(t, c.CastVote(context.Background(), tt.partyID))
		})
	}
}

func TestCastVote_EmptyID(t *testing.T) {
	var calls atomic.Int32
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
	}))

	var sub *SubmissionError
	require.ErrorAs(t, c.CastVote(context.Background(), ""), &sub)
	assert.Zero(t, calls.Load())
}

func TestAdminCalls(t *testing.T) {
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("X-Admin-Key") != "s3cret" {
			writeJSON(w, http.StatusUnauthorized, models.ErrorResponse{Message: "Invalid access key"})
			return
		}
		switch {
		case r.Method == "POST" && r.URL.Path == "/admin/parties":
			var req models.PartyRequest
			json.NewDecoder(r.Body).Decode(&req)
			writeJSON(w, http.StatusCreated, models.Party{ID: "new", Name: req.Name, ShortCode: req.ShortCode})
		case r.Method == "PUT" && r.URL.Path == "/admin/parties/new":
			writeJSON(w, http.StatusOK, models.Party{ID: "new", Name: "Renamed"})
		case r.Method == "DELETE" && r.URL.Path == "/admin/parties/new":
			w.WriteHeader(http.StatusNoContent)
		case r.Method == "POST" && r.URL.Path == "/admin/reset":
			writeJSON(w, http.StatusOK, models.ResetResponse{PartiesReset: 2, VotesCleared: 5})
		default:
			http.NotFound(w, r)
		}
	}), WithAdminSecret("s3cret"))

	ctx := context.Background()

	p, err := c.CreateParty(ctx, models.PartyRequest{Name: "New", ShortCode: "NEW"})
	require.NoError(t, err)
	assert.Equal(t, "New", p.Name)

	p, err = c.UpdateParty(ctx, "new", models.PartyRequest{Name: "Renamed", ShortCode: "NEW"})
	require.NoError(t, err)
	assert.Equal(t, "Renamed", p.Name)

	require.NoError(t, c.DeleteParty(ctx, "new"))

	reset, err := c.Reset(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(5), reset.VotesCleared)

	err = c.DeleteParty(ctx, "missing")
	var apiErr *APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, http.StatusNotFound, apiErr.StatusCode)
}

func TestAdminCalls_WrongSecret(t *testing.T) {
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusUnauthorized, models.ErrorResponse{Message: "Invalid access key"})
	}), WithAdminSecret("wrong"))

	_, err := c.Reset(context.Background())
	var apiErr *APIError
	require.ErrorAs(t, err, &apiErr)
	assert.True(t, apiErr.Unauthorized())
	assert.Contains(t, apiErr.Error(), "Invalid access key")
}

// TestAgainstServer drives the real router over HTTP
func TestAgainstServer(t *testing.T) {
	conn := testutil.SetupTestDB(t)
	broker := notify.NewMemoryBroker()
	defer broker.Close()

	c := newTestClient(t, router.NewRouter(conn, testutil.GetTestConfig(), broker),
		WithAdminSecret(testutil.TestAdminSecret),
		WithReconnectDelay(10*time.Millisecond),
	)
	ctx := context.Background()

	changes := make(chan models.ChangeEvent, 16)
	sub, err := c.Subscribe(ctx, func(ev models.ChangeEvent) { changes <- ev })
	require.NoError(t, err)
	defer sub.Close()

	require.Eventually(t, func() bool { return broker.Subscribers() == 1 }, 2*time.Second, 10*time.Millisecond)

	created, err := c.CreateParty(ctx, models.PartyRequest{Name: "Green", ShortCode: "GRN"})
	require.NoError(t, err)

	select {
	case ev := <-changes:
		assert.Equal(t, models.ChangeInsert, ev.Kind)
		assert.Equal(t, created.ID, ev.PartyID)
	case <-time.After(2 * time.Second):
		t.Fatal("no change event after create")
	}

	require.NoError(t, c.CastVote(ctx, created.ID))

	// Every request from the test client shares one origin
	var already *AlreadyVotedError
	require.ErrorAs(t, c.CastVote(ctx, created.ID), &already)

	parties, err := c.FetchParties(ctx)
	require.NoError(t, err)
	require.Len(t, parties, 1)
	assert.Equal(t, 1, parties[0].VoteCount, fmt.Sprintf("%+v", parties[0]))
}
