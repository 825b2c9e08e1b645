// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package testutil

import (
	"bytes"
	"database/sql"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"github.com/danielhkuo/party-survey/auth"
	"github.com/danielhkuo/party-survey/cliparse"
	"github.com/danielhkuo/party-survey/db"
)

// TestAdminSecret is the admin secret used by GetTestConfig
const TestAdminSecret = "admin"

// SetupTestDB creates a fresh SQLite database with the full schema in a
// per-test temporary directory
func SetupTestDB(t *testing.T) *sql.DB {
	t.Helper()

	path := filepath.Join(t.TempDir(), "survey_test.db")
	conn, err := db.Open(cliparse.DatabaseSQLite, path)
	if err != nil {
		t.Fatalf("Failed to open test database: %v", err)
	}
	t.Cleanup(func() { conn.Close() })

	if err := db.CreateSchema(conn, cliparse.DatabaseSQLite); err != nil {
		t.Fatalf("Failed to create schema: %v", err)
	}

	return conn
}

// GetTestConfig returns a standard test configuration
func GetTestConfig() cliparse.Config {
	return cliparse.Config{
		Port:          3318,
		DatabaseURL:   "file:survey_test.db",
		DatabaseType:  cliparse.DatabaseSQLite,
		AdminSecret:   TestAdminSecret,
		IPHashSalt:    "test-ip-salt",
		Broker:        cliparse.BrokerMemory,
		VoteRateLimit: 1000,
	}
}

// CreateTestParty inserts a party with the given vote count and returns its ID.
// Parties created later sort after earlier ones.
func CreateTestParty(t *testing.T, conn *sql.DB, name, shortCode string, votes int) string {
	t.Helper()

	partyID := auth.NewID()
	_, err := conn.Exec(`
		INSERT INTO party (id, name, symbol_name, color, vote_count, short_code, created_at)
		VALUES ($1, $2, $3, '#2563eb', $4, $5, $6)
	`, partyID, name, name+" symbol", votes, shortCode, time.Now())
	if err != nil {
		t.Fatalf("Failed to create test party: %v", err)
	}

	// Keep created_at strictly increasing between calls
	time.Sleep(2 * time.Millisecond)

	return partyID
}

// CreateTestVote records a vote from the given origin without touching counts
func CreateTestVote(t *testing.T, conn *sql.DB, partyID, ipHash string) string {
	t.Helper()

	voteID := auth.NewID()
	_, err := conn.Exec(`
		INSERT INTO vote (id, party_id, ip_hash, created_at)
		VALUES ($1, $2, $3, $4)
	`, voteID, partyID, ipHash, time.Now())
	if err != nil {
		t.Fatalf("Failed to create test vote: %v", err)
	}

	return voteID
}

// VoteCount reads a party's stored vote count
func VoteCount(t *testing.T, conn *sql.DB, partyID string) int {
	t.Helper()

	var count int
	if err := conn.QueryRow(`SELECT vote_count FROM party WHERE id = $1`, partyID).Scan(&count); err != nil {
		t.Fatalf("Failed to read vote count: %v", err)
	}
	return count
}

// MakeRequest creates an HTTP test request
func MakeRequest(method, path string, body interface{}, headers map[string]string) *http.Request {
	var req *http.Request
	if body != nil {
		jsonBody, _ := json.Marshal(body)
		req = httptest.NewRequest(method, path, bytes.NewReader(jsonBody))
		req.Header.Set("Content-Type", "application/json")
	} else {
		req = httptest.NewRequest(method, path, nil)
	}

	for k, v := range headers {
		req.Header.Set(k, v)
	}

	return req
}

// AssertStatus checks that the response has the expected status code
func AssertStatus(t *testing.T, w *httptest.ResponseRecorder, expected int) {
	t.Helper()
	if w.Code != expected {
		t.Errorf("Expected status %d, got %d. Body: %s", expected, w.Code, w.Body.String())
	}
}

// AssertJSON decodes the response body into the provided struct
func AssertJSON(t *testing.T, w *httptest.ResponseRecorder, v interface{}) {
	t.Helper()
	if err := json.NewDecoder(w.Body).Decode(v); err != nil {
		t.Fatalf("Failed to decode JSON response: %v", err)
	}
}
