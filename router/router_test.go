// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package router

import (
	"net/http"
	"net/http/httptest"
	"net/netip"
	"testing"

	"github.com/danielhkuo/party-survey/models"
	"github.com/danielhkuo/party-survey/notify"
	"github.com/danielhkuo/party-survey/testutil"
)

func newTestRouter(t *testing.T) *http.ServeMux {
	t.Helper()
	db := testutil.SetupTestDB(t)
	broker := notify.NewMemoryBroker()
	t.Cleanup(func() { broker.Close() })
	return NewRouter(db, testutil.GetTestConfig(), broker)
}

func TestHealthEndpoint(t *testing.T) {
	mux := newTestRouter(t)

	req := httptest.NewRequest("GET", "/health", nil)
	w := httptest.NewRecorder()

	mux.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Errorf("Expected status 200, got %d", w.Code)
	}

	if w.Body.String() != "OK" {
		t.Errorf("Expected body 'OK', got '%s'", w.Body.String())
	}
}

func TestRootEndpoint(t *testing.T) {
	mux := newTestRouter(t)

	req := httptest.NewRequest("GET", "/", nil)
	w := httptest.NewRecorder()

	mux.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Errorf("Expected status 200, got %d", w.Code)
	}

	expected := "party-survey API v1"
	if w.Body.String() != expected {
		t.Errorf("Expected body '%s', got '%s'", expected, w.Body.String())
	}
}

func TestRouteExistence(t *testing.T) {
	mux := newTestRouter(t)

	adminKey := map[string]string{"X-Admin-Key": testutil.TestAdminSecret}

	// Routes must reach a handler; 404 with a JSON body is handler behaviour
	testCases := []struct {
		method  string
		path    string
		headers map[string]string
	}{
		{"GET", "/health", nil},
		{"GET", "/", nil},
		{"GET", "/parties", nil},
		{"POST", "/parties/test-id/votes", nil},
		{"POST", "/admin/parties", adminKey},
		{"PUT", "/admin/parties/test-id", adminKey},
		{"DELETE", "/admin/parties/test-id", adminKey},
		{"POST", "/admin/reset", adminKey},
	}

	for _, tc := range testCases {
		t.Run(tc.method+" "+tc.path, func(t *testing.T) {
			req := testutil.MakeRequest(tc.method, tc.path, nil, tc.headers)
			w := httptest.NewRecorder()
			mux.ServeHTTP(w, req)

			if w.Code == http.StatusMethodNotAllowed {
				t.Errorf("Route %s %s is not registered", tc.method, tc.path)
			}
			if w.Code == http.StatusNotFound && w.Header().Get("Content-Type") != "application/json" {
				t.Errorf("Route %s %s fell through to the mux 404", tc.method, tc.path)
			}
		})
	}
}

func TestAdminRoutesRequireKey(t *testing.T) {
	mux := newTestRouter(t)

	tests := []struct {
		name    string
		headers map[string]string
	}{
		{"missing key", nil},
		{"wrong key", map[string]string{"X-Admin-Key": "nope"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := testutil.MakeRequest("POST", "/admin/reset", nil, tt.headers)
			w := httptest.NewRecorder()
			mux.ServeHTTP(w, req)

			testutil.AssertStatus(t, w, http.StatusUnauthorized)

			var resp models.ErrorResponse
			testutil.AssertJSON(t, w, &resp)
			if resp.Message != "Invalid access key" {
				t.Errorf("Unexpected message %q", resp.Message)
			}
		})
	}
}

func TestVoteThroughRouter(t *testing.T) {
	db := testutil.SetupTestDB(t)
	broker := notify.NewMemoryBroker()
	defer broker.Close()
	mux := NewRouter(db, testutil.GetTestConfig(), broker)

	partyID := testutil.CreateTestParty(t, db, "Green Party", "GRN", 0)

	headers := map[string]string{"X-Forwarded-For": "203.0.113.10"}

	w := httptest.NewRecorder()
	mux.ServeHTTP(w, testutil.MakeRequest("POST", "/parties/"+partyID+"/votes", nil, headers))
	testutil.AssertStatus(t, w, http.StatusCreated)

	w = httptest.NewRecorder()
	mux.ServeHTTP(w, testutil.MakeRequest("POST", "/parties/"+partyID+"/votes", nil, headers))
	testutil.AssertStatus(t, w, http.StatusConflict)

	w = httptest.NewRecorder()
	mux.ServeHTTP(w, testutil.MakeRequest("GET", "/parties", nil, nil))
	testutil.AssertStatus(t, w, http.StatusOK)

	var list models.ListPartiesResponse
	testutil.AssertJSON(t, w, &list)
	if len(list.Parties) != 1 || list.Parties[0].VoteCount != 1 {
		t.Errorf("Expected one party with one vote, got %+v", list.Parties)
	}
}

func TestVoteRateLimit(t *testing.T) {
	db := testutil.SetupTestDB(t)
	broker := notify.NewMemoryBroker()
	defer broker.Close()

	cfg := testutil.GetTestConfig()
	cfg.VoteRateLimit = 1
	mux := NewRouter(db, cfg, broker)

	headers := map[string]string{"X-Forwarded-For": "203.0.113.20"}

	w := httptest.NewRecorder()
	mux.ServeHTTP(w, testutil.MakeRequest("POST", "/parties/missing/votes", nil, headers))
	testutil.AssertStatus(t, w, http.StatusNotFound)

	w = httptest.NewRecorder()
	mux.ServeHTTP(w, testutil.MakeRequest("POST", "/parties/missing/votes", nil, headers))
	testutil.AssertStatus(t, w, http.StatusTooManyRequests)
	if w.Header().Get("Retry-After") == "" {
		t.Error("Expected Retry-After header")
	}
}

func TestVoteBehindTrustedProxy(t *testing.T) {
	db := testutil.SetupTestDB(t)
	broker := notify.NewMemoryBroker()
	defer broker.Close()

	cfg := testutil.GetTestConfig()
	cfg.VoteRateLimit = 1
	cfg.TrustedProxies = []netip.Prefix{netip.MustParsePrefix("192.0.2.0/24")}
	mux := NewRouter(db, cfg, broker)

	partyID := testutil.CreateTestParty(t, db, "Green Party", "GRN", 0)

	// httptest requests come from 192.0.2.1, the proxy
	for _, client := range []string{"198.51.100.1", "198.51.100.2"} {
		w := httptest.NewRecorder()
		mux.ServeHTTP(w, testutil.MakeRequest("POST", "/parties/"+partyID+"/votes", nil,
			map[string]string{"X-Forwarded-For": client}))
		testutil.AssertStatus(t, w, http.StatusCreated)
	}

	if got := testutil.VoteCount(t, db, partyID); got != 2 {
		t.Errorf("Expected two clients counted separately, got %d", got)
	}
}
