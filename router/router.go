// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package router

import (
	"database/sql"
	"net/http"

	"github.com/danielhkuo/party-survey/cliparse"
	"github.com/danielhkuo/party-survey/handlers"
	"github.com/danielhkuo/party-survey/middleware"
	"github.com/danielhkuo/party-survey/notify"
)

func NewRouter(db *sql.DB, cfg cliparse.Config, broker notify.Broker) *http.ServeMux {
	mux := http.NewServeMux()

	// Initialize handlers
	partyHandler := handlers.NewPartyHandler(db, cfg, broker)
	eventsHandler := handlers.NewEventsHandler(broker, handlers.DefaultKeepAlive)

	voteLimiter := middleware.NewRateLimiter(cfg.VoteRateLimit, int(cfg.VoteRateLimit))
	admin := func(h http.HandlerFunc) http.HandlerFunc {
		return middleware.WithLogging(middleware.RequireAdmin(cfg.AdminSecret, h))
	}

	// Health check
	mux.HandleFunc("GET /health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("OK"))
	})

	// Survey (public)
	mux.HandleFunc("GET /parties", middleware.WithLogging(partyHandler.ListParties))
	mux.HandleFunc("GET /parties/events", middleware.WithLogging(eventsHandler.Stream))
	mux.HandleFunc("POST /parties/{id}/votes", middleware.WithLogging(
		middleware.RateLimit(voteLimiter, cfg.TrustedProxies, partyHandler.CastVote),
	))

	// Party maintenance (admin, requires X-Admin-Key)
	mux.HandleFunc("POST /admin/parties", admin(partyHandler.CreateParty))
	mux.HandleFunc("PUT /admin/parties/{id}", admin(partyHandler.UpdateParty))
	mux.HandleFunc("DELETE /admin/parties/{id}", admin(partyHandler.DeleteParty))
	mux.HandleFunc("POST /admin/reset", admin(partyHandler.ResetVotes))

	// Root endpoint
	mux.HandleFunc("GET /", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("party-survey API v1"))
	})

	return mux
}
