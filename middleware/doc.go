// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

/*
Package middleware provides HTTP middleware and helper functions.

# Request Logging

	mux.HandleFunc("GET /health", middleware.WithLogging(handler))

Logs request start (method, path, remote) and completion (duration_ms).

# CORS Middleware

	server := http.Server{
		Handler: middleware.CORS(mux),
	}

# Admin Gate

	mux.HandleFunc("POST /admin/parties", middleware.RequireAdmin(cfg.AdminSecret, h.CreateParty))

Requests without a matching X-Admin-Key get 401.

# Rate Limiting

One token bucket per client IP:

	rl := middleware.NewRateLimiter(cfg.VoteRateLimit, 3)
	mux.HandleFunc("POST /parties/{id}/votes", middleware.RateLimit(rl, cfg.TrustedProxies, h.CastVote))

Limited requests get 429 with Retry-After. Buckets unused for
DefaultLimiterIdle (or their refill time, if longer) are dropped.

# JSON Helpers

	middleware.JSONResponse(w, http.StatusOK, data)
	middleware.ErrorResponse(w, http.StatusBadRequest, "message")

# Client IP Extraction

	ip := middleware.GetClientIP(r, cfg.TrustedProxies)

X-Forwarded-For and X-Real-IP are only read when the direct peer is a
trusted proxy; otherwise the RemoteAddr host is used. The IP is the voting
origin once hashed; see auth.HashIP.
*/
package middleware
