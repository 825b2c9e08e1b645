// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package handlers

import (
	"context"
	"database/sql"
	"log/slog"
	"net/http"
	"regexp"
	"strings"
	"time"

	"github.com/danielhkuo/party-survey/auth"
	"github.com/danielhkuo/party-survey/cliparse"
	"github.com/danielhkuo/party-survey/middleware"
	"github.com/danielhkuo/party-survey/models"
	"github.com/danielhkuo/party-survey/notify"
)

const (
	defaultColor   = "#64748b"
	maxNameLen     = 80
	maxShortCode   = 10
	publishTimeout = 2 * time.Second
)

var colorPattern = regexp.MustCompile(`^#[0-9a-fA-F]{6}$`)

type PartyHandler struct {
	db     *sql.DB
	cfg    cliparse.Config
	broker notify.Broker
}

func NewPartyHandler(db *sql.DB, cfg cliparse.Config, broker notify.Broker) *PartyHandler {
	return &PartyHandler{db: db, cfg: cfg, broker: broker}
}

// ListParties handles GET /parties
// Returns every party in insertion order
func (h *PartyHandler) ListParties(w http.ResponseWriter, r *http.Request) {
	rows, err := h.db.QueryContext(r.Context(), `
		SELECT id, name, symbol_name, image_url, color, vote_count, short_code
		FROM party
		ORDER BY created_at, id
	`)
	if err != nil {
		slog.Error("failed to query parties", "error", err)
		middleware.ErrorResponse(w, http.StatusInternalServerError, "Database error")
		return
	}
	defer rows.Close()

	parties := []models.Party{}
	for rows.Next() {
		var p models.Party
		var imageURL sql.NullString
		if err := rows.Scan(&p.ID, &p.Name, &p.SymbolName, &imageURL, &p.Color, &p.VoteCount, &p.ShortCode); err != nil {
			slog.Error("failed to scan party", "error", err)
			middleware.ErrorResponse(w, http.StatusInternalServerError, "Database error")
			return
		}
		if imageURL.Valid {
			p.ImageURL = &imageURL.String
		}
		parties = append(parties, p)
	}
	if err := rows.Err(); err != nil {
		slog.Error("failed to iterate parties", "error", err)
		middleware.ErrorResponse(w, http.StatusInternalServerError, "Database error")
		return
	}

	middleware.JSONResponse(w, http.StatusOK, models.ListPartiesResponse{Parties: parties})
}

// CastVote handles POST /parties/{id}/votes
// One vote per voting origin; a second attempt gets 409 and changes nothing
func (h *PartyHandler) CastVote(w http.ResponseWriter, r *http.Request) {
	partyID := r.PathValue("id")
	if partyID == "" {
		middleware.ErrorResponse(w, http.StatusBadRequest, "party id is required")
		return
	}

	clientIP := middleware.GetClientIP(r, h.cfg.TrustedProxies)
	ipHash := auth.HashIP(clientIP, h.cfg.IPHashSalt)
	userAgent := r.UserAgent()

	tx, err := h.db.BeginTx(r.Context(), nil)
	if err != nil {
		slog.Error("failed to begin transaction", "error", err)
		middleware.ErrorResponse(w, http.StatusInternalServerError, "Database error")
		return
	}
	defer tx.Rollback()

	// Increment first so an unknown party never reaches the ledger
	res, err := tx.Exec(`
		UPDATE party SET vote_count = vote_count + 1 WHERE id = $1
	`, partyID)
	if err != nil {
		slog.Error("failed to increment vote count", "error", err, "party_id", partyID)
		middleware.ErrorResponse(w, http.StatusInternalServerError, "Failed to record vote")
		return
	}
	if n, _ := res.RowsAffected(); n == 0 {
		middleware.ErrorResponse(w, http.StatusNotFound, "Party not found")
		return
	}

	voteID := auth.NewID()
	res, err = tx.Exec(`
		INSERT INTO vote (id, party_id, ip_hash, user_agent, created_at)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (ip_hash) DO NOTHING
	`, voteID, partyID, ipHash, userAgent, time.Now())
	if err != nil {
		slog.Error("failed to insert vote", "error", err, "party_id", partyID)
		middleware.ErrorResponse(w, http.StatusInternalServerError, "Failed to record vote")
		return
	}
	if n, _ := res.RowsAffected(); n == 0 {
		// Rollback undoes the increment
		slog.Info("duplicate vote rejected", "party_id", partyID, "ip_hash", ipHash)
		middleware.ErrorResponse(w, http.StatusConflict, "You have already voted")
		return
	}

	if err := tx.Commit(); err != nil {
		slog.Error("failed to commit vote", "error", err)
		middleware.ErrorResponse(w, http.StatusInternalServerError, "Failed to record vote")
		return
	}

	slog.Info("vote recorded", "party_id", partyID, "vote_id", voteID)
	h.publish(models.ChangeVote, partyID)

	middleware.JSONResponse(w, http.StatusCreated, models.CastVoteResponse{
		VoteID:  voteID,
		PartyID: partyID,
		Message: "Vote recorded",
	})
}

// CreateParty handles POST /admin/parties
func (h *PartyHandler) CreateParty(w http.ResponseWriter, r *http.Request) {
	var req models.PartyRequest
	if err := middleware.ParseJSONBody(r, &req); err != nil {
		middleware.ErrorResponse(w, http.StatusBadRequest, "Invalid JSON")
		return
	}
	if msg := normalizePartyRequest(&req); msg != "" {
		middleware.ErrorResponse(w, http.StatusBadRequest, msg)
		return
	}

	taken, err := h.shortCodeTaken(r.Context(), req.ShortCode, "")
	if err != nil {
		slog.Error("failed to check short code", "error", err)
		middleware.ErrorResponse(w, http.StatusInternalServerError, "Database error")
		return
	}
	if taken {
		middleware.ErrorResponse(w, http.StatusConflict, "short_code already in use")
		return
	}

	party := models.Party{
		ID:         auth.NewID(),
		Name:       req.Name,
		SymbolName: req.SymbolName,
		ImageURL:   req.ImageURL,
		Color:      req.Color,
		ShortCode:  req.ShortCode,
	}
	_, err = h.db.ExecContext(r.Context(), `
		INSERT INTO party (id, name, symbol_name, image_url, color, vote_count, short_code, created_at)
		VALUES ($1, $2, $3, $4, $5, 0, $6, $7)
	`, party.ID, party.Name, party.SymbolName, party.ImageURL, party.Color, party.ShortCode, time.Now())
	if err != nil {
		slog.Error("failed to insert party", "error", err)
		middleware.ErrorResponse(w, http.StatusInternalServerError, "Failed to create party")
		return
	}

	slog.Info("party created", "party_id", party.ID, "short_code", party.ShortCode)
	h.publish(models.ChangeInsert, party.ID)

	middleware.JSONResponse(w, http.StatusCreated, party)
}

// UpdateParty handles PUT /admin/parties/{id}
// Replaces display fields; the vote count is never touched here
func (h *PartyHandler) UpdateParty(w http.ResponseWriter, r *http.Request) {
	partyID := r.PathValue("id")
	if partyID == "" {
		middleware.ErrorResponse(w, http.StatusBadRequest, "party id is required")
		return
	}

	var req models.PartyRequest
	if err := middleware.ParseJSONBody(r, &req); err != nil {
		middleware.ErrorResponse(w, http.StatusBadRequest, "Invalid JSON")
		return
	}
	if msg := normalizePartyRequest(&req); msg != "" {
		middleware.ErrorResponse(w, http.StatusBadRequest, msg)
		return
	}

	taken, err := h.shortCodeTaken(r.Context(), req.ShortCode, partyID)
	if err != nil {
		slog.Error("failed to check short code", "error", err)
		middleware.ErrorResponse(w, http.StatusInternalServerError, "Database error")
		return
	}
	if taken {
		middleware.ErrorResponse(w, http.StatusConflict, "short_code already in use")
		return
	}

	var party models.Party
	var imageURL sql.NullString
	err = h.db.QueryRowContext(r.Context(), `
		UPDATE party
		SET name = $1, symbol_name = $2, image_url = $3, color = $4, short_code = $5
		WHERE id = $6
		RETURNING id, name, symbol_name, image_url, color, vote_count, short_code
	`, req.Name, req.SymbolName, req.ImageURL, req.Color, req.ShortCode, partyID).Scan(
		&party.ID, &party.Name, &party.SymbolName, &imageURL, &party.Color, &party.VoteCount, &party.ShortCode,
	)
	if err == sql.ErrNoRows {
		middleware.ErrorResponse(w, http.StatusNotFound, "Party not found")
		return
	}
	if err != nil {
		slog.Error("failed to update party", "error", err, "party_id", partyID)
		middleware.ErrorResponse(w, http.StatusInternalServerError, "Failed to update party")
		return
	}
	if imageURL.Valid {
		party.ImageURL = &imageURL.String
	}

	slog.Info("party updated", "party_id", partyID)
	h.publish(models.ChangeUpdate, partyID)

	middleware.JSONResponse(w, http.StatusOK, party)
}

// DeleteParty handles DELETE /admin/parties/{id}
// Votes for the party stay in the ledger so their origins cannot vote again
func (h *PartyHandler) DeleteParty(w http.ResponseWriter, r *http.Request) {
	partyID := r.PathValue("id")
	if partyID == "" {
		middleware.ErrorResponse(w, http.StatusBadRequest, "party id is required")
		return
	}

	res, err := h.db.ExecContext(r.Context(), `DELETE FROM party WHERE id = $1`, partyID)
	if err != nil {
		slog.Error("failed to delete party", "error", err, "party_id", partyID)
		middleware.ErrorResponse(w, http.StatusInternalServerError, "Failed to delete party")
		return
	}
	if n, _ := res.RowsAffected(); n == 0 {
		middleware.ErrorResponse(w, http.StatusNotFound, "Party not found")
		return
	}

	slog.Info("party deleted", "party_id", partyID)
	h.publish(models.ChangeDelete, partyID)

	w.WriteHeader(http.StatusNoContent)
}

// ResetVotes handles POST /admin/reset
// Zeroes every count and clears the ledger so every origin may vote again
func (h *PartyHandler) ResetVotes(w http.ResponseWriter, r *http.Request) {
	tx, err := h.db.BeginTx(r.Context(), nil)
	if err != nil {
		slog.Error("failed to begin transaction", "error", err)
		middleware.ErrorResponse(w, http.StatusInternalServerError, "Database error")
		return
	}
	defer tx.Rollback()

	votes, err := tx.Exec(`DELETE FROM vote`)
	if err != nil {
		slog.Error("failed to clear votes", "error", err)
		middleware.ErrorResponse(w, http.StatusInternalServerError, "Failed to reset survey")
		return
	}
	parties, err := tx.Exec(`UPDATE party SET vote_count = 0 WHERE vote_count <> 0`)
	if err != nil {
		slog.Error("failed to zero vote counts", "error", err)
		middleware.ErrorResponse(w, http.StatusInternalServerError, "Failed to reset survey")
		return
	}
	if err := tx.Commit(); err != nil {
		slog.Error("failed to commit reset", "error", err)
		middleware.ErrorResponse(w, http.StatusInternalServerError, "Failed to reset survey")
		return
	}

	var resp models.ResetResponse
	resp.VotesCleared, _ = votes.RowsAffected()
	resp.PartiesReset, _ = parties.RowsAffected()

	slog.Info("survey reset", "votes_cleared", resp.VotesCleared, "parties_reset", resp.PartiesReset)
	h.publish(models.ChangeReset, "")

	middleware.JSONResponse(w, http.StatusOK, resp)
}

func (h *PartyHandler) shortCodeTaken(ctx context.Context, shortCode, exceptID string) (bool, error) {
	var exists bool
	err := h.db.QueryRowContext(ctx, `
		SELECT EXISTS(SELECT 1 FROM party WHERE short_code = $1 AND id <> $2)
	`, shortCode, exceptID).Scan(&exists)
	return exists, err
}

// publish notifies subscribers. Failures are logged, never returned: the
// write already happened and clients also poll.
func (h *PartyHandler) publish(kind, partyID string) {
	if h.broker == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), publishTimeout)
	defer cancel()

	ev := models.ChangeEvent{Kind: kind, PartyID: partyID, At: time.Now()}
	if err := h.broker.Publish(ctx, ev); err != nil {
		slog.Warn("failed to publish change event", "kind", kind, "party_id", partyID, "error", err)
	}
}

// normalizePartyRequest trims and validates req in place.
// Returns a user-facing message when invalid.
func normalizePartyRequest(req *models.PartyRequest) string {
	req.Name = strings.TrimSpace(req.Name)
	req.SymbolName = strings.TrimSpace(req.SymbolName)
	req.ShortCode = strings.ToUpper(strings.TrimSpace(req.ShortCode))
	req.Color = strings.TrimSpace(req.Color)
	if req.ImageURL != nil {
		url := strings.TrimSpace(*req.ImageURL)
		if url == "" {
			req.ImageURL = nil
		} else {
			req.ImageURL = &url
		}
	}

	if req.Name == "" {
		return "name is required"
	}
	if len(req.Name) > maxNameLen {
		return "name must be at most 80 characters"
	}
	if req.ShortCode == "" {
		return "short_code is required"
	}
	if len(req.ShortCode) > maxShortCode {
		return "short_code must be at most 10 characters"
	}
	if req.Color == "" {
		req.Color = defaultColor
	}
	if !colorPattern.MatchString(req.Color) {
		return "color must look like #RRGGBB"
	}
	return ""
}
