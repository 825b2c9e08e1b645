// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package partyservice

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/danielhkuo/party-survey/models"
)

const (
	DefaultTimeout = 10 * time.Second
	maxErrorBody   = 4 << 10
)

// Client talks to the survey backend
type Client struct {
	baseURL     *url.URL
	http        *http.Client
	stream      *http.Client
	adminSecret string
	logger      *zap.Logger

	reconnectDelay time.Duration
}

type Option func(*Client)

// WithHTTPClient replaces the client used for request/response calls
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.http = hc }
}

// WithAdminSecret sets the X-Admin-Key sent on admin calls
func WithAdminSecret(secret string) Option {
	return func(c *Client) { c.adminSecret = secret }
}

func WithLogger(logger *zap.Logger) Option {
	return func(c *Client) { c.logger = logger }
}

// WithReconnectDelay sets the pause before the change stream reconnects
func WithReconnectDelay(d time.Duration) Option {
	return func(c *Client) { c.reconnectDelay = d }
}

func New(baseURL string, opts ...Option) (*Client, error) {
	u, err := url.Parse(strings.TrimRight(baseURL, "/"))
	if err != nil {
		return nil, fmt.Errorf("invalid API URL: %w", err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return nil, fmt.Errorf("invalid API URL %q: scheme must be http or https", baseURL)
	}

	c := &Client{
		baseURL:        u,
		http:           &http.Client{Timeout: DefaultTimeout},
		stream:         &http.Client{},
		logger:         zap.NewNop(),
		reconnectDelay: DefaultReconnectDelay,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

func (c *Client) endpoint(parts ...string) string {
	escaped := make([]string, len(parts))
	for i, p := range parts {
		escaped[i] = url.PathEscape(p)
	}
	return c.baseURL.String() + "/" + strings.Join(escaped, "/")
}

// FetchParties returns every party in backend (insertion) order
func (c *Client) FetchParties(ctx context.Context) ([]models.Party, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.endpoint("parties"), nil)
	if err != nil {
		return nil, &FetchError{Err: err}
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, &FetchError{Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, &FetchError{StatusCode: resp.StatusCode, Err: errors.New(readErrorMessage(resp.Body))}
	}

	var body models.ListPartiesResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return nil, &FetchError{StatusCode: resp.StatusCode, Err: fmt.Errorf("malformed response: %w", err)}
	}
	if body.Parties == nil {
		return nil, &FetchError{StatusCode: resp.StatusCode, Err: errors.New("malformed response: missing parties")}
	}

	c.logger.Debug("fetched parties", zap.Int("count", len(body.Parties)))
	return body.Parties, nil
}

// CastVote submits this origin's single vote for partyID.
// Returns *AlreadyVotedError on 409 and *SubmissionError otherwise.
func (c *Client) CastVote(ctx context.Context, partyID string) error {
	if partyID == "" {
		return &SubmissionError{Err: errors.New("party id is required")}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint("parties", partyID, "votes"), nil)
	if err != nil {
		return &SubmissionError{PartyID: partyID, Err: err}
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return &SubmissionError{PartyID: partyID, Err: err}
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusConflict:
		return &AlreadyVotedError{PartyID: partyID, Message: readErrorMessage(resp.Body)}
	case resp.StatusCode < 200 || resp.StatusCode > 299:
		return &SubmissionError{
			PartyID:    partyID,
			StatusCode: resp.StatusCode,
			Err:        errors.New(readErrorMessage(resp.Body)),
		}
	}

	io.Copy(io.Discard, resp.Body)
	c.logger.Info("vote accepted", zap.String("party_id", partyID))
	return nil
}

// CreateParty adds a party (admin)
func (c *Client) CreateParty(ctx context.Context, req models.PartyRequest) (*models.Party, error) {
	var party models.Party
	if err := c.admin(ctx, http.MethodPost, c.endpoint("admin", "parties"), req, &party); err != nil {
		return nil, err
	}
	return &party, nil
}

// UpdateParty replaces a party's display fields (admin)
func (c *Client) UpdateParty(ctx context.Context, id string, req models.PartyRequest) (*models.Party, error) {
	var party models.Party
	if err := c.admin(ctx, http.MethodPut, c.endpoint("admin", "parties", id), req, &party); err != nil {
		return nil, err
	}
	return &party, nil
}

// DeleteParty removes a party (admin)
func (c *Client) DeleteParty(ctx context.Context, id string) error {
	return c.admin(ctx, http.MethodDelete, c.endpoint("admin", "parties", id), nil, nil)
}

// Reset zeroes every count and clears the vote ledger (admin)
func (c *Client) Reset(ctx context.Context) (*models.ResetResponse, error) {
	var resp models.ResetResponse
	if err := c.admin(ctx, http.MethodPost, c.endpoint("admin", "reset"), nil, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

func (c *Client) admin(ctx context.Context, method, endpoint string, in, out interface{}) error {
	var body io.Reader
	if in != nil {
		data, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("failed to encode request: %w", err)
		}
		body = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, endpoint, body)
	if err != nil {
		return err
	}
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set("X-Admin-Key", c.adminSecret)

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("%s %s: %w", method, endpoint, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return &APIError{StatusCode: resp.StatusCode, Message: readErrorMessage(resp.Body)}
	}

	c.logger.Info("admin call succeeded", zap.String("method", method), zap.String("endpoint", endpoint))

	if out == nil || resp.StatusCode == http.StatusNoContent {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("malformed response: %w", err)
	}
	return nil
}

// readErrorMessage pulls the message out of a JSON error body, falling back
// to the raw text
func readErrorMessage(r io.Reader) string {
	data, _ := io.ReadAll(io.LimitReader(r, maxErrorBody))
	var e models.ErrorResponse
	if json.Unmarshal(data, &e) == nil && e.Message != "" {
		return e.Message
	}
	if s := strings.TrimSpace(string(data)); s != "" {
		return s
	}
	return "empty response"
}
