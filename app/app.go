// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package app

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/danielhkuo/party-survey/auth"
	"github.com/danielhkuo/party-survey/cliparse"
	"github.com/danielhkuo/party-survey/localstore"
	"github.com/danielhkuo/party-survey/models"
	"github.com/danielhkuo/party-survey/partyservice"
)

var (
	// ErrInvalidAccessKey is the admin login mismatch
	ErrInvalidAccessKey = errors.New("invalid access key")
	// ErrInvalidTransition is returned for a view change the current state does not offer
	ErrInvalidTransition = errors.New("view transition not available")
	ErrClosed            = errors.New("controller closed")
)

// User-facing notices
const (
	MsgAlreadyParticipated = "You have already participated in this survey locally."
	MsgVoteSuccess         = "Vote successful! Showing live results..."
	MsgAlreadyVoted        = "Our records show that a vote has already been cast from this internet connection."
	MsgVoteFailed          = "There was a problem recording your vote. Please try again."
	MsgInvalidAccessKey    = "Invalid access key"
)

// Backend is the data access the controller needs
type Backend interface {
	FetchParties(ctx context.Context) ([]models.Party, error)
	CastVote(ctx context.Context, partyID string) error
}

// SubscribeFunc starts a change subscription. The returned release func
// stops it and must not return before the callback can no longer run.
type SubscribeFunc func(ctx context.Context, onChange func(models.ChangeEvent)) (release func(), err error)

// SecretProvider supplies the admin shared secret
type SecretProvider interface {
	AdminSecret() string
}

// StaticSecret is a SecretProvider for a fixed value
type StaticSecret string

func (s StaticSecret) AdminSecret() string { return string(s) }

// Outcome is the result of a vote attempt
type Outcome int

const (
	OutcomeVoted Outcome = iota
	// OutcomeAlreadyParticipated: the local flag was set; nothing was sent
	OutcomeAlreadyParticipated
	// OutcomeAlreadyVoted: the backend already had a vote from this origin
	OutcomeAlreadyVoted
	OutcomeFailed
)

func (o Outcome) String() string {
	switch o {
	case OutcomeVoted:
		return "voted"
	case OutcomeAlreadyParticipated:
		return "already-participated"
	case OutcomeAlreadyVoted:
		return "already-voted"
	case OutcomeFailed:
		return "failed"
	}
	return fmt.Sprintf("Outcome(%d)", int(o))
}

type NoticeLevel int

const (
	NoticeInfo NoticeLevel = iota
	NoticeSuccess
	NoticeError
)

// Notice is a blocking message for the user; empty Text means none
type Notice struct {
	Level NoticeLevel
	Text  string
}

// State is a point-in-time copy of the controller state
type State struct {
	Parties    []models.Party
	Loading    bool
	HasVoted   bool
	View       models.ViewState
	AdminInput string
	AdminError string
	Notice     Notice
}

// ShowSpinner reports whether the full-screen loading indicator applies.
// Background refreshes with data on screen never show it.
func (s State) ShowSpinner() bool {
	return s.Loading && len(s.Parties) == 0
}

// CanOpenResults reports whether the voting view offers its results link
func (s State) CanOpenResults() bool {
	return s.View == models.ViewVoting && (s.HasVoted || len(s.Parties) == 0)
}

// CanOpenAdminLogin reports whether the voting view offers its admin link
func (s State) CanOpenAdminLogin() bool {
	return s.View == models.ViewVoting && len(s.Parties) == 0
}

type Options struct {
	Backend   Backend
	Subscribe SubscribeFunc // optional; polling alone keeps data fresh
	Store     localstore.Store
	Secret    SecretProvider
	NewPoller PollerFactory // defaults to NewCronPoller
	Logger    *zap.Logger

	PollInterval time.Duration // defaults to cliparse.DefaultPollInterval
}

// Controller owns the survey client state and its refresh sources
type Controller struct {
	backend      Backend
	subscribe    SubscribeFunc
	store        localstore.Store
	secret       SecretProvider
	newPoller    PollerFactory
	pollInterval time.Duration
	logger       *zap.Logger

	mu         sync.Mutex
	parties    []models.Party
	loading    bool
	hasVoted   bool
	view       models.ViewState
	adminInput string
	adminError string
	notice     Notice

	// Refresh sources; guarded by mu
	running  bool
	closed   bool
	runCtx   context.Context
	cancel   context.CancelFunc
	release  func()
	poller   Poller
	inflight sync.WaitGroup

	// lifeMu serialises Start and Close
	lifeMu sync.Mutex

	changes chan struct{}
}

func New(opts Options) (*Controller, error) {
	if opts.Backend == nil {
		return nil, errors.New("app: backend is required")
	}
	if opts.Store == nil {
		opts.Store = localstore.NewMemoryStore()
	}
	if opts.Secret == nil {
		opts.Secret = StaticSecret("")
	}
	if opts.NewPoller == nil {
		opts.NewPoller = NewCronPoller
	}
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}
	if opts.PollInterval <= 0 {
		opts.PollInterval = cliparse.DefaultPollInterval
	}

	c := &Controller{
		backend:      opts.Backend,
		subscribe:    opts.Subscribe,
		store:        opts.Store,
		secret:       opts.Secret,
		newPoller:    opts.NewPoller,
		pollInterval: opts.PollInterval,
		logger:       opts.Logger,
		loading:      true,
		view:         models.ViewVoting,
		changes:      make(chan struct{}, 1),
	}

	v, ok, err := c.store.Get(models.HasVotedKey)
	if err != nil {
		// Advisory only; the backend still enforces one vote per origin
		c.logger.Warn("failed to read participation flag", zap.Error(err))
	}
	c.hasVoted = ok && v == models.HasVotedValue

	return c, nil
}

// Changes is signalled after every state change. Signals coalesce.
func (c *Controller) Changes() <-chan struct{} {
	return c.changes
}

func (c *Controller) changed() {
	select {
	case c.changes <- struct{}{}:
	default:
	}
}

// Snapshot returns a copy of the current state
func (c *Controller) Snapshot() State {
	c.mu.Lock()
	defer c.mu.Unlock()

	parties := make([]models.Party, len(c.parties))
	copy(parties, c.parties)

	return State{
		Parties:    parties,
		Loading:    c.loading,
		HasVoted:   c.hasVoted,
		View:       c.view,
		AdminInput: c.adminInput,
		AdminError: c.adminError,
		Notice:     c.notice,
	}
}

// Start performs the initial load and then acquires the change subscription
// and the poll timer. A second Start releases the previous pair first.
func (c *Controller) Start(ctx context.Context) error {
	c.lifeMu.Lock()
	defer c.lifeMu.Unlock()

	c.mu.Lock()
	closed := c.closed
	c.mu.Unlock()
	if closed {
		return ErrClosed
	}

	c.stopSources()

	// Failure leaves the collection empty; the empty state covers it
	c.Refresh(ctx)

	runCtx, cancel := context.WithCancel(ctx)
	c.mu.Lock()
	c.runCtx, c.cancel, c.running = runCtx, cancel, true
	c.mu.Unlock()

	if c.subscribe != nil {
		release, err := c.subscribe(runCtx, func(ev models.ChangeEvent) {
			c.logger.Debug("change notification", zap.String("kind", ev.Kind), zap.String("party_id", ev.PartyID))
			c.trigger()
		})
		if err != nil {
			c.logger.Warn("change subscription unavailable, polling only", zap.Error(err))
		} else {
			c.mu.Lock()
			c.release = release
			c.mu.Unlock()
		}
	}

	poller, err := c.newPoller(c.pollInterval, c.trigger)
	if err != nil {
		c.stopSources()
		return fmt.Errorf("failed to start poller: %w", err)
	}
	c.mu.Lock()
	c.poller = poller
	c.mu.Unlock()

	c.logger.Info("controller started", zap.Duration("poll_interval", c.pollInterval))
	return nil
}

// Close releases the subscription and the poll timer and waits for any
// refresh they started. It is safe to call more than once.
func (c *Controller) Close() {
	c.lifeMu.Lock()
	defer c.lifeMu.Unlock()

	c.mu.Lock()
	c.closed = true
	c.mu.Unlock()

	c.stopSources()
}

// stopSources tears down the current subscription and poller.
// Callers hold lifeMu.
func (c *Controller) stopSources() {
	c.mu.Lock()
	wasRunning := c.running
	c.running = false
	cancel, release, poller := c.cancel, c.release, c.poller
	c.cancel, c.release, c.poller, c.runCtx = nil, nil, nil, nil
	c.mu.Unlock()

	if cancel != nil {
		cancel()
	}
	if release != nil {
		release()
	}
	if poller != nil {
		poller.Stop()
	}
	c.inflight.Wait()

	if wasRunning {
		c.logger.Info("controller stopped")
	}
}

// trigger runs a refresh on behalf of the subscription or the poller.
// After teardown it does nothing.
func (c *Controller) trigger() {
	c.mu.Lock()
	if !c.running {
		c.mu.Unlock()
		return
	}
	ctx := c.runCtx
	c.inflight.Add(1)
	c.mu.Unlock()

	defer c.inflight.Done()
	c.Refresh(ctx)
}

// Refresh refetches the full party list and overwrites the local copy.
// On failure the previous data stays in place. Overlapping calls are fine;
// whichever finishes last wins.
func (c *Controller) Refresh(ctx context.Context) error {
	parties, err := c.backend.FetchParties(ctx)

	c.mu.Lock()
	c.loading = false
	if err == nil {
		c.parties = parties
	}
	c.mu.Unlock()
	c.changed()

	if err != nil {
		c.logger.Warn("failed to load parties", zap.Error(err))
		return err
	}
	c.logger.Debug("parties refreshed", zap.Int("count", len(parties)))
	return nil
}

// Vote casts the local user's vote for partyID
func (c *Controller) Vote(ctx context.Context, partyID string) Outcome {
	c.mu.Lock()
	if c.hasVoted {
		c.notice = Notice{Level: NoticeInfo, Text: MsgAlreadyParticipated}
		c.mu.Unlock()
		c.changed()
		return OutcomeAlreadyParticipated
	}
	c.mu.Unlock()

	err := c.backend.CastVote(ctx, partyID)

	var already *partyservice.AlreadyVotedError
	switch {
	case err == nil:
		c.mu.Lock()
		for i := range c.parties {
			if c.parties[i].ID == partyID {
				c.parties[i].VoteCount++
				break
			}
		}
		c.markVotedLocked()
		c.notice = Notice{Level: NoticeSuccess, Text: MsgVoteSuccess}
		c.view = models.ViewResults
		c.mu.Unlock()
		c.changed()

		c.logger.Info("vote cast", zap.String("party_id", partyID))
		return OutcomeVoted

	case errors.As(err, &already):
		c.mu.Lock()
		c.markVotedLocked()
		c.notice = Notice{Level: NoticeInfo, Text: MsgAlreadyVoted}
		c.mu.Unlock()
		c.changed()

		c.logger.Info("backend reports prior vote", zap.String("party_id", partyID))
		return OutcomeAlreadyVoted

	default:
		c.mu.Lock()
		c.notice = Notice{Level: NoticeError, Text: MsgVoteFailed}
		c.mu.Unlock()
		c.changed()

		c.logger.Error("vote failed", zap.String("party_id", partyID), zap.Error(err))
		// The vote may have landed despite the error
		c.Refresh(ctx)
		return OutcomeFailed
	}
}

// markVotedLocked sets and persists the participation flag. Callers hold mu.
func (c *Controller) markVotedLocked() {
	c.hasVoted = true
	if err := c.store.Set(models.HasVotedKey, models.HasVotedValue); err != nil {
		c.logger.Error("failed to persist participation flag", zap.Error(err))
	}
}

// DismissNotice clears the current notice
func (c *Controller) DismissNotice() {
	c.mu.Lock()
	c.notice = Notice{}
	c.mu.Unlock()
	c.changed()
}

// SetAdminInput replaces the admin login input buffer
func (c *Controller) SetAdminInput(s string) {
	c.mu.Lock()
	c.adminInput = s
	c.mu.Unlock()
	c.changed()
}

// SubmitAdminLogin checks the input buffer against the admin secret.
// A match opens the dashboard, clears input and error and refreshes.
// A mismatch records the error and keeps the typed input.
func (c *Controller) SubmitAdminLogin(ctx context.Context) error {
	c.mu.Lock()
	if c.view != models.ViewAdminLogin {
		c.mu.Unlock()
		return ErrInvalidTransition
	}

	if err := auth.ValidateAdminKey(c.adminInput, c.secret.AdminSecret()); err != nil {
		c.adminError = MsgInvalidAccessKey
		c.mu.Unlock()
		c.changed()

		c.logger.Warn("admin login rejected")
		return ErrInvalidAccessKey
	}

	c.view = models.ViewAdminDashboard
	c.adminInput = ""
	c.adminError = ""
	c.mu.Unlock()
	c.changed()

	c.logger.Info("admin login accepted")
	c.Refresh(ctx)
	return nil
}

// Logout returns to the voting view
func (c *Controller) Logout() {
	c.mu.Lock()
	c.view = models.ViewVoting
	c.mu.Unlock()
	c.changed()
}

// Navigate is the navbar: it reaches the voting and results views from anywhere
func (c *Controller) Navigate(view models.ViewState) error {
	if view != models.ViewVoting && view != models.ViewResults {
		return ErrInvalidTransition
	}
	c.mu.Lock()
	c.view = view
	c.mu.Unlock()
	c.changed()
	return nil
}

// OpenResults follows the voting view's results link
func (c *Controller) OpenResults() error {
	return c.follow(State.CanOpenResults, models.ViewResults)
}

// OpenAdminLogin follows the empty-state admin login link
func (c *Controller) OpenAdminLogin() error {
	return c.follow(State.CanOpenAdminLogin, models.ViewAdminLogin)
}

func (c *Controller) follow(offered func(State) bool, to models.ViewState) error {
	c.mu.Lock()
	s := State{View: c.view, HasVoted: c.hasVoted, Parties: c.parties}
	if !offered(s) {
		c.mu.Unlock()
		return ErrInvalidTransition
	}
	c.view = to
	c.mu.Unlock()
	c.changed()
	return nil
}
