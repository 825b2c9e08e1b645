// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package app

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"github.com/danielhkuo/party-survey/localstore"
	"github.com/danielhkuo/party-survey/models"
	"github.com/danielhkuo/party-survey/partyservice"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

type fakeBackend struct {
	mu       sync.Mutex
	parties  []models.Party
	fetchErr error
	voteErr  error
	fetches  int
	votes    []string
}

func (f *fakeBackend) FetchParties(ctx context.Context) ([]models.Party, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.fetches++
	if f.fetchErr != nil {
		return nil, f.fetchErr
	}
	out := make([]models.Party, len(f.parties))
	copy(out, f.parties)
	return out, nil
}

func (f *fakeBackend) CastVote(ctx context.Context, partyID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.votes = append(f.votes, partyID)
	return f.voteErr
}

func (f *fakeBackend) fetchCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.fetches
}

func (f *fakeBackend) voteCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.votes)
}

// manualPoller only runs when the test ticks it
type manualPoller struct {
	mu      sync.Mutex
	fn      func()
	stopped bool
}

func (p *manualPoller) Tick() {
	p.mu.Lock()
	stopped := p.stopped
	p.mu.Unlock()
	if !stopped {
		p.fn()
	}
}

func (p *manualPoller) Stop() {
	p.mu.Lock()
	p.stopped = true
	p.mu.Unlock()
}

type pollerRecorder struct {
	mu      sync.Mutex
	pollers []*manualPoller
}

func (r *pollerRecorder) factory(_ time.Duration, fn func()) (Poller, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	p := &manualPoller{fn: fn}
	r.pollers = append(r.pollers, p)
	return p, nil
}

func (r *pollerRecorder) last() *manualPoller {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.pollers[len(r.pollers)-1]
}

// fakeStream records the change callback; Emit calls it even after
// release so the controller's own guard is what gets tested.
type fakeStream struct {
	mu       sync.Mutex
	onChange func(models.ChangeEvent)
	acquired int
	released int
	err      error
}

func (s *fakeStream) subscribe(ctx context.Context, onChange func(models.ChangeEvent)) (func(), error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err != nil {
		return nil, s.err
	}
	s.onChange = onChange
	s.acquired++
	return func() {
		s.mu.Lock()
		s.released++
		s.mu.Unlock()
	}, nil
}

func (s *fakeStream) Emit() {
	s.mu.Lock()
	fn := s.onChange
	s.mu.Unlock()
	if fn != nil {
		fn(models.ChangeEvent{Kind: models.ChangeUpdate})
	}
}

func (s *fakeStream) counts() (acquired, released int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.acquired, s.released
}

type failingStore struct{}

func (failingStore) Get(string) (string, bool, error) { return "", false, errors.New("disk gone") }
func (failingStore) Set(string, string) error         { return errors.New("disk gone") }

func sampleParties() []models.Party {
	return []models.Party{
		{ID: "p1", Name: "Sun Party", VoteCount: 10, ShortCode: "SUN"},
		{ID: "p2", Name: "Moon Party", VoteCount: 4, ShortCode: "MOON"},
		{ID: "p3", Name: "Star Party", VoteCount: 0, ShortCode: "STAR"},
	}
}

type harness struct {
	ctrl    *Controller
	backend *fakeBackend
	store   *localstore.MemoryStore
	pollers *pollerRecorder
	stream  *fakeStream
}

func newHarness(t *testing.T, parties []models.Party) *harness {
	t.Helper()
	h := &harness{
		backend: &fakeBackend{parties: parties},
		store:   localstore.NewMemoryStore(),
		pollers: &pollerRecorder{},
		stream:  &fakeStream{},
	}
	ctrl, err := New(Options{
		Backend:   h.backend,
		Subscribe: h.stream.subscribe,
		Store:     h.store,
		Secret:    StaticSecret("admin"),
		NewPoller: h.pollers.factory,
	})
	require.NoError(t, err)
	h.ctrl = ctrl
	t.Cleanup(ctrl.Close)
	return h
}

func (h *harness) start(t *testing.T) {
	t.Helper()
	require.NoError(t, h.ctrl.Start(context.Background()))
}

func TestNew_RequiresBackend(t *testing.T) {
	_, err := New(Options{})
	assert.Error(t, err)
}

func TestStart_InitialLoad(t *testing.T) {
	h := newHarness(t, sampleParties())

	before := h.ctrl.Snapshot()
	assert.True(t, before.Loading)
	assert.True(t, before.ShowSpinner())
	assert.Equal(t, models.ViewVoting, before.View)

	h.start(t)

	s := h.ctrl.Snapshot()
	assert.False(t, s.Loading)
	assert.False(t, s.ShowSpinner())
	assert.Equal(t, sampleParties(), s.Parties)
}

func TestStart_InitialLoadFailureIsSilent(t *testing.T) {
	h := newHarness(t, nil)
	h.backend.fetchErr = &partyservice.FetchError{Err: errors.New("connection refused")}

	h.start(t)

	s := h.ctrl.Snapshot()
	assert.False(t, s.Loading, "loading ends even when the first fetch fails")
	assert.Empty(t, s.Parties)
	assert.Empty(t, s.Notice.Text, "initial load failure is not surfaced")
	assert.True(t, s.CanOpenAdminLogin())
}

func TestRefresh_KeepsStaleDataOnFailure(t *testing.T) {
	h := newHarness(t, sampleParties())
	h.start(t)

	h.backend.mu.Lock()
	h.backend.fetchErr = errors.New("boom")
	h.backend.mu.Unlock()

	assert.Error(t, h.ctrl.Refresh(context.Background()))
	assert.Len(t, h.ctrl.Snapshot().Parties, 3)
}

func TestVote_SuccessIncrementsOnlyTarget(t *testing.T) {
	for _, target := range sampleParties() {
		t.Run(target.ID, func(t *testing.T) {
			h := newHarness(t, sampleParties())
			h.start(t)
			fetchesBefore := h.backend.fetchCount()

			outcome := h.ctrl.Vote(context.Background(), target.ID)
			assert.Equal(t, OutcomeVoted, outcome)

			s := h.ctrl.Snapshot()
			for i, p := range s.Parties {
				want := sampleParties()[i].VoteCount
				if p.ID == target.ID {
					want++
				}
				assert.Equal(t, want, p.VoteCount, "party %s", p.ID)
			}

			assert.True(t, s.HasVoted)
			assert.Equal(t, models.ViewResults, s.View)
			assert.Equal(t, Notice{Level: NoticeSuccess, Text: MsgVoteSuccess}, s.Notice)
			assert.Equal(t, fetchesBefore, h.backend.fetchCount(), "success path does not refetch")

			v, ok, _ := h.store.Get(models.HasVotedKey)
			assert.True(t, ok)
			assert.Equal(t, models.HasVotedValue, v)
		})
	}
}

func TestVote_LocalFlagSkipsNetwork(t *testing.T) {
	h := newHarness(t, sampleParties())
	require.NoError(t, h.store.Set(models.HasVotedKey, models.HasVotedValue))

	// The flag is read at construction
	ctrl, err := New(Options{Backend: h.backend, Store: h.store, NewPoller: h.pollers.factory})
	require.NoError(t, err)
	defer ctrl.Close()
	require.NoError(t, ctrl.Start(context.Background()))

	outcome := ctrl.Vote(context.Background(), "p1")

	assert.Equal(t, OutcomeAlreadyParticipated, outcome)
	assert.Zero(t, h.backend.voteCount(), "no network call")
	s := ctrl.Snapshot()
	assert.Equal(t, MsgAlreadyParticipated, s.Notice.Text)
	assert.Equal(t, models.ViewVoting, s.View)
	assert.Equal(t, 10, s.Parties[0].VoteCount)
}

func TestVote_AlreadyVotedReconcilesFlag(t *testing.T) {
	h := newHarness(t, sampleParties())
	h.start(t)
	h.backend.voteErr = &partyservice.AlreadyVotedError{PartyID: "p1"}

	outcome := h.ctrl.Vote(context.Background(), "p1")
	assert.Equal(t, OutcomeAlreadyVoted, outcome)

	s := h.ctrl.Snapshot()
	assert.Equal(t, sampleParties(), s.Parties, "counts unchanged")
	assert.True(t, s.HasVoted)
	assert.Equal(t, models.ViewVoting, s.View, "view stays on voting")
	assert.Equal(t, Notice{Level: NoticeInfo, Text: MsgAlreadyVoted}, s.Notice)

	v, _, _ := h.store.Get(models.HasVotedKey)
	assert.Equal(t, models.HasVotedValue, v)

	// A later attempt short-circuits locally
	assert.Equal(t, OutcomeAlreadyParticipated, h.ctrl.Vote(context.Background(), "p2"))
	assert.Equal(t, 1, h.backend.voteCount())
}

func TestVote_FailureLeavesFlagAndRefreshes(t *testing.T) {
	h := newHarness(t, sampleParties())
	h.start(t)
	fetchesBefore := h.backend.fetchCount()

	h.backend.voteErr = &partyservice.SubmissionError{PartyID: "p2", StatusCode: 500, Err: errors.New("db down")}

	// The server may have counted it despite the error
	h.backend.mu.Lock()
	h.backend.parties[1].VoteCount = 5
	h.backend.mu.Unlock()

	outcome := h.ctrl.Vote(context.Background(), "p2")
	assert.Equal(t, OutcomeFailed, outcome)

	s := h.ctrl.Snapshot()
	assert.False(t, s.HasVoted)
	assert.Equal(t, models.ViewVoting, s.View)
	assert.Equal(t, Notice{Level: NoticeError, Text: MsgVoteFailed}, s.Notice)
	assert.Equal(t, fetchesBefore+1, h.backend.fetchCount(), "reconciling refresh")
	assert.Equal(t, 5, s.Parties[1].VoteCount, "state reconciled from backend")

	_, ok, _ := h.store.Get(models.HasVotedKey)
	assert.False(t, ok)

	// Retry is possible
	h.backend.voteErr = nil
	assert.Equal(t, OutcomeVoted, h.ctrl.Vote(context.Background(), "p2"))
}

func TestVote_PersistFailureStillSetsFlag(t *testing.T) {
	backend := &fakeBackend{parties: sampleParties()}
	ctrl, err := New(Options{Backend: backend, Store: failingStore{}, NewPoller: (&pollerRecorder{}).factory})
	require.NoError(t, err)
	defer ctrl.Close()
	require.NoError(t, ctrl.Start(context.Background()))

	assert.Equal(t, OutcomeVoted, ctrl.Vote(context.Background(), "p1"))
	assert.True(t, ctrl.Snapshot().HasVoted)
}

func TestFlagSurvivesRefreshes(t *testing.T) {
	h := newHarness(t, sampleParties())
	h.start(t)
	require.Equal(t, OutcomeVoted, h.ctrl.Vote(context.Background(), "p3"))

	for i := 0; i < 5; i++ {
		h.pollers.last().Tick()
		h.stream.Emit()
		require.NoError(t, h.ctrl.Refresh(context.Background()))
		assert.True(t, h.ctrl.Snapshot().HasVoted)
	}

	// Refresh reflects the backend's view, which did not see the fake vote
	assert.Equal(t, 0, h.ctrl.Snapshot().Parties[2].VoteCount)
}

func TestAdminLogin(t *testing.T) {
	h := newHarness(t, nil)
	h.start(t)

	assert.ErrorIs(t, h.ctrl.SubmitAdminLogin(context.Background()), ErrInvalidTransition,
		"login is only reachable from the login view")

	require.NoError(t, h.ctrl.OpenAdminLogin())
	assert.Equal(t, models.ViewAdminLogin, h.ctrl.Snapshot().View)

	h.ctrl.SetAdminInput("letmein")
	err := h.ctrl.SubmitAdminLogin(context.Background())
	assert.ErrorIs(t, err, ErrInvalidAccessKey)

	s := h.ctrl.Snapshot()
	assert.Equal(t, models.ViewAdminLogin, s.View)
	assert.Equal(t, MsgInvalidAccessKey, s.AdminError)
	assert.Equal(t, "letmein", s.AdminInput, "input preserved on failure")

	fetchesBefore := h.backend.fetchCount()
	h.ctrl.SetAdminInput("admin")
	require.NoError(t, h.ctrl.SubmitAdminLogin(context.Background()))

	s = h.ctrl.Snapshot()
	assert.Equal(t, models.ViewAdminDashboard, s.View)
	assert.Empty(t, s.AdminInput)
	assert.Empty(t, s.AdminError)
	assert.Equal(t, fetchesBefore+1, h.backend.fetchCount(), "login refreshes")

	h.ctrl.Logout()
	assert.Equal(t, models.ViewVoting, h.ctrl.Snapshot().View)
}

func TestAdminLogin_EmptySecretNeverMatches(t *testing.T) {
	ctrl, err := New(Options{Backend: &fakeBackend{}, NewPoller: (&pollerRecorder{}).factory})
	require.NoError(t, err)
	defer ctrl.Close()
	require.NoError(t, ctrl.Start(context.Background()))

	require.NoError(t, ctrl.OpenAdminLogin())
	assert.ErrorIs(t, ctrl.SubmitAdminLogin(context.Background()), ErrInvalidAccessKey)
	assert.Equal(t, models.ViewAdminLogin, ctrl.Snapshot().View)
}

func TestViewTransitions(t *testing.T) {
	t.Run("empty collection offers admin login and results", func(t *testing.T) {
		h := newHarness(t, nil)
		h.start(t)

		s := h.ctrl.Snapshot()
		assert.True(t, s.CanOpenAdminLogin())
		assert.True(t, s.CanOpenResults())

		require.NoError(t, h.ctrl.OpenAdminLogin())
		assert.Equal(t, models.ViewAdminLogin, h.ctrl.Snapshot().View)

		assert.ErrorIs(t, h.ctrl.OpenAdminLogin(), ErrInvalidTransition, "only from voting")
	})

	t.Run("configured survey hides admin link until voted", func(t *testing.T) {
		h := newHarness(t, sampleParties())
		h.start(t)

		assert.ErrorIs(t, h.ctrl.OpenAdminLogin(), ErrInvalidTransition)
		assert.ErrorIs(t, h.ctrl.OpenResults(), ErrInvalidTransition)

		h.backend.voteErr = &partyservice.AlreadyVotedError{}
		h.ctrl.Vote(context.Background(), "p1")
		require.NoError(t, h.ctrl.OpenResults())
		assert.Equal(t, models.ViewResults, h.ctrl.Snapshot().View)
	})

	t.Run("navbar reaches voting and results only", func(t *testing.T) {
		h := newHarness(t, sampleParties())
		h.start(t)

		require.NoError(t, h.ctrl.Navigate(models.ViewResults))
		assert.Equal(t, models.ViewResults, h.ctrl.Snapshot().View)
		require.NoError(t, h.ctrl.Navigate(models.ViewVoting))

		for _, v := range []models.ViewState{models.ViewAdminLogin, models.ViewAdminDashboard} {
			assert.ErrorIs(t, h.ctrl.Navigate(v), ErrInvalidTransition)
		}
		assert.Equal(t, models.ViewVoting, h.ctrl.Snapshot().View)
	})

	t.Run("dashboard requires the secret", func(t *testing.T) {
		h := newHarness(t, nil)
		h.start(t)

		require.NoError(t, h.ctrl.OpenAdminLogin())
		for _, guess := range []string{"", "Admin", "admin ", "adm"} {
			h.ctrl.SetAdminInput(guess)
			assert.Error(t, h.ctrl.SubmitAdminLogin(context.Background()))
			assert.NotEqual(t, models.ViewAdminDashboard, h.ctrl.Snapshot().View)
		}
	})
}

func TestTeardownStopsAllRefreshSources(t *testing.T) {
	h := newHarness(t, sampleParties())
	h.start(t)

	acquired, released := h.stream.counts()
	assert.Equal(t, 1, acquired)
	assert.Equal(t, 0, released)

	const cycles = 4
	for i := 0; i < cycles; i++ {
		h.pollers.last().Tick()
		h.stream.Emit()
	}
	assert.Equal(t, 1+2*cycles, h.backend.fetchCount())

	h.ctrl.Close()
	h.ctrl.Close()

	_, released = h.stream.counts()
	assert.Equal(t, 1, released)

	after := h.backend.fetchCount()
	h.stream.Emit()
	h.pollers.last().fn() // bypass the poller's own stop
	h.pollers.last().Tick()
	assert.Equal(t, after, h.backend.fetchCount(), "no fetches after teardown")

	assert.ErrorIs(t, h.ctrl.Start(context.Background()), ErrClosed)
}

func TestRestartReleasesPreviousSources(t *testing.T) {
	h := newHarness(t, sampleParties())
	h.start(t)
	first := h.pollers.last()

	h.start(t)

	acquired, released := h.stream.counts()
	assert.Equal(t, 2, acquired)
	assert.Equal(t, 1, released)
	assert.True(t, first.stopped)
	assert.NotSame(t, first, h.pollers.last())
}

func TestSubscriptionFailureFallsBackToPolling(t *testing.T) {
	h := newHarness(t, sampleParties())
	h.stream.err = errors.New("stream refused")
	h.start(t)

	before := h.backend.fetchCount()
	h.pollers.last().Tick()
	assert.Equal(t, before+1, h.backend.fetchCount())
}

func TestChangesSignal(t *testing.T) {
	h := newHarness(t, sampleParties())

	h.start(t)
	select {
	case <-h.ctrl.Changes():
	default:
		t.Fatal("expected a change signal after initial load")
	}

	h.ctrl.DismissNotice()
	h.ctrl.SetAdminInput("x")
	assert.Len(t, h.ctrl.Changes(), 1, "signals coalesce")
}

func TestConcurrentRefreshAndVote(t *testing.T) {
	h := newHarness(t, sampleParties())
	h.start(t)

	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(3)
		go func() {
			defer wg.Done()
			h.pollers.last().Tick()
		}()
		go func() {
			defer wg.Done()
			h.stream.Emit()
		}()
		go func() {
			defer wg.Done()
			h.ctrl.Snapshot()
		}()
	}
	h.ctrl.Vote(context.Background(), "p1")
	wg.Wait()

	s := h.ctrl.Snapshot()
	assert.True(t, s.HasVoted)
	// Either the optimistic count or a later stale refresh; both are allowed
	assert.Contains(t, []int{10, 11}, s.Parties[0].VoteCount)
}
