// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package tui

import (
	"context"
	"strconv"

	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"go.uber.org/zap"

	"github.com/danielhkuo/party-survey/app"
	"github.com/danielhkuo/party-survey/models"
)

// stateMsg means the controller state changed
type stateMsg struct{}

type startedMsg struct{ err error }

type voteDoneMsg struct{ outcome app.Outcome }

type refreshDoneMsg struct{ err error }

type loginDoneMsg struct{ err error }

// Model is the bubbletea model over an app.Controller
type Model struct {
	ctx    context.Context
	ctrl   *app.Controller
	logger *zap.Logger
	styles Styles

	state   app.State
	spinner spinner.Model
	input   textinput.Model
	cursor  int
	width   int
	busy    bool // a vote is in flight
}

func New(ctx context.Context, ctrl *app.Controller, logger *zap.Logger) Model {
	if logger == nil {
		logger = zap.NewNop()
	}
	styles := DefaultStyles()

	sp := spinner.New()
	sp.Spinner = spinner.Dot
	sp.Style = styles.Spinner

	ti := textinput.New()
	ti.Placeholder = "Enter access key"
	ti.EchoMode = textinput.EchoPassword
	ti.EchoCharacter = '•'
	ti.CharLimit = 128
	ti.Width = 40
	ti.Prompt = "│ "
	ti.Focus()

	return Model{
		ctx:     ctx,
		ctrl:    ctrl,
		logger:  logger,
		styles:  styles,
		state:   ctrl.Snapshot(),
		spinner: sp,
		input:   ti,
		width:   80,
	}
}

func (m Model) Init() tea.Cmd {
	return tea.Batch(m.spinner.Tick, m.start(), m.waitForChange())
}

func (m Model) start() tea.Cmd {
	return func() tea.Msg {
		return startedMsg{err: m.ctrl.Start(m.ctx)}
	}
}

func (m Model) waitForChange() tea.Cmd {
	return func() tea.Msg {
		select {
		case <-m.ctrl.Changes():
			return stateMsg{}
		case <-m.ctx.Done():
			return nil
		}
	}
}

func (m Model) vote(partyID string) tea.Cmd {
	return func() tea.Msg {
		return voteDoneMsg{outcome: m.ctrl.Vote(m.ctx, partyID)}
	}
}

func (m Model) refresh() tea.Cmd {
	return func() tea.Msg {
		return refreshDoneMsg{err: m.ctrl.Refresh(m.ctx)}
	}
}

func (m Model) submitLogin() tea.Cmd {
	return func() tea.Msg {
		return loginDoneMsg{err: m.ctrl.SubmitAdminLogin(m.ctx)}
	}
}

// sync pulls a fresh snapshot and keeps widgets consistent with it
func (m *Model) sync() {
	m.state = m.ctrl.Snapshot()
	if m.input.Value() != m.state.AdminInput {
		m.input.SetValue(m.state.AdminInput)
	}
	if n := len(m.state.Parties); m.cursor >= n {
		m.cursor = max(n-1, 0)
	}
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		return m, nil

	case stateMsg:
		m.sync()
		return m, m.waitForChange()

	case startedMsg:
		if msg.err != nil {
			m.logger.Error("controller failed to start", zap.Error(msg.err))
		}
		m.sync()
		return m, nil

	case voteDoneMsg:
		m.busy = false
		m.logger.Debug("vote finished", zap.Stringer("outcome", msg.outcome))
		m.sync()
		return m, nil

	case refreshDoneMsg, loginDoneMsg:
		m.sync()
		return m, nil

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd

	case tea.KeyMsg:
		return m.handleKey(msg)
	}

	return m, nil
}

func (m Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if msg.Type == tea.KeyCtrlC {
		return m, tea.Quit
	}

	// Notices block everything until dismissed
	if m.state.Notice.Text != "" {
		switch msg.Type {
		case tea.KeyEnter, tea.KeyEsc, tea.KeySpace:
			m.ctrl.DismissNotice()
			m.sync()
		}
		return m, nil
	}

	if m.state.View == models.ViewAdminLogin {
		return m.handleLoginKey(msg)
	}

	switch msg.String() {
	case "q":
		return m, tea.Quit
	case "v":
		m.ctrl.Navigate(models.ViewVoting)
		m.sync()
		return m, nil
	case "s":
		m.ctrl.Navigate(models.ViewResults)
		m.sync()
		return m, nil
	}

	switch m.state.View {
	case models.ViewVoting:
		return m.handleVotingKey(msg)
	case models.ViewAdminDashboard:
		switch msg.String() {
		case "r":
			return m, m.refresh()
		case "l":
			m.ctrl.Logout()
			m.sync()
		}
	}
	return m, nil
}

func (m Model) handleVotingKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	key := msg.String()
	switch key {
	case "up", "k":
		if m.cursor > 0 {
			m.cursor--
		}
		return m, nil
	case "down", "j":
		if m.cursor < len(m.state.Parties)-1 {
			m.cursor++
		}
		return m, nil
	case "r":
		if m.ctrl.OpenResults() == nil {
			m.sync()
		}
		return m, nil
	case "a":
		if m.ctrl.OpenAdminLogin() == nil {
			m.sync()
			return m, m.input.Focus()
		}
		return m, nil
	case "enter":
		return m.castAt(m.cursor)
	}

	if n, err := strconv.Atoi(key); err == nil && n >= 1 && n <= 9 {
		return m.castAt(n - 1)
	}
	return m, nil
}

func (m Model) castAt(i int) (tea.Model, tea.Cmd) {
	if m.busy || i < 0 || i >= len(m.state.Parties) {
		return m, nil
	}
	m.cursor = i
	m.busy = true
	return m, m.vote(m.state.Parties[i].ID)
}

func (m Model) handleLoginKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.Type {
	case tea.KeyEnter:
		return m, m.submitLogin()
	case tea.KeyEsc:
		m.ctrl.Navigate(models.ViewVoting)
		m.sync()
		return m, nil
	case tea.KeyTab:
		// Letter keys are text here, so the results tab gets its own key
		m.ctrl.Navigate(models.ViewResults)
		m.sync()
		return m, nil
	}

	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	if m.input.Value() != m.state.AdminInput {
		m.ctrl.SetAdminInput(m.input.Value())
		m.state = m.ctrl.Snapshot()
	}
	return m, cmd
}
