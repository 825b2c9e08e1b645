// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package tui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/dustin/go-humanize"

	"github.com/danielhkuo/party-survey/app"
	"github.com/danielhkuo/party-survey/models"
)

const (
	surveyTitle = "National Parliament Survey"
	barWidth    = 30
)

func (m Model) View() string {
	if m.state.ShowSpinner() {
		return fmt.Sprintf("\n  %s Loading survey data...\n", m.spinner.View())
	}

	var b strings.Builder
	b.WriteString(m.navbar())
	b.WriteString("\n")

	if n := m.state.Notice; n.Text != "" {
		b.WriteString(m.styles.Notice[n.Level].Render(n.Text + "\n\n" + m.styles.Muted.Render("enter to continue")))
		b.WriteString("\n")
		return b.String()
	}

	switch m.state.View {
	case models.ViewVoting:
		b.WriteString(m.votingView())
	case models.ViewResults:
		b.WriteString(m.resultsView())
	case models.ViewAdminLogin:
		b.WriteString(m.loginView())
	case models.ViewAdminDashboard:
		b.WriteString(m.dashboardView())
	}
	return b.String()
}

func (m Model) navbar() string {
	item := func(key, label string, view models.ViewState) string {
		text := fmt.Sprintf("[%s] %s", key, label)
		if m.state.View == view {
			return m.styles.NavActive.Render(text)
		}
		return m.styles.NavItem.Render(text)
	}

	return m.styles.Navbar.Render(lipgloss.JoinHorizontal(lipgloss.Top,
		m.styles.Title.UnsetMarginBottom().Render("Party Survey"), "   ",
		item("v", "Vote", models.ViewVoting), "  ",
		item("s", "Results", models.ViewResults), "   ",
		m.styles.Muted.Render("q quit"),
	))
}

func (m Model) votingView() string {
	var b strings.Builder

	b.WriteString(m.styles.Title.Render(surveyTitle))
	b.WriteString("\n")
	b.WriteString(m.styles.Subtitle.Render("Participate in our democratic survey. Select your preferred party below."))
	b.WriteString("\n\n")

	if m.state.HasVoted {
		b.WriteString(m.styles.Badge.Render("● You have already participated"))
		b.WriteString("\n")
		b.WriteString(m.styles.Link.Render("[r] View live results →"))
		b.WriteString("\n\n")
	}

	if len(m.state.Parties) == 0 {
		b.WriteString(m.styles.Card.Render(strings.Join([]string{
			"The survey is not yet configured.",
			m.styles.Muted.Render("Please log in to the admin panel to add political parties and start the survey."),
			"",
			m.styles.Link.Render("[a] Go to admin login"),
		}, "\n")))
		b.WriteString("\n")
		if !m.state.HasVoted {
			b.WriteString(m.styles.Help.Render("r results · q quit"))
		}
		return b.String()
	}

	for i, p := range m.state.Parties {
		b.WriteString(m.partyCard(i, p))
		b.WriteString("\n")
	}

	help := "↑/↓ select · enter or 1-9 vote · q quit"
	if m.state.HasVoted {
		help = "↑/↓ browse · r results · q quit"
	}
	b.WriteString(m.styles.Help.Render(help))
	return b.String()
}

func (m Model) partyCard(i int, p models.Party) string {
	style := m.styles.Card
	if i == m.cursor {
		style = m.styles.CardActive
	}

	action := m.styles.Link.Render("Vote")
	if m.state.HasVoted {
		action = m.styles.Muted.Render("Voted")
	} else if m.busy && i == m.cursor {
		action = m.styles.Muted.Render("Submitting...")
	}

	key := " "
	if i < 9 {
		key = fmt.Sprintf("%d", i+1)
	}

	header := fmt.Sprintf("%s %s %s", swatch(p.Color, 2), lipgloss.NewStyle().Bold(true).Render(p.Name), m.styles.Muted.Render("("+p.ShortCode+")"))
	symbol := m.styles.Muted.Render("Symbol: " + p.SymbolName)
	return style.Render(fmt.Sprintf("[%s] %s\n    %s\n    %s", key, header, symbol, action))
}

func (m Model) resultsView() string {
	var b strings.Builder
	res := app.Standings(m.state.Parties)

	b.WriteString(m.styles.Title.Render("Live Results"))
	b.WriteString("\n")
	b.WriteString(m.styles.Subtitle.Render(fmt.Sprintf("%s votes cast", humanize.Comma(int64(res.Total)))))
	b.WriteString("\n\n")

	if len(res.Standings) == 0 {
		b.WriteString(m.styles.Muted.Render("No parties yet."))
		return b.String()
	}

	nameWidth := 0
	for _, s := range res.Standings {
		nameWidth = max(nameWidth, lipgloss.Width(s.Party.Name))
	}

	for _, s := range res.Standings {
		filled := int(s.Share*barWidth + 0.5)
		bar := swatch(s.Party.Color, filled) + m.styles.Muted.Render(strings.Repeat("░", barWidth-filled))
		fmt.Fprintf(&b, "%-*s %s %s %s\n",
			nameWidth, s.Party.Name,
			bar,
			humanize.Comma(int64(s.Party.VoteCount)),
			m.styles.Muted.Render(fmt.Sprintf("(%.1f%%)", s.Share*100)),
		)
	}

	if leader, ok := res.Leader(); ok {
		b.WriteString("\n")
		b.WriteString(m.styles.Badge.Render("Leading: " + leader.Party.Name))
	}
	b.WriteString(m.styles.Help.Render("\nv vote · q quit"))
	return b.String()
}

func (m Model) loginView() string {
	var b strings.Builder

	b.WriteString(m.styles.Title.Render("Admin Access"))
	b.WriteString("\n")
	b.WriteString(m.styles.Subtitle.Render("Enter secure key to view analytics"))
	b.WriteString("\n\n")
	b.WriteString(m.input.View())
	b.WriteString("\n")

	if m.state.AdminError != "" {
		b.WriteString(m.styles.Error.Render("! " + m.state.AdminError))
		b.WriteString("\n")
	}

	b.WriteString(m.styles.Help.Render("enter access dashboard · tab results · esc back"))
	return b.String()
}

func (m Model) dashboardView() string {
	var b strings.Builder
	res := app.Standings(m.state.Parties)

	b.WriteString(m.styles.Title.Render("Admin Dashboard"))
	b.WriteString("\n")

	leader := "none"
	if l, ok := res.Leader(); ok {
		leader = l.Party.Name
	}
	fmt.Fprintf(&b, "Parties: %d   Total votes: %s   Leading: %s\n\n",
		len(m.state.Parties), humanize.Comma(int64(res.Total)), leader)

	if len(res.Standings) == 0 {
		b.WriteString(m.styles.Muted.Render("No parties configured. Add some with `survey admin add`."))
		b.WriteString("\n")
	} else {
		fmt.Fprintf(&b, "%-5s %-8s %-28s %10s %7s\n", "Rank", "Code", "Party", "Votes", "Share")
		b.WriteString(strings.Repeat("─", 62) + "\n")
		for _, s := range res.Standings {
			fmt.Fprintf(&b, "%-5s %-8s %-28s %10s %6.1f%%\n",
				humanize.Ordinal(s.Rank),
				s.Party.ShortCode,
				truncate(s.Party.Name, 28),
				humanize.Comma(int64(s.Party.VoteCount)),
				s.Share*100,
			)
		}
	}

	b.WriteString(m.styles.Help.Render("r refresh · l logout · q quit"))
	return b.String()
}

func truncate(s string, l int) string {
	r := []rune(s)
	if len(r) > l {
		return string(r[:l-3]) + "..."
	}
	return s
}
