// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package tui

import (
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/danielhkuo/party-survey/app"
)

var (
	Slate  = lipgloss.Color("#64748b")
	Ink    = lipgloss.Color("#0f172a")
	Blue   = lipgloss.Color("#2563eb")
	Green  = lipgloss.Color("#16a34a")
	Red    = lipgloss.Color("#dc2626")
	Border = lipgloss.Color("#cbd5e1")
)

type Styles struct {
	Navbar     lipgloss.Style
	NavActive  lipgloss.Style
	NavItem    lipgloss.Style
	Title      lipgloss.Style
	Subtitle   lipgloss.Style
	Badge      lipgloss.Style
	Link       lipgloss.Style
	Card       lipgloss.Style
	CardActive lipgloss.Style
	Muted      lipgloss.Style
	Error      lipgloss.Style
	Spinner    lipgloss.Style
	Help       lipgloss.Style
	Notice     map[app.NoticeLevel]lipgloss.Style
}

func DefaultStyles() Styles {
	card := lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(Border).
		Padding(0, 1)

	notice := lipgloss.NewStyle().
		Border(lipgloss.ThickBorder()).
		Padding(0, 2).
		Bold(true)

	return Styles{
		Navbar:     lipgloss.NewStyle().Padding(0, 1).BorderStyle(lipgloss.NormalBorder()).BorderBottom(true).BorderForeground(Border),
		NavActive:  lipgloss.NewStyle().Foreground(Blue).Bold(true).Underline(true),
		NavItem:    lipgloss.NewStyle().Foreground(Slate),
		Title:      lipgloss.NewStyle().Foreground(Ink).Bold(true).MarginBottom(1),
		Subtitle:   lipgloss.NewStyle().Foreground(Slate),
		Badge:      lipgloss.NewStyle().Foreground(Green).Bold(true),
		Link:       lipgloss.NewStyle().Foreground(Blue).Bold(true),
		Card:       card,
		CardActive: card.BorderForeground(Blue),
		Muted:      lipgloss.NewStyle().Foreground(Slate),
		Error:      lipgloss.NewStyle().Foreground(Red),
		Spinner:    lipgloss.NewStyle().Foreground(Green),
		Help:       lipgloss.NewStyle().Foreground(Slate).MarginTop(1),
		Notice: map[app.NoticeLevel]lipgloss.Style{
			app.NoticeInfo:    notice.BorderForeground(Blue),
			app.NoticeSuccess: notice.BorderForeground(Green),
			app.NoticeError:   notice.BorderForeground(Red),
		},
	}
}

// swatch renders a block in the party's color, falling back to slate
func swatch(color string, width int) string {
	if width <= 0 {
		return ""
	}
	c := lipgloss.Color(color)
	if color == "" {
		c = Slate
	}
	return lipgloss.NewStyle().Foreground(c).Render(strings.Repeat("█", width))
}
