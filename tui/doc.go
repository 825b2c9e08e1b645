// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

/*
Package tui renders the survey client in the terminal with bubbletea.

The Model is a thin view over an app.Controller: key presses call
controller methods, network work runs as tea.Cmds, and every controller
change arrives as a message that triggers a fresh snapshot.

Keys:

	v / s        navbar: voting / results
	↑ ↓ j k      move between party cards
	enter, 1-9   vote
	r            results link (voting), refresh (dashboard)
	a            admin login link (empty survey)
	l            logout (dashboard)
	tab / esc    results / voting while typing the access key
	enter / esc  dismiss a notice
	q, ctrl+c    quit
*/
package tui
