// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

/*
Package chat provides the Bubble Tea chat screen for docchat.

The screen is a thin surface over a session.Controller: it renders the
controller's View snapshots, submits queries, asks before clearing the
conversation and shows notifications from a notify.Center as toasts in the
bottom-right corner.

# Key Components

## Model (model.go)

Holds the input, viewport and spinner along with the latest View. Controller
snapshots arrive through a subscription and are turned into viewMsg values.

## Update Loop (update.go)

  - Enter submits the query on a background command
  - Ctrl+L asks for confirmation, then clears the conversation
  - Ctrl+R refreshes the indexed document count
  - PgUp/PgDn scroll the transcript

When the controller reports an expired session the program quits and
AuthExpired reports true, so the caller can run sign-in and start again.

## Rendering (view.go, render.go)

Assistant answers are rendered as markdown with glamour when enabled.
Citations are listed under each answer as "plan.pdf, chunk 2, 87%".

# Usage

	m := chat.New(chat.Options{Controller: ctrl, Center: center, Markdown: true})
	final, err := tea.NewProgram(m, tea.WithAltScreen()).Run()
	if final.(chat.Model).AuthExpired() {
		// sign in again
	}
*/
package chat
