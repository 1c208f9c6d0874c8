// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package chat

import (
	"context"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/jeranaias/docchat/internal/orchestrator"
	"github.com/jeranaias/docchat/internal/session"
)

// =============================================================================
// MESSAGES
// =============================================================================

// viewMsg carries a controller snapshot into the update loop.
type viewMsg struct {
	view session.View
}

// sendDoneMsg is returned when a submitted query has settled.
type sendDoneMsg struct {
	outcome orchestrator.Outcome
	err     error
}

// refreshDoneMsg is returned after the document count was refreshed.
type refreshDoneMsg struct{}

// toastTickMsg prunes expired toasts.
type toastTickMsg time.Time

// =============================================================================
// COMMANDS
// =============================================================================

const toastTickInterval = 500 * time.Millisecond

func initCmd(ctrl *session.Controller) tea.Cmd {
	return func() tea.Msg {
		return viewMsg{view: ctrl.Init(context.Background())}
	}
}

func sendCmd(ctrl *session.Controller, query string) tea.Cmd {
	return func() tea.Msg {
		out, err := ctrl.Send(context.Background(), query)
		return sendDoneMsg{outcome: out, err: err}
	}
}

func refreshCmd(ctrl *session.Controller) tea.Cmd {
	return func() tea.Msg {
		ctrl.RefreshDocuments(context.Background())
		return refreshDoneMsg{}
	}
}

// waitForView blocks until the controller publishes a new snapshot.
func waitForView(views <-chan session.View) tea.Cmd {
	return func() tea.Msg {
		v, ok := <-views
		if !ok {
			return nil
		}
		return viewMsg{view: v}
	}
}

func toastTick() tea.Cmd {
	return tea.Tick(toastTickInterval, func(t time.Time) tea.Msg {
		return toastTickMsg(t)
	})
}
