// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package chat

import (
	"errors"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"go.uber.org/zap"

	"github.com/jeranaias/docchat/internal/notify"
	"github.com/jeranaias/docchat/internal/orchestrator"
)

// Update handles messages and key presses.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.resize(msg.Width, msg.Height)
		m.refreshContent()
		return m, nil

	case tea.KeyMsg:
		return m.handleKey(msg)

	case viewMsg:
		cmd := m.applyView()
		return m, tea.Batch(cmd, waitForView(m.sub.views))

	case sendDoneMsg:
		return m.handleSendDone(msg)

	case refreshDoneMsg:
		return m, m.applyView()

	case toastTickMsg:
		m.center.Active()
		return m, toastTick()

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd
	}

	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, cmd
}

// applyView pulls the controller's latest snapshot. The controller is the
// source of truth, so every message re-reads it rather than trusting the
// payload order.
func (m *Model) applyView() tea.Cmd {
	m.view = m.ctrl.Snapshot()
	m.refreshContent()
	if m.view.AuthExpired && !m.authExpired {
		m.authExpired = true
		m.log.Info("session expired, leaving chat screen")
		return tea.Quit
	}
	return nil
}

func (m Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if key.Matches(msg, m.keyMap.Quit) {
		return m, tea.Quit
	}

	if m.confirmingClear {
		return m.handleConfirmKey(msg)
	}

	switch {
	case key.Matches(msg, m.keyMap.Submit):
		return m.submit()

	case key.Matches(msg, m.keyMap.Clear):
		if m.view.Pending {
			m.center.Notify(notify.KindWarning, "Wait for the current response before clearing.")
			return m, nil
		}
		m.confirmingClear = true
		return m, nil

	case key.Matches(msg, m.keyMap.Refresh):
		return m, refreshCmd(m.ctrl)

	case key.Matches(msg, m.keyMap.Dismiss):
		m.center.Clear()
		return m, nil

	case key.Matches(msg, m.keyMap.Help):
		m.showHelp = !m.showHelp
		return m, nil

	case key.Matches(msg, m.keyMap.PageUp):
		m.viewport.HalfViewUp()
		return m, nil

	case key.Matches(msg, m.keyMap.PageDown):
		m.viewport.HalfViewDown()
		return m, nil
	}

	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, cmd
}

func (m Model) handleConfirmKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keyMap.Confirm):
		m.confirmingClear = false
		if _, err := m.ctrl.Clear(); err != nil {
			m.center.Notify(notify.KindWarning, clearRefusal(err))
			return m, nil
		}
		m.center.Notify(notify.KindSuccess, "Conversation cleared")
		m.viewport.GotoTop()
		return m, m.applyView()

	case key.Matches(msg, m.keyMap.Deny):
		m.confirmingClear = false
	}
	return m, nil
}

// submit hands the input to the controller on a background command. A
// second submit while one is pending is refused by the controller and
// surfaces as a warning toast.
func (m Model) submit() (tea.Model, tea.Cmd) {
	query := orchestrator.NormalizeQuery(m.input.Value())
	if query == "" {
		return m, nil
	}
	if m.view.Pending {
		m.center.Notify(notify.KindWarning, "Still waiting for the previous answer.")
		return m, nil
	}
	m.input.Reset()
	m.view.Pending = true
	return m, tea.Batch(sendCmd(m.ctrl, query), m.spinner.Tick)
}

func (m Model) handleSendDone(msg sendDoneMsg) (tea.Model, tea.Cmd) {
	switch {
	case errors.Is(msg.err, orchestrator.ErrRequestPending):
		m.center.Notify(notify.KindWarning, "Still waiting for the previous answer.")
	case errors.Is(msg.err, orchestrator.ErrClosed):
		return m, tea.Quit
	case msg.err != nil:
		m.log.Warn("send rejected", zap.Error(msg.err))
	}
	return m, m.applyView()
}

func clearRefusal(err error) string {
	if errors.Is(err, orchestrator.ErrRequestPending) {
		return "Wait for the current response before clearing."
	}
	return "Could not clear the conversation."
}
