// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package chat

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/jeranaias/docchat/internal/ui/styles"
	"github.com/jeranaias/docchat/internal/util"
)

// View renders the screen.
func (m Model) View() string {
	if m.authExpired {
		return ""
	}

	sections := []string{
		m.renderHeader(),
		m.viewport.View(),
		m.renderInput(),
		m.renderStatusBar(),
	}
	if m.showHelp {
		sections = append(sections, m.help.FullHelpView(m.keyMap.FullHelp()))
	}
	screen := lipgloss.JoinVertical(lipgloss.Left, sections...)

	if m.confirmingClear {
		return m.overlay(screen, m.renderConfirm())
	}
	if toasts := m.renderToasts(); toasts != "" {
		return m.overlay(screen, toasts)
	}
	return screen
}

func (m Model) renderHeader() string {
	title := m.theme.HeaderTitle.Render("docchat")

	var docs string
	switch {
	case !m.view.DocumentsKnown:
		docs = "documents: unknown"
	case m.view.TotalDocuments == 0:
		docs = "no documents uploaded"
	default:
		docs = fmt.Sprintf("%d of %d documents indexed", m.view.IndexedDocuments, m.view.TotalDocuments)
	}

	turns := fmt.Sprintf("%d turns", m.view.Conversation.Len())
	line := title + "  " + m.theme.HeaderStat.Render(docs+" | "+turns)
	return m.theme.Header.Width(m.width).Render(line)
}

func (m Model) renderInput() string {
	return m.theme.InputContainer.Width(m.width - 2).Render(m.input.View())
}

func (m Model) renderStatusBar() string {
	var state string
	if m.view.Pending {
		state = styles.StatusIndicators.Pending + " waiting for answer"
	} else {
		state = m.view.State.String()
	}
	if id := m.view.Conversation.ConversationID(); id != "" {
		state += " | " + util.TruncateRunes(id, 12)
	}
	line := state + "  " + m.help.ShortHelpView(m.keyMap.ShortHelp())
	return m.theme.StatusBar.Render(util.TruncateWidth(line, m.width))
}

func (m Model) renderConfirm() string {
	body := "Clear the conversation? This cannot be undone.\n\n" +
		m.theme.Hint.Render("y to clear, n to keep")
	return m.theme.Dialog.Render(body)
}

// renderToasts stacks active notifications, newest at the bottom.
func (m Model) renderToasts() string {
	active := m.center.Active()
	if len(active) == 0 {
		return ""
	}

	maxWidth := m.width / 2
	if maxWidth < 30 {
		maxWidth = m.width - 2
	}

	rendered := make([]string, 0, len(active))
	for i := len(active) - 1; i >= 0; i-- {
		n := active[i]
		text := styles.Indicator(n.Kind) + " " + util.TruncateWidth(n.Message, maxWidth-6)
		rendered = append(rendered, m.theme.Toast(n.Kind).Render(text))
	}
	return lipgloss.JoinVertical(lipgloss.Right, rendered...)
}

// overlay places box at the bottom-right of screen, replacing the lines
// it covers.
func (m Model) overlay(screen, box string) string {
	lines := strings.Split(screen, "\n")
	boxLines := strings.Split(box, "\n")

	start := len(lines) - len(boxLines) - 2
	if start < 0 {
		start = 0
	}
	for i, bl := range boxLines {
		row := start + i
		if row >= len(lines) {
			lines = append(lines, "")
		}
		pad := m.width - lipgloss.Width(bl)
		if pad < 0 {
			pad = 0
		}
		lines[row] = strings.Repeat(" ", pad) + bl
	}
	return strings.Join(lines, "\n")
}
