// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package chat

import (
	"strings"

	"go.uber.org/zap"

	"github.com/jeranaias/docchat/internal/citation"
	"github.com/jeranaias/docchat/internal/model"
	"github.com/jeranaias/docchat/internal/util"
)

// renderTranscript renders every turn in order, followed by the thinking
// indicator while a request is pending.
func (m Model) renderTranscript() string {
	var b strings.Builder
	for i, turn := range m.view.Conversation.Turns() {
		if i > 0 {
			b.WriteString("\n")
		}
		b.WriteString(m.renderTurn(turn))
		b.WriteString("\n")
	}
	if m.view.Pending {
		b.WriteString("\n")
		b.WriteString(m.spinner.View())
		b.WriteString(m.theme.Thinking.Render(" Searching your documents..."))
		b.WriteString("\n")
	}
	return b.String()
}

func (m Model) renderTurn(turn model.Turn) string {
	var b strings.Builder

	label := m.theme.UserLabel
	bubble := m.theme.UserBubble
	if turn.Role == model.RoleAssistant {
		label = m.theme.AssistantLabel
		bubble = m.theme.AssistantBubble
	}
	b.WriteString(label.Render(turn.Role.DisplayName()))
	if !turn.IsGreeting() {
		b.WriteString(" ")
		b.WriteString(m.theme.Timestamp.Render(turn.Timestamp.Local().Format("15:04")))
	}
	b.WriteString("\n")

	b.WriteString(bubble.Width(m.bubbleWidth()).Render(m.renderContent(turn)))

	if turn.HasSources() {
		b.WriteString("\n")
		b.WriteString(m.theme.SourcesHeading.Render("Sources:"))
		for _, line := range m.citationLines(turn.Sources) {
			b.WriteString("\n")
			b.WriteString(m.theme.Citation.Render(line))
		}
	}
	return b.String()
}

// renderContent formats assistant answers as markdown when enabled and
// falls back to plain text if rendering fails.
func (m Model) renderContent(turn model.Turn) string {
	if turn.Role != model.RoleAssistant || m.renderer == nil {
		return turn.Content
	}
	out, err := m.renderer.Render(turn.Content)
	if err != nil {
		m.log.Debug("markdown render failed", zap.String("turn", turn.ID), zap.Error(err))
		return turn.Content
	}
	return strings.Trim(out, "\n")
}

// citationLines renders citations in their received order, each fitted to
// the screen width.
func (m Model) citationLines(sources []model.Citation) []string {
	maxWidth := m.bubbleWidth() - 4
	lines := make([]string, 0, len(sources))
	for _, d := range citation.Render(sources) {
		lines = append(lines, "- "+util.TruncateWidth(d.String(), maxWidth))
	}
	return lines
}
