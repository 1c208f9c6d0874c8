// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// styles.go - Shared output styles for the docchat commands.
//
// Colors are disabled for non-TTY output and when NO_COLOR is set.

package cli

import (
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/jeranaias/docchat/internal/ui/styles"
)

func init() {
	lipgloss.SetColorProfile(GetColorProfile())
}

// =============================================================================
// SHARED STYLES
// =============================================================================

var (
	// TitleStyle is used for command titles and headers
	TitleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(styles.Cyan).
			MarginBottom(1)

	// SectionStyle is used for section headers within commands
	SectionStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(styles.TextPrimary).
			MarginTop(1)

	// LabelStyle is used for field labels
	LabelStyle = lipgloss.NewStyle().
			Foreground(styles.TextSecondary).
			Width(16)

	ValueStyle   = lipgloss.NewStyle().Foreground(styles.TextPrimary)
	SuccessStyle = lipgloss.NewStyle().Foreground(styles.Emerald).Bold(true)
	ErrorStyle   = lipgloss.NewStyle().Foreground(styles.Rose).Bold(true)
	WarningStyle = lipgloss.NewStyle().Foreground(styles.Amber)
	DimStyle     = lipgloss.NewStyle().Foreground(styles.TextMuted)

	// PromptStyle colors the chat prompt prefix
	PromptStyle = lipgloss.NewStyle().Foreground(styles.Cyan).Bold(true)

	// AssistantStyle labels assistant answers
	AssistantStyle = lipgloss.NewStyle().Foreground(styles.Purple).Bold(true)
)

// RenderSeparator renders a horizontal rule, 60 columns unless given.
func RenderSeparator(width ...int) string {
	w := 60
	if len(width) > 0 && width[0] > 0 {
		w = width[0]
	}
	return DimStyle.Render(strings.Repeat("-", w))
}

// RenderField renders "label  value" with an aligned label column.
func RenderField(label, value string) string {
	return LabelStyle.Render(label) + ValueStyle.Render(value)
}

// RenderStatus renders an ok/failed marker.
func RenderStatus(ok bool, text string) string {
	if ok {
		return SuccessStyle.Render(styles.StatusIndicators.Success) + " " + text
	}
	return ErrorStyle.Render(styles.StatusIndicators.Error) + " " + text
}
