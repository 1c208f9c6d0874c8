// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package styles

import (
	"github.com/charmbracelet/lipgloss"
	"github.com/muesli/termenv"

	"github.com/jeranaias/docchat/internal/notify"
)

// Theme holds the styled components for the chat screen.
type Theme struct {
	// Terminal capabilities
	IsDark       bool
	HasTrueColor bool
	ColorProfile termenv.Profile

	Width  int
	Height int

	// ==========================================================================
	// HEADER
	// ==========================================================================

	Header      lipgloss.Style
	HeaderTitle lipgloss.Style
	HeaderStat  lipgloss.Style

	// ==========================================================================
	// TURNS
	// ==========================================================================

	UserLabel       lipgloss.Style
	AssistantLabel  lipgloss.Style
	UserBubble      lipgloss.Style
	AssistantBubble lipgloss.Style
	Timestamp       lipgloss.Style
	SourcesHeading  lipgloss.Style
	Citation        lipgloss.Style
	Thinking        lipgloss.Style

	// ==========================================================================
	// INPUT AND STATUS
	// ==========================================================================

	InputContainer lipgloss.Style
	InputPrompt    lipgloss.Style
	StatusBar      lipgloss.Style
	Hint           lipgloss.Style
	Dialog         lipgloss.Style

	// ==========================================================================
	// TOASTS
	// ==========================================================================

	ToastInfo    lipgloss.Style
	ToastSuccess lipgloss.Style
	ToastWarning lipgloss.Style
	ToastError   lipgloss.Style
}

// NewTheme detects the terminal and builds the styles.
func NewTheme() *Theme {
	profile := termenv.ColorProfile()
	t := &Theme{
		IsDark:       termenv.HasDarkBackground(),
		HasTrueColor: profile == termenv.TrueColor,
		ColorProfile: profile,
	}
	t.initStyles()
	return t
}

func (t *Theme) initStyles() {
	t.Header = lipgloss.NewStyle().
		Background(SurfaceDim).
		Padding(0, 1)
	t.HeaderTitle = lipgloss.NewStyle().Bold(true).Foreground(Cyan)
	t.HeaderStat = lipgloss.NewStyle().Foreground(TextSecondary)

	t.UserLabel = lipgloss.NewStyle().Bold(true).Foreground(Cyan)
	t.AssistantLabel = lipgloss.NewStyle().Bold(true).Foreground(Purple)

	t.UserBubble = lipgloss.NewStyle().
		Foreground(UserBubbleFg).
		BorderStyle(lipgloss.NormalBorder()).
		BorderLeft(true).
		BorderForeground(UserBubbleBorder).
		PaddingLeft(1)

	t.AssistantBubble = lipgloss.NewStyle().
		Foreground(AssistantBubbleFg).
		BorderStyle(lipgloss.NormalBorder()).
		BorderLeft(true).
		BorderForeground(AssistantBubbleBorder).
		PaddingLeft(1)

	t.Timestamp = lipgloss.NewStyle().Foreground(TextMuted)
	t.SourcesHeading = lipgloss.NewStyle().Foreground(TextSecondary).Bold(true)
	t.Citation = lipgloss.NewStyle().Foreground(TextSecondary).PaddingLeft(2)
	t.Thinking = lipgloss.NewStyle().Foreground(Amber).Italic(true)

	t.InputContainer = lipgloss.NewStyle().
		BorderStyle(lipgloss.RoundedBorder()).
		BorderForeground(Overlay).
		Padding(0, 1)
	t.InputPrompt = lipgloss.NewStyle().Foreground(Cyan).Bold(true)

	t.StatusBar = lipgloss.NewStyle().Foreground(TextMuted).Padding(0, 1)
	t.Hint = lipgloss.NewStyle().Foreground(TextMuted).Italic(true)
	t.Dialog = lipgloss.NewStyle().
		BorderStyle(lipgloss.RoundedBorder()).
		BorderForeground(Amber).
		Padding(0, 2)

	toast := lipgloss.NewStyle().
		BorderStyle(lipgloss.RoundedBorder()).
		Padding(0, 1)
	t.ToastInfo = toast.Copy().BorderForeground(Cyan).Foreground(TextPrimary)
	t.ToastSuccess = toast.Copy().BorderForeground(Emerald).Foreground(Emerald)
	t.ToastWarning = toast.Copy().BorderForeground(Amber).Foreground(Amber)
	t.ToastError = toast.Copy().BorderForeground(Rose).Foreground(Rose)
}

// SetSize updates the theme dimensions for responsive layouts.
func (t *Theme) SetSize(width, height int) {
	t.Width = width
	t.Height = height
}

// Toast returns the style for a notification kind.
func (t *Theme) Toast(kind notify.Kind) lipgloss.Style {
	switch kind {
	case notify.KindError:
		return t.ToastError
	case notify.KindWarning:
		return t.ToastWarning
	case notify.KindSuccess:
		return t.ToastSuccess
	default:
		return t.ToastInfo
	}
}

// Indicator returns the ASCII shape shown before a notification.
func Indicator(kind notify.Kind) string {
	switch kind {
	case notify.KindError:
		return StatusIndicators.Error
	case notify.KindWarning:
		return StatusIndicators.Warning
	case notify.KindSuccess:
		return StatusIndicators.Success
	default:
		return StatusIndicators.Info
	}
}

// LayoutMode represents the current responsive layout mode.
type LayoutMode int

const (
	LayoutNarrow LayoutMode = iota // < 60 columns
	LayoutMedium                   // 60-100 columns
	LayoutWide                     // > 100 columns
)

// GetLayoutMode returns the current layout mode based on width.
func (t *Theme) GetLayoutMode() LayoutMode {
	if t.Width < 60 {
		return LayoutNarrow
	}
	if t.Width < 100 {
		return LayoutMedium
	}
	return LayoutWide
}
