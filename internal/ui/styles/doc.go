// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

/*
Package styles provides the visual styling for the docchat terminal UI.

All colors use Lip Gloss AdaptiveColor so they follow the terminal's light or
dark background. Terminal capabilities are detected with termenv.

# Key Types

  - Theme: Styled components for the header, turns, citations, input and toasts
  - StatusIndicatorSet: ASCII shapes paired with colored states
  - LayoutMode: Narrow, medium or wide layouts by terminal width

# Usage

	theme := styles.NewTheme()
	theme.SetSize(width, height)
	out := theme.Toast(notify.KindError).Render(styles.Indicator(notify.KindError) + " " + msg)
*/
package styles
