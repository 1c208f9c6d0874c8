// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// tui.go - The full-screen chat screen.

package cli

import (
	"fmt"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/jeranaias/docchat/internal/notify"
	"github.com/jeranaias/docchat/internal/orchestrator"
	"github.com/jeranaias/docchat/internal/ui/chat"
)

// HandleTUI runs the chat screen. When the session expires the screen
// closes, the user signs in again and a fresh screen starts on the same
// saved conversation.
func HandleTUI(app *App, args Args) error {
	for {
		if !app.Auth.IsAuthenticated() {
			if !IsTTY() {
				return ErrNotSignedIn
			}
			if err := interactiveLogin(app, ""); err != nil {
				return err
			}
		}

		expired, err := runChatScreen(app)
		if err != nil || !expired {
			return err
		}
		fmt.Fprintln(app.ErrOut, WarningStyle.Render(orchestrator.SessionExpiredNotice))
	}
}

func runChatScreen(app *App) (expired bool, err error) {
	center := notify.NewCenter(
		notify.WithErrorDuration(time.Duration(app.Config.UI.ToastSecs) * time.Second),
	)
	ctrl := app.NewController(center, nil)
	defer ctrl.Close()

	m := chat.New(chat.Options{
		Controller: ctrl,
		Center:     center,
		Markdown:   app.Config.UI.Markdown,
		Logger:     app.Log,
	})
	defer m.Close()

	final, err := tea.NewProgram(m, tea.WithAltScreen()).Run()
	if err != nil {
		return false, fmt.Errorf("chat screen failed: %w", err)
	}
	fm, ok := final.(chat.Model)
	return ok && fm.AuthExpired(), nil
}
