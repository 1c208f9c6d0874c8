// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// ask.go - One-shot question.
//
// Command: ask
// Examples:
//   docchat ask "What does the plan say about Q3?"
//   docchat --json ask "Summarize notes.md"
//
// The question is added to the saved conversation, so `docchat chat` and the
// chat screen see it afterwards.

package cli

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"

	"github.com/jeranaias/docchat/internal/notify"
	"github.com/jeranaias/docchat/internal/orchestrator"
)

// askResult is the --json payload for ask.
type askResult struct {
	Answer         string       `json:"answer"`
	Sources        []sourceJSON `json:"sources"`
	ConversationID string       `json:"conversation_id,omitempty"`
}

// HandleAsk sends args.Query and prints the answer.
func HandleAsk(app *App, args Args) error {
	if args.Query == "" {
		return usageErr("ask", "a question is required", `docchat ask "your question"`)
	}
	if err := app.RequireAuth(); err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	// JSON callers get failures in the envelope, not on stderr
	var notifier notify.Notifier = notify.NewWriter(app.ErrOut)
	if args.JSON {
		notifier = notify.Discard
	}

	ctrl := app.NewController(notifier, nil)
	defer ctrl.Close()
	ctrl.Init(ctx)

	out, err := ctrl.Send(ctx, args.Query)
	if err != nil {
		return err
	}

	switch out.State {
	case orchestrator.StateResolved:
		if args.JSON {
			return NewJSONResponse("ask", askResult{
				Answer:         out.Turn.Content,
				Sources:        sourcesJSON(out.Turn.Sources),
				ConversationID: ctrl.Snapshot().Conversation.ConversationID(),
			}).Fprint(app.Out)
		}
		newTurnPrinter(app.Out, app.Config.UI.Markdown).PrintAnswer(out.Turn)
		return nil

	case orchestrator.StateFailed:
		if out.AuthExpired {
			return fmt.Errorf("%s: %w", orchestrator.SessionExpiredNotice, ErrNotSignedIn)
		}
		if out.Err != nil {
			return out.Err
		}
		return errors.New(orchestrator.GenericFailureNotice)

	default:
		return fmt.Errorf("request ended in state %s", out.State)
	}
}
