// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// chat.go - Line-oriented chat with input history.
//
// Command: chat
//
// Interactive Commands (during chat):
//   /help, /h           Show available commands
//   /clear, /c          Start a new conversation (asks first)
//   /history            Print the conversation so far
//   /docs               Show the indexed document count
//   /quit, /q           Exit chat
//   Ctrl+C, Ctrl+D      Exit chat

package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync/atomic"

	"github.com/peterh/liner"
	"go.uber.org/zap"

	"github.com/jeranaias/docchat/internal/notify"
	"github.com/jeranaias/docchat/internal/orchestrator"
	"github.com/jeranaias/docchat/internal/session"
)

// =============================================================================
// INPUT HISTORY
// =============================================================================

// lineReader wraps liner with a persistent input history file.
type lineReader struct {
	line        *liner.State
	historyFile string
	log         *zap.Logger
}

func newLineReader(dataDir string, log *zap.Logger) *lineReader {
	line := liner.NewLiner()
	line.SetCtrlCAborts(true)

	r := &lineReader{
		line:        line,
		historyFile: filepath.Join(dataDir, "chat_history"),
		log:         log,
	}
	if f, err := os.Open(r.historyFile); err == nil {
		_, _ = line.ReadHistory(f)
		f.Close()
	}
	return r
}

// ReadInput prompts for one line and records it in the history.
func (r *lineReader) ReadInput(prompt string) (string, error) {
	input, err := r.line.Prompt(prompt)
	if err != nil {
		return "", err
	}
	if strings.TrimSpace(input) != "" {
		r.line.AppendHistory(input)
	}
	return input, nil
}

// Close saves the history with owner-only permissions.
func (r *lineReader) Close() {
	if err := os.MkdirAll(filepath.Dir(r.historyFile), 0700); err == nil {
		if f, err := os.OpenFile(r.historyFile, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0600); err == nil {
			if _, err := r.line.WriteHistory(f); err != nil {
				r.log.Debug("failed to save chat history", zap.Error(err))
			}
			f.Close()
		}
	}
	r.line.Close()
}

// =============================================================================
// CHAT LOOP
// =============================================================================

// chatSession is the state of one `docchat chat` run.
type chatSession struct {
	app     *App
	ctrl    *session.Controller
	printer *turnPrinter
	out     io.Writer
	expired atomic.Bool
}

// HandleChat runs the line-oriented chat loop.
func HandleChat(app *App, args Args) error {
	if err := app.RequireAuth(); err != nil {
		return err
	}

	s := &chatSession{
		app:     app,
		printer: newTurnPrinter(app.Out, app.Config.UI.Markdown),
		out:     app.Out,
	}
	notifier := notify.NewWriter(app.ErrOut)
	s.ctrl = app.NewController(notifier, func() { s.expired.Store(true) })
	defer s.ctrl.Close()

	view := s.ctrl.Init(context.Background())
	if !args.Quiet {
		s.printWelcome(view)
	}

	reader := newLineReader(app.Config.Storage.DataDir, app.Log)
	defer reader.Close()

	for {
		input, err := reader.ReadInput(PromptStyle.Render("you> "))
		if err != nil {
			// Ctrl+C, Ctrl+D or a closed stdin
			fmt.Fprintln(s.out)
			return nil
		}

		input = strings.TrimSpace(input)
		if input == "" {
			continue
		}

		if strings.HasPrefix(input, "/") {
			if !s.handleSlashCommand(input, reader) {
				return nil
			}
			continue
		}
		if strings.EqualFold(input, "exit") || strings.EqualFold(input, "quit") {
			return nil
		}

		s.processMessage(input)
		if s.expired.Load() {
			return fmt.Errorf("%s: %w", orchestrator.SessionExpiredNotice, ErrNotSignedIn)
		}
	}
}

func (s *chatSession) printWelcome(view session.View) {
	fmt.Fprintln(s.out, TitleStyle.Render("docchat"))
	fmt.Fprintln(s.out, DimStyle.Render(documentSummary(view)+"  Type /help for commands."))
	if last, ok := view.Conversation.Last(); ok {
		s.printer.PrintTurn(last)
	}
	fmt.Fprintln(s.out)
}

func (s *chatSession) processMessage(query string) {
	fmt.Fprintln(s.out, DimStyle.Render("Searching your documents..."))
	out, err := s.ctrl.Send(context.Background(), query)
	if err != nil {
		if errors.Is(err, orchestrator.ErrEmptyQuery) {
			return
		}
		fmt.Fprintln(s.app.ErrOut, ErrorStyle.Render("[Error]")+" "+err.Error())
		return
	}
	if out.Dropped {
		return
	}
	s.printer.PrintTurn(out.Turn)
	fmt.Fprintln(s.out)
}

// handleSlashCommand runs a /command and reports whether to keep going.
func (s *chatSession) handleSlashCommand(input string, reader *lineReader) bool {
	cmd := strings.ToLower(strings.Fields(input)[0])
	switch cmd {
	case "/quit", "/q", "/exit":
		return false

	case "/help", "/h", "/?":
		fmt.Fprintln(s.out, `Commands:
  /clear     Start a new conversation
  /history   Print the conversation so far
  /docs      Refresh and show the document count
  /quit      Exit`)

	case "/clear", "/c":
		answer, err := reader.ReadInput("Clear the conversation? [y/N]: ")
		if err != nil {
			return true
		}
		if ok, _ := ParseBoolString(answer); !ok {
			fmt.Fprintln(s.out, DimStyle.Render("Kept the conversation."))
			return true
		}
		view, err := s.ctrl.Clear()
		if err != nil {
			fmt.Fprintln(s.app.ErrOut, ErrorStyle.Render("[Error]")+" "+err.Error())
			return true
		}
		fmt.Fprintln(s.out, SuccessStyle.Render("Conversation cleared."))
		if first, ok := view.Conversation.Last(); ok {
			s.printer.PrintTurn(first)
		}

	case "/history":
		for _, t := range s.ctrl.Snapshot().Conversation.Turns() {
			s.printer.PrintTurn(t)
			fmt.Fprintln(s.out)
		}

	case "/docs":
		s.ctrl.RefreshDocuments(context.Background())
		fmt.Fprintln(s.out, documentSummary(s.ctrl.Snapshot()))

	default:
		fmt.Fprintf(s.app.ErrOut, "Unknown command %s. Type /help for commands.\n", cmd)
	}
	return true
}

// documentSummary describes the indexed document count.
func documentSummary(v session.View) string {
	switch {
	case !v.DocumentsKnown:
		return "Document count unavailable."
	case v.TotalDocuments == 0:
		return "No documents uploaded yet."
	default:
		return fmt.Sprintf("%d of %d documents indexed.", v.IndexedDocuments, v.TotalDocuments)
	}
}
