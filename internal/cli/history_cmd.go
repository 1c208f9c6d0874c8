// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// history_cmd.go - The saved conversation.
//
// Examples:
//   docchat history show
//   docchat history export --format json --output chat.json
//   docchat history clear --confirm

package cli

import (
	"fmt"
	"strings"

	"github.com/jeranaias/docchat/internal/history"
	"github.com/jeranaias/docchat/internal/util"
)

const historyUsage = "docchat history [show|export --format md|json [--output FILE]|clear --confirm]"

// Export formats.
const (
	FormatMarkdown = "md"
	FormatJSON     = "json"
)

// HandleHistory dispatches the history subcommands. None of them need
// the service.
func HandleHistory(app *App, args Args) error {
	p := NewArgParser(args.Raw, "confirm")
	app.History.Load()

	switch p.Subcommand() {
	case "", "show":
		return historyShow(app, args)
	case "export":
		return historyExport(app, p.FlagOrDefault("format", FormatMarkdown), p.Flag("output"))
	case "clear", "reset":
		return historyClear(app, args, p.BoolFlag("confirm"))
	default:
		return usageErr("history", "unknown subcommand "+p.Subcommand(), historyUsage)
	}
}

func historyShow(app *App, args Args) error {
	conv := app.History.Snapshot()
	if args.JSON {
		data, err := history.ExportJSON(conv)
		if err != nil {
			return err
		}
		_, err = fmt.Fprintln(app.Out, string(data))
		return err
	}

	printer := newTurnPrinter(app.Out, app.Config.UI.Markdown)
	for _, t := range conv.Turns() {
		printer.PrintTurn(t)
		fmt.Fprintln(app.Out)
	}
	if id := conv.ConversationID(); id != "" && !args.Quiet {
		fmt.Fprintln(app.Out, DimStyle.Render("Conversation "+id))
	}
	return nil
}

// historyExport writes the conversation as markdown or JSON to output, or
// to stdout when output is empty.
func historyExport(app *App, format, output string) error {
	conv := app.History.Snapshot()

	var data []byte
	switch strings.ToLower(format) {
	case FormatMarkdown, "markdown":
		data = []byte(history.ExportMarkdown(conv))
	case FormatJSON:
		b, err := history.ExportJSON(conv)
		if err != nil {
			return err
		}
		data = append(b, '\n')
	default:
		return usageErr("history export", "unsupported format "+format, historyUsage)
	}

	if output == "" {
		_, err := app.Out.Write(data)
		return err
	}
	if err := util.AtomicWriteFile(output, data, 0600); err != nil {
		return fmt.Errorf("failed to write %s: %w", output, err)
	}
	fmt.Fprintln(app.ErrOut, RenderStatus(true, fmt.Sprintf("Exported %d turns to %s", conv.Len(), output)))
	return nil
}

func historyClear(app *App, args Args, confirm bool) error {
	if err := RequireConfirmation(confirm, "Clear the saved conversation", "docchat history clear", args.JSON); err != nil {
		return err
	}
	conv := app.History.Reset()
	if args.JSON {
		return NewJSONResponse("history clear", map[string]int{"turns": conv.Len()}).Fprint(app.Out)
	}
	if !args.Quiet {
		fmt.Fprintln(app.Out, "Conversation cleared.")
	}
	return nil
}
