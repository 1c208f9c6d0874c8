// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// render.go - Printing turns and answers outside the chat screen.

package cli

import (
	"fmt"
	"io"
	"strings"

	"github.com/charmbracelet/glamour"

	"github.com/jeranaias/docchat/internal/citation"
	"github.com/jeranaias/docchat/internal/model"
	"github.com/jeranaias/docchat/internal/util"
)

// turnPrinter prints turns, rendering assistant markdown when enabled.
type turnPrinter struct {
	out      io.Writer
	width    int
	renderer *glamour.TermRenderer
}

func newTurnPrinter(out io.Writer, markdown bool) *turnPrinter {
	p := &turnPrinter{out: out, width: GetTerminalWidth()}
	if markdown && ColorsEnabled() {
		if r, err := glamour.NewTermRenderer(
			glamour.WithAutoStyle(),
			glamour.WithWordWrap(p.width-2),
		); err == nil {
			p.renderer = r
		}
	}
	return p
}

// PrintTurn prints one turn with its label, content and sources.
func (p *turnPrinter) PrintTurn(t model.Turn) {
	label := PromptStyle.Render(t.Role.DisplayName())
	if t.Role == model.RoleAssistant {
		label = AssistantStyle.Render(t.Role.DisplayName())
	}
	stamp := ""
	if !t.IsGreeting() {
		stamp = " " + DimStyle.Render(t.Timestamp.Local().Format("2006-01-02 15:04"))
	}
	fmt.Fprintln(p.out, label+stamp)
	p.PrintAnswer(t)
}

// PrintAnswer prints the content and sources of a turn without a label.
func (p *turnPrinter) PrintAnswer(t model.Turn) {
	fmt.Fprintln(p.out, p.content(t))
	for _, line := range sourceLines(t.Sources, p.width) {
		fmt.Fprintln(p.out, DimStyle.Render(line))
	}
}

func (p *turnPrinter) content(t model.Turn) string {
	if t.Role != model.RoleAssistant || p.renderer == nil {
		return t.Content
	}
	out, err := p.renderer.Render(t.Content)
	if err != nil {
		return t.Content
	}
	return strings.Trim(out, "\n")
}

// sourceLines formats citations under a "Sources:" heading.
func sourceLines(sources []model.Citation, width int) []string {
	if len(sources) == 0 {
		return nil
	}
	lines := []string{"Sources:"}
	for _, s := range citation.Strings(sources) {
		lines = append(lines, "  - "+util.TruncateWidth(s, width-4))
	}
	return lines
}

// sourcesJSON is the --json shape of a citation list.
type sourceJSON struct {
	DocumentID string `json:"document_id"`
	Filename   string `json:"filename"`
	Chunk      int    `json:"chunk_index"`
	Relevance  int    `json:"relevance_percent"`
	Display    string `json:"display"`
}

func sourcesJSON(sources []model.Citation) []sourceJSON {
	displays := citation.Render(sources)
	out := make([]sourceJSON, len(sources))
	for i, s := range sources {
		out[i] = sourceJSON{
			DocumentID: s.DocumentID,
			Filename:   s.Filename,
			Chunk:      s.ChunkIndex,
			Relevance:  displays[i].RelevancePercent,
			Display:    displays[i].String(),
		}
	}
	return out
}
