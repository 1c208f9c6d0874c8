// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package history

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/jeranaias/docchat/internal/citation"
	"github.com/jeranaias/docchat/internal/model"
)

// ExportMarkdown renders the conversation as a Markdown transcript with
// sources listed under each answer.
func ExportMarkdown(conv model.Conversation) string {
	var sb strings.Builder

	sb.WriteString("# Conversation\n\n")
	if id := conv.ConversationID(); id != "" {
		sb.WriteString(fmt.Sprintf("**Conversation ID:** %s\n", id))
	}
	if first, ok := firstTimestamp(conv); ok {
		sb.WriteString(fmt.Sprintf("**Started:** %s\n", first.Format("2006-01-02 15:04:05")))
	}
	sb.WriteString(fmt.Sprintf("**Turns:** %d\n\n", conv.Len()))
	sb.WriteString("---\n\n")

	for _, t := range conv.Turns() {
		sb.WriteString(fmt.Sprintf("## %s\n\n", t.Role.DisplayName()))
		sb.WriteString(t.Content)
		sb.WriteString("\n\n")

		if t.HasSources() {
			sb.WriteString("**Sources:**\n\n")
			for _, d := range citation.Render(t.Sources) {
				sb.WriteString(fmt.Sprintf("- %s\n", d))
			}
			sb.WriteString("\n")
		}

		sb.WriteString(fmt.Sprintf("*%s*\n\n", t.Timestamp.Local().Format("15:04")))
	}

	return sb.String()
}

// ExportJSON renders the conversation as indented JSON in the persisted
// envelope format.
func ExportJSON(conv model.Conversation) ([]byte, error) {
	data, err := Encode(conv)
	if err != nil {
		return nil, err
	}
	var out bytes.Buffer
	if err := json.Indent(&out, data, "", "  "); err != nil {
		return nil, err
	}
	return out.Bytes(), nil
}

func firstTimestamp(conv model.Conversation) (time.Time, bool) {
	if conv.IsEmpty() {
		return time.Time{}, false
	}
	return conv.At(0).Timestamp, true
}
