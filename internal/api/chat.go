// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package api

import (
	"context"
	"fmt"
	"net/http"

	"github.com/jeranaias/docchat/internal/model"
)

// ChatRequest is the body of POST /api/chat/.
type ChatRequest struct {
	Query string `json:"query"`
	// ConversationID is sent as null when empty.
	ConversationID *string `json:"conversation_id"`
}

// ChatResponse is a grounded answer from the chat endpoint.
type ChatResponse struct {
	Answer         string           `json:"answer"`
	Sources        []model.Citation `json:"sources"`
	ConversationID string           `json:"conversation_id"`
}

// chatWire tolerates a null conversation id and catches a missing answer.
type chatWire struct {
	Answer         *string          `json:"answer"`
	Sources        []model.Citation `json:"sources"`
	ConversationID *string          `json:"conversation_id"`
}

// Ask sends query to the chat endpoint. conversationID may be empty for a
// new conversation.
func (c *Client) Ask(ctx context.Context, query, conversationID string) Result[ChatResponse] {
	req := ChatRequest{Query: query}
	if conversationID != "" {
		req.ConversationID = &conversationID
	}

	var wire chatWire
	if err := c.doJSON(ctx, http.MethodPost, "/api/chat/", req, &wire); err != nil {
		return Fail[ChatResponse](err)
	}
	if wire.Answer == nil {
		return Fail[ChatResponse](fmt.Errorf("%w: missing answer", ErrMalformedResponse))
	}

	resp := ChatResponse{
		Answer:  *wire.Answer,
		Sources: wire.Sources,
	}
	if wire.ConversationID != nil {
		resp.ConversationID = *wire.ConversationID
	}
	return Ok(resp)
}
