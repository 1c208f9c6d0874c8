// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package model contains the data structures for conversations and documents.
package model

// =============================================================================
// CONVERSATION TYPE
// =============================================================================

// Conversation is an immutable snapshot of an ordered, append-only transcript.
//
// Insertion order is temporal order. Turns are never reordered, edited,
// deduplicated or removed; the only way to shrink a conversation is to start
// a new one.
type Conversation struct {
	turns []Turn

	// conversationID is whatever the chat backend handed back. It is carried
	// opaquely and never parsed.
	conversationID string
}

// NewConversation builds a snapshot from turns. The slice is copied.
func NewConversation(turns []Turn, conversationID string) Conversation {
	c := Conversation{
		turns:          make([]Turn, len(turns)),
		conversationID: conversationID,
	}
	for i, t := range turns {
		c.turns[i] = t.clone()
	}
	return c
}

// WithTurn returns a new snapshot with t appended at the tail.
func (c Conversation) WithTurn(t Turn) Conversation {
	next := Conversation{
		turns:          make([]Turn, len(c.turns), len(c.turns)+1),
		conversationID: c.conversationID,
	}
	copy(next.turns, c.turns)
	next.turns = append(next.turns, t.clone())
	return next
}

// WithConversationID returns a new snapshot carrying id.
func (c Conversation) WithConversationID(id string) Conversation {
	c.conversationID = id
	return c
}

// ConversationID returns the backend conversation id, or "" if none was
// supplied.
func (c Conversation) ConversationID() string {
	return c.conversationID
}

// Turns returns a copy of the turns in order.
func (c Conversation) Turns() []Turn {
	out := make([]Turn, len(c.turns))
	for i, t := range c.turns {
		out[i] = t.clone()
	}
	return out
}

// Len returns the number of turns.
func (c Conversation) Len() int {
	return len(c.turns)
}

// IsEmpty returns true if there are no turns. An initialized conversation
// is never empty.
func (c Conversation) IsEmpty() bool {
	return len(c.turns) == 0
}

// At returns the turn at index i. It panics if i is out of range, like a
// slice index would.
func (c Conversation) At(i int) Turn {
	return c.turns[i].clone()
}

// Last returns the most recent turn.
func (c Conversation) Last() (Turn, bool) {
	if len(c.turns) == 0 {
		return Turn{}, false
	}
	return c.turns[len(c.turns)-1].clone(), true
}

// LastByRole returns the most recent turn authored by role.
func (c Conversation) LastByRole(role Role) (Turn, bool) {
	for i := len(c.turns) - 1; i >= 0; i-- {
		if c.turns[i].Role == role {
			return c.turns[i].clone(), true
		}
	}
	return Turn{}, false
}

// CountByRole returns how many turns role authored.
func (c Conversation) CountByRole(role Role) int {
	n := 0
	for _, t := range c.turns {
		if t.Role == role {
			n++
		}
	}
	return n
}

// Equal reports whether both snapshots hold the same turns and id.
func (c Conversation) Equal(o Conversation) bool {
	if c.conversationID != o.conversationID || len(c.turns) != len(o.turns) {
		return false
	}
	for i := range c.turns {
		if !c.turns[i].Equal(o.turns[i]) {
			return false
		}
	}
	return true
}
