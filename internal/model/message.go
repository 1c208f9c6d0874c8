// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package model contains the data structures for conversations and documents.
package model

import (
	"time"

	"github.com/google/uuid"

	"github.com/jeranaias/docchat/internal/util"
)

// =============================================================================
// ROLE TYPE
// =============================================================================

// Role represents the author of a turn.
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// String returns the string representation of the role.
func (r Role) String() string {
	return string(r)
}

// Valid reports whether r is one of the known roles.
func (r Role) Valid() bool {
	return r == RoleUser || r == RoleAssistant
}

// DisplayName returns a human-readable name for the role.
func (r Role) DisplayName() string {
	switch r {
	case RoleUser:
		return "You"
	case RoleAssistant:
		return "Assistant"
	default:
		return string(r)
	}
}

// =============================================================================
// CITATION TYPE
// =============================================================================

// Citation references the document chunk that supports an assistant answer.
type Citation struct {
	DocumentID string `json:"document_id"`
	// Filename is a display copy; DocumentID is authoritative.
	Filename   string `json:"filename"`
	ChunkIndex int    `json:"chunk_index"`
	// RelevanceScore is in [0,1]. Callers do not sort citations by it.
	RelevanceScore float64 `json:"relevance_score"`
}

// =============================================================================
// TURN TYPE
// =============================================================================

// Turn represents a single message in a conversation.
type Turn struct {
	ID        string     `json:"id"`
	Role      Role       `json:"role"`
	Content   string     `json:"content"`
	Timestamp time.Time  `json:"timestamp"`
	Sources   []Citation `json:"sources,omitempty"`
}

// NewTurn creates a turn with a generated ID.
func NewTurn(role Role, content string, at time.Time) Turn {
	return Turn{
		ID:        generateID(),
		Role:      role,
		Content:   content,
		Timestamp: at,
	}
}

// NewUserTurn creates a new user turn.
func NewUserTurn(content string, at time.Time) Turn {
	return NewTurn(RoleUser, content, at)
}

// NewAssistantTurn creates an assistant turn carrying the given citations.
// An empty citation list is stored as nil so failed answers and answers
// without sources look the same.
func NewAssistantTurn(content string, sources []Citation, at time.Time) Turn {
	t := NewTurn(RoleAssistant, content, at)
	if len(sources) > 0 {
		t.Sources = cloneCitations(sources)
	}
	return t
}

// GreetingID is the fixed ID of the synthetic greeting. A conversation holds
// at most one greeting, at index 0.
const GreetingID = "greeting"

// NewGreeting creates the synthetic assistant turn that seeds every
// conversation.
func NewGreeting(content string, at time.Time) Turn {
	return Turn{
		ID:        GreetingID,
		Role:      RoleAssistant,
		Content:   content,
		Timestamp: at,
	}
}

// IsGreeting reports whether t is the seeded greeting.
func (t Turn) IsGreeting() bool {
	return t.ID == GreetingID && t.Role == RoleAssistant
}

// HasSources reports whether the turn carries any citations.
func (t Turn) HasSources() bool {
	return len(t.Sources) > 0
}

// Preview returns a single-line, rune-safe preview of the turn content.
func (t Turn) Preview(maxLen int) string {
	return util.TruncateRunes(util.SingleLine(t.Content), maxLen)
}

// Equal compares two turns field by field. Timestamps are compared as
// instants so a decoded turn equals the one that was encoded.
func (t Turn) Equal(o Turn) bool {
	if t.ID != o.ID || t.Role != o.Role || t.Content != o.Content {
		return false
	}
	if !t.Timestamp.Equal(o.Timestamp) {
		return false
	}
	if len(t.Sources) != len(o.Sources) {
		return false
	}
	for i := range t.Sources {
		if t.Sources[i] != o.Sources[i] {
			return false
		}
	}
	return true
}

// clone returns a copy that shares no backing arrays with t.
func (t Turn) clone() Turn {
	t.Sources = cloneCitations(t.Sources)
	return t
}

func cloneCitations(in []Citation) []Citation {
	if len(in) == 0 {
		return nil
	}
	out := make([]Citation, len(in))
	copy(out, in)
	return out
}

// generateID creates a unique turn ID.
func generateID() string {
	return uuid.NewString()
}
