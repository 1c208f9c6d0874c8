// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package model contains the data structures for conversations and documents.
//
// This package defines the core domain types shared by the message store,
// the request orchestrator and every presentation layer.
//
// # Key Types
//
//   - Conversation: Immutable, append-only snapshot of a chat transcript
//   - Turn: Single message with role, content, timestamp and optional citations
//   - Citation: Reference to a retrieved chunk of an uploaded document
//   - Document: Uploaded document as reported by the document store
//   - Role: Turn author (user, assistant)
//
// # Usage
//
// Seed a conversation and append to it:
//
//	conv := model.NewConversation([]model.Turn{model.NewGreeting("Hi!", time.Now())}, "")
//	conv = conv.WithTurn(model.NewUserTurn("What is the deadline?", time.Now()))
//
// Snapshots are values: appending returns a new Conversation and never
// changes one that was handed out earlier.
package model
