// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package history is the message store: the ordered, append-only log of
// conversation turns and its persistence in a single key-value slot.
//
// Every mutation writes the whole conversation in one Set, so the slot
// always holds a complete snapshot. Reads fail soft: anything that cannot be
// decoded is replaced by a freshly seeded conversation.
//
// # Key Types
//
//   - Store: Owns the current snapshot and its persisted copy
//   - Option: Clock, logger, greeting and slot overrides
//
// # Usage
//
//	store := history.NewStore(kv, history.WithLogger(log))
//	conv := store.Load()
//	conv = store.Append(model.NewUserTurn("What is in plan.pdf?", time.Now()))
//
// Transcripts can be exported with ExportMarkdown and ExportJSON.
package history
