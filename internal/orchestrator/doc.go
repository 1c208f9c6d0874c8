// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package orchestrator drives one query through its lifecycle:
// Idle -> Pending -> Resolved | Failed.
//
// Submitting appends the user's turn immediately (it is never rolled back),
// calls the chat service once, and appends exactly one assistant turn: the
// answer with its sources, or a fixed failure message. Only one query may be
// pending; a second Submit is rejected rather than queued.
//
// # Key Types
//
//   - Orchestrator: Single-flight submit with optimistic append
//   - Outcome: What happened to one submit
//   - ChatAPI / Store: The collaborators it drives
//
// # Usage
//
//	orch := orchestrator.New(store, client, orchestrator.WithNotifier(center))
//	out, err := orch.Submit(ctx, "What is in plan.pdf?")
//	if errors.Is(err, orchestrator.ErrRequestPending) {
//	    // ignore the keypress
//	}
package orchestrator
