// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package session is the session controller: it composes the message store,
// the request orchestrator and the document listing, and exposes the
// conversation to presentation layers as immutable views.
//
// Presentation layers never read the store directly. They call Snapshot for
// the current View and Subscribe to be handed a fresh View after every
// mutation.
//
// # Key Types
//
//   - Controller: Lifecycle (Init, Send, Clear, Close) and observers
//   - View: Immutable snapshot of everything a presentation renders
//   - Deps: Collaborators injected at construction
//
// # Usage
//
//	ctrl := session.New(session.Deps{Store: store, Chat: client, Documents: client})
//	view := ctrl.Init(ctx)
//	unsubscribe := ctrl.Subscribe(func(v session.View) { redraw(v) })
//	defer unsubscribe()
//	out, err := ctrl.Send(ctx, "What is in plan.pdf?")
//
// # Authorization
//
// A 401 from any call clears stored credentials, sets View.AuthExpired and
// runs the OnAuthExpired hook. What happens next (a login prompt, exiting)
// is up to the presentation.
package session
