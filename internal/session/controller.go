// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package session

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/jeranaias/docchat/internal/api"
	"github.com/jeranaias/docchat/internal/history"
	"github.com/jeranaias/docchat/internal/logging"
	"github.com/jeranaias/docchat/internal/model"
	"github.com/jeranaias/docchat/internal/notify"
	"github.com/jeranaias/docchat/internal/orchestrator"
)

// =============================================================================
// DEPENDENCIES
// =============================================================================

// DocumentLister lists the caller's documents.
type DocumentLister interface {
	ListDocuments(ctx context.Context) api.Result[[]model.Document]
}

// Credentials is the part of the auth store the controller needs.
type Credentials interface {
	Clear()
}

// Deps are the controller's collaborators. Store and Chat are required.
type Deps struct {
	Store     *history.Store
	Chat      orchestrator.ChatAPI
	Documents DocumentLister
	Notifier  notify.Notifier
	Auth      Credentials
	Logger    *zap.Logger

	// OnAuthExpired runs once per expiry, after credentials are cleared.
	OnAuthExpired func()

	// Clock stamps new turns. Defaults to time.Now.
	Clock func() time.Time
}

// =============================================================================
// VIEW
// =============================================================================

// View is an immutable snapshot for presentation.
type View struct {
	Conversation model.Conversation
	Pending      bool
	State        orchestrator.State

	// IndexedDocuments is informational only; chat works with zero.
	IndexedDocuments int
	TotalDocuments   int
	// DocumentsKnown is false until a listing has succeeded.
	DocumentsKnown bool

	AuthExpired bool
}

// =============================================================================
// CONTROLLER
// =============================================================================

// Controller owns one chat session.
type Controller struct {
	store *history.Store
	orch  *orchestrator.Orchestrator
	docs  DocumentLister
	auth  Credentials
	log   *zap.Logger

	onAuthExpired func()

	mu          sync.Mutex
	closed      bool
	authExpired bool
	docsKnown   bool
	indexed     int
	total       int
	subscribers map[int]func(View)
	nextSubID   int
}

// New builds a controller. Call Init before use.
func New(d Deps) *Controller {
	c := &Controller{
		store:         d.Store,
		docs:          d.Documents,
		auth:          d.Auth,
		log:           logging.OrNop(d.Logger),
		onAuthExpired: d.OnAuthExpired,
		subscribers:   make(map[int]func(View)),
	}

	notifier := d.Notifier
	if notifier == nil {
		notifier = notify.Discard
	}
	opts := []orchestrator.Option{
		orchestrator.WithNotifier(notifier),
		orchestrator.WithLiveness(c.alive),
		orchestrator.WithOnChange(c.publish),
		orchestrator.WithLogger(c.log),
	}
	if d.Clock != nil {
		opts = append(opts, orchestrator.WithClock(d.Clock))
	}
	c.orch = orchestrator.New(d.Store, d.Chat, opts...)
	return c
}

// Init loads the persisted conversation and fetches the document count.
// A failed listing leaves the count unknown and does not affect chat.
func (c *Controller) Init(ctx context.Context) View {
	conv := c.store.Load()
	c.log.Info("session started", zap.Int("turns", conv.Len()))
	c.RefreshDocuments(ctx)
	c.publish()
	return c.Snapshot()
}

// RefreshDocuments re-fetches the document listing.
func (c *Controller) RefreshDocuments(ctx context.Context) {
	if c.docs == nil {
		return
	}
	res := c.docs.ListDocuments(ctx)
	if res.AuthExpired {
		c.expireAuth()
		return
	}
	if !res.OK() {
		c.log.Warn("document listing failed", zap.Error(res.Err))
		return
	}

	c.mu.Lock()
	c.docsKnown = true
	c.indexed = model.CountIndexed(res.Value)
	c.total = len(res.Value)
	c.mu.Unlock()
	c.publish()
}

// Send submits query and blocks until it resolves or fails. See
// orchestrator.Orchestrator.Submit for the error contract.
func (c *Controller) Send(ctx context.Context, query string) (orchestrator.Outcome, error) {
	out, err := c.orch.Submit(ctx, query)
	if err == nil && out.AuthExpired && !out.Dropped {
		c.expireAuth()
	}
	return out, err
}

// Clear resets the conversation to a single greeting. Callers confirm with
// the user first. Clearing while a request is pending is refused.
func (c *Controller) Clear() (View, error) {
	if !c.alive() {
		return c.Snapshot(), orchestrator.ErrClosed
	}
	if err := c.orch.ResetIfIdle(func() { c.store.Reset() }); err != nil {
		return c.Snapshot(), err
	}
	c.log.Info("conversation cleared")
	c.publish()
	return c.Snapshot(), nil
}

// Snapshot returns the current view.
func (c *Controller) Snapshot() View {
	state := c.orch.State()

	c.mu.Lock()
	defer c.mu.Unlock()
	return View{
		Conversation:     c.store.Snapshot(),
		Pending:          state == orchestrator.StatePending,
		State:            state,
		IndexedDocuments: c.indexed,
		TotalDocuments:   c.total,
		DocumentsKnown:   c.docsKnown,
		AuthExpired:      c.authExpired,
	}
}

// Subscribe registers fn to receive a view after every change. fn runs on
// the goroutine that made the change and must not block. The returned
// function unsubscribes.
func (c *Controller) Subscribe(fn func(View)) (unsubscribe func()) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return func() {}
	}
	id := c.nextSubID
	c.nextSubID++
	c.subscribers[id] = fn

	var once sync.Once
	return func() {
		once.Do(func() {
			c.mu.Lock()
			delete(c.subscribers, id)
			c.mu.Unlock()
		})
	}
}

// Close ends the session. A response still in flight is dropped and
// subscribers are released.
func (c *Controller) Close() {
	c.orch.Stop(func() {
		c.mu.Lock()
		defer c.mu.Unlock()
		c.closed = true
		c.subscribers = make(map[int]func(View))
	})
}

// Closed reports whether Close has been called.
func (c *Controller) Closed() bool {
	return !c.alive()
}

func (c *Controller) alive() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return !c.closed
}

func (c *Controller) expireAuth() {
	c.mu.Lock()
	already := c.authExpired
	c.authExpired = true
	c.mu.Unlock()

	if already {
		return
	}
	c.log.Warn("authorization expired, clearing credentials")
	if c.auth != nil {
		c.auth.Clear()
	}
	if c.onAuthExpired != nil {
		c.onAuthExpired()
	}
	c.publish()
}

// publish hands the current view to every subscriber.
func (c *Controller) publish() {
	view := c.Snapshot()

	c.mu.Lock()
	subs := make([]func(View), 0, len(c.subscribers))
	for _, fn := range c.subscribers {
		subs = append(subs, fn)
	}
	c.mu.Unlock()

	for _, fn := range subs {
		fn(view)
	}
}
