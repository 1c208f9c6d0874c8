// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package orchestrator

import (
	"context"
	"errors"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"
	"golang.org/x/text/unicode/norm"

	"github.com/jeranaias/docchat/internal/api"
	"github.com/jeranaias/docchat/internal/citation"
	"github.com/jeranaias/docchat/internal/logging"
	"github.com/jeranaias/docchat/internal/model"
	"github.com/jeranaias/docchat/internal/notify"
)

// =============================================================================
// STATES
// =============================================================================

// State is the lifecycle position of the most recent submit.
type State int

const (
	// StateIdle means nothing has been submitted yet.
	StateIdle State = iota
	// StatePending means a request is in flight.
	StatePending
	// StateResolved means the last request produced an answer.
	StateResolved
	// StateFailed means the last request failed.
	StateFailed
)

// String returns the state name.
func (s State) String() string {
	switch s {
	case StatePending:
		return "pending"
	case StateResolved:
		return "resolved"
	case StateFailed:
		return "failed"
	default:
		return "idle"
	}
}

// =============================================================================
// MESSAGES AND ERRORS
// =============================================================================

// FailureMessage is the assistant turn appended when a request fails. It is
// the same for every failure; details go to the notification only.
const FailureMessage = "Sorry, I encountered an error processing your request. Please try again."

// GenericFailureNotice is the notification used when the service supplied
// no detail.
const GenericFailureNotice = "Failed to get response"

// SessionExpiredNotice is the notification for a rejected credential with
// no server detail.
const SessionExpiredNotice = "Your session has expired. Please sign in again."

var (
	// ErrRequestPending is returned by Submit while another query is in flight.
	ErrRequestPending = errors.New("a request is already pending")

	// ErrEmptyQuery is returned for blank queries.
	ErrEmptyQuery = errors.New("query is empty")

	// ErrClosed is returned once the owning session has gone away.
	ErrClosed = errors.New("session closed")
)

// =============================================================================
// COLLABORATORS
// =============================================================================

// ChatAPI answers one query.
type ChatAPI interface {
	Ask(ctx context.Context, query, conversationID string) api.Result[api.ChatResponse]
}

// Store is the message log the orchestrator appends to.
type Store interface {
	Append(turn model.Turn) model.Conversation
	Snapshot() model.Conversation
	SetConversationID(id string) model.Conversation
}

// Outcome describes how one submit ended.
type Outcome struct {
	State State

	// Turn is the assistant turn that was appended. Zero when Dropped.
	Turn model.Turn

	// AuthExpired is set when the service rejected the credential.
	AuthExpired bool

	// Err is the underlying failure, for logging and callers that want it.
	Err error

	// Dropped is set when the session closed while the request was in
	// flight; nothing was appended for the response.
	Dropped bool
}

// =============================================================================
// ORCHESTRATOR
// =============================================================================

// Orchestrator runs the submit lifecycle. It is safe for concurrent use.
type Orchestrator struct {
	mu    sync.Mutex
	state State

	store    Store
	chat     ChatAPI
	notifier notify.Notifier
	alive    func() bool
	onChange func()
	now      func() time.Time
	log      *zap.Logger
}

// Option configures an Orchestrator.
type Option func(*Orchestrator)

// WithNotifier sets where failure notifications go.
func WithNotifier(n notify.Notifier) Option {
	return func(o *Orchestrator) {
		if n != nil {
			o.notifier = n
		}
	}
}

// WithLiveness installs the guard consulted before submitting and again
// when a response arrives.
func WithLiveness(alive func() bool) Option {
	return func(o *Orchestrator) { o.alive = alive }
}

// WithOnChange registers a callback run after every state or log change.
// It is never called with the internal lock held.
func WithOnChange(fn func()) Option {
	return func(o *Orchestrator) { o.onChange = fn }
}

// WithClock replaces time.Now for turn timestamps.
func WithClock(now func() time.Time) Option {
	return func(o *Orchestrator) { o.now = now }
}

// WithLogger sets the logger.
func WithLogger(l *zap.Logger) Option {
	return func(o *Orchestrator) { o.log = logging.OrNop(l) }
}

// New creates an orchestrator over store and chat.
func New(store Store, chat ChatAPI, opts ...Option) *Orchestrator {
	o := &Orchestrator{
		store:    store,
		chat:     chat,
		notifier: notify.Discard,
		alive:    func() bool { return true },
		onChange: func() {},
		now:      time.Now,
		log:      zap.NewNop(),
	}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

// State returns the current lifecycle state.
func (o *Orchestrator) State() State {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.state
}

// Pending reports whether a request is in flight.
func (o *Orchestrator) Pending() bool {
	return o.State() == StatePending
}

// NormalizeQuery applies Unicode NFC normalization and trims whitespace.
func NormalizeQuery(query string) string {
	return strings.TrimSpace(norm.NFC.String(query))
}

// Submit sends query and blocks until the service answers or fails.
//
// The user turn is appended before the request is made. Transport, service
// and decoding failures are reported in the Outcome, never as the returned
// error; the error is reserved for rejected submits (ErrEmptyQuery,
// ErrRequestPending, ErrClosed), which leave the conversation untouched.
func (o *Orchestrator) Submit(ctx context.Context, query string) (Outcome, error) {
	q := NormalizeQuery(query)
	if q == "" {
		return Outcome{State: o.State()}, ErrEmptyQuery
	}

	o.mu.Lock()
	if !o.alive() {
		o.mu.Unlock()
		return Outcome{State: StateIdle}, ErrClosed
	}
	if o.state == StatePending {
		o.mu.Unlock()
		return Outcome{State: StatePending}, ErrRequestPending
	}
	o.state = StatePending
	conversationID := o.store.Snapshot().ConversationID()
	o.store.Append(model.NewUserTurn(q, o.now()))
	o.mu.Unlock()
	o.onChange()

	start := time.Now()
	res := o.chat.Ask(ctx, q, conversationID)
	elapsed := time.Since(start)

	if res.OK() {
		return o.resolve(res, elapsed), nil
	}
	return o.fail(res, elapsed), nil
}

// ResetIfIdle runs reset while no submit can start or apply a response.
// It returns ErrRequestPending without calling reset when a request is in
// flight.
func (o *Orchestrator) ResetIfIdle(reset func()) error {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.state == StatePending {
		return ErrRequestPending
	}
	reset()
	return nil
}

// Stop runs markClosed under the orchestrator lock. Once the liveness
// guard reports false, a response still in flight is dropped rather than
// appended.
func (o *Orchestrator) Stop(markClosed func()) {
	o.mu.Lock()
	defer o.mu.Unlock()
	markClosed()
}

// dropLocked settles a response that arrived after the session closed.
// o.mu must be held; it is released before returning.
func (o *Orchestrator) dropLocked(res api.Result[api.ChatResponse], elapsed time.Duration) Outcome {
	o.state = StateIdle
	o.mu.Unlock()
	o.log.Info("response dropped, session closed",
		zap.Bool("ok", res.OK()),
		zap.Duration("duration", elapsed))
	return Outcome{State: StateIdle, Dropped: true, AuthExpired: res.AuthExpired, Err: res.Err}
}

func (o *Orchestrator) resolve(res api.Result[api.ChatResponse], elapsed time.Duration) Outcome {
	resp := res.Value
	turn := model.NewAssistantTurn(resp.Answer, resp.Sources, o.now())

	o.mu.Lock()
	if !o.alive() {
		return o.dropLocked(res, elapsed)
	}
	o.store.Append(turn)
	if resp.ConversationID != "" {
		o.store.SetConversationID(resp.ConversationID)
	}
	o.state = StateResolved
	o.mu.Unlock()

	o.log.Info("answer received",
		zap.Duration("duration", elapsed),
		zap.Int("answer_chars", len(resp.Answer)),
		zap.Strings("sources", citation.Strings(resp.Sources)))
	o.onChange()

	return Outcome{State: StateResolved, Turn: turn}
}

func (o *Orchestrator) fail(res api.Result[api.ChatResponse], elapsed time.Duration) Outcome {
	turn := model.NewAssistantTurn(FailureMessage, nil, o.now())

	o.mu.Lock()
	if !o.alive() {
		return o.dropLocked(res, elapsed)
	}
	o.store.Append(turn)
	o.state = StateFailed
	o.mu.Unlock()

	notice := api.Detail(res.Err)
	if notice == "" {
		notice = GenericFailureNotice
		if res.AuthExpired {
			notice = SessionExpiredNotice
		}
	}
	o.notifier.Notify(notify.KindError, notice)

	o.log.Warn("query failed",
		zap.Duration("duration", elapsed),
		zap.Bool("auth_expired", res.AuthExpired),
		zap.Error(res.Err))
	o.onChange()

	return Outcome{State: StateFailed, Turn: turn, AuthExpired: res.AuthExpired, Err: res.Err}
}
