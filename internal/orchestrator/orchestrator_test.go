// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package orchestrator

import (
	"context"
	"errors"
	"net/http"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jeranaias/docchat/internal/api"
	"github.com/jeranaias/docchat/internal/citation"
	"github.com/jeranaias/docchat/internal/history"
	"github.com/jeranaias/docchat/internal/model"
	"github.com/jeranaias/docchat/internal/notify"
	"github.com/jeranaias/docchat/internal/storage"
)

// =============================================================================
// FAKES
// =============================================================================

type askCall struct {
	query          string
	conversationID string
}

// fakeChat answers from a queue of results. When gate is set each call
// blocks until a value is sent on it.
type fakeChat struct {
	mu      sync.Mutex
	results []api.Result[api.ChatResponse]
	calls   []askCall
	gate    chan struct{}
	entered chan struct{}
}

func (f *fakeChat) Ask(ctx context.Context, query, conversationID string) api.Result[api.ChatResponse] {
	f.mu.Lock()
	f.calls = append(f.calls, askCall{query, conversationID})
	gate, entered := f.gate, f.entered
	f.mu.Unlock()

	if entered != nil {
		entered <- struct{}{}
	}
	if gate != nil {
		<-gate
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.results) == 0 {
		return api.Ok(api.ChatResponse{Answer: "default answer"})
	}
	r := f.results[0]
	f.results = f.results[1:]
	return r
}

func (f *fakeChat) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.calls)
}

// recorder captures notifications.
type recorder struct {
	mu    sync.Mutex
	items []string
}

func (r *recorder) Notify(kind notify.Kind, message string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.items = append(r.items, kind.String()+": "+message)
}

func (r *recorder) all() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), r.items...)
}

func newHarness(t *testing.T, chat *fakeChat, opts ...Option) (*Orchestrator, *history.Store, *recorder) {
	t.Helper()
	store := history.NewStore(storage.NewMemoryStore())
	store.Load()
	rec := &recorder{}
	opts = append([]Option{WithNotifier(rec)}, opts...)
	return New(store, chat, opts...), store, rec
}

func planAnswer() api.Result[api.ChatResponse] {
	return api.Ok(api.ChatResponse{
		Answer: "The kitchen is in the north wing.",
		Sources: []model.Citation{
			{DocumentID: "d1", Filename: "plan.pdf", ChunkIndex: 2, RelevanceScore: 0.87},
		},
		ConversationID: "conv-1",
	})
}

// =============================================================================
// SCENARIOS
// =============================================================================

func TestSubmit_Success(t *testing.T) {
	chat := &fakeChat{results: []api.Result[api.ChatResponse]{planAnswer()}}
	orch, store, rec := newHarness(t, chat)

	out, err := orch.Submit(context.Background(), "Where is the kitchen?")
	require.NoError(t, err)
	assert.Equal(t, StateResolved, out.State)
	assert.Equal(t, StateResolved, orch.State())
	assert.False(t, out.AuthExpired)
	assert.NoError(t, out.Err)

	conv := store.Snapshot()
	require.Equal(t, 3, conv.Len())
	assert.Equal(t, model.RoleUser, conv.At(1).Role)
	assert.Equal(t, "Where is the kitchen?", conv.At(1).Content)

	answer := conv.At(2)
	assert.Equal(t, model.RoleAssistant, answer.Role)
	assert.Equal(t, "The kitchen is in the north wing.", answer.Content)
	assert.True(t, answer.Equal(out.Turn))
	assert.Equal(t, []string{"plan.pdf, chunk 2, 87%"}, citation.Strings(answer.Sources))

	assert.Equal(t, "conv-1", conv.ConversationID())
	assert.Empty(t, rec.all())
}

func TestSubmit_FailureUsesFixedMessage(t *testing.T) {
	chat := &fakeChat{results: []api.Result[api.ChatResponse]{
		api.Fail[api.ChatResponse](&api.Error{Status: http.StatusServiceUnavailable, Detail: "Service unavailable"}),
	}}
	orch, store, rec := newHarness(t, chat)

	out, err := orch.Submit(context.Background(), "X")
	require.NoError(t, err, "failures are folded into the outcome")
	assert.Equal(t, StateFailed, out.State)
	assert.Error(t, out.Err)

	conv := store.Snapshot()
	require.Equal(t, 3, conv.Len())
	assert.Equal(t, "X", conv.At(1).Content)

	failure := conv.At(2)
	assert.Equal(t, model.RoleAssistant, failure.Role)
	assert.Equal(t, FailureMessage, failure.Content)
	assert.NotContains(t, failure.Content, "Service unavailable")
	assert.False(t, failure.HasSources())

	assert.Equal(t, []string{"error: Service unavailable"}, rec.all())
}

func TestSubmit_FailureWithoutDetail(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want string
	}{
		{"transport", errors.New("connection refused"), GenericFailureNotice},
		{"malformed", api.ErrMalformedResponse, GenericFailureNotice},
		{"bare 500", &api.Error{Status: 500}, GenericFailureNotice},
		{"bare 401", &api.Error{Status: 401}, SessionExpiredNotice},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			chat := &fakeChat{results: []api.Result[api.ChatResponse]{api.Fail[api.ChatResponse](tc.err)}}
			orch, _, rec := newHarness(t, chat)

			out, err := orch.Submit(context.Background(), "q")
			require.NoError(t, err)
			assert.Equal(t, StateFailed, out.State)
			assert.Equal(t, []string{"error: " + tc.want}, rec.all())
		})
	}
}

func TestSubmit_AuthExpired(t *testing.T) {
	chat := &fakeChat{results: []api.Result[api.ChatResponse]{
		api.Fail[api.ChatResponse](&api.Error{Status: http.StatusUnauthorized, Detail: "Could not validate credentials"}),
	}}
	orch, store, rec := newHarness(t, chat)

	out, err := orch.Submit(context.Background(), "q")
	require.NoError(t, err)
	assert.True(t, out.AuthExpired)
	assert.Equal(t, StateFailed, out.State)
	assert.Equal(t, FailureMessage, store.Snapshot().At(2).Content)
	assert.Equal(t, []string{"error: Could not validate credentials"}, rec.all())
}

func TestSubmit_RejectsWhilePending(t *testing.T) {
	chat := &fakeChat{
		gate:    make(chan struct{}),
		entered: make(chan struct{}, 1),
	}
	orch, store, _ := newHarness(t, chat)

	done := make(chan Outcome, 1)
	go func() {
		out, err := orch.Submit(context.Background(), "first")
		assert.NoError(t, err)
		done <- out
	}()

	<-chat.entered
	assert.True(t, orch.Pending())
	assert.Equal(t, 2, store.Snapshot().Len(), "user turn is appended before the response")

	out, err := orch.Submit(context.Background(), "second")
	assert.ErrorIs(t, err, ErrRequestPending)
	assert.Equal(t, StatePending, out.State)
	assert.Equal(t, 2, store.Snapshot().Len(), "rejected submit leaves the log untouched")
	assert.Equal(t, 1, chat.callCount())

	close(chat.gate)
	select {
	case out := <-done:
		assert.Equal(t, StateResolved, out.State)
	case <-time.After(5 * time.Second):
		t.Fatal("first submit never finished")
	}

	conv := store.Snapshot()
	require.Equal(t, 3, conv.Len())
	assert.Equal(t, "first", conv.At(1).Content)
	assert.Equal(t, 1, conv.CountByRole(model.RoleUser))
	assert.False(t, orch.Pending())
}

// =============================================================================
// PROPERTIES
// =============================================================================

func TestSubmit_LengthProperty(t *testing.T) {
	var results []api.Result[api.ChatResponse]
	for i := 0; i < 10; i++ {
		if i%3 == 0 {
			results = append(results, api.Fail[api.ChatResponse](errors.New("flaky")))
		} else {
			results = append(results, planAnswer())
		}
	}
	chat := &fakeChat{results: results}
	orch, store, _ := newHarness(t, chat)

	for i := 0; i < 10; i++ {
		_, err := orch.Submit(context.Background(), "question")
		require.NoError(t, err)
		assert.Equal(t, 1+2*(i+1), store.Snapshot().Len())
	}

	turns := store.Snapshot().Turns()
	for i := 1; i < len(turns); i++ {
		want := model.RoleUser
		if i%2 == 0 {
			want = model.RoleAssistant
		}
		assert.Equal(t, want, turns[i].Role, "turn %d", i)
		assert.False(t, turns[i].Timestamp.Before(turns[i-1].Timestamp))
	}
}

func TestSubmit_EmptyQueryRejected(t *testing.T) {
	chat := &fakeChat{}
	orch, store, _ := newHarness(t, chat)

	for _, q := range []string{"", "   ", "\n\t"} {
		_, err := orch.Submit(context.Background(), q)
		assert.ErrorIs(t, err, ErrEmptyQuery)
	}
	assert.Equal(t, 1, store.Snapshot().Len())
	assert.Equal(t, 0, chat.callCount())
	assert.Equal(t, StateIdle, orch.State())
}

func TestSubmit_NormalizesQuery(t *testing.T) {
	chat := &fakeChat{}
	orch, store, _ := newHarness(t, chat)

	// "e" followed by a combining acute accent composes to "é"
	_, err := orch.Submit(context.Background(), "  cafe\u0301 menu  ")
	require.NoError(t, err)

	assert.Equal(t, "caf\u00e9 menu", store.Snapshot().At(1).Content)
	assert.Equal(t, "caf\u00e9 menu", chat.calls[0].query)
}

func TestSubmit_ForwardsConversationID(t *testing.T) {
	chat := &fakeChat{results: []api.Result[api.ChatResponse]{
		planAnswer(),
		api.Ok(api.ChatResponse{Answer: "again"}),
	}}
	orch, store, _ := newHarness(t, chat)

	_, err := orch.Submit(context.Background(), "one")
	require.NoError(t, err)
	_, err = orch.Submit(context.Background(), "two")
	require.NoError(t, err)

	assert.Equal(t, "", chat.calls[0].conversationID)
	assert.Equal(t, "conv-1", chat.calls[1].conversationID)
	assert.Equal(t, "conv-1", store.Snapshot().ConversationID(), "empty id in a response keeps the old one")
}

func TestSubmit_FailedStateAllowsNextSubmit(t *testing.T) {
	chat := &fakeChat{results: []api.Result[api.ChatResponse]{
		api.Fail[api.ChatResponse](errors.New("down")),
		planAnswer(),
	}}
	orch, _, _ := newHarness(t, chat)

	out, err := orch.Submit(context.Background(), "a")
	require.NoError(t, err)
	assert.Equal(t, StateFailed, out.State)

	out, err = orch.Submit(context.Background(), "b")
	require.NoError(t, err)
	assert.Equal(t, StateResolved, out.State)
}

// =============================================================================
// LIVENESS
// =============================================================================

func TestSubmit_DropsResponseAfterClose(t *testing.T) {
	var alive atomic.Bool
	alive.Store(true)

	chat := &fakeChat{
		gate:    make(chan struct{}),
		entered: make(chan struct{}, 1),
	}
	orch, store, rec := newHarness(t, chat, WithLiveness(alive.Load))

	done := make(chan Outcome, 1)
	go func() {
		out, _ := orch.Submit(context.Background(), "q")
		done <- out
	}()

	<-chat.entered
	alive.Store(false)
	close(chat.gate)

	out := <-done
	assert.True(t, out.Dropped)
	assert.Equal(t, 2, store.Snapshot().Len(), "no assistant turn after close")
	assert.Empty(t, rec.all())
	assert.False(t, orch.Pending())

	_, err := orch.Submit(context.Background(), "again")
	assert.ErrorIs(t, err, ErrClosed)
}

func TestSubmit_LivenessCheckedWithAppend(t *testing.T) {
	tests := []struct {
		name   string
		result api.Result[api.ChatResponse]
	}{
		{"answer", planAnswer()},
		{"failure", api.Fail[api.ChatResponse](&api.Error{Status: http.StatusInternalServerError, Detail: "index offline"})},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			// Alive for the submit, closed by the time the response is applied.
			var checks atomic.Int32
			alive := func() bool { return checks.Add(1) == 1 }

			chat := &fakeChat{results: []api.Result[api.ChatResponse]{tc.result}}
			orch, store, rec := newHarness(t, chat, WithLiveness(alive))

			out, err := orch.Submit(context.Background(), "q")
			require.NoError(t, err)
			assert.True(t, out.Dropped)
			assert.Equal(t, StateIdle, out.State)
			assert.Equal(t, 2, store.Snapshot().Len())
			assert.Empty(t, store.Snapshot().ConversationID())
			assert.Empty(t, rec.all())
		})
	}
}

func TestStop_ResponseAfterStopIsDropped(t *testing.T) {
	var alive atomic.Bool
	alive.Store(true)
	chat := &fakeChat{
		gate:    make(chan struct{}),
		entered: make(chan struct{}, 1),
	}
	orch, store, _ := newHarness(t, chat, WithLiveness(alive.Load))

	done := make(chan Outcome, 1)
	go func() {
		out, _ := orch.Submit(context.Background(), "q")
		done <- out
	}()
	<-chat.entered

	orch.Stop(func() {
		close(chat.gate)
		alive.Store(false)
	})

	out := <-done
	assert.True(t, out.Dropped)
	assert.Equal(t, 2, store.Snapshot().Len())
}

// =============================================================================
// RESET
// =============================================================================

func TestResetIfIdle(t *testing.T) {
	chat := &fakeChat{
		gate:    make(chan struct{}),
		entered: make(chan struct{}, 1),
	}
	orch, store, _ := newHarness(t, chat)

	done := make(chan struct{})
	go func() {
		defer close(done)
		_, _ = orch.Submit(context.Background(), "q")
	}()
	<-chat.entered

	called := false
	err := orch.ResetIfIdle(func() { called = true; store.Reset() })
	assert.ErrorIs(t, err, ErrRequestPending)
	assert.False(t, called)

	close(chat.gate)
	<-done
	assert.Equal(t, 3, store.Snapshot().Len(), "user turn and answer kept")

	err = orch.ResetIfIdle(func() { called = true; store.Reset() })
	require.NoError(t, err)
	assert.True(t, called)
	assert.Equal(t, 1, store.Snapshot().Len())
}

func TestSubmit_OnChangeCalledPerMutation(t *testing.T) {
	var changes atomic.Int32
	orch, _, _ := newHarness(t, &fakeChat{}, WithOnChange(func() { changes.Add(1) }))

	_, err := orch.Submit(context.Background(), "q")
	require.NoError(t, err)
	assert.EqualValues(t, 2, changes.Load(), "one for the user turn, one for the answer")
}

func TestState_String(t *testing.T) {
	assert.Equal(t, "idle", StateIdle.String())
	assert.Equal(t, "pending", StatePending.String())
	assert.Equal(t, "resolved", StateResolved.String())
	assert.Equal(t, "failed", StateFailed.String())
}
