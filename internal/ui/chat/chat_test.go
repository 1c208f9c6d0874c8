// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package chat

import (
	"context"
	"net/http"
	"strings"
	"sync"
	"testing"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jeranaias/docchat/internal/api"
	"github.com/jeranaias/docchat/internal/auth"
	"github.com/jeranaias/docchat/internal/history"
	"github.com/jeranaias/docchat/internal/model"
	"github.com/jeranaias/docchat/internal/notify"
	"github.com/jeranaias/docchat/internal/session"
	"github.com/jeranaias/docchat/internal/storage"
)

type fakeBackend struct {
	mu     sync.Mutex
	answer api.Result[api.ChatResponse]
	docs   api.Result[[]model.Document]
}

func (f *fakeBackend) Ask(ctx context.Context, query, conversationID string) api.Result[api.ChatResponse] {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.answer
}

func (f *fakeBackend) ListDocuments(ctx context.Context) api.Result[[]model.Document] {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.docs
}

func strPtr(s string) *string { return &s }

func newTestModel(t *testing.T, backend *fakeBackend) (Model, *notify.Center) {
	t.Helper()
	kv := storage.NewMemoryStore()
	authStore := auth.NewStore(storage.WithNamespace(kv, "auth"), "", nil)
	require.NoError(t, authStore.SetAuth("jwt", model.User{ID: "u1"}))
	center := notify.NewCenter()

	ctrl := session.New(session.Deps{
		Store:     history.NewStore(storage.WithNamespace(kv, "docchat")),
		Chat:      backend,
		Documents: backend,
		Notifier:  center,
		Auth:      authStore,
	})
	ctrl.Init(context.Background())

	m := New(Options{Controller: ctrl, Center: center})
	t.Cleanup(m.Close)
	return m, center
}

// runCmd executes cmd and any batched commands, returning their messages.
func runCmd(cmd tea.Cmd) []tea.Msg {
	if cmd == nil {
		return nil
	}
	msg := cmd()
	if batch, ok := msg.(tea.BatchMsg); ok {
		var out []tea.Msg
		for _, c := range batch {
			out = append(out, runCmd(c)...)
		}
		return out
	}
	return []tea.Msg{msg}
}

func findSendDone(t *testing.T, msgs []tea.Msg) sendDoneMsg {
	t.Helper()
	for _, msg := range msgs {
		if done, ok := msg.(sendDoneMsg); ok {
			return done
		}
	}
	t.Fatal("no sendDoneMsg produced")
	return sendDoneMsg{}
}

func update(t *testing.T, m Model, msg tea.Msg) (Model, tea.Cmd) {
	t.Helper()
	next, cmd := m.Update(msg)
	return next.(Model), cmd
}

func keyRune(r rune) tea.KeyMsg {
	return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune{r}}
}

func TestSubmit_RendersAnswerWithCitations(t *testing.T) {
	backend := &fakeBackend{
		answer: api.Ok(api.ChatResponse{
			Answer:         "The plan covers Q3.",
			ConversationID: "c-1",
			Sources: []model.Citation{
				{DocumentID: "d1", Filename: "plan.pdf", ChunkIndex: 2, RelevanceScore: 0.874},
			},
		}),
		docs: api.Ok([]model.Document{{ID: "d1", Filename: "plan.pdf", VectorCollectionID: strPtr("c")}}),
	}
	m, _ := newTestModel(t, backend)

	m.input.SetValue("  What is the plan?  ")
	m, cmd := update(t, m, tea.KeyMsg{Type: tea.KeyEnter})
	assert.True(t, m.view.Pending)
	assert.Empty(t, m.input.Value())

	done := findSendDone(t, runCmd(cmd))
	require.NoError(t, done.err)
	m, _ = update(t, m, done)

	assert.False(t, m.view.Pending)
	require.Equal(t, 3, m.view.Conversation.Len())
	assert.Equal(t, "What is the plan?", m.view.Conversation.At(1).Content)

	transcript := m.renderTranscript()
	assert.Contains(t, transcript, "The plan covers Q3.")
	assert.Contains(t, transcript, "plan.pdf, chunk 2, 87%")
	assert.Contains(t, m.View(), "1 of 1 documents indexed")
}

func TestSubmit_EmptyInputIgnored(t *testing.T) {
	m, _ := newTestModel(t, &fakeBackend{})
	m.input.SetValue("   ")
	m, cmd := update(t, m, tea.KeyMsg{Type: tea.KeyEnter})
	assert.Nil(t, cmd)
	assert.False(t, m.view.Pending)
	assert.Equal(t, 1, m.view.Conversation.Len())
}

func TestSubmit_WhilePendingWarns(t *testing.T) {
	m, center := newTestModel(t, &fakeBackend{})
	m.view.Pending = true
	m.input.SetValue("again")

	_, cmd := update(t, m, tea.KeyMsg{Type: tea.KeyEnter})
	assert.Nil(t, cmd)
	latest, ok := center.Latest()
	require.True(t, ok)
	assert.Equal(t, notify.KindWarning, latest.Kind)
}

func TestSubmit_FailureShowsToast(t *testing.T) {
	backend := &fakeBackend{
		answer: api.Fail[api.ChatResponse](&api.Error{Status: http.StatusInternalServerError, Detail: "index offline"}),
	}
	m, _ := newTestModel(t, backend)

	m.input.SetValue("hello")
	m, cmd := update(t, m, tea.KeyMsg{Type: tea.KeyEnter})
	m, _ = update(t, m, findSendDone(t, runCmd(cmd)))

	out := m.View()
	assert.Contains(t, out, "index offline")
	assert.Contains(t, out, "[X]")
	assert.Contains(t, m.renderTranscript(), "Sorry, I encountered an error")
}

func TestAuthExpired_Quits(t *testing.T) {
	backend := &fakeBackend{
		answer: api.Fail[api.ChatResponse](&api.Error{Status: http.StatusUnauthorized}),
	}
	m, _ := newTestModel(t, backend)

	m.input.SetValue("hello")
	m, cmd := update(t, m, tea.KeyMsg{Type: tea.KeyEnter})
	m, cmd = update(t, m, findSendDone(t, runCmd(cmd)))

	assert.True(t, m.AuthExpired())
	require.NotNil(t, cmd)
	_, isQuit := cmd().(tea.QuitMsg)
	assert.True(t, isQuit)
	assert.Empty(t, m.View())
}

func TestClear_RequiresConfirmation(t *testing.T) {
	backend := &fakeBackend{answer: api.Ok(api.ChatResponse{Answer: "hi"})}
	m, _ := newTestModel(t, backend)

	m.input.SetValue("hello")
	m, cmd := update(t, m, tea.KeyMsg{Type: tea.KeyEnter})
	m, _ = update(t, m, findSendDone(t, runCmd(cmd)))
	require.Equal(t, 3, m.view.Conversation.Len())

	m, _ = update(t, m, tea.KeyMsg{Type: tea.KeyCtrlL})
	assert.True(t, m.confirmingClear)
	assert.Contains(t, m.View(), "Clear the conversation?")

	m, _ = update(t, m, keyRune('n'))
	assert.False(t, m.confirmingClear)
	assert.Equal(t, 3, m.view.Conversation.Len())

	m, _ = update(t, m, tea.KeyMsg{Type: tea.KeyCtrlL})
	m, _ = update(t, m, keyRune('y'))
	assert.False(t, m.confirmingClear)
	require.Equal(t, 1, m.view.Conversation.Len())
	assert.True(t, m.view.Conversation.At(0).IsGreeting())
}

func TestClear_RefusedWhilePending(t *testing.T) {
	m, center := newTestModel(t, &fakeBackend{})
	m.view.Pending = true

	m, _ = update(t, m, tea.KeyMsg{Type: tea.KeyCtrlL})
	assert.False(t, m.confirmingClear)
	latest, ok := center.Latest()
	require.True(t, ok)
	assert.Contains(t, latest.Message, "Wait for the current response")
}

func TestHeader_UnknownDocuments(t *testing.T) {
	backend := &fakeBackend{docs: api.Fail[[]model.Document](&api.Error{Status: http.StatusBadGateway})}
	m, _ := newTestModel(t, backend)
	assert.Contains(t, m.renderHeader(), "documents: unknown")
}

func TestCitationLines_TruncatedToWidth(t *testing.T) {
	m, _ := newTestModel(t, &fakeBackend{})
	m.resize(40, 20)

	long := model.Citation{Filename: strings.Repeat("quarterly-report-", 5) + ".pdf", ChunkIndex: 1, RelevanceScore: 0.5}
	lines := m.citationLines([]model.Citation{long, {Filename: "a.pdf", ChunkIndex: 0, RelevanceScore: 1}})
	require.Len(t, lines, 2)
	assert.LessOrEqual(t, len([]rune(lines[0])), m.bubbleWidth())
	assert.Equal(t, "- a.pdf, chunk 0, 100%", lines[1])
}

func TestWindowResize(t *testing.T) {
	m, _ := newTestModel(t, &fakeBackend{})
	m, _ = update(t, m, tea.WindowSizeMsg{Width: 120, Height: 40})
	assert.Equal(t, 120, m.width)
	assert.Equal(t, 40-chromeHeight, m.viewport.Height)
}
