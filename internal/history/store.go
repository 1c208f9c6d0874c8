// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package history

import (
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/jeranaias/docchat/internal/config"
	"github.com/jeranaias/docchat/internal/logging"
	"github.com/jeranaias/docchat/internal/model"
	"github.com/jeranaias/docchat/internal/storage"
)

// SlotKey is the storage key holding the serialized conversation.
const SlotKey = "conversation"

// envelopeVersion is bumped whenever the persisted layout changes.
const envelopeVersion = 1

// =============================================================================
// STORE
// =============================================================================

// Store holds the current conversation snapshot and mirrors it to a
// key-value slot after every mutation.
type Store struct {
	mu   sync.Mutex
	conv model.Conversation

	kv       storage.KeyValue
	key      string
	greeting string
	now      func() time.Time
	log      *zap.Logger
}

// Option configures a Store.
type Option func(*Store)

// WithClock replaces time.Now for greeting timestamps.
func WithClock(now func() time.Time) Option {
	return func(s *Store) { s.now = now }
}

// WithLogger sets the logger used for persistence warnings.
func WithLogger(l *zap.Logger) Option {
	return func(s *Store) { s.log = logging.OrNop(l) }
}

// WithGreeting overrides the seeded greeting text.
func WithGreeting(text string) Option {
	return func(s *Store) {
		if text != "" {
			s.greeting = text
		}
	}
}

// WithKey overrides the storage slot.
func WithKey(key string) Option {
	return func(s *Store) { s.key = key }
}

// NewStore creates a store over kv. The store starts seeded; call Load to
// restore a persisted conversation.
func NewStore(kv storage.KeyValue, opts ...Option) *Store {
	s := &Store{
		kv:       kv,
		key:      SlotKey,
		greeting: config.DefaultGreeting,
		now:      time.Now,
		log:      zap.NewNop(),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.conv = s.seed()
	return s
}

// Load restores the persisted conversation. Missing, corrupt or invalid data
// yields a freshly seeded conversation; the slot itself is left untouched
// until the next mutation.
func (s *Store) Load() model.Conversation {
	s.mu.Lock()
	defer s.mu.Unlock()

	raw, err := s.kv.Get(s.key)
	switch {
	case errors.Is(err, storage.ErrNotFound):
		s.conv = s.seed()
		return s.conv
	case err != nil:
		s.log.Warn("conversation read failed, starting fresh", zap.Error(err))
		s.conv = s.seed()
		return s.conv
	}

	conv, err := decode(raw)
	if err != nil {
		s.log.Info("discarding unreadable conversation", zap.Error(err), zap.Int("bytes", len(raw)))
		s.conv = s.seed()
		return s.conv
	}

	s.conv = conv
	s.log.Debug("conversation restored", zap.Int("turns", conv.Len()))
	return s.conv
}

// Append adds turn at the tail and persists the result. A turn stamped
// earlier than the current tail is clamped to the tail's timestamp.
func (s *Store) Append(turn model.Turn) model.Conversation {
	s.mu.Lock()
	defer s.mu.Unlock()

	if turn.Timestamp.IsZero() {
		turn.Timestamp = s.now()
	}
	if last, ok := s.conv.Last(); ok && turn.Timestamp.Before(last.Timestamp) {
		turn.Timestamp = last.Timestamp
	}

	s.conv = s.conv.WithTurn(turn)
	s.persist()
	return s.conv
}

// SetConversationID records the backend's conversation id and persists it.
func (s *Store) SetConversationID(id string) model.Conversation {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.conv.ConversationID() == id {
		return s.conv
	}
	s.conv = s.conv.WithConversationID(id)
	s.persist()
	return s.conv
}

// Reset discards every turn, re-seeds the greeting and overwrites the slot.
func (s *Store) Reset() model.Conversation {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.conv = s.seed()
	s.persist()
	return s.conv
}

// Snapshot returns the current conversation without touching storage.
func (s *Store) Snapshot() model.Conversation {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.conv
}

func (s *Store) seed() model.Conversation {
	return model.NewConversation([]model.Turn{model.NewGreeting(s.greeting, s.now())}, "")
}

// persist writes the whole snapshot. Failures are logged and swallowed; the
// in-memory snapshot stays authoritative. Callers hold s.mu.
func (s *Store) persist() {
	data, err := encode(s.conv)
	if err != nil {
		s.log.Warn("conversation encode failed", zap.Error(err))
		return
	}
	if err := s.kv.Set(s.key, data); err != nil {
		s.log.Warn("conversation write failed", zap.Error(err), zap.Int("turns", s.conv.Len()))
	}
}

// =============================================================================
// ENCODING
// =============================================================================

type envelope struct {
	Version        int        `json:"version"`
	ConversationID string     `json:"conversation_id,omitempty"`
	Turns          []wireTurn `json:"turns"`
}

type wireTurn struct {
	ID        string           `json:"id"`
	Role      string           `json:"role"`
	Content   string           `json:"content"`
	Timestamp string           `json:"timestamp"`
	Sources   []model.Citation `json:"sources,omitempty"`
}

// Encode serializes conv in the persisted envelope format.
func Encode(conv model.Conversation) ([]byte, error) {
	env := envelope{
		Version:        envelopeVersion,
		ConversationID: conv.ConversationID(),
		Turns:          make([]wireTurn, 0, conv.Len()),
	}
	for _, t := range conv.Turns() {
		env.Turns = append(env.Turns, wireTurn{
			ID:        t.ID,
			Role:      string(t.Role),
			Content:   t.Content,
			Timestamp: t.Timestamp.UTC().Format(time.RFC3339Nano),
			Sources:   t.Sources,
		})
	}
	return json.Marshal(env)
}

func encode(conv model.Conversation) (string, error) {
	data, err := Encode(conv)
	if err != nil {
		return "", err
	}
	return string(data), nil
}

// decode parses a persisted envelope. Any invalid turn rejects the whole
// payload.
func decode(raw string) (model.Conversation, error) {
	var env envelope
	if err := json.Unmarshal([]byte(raw), &env); err != nil {
		return model.Conversation{}, fmt.Errorf("decode conversation: %w", err)
	}
	if env.Version != envelopeVersion {
		return model.Conversation{}, fmt.Errorf("unsupported conversation version %d", env.Version)
	}
	if len(env.Turns) == 0 {
		return model.Conversation{}, errors.New("conversation has no turns")
	}

	turns := make([]model.Turn, 0, len(env.Turns))
	var prev time.Time
	for i, w := range env.Turns {
		role := model.Role(w.Role)
		if !role.Valid() {
			return model.Conversation{}, fmt.Errorf("turn %d: invalid role %q", i, w.Role)
		}
		if w.ID == "" {
			return model.Conversation{}, fmt.Errorf("turn %d: missing id", i)
		}
		if role != model.RoleAssistant && len(w.Sources) > 0 {
			return model.Conversation{}, fmt.Errorf("turn %d: sources on a %s turn", i, role)
		}
		ts, err := time.Parse(time.RFC3339Nano, w.Timestamp)
		if err != nil {
			return model.Conversation{}, fmt.Errorf("turn %d: %w", i, err)
		}
		if ts.Before(prev) {
			ts = prev
		}
		prev = ts

		turns = append(turns, model.Turn{
			ID:        w.ID,
			Role:      role,
			Content:   w.Content,
			Timestamp: ts,
			Sources:   w.Sources,
		})
	}
	return model.NewConversation(turns, env.ConversationID), nil
}
