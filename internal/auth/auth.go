// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package auth keeps the signed-in user's bearer token and identity in the
// client's key-value store.
//
// The store implements api.TokenSource. An override token (from
// DOCCHAT_TOKEN) takes precedence over the saved one and is never persisted.
package auth

import (
	"encoding/json"
	"errors"
	"sync"

	"go.uber.org/zap"

	"github.com/jeranaias/docchat/internal/logging"
	"github.com/jeranaias/docchat/internal/model"
	"github.com/jeranaias/docchat/internal/storage"
)

// Storage keys.
const (
	TokenKey = "access_token"
	UserKey  = "user"
)

// Store holds the current credentials.
type Store struct {
	mu       sync.RWMutex
	kv       storage.KeyValue
	override string
	token    string
	user     *model.User
	log      *zap.Logger
}

// NewStore loads any saved credentials from kv. A non-empty override token
// is used for requests instead of the saved one.
func NewStore(kv storage.KeyValue, override string, log *zap.Logger) *Store {
	s := &Store{kv: kv, override: override, log: logging.OrNop(log)}
	s.load()
	return s
}

func (s *Store) load() {
	token, err := s.kv.Get(TokenKey)
	if err != nil && !errors.Is(err, storage.ErrNotFound) {
		s.log.Warn("credential read failed", zap.Error(err))
	}
	s.token = token

	raw, err := s.kv.Get(UserKey)
	if err != nil {
		return
	}
	var u model.User
	if err := json.Unmarshal([]byte(raw), &u); err != nil {
		s.log.Info("discarding unreadable user record", zap.Error(err))
		return
	}
	s.user = &u
}

// Token implements api.TokenSource.
func (s *Store) Token() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.override != "" {
		return s.override
	}
	return s.token
}

// User returns the saved identity, if any.
func (s *Store) User() (model.User, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.user == nil {
		return model.User{}, false
	}
	return *s.user, true
}

// IsAuthenticated reports whether a token is available.
func (s *Store) IsAuthenticated() bool {
	return s.Token() != ""
}

// HasOverride reports whether an environment token is in use.
func (s *Store) HasOverride() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.override != ""
}

// SetAuth saves token and user after a successful sign-in.
func (s *Store) SetAuth(token string, user model.User) error {
	data, err := json.Marshal(user)
	if err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.kv.Set(TokenKey, token); err != nil {
		return err
	}
	if err := s.kv.Set(UserKey, string(data)); err != nil {
		return err
	}
	s.token = token
	s.user = &user
	return nil
}

// Clear forgets the saved credentials and any override. Storage failures are
// logged; the in-memory state is cleared regardless.
func (s *Store) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.token = ""
	s.override = ""
	s.user = nil
	for _, key := range []string{TokenKey, UserKey} {
		if err := s.kv.Delete(key); err != nil {
			s.log.Warn("credential delete failed", zap.String("key", key), zap.Error(err))
		}
	}
}
