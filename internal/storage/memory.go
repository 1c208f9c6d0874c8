// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package storage provides the durable key-value capability used by docchat.
package storage

import (
	"errors"
	"sync"
)

// ErrWriteFailed is returned by MemoryStore.Set while write failures are
// being injected.
var ErrWriteFailed = errors.New("storage: write failed")

// MemoryStore is an in-process KeyValue. It backs the "memory" backend and
// doubles as a test fake.
type MemoryStore struct {
	mu         sync.Mutex
	data       map[string]string
	failWrites bool
	writes     int
}

// NewMemoryStore creates an empty store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{data: make(map[string]string)}
}

// Get implements KeyValue.
func (m *MemoryStore) Get(key string) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	v, ok := m.data[key]
	if !ok {
		return "", ErrNotFound
	}
	return v, nil
}

// Set implements KeyValue.
func (m *MemoryStore) Set(key, value string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failWrites {
		return ErrWriteFailed
	}
	m.data[key] = value
	m.writes++
	return nil
}

// Delete implements KeyValue.
func (m *MemoryStore) Delete(key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failWrites {
		return ErrWriteFailed
	}
	delete(m.data, key)
	return nil
}

// Close implements KeyValue.
func (m *MemoryStore) Close() error {
	return nil
}

// FailWrites makes every subsequent Set and Delete fail until called with
// false. Quota-exceeded and unavailable storage are simulated this way.
func (m *MemoryStore) FailWrites(fail bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.failWrites = fail
}

// Writes returns how many Set calls have succeeded.
func (m *MemoryStore) Writes() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.writes
}
