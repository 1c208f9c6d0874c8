// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package storage provides the durable key-value capability used by docchat.
package storage

import (
	"errors"
	"fmt"
	"path/filepath"
	"strings"
)

// =============================================================================
// KEY-VALUE CAPABILITY
// =============================================================================

// KeyValue is a durable string store scoped to this client.
type KeyValue interface {
	// Get returns the value stored under key, or ErrNotFound.
	Get(key string) (string, error)

	// Set replaces the value under key. A write either fully succeeds or
	// leaves the previous value in place.
	Set(key, value string) error

	// Delete removes key. Deleting a missing key is not an error.
	Delete(key string) error

	// Close releases any resources held by the store.
	Close() error
}

// Backend names accepted by Open.
const (
	BackendFile   = "file"
	BackendSQLite = "sqlite"
	BackendMemory = "memory"
)

// sqliteFileName is the database file used by the sqlite backend.
const sqliteFileName = "docchat.db"

// Open creates the store for backend rooted at dataDir.
func Open(backend, dataDir string) (KeyValue, error) {
	switch strings.ToLower(backend) {
	case "", BackendFile:
		return NewFileStore(dataDir)
	case BackendSQLite:
		return NewSQLiteStore(filepath.Join(dataDir, sqliteFileName))
	case BackendMemory:
		return NewMemoryStore(), nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownBackend, backend)
	}
}

// =============================================================================
// NAMESPACING
// =============================================================================

// Namespaced prefixes every key so several logical stores can share one
// backend.
type Namespaced struct {
	KeyValue
	prefix string
}

// WithNamespace wraps kv so that key k is stored as "ns.k".
func WithNamespace(kv KeyValue, ns string) KeyValue {
	if ns == "" {
		return kv
	}
	return &Namespaced{KeyValue: kv, prefix: ns + "."}
}

// Get implements KeyValue.
func (n *Namespaced) Get(key string) (string, error) {
	return n.KeyValue.Get(n.prefix + key)
}

// Set implements KeyValue.
func (n *Namespaced) Set(key, value string) error {
	return n.KeyValue.Set(n.prefix+key, value)
}

// Delete implements KeyValue.
func (n *Namespaced) Delete(key string) error {
	return n.KeyValue.Delete(n.prefix + key)
}

// =============================================================================
// ERRORS
// =============================================================================

var (
	// ErrNotFound is returned by Get when no value is stored under a key.
	ErrNotFound = errors.New("storage: key not found")

	// ErrInvalidKey is returned for keys that cannot be mapped to storage.
	ErrInvalidKey = errors.New("storage: invalid key")

	// ErrUnknownBackend is returned by Open for unsupported backends.
	ErrUnknownBackend = errors.New("storage: unknown backend")

	// ErrClosed is returned after Close.
	ErrClosed = errors.New("storage: store closed")
)

// validateKey rejects keys that could escape the storage directory.
func validateKey(key string) error {
	if key == "" || len(key) > 200 {
		return fmt.Errorf("%w: %q", ErrInvalidKey, key)
	}
	for _, r := range key {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9':
		case r == '.' || r == '_' || r == '-':
		default:
			return fmt.Errorf("%w: %q", ErrInvalidKey, key)
		}
	}
	if strings.HasPrefix(key, ".") {
		return fmt.Errorf("%w: %q", ErrInvalidKey, key)
	}
	return nil
}
