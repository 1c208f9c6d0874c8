// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package storage provides the durable key-value capability used by docchat.
package storage

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/jeranaias/docchat/internal/util"
)

// FileStore keeps each key in its own file under BaseDir.
type FileStore struct {
	// BaseDir is the directory holding one file per key.
	BaseDir string

	mu     sync.Mutex
	closed bool
}

// NewFileStore creates a store rooted at baseDir, creating it if needed.
func NewFileStore(baseDir string) (*FileStore, error) {
	if baseDir == "" {
		return nil, errors.New("storage: base directory is required")
	}
	if err := os.MkdirAll(baseDir, 0700); err != nil {
		return nil, fmt.Errorf("failed to create storage directory: %w", err)
	}
	return &FileStore{BaseDir: baseDir}, nil
}

// Get implements KeyValue.
func (s *FileStore) Get(key string) (string, error) {
	if err := validateKey(key); err != nil {
		return "", err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return "", ErrClosed
	}

	data, err := os.ReadFile(s.filePath(key))
	if err != nil {
		if os.IsNotExist(err) {
			return "", ErrNotFound
		}
		return "", err
	}
	return string(data), nil
}

// Set implements KeyValue.
// RELIABILITY: Atomic write with fsync, so a crash leaves either the old or
// the new value.
func (s *FileStore) Set(key, value string) error {
	if err := validateKey(key); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return ErrClosed
	}
	return util.AtomicWriteFile(s.filePath(key), []byte(value), 0600)
}

// Delete implements KeyValue.
func (s *FileStore) Delete(key string) error {
	if err := validateKey(key); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return ErrClosed
	}
	if err := os.Remove(s.filePath(key)); err != nil && !os.IsNotExist(err) {
		return err
	}
	return nil
}

// Close implements KeyValue.
func (s *FileStore) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	return nil
}

// filePath returns the file path for a key.
func (s *FileStore) filePath(key string) string {
	return filepath.Join(s.BaseDir, key+".json")
}
