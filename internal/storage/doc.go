// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package storage provides the durable key-value capability used by docchat.
//
// Everything that must survive a restart (the conversation transcript, the
// auth token) is stored as a string under a single key. The capability is
// injected into its consumers so tests can swap in MemoryStore.
//
// # Key Types
//
//   - KeyValue: Get/Set/Delete string slots
//   - FileStore: One file per key, written atomically
//   - SQLiteStore: Single-table SQLite database (pure Go driver)
//   - MemoryStore: In-process fake with write-failure injection
//
// # Usage
//
// Open the configured backend:
//
//	kv, err := storage.Open(storage.BackendFile, dataDir)
//	defer kv.Close()
//	err = kv.Set("conversation", payload)
//
// # Storage Location
//
// By default data lives in ~/.docchat/data/.
package storage
