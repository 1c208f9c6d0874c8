// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package util provides small helpers shared across docchat.
//
// # Key Functions
//
//   - AtomicWriteFile: Crash-safe file writing with fsync
//   - TruncateRunes: UTF-8 safe truncation with ellipsis
//   - TruncateWidth: Display-width aware truncation for terminal cells
//   - HumanBytes: File sizes for document listings
//
// # Usage
//
//	err := util.AtomicWriteFile(path, data, 0600)
//	label := util.TruncateWidth(filename, 24)
package util
