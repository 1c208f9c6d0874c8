// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package logging builds the zap loggers used throughout docchat.
//
// Logs are written as JSON lines to a rotating file (lumberjack). Commands
// that do not own the terminal can additionally tee human-readable output to
// stderr. The full-screen TUI never writes logs to the terminal.
//
// # Key Types
//
//   - Options: Level, file path, rotation limits, console flag
//
// # Usage
//
//	log, err := logging.New(logging.Options{Level: "info", File: path})
//	defer log.Sync()
//	log.Info("session started", zap.Int("turns", n))
package logging
