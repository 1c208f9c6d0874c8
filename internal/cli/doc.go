// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package cli provides command-line parsing and command handlers for docchat.
//
// Every command except help and version runs against an App, which wires the
// configuration, logger, storage backend, credentials, service client and
// conversation store.
//
// # Key Types
//
//   - Command: Enumeration of the available commands
//   - Args: Parsed global flags plus the remaining command arguments
//   - ArgParser: Flag and positional parsing for subcommands
//   - App: The wired dependencies shared by all commands
//
// # Usage
//
//	cmd, args := cli.Parse()
//	app, err := cli.NewApp(args)
//	if err != nil {
//	    cli.HandleErrorAndExit(err, args.JSON)
//	}
//	defer app.Close()
//	err = cli.HandleAsk(app, args)
//
// # Commands Overview
//
//   - tui: Full-screen chat (default)
//   - chat: Line-oriented chat with input history
//   - ask: One question, one answer
//   - docs: List, upload, delete and watch documents
//   - history: Show, export and clear the saved conversation
//   - signup, login, logout, whoami: Accounts and credentials
//   - status, config, version, help
//
// Commands that print data accept --json.
package cli
