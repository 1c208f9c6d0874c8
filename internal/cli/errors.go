// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// errors.go - Command errors and exit codes.

package cli

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/jeranaias/docchat/internal/api"
	"github.com/jeranaias/docchat/internal/config"
)

// Exit codes.
const (
	ExitSuccess   = 0
	ExitError     = 1
	ExitUsage     = 2
	ExitAuth      = 3
	ExitNotFound  = 4
	ExitConfig    = 5
	ExitCancelled = 130
)

var (
	// ErrNotSignedIn is returned by commands that need credentials.
	ErrNotSignedIn = errors.New("not signed in: run `docchat login` first")

	// ErrCancelled is returned when the user declines a confirmation.
	ErrCancelled = errors.New("cancelled")
)

// UsageError reports a malformed command line.
type UsageError struct {
	Command string
	Reason  string
	Usage   string
}

func (e *UsageError) Error() string {
	if e.Usage != "" {
		return fmt.Sprintf("%s: %s\n\nUsage: %s", e.Command, e.Reason, e.Usage)
	}
	return fmt.Sprintf("%s: %s", e.Command, e.Reason)
}

func usageErr(command, reason, usage string) error {
	return &UsageError{Command: command, Reason: reason, Usage: usage}
}

// GetExitCode maps an error to the process exit code.
func GetExitCode(err error) int {
	var usage *UsageError
	var cfgErr config.ValidateErrors
	switch {
	case err == nil:
		return ExitSuccess
	case errors.Is(err, ErrCancelled):
		return ExitCancelled
	case errors.As(err, &usage):
		return ExitUsage
	case errors.Is(err, ErrNotSignedIn), errors.Is(err, api.ErrAuthExpired):
		return ExitAuth
	case errors.Is(err, api.ErrNotFound):
		return ExitNotFound
	case errors.As(err, &cfgErr):
		return ExitConfig
	default:
		return ExitError
	}
}

// DisplayError prints err to stderr, or as a JSON envelope in JSON mode.
func DisplayError(command string, err error, jsonMode bool) {
	if jsonMode {
		_ = NewJSONErrorResponse(command, err).Print()
		return
	}
	msg := err.Error()
	if d := api.Detail(err); d != "" && !strings.Contains(msg, d) {
		msg += ": " + d
	}
	fmt.Fprintln(os.Stderr, ErrorStyle.Render("Error:")+" "+msg)
}

// HandleErrorAndExit displays err and exits with its code.
func HandleErrorAndExit(command string, err error, jsonMode bool) {
	if err == nil {
		return
	}
	DisplayError(command, err, jsonMode)
	os.Exit(GetExitCode(err))
}
