// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// confirm.go - Confirmation for destructive commands.

package cli

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strings"

	"golang.org/x/term"
)

// RequireConfirmation returns nil when the action may proceed: either
// --confirm was given or the user answered yes on a terminal. Non-interactive
// and JSON callers must pass --confirm.
func RequireConfirmation(confirmFlag bool, action, command string, jsonMode bool) error {
	if confirmFlag {
		return nil
	}
	if jsonMode || !IsTTY() {
		return usageErr(command, action+" requires --confirm", command+" --confirm")
	}
	if !PromptYesNo(os.Stdin, os.Stdout, action+"?") {
		return ErrCancelled
	}
	return nil
}

// PromptYesNo asks a yes/no question; anything but y/yes is no.
func PromptYesNo(in io.Reader, out io.Writer, question string) bool {
	fmt.Fprintf(out, "%s [y/N]: ", question)
	answer, err := bufio.NewReader(in).ReadString('\n')
	if err != nil && answer == "" {
		return false
	}
	ok, err := ParseBoolString(answer)
	return err == nil && ok
}

// promptInput reads one trimmed line.
func promptInput(in *bufio.Reader, out io.Writer, prompt string) (string, error) {
	fmt.Fprint(out, prompt)
	line, err := in.ReadString('\n')
	if err != nil && line == "" {
		return "", err
	}
	return strings.TrimSpace(line), nil
}

// promptPassword reads a password without echo from tty, or one line from
// in when tty is nil.
func promptPassword(in *bufio.Reader, tty *os.File, out io.Writer, prompt string) (string, error) {
	fmt.Fprint(out, prompt)
	if tty != nil {
		b, err := term.ReadPassword(int(tty.Fd()))
		fmt.Fprintln(out)
		if err != nil {
			return "", err
		}
		return string(b), nil
	}
	line, err := in.ReadString('\n')
	if err != nil && line == "" {
		return "", err
	}
	return strings.TrimRight(line, "\r\n"), nil
}
