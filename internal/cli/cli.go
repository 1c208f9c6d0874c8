// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// cli.go - Command parsing, usage and version output for docchat.

package cli

import (
	"fmt"
	"os"
	"runtime"
	"strings"
)

// Version information (can be overridden at build time)
var (
	Version   = "0.1.0"
	GitCommit = "unknown"
	BuildDate = "unknown"
)

// Command represents the CLI command to execute.
type Command int

const (
	CmdTUI Command = iota
	CmdChat
	CmdAsk
	CmdDocs
	CmdHistory
	CmdSignup
	CmdLogin
	CmdLogout
	CmdWhoami
	CmdStatus
	CmdConfig
	CmdVersion
	CmdHelp
)

// Args holds parsed CLI arguments.
type Args struct {
	// Global flags
	JSON       bool
	Quiet      bool
	Verbose    bool
	ConfigPath string // --config, overrides ~/.docchat/config.toml
	APIURL     string // --api, overrides api.base_url

	// Command-specific
	Query      string
	Subcommand string

	// Raw holds the arguments after the command name.
	Raw []string
}

const usageText = `docchat - chat with your documents from the terminal

Usage:
  docchat                          Start the chat screen (default)
  docchat chat                     Line-oriented chat with history
  docchat ask "question"           Ask one question and print the answer
  docchat docs [subcommand]        Manage uploaded documents
  docchat history [subcommand]     Manage the saved conversation
  docchat signup                   Create an account
    --email ADDR --username NAME   Account details (prompted if missing)
  docchat login [--email ADDR]     Sign in
  docchat logout                   Forget saved credentials
  docchat whoami                   Show the signed-in user
  docchat status                   Show service, account and storage status
  docchat config [subcommand]      Show or change configuration
  docchat version                  Show version information
  docchat help                     Show this help

Document Commands:
  docchat docs list                List documents and their indexing state
  docchat docs upload FILE...      Upload one or more files
  docchat docs delete ID --confirm Delete a document
  docchat docs watch DIR           Upload files dropped into DIR

History Commands:
  docchat history show             Print the saved conversation
  docchat history export           Export the conversation
    --format md|json               Export format (default: md)
    --output FILE                  Write to FILE instead of stdout
  docchat history clear --confirm  Start a new conversation

Config Commands:
  docchat config show              Print the effective configuration
  docchat config get KEY           Print one value, e.g. api.base_url
  docchat config set KEY VALUE     Change and save one value
  docchat config keys              List all keys
  docchat config path              Print the config file path

Chat Commands (inside docchat chat):
  /help  /clear  /history  /docs  /quit

Global Flags:
  --json                           Machine-readable output
  --config PATH                    Use another config file
  --api URL                        Override the service URL
  -q, --quiet                      Minimal output
  -v, --verbose                    Debug logging, warnings on stderr

Environment:
  DOCCHAT_HOME, DOCCHAT_API_URL, DOCCHAT_TOKEN, DOCCHAT_STORAGE_BACKEND,
  DOCCHAT_DATA_DIR, DOCCHAT_LOG_LEVEL, DOCCHAT_LOG_FILE
`

// PrintUsage prints the usage text.
func PrintUsage() {
	fmt.Print(usageText)
}

// PrintVersion prints version information.
func PrintVersion() {
	fmt.Printf("docchat %s\n", Version)
	fmt.Printf("  Commit:  %s\n", GitCommit)
	fmt.Printf("  Built:   %s\n", BuildDate)
	fmt.Printf("  Go:      %s\n", runtime.Version())
	fmt.Printf("  OS/Arch: %s/%s\n", runtime.GOOS, runtime.GOARCH)
}

// HandleVersion prints version information as text or JSON.
func HandleVersion(args Args) {
	if args.JSON {
		_ = NewJSONResponse("version", map[string]string{
			"version":    Version,
			"git_commit": GitCommit,
			"build_date": BuildDate,
			"go_version": runtime.Version(),
			"os":         runtime.GOOS,
			"arch":       runtime.GOARCH,
		}).Print()
		return
	}
	PrintVersion()
}

// Parse parses os.Args.
func Parse() (Command, Args) {
	return ParseArgs(os.Args[1:])
}

// ParseArgs parses argv (without the program name) into a command and its
// arguments.
func ParseArgs(argv []string) (Command, Args) {
	remaining, parsed := parseGlobalFlags(argv)

	if len(remaining) == 0 {
		return CmdTUI, parsed
	}

	word := remaining[0]
	cmd := strings.ToLower(word)
	remaining = remaining[1:]
	parsed.Raw = remaining
	if len(remaining) > 0 {
		parsed.Subcommand = remaining[0]
	}

	switch cmd {
	case "tui":
		return CmdTUI, parsed
	case "chat":
		return CmdChat, parsed
	case "ask", "a":
		parsed.Query = strings.Join(NewArgParser(remaining).PositionalFrom(0), " ")
		return CmdAsk, parsed
	case "docs", "doc", "documents":
		return CmdDocs, parsed
	case "history", "hist":
		return CmdHistory, parsed
	case "signup", "register":
		return CmdSignup, parsed
	case "login", "signin":
		return CmdLogin, parsed
	case "logout", "signout":
		return CmdLogout, parsed
	case "whoami":
		return CmdWhoami, parsed
	case "status", "s":
		return CmdStatus, parsed
	case "config", "cfg":
		return CmdConfig, parsed
	case "version", "--version", "-V":
		return CmdVersion, parsed
	case "help", "--help", "-h":
		return CmdHelp, parsed
	default:
		// Anything else is treated as a question
		parsed.Query = strings.Join(append([]string{word}, remaining...), " ")
		parsed.Raw = nil
		parsed.Subcommand = ""
		return CmdAsk, parsed
	}
}

// parseGlobalFlags extracts global flags and returns the remaining args.
func parseGlobalFlags(argv []string) ([]string, Args) {
	var remaining []string
	var parsed Args

	for i := 0; i < len(argv); i++ {
		arg := argv[i]
		switch arg {
		case "--json":
			parsed.JSON = true
		case "-q", "--quiet":
			parsed.Quiet = true
		case "-v", "--verbose":
			parsed.Verbose = true
		case "--config":
			if i+1 < len(argv) {
				i++
				parsed.ConfigPath = argv[i]
			}
		case "--api":
			if i+1 < len(argv) {
				i++
				parsed.APIURL = argv[i]
			}
		default:
			switch {
			case strings.HasPrefix(arg, "--config="):
				parsed.ConfigPath = strings.TrimPrefix(arg, "--config=")
			case strings.HasPrefix(arg, "--api="):
				parsed.APIURL = strings.TrimPrefix(arg, "--api=")
			default:
				remaining = append(remaining, arg)
			}
		}
	}
	return remaining, parsed
}
