// docchat - chat with your uploaded documents from the terminal.
//
// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later
package main

import "github.com/jeranaias/docchat/internal/cli"

// Version information (set at build time)
var (
	Version   = "0.1.0"
	GitCommit = "unknown"
	BuildDate = "unknown"
)

func init() {
	cli.Version = Version
	cli.GitCommit = GitCommit
	cli.BuildDate = BuildDate
}

// handlers maps each command to its handler.
var handlers = map[cli.Command]func(*cli.App, cli.Args) error{
	cli.CmdTUI:     cli.HandleTUI,
	cli.CmdChat:    cli.HandleChat,
	cli.CmdAsk:     cli.HandleAsk,
	cli.CmdDocs:    cli.HandleDocs,
	cli.CmdHistory: cli.HandleHistory,
	cli.CmdSignup:  cli.HandleSignup,
	cli.CmdLogin:   cli.HandleLogin,
	cli.CmdLogout:  cli.HandleLogout,
	cli.CmdWhoami:  cli.HandleWhoami,
	cli.CmdStatus:  cli.HandleStatus,
	cli.CmdConfig:  cli.HandleConfig,
}

var commandNames = map[cli.Command]string{
	cli.CmdTUI:     "tui",
	cli.CmdChat:    "chat",
	cli.CmdAsk:     "ask",
	cli.CmdDocs:    "docs",
	cli.CmdHistory: "history",
	cli.CmdSignup:  "signup",
	cli.CmdLogin:   "login",
	cli.CmdLogout:  "logout",
	cli.CmdWhoami:  "whoami",
	cli.CmdStatus:  "status",
	cli.CmdConfig:  "config",
}

func main() {
	cmd, args := cli.Parse()

	switch cmd {
	case cli.CmdVersion:
		cli.HandleVersion(args)
		return
	case cli.CmdHelp:
		cli.PrintUsage()
		return
	}

	name := commandNames[cmd]
	app, err := cli.NewApp(args)
	if err != nil {
		cli.HandleErrorAndExit(name, err, args.JSON)
	}

	err = handlers[cmd](app, args)
	app.Close()
	if err != nil {
		cli.HandleErrorAndExit(name, err, args.JSON)
	}
}
