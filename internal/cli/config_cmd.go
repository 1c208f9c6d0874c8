// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// config_cmd.go - Show and change configuration.
//
// Examples:
//   docchat config show
//   docchat config get api.base_url
//   docchat config set storage.backend sqlite

package cli

import (
	"fmt"
	"strings"

	"github.com/jeranaias/docchat/internal/config"
)

const configUsage = "docchat config [show|get KEY|set KEY VALUE|keys|path]"

// HandleConfig dispatches the config subcommands.
func HandleConfig(app *App, args Args) error {
	p := NewArgParser(args.Raw)

	switch p.Subcommand() {
	case "", "show":
		if args.JSON {
			masked := *app.Config
			if masked.API.Token != "" {
				masked.API.Token = "****"
			}
			return NewJSONResponse("config show", masked).Fprint(app.Out)
		}
		fmt.Fprint(app.Out, app.Config.String())
		return nil

	case "get":
		key := p.Positional(1)
		if key == "" {
			return usageErr("config get", "a key is required", "docchat config get KEY")
		}
		v, err := app.Config.Get(key)
		if err != nil {
			return err
		}
		if key == "api.token" && v != "" {
			v = "****"
		}
		if args.JSON {
			return NewJSONResponse("config get", map[string]interface{}{key: v}).Fprint(app.Out)
		}
		fmt.Fprintln(app.Out, formatConfigValue(v))
		return nil

	case "set":
		key, value := p.Positional(1), strings.Join(p.PositionalFrom(2), " ")
		if key == "" || p.PositionalCount() < 3 {
			return usageErr("config set", "a key and value are required", "docchat config set KEY VALUE")
		}
		if key == "api.token" {
			return usageErr("config set", "tokens are not written to the config file; use docchat login or DOCCHAT_TOKEN", configUsage)
		}
		if err := app.Config.Set(key, value); err != nil {
			return err
		}
		if err := app.Config.Validate(); err != nil {
			return err
		}
		if err := config.SaveTOML(app.Config, app.ConfigPath); err != nil {
			return err
		}
		if !args.Quiet {
			fmt.Fprintln(app.Out, RenderStatus(true, key+" = "+value))
		}
		return nil

	case "keys":
		for _, k := range config.AllKeys() {
			fmt.Fprintln(app.Out, k)
		}
		return nil

	case "path":
		fmt.Fprintln(app.Out, app.ConfigPath)
		return nil

	default:
		return usageErr("config", "unknown subcommand "+p.Subcommand(), configUsage)
	}
}

func formatConfigValue(v interface{}) string {
	if list, ok := v.([]string); ok {
		return strings.Join(list, ",")
	}
	return fmt.Sprint(v)
}
