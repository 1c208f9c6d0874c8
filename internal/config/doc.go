// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package config provides configuration loading and management for docchat.
//
// Settings are read from a TOML file, with sensible defaults, optional .env
// files, environment variable overrides and validation.
//
// # Key Types
//
//   - Config: Main configuration structure with all settings
//   - APIConfig: Service URL, timeout and document cache TTL
//   - StorageConfig: Conversation/credential storage backend
//   - LogConfig: Rotating JSON log file
//
// # Configuration Precedence
//
// Configuration is loaded from (in order of precedence):
//   - Environment variables (DOCCHAT_*)
//   - .env in the working directory, then ~/.docchat/.env
//   - ~/.docchat/config.toml
//   - Built-in defaults
//
// # Usage
//
//	cfg, err := config.Load()
//	if err != nil {
//	    log.Fatal(err)
//	}
//	client := api.New(cfg.API.BaseURL, api.WithTimeout(cfg.RequestTimeout()))
package config
