// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package config provides configuration loading and management for liquidgpt.
//
// # Configuration Precedence
//
// Configuration is loaded from (in order of precedence):
//   - Environment variables (OPENROUTER_API_KEY, LIQUIDGPT_*)
//   - A .env file in the working directory
//   - ~/.liquidgpt/config.toml
//   - Built-in defaults
//
// # Usage
//
//	cfg, err := config.Load()
//	if err != nil {
//	    return err
//	}
//	if err := cfg.RequireAPIKey(); err != nil {
//	    return err
//	}
package config
