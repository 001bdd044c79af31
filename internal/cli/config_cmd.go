// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/jeranaias/liquidgpt/internal/config"
	"github.com/jeranaias/liquidgpt/internal/ui/styles"
)

// HandleConfig handles the config command.
func HandleConfig(args Args) error {
	return runConfig(os.Stdout, args)
}

func runConfig(out io.Writer, args Args) error {
	p := NewArgParser(args.Raw, "json", "force")
	path, err := config.ConfigPath()
	if err != nil {
		return err
	}

	switch strings.ToLower(p.Subcommand()) {
	case "", "show":
		cfg, err := config.Load()
		if err != nil {
			return err
		}
		data, err := json.MarshalIndent(cfg.Redacted(), "", "  ")
		if err != nil {
			return err
		}
		if args.JSON || p.BoolFlag("json") {
			return writeJSON(out, data, styles.ResolveDark(cfg.UI.Theme))
		}
		fmt.Fprintln(out, titleStyle.Render("Configuration"))
		fmt.Fprintf(out, "%s%s\n", renderLabel("File"), path)
		fmt.Fprintln(out, renderSeparator())
		for _, key := range config.Keys() {
			val, err := cfg.Redacted().Get(key)
			if err != nil {
				continue
			}
			fmt.Fprintf(out, "  %-28s %v\n", key, val)
		}
		return nil

	case "path":
		fmt.Fprintln(out, path)
		return nil

	case "init":
		if _, err := os.Stat(path); err == nil && !p.BoolFlag("force") {
			return fmt.Errorf("%s already exists (use --force to overwrite)", path)
		}
		if err := config.SaveTOML(config.Default(), path); err != nil {
			return err
		}
		fmt.Fprintf(out, "%s %s\n", successStyle.Render("Wrote"), path)
		return nil

	case "get":
		key := p.Positional(1)
		if key == "" {
			return fmt.Errorf("config key required (see: liquidgpt config keys)")
		}
		cfg, err := config.Load()
		if err != nil {
			return err
		}
		val, err := cfg.Redacted().Get(key)
		if err != nil {
			return err
		}
		fmt.Fprintln(out, val)
		return nil

	case "set":
		key, value := p.Positional(1), JoinPositionalArgs(p, 2)
		if key == "" {
			return fmt.Errorf("usage: liquidgpt config set <key> <value>")
		}
		cfg, err := loadFileOnly(path)
		if err != nil {
			return err
		}
		if err := cfg.Set(key, value); err != nil {
			return err
		}
		if err := cfg.Validate(); err != nil {
			return err
		}
		if err := config.SaveTOML(cfg, path); err != nil {
			return err
		}
		shown := value
		if key == "cloud.api_key" {
			shown = "(hidden)"
		}
		fmt.Fprintf(out, "%s %s = %s\n", successStyle.Render("Set"), key, shown)
		return nil

	case "keys":
		for _, key := range config.Keys() {
			fmt.Fprintln(out, key)
		}
		return nil

	case "validate":
		if _, err := config.Load(); err != nil {
			return err
		}
		fmt.Fprintln(out, successStyle.Render("Configuration is valid."))
		return nil

	default:
		return fmt.Errorf("unknown config command %q (try: show, path, init, get, set, keys, validate)", p.Subcommand())
	}
}

// loadFileOnly reads the config file without environment overrides, so
// saving does not persist values that came from the environment.
func loadFileOnly(path string) (*config.Config, error) {
	cfg := config.Default()
	if _, err := os.Stat(path); err == nil {
		if err := config.LoadTOML(cfg, path); err != nil {
			return nil, err
		}
	}
	return cfg, nil
}
