// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/jeranaias/liquidgpt/internal/config"
	"github.com/jeranaias/liquidgpt/internal/model"
	"github.com/jeranaias/liquidgpt/internal/util"
)

// HandleModels prints the model catalog, marking the configured default.
func HandleModels(args Args) error {
	current := model.DefaultModel
	if cfg, err := config.Load(); err == nil {
		current = cfg.Chat.DefaultModel
	}
	if args.Model != "" {
		current = model.ResolveModel(args.Model)
	}

	if args.JSON {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(model.Catalog)
	}
	printModels(os.Stdout, current)
	return nil
}

func printModels(w io.Writer, current string) {
	for i, m := range model.Catalog {
		marker := "  "
		name := util.PadRight(m.DisplayName, 22)
		if m.ID == current {
			marker = successStyle.Render("* ")
			name = assistantStyle.Render(name)
		}
		fmt.Fprintf(w, "%s%2d. %s %s\n", marker, i+1, name, dimStyle.Render(m.ID))
	}
	if _, ok := model.LookupModel(current); !ok && current != "" {
		fmt.Fprintf(w, "%s    %s %s\n", successStyle.Render("* "), util.PadRight("(custom)", 22), dimStyle.Render(current))
	}
}
