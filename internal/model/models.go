// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package model

import (
	"strconv"
	"strings"
)

// =============================================================================
// MODEL CATALOG
// =============================================================================

// ModelInfo is an entry in the model picker.
type ModelInfo struct {
	// ID is passed through to the completion endpoint as-is
	ID string `json:"id"`

	// DisplayName is the label shown in pickers and status lines
	DisplayName string `json:"name"`
}

// DefaultModel is the model selected when nothing else is configured.
const DefaultModel = "deepseek/deepseek-r1-0528:free"

// Catalog is the static list of selectable models. Selected ids are not
// validated against it before sending.
var Catalog = []ModelInfo{
	{ID: "arcee-ai/trinity-large-preview:free", DisplayName: "Trinity Large"},
	{ID: "openrouter/pony-alpha", DisplayName: "Pony Alpha"},
	{ID: "tngtech/deepseek-r1t2-chimera:free", DisplayName: "DeepSeek R1-T2"},
	{ID: "stepfun/step-3.5-flash:free", DisplayName: "Step 3.5 Flash"},
	{ID: "z-ai/glm-4.5-air:free", DisplayName: "GLM 4.5 Air"},
	{ID: "tngtech/deepseek-r1t-chimera:free", DisplayName: "DeepSeek R1-T"},
	{ID: "nvidia/nemotron-3-nano-30b-a3b:free", DisplayName: "Nemotron Nano 30B"},
	{ID: "deepseek/deepseek-r1-0528:free", DisplayName: "DeepSeek R1"},
	{ID: "tngtech/tng-r1t-chimera:free", DisplayName: "TNG R1-T"},
	{ID: "openai/gpt-oss-120b:free", DisplayName: "GPT OSS 120B"},
	{ID: "qwen/qwen3-coder:free", DisplayName: "Qwen3 Coder"},
	{ID: "meta-llama/llama-3.3-70b-instruct:free", DisplayName: "Llama 3.3 70B"},
	{ID: "upstage/solar-pro-3:free", DisplayName: "Solar Pro 3"},
	{ID: "arcee-ai/trinity-mini:free", DisplayName: "Trinity Mini"},
	{ID: "nvidia/nemotron-nano-12b-v2-vl:free", DisplayName: "Nemotron Nano 12B VL"},
	{ID: "openrouter/aurora-alpha", DisplayName: "Aurora Alpha"},
}

// LookupModel returns the catalog entry for id.
func LookupModel(id string) (ModelInfo, bool) {
	for _, m := range Catalog {
		if m.ID == id {
			return m, true
		}
	}
	return ModelInfo{}, false
}

// DisplayName returns the catalog name for id, or id itself when the model
// is not in the catalog.
func DisplayName(id string) string {
	if m, ok := LookupModel(id); ok {
		return m.DisplayName
	}
	return id
}

// ResolveModel maps a picker selection to a model id. It accepts a 1-based
// catalog index, an exact id, or a case-insensitive display name; anything
// else is returned unchanged so custom ids still work.
func ResolveModel(selection string) string {
	selection = strings.TrimSpace(selection)
	if n, err := strconv.Atoi(selection); err == nil && n >= 1 && n <= len(Catalog) {
		return Catalog[n-1].ID
	}
	for _, m := range Catalog {
		if m.ID == selection || strings.EqualFold(m.DisplayName, selection) {
			return m.ID
		}
	}
	return selection
}
