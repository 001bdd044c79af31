// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package config

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/joho/godotenv"
	"go.uber.org/zap/zapcore"

	"github.com/jeranaias/liquidgpt/internal/cloud"
	"github.com/jeranaias/liquidgpt/internal/model"
	"github.com/jeranaias/liquidgpt/internal/storage"
	"github.com/jeranaias/liquidgpt/internal/util"
)

// =============================================================================
// CONFIG STRUCTURES
// =============================================================================

// Config represents the complete liquidgpt configuration.
type Config struct {
	Cloud   CloudConfig   `toml:"cloud" json:"cloud"`
	Chat    ChatConfig    `toml:"chat" json:"chat"`
	Storage StorageConfig `toml:"storage" json:"storage"`
	UI      UIConfig      `toml:"ui" json:"ui"`
	Server  ServerConfig  `toml:"server" json:"server"`
	Logging LoggingConfig `toml:"logging" json:"logging"`
}

// Provider names accepted in cloud.provider.
const (
	ProviderOpenRouter = "openrouter"
	ProviderOpenAI     = "openai"
)

// CloudConfig configures the completion endpoint.
type CloudConfig struct {
	// Provider is "openrouter" (default) or "openai" for any
	// OpenAI-compatible endpoint
	Provider string `toml:"provider" json:"provider"`
	// APIKey authenticates requests
	APIKey string `toml:"api_key" json:"api_key"`
	// BaseURL overrides the provider's default endpoint
	BaseURL string `toml:"base_url" json:"base_url"`
	// SiteURL and SiteName are sent as HTTP-Referer and X-Title
	SiteURL  string `toml:"site_url" json:"site_url"`
	SiteName string `toml:"site_name" json:"site_name"`
	// TimeoutSecs bounds a single request
	TimeoutSecs int `toml:"timeout_secs" json:"timeout_secs"`
	// RequestsPerMinute paces requests client-side (0 = unlimited)
	RequestsPerMinute int `toml:"requests_per_minute" json:"requests_per_minute"`
}

// ChatConfig configures completions.
type ChatConfig struct {
	DefaultModel string `toml:"default_model" json:"default_model"`
}

// StorageConfig configures conversation persistence.
type StorageConfig struct {
	// Backend is "file", "sqlite" or "memory"
	Backend string `toml:"backend" json:"backend"`
	// DataDir holds stored conversations (empty = ~/.liquidgpt)
	DataDir string `toml:"data_dir" json:"data_dir"`
	// MaxConversations caps stored conversations
	MaxConversations int `toml:"max_conversations" json:"max_conversations"`
}

// UIConfig configures terminal rendering.
type UIConfig struct {
	// Theme is "auto", "dark" or "light"
	Theme string `toml:"theme" json:"theme"`
	// RenderMarkdown renders replies with glamour
	RenderMarkdown bool `toml:"render_markdown" json:"render_markdown"`
	// ShowTimestamps prints message times in the REPL and TUI
	ShowTimestamps bool `toml:"show_timestamps" json:"show_timestamps"`
}

// ServerConfig configures the local HTTP API.
type ServerConfig struct {
	Host string `toml:"host" json:"host"`
	Port int    `toml:"port" json:"port"`
}

// LoggingConfig configures the log file.
type LoggingConfig struct {
	// Level is a zap level name: debug, info, warn, error
	Level string `toml:"level" json:"level"`
	// File is the log path (empty = <data dir>/liquidgpt.log)
	File string `toml:"file" json:"file"`
}

// =============================================================================
// DEFAULT CONFIGURATION
// =============================================================================

// Default returns a configuration with default values.
func Default() *Config {
	return &Config{
		Cloud: CloudConfig{
			Provider:          ProviderOpenRouter,
			SiteURL:           cloud.DefaultSiteURL,
			SiteName:          cloud.DefaultSiteName,
			TimeoutSecs:       int(cloud.DefaultTimeout / time.Second),
			RequestsPerMinute: 0,
		},
		Chat: ChatConfig{
			DefaultModel: model.DefaultModel,
		},
		Storage: StorageConfig{
			Backend:          storage.BackendFile,
			MaxConversations: storage.DefaultMaxConversations,
		},
		UI: UIConfig{
			Theme:          "auto",
			RenderMarkdown: true,
		},
		Server: ServerConfig{
			Host: "127.0.0.1",
			Port: 8787,
		},
		Logging: LoggingConfig{
			Level: "info",
		},
	}
}

// =============================================================================
// CONFIG PATH HELPERS
// =============================================================================

// ConfigDir returns the liquidgpt configuration directory path.
// LIQUIDGPT_HOME overrides the default ~/.liquidgpt.
func ConfigDir() (string, error) {
	if dir := os.Getenv("LIQUIDGPT_HOME"); dir != "" {
		return dir, nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("could not determine home directory: %w", err)
	}
	return filepath.Join(home, ".liquidgpt"), nil
}

// ConfigPath returns the path to the TOML config file.
func ConfigPath() (string, error) {
	dir, err := ConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "config.toml"), nil
}

// DataDir returns the directory holding conversations and logs.
func (c *Config) DataDir() (string, error) {
	if c.Storage.DataDir != "" {
		return expandHome(c.Storage.DataDir), nil
	}
	return ConfigDir()
}

// LogPath returns the log file path.
func (c *Config) LogPath() (string, error) {
	if c.Logging.File != "" {
		return expandHome(c.Logging.File), nil
	}
	dir, err := c.DataDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "liquidgpt.log"), nil
}

// Timeout returns the request timeout.
func (c *Config) Timeout() time.Duration {
	return time.Duration(c.Cloud.TimeoutSecs) * time.Second
}

func expandHome(path string) string {
	if path == "~" || strings.HasPrefix(path, "~/") {
		if home, err := os.UserHomeDir(); err == nil {
			return filepath.Join(home, strings.TrimPrefix(path, "~"))
		}
	}
	return path
}

// ensureSecurePermissions checks and fixes permissions on config files.
// SECURITY: Config files should be 0600 (owner read/write only) to protect API keys.
func ensureSecurePermissions(path string) error {
	info, err := os.Stat(path)
	if err != nil {
		return err
	}
	if mode := info.Mode().Perm(); mode != 0600 {
		if err := os.Chmod(path, 0600); err != nil {
			return fmt.Errorf("failed to fix insecure permissions (was %o): %w", mode, err)
		}
	}
	return nil
}

// =============================================================================
// LOAD FUNCTIONS
// =============================================================================

// Load loads ~/.liquidgpt/config.toml (if present) and .env from the
// working directory, then applies environment overrides and validates.
func Load() (*Config, error) {
	path, err := ConfigPath()
	if err != nil {
		return nil, err
	}
	return LoadFrom(path, ".env")
}

// LoadFrom loads the TOML file at path and the dotenv file at envPath.
// Either may be missing.
func LoadFrom(path, envPath string) (*Config, error) {
	cfg := Default()

	if _, statErr := os.Stat(path); statErr == nil {
		if err := LoadTOML(cfg, path); err != nil {
			return nil, fmt.Errorf("failed to load config from %s: %w", path, err)
		}
	}

	if err := LoadDotEnv(envPath); err != nil {
		return nil, err
	}

	cfg.ApplyEnvOverrides()
	cfg.fillDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, nil
}

// LoadTOML decodes a TOML file over cfg.
// SECURITY: Checks and fixes file permissions on load.
func LoadTOML(cfg *Config, path string) error {
	if err := ensureSecurePermissions(path); err != nil {
		fmt.Fprintf(os.Stderr, "Warning: could not ensure secure permissions on %s: %v\n", path, err)
	}

	md, err := toml.DecodeFile(path, cfg)
	if err != nil {
		return fmt.Errorf("failed to decode TOML file: %w", err)
	}
	if undecoded := md.Undecoded(); len(undecoded) > 0 {
		keys := make([]string, len(undecoded))
		for i, k := range undecoded {
			keys[i] = k.String()
		}
		fmt.Fprintf(os.Stderr, "Warning: unknown config keys in %s: %s\n", path, strings.Join(keys, ", "))
	}
	return nil
}

// LoadDotEnv loads KEY=value pairs from a dotenv file into the process
// environment without overriding variables that are already set. A
// missing file is not an error.
func LoadDotEnv(path string) error {
	if path == "" {
		return nil
	}
	if _, err := os.Stat(path); errors.Is(err, os.ErrNotExist) {
		return nil
	}
	if err := godotenv.Load(path); err != nil {
		return fmt.Errorf("failed to load %s: %w", path, err)
	}
	return nil
}

// fillDefaults fills in any missing values with defaults.
func (c *Config) fillDefaults() {
	defaults := Default()

	if c.Cloud.Provider == "" {
		c.Cloud.Provider = defaults.Cloud.Provider
	}
	if c.Cloud.TimeoutSecs == 0 {
		c.Cloud.TimeoutSecs = defaults.Cloud.TimeoutSecs
	}
	if c.Chat.DefaultModel == "" {
		c.Chat.DefaultModel = defaults.Chat.DefaultModel
	}
	if c.Storage.Backend == "" {
		c.Storage.Backend = defaults.Storage.Backend
	}
	if c.UI.Theme == "" {
		c.UI.Theme = defaults.UI.Theme
	}
	if c.Server.Host == "" {
		c.Server.Host = defaults.Server.Host
	}
	if c.Server.Port == 0 {
		c.Server.Port = defaults.Server.Port
	}
	if c.Logging.Level == "" {
		c.Logging.Level = defaults.Logging.Level
	}
}

// =============================================================================
// SAVE FUNCTIONS
// =============================================================================

// Save saves the configuration to the default TOML file.
func Save(cfg *Config) error {
	path, err := ConfigPath()
	if err != nil {
		return err
	}
	return SaveTOML(cfg, path)
}

// SaveTOML writes the configuration atomically with 0600 permissions.
func SaveTOML(cfg *Config, path string) error {
	var buf bytes.Buffer
	buf.WriteString("# liquidgpt configuration file\n")
	buf.WriteString("# The API key may also come from OPENROUTER_API_KEY or a .env file\n\n")

	if err := toml.NewEncoder(&buf).Encode(cfg); err != nil {
		return fmt.Errorf("failed to encode config: %w", err)
	}

	if err := util.AtomicWriteFile(path, buf.Bytes(), 0600); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}
	return nil
}

// =============================================================================
// VALIDATION
// =============================================================================

// ValidationError represents a configuration validation error.
type ValidationError struct {
	Field   string
	Message string
}

func (e ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// ValidateErrors is a collection of validation errors.
type ValidateErrors []ValidationError

func (e ValidateErrors) Error() string {
	if len(e) == 0 {
		return "no validation errors"
	}
	msgs := make([]string, 0, len(e))
	for _, err := range e {
		msgs = append(msgs, err.Error())
	}
	return strings.Join(msgs, "; ")
}

// Validate validates the configuration and returns any errors.
func (c *Config) Validate() error {
	var errs ValidateErrors
	add := func(field, format string, args ...any) {
		errs = append(errs, ValidationError{Field: field, Message: fmt.Sprintf(format, args...)})
	}

	switch c.Cloud.Provider {
	case ProviderOpenRouter, ProviderOpenAI:
	default:
		add("cloud.provider", "must be %q or %q, got %q", ProviderOpenRouter, ProviderOpenAI, c.Cloud.Provider)
	}
	if c.Cloud.BaseURL != "" {
		u, err := url.Parse(c.Cloud.BaseURL)
		if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
			add("cloud.base_url", "must be an http(s) URL, got %q", c.Cloud.BaseURL)
		}
	}
	if c.Cloud.TimeoutSecs < 1 || c.Cloud.TimeoutSecs > 600 {
		add("cloud.timeout_secs", "must be between 1 and 600, got %d", c.Cloud.TimeoutSecs)
	}
	if c.Cloud.RequestsPerMinute < 0 {
		add("cloud.requests_per_minute", "must not be negative, got %d", c.Cloud.RequestsPerMinute)
	}

	if strings.TrimSpace(c.Chat.DefaultModel) == "" {
		add("chat.default_model", "must not be empty")
	}

	switch c.Storage.Backend {
	case storage.BackendFile, storage.BackendSQLite, storage.BackendMemory:
	default:
		add("storage.backend", "must be file, sqlite or memory, got %q", c.Storage.Backend)
	}
	if c.Storage.MaxConversations < 0 {
		add("storage.max_conversations", "must not be negative, got %d", c.Storage.MaxConversations)
	}

	switch c.UI.Theme {
	case "auto", "dark", "light":
	default:
		add("ui.theme", "must be auto, dark or light, got %q", c.UI.Theme)
	}

	if c.Server.Port < 1 || c.Server.Port > 65535 {
		add("server.port", "must be between 1 and 65535, got %d", c.Server.Port)
	}

	if _, err := zapcore.ParseLevel(c.Logging.Level); err != nil {
		add("logging.level", "unknown level %q", c.Logging.Level)
	}

	if len(errs) > 0 {
		return errs
	}
	return nil
}

// RequireAPIKey fails when no API key is configured. Commands that send
// messages call it before starting.
func (c *Config) RequireAPIKey() error {
	if strings.TrimSpace(c.Cloud.APIKey) == "" {
		return fmt.Errorf("%w (or add api_key under [cloud] in the config file)", cloud.ErrNotConfigured)
	}
	return nil
}

// =============================================================================
// ENVIRONMENT OVERRIDES
// =============================================================================

// ApplyEnvOverrides applies environment variable overrides to the config.
//
// Supported environment variables:
//   - OPENROUTER_API_KEY, VITE_OPENROUTER_API_KEY: cloud.api_key
//   - OPENAI_API_KEY: cloud.api_key when cloud.provider is "openai"
//   - LIQUIDGPT_PROVIDER: cloud.provider
//   - LIQUIDGPT_BASE_URL: cloud.base_url
//   - LIQUIDGPT_MODEL: chat.default_model
//   - LIQUIDGPT_STORAGE: storage.backend
//   - LIQUIDGPT_DATA_DIR: storage.data_dir
//   - LIQUIDGPT_LOG_LEVEL: logging.level
func (c *Config) ApplyEnvOverrides() {
	if provider := os.Getenv("LIQUIDGPT_PROVIDER"); provider != "" {
		c.Cloud.Provider = strings.ToLower(provider)
	}

	// The Vite name is accepted so an existing .env keeps working
	for _, name := range []string{"VITE_OPENROUTER_API_KEY", "OPENROUTER_API_KEY"} {
		if key := os.Getenv(name); key != "" {
			c.Cloud.APIKey = key
		}
	}
	if c.Cloud.Provider == ProviderOpenAI {
		if key := os.Getenv("OPENAI_API_KEY"); key != "" {
			c.Cloud.APIKey = key
		}
	}

	if baseURL := os.Getenv("LIQUIDGPT_BASE_URL"); baseURL != "" {
		c.Cloud.BaseURL = baseURL
	}
	if m := os.Getenv("LIQUIDGPT_MODEL"); m != "" {
		c.Chat.DefaultModel = m
	}
	if backend := os.Getenv("LIQUIDGPT_STORAGE"); backend != "" {
		c.Storage.Backend = strings.ToLower(backend)
	}
	if dir := os.Getenv("LIQUIDGPT_DATA_DIR"); dir != "" {
		c.Storage.DataDir = dir
	}
	if level := os.Getenv("LIQUIDGPT_LOG_LEVEL"); level != "" {
		c.Logging.Level = strings.ToLower(level)
	}
}

// =============================================================================
// HELPER FUNCTIONS
// =============================================================================

// Clone returns a copy of the configuration.
func (c *Config) Clone() *Config {
	clone := *c
	return &clone
}

// Redacted returns a copy with the API key replaced by its fingerprint.
func (c *Config) Redacted() *Config {
	safe := c.Clone()
	if safe.Cloud.APIKey != "" {
		safe.Cloud.APIKey = cloud.MaskKey(c.Cloud.APIKey)
	}
	return safe
}

// String returns a JSON representation with secrets redacted.
func (c *Config) String() string {
	data, _ := json.MarshalIndent(c.Redacted(), "", "  ")
	return string(data)
}
