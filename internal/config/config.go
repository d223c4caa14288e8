// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package config provides unified configuration loading and management for advisor-tui.
//
// Supports both TOML and JSON configuration formats, with sensible defaults,
// environment variable overrides, and validation.
//
// Configuration file locations (in order of precedence):
//   - ~/.advisor/config.toml
//   - ~/.advisor/config.json
//   - Built-in defaults
package config

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"sync"

	"encoding/json"

	"github.com/BurntSushi/toml"

	"github.com/jeranaias/advisor-tui/internal/util"
)

// =============================================================================
// CONFIG STRUCTURES
// =============================================================================

// Config represents the complete advisor-tui configuration.
type Config struct {
	// Version is the config schema version.
	Version string `toml:"version" json:"version"`

	// Agent backend configuration
	Agent AgentConfig `toml:"agent" json:"agent"`

	// UI configuration
	UI UIConfig `toml:"ui" json:"ui"`

	// Chart subsystem configuration
	Charts ChartsConfig `toml:"charts" json:"charts"`

	// Session storage configuration
	Sessions SessionsConfig `toml:"sessions" json:"sessions"`

	// Mock authentication configuration
	Auth AuthConfig `toml:"auth" json:"auth"`

	// Diagnostic logging configuration
	Logging LoggingConfig `toml:"logging" json:"logging"`
}

// AgentConfig contains advisor agent backend settings.
type AgentConfig struct {
	// BaseURL is the advisor agent endpoint.
	BaseURL string `toml:"base_url" json:"base_url"`
	// TimeoutSecs is the per-request timeout in seconds (streaming reads excluded).
	TimeoutSecs int `toml:"timeout_secs" json:"timeout_secs"`
	// MaxRetries is the retry budget for retryable stream failures.
	MaxRetries int `toml:"max_retries" json:"max_retries"`
	// RequestsPerMinute rate-limits outbound sends. 0 disables limiting.
	RequestsPerMinute int `toml:"requests_per_minute" json:"requests_per_minute"`
}

// UIConfig contains user interface settings.
type UIConfig struct {
	// Theme is the color theme: "dark" or "light".
	Theme string `toml:"theme" json:"theme"`
	// ShowTimestamps includes per-message timestamps in the transcript.
	ShowTimestamps bool `toml:"show_timestamps" json:"show_timestamps"`
	// Suggestions toggles follow-up prompt chips under the composer.
	Suggestions bool `toml:"suggestions" json:"suggestions"`
	// SyntaxHighlight toggles chroma highlighting of non-chart code blocks.
	SyntaxHighlight bool `toml:"syntax_highlight" json:"syntax_highlight"`
}

// ChartsConfig contains the chart scanner and widget settings.
type ChartsConfig struct {
	// ScanDebounceMs is the trailing-edge debounce for scan triggers.
	ScanDebounceMs int `toml:"scan_debounce_ms" json:"scan_debounce_ms"`
	// MaxWidgets caps the number of simultaneously mounted widgets.
	MaxWidgets int `toml:"max_widgets" json:"max_widgets"`
	// PrefsPath overrides the preference database location
	// (empty = ~/.advisor/prefs.db).
	PrefsPath string `toml:"prefs_path" json:"prefs_path"`
}

// SessionsConfig contains session persistence settings.
type SessionsConfig struct {
	// Dir overrides the session directory (empty = ~/.advisor/sessions).
	Dir string `toml:"dir" json:"dir"`
	// MaxSessions caps stored sessions; oldest are pruned beyond it.
	MaxSessions int `toml:"max_sessions" json:"max_sessions"`
	// AutoSave persists the active session after every completed reply.
	AutoSave bool `toml:"auto_save" json:"auto_save"`
}

// AuthConfig contains mock authentication settings.
type AuthConfig struct {
	// Required gates the TUI behind the demo login screen.
	Required bool `toml:"required" json:"required"`
	// TOTP enables the demo one-time-code step after password entry.
	TOTP bool `toml:"totp" json:"totp"`
	// TokenTTLHours is the lifetime of the local login token.
	TokenTTLHours int `toml:"token_ttl_hours" json:"token_ttl_hours"`
}

// LoggingConfig contains diagnostic logging settings.
type LoggingConfig struct {
	// Level is one of "debug", "info", "warn", "error".
	Level string `toml:"level" json:"level"`
	// Path overrides the log file location (empty = ~/.advisor/advisor.log).
	Path string `toml:"path" json:"path"`
}

// =============================================================================
// DEFAULTS
// =============================================================================

// Default returns the default configuration.
func Default() *Config {
	return &Config{
		Version: "1",
		Agent: AgentConfig{
			BaseURL:           "http://localhost:8000",
			TimeoutSecs:       30,
			MaxRetries:        3,
			RequestsPerMinute: 30,
		},
		UI: UIConfig{
			Theme:           "dark",
			ShowTimestamps:  false,
			Suggestions:     true,
			SyntaxHighlight: true,
		},
		Charts: ChartsConfig{
			ScanDebounceMs: 100,
			MaxWidgets:     64,
		},
		Sessions: SessionsConfig{
			MaxSessions: 100,
			AutoSave:    true,
		},
		Auth: AuthConfig{
			Required:      true,
			TOTP:          false,
			TokenTTLHours: 24,
		},
		Logging: LoggingConfig{
			Level: "info",
		},
	}
}

// =============================================================================
// PATHS
// =============================================================================

// StateDir returns the advisor state directory (~/.advisor).
func StateDir() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("could not determine home directory: %w", err)
	}
	return filepath.Join(home, ".advisor"), nil
}

// ConfigPathTOML returns the path to the TOML config file.
func ConfigPathTOML() (string, error) {
	dir, err := StateDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "config.toml"), nil
}

// ConfigPathJSON returns the path to the JSON config file.
func ConfigPathJSON() (string, error) {
	dir, err := StateDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "config.json"), nil
}

// EnsureStateDir ensures the state directory exists.
func EnsureStateDir() error {
	dir, err := StateDir()
	if err != nil {
		return err
	}
	return os.MkdirAll(dir, 0755)
}

// SessionsDir resolves the session storage directory.
func (c *Config) SessionsDir() (string, error) {
	if c.Sessions.Dir != "" {
		return c.Sessions.Dir, nil
	}
	dir, err := StateDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "sessions"), nil
}

// PrefsPath resolves the preference database path.
func (c *Config) PrefsPath() (string, error) {
	if c.Charts.PrefsPath != "" {
		return c.Charts.PrefsPath, nil
	}
	dir, err := StateDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "prefs.db"), nil
}

// LogPath resolves the diagnostic log file path.
func (c *Config) LogPath() (string, error) {
	if c.Logging.Path != "" {
		return c.Logging.Path, nil
	}
	dir, err := StateDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "advisor.log"), nil
}

// AuthPath returns the login token file path.
func AuthPath() (string, error) {
	dir, err := StateDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "auth.json"), nil
}

// ensureSecurePermissions checks and fixes permissions on config files.
// SECURITY: Config files should be 0600 (owner read/write only).
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

// Load loads configuration from the config file(s).
// Tries TOML first, then JSON, and falls back to defaults.
// Environment overrides are applied last.
func Load() (*Config, error) {
	cfg := Default()
	var loadErr error

	if tomlPath, err := ConfigPathTOML(); err == nil {
		if _, statErr := os.Stat(tomlPath); statErr == nil {
			if err := LoadTOML(cfg, tomlPath); err != nil {
				loadErr = fmt.Errorf("failed to load TOML config: %w", err)
			} else {
				return finishLoad(cfg)
			}
		}
	}

	if jsonPath, err := ConfigPathJSON(); err == nil {
		if _, statErr := os.Stat(jsonPath); statErr == nil {
			if err := LoadJSON(cfg, jsonPath); err != nil {
				loadErr = fmt.Errorf("failed to load JSON config: %w", err)
			} else {
				return finishLoad(cfg)
			}
		}
	}

	cfg2, err := finishLoad(cfg)
	if err != nil {
		return nil, err
	}
	return cfg2, loadErr
}

func finishLoad(cfg *Config) (*Config, error) {
	cfg.ApplyEnvOverrides()
	cfg.SetDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, nil
}

// LoadTOML loads configuration from a TOML file.
func LoadTOML(cfg *Config, path string) error {
	if err := ensureSecurePermissions(path); err != nil && !os.IsNotExist(err) {
		fmt.Fprintf(os.Stderr, "Warning: could not ensure secure permissions on %s: %v\n", path, err)
	}
	if _, err := toml.DecodeFile(path, cfg); err != nil {
		return fmt.Errorf("failed to decode TOML file: %w", err)
	}
	return nil
}

// LoadJSON loads configuration from a JSON file.
func LoadJSON(cfg *Config, path string) error {
	if err := ensureSecurePermissions(path); err != nil && !os.IsNotExist(err) {
		fmt.Fprintf(os.Stderr, "Warning: could not ensure secure permissions on %s: %v\n", path, err)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read JSON file: %w", err)
	}
	if err := json.Unmarshal(data, cfg); err != nil {
		return fmt.Errorf("failed to decode JSON file: %w", err)
	}
	return nil
}

// LoadFromPath loads configuration from a specific file with full validation.
func LoadFromPath(path string) (*Config, error) {
	cfg := Default()
	if strings.HasSuffix(path, ".json") {
		if err := LoadJSON(cfg, path); err != nil {
			return nil, fmt.Errorf("failed to load JSON config from %s: %w", path, err)
		}
	} else {
		if err := LoadTOML(cfg, path); err != nil {
			return nil, fmt.Errorf("failed to load TOML config from %s: %w", path, err)
		}
	}
	return finishLoad(cfg)
}

// =============================================================================
// SAVE FUNCTIONS
// =============================================================================

// Save writes the configuration to the TOML config file.
func Save(cfg *Config) error {
	path, err := ConfigPathTOML()
	if err != nil {
		return err
	}
	return SaveTOML(cfg, path)
}

// SaveTOML writes the configuration to a TOML file with 0600 permissions.
func SaveTOML(cfg *Config, path string) error {
	var buf strings.Builder
	if err := toml.NewEncoder(&buf).Encode(cfg); err != nil {
		return fmt.Errorf("failed to encode TOML: %w", err)
	}
	if err := util.AtomicWriteFile(path, []byte(buf.String()), 0600); err != nil {
		return fmt.Errorf("failed to write config: %w", err)
	}
	return nil
}

// =============================================================================
// VALIDATION
// =============================================================================

// ValidationError describes a single invalid configuration field.
type ValidationError struct {
	Field   string
	Message string
}

func (e ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// ValidateErrors aggregates all validation failures.
type ValidateErrors []ValidationError

func (e ValidateErrors) Error() string {
	msgs := make([]string, len(e))
	for i, v := range e {
		msgs[i] = v.Error()
	}
	return strings.Join(msgs, "; ")
}

// Validate checks the configuration for invalid values.
func (c *Config) Validate() error {
	var errs ValidateErrors

	if c.Agent.BaseURL != "" {
		if u, err := url.Parse(c.Agent.BaseURL); err != nil || (u.Scheme != "http" && u.Scheme != "https") {
			errs = append(errs, ValidationError{"agent.base_url", "must be an http(s) URL"})
		}
	}
	if c.Agent.TimeoutSecs < 0 {
		errs = append(errs, ValidationError{"agent.timeout_secs", "must be >= 0"})
	}
	if c.Agent.MaxRetries < 0 {
		errs = append(errs, ValidationError{"agent.max_retries", "must be >= 0"})
	}
	if c.UI.Theme != "dark" && c.UI.Theme != "light" {
		errs = append(errs, ValidationError{"ui.theme", `must be "dark" or "light"`})
	}
	if c.Charts.ScanDebounceMs < 0 {
		errs = append(errs, ValidationError{"charts.scan_debounce_ms", "must be >= 0"})
	}
	if c.Charts.MaxWidgets < 1 {
		errs = append(errs, ValidationError{"charts.max_widgets", "must be >= 1"})
	}
	if c.Sessions.MaxSessions < 1 {
		errs = append(errs, ValidationError{"sessions.max_sessions", "must be >= 1"})
	}
	if c.Auth.TokenTTLHours < 1 {
		errs = append(errs, ValidationError{"auth.token_ttl_hours", "must be >= 1"})
	}
	switch c.Logging.Level {
	case "debug", "info", "warn", "error":
	default:
		errs = append(errs, ValidationError{"logging.level", "must be debug, info, warn or error"})
	}

	if len(errs) > 0 {
		return errs
	}
	return nil
}

// SetDefaults fills zero values with defaults after a partial file load.
func (c *Config) SetDefaults() {
	def := Default()
	if c.Version == "" {
		c.Version = def.Version
	}
	if c.Agent.BaseURL == "" {
		c.Agent.BaseURL = def.Agent.BaseURL
	}
	if c.Agent.TimeoutSecs == 0 {
		c.Agent.TimeoutSecs = def.Agent.TimeoutSecs
	}
	if c.Agent.MaxRetries == 0 {
		c.Agent.MaxRetries = def.Agent.MaxRetries
	}
	if c.UI.Theme == "" {
		c.UI.Theme = def.UI.Theme
	}
	if c.Charts.ScanDebounceMs == 0 {
		c.Charts.ScanDebounceMs = def.Charts.ScanDebounceMs
	}
	if c.Charts.MaxWidgets == 0 {
		c.Charts.MaxWidgets = def.Charts.MaxWidgets
	}
	if c.Sessions.MaxSessions == 0 {
		c.Sessions.MaxSessions = def.Sessions.MaxSessions
	}
	if c.Auth.TokenTTLHours == 0 {
		c.Auth.TokenTTLHours = def.Auth.TokenTTLHours
	}
	if c.Logging.Level == "" {
		c.Logging.Level = def.Logging.Level
	}
}

// =============================================================================
// ENVIRONMENT OVERRIDES
// =============================================================================

// ApplyEnvOverrides applies ADVISOR_* environment variables over file values.
func (c *Config) ApplyEnvOverrides() {
	if v := os.Getenv("ADVISOR_AGENT_URL"); v != "" {
		c.Agent.BaseURL = v
	}
	if v := os.Getenv("ADVISOR_THEME"); v != "" {
		c.UI.Theme = v
	}
	if v := os.Getenv("ADVISOR_LOG_LEVEL"); v != "" {
		c.Logging.Level = v
	}
	if v := os.Getenv("ADVISOR_SESSIONS_DIR"); v != "" {
		c.Sessions.Dir = v
	}
	if v := os.Getenv("ADVISOR_AUTH_REQUIRED"); v != "" {
		c.Auth.Required = v == "1" || strings.ToLower(v) == "true"
	}
	if v := os.Getenv("ADVISOR_SCAN_DEBOUNCE_MS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n >= 0 {
			c.Charts.ScanDebounceMs = n
		}
	}
}

// =============================================================================
// GLOBAL INSTANCE
// =============================================================================

var (
	globalConfig     *Config
	globalConfigOnce sync.Once
	globalConfigMu   sync.RWMutex
)

// Global returns the global configuration instance.
// Loads configuration on first access. Thread-safe.
func Global() *Config {
	globalConfigOnce.Do(func() {
		cfg, err := Load()
		if err != nil {
			fmt.Fprintf(os.Stderr, "Warning: %v (using defaults)\n", err)
			cfg = Default()
		}
		globalConfig = cfg
	})

	globalConfigMu.RLock()
	defer globalConfigMu.RUnlock()
	return globalConfig
}

// ReloadGlobal reloads the global configuration from disk. Thread-safe.
func ReloadGlobal() error {
	cfg, err := Load()
	if err != nil {
		return err
	}
	globalConfigMu.Lock()
	defer globalConfigMu.Unlock()
	globalConfig = cfg
	return nil
}

// SetGlobal sets the global configuration instance. Thread-safe.
func SetGlobal(cfg *Config) {
	globalConfigMu.Lock()
	defer globalConfigMu.Unlock()
	globalConfig = cfg
}

// ResetGlobalForTesting resets the global config state between test runs.
func ResetGlobalForTesting() {
	globalConfigMu.Lock()
	defer globalConfigMu.Unlock()
	globalConfig = nil
	globalConfigOnce = sync.Once{}
}

var errNotFound = errors.New("config key not found")

// Get retrieves a configuration value using dot notation, for the /config
// slash command. Only leaf keys are addressable.
func (c *Config) Get(key string) (interface{}, error) {
	switch key {
	case "agent.base_url":
		return c.Agent.BaseURL, nil
	case "agent.timeout_secs":
		return c.Agent.TimeoutSecs, nil
	case "ui.theme":
		return c.UI.Theme, nil
	case "ui.suggestions":
		return c.UI.Suggestions, nil
	case "charts.scan_debounce_ms":
		return c.Charts.ScanDebounceMs, nil
	case "charts.max_widgets":
		return c.Charts.MaxWidgets, nil
	case "sessions.max_sessions":
		return c.Sessions.MaxSessions, nil
	case "auth.required":
		return c.Auth.Required, nil
	case "logging.level":
		return c.Logging.Level, nil
	default:
		return nil, fmt.Errorf("%w: %s", errNotFound, key)
	}
}

// Keys returns the addressable configuration keys, sorted. Used for
// /config tab completion.
func Keys() []string {
	return []string{
		"agent.base_url",
		"agent.timeout_secs",
		"auth.required",
		"charts.max_widgets",
		"charts.scan_debounce_ms",
		"logging.level",
		"sessions.max_sessions",
		"ui.suggestions",
		"ui.theme",
	}
}
