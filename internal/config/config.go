// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package config provides configuration loading and management for docchat.
//
// Configuration file location: ~/.docchat/config.toml (or $DOCCHAT_HOME).
// Values from the file sit on top of built-in defaults; a .env file and
// DOCCHAT_* environment variables are applied last.
package config

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"reflect"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/joho/godotenv"
)

// =============================================================================
// CONFIG STRUCTURES
// =============================================================================

// Config represents the complete docchat configuration.
type Config struct {
	API     APIConfig     `toml:"api"`
	Storage StorageConfig `toml:"storage"`
	Log     LogConfig     `toml:"log"`
	UI      UIConfig      `toml:"ui"`
	Watch   WatchConfig   `toml:"watch"`
}

// APIConfig points docchat at the document-chat service.
type APIConfig struct {
	BaseURL string `toml:"base_url"`

	// TimeoutSecs bounds each HTTP request. 0 leaves requests unbounded.
	TimeoutSecs int `toml:"timeout_secs"`

	// DocumentCacheSecs is how long a document listing is reused.
	DocumentCacheSecs int `toml:"document_cache_secs"`

	// Token is a bearer token that overrides the one saved by `docchat login`.
	// Normally supplied through DOCCHAT_TOKEN rather than written to disk.
	Token string `toml:"token,omitempty"`
}

// StorageConfig selects where conversations and credentials are kept.
type StorageConfig struct {
	Backend   string `toml:"backend"` // file, sqlite, memory
	DataDir   string `toml:"data_dir"`
	Namespace string `toml:"namespace"`
}

// LogConfig controls the rotating JSON log file.
type LogConfig struct {
	Level      string `toml:"level"`
	File       string `toml:"file"`
	MaxSizeMB  int    `toml:"max_size_mb"`
	MaxBackups int    `toml:"max_backups"`
	MaxAgeDays int    `toml:"max_age_days"`
}

// UIConfig holds presentation preferences.
type UIConfig struct {
	Greeting  string `toml:"greeting"`
	Markdown  bool   `toml:"markdown"`
	ToastSecs int    `toml:"toast_secs"`
}

// WatchConfig tunes `docchat docs watch`.
type WatchConfig struct {
	UploadsPerSec float64  `toml:"uploads_per_sec"`
	Extensions    []string `toml:"extensions"`
	MaxFileMB     int      `toml:"max_file_mb"`
}

// DefaultGreeting seeds every new conversation.
const DefaultGreeting = "Hello! I can answer questions about the documents you've uploaded. What would you like to know?"

// Default returns the built-in configuration.
func Default() *Config {
	dataDir, logFile := "", ""
	if dir, err := ConfigDir(); err == nil {
		dataDir = dir
		logFile = filepath.Join(dir, "logs", "docchat.log")
	}
	return &Config{
		API: APIConfig{
			BaseURL:           "http://localhost:8000",
			TimeoutSecs:       0,
			DocumentCacheSecs: 30,
		},
		Storage: StorageConfig{
			Backend:   "file",
			DataDir:   dataDir,
			Namespace: "docchat",
		},
		Log: LogConfig{
			Level:      "info",
			File:       logFile,
			MaxSizeMB:  10,
			MaxBackups: 5,
			MaxAgeDays: 30,
		},
		UI: UIConfig{
			Greeting:  DefaultGreeting,
			Markdown:  true,
			ToastSecs: 6,
		},
		Watch: WatchConfig{
			UploadsPerSec: 1,
			Extensions:    []string{".pdf", ".docx", ".txt", ".md", ".csv"},
			MaxFileMB:     10,
		},
	}
}

// RequestTimeout returns the HTTP timeout, zero meaning none.
func (c *Config) RequestTimeout() time.Duration {
	return time.Duration(c.API.TimeoutSecs) * time.Second
}

// DocumentCacheTTL returns how long document listings are cached.
func (c *Config) DocumentCacheTTL() time.Duration {
	return time.Duration(c.API.DocumentCacheSecs) * time.Second
}

// =============================================================================
// CONFIG PATH HELPERS
// =============================================================================

// ConfigDir returns the docchat configuration directory path.
func ConfigDir() (string, error) {
	if dir := os.Getenv("DOCCHAT_HOME"); dir != "" {
		return dir, nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("could not determine home directory: %w", err)
	}
	return filepath.Join(home, ".docchat"), nil
}

// ConfigPath returns the path to the TOML config file.
func ConfigPath() (string, error) {
	dir, err := ConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "config.toml"), nil
}

// ensureSecurePermissions tightens a config file to 0600.
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

// Load reads the default config file, falling back to defaults when it does
// not exist.
func Load() (*Config, error) {
	path, err := ConfigPath()
	if err != nil {
		return nil, err
	}
	return LoadFromPath(path)
}

// LoadFromPath reads the TOML file at path (if present), then applies .env
// files, environment overrides and validation.
func LoadFromPath(path string) (*Config, error) {
	cfg := Default()

	if _, statErr := os.Stat(path); statErr == nil {
		if err := LoadTOML(cfg, path); err != nil {
			return nil, fmt.Errorf("failed to load config from %s: %w", path, err)
		}
	}

	LoadDotEnv(".env", filepath.Join(filepath.Dir(path), ".env"))
	cfg.ApplyEnvOverrides()

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, nil
}

// LoadTOML decodes path over cfg and fills anything left empty.
func LoadTOML(cfg *Config, path string) error {
	if err := ensureSecurePermissions(path); err != nil {
		fmt.Fprintf(os.Stderr, "Warning: could not ensure secure permissions on %s: %v\n", path, err)
	}

	if _, err := toml.DecodeFile(path, cfg); err != nil {
		return fmt.Errorf("failed to decode TOML file: %w", err)
	}
	fillDefaults(cfg)
	return nil
}

// LoadDotEnv loads KEY=VALUE files into the process environment. Missing
// files are skipped and variables already set are never overwritten, so
// earlier paths win.
func LoadDotEnv(paths ...string) {
	for _, p := range paths {
		if _, err := os.Stat(p); err != nil {
			continue
		}
		if err := godotenv.Load(p); err != nil {
			fmt.Fprintf(os.Stderr, "Warning: could not load %s: %v\n", p, err)
		}
	}
}

// fillDefaults fills in any missing values with defaults.
func fillDefaults(cfg *Config) {
	defaults := Default()

	if cfg.API.BaseURL == "" {
		cfg.API.BaseURL = defaults.API.BaseURL
	}
	if cfg.Storage.Backend == "" {
		cfg.Storage.Backend = defaults.Storage.Backend
	}
	if cfg.Storage.DataDir == "" {
		cfg.Storage.DataDir = defaults.Storage.DataDir
	}
	if cfg.Storage.Namespace == "" {
		cfg.Storage.Namespace = defaults.Storage.Namespace
	}
	if cfg.Log.Level == "" {
		cfg.Log.Level = defaults.Log.Level
	}
	if cfg.UI.Greeting == "" {
		cfg.UI.Greeting = defaults.UI.Greeting
	}
	if cfg.UI.ToastSecs == 0 {
		cfg.UI.ToastSecs = defaults.UI.ToastSecs
	}
	if cfg.Watch.UploadsPerSec == 0 {
		cfg.Watch.UploadsPerSec = defaults.Watch.UploadsPerSec
	}
	if len(cfg.Watch.Extensions) == 0 {
		cfg.Watch.Extensions = defaults.Watch.Extensions
	}
	if cfg.Watch.MaxFileMB == 0 {
		cfg.Watch.MaxFileMB = defaults.Watch.MaxFileMB
	}
}

// =============================================================================
// SAVE FUNCTIONS
// =============================================================================

// Save writes cfg to the default config file.
func Save(cfg *Config) error {
	path, err := ConfigPath()
	if err != nil {
		return err
	}
	return SaveTOML(cfg, path)
}

// SaveTOML writes cfg to path with 0600 permissions.
func SaveTOML(cfg *Config, path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0700); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	file, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0600)
	if err != nil {
		return fmt.Errorf("failed to create config file: %w", err)
	}
	defer file.Close()

	if err := os.Chmod(path, 0600); err != nil {
		return fmt.Errorf("failed to set config file permissions: %w", err)
	}

	fmt.Fprintln(file, "# docchat configuration file")
	fmt.Fprintln(file, "# Generated by docchat - edit with care")
	fmt.Fprintln(file, "")

	// The token is only ever taken from the environment or `docchat login`
	out := *cfg
	out.API.Token = ""

	if err := toml.NewEncoder(file).Encode(out); err != nil {
		return fmt.Errorf("failed to encode config: %w", err)
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

// Validate reports every invalid setting at once.
func (c *Config) Validate() error {
	var errs ValidateErrors

	u, err := url.Parse(c.API.BaseURL)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		errs = append(errs, ValidationError{
			Field:   "api.base_url",
			Message: fmt.Sprintf("invalid URL '%s', must be http(s)://host[:port]", c.API.BaseURL),
		})
	}
	if c.API.TimeoutSecs < 0 {
		errs = append(errs, ValidationError{Field: "api.timeout_secs", Message: "must not be negative"})
	}
	if c.API.DocumentCacheSecs < 0 {
		errs = append(errs, ValidationError{Field: "api.document_cache_secs", Message: "must not be negative"})
	}

	switch strings.ToLower(c.Storage.Backend) {
	case "file", "sqlite", "memory":
	default:
		errs = append(errs, ValidationError{
			Field:   "storage.backend",
			Message: fmt.Sprintf("invalid backend '%s', must be one of: file, sqlite, memory", c.Storage.Backend),
		})
	}
	if c.Storage.Backend != "memory" && c.Storage.DataDir == "" {
		errs = append(errs, ValidationError{Field: "storage.data_dir", Message: "required for persistent backends"})
	}

	switch strings.ToLower(c.Log.Level) {
	case "debug", "info", "warn", "warning", "error":
	default:
		errs = append(errs, ValidationError{
			Field:   "log.level",
			Message: fmt.Sprintf("invalid level '%s', must be one of: debug, info, warn, error", c.Log.Level),
		})
	}

	if c.UI.ToastSecs < 0 {
		errs = append(errs, ValidationError{Field: "ui.toast_secs", Message: "must not be negative"})
	}

	if c.Watch.UploadsPerSec <= 0 {
		errs = append(errs, ValidationError{Field: "watch.uploads_per_sec", Message: "must be positive"})
	}
	for _, ext := range c.Watch.Extensions {
		if !strings.HasPrefix(ext, ".") {
			errs = append(errs, ValidationError{
				Field:   "watch.extensions",
				Message: fmt.Sprintf("extension '%s' must start with a dot", ext),
			})
		}
	}

	if len(errs) > 0 {
		return errs
	}
	return nil
}

// =============================================================================
// ENVIRONMENT OVERRIDES
// =============================================================================

// ApplyEnvOverrides applies DOCCHAT_* environment variables:
//   - DOCCHAT_API_URL: overrides api.base_url
//   - DOCCHAT_TOKEN: bearer token, takes precedence over the saved login
//   - DOCCHAT_STORAGE_BACKEND: overrides storage.backend
//   - DOCCHAT_DATA_DIR: overrides storage.data_dir
//   - DOCCHAT_LOG_LEVEL: overrides log.level
//   - DOCCHAT_LOG_FILE: overrides log.file
func (c *Config) ApplyEnvOverrides() {
	if v := os.Getenv("DOCCHAT_API_URL"); v != "" {
		c.API.BaseURL = strings.TrimRight(v, "/")
	}
	if v := os.Getenv("DOCCHAT_TOKEN"); v != "" {
		c.API.Token = v
	}
	if v := os.Getenv("DOCCHAT_STORAGE_BACKEND"); v != "" {
		c.Storage.Backend = strings.ToLower(v)
	}
	if v := os.Getenv("DOCCHAT_DATA_DIR"); v != "" {
		c.Storage.DataDir = v
	}
	if v := os.Getenv("DOCCHAT_LOG_LEVEL"); v != "" {
		c.Log.Level = v
	}
	if v := os.Getenv("DOCCHAT_LOG_FILE"); v != "" {
		c.Log.File = v
	}
}

// =============================================================================
// GET/SET HELPERS (DOT NOTATION)
// =============================================================================

// Get retrieves a configuration value using dot notation (e.g. "api.base_url").
func (c *Config) Get(key string) (interface{}, error) {
	field, err := c.lookup(key)
	if err != nil {
		return nil, err
	}
	return field.Interface(), nil
}

// Set sets a configuration value using dot notation. String values are
// converted to the field's type.
func (c *Config) Set(key string, value interface{}) error {
	field, err := c.lookup(key)
	if err != nil {
		return err
	}
	if !field.CanSet() {
		return fmt.Errorf("cannot set field: %s", key)
	}
	return setFieldValue(field, value)
}

func (c *Config) lookup(key string) (reflect.Value, error) {
	if strings.TrimSpace(key) == "" {
		return reflect.Value{}, errors.New("empty key")
	}
	parts := strings.Split(key, ".")

	v := reflect.ValueOf(c).Elem()
	for i, part := range parts {
		name := normalizeFieldName(part)
		field := v.FieldByNameFunc(func(n string) bool {
			return strings.EqualFold(n, name)
		})
		if !field.IsValid() {
			return reflect.Value{}, fmt.Errorf("unknown field: %s", strings.Join(parts[:i+1], "."))
		}
		if i == len(parts)-1 {
			if field.Kind() == reflect.Struct {
				return reflect.Value{}, fmt.Errorf("'%s' is a section, not a value", key)
			}
			return field, nil
		}
		if field.Kind() != reflect.Struct {
			return reflect.Value{}, fmt.Errorf("field '%s' is not a struct", strings.Join(parts[:i+1], "."))
		}
		v = field
	}
	return reflect.Value{}, fmt.Errorf("invalid key: %s", key)
}

// normalizeFieldName converts snake_case or kebab-case to a Go field name.
func normalizeFieldName(name string) string {
	parts := strings.FieldsFunc(name, func(r rune) bool {
		return r == '_' || r == '-'
	})

	var result strings.Builder
	for _, part := range parts {
		result.WriteString(strings.ToUpper(part[:1]))
		result.WriteString(strings.ToLower(part[1:]))
	}
	return result.String()
}

func setFieldValue(field reflect.Value, value interface{}) error {
	if s, ok := value.(string); ok {
		switch field.Kind() {
		case reflect.String:
			field.SetString(s)
			return nil
		case reflect.Int, reflect.Int64:
			n, err := strconv.ParseInt(s, 10, 64)
			if err != nil {
				return fmt.Errorf("invalid integer value: %v", err)
			}
			field.SetInt(n)
			return nil
		case reflect.Float64:
			f, err := strconv.ParseFloat(s, 64)
			if err != nil {
				return fmt.Errorf("invalid float value: %v", err)
			}
			field.SetFloat(f)
			return nil
		case reflect.Bool:
			b := strings.ToLower(s)
			field.SetBool(b == "1" || b == "true" || b == "yes")
			return nil
		case reflect.Slice:
			if field.Type().Elem().Kind() == reflect.String {
				var items []string
				for _, item := range strings.Split(s, ",") {
					if item = strings.TrimSpace(item); item != "" {
						items = append(items, item)
					}
				}
				field.Set(reflect.ValueOf(items))
				return nil
			}
		}
	}

	val := reflect.ValueOf(value)
	if val.Type().AssignableTo(field.Type()) {
		field.Set(val)
		return nil
	}
	if val.Type().ConvertibleTo(field.Type()) {
		field.Set(val.Convert(field.Type()))
		return nil
	}
	return fmt.Errorf("cannot assign %T to %s", value, field.Type())
}

// AllKeys returns every settable key in dot notation, sorted.
func AllKeys() []string {
	var keys []string
	t := reflect.TypeOf(Config{})
	for i := 0; i < t.NumField(); i++ {
		section := t.Field(i)
		prefix := strings.Split(section.Tag.Get("toml"), ",")[0]
		for j := 0; j < section.Type.NumField(); j++ {
			name := strings.Split(section.Type.Field(j).Tag.Get("toml"), ",")[0]
			keys = append(keys, prefix+"."+name)
		}
	}
	sort.Strings(keys)
	return keys
}

// String renders cfg as TOML with the token masked.
func (c *Config) String() string {
	out := *c
	if out.API.Token != "" {
		out.API.Token = "****"
	}
	var b strings.Builder
	if err := toml.NewEncoder(&b).Encode(out); err != nil {
		return fmt.Sprintf("config: %v", err)
	}
	return b.String()
}
