// Package config provides configuration loading and validation for the CLI and server.
package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/jonathan/resume-builder/internal/llm"
)

// Environment variables read by FromEnv
const (
	EnvAPIKey    = "GEMINI_API_KEY"
	EnvModel     = "RESUME_MODEL"
	EnvLogLevel  = "LOG_LEVEL"
	EnvLogFormat = "LOG_FORMAT"
	EnvPort      = "PORT"
)

// Server defaults
const (
	DefaultPort           = 8080
	DefaultMaxUploadBytes = 10 << 20
)

// Duration is a time.Duration written as a Go duration string ("2s", "1m30s") in config files.
type Duration time.Duration

// UnmarshalJSON accepts a duration string or a number of nanoseconds.
func (d *Duration) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err == nil {
		parsed, err := time.ParseDuration(s)
		if err != nil {
			return fmt.Errorf("invalid duration %q: %w", s, err)
		}
		*d = Duration(parsed)
		return nil
	}

	var n int64
	if err := json.Unmarshal(data, &n); err != nil {
		return fmt.Errorf("duration must be a string like \"2s\" or an integer: %w", err)
	}
	*d = Duration(n)
	return nil
}

// UnmarshalYAML accepts a duration string or a number of nanoseconds.
func (d *Duration) UnmarshalYAML(value *yaml.Node) error {
	if value.Tag == "!!int" {
		var n int64
		if err := value.Decode(&n); err != nil {
			return err
		}
		*d = Duration(n)
		return nil
	}

	parsed, err := time.ParseDuration(value.Value)
	if err != nil {
		return fmt.Errorf("invalid duration %q: %w", value.Value, err)
	}
	*d = Duration(parsed)
	return nil
}

// MarshalJSON writes the duration as a string.
func (d Duration) MarshalJSON() ([]byte, error) {
	return json.Marshal(time.Duration(d).String())
}

// Config represents the configuration that can be loaded from a JSON or YAML file.
// All fields are optional; missing values use defaults or must be provided via CLI flags.
type Config struct {
	// Model
	APIKey string `json:"api_key,omitempty" yaml:"api_key,omitempty"` // Gemini API key
	Model  string `json:"model,omitempty" yaml:"model,omitempty"`     // Gemini model for the standard tier

	// Resilient call
	MaxAttempts    int      `json:"max_attempts,omitempty" yaml:"max_attempts,omitempty"`       // Completion attempts before giving up
	InitialDelay   Duration `json:"initial_delay,omitempty" yaml:"initial_delay,omitempty"`     // Backoff after the first failure; doubles each time
	AttemptTimeout Duration `json:"attempt_timeout,omitempty" yaml:"attempt_timeout,omitempty"` // Bound on a single attempt
	RepairAttempts int      `json:"repair_attempts,omitempty" yaml:"repair_attempts,omitempty"` // Extra calls to repair undecodable output

	// Sampling; unset keeps the provider defaults
	Temperature     *float32 `json:"temperature,omitempty" yaml:"temperature,omitempty"`
	MaxOutputTokens int32    `json:"max_output_tokens,omitempty" yaml:"max_output_tokens,omitempty"`
	JSONResponse    bool     `json:"json_response,omitempty" yaml:"json_response,omitempty"` // Request application/json output

	// Behavior
	Concurrency int    `json:"concurrency,omitempty" yaml:"concurrency,omitempty"` // Documents parsed at once by batch parse
	UseBrowser  bool   `json:"use_browser,omitempty" yaml:"use_browser,omitempty"` // Use headless browser for SPA job postings
	Verbose     bool   `json:"verbose,omitempty" yaml:"verbose,omitempty"`         // Print detailed debug information
	LogLevel    string `json:"log_level,omitempty" yaml:"log_level,omitempty"`     // logrus level name
	LogFormat   string `json:"log_format,omitempty" yaml:"log_format,omitempty"`   // "text" or "json"

	// Server
	Port           int      `json:"port,omitempty" yaml:"port,omitempty"`
	AllowedOrigins []string `json:"allowed_origins,omitempty" yaml:"allowed_origins,omitempty"` // CORS origins; empty allows any
	MaxUploadBytes int64    `json:"max_upload_bytes,omitempty" yaml:"max_upload_bytes,omitempty"`
}

// Defaults returns the built-in configuration.
func Defaults() Config {
	policy := llm.DefaultRetryPolicy()
	return Config{
		Model:          llm.DefaultStandardModel,
		MaxAttempts:    policy.MaxAttempts,
		InitialDelay:   Duration(policy.InitialDelay),
		AttemptTimeout: Duration(policy.AttemptTimeout),
		Concurrency:    4,
		LogLevel:       "info",
		LogFormat:      "text",
		Port:           DefaultPort,
		MaxUploadBytes: DefaultMaxUploadBytes,
	}
}

// LoadConfig loads configuration from a JSON file, or YAML when the extension is .yaml or .yml.
// Returns an error if the file cannot be read or parsed.
func LoadConfig(path string) (*Config, error) {
	if path == "" {
		return nil, fmt.Errorf("config path is empty")
	}

	// Resolve path relative to current directory if not absolute
	if !filepath.IsAbs(path) {
		cwd, err := os.Getwd()
		if err != nil {
			return nil, fmt.Errorf("failed to get current directory: %w", err)
		}
		path = filepath.Join(cwd, path)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
	}

	var cfg Config
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config YAML: %w", err)
		}
	default:
		if err := json.Unmarshal(data, &cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config JSON: %w", err)
		}
	}

	return &cfg, nil
}

// FromEnv returns the values set through environment variables.
// Call godotenv.Load first to pick up a .env file.
func FromEnv() Config {
	cfg := Config{
		APIKey:    os.Getenv(EnvAPIKey),
		Model:     os.Getenv(EnvModel),
		LogLevel:  os.Getenv(EnvLogLevel),
		LogFormat: os.Getenv(EnvLogFormat),
	}
	if port, err := strconv.Atoi(os.Getenv(EnvPort)); err == nil {
		cfg.Port = port
	}
	return cfg
}

// Validate checks that the configuration has valid values.
// Note: This doesn't check for required fields since those are handled
// by CLI flag validation after merging.
func (c *Config) Validate() error {
	if c.MaxAttempts < 0 {
		return fmt.Errorf("config error: 'max_attempts' must be non-negative")
	}
	if c.InitialDelay < 0 {
		return fmt.Errorf("config error: 'initial_delay' must be non-negative")
	}
	if c.AttemptTimeout < 0 {
		return fmt.Errorf("config error: 'attempt_timeout' must be non-negative")
	}
	if c.RepairAttempts < 0 {
		return fmt.Errorf("config error: 'repair_attempts' must be non-negative")
	}
	if c.Temperature != nil && (*c.Temperature < 0 || *c.Temperature > 2) {
		return fmt.Errorf("config error: 'temperature' must be between 0 and 2")
	}
	if c.MaxOutputTokens < 0 {
		return fmt.Errorf("config error: 'max_output_tokens' must be non-negative")
	}
	if c.Concurrency < 0 {
		return fmt.Errorf("config error: 'concurrency' must be non-negative")
	}
	if c.Port < 0 || c.Port > 65535 {
		return fmt.Errorf("config error: 'port' must be between 0 and 65535")
	}
	if c.MaxUploadBytes < 0 {
		return fmt.Errorf("config error: 'max_upload_bytes' must be non-negative")
	}

	switch strings.ToLower(c.LogFormat) {
	case "", "text", "json":
	default:
		return fmt.Errorf("config error: 'log_format' must be \"text\" or \"json\"")
	}

	return nil
}

// MergeWithDefaults returns a new Config with empty fields filled from defaults.
// This is used to layer flags over the config file over environment over built-ins.
func (c *Config) MergeWithDefaults(defaults Config) Config {
	result := *c

	// String fields: use default if empty
	if result.APIKey == "" {
		result.APIKey = defaults.APIKey
	}
	if result.Model == "" {
		result.Model = defaults.Model
	}
	if result.LogLevel == "" {
		result.LogLevel = defaults.LogLevel
	}
	if result.LogFormat == "" {
		result.LogFormat = defaults.LogFormat
	}
	if len(result.AllowedOrigins) == 0 {
		result.AllowedOrigins = defaults.AllowedOrigins
	}

	// Numeric fields: use default if zero
	if result.MaxAttempts == 0 {
		result.MaxAttempts = defaults.MaxAttempts
	}
	if result.InitialDelay == 0 {
		result.InitialDelay = defaults.InitialDelay
	}
	if result.AttemptTimeout == 0 {
		result.AttemptTimeout = defaults.AttemptTimeout
	}
	if result.RepairAttempts == 0 {
		result.RepairAttempts = defaults.RepairAttempts
	}
	if result.Temperature == nil {
		result.Temperature = defaults.Temperature
	}
	if result.MaxOutputTokens == 0 {
		result.MaxOutputTokens = defaults.MaxOutputTokens
	}
	if result.Concurrency == 0 {
		result.Concurrency = defaults.Concurrency
	}
	if result.Port == 0 {
		result.Port = defaults.Port
	}
	if result.MaxUploadBytes == 0 {
		result.MaxUploadBytes = defaults.MaxUploadBytes
	}

	// Bool fields: a true default wins since false cannot be told apart from unset
	result.JSONResponse = result.JSONResponse || defaults.JSONResponse
	result.UseBrowser = result.UseBrowser || defaults.UseBrowser
	result.Verbose = result.Verbose || defaults.Verbose

	return result
}

// RetryPolicy returns the resilient-call settings.
func (c *Config) RetryPolicy() llm.RetryPolicy {
	return llm.RetryPolicy{
		MaxAttempts:    c.MaxAttempts,
		InitialDelay:   time.Duration(c.InitialDelay),
		AttemptTimeout: time.Duration(c.AttemptTimeout),
	}
}

// LLMConfig returns the model configuration with the configured standard-tier model
// and sampling settings.
func (c *Config) LLMConfig() *llm.Config {
	cfg := llm.DefaultConfig()
	if c.Model != "" {
		cfg = cfg.WithModel(llm.TierStandard, c.Model)
	}
	return cfg.WithGeneration(llm.Generation{
		Temperature:     c.Temperature,
		MaxOutputTokens: c.MaxOutputTokens,
		JSONResponse:    c.JSONResponse,
	})
}
