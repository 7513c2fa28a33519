package ratelimit

import (
	"net/http"
	"os"
	"strconv"
	"strings"
	"time"
)

// EndpointConfig represents rate limiting configuration for a specific endpoint.
type EndpointConfig struct {
	Path   string        // Exact path, or a prefix when it ends in "/"
	Method string        // HTTP method (GET, POST, etc.)
	Limit  int           // Maximum requests per window
	Window time.Duration // Time window
	Burst  int           // Burst capacity (defaults to Limit if 0)
}

// Model endpoint defaults. Parse and tailor each cost at least one model call.
const (
	DefaultModelLimit  = 30
	DefaultModelWindow = time.Hour
	DefaultModelBurst  = 5
)

// LoadConfig reads RATE_LIMIT_* environment variables. Malformed values fall back to defaults.
func LoadConfig() *Config {
	return loadConfig(os.Getenv)
}

func loadConfig(getenv func(string) string) *Config {
	e := env(getenv)
	if !e.getBool("RATE_LIMIT_ENABLED", true) {
		return &Config{Enabled: false}
	}

	model := EndpointConfig{
		Limit:  e.getInt("RATE_LIMIT_MODEL_LIMIT", DefaultModelLimit),
		Window: e.getDuration("RATE_LIMIT_MODEL_WINDOW", DefaultModelWindow),
		Burst:  e.getInt("RATE_LIMIT_MODEL_BURST", DefaultModelBurst),
	}

	return &Config{
		Enabled:         true,
		DefaultLimit:    e.getInt("RATE_LIMIT_DEFAULT_LIMIT", 1000),
		DefaultWindow:   e.getDuration("RATE_LIMIT_DEFAULT_WINDOW", time.Minute),
		CleanupInterval: e.getDuration("RATE_LIMIT_CLEANUP_INTERVAL", 5*time.Minute),
		IdleTimeout:     e.getDuration("RATE_LIMIT_IDLE_TIMEOUT", time.Hour),
		Whitelist:       parseIPList(getenv("RATE_LIMIT_WHITELIST")),
		Blacklist:       parseIPList(getenv("RATE_LIMIT_BLACKLIST")),
		EndpointConfigs: modelEndpoints(model),
	}
}

// DefaultEndpointConfigs returns the limits applied to the model-backed endpoints.
func DefaultEndpointConfigs() []EndpointConfig {
	return modelEndpoints(EndpointConfig{
		Limit:  DefaultModelLimit,
		Window: DefaultModelWindow,
		Burst:  DefaultModelBurst,
	})
}

func modelEndpoints(limits EndpointConfig) []EndpointConfig {
	paths := []string{"/resume/parse", "/resume/tailor"}
	configs := make([]EndpointConfig, 0, len(paths))
	for _, path := range paths {
		c := limits
		c.Path = path
		c.Method = http.MethodPost
		configs = append(configs, c)
	}
	return configs
}

// env reads typed values with defaults.
type env func(string) string

func (e env) getInt(key string, def int) int {
	if n, err := strconv.Atoi(e(key)); err == nil {
		return n
	}
	return def
}

func (e env) getBool(key string, def bool) bool {
	if b, err := strconv.ParseBool(e(key)); err == nil {
		return b
	}
	return def
}

func (e env) getDuration(key string, def time.Duration) time.Duration {
	if d, err := time.ParseDuration(e(key)); err == nil {
		return d
	}
	return def
}

// parseIPList parses a comma-separated list of IP addresses into a set.
func parseIPList(list string) map[string]bool {
	result := make(map[string]bool)
	for _, ip := range strings.Split(list, ",") {
		if ip = strings.TrimSpace(ip); ip != "" {
			result[ip] = true
		}
	}
	return result
}
