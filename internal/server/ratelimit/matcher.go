package ratelimit

import (
	"net/http"
	"strings"
)

// unlimited marks endpoints that are never rate limited.
var unlimited = &EndpointConfig{}

// MatchEndpoint returns the configuration for a request path and method, or nil to use
// the default limit. Exact paths win over prefixes; a configured path ending in "/"
// matches everything below it. Health checks and CORS preflights are unlimited.
func MatchEndpoint(path string, method string, configs []EndpointConfig) *EndpointConfig {
	if method == http.MethodOptions || (path == "/health" && method == http.MethodGet) {
		return unlimited
	}

	var prefixMatch *EndpointConfig
	for i := range configs {
		config := &configs[i]
		if config.Method != method {
			continue
		}
		if config.Path == path {
			return config
		}
		if prefixMatch == nil && strings.HasSuffix(config.Path, "/") && strings.HasPrefix(path, config.Path) {
			prefixMatch = config
		}
	}

	return prefixMatch
}
