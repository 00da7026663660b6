package ratelimit

import (
	"strings"

	"github.com/bmatcuk/doublestar/v4"
)

// unlimited paths are never rate limited.
var unlimited = map[string]bool{
	"/health":  true,
	"/metrics": true,
}

// MatchEndpoint matches a request path and method to an endpoint configuration.
// Returns the matching EndpointConfig or nil if no match is found.
// Patterns are tried in order: exact paths, glob patterns ("/projects/*/generate"),
// then prefixes (paths ending with "/").
func MatchEndpoint(path string, method string, configs []EndpointConfig) *EndpointConfig {
	if method == "GET" && unlimited[path] {
		return &EndpointConfig{}
	}

	for i := range configs {
		c := &configs[i]
		if c.Method == method && c.Path == path {
			return c
		}
	}

	for i := range configs {
		c := &configs[i]
		if c.Method != method || !strings.Contains(c.Path, "*") {
			continue
		}
		if ok, _ := doublestar.Match(c.Path, path); ok {
			return c
		}
	}

	for i := range configs {
		c := &configs[i]
		if c.Method == method && strings.HasSuffix(c.Path, "/") && strings.HasPrefix(path, c.Path) {
			return c
		}
	}
	return nil
}
