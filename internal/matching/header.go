package matching

import (
	"strings"

	"github.com/getmockd/cassette/pkg/header"
)

// MatchHeaders checks that every expected header matches its pattern.
// Header names are case-insensitive.
func MatchHeaders(expected map[string]string, headers header.Header) bool {
	for name, pattern := range expected {
		if !MatchHeaderPattern(name, pattern, headers) {
			return false
		}
	}
	return true
}

// MatchHeaderPattern checks if a header matches a pattern.
// Supports exact values plus prefix (value*), suffix (*value) and
// contains (*value*) patterns. A lone "*" only requires presence.
func MatchHeaderPattern(name, pattern string, headers header.Header) bool {
	if !headers.Has(name) {
		return false
	}
	actualValue := headers.Get(name)

	switch {
	case pattern == "*":
		return true
	case !strings.Contains(pattern, "*"):
		return actualValue == pattern
	case strings.HasPrefix(pattern, "*") && strings.HasSuffix(pattern, "*"):
		return strings.Contains(actualValue, strings.Trim(pattern, "*"))
	case strings.HasSuffix(pattern, "*"):
		return strings.HasPrefix(actualValue, strings.TrimSuffix(pattern, "*"))
	case strings.HasPrefix(pattern, "*"):
		return strings.HasSuffix(actualValue, strings.TrimPrefix(pattern, "*"))
	}
	return false
}
