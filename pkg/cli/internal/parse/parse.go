// Package parse provides string parsing utilities for CLI commands.
package parse

import (
	"fmt"
	"strings"

	"github.com/getmockd/cassette/pkg/transform"
)

// KeyValue parses a "key:value" or "key=value" string.
// If delimiters are provided, uses the first one found; otherwise defaults to ':'.
// Returns the key, value, and a boolean indicating success.
func KeyValue(s string, delimiters ...rune) (key, value string, ok bool) {
	if len(delimiters) == 0 {
		delimiters = []rune{':'}
	}

	for i, c := range s {
		for _, d := range delimiters {
			if c == d {
				return s[:i], s[i+1:], true
			}
		}
	}
	return "", "", false
}

// Rewrites parses "from=to" address rewrite flags, keeping their order.
func Rewrites(values []string) ([]transform.Rewrite, error) {
	out := make([]transform.Rewrite, 0, len(values))
	for _, v := range values {
		from, to, ok := KeyValue(v, '=')
		from = strings.TrimSpace(from)
		if !ok || from == "" {
			return nil, fmt.Errorf("invalid rewrite %q (expected from=to)", v)
		}
		out = append(out, transform.Rewrite{From: from, To: strings.TrimSpace(to)})
	}
	return out, nil
}
