package proxy

import (
	"github.com/bmatcuk/doublestar/v4"
)

// FilterConfig selects which request paths go through the session. Paths
// that are not selected are forwarded to the upstream without being
// recorded or replayed. Patterns use doublestar syntax: * stays within a
// segment, ** crosses segments.
type FilterConfig struct {
	IncludePaths []string `json:"include,omitempty" yaml:"include,omitempty"` // empty = all
	ExcludePaths []string `json:"exclude,omitempty" yaml:"exclude,omitempty"`
}

// NewFilterConfig creates an empty filter config (records everything).
func NewFilterConfig() *FilterConfig {
	return &FilterConfig{}
}

// ShouldRecord determines if a request path goes through the session.
// Precedence:
// 1. If matches ANY exclude pattern → NOT recorded
// 2. If include patterns exist AND matches NONE → NOT recorded
// 3. Otherwise → recorded
func (f *FilterConfig) ShouldRecord(path string) bool {
	if f == nil {
		return true
	}
	for _, pattern := range f.ExcludePaths {
		if matchGlob(pattern, path) {
			return false
		}
	}
	if len(f.IncludePaths) == 0 {
		return true
	}
	for _, pattern := range f.IncludePaths {
		if matchGlob(pattern, path) {
			return true
		}
	}
	return false
}

// Validate reports the first malformed pattern.
func (f *FilterConfig) Validate() error {
	if f == nil {
		return nil
	}
	for _, list := range [][]string{f.IncludePaths, f.ExcludePaths} {
		for _, pattern := range list {
			if !doublestar.ValidatePattern(pattern) {
				return &InvalidPatternError{Pattern: pattern}
			}
		}
	}
	return nil
}

// InvalidPatternError reports a malformed filter pattern.
type InvalidPatternError struct {
	Pattern string
}

func (e *InvalidPatternError) Error() string {
	return "invalid path pattern: " + e.Pattern
}

func matchGlob(pattern, path string) bool {
	ok, err := doublestar.Match(pattern, path)
	return err == nil && ok
}
