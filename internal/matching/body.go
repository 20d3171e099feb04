package matching

import (
	"regexp"
	"strings"
)

// BodyCriteria are the optional body checks of a hand-written override.
// Empty fields are not checked.
type BodyCriteria struct {
	Equals   string
	Contains string
	Pattern  *regexp.Regexp
}

// CompileBodyPattern compiles an RE2 body pattern. An empty pattern yields nil.
func CompileBodyPattern(pattern string) (*regexp.Regexp, error) {
	if pattern == "" {
		return nil, nil
	}
	return regexp.Compile(pattern)
}

// Match reports whether body satisfies every configured check.
func (c BodyCriteria) Match(body []byte) bool {
	if c.Equals != "" && string(body) != c.Equals {
		return false
	}
	if c.Contains != "" && !strings.Contains(string(body), c.Contains) {
		return false
	}
	if c.Pattern != nil && !c.Pattern.Match(body) {
		return false
	}
	return true
}
