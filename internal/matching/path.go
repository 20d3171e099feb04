package matching

import (
	"regexp"
	"strconv"
	"strings"
)

// MatchPath checks if the request path matches the pattern.
// Supports:
//   - Exact match: "/v2/status" matches "/v2/status"
//   - Wildcard: "/v2/blocks/*" matches "/v2/blocks/123"
//   - Named params: "/v2/accounts/{address}" matches "/v2/accounts/ABC"
func MatchPath(pattern, path string) bool {
	if pattern == path {
		return true
	}

	if strings.Contains(pattern, "{") && strings.Contains(pattern, "}") {
		if matchNamedParams(pattern, path) {
			return true
		}
	}

	// Trailing wildcard also matches the bare prefix.
	if strings.HasSuffix(pattern, "/*") {
		prefix := strings.TrimSuffix(pattern, "/*")
		if strings.HasPrefix(path, prefix+"/") || path == prefix {
			return true
		}
	}

	if strings.Contains(pattern, "*") {
		return matchWildcard(pattern, path)
	}
	return false
}

// matchNamedParams checks if path matches a pattern with named parameters.
// Segment counts must agree; a {name} segment matches any non-empty value.
func matchNamedParams(pattern, path string) bool {
	patternParts := strings.Split(strings.Trim(pattern, "/"), "/")
	pathParts := strings.Split(strings.Trim(path, "/"), "/")

	if len(patternParts) != len(pathParts) {
		return false
	}

	for i, patternPart := range patternParts {
		if isParam(patternPart) {
			if pathParts[i] == "" {
				return false
			}
			continue
		}
		if patternPart != "*" && patternPart != pathParts[i] {
			return false
		}
	}
	return true
}

func isParam(segment string) bool {
	return len(segment) > 2 && strings.HasPrefix(segment, "{") && strings.HasSuffix(segment, "}")
}

// matchWildcard performs simple wildcard pattern matching.
// * matches any sequence of characters.
func matchWildcard(pattern, path string) bool {
	parts := strings.Split(pattern, "*")
	if len(parts) == 1 {
		return pattern == path
	}

	pos := 0
	for i, part := range parts {
		if part == "" {
			continue
		}
		if i == 0 {
			if !strings.HasPrefix(path, part) {
				return false
			}
			pos = len(part)
			continue
		}
		idx := strings.Index(path[pos:], part)
		if idx == -1 {
			return false
		}
		pos += idx + len(part)
	}

	// A pattern not ending in * must consume the whole path.
	last := parts[len(parts)-1]
	if last != "" && !strings.HasSuffix(path, last) {
		return false
	}
	return true
}

// MatchPathPattern checks if the request path matches a regex pattern and
// returns its named capture groups. Invalid patterns never match.
func MatchPathPattern(pattern, path string) (bool, map[string]string) {
	if pattern == "" {
		return false, nil
	}
	re, err := regexp.Compile(pattern)
	if err != nil {
		return false, nil
	}
	match := re.FindStringSubmatch(path)
	if match == nil {
		return false, nil
	}

	captures := make(map[string]string)
	for i, name := range re.SubexpNames() {
		if i > 0 && name != "" && i < len(match) {
			captures[name] = match[i]
		}
	}
	return true, captures
}

// ValidatePathPattern checks if a regex pattern is valid.
func ValidatePathPattern(pattern string) error {
	if pattern == "" {
		return nil
	}
	_, err := regexp.Compile(pattern)
	return err
}

// PathParams extracts path variables from a path pattern.
// Supports both {name} style params and * wildcards.
// Examples:
//   - pattern "/users/{id}" with path "/users/123" returns {"id": "123"}
//   - pattern "/api/users/*" with path "/api/users/456" returns {"0": "456"}
//   - pattern "/api/*/items/*" with path "/api/users/items/789" returns {"0": "users", "1": "789"}
func PathParams(pattern, path string) map[string]string {
	result := make(map[string]string)

	patternParts := strings.Split(strings.Trim(pattern, "/"), "/")
	pathParts := strings.Split(strings.Trim(path, "/"), "/")

	wildcardIndex := 0
	for i, patternPart := range patternParts {
		if i >= len(pathParts) {
			break
		}

		if isParam(patternPart) {
			result[patternPart[1:len(patternPart)-1]] = pathParts[i]
			continue
		}

		if patternPart == "*" {
			// A trailing wildcard captures the rest of the path.
			if i == len(patternParts)-1 {
				result[strconv.Itoa(wildcardIndex)] = strings.Join(pathParts[i:], "/")
			} else {
				result[strconv.Itoa(wildcardIndex)] = pathParts[i]
			}
			wildcardIndex++
		}
	}
	return result
}
