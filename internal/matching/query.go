package matching

import (
	"net/url"
)

// MatchQueryParams checks if all specified query parameters match.
// A "*" value only requires the parameter to be present.
func MatchQueryParams(expected map[string]string, params url.Values) bool {
	for name, value := range expected {
		if value == "*" {
			if _, ok := params[name]; !ok {
				return false
			}
			continue
		}
		if params.Get(name) != value {
			return false
		}
	}
	return true
}
