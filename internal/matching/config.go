package matching

import "fmt"

// URLMode selects which parts of the URL participate in matching.
type URLMode string

const (
	// URLFull compares scheme, host, path and query.
	URLFull URLMode = "full"
	// URLIgnoreQuery compares scheme, host and path.
	URLIgnoreQuery URLMode = "ignore-query"
	// URLPathQuery compares path and query, ignoring scheme and host.
	URLPathQuery URLMode = "path-query"
	// URLPath compares the path only.
	URLPath URLMode = "path"
)

// HeaderMode selects how request headers participate in matching.
type HeaderMode string

const (
	// HeadersExact requires the same header set on both sides.
	HeadersExact HeaderMode = "exact"
	// HeadersSubset requires every stored header to be present in the live
	// request with the same values.
	HeadersSubset HeaderMode = "subset"
	// HeadersIgnore leaves headers out of matching.
	HeadersIgnore HeaderMode = "ignore"
)

// BodyMode selects how request bodies participate in matching.
type BodyMode string

const (
	// BodyExact compares decoded body bytes.
	BodyExact BodyMode = "exact"
	// BodyJSON compares bodies as JSON values when both parse, falling back
	// to a byte comparison otherwise.
	BodyJSON BodyMode = "json"
	// BodyIgnore leaves bodies out of matching.
	BodyIgnore BodyMode = "ignore"
)

// Config enumerates the request fields that participate in equality.
// The zero value is the default policy: method, full URL, the full header
// set and the body bytes must all match, and stored interactions may be
// reused any number of times.
type Config struct {
	IgnoreMethod     bool       `json:"ignoreMethod,omitempty" yaml:"ignoreMethod,omitempty"`
	URL              URLMode    `json:"url,omitempty" yaml:"url,omitempty"`
	IgnoreQueryOrder bool       `json:"ignoreQueryOrder,omitempty" yaml:"ignoreQueryOrder,omitempty"`
	Headers          HeaderMode `json:"headers,omitempty" yaml:"headers,omitempty"`
	IgnoreHeaders    []string   `json:"ignoreHeaders,omitempty" yaml:"ignoreHeaders,omitempty"`
	Body             BodyMode   `json:"body,omitempty" yaml:"body,omitempty"`

	// Order makes each stored interaction answer at most one live request
	// per session, consumed in persisted order.
	Order bool `json:"order,omitempty" yaml:"order,omitempty"`
}

// DefaultConfig returns the default policy with every mode spelled out.
func DefaultConfig() Config {
	return Config{URL: URLFull, Headers: HeadersExact, Body: BodyExact}
}

// withDefaults fills empty modes.
func (c Config) withDefaults() Config {
	if c.URL == "" {
		c.URL = URLFull
	}
	if c.Headers == "" {
		c.Headers = HeadersExact
	}
	if c.Body == "" {
		c.Body = BodyExact
	}
	return c
}

// Validate reports unknown modes.
func (c Config) Validate() error {
	c = c.withDefaults()
	switch c.URL {
	case URLFull, URLIgnoreQuery, URLPathQuery, URLPath:
	default:
		return fmt.Errorf("unknown url match mode %q", c.URL)
	}
	switch c.Headers {
	case HeadersExact, HeadersSubset, HeadersIgnore:
	default:
		return fmt.Errorf("unknown header match mode %q", c.Headers)
	}
	switch c.Body {
	case BodyExact, BodyJSON, BodyIgnore:
	default:
		return fmt.Errorf("unknown body match mode %q", c.Body)
	}
	return nil
}
