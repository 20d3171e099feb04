// Package matching provides request matching algorithms.
//
// Matcher compares a live request against a stored interaction's request
// under a Config that enumerates the participating fields:
//
//   - Method: case-insensitive, unless ignored
//   - URL: full, ignore-query, path-query or path, optionally comparing
//     query parameters order-insensitively
//   - Headers: exact set, stored subset of live, or ignored, minus an
//     ignore list
//   - Body: decoded bytes, JSON value equality, or ignored
//
// Explain and Closest report which fields kept a request from matching.
//
// The remaining helpers match hand-written overrides: path templates with
// {param} and * segments, regex paths, header patterns, query parameters,
// JSONPath body conditions and plain body checks.
package matching
