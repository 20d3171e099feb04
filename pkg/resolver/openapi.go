package resolver

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"slices"
	"strconv"
	"strings"

	"github.com/getkin/kin-openapi/openapi3"

	"github.com/getmockd/cassette/internal/matching"
)

// LoadOpenAPI reads an OpenAPI 3 document and derives its baseline
// candidates. The document is not validated.
func LoadOpenAPI(ctx context.Context, path string) ([]Candidate, error) {
	loader := openapi3.NewLoader()
	loader.Context = ctx
	loader.IsExternalRefsAllowed = true

	doc, err := loader.LoadFromFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to load spec from file %s: %w", path, err)
	}
	return FromOpenAPI(doc)
}

// FromOpenAPI yields one candidate per documented operation. The predicate
// is the method plus the path template under each server's base path; the
// producer returns a fixed response derived from the lowest 2xx response.
// Literal paths come before templated ones so /pets/mine wins over
// /pets/{id}.
func FromOpenAPI(doc *openapi3.T) ([]Candidate, error) {
	if doc == nil || doc.Paths == nil {
		return nil, nil
	}
	bases := basePaths(doc.Servers)

	paths := doc.Paths.Map()
	templates := make([]string, 0, len(paths))
	for p := range paths {
		templates = append(templates, p)
	}
	slices.SortFunc(templates, func(a, b string) int {
		if pa, pb := strings.Count(a, "{"), strings.Count(b, "{"); pa != pb {
			return pa - pb
		}
		return strings.Compare(a, b)
	})

	var out []Candidate
	for _, tmpl := range templates {
		item := paths[tmpl]
		if item == nil {
			continue
		}
		ops := item.Operations()
		methods := make([]string, 0, len(ops))
		for m := range ops {
			methods = append(methods, m)
		}
		slices.Sort(methods)

		for _, method := range methods {
			resp, err := operationResponse(ops[method])
			if err != nil {
				return nil, fmt.Errorf("%s %s: %w", method, tmpl, err)
			}
			patterns := make([]string, len(bases))
			for i, base := range bases {
				patterns[i] = base + tmpl
			}
			out = append(out, Candidate{
				Name: method + " " + tmpl,
				Match: func(r *Request) bool {
					if !matching.MatchMethod(method, r.Method) {
						return false
					}
					for _, p := range patterns {
						if matching.MatchPath(p, r.Path()) {
							return true
						}
					}
					return false
				},
				Respond: func(*Request) (*Response, error) {
					return &Response{Status: resp.Status, Header: resp.Header.Clone(), Body: resp.Body}, nil
				},
			})
		}
	}
	return out, nil
}

// basePaths returns the path prefix of each server URL with variables
// replaced by their defaults. No servers means the root.
func basePaths(servers openapi3.Servers) []string {
	var bases []string
	for _, s := range servers {
		if s == nil {
			continue
		}
		raw := s.URL
		for name, v := range s.Variables {
			if v != nil {
				raw = strings.ReplaceAll(raw, "{"+name+"}", v.Default)
			}
		}
		base := raw
		if u, err := url.Parse(raw); err == nil {
			base = u.Path
		}
		base = strings.TrimSuffix(base, "/")
		if !slices.Contains(bases, base) {
			bases = append(bases, base)
		}
	}
	if len(bases) == 0 {
		bases = []string{""}
	}
	return bases
}

// operationResponse picks the lowest 2xx response, then default, then the
// lowest documented status, and renders its body.
func operationResponse(op *openapi3.Operation) (*Response, error) {
	status, ref := pickResponse(op.Responses)
	resp := &Response{Status: status, Header: make(http.Header)}
	if ref == nil || ref.Value == nil || len(ref.Value.Content) == 0 {
		return resp, nil
	}

	contentType, media := pickMediaType(ref.Value.Content)
	resp.Header.Set("Content-Type", contentType)
	if media == nil {
		return resp, nil
	}

	value, ok := mediaExample(media)
	if !ok {
		if media.Schema == nil {
			return resp, nil
		}
		value = sampleSchema(media.Schema, 0)
	}
	body, err := encodeExample(contentType, value)
	if err != nil {
		return nil, err
	}
	resp.Body = body
	return resp, nil
}

func pickResponse(responses *openapi3.Responses) (int, *openapi3.ResponseRef) {
	if responses == nil {
		return http.StatusOK, nil
	}
	best, bestCode := "", 0
	lowest, lowestCode := "", 0
	for key := range responses.Map() {
		code, ok := parseStatusCode(key)
		if !ok {
			continue
		}
		if code >= 200 && code < 300 && (bestCode == 0 || code < bestCode) {
			best, bestCode = key, code
		}
		if lowestCode == 0 || code < lowestCode {
			lowest, lowestCode = key, code
		}
	}
	switch {
	case bestCode != 0:
		return bestCode, responses.Value(best)
	case responses.Default() != nil:
		return http.StatusOK, responses.Default()
	case lowestCode != 0:
		return lowestCode, responses.Value(lowest)
	default:
		return http.StatusOK, nil
	}
}

// parseStatusCode reads "201" and range keys such as "2XX" (as 200).
func parseStatusCode(key string) (int, bool) {
	if len(key) == 3 && strings.HasSuffix(strings.ToUpper(key), "XX") {
		d, err := strconv.Atoi(key[:1])
		if err != nil || d < 1 || d > 5 {
			return 0, false
		}
		return d * 100, true
	}
	code, err := strconv.Atoi(key)
	if err != nil || code < 100 || code > 599 {
		return 0, false
	}
	return code, true
}

// pickMediaType prefers application/json, then any JSON type, then the
// first type in name order.
func pickMediaType(content openapi3.Content) (string, *openapi3.MediaType) {
	if m, ok := content["application/json"]; ok {
		return "application/json", m
	}
	names := make([]string, 0, len(content))
	for name := range content {
		names = append(names, name)
	}
	slices.Sort(names)
	for _, name := range names {
		if strings.Contains(name, "json") {
			return name, content[name]
		}
	}
	return names[0], content[names[0]]
}

// mediaExample returns the media-level example, else the first named
// example in name order.
func mediaExample(media *openapi3.MediaType) (any, bool) {
	if media.Example != nil {
		return media.Example, true
	}
	names := make([]string, 0, len(media.Examples))
	for name := range media.Examples {
		names = append(names, name)
	}
	slices.Sort(names)
	for _, name := range names {
		if ex := media.Examples[name]; ex != nil && ex.Value != nil && ex.Value.Value != nil {
			return ex.Value.Value, true
		}
	}
	return nil, false
}

func encodeExample(contentType string, value any) ([]byte, error) {
	if s, ok := value.(string); ok && !strings.Contains(contentType, "json") {
		return []byte(s), nil
	}
	body, err := json.Marshal(value)
	if err != nil {
		return nil, fmt.Errorf("encoding example: %w", err)
	}
	return body, nil
}
