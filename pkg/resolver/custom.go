package resolver

import (
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"os"
	"strings"

	"github.com/expr-lang/expr"
	"github.com/expr-lang/expr/vm"
	"gopkg.in/yaml.v3"

	"github.com/getmockd/cassette/internal/matching"
)

// OverrideFile is the YAML document of hand-written overrides.
type OverrideFile struct {
	Overrides []Override `yaml:"overrides"`
}

// Override is one hand-written candidate. Every non-empty criterion must
// hold for the override to match.
type Override struct {
	Name   string `yaml:"name"`
	Method string `yaml:"method"`
	// Path is exact or uses {param} and * segments.
	Path string `yaml:"path"`
	// PathPattern is an RE2 expression; named groups become params.
	PathPattern  string            `yaml:"pathPattern"`
	Headers      map[string]string `yaml:"headers"`
	Query        map[string]string `yaml:"query"`
	BodyEquals   string            `yaml:"bodyEquals"`
	BodyContains string            `yaml:"bodyContains"`
	BodyPattern  string            `yaml:"bodyPattern"`
	BodyJSONPath map[string]any    `yaml:"bodyJSONPath"`
	// When is an expr-lang boolean expression over method, path, query,
	// headers, body, json and params.
	When     string           `yaml:"when"`
	Response OverrideResponse `yaml:"response"`
}

// OverrideResponse is the fixed answer of an override. At most one of
// Body, JSON and Base64Body may be set.
type OverrideResponse struct {
	Status     int               `yaml:"status"`
	Headers    map[string]string `yaml:"headers"`
	Body       string            `yaml:"body"`
	JSON       any               `yaml:"json"`
	Base64Body string            `yaml:"base64Body"`
}

// LoadCustom reads an override file and compiles its candidates.
func LoadCustom(path string) ([]Candidate, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read overrides: %w", err)
	}
	candidates, err := ParseCustom(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return candidates, nil
}

// ParseCustom compiles overrides from YAML. Patterns, JSONPath conditions
// and expressions are compiled here, so a bad override fails at load time.
func ParseCustom(data []byte) ([]Candidate, error) {
	var file OverrideFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("invalid override file: %w", err)
	}
	out := make([]Candidate, 0, len(file.Overrides))
	for i, o := range file.Overrides {
		c, err := o.compile()
		if err != nil {
			name := o.Name
			if name == "" {
				name = fmt.Sprintf("#%d", i)
			}
			return nil, fmt.Errorf("override %s: %w", name, err)
		}
		out = append(out, c)
	}
	return out, nil
}

func (o Override) compile() (Candidate, error) {
	if (o.Path == "") == (o.PathPattern == "") {
		return Candidate{}, errors.New("exactly one of path and pathPattern is required")
	}
	if err := matching.ValidatePathPattern(o.PathPattern); err != nil {
		return Candidate{}, fmt.Errorf("invalid pathPattern: %w", err)
	}
	pattern, err := matching.CompileBodyPattern(o.BodyPattern)
	if err != nil {
		return Candidate{}, fmt.Errorf("invalid bodyPattern: %w", err)
	}
	conds, err := matching.CompileJSONPath(o.BodyJSONPath)
	if err != nil {
		return Candidate{}, err
	}
	var when *vm.Program
	if strings.TrimSpace(o.When) != "" {
		when, err = expr.Compile(o.When, expr.Env(whenEnv{}), expr.AsBool())
		if err != nil {
			return Candidate{}, fmt.Errorf("invalid when expression: %w", err)
		}
	}
	resp, err := o.Response.build()
	if err != nil {
		return Candidate{}, err
	}

	body := matching.BodyCriteria{Equals: o.BodyEquals, Contains: o.BodyContains, Pattern: pattern}
	name := o.Name
	if name == "" {
		name = strings.TrimSpace(strings.ToUpper(o.Method) + " " + o.Path + o.PathPattern)
	}

	return Candidate{
		Name: name,
		Match: func(r *Request) bool {
			if o.Method != "" && !matching.MatchMethod(o.Method, r.Method) {
				return false
			}
			params, ok := o.matchPath(r.Path())
			if !ok {
				return false
			}
			if !matching.MatchHeaders(o.Headers, r.Header) {
				return false
			}
			if !matching.MatchQueryParams(o.Query, r.URL.Query()) {
				return false
			}
			if !body.Match(r.Body) || !matching.MatchJSONPath(conds, r.Body) {
				return false
			}
			if when != nil {
				v, err := expr.Run(when, newWhenEnv(r, params))
				if err != nil {
					return false
				}
				if b, _ := v.(bool); !b {
					return false
				}
			}
			return true
		},
		Respond: func(*Request) (*Response, error) {
			return &Response{Status: resp.Status, Header: resp.Header.Clone(), Body: resp.Body}, nil
		},
	}, nil
}

func (o Override) matchPath(path string) (map[string]string, bool) {
	if o.PathPattern != "" {
		ok, captures := matching.MatchPathPattern(o.PathPattern, path)
		return captures, ok
	}
	if !matching.MatchPath(o.Path, path) {
		return nil, false
	}
	return matching.PathParams(o.Path, path), true
}

func (r OverrideResponse) build() (*Response, error) {
	set := 0
	for _, present := range []bool{r.Body != "", r.JSON != nil, r.Base64Body != ""} {
		if present {
			set++
		}
	}
	if set > 1 {
		return nil, errors.New("response: only one of body, json and base64Body may be set")
	}

	status := r.Status
	if status == 0 {
		status = http.StatusOK
	}
	if status < 100 || status > 599 {
		return nil, fmt.Errorf("response: invalid status %d", status)
	}

	h := make(http.Header, len(r.Headers)+1)
	for name, value := range r.Headers {
		h.Set(name, value)
	}

	var body []byte
	switch {
	case r.JSON != nil:
		var err error
		body, err = json.Marshal(r.JSON)
		if err != nil {
			return nil, fmt.Errorf("response: encoding json: %w", err)
		}
		if h.Get("Content-Type") == "" {
			h.Set("Content-Type", "application/json")
		}
	case r.Base64Body != "":
		var err error
		body, err = base64.StdEncoding.DecodeString(r.Base64Body)
		if err != nil {
			return nil, fmt.Errorf("response: invalid base64Body: %w", err)
		}
	default:
		body = []byte(r.Body)
	}
	return &Response{Status: status, Header: h, Body: body}, nil
}

// whenEnv is the variable set visible to when expressions.
type whenEnv struct {
	Method  string            `expr:"method"`
	Path    string            `expr:"path"`
	Query   map[string]string `expr:"query"`
	Headers map[string]string `expr:"headers"`
	Body    string            `expr:"body"`
	JSON    any               `expr:"json"`
	Params  map[string]string `expr:"params"`
}

func newWhenEnv(r *Request, params map[string]string) whenEnv {
	env := whenEnv{
		Method:  r.Method,
		Path:    r.Path(),
		Query:   map[string]string{},
		Headers: map[string]string{},
		Body:    string(r.Body),
		Params:  params,
	}
	for name, values := range r.URL.Query() {
		if len(values) > 0 {
			env.Query[name] = values[0]
		}
	}
	for _, name := range r.Header.Names() {
		env.Headers[name] = r.Header.Get(name)
	}
	if env.Params == nil {
		env.Params = map[string]string{}
	}
	if len(r.Body) > 0 {
		_ = json.Unmarshal(r.Body, &env.JSON)
	}
	return env
}
