// Package resolver answers requests for a standalone mock server.
//
// A Resolver holds three ordered candidate lists assembled once: custom
// overrides, interactions loaded from recordings, and a baseline derived
// from an OpenAPI document. Resolve walks them in that order and returns
// the first candidate whose predicate accepts the request.
package resolver

import (
	"bytes"
	"fmt"
	"io"
	"net/http"
	"net/url"

	"github.com/getmockd/cassette/pkg/header"
	"github.com/getmockd/cassette/pkg/recording"
)

// Layer is the priority class of a candidate. Lower values win.
type Layer int

const (
	LayerCustom Layer = iota
	LayerRecorded
	LayerBaseline
)

// String returns the layer name used in logs and response headers.
func (l Layer) String() string {
	switch l {
	case LayerCustom:
		return "custom"
	case LayerRecorded:
		return "recorded"
	case LayerBaseline:
		return "baseline"
	default:
		return fmt.Sprintf("layer(%d)", int(l))
	}
}

// Request is an incoming request with its body read once.
type Request struct {
	Method string
	URL    *url.URL
	Header header.Header
	Body   []byte

	captured recording.Request
}

// NewRequest reads r's body and returns the request view candidates
// evaluate. r.Body is replaced with an identical reader.
func NewRequest(r *http.Request) (*Request, error) {
	var body []byte
	if r.Body != nil && r.Body != http.NoBody {
		var err error
		body, err = io.ReadAll(r.Body)
		_ = r.Body.Close()
		if err != nil {
			return nil, fmt.Errorf("reading request body: %w", err)
		}
		r.Body = io.NopCloser(bytes.NewReader(body))
	}
	return &Request{
		Method:   r.Method,
		URL:      r.URL,
		Header:   header.FromHTTP(r.Header),
		Body:     body,
		captured: recording.CaptureRequest(r, body),
	}, nil
}

// Path returns the request path.
func (r *Request) Path() string { return r.URL.Path }

// Response is a produced answer.
type Response struct {
	Status int
	Header http.Header
	Body   []byte
}

// Write sends the response. Content-Length is computed from Body.
func (r *Response) Write(w http.ResponseWriter) error {
	h := w.Header()
	for name, values := range r.Header {
		h[name] = append([]string(nil), values...)
	}
	h.Del("Transfer-Encoding")
	h.Set("Content-Length", fmt.Sprint(len(r.Body)))
	status := r.Status
	if status == 0 {
		status = http.StatusOK
	}
	w.WriteHeader(status)
	_, err := w.Write(r.Body)
	return err
}

// Candidate pairs a request predicate with a response producer.
type Candidate struct {
	Name    string
	Layer   Layer
	Match   func(*Request) bool
	Respond func(*Request) (*Response, error)
}

// Resolver selects candidates in custom, recorded, baseline order. It is
// immutable after New and safe for concurrent use.
type Resolver struct {
	candidates []*Candidate
}

// New assembles a resolver. Each list keeps its own order; the layer of
// every candidate is set from the list it was passed in.
func New(custom, recorded, baseline []Candidate) *Resolver {
	r := &Resolver{candidates: make([]*Candidate, 0, len(custom)+len(recorded)+len(baseline))}
	for layer, list := range [][]Candidate{custom, recorded, baseline} {
		for _, c := range list {
			c.Layer = Layer(layer)
			r.candidates = append(r.candidates, &c)
		}
	}
	return r
}

// Resolve returns the first candidate whose predicate accepts req, or
// false when nothing matches.
func (r *Resolver) Resolve(req *Request) (*Candidate, bool) {
	for _, c := range r.candidates {
		if c.Match != nil && c.Match(req) {
			return c, true
		}
	}
	return nil, false
}

// Candidates returns the candidates in evaluation order.
func (r *Resolver) Candidates() []Candidate {
	out := make([]Candidate, len(r.candidates))
	for i, c := range r.candidates {
		out[i] = *c
	}
	return out
}

// Counts returns the number of candidates per layer.
func (r *Resolver) Counts() map[Layer]int {
	counts := make(map[Layer]int, 3)
	for _, c := range r.candidates {
		counts[c.Layer]++
	}
	return counts
}
