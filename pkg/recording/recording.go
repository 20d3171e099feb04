// Package recording provides the interaction model, the on-disk recording
// format and the store that a capture/replay session appends to and reads from.
package recording

import (
	"bytes"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/getmockd/cassette/pkg/header"
)

// Interaction is one captured request/response pair.
type Interaction struct {
	ID        string
	Order     int
	StartedAt time.Time
	Duration  time.Duration

	Request  Request
	Response Response
}

// Request is the captured request half of an interaction.
type Request struct {
	Method      string
	URL         string
	HTTPVersion string
	Header      header.Header
	Body        Body
}

// Response is the captured response half of an interaction.
type Response struct {
	Status      int
	StatusText  string
	HTTPVersion string
	Header      header.Header
	Body        Body
}

// Recording is the ordered sequence of interactions of one session.
// Persisted order equals capture order.
type Recording struct {
	Name         string
	Interactions []*Interaction
}

// NewInteraction creates an interaction with a fresh identifier.
func NewInteraction(req Request, resp Response, startedAt time.Time, duration time.Duration) *Interaction {
	return &Interaction{
		ID:        uuid.NewString(),
		StartedAt: startedAt,
		Duration:  duration,
		Request:   req,
		Response:  resp,
	}
}

// Clone returns a deep copy of the interaction.
func (ix *Interaction) Clone() *Interaction {
	c := *ix
	c.Request.Header = ix.Request.Header.Clone()
	c.Response.Header = ix.Response.Header.Clone()
	return &c
}

// CaptureRequest captures details from an outgoing HTTP request. body is
// the fully read request body; the request's own Body is not touched.
func CaptureRequest(req *http.Request, body []byte) Request {
	return Request{
		Method:      req.Method,
		URL:         req.URL.String(),
		HTTPVersion: protoOrDefault(req.Proto),
		Header:      header.FromHTTP(req.Header),
		Body:        NewBody(body, req.Header.Get("Content-Type")),
	}
}

// CaptureResponse captures details from an HTTP response. body is the fully
// read, decoded response body.
func CaptureResponse(resp *http.Response, body []byte) Response {
	return Response{
		Status:      resp.StatusCode,
		StatusText:  statusText(resp),
		HTTPVersion: protoOrDefault(resp.Proto),
		Header:      header.FromHTTP(resp.Header),
		Body:        NewBody(body, resp.Header.Get("Content-Type")),
	}
}

// HTTPResponse materializes the stored response for req. Content-Length is
// computed from the decoded body.
func (r Response) HTTPResponse(req *http.Request) (*http.Response, error) {
	body, err := r.Body.Bytes()
	if err != nil {
		return nil, err
	}

	major, minor, ok := http.ParseHTTPVersion(protoOrDefault(r.HTTPVersion))
	if !ok {
		major, minor = 1, 1
	}

	return &http.Response{
		Status:        strconv.Itoa(r.Status) + " " + r.statusText(),
		StatusCode:    r.Status,
		Proto:         protoOrDefault(r.HTTPVersion),
		ProtoMajor:    major,
		ProtoMinor:    minor,
		Header:        r.Header.HTTP(),
		Body:          io.NopCloser(bytes.NewReader(body)),
		ContentLength: int64(len(body)),
		Request:       req,
	}, nil
}

func (r Response) statusText() string {
	if r.StatusText != "" {
		return r.StatusText
	}
	return http.StatusText(r.Status)
}

func statusText(resp *http.Response) string {
	// resp.Status is "200 OK"; keep only the reason phrase.
	if _, text, ok := strings.Cut(resp.Status, " "); ok {
		return text
	}
	return http.StatusText(resp.StatusCode)
}

func protoOrDefault(proto string) string {
	if proto == "" {
		return "HTTP/1.1"
	}
	return proto
}
