// Package proxy provides a recording reverse proxy for clients that cannot
// install a Go transport.
//
// Every request received is rewritten onto the upstream base URL and sent
// through a session's transport, so it is recorded or replayed according to
// the session mode. Paths excluded by the filter bypass the session.
package proxy

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"

	"github.com/google/uuid"

	"github.com/getmockd/cassette/pkg/httputil"
	"github.com/getmockd/cassette/pkg/logging"
	"github.com/getmockd/cassette/pkg/session"
)

// RequestIDHeader carries the id the proxy assigned to a request.
const RequestIDHeader = "X-Cassette-Request-Id"

// Options configures proxy behavior.
type Options struct {
	// Upstream is the base URL requests are forwarded to. Required.
	Upstream string
	// Session records or replays selected requests. Required.
	Session *session.Session
	// Filter selects the paths that go through the session (nil = all).
	Filter *FilterConfig
	// Passthrough carries requests the filter excludes. Defaults to
	// http.DefaultTransport.
	Passthrough http.RoundTripper
	// Logger for traffic logging (nil = no logging).
	Logger *slog.Logger
}

// Proxy is the recording reverse proxy.
type Proxy struct {
	upstream    *url.URL
	session     *session.Session
	filter      *FilterConfig
	passthrough http.RoundTripper
	log         *slog.Logger
}

// New creates a Proxy with the given options.
func New(opts Options) (*Proxy, error) {
	if opts.Session == nil {
		return nil, errors.New("proxy: session is required")
	}
	upstream, err := url.Parse(opts.Upstream)
	if err != nil {
		return nil, fmt.Errorf("proxy: invalid upstream %q: %w", opts.Upstream, err)
	}
	if upstream.Scheme != "http" && upstream.Scheme != "https" || upstream.Host == "" {
		return nil, fmt.Errorf("proxy: upstream %q must be an absolute http(s) URL", opts.Upstream)
	}
	if err := opts.Filter.Validate(); err != nil {
		return nil, fmt.Errorf("proxy: %w", err)
	}

	passthrough := opts.Passthrough
	if passthrough == nil {
		passthrough = http.DefaultTransport
	}
	log := opts.Logger
	if log == nil {
		log = logging.Nop()
	}

	return &Proxy{
		upstream:    upstream,
		session:     opts.Session,
		filter:      opts.Filter,
		passthrough: passthrough,
		log:         log.With("component", "proxy", "upstream", upstream.String()),
	}, nil
}

// Session returns the session selected requests run through.
func (p *Proxy) Session() *session.Session { return p.session }

// ServeHTTP implements http.Handler for the proxy.
func (p *Proxy) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	id := uuid.NewString()
	w.Header().Set(RequestIDHeader, id)

	out, err := p.outgoing(r)
	if err != nil {
		httputil.WriteBadRequest(w, "invalid_request", err.Error())
		return
	}

	rt := p.session.Transport()
	recorded := p.filter.ShouldRecord(r.URL.Path)
	if !recorded {
		rt = p.passthrough
	}

	resp, err := rt.RoundTrip(out)
	if err != nil {
		p.writeError(w, id, out, err)
		return
	}
	defer func() { _ = resp.Body.Close() }()

	copyHeaders(w.Header(), resp.Header)
	removeHopByHopHeaders(w.Header())
	w.WriteHeader(resp.StatusCode)
	if _, err := io.Copy(w, resp.Body); err != nil {
		p.log.Debug("failed to copy response body", "id", id, "error", err)
	}
	p.log.Debug("proxied", "id", id, "method", out.Method, "url", out.URL.String(), "status", resp.StatusCode, "recorded", recorded)
}

// outgoing builds the upstream request: the upstream base path is joined
// with the incoming path and the incoming query is kept.
func (p *Proxy) outgoing(r *http.Request) (*http.Request, error) {
	target := *p.upstream
	target.Path = strings.TrimSuffix(p.upstream.Path, "/") + r.URL.Path
	if r.URL.RawPath != "" {
		target.RawPath = strings.TrimSuffix(p.upstream.EscapedPath(), "/") + r.URL.RawPath
	}
	target.RawQuery = r.URL.RawQuery

	out, err := http.NewRequestWithContext(r.Context(), r.Method, target.String(), r.Body)
	if err != nil {
		return nil, err
	}
	if r.Body == http.NoBody || r.ContentLength == 0 {
		out.Body = http.NoBody
	}
	out.ContentLength = r.ContentLength
	copyHeaders(out.Header, r.Header)
	removeHopByHopHeaders(out.Header)
	out.Host = p.upstream.Host
	return out, nil
}

func (p *Proxy) writeError(w http.ResponseWriter, id string, out *http.Request, err error) {
	var unmatched *session.UnmatchedRequestError
	switch {
	case errors.As(err, &unmatched):
		p.log.Info("unmatched request", "id", id, "method", out.Method, "url", out.URL.String())
		details := map[string]any{"compared": unmatched.Fields}
		if unmatched.HasClosest {
			diffs := make([]string, len(unmatched.Closest))
			for i, m := range unmatched.Closest {
				diffs[i] = m.String()
			}
			details["closest"] = map[string]any{"id": unmatched.ClosestID, "order": unmatched.ClosestOrder, "differences": diffs}
		}
		httputil.WriteErrorWithDetails(w, http.StatusNotFound, "unmatched_request", unmatched.Error(), details)
	case errors.Is(err, session.ErrSessionStopped):
		httputil.WriteServiceUnavailable(w, "session_stopped", err.Error())
	default:
		p.log.Warn("upstream request failed", "id", id, "method", out.Method, "url", out.URL.String(), "error", err)
		httputil.WriteBadGateway(w, "upstream_error", err.Error())
	}
}

// copyHeaders copies headers from src to dst.
func copyHeaders(dst, src http.Header) {
	for key, values := range src {
		for _, value := range values {
			dst.Add(key, value)
		}
	}
}

// removeHopByHopHeaders removes headers that should not be forwarded.
func removeHopByHopHeaders(h http.Header) {
	hopByHopHeaders := []string{
		"Connection",
		"Keep-Alive",
		"Proxy-Authenticate",
		"Proxy-Authorization",
		"Proxy-Connection",
		"TE",
		"Trailers",
		"Transfer-Encoding",
		"Upgrade",
	}

	for _, header := range hopByHopHeaders {
		h.Del(header)
	}
}
