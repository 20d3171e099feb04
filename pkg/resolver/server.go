package resolver

import (
	"fmt"
	"log/slog"
	"net/http"

	"github.com/getmockd/cassette/pkg/httputil"
	"github.com/getmockd/cassette/pkg/logging"
)

// LayerHeader names the layer that answered a request.
const LayerHeader = "X-Cassette-Layer"

// Server is the mock server's http.Handler.
type Server struct {
	resolver *Resolver
	log      *slog.Logger
}

// NewServer returns a handler that answers every request through r.
func NewServer(r *Resolver, log *slog.Logger) *Server {
	if log == nil {
		log = logging.Nop()
	}
	return &Server{resolver: r, log: log.With("component", "resolver")}
}

// ServeHTTP implements http.Handler. Unhandled requests get a 404 JSON
// error and producer failures a 500.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	req, err := NewRequest(r)
	if err != nil {
		httputil.WriteBadRequest(w, "invalid_request", err.Error())
		return
	}

	c, ok := s.resolver.Resolve(req)
	if !ok {
		s.log.Debug("request", "method", r.Method, "path", r.URL.Path, "outcome", "unhandled")
		httputil.WriteNotFound(w, "no_handler", fmt.Sprintf("no handler for %s %s", r.Method, r.URL.RequestURI()))
		return
	}

	resp, err := c.Respond(req)
	if err != nil {
		s.log.Warn("handler failed", "candidate", c.Name, "layer", c.Layer.String(), "error", err)
		httputil.WriteInternalError(w, "handler_error", err.Error())
		return
	}

	s.log.Debug("request", "method", r.Method, "path", r.URL.Path, "layer", c.Layer.String(), "candidate", c.Name)
	w.Header().Set(LayerHeader, c.Layer.String())
	if err := resp.Write(w); err != nil {
		s.log.Debug("failed to write response", "error", err)
	}
}
