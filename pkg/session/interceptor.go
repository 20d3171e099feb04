package session

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"github.com/getmockd/cassette/internal/matching"
	"github.com/getmockd/cassette/pkg/recording"
	"github.com/getmockd/cassette/pkg/transform"
)

const (
	outcomeHit       = "hit"
	outcomeMiss      = "miss"
	outcomeRecorded  = "recorded"
	outcomeForwarded = "forwarded"
)

// Interceptor is the http.RoundTripper installed by a Session.
type Interceptor struct {
	session  string
	next     http.RoundTripper
	store    *recording.Store
	matcher  *matching.Matcher
	pipeline *transform.Pipeline
	rewrites []transform.Rewrite
	behavior behavior
	log      *slog.Logger
	now      func() time.Time

	// consumed tracks interactions that already answered a request when
	// matching is order-sensitive.
	mu       sync.Mutex
	consumed map[string]bool

	stopped atomic.Bool
}

// RoundTrip implements http.RoundTripper.
func (in *Interceptor) RoundTrip(req *http.Request) (*http.Response, error) {
	if in.stopped.Load() {
		return nil, fmt.Errorf("%s %s: %w", req.Method, req.URL, ErrSessionStopped)
	}

	body, err := readRequestBody(req)
	if err != nil {
		return nil, err
	}

	live := recording.CaptureRequest(req, body)
	if rewritten, ok := transform.RewriteURL(live.URL, in.rewrites); ok {
		live.URL = rewritten
	}

	return in.behavior.handle(req.Context(), in, req, &live)
}

func (in *Interceptor) stop() { in.stopped.Store(true) }

// readRequestBody drains the request body and puts an identical reader back
// so the request can still be forwarded.
func readRequestBody(req *http.Request) ([]byte, error) {
	if req.Body == nil || req.Body == http.NoBody {
		return nil, nil
	}
	body, err := io.ReadAll(req.Body)
	_ = req.Body.Close()
	if err != nil {
		return nil, fmt.Errorf("reading request body: %w", err)
	}
	req.Body = io.NopCloser(bytes.NewReader(body))
	req.GetBody = func() (io.ReadCloser, error) {
		return io.NopCloser(bytes.NewReader(body)), nil
	}
	return body, nil
}

// lookup returns the first stored interaction matching live. With
// order-sensitive matching it skips and then consumes interactions that
// already answered a request.
func (in *Interceptor) lookup(live *recording.Request) *recording.Interaction {
	match := in.matcher.Predicate(live)
	if !in.matcher.Config().Order {
		return in.store.Find(match)
	}

	in.mu.Lock()
	defer in.mu.Unlock()
	hit := in.store.Find(func(ix *recording.Interaction) bool {
		return !in.consumed[ix.ID] && match(ix)
	})
	if hit != nil {
		in.consumed[hit.ID] = true
	}
	return hit
}

func (in *Interceptor) markConsumed(id string) {
	if !in.matcher.Config().Order {
		return
	}
	in.mu.Lock()
	in.consumed[id] = true
	in.mu.Unlock()
}

// serve synthesizes a response from a stored interaction.
func (in *Interceptor) serve(ix *recording.Interaction, req *http.Request) (*http.Response, error) {
	resp, err := in.pipeline.Replay(ix.Response).HTTPResponse(req)
	if err != nil {
		return nil, fmt.Errorf("session %q: entry %d: %w", in.session, ix.Order, err)
	}
	return resp, nil
}

// forward sends req to the network, records the exchange and returns the
// live response. Transport errors are returned unchanged. With replace set,
// matching interactions loaded from the existing recording are dropped.
func (in *Interceptor) forward(ctx context.Context, req *http.Request, live *recording.Request, replace bool) (*http.Response, error) {
	started := in.now()
	resp, err := in.next.RoundTrip(req)
	if err != nil {
		in.log.DebugContext(ctx, "request", "method", live.Method, "url", live.URL, "outcome", outcomeForwarded, "error", err)
		return nil, err
	}
	duration := in.now().Sub(started)

	raw, err := io.ReadAll(resp.Body)
	_ = resp.Body.Close()
	if err != nil {
		return nil, err
	}
	resp.Body = io.NopCloser(bytes.NewReader(raw))

	stored, err := decodeContent(resp.Header.Get("Content-Encoding"), raw)
	if err != nil {
		in.log.WarnContext(ctx, "response body cannot be recorded",
			"url", live.URL, "encoding", resp.Header.Get("Content-Encoding"), "error", err)
		return nil, fmt.Errorf("session %q: recording %s %s: %w", in.session, live.Method, live.URL, err)
	}

	ix := in.pipeline.Persist(recording.NewInteraction(
		*live,
		recording.CaptureResponse(resp, stored),
		started,
		duration,
	))

	if replace {
		dropped, err := in.store.Replace(ix, in.matcher.Predicate(live))
		if err != nil {
			return nil, fmt.Errorf("session %q: recording %s %s: %w", in.session, live.Method, live.URL, err)
		}
		in.log.DebugContext(ctx, "request", "method", live.Method, "url", live.URL, "outcome", outcomeRecorded, "replaced", dropped)
	} else {
		if err := in.store.Append(ix); err != nil {
			return nil, fmt.Errorf("session %q: recording %s %s: %w", in.session, live.Method, live.URL, err)
		}
		in.log.DebugContext(ctx, "request", "method", live.Method, "url", live.URL, "outcome", outcomeRecorded)
	}
	in.markConsumed(ix.ID)
	return resp, nil
}

// unmatched builds the replay miss error, naming the closest stored
// interaction.
func (in *Interceptor) unmatched(live *recording.Request) error {
	err := &UnmatchedRequestError{
		Session: in.session,
		Method:  live.Method,
		URL:     live.URL,
		Fields:  matchedFields(in.matcher.Config()),
	}
	if near := in.matcher.Closest(live, in.store.Interactions()); near != nil {
		err.HasClosest = true
		err.ClosestID = near.ID
		err.ClosestOrder = near.Order
		err.Closest = near.Mismatches
	}
	return err
}

func (in *Interceptor) logOutcome(ctx context.Context, live *recording.Request, outcome string) {
	in.log.DebugContext(ctx, "request", "method", live.Method, "url", live.URL, "outcome", outcome)
}

func matchedFields(cfg matching.Config) []string {
	var fields []string
	if !cfg.IgnoreMethod {
		fields = append(fields, matching.FieldMethod)
	}
	fields = append(fields, "url("+string(cfg.URL)+")")
	if cfg.Headers != matching.HeadersIgnore {
		fields = append(fields, "headers("+string(cfg.Headers)+")")
	}
	if cfg.Body != matching.BodyIgnore {
		fields = append(fields, "body("+string(cfg.Body)+")")
	}
	return fields
}
