// Package cassettetest binds record and replay sessions to Go tests.
//
// A test names its recording and gets an http.Client whose traffic is
// recorded or replayed; the recording is flushed when the test ends:
//
//	func TestStatus(t *testing.T) {
//	    client := cassettetest.Client(t, "algod-status")
//	    resp, err := client.Get(algodURL + "/v2/status")
//	    ...
//	}
//
// The mode comes from the CASSETTE_MODE environment variable and defaults
// to replay, so CI never touches the network. Run with
// CASSETTE_MODE=record-new to capture missing interactions.
package cassettetest

import (
	"context"
	"net/http"
	"os"
	"strings"
	"testing"

	"github.com/getmockd/cassette/pkg/recording"
	"github.com/getmockd/cassette/pkg/session"
)

const (
	// ModeEnv selects the session mode for all tests.
	ModeEnv = "CASSETTE_MODE"
	// DirEnv overrides the recordings directory.
	DirEnv = "CASSETTE_RECORDINGS_DIR"
	// DefaultDir is relative to the package under test.
	DefaultDir = "testdata/recordings"
)

// Option adjusts the session options of a test recorder.
type Option func(*session.Options)

// WithMode fixes the mode regardless of CASSETTE_MODE.
func WithMode(mode session.Mode) Option {
	return func(o *session.Options) { o.Mode = mode }
}

// WithDir sets the recordings directory.
func WithDir(dir string) Option {
	return func(o *session.Options) { o.Dir = dir }
}

// WithPersister replaces file persistence, e.g. with a MemoryPersister.
func WithPersister(p recording.Persister) Option {
	return func(o *session.Options) { o.Persister = p }
}

// WithMatch sets the matching policy.
func WithMatch(cfg session.MatchConfig) Option {
	return func(o *session.Options) { o.Match = cfg }
}

// WithRewrites appends address rewrites.
func WithRewrites(rewrites ...session.Rewrite) Option {
	return func(o *session.Options) { o.Rewrites = append(o.Rewrites, rewrites...) }
}

// WithTransport sets the transport used for forwarded requests.
func WithTransport(rt http.RoundTripper) Option {
	return func(o *session.Options) { o.Transport = rt }
}

// Recorder is a session bound to a test.
type Recorder struct {
	t       testing.TB
	session *session.Session
}

// New starts a session named name and stops it in t.Cleanup. An empty name
// uses the test name. Start failures, such as replaying a recording that
// does not exist, fail the test immediately.
func New(t testing.TB, name string, opts ...Option) *Recorder {
	t.Helper()

	if name == "" {
		name = strings.ReplaceAll(t.Name(), "/", "_")
	}
	o := session.Options{Name: name, Mode: session.ModeReplay, Dir: DefaultDir}
	if v := os.Getenv(ModeEnv); v != "" {
		mode, err := session.ParseMode(v)
		if err != nil {
			t.Fatalf("cassettetest: %s: %v", ModeEnv, err)
		}
		o.Mode = mode
	}
	if v := os.Getenv(DirEnv); v != "" {
		o.Dir = v
	}
	for _, opt := range opts {
		opt(&o)
	}

	s, err := session.Start(context.Background(), o)
	if err != nil {
		t.Fatalf("cassettetest: starting session %q: %v", name, err)
	}
	r := &Recorder{t: t, session: s}
	t.Cleanup(func() {
		if err := s.Stop(context.Background()); err != nil {
			t.Errorf("cassettetest: stopping session %q: %v", name, err)
		}
	})
	return r
}

// Client starts a session for t and returns a client routed through it.
func Client(t testing.TB, name string, opts ...Option) *http.Client {
	t.Helper()
	return New(t, name, opts...).Client()
}

// Client returns an http.Client routed through the session.
func (r *Recorder) Client() *http.Client { return r.session.Client() }

// Transport returns the session's round tripper.
func (r *Recorder) Transport() http.RoundTripper { return r.session.Transport() }

// Session returns the underlying session.
func (r *Recorder) Session() *session.Session { return r.session }

// Interactions returns the recording's interactions in persisted order.
func (r *Recorder) Interactions() []*recording.Interaction {
	return r.session.Interactions()
}
