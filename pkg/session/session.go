// Package session runs record and replay sessions for HTTP clients.
//
// A Session owns one recording, loaded or created when the session starts
// and flushed when it stops. Its Transport routes every outgoing request
// through the session's mode: serve it from the recording, forward it and
// record the result, or fail with *UnmatchedRequestError.
//
// Run and RunValue scope a session to a function and stop it on every exit
// path, including panics:
//
//	err := session.Run(ctx, session.Options{Name: "algod", Mode: session.ModeReplay},
//		func(ctx context.Context, s *session.Session) error {
//			_, err := s.Client().Get(baseURL + "/v2/status")
//			return err
//		})
package session

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/getmockd/cassette/internal/matching"
	"github.com/getmockd/cassette/pkg/logging"
	"github.com/getmockd/cassette/pkg/recording"
	"github.com/getmockd/cassette/pkg/transform"
)

// Session is one record or replay run for a named client.
type Session struct {
	name        string
	mode        Mode
	store       *recording.Store
	interceptor *Interceptor
	persister   recording.Persister
	log         *slog.Logger

	stopOnce sync.Once
	stopErr  error
}

// Start opens the recording and returns a running session. An unknown mode
// fails with *InvalidModeError before anything is read. Replay of a
// recording that does not exist fails with *recording.RecordingNotFoundError.
func Start(ctx context.Context, opts Options) (*Session, error) {
	if err := opts.validate(); err != nil {
		return nil, err
	}
	b, err := opts.Mode.behavior()
	if err != nil {
		return nil, err
	}

	log := opts.Logger
	if log == nil {
		log = logging.Nop()
	}
	log = log.With("component", "session", "session", opts.Name, "mode", opts.Mode.String())

	persister := opts.persister()
	store, err := recording.Open(ctx, persister, opts.Name, opts.Mode.openOptions())
	if err != nil {
		return nil, err
	}

	next := opts.Transport
	if next == nil {
		next = http.DefaultTransport
	}
	now := opts.Now
	if now == nil {
		now = time.Now
	}

	s := &Session{
		name:      opts.Name,
		mode:      opts.Mode,
		store:     store,
		persister: persister,
		log:       log,
	}
	s.interceptor = &Interceptor{
		session:  opts.Name,
		next:     next,
		store:    store,
		matcher:  matching.New(opts.Match),
		pipeline: transform.NewPipeline(transform.Options{BinaryContentTypes: opts.BinaryContentTypes, Rewrites: opts.Rewrites}),
		rewrites: opts.Rewrites,
		behavior: b,
		log:      log,
		now:      now,
		consumed: make(map[string]bool),
	}

	log.Info("session started", "path", s.Path(), "interactions", store.Len())
	return s, nil
}

// Name returns the client name.
func (s *Session) Name() string { return s.name }

// Mode returns the session's mode.
func (s *Session) Mode() Mode { return s.mode }

// Path returns the recording file path, or "" when the session does not
// persist to the file system.
func (s *Session) Path() string {
	if fp, ok := s.persister.(*recording.FilePersister); ok {
		return fp.Path(s.name)
	}
	return ""
}

// Transport returns the session's request interceptor.
func (s *Session) Transport() http.RoundTripper { return s.interceptor }

// Client returns an http.Client whose requests go through the session.
func (s *Session) Client() *http.Client {
	return &http.Client{Transport: s.interceptor}
}

// Interactions returns a snapshot of the recording in persisted order.
func (s *Session) Interactions() []*recording.Interaction {
	return s.store.Interactions()
}

// Flush persists interactions recorded so far without stopping the session.
func (s *Session) Flush(ctx context.Context) error {
	return s.store.Flush(ctx)
}

// Stop flushes the recording and tears the session down. Requests made
// afterwards fail with ErrSessionStopped. Only the first call does work;
// later calls return its result.
func (s *Session) Stop(ctx context.Context) error {
	s.stopOnce.Do(func() {
		s.interceptor.stop()
		s.stopErr = s.store.Close(ctx)
		if s.stopErr != nil {
			s.log.Warn("failed to flush recording", "path", s.Path(), "error", s.stopErr)
			return
		}
		s.log.Info("session stopped", "path", s.Path(), "interactions", s.store.Len())
	})
	return s.stopErr
}

// Run starts a session, calls fn and stops the session on every exit path.
// A stop error is joined after fn's error.
func Run(ctx context.Context, opts Options, fn func(context.Context, *Session) error) (err error) {
	s, err := Start(ctx, opts)
	if err != nil {
		return err
	}
	defer func() {
		if stopErr := s.Stop(context.WithoutCancel(ctx)); stopErr != nil {
			err = errors.Join(err, stopErr)
		}
	}()
	return fn(ctx, s)
}

// RunValue is Run for functions that produce a value.
func RunValue[T any](ctx context.Context, opts Options, fn func(context.Context, *Session) (T, error)) (v T, err error) {
	s, err := Start(ctx, opts)
	if err != nil {
		return v, err
	}
	defer func() {
		if stopErr := s.Stop(context.WithoutCancel(ctx)); stopErr != nil {
			err = errors.Join(err, stopErr)
		}
	}()
	return fn(ctx, s)
}
