package session

import (
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/getmockd/cassette/internal/matching"
	"github.com/getmockd/cassette/pkg/recording"
	"github.com/getmockd/cassette/pkg/transform"
)

// DefaultDir is the recordings directory used when Options.Dir is empty.
const DefaultDir = "recordings"

// MatchConfig enumerates the request fields that participate in matching.
// The zero value is the default policy.
type MatchConfig = matching.Config

// Match modes, re-exported for callers outside this module.
const (
	URLFull        = matching.URLFull
	URLIgnoreQuery = matching.URLIgnoreQuery
	URLPathQuery   = matching.URLPathQuery
	URLPath        = matching.URLPath

	HeadersExact  = matching.HeadersExact
	HeadersSubset = matching.HeadersSubset
	HeadersIgnore = matching.HeadersIgnore

	BodyExact  = matching.BodyExact
	BodyJSON   = matching.BodyJSON
	BodyIgnore = matching.BodyIgnore
)

// Rewrite maps an environment-specific address prefix to a portable one.
type Rewrite = transform.Rewrite

// Options configures a session.
type Options struct {
	// Name identifies the client whose traffic is recorded. Required.
	Name string

	// Mode is required; see ParseMode.
	Mode Mode

	// Dir is the recordings directory, used when Persister is nil.
	// Defaults to DefaultDir.
	Dir string

	// Persister overrides the file persister.
	Persister recording.Persister

	// Transport carries forwarded requests. Defaults to http.DefaultTransport.
	Transport http.RoundTripper

	Match MatchConfig

	// Rewrites is applied to request URLs before matching and persisting.
	Rewrites []Rewrite

	// BinaryContentTypes overrides transform.DefaultBinaryContentTypes.
	BinaryContentTypes []string

	// Logger for session events (nil = no logging).
	Logger *slog.Logger

	// Now is the clock used for interaction timestamps. Defaults to time.Now.
	Now func() time.Time
}

func (o Options) validate() error {
	if o.Name == "" {
		return fmt.Errorf("session name is required")
	}
	if !o.Mode.IsValid() {
		return &InvalidModeError{Value: string(o.Mode)}
	}
	if err := o.Match.Validate(); err != nil {
		return err
	}
	for i, rw := range o.Rewrites {
		if rw.From == "" {
			return fmt.Errorf("rewrite %d: empty from address", i)
		}
	}
	return nil
}

func (o Options) persister() recording.Persister {
	if o.Persister != nil {
		return o.Persister
	}
	dir := o.Dir
	if dir == "" {
		dir = DefaultDir
	}
	return recording.NewFilePersister(dir)
}
