package resolver

import (
	"fmt"
	"path/filepath"
	"slices"

	"github.com/bmatcuk/doublestar/v4"

	"github.com/getmockd/cassette/internal/matching"
	"github.com/getmockd/cassette/pkg/recording"
	"github.com/getmockd/cassette/pkg/transform"
)

// DefaultRecordedMatch is the matching policy for recorded candidates. A
// mock server sees its own host, so only the path and query are compared,
// and client headers differ between callers.
func DefaultRecordedMatch() matching.Config {
	return matching.Config{
		URL:     matching.URLPathQuery,
		Headers: matching.HeadersIgnore,
	}
}

// FromRecording adapts each interaction of rec into a candidate using the
// same matcher a replay session uses. Responses go through the replay-side
// transform.
func FromRecording(rec *recording.Recording, cfg matching.Config) []Candidate {
	m := matching.New(cfg)
	out := make([]Candidate, 0, len(rec.Interactions))
	for _, ix := range rec.Interactions {
		stored := ix.Request
		resp := transform.StripTransportHeaders(ix.Response)
		out = append(out, Candidate{
			Name: fmt.Sprintf("%s#%d %s %s", rec.Name, ix.Order, stored.Method, stored.URL),
			Match: func(r *Request) bool {
				return m.Match(&r.captured, &stored)
			},
			Respond: func(*Request) (*Response, error) {
				body, err := resp.Body.Bytes()
				if err != nil {
					return nil, fmt.Errorf("recording %q entry %d: %w", rec.Name, ix.Order, err)
				}
				return &Response{Status: resp.Status, Header: resp.Header.HTTP(), Body: body}, nil
			},
		})
	}
	return out
}

// LoadRecordings expands the glob patterns (doublestar syntax, ** allowed),
// loads every matching recording file and adapts it with FromRecording.
// Files are loaded in sorted order, each once. It returns the loaded paths.
func LoadRecordings(patterns []string, cfg matching.Config) ([]Candidate, []string, error) {
	var paths []string
	for _, pattern := range patterns {
		matches, err := doublestar.FilepathGlob(pattern)
		if err != nil {
			return nil, nil, fmt.Errorf("recordings pattern %q: %w", pattern, err)
		}
		paths = append(paths, matches...)
	}
	slices.Sort(paths)
	paths = slices.Compact(paths)

	var out []Candidate
	for _, path := range paths {
		rec, err := recording.LoadFile(path, filepath.Base(filepath.Dir(path)))
		if err != nil {
			return nil, nil, err
		}
		out = append(out, FromRecording(rec, cfg)...)
	}
	return out, paths, nil
}
