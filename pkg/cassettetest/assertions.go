package cassettetest

import (
	"net/url"
	"testing"

	"github.com/getmockd/cassette/pkg/recording"
)

// AssertInteractionCount asserts how many interactions the recording holds.
func (r *Recorder) AssertInteractionCount(t testing.TB, expected int) {
	t.Helper()

	if got := len(r.Interactions()); got != expected {
		t.Errorf("expected %d recorded interactions, got %d", expected, got)
	}
}

// AssertRecorded asserts that the recording holds a request with the given
// method and URL path.
func (r *Recorder) AssertRecorded(t testing.TB, method, path string) *recording.Interaction {
	t.Helper()

	if ix := r.Find(method, path); ix != nil {
		return ix
	}
	t.Errorf("expected a recorded %s %s", method, path)
	return nil
}

// AssertNotRecorded asserts that no request with the given method and path
// was recorded.
func (r *Recorder) AssertNotRecorded(t testing.TB, method, path string) {
	t.Helper()

	if r.Find(method, path) != nil {
		t.Errorf("expected no recorded %s %s", method, path)
	}
}

// Find returns the first interaction with the given method and URL path.
func (r *Recorder) Find(method, path string) *recording.Interaction {
	for _, ix := range r.Interactions() {
		if ix.Request.Method != method {
			continue
		}
		u, err := url.Parse(ix.Request.URL)
		if err != nil {
			continue
		}
		if u.Path == path {
			return ix
		}
	}
	return nil
}
