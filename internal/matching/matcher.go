package matching

import (
	"bytes"
	"encoding/json"
	"net/url"
	"reflect"
	"strings"

	"github.com/getmockd/cassette/pkg/header"
	"github.com/getmockd/cassette/pkg/recording"
)

// Matcher decides whether a live request equals a stored one under a Config.
// A Matcher is immutable and safe for concurrent use.
type Matcher struct {
	cfg Config
}

// New returns a Matcher for cfg. Empty modes take their defaults.
func New(cfg Config) *Matcher {
	return &Matcher{cfg: cfg.withDefaults()}
}

// Config returns the effective configuration.
func (m *Matcher) Config() Config { return m.cfg }

// Match reports whether live equals stored in every configured field.
func (m *Matcher) Match(live, stored *recording.Request) bool {
	return len(m.compare(live, stored, true)) == 0
}

// Explain lists every configured field in which live differs from stored.
// An empty result means the requests match.
func (m *Matcher) Explain(live, stored *recording.Request) []Mismatch {
	return m.compare(live, stored, false)
}

// Predicate returns a store predicate matching interactions whose request
// equals live.
func (m *Matcher) Predicate(live *recording.Request) func(*recording.Interaction) bool {
	return func(ix *recording.Interaction) bool {
		return m.Match(live, &ix.Request)
	}
}

func (m *Matcher) compare(live, stored *recording.Request, stopEarly bool) []Mismatch {
	var out []Mismatch
	add := func(mm ...Mismatch) bool {
		out = append(out, mm...)
		return stopEarly && len(out) > 0
	}

	if !m.cfg.IgnoreMethod && !MatchMethod(stored.Method, live.Method) {
		if add(Mismatch{Field: FieldMethod, Stored: stored.Method, Live: live.Method}) {
			return out
		}
	}
	if add(m.compareURL(live.URL, stored.URL)...) {
		return out
	}
	if add(m.compareHeaders(live.Header, stored.Header)...) {
		return out
	}
	if mm, ok := m.compareBody(live.Body, stored.Body); !ok {
		add(mm)
	}
	return out
}

func (m *Matcher) compareURL(liveRaw, storedRaw string) []Mismatch {
	lu, lerr := url.Parse(liveRaw)
	su, serr := url.Parse(storedRaw)
	if lerr != nil || serr != nil {
		if liveRaw == storedRaw {
			return nil
		}
		return []Mismatch{{Field: FieldURL, Stored: storedRaw, Live: liveRaw}}
	}

	var out []Mismatch
	if m.cfg.URL == URLFull || m.cfg.URL == URLIgnoreQuery {
		if !strings.EqualFold(su.Scheme, lu.Scheme) {
			out = append(out, Mismatch{Field: FieldScheme, Stored: su.Scheme, Live: lu.Scheme})
		}
		if !strings.EqualFold(su.Host, lu.Host) {
			out = append(out, Mismatch{Field: FieldHost, Stored: su.Host, Live: lu.Host})
		}
	}
	if sp, lp := pathOf(su), pathOf(lu); sp != lp {
		out = append(out, Mismatch{Field: FieldPath, Stored: sp, Live: lp})
	}
	if m.cfg.URL == URLFull || m.cfg.URL == URLPathQuery {
		sq, lq := su.RawQuery, lu.RawQuery
		if m.cfg.IgnoreQueryOrder {
			sq, lq = su.Query().Encode(), lu.Query().Encode()
		}
		if sq != lq {
			out = append(out, Mismatch{Field: FieldQuery, Stored: su.RawQuery, Live: lu.RawQuery})
		}
	}
	return out
}

func pathOf(u *url.URL) string {
	p := u.EscapedPath()
	if p == "" {
		return "/"
	}
	return p
}

func (m *Matcher) compareHeaders(live, stored header.Header) []Mismatch {
	if m.cfg.Headers == HeadersIgnore {
		return nil
	}
	live = live.Without(m.cfg.IgnoreHeaders...)
	stored = stored.Without(m.cfg.IgnoreHeaders...)

	names := stored.Names()
	if m.cfg.Headers == HeadersExact {
		names = unionNames(names, live.Names())
	}

	var out []Mismatch
	for _, name := range names {
		sv, lv := stored.Values(name), live.Values(name)
		if !sameValues(sv, lv) {
			out = append(out, Mismatch{
				Field:  FieldHeaderPrefix + name,
				Stored: displayValues(sv),
				Live:   displayValues(lv),
			})
		}
	}
	return out
}

func (m *Matcher) compareBody(live, stored recording.Body) (Mismatch, bool) {
	if m.cfg.Body == BodyIgnore {
		return Mismatch{}, true
	}
	lb, lerr := live.Bytes()
	sb, serr := stored.Bytes()
	mismatch := Mismatch{Field: FieldBody, Stored: truncate(string(sb), 200), Live: truncate(string(lb), 200)}
	if lerr != nil || serr != nil {
		return mismatch, false
	}
	if bytes.Equal(lb, sb) {
		return Mismatch{}, true
	}
	if m.cfg.Body == BodyJSON && jsonEqual(lb, sb) {
		return Mismatch{}, true
	}
	return mismatch, false
}

// MatchMethod checks if the request method matches, case-insensitively.
func MatchMethod(expected, actual string) bool {
	return strings.EqualFold(expected, actual)
}

func jsonEqual(a, b []byte) bool {
	var av, bv any
	if json.Unmarshal(a, &av) != nil || json.Unmarshal(b, &bv) != nil {
		return false
	}
	return reflect.DeepEqual(av, bv)
}

func unionNames(a, b []string) []string {
	seen := make(map[string]bool, len(a)+len(b))
	out := make([]string, 0, len(a)+len(b))
	for _, list := range [][]string{a, b} {
		for _, n := range list {
			if !seen[n] {
				seen[n] = true
				out = append(out, n)
			}
		}
	}
	return out
}

func sameValues(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

func displayValues(v []string) string {
	if len(v) == 0 {
		return "(missing)"
	}
	return strings.Join(v, ", ")
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
