package session

import (
	"errors"
	"fmt"
	"strings"

	"github.com/getmockd/cassette/internal/matching"
)

// Sentinel errors matched by the typed errors below through errors.Is.
var (
	ErrInvalidMode      = errors.New("invalid mode")
	ErrUnmatchedRequest = errors.New("unmatched request")
	ErrSessionStopped   = errors.New("session stopped")
)

// InvalidModeError reports an unrecognized mode name.
type InvalidModeError struct {
	Value string
}

func (e *InvalidModeError) Error() string {
	names := make([]string, 0, 3)
	for _, m := range Modes() {
		names = append(names, string(m))
	}
	return fmt.Sprintf("invalid mode %q (expected one of %s)", e.Value, strings.Join(names, ", "))
}

func (e *InvalidModeError) Is(target error) bool { return target == ErrInvalidMode }

// Mismatch names one request field that differs from a stored interaction.
type Mismatch = matching.Mismatch

// UnmatchedRequestError reports a replayed request with no stored
// interaction. When HasClosest is set, Closest describes the nearest stored
// interaction; an empty Closest then means it matched but was already replayed.
type UnmatchedRequestError struct {
	Session string
	Method  string
	URL     string

	// Fields lists the request fields that participate in matching.
	Fields []string

	HasClosest   bool
	ClosestID    string
	ClosestOrder int
	Closest      []Mismatch
}

func (e *UnmatchedRequestError) Error() string {
	msg := fmt.Sprintf("session %q: no recorded interaction matches %s %s", e.Session, e.Method, e.URL)
	if !e.HasClosest {
		return msg + " (recording is empty)"
	}
	if len(e.Closest) == 0 {
		return fmt.Sprintf("%s (entry %d matches but was already replayed)", msg, e.ClosestOrder)
	}
	parts := make([]string, len(e.Closest))
	for i, mm := range e.Closest {
		parts[i] = mm.String()
	}
	return fmt.Sprintf("%s (closest is entry %d: %s)", msg, e.ClosestOrder, strings.Join(parts, "; "))
}

func (e *UnmatchedRequestError) Is(target error) bool { return target == ErrUnmatchedRequest }
