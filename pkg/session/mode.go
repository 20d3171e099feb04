package session

import (
	"context"
	"net/http"
	"strings"

	"github.com/getmockd/cassette/pkg/recording"
)

// Mode selects how a session treats requests. It is fixed for the lifetime
// of a session.
type Mode string

const (
	// ModeRecordNew serves requests already in the recording and forwards and
	// records the rest.
	ModeRecordNew Mode = "record-new"
	// ModeRecordOverwrite forwards every request and replaces matching
	// interactions loaded from the existing recording.
	ModeRecordOverwrite Mode = "record-overwrite"
	// ModeReplay serves requests from the recording only and never touches
	// the network.
	ModeReplay Mode = "replay"
)

// Modes lists every valid mode.
func Modes() []Mode {
	return []Mode{ModeRecordNew, ModeRecordOverwrite, ModeReplay}
}

// ParseMode parses a mode name. Unknown names return *InvalidModeError.
func ParseMode(s string) (Mode, error) {
	m := Mode(strings.ToLower(strings.TrimSpace(s)))
	if _, err := m.behavior(); err != nil {
		return "", &InvalidModeError{Value: s}
	}
	return m, nil
}

// String returns the mode name.
func (m Mode) String() string { return string(m) }

// IsValid reports whether m is one of the defined modes.
func (m Mode) IsValid() bool {
	_, err := m.behavior()
	return err == nil
}

// Records reports whether the mode may write to the recording.
func (m Mode) Records() bool {
	return m == ModeRecordNew || m == ModeRecordOverwrite
}

func (m Mode) openOptions() recording.OpenOptions {
	if m == ModeReplay {
		return recording.OpenOptions{ReadOnly: true}
	}
	return recording.OpenOptions{Create: true}
}

// behavior is the closed set of per-mode request handlers. Only the types in
// this file implement it.
type behavior interface {
	handle(ctx context.Context, in *Interceptor, req *http.Request, live *recording.Request) (*http.Response, error)
}

func (m Mode) behavior() (behavior, error) {
	switch m {
	case ModeRecordNew:
		return recordNew{}, nil
	case ModeRecordOverwrite:
		return recordOverwrite{}, nil
	case ModeReplay:
		return replay{}, nil
	}
	return nil, &InvalidModeError{Value: string(m)}
}

type recordNew struct{}

func (recordNew) handle(ctx context.Context, in *Interceptor, req *http.Request, live *recording.Request) (*http.Response, error) {
	if hit := in.lookup(live); hit != nil {
		in.logOutcome(ctx, live, outcomeHit)
		return in.serve(hit, req)
	}
	in.logOutcome(ctx, live, outcomeMiss)
	return in.forward(ctx, req, live, false)
}

type recordOverwrite struct{}

func (recordOverwrite) handle(ctx context.Context, in *Interceptor, req *http.Request, live *recording.Request) (*http.Response, error) {
	return in.forward(ctx, req, live, true)
}

type replay struct{}

func (replay) handle(ctx context.Context, in *Interceptor, req *http.Request, live *recording.Request) (*http.Response, error) {
	if hit := in.lookup(live); hit != nil {
		in.logOutcome(ctx, live, outcomeHit)
		return in.serve(hit, req)
	}
	in.logOutcome(ctx, live, outcomeMiss)
	return nil, in.unmatched(live)
}
