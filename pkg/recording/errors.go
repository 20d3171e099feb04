package recording

import (
	"errors"
	"fmt"
)

// Sentinel errors. The typed errors below match them with errors.Is.
var (
	ErrRecordingNotFound = errors.New("recording not found")
	ErrCorruptRecording  = errors.New("corrupt recording")
	ErrPersistence       = errors.New("recording persistence failed")
	ErrStoreClosed       = errors.New("recording store closed")
	ErrReadOnly          = errors.New("recording store is read-only")
)

// RecordingNotFoundError is returned when replay needs a recording that does
// not exist.
type RecordingNotFoundError struct {
	Name string
	Path string
}

func (e *RecordingNotFoundError) Error() string {
	if e.Path != "" {
		return fmt.Sprintf("recording %q not found at %s", e.Name, e.Path)
	}
	return fmt.Sprintf("recording %q not found", e.Name)
}

// Is makes errors.Is(err, ErrRecordingNotFound) work.
func (e *RecordingNotFoundError) Is(target error) bool {
	return target == ErrRecordingNotFound
}

// CorruptRecordingError is returned when a stored recording fails to parse
// or an entry misses required fields.
type CorruptRecordingError struct {
	Path   string
	Entry  int // -1 when the problem is not tied to one entry
	Reason string
	Err    error
}

func (e *CorruptRecordingError) Error() string {
	msg := "corrupt recording"
	if e.Path != "" {
		msg += " " + e.Path
	}
	if e.Entry >= 0 {
		msg += fmt.Sprintf(" (entry %d)", e.Entry)
	}
	if e.Reason != "" {
		msg += ": " + e.Reason
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *CorruptRecordingError) Is(target error) bool {
	return target == ErrCorruptRecording
}

func (e *CorruptRecordingError) Unwrap() error { return e.Err }

// PersistenceError is returned when writing a recording fails. The
// previously persisted file is left untouched.
type PersistenceError struct {
	Op   string
	Path string
	Err  error
}

func (e *PersistenceError) Error() string {
	return fmt.Sprintf("persist recording %s: %s: %v", e.Path, e.Op, e.Err)
}

func (e *PersistenceError) Is(target error) bool {
	return target == ErrPersistence
}

func (e *PersistenceError) Unwrap() error { return e.Err }
