package recording

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"sync"
)

// RecordingFileName is the file each session writes inside its directory.
const RecordingFileName = "recording.har"

// Persister is the durable backend a Store loads from and flushes to.
type Persister interface {
	// Load returns the named recording or a *RecordingNotFoundError.
	Load(ctx context.Context, name string) (*Recording, error)
	// Save replaces the named recording. A failed save must leave the
	// previously saved recording intact.
	Save(ctx context.Context, name string, rec *Recording) error
}

// FilePersister stores one HAR file per session at <Dir>/<name>/recording.har.
type FilePersister struct {
	Dir string

	// rename is swapped in tests to simulate a crash before the final rename.
	rename func(oldpath, newpath string) error
}

// NewFilePersister creates a persister rooted at dir.
func NewFilePersister(dir string) *FilePersister {
	return &FilePersister{Dir: dir, rename: os.Rename}
}

// Path returns the file a recording name maps to.
func (p *FilePersister) Path(name string) string {
	return filepath.Join(p.Dir, SafeName(name), RecordingFileName)
}

// Load reads and validates a recording file.
func (p *FilePersister) Load(ctx context.Context, name string) (*Recording, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return LoadFile(p.Path(name), name)
}

// LoadFile reads and validates a recording file directly. name is used when
// the file does not carry its own recording name.
func LoadFile(path, name string) (*Recording, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, &RecordingNotFoundError{Name: name, Path: path}
		}
		return nil, fmt.Errorf("failed to read recording: %w", err)
	}

	rec, err := Unmarshal(data, path)
	if err != nil {
		return nil, err
	}
	if rec.Name == "" {
		rec.Name = name
	}
	return rec, nil
}

// Save writes the recording atomically: the data goes to a temp file in the
// same directory, is synced, and then renamed over the old file.
func (p *FilePersister) Save(ctx context.Context, name string, rec *Recording) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	path := p.Path(name)
	data, err := Marshal(rec)
	if err != nil {
		return &PersistenceError{Op: "marshal", Path: path, Err: err}
	}

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return &PersistenceError{Op: "mkdir", Path: path, Err: err}
	}

	tmp, err := os.CreateTemp(dir, "."+RecordingFileName+".*.tmp")
	if err != nil {
		return &PersistenceError{Op: "create temp", Path: path, Err: err}
	}
	tmpPath := tmp.Name()

	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmpPath)
		return &PersistenceError{Op: "write", Path: path, Err: err}
	}
	if err := tmp.Sync(); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmpPath)
		return &PersistenceError{Op: "sync", Path: path, Err: err}
	}
	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmpPath)
		return &PersistenceError{Op: "close", Path: path, Err: err}
	}

	rename := p.rename
	if rename == nil {
		rename = os.Rename
	}
	if err := rename(tmpPath, path); err != nil {
		_ = os.Remove(tmpPath)
		return &PersistenceError{Op: "rename", Path: path, Err: err}
	}
	return nil
}

// MemoryPersister keeps recordings in process memory. Saved recordings are
// serialized so a later Load observes exactly what a file would hold.
type MemoryPersister struct {
	mu   sync.RWMutex
	data map[string][]byte
}

// NewMemoryPersister creates an empty in-memory persister.
func NewMemoryPersister() *MemoryPersister {
	return &MemoryPersister{data: make(map[string][]byte)}
}

// Load decodes a previously saved recording.
func (p *MemoryPersister) Load(_ context.Context, name string) (*Recording, error) {
	p.mu.RLock()
	data, ok := p.data[name]
	p.mu.RUnlock()
	if !ok {
		return nil, &RecordingNotFoundError{Name: name}
	}
	return Unmarshal(data, "memory:"+name)
}

// Save stores the serialized recording.
func (p *MemoryPersister) Save(_ context.Context, name string, rec *Recording) error {
	data, err := Marshal(rec)
	if err != nil {
		return &PersistenceError{Op: "marshal", Path: "memory:" + name, Err: err}
	}
	p.mu.Lock()
	p.data[name] = data
	p.mu.Unlock()
	return nil
}

// Raw returns the serialized form of a saved recording.
func (p *MemoryPersister) Raw(name string) ([]byte, bool) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	data, ok := p.data[name]
	return data, ok
}

// SafeName maps a session name to a single path segment made of
// [A-Za-z0-9._-]; any other rune becomes '_'. When the mapping alters the
// name, a short hash of the original is appended so that "a/b" and "a_b"
// land in different directories.
func SafeName(name string) string {
	mapped := strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9':
			return r
		case r == '.' || r == '_' || r == '-':
			return r
		default:
			return '_'
		}
	}, name)
	switch mapped {
	case "":
		mapped = "_"
	case ".", "..":
		mapped = strings.Repeat("_", len(mapped))
	}
	if mapped == name {
		return mapped
	}
	sum := sha256.Sum256([]byte(name))
	return mapped + "-" + hex.EncodeToString(sum[:4])
}
