package recording

import (
	"context"
	"errors"
	"sync"
)

// OpenOptions controls how a Store treats the persisted recording.
type OpenOptions struct {
	// Create starts an empty recording when none is persisted yet.
	// Without it a missing recording is a *RecordingNotFoundError.
	Create bool

	// ReadOnly rejects appends; Flush becomes a no-op.
	ReadOnly bool

	// Discard ignores any persisted recording and starts empty.
	Discard bool
}

// Store is the working copy of one session's recording.
//
// Appends are serialized; lookups take a read lock and may run concurrently.
// Interactions handed out by the store must not be modified by callers.
// Concurrent stores over the same persister name are not coordinated.
type Store struct {
	name      string
	persister Persister
	opts      OpenOptions

	mu           sync.RWMutex
	interactions []*Interaction
	fromDisk     map[string]bool
	dirty        bool
	closed       bool

	closeOnce sync.Once
	closeErr  error
}

// Open creates or loads the named recording.
func Open(ctx context.Context, persister Persister, name string, opts OpenOptions) (*Store, error) {
	s := &Store{
		name:      name,
		persister: persister,
		opts:      opts,
		fromDisk:  make(map[string]bool),
	}
	if opts.Discard {
		s.dirty = true
		return s, nil
	}

	rec, err := persister.Load(ctx, name)
	switch {
	case err == nil:
		s.interactions = rec.Interactions
		for _, ix := range rec.Interactions {
			s.fromDisk[ix.ID] = true
		}
	case errors.Is(err, ErrRecordingNotFound) && opts.Create:
		// A fresh recording is written on close even with no interactions.
		s.dirty = true
	default:
		return nil, err
	}
	return s, nil
}

// Name returns the recording name the store was opened with.
func (s *Store) Name() string { return s.name }

// Append adds an interaction at the end of the recording.
func (s *Store) Append(ix *Interaction) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.writableLocked(); err != nil {
		return err
	}
	ix.Order = len(s.interactions)
	s.interactions = append(s.interactions, ix)
	s.dirty = true
	return nil
}

// Replace removes the interactions that were loaded from the persister and
// satisfy match, then appends ix. Interactions appended during this session
// are never removed. It returns how many interactions were dropped.
func (s *Store) Replace(ix *Interaction, match func(*Interaction) bool) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.writableLocked(); err != nil {
		return 0, err
	}

	kept := make([]*Interaction, 0, len(s.interactions)+1)
	dropped := 0
	for _, existing := range s.interactions {
		if s.fromDisk[existing.ID] && match(existing) {
			delete(s.fromDisk, existing.ID)
			dropped++
			continue
		}
		kept = append(kept, existing)
	}
	kept = append(kept, ix)
	// Renumber on a copy so earlier readers keep a consistent view.
	for i, k := range kept {
		if k.Order != i {
			c := k.Clone()
			c.Order = i
			kept[i] = c
		}
	}
	s.interactions = kept
	s.dirty = true
	return dropped, nil
}

// Find returns the first interaction, in persisted order, for which pred
// returns true, or nil.
func (s *Store) Find(pred func(*Interaction) bool) *Interaction {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, ix := range s.interactions {
		if pred(ix) {
			return ix
		}
	}
	return nil
}

// Interactions returns a snapshot of the recording in persisted order.
func (s *Store) Interactions() []*Interaction {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]*Interaction, len(s.interactions))
	copy(out, s.interactions)
	return out
}

// Len returns the number of interactions.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.interactions)
}

// Flush persists pending changes. It is a no-op when nothing changed since
// the last successful flush, so calling it repeatedly is safe.
func (s *Store) Flush(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.flushLocked(ctx)
}

func (s *Store) flushLocked(ctx context.Context) error {
	if s.opts.ReadOnly || !s.dirty {
		return nil
	}
	rec := &Recording{Name: s.name, Interactions: s.interactions}
	if err := s.persister.Save(ctx, s.name, rec); err != nil {
		return err
	}
	s.dirty = false
	return nil
}

// Close flushes and releases the store. Only the first call does work; later
// calls return the first call's result.
func (s *Store) Close(ctx context.Context) error {
	s.closeOnce.Do(func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		s.closeErr = s.flushLocked(ctx)
		s.closed = true
	})
	return s.closeErr
}

func (s *Store) writableLocked() error {
	if s.closed {
		return ErrStoreClosed
	}
	if s.opts.ReadOnly {
		return ErrReadOnly
	}
	return nil
}
