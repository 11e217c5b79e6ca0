package studio

import (
	"sync"

	log "github.com/go-pkgz/lgr"
)

// Store holds the current settings and label of a workspace and keeps History in sync with them.
// Every mutation is serialized, after any method returns the current state equals the history head.
type Store struct {
	mu      sync.Mutex
	current Snapshot
	history *History
}

// Position describes where the cursor is in the history log
type Position struct {
	Cursor  int  `json:"cursor"`
	Len     int  `json:"len"`
	CanUndo bool `json:"can_undo"`
	CanRedo bool `json:"can_redo"`
}

// NewStore makes a store with initial settings and no label
func NewStore(initial Settings) *Store {
	snap := Snapshot{Settings: initial}
	return &Store{current: snap, history: NewHistory(snap)}
}

// ApplyChange computes new settings from the current ones, makes them current
// and offers the resulting snapshot to history. Update must be a pure function.
func (s *Store) ApplyChange(update func(Settings) Settings) Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.current = Snapshot{Settings: update(s.current.Settings), Label: s.current.Label}
	s.commit()
	return s.current
}

// Replace sets settings as is
func (s *Store) Replace(settings Settings) Snapshot {
	return s.ApplyChange(func(Settings) Settings { return settings })
}

// SetLabel replaces the label, nil removes it
func (s *Store) SetLabel(label *Label) Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.current = Snapshot{Settings: s.current.Settings, Label: label}
	s.commit()
	return s.current
}

// Undo steps back in history and adopts the snapshot found there.
// Returns false if already at the oldest entry, the state is unchanged in this case.
func (s *Store) Undo() (Snapshot, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	snap, ok := s.history.Undo()
	if ok {
		s.current = snap
	}
	return s.current, ok
}

// Redo steps forward in history and adopts the snapshot found there.
// Returns false if already at the newest entry.
func (s *Store) Redo() (Snapshot, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	snap, ok := s.history.Redo()
	if ok {
		s.current = snap
	}
	return s.current, ok
}

// Current returns the current snapshot
func (s *Store) Current() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.current
}

// Position returns the history cursor state
func (s *Store) Position() Position {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.position()
}

// State returns the current snapshot with the matching history position, read under one lock
func (s *Store) State() (Snapshot, Position) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.current, s.position()
}

func (s *Store) position() Position {
	return Position{
		Cursor:  s.history.Cursor(),
		Len:     s.history.Len(),
		CanUndo: s.history.CanUndo(),
		CanRedo: s.history.CanRedo(),
	}
}

// commit offers current to history. On a duplicate the head is adopted to keep the label reference stable.
func (s *Store) commit() {
	if !s.history.Append(s.current) {
		s.current = s.history.Head()
		return
	}
	log.Printf("[DEBUG] history append, cursor %d of %d", s.history.Cursor(), s.history.Len())
}
