package studio

// History is a linear undo/redo log of snapshots with a cursor pointing to the active entry.
// Appending after undo drops every entry above the cursor. History is not thread safe, Store serializes access.
type History struct {
	entries []Snapshot
	cursor  int
}

// NewHistory makes a log with the initial snapshot as its only entry
func NewHistory(initial Snapshot) *History {
	return &History{entries: []Snapshot{initial}, cursor: 0}
}

// Append adds snapshot after the cursor, pruning the redo branch.
// Returns false and leaves the log untouched if snapshot equals the current entry.
func (h *History) Append(snapshot Snapshot) bool {
	if h.entries[h.cursor].Equal(snapshot) {
		return false
	}
	clear(h.entries[h.cursor+1:]) // release pruned labels
	h.entries = append(h.entries[:h.cursor+1], snapshot)
	h.cursor = len(h.entries) - 1
	return true
}

// Undo moves the cursor one entry back and returns the snapshot there.
// At the first entry it does nothing and returns false.
func (h *History) Undo() (Snapshot, bool) {
	if !h.CanUndo() {
		return h.entries[h.cursor], false
	}
	h.cursor--
	return h.entries[h.cursor], true
}

// Redo moves the cursor one entry forward and returns the snapshot there.
// At the last entry it does nothing and returns false.
func (h *History) Redo() (Snapshot, bool) {
	if !h.CanRedo() {
		return h.entries[h.cursor], false
	}
	h.cursor++
	return h.entries[h.cursor], true
}

// Head returns the snapshot under the cursor
func (h *History) Head() Snapshot {
	return h.entries[h.cursor]
}

// CanUndo reports whether there is an earlier entry
func (h *History) CanUndo() bool {
	return h.cursor > 0
}

// CanRedo reports whether there is a later entry
func (h *History) CanRedo() bool {
	return h.cursor < len(h.entries)-1
}

// Len returns number of entries in the log
func (h *History) Len() int {
	return len(h.entries)
}

// Cursor returns index of the active entry
func (h *History) Cursor() int {
	return h.cursor
}
