package service

import "github.com/noah-isme/timetable-api/internal/models"

// SnapshotHistory is a bounded undo/redo stack of whole snapshots. It is not safe for
// concurrent use; SnapshotService guards it with its own lock.
type SnapshotHistory struct {
	depth int
	undo  []models.Snapshot
	redo  []models.Snapshot
}

// NewSnapshotHistory keeps at most depth undo steps.
func NewSnapshotHistory(depth int) *SnapshotHistory {
	if depth <= 0 {
		depth = 20
	}
	return &SnapshotHistory{depth: depth}
}

// Push records prev as the state before a new write and clears the redo stack.
func (h *SnapshotHistory) Push(prev models.Snapshot) {
	h.undo = append(h.undo, prev)
	if len(h.undo) > h.depth {
		h.undo = append([]models.Snapshot(nil), h.undo[len(h.undo)-h.depth:]...)
	}
	h.redo = nil
}

// Undo returns the previous snapshot and remembers current for Redo.
func (h *SnapshotHistory) Undo(current models.Snapshot) (models.Snapshot, bool) {
	if len(h.undo) == 0 {
		return models.Snapshot{}, false
	}
	prev := h.undo[len(h.undo)-1]
	h.undo = h.undo[:len(h.undo)-1]
	h.redo = append(h.redo, current)
	return prev, true
}

// Redo reapplies the most recently undone snapshot.
func (h *SnapshotHistory) Redo(current models.Snapshot) (models.Snapshot, bool) {
	if len(h.redo) == 0 {
		return models.Snapshot{}, false
	}
	next := h.redo[len(h.redo)-1]
	h.redo = h.redo[:len(h.redo)-1]
	h.undo = append(h.undo, current)
	return next, true
}

// historyMark captures both stacks so a step can be taken back.
type historyMark struct {
	undo, redo []models.Snapshot
}

func (h *SnapshotHistory) mark() historyMark {
	return historyMark{undo: h.undo, redo: h.redo}
}

// rollback restores the stacks saved by mark. Undo and Redo only truncate and append, so
// the saved slices still hold the original entries.
func (h *SnapshotHistory) rollback(m historyMark) {
	h.undo, h.redo = m.undo, m.redo
}

// Depths reports how many undo and redo steps are available.
func (h *SnapshotHistory) Depths() (int, int) {
	return len(h.undo), len(h.redo)
}
