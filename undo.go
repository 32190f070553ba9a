package prompt

// undoKind tags an undo list entry. The four kinds mirror readline's
// UNDO_DELETE / UNDO_INSERT / UNDO_BEGIN / UNDO_END (see undo.cc).
type undoKind int

const (
	undoDelete undoKind = iota
	undoInsert
	undoBegin
	undoEnd
)

// Sentinel start/end values used by vi-mode late binding: a position is
// resolved against the current point or end-of-buffer at undo time rather
// than a position fixed when the entry was recorded. No command in this
// module currently records a sentinel position (vi-mode commands are out of
// scope per spec.md §1), but resolveUndoPos handles them uniformly so a
// future vi-mode command can push one without changing doUndo.
const (
	undoAtPoint = -1
	undoAtEnd   = -2
)

// undoEntry is one entry in a screen's undo list. For undoDelete, text holds
// the deleted characters so undoing re-inserts them; undoInsert entries
// don't need text since undoing just deletes [start,end).
type undoEntry struct {
	kind  undoKind
	start int
	end   int
	text  string
}

func resolveUndoPos(s *screen, pos int) int {
	switch pos {
	case undoAtPoint:
		return s.Position()
	case undoAtEnd:
		return len(s.Text())
	default:
		return pos
	}
}

// recordInsert appends an undo entry for an insertion that now occupies
// [start,end), unless undo recording is currently suppressed (doingUndo, or a
// caller explicitly disabled it while replaying history/search).
func (s *screen) recordInsert(start, end int) {
	if s.doingUndo || s.undoSuppressed {
		return
	}
	s.undoList = append(s.undoList, undoEntry{kind: undoInsert, start: start, end: end})
}

// recordDelete appends an undo entry for a deletion of text from [start,end).
func (s *screen) recordDelete(start, end int, text string) {
	if s.doingUndo || s.undoSuppressed || text == "" {
		return
	}
	s.undoList = append(s.undoList, undoEntry{kind: undoDelete, start: start, end: end, text: text})
}

// beginUndoGroup fences a series of edits so that a single doUndo call
// reverses all of them atomically. Groups may nest.
func (s *screen) beginUndoGroup() {
	if s.undoSuppressed {
		return
	}
	s.undoList = append(s.undoList, undoEntry{kind: undoBegin})
}

// endUndoGroup closes a group opened by beginUndoGroup. Every beginUndoGroup
// along a control path must eventually be matched by endUndoGroup.
func (s *screen) endUndoGroup() {
	if s.undoSuppressed {
		return
	}
	s.undoList = append(s.undoList, undoEntry{kind: undoEnd})
}

// withoutUndo runs fn with undo recording suppressed, for callers (history
// navigation, incremental search) that replace the whole buffer wholesale and
// don't want that replacement to become undoable -- readline treats history
// movement as resetting the undo list for the line, not as an undoable edit.
func (s *screen) withoutUndo(fn func()) {
	prev := s.undoSuppressed
	s.undoSuppressed = true
	defer func() { s.undoSuppressed = prev }()
	fn()
}

// doUndo pops and applies the most recent undo entry (or, for a BEGIN/END
// bracketed group, the entire group as one atomic step). It returns false if
// there was nothing to undo.
func (s *screen) doUndo() bool {
	if len(s.undoList) == 0 {
		return false
	}

	waitingForBegin := 0
	for {
		if len(s.undoList) == 0 {
			return true
		}
		entry := s.undoList[len(s.undoList)-1]

		s.doingUndo = true
		switch entry.kind {
		case undoDelete:
			start := resolveUndoPos(s, entry.start)
			s.MoveTo(start)
			s.Insert([]rune(entry.text)...)

		case undoInsert:
			start := resolveUndoPos(s, entry.start)
			end := resolveUndoPos(s, entry.end)
			s.MoveTo(start)
			s.EraseTo(end)

		case undoEnd:
			waitingForBegin++

		case undoBegin:
			if waitingForBegin > 0 {
				waitingForBegin--
			} else {
				s.outbuf.WriteRune(keyCtrlG)
			}
		}
		s.doingUndo = false

		s.undoList = s.undoList[:len(s.undoList)-1]

		if waitingForBegin == 0 {
			return true
		}
	}
}

// revertLine undoes repeatedly until the undo list is empty, returning the
// buffer to its state at the start of the current read cycle.
func (s *screen) revertLine() {
	for s.doUndo() {
	}
}

// modifying snapshots [start,end) as a delete+insert pair bracketed by an
// undo group, so that an arbitrary subsequent edit to that range can be
// undone even if it wasn't itself recorded as a single Insert/EraseTo call.
func (s *screen) modifying(start, end int) {
	if start > end {
		start, end = end, start
	}
	if start == end {
		return
	}
	text := string(s.Text()[start:end])
	s.beginUndoGroup()
	s.recordDelete(start, end, text)
	s.recordInsert(start, end)
	s.endUndoGroup()
}

// clearUndo discards all undo history, used when starting a fresh read
// cycle (screen.Reset).
func (s *screen) clearUndo() {
	s.undoList = s.undoList[:0]
}
