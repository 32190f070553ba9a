package prompt

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func newUndoTestScreen() *screen {
	s := &screen{}
	s.Init()
	s.SetSize(80, 24)
	s.Reset([]rune("> "))
	return s
}

func TestUndoInsert(t *testing.T) {
	s := newUndoTestScreen()
	s.Insert([]rune("hello")...)
	require.Equal(t, "hello", string(s.Text()))

	require.True(t, s.doUndo())
	require.Equal(t, "", string(s.Text()))
}

func TestUndoDelete(t *testing.T) {
	s := newUndoTestScreen()
	s.Insert([]rune("hello")...)
	s.MoveTo(0)
	s.EraseTo(5)
	require.Equal(t, "", string(s.Text()))

	require.True(t, s.doUndo())
	require.Equal(t, "hello", string(s.Text()))
}

func TestUndoGroupIsAtomic(t *testing.T) {
	s := newUndoTestScreen()
	s.Insert([]rune("ab")...)

	s.beginUndoGroup()
	s.recordDelete(0, 1, "a")
	s.recordInsert(0, 1)
	s.endUndoGroup()

	// The group pops as a single doUndo call: both entries inside it are
	// applied before doUndo returns, so the buffer is back to "ab" in one
	// step rather than needing a second call.
	require.True(t, s.doUndo())
	require.Equal(t, "ab", string(s.Text()))
}

func TestRevertLineUndoesEverything(t *testing.T) {
	s := newUndoTestScreen()
	s.Insert([]rune("one")...)
	s.Insert([]rune(" two")...)
	s.MoveTo(0)
	s.EraseTo(3)

	s.revertLine()
	require.Equal(t, "", string(s.Text()))
	require.Empty(t, s.undoList)
}

func TestWithoutUndoSuppressesRecording(t *testing.T) {
	s := newUndoTestScreen()
	s.Insert([]rune("hello")...)
	s.clearUndo()

	s.withoutUndo(func() {
		s.MoveTo(0)
		s.EraseTo(s.End())
		s.Insert([]rune("world")...)
	})

	require.Equal(t, "world", string(s.Text()))
	require.Empty(t, s.undoList)
}

func TestMarkTracksInsert(t *testing.T) {
	s := newUndoTestScreen()
	s.Insert([]rune("hello world")...)
	s.MoveTo(5)
	s.SetMark()

	s.MoveTo(0)
	s.Insert([]rune("XX")...)

	mark, ok := s.Mark()
	require.True(t, ok)
	require.Equal(t, 7, mark)
}
