package prompt

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func newMacroTestPrompt() *Prompt {
	p := New()
	p.mu.state.screen.SetSize(80, 24)
	p.mu.state.screen.Reset([]rune("> "))
	return p
}

func TestMacroRecordAndReplay(t *testing.T) {
	p := newMacroTestPrompt()

	// C-x ( starts recording, "ab" is typed, C-x ) ends it.
	require.NoError(t, p.dispatchKeyLocked(keyCtrlX))
	require.NoError(t, p.dispatchKeyLocked('('))
	require.NoError(t, p.dispatchKeyLocked('a'))
	require.NoError(t, p.dispatchKeyLocked('b'))
	require.NoError(t, p.dispatchKeyLocked(keyCtrlX))
	require.NoError(t, p.dispatchKeyLocked(')'))

	require.Equal(t, "ab", string(p.mu.state.macro.last))
	require.Equal(t, "ab", string(p.mu.state.screen.Text()))

	// C-x e replays it once.
	require.NoError(t, p.dispatchKeyLocked(keyCtrlX))
	require.NoError(t, p.dispatchKeyLocked('e'))

	require.Equal(t, "abab", string(p.mu.state.screen.Text()))
}

func TestMacroCallWithNoneDefinedIsNoop(t *testing.T) {
	p := newMacroTestPrompt()

	require.NoError(t, p.dispatchKeyLocked(keyCtrlX))
	require.NoError(t, p.dispatchKeyLocked('e'))

	require.Equal(t, "", string(p.mu.state.screen.Text()))
}

func TestMacroRedefineMidReplay(t *testing.T) {
	s := &state{}
	s.bindings = make(map[rune]command)
	require.NoError(t, parseBindings(s.bindings, defaultBindings))
	s.screen.Init()
	s.screen.SetSize(80, 24)
	s.screen.Reset([]rune("> "))

	s.macro.start()
	_, _ = s.dispatchOne('x')
	s.macro.stop()

	// Snapshot the macro the way call-last-kbd-macro does, then redefine
	// the named macro before "replaying" the snapshot: the snapshot must
	// be unaffected, since macroState.last is only overwritten by a
	// subsequent stop(), not mutated in place.
	snapshot := s.macro.last

	s.macro.start()
	_, _ = s.dispatchOne('y')
	s.macro.stop()

	require.Equal(t, "x", string(snapshot))
	require.Equal(t, "y", string(s.macro.last))
}
