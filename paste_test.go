package prompt

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestBracketedPasteAccumulatesAsOneInsert(t *testing.T) {
	p := newConfigTestPrompt()

	require.NoError(t, p.dispatchKeyLocked(keyPasteStart))
	require.True(t, p.mu.state.pasting)

	for _, r := range "hello world" {
		require.NoError(t, p.dispatchKeyLocked(r))
	}
	require.Equal(t, "", string(p.mu.state.screen.Text()), "nothing is inserted until the paste ends")

	require.NoError(t, p.dispatchKeyLocked(keyPasteEnd))
	require.False(t, p.mu.state.pasting)
	require.Equal(t, "hello world", string(p.mu.state.screen.Text()))

	// The whole paste undoes as one step, not rune by rune.
	require.True(t, p.mu.state.screen.doUndo())
	require.Equal(t, "", string(p.mu.state.screen.Text()))
}

func TestBracketedPasteIgnoresCommandKeysMidPaste(t *testing.T) {
	p := newConfigTestPrompt()

	require.NoError(t, p.dispatchKeyLocked(keyPasteStart))
	// A Control-a arriving mid-paste is pasted text, not a keybinding: it
	// must be accumulated literally rather than running beginning-of-line.
	require.NoError(t, p.dispatchKeyLocked(rune(keyCtrlA)))
	require.NoError(t, p.dispatchKeyLocked(keyPasteEnd))

	require.Equal(t, string(rune(keyCtrlA)), string(p.mu.state.screen.Text()))
}
