package prompt

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

func newConfigTestPrompt() *Prompt {
	p := New()
	p.mu.state.screen.SetSize(80, 24)
	p.mu.state.screen.Reset([]rune("> "))
	return p
}

func TestConfigSetUpdatesPolicy(t *testing.T) {
	p := newConfigTestPrompt()
	cfg := "set bell-style none\nset completion-query-items 5\nset mark-directories off\n"

	require.NoError(t, ParseConfig(p, strings.NewReader(cfg), "", "test"))
	require.Equal(t, "none", p.mu.state.policy.bellStyle)
	require.Equal(t, 5, p.mu.state.policy.completionQueryItems)
	require.False(t, p.mu.state.policy.markDirectories)
}

// keyCtrlO is Control-o (15), left unbound by defaultBindings, used below to
// exercise bind/macro-literal config directives against a key with no
// preexisting binding.
const keyCtrlO = 15

func TestConfigBindAddsBinding(t *testing.T) {
	p := newConfigTestPrompt()
	cfg := `bind Control-o clear-screen` + "\n"

	require.NoError(t, ParseConfig(p, strings.NewReader(cfg), "", "test"))
	require.Equal(t, cmdClearScreen, p.mu.state.bindings[rune(keyCtrlO)])
}

func TestConfigBindMacroLiteral(t *testing.T) {
	p := newConfigTestPrompt()
	cfg := `bind Control-o = ab` + "\n"

	require.NoError(t, ParseConfig(p, strings.NewReader(cfg), "", "test"))
	require.Equal(t, []rune("ab"), p.mu.state.rootMacros[rune(keyCtrlO)])

	require.NoError(t, p.dispatchKeyLocked(rune(keyCtrlO)))
	require.Equal(t, "ab", string(p.mu.state.screen.Text()))
}

func TestConfigIfModeSkipsNonMatchingBranch(t *testing.T) {
	p := newConfigTestPrompt()
	p.configContext = ConfigContext{Mode: "emacs"}
	cfg := "$if mode=vi\nset bell-style none\n$else\nset bell-style visible\n$endif\n"

	require.NoError(t, ParseConfig(p, strings.NewReader(cfg), "", "test"))
	require.Equal(t, "visible", p.mu.state.policy.bellStyle)
}

func TestConfigIfTermPrefixMatch(t *testing.T) {
	p := newConfigTestPrompt()
	p.configContext = ConfigContext{Term: "xterm-256color"}
	cfg := "$if term=xterm\nset bell-style none\n$endif\n"

	require.NoError(t, ParseConfig(p, strings.NewReader(cfg), "", "test"))
	require.Equal(t, "none", p.mu.state.policy.bellStyle)
}

func TestConfigNestedIfInactiveParentStaysInactive(t *testing.T) {
	p := newConfigTestPrompt()
	p.configContext = ConfigContext{Mode: "emacs", AppName: "myapp"}
	cfg := "$if mode=vi\n$if myapp\nset bell-style none\n$endif\n$endif\n"

	require.NoError(t, ParseConfig(p, strings.NewReader(cfg), "", "test"))
	require.Equal(t, "audible", p.mu.state.policy.bellStyle)
}

func TestConfigUnknownDirectiveErrors(t *testing.T) {
	p := newConfigTestPrompt()
	err := ParseConfig(p, strings.NewReader("bogus directive\n"), "", "test")
	require.Error(t, err)
}

func TestConfigElseWithoutIfErrors(t *testing.T) {
	p := newConfigTestPrompt()
	err := ParseConfig(p, strings.NewReader("$else\n"), "", "test")
	require.Error(t, err)
}

func TestConfigUnterminatedIfErrors(t *testing.T) {
	p := newConfigTestPrompt()
	err := ParseConfig(p, strings.NewReader("$if mode=emacs\nset bell-style none\n"), "", "test")
	require.Error(t, err)
}

func TestConfigKeySeqBindingFunction(t *testing.T) {
	p := newConfigTestPrompt()
	cfg := `"\C-oa": beginning-of-line` + "\n"

	require.NoError(t, ParseConfig(p, strings.NewReader(cfg), "", "test"))
	require.NotNil(t, p.mu.state.keyseqRoot)

	p.mu.state.screen.Insert([]rune("hello")...)
	require.Equal(t, 5, p.mu.state.screen.Position())

	require.NoError(t, p.dispatchKeyLocked(rune(keyCtrlO)))
	require.NoError(t, p.dispatchKeyLocked('a'))
	require.Equal(t, 0, p.mu.state.screen.Position())
	require.Equal(t, "hello", string(p.mu.state.screen.Text()))
}

func TestConfigKeySeqBindingMacro(t *testing.T) {
	p := newConfigTestPrompt()
	cfg := `"\C-ox": "ab"` + "\n"

	require.NoError(t, ParseConfig(p, strings.NewReader(cfg), "", "test"))

	require.NoError(t, p.dispatchKeyLocked(rune(keyCtrlO)))
	require.NoError(t, p.dispatchKeyLocked('x'))
	require.Equal(t, "ab", string(p.mu.state.screen.Text()))
}

func TestConfigKeySeqAbandonedPrefixRedispatches(t *testing.T) {
	p := newConfigTestPrompt()
	// Only "\C-oa" is bound, so following Control-o with an unmatched key
	// must re-dispatch Control-o's own root meaning (self-insert, since it
	// has no flat binding) and then dispatch the unmatched key fresh,
	// instead of silently dropping both.
	cfg := `"\C-oa": beginning-of-line` + "\n"

	require.NoError(t, ParseConfig(p, strings.NewReader(cfg), "", "test"))

	require.NoError(t, p.dispatchKeyLocked(rune(keyCtrlO)))
	require.NotNil(t, p.mu.state.dispatch.node, "Control-o alone should wait in the submap, not run anything yet")

	require.NoError(t, p.dispatchKeyLocked('z'))
	require.Equal(t, string([]rune{rune(keyCtrlO), 'z'}), string(p.mu.state.screen.Text()))
}
