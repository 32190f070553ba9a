package prompt

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

func writeTestFile(t *testing.T, dir, name string) {
	t.Helper()
	require.NoError(t, os.WriteFile(filepath.Join(dir, name), nil, 0o644))
}

func TestFilenameCompleterListsMatchingPrefix(t *testing.T) {
	dir := t.TempDir()
	writeTestFile(t, dir, "alpha.txt")
	writeTestFile(t, dir, "apple.txt")
	writeTestFile(t, dir, "banana.txt")
	require.NoError(t, os.Mkdir(filepath.Join(dir, "albums"), 0o755))

	complete := NewFilenameCompleter(defaultPolicy(), FilenameCompletionHooks{})
	word := []rune(filepath.Join(dir, "a"))
	matches := complete(word, 0, len(word))

	require.ElementsMatch(t, []string{
		filepath.Join(dir, "alpha.txt"),
		filepath.Join(dir, "apple.txt"),
		filepath.Join(dir, "albums") + "/",
	}, matches)
}

func TestFilenameCompleterWithoutMarkDirectories(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.Mkdir(filepath.Join(dir, "sub"), 0o755))

	policy := defaultPolicy()
	policy.markDirectories = false
	complete := NewFilenameCompleter(policy, FilenameCompletionHooks{})
	word := []rune(filepath.Join(dir, "s"))
	matches := complete(word, 0, len(word))

	require.Equal(t, []string{filepath.Join(dir, "sub")}, matches)
}

func TestFilenameCompleterFilenameRewriteHook(t *testing.T) {
	dir := t.TempDir()
	writeTestFile(t, dir, "AlphaFile")

	hooks := FilenameCompletionHooks{
		FilenameRewriteHook: strings.ToLower,
	}
	complete := NewFilenameCompleter(defaultPolicy(), hooks)
	word := []rune(filepath.Join(dir, "alpha"))
	matches := complete(word, 0, len(word))

	require.Equal(t, []string{filepath.Join(dir, "alphafile")}, matches)
}

func TestFilenameCompleterDirectoryRewriteHookChangesListing(t *testing.T) {
	realDir := t.TempDir()
	writeTestFile(t, realDir, "target.txt")

	hooks := FilenameCompletionHooks{
		DirectoryRewriteHook: func(dir string) (string, bool) { return realDir, true },
	}
	complete := NewFilenameCompleter(defaultPolicy(), hooks)
	word := []rune("virtual/dir/t")
	matches := complete(word, 0, len(word))

	require.Equal(t, []string{"virtual/dir/target.txt"}, matches)
}

func TestFilenameCompleterUnreadableDirReturnsNil(t *testing.T) {
	complete := NewFilenameCompleter(defaultPolicy(), FilenameCompletionHooks{})
	word := []rune("/no/such/dir/x")
	require.Nil(t, complete(word, 0, len(word)))
}

func TestLSColorsDisplayHookColorizesKnownType(t *testing.T) {
	dir := t.TempDir()
	writeTestFile(t, dir, "README")
	require.NoError(t, os.Mkdir(filepath.Join(dir, "src"), 0o755))

	t.Setenv("LS_COLORS", "di=01;34:fi=00")

	hook := NewLSColorsDisplayHook(dir)
	matches := hook([]string{"README", "src/"})

	require.Equal(t, "\x1b[00mREADME\x1b[0m", matches[0])
	require.Equal(t, "\x1b[01;34msrc/\x1b[0m", matches[1])
}

func TestLSColorsDisplayHookLeavesMissingFileUncolored(t *testing.T) {
	t.Setenv("LS_COLORS", "fi=00")
	hook := NewLSColorsDisplayHook(t.TempDir())
	matches := hook([]string{"gone.txt"})
	require.Equal(t, []string{"gone.txt"}, matches)
}

func TestFormatMatchColumnsWidthFnUsesSGRWidth(t *testing.T) {
	colored := []string{"\x1b[01;34mabc\x1b[0m", "d"}
	lines := formatMatchColumnsWidthFn(colored, 80, sgrWidth)
	require.Len(t, lines, 1)
	require.Contains(t, lines[0], "abc")
	require.Contains(t, lines[0], "d")
}
