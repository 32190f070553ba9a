package prompt

// policyState holds the small set of tunable behaviors a readline config
// file's "set" directive governs (spec §3/§6). Unlike bind.go's per-key
// command table, these are plain values consulted by name from a handful of
// call sites rather than dispatched through the command machinery.
type policyState struct {
	// editingMode records the editing-mode variable: "emacs" or "vi". New
	// installs the emacs bindings whichever value is set, and no other code
	// reads this field -- vi command-mode completeness is out of scope, see
	// SPEC_FULL.md's Non-goals.
	editingMode string

	// bellStyle controls how rejected input / completion misses are
	// signaled: "audible" (the default, writes \a), "visible" (a future
	// terminal-flash hook, currently falls back to audible since this
	// editor's minimal ANSI subset has no portable visible-bell escape), or
	// "none" (silent).
	bellStyle string

	// completionQueryItems is the match-count threshold for listing: at or
	// below it, complete() rings the bell on the first Tab and lists the
	// matches on the second; above it, one more confirming Tab is needed
	// before the list is printed.
	completionQueryItems int

	// horizontalScrollMode, when true, keeps a single long logical line
	// pinned to one physical row by scrolling its visible window instead of
	// wrapping -- not yet wired into screen.go's line-wrap renderer; see
	// DESIGN.md.
	horizontalScrollMode bool

	// markDirectories appends a trailing "/" to filename completions that
	// resolve to a directory. Consulted by the completer NewFilenameCompleter
	// builds, from the policyState passed to it.
	markDirectories bool

	// convertMeta and outputMeta mirror readline's 8-bit input/output
	// variables: convertMeta strips the high bit of input bytes and
	// prepends ESC instead (for terminals that can't send a real Meta key);
	// outputMeta controls whether prompt/insert text with the high bit set
	// is sent to the terminal as-is or as a two-character ESC sequence.
	// Both are only stored (config.go's "set" directive updates them); no
	// input or output path in this package reads either one.
	convertMeta bool
	outputMeta  bool

	// completerQuoteChars lists the characters findCompletionWord treats as
	// shell quotes when scanning for the word to complete (e.g. `"'`): a
	// word-break character inside an unterminated one of these doesn't end
	// the word. Empty disables quote-aware scanning entirely.
	completerQuoteChars string

	// completionAppendChar is inserted after a just-accepted unambiguous
	// completion (space by default), unless the match already supplies its
	// own trailing delimiter; see completion.go's appendTrailingChar.
	completionAppendChar rune
}

// defaultPolicy returns the readline-compatible defaults for every policy
// variable, matching bashcpp's bind_variable defaults in readline.hh/misc.cc.
func defaultPolicy() policyState {
	return policyState{
		editingMode:           "emacs",
		bellStyle:             "audible",
		completionQueryItems:  100,
		horizontalScrollMode:  false,
		markDirectories:       true,
		convertMeta:           false,
		outputMeta:            true,
		completerQuoteChars:   "",
		completionAppendChar:  ' ',
	}
}

// ringBell signals a user-facing "no-op" (rejected key, empty completion,
// etc.) according to the configured bell style.
func (s *state) ringBell() {
	switch s.policy.bellStyle {
	case "none":
		return
	default:
		// "visible" degrades to "audible": see bellStyle's doc comment.
		s.screen.outbuf.WriteRune(keyCtrlG)
	}
}
