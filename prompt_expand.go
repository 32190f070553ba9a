package prompt

// Prompts may wrap sequences that consume terminal cells but shouldn't count
// toward the editor's notion of cursor column -- typically escape sequences
// emitted by a shell's PS1 to color or invert the prompt. Such runs are
// delimited by \001 (RL_PROMPT_START_IGNORE) and \002 (RL_PROMPT_END_IGNORE).
// expandPrompt strips the delimiters and the text between them from the
// rendered prefix while reporting how many runes were invisible, so a caller
// that needs the true on-screen width of the prompt (rather than the column
// math screen.go already does over s.prefix) can account for it separately.
const (
	promptStartIgnore = '\001'
	promptEndIgnore   = '\002'
)

type expandedPrompt struct {
	// visible is the prefix with every \001..\002 run removed, ready to be
	// measured and rendered like any other prefix text.
	visible []rune

	// invisibleCount is the number of runes that were stripped (excluding the
	// two delimiter runes themselves, which never reach the terminal either).
	invisibleCount int

	// lastInvisible is the index within visible immediately after the last
	// stripped run, or -1 if none was found. It is recorded for callers; no
	// code in this package reads it, and no mode string is prepended.
	lastInvisible int
}

// expandPrompt walks raw once, removing \001..\002 delimited runs. An
// unterminated \001 (no matching \002 before the end of the string) strips to
// the end of raw, matching readline's behavior of treating a dangling start
// marker as "the rest of the prompt is invisible" rather than an error.
func expandPrompt(raw []rune) expandedPrompt {
	out := make([]rune, 0, len(raw))
	invisible := 0
	lastInvisible := -1

	for i := 0; i < len(raw); i++ {
		r := raw[i]
		if r != promptStartIgnore {
			out = append(out, r)
			continue
		}
		j := i + 1
		for j < len(raw) && raw[j] != promptEndIgnore {
			invisible++
			j++
		}
		if j < len(raw) {
			// Skip the closing marker too.
			j++
		}
		lastInvisible = len(out)
		i = j - 1
	}

	return expandedPrompt{visible: out, invisibleCount: invisible, lastInvisible: lastInvisible}
}
