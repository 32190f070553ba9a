package prompt

import (
	"sort"
	"strings"
	"unicode/utf8"

	"github.com/mattn/go-runewidth"
)

// completer generates the candidate completions for the word spanning
// text[wordStart:wordEnd]. text is the full input buffer so a completer can
// look at surrounding context (e.g. the preceding keyword) even though it is
// only responsible for producing replacements for the one word. Returning no
// matches means "nothing completes here".
type completer func(text []rune, wordStart, wordEnd int) []string

// defaultWordBreakChars mirrors rl_basic_word_break_characters: the set of
// characters that separate the word under point from what precedes it, for
// completers that don't need shell-quoting awareness.
const defaultWordBreakChars = " \t\n\"'`@$><=;|&{("

// completionCycle remembers the outcome of the most recent Tab press so a
// second consecutive Tab on an unextendable match set shows the match list
// instead of just beeping again, matching readline's two-press convention
// (ring the bell, then list on the next identical request).
type completionCycle struct {
	active    bool
	wordStart int
	wordEnd   int
	matches   []string
	needsList bool

	// confirmed tracks whether a match list long enough to trip
	// completion-query-items has already had its extra confirming Tab.
	confirmed bool
}

func (c *completionCycle) reset() {
	c.active = false
	c.matches = nil
	c.needsList = false
	c.confirmed = false
}

// menuCycle tracks an in-progress menu-complete/old-menu-complete cycle
// (readline's M-C-i family): each call inserts the next candidate from the
// match list generated on the cycle's first call, instead of complete()'s
// stop-at-the-longest-common-prefix behavior. menu-complete wraps back to
// the text that was there before the cycle started once the list is
// exhausted; old-menu-complete (bash's compat spelling) just holds on the
// last match.
type menuCycle struct {
	active    bool
	wordStart int
	curLen    int
	matches   []string
	index     int
	orig      string
}

func (m *menuCycle) reset() {
	m.active = false
	m.matches = nil
	m.index = 0
	m.orig = ""
}

var completeCommands = map[command]commandFunc{
	cmdComplete: func(s *state, key rune) (bool, error) {
		s.complete()
		return true, nil
	},
	cmdCompleteMenu: func(s *state, key rune) (bool, error) {
		s.completeMenu(false)
		return true, nil
	},
	cmdCompleteOldMenu: func(s *state, key rune) (bool, error) {
		s.completeMenu(true)
		return true, nil
	},
}

// findCompletionWord locates the word to complete at pos, the same job
// complete.cc's _rl_find_completion_word does: a forward scan from the start
// of the line first establishes whether pos falls inside an unterminated
// quoteChars quote, since a word-break character inside an open quote
// doesn't end the word and the word instead runs back to the character right
// after the opening quote. Outside of an open quote this falls back to the
// left scan over wordBreakChars, with charIsQuoted (if non-nil) suppressing
// a break at any backslash-escaped index, mirroring rl_char_is_quoted_p.
// delimiter reports the word-break character immediately before start (inside
// an open quote: the character immediately before the opening quote), or 0 if
// there is none because the word (or the quote) starts the line.
func findCompletionWord(text []rune, pos int, wordBreakChars, quoteChars string, charIsQuoted func([]rune, int) bool) (start int, foundQuote bool, quoteChar rune, delimiter rune) {
	if quoteChars != "" {
		var inQuote rune
		quoteStart := -1
		for i := 0; i < pos && i < len(text); i++ {
			c := text[i]
			if inQuote != 0 {
				if c == inQuote {
					inQuote = 0
				}
				continue
			}
			if strings.ContainsRune(quoteChars, c) {
				inQuote = c
				quoteStart = i
			}
		}
		if inQuote != 0 {
			if quoteStart > 0 {
				delimiter = text[quoteStart-1]
			}
			return quoteStart + 1, true, inQuote, delimiter
		}
	}

	start = pos
	for start > 0 {
		i := start - 1
		if !strings.ContainsRune(wordBreakChars, text[i]) {
			start--
			continue
		}
		if charIsQuoted != nil && charIsQuoted(text, i) {
			start--
			continue
		}
		break
	}
	if start > 0 {
		delimiter = text[start-1]
	}
	return start, false, 0, delimiter
}

// dedupLeadingQuote strips a leading quoteChar from quoted when foundQuote
// reports that the opening quote is already sitting in the buffer before
// wordStart, so wrapping the match in filenameQuoting doesn't double it up
// (spec scenario: completing inside `echo "hello wo` must not turn the open
// quote into `""`).
func dedupLeadingQuote(quoted string, foundQuote bool, quoteChar rune) string {
	if !foundQuote || quoteChar == 0 {
		return quoted
	}
	if r, n := utf8.DecodeRuneInString(quoted); r == quoteChar {
		return quoted[n:]
	}
	return quoted
}

// computeLCD returns the longest common prefix shared by every string in
// matches, the same quantity complete.cc's compute_lcd_of_matches folds
// match[0..n] down to before deciding whether there's anything new to insert.
func computeLCD(matches []string) string {
	if len(matches) == 0 {
		return ""
	}
	lcd := []rune(matches[0])
	for _, m := range matches[1:] {
		r := []rune(m)
		n := len(lcd)
		if len(r) < n {
			n = len(r)
		}
		i := 0
		for i < n && lcd[i] == r[i] {
			i++
		}
		lcd = lcd[:i]
		if len(lcd) == 0 {
			break
		}
	}
	return string(lcd)
}

// dedupSorted sorts matches and removes adjacent duplicates, mirroring
// complete.cc's postprocess_matches ignoring duplicate entries a generator
// may legitimately return more than once.
func dedupSorted(matches []string) []string {
	if len(matches) == 0 {
		return matches
	}
	out := append([]string(nil), matches...)
	sort.Strings(out)
	n := 0
	for i, m := range out {
		if i == 0 || m != out[n-1] {
			out[n] = m
			n++
		}
	}
	return out[:n]
}

// formatMatchColumns lays matches out in as many columns as fit within
// width, each column padded to the widest entry plus two spaces of
// separation, the layout readline's default rl_display_match_list produces.
func formatMatchColumns(matches []string, width int) []string {
	return formatMatchColumnsWidthFn(matches, width, runewidth.StringWidth)
}

// formatMatchColumnsWidthFn is formatMatchColumns parameterized on how a
// single entry's on-screen width is measured. A WithDisplayMatchesHook
// decoration may embed ANSI color escapes (see lscolors.go), which
// runewidth.StringWidth would otherwise count as visible characters; callers
// displaying decorated matches pass sgrWidth instead.
func formatMatchColumnsWidthFn(matches []string, width int, widthOf func(string) int) []string {
	if len(matches) == 0 {
		return nil
	}
	if width <= 0 {
		width = 80
	}

	colWidth := 0
	for _, m := range matches {
		if w := widthOf(m); w > colWidth {
			colWidth = w
		}
	}
	colWidth += 2

	cols := width / colWidth
	if cols < 1 {
		cols = 1
	}
	rows := (len(matches) + cols - 1) / cols

	lines := make([]string, 0, rows)
	for r := 0; r < rows; r++ {
		var b strings.Builder
		for c := 0; c < cols; c++ {
			i := c*rows + r
			if i >= len(matches) {
				break
			}
			b.WriteString(matches[i])
			if c < cols-1 && i+rows < len(matches) {
				pad := colWidth - widthOf(matches[i])
				for p := 0; p < pad; p++ {
					b.WriteByte(' ')
				}
			}
		}
		lines = append(lines, b.String())
	}
	return lines
}

// complete runs one Tab-completion step: find the word at point, generate
// matches, and either extend the word to their longest common prefix, insert
// the sole match, ring the bell, or (on a repeated request against an
// unextendable match set) print the match list. This is rl_complete_internal
// collapsed to the subset of readline's completion styles (TAB) this editor
// exposes; a second Tab lists the matches the way "?" (possible-completions)
// does. There is no insert-all ("*") action.
func (s *state) complete() {
	if s.completer == nil && s.entryGenerator == nil {
		s.ringBell()
		return
	}

	text := s.screen.Text()
	pos := s.screen.Position()
	wordBreak := s.wordBreakChars
	if wordBreak == "" {
		wordBreak = defaultWordBreakChars
	}
	wordStart, foundQuote, quoteChar, _ := findCompletionWord(text, pos, wordBreak, s.policy.completerQuoteChars, s.charIsQuoted)
	wordEnd := pos

	var raw []string
	if s.completer != nil {
		raw = s.completer(text, wordStart, wordEnd)
	}
	// An attempted_completion_function that declines the word (returns no
	// matches) falls through to the default generator, the same precedence
	// complete.cc's rl_complete_internal gives rl_completion_entry_function.
	if len(raw) == 0 && s.entryGenerator != nil {
		raw = s.entryGenerator(text, wordStart, wordEnd)
	}

	matches := dedupSorted(raw)
	if s.ignoreSomeCompletions != nil {
		matches = s.ignoreSomeCompletions(matches)
	}
	word := string(text[wordStart:wordEnd])
	debugCompletion(word, len(matches))
	if len(matches) == 0 {
		s.completion.reset()
		s.ringBell()
		return
	}

	lcd := computeLCD(matches)

	if len(matches) == 1 {
		replacement := dedupLeadingQuote(s.quoteFilename(matches[0], false), foundQuote, quoteChar)
		s.replaceWord(wordStart, wordEnd, replacement)
		s.appendTrailingChar(matches[0])
		s.completion.reset()
		return
	}

	if len(lcd) > len(word) {
		replacement := dedupLeadingQuote(s.quoteFilename(lcd, true), foundQuote, quoteChar)
		s.replaceWord(wordStart, wordEnd, replacement)
		s.completion.reset()
		return
	}

	sameRequest := s.completion.active && s.completion.wordStart == wordStart && s.completion.wordEnd == wordEnd
	if sameRequest && s.completion.needsList {
		// completion-query-items gates whether the list appears on this
		// (second) Tab outright, or needs one further confirming press when
		// the list would be long enough to scroll the terminal -- readline's
		// "Display all %d possibilities?" prompt collapsed to a keypress
		// instead of a y/n read, since this editor has no line-level prompt
		// facility to ask the question with.
		queryItems := s.policy.completionQueryItems
		if queryItems <= 0 {
			queryItems = defaultPolicy().completionQueryItems
		}
		if len(matches) > queryItems && !s.completion.confirmed {
			s.completion.confirmed = true
			s.ringBell()
			return
		}
		s.screen.ListMatches(s.formatMatches(matches))
		s.completion.reset()
		return
	}

	s.completion.active = true
	s.completion.wordStart = wordStart
	s.completion.wordEnd = wordEnd
	s.completion.matches = matches
	s.completion.needsList = true
	s.ringBell()
}

// appendTrailingChar appends policy.completionAppendChar after a just-inserted
// match, unless match already ends in '/' (NewFilenameCompleter's own
// directory delimiter, which already separates the name from whatever
// follows) or the character is already sitting at point, mirroring
// complete.cc's rl_complete_internal skipping its append character when the
// match supplies its own trailing delimiter.
func (s *state) appendTrailingChar(match string) {
	if match == "" {
		return
	}
	appendChar := s.policy.completionAppendChar
	if appendChar == 0 {
		appendChar = defaultPolicy().completionAppendChar
	}
	if appendChar == 0 {
		return
	}
	if last, _ := utf8.DecodeLastRuneInString(match); last == '/' {
		return
	}
	cur := s.screen.Text()
	p := s.screen.Position()
	if p < len(cur) && cur[p] == appendChar {
		return
	}
	s.screen.Insert(appendChar)
}

// completeMenu implements menu-complete/old-menu-complete (spec §4.3's
// cycling completion style): the first call in a cycle generates and inserts
// the first match, each subsequent call replaces it with the next one, and
// (for menu-complete; old is false) the cycle wraps back to the text that
// was there before it started once every match has been shown. old-menu-
// complete instead just holds on the final match, bash's compat behavior.
func (s *state) completeMenu(old bool) {
	if s.completer == nil && s.entryGenerator == nil {
		s.ringBell()
		return
	}

	if !s.menu.active {
		text := s.screen.Text()
		pos := s.screen.Position()
		wordBreak := s.wordBreakChars
		if wordBreak == "" {
			wordBreak = defaultWordBreakChars
		}
		wordStart, _, _, _ := findCompletionWord(text, pos, wordBreak, s.policy.completerQuoteChars, s.charIsQuoted)
		wordEnd := pos

		var raw []string
		if s.completer != nil {
			raw = s.completer(text, wordStart, wordEnd)
		}
		if len(raw) == 0 && s.entryGenerator != nil {
			raw = s.entryGenerator(text, wordStart, wordEnd)
		}
		matches := dedupSorted(raw)
		if s.ignoreSomeCompletions != nil {
			matches = s.ignoreSomeCompletions(matches)
		}
		if len(matches) == 0 {
			s.ringBell()
			return
		}

		s.menu = menuCycle{
			active:    true,
			wordStart: wordStart,
			curLen:    wordEnd - wordStart,
			matches:   matches,
			index:     -1,
			orig:      string(text[wordStart:wordEnd]),
		}
	}

	m := &s.menu
	m.index++

	var replacement string
	switch {
	case m.index >= len(m.matches) && old:
		m.index = len(m.matches) - 1
		replacement = s.quoteFilename(m.matches[m.index], true)
	case m.index >= len(m.matches):
		m.index = -1
		replacement = m.orig
	default:
		replacement = s.quoteFilename(m.matches[m.index], true)
	}

	wordEnd := m.wordStart + m.curLen
	s.replaceWord(m.wordStart, wordEnd, replacement)
	m.curLen = len([]rune(replacement))
}

// formatMatches runs matches through displayMatchesHook (if set) and lays
// the result out in columns, switching to the escape-aware width function
// when the hook is present since a decorated match list may carry invisible
// SGR sequences that runewidth.StringWidth would otherwise miscount.
func (s *state) formatMatches(matches []string) []string {
	if s.displayMatchesHook == nil {
		return formatMatchColumns(matches, s.screen.width)
	}
	decorated := s.displayMatchesHook(matches)
	return formatMatchColumnsWidthFn(decorated, s.screen.width, sgrWidth)
}

// quoteFilename runs name through filenameQuoting if one is configured,
// otherwise returns it unchanged. multiple reports whether name was chosen
// from an ambiguous match set, which some quoting conventions key off of
// (e.g. only quoting a single unambiguous insertion, not an LCD extension).
func (s *state) quoteFilename(name string, multiple bool) string {
	if s.filenameQuoting == nil {
		return name
	}
	return s.filenameQuoting(name, multiple)
}

// replaceWord substitutes text[wordStart:wordEnd] with replacement, leaving
// the cursor positioned immediately after the inserted text.
func (s *state) replaceWord(wordStart, wordEnd int, replacement string) {
	s.screen.MoveTo(wordEnd)
	s.screen.EraseTo(wordStart)
	s.screen.Insert([]rune(replacement)...)
}
