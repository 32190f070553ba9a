package prompt

import (
	"errors"
	"io"
	"os"
	"sync"
	"time"
	"unicode/utf8"

	"golang.org/x/term"
)

type state struct {
	history    history
	killRing   killRing
	screen     screen
	macro      macroState
	dispatch   dispatchState
	completion completionCycle
	menu       menuCycle
	policy     policyState

	// keyseqRoot is the root of the per-instance keymap built from config.go's
	// quoted "<keyseq>": <function>|"<macro>" directives (see bindKeySeq/
	// macroBind in keymap.go). Nil means no such bindings have been loaded, in
	// which case dispatchKeyLocked falls back to the flat bindings map for
	// every key outside the hardcoded Control-X submap.
	keyseqRoot *keymap

	// eventHook, if set, is polled periodically by ReadLine's read loop while
	// blocked waiting on input, mirroring rl_event_hook. Set via WithEventHook.
	eventHook func() error

	// pasting and pasteBuf accumulate the runes delivered between a
	// keyPasteStart and keyPasteEnd marker (bracketed paste) so the whole
	// pasted span is inserted -- and recorded for undo -- as a single unit
	// instead of key-by-key. See dispatchKeyLocked.
	pasting  bool
	pasteBuf []rune

	// completer generates completion candidates for the word at point. When
	// both it and entryGenerator are nil, Tab just rings the bell. Set via
	// WithCompleter.
	completer completer

	// wordBreakChars overrides defaultWordBreakChars when non-empty. Set via
	// WithWordBreakChars.
	wordBreakChars string

	// displayMatchesHook, if set, transforms a sorted match list before it's
	// laid out for display (e.g. colorizing filenames per LS_COLORS). The
	// hook never affects which match gets inserted, only how the list that
	// complete() prints looks. Set via WithDisplayMatchesHook.
	displayMatchesHook func(matches []string) []string

	// entryGenerator is the fallback completer consulted when completer is
	// nil or returns no matches, mirroring rl_completion_entry_function's
	// role as the default generator behind an attempted_completion_function
	// that declines to handle a word. Set via WithEntryGenerator.
	entryGenerator completer

	// ignoreSomeCompletions, if set, is given the deduplicated match list
	// before complete() decides what to do with it, and may drop entries
	// the application doesn't want offered (e.g. hidden files). Set via
	// WithIgnoreSomeCompletions.
	ignoreSomeCompletions func(matches []string) []string

	// filenameQuoting, if set, quotes a filename before it's inserted into
	// the buffer; multiple reports whether more than one match was
	// involved, since some quoting conventions only engage for an
	// unambiguous single match. Set via WithFilenameQuoting.
	filenameQuoting func(text string, multiple bool) string

	// charIsQuoted reports whether the rune at index in line is escaped and
	// so shouldn't be treated as a word-break character by findCompletionWord.
	// Set via WithCharIsQuoted.
	charIsQuoted func(line []rune, index int) bool

	// bindings maps a decoded key to the command it invokes. Populated from
	// defaultBindings plus any WithKeyBinding options; mutated only before
	// the first ReadLine call or from within a command handler.
	bindings map[rune]command

	// rootMacros maps a key directly to a replacement key sequence, set by
	// config.go's `bind <key> = <literal>` form without displacing whatever
	// command bindings[key] already names. (The quoted
	// `"<keyseq>": "<macro>"` form builds keyseqRoot instead.) A rootMacros entry takes precedence over bindings for that
	// key, mirroring how binding a key to a macro in readline's keymap
	// replaces its previous function slot.
	rootMacros map[rune][]rune

	// inputFinished is a callback invoked by the finish-or-enter command to
	// determine if the input is considered complete. If the callback is nil, or it
	// returns true, the input is considered complete and ReadLine will return the
	// input. Otherwise, a newline is inserted into the input. See the
	// WithInputFinished option for configuration.
	inputFinished func(text string) bool
}

// dispatchOne resolves a single decoded key to its command and runs it. It is
// the path for live input that no keymap walk claimed, and for the prefix
// keys an abandoned keymap walk re-dispatches. Keyboard-macro replay does not
// use it: call-last-kbd-macro goes through dispatchCommandLocked, which also
// looks keys up in the current bindings (not frozen at record time) but
// skips rootMacros, argument accumulation and recording.
func (s *state) dispatchOne(key rune) (bool, error) {
	if seq, ok := s.rootMacros[key]; ok {
		s.macro.record(key)
		var err error
		for _, k := range seq {
			if _, err = dispatchCommandLocked(s, k); err != nil {
				break
			}
		}
		return true, err
	}

	cmd := s.bindings[key]
	if cmd == "" {
		cmd = cmdInsertChar
	}

	s.macro.record(key)

	// digit-argument and universal-argument accumulate into s.dispatch
	// instead of running a command outright, so a run of them (e.g. the
	// three keys of "Meta-1 Meta-2 Enter") builds up a single repeat count
	// consumed by whatever command follows.
	if cmd == cmdDigitArgument || cmd == cmdUniversalArgument {
		applyArgumentKey(&s.dispatch, cmd, key)
		return true, nil
	}

	count, hadArg := s.dispatch.count()
	s.dispatch.resetArg()

	// Repeatable kill commands repeat here, since killRing.Dispatch runs once.
	if _, isKill := killCommands[cmd]; isKill && hadArg && repeatableCommands[cmd] {
		n := count
		if n < 0 {
			n = -n
		}
		if n > maxArgumentRepeat {
			n = maxArgumentRepeat
		}
		for i := 0; i < n; i++ {
			if _, err := s.killRing.Dispatch(s, cmd, key); err != nil {
				return false, err
			}
		}
		return true, nil
	}

	if ok, err := s.killRing.Dispatch(s, cmd, key); err != nil {
		return false, err
	} else if ok {
		return true, nil
	}

	if ok, err := s.history.Dispatch(s, cmd, key); err != nil {
		return false, err
	} else if ok {
		return true, nil
	}

	if fn, ok := completeCommands[cmd]; ok {
		ok, err := fn(s, key)
		return ok, err
	}

	fn, ok := baseCommands[cmd]
	if !ok {
		return false, nil
	}

	if !hadArg || !repeatableCommands[cmd] {
		return fn(s, key)
	}

	n := count
	if n < 0 {
		n = -n
	}
	if n > maxArgumentRepeat {
		n = maxArgumentRepeat
	}
	var err error
	for i := 0; i < n && err == nil; i++ {
		_, err = fn(s, key)
	}
	return true, err
}

// maxArgumentRepeat bounds a digit-argument repeat count so a mistyped large
// count (or "Meta--Meta-9-Meta-9-Meta-9") cannot make a single key dispatch
// run for an unbounded number of iterations.
const maxArgumentRepeat = 1 << 16

// repeatableCommands lists the commands for which a preceding digit argument
// means "repeat N times" rather than being ignored. Readline applies digit
// arguments to most motion/edit commands but not to commands whose meaning
// doesn't compose with repetition (enter, cancel, macros, undo).
var repeatableCommands = map[command]bool{
	cmdBackwardChar:          true,
	cmdBackwardDeleteChar:    true,
	cmdBackwardWord:          true,
	cmdDeleteChar:            true,
	cmdForwardChar:           true,
	cmdForwardWord:           true,
	cmdInsertChar:            true,
	cmdKillWord:              true,
	cmdBackwardKillWord:      true,
	cmdTransposeChars:        true,
}

// applyArgumentKey folds one digit-argument or universal-argument keypress
// into the accumulating dispatch state. A bare Meta-- starts a negative
// argument; each subsequent digit shifts the accumulated value left a
// decimal place. universal-argument sets the count to 4 on its first press
// and multiplies the accumulated count by 4 on every later press, whether or
// not digits were typed in between.
func applyArgumentKey(d *dispatchState, cmd command, key rune) {
	base := key &^ (keyCtrl | keyAlt)

	if cmd == cmdUniversalArgument {
		if !d.haveArg {
			d.haveArg = true
			d.argValue = 4
		} else {
			d.argValue *= 4
		}
		return
	}

	if base == '-' {
		if !d.haveArg {
			d.haveArg = true
			d.argNeg = true
			d.argValue = 0
		}
		return
	}

	if base < '0' || base > '9' {
		return
	}
	digit := int(base - '0')
	if !d.haveArg {
		d.haveArg = true
		d.argValue = digit
	} else {
		d.argValue = d.argValue*10 + digit
	}
}

// dispatchCommandLocked is the entry point used by call-last-kbd-macro to
// replay a recorded key without re-recording it into a macro currently being
// defined.
func dispatchCommandLocked(s *state, key rune) (bool, error) {
	cmd := s.bindings[key]
	if cmd == "" {
		cmd = cmdInsertChar
	}

	if ok, err := s.killRing.Dispatch(s, cmd, key); err != nil {
		return false, err
	} else if ok {
		return true, nil
	}

	if ok, err := s.history.Dispatch(s, cmd, key); err != nil {
		return false, err
	} else if ok {
		return true, nil
	}

	if fn, ok := completeCommands[cmd]; ok {
		return fn(s, key)
	}

	if fn, ok := baseCommands[cmd]; ok {
		return fn(s, key)
	}

	return false, nil
}

// Prompt contains the state for reading single or multi-line input from a
// terminal. Similar to readline, libedit, and other CLI line reading libraries,
// Prompt provides support for basic editing functionality such as cursor
// movement, deletion, a kill ring, and history.
//
// Prompt supports a common subset of the universe of key input sequences which
// are used by ~75% of the terminals in the terminfo database, including most
// modern terminals. Prompt itself does not use terminfo. Additionally, Prompt
// requires that the terminal handle a minimal set of ANSI escape sequences for
// rendering text:
//
//   - cursor-up:           ESC[A
//   - cursor-down:         ESC[B
//   - cursor-right:        ESC[C
//   - cursor-left:         ESC[D
//   - cursor-home:         ESC[H
//   - erase-line-to-right: ESC[K
//   - erase-screen:        ESC[2J
//
// Prompt eschews using more advanced terminal operations such as insert/delete
// character and insert mode. This decision results in Prompt having to
// re-render more lines of text on editing operations, yet for line editing the
// difference usually amounts to sending a few hundred bytes to the terminal
// (for a long line). On modern hardware and networks, this amount of data is
// trivial. The benefit of eschewing more advanced terminal operations is that
// the same rendering output is used for all terminals as opposed to the
// libedit/readline approach which requires intimate knowledge of the terminal
// capabilities (via terminfo) and which can sometimes go horribly wrong
// resulting in corruption of the rendered text.
type Prompt struct {
	fd  int
	in  io.Reader
	out io.Writer

	// inbuf holds raw bytes read from in that haven't been decoded into a key
	// yet, including a partial escape sequence left over between reads.
	inbuf  inputRing
	prompt []rune

	// sig tracks terminating signals caught while ReadLine is blocked,
	// polled at the top of the dispatch loop. See signal.go.
	sig signalState

	// configContext supplies the values config.go's $if directive compares
	// against (editing mode, terminal type, application name). Set via
	// WithConfigContext; defaults to the zero value, under which every
	// "term="/application-name condition is false and "mode=" matches only
	// an explicitly configured empty mode.
	configContext ConfigContext

	mu struct {
		sync.Mutex
		state state
	}
}

// New creates a new Prompt using the supplied options. If no options are
// specified, the Prompt uses os.Stdin and os.Stdout for input and output.
func New(options ...Option) *Prompt {
	p := &Prompt{
		in:  os.Stdin,
		out: os.Stdout,
	}
	p.mu.state.bindings = make(map[rune]command)
	p.mu.state.policy = defaultPolicy()

	if err := parseBindings(p.mu.state.bindings, defaultBindings); err != nil {
		panic(err)
	}

	p.mu.state.screen.Init()
	for _, opt := range options {
		opt.apply(p)
	}

	type fdGetter interface {
		Fd() uintptr
	}
	if f, ok := p.in.(fdGetter); ok {
		p.fd = int(f.Fd())
	}
	return p
}

// Close closes the Prompt, releasing any open resources.
func (p *Prompt) Close() error {
	return nil
}

// ReadLine reads a line of input. If the input is canceled, io.EOF is returned
// as the error.
func (p *Prompt) ReadLine(prompt string) (string, error) {
	if err := p.updateSize(); err != nil {
		return "", err
	}

	if p.fd != -1 {
		// Set up SIGWINCH/SIGINT/SIGTERM/SIGHUP/SIGQUIT/SIGTSTP handling so
		// we notice terminal resizes and can unwind cleanly on a terminating
		// signal. See signal.go.
		stop := p.installSignals()
		defer stop()

		// Put the terminal into raw mode, restoring the
		// original mode on exit.
		saved, err := term.MakeRaw(p.fd)
		if err != nil {
			return "", err
		}
		defer term.Restore(p.fd, saved)
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	p.mu.state.screen.Reset([]rune(prompt))
	p.mu.state.screen.Flush(p.out)

	for {
		// Safe point: readline-style editors only act on a caught signal
		// between commands, not mid-dispatch. If in.Read was interrupted by
		// the signal's delivery this notices it immediately; if the read is
		// still blocked (no data pending) it's noticed as soon as the next
		// burst of input wakes processInputLocked below.
		if err := p.pollSignalsLocked(); err != nil {
			p.mu.state.screen.Flush(p.out)
			return "", err
		}

		// Loop processing keys from the input.
		if result, err := p.processInputLocked(); err != nil {
			return "", err
		} else if len(result) > 0 {
			return result, nil
		}

		// Read more input from the tty into whatever room remains in the
		// ring; leftover bytes from a partial escape sequence stay put since
		// inputRing only ever appends at the tail.
		var scratch [inputRingSize]byte
		room := p.inbuf.Room()
		if room == 0 {
			// The ring filled with bytes that never formed a decodable key
			// (a pathologically long unterminated escape sequence); drop the
			// oldest byte rather than spin forever with no room to read more.
			p.inbuf.Consume(1)
			room = p.inbuf.Room()
		}

		// A read deadline serves two unrelated purposes that never apply at
		// once: while a multi-key sequence is pending, it bounds how long we
		// wait for the next key (spec §4.1's keyseq_timeout) before giving up
		// and re-dispatching the prefix from the root keymap; otherwise, if an
		// event hook is configured, it bounds how long we block before giving
		// the hook another chance to run. p.in must support SetReadDeadline
		// for either to take effect -- a plain io.Reader (as in tests) simply
		// never gets one, and ReadLine blocks exactly as it always has.
		dr, hasDeadline := p.in.(deadlineReader)
		if hasDeadline {
			switch {
			case p.mu.state.dispatch.node != nil:
				dr.SetReadDeadline(time.Now().Add(keyseqTimeoutMS * time.Millisecond))
			case p.mu.state.eventHook != nil:
				dr.SetReadDeadline(time.Now().Add(eventHookPollMS * time.Millisecond))
			default:
				dr.SetReadDeadline(time.Time{})
			}
		}

		p.mu.Unlock()
		n, err := p.in.Read(scratch[:room])
		p.mu.Lock()

		if err != nil {
			if hasDeadline && isTimeoutErr(err) {
				if p.mu.state.dispatch.node != nil {
					if err := p.abandonPendingPrefixOnTimeoutLocked(); err != nil {
						return "", err
					}
				} else if p.mu.state.eventHook != nil {
					if err := p.mu.state.eventHook(); err != nil {
						return "", err
					}
				}
				continue
			}
			return "", err
		}
		p.inbuf.Push(scratch[:n])
	}
}

// keyseqTimeoutMS bounds how long ReadLine waits for the next key of a
// multi-key sequence before abandoning it, mirroring readline's
// keyseq-timeout variable (spec §4.1). eventHookPollMS is the analogous
// poll interval used to give a configured event hook another chance to run
// while otherwise idle; both only take effect when p.in implements
// deadlineReader.
const (
	keyseqTimeoutMS = 500
	eventHookPollMS = 100
)

// deadlineReader is implemented by readers that support a read deadline
// (notably *os.File on the platforms this package targets). ReadLine type-
// asserts for it rather than requiring it, so tests can drive a Prompt with
// a plain io.Reader and never see a deadline applied.
type deadlineReader interface {
	SetReadDeadline(t time.Time) error
}

// isTimeoutErr reports whether err is the timeout error a deadlineReader
// returns once its deadline passes.
func isTimeoutErr(err error) bool {
	var te interface{ Timeout() bool }
	if errors.As(err, &te) {
		return te.Timeout()
	}
	return false
}

func (p *Prompt) processInputLocked() (string, error) {
	var err error
	for err == nil {
		buf := p.inbuf.Bytes()
		if len(buf) == 0 {
			break
		}
		key, rest := parseKey(buf)
		if key == utf8.RuneError {
			break
		}
		debugPrintf(" input: %q -> %s\n", buf[:len(buf)-len(rest)], debugKey(key))
		p.inbuf.Consume(len(buf) - len(rest))
		err = p.dispatchKeyLocked(key)
	}

	if err == nil || errors.Is(err, io.EOF) {
		// Flush any buffered rendering commands.
		p.mu.state.screen.Flush(p.out)
	}

	if errors.Is(err, io.EOF) {
		if text := string(p.mu.state.screen.Text()); len(text) > 0 {
			p.mu.state.history.Add(text)
			return text, nil
		}
	}
	return "", err
}

func (p *Prompt) updateSize() error {
	if p.fd == -1 {
		return nil
	}

	width, height, err := term.GetSize(p.fd)
	if err != nil {
		return err
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	p.mu.state.screen.SetSize(width, height)
	p.mu.state.screen.Flush(p.out)
	return nil
}

// walkKeymap runs slot (a lookup result from some keymap node) against s:
// invoking its function, replaying its macro, or reporting that dispatch
// must now wait in its submap for the next key. It's shared by every keymap
// this editor walks -- the hardcoded Control-X submap and any per-instance
// keyseqRoot built from config.go's quoted-keyseq directives -- so the
// recording and submap-descent rules apply uniformly to both.
func walkKeymap(s *state, slot keymapSlot, key rune) (waiting bool, err error) {
	switch slot.kind {
	case slotFunction:
		// Same command tables, in the same order, as dispatchOne.
		var err error
		if ok, kerr := s.killRing.Dispatch(s, slot.cmd, key); kerr != nil || ok {
			err = kerr
		} else if ok, herr := s.history.Dispatch(s, slot.cmd, key); herr != nil || ok {
			err = herr
		} else if fn, ok := completeCommands[slot.cmd]; ok {
			_, err = fn(s, key)
		} else if fn, ok := baseCommands[slot.cmd]; ok {
			_, err = fn(s, key)
		} else {
			return false, nil
		}
		// Neither start-kbd-macro's nor end-kbd-macro's own keystroke belongs
		// in the macro it delimits, so both are excluded from recording
		// explicitly rather than relying on the toggle's before/after timing.
		if slot.cmd != cmdStartKbdMacro && slot.cmd != cmdEndKbdMacro {
			s.macro.record(key)
		}
		return false, err
	case slotMacro:
		for _, k := range slot.macro {
			if _, err := dispatchCommandLocked(s, k); err != nil {
				return false, err
			}
		}
		return false, nil
	case slotSubmap:
		return true, nil
	default:
		return false, nil
	}
}

// dispatchKeyLocked resolves one decoded key and runs its command. Before
// consulting the flat binding map it walks any keymap currently in progress
// (the hardcoded Control-X submap, or a submap from a per-instance
// keyseqRoot built by config.go), and otherwise checks keyseqRoot itself for
// a fresh multi-key sequence starting at this key. A key that doesn't match
// anything in an in-progress submap isn't just dropped: spec §4.1 requires
// re-dispatching the consumed prefix from the root keymap, since each of its
// keys may carry its own root-level meaning.
func (p *Prompt) dispatchKeyLocked(key rune) error {
	s := &p.mu.state

	if s.pasting {
		return p.handlePasteKeyLocked(key)
	}
	if key == keyPasteStart {
		s.pasting = true
		s.pasteBuf = s.pasteBuf[:0]
		return nil
	}

	if s.dispatch.node != nil {
		node := s.dispatch.node
		slot, ok := node.lookup(key)
		if !ok {
			return p.abandonPendingPrefixLocked(key)
		}
		waiting, err := walkKeymap(s, slot, key)
		if waiting {
			debugSubmap("enter", slot.sub.name)
			s.dispatch.pending = append(s.dispatch.pending, key)
			s.dispatch.node = slot.sub
			return nil
		}
		debugSubmap("exit", node.name)
		s.dispatch.reset()
		return err
	}

	if key == keyCtrlX {
		sub := emacsCtlxKeymap()
		debugSubmap("enter", sub.name)
		s.dispatch.pending = append(s.dispatch.pending[:0], key)
		s.dispatch.node = sub
		return nil
	}

	if s.keyseqRoot != nil {
		if slot, ok := s.keyseqRoot.lookup(key); ok {
			waiting, err := walkKeymap(s, slot, key)
			if waiting {
				debugSubmap("enter", slot.sub.name)
				s.dispatch.pending = append(s.dispatch.pending[:0], key)
				s.dispatch.node = slot.sub
				return nil
			}
			return err
		}
	}

	_, err := s.dispatchOne(key)
	return err
}

// abandonPendingPrefixLocked re-dispatches the keys consumed so far in an
// in-progress submap walk (s.dispatch.pending) through their flat root
// binding, then dispatches key itself fresh from the root keymap, since key
// didn't match anything in the submap it was looked up against. The prefix
// replay goes through s.dispatchOne rather than p.dispatchKeyLocked
// deliberately: a prefix key's only role was to enter the very submap we're
// now abandoning, so walking it back through dispatchKeyLocked would just
// re-enter that submap and immediately fail on the same trailing key again,
// looping forever. dispatchOne instead gives each prefix key its ordinary
// root-level meaning (self-insert if it has none), and only the final,
// still-unconsumed key gets a fresh dispatchKeyLocked, so it's free to start
// a new submap walk of its own if it happens to be a prefix key too.
func (p *Prompt) abandonPendingPrefixLocked(key rune) error {
	s := &p.mu.state
	debugSubmap("abandon", s.dispatch.node.name)
	prefix := append([]rune(nil), s.dispatch.pending...)
	s.dispatch.reset()
	for _, k := range prefix {
		if _, err := s.dispatchOne(k); err != nil {
			return err
		}
	}
	return p.dispatchKeyLocked(key)
}

// abandonPendingPrefixOnTimeoutLocked is abandonPendingPrefixLocked's
// counterpart for keyseq_timeout expiring with no further key at all: the
// consumed prefix is re-dispatched through its flat root binding (see
// abandonPendingPrefixLocked for why dispatchOne, not dispatchKeyLocked) and
// dispatch returns to idle, with no trailing key to re-try since none
// arrived.
func (p *Prompt) abandonPendingPrefixOnTimeoutLocked() error {
	s := &p.mu.state
	debugSubmap("timeout", s.dispatch.node.name)
	prefix := append([]rune(nil), s.dispatch.pending...)
	s.dispatch.reset()
	for _, k := range prefix {
		if _, err := s.dispatchOne(k); err != nil {
			return err
		}
	}
	return nil
}

// handlePasteKeyLocked accumulates one key of a bracketed-paste span into
// s.pasteBuf. On keyPasteEnd the whole span is inserted in one Insert call
// wrapped in a single undo group, so an undo after pasting removes the
// entire paste instead of unwinding it character by character; anything
// else arriving mid-paste (a terminal should only send plain character
// bytes between the markers, but a misbehaving one might not) is still
// accumulated as a literal rune rather than acted on as a command, since a
// pasted "Control-a" is pasted text, not a keybinding.
func (p *Prompt) handlePasteKeyLocked(key rune) error {
	s := &p.mu.state
	if key == keyPasteEnd {
		s.pasting = false
		if len(s.pasteBuf) > 0 {
			s.screen.beginUndoGroup()
			s.screen.Insert(s.pasteBuf...)
			s.screen.endUndoGroup()
			s.pasteBuf = nil
		}
		return nil
	}
	s.pasteBuf = append(s.pasteBuf, key&^(keyCtrl|keyAlt))
	return nil
}
