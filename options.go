package prompt

import (
	"io"
	"os"
)

// Option defines the interface for Prompt options.
type Option interface {
	apply(p *Prompt)
}

type ttyOption struct {
	tty *os.File
}

func (o *ttyOption) apply(p *Prompt) {
	p.fd = int(o.tty.Fd())
	p.in = o.tty
	p.out = o.tty
}

// WithTTY allows configuring a prompt with a different TTY than stdin/stdout.
func WithTTY(tty *os.File) Option {
	return &ttyOption{
		tty: tty,
	}
}

type inputOption struct {
	r io.Reader
}

func (o *inputOption) apply(p *Prompt) {
	p.in = o.r
}

// WithInput allows configuring the input reader for a Prompt. This option is
// primarily useful for tests.
func WithInput(r io.Reader) Option {
	return &inputOption{
		r: r,
	}
}

type outputOption struct {
	w io.Writer
}

func (o *outputOption) apply(p *Prompt) {
	p.out = o.w
}

// WithOutput allows configuring the output writer for a Prompt. This option is
// primarily useful for tests.
func WithOutput(w io.Writer) Option {
	return &outputOption{
		w: w,
	}
}

type sizeOption struct {
	width, height int
}

func (o *sizeOption) apply(p *Prompt) {
	p.mu.state.screen.SetSize(o.width, o.height)
}

// WithSize allows configuring the initial width and height of a Prompt.
// Typically, the width and height of the terminal are automatically determined.
// This option is primarily useful for tests in conjunction with the WithInput
// and WithOutput options.
func WithSize(width, height int) Option {
	return &sizeOption{
		width:  width,
		height: height,
	}
}

type inputFinishedOption struct {
	fn func(text string) bool
}

func (o inputFinishedOption) apply(p *Prompt) {
	p.mu.state.inputFinished = o.fn
}

// WithInputFinished allows configuring a callback that will be invoked when
// enter is pressed to determine if the input is considered complete or not. If
// the input is not complete, a newline is instead inserted into the input.
func WithInputFinished(fn func(text string) bool) Option {
	return inputFinishedOption{fn}
}

type completerOption struct {
	fn completer
}

func (o completerOption) apply(p *Prompt) {
	p.mu.state.completer = o.fn
}

// WithCompleter configures the function invoked when the complete command
// (bound to Tab by default) runs. The completer receives the full input
// buffer along with the [wordStart,wordEnd) bounds of the word under point,
// as computed by the word-break character set (see WithWordBreakChars), and
// returns the candidate completions for that word.
func WithCompleter(fn func(text []rune, wordStart, wordEnd int) []string) Option {
	return completerOption{fn: fn}
}

type wordBreakCharsOption struct {
	chars string
}

func (o wordBreakCharsOption) apply(p *Prompt) {
	p.mu.state.wordBreakChars = o.chars
}

// WithWordBreakChars overrides defaultWordBreakChars, the set of characters
// that delimit the word passed to a completer.
func WithWordBreakChars(chars string) Option {
	return wordBreakCharsOption{chars: chars}
}

type displayMatchesHookOption struct {
	fn func(matches []string) []string
}

func (o displayMatchesHookOption) apply(p *Prompt) {
	p.mu.state.displayMatchesHook = o.fn
}

// WithDisplayMatchesHook overrides how a match list is rendered once
// complete() has decided to print one, without changing which matches are
// generated or which one gets inserted on an unambiguous completion. Pair
// with NewLSColorsDisplayHook to get `ls --color`-style filename coloring in
// the match list.
func WithDisplayMatchesHook(fn func(matches []string) []string) Option {
	return displayMatchesHookOption{fn: fn}
}

type keyBindingOption struct {
	binding string
}

func (o keyBindingOption) apply(p *Prompt) {
	key, cmd, err := parseBinding(o.binding)
	if err != nil {
		panic(err)
	}
	if p.mu.state.bindings == nil {
		p.mu.state.bindings = make(map[rune]command)
	}
	p.mu.state.bindings[key] = cmd
}

// WithKeyBinding adds or overrides a single binding on top of
// defaultBindings, using the same "bind <key> <command-name>" grammar as
// defaultBindings itself (e.g. "bind Control-t transpose-chars"). Panics on
// a malformed binding string or unknown command name, the same validation
// New() already applies to defaultBindings.
func WithKeyBinding(binding string) Option {
	return keyBindingOption{binding: binding}
}

type configContextOption struct {
	ctx ConfigContext
}

func (o configContextOption) apply(p *Prompt) {
	p.configContext = o.ctx
}

// WithConfigContext sets the values a loaded config file's $if directives
// compare against (see config.go). Without this option every "term="/bare
// application-name condition evaluates false.
func WithConfigContext(ctx ConfigContext) Option {
	return configContextOption{ctx: ctx}
}

type entryGeneratorOption struct {
	fn completer
}

func (o entryGeneratorOption) apply(p *Prompt) {
	p.mu.state.entryGenerator = o.fn
}

// WithEntryGenerator configures the fallback completer consulted when the
// WithCompleter function is unset or declines a word (returns no matches),
// mirroring rl_completion_entry_function's role as the default generator
// behind an attempted_completion_function.
func WithEntryGenerator(fn func(text []rune, wordStart, wordEnd int) []string) Option {
	return entryGeneratorOption{fn: fn}
}

type ignoreSomeCompletionsOption struct {
	fn func(matches []string) []string
}

func (o ignoreSomeCompletionsOption) apply(p *Prompt) {
	p.mu.state.ignoreSomeCompletions = o.fn
}

// WithIgnoreSomeCompletions filters the deduplicated match list after
// generation but before complete() acts on it, letting an application drop
// candidates it never wants offered (e.g. hidden files, a name already on
// the command line).
func WithIgnoreSomeCompletions(fn func(matches []string) []string) Option {
	return ignoreSomeCompletionsOption{fn: fn}
}

type filenameQuotingOption struct {
	fn func(text string, multiple bool) string
}

func (o filenameQuotingOption) apply(p *Prompt) {
	p.mu.state.filenameQuoting = o.fn
}

// WithFilenameQuoting configures a function to quote a filename before it's
// inserted into the buffer (e.g. wrapping a name containing spaces in
// quotes). multiple reports whether the insertion came from an ambiguous
// match set.
func WithFilenameQuoting(fn func(text string, multiple bool) string) Option {
	return filenameQuotingOption{fn: fn}
}

type completerQuoteCharsOption struct {
	chars string
}

func (o completerQuoteCharsOption) apply(p *Prompt) {
	p.mu.state.policy.completerQuoteChars = o.chars
}

// WithCompleterQuoteChars sets the characters findCompletionWord treats as
// shell quotes when locating the word under point (e.g. `"'`), so a
// word-break character inside an unterminated quote doesn't end the word
// passed to a completer. Unset by default, matching rl_completer_quote_characters'
// empty default.
func WithCompleterQuoteChars(chars string) Option {
	return completerQuoteCharsOption{chars: chars}
}

type charIsQuotedOption struct {
	fn func(line []rune, index int) bool
}

func (o charIsQuotedOption) apply(p *Prompt) {
	p.mu.state.charIsQuoted = o.fn
}

// WithCharIsQuoted configures a function that reports whether the rune at
// index in line is escaped, so a would-be word-break character there
// doesn't end the word passed to a completer.
func WithCharIsQuoted(fn func(line []rune, index int) bool) Option {
	return charIsQuotedOption{fn: fn}
}

type eventHookOption struct {
	fn func() error
}

func (o eventHookOption) apply(p *Prompt) {
	p.mu.state.eventHook = o.fn
}

// WithEventHook configures a function ReadLine polls periodically while
// blocked waiting on input, mirroring rl_event_hook's role of giving an
// embedding application a chance to run its own work (redraw something
// unrelated, check a shutdown flag) between keystrokes. A non-nil error
// aborts the in-progress ReadLine call.
func WithEventHook(fn func() error) Option {
	return eventHookOption{fn: fn}
}
