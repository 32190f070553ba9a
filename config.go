package prompt

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"
)

// ConfigContext supplies the values config.go's $if directive compares
// against: which editing mode is active, what terminal type is in use, and
// the host application's name, mirroring inputrc's "$if mode=emacs",
// "$if term=xterm", and "$if bash" forms.
type ConfigContext struct {
	Mode    string
	Term    string
	AppName string
}

// configSetters maps a "set" directive's variable name to the policyState
// field it updates, covering the variables policy.go's defaultPolicy
// exposes. Boolean variables accept "on"/"off" (readline's own spelling)
// as well as "true"/"false".
var configSetters = map[string]func(p *policyState, value string) error{
	"editing-mode": func(p *policyState, v string) error {
		p.editingMode = v
		return nil
	},
	"bell-style": func(p *policyState, v string) error {
		p.bellStyle = v
		return nil
	},
	"completion-query-items": func(p *policyState, v string) error {
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("completion-query-items: %w", err)
		}
		p.completionQueryItems = n
		return nil
	},
	"horizontal-scroll-mode": func(p *policyState, v string) error {
		b, err := parseConfigBool(v)
		if err != nil {
			return err
		}
		p.horizontalScrollMode = b
		return nil
	},
	"mark-directories": func(p *policyState, v string) error {
		b, err := parseConfigBool(v)
		if err != nil {
			return err
		}
		p.markDirectories = b
		return nil
	},
	"convert-meta": func(p *policyState, v string) error {
		b, err := parseConfigBool(v)
		if err != nil {
			return err
		}
		p.convertMeta = b
		return nil
	},
	"output-meta": func(p *policyState, v string) error {
		b, err := parseConfigBool(v)
		if err != nil {
			return err
		}
		p.outputMeta = b
		return nil
	},
}

func parseConfigBool(v string) (bool, error) {
	switch strings.ToLower(v) {
	case "on", "true", "1", "yes":
		return true, nil
	case "off", "false", "0", "no":
		return false, nil
	default:
		return false, fmt.Errorf("invalid boolean value: %q", v)
	}
}

// condFrame is one level of $if/$else/$endif nesting. active reflects
// whether lines at this level should currently be applied, taking the
// enclosing frame's activity into account (a false parent keeps every
// nested frame inactive regardless of its own condition, matching inputrc's
// "an inactive $if suppresses its $else too").
type condFrame struct {
	parentActive bool
	active       bool
	sawElse      bool
}

// LoadConfig reads path (an inputrc-grammar config file, see spec §6) and
// applies its set/bind directives to p, following $include relative to
// path's directory. It's the file-backed counterpart to building a Prompt
// purely from Options.
func LoadConfig(p *Prompt, path string) error {
	f, err := os.Open(path)
	if err != nil {
		return err
	}
	defer f.Close()
	return parseConfigFile(p, f, filepath.Dir(path), path)
}

// ParseConfig applies the directives read from r to p, as LoadConfig does
// for a named file. baseDir resolves any $include directive's relative
// path; source is used only to annotate error messages.
func ParseConfig(p *Prompt, r io.Reader, baseDir, source string) error {
	return parseConfigFile(p, r, baseDir, source)
}

func parseConfigFile(p *Prompt, r io.Reader, baseDir, source string) error {
	scanner := bufio.NewScanner(r)
	var stack []condFrame
	lineNo := 0

	active := func() bool {
		if len(stack) == 0 {
			return true
		}
		return stack[len(stack)-1].active
	}

	for scanner.Scan() {
		lineNo++
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}

		switch {
		case strings.HasPrefix(line, "$if"):
			cond := strings.TrimSpace(line[len("$if"):])
			stack = append(stack, condFrame{
				parentActive: active(),
				active:       active() && evalCondition(cond, p.configContext),
			})
			continue

		case line == "$else":
			if len(stack) == 0 {
				return fmt.Errorf("%s:%d: $else without matching $if", source, lineNo)
			}
			top := &stack[len(stack)-1]
			if top.sawElse {
				return fmt.Errorf("%s:%d: duplicate $else", source, lineNo)
			}
			top.sawElse = true
			top.active = top.parentActive && !top.active
			continue

		case line == "$endif":
			if len(stack) == 0 {
				return fmt.Errorf("%s:%d: $endif without matching $if", source, lineNo)
			}
			stack = stack[:len(stack)-1]
			continue
		}

		if !active() {
			continue
		}

		if strings.HasPrefix(line, "$include") {
			rel := strings.TrimSpace(line[len("$include"):])
			path := rel
			if !filepath.IsAbs(path) {
				path = filepath.Join(baseDir, rel)
			}
			if err := LoadConfig(p, path); err != nil {
				return fmt.Errorf("%s:%d: $include %s: %w", source, lineNo, rel, err)
			}
			continue
		}

		if err := applyConfigLine(p, line); err != nil {
			return fmt.Errorf("%s:%d: %w", source, lineNo, err)
		}
	}
	if err := scanner.Err(); err != nil {
		return err
	}
	if len(stack) != 0 {
		return fmt.Errorf("%s: unterminated $if", source)
	}
	return nil
}

// evalCondition evaluates an $if directive's condition against ctx.
// Supported forms: "mode=emacs"/"mode=vi", "term=<name>" (prefix match, the
// same convention inputrc uses for e.g. "term=xterm" matching "xterm-256color"),
// and a bare application name (matched against ctx.AppName). Any other
// "name=value" form evaluates false rather than erroring, matching
// inputrc's own tolerance for an $if condition naming a variable the
// running application doesn't define.
func evalCondition(cond string, ctx ConfigContext) bool {
	cond = strings.TrimSpace(cond)
	name, value, hasEq := strings.Cut(cond, "=")
	name = strings.TrimSpace(name)
	value = strings.TrimSpace(value)

	if !hasEq {
		return ctx.AppName == cond
	}

	switch strings.ToLower(name) {
	case "mode":
		return ctx.Mode == value
	case "term":
		return strings.HasPrefix(ctx.Term, value)
	default:
		return false
	}
}

// applyConfigLine dispatches a single non-directive line to the "set" or
// "bind" handling it names. Unrecognized leading keywords are an error
// rather than silently ignored, since a typo'd directive should be visible
// at load time instead of producing a config file that quietly does less
// than the user wrote.
func applyConfigLine(p *Prompt, line string) error {
	if strings.HasPrefix(line, `"`) {
		return applyKeySeqBinding(p, line)
	}

	fields := strings.Fields(line)
	if len(fields) == 0 {
		return nil
	}

	switch fields[0] {
	case "set":
		if len(fields) != 3 {
			return fmt.Errorf("invalid set directive: %q", line)
		}
		setter, ok := configSetters[fields[1]]
		if !ok {
			return fmt.Errorf("unknown variable: %s", fields[1])
		}
		return setter(&p.mu.state.policy, fields[2])

	case "bind":
		// "bind <key> <command>" reuses the exact grammar defaultBindings
		// is written in; "bind <key> = <literal text>" instead binds key to
		// a replacement key sequence (a keyboard macro) stored in rootMacros.
		// The quoted `"<keyseq>": "<macro>"` form is handled separately by
		// applyKeySeqBinding and builds keyseqRoot instead.
		if len(fields) >= 3 && fields[2] == "=" {
			key, _, err := parseBinding("bind " + fields[1] + " " + string(cmdInsertChar))
			if err != nil {
				return err
			}
			literal := strings.TrimSpace(strings.TrimPrefix(line, "bind "+fields[1]+" = "))
			if p.mu.state.rootMacros == nil {
				p.mu.state.rootMacros = make(map[rune][]rune)
			}
			p.mu.state.rootMacros[key] = []rune(literal)
			return nil
		}
		key, cmd, err := parseBinding(line)
		if err != nil {
			return err
		}
		p.mu.state.bindings[key] = cmd
		return nil

	default:
		return fmt.Errorf("unknown directive: %q", fields[0])
	}
}

// parseQuotedString reads one double-quoted string from the start of s,
// returning its unquoted content (escapes inside left untouched, since
// applyKeySeqBinding hands the content straight to translateKeySeq) and the
// number of bytes of s consumed, including both quote characters. A
// backslash inside the string, escaped or not, never ends it early -- only
// an unescaped closing '"' does.
func parseQuotedString(s string) (content string, n int, err error) {
	if len(s) == 0 || s[0] != '"' {
		return "", 0, fmt.Errorf("expected quoted string: %q", s)
	}
	i := 1
	for i < len(s) {
		if s[i] == '\\' && i+1 < len(s) {
			i += 2
			continue
		}
		if s[i] == '"' {
			return s[1:i], i + 1, nil
		}
		i++
	}
	return "", 0, fmt.Errorf("unterminated quoted string: %q", s)
}

// applyKeySeqBinding parses and applies one of config.go's quoted-keyseq
// directives (spec §6): `"<keyseq>": <function-name>` binds the decoded
// sequence to a named command, and `"<keyseq>": "<macro>"` instead binds it
// to replay a literal key sequence, both walking (and growing as needed) the
// Prompt's per-instance keyseqRoot keymap rather than the flat bindings map
// the plain "bind <key> <command>" directive populates.
func applyKeySeqBinding(p *Prompt, line string) error {
	keyseqRaw, n, err := parseQuotedString(line)
	if err != nil {
		return err
	}

	rest := strings.TrimSpace(line[n:])
	rest = strings.TrimPrefix(rest, ":")
	rest = strings.TrimSpace(rest)
	if rest == "" {
		return fmt.Errorf("missing binding after key sequence: %q", line)
	}

	seq, err := translateKeySeq(keyseqRaw)
	if err != nil {
		return fmt.Errorf("invalid key sequence %q: %w", keyseqRaw, err)
	}

	if p.mu.state.keyseqRoot == nil {
		p.mu.state.keyseqRoot = newKeymap("config")
	}

	if strings.HasPrefix(rest, `"`) {
		macroRaw, _, err := parseQuotedString(rest)
		if err != nil {
			return err
		}
		macro, err := translateKeySeq(macroRaw)
		if err != nil {
			return fmt.Errorf("invalid macro %q: %w", macroRaw, err)
		}
		return macroBind(p.mu.state.keyseqRoot, seq, macro)
	}

	cmd := command(rest)
	if c, ok := commandAliases[string(cmd)]; ok {
		cmd = c
	}
	if !isValidCommand(cmd) {
		return fmt.Errorf("unknown command: %s", cmd)
	}
	return bindKeySeq(p.mu.state.keyseqRoot, seq, cmd)
}
