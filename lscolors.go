package prompt

import (
	"os"
	"strings"
)

// lsColors renders filename completions the way `ls --color` and readline's
// colored-stats completion would: per-type ANSI sequences parsed from the
// LS_COLORS environment variable, used to colorize match lists before they
// get handed to screen.ListMatches. Grounded on colors.cc's
// _rl_print_color_indicator/is_colored (the fixed set of type indicators)
// and readline.hh's indicator_no enum (the two-letter codes below), but
// reimplemented against os.FileMode instead of raw stat()/S_IS* macros.
type lsColors struct {
	// byType maps a two-letter LS_COLORS code ("di", "ln", "ex", ...) to its
	// SGR parameter string (e.g. "01;34"), already stripped of the
	// ESC-[-...-m wrapper.
	byType map[string]string

	// byExt maps a case-sensitive filename suffix (including the leading
	// '.', e.g. ".tar") to its SGR parameter string.
	byExt map[string]string
}

// defaultLSColorsIndicators lists every two-letter type indicator this
// module recognizes; anything else in LS_COLORS is accepted but ignored
// (SELinux context colors and multi-hardlink detection are explicitly out of
// scope).
var defaultLSColorsIndicators = map[string]bool{
	"no": true, "fi": true, "di": true, "ln": true, "pi": true,
	"so": true, "bd": true, "cd": true, "or": true, "mi": true, "ex": true,
}

// parseLSColors parses the LS_COLORS grammar: colon-separated "key=value"
// pairs, where key is either one of the two-letter type codes above or a
// "*.ext" glob naming a file extension. Malformed entries (missing "=", an
// empty key) are skipped rather than erroring, matching ls's own tolerance
// for a user's LS_COLORS typo not being fatal.
func parseLSColors(raw string) lsColors {
	c := lsColors{byType: map[string]string{}, byExt: map[string]string{}}
	for _, entry := range strings.Split(raw, ":") {
		if entry == "" {
			continue
		}
		key, value, ok := strings.Cut(entry, "=")
		if !ok || key == "" {
			continue
		}
		if strings.HasPrefix(key, "*.") {
			c.byExt[key[1:]] = value
			continue
		}
		if defaultLSColorsIndicators[key] {
			c.byType[key] = value
		}
	}
	return c
}

// loadLSColors reads LS_COLORS from the environment, returning an empty
// (always-unstyled) lsColors if it's unset, matching ls's behavior of
// falling back to no color rather than a built-in color scheme.
func loadLSColors() lsColors {
	raw, ok := os.LookupEnv("LS_COLORS")
	if !ok {
		return lsColors{}
	}
	return parseLSColors(raw)
}

// indicatorFor classifies name's file type using info (nil means "stat
// failed" or "doesn't exist", mapped to the "or"/orphan-ish "mi" code) and
// returns the two-letter code whose color should be used.
func indicatorFor(info os.FileInfo) string {
	if info == nil {
		return "mi"
	}
	mode := info.Mode()
	switch {
	case mode&os.ModeSymlink != 0:
		return "ln"
	case mode.IsDir():
		return "di"
	case mode&os.ModeNamedPipe != 0:
		return "pi"
	case mode&os.ModeSocket != 0:
		return "so"
	case mode&os.ModeDevice != 0:
		if mode&os.ModeCharDevice != 0 {
			return "cd"
		}
		return "bd"
	case mode&os.ModePerm&0o111 != 0:
		return "ex"
	default:
		return "fi"
	}
}

// Colorize wraps name in the ANSI sequence for its type or extension,
// preferring an extension match the same way ls does (a colored extension
// overrides the plain file-type color, but directories/links/devices are
// never extension-colored). If nothing in LS_COLORS applies, name is
// returned unchanged.
func (c lsColors) Colorize(name string, info os.FileInfo) string {
	ind := indicatorFor(info)
	seq := c.byType[ind]
	if ind == "fi" {
		if ext, ok := c.matchExt(name); ok {
			seq = ext
		}
	}
	if seq == "" {
		return name
	}
	return "\x1b[" + seq + "m" + name + "\x1b[0m"
}

func (c lsColors) matchExt(name string) (string, bool) {
	for ext, seq := range c.byExt {
		if strings.HasSuffix(name, ext) {
			return seq, true
		}
	}
	return "", false
}

// sgrWidth reports the column width a colorized string produced by Colorize
// occupies on screen, for callers (formatMatchColumns) that need to lay out
// colored entries without counting the invisible escape bytes. It's a small,
// local affordance rather than a dependency on a general ANSI-width parser,
// since the only escapes Colorize ever emits are the two fixed wrappers
// above.
func sgrWidth(s string) int {
	n := 0
	inEscape := false
	for _, r := range s {
		switch {
		case inEscape:
			if r == 'm' {
				inEscape = false
			}
		case r == '\x1b':
			inEscape = true
		default:
			n += len([]rune(string(r)))
		}
	}
	return n
}
