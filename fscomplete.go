package prompt

import (
	"os"
	"path/filepath"
	"sort"
	"strings"
)

// FilenameCompletionHooks bundles the directory/filename hooks
// readline.hh declares as separate rl_* globals (rl_directory_rewrite_hook,
// rl_directory_completion_hook, rl_filename_stat_hook,
// rl_filename_rewrite_hook). They're grouped into one struct passed to
// NewFilenameCompleter, rather than threaded as individual Prompt-level
// Options, because every one of them only has meaning inside directory
// listing and display for filename completion specifically -- nothing else
// in the completion engine would ever consult them. See DESIGN.md.
type FilenameCompletionHooks struct {
	// DirectoryRewriteHook rewrites the directory path used to list entries
	// from disk (opendir equivalent), without affecting what's displayed.
	// Takes precedence over DirectoryCompletionHook when both are set.
	DirectoryRewriteHook func(dir string) (string, bool)

	// DirectoryCompletionHook rewrites the directory path used in both
	// listing and display when DirectoryRewriteHook is unset.
	DirectoryCompletionHook func(dir string) (string, bool)

	// FilenameStatHook rewrites a completed name immediately before it
	// would be os.Stat'd to decide whether to append a trailing slash.
	FilenameStatHook func(name string) (string, bool)

	// FilenameRewriteHook converts each raw directory entry name before
	// it's compared against the typed prefix and added to the match list
	// (e.g. a charset conversion).
	FilenameRewriteHook func(name string) string
}

func (h FilenameCompletionHooks) rewriteListDir(dir string) string {
	if h.DirectoryRewriteHook != nil {
		if rewritten, ok := h.DirectoryRewriteHook(dir); ok {
			return rewritten
		}
		return dir
	}
	if h.DirectoryCompletionHook != nil {
		if rewritten, ok := h.DirectoryCompletionHook(dir); ok {
			return rewritten
		}
	}
	return dir
}

func (h FilenameCompletionHooks) rewriteDisplayDir(dir string) string {
	if h.DirectoryRewriteHook != nil {
		// The rewrite hook only affects listing; display keeps whatever
		// DirectoryCompletionHook (if any) says, same precedence readline
		// documents between the two.
		if h.DirectoryCompletionHook != nil {
			if rewritten, ok := h.DirectoryCompletionHook(dir); ok {
				return rewritten
			}
		}
		return dir
	}
	if h.DirectoryCompletionHook != nil {
		if rewritten, ok := h.DirectoryCompletionHook(dir); ok {
			return rewritten
		}
	}
	return dir
}

func (h FilenameCompletionHooks) rewriteName(name string) string {
	if h.FilenameRewriteHook == nil {
		return name
	}
	return h.FilenameRewriteHook(name)
}

func (h FilenameCompletionHooks) statName(name string) string {
	if h.FilenameStatHook == nil {
		return name
	}
	if rewritten, ok := h.FilenameStatHook(name); ok {
		return rewritten
	}
	return name
}

// NewFilenameCompleter builds a completer equivalent to readline's default
// filename completion (rl_filename_completion_function): the word under
// point is split into a directory part and a basename part, the directory is
// listed, and entries whose name starts with the basename are returned with
// the directory part restored. A trailing "/" is appended to directory
// entries when policy.markDirectories is set, mirroring
// rl_complete_directories_with_slash. hooks may be the zero value when none
// of the directory/filename hooks are needed.
func NewFilenameCompleter(policy policyState, hooks FilenameCompletionHooks) func(text []rune, wordStart, wordEnd int) []string {
	return func(text []rune, wordStart, wordEnd int) []string {
		word := string(text[wordStart:wordEnd])
		dir, base := filepath.Split(word)

		listDir := hooks.rewriteListDir(dir)
		if listDir == "" {
			listDir = "."
		}
		displayDir := hooks.rewriteDisplayDir(dir)

		entries, err := os.ReadDir(listDir)
		if err != nil {
			return nil
		}

		var matches []string
		for _, e := range entries {
			name := hooks.rewriteName(e.Name())
			if !strings.HasPrefix(name, base) {
				continue
			}
			if base == "" && (name == "." || name == "..") {
				continue
			}
			full := displayDir + name
			isDir := e.IsDir()
			if hooks.FilenameStatHook != nil {
				// The stat hook may rewrite the name before readline decides
				// whether to append a trailing slash, e.g. when
				// FilenameRewriteHook already changed what's displayed but
				// the real file needs its original name re-stat'd.
				if info, err := os.Stat(filepath.Join(listDir, hooks.statName(e.Name()))); err == nil {
					isDir = info.IsDir()
				}
			}
			if policy.markDirectories && isDir {
				full += "/"
			}
			matches = append(matches, full)
		}
		sort.Strings(matches)
		return matches
	}
}

// NewLSColorsDisplayHook returns a WithDisplayMatchesHook function that
// colorizes each match the way `ls --color` would, using LS_COLORS from the
// environment. baseDir resolves a relative match to the file os.Lstat inspects
// for its type; pass "" to resolve against the process's own working
// directory. A match that no longer exists (stat fails) is displayed
// uncolored rather than dropped, since the match list reports what
// completion offered, not what's still on disk a moment later.
func NewLSColorsDisplayHook(baseDir string) func(matches []string) []string {
	colors := loadLSColors()
	return func(matches []string) []string {
		out := make([]string, len(matches))
		for i, m := range matches {
			name := strings.TrimSuffix(m, "/")
			path := name
			if baseDir != "" && !filepath.IsAbs(path) {
				path = filepath.Join(baseDir, path)
			}
			info, err := os.Lstat(path)
			if err != nil {
				out[i] = m
				continue
			}
			out[i] = colors.Colorize(m, info)
		}
		return out
	}
}
