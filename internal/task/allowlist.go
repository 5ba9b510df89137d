package task

import (
	"fmt"
	"regexp"
	"strings"

	"taskgate/internal/config"
	"taskgate/internal/types"
)

// Invocation is a fully-resolved, authorized command execution.
type Invocation struct {
	Name            string
	Path            string
	Args            []string
	OutputLineLimit int
}

type allowEntry struct {
	path      string
	pattern   *regexp.Regexp
	maxArgs   int
	lineLimit int
}

// Allowlist holds the closed set of commands run_command may execute.
// It is built once at startup and read-only afterwards.
type Allowlist struct {
	entries map[string]allowEntry
}

// NewAllowlist compiles the configured entries into an allowlist.
func NewAllowlist(entries []config.AllowlistEntry) (*Allowlist, error) {
	a := &Allowlist{entries: make(map[string]allowEntry, len(entries))}

	for _, e := range entries {
		var re *regexp.Regexp
		if e.ArgPattern != "" {
			compiled, err := regexp.Compile(e.ArgPattern)
			if err != nil {
				return nil, fmt.Errorf("allowlist entry %s: %w", e.Name, err)
			}
			re = compiled
		}
		a.entries[e.Name] = allowEntry{
			path:      e.Path,
			pattern:   re,
			maxArgs:   e.MaxArgs,
			lineLimit: e.OutputLineLimit,
		}
	}

	return a, nil
}

// Resolve authorizes a requested command name and argument list. Only
// exact-name matches are eligible; arguments are validated against the
// entry's pattern, never escaped or passed through a shell.
func (a *Allowlist) Resolve(name string, args []string) (*Invocation, error) {
	entry, ok := a.entries[name]
	if !ok {
		return nil, fmt.Errorf("%w: %s", types.ErrCommandNotAllowed, name)
	}

	if entry.maxArgs > 0 && len(args) > entry.maxArgs {
		return nil, fmt.Errorf("%w: too many arguments (%d > %d)",
			types.ErrArgumentRejected, len(args), entry.maxArgs)
	}

	for _, arg := range args {
		if entry.pattern == nil {
			if len(args) > 0 {
				return nil, fmt.Errorf("%w: %s takes no arguments", types.ErrArgumentRejected, name)
			}
			break
		}
		if !entry.pattern.MatchString(arg) {
			return nil, fmt.Errorf("%w: %q", types.ErrArgumentRejected, arg)
		}
	}

	return &Invocation{
		Name:            name,
		Path:            entry.path,
		Args:            args,
		OutputLineLimit: entry.lineLimit,
	}, nil
}

// TruncateLines bounds output to limit lines before it is returned to
// the caller. It reports whether anything was cut.
func TruncateLines(output string, limit int) (string, bool) {
	if limit <= 0 {
		return output, false
	}
	lines := strings.Split(strings.TrimRight(output, "\n"), "\n")
	if len(lines) <= limit {
		return output, false
	}
	return strings.Join(lines[:limit], "\n") + "\n", true
}
