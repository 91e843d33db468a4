// Package ignore decides which project paths directory walks and the watcher skip.
package ignore

import (
	"path/filepath"
	"strings"

	"github.com/bmatcuk/doublestar/v4"
)

// DefaultRules are always applied before user rules, so a "!" rule can re-include them.
var DefaultRules = []string{
	".git/",
	"bower_components/",
	"node_modules/",
}

type rule struct {
	pattern  string
	negated  bool
	dirOnly  bool
	anchored bool
}

// Matcher applies gitignore-like rules where the last matching rule wins.
type Matcher struct {
	rules []rule
}

// NewMatcher builds a matcher from DefaultRules followed by extra.
func NewMatcher(extra []string) *Matcher {
	all := make([]string, 0, len(DefaultRules)+len(extra))
	all = append(all, DefaultRules...)
	all = append(all, extra...)

	m := &Matcher{rules: make([]rule, 0, len(all))}
	for _, line := range all {
		m.Add(line)
	}
	return m
}

// Add appends one rule. Blank lines and comments are ignored.
func (m *Matcher) Add(line string) {
	if parsed, ok := parseRule(line); ok {
		m.rules = append(m.rules, parsed)
	}
}

// ShouldIgnore reports whether relPath (relative to the project root) is excluded.
func (m *Matcher) ShouldIgnore(relPath string, isDir bool) bool {
	if m == nil {
		return false
	}
	relPath = normalizePath(relPath)
	if relPath == "" || relPath == "." {
		return false
	}
	ignored := false
	for _, r := range m.rules {
		if r.matches(relPath, isDir) {
			ignored = !r.negated
		}
	}
	return ignored
}

func parseRule(line string) (rule, bool) {
	line = strings.TrimSpace(line)
	if line == "" || strings.HasPrefix(line, "#") {
		return rule{}, false
	}

	var parsed rule
	if strings.HasPrefix(line, "!") {
		parsed.negated = true
		line = line[1:]
	}
	if strings.HasPrefix(line, "/") {
		parsed.anchored = true
		line = strings.TrimPrefix(line, "/")
	}
	if strings.HasSuffix(line, "/") {
		parsed.dirOnly = true
		line = strings.TrimSuffix(line, "/")
	}

	line = normalizePath(line)
	if line == "" || !doublestar.ValidatePattern(line) {
		return rule{}, false
	}
	parsed.pattern = line
	return parsed, true
}

func (r rule) matches(relPath string, isDir bool) bool {
	if r.dirOnly {
		// A directory rule covers the directory itself and everything below it.
		parts := strings.Split(relPath, "/")
		for i := range parts {
			if !isDir && i == len(parts)-1 {
				break
			}
			if r.anchored {
				if match(r.pattern, strings.Join(parts[:i+1], "/")) {
					return true
				}
				continue
			}
			for j := 0; j <= i; j++ {
				if match(r.pattern, strings.Join(parts[j:i+1], "/")) {
					return true
				}
			}
		}
		return false
	}

	if r.anchored {
		return match(r.pattern, relPath)
	}

	if strings.Contains(r.pattern, "/") {
		parts := strings.Split(relPath, "/")
		for i := range parts {
			if match(r.pattern, strings.Join(parts[i:], "/")) {
				return true
			}
		}
		return false
	}

	for _, segment := range strings.Split(relPath, "/") {
		if match(r.pattern, segment) {
			return true
		}
	}
	return false
}

func match(pattern, value string) bool {
	ok, err := doublestar.Match(pattern, value)
	return err == nil && ok
}

func normalizePath(path string) string {
	path = filepath.ToSlash(path)
	path = strings.TrimPrefix(path, "./")
	path = strings.TrimPrefix(path, "/")
	return path
}
