package fs

import (
	"bufio"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// protectPattern is a parsed pattern with its matching strategy.
type protectPattern struct {
	pattern   string
	matchPath bool // true = match against the absolute path and its parents; false = basename only
}

// ProtectMatcher checks paths against patterns of things a cleaner must never
// report. Patterns without '/' match the basename only. Patterns with '/'
// match the absolute path or any of its parent directories, so "/home/*/keep"
// protects everything below a keep directory.
type ProtectMatcher struct {
	patterns []protectPattern
}

// NewProtectMatcher creates a ProtectMatcher from raw pattern strings.
// Blank lines and lines starting with '#' are skipped; a leading "~/" is
// expanded against home.
func NewProtectMatcher(rawPatterns []string, home string) *ProtectMatcher {
	var patterns []protectPattern
	for _, raw := range rawPatterns {
		raw = strings.TrimSpace(raw)
		if raw == "" || strings.HasPrefix(raw, "#") {
			continue
		}
		if rest, ok := strings.CutPrefix(raw, "~/"); ok && home != "" {
			raw = filepath.Join(home, rest)
		}
		patterns = append(patterns, protectPattern{
			pattern:   filepath.ToSlash(strings.TrimSuffix(raw, "/")),
			matchPath: strings.Contains(raw, "/"),
		})
	}
	return &ProtectMatcher{patterns: patterns}
}

// Match reports whether path is protected.
func (m *ProtectMatcher) Match(path string) bool {
	if m == nil || len(m.patterns) == 0 {
		return false
	}

	normalized := filepath.ToSlash(filepath.Clean(path))
	basename := filepath.Base(path)

	for _, p := range m.patterns {
		if !p.matchPath {
			if matched, err := filepath.Match(p.pattern, basename); err == nil && matched {
				return true
			}
			continue
		}
		for candidate := normalized; ; {
			if matched, err := filepath.Match(p.pattern, candidate); err == nil && matched {
				return true
			}
			parent := filepath.ToSlash(filepath.Dir(candidate))
			if parent == candidate {
				break
			}
			candidate = parent
		}
	}
	return false
}

// ParseProtectFile reads one pattern per line. Returns nil and no error if the
// file does not exist.
func ParseProtectFile(path string) ([]string, error) {
	f, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("opening protect file: %w", err)
	}
	defer f.Close()

	var patterns []string
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		patterns = append(patterns, scanner.Text())
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("reading protect file: %w", err)
	}
	return patterns, nil
}
