// Package cli provides shared helpers for the credsafe commands: entry
// pattern matching, secret prompts and clipboard access.
package cli

import (
	"errors"
	"fmt"
	"path"
	"sort"
	"strings"
)

// Errors
var (
	ErrInvalidPattern = errors.New("cli: invalid pattern")
	ErrNoMatch        = errors.New("cli: no matching entry")
)

// IsGlob reports whether pattern contains glob metacharacters.
func IsGlob(pattern string) bool {
	return strings.ContainsAny(pattern, "*?[")
}

// ExpandPattern expands a glob pattern against entry labels.
// A pattern without glob characters must match an entry exactly.
// Matching uses path.Match, so '*' does not cross a '/' in labels such as
// "work/mail".
func ExpandPattern(pattern string, entries []string) ([]string, error) {
	if _, err := path.Match(pattern, ""); err != nil {
		return nil, fmt.Errorf("%w %q: %w", ErrInvalidPattern, pattern, err)
	}

	if !IsGlob(pattern) {
		for _, e := range entries {
			if e == pattern {
				return []string{pattern}, nil
			}
		}
		return nil, fmt.Errorf("%w: %q", ErrNoMatch, pattern)
	}

	var matches []string
	for _, e := range entries {
		matched, err := path.Match(pattern, e)
		if err != nil {
			return nil, fmt.Errorf("%w %q: %w", ErrInvalidPattern, pattern, err)
		}
		if matched {
			matches = append(matches, e)
		}
	}

	if len(matches) == 0 {
		return nil, fmt.Errorf("%w: %q", ErrNoMatch, pattern)
	}
	return matches, nil
}

// ExpandPatterns expands several patterns and returns unique entries in
// order of first match.
func ExpandPatterns(patterns []string, entries []string) ([]string, error) {
	seen := make(map[string]bool)
	var result []string

	for _, pattern := range patterns {
		matches, err := ExpandPattern(pattern, entries)
		if err != nil {
			return nil, err
		}
		for _, e := range matches {
			if !seen[e] {
				seen[e] = true
				result = append(result, e)
			}
		}
	}
	return result, nil
}

// SortEntries returns a sorted copy of entries.
func SortEntries(entries []string) []string {
	sorted := make([]string, len(entries))
	copy(sorted, entries)
	sort.Strings(sorted)
	return sorted
}
