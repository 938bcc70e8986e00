// Package search implements pattern matching over a catalog snapshot.
//
// A pattern is interpreted by exactly one of three strategies, tried in
// priority order: shell glob when the pattern contains a wildcard, then
// case-insensitive regular expression with contains semantics, then plain
// case-insensitive substring containment when the pattern is not a valid
// regular expression. The fallbacks are silent; search never fails.
package search

import (
	"path"
	"regexp"
	"strings"

	"ibakit/internal/catalog"
	"ibakit/internal/log"
)

// Run filters the catalog's signals by pattern and returns the matches in
// catalog enumeration order (analog, digital, text). Matching is against
// the signal name only; groups exist purely for display.
//
// The empty pattern is the caller's concern: Run treats it like any other
// literal and the session rejects it before calling here.
func Run(cat *catalog.Catalog, pattern string) []catalog.Signal {
	if cat == nil {
		return nil
	}
	return filter(cat.All(), matcherFor(pattern))
}

// matcherFor selects the single matching strategy for the pattern.
func matcherFor(pattern string) func(name string) bool {
	if strings.ContainsAny(pattern, "*?") {
		// Glob matching is case-sensitive, unlike the fallbacks below.
		// The asymmetry is inherited behavior and is preserved on purpose.
		return func(name string) bool {
			ok, err := path.Match(pattern, name)
			if err != nil {
				// Malformed glob, e.g. an unterminated character class.
				return false
			}
			return ok
		}
	}

	re, err := regexp.Compile("(?i)" + pattern)
	if err != nil {
		log.Debug(log.CatSearch, "pattern is not a valid regexp, using substring match", "pattern", pattern)
		lowered := strings.ToLower(pattern)
		return func(name string) bool {
			return strings.Contains(strings.ToLower(name), lowered)
		}
	}

	return func(name string) bool {
		return re.MatchString(name)
	}
}

func filter(signals []catalog.Signal, match func(string) bool) []catalog.Signal {
	var matches []catalog.Signal
	for _, s := range signals {
		if match(s.Name) {
			matches = append(matches, s)
		}
	}
	return matches
}
