// Package pattern implements the multi-pattern matcher from spec.md §4.3:
// a set of named regexes, compiled once at registration, matched repeatedly
// against incoming lines with deterministic (insertion-order) results.
package pattern

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/dlclark/regexp2"
)

// Backend selects which regex engine compiles a Set's patterns.
type Backend uint8

const (
	// BackendAutomaton builds one combined RE2 regexp as a fast "does
	// anything match" pre-filter ahead of the same per-pattern scan the
	// iterating backend performs; it is only viable when every pattern
	// compiles under Go's RE2-based regexp package.
	BackendAutomaton Backend = iota
	// BackendIterating scans each compiled regexp2.Regexp in turn; it
	// supports backreferences and lookaround that RE2 cannot express.
	BackendIterating
)

// ParseBackend maps a session config's pattern_backend string to a Backend.
// "auto" and any unrecognized value mean BackendAutomaton, which already
// falls back to iterating per-Set when a pattern needs regexp2 features
// (see NewSet); "iterating" forces that fallback for every Set.
func ParseBackend(s string) Backend {
	if s == "iterating" {
		return BackendIterating
	}
	return BackendAutomaton
}

// NamedPattern is one entry of a Set: a stable name plus its regex source.
type NamedPattern struct {
	Name   string
	Source string
}

// Match is one pattern's hit against an input string: the pattern name,
// the full ordered submatch slice (index 0 is the whole match), and the
// named-group captures.
type Match struct {
	Name   string
	Groups []string
	Named  map[string]string
}

// InvalidPatternError wraps a regex compile failure with the offending
// pattern's name, matching spec.md §7's InvalidPattern error kind.
type InvalidPatternError struct {
	Name string
	Err  error
}

func (e *InvalidPatternError) Error() string {
	return fmt.Sprintf("pattern %q: %v", e.Name, e.Err)
}
func (e *InvalidPatternError) Unwrap() error { return e.Err }

type compiledRegex interface {
	find(input string) (groups []string, names []string, ok bool)
}

type re2Regex struct{ re *regexp.Regexp }

func (r re2Regex) find(input string) ([]string, []string, bool) {
	m := r.re.FindStringSubmatch(input)
	if m == nil {
		return nil, nil, false
	}
	return m, r.re.SubexpNames(), true
}

type iteratingRegex struct{ re *regexp2.Regexp }

func (r iteratingRegex) find(input string) ([]string, []string, bool) {
	m, err := r.re.FindStringMatch(input)
	if err != nil || m == nil {
		return nil, nil, false
	}
	groups := m.Groups()
	values := make([]string, len(groups))
	names := make([]string, len(groups))
	for i, g := range groups {
		names[i] = g.Name
		if len(g.Captures) > 0 {
			values[i] = g.Captures[len(g.Captures)-1].String()
		}
	}
	return values, names, true
}

type namedCompiled struct {
	name  string
	regex compiledRegex
}

// Set is a compiled multi-pattern matcher: patterns are compiled once at
// construction and reused for every Match call (never recompiled per
// input, per spec.md §4.3).
type Set struct {
	backend  Backend
	patterns []namedCompiled
	combined *regexp.Regexp // automaton pre-filter only
}

// CanUseAutomaton reports whether every source compiles as RE2, i.e.
// whether BackendAutomaton is viable for this pattern list.
func CanUseAutomaton(patterns []NamedPattern) bool {
	for _, p := range patterns {
		if _, err := regexp.Compile(p.Source); err != nil {
			return false
		}
	}
	return true
}

// NewSet compiles patterns under the requested backend. BackendAutomaton
// switches the whole Set to BackendIterating when any source does not
// compile as RE2 (see CanUseAutomaton). Compile failures return
// *InvalidPatternError naming the first offending pattern.
func NewSet(patterns []NamedPattern, backend Backend) (*Set, error) {
	if backend == BackendAutomaton && !CanUseAutomaton(patterns) {
		backend = BackendIterating
	}
	s := &Set{backend: backend}
	s.patterns = make([]namedCompiled, 0, len(patterns))

	for _, p := range patterns {
		switch backend {
		case BackendAutomaton:
			re, err := regexp.Compile(p.Source)
			if err != nil {
				return nil, &InvalidPatternError{Name: p.Name, Err: err}
			}
			s.patterns = append(s.patterns, namedCompiled{name: p.Name, regex: re2Regex{re: re}})
		case BackendIterating:
			re, err := regexp2.Compile(p.Source, regexp2.None)
			if err != nil {
				return nil, &InvalidPatternError{Name: p.Name, Err: err}
			}
			s.patterns = append(s.patterns, namedCompiled{name: p.Name, regex: iteratingRegex{re: re}})
		default:
			return nil, fmt.Errorf("pattern: unknown backend %d", backend)
		}
	}

	if backend == BackendAutomaton && len(patterns) > 0 {
		alts := make([]string, len(patterns))
		for i, p := range patterns {
			alts[i] = "(?:" + p.Source + ")"
		}
		combined, err := regexp.Compile(strings.Join(alts, "|"))
		if err == nil {
			s.combined = combined
		}
		// If the alternation itself fails to compile (e.g. conflicting
		// named groups), the per-pattern scan below still runs correctly;
		// the pre-filter is an optimization, not a correctness dependency.
	}

	return s, nil
}

// Match returns every pattern that matches input, in the Set's insertion
// order, with capture groups. Both backends must (and do) agree on results
// for RE2-compatible sources: the automaton backend's combined regexp is
// only ever used to skip the per-pattern scan early when nothing in the
// set can possibly match.
func (s *Set) Match(input string) []Match {
	if s.combined != nil && !s.combined.MatchString(input) {
		return nil
	}
	var matches []Match
	for _, c := range s.patterns {
		groups, names, ok := c.regex.find(input)
		if !ok {
			continue
		}
		named := make(map[string]string)
		for i, n := range names {
			if n != "" && i < len(groups) {
				named[n] = groups[i]
			}
		}
		matches = append(matches, Match{Name: c.name, Groups: groups, Named: named})
	}
	return matches
}

// Len returns the number of compiled patterns.
func (s *Set) Len() int { return len(s.patterns) }
