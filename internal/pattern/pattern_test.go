package pattern

import (
	"errors"
	"testing"
)

func TestBothBackendsAgreeOnRE2CompatiblePatterns(t *testing.T) {
	patterns := []NamedPattern{
		{Name: "hit", Source: `^You hit (?P<target>\w+) for (?P<amount>\d+) damage\.$`},
		{Name: "spam", Source: `^spam$`},
	}

	automaton, err := NewSet(patterns, BackendAutomaton)
	if err != nil {
		t.Fatalf("automaton compile: %v", err)
	}
	iterating, err := NewSet(patterns, BackendIterating)
	if err != nil {
		t.Fatalf("iterating compile: %v", err)
	}

	inputs := []string{
		"You hit orc for 12 damage.",
		"spam",
		"nothing matches this",
	}

	for _, in := range inputs {
		a := automaton.Match(in)
		i := iterating.Match(in)
		if len(a) != len(i) {
			t.Fatalf("input %q: automaton got %d matches, iterating got %d", in, len(a), len(i))
		}
		for idx := range a {
			if a[idx].Name != i[idx].Name {
				t.Errorf("input %q match %d: names differ %q vs %q", in, idx, a[idx].Name, i[idx].Name)
			}
			if a[idx].Named["target"] != i[idx].Named["target"] {
				t.Errorf("input %q: target capture differs %q vs %q", in, a[idx].Named["target"], i[idx].Named["target"])
			}
		}
	}
}

func TestScenarioS2CaptureGroups(t *testing.T) {
	s, err := NewSet([]NamedPattern{
		{Name: "t1", Source: `^You hit (\w+) for (\d+) damage\.$`},
	}, BackendAutomaton)
	if err != nil {
		t.Fatalf("compile: %v", err)
	}
	matches := s.Match("You hit orc for 12 damage.")
	if len(matches) != 1 {
		t.Fatalf("got %d matches, want 1", len(matches))
	}
	if matches[0].Groups[1] != "orc" || matches[0].Groups[2] != "12" {
		t.Fatalf("unexpected groups: %+v", matches[0].Groups)
	}
}

func TestInvalidPatternError(t *testing.T) {
	_, err := NewSet([]NamedPattern{{Name: "bad", Source: "(unterminated"}}, BackendAutomaton)
	if err == nil {
		t.Fatal("expected an error")
	}
	var ipe *InvalidPatternError
	if !errors.As(err, &ipe) {
		t.Fatalf("got %v, want *InvalidPatternError", err)
	}
	if ipe.Name != "bad" {
		t.Errorf("got name %q", ipe.Name)
	}
}

func TestIteratingBackendSupportsBackreferences(t *testing.T) {
	// (\w+) \1 requires a backreference; RE2 cannot express this, so only
	// the iterating backend can compile it.
	if CanUseAutomaton([]NamedPattern{{Name: "dup", Source: `(\w+) \1`}}) {
		t.Fatal("expected backreference pattern to be RE2-incompatible")
	}
	s, err := NewSet([]NamedPattern{{Name: "dup", Source: `(\w+) \1`}}, BackendIterating)
	if err != nil {
		t.Fatalf("compile: %v", err)
	}
	matches := s.Match("echo echo heard")
	if len(matches) != 1 {
		t.Fatalf("got %d matches, want 1", len(matches))
	}
}

func TestMatchOrderIsInsertionOrder(t *testing.T) {
	s, err := NewSet([]NamedPattern{
		{Name: "first", Source: "a"},
		{Name: "second", Source: "b"},
	}, BackendAutomaton)
	if err != nil {
		t.Fatalf("compile: %v", err)
	}
	matches := s.Match("ab")
	if len(matches) != 2 || matches[0].Name != "first" || matches[1].Name != "second" {
		t.Fatalf("got %+v, want [first second]", matches)
	}
}
