package trigger

import (
	"errors"
	"testing"

	"github.com/smudgy/smudgy/internal/pattern"
)

func np(name, source string) []pattern.NamedPattern {
	return []pattern.NamedPattern{{Name: name, Source: source}}
}

// Invariant 3: two triggers matching one line fire in registration order.
func TestTriggersFireInRegistrationOrder(t *testing.T) {
	r := NewTriggerRegistry(pattern.BackendAutomaton)
	if err := r.Register("a", np("a", "hello"), nil, nil, SimpleBody("a-body"), false, true); err != nil {
		t.Fatalf("register a: %v", err)
	}
	if err := r.Register("b", np("b", "hello"), nil, nil, SimpleBody("b-body"), false, true); err != nil {
		t.Fatalf("register b: %v", err)
	}

	firings := r.MatchLine("hello world", "hello world", false)
	if len(firings) != 2 {
		t.Fatalf("got %d firings, want 2", len(firings))
	}
	if firings[0].Name != "a" || firings[1].Name != "b" {
		t.Fatalf("got order %v, want [a b]", []string{firings[0].Name, firings[1].Name})
	}
}

// Invariant 4: an anti-pattern match suppresses the trigger.
func TestAntiPatternSuppressesTrigger(t *testing.T) {
	r := NewTriggerRegistry(pattern.BackendAutomaton)
	err := r.Register("t", np("t", `^critical`), nil, np("anti", "miss"), SimpleBody("body"), false, true)
	if err != nil {
		t.Fatalf("register: %v", err)
	}

	if firings := r.MatchLine("critical miss", "critical miss", false); len(firings) != 0 {
		t.Fatalf("expected suppression, got %+v", firings)
	}
	if firings := r.MatchLine("critical hit", "critical hit", false); len(firings) != 1 {
		t.Fatalf("expected one firing, got %+v", firings)
	}
}

func TestFiresOnPromptGating(t *testing.T) {
	r := NewTriggerRegistry(pattern.BackendAutomaton)
	r.Register("ordinary", np("o", "hp"), nil, nil, SimpleBody("x"), false, true)
	r.Register("promptAware", np("p", "hp"), nil, nil, SimpleBody("y"), true, true)

	onLine := r.MatchLine("hp 100", "hp 100", false)
	if len(onLine) != 2 {
		t.Fatalf("ordinary line: got %d firings, want 2", len(onLine))
	}

	onPrompt := r.MatchLine("hp 100", "hp 100", true)
	if len(onPrompt) != 1 || onPrompt[0].Name != "promptAware" {
		t.Fatalf("prompt line: got %+v, want only promptAware", onPrompt)
	}
}

func TestDuplicateAndInvalidName(t *testing.T) {
	r := NewTriggerRegistry(pattern.BackendAutomaton)
	if err := r.Register("ok_name", np("p", "x"), nil, nil, SimpleBody(""), false, true); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := r.Register("ok_name", np("p", "y"), nil, nil, SimpleBody(""), false, true); !errors.Is(err, ErrDuplicateName) {
		t.Fatalf("got %v, want ErrDuplicateName", err)
	}
	if err := r.Register("bad name!", np("p", "x"), nil, nil, SimpleBody(""), false, true); !errors.Is(err, ErrInvalidName) {
		t.Fatalf("got %v, want ErrInvalidName", err)
	}
}

func TestSetEnabledAndRemoveAreNoOpOnUnknown(t *testing.T) {
	r := NewTriggerRegistry(pattern.BackendAutomaton)
	r.SetEnabled("nope", true)
	r.Remove("nope")
	if len(r.Names()) != 0 {
		t.Fatalf("expected empty registry")
	}
}

func TestRemoveThenReregister(t *testing.T) {
	r := NewTriggerRegistry(pattern.BackendAutomaton)
	if err := r.Register("t", np("p", "x"), nil, nil, SimpleBody(""), false, true); err != nil {
		t.Fatalf("register: %v", err)
	}
	r.Remove("t")
	if names := r.Names(); len(names) != 0 {
		t.Fatalf("expected removed trigger to disappear, got %v", names)
	}
	if err := r.Register("t", np("p", "y"), nil, nil, SimpleBody(""), false, true); err != nil {
		t.Fatalf("re-register after remove should succeed: %v", err)
	}
	if firings := r.MatchLine("y", "y", false); len(firings) != 1 {
		t.Fatalf("expected the re-registered trigger to fire, got %+v", firings)
	}
}

// S5: an alias with one matching pattern returns exactly one firing; its
// body is expected (by the caller, the script executor) to issue multiple
// sends.
func TestScenarioS5AliasMatch(t *testing.T) {
	r := NewAliasRegistry(pattern.BackendAutomaton)
	if err := r.Register("a1", np("a1", `^k (\w+)$`), SimpleBody(`send("kick "+$1); send("smile "+$1)`), true); err != nil {
		t.Fatalf("register: %v", err)
	}
	firings := r.MatchInput("k orc")
	if len(firings) != 1 {
		t.Fatalf("got %d firings, want 1", len(firings))
	}
	if firings[0].Matches[0].Groups[1] != "orc" {
		t.Fatalf("got capture %q, want orc", firings[0].Matches[0].Groups[1])
	}
}
