package trigger

import (
	"sync"

	"github.com/smudgy/smudgy/internal/pattern"
)

// Firing is one registry entry that matched a line, carrying every match
// (across its pattern/rawPattern sets) that caused it to fire.
type Firing struct {
	Name    string
	Body    Body
	Matches []pattern.Match
}

type triggerEntry struct {
	name          string
	body          Body
	firesOnPrompt bool
	enabled       bool
	removed       bool
	patterns      *pattern.Set
	rawPatterns   *pattern.Set
	antiPatterns  *pattern.Set
}

// TriggerRegistry owns every trigger for one session. Mutated only on the
// session thread (spec.md §5); RWMutex only guards against the rare
// cross-goroutine read (e.g. a Control Transport "list-triggers" request).
type TriggerRegistry struct {
	mu      sync.RWMutex
	backend pattern.Backend
	order   []*triggerEntry
	byName  map[string]*triggerEntry
}

// NewTriggerRegistry creates an empty registry using backend to compile
// every pattern set it is given.
func NewTriggerRegistry(backend pattern.Backend) *TriggerRegistry {
	return &TriggerRegistry{backend: backend, byName: make(map[string]*triggerEntry)}
}

// Register compiles and adds a trigger. Returns ErrInvalidName,
// ErrDuplicateName, or *pattern.InvalidPatternError.
func (r *TriggerRegistry) Register(name string, patterns, rawPatterns, antiPatterns []pattern.NamedPattern, body Body, firesOnPrompt, enabled bool) error {
	if err := validateName(name); err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.byName[name]; exists {
		return ErrDuplicateName
	}

	entry := &triggerEntry{name: name, body: body, firesOnPrompt: firesOnPrompt, enabled: enabled}
	var err error
	if entry.patterns, err = compileOrNil(patterns, r.backend); err != nil {
		return err
	}
	if entry.rawPatterns, err = compileOrNil(rawPatterns, r.backend); err != nil {
		return err
	}
	if entry.antiPatterns, err = compileOrNil(antiPatterns, r.backend); err != nil {
		return err
	}

	r.order = append(r.order, entry)
	r.byName[name] = entry
	return nil
}

func compileOrNil(patterns []pattern.NamedPattern, backend pattern.Backend) (*pattern.Set, error) {
	if len(patterns) == 0 {
		return nil, nil
	}
	return pattern.NewSet(patterns, backend)
}

// SetEnabled toggles a trigger by name; unknown names are a no-op (O(1)).
func (r *TriggerRegistry) SetEnabled(name string, enabled bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if e, ok := r.byName[name]; ok {
		e.enabled = enabled
	}
}

// Remove deletes a trigger by name (O(1)); unknown names are a no-op.
func (r *TriggerRegistry) Remove(name string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if e, ok := r.byName[name]; ok {
		e.removed = true
		delete(r.byName, name)
	}
}

// Reset wipes every trigger; used by session_reload() to atomically clear
// the registry. Nothing re-registers triggers afterwards.
func (r *TriggerRegistry) Reset() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.order = nil
	r.byName = make(map[string]*triggerEntry)
}

// MatchLine evaluates every enabled, non-removed trigger against a line, in
// registration order (spec.md invariant 3). onPrompt restricts evaluation
// to fires_on_prompt triggers, per spec.md §4.1. A trigger with anti-
// patterns fires iff a pattern/rawPattern matches AND no anti-pattern does
// (spec.md §4.4).
func (r *TriggerRegistry) MatchLine(plainText, rawText string, onPrompt bool) []Firing {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var firings []Firing
	for _, e := range r.order {
		if e.removed || !e.enabled {
			continue
		}
		if onPrompt && !e.firesOnPrompt {
			continue
		}
		if e.antiPatterns != nil && len(e.antiPatterns.Match(plainText)) > 0 {
			continue
		}
		var matches []pattern.Match
		if e.patterns != nil {
			matches = append(matches, e.patterns.Match(plainText)...)
		}
		if e.rawPatterns != nil {
			matches = append(matches, e.rawPatterns.Match(rawText)...)
		}
		if len(matches) == 0 {
			continue
		}
		firings = append(firings, Firing{Name: e.name, Body: e.body, Matches: matches})
	}
	return firings
}

// Names returns every live trigger's name in registration order, for
// Control Transport introspection.
func (r *TriggerRegistry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var names []string
	for _, e := range r.order {
		if !e.removed {
			names = append(names, e.name)
		}
	}
	return names
}
