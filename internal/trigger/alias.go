package trigger

import (
	"sync"

	"github.com/smudgy/smudgy/internal/pattern"
)

type aliasEntry struct {
	name     string
	body     Body
	enabled  bool
	removed  bool
	patterns *pattern.Set
}

// AliasRegistry owns every alias for one session: patterns matched against
// the user's about-to-be-sent line (spec.md §3/§4.4).
type AliasRegistry struct {
	mu      sync.RWMutex
	backend pattern.Backend
	order   []*aliasEntry
	byName  map[string]*aliasEntry
}

// NewAliasRegistry creates an empty registry using backend to compile
// pattern sets.
func NewAliasRegistry(backend pattern.Backend) *AliasRegistry {
	return &AliasRegistry{backend: backend, byName: make(map[string]*aliasEntry)}
}

// Register compiles and adds an alias.
func (r *AliasRegistry) Register(name string, patterns []pattern.NamedPattern, body Body, enabled bool) error {
	if err := validateName(name); err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.byName[name]; exists {
		return ErrDuplicateName
	}
	compiled, err := compileOrNil(patterns, r.backend)
	if err != nil {
		return err
	}
	entry := &aliasEntry{name: name, body: body, enabled: enabled, patterns: compiled}
	r.order = append(r.order, entry)
	r.byName[name] = entry
	return nil
}

// SetEnabled toggles an alias by name; unknown names are a no-op.
func (r *AliasRegistry) SetEnabled(name string, enabled bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if e, ok := r.byName[name]; ok {
		e.enabled = enabled
	}
}

// Remove deletes an alias by name; unknown names are a no-op.
func (r *AliasRegistry) Remove(name string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if e, ok := r.byName[name]; ok {
		e.removed = true
		delete(r.byName, name)
	}
}

// Reset wipes every alias.
func (r *AliasRegistry) Reset() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.order = nil
	r.byName = make(map[string]*aliasEntry)
}

// MatchInput evaluates every enabled alias against a user input line, in
// registration order. Per spec.md §3, the first match suppresses the raw
// line; callers that want "first match wins" should stop at the first
// returned Firing, but every match is returned so a caller that wants
// "all matching aliases run" (as scenario S5 implies for a single alias
// with a multi-send body) has the full list available.
func (r *AliasRegistry) MatchInput(line string) []Firing {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var firings []Firing
	for _, e := range r.order {
		if e.removed || !e.enabled || e.patterns == nil {
			continue
		}
		matches := e.patterns.Match(line)
		if len(matches) == 0 {
			continue
		}
		firings = append(firings, Firing{Name: e.name, Body: e.body, Matches: matches})
	}
	return firings
}

// Names returns every live alias's name in registration order.
func (r *AliasRegistry) Names() []string {
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
