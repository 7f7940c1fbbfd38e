package mapcache

import (
	"strings"
	"sync"
)

// index maintains the (title, description) secondary index from spec.md
// §4.8, updated synchronously with every room write. Matching is substring
// containment over the indexed fields; the index itself only needs to
// track title/description JUST for the entries currently stored — the
// spatial index per (area, level) spec.md calls out as "where implemented"
// is not implemented here (no component of this core needs positional
// queries yet; SearchRooms covers the text lookup surface the scripts use).
type index struct {
	mu      sync.Mutex
	entries map[roomKey]indexEntry
}

type indexEntry struct {
	title       string
	description string
}

func newIndex() *index { return &index{entries: make(map[roomKey]indexEntry)} }

func (ix *index) update(key roomKey, title, description string) {
	ix.mu.Lock()
	defer ix.mu.Unlock()
	ix.entries[key] = indexEntry{title: strings.ToLower(title), description: strings.ToLower(description)}
}

func (ix *index) remove(key roomKey) {
	ix.mu.Lock()
	defer ix.mu.Unlock()
	delete(ix.entries, key)
}

func (ix *index) search(title, description string) []roomKey {
	title = strings.ToLower(title)
	description = strings.ToLower(description)

	ix.mu.Lock()
	defer ix.mu.Unlock()

	var out []roomKey
	for key, e := range ix.entries {
		if title != "" && !strings.Contains(e.title, title) {
			continue
		}
		if description != "" && !strings.Contains(e.description, description) {
			continue
		}
		out = append(out, key)
	}
	return out
}
