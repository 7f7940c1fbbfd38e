// Package editqueue stages the LineEdit operations a script enqueues while
// a line is in flight (spec.md §4.5), in append order, for the orchestrator
// to apply once every matching trigger body has run.
package editqueue

import (
	"sync"

	"github.com/smudgy/smudgy/internal/scrollback"
	"github.com/smudgy/smudgy/internal/vtparse"
)

// Queue accumulates LineEdits for one in-flight line. It is owned by the
// session thread for the duration of that line's trigger dispatch; the
// zero value is ready to use.
type Queue struct {
	mu    sync.Mutex
	edits []scrollback.LineEdit
}

// Insert stages an Insert edit at pos.
func (q *Queue) Insert(pos int, text string, style vtparse.Style) {
	q.push(scrollback.Insert(pos, text, style))
}

// Replace stages a Replace edit over [begin,end).
func (q *Queue) Replace(begin, end int, text string) {
	q.push(scrollback.Replace(begin, end, text))
}

// Highlight stages a Highlight edit over [begin,end).
func (q *Queue) Highlight(begin, end int, style vtparse.Style) {
	q.push(scrollback.Highlight(begin, end, style))
}

// Remove stages a Remove edit over [begin,end).
func (q *Queue) Remove(begin, end int) {
	q.push(scrollback.Remove(begin, end))
}

// Gag stages the sentinel edit that suppresses the line entirely.
func (q *Queue) Gag() {
	q.push(scrollback.Gag())
}

func (q *Queue) push(e scrollback.LineEdit) {
	q.mu.Lock()
	q.edits = append(q.edits, e)
	q.mu.Unlock()
}

// Drain returns every staged edit, in append order, and resets the queue
// for the next line.
func (q *Queue) Drain() []scrollback.LineEdit {
	q.mu.Lock()
	defer q.mu.Unlock()
	edits := q.edits
	q.edits = nil
	return edits
}

// Len reports how many edits are currently staged.
func (q *Queue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.edits)
}
