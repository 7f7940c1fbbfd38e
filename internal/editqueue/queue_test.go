package editqueue

import (
	"testing"

	"github.com/smudgy/smudgy/internal/scrollback"
	"github.com/smudgy/smudgy/internal/vtparse"
)

func TestDrainReturnsAppendOrderAndResets(t *testing.T) {
	var q Queue
	q.Replace(0, 3, "NEW")
	q.Highlight(3, 6, vtparse.DefaultStyle)
	q.Gag()

	edits := q.Drain()
	if len(edits) != 3 {
		t.Fatalf("got %d edits, want 3", len(edits))
	}
	if edits[0].Kind != scrollback.EditReplace || edits[1].Kind != scrollback.EditHighlight || edits[2].Kind != scrollback.EditGag {
		t.Fatalf("unexpected order: %+v", edits)
	}
	if q.Len() != 0 {
		t.Fatal("expected queue to reset after Drain")
	}
}
