package scrollback

import (
	"errors"
	"fmt"

	"github.com/smudgy/smudgy/internal/vtparse"
)

// EditKind discriminates the LineEdit tagged union from spec.md §3.
type EditKind uint8

const (
	EditInsert EditKind = iota
	EditReplace
	EditHighlight
	EditRemove
	EditGag
)

// LineEdit is one staged mutation against a line's plain text. Begin/End
// are rune positions into the ORIGINAL plain text of the line at the
// moment the line became current (spec.md §9's chosen resolution of the
// position-translation open question): successive edits within one batch
// do not see each other's shifted offsets directly, they are translated by
// ApplyEdits so they still land on the content the caller intended.
type LineEdit struct {
	Kind  EditKind
	Begin int
	End   int
	Text  string
	Style vtparse.Style // Insert/Highlight; Replace without an explicit
	HasStyle bool       // style inherits the first affected span's style
}

// Insert returns an Insert edit at pos with the given styled text.
func Insert(pos int, text string, style vtparse.Style) LineEdit {
	return LineEdit{Kind: EditInsert, Begin: pos, End: pos, Text: text, Style: style, HasStyle: true}
}

// Replace returns a Replace edit over [begin,end) with text inheriting the
// style of the first span it touches.
func Replace(begin, end int, text string) LineEdit {
	return LineEdit{Kind: EditReplace, Begin: begin, End: end, Text: text}
}

// Highlight returns a Highlight edit applying style over [begin,end)
// without changing the text.
func Highlight(begin, end int, style vtparse.Style) LineEdit {
	return LineEdit{Kind: EditHighlight, Begin: begin, End: end, Style: style, HasStyle: true}
}

// Remove returns a Remove edit deleting [begin,end).
func Remove(begin, end int) LineEdit {
	return LineEdit{Kind: EditRemove, Begin: begin, End: end}
}

// Gag returns the sentinel edit that suppresses the line entirely.
func Gag() LineEdit { return LineEdit{Kind: EditGag} }

// ErrEditOutOfBounds corresponds to spec.md §7's EditOutOfBounds: the edit
// is dropped and logged by the caller, other edits in the queue still
// apply.
var ErrEditOutOfBounds = errors.New("scrollback: edit position out of bounds")

type shift struct {
	origBoundary int
	delta        int
}

func translate(pos int, shifts []shift) int {
	out := pos
	for _, s := range shifts {
		if pos >= s.origBoundary {
			out += s.delta
		}
	}
	return out
}

// ApplyEdits applies edits, in the order given, to line's plain text and
// span structure, honoring the "positions refer to the original line"
// discipline from spec.md §9: each edit's Begin/End are translated through
// the shifts recorded by every edit applied so far, so that content the
// caller intended to touch is touched even after earlier edits changed the
// line's length. Edits whose translated bounds fall outside the current
// text are dropped (ErrEditOutOfBounds is returned alongside the other
// edits' effect; callers should log and continue per spec.md §7).
//
// A Gag edit anywhere in the batch causes ApplyEdits to report gagged=true;
// the Gag itself is skipped and the returned line still reflects every
// other edit in the batch, before or after it, which matches spec.md §4.2
// ("triggers have already run" by the time a gag is observed).
func ApplyEdits(line StyledLine, edits []LineEdit) (result StyledLine, gagged bool, err error) {
	runes := flatten(line.Spans)
	var shifts []shift
	var firstErr error

	for _, e := range edits {
		if e.Kind == EditGag {
			gagged = true
			continue
		}

		begin := translate(e.Begin, shifts)
		end := translate(e.End, shifts)
		if begin < 0 || end < begin || end > len(runes) {
			if firstErr == nil {
				firstErr = fmt.Errorf("%w: begin=%d end=%d len=%d", ErrEditOutOfBounds, begin, end, len(runes))
			}
			continue
		}

		switch e.Kind {
		case EditInsert:
			style := e.Style
			ins := make([]styledRune, 0, runeLen(e.Text))
			for _, r := range e.Text {
				ins = append(ins, styledRune{r: r, style: style})
			}
			runes = spliceRunes(runes, begin, begin, ins)
			shifts = append(shifts, shift{origBoundary: e.Begin, delta: len(ins)})

		case EditReplace:
			style := line.firstStyleAt(runes, begin, end)
			rep := make([]styledRune, 0, runeLen(e.Text))
			for _, r := range e.Text {
				rep = append(rep, styledRune{r: r, style: style})
			}
			runes = spliceRunes(runes, begin, end, rep)
			shifts = append(shifts, shift{origBoundary: e.End, delta: len(rep) - (end - begin)})

		case EditHighlight:
			for i := begin; i < end; i++ {
				runes[i].style = e.Style
			}

		case EditRemove:
			runes = spliceRunes(runes, begin, end, nil)
			shifts = append(shifts, shift{origBoundary: e.End, delta: -(end - begin)})
		}
	}

	result = StyledLine{Number: line.Number, Kind: line.Kind, Spans: coalesce(runes)}
	return result, gagged, firstErr
}

func (StyledLine) firstStyleAt(runes []styledRune, begin, end int) vtparse.Style {
	if begin < len(runes) {
		return runes[begin].style
	}
	if len(runes) > 0 {
		return runes[len(runes)-1].style
	}
	return vtparse.DefaultStyle
}

func spliceRunes(runes []styledRune, begin, end int, replacement []styledRune) []styledRune {
	out := make([]styledRune, 0, len(runes)-(end-begin)+len(replacement))
	out = append(out, runes[:begin]...)
	out = append(out, replacement...)
	out = append(out, runes[end:]...)
	return out
}
