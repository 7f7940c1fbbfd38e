// Package scrollback stores finalised MUD output as StyledLines in a
// bounded ring buffer, and applies LineEdit mutations — staged by scripts or
// issued retroactively — against that buffer or a line still in flight.
package scrollback

import "github.com/smudgy/smudgy/internal/vtparse"

// LineKind distinguishes a normally-terminated line from a Prompt, per
// spec.md §4.1's GA/EOR/idle-timeout detection.
type LineKind uint8

const (
	KindLine LineKind = iota
	KindPrompt
)

// StyledLine is an ordered sequence of Spans carrying a monotonic line
// number assigned by the buffer that owns it. Invariant: the concatenation
// of span texts equals PlainText(), and the sum of span text lengths equals
// its length.
type StyledLine struct {
	Number int64
	Kind   LineKind
	Spans  []vtparse.Span
}

// PlainText returns the line's text with all styling stripped.
func (l StyledLine) PlainText() string {
	total := 0
	for _, s := range l.Spans {
		total += len(s.Text)
	}
	buf := make([]byte, 0, total)
	for _, s := range l.Spans {
		buf = append(buf, s.Text...)
	}
	return string(buf)
}

// styledRune is the rune-level working representation used while applying
// edits: editing at this granularity makes span splitting and merging
// trivial, at the cost of a single flatten/coalesce pass per edit batch.
type styledRune struct {
	r     rune
	style vtparse.Style
}

func flatten(spans []vtparse.Span) []styledRune {
	var out []styledRune
	for _, s := range spans {
		for _, r := range s.Text {
			out = append(out, styledRune{r: r, style: s.Style})
		}
	}
	return out
}

// coalesce merges consecutive runes sharing an identical style back into
// Spans.
func coalesce(runes []styledRune) []vtparse.Span {
	if len(runes) == 0 {
		return nil
	}
	var spans []vtparse.Span
	cur := styledRune{style: runes[0].style}
	var text []rune
	flush := func() {
		if len(text) > 0 {
			spans = append(spans, vtparse.Span{Text: string(text), Style: cur.style})
		}
	}
	cur.style = runes[0].style
	for _, sr := range runes {
		if sr.style != cur.style {
			flush()
			text = text[:0]
			cur.style = sr.style
		}
		text = append(text, sr.r)
	}
	flush()
	return spans
}

func runeLen(s string) int {
	n := 0
	for range s {
		n++
	}
	return n
}
