package vtparse

import (
	"strconv"
	"strings"
)

// RenderSGR reconstructs an SGR-escaped ANSI string from spans: the same
// shape of bytes a terminal would have received to produce this styling.
// The parser never retains the server's original bytes once a span is cut,
// so rawPatterns (spec.md §4.4, matching against color-dependent sequences)
// match against this reconstruction rather than the literal wire bytes.
func RenderSGR(spans []Span) string {
	var b strings.Builder
	for _, sp := range spans {
		codes := sgrCodes(sp.Style)
		if len(codes) > 0 {
			b.WriteString("\x1b[")
			b.WriteString(strings.Join(codes, ";"))
			b.WriteByte('m')
		}
		b.WriteString(sp.Text)
		if len(codes) > 0 {
			b.WriteString("\x1b[0m")
		}
	}
	return b.String()
}

func sgrCodes(s Style) []string {
	var codes []string
	if s.Bold {
		codes = append(codes, "1")
	}
	if s.Italic {
		codes = append(codes, "3")
	}
	if s.Underline {
		codes = append(codes, "4")
	}
	if s.Blink {
		codes = append(codes, "5")
	}
	if s.Reverse {
		codes = append(codes, "7")
	}
	if s.Strikethrough {
		codes = append(codes, "9")
	}
	codes = append(codes, colorCodes(s.Foreground, true)...)
	codes = append(codes, colorCodes(s.Background, false)...)
	return codes
}

// colorCodes covers the ColorANSI/ColorRGB kinds the parser itself ever
// produces. ColorDefault needs no code; ColorNamed only ever comes from a
// script setting a style directly and has no SGR equivalent to reconstruct.
func colorCodes(c Color, foreground bool) []string {
	base := 30
	if !foreground {
		base = 40
	}
	switch c.Kind {
	case ColorANSI:
		if c.Bright {
			return []string{strconv.Itoa(base + 60 + int(c.Index))}
		}
		return []string{strconv.Itoa(base + int(c.Index))}
	case ColorRGB:
		return []string{strconv.Itoa(base + 8), "2", strconv.Itoa(int(c.R)), strconv.Itoa(int(c.G)), strconv.Itoa(int(c.B))}
	default:
		return nil
	}
}
