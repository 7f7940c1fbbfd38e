// Package vtparse turns a raw byte stream from a MUD server into a sequence
// of styled text spans and line-boundary events. It understands SGR color
// and attribute sequences, cursor/erase sequences enough not to misread
// them as text, and telnet GA/EOR prompt markers handed to it pre-stripped
// by internal/telnet.
package vtparse

import "fmt"

// ColorKind discriminates the tagged union in spec.md's Color type.
type ColorKind uint8

const (
	ColorDefault ColorKind = iota
	ColorNamed
	ColorRGB
	ColorANSI
)

// Color is "Default | Named(name) | Rgb(r,g,b) | Ansi(index, bright?)".
// Default means "take from the active palette" — it carries no data.
type Color struct {
	Kind   ColorKind
	Name   string // ColorNamed
	R, G, B uint8 // ColorRGB
	Index  uint8  // ColorANSI: 0-7
	Bright bool   // ColorANSI
}

// DefaultColor is the zero value: "take from the active palette".
var DefaultColor = Color{Kind: ColorDefault}

// Named constructs a Color naming a palette color.
func Named(name string) Color { return Color{Kind: ColorNamed, Name: name} }

// RGB constructs a 24-bit true-color Color.
func RGB(r, g, b uint8) Color { return Color{Kind: ColorRGB, R: r, G: g, B: b} }

// ANSI constructs a Color from an SGR 16-color index (0-7, optionally bright).
func ANSI(index uint8, bright bool) Color {
	return Color{Kind: ColorANSI, Index: index % 8, Bright: bright}
}

func (c Color) String() string {
	switch c.Kind {
	case ColorDefault:
		return "default"
	case ColorNamed:
		return c.Name
	case ColorRGB:
		return fmt.Sprintf("#%02x%02x%02x", c.R, c.G, c.B)
	case ColorANSI:
		if c.Bright {
			return fmt.Sprintf("ansi-bright-%d", c.Index)
		}
		return fmt.Sprintf("ansi-%d", c.Index)
	default:
		return "?"
	}
}

// Style bundles every SGR attribute a Span can carry. It is immutable —
// every mutator on Style returns a modified copy.
type Style struct {
	Foreground    Color
	Background    Color
	Bold          bool
	Italic        bool
	Underline     bool
	Strikethrough bool
	Reverse       bool
	Blink         bool
}

// DefaultStyle is the style in effect before any SGR codes are seen.
var DefaultStyle = Style{Foreground: DefaultColor, Background: DefaultColor}

// WithForeground returns a copy of s with the foreground color replaced.
func (s Style) WithForeground(c Color) Style { s.Foreground = c; return s }

// WithBackground returns a copy of s with the background color replaced.
func (s Style) WithBackground(c Color) Style { s.Background = c; return s }

// Span is a run of text sharing one Style. text must contain no control
// characters; escape sequences are consumed by the parser before a Span is
// ever constructed.
type Span struct {
	Text  string
	Style Style
}
