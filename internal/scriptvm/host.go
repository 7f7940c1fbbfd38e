package scriptvm

import "github.com/smudgy/smudgy/internal/vtparse"

// MapEntityRef is the positional (area, room) pair host operations pass to
// and from the Shared Map Cache; AreaID mirrors spec.md §3's 128-bit id as
// a pair of uint64s.
type MapEntityRef struct {
	AreaHi, AreaLo uint64
	Room           uint32
}

// Host is the complete set of operations a trigger or alias body may
// invoke, per spec.md §4.6. Each session owns one Host implementation,
// backed by its scrollback buffer, registries, edit queue, transport, and
// a reference to the process-wide Shared Map Cache.
type Host interface {
	// Session I/O
	SessionSend(line string)
	SessionSendRaw(line string)
	SessionEcho(line string)
	SessionReload()

	// Registry control
	SetAliasEnabled(name string, enabled bool)
	SetTriggerEnabled(name string, enabled bool)
	CreateSimpleAlias(name string, patterns []string, bodyText string) error
	CreateFnAlias(name string, patterns []string, handle string) error
	CreateSimpleTrigger(name string, patterns, rawPatterns, antiPatterns []string, bodyText string, firesOnPrompt, enabled bool) error
	CreateFnTrigger(name string, patterns, rawPatterns, antiPatterns []string, handle string, firesOnPrompt, enabled bool) error

	// Current-line introspection and staged edits
	GetCurrentLine() string
	GetCurrentLineNumber() int64
	LineInsert(pos int, text string, style vtparse.Style)
	LineReplace(begin, end int, text string)
	LineHighlight(begin, end int, style vtparse.Style)
	LineRemove(begin, end int)
	LineGag()

	// Retroactive scrollback mutation
	BufferInsert(lineNumber int64, pos int, text string, style vtparse.Style) error
	BufferReplace(lineNumber int64, begin, end int, text string) error
	BufferHighlight(lineNumber int64, begin, end int, style vtparse.Style) error
	BufferRemove(lineNumber int64, begin, end int) error

	// Mapper
	ListAreaIDs() []MapEntityRef
	GetAreaName(ref MapEntityRef) (string, bool)
	RenameArea(ref MapEntityRef, name string)
	GetRoomTitle(ref MapEntityRef) (string, bool)
	SetRoomField(ref MapEntityRef, field, value string)
	SetRoomProperty(ref MapEntityRef, key, value string)
	SetAreaProperty(ref MapEntityRef, key, value string)
	CreateRoom(ref MapEntityRef, title string)
	DeleteRoom(ref MapEntityRef)
	SetCurrentLocation(ref MapEntityRef)
	SearchRooms(title, description string) []MapEntityRef

	// Session introspection
	GetCurrentSession() string
	GetSessions() []string
	GetSessionCharacter(session string) string
}

func styleFromObject(obj map[string]Value) vtparse.Style {
	s := vtparse.DefaultStyle
	if fg, ok := obj["fg"]; ok {
		s.Foreground = colorFromValue(fg)
	}
	if bg, ok := obj["bg"]; ok {
		s.Background = colorFromValue(bg)
	}
	if b, ok := obj["bold"]; ok {
		s.Bold = b.Bool
	}
	return s
}

// colorFromValue maps a handful of named colors used in the spec's
// examples onto vtparse.Color; anything else falls through to Named so it
// still round-trips.
func colorFromValue(v Value) vtparse.Color {
	switch v.Str {
	case "red":
		return vtparse.ANSI(1, false)
	case "green":
		return vtparse.ANSI(2, false)
	case "yellow":
		return vtparse.ANSI(3, false)
	case "blue":
		return vtparse.ANSI(4, false)
	case "magenta":
		return vtparse.ANSI(5, false)
	case "cyan":
		return vtparse.ANSI(6, false)
	case "white":
		return vtparse.ANSI(7, false)
	case "":
		return vtparse.DefaultColor
	default:
		return vtparse.Named(v.Str)
	}
}
