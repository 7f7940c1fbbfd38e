package session

import (
	"github.com/smudgy/smudgy/internal/mapcache"
	"github.com/smudgy/smudgy/internal/pattern"
	"github.com/smudgy/smudgy/internal/scriptvm"
	"github.com/smudgy/smudgy/internal/scrollback"
	"github.com/smudgy/smudgy/internal/trigger"
	"github.com/smudgy/smudgy/internal/vtparse"
)

// sessionHost implements scriptvm.Host on top of one Session, per spec.md
// §4.6: the only surface a trigger/alias body can use to touch the
// outside world.
type sessionHost struct {
	s *Session
}

func (s *Session) newHost() scriptvm.Host { return sessionHost{s: s} }

func (h sessionHost) SessionSend(line string)    { h.s.Send(line) }
func (h sessionHost) SessionSendRaw(line string) { h.s.writeRaw(line) }

func (h sessionHost) SessionEcho(line string) {
	lineNum := h.s.buffer.NextLineNumber()
	h.s.buffer.Append(scrollback.StyledLine{
		Number: lineNum,
		Kind:   scrollback.KindLine,
		Spans:  []vtparse.Span{{Text: line}},
	})
}

func (h sessionHost) SessionReload() { h.s.Reload() }

func (h sessionHost) SetAliasEnabled(name string, enabled bool)   { h.s.aliases.SetEnabled(name, enabled) }
func (h sessionHost) SetTriggerEnabled(name string, enabled bool) { h.s.triggers.SetEnabled(name, enabled) }

func (h sessionHost) CreateSimpleAlias(name string, patterns []string, bodyText string) error {
	return h.s.aliases.Register(name, namedPatterns(name, patterns), trigger.SimpleBody(bodyText), true)
}

func (h sessionHost) CreateFnAlias(name string, patterns []string, handle string) error {
	return h.s.aliases.Register(name, namedPatterns(name, patterns), trigger.FnBody(handle), true)
}

func (h sessionHost) CreateSimpleTrigger(name string, patterns, rawPatterns, antiPatterns []string, bodyText string, firesOnPrompt, enabled bool) error {
	return h.s.triggers.Register(name, namedPatterns(name, patterns), namedPatterns(name, rawPatterns), namedPatterns(name, antiPatterns), trigger.SimpleBody(bodyText), firesOnPrompt, enabled)
}

func (h sessionHost) CreateFnTrigger(name string, patterns, rawPatterns, antiPatterns []string, handle string, firesOnPrompt, enabled bool) error {
	return h.s.triggers.Register(name, namedPatterns(name, patterns), namedPatterns(name, rawPatterns), namedPatterns(name, antiPatterns), trigger.FnBody(handle), firesOnPrompt, enabled)
}

// namedPatterns wraps each raw pattern source in the pattern.NamedPattern
// shape the registries require; every source of one trigger/alias carries
// the owner's name, with no ordinal.
func namedPatterns(owner string, sources []string) []pattern.NamedPattern {
	if len(sources) == 0 {
		return nil
	}
	out := make([]pattern.NamedPattern, len(sources))
	for i, src := range sources {
		out[i] = pattern.NamedPattern{Name: owner, Source: src}
	}
	return out
}

func (h sessionHost) GetCurrentLine() string {
	h.s.curLineMu.Lock()
	defer h.s.curLineMu.Unlock()
	return h.s.curLineText
}

func (h sessionHost) GetCurrentLineNumber() int64 {
	h.s.curLineMu.Lock()
	defer h.s.curLineMu.Unlock()
	return h.s.curLineNum
}
func (h sessionHost) LineInsert(pos int, text string, style vtparse.Style) {
	h.s.editQueue.Insert(pos, text, style)
}
func (h sessionHost) LineReplace(begin, end int, text string) { h.s.editQueue.Replace(begin, end, text) }
func (h sessionHost) LineHighlight(begin, end int, style vtparse.Style) {
	h.s.editQueue.Highlight(begin, end, style)
}
func (h sessionHost) LineRemove(begin, end int) { h.s.editQueue.Remove(begin, end) }
func (h sessionHost) LineGag()                  { h.s.editQueue.Gag() }

func (h sessionHost) BufferInsert(lineNumber int64, pos int, text string, style vtparse.Style) error {
	err := h.s.buffer.MutateLine(lineNumber, []scrollback.LineEdit{scrollback.Insert(pos, text, style)})
	h.publishMutate(lineNumber, err)
	return err
}
func (h sessionHost) BufferReplace(lineNumber int64, begin, end int, text string) error {
	err := h.s.buffer.MutateLine(lineNumber, []scrollback.LineEdit{scrollback.Replace(begin, end, text)})
	h.publishMutate(lineNumber, err)
	return err
}
func (h sessionHost) BufferHighlight(lineNumber int64, begin, end int, style vtparse.Style) error {
	err := h.s.buffer.MutateLine(lineNumber, []scrollback.LineEdit{scrollback.Highlight(begin, end, style)})
	h.publishMutate(lineNumber, err)
	return err
}
func (h sessionHost) BufferRemove(lineNumber int64, begin, end int) error {
	err := h.s.buffer.MutateLine(lineNumber, []scrollback.LineEdit{scrollback.Remove(begin, end)})
	h.publishMutate(lineNumber, err)
	return err
}

// publishMutate notifies the UI feed of a successful retroactive edit.
func (h sessionHost) publishMutate(lineNumber int64, err error) {
	if err != nil || h.s.Hub == nil {
		return
	}
	snap := h.s.buffer.Snapshot()
	for _, line := range snap.Lines {
		if line.Number == lineNumber {
			h.s.Hub.PublishScrollbackMutate(h.s.Profile.ID, lineNumber, line.PlainText())
			return
		}
	}
}

func (h sessionHost) ListAreaIDs() []scriptvm.MapEntityRef {
	ids := h.s.mapCache.ListAreaIDs()
	out := make([]scriptvm.MapEntityRef, len(ids))
	for i, id := range ids {
		out[i] = scriptvm.MapEntityRef{AreaHi: id.Hi, AreaLo: id.Lo}
	}
	return out
}

func (h sessionHost) GetAreaName(ref scriptvm.MapEntityRef) (string, bool) {
	area, ok := h.s.mapCache.GetArea(areaID(ref))
	return area.Name, ok
}

func (h sessionHost) RenameArea(ref scriptvm.MapEntityRef, name string) {
	h.s.mapCache.RenameArea(areaID(ref), name)
	h.publishAreaChanged(ref, name)
}

func (h sessionHost) GetRoomTitle(ref scriptvm.MapEntityRef) (string, bool) {
	room, ok := h.s.mapCache.GetRoom(areaID(ref), mapcache.RoomNumber(ref.Room))
	return room.Title, ok
}

func (h sessionHost) SetRoomField(ref scriptvm.MapEntityRef, field, value string) {
	h.s.mapCache.UpdateRoomField(areaID(ref), mapcache.RoomNumber(ref.Room), field, value)
	h.publishRoomChanged(ref)
}

func (h sessionHost) SetRoomProperty(ref scriptvm.MapEntityRef, key, value string) {
	h.s.mapCache.SetRoomProperty(areaID(ref), mapcache.RoomNumber(ref.Room), key, value)
	h.publishRoomChanged(ref)
}

func (h sessionHost) SetAreaProperty(ref scriptvm.MapEntityRef, key, value string) {
	h.s.mapCache.SetAreaProperty(areaID(ref), key, value)
	h.publishAreaChanged(ref, "")
}

func (h sessionHost) CreateRoom(ref scriptvm.MapEntityRef, title string) {
	h.s.mapCache.CreateRoom(areaID(ref), mapcache.RoomNumber(ref.Room), title, "")
	h.publishRoomChanged(ref)
}

func (h sessionHost) DeleteRoom(ref scriptvm.MapEntityRef) {
	h.s.mapCache.DeleteRoom(areaID(ref), mapcache.RoomNumber(ref.Room))
	h.publishRoomChanged(ref)
}

func (h sessionHost) publishRoomChanged(ref scriptvm.MapEntityRef) {
	if h.s.Hub == nil {
		return
	}
	title, _ := h.s.mapCache.GetRoom(areaID(ref), mapcache.RoomNumber(ref.Room))
	h.s.Hub.PublishRoomChanged(ref.AreaHi, ref.AreaLo, ref.Room, title.Title)
}

func (h sessionHost) publishAreaChanged(ref scriptvm.MapEntityRef, name string) {
	if h.s.Hub == nil {
		return
	}
	if name == "" {
		if area, ok := h.s.mapCache.GetArea(areaID(ref)); ok {
			name = area.Name
		}
	}
	h.s.Hub.PublishAreaChanged(ref.AreaHi, ref.AreaLo, name)
}

func (h sessionHost) SetCurrentLocation(ref scriptvm.MapEntityRef) {
	room := mapcache.RoomNumber(ref.Room)
	h.s.mapCache.SetCurrentLocation(areaID(ref), &room)
}

func (h sessionHost) SearchRooms(title, description string) []scriptvm.MapEntityRef {
	results := h.s.mapCache.SearchRooms(title, description)
	out := make([]scriptvm.MapEntityRef, len(results))
	for i, r := range results {
		out[i] = scriptvm.MapEntityRef{AreaHi: r.Area.Hi, AreaLo: r.Area.Lo, Room: uint32(r.Room)}
	}
	return out
}

func (h sessionHost) GetCurrentSession() string { return h.s.Profile.ID }

func (h sessionHost) GetSessions() []string {
	if h.s.Manager == nil {
		return []string{h.s.Profile.ID}
	}
	return h.s.Manager.IDs()
}

func (h sessionHost) GetSessionCharacter(id string) string {
	if h.s.Manager == nil {
		if id == h.s.Profile.ID {
			return h.s.Profile.Character
		}
		return ""
	}
	if other, ok := h.s.Manager.Get(id); ok {
		return other.Profile.Character
	}
	return ""
}

func areaID(ref scriptvm.MapEntityRef) mapcache.AreaID {
	return mapcache.AreaID{Hi: ref.AreaHi, Lo: ref.AreaLo}
}
