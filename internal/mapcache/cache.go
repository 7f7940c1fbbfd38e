package mapcache

import (
	"log/slog"
	"sync"
)

// Cache is the concurrent keyed store described in spec.md §4.8. Reads are
// lock-free (sync.Map loads); writes update in-memory state immediately,
// then enqueue a WriteBackJob for the background workers in writeback.go —
// "read your writes" holds regardless of backend acknowledgement.
type Cache struct {
	areas sync.Map // AreaID -> Area
	rooms sync.Map // roomKey -> Room
	exits sync.Map // ExitID -> Exit

	idx *index

	mu             sync.Mutex // guards roomsByArea, the next-id counters, and the current location
	roomsByArea    map[AreaID]map[RoomNumber]struct{}
	nextAreaID     uint64
	nextExitID     uint64
	currentArea    AreaID
	currentRoom    *RoomNumber

	jobs   chan WriteBackJob
	logger *slog.Logger
}

// New creates an empty Cache. jobBuffer sizes the write-back channel;
// writes never block on it filling (see enqueue).
func New(logger *slog.Logger, jobBuffer int) *Cache {
	if logger == nil {
		logger = slog.Default()
	}
	if jobBuffer <= 0 {
		jobBuffer = 1024
	}
	return &Cache{
		idx:         newIndex(),
		roomsByArea: make(map[AreaID]map[RoomNumber]struct{}),
		jobs:        make(chan WriteBackJob, jobBuffer),
		logger:      logger,
	}
}

func (c *Cache) enqueue(job WriteBackJob) {
	select {
	case c.jobs <- job:
	default:
		// The buffer is saturated: log and drop rather than block the
		// caller, matching spec.md §5's non-blocking write contract. The
		// in-memory state is already authoritative for reads either way.
		c.logger.Warn("mapcache: write-back queue full, dropping job", "kind", job.Kind)
	}
}

// ListAreaIDs returns every known area id.
func (c *Cache) ListAreaIDs() []AreaID {
	var ids []AreaID
	c.areas.Range(func(k, _ any) bool {
		ids = append(ids, k.(AreaID))
		return true
	})
	return ids
}

// GetArea reads the current value of an area.
func (c *Cache) GetArea(id AreaID) (Area, bool) {
	v, ok := c.areas.Load(id)
	if !ok {
		return Area{}, false
	}
	return v.(Area), true
}

// CreateArea assigns a fresh AreaID and stores the area, enqueuing a
// write-back upsert.
func (c *Cache) CreateArea(name string) AreaID {
	c.mu.Lock()
	c.nextAreaID++
	id := AreaID{Hi: 0, Lo: c.nextAreaID}
	c.mu.Unlock()

	area := Area{ID: id, Name: name, Properties: make(map[string]string)}
	c.areas.Store(id, area)
	c.enqueue(WriteBackJob{Kind: JobUpsertArea, Area: area})
	return id
}

// RenameArea updates an area's name in place (last-writer-wins).
func (c *Cache) RenameArea(id AreaID, name string) {
	area, _ := c.GetArea(id)
	area.ID = id
	area.Name = name
	if area.Properties == nil {
		area.Properties = make(map[string]string)
	}
	c.areas.Store(id, area)
	c.enqueue(WriteBackJob{Kind: JobUpsertArea, Area: area})
}

// SetAreaProperty sets one property key on an area.
func (c *Cache) SetAreaProperty(id AreaID, key, value string) {
	area, _ := c.GetArea(id)
	area.ID = id
	if area.Properties == nil {
		area.Properties = make(map[string]string)
	} else {
		area.Properties = cloneProps(area.Properties)
	}
	area.Properties[key] = value
	c.areas.Store(id, area)
	c.enqueue(WriteBackJob{Kind: JobUpsertArea, Area: area})
}

// GetRoom reads the current value of a room.
func (c *Cache) GetRoom(area AreaID, number RoomNumber) (Room, bool) {
	v, ok := c.rooms.Load(roomKey{Area: area, Room: number})
	if !ok {
		return Room{}, false
	}
	return v.(Room), true
}

// ListRoomNumbers returns every room number known within an area.
func (c *Cache) ListRoomNumbers(area AreaID) []RoomNumber {
	c.mu.Lock()
	defer c.mu.Unlock()
	var out []RoomNumber
	for n := range c.roomsByArea[area] {
		out = append(out, n)
	}
	return out
}

// CreateRoom adds (or overwrites) a room and indexes it.
func (c *Cache) CreateRoom(area AreaID, number RoomNumber, title, description string) {
	room := Room{Number: number, AreaID: area, Title: title, Description: description, Properties: make(map[string]string), Exits: make(map[ExitID]struct{})}
	c.storeRoom(room)
}

func (c *Cache) storeRoom(room Room) {
	key := roomKey{Area: room.AreaID, Room: room.Number}
	c.rooms.Store(key, room)

	c.mu.Lock()
	if c.roomsByArea[room.AreaID] == nil {
		c.roomsByArea[room.AreaID] = make(map[RoomNumber]struct{})
	}
	c.roomsByArea[room.AreaID][room.Number] = struct{}{}
	c.mu.Unlock()

	c.idx.update(key, room.Title, room.Description)
	c.enqueue(WriteBackJob{Kind: JobUpsertRoom, Room: room})
}

// UpdateRoomField sets one of a fixed set of scalar room fields by name.
func (c *Cache) UpdateRoomField(area AreaID, number RoomNumber, field, value string) bool {
	room, ok := c.GetRoom(area, number)
	if !ok {
		return false
	}
	switch field {
	case "title":
		room.Title = value
	case "description":
		room.Description = value
	case "color":
		room.Color = value
	default:
		return false
	}
	c.storeRoom(room)
	return true
}

// SetRoomProperty sets one free-form property on a room.
func (c *Cache) SetRoomProperty(area AreaID, number RoomNumber, key, value string) bool {
	room, ok := c.GetRoom(area, number)
	if !ok {
		return false
	}
	room.Properties = cloneProps(room.Properties)
	room.Properties[key] = value
	c.storeRoom(room)
	return true
}

// DeleteRoom removes a room and every exit it owns (spec.md §9: enumerate
// and delete a room's exits before the room itself).
func (c *Cache) DeleteRoom(area AreaID, number RoomNumber) {
	room, ok := c.GetRoom(area, number)
	if ok {
		for exitID := range room.Exits {
			c.DeleteExit(exitID)
		}
	}

	key := roomKey{Area: area, Room: number}
	c.rooms.Delete(key)
	c.mu.Lock()
	delete(c.roomsByArea[area], number)
	c.mu.Unlock()
	c.idx.remove(key)
	c.enqueue(WriteBackJob{Kind: JobDeleteRoom, DeleteArea: area, DeleteRoomNo: number})
}

// GetExit reads the current value of an exit.
func (c *Cache) GetExit(id ExitID) (Exit, bool) {
	v, ok := c.exits.Load(id)
	if !ok {
		return Exit{}, false
	}
	return v.(Exit), true
}

// CreateExit assigns a fresh ExitID, stores the exit, and references it
// from both endpoint rooms' exit sets when both endpoints exist.
func (c *Cache) CreateExit(fromArea AreaID, fromRoom RoomNumber, fromDir string, toArea *AreaID, toRoom *RoomNumber, toDir string) ExitID {
	c.mu.Lock()
	c.nextExitID++
	id := ExitID{Hi: 0, Lo: c.nextExitID}
	c.mu.Unlock()

	exit := Exit{ID: id, FromDirection: fromDir, FromArea: fromArea, FromRoom: fromRoom, ToDirection: toDir, ToArea: toArea, ToRoom: toRoom}
	c.exits.Store(id, exit)
	c.linkExitToRoom(fromArea, fromRoom, id)
	if toArea != nil && toRoom != nil {
		c.linkExitToRoom(*toArea, *toRoom, id)
	}
	c.enqueue(WriteBackJob{Kind: JobUpsertExit, Exit: exit})
	return id
}

func (c *Cache) linkExitToRoom(area AreaID, number RoomNumber, exitID ExitID) {
	room, ok := c.GetRoom(area, number)
	if !ok {
		return
	}
	room.Exits = cloneExitSet(room.Exits)
	room.Exits[exitID] = struct{}{}
	key := roomKey{Area: room.AreaID, Room: room.Number}
	c.rooms.Store(key, room)
}

// UpdateExit overwrites an exit's flags/weight/command.
func (c *Cache) UpdateExit(id ExitID, hidden, closed, locked bool, weight float64, command string) bool {
	exit, ok := c.GetExit(id)
	if !ok {
		return false
	}
	exit.Hidden, exit.Closed, exit.Locked, exit.Weight, exit.Command = hidden, closed, locked, weight, command
	c.exits.Store(id, exit)
	c.enqueue(WriteBackJob{Kind: JobUpsertExit, Exit: exit})
	return true
}

// DeleteExit removes an exit.
func (c *Cache) DeleteExit(id ExitID) {
	c.exits.Delete(id)
	c.enqueue(WriteBackJob{Kind: JobDeleteExit, DeleteExitID: id})
}

// SetCurrentLocation records the session's (or the cache-wide, for a
// single-character convenience) current position.
func (c *Cache) SetCurrentLocation(area AreaID, room *RoomNumber) {
	c.mu.Lock()
	c.currentArea = area
	c.currentRoom = room
	c.mu.Unlock()
	c.enqueue(WriteBackJob{Kind: JobSetCurrentLocation, CurrentArea: area, CurrentRoom: room})
}

// CurrentLocation returns the last location set via SetCurrentLocation.
func (c *Cache) CurrentLocation() (AreaID, *RoomNumber) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.currentArea, c.currentRoom
}

// SearchRooms returns every (area, room) whose indexed title contains the
// title substring and whose indexed description contains the description
// substring, case-insensitively (spec.md §4.8's secondary index). An empty
// field places no constraint, but an empty query matches nothing; at least
// one of title/description must be non-empty.
func (c *Cache) SearchRooms(title, description string) []struct {
	Area AreaID
	Room RoomNumber
} {
	if title == "" && description == "" {
		return nil
	}
	keys := c.idx.search(title, description)
	out := make([]struct {
		Area AreaID
		Room RoomNumber
	}, len(keys))
	for i, k := range keys {
		out[i] = struct {
			Area AreaID
			Room RoomNumber
		}{Area: k.Area, Room: k.Room}
	}
	return out
}
