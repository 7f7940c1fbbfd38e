package mapcache

import "context"

// Backend is the durable sink behind the cache's write-back path. The
// remote HTTP map backend spec.md places out of scope and the embedded
// SQLite implementation in internal/mapstore both satisfy this interface;
// the cache code depends only on it. Every method is an idempotent upsert
// or delete (spec.md §6).
type Backend interface {
	UpsertArea(ctx context.Context, area Area) error
	UpsertRoom(ctx context.Context, room Room) error
	UpsertExit(ctx context.Context, exit Exit) error
	DeleteRoom(ctx context.Context, area AreaID, room RoomNumber) error
	DeleteExit(ctx context.Context, id ExitID) error
	SetCurrentLocation(ctx context.Context, area AreaID, room *RoomNumber) error
}

// WriteBackJobKind discriminates one queued mutation destined for Backend.
type WriteBackJobKind uint8

const (
	JobUpsertArea WriteBackJobKind = iota
	JobUpsertRoom
	JobUpsertExit
	JobDeleteRoom
	JobDeleteExit
	JobSetCurrentLocation
)

// WriteBackJob is one queued mutation (spec.md §3, added).
type WriteBackJob struct {
	Kind         WriteBackJobKind
	Area         Area
	Room         Room
	Exit         Exit
	DeleteArea   AreaID
	DeleteRoomNo RoomNumber
	DeleteExitID ExitID
	CurrentArea  AreaID
	CurrentRoom  *RoomNumber
}
