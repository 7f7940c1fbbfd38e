package mapstore

import (
	"context"
	"testing"

	"github.com/smudgy/smudgy/internal/mapcache"
)

func TestUpsertAndDeleteRoundTrip(t *testing.T) {
	s, err := Open(":memory:")
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	defer s.Close()

	ctx := context.Background()
	area := mapcache.Area{ID: mapcache.AreaID{Hi: 0, Lo: 1}, Name: "Townsquare", Properties: map[string]string{"climate": "temperate"}}
	if err := s.UpsertArea(ctx, area); err != nil {
		t.Fatalf("upsert area: %v", err)
	}
	// Idempotent: upserting again must not error.
	if err := s.UpsertArea(ctx, area); err != nil {
		t.Fatalf("re-upsert area: %v", err)
	}

	room := mapcache.Room{Number: 1, AreaID: area.ID, Title: "Fountain", Properties: map[string]string{"lit": "true"}}
	if err := s.UpsertRoom(ctx, room); err != nil {
		t.Fatalf("upsert room: %v", err)
	}

	exit := mapcache.Exit{ID: mapcache.ExitID{Hi: 0, Lo: 1}, FromArea: area.ID, FromRoom: 1, FromDirection: "north"}
	if err := s.UpsertExit(ctx, exit); err != nil {
		t.Fatalf("upsert exit: %v", err)
	}

	if err := s.DeleteExit(ctx, exit.ID); err != nil {
		t.Fatalf("delete exit: %v", err)
	}
	if err := s.DeleteRoom(ctx, area.ID, room.Number); err != nil {
		t.Fatalf("delete room: %v", err)
	}
	// Deleting twice is idempotent per spec.md §6.
	if err := s.DeleteRoom(ctx, area.ID, room.Number); err != nil {
		t.Fatalf("re-delete room: %v", err)
	}
}

func TestSetCurrentLocationUpsert(t *testing.T) {
	s, err := Open(":memory:")
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	defer s.Close()

	ctx := context.Background()
	area := mapcache.AreaID{Hi: 0, Lo: 1}
	room := mapcache.RoomNumber(1)
	if err := s.SetCurrentLocation(ctx, area, &room); err != nil {
		t.Fatalf("set location: %v", err)
	}
	if err := s.SetCurrentLocation(ctx, area, nil); err != nil {
		t.Fatalf("set location (no room): %v", err)
	}
}
