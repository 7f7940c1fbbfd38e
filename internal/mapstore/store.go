// Package mapstore implements mapcache.Backend on an embedded SQLite
// database (spec.md §4.12, added), grounded on the teacher's
// internal/store Open/migrate pattern: WAL mode, migrations embedded via
// embed.FS, applied once at startup.
package mapstore

import (
	"context"
	"database/sql"
	"embed"
	"fmt"
	"time"

	_ "modernc.org/sqlite"

	"github.com/smudgy/smudgy/internal/mapcache"
)

//go:embed migrations/*.sql
var migrations embed.FS

// Store is the embedded SQLite-backed mapcache.Backend.
type Store struct {
	db *sql.DB
}

// Open creates (or reopens) a Store at dsn, a modernc.org/sqlite data
// source name (e.g. "file:smudgy-map.db" or ":memory:"), enables WAL mode,
// and applies every embedded migration.
func Open(dsn string) (*Store, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("mapstore: open: %w", err)
	}
	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("mapstore: enable WAL: %w", err)
	}
	s := &Store{db: db}
	if err := s.migrate(); err != nil {
		db.Close()
		return nil, err
	}
	return s, nil
}

func (s *Store) migrate() error {
	entries, err := migrations.ReadDir("migrations")
	if err != nil {
		return fmt.Errorf("mapstore: read migrations: %w", err)
	}
	for _, e := range entries {
		sqlBytes, err := migrations.ReadFile("migrations/" + e.Name())
		if err != nil {
			return fmt.Errorf("mapstore: read migration %s: %w", e.Name(), err)
		}
		if _, err := s.db.Exec(string(sqlBytes)); err != nil {
			return fmt.Errorf("mapstore: apply migration %s: %w", e.Name(), err)
		}
	}
	return nil
}

// Close releases the underlying database handle.
func (s *Store) Close() error { return s.db.Close() }

var _ mapcache.Backend = (*Store)(nil)

func (s *Store) UpsertArea(ctx context.Context, area mapcache.Area) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO areas (area_hi, area_lo, name, updated_at) VALUES (?, ?, ?, ?)
		ON CONFLICT (area_hi, area_lo) DO UPDATE SET name = excluded.name, updated_at = excluded.updated_at`,
		area.ID.Hi, area.ID.Lo, area.Name, time.Now().UTC().Format(time.RFC3339))
	if err != nil {
		return err
	}
	for k, v := range area.Properties {
		if _, err := s.db.ExecContext(ctx, `
			INSERT INTO area_properties (area_hi, area_lo, key, value) VALUES (?, ?, ?, ?)
			ON CONFLICT (area_hi, area_lo, key) DO UPDATE SET value = excluded.value`,
			area.ID.Hi, area.ID.Lo, k, v); err != nil {
			return err
		}
	}
	return nil
}

func (s *Store) UpsertRoom(ctx context.Context, room mapcache.Room) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO rooms (area_hi, area_lo, room_number, title, description, level, x, y, color, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (area_hi, area_lo, room_number) DO UPDATE SET
			title = excluded.title, description = excluded.description, level = excluded.level,
			x = excluded.x, y = excluded.y, color = excluded.color, updated_at = excluded.updated_at`,
		room.AreaID.Hi, room.AreaID.Lo, room.Number, room.Title, room.Description, room.Level,
		room.X, room.Y, room.Color, time.Now().UTC().Format(time.RFC3339))
	if err != nil {
		return err
	}
	for k, v := range room.Properties {
		if _, err := s.db.ExecContext(ctx, `
			INSERT INTO room_properties (area_hi, area_lo, room_number, key, value) VALUES (?, ?, ?, ?, ?)
			ON CONFLICT (area_hi, area_lo, room_number, key) DO UPDATE SET value = excluded.value`,
			room.AreaID.Hi, room.AreaID.Lo, room.Number, k, v); err != nil {
			return err
		}
	}
	return nil
}

func (s *Store) UpsertExit(ctx context.Context, exit mapcache.Exit) error {
	var toAreaHi, toAreaLo, toRoom any
	if exit.ToArea != nil {
		toAreaHi, toAreaLo = exit.ToArea.Hi, exit.ToArea.Lo
	}
	if exit.ToRoom != nil {
		toRoom = *exit.ToRoom
	}
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO exits (exit_hi, exit_lo, from_direction, from_area_hi, from_area_lo, from_room,
			to_direction, to_area_hi, to_area_lo, to_room, hidden, closed, locked, weight, command, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (exit_hi, exit_lo) DO UPDATE SET
			from_direction = excluded.from_direction, to_direction = excluded.to_direction,
			to_area_hi = excluded.to_area_hi, to_area_lo = excluded.to_area_lo, to_room = excluded.to_room,
			hidden = excluded.hidden, closed = excluded.closed, locked = excluded.locked,
			weight = excluded.weight, command = excluded.command, updated_at = excluded.updated_at`,
		exit.ID.Hi, exit.ID.Lo, exit.FromDirection, exit.FromArea.Hi, exit.FromArea.Lo, exit.FromRoom,
		exit.ToDirection, toAreaHi, toAreaLo, toRoom,
		exit.Hidden, exit.Closed, exit.Locked, exit.Weight, exit.Command, time.Now().UTC().Format(time.RFC3339))
	return err
}

func (s *Store) DeleteRoom(ctx context.Context, area mapcache.AreaID, room mapcache.RoomNumber) error {
	_, err := s.db.ExecContext(ctx, `DELETE FROM rooms WHERE area_hi = ? AND area_lo = ? AND room_number = ?`, area.Hi, area.Lo, room)
	if err != nil {
		return err
	}
	_, err = s.db.ExecContext(ctx, `DELETE FROM room_properties WHERE area_hi = ? AND area_lo = ? AND room_number = ?`, area.Hi, area.Lo, room)
	return err
}

func (s *Store) DeleteExit(ctx context.Context, id mapcache.ExitID) error {
	_, err := s.db.ExecContext(ctx, `DELETE FROM exits WHERE exit_hi = ? AND exit_lo = ?`, id.Hi, id.Lo)
	return err
}

func (s *Store) SetCurrentLocation(ctx context.Context, area mapcache.AreaID, room *mapcache.RoomNumber) error {
	var roomNumber any
	if room != nil {
		roomNumber = *room
	}
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO current_location (id, area_hi, area_lo, room_number) VALUES (0, ?, ?, ?)
		ON CONFLICT (id) DO UPDATE SET area_hi = excluded.area_hi, area_lo = excluded.area_lo, room_number = excluded.room_number`,
		area.Hi, area.Lo, roomNumber)
	return err
}
