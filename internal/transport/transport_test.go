package transport

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/smudgy/smudgy/internal/mapcache"
	"github.com/smudgy/smudgy/internal/session"
)

func setup(t *testing.T) (*session.Manager, *mapcache.Cache, *Client, context.CancelFunc) {
	t.Helper()

	sessions := session.NewManager()
	mapCache := mapcache.New(nil, 8)

	sock := filepath.Join(t.TempDir(), "smudgyd.sock")
	srv := NewServer(sessions, mapCache, sock, session.Profile{}, nil)

	ctx, cancel := context.WithCancel(context.Background())
	ready := make(chan struct{})
	go func() {
		go func() {
			for {
				if _, err := os.Stat(sock); err == nil {
					close(ready)
					return
				}
				time.Sleep(5 * time.Millisecond)
			}
		}()
		srv.ListenAndServe(ctx)
	}()

	select {
	case <-ready:
	case <-time.After(2 * time.Second):
		cancel()
		t.Fatal("server did not start in time")
	}

	client := NewClient(sock)
	return sessions, mapCache, client, func() {
		client.Close()
		cancel()
	}
}

func TestListSessionsEmpty(t *testing.T) {
	_, _, client, cleanup := setup(t)
	defer cleanup()

	ids, err := client.ListSessions()
	if err != nil {
		t.Fatalf("list sessions: %v", err)
	}
	if len(ids) != 0 {
		t.Fatalf("want 0 sessions, got %v", ids)
	}
}

func TestConnectRegistersSession(t *testing.T) {
	sessions, _, client, cleanup := setup(t)
	defer cleanup()

	if err := client.Connect("s1", "127.0.0.1", 1, ""); err != nil {
		t.Fatalf("connect: %v", err)
	}

	if _, ok := sessions.Get("s1"); !ok {
		t.Fatal("expected session s1 to be registered")
	}

	ids, err := client.ListSessions()
	if err != nil {
		t.Fatalf("list sessions: %v", err)
	}
	if len(ids) != 1 || ids[0] != "s1" {
		t.Fatalf("want [s1], got %v", ids)
	}
}

func TestConnectDuplicateSessionErrors(t *testing.T) {
	_, _, client, cleanup := setup(t)
	defer cleanup()

	if err := client.Connect("s1", "127.0.0.1", 1, ""); err != nil {
		t.Fatalf("connect: %v", err)
	}
	if err := client.Connect("s1", "127.0.0.1", 1, ""); err == nil {
		t.Fatal("expected error connecting duplicate session id")
	}
}

func TestSendToUnknownSessionErrors(t *testing.T) {
	_, _, client, cleanup := setup(t)
	defer cleanup()

	if err := client.Send("nope", "look"); err == nil {
		t.Fatal("expected error sending to unknown session")
	}
}

func TestListTriggersForKnownSession(t *testing.T) {
	sessions, mapCache, client, cleanup := setup(t)
	defer cleanup()

	sess := session.New(session.Profile{ID: "s2", Host: "127.0.0.1", Port: 1}, mapCache)
	sessions.Add(sess)

	names, err := client.ListTriggers("s2")
	if err != nil {
		t.Fatalf("list triggers: %v", err)
	}
	if len(names) != 0 {
		t.Fatalf("want 0 triggers, got %v", names)
	}
}

func TestSnapshotUnknownSessionErrors(t *testing.T) {
	_, _, client, cleanup := setup(t)
	defer cleanup()

	if _, err := client.Snapshot("nope", 0, 0); err == nil {
		t.Fatal("expected error snapshotting unknown session")
	}
}

func TestMapListAreasEmpty(t *testing.T) {
	_, _, client, cleanup := setup(t)
	defer cleanup()

	areas, err := client.MapListAreas()
	if err != nil {
		t.Fatalf("map list areas: %v", err)
	}
	if len(areas) != 0 {
		t.Fatalf("want 0 areas, got %v", areas)
	}
}

func TestMapGetRoomNotFoundErrors(t *testing.T) {
	_, _, client, cleanup := setup(t)
	defer cleanup()

	if _, err := client.MapGetRoom(1, 2, 3); err == nil {
		t.Fatal("expected error for missing room")
	}
}

func TestUnknownOpErrors(t *testing.T) {
	_, _, client, cleanup := setup(t)
	defer cleanup()

	err := client.call("bogus-op", nil, nil)
	if err == nil {
		t.Fatal("expected error for unknown op")
	}
}
